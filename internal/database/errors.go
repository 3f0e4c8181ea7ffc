package database

import (
	"errors"
	"fmt"
)

// The integrity error taxonomy. Every failed constraint check maps onto
// exactly one of these sentinels so that callers can react with errors.Is
// without parsing driver-specific messages. Violations are permanent: the
// caller must supply valid data, nothing is retried internally.
var (
	// ErrNotFound is returned when the target row of a read, update or delete
	// does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when an insert or update would violate a
	// uniqueness rule (username, email, or one of the membership pairs).
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidEnum is returned when an enum-typed field is set to a value
	// outside its declared literal set.
	ErrInvalidEnum = errors.New("invalid enum value")

	// ErrConstraint is returned for numeric and cross-field check violations,
	// e.g. max_members <= 0 or finish_time <= start_time.
	ErrConstraint = errors.New("constraint violation")

	// ErrForeignKey is returned when a referenced row does not exist.
	ErrForeignKey = errors.New("foreign key violation")
)

// notFoundErr wraps ErrNotFound with the entity and key that was looked up.
func notFoundErr(entity string, id int64) error {
	return fmt.Errorf("%s %d: %w", entity, id, ErrNotFound)
}

// duplicateErr wraps ErrDuplicateKey with the field or pair that collided.
func duplicateErr(what string) error {
	return fmt.Errorf("%s already exists: %w", what, ErrDuplicateKey)
}

// enumErr wraps ErrInvalidEnum with the offending field and value.
func enumErr(field, value string) error {
	return fmt.Errorf("%s = %q: %w", field, value, ErrInvalidEnum)
}

// constraintErr wraps ErrConstraint with a description of the failed check.
func constraintErr(desc string) error {
	return fmt.Errorf("%s: %w", desc, ErrConstraint)
}

// fkErr wraps ErrForeignKey with the referencing field and missing key.
func fkErr(field string, id int64) error {
	return fmt.Errorf("%s references missing row %d: %w", field, id, ErrForeignKey)
}
