package database

import (
	"database/sql"
	"fmt"
	"strings"
)

// Enum literal sets. The same sets appear as CHECK constraints in the schema;
// validating here first means callers get ErrInvalidEnum instead of a raw
// driver error.
var (
	platformRoles = enumSet("participant", "support_technician", "super_admin")
	userStatuses  = enumSet("active", "banned")

	groupTypes     = enumSet("activity", "social", "mixed")
	groupStatuses  = enumSet("draft", "pending", "approved", "rejected", "inactive")
	groupRoles     = enumSet("member", "volunteer", "manager")
	memberStatuses = enumSet("pending", "active", "left")

	requestStatuses = enumSet("pending", "approved", "rejected")

	eventStatuses        = enumSet("draft", "scheduled", "completed", "cancelled")
	eventRoles           = enumSet("participant", "volunteer")
	participationStates  = enumSet("registered", "attended", "no_show", "cancelled")
	volunteerStates      = enumSet("assigned", "confirmed", "completed", "cancelled")
	resultMethods        = enumSet("manual", "csv")
	helpCategories       = enumSet("technical_issue", "account_problem", "event_inquiry", "group_management", "rejection_inquiry", "general_help")
	helpPriorities       = enumSet("low", "medium", "high", "urgent")
	helpStatuses         = enumSet("new", "assigned", "blocked", "solved")
	notificationKinds    = enumSet("event", "group", "volunteer", "system")
)

func enumSet(values ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(values))
	for _, v := range values {
		m[v] = struct{}{}
	}
	return m
}

// checkEnum returns ErrInvalidEnum if value is not in the set. Empty values
// are rejected too: optional enums are represented as sql.NullString and
// checked only when valid.
func checkEnum(field, value string, set map[string]struct{}) error {
	if _, ok := set[value]; !ok {
		return enumErr(field, value)
	}
	return nil
}

// checkNullEnum validates an optional enum column.
func checkNullEnum(field string, value sql.NullString, set map[string]struct{}) error {
	if !value.Valid {
		return nil
	}
	return checkEnum(field, value.String, set)
}

// rowExists reports whether the given table has a row with the given primary
// key. Used for foreign key pre-checks so callers see ErrForeignKey rather
// than a driver constraint failure.
func rowExists(q DBorTx, table, pkCol string, id int64) (bool, error) {
	var one int
	query := fmt.Sprintf("SELECT 1 FROM %s WHERE %s = ?", table, pkCol)
	err := q.QueryRow(query, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// checkFK translates a missing referenced row into ErrForeignKey.
func checkFK(q DBorTx, table, pkCol, field string, id int64) error {
	ok, err := rowExists(q, table, pkCol, id)
	if err != nil {
		return err
	}
	if !ok {
		return fkErr(field, id)
	}
	return nil
}

// checkNullFK validates an optional foreign key column.
func checkNullFK(q DBorTx, table, pkCol, field string, id sql.NullInt64) error {
	if !id.Valid {
		return nil
	}
	return checkFK(q, table, pkCol, field, id.Int64)
}

// translateErr maps driver constraint failures that slipped past the
// pre-commit checks onto the sentinel taxonomy. The schema's own CHECK,
// UNIQUE and FOREIGN KEY clauses act as a second line of defense.
func translateErr(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return fmt.Errorf("%s: %w", msg, ErrDuplicateKey)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return fmt.Errorf("%s: %w", msg, ErrForeignKey)
	case strings.Contains(msg, "CHECK constraint failed"):
		return fmt.Errorf("%s: %w", msg, ErrConstraint)
	}
	return err
}
