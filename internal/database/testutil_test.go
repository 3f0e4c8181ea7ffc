package database

import (
	"database/sql"
	"fmt"
	"testing"
)

// newTestService opens an in-memory database with the full schema applied.
// The pool is pinned to one connection so every query sees the same
// in-memory database.
func newTestService(t *testing.T) *Service {
	t.Helper()

	s, err := NewService("file::memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	s.DB().SetMaxOpenConns(1)
	if err := s.InitSchema(); err != nil {
		t.Fatalf("Failed to initialize schema: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

var seedSeq int

// seedUser inserts an active participant with generated unique identity
// fields.
func seedUser(t *testing.T, s *Service, username string) *User {
	t.Helper()

	seedSeq++
	user, err := s.CreateUser(s.DB(), NewUserParams{
		Username:     username,
		Email:        fmt.Sprintf("%s%d@example.com", username, seedSeq),
		PasswordHash: "not-a-real-hash",
		FirstName:    "Test",
		LastName:     "User",
	})
	if err != nil {
		t.Fatalf("Failed to seed user %s: %v", username, err)
	}
	return user
}

// seedGroup creates and approves a group owned by creatorID. The creator is
// enrolled as an active manager by CreateGroup.
func seedGroup(t *testing.T, s *Service, name string, creatorID int64) *Group {
	t.Helper()

	var group *Group
	err := s.WriteTx(func(tx *sql.Tx) error {
		var err error
		group, err = s.CreateGroup(tx, NewGroupParams{
			Name:      name,
			GroupType: "activity",
			IsPublic:  true,
			CreatedBy: creatorID,
		})
		return err
	})
	if err != nil {
		t.Fatalf("Failed to seed group %s: %v", name, err)
	}
	if err := s.ApproveGroup(s.DB(), group.GroupID); err != nil {
		t.Fatalf("Failed to approve group %s: %v", name, err)
	}
	group, err = s.GetGroupByID(s.DB(), group.GroupID)
	if err != nil {
		t.Fatalf("Failed to reload group %s: %v", name, err)
	}
	return group
}

// seedEvent creates a scheduled event for the group on the given ISO date.
func seedEvent(t *testing.T, s *Service, groupID int64, title, date string) *Event {
	t.Helper()

	event, err := s.CreateEvent(s.DB(), NewEventParams{
		GroupID:    groupID,
		EventTitle: title,
		EventType:  sql.NullString{String: "Fun Run", Valid: true},
		EventDate:  date,
	})
	if err != nil {
		t.Fatalf("Failed to seed event %s: %v", title, err)
	}
	return event
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: true}
}

func nullInt(n int64) sql.NullInt64 {
	return sql.NullInt64{Int64: n, Valid: true}
}
