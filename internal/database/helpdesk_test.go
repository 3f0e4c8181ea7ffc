package database

import (
	"errors"
	"testing"
)

func TestHelpRequestLifecycle(t *testing.T) {
	s := newTestService(t)
	user := seedUser(t, s, "alice")
	tech := seedUser(t, s, "tech")

	req, err := s.CreateHelpRequest(s.DB(), NewHelpRequestParams{
		UserID:      user.UserID,
		Category:    "technical_issue",
		Title:       "Cannot upload results",
		Description: "The results page times out.",
	})
	if err != nil {
		t.Fatalf("CreateHelpRequest failed: %v", err)
	}
	if req.Status != "new" || req.Priority != "medium" {
		t.Fatalf("Expected new/medium defaults, got %s/%s", req.Status, req.Priority)
	}

	if err := s.AssignHelpRequest(s.DB(), req.RequestID, tech.UserID); err != nil {
		t.Fatalf("AssignHelpRequest failed: %v", err)
	}
	assigned, _ := s.GetHelpRequestByID(s.DB(), req.RequestID)
	if assigned.Status != "assigned" || !assigned.AssignedTo.Valid || assigned.AssignedTo.Int64 != tech.UserID {
		t.Errorf("Expected assignment to %d, got %+v", tech.UserID, assigned)
	}

	// Assignment only applies to new tickets.
	if err := s.AssignHelpRequest(s.DB(), req.RequestID, tech.UserID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound reassigning, got %v", err)
	}

	if err := s.SetHelpRequestStatus(s.DB(), req.RequestID, "solved"); err != nil {
		t.Fatalf("SetHelpRequestStatus failed: %v", err)
	}
	solved, _ := s.GetHelpRequestByID(s.DB(), req.RequestID)
	if !solved.ResolvedAt.Valid {
		t.Error("Expected resolved_at stamped on solve")
	}

	// Reopening clears the resolution timestamp.
	if err := s.SetHelpRequestStatus(s.DB(), req.RequestID, "blocked"); err != nil {
		t.Fatalf("SetHelpRequestStatus failed: %v", err)
	}
	reopened, _ := s.GetHelpRequestByID(s.DB(), req.RequestID)
	if reopened.ResolvedAt.Valid {
		t.Error("Expected resolved_at cleared on reopen")
	}
}

func TestHelpRequestValidation(t *testing.T) {
	s := newTestService(t)
	user := seedUser(t, s, "alice")

	if _, err := s.CreateHelpRequest(s.DB(), NewHelpRequestParams{
		UserID:      user.UserID,
		Category:    "existential_crisis",
		Title:       "t",
		Description: "d",
	}); !errors.Is(err, ErrInvalidEnum) {
		t.Fatalf("Expected ErrInvalidEnum for bad category, got %v", err)
	}

	if _, err := s.CreateHelpRequest(s.DB(), NewHelpRequestParams{
		UserID:      9999,
		Category:    "general_help",
		Title:       "t",
		Description: "d",
	}); !errors.Is(err, ErrForeignKey) {
		t.Fatalf("Expected ErrForeignKey for missing user, got %v", err)
	}
}

func TestDeleteTechnicianNullsAssignment(t *testing.T) {
	s := newTestService(t)
	user := seedUser(t, s, "alice")
	tech := seedUser(t, s, "tech")

	req, err := s.CreateHelpRequest(s.DB(), NewHelpRequestParams{
		UserID:      user.UserID,
		Category:    "account_problem",
		Title:       "Locked out",
		Description: "Password reset loops.",
	})
	if err != nil {
		t.Fatalf("CreateHelpRequest failed: %v", err)
	}
	if err := s.AssignHelpRequest(s.DB(), req.RequestID, tech.UserID); err != nil {
		t.Fatalf("AssignHelpRequest failed: %v", err)
	}

	if err := s.DeleteUser(s.DB(), tech.UserID); err != nil {
		t.Fatalf("DeleteUser failed: %v", err)
	}

	// The ticket survives its assignee.
	got, err := s.GetHelpRequestByID(s.DB(), req.RequestID)
	if err != nil {
		t.Fatalf("GetHelpRequestByID failed: %v", err)
	}
	if got.AssignedTo.Valid {
		t.Errorf("Expected assigned_to nulled after technician deletion, got %+v", got.AssignedTo)
	}
}

func TestHelpReplies(t *testing.T) {
	s := newTestService(t)
	user := seedUser(t, s, "alice")
	tech := seedUser(t, s, "tech")

	req, err := s.CreateHelpRequest(s.DB(), NewHelpRequestParams{
		UserID:      user.UserID,
		Category:    "event_inquiry",
		Title:       "Start time?",
		Description: "When does the fun run start?",
	})
	if err != nil {
		t.Fatalf("CreateHelpRequest failed: %v", err)
	}

	if _, err := s.CreateHelpReply(s.DB(), req.RequestID, tech.UserID, "9am sharp."); err != nil {
		t.Fatalf("CreateHelpReply failed: %v", err)
	}
	if _, err := s.CreateHelpReply(s.DB(), req.RequestID, user.UserID, "Thanks!"); err != nil {
		t.Fatalf("CreateHelpReply failed: %v", err)
	}
	if _, err := s.CreateHelpReply(s.DB(), 9999, user.UserID, "orphan"); !errors.Is(err, ErrForeignKey) {
		t.Fatalf("Expected ErrForeignKey for missing request, got %v", err)
	}

	replies, err := s.GetHelpReplies(s.DB(), req.RequestID)
	if err != nil {
		t.Fatalf("GetHelpReplies failed: %v", err)
	}
	if len(replies) != 2 {
		t.Fatalf("Expected 2 replies, got %d", len(replies))
	}
	if replies[0].SenderID != tech.UserID {
		t.Errorf("Expected thread in chronological order")
	}

	// Replies go down with their request.
	if err := s.DeleteUser(s.DB(), user.UserID); err != nil {
		t.Fatalf("DeleteUser failed: %v", err)
	}
	if _, err := s.GetHelpRequestByID(s.DB(), req.RequestID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected request cascade-deleted with requester, got %v", err)
	}
	replies, err = s.GetHelpReplies(s.DB(), req.RequestID)
	if err != nil {
		t.Fatalf("GetHelpReplies failed: %v", err)
	}
	if len(replies) != 0 {
		t.Errorf("Expected replies cascade-deleted, got %d", len(replies))
	}
}

func TestListHelpRequestsPriorityOrder(t *testing.T) {
	s := newTestService(t)
	user := seedUser(t, s, "alice")

	for _, p := range []string{"low", "urgent", "medium"} {
		if _, err := s.CreateHelpRequest(s.DB(), NewHelpRequestParams{
			UserID:      user.UserID,
			Category:    "general_help",
			Title:       p,
			Description: "d",
			Priority:    p,
		}); err != nil {
			t.Fatalf("CreateHelpRequest failed: %v", err)
		}
	}

	requests, err := s.ListHelpRequests(s.DB(), "new")
	if err != nil {
		t.Fatalf("ListHelpRequests failed: %v", err)
	}
	if len(requests) != 3 {
		t.Fatalf("Expected 3 requests, got %d", len(requests))
	}
	for i, want := range []string{"urgent", "medium", "low"} {
		if requests[i].Priority != want {
			t.Errorf("Position %d: expected %s, got %s", i, want, requests[i].Priority)
		}
	}
}
