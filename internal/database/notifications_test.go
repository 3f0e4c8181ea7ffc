package database

import (
	"database/sql"
	"errors"
	"testing"
)

func TestCreateNotification(t *testing.T) {
	s := newTestService(t)
	user := seedUser(t, s, "alice")

	n, err := s.CreateNotification(s.DB(), user.UserID, "Welcome", "Glad you're here.", "", sql.NullInt64{})
	if err != nil {
		t.Fatalf("CreateNotification failed: %v", err)
	}
	if n == nil {
		t.Fatal("Expected a delivered notification")
	}
	if n.Category != "system" || n.IsRead {
		t.Errorf("Expected unread system notification, got %+v", n)
	}

	if _, err := s.CreateNotification(s.DB(), user.UserID, "t", "m", "gossip", sql.NullInt64{}); !errors.Is(err, ErrInvalidEnum) {
		t.Fatalf("Expected ErrInvalidEnum for bad category, got %v", err)
	}
	if _, err := s.CreateNotification(s.DB(), 9999, "t", "m", "system", sql.NullInt64{}); !errors.Is(err, ErrForeignKey) {
		t.Fatalf("Expected ErrForeignKey for missing user, got %v", err)
	}
}

func TestNotificationSuppressedWhenDisabled(t *testing.T) {
	s := newTestService(t)
	user := seedUser(t, s, "alice")

	if err := s.SetNotificationsEnabled(s.DB(), user.UserID, false); err != nil {
		t.Fatalf("SetNotificationsEnabled failed: %v", err)
	}

	n, err := s.CreateNotification(s.DB(), user.UserID, "Ignored", "m", "event", sql.NullInt64{})
	if err != nil {
		t.Fatalf("CreateNotification failed: %v", err)
	}
	if n != nil {
		t.Fatalf("Expected suppressed delivery for opted-out user, got %+v", n)
	}

	got, err := s.GetNotificationsByUserID(s.DB(), user.UserID, false)
	if err != nil {
		t.Fatalf("GetNotificationsByUserID failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected no stored notifications, got %d", len(got))
	}
}

func TestMarkNotificationsRead(t *testing.T) {
	s := newTestService(t)
	alice := seedUser(t, s, "alice")
	bob := seedUser(t, s, "bob")

	first, err := s.CreateNotification(s.DB(), alice.UserID, "One", "m", "group", nullInt(7))
	if err != nil {
		t.Fatalf("CreateNotification failed: %v", err)
	}
	if _, err := s.CreateNotification(s.DB(), alice.UserID, "Two", "m", "volunteer", sql.NullInt64{}); err != nil {
		t.Fatalf("CreateNotification failed: %v", err)
	}

	// Users can only mark their own notifications.
	if err := s.MarkNotificationRead(s.DB(), first.NotiID, bob.UserID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound marking another user's notification, got %v", err)
	}

	if err := s.MarkNotificationRead(s.DB(), first.NotiID, alice.UserID); err != nil {
		t.Fatalf("MarkNotificationRead failed: %v", err)
	}
	unread, err := s.CountUnreadNotifications(s.DB(), alice.UserID)
	if err != nil {
		t.Fatalf("CountUnreadNotifications failed: %v", err)
	}
	if unread != 1 {
		t.Errorf("Expected 1 unread, got %d", unread)
	}

	marked, err := s.MarkAllNotificationsRead(s.DB(), alice.UserID)
	if err != nil {
		t.Fatalf("MarkAllNotificationsRead failed: %v", err)
	}
	if marked != 1 {
		t.Errorf("Expected 1 newly marked, got %d", marked)
	}

	onlyUnread, err := s.GetNotificationsByUserID(s.DB(), alice.UserID, true)
	if err != nil {
		t.Fatalf("GetNotificationsByUserID failed: %v", err)
	}
	if len(onlyUnread) != 0 {
		t.Errorf("Expected no unread notifications, got %d", len(onlyUnread))
	}
}

func TestNotificationsCascadeWithUser(t *testing.T) {
	s := newTestService(t)
	user := seedUser(t, s, "alice")

	n, err := s.CreateNotification(s.DB(), user.UserID, "One", "m", "system", sql.NullInt64{})
	if err != nil {
		t.Fatalf("CreateNotification failed: %v", err)
	}
	if err := s.DeleteUser(s.DB(), user.UserID); err != nil {
		t.Fatalf("DeleteUser failed: %v", err)
	}
	if _, err := s.GetNotificationByID(s.DB(), n.NotiID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected notification cascade-deleted, got %v", err)
	}
}
