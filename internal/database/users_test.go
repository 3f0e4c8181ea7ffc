package database

import (
	"errors"
	"testing"
)

func TestCreateUserDuplicateIdentity(t *testing.T) {
	s := newTestService(t)
	alice := seedUser(t, s, "alice")

	_, err := s.CreateUser(s.DB(), NewUserParams{
		Username:     "alice",
		Email:        "other@example.com",
		PasswordHash: "x",
	})
	if !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("Expected ErrDuplicateKey for reused username, got %v", err)
	}

	_, err = s.CreateUser(s.DB(), NewUserParams{
		Username:     "alice2",
		Email:        alice.Email,
		PasswordHash: "x",
	})
	if !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("Expected ErrDuplicateKey for reused email, got %v", err)
	}
}

func TestCreateUserInvalidRole(t *testing.T) {
	s := newTestService(t)

	_, err := s.CreateUser(s.DB(), NewUserParams{
		Username:     "bob",
		Email:        "bob@example.com",
		PasswordHash: "x",
		PlatformRole: "overlord",
	})
	if !errors.Is(err, ErrInvalidEnum) {
		t.Fatalf("Expected ErrInvalidEnum, got %v", err)
	}
}

func TestBanAndUnbanUser(t *testing.T) {
	s := newTestService(t)
	admin := seedUser(t, s, "admin")
	target := seedUser(t, s, "target")

	if err := s.BanUser(s.DB(), target.UserID, admin.UserID, "spam"); err != nil {
		t.Fatalf("BanUser failed: %v", err)
	}

	banned, err := s.GetUserByID(s.DB(), target.UserID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if banned.Status != "banned" {
		t.Errorf("Expected status banned, got %s", banned.Status)
	}
	if !banned.BannedBy.Valid || banned.BannedBy.Int64 != admin.UserID {
		t.Errorf("Expected banned_by = %d, got %+v", admin.UserID, banned.BannedBy)
	}
	if !banned.BannedAt.Valid {
		t.Error("Expected banned_at to be set")
	}

	// Banned users disappear from the activity view.
	if _, err := s.GetUserActivitySummary(s.DB(), target.UserID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound for banned user's summary, got %v", err)
	}

	if err := s.UnbanUser(s.DB(), target.UserID); err != nil {
		t.Fatalf("UnbanUser failed: %v", err)
	}
	restored, err := s.GetUserByID(s.DB(), target.UserID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if restored.Status != "active" || restored.BannedBy.Valid || restored.BannedReason.Valid || restored.BannedAt.Valid {
		t.Errorf("Expected ban metadata cleared, got %+v", restored)
	}
}

func TestBanUserMissingBanner(t *testing.T) {
	s := newTestService(t)
	target := seedUser(t, s, "target")

	err := s.BanUser(s.DB(), target.UserID, 9999, "spam")
	if !errors.Is(err, ErrForeignKey) {
		t.Fatalf("Expected ErrForeignKey for missing banned_by user, got %v", err)
	}
}

func TestDeleteUserNullsBannedBy(t *testing.T) {
	s := newTestService(t)
	admin := seedUser(t, s, "admin")
	target := seedUser(t, s, "target")

	if err := s.BanUser(s.DB(), target.UserID, admin.UserID, "spam"); err != nil {
		t.Fatalf("BanUser failed: %v", err)
	}
	if err := s.DeleteUser(s.DB(), admin.UserID); err != nil {
		t.Fatalf("DeleteUser failed: %v", err)
	}

	banned, err := s.GetUserByID(s.DB(), target.UserID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if banned.BannedBy.Valid {
		t.Errorf("Expected banned_by nulled after banner deletion, got %+v", banned.BannedBy)
	}
	if banned.Status != "banned" {
		t.Errorf("Expected target to stay banned, got %s", banned.Status)
	}
}

func TestUpdateUserProfile(t *testing.T) {
	s := newTestService(t)
	alice := seedUser(t, s, "alice")
	seedUser(t, s, "bob")

	loc := "Wellington"
	updated, err := s.UpdateUserProfile(s.DB(), alice.UserID, UserProfileUpdate{Location: &loc})
	if err != nil {
		t.Fatalf("UpdateUserProfile failed: %v", err)
	}
	if !updated.Location.Valid || updated.Location.String != "Wellington" {
		t.Errorf("Expected location Wellington, got %+v", updated.Location)
	}

	taken := "bob"
	if _, err := s.UpdateUserProfile(s.DB(), alice.UserID, UserProfileUpdate{Username: &taken}); !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("Expected ErrDuplicateKey for taken username, got %v", err)
	}
}

func TestGetUserByIDNotFound(t *testing.T) {
	s := newTestService(t)

	if _, err := s.GetUserByID(s.DB(), 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}
