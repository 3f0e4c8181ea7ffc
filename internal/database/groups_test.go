package database

import (
	"database/sql"
	"errors"
	"testing"
)

func TestCreateGroupEnrollsCreatorAsManager(t *testing.T) {
	s := newTestService(t)
	alice := seedUser(t, s, "alice")
	group := seedGroup(t, s, "Trail Crew", alice.UserID)

	gm, err := s.GetGroupMembership(s.DB(), group.GroupID, alice.UserID)
	if err != nil {
		t.Fatalf("GetGroupMembership failed: %v", err)
	}
	if gm.GroupRole != "manager" || gm.Status != "active" {
		t.Errorf("Expected active manager membership, got role=%s status=%s", gm.GroupRole, gm.Status)
	}
}

func TestCreateGroupConstraints(t *testing.T) {
	s := newTestService(t)
	alice := seedUser(t, s, "alice")

	err := s.WriteTx(func(tx *sql.Tx) error {
		_, err := s.CreateGroup(tx, NewGroupParams{Name: "G", GroupType: "sporty", CreatedBy: alice.UserID})
		return err
	})
	if !errors.Is(err, ErrInvalidEnum) {
		t.Fatalf("Expected ErrInvalidEnum for bad group_type, got %v", err)
	}

	err = s.WriteTx(func(tx *sql.Tx) error {
		_, err := s.CreateGroup(tx, NewGroupParams{Name: "G", MaxMembers: nullInt(0), CreatedBy: alice.UserID})
		return err
	})
	if !errors.Is(err, ErrConstraint) {
		t.Fatalf("Expected ErrConstraint for max_members=0, got %v", err)
	}

	err = s.WriteTx(func(tx *sql.Tx) error {
		_, err := s.CreateGroup(tx, NewGroupParams{Name: "G", CreatedBy: 9999})
		return err
	})
	if !errors.Is(err, ErrForeignKey) {
		t.Fatalf("Expected ErrForeignKey for missing creator, got %v", err)
	}
}

func TestDuplicateGroupMembership(t *testing.T) {
	s := newTestService(t)
	alice := seedUser(t, s, "alice")
	bob := seedUser(t, s, "bob")
	group := seedGroup(t, s, "Trail Crew", alice.UserID)

	if _, err := s.AddGroupMember(s.DB(), group.GroupID, bob.UserID, "member"); err != nil {
		t.Fatalf("AddGroupMember failed: %v", err)
	}
	if _, err := s.AddGroupMember(s.DB(), group.GroupID, bob.UserID, "member"); !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("Expected ErrDuplicateKey for second membership, got %v", err)
	}
}

func TestGroupMaxMembersCapacity(t *testing.T) {
	s := newTestService(t)
	alice := seedUser(t, s, "alice")
	bob := seedUser(t, s, "bob")
	carol := seedUser(t, s, "carol")

	var group *Group
	err := s.WriteTx(func(tx *sql.Tx) error {
		var err error
		group, err = s.CreateGroup(tx, NewGroupParams{
			Name:       "Tiny Club",
			GroupType:  "social",
			IsPublic:   true,
			MaxMembers: nullInt(2),
			CreatedBy:  alice.UserID,
		})
		return err
	})
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	if err := s.ApproveGroup(s.DB(), group.GroupID); err != nil {
		t.Fatalf("ApproveGroup failed: %v", err)
	}

	// The creator holds the first slot; bob takes the second.
	if _, err := s.AddGroupMember(s.DB(), group.GroupID, bob.UserID, "member"); err != nil {
		t.Fatalf("AddGroupMember for bob failed: %v", err)
	}
	if _, err := s.AddGroupMember(s.DB(), group.GroupID, carol.UserID, "member"); !errors.Is(err, ErrConstraint) {
		t.Fatalf("Expected ErrConstraint for full group, got %v", err)
	}

	// A departure frees the slot.
	if err := s.LeaveGroup(s.DB(), group.GroupID, bob.UserID); err != nil {
		t.Fatalf("LeaveGroup failed: %v", err)
	}
	if _, err := s.AddGroupMember(s.DB(), group.GroupID, carol.UserID, "member"); err != nil {
		t.Fatalf("AddGroupMember after departure failed: %v", err)
	}
}

func TestLeaveAndRejoinGroup(t *testing.T) {
	s := newTestService(t)
	alice := seedUser(t, s, "alice")
	bob := seedUser(t, s, "bob")
	group := seedGroup(t, s, "Trail Crew", alice.UserID)

	if _, err := s.AddGroupMember(s.DB(), group.GroupID, bob.UserID, "member"); err != nil {
		t.Fatalf("AddGroupMember failed: %v", err)
	}
	if err := s.LeaveGroup(s.DB(), group.GroupID, bob.UserID); err != nil {
		t.Fatalf("LeaveGroup failed: %v", err)
	}

	gm, err := s.GetGroupMembership(s.DB(), group.GroupID, bob.UserID)
	if err != nil {
		t.Fatalf("GetGroupMembership failed: %v", err)
	}
	if gm.Status != "left" {
		t.Errorf("Expected status left, got %s", gm.Status)
	}
	if !gm.LeftDate.Valid {
		t.Fatal("Expected left_date to be set")
	}
	if gm.LeftDate.Time.Before(gm.JoinDate) {
		t.Errorf("left_date %v precedes join_date %v", gm.LeftDate.Time, gm.JoinDate)
	}

	// Re-joining reactivates the existing row instead of inserting a second one.
	rejoined, err := s.AddGroupMember(s.DB(), group.GroupID, bob.UserID, "member")
	if err != nil {
		t.Fatalf("Re-join failed: %v", err)
	}
	if rejoined.MembershipID != gm.MembershipID {
		t.Errorf("Expected same membership row on re-join, got %d != %d", rejoined.MembershipID, gm.MembershipID)
	}
	if rejoined.Status != "active" || rejoined.LeftDate.Valid {
		t.Errorf("Expected reactivated membership, got status=%s left=%+v", rejoined.Status, rejoined.LeftDate)
	}
}

func TestGroupApprovalLifecycle(t *testing.T) {
	s := newTestService(t)
	alice := seedUser(t, s, "alice")

	var group *Group
	err := s.WriteTx(func(tx *sql.Tx) error {
		var err error
		group, err = s.CreateGroup(tx, NewGroupParams{Name: "Pending Crew", CreatedBy: alice.UserID})
		return err
	})
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	if group.Status != "pending" {
		t.Fatalf("Expected pending status, got %s", group.Status)
	}

	if err := s.RejectGroup(s.DB(), group.GroupID, "incomplete description"); err != nil {
		t.Fatalf("RejectGroup failed: %v", err)
	}
	rejected, _ := s.GetGroupByID(s.DB(), group.GroupID)
	if rejected.Status != "rejected" || !rejected.RejectionReason.Valid {
		t.Errorf("Expected rejected with reason, got %+v", rejected)
	}

	// Approval only applies to pending groups.
	if err := s.ApproveGroup(s.DB(), group.GroupID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound approving a rejected group, got %v", err)
	}
}

func TestGroupRequestApproveFlow(t *testing.T) {
	s := newTestService(t)
	alice := seedUser(t, s, "alice")
	bob := seedUser(t, s, "bob")
	group := seedGroup(t, s, "Trail Crew", alice.UserID)

	req, err := s.CreateGroupRequest(s.DB(), group.GroupID, bob.UserID, "let me in")
	if err != nil {
		t.Fatalf("CreateGroupRequest failed: %v", err)
	}
	if req.Status != "pending" {
		t.Fatalf("Expected pending request, got %s", req.Status)
	}

	if _, err := s.CreateGroupRequest(s.DB(), group.GroupID, bob.UserID, "again"); !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("Expected ErrDuplicateKey for second outstanding request, got %v", err)
	}

	var gm *GroupMember
	err = s.WriteTx(func(tx *sql.Tx) error {
		var err error
		gm, err = s.ApproveGroupRequest(tx, req.RequestID)
		return err
	})
	if err != nil {
		t.Fatalf("ApproveGroupRequest failed: %v", err)
	}
	if gm.Status != "active" || gm.GroupRole != "member" {
		t.Errorf("Expected active member from approval, got %+v", gm)
	}

	approved, _ := s.GetGroupRequestByID(s.DB(), req.RequestID)
	if approved.Status != "approved" {
		t.Errorf("Expected request approved, got %s", approved.Status)
	}
}

func TestGroupRequestRejectAndReopen(t *testing.T) {
	s := newTestService(t)
	alice := seedUser(t, s, "alice")
	bob := seedUser(t, s, "bob")
	group := seedGroup(t, s, "Trail Crew", alice.UserID)

	req, err := s.CreateGroupRequest(s.DB(), group.GroupID, bob.UserID, "")
	if err != nil {
		t.Fatalf("CreateGroupRequest failed: %v", err)
	}
	if err := s.RejectGroupRequest(s.DB(), req.RequestID, "not yet"); err != nil {
		t.Fatalf("RejectGroupRequest failed: %v", err)
	}

	reopened, err := s.CreateGroupRequest(s.DB(), group.GroupID, bob.UserID, "second try")
	if err != nil {
		t.Fatalf("Re-requesting after rejection failed: %v", err)
	}
	if reopened.RequestID != req.RequestID {
		t.Errorf("Expected rejected request reopened in place, got %d != %d", reopened.RequestID, req.RequestID)
	}
	if reopened.Status != "pending" || reopened.RejectionReason.Valid {
		t.Errorf("Expected clean pending request, got %+v", reopened)
	}
}

func TestDeleteGroupCascades(t *testing.T) {
	s := newTestService(t)
	alice := seedUser(t, s, "alice")
	bob := seedUser(t, s, "bob")
	carol := seedUser(t, s, "carol")
	group := seedGroup(t, s, "Trail Crew", alice.UserID)

	if _, err := s.AddGroupMember(s.DB(), group.GroupID, bob.UserID, "member"); err != nil {
		t.Fatalf("AddGroupMember failed: %v", err)
	}
	if _, err := s.CreateGroupRequest(s.DB(), group.GroupID, carol.UserID, ""); err != nil {
		t.Fatalf("CreateGroupRequest failed: %v", err)
	}
	event := seedEvent(t, s, group.GroupID, "Saturday 5k", "2030-01-01")
	if _, err := s.RegisterForEvent(s.DB(), event.EventID, bob.UserID); err != nil {
		t.Fatalf("RegisterForEvent failed: %v", err)
	}

	if err := s.DeleteGroup(s.DB(), group.GroupID); err != nil {
		t.Fatalf("DeleteGroup failed: %v", err)
	}

	if _, err := s.GetEventByID(s.DB(), event.EventID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected event cascade-deleted, got %v", err)
	}
	if _, err := s.GetGroupMembership(s.DB(), group.GroupID, bob.UserID); err != sql.ErrNoRows {
		t.Errorf("Expected membership cascade-deleted, got %v", err)
	}
	requests, err := s.ListPendingGroupRequests(s.DB(), group.GroupID)
	if err != nil {
		t.Fatalf("ListPendingGroupRequests failed: %v", err)
	}
	if len(requests) != 0 {
		t.Errorf("Expected requests cascade-deleted, got %d", len(requests))
	}
	if _, err := s.GetEventMembership(s.DB(), event.EventID, bob.UserID); err != sql.ErrNoRows {
		t.Errorf("Expected event membership cascade-deleted, got %v", err)
	}
}
