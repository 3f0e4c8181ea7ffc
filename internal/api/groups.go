package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/eventbridgenz/eventbridge/internal/database"
)

type createGroupPayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Location    string `json:"location"`
	GroupType   string `json:"groupType"`
	IsPublic    *bool  `json:"isPublic"`
	MaxMembers  int64  `json:"maxMembers"`
	Draft       bool   `json:"draft"`
}

// handleCreateGroup creates a group owned by the caller. New groups start as
// pending and wait for admin approval, unless saved as a draft.
func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	userID, err := s.getUserIDFromContext(r)
	if err != nil {
		s.errorJSON(w, err, http.StatusUnauthorized)
		return
	}

	var payload createGroupPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.errorJSON(w, errors.New("bad request: could not decode JSON"), http.StatusBadRequest)
		return
	}
	if payload.Name == "" {
		s.errorJSON(w, errors.New("group name is required"), http.StatusBadRequest)
		return
	}

	params := database.NewGroupParams{
		Name:      payload.Name,
		GroupType: payload.GroupType,
		IsPublic:  true,
		CreatedBy: userID,
	}
	if payload.Description != "" {
		params.Description = sql.NullString{String: payload.Description, Valid: true}
	}
	if payload.Location != "" {
		params.GroupLocation = sql.NullString{String: payload.Location, Valid: true}
	}
	if payload.IsPublic != nil {
		params.IsPublic = *payload.IsPublic
	}
	if payload.MaxMembers != 0 {
		params.MaxMembers = sql.NullInt64{Int64: payload.MaxMembers, Valid: true}
	}
	if payload.Draft {
		params.Status = "draft"
	}

	var group *database.Group
	err = s.db.WriteTx(func(tx *sql.Tx) error {
		var createErr error
		group, createErr = s.db.CreateGroup(tx, params)
		if createErr != nil {
			return createErr
		}
		// Snapshot the founding member list.
		creator, getErr := s.db.GetUserByID(tx, userID)
		if getErr != nil {
			return getErr
		}
		return s.db.SetGroupFirstMembers(tx, group.GroupID, creator.Username)
	})
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, envelope{"group": toGroupResponse(group)})
}

// handleListGroups returns approved public groups for browsing.
func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.db.ListGroups(s.db.DB(), "approved", true)
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"groups": toGroupResponseList(groups)})
}

// handleGetMyGroups returns the groups the caller actively belongs to.
func (s *Server) handleGetMyGroups(w http.ResponseWriter, r *http.Request) {
	userID, err := s.getUserIDFromContext(r)
	if err != nil {
		s.errorJSON(w, err, http.StatusUnauthorized)
		return
	}

	groups, err := s.db.GetGroupsByUserID(s.db.DB(), userID)
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"groups": toGroupResponseList(groups)})
}

func (s *Server) handleGetGroupDetails(w http.ResponseWriter, r *http.Request) {
	groupID, err := s.int64URLParam(r, "groupID")
	if err != nil {
		s.errorJSON(w, err, http.StatusBadRequest)
		return
	}

	group, err := s.db.GetGroupByID(s.db.DB(), groupID)
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"group": toGroupResponse(group)})
}

type updateGroupPayload struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Location    *string `json:"location"`
	GroupType   *string `json:"groupType"`
	IsPublic    *bool   `json:"isPublic"`
	MaxMembers  *int64  `json:"maxMembers"`
}

func (s *Server) handleUpdateGroup(w http.ResponseWriter, r *http.Request) {
	userID, err := s.getUserIDFromContext(r)
	if err != nil {
		s.errorJSON(w, err, http.StatusUnauthorized)
		return
	}
	groupID, err := s.int64URLParam(r, "groupID")
	if err != nil {
		s.errorJSON(w, err, http.StatusBadRequest)
		return
	}
	if err := s.requireGroupManager(groupID, userID); err != nil {
		s.errorJSON(w, err, http.StatusForbidden)
		return
	}

	var payload updateGroupPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.errorJSON(w, errors.New("bad request: could not decode JSON"), http.StatusBadRequest)
		return
	}

	var group *database.Group
	err = s.db.WriteTx(func(tx *sql.Tx) error {
		var updErr error
		group, updErr = s.db.UpdateGroup(tx, groupID, database.GroupUpdate{
			Name:          payload.Name,
			Description:   payload.Description,
			GroupLocation: payload.Location,
			GroupType:     payload.GroupType,
			IsPublic:      payload.IsPublic,
			MaxMembers:    payload.MaxMembers,
		})
		return updErr
	})
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"group": toGroupResponse(group)})
}

// handleSubmitGroup moves a draft group into the pending review queue.
func (s *Server) handleSubmitGroup(w http.ResponseWriter, r *http.Request) {
	userID, err := s.getUserIDFromContext(r)
	if err != nil {
		s.errorJSON(w, err, http.StatusUnauthorized)
		return
	}
	groupID, err := s.int64URLParam(r, "groupID")
	if err != nil {
		s.errorJSON(w, err, http.StatusBadRequest)
		return
	}

	group, err := s.db.GetGroupByID(s.db.DB(), groupID)
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	if group.CreatedBy != userID {
		s.errorJSON(w, errors.New("only the group creator can submit it for review"), http.StatusForbidden)
		return
	}
	if group.Status != "draft" && group.Status != "rejected" {
		s.errorJSON(w, errors.New("only draft or rejected groups can be submitted"), http.StatusUnprocessableEntity)
		return
	}

	err = s.db.WriteTx(func(tx *sql.Tx) error {
		return s.db.SetGroupStatus(tx, groupID, "pending")
	})
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"message": "group submitted for review"})
}

func (s *Server) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	userID, err := s.getUserIDFromContext(r)
	if err != nil {
		s.errorJSON(w, err, http.StatusUnauthorized)
		return
	}
	groupID, err := s.int64URLParam(r, "groupID")
	if err != nil {
		s.errorJSON(w, err, http.StatusBadRequest)
		return
	}

	group, err := s.db.GetGroupByID(s.db.DB(), groupID)
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	role, _ := r.Context().Value(roleContextKey).(string)
	if group.CreatedBy != userID && role != "super_admin" {
		s.errorJSON(w, errors.New("only the group creator or an admin can delete a group"), http.StatusForbidden)
		return
	}

	err = s.db.WriteTx(func(tx *sql.Tx) error {
		return s.db.DeleteGroup(tx, groupID)
	})
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"message": "group deleted"})
}

// --- Admin review ---

// handleListPendingGroups returns the admin review queue.
func (s *Server) handleListPendingGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.db.ListGroups(s.db.DB(), "pending", false)
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"groups": toGroupResponseList(groups)})
}

func (s *Server) handleApproveGroup(w http.ResponseWriter, r *http.Request) {
	groupID, err := s.int64URLParam(r, "groupID")
	if err != nil {
		s.errorJSON(w, err, http.StatusBadRequest)
		return
	}

	err = s.db.WriteTx(func(tx *sql.Tx) error {
		return s.db.ApproveGroup(tx, groupID)
	})
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}

	s.notifyGroupDecision(groupID, true, "")
	s.writeJSON(w, http.StatusOK, envelope{"message": "group approved"})
}

type rejectPayload struct {
	Reason string `json:"reason"`
}

func (s *Server) handleRejectGroup(w http.ResponseWriter, r *http.Request) {
	groupID, err := s.int64URLParam(r, "groupID")
	if err != nil {
		s.errorJSON(w, err, http.StatusBadRequest)
		return
	}

	var payload rejectPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.errorJSON(w, errors.New("bad request: could not decode JSON"), http.StatusBadRequest)
		return
	}
	if payload.Reason == "" {
		s.errorJSON(w, errors.New("a rejection reason is required"), http.StatusBadRequest)
		return
	}

	err = s.db.WriteTx(func(tx *sql.Tx) error {
		return s.db.RejectGroup(tx, groupID, payload.Reason)
	})
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}

	s.notifyGroupDecision(groupID, false, payload.Reason)
	s.writeJSON(w, http.StatusOK, envelope{"message": "group rejected"})
}

// notifyGroupDecision tells the group creator about the review outcome, both
// in-app and by email.
func (s *Server) notifyGroupDecision(groupID int64, approved bool, reason string) {
	group, err := s.db.GetGroupByID(s.db.DB(), groupID)
	if err != nil {
		log.Printf("ERROR: could not load group %d for decision notification: %v", groupID, err)
		return
	}
	creator, err := s.db.GetUserByID(s.db.DB(), group.CreatedBy)
	if err != nil {
		log.Printf("ERROR: could not load creator of group %d: %v", groupID, err)
		return
	}

	if approved {
		s.notify(creator.UserID, "Group approved",
			fmt.Sprintf("Your group '%s' has been approved and is now live.", group.Name),
			"group", group.GroupID)
	} else {
		s.notify(creator.UserID, "Group rejected",
			fmt.Sprintf("Your group '%s' was not approved: %s", group.Name, reason),
			"group", group.GroupID)
	}

	go func() {
		if err := s.email.SendGroupDecisionEmail(creator.Email, group.Name, approved, reason, s.config.FrontendURL); err != nil {
			log.Printf("WARN: could not send group decision email to %s: %v", creator.Email, err)
		}
	}()
}

// --- Members ---

func (s *Server) handleGetGroupMembers(w http.ResponseWriter, r *http.Request) {
	groupID, err := s.int64URLParam(r, "groupID")
	if err != nil {
		s.errorJSON(w, err, http.StatusBadRequest)
		return
	}

	members, err := s.db.GetMembersByGroupID(s.db.DB(), groupID)
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"members": toGroupMemberResponseList(members)})
}

// handleLeaveGroup marks the caller's membership as left.
func (s *Server) handleLeaveGroup(w http.ResponseWriter, r *http.Request) {
	userID, err := s.getUserIDFromContext(r)
	if err != nil {
		s.errorJSON(w, err, http.StatusUnauthorized)
		return
	}
	groupID, err := s.int64URLParam(r, "groupID")
	if err != nil {
		s.errorJSON(w, err, http.StatusBadRequest)
		return
	}

	group, err := s.db.GetGroupByID(s.db.DB(), groupID)
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	if group.CreatedBy == userID {
		s.errorJSON(w, errors.New("the group creator cannot leave; delete the group instead"), http.StatusUnprocessableEntity)
		return
	}

	err = s.db.WriteTx(func(tx *sql.Tx) error {
		return s.db.LeaveGroup(tx, groupID, userID)
	})
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"message": "left group"})
}

type memberRolePayload struct {
	Role string `json:"role"`
}

func (s *Server) handleSetGroupMemberRole(w http.ResponseWriter, r *http.Request) {
	userID, err := s.getUserIDFromContext(r)
	if err != nil {
		s.errorJSON(w, err, http.StatusUnauthorized)
		return
	}
	groupID, err := s.int64URLParam(r, "groupID")
	if err != nil {
		s.errorJSON(w, err, http.StatusBadRequest)
		return
	}
	memberID, err := s.int64URLParam(r, "memberID")
	if err != nil {
		s.errorJSON(w, err, http.StatusBadRequest)
		return
	}
	if err := s.requireGroupManager(groupID, userID); err != nil {
		s.errorJSON(w, err, http.StatusForbidden)
		return
	}

	var payload memberRolePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.errorJSON(w, errors.New("bad request: could not decode JSON"), http.StatusBadRequest)
		return
	}

	err = s.db.WriteTx(func(tx *sql.Tx) error {
		return s.db.SetGroupMemberRole(tx, groupID, memberID, payload.Role)
	})
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"message": "member role updated"})
}

// requireGroupManager checks that the user is an active manager of the group.
func (s *Server) requireGroupManager(groupID, userID int64) error {
	gm, err := s.db.GetGroupMembership(s.db.DB(), groupID, userID)
	if err != nil {
		return errors.New("you must be a manager of this group")
	}
	if gm.Status != "active" || gm.GroupRole != "manager" {
		return errors.New("you must be a manager of this group")
	}
	return nil
}

// handleJoinGroup enrolls the caller directly into a public group. Private
// groups go through the join-request flow instead.
func (s *Server) handleJoinGroup(w http.ResponseWriter, r *http.Request) {
	userID, err := s.getUserIDFromContext(r)
	if err != nil {
		s.errorJSON(w, err, http.StatusUnauthorized)
		return
	}
	groupID, err := s.int64URLParam(r, "groupID")
	if err != nil {
		s.errorJSON(w, err, http.StatusBadRequest)
		return
	}

	group, err := s.db.GetGroupByID(s.db.DB(), groupID)
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	if group.Status != "approved" {
		s.errorJSON(w, errors.New("this group is not accepting members"), http.StatusUnprocessableEntity)
		return
	}
	if !group.IsPublic {
		s.errorJSON(w, errors.New("this group is private; submit a join request instead"), http.StatusUnprocessableEntity)
		return
	}

	var member *database.GroupMember
	err = s.db.WriteTx(func(tx *sql.Tx) error {
		var joinErr error
		member, joinErr = s.db.AddGroupMember(tx, groupID, userID, "member")
		return joinErr
	})
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, envelope{"member": toGroupMemberResponse(member)})
}

// handleDeactivateGroup retires a group without deleting its history.
func (s *Server) handleDeactivateGroup(w http.ResponseWriter, r *http.Request) {
	userID, err := s.getUserIDFromContext(r)
	if err != nil {
		s.errorJSON(w, err, http.StatusUnauthorized)
		return
	}
	groupID, err := s.int64URLParam(r, "groupID")
	if err != nil {
		s.errorJSON(w, err, http.StatusBadRequest)
		return
	}

	group, err := s.db.GetGroupByID(s.db.DB(), groupID)
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	role, _ := r.Context().Value(roleContextKey).(string)
	if group.CreatedBy != userID && role != "super_admin" {
		s.errorJSON(w, errors.New("only the group creator or an admin can deactivate a group"), http.StatusForbidden)
		return
	}

	err = s.db.WriteTx(func(tx *sql.Tx) error {
		return s.db.SetGroupStatus(tx, groupID, "inactive")
	})
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"message": "group deactivated"})
}

// --- Join requests ---

type joinRequestPayload struct {
	Message string `json:"message"`
}

// handleCreateGroupRequest lets a user ask to join an approved group.
func (s *Server) handleCreateGroupRequest(w http.ResponseWriter, r *http.Request) {
	userID, err := s.getUserIDFromContext(r)
	if err != nil {
		s.errorJSON(w, err, http.StatusUnauthorized)
		return
	}
	groupID, err := s.int64URLParam(r, "groupID")
	if err != nil {
		s.errorJSON(w, err, http.StatusBadRequest)
		return
	}

	var payload joinRequestPayload
	if r.Body != nil {
		// The message is optional; an empty body is fine.
		_ = json.NewDecoder(r.Body).Decode(&payload)
	}

	group, err := s.db.GetGroupByID(s.db.DB(), groupID)
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	if group.Status != "approved" {
		s.errorJSON(w, errors.New("this group is not accepting members"), http.StatusUnprocessableEntity)
		return
	}

	var request *database.GroupRequest
	err = s.db.WriteTx(func(tx *sql.Tx) error {
		var reqErr error
		request, reqErr = s.db.CreateGroupRequest(tx, groupID, userID, payload.Message)
		return reqErr
	})
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}

	// Let the managers know someone is waiting.
	members, err := s.db.GetMembersByGroupID(s.db.DB(), groupID)
	if err == nil {
		for _, gm := range members {
			if gm.GroupRole == "manager" {
				s.notify(gm.UserID, "New join request",
					fmt.Sprintf("Someone asked to join '%s'.", group.Name),
					"group", group.GroupID)
			}
		}
	}

	s.writeJSON(w, http.StatusCreated, envelope{"request": toGroupRequestResponse(request)})
}

func (s *Server) handleListGroupRequests(w http.ResponseWriter, r *http.Request) {
	userID, err := s.getUserIDFromContext(r)
	if err != nil {
		s.errorJSON(w, err, http.StatusUnauthorized)
		return
	}
	groupID, err := s.int64URLParam(r, "groupID")
	if err != nil {
		s.errorJSON(w, err, http.StatusBadRequest)
		return
	}
	if err := s.requireGroupManager(groupID, userID); err != nil {
		s.errorJSON(w, err, http.StatusForbidden)
		return
	}

	requests, err := s.db.ListPendingGroupRequests(s.db.DB(), groupID)
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"requests": toGroupRequestResponseList(requests)})
}

func (s *Server) handleApproveGroupRequest(w http.ResponseWriter, r *http.Request) {
	userID, err := s.getUserIDFromContext(r)
	if err != nil {
		s.errorJSON(w, err, http.StatusUnauthorized)
		return
	}
	groupID, err := s.int64URLParam(r, "groupID")
	if err != nil {
		s.errorJSON(w, err, http.StatusBadRequest)
		return
	}
	requestID, err := s.int64URLParam(r, "requestID")
	if err != nil {
		s.errorJSON(w, err, http.StatusBadRequest)
		return
	}
	if err := s.requireGroupManager(groupID, userID); err != nil {
		s.errorJSON(w, err, http.StatusForbidden)
		return
	}

	// The request must belong to the group the caller manages.
	request, err := s.db.GetGroupRequestByID(s.db.DB(), requestID)
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	if request.GroupID != groupID {
		s.errorJSON(w, errors.New("join request not found in this group"), http.StatusNotFound)
		return
	}

	var member *database.GroupMember
	err = s.db.WriteTx(func(tx *sql.Tx) error {
		var appErr error
		member, appErr = s.db.ApproveGroupRequest(tx, requestID)
		return appErr
	})
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}

	group, gErr := s.db.GetGroupByID(s.db.DB(), groupID)
	if gErr == nil {
		s.notify(member.UserID, "Request approved",
			fmt.Sprintf("You are now a member of '%s'.", group.Name),
			"group", group.GroupID)
	}

	s.writeJSON(w, http.StatusOK, envelope{"member": toGroupMemberResponse(member)})
}

func (s *Server) handleRejectGroupRequest(w http.ResponseWriter, r *http.Request) {
	userID, err := s.getUserIDFromContext(r)
	if err != nil {
		s.errorJSON(w, err, http.StatusUnauthorized)
		return
	}
	groupID, err := s.int64URLParam(r, "groupID")
	if err != nil {
		s.errorJSON(w, err, http.StatusBadRequest)
		return
	}
	requestID, err := s.int64URLParam(r, "requestID")
	if err != nil {
		s.errorJSON(w, err, http.StatusBadRequest)
		return
	}
	if err := s.requireGroupManager(groupID, userID); err != nil {
		s.errorJSON(w, err, http.StatusForbidden)
		return
	}

	var payload rejectPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.errorJSON(w, errors.New("bad request: could not decode JSON"), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(payload.Reason) == "" {
		s.errorJSON(w, errors.New("a rejection reason is required"), http.StatusBadRequest)
		return
	}

	request, err := s.db.GetGroupRequestByID(s.db.DB(), requestID)
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	if request.GroupID != groupID {
		s.errorJSON(w, errors.New("join request not found in this group"), http.StatusNotFound)
		return
	}

	err = s.db.WriteTx(func(tx *sql.Tx) error {
		return s.db.RejectGroupRequest(tx, requestID, payload.Reason)
	})
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}

	s.notify(request.UserID, "Request declined",
		"Your join request was declined: "+payload.Reason,
		"group", groupID)
	s.writeJSON(w, http.StatusOK, envelope{"message": "request rejected"})
}
