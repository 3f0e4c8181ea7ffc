package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/eventbridgenz/eventbridge/internal/database"
)

type createHelpRequestPayload struct {
	Category    string `json:"category"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

// handleCreateHelpRequest opens a new support ticket for the caller.
func (s *Server) handleCreateHelpRequest(w http.ResponseWriter, r *http.Request) {
	userID, err := s.getUserIDFromContext(r)
	if err != nil {
		s.errorJSON(w, err, http.StatusUnauthorized)
		return
	}

	var payload createHelpRequestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.errorJSON(w, errors.New("bad request: could not decode JSON"), http.StatusBadRequest)
		return
	}
	if payload.Category == "" || payload.Title == "" || payload.Description == "" {
		s.errorJSON(w, errors.New("category, title and description are required"), http.StatusBadRequest)
		return
	}

	var request *database.HelpRequest
	err = s.db.WriteTx(func(tx *sql.Tx) error {
		var createErr error
		request, createErr = s.db.CreateHelpRequest(tx, database.NewHelpRequestParams{
			UserID:      userID,
			Category:    payload.Category,
			Title:       payload.Title,
			Description: payload.Description,
			Priority:    payload.Priority,
		})
		return createErr
	})
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, envelope{"request": toHelpRequestResponse(request)})
}

// handleGetMyHelpRequests lists the caller's tickets, newest first.
func (s *Server) handleGetMyHelpRequests(w http.ResponseWriter, r *http.Request) {
	userID, err := s.getUserIDFromContext(r)
	if err != nil {
		s.errorJSON(w, err, http.StatusUnauthorized)
		return
	}

	requests, err := s.db.GetHelpRequestsByUserID(s.db.DB(), userID)
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"requests": toHelpRequestResponseList(requests)})
}

// handleListHelpRequests is the technician queue, ordered urgent-first.
// Filter with ?status=.
func (s *Server) handleListHelpRequests(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	requests, err := s.db.ListHelpRequests(s.db.DB(), status)
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"requests": toHelpRequestResponseList(requests)})
}

func (s *Server) handleGetHelpRequestDetails(w http.ResponseWriter, r *http.Request) {
	userID, err := s.getUserIDFromContext(r)
	if err != nil {
		s.errorJSON(w, err, http.StatusUnauthorized)
		return
	}
	requestID, err := s.int64URLParam(r, "requestID")
	if err != nil {
		s.errorJSON(w, err, http.StatusBadRequest)
		return
	}

	request, err := s.db.GetHelpRequestByID(s.db.DB(), requestID)
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	if request.UserID != userID && !s.isSupportStaff(r) {
		s.errorJSON(w, errors.New("insufficient permissions"), http.StatusForbidden)
		return
	}

	replies, err := s.db.GetHelpReplies(s.db.DB(), requestID)
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{
		"request": toHelpRequestResponse(request),
		"replies": toHelpReplyResponseList(replies),
	})
}

// handleAssignHelpRequest claims a new ticket for the calling technician.
func (s *Server) handleAssignHelpRequest(w http.ResponseWriter, r *http.Request) {
	userID, err := s.getUserIDFromContext(r)
	if err != nil {
		s.errorJSON(w, err, http.StatusUnauthorized)
		return
	}
	requestID, err := s.int64URLParam(r, "requestID")
	if err != nil {
		s.errorJSON(w, err, http.StatusBadRequest)
		return
	}

	err = s.db.WriteTx(func(tx *sql.Tx) error {
		return s.db.AssignHelpRequest(tx, requestID, userID)
	})
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}

	request, rErr := s.db.GetHelpRequestByID(s.db.DB(), requestID)
	if rErr == nil {
		s.notify(request.UserID, "Ticket assigned",
			"A support technician is now looking at '"+request.Title+"'.",
			"system", requestID)
	}
	s.writeJSON(w, http.StatusOK, envelope{"message": "help request assigned"})
}

type helpStatusPayload struct {
	Status string `json:"status"`
}

func (s *Server) handleSetHelpRequestStatus(w http.ResponseWriter, r *http.Request) {
	requestID, err := s.int64URLParam(r, "requestID")
	if err != nil {
		s.errorJSON(w, err, http.StatusBadRequest)
		return
	}

	var payload helpStatusPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.errorJSON(w, errors.New("bad request: could not decode JSON"), http.StatusBadRequest)
		return
	}

	err = s.db.WriteTx(func(tx *sql.Tx) error {
		return s.db.SetHelpRequestStatus(tx, requestID, payload.Status)
	})
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}

	request, rErr := s.db.GetHelpRequestByID(s.db.DB(), requestID)
	if rErr == nil {
		s.notify(request.UserID, "Ticket updated",
			"'"+request.Title+"' is now "+payload.Status+".",
			"system", requestID)
	}
	s.writeJSON(w, http.StatusOK, envelope{"message": "help request status updated"})
}

type helpPriorityPayload struct {
	Priority string `json:"priority"`
}

func (s *Server) handleSetHelpRequestPriority(w http.ResponseWriter, r *http.Request) {
	requestID, err := s.int64URLParam(r, "requestID")
	if err != nil {
		s.errorJSON(w, err, http.StatusBadRequest)
		return
	}

	var payload helpPriorityPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.errorJSON(w, errors.New("bad request: could not decode JSON"), http.StatusBadRequest)
		return
	}

	err = s.db.WriteTx(func(tx *sql.Tx) error {
		return s.db.SetHelpRequestPriority(tx, requestID, payload.Priority)
	})
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"message": "help request priority updated"})
}

type helpReplyPayload struct {
	Content string `json:"content"`
}

// handleCreateHelpReply posts a message on a ticket's thread. The requester
// and support staff may reply; each side is notified of the other's messages.
func (s *Server) handleCreateHelpReply(w http.ResponseWriter, r *http.Request) {
	userID, err := s.getUserIDFromContext(r)
	if err != nil {
		s.errorJSON(w, err, http.StatusUnauthorized)
		return
	}
	requestID, err := s.int64URLParam(r, "requestID")
	if err != nil {
		s.errorJSON(w, err, http.StatusBadRequest)
		return
	}

	request, err := s.db.GetHelpRequestByID(s.db.DB(), requestID)
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	isRequester := request.UserID == userID
	if !isRequester && !s.isSupportStaff(r) {
		s.errorJSON(w, errors.New("insufficient permissions"), http.StatusForbidden)
		return
	}

	var payload helpReplyPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.errorJSON(w, errors.New("bad request: could not decode JSON"), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(payload.Content) == "" {
		s.errorJSON(w, errors.New("content is required"), http.StatusBadRequest)
		return
	}

	var reply *database.HelpReply
	err = s.db.WriteTx(func(tx *sql.Tx) error {
		var replyErr error
		reply, replyErr = s.db.CreateHelpReply(tx, requestID, userID, payload.Content)
		if replyErr != nil {
			return replyErr
		}
		// A staff reply parks the ticket on the requester; a requester reply
		// hands it back to the technician.
		if !isRequester && request.Status == "assigned" {
			return s.db.SetHelpRequestStatus(tx, requestID, "blocked")
		}
		if isRequester && request.Status == "blocked" {
			return s.db.SetHelpRequestStatus(tx, requestID, "assigned")
		}
		return nil
	})
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}

	if isRequester {
		if request.AssignedTo.Valid {
			s.notify(request.AssignedTo.Int64, "New reply",
				"New message on '"+request.Title+"'.", "system", requestID)
		}
	} else {
		s.notify(request.UserID, "New reply",
			"Support replied on '"+request.Title+"'.", "system", requestID)
	}
	s.writeJSON(w, http.StatusCreated, envelope{"reply": toHelpReplyResponse(reply)})
}

// isSupportStaff reports whether the request context carries a helpdesk role.
func (s *Server) isSupportStaff(r *http.Request) bool {
	role, ok := r.Context().Value(roleContextKey).(string)
	if !ok {
		return false
	}
	return role == "support_technician" || role == "super_admin"
}
