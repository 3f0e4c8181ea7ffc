package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/eventbridgenz/eventbridge/internal/database"
)

type recordResultPayload struct {
	StartTime  string `json:"startTime"`
	FinishTime string `json:"finishTime"`
	Rank       int64  `json:"rank"`
	Method     string `json:"method"`
}

// handleRecordRaceResult stores timing data for an event membership. Only a
// manager of the event's group may record results; recording again replaces
// the earlier row.
func (s *Server) handleRecordRaceResult(w http.ResponseWriter, r *http.Request) {
	userID, err := s.getUserIDFromContext(r)
	if err != nil {
		s.errorJSON(w, err, http.StatusUnauthorized)
		return
	}
	membershipID, err := s.int64URLParam(r, "membershipID")
	if err != nil {
		s.errorJSON(w, err, http.StatusBadRequest)
		return
	}

	member, err := s.db.GetEventMembershipByID(s.db.DB(), membershipID)
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	event, err := s.db.GetEventByID(s.db.DB(), member.EventID)
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	if err := s.requireGroupManager(event.GroupID, userID); err != nil {
		s.errorJSON(w, err, http.StatusForbidden)
		return
	}

	var payload recordResultPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.errorJSON(w, errors.New("bad request: could not decode JSON"), http.StatusBadRequest)
		return
	}

	params := database.NewRaceResultParams{
		MembershipID: membershipID,
		Method:       payload.Method,
		RecordedBy:   sql.NullInt64{Int64: userID, Valid: true},
	}
	if payload.StartTime != "" {
		params.StartTime = sql.NullString{String: payload.StartTime, Valid: true}
	}
	if payload.FinishTime != "" {
		params.FinishTime = sql.NullString{String: payload.FinishTime, Valid: true}
	}
	if payload.Rank != 0 {
		params.RaceRank = sql.NullInt64{Int64: payload.Rank, Valid: true}
	}

	var result *database.RaceResult
	err = s.db.WriteTx(func(tx *sql.Tx) error {
		var recErr error
		result, recErr = s.db.RecordRaceResult(tx, params)
		return recErr
	})
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}

	s.notify(member.UserID, "Race result posted",
		"Your result for '"+event.EventTitle+"' is in.", "event", event.EventID)
	s.writeJSON(w, http.StatusCreated, envelope{"result": toRaceResultResponse(result)})
}

// handleGetEventResults lists results for an event, ranked rows first.
func (s *Server) handleGetEventResults(w http.ResponseWriter, r *http.Request) {
	eventID, err := s.int64URLParam(r, "eventID")
	if err != nil {
		s.errorJSON(w, err, http.StatusBadRequest)
		return
	}

	if _, err := s.db.GetEventByID(s.db.DB(), eventID); err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	results, err := s.db.GetEventResults(s.db.DB(), eventID)
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"results": toRaceResultResponseList(results)})
}

func (s *Server) handleDeleteRaceResult(w http.ResponseWriter, r *http.Request) {
	userID, err := s.getUserIDFromContext(r)
	if err != nil {
		s.errorJSON(w, err, http.StatusUnauthorized)
		return
	}
	membershipID, err := s.int64URLParam(r, "membershipID")
	if err != nil {
		s.errorJSON(w, err, http.StatusBadRequest)
		return
	}

	member, err := s.db.GetEventMembershipByID(s.db.DB(), membershipID)
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	event, err := s.db.GetEventByID(s.db.DB(), member.EventID)
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	if err := s.requireGroupManager(event.GroupID, userID); err != nil {
		s.errorJSON(w, err, http.StatusForbidden)
		return
	}

	err = s.db.WriteTx(func(tx *sql.Tx) error {
		return s.db.DeleteRaceResult(tx, membershipID)
	})
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"message": "race result deleted"})
}
