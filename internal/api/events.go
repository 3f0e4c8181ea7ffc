package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/eventbridgenz/eventbridge/internal/database"
)

type createEventPayload struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	EventType       string `json:"eventType"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	Location        string `json:"location"`
	MaxParticipants int64  `json:"maxParticipants"`
}

// handleCreateEvent schedules a new event under a group. Only group managers
// can create events, and only for approved groups.
func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
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

	group, err := s.db.GetGroupByID(s.db.DB(), groupID)
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	if group.Status != "approved" {
		s.errorJSON(w, errors.New("events can only be created in approved groups"), http.StatusUnprocessableEntity)
		return
	}

	var payload createEventPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.errorJSON(w, errors.New("bad request: could not decode JSON"), http.StatusBadRequest)
		return
	}
	if payload.Title == "" || payload.Date == "" {
		s.errorJSON(w, errors.New("title and date are required"), http.StatusBadRequest)
		return
	}

	params := database.NewEventParams{
		GroupID:    groupID,
		EventTitle: payload.Title,
		EventDate:  payload.Date,
	}
	if payload.Description != "" {
		params.Description = sql.NullString{String: payload.Description, Valid: true}
	}
	if payload.EventType != "" {
		params.EventType = sql.NullString{String: payload.EventType, Valid: true}
	}
	if payload.Time != "" {
		params.EventTime = sql.NullString{String: payload.Time, Valid: true}
	}
	if payload.Location != "" {
		params.Location = sql.NullString{String: payload.Location, Valid: true}
	}
	if payload.MaxParticipants != 0 {
		params.MaxParticipants = sql.NullInt64{Int64: payload.MaxParticipants, Valid: true}
	}

	var event *database.Event
	err = s.db.WriteTx(func(tx *sql.Tx) error {
		var createErr error
		event, createErr = s.db.CreateEvent(tx, params)
		return createErr
	})
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}

	// Announce to the group's active members.
	members, mErr := s.db.GetMembersByGroupID(s.db.DB(), groupID)
	if mErr == nil {
		for _, gm := range members {
			if gm.UserID == userID {
				continue
			}
			s.notify(gm.UserID, "New event",
				fmt.Sprintf("'%s' is scheduled for %s.", event.EventTitle, event.EventDate),
				"event", event.EventID)
		}
	}

	s.writeJSON(w, http.StatusCreated, envelope{"event": toEventResponse(event)})
}

func (s *Server) handleGetGroupEvents(w http.ResponseWriter, r *http.Request) {
	groupID, err := s.int64URLParam(r, "groupID")
	if err != nil {
		s.errorJSON(w, err, http.StatusBadRequest)
		return
	}

	events, err := s.db.GetEventsByGroupID(s.db.DB(), groupID)
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"events": toEventResponseList(events)})
}

func (s *Server) handleGetEventDetails(w http.ResponseWriter, r *http.Request) {
	eventID, err := s.int64URLParam(r, "eventID")
	if err != nil {
		s.errorJSON(w, err, http.StatusBadRequest)
		return
	}

	event, err := s.db.GetEventByID(s.db.DB(), eventID)
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	members, err := s.db.GetEventMembers(s.db.DB(), eventID)
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{
		"event":   toEventResponse(event),
		"members": toEventMemberResponseList(members),
	})
}

type updateEventPayload struct {
	Title           *string `json:"title"`
	Description     *string `json:"description"`
	EventType       *string `json:"eventType"`
	Date            *string `json:"date"`
	Time            *string `json:"time"`
	Location        *string `json:"location"`
	MaxParticipants *int64  `json:"maxParticipants"`
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	userID, err := s.getUserIDFromContext(r)
	if err != nil {
		s.errorJSON(w, err, http.StatusUnauthorized)
		return
	}
	eventID, err := s.int64URLParam(r, "eventID")
	if err != nil {
		s.errorJSON(w, err, http.StatusBadRequest)
		return
	}

	event, err := s.db.GetEventByID(s.db.DB(), eventID)
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	if err := s.requireGroupManager(event.GroupID, userID); err != nil {
		s.errorJSON(w, err, http.StatusForbidden)
		return
	}

	var payload updateEventPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.errorJSON(w, errors.New("bad request: could not decode JSON"), http.StatusBadRequest)
		return
	}

	var updated *database.Event
	err = s.db.WriteTx(func(tx *sql.Tx) error {
		var updErr error
		updated, updErr = s.db.UpdateEvent(tx, eventID, database.EventUpdate{
			EventTitle:      payload.Title,
			Description:     payload.Description,
			EventType:       payload.EventType,
			EventDate:       payload.Date,
			EventTime:       payload.Time,
			Location:        payload.Location,
			MaxParticipants: payload.MaxParticipants,
		})
		return updErr
	})
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"event": toEventResponse(updated)})
}

type eventStatusPayload struct {
	Status string `json:"status"`
}

// handleSetEventStatus moves an event through its lifecycle (scheduled,
// completed, cancelled). Registered members are told about cancellations.
func (s *Server) handleSetEventStatus(w http.ResponseWriter, r *http.Request) {
	userID, err := s.getUserIDFromContext(r)
	if err != nil {
		s.errorJSON(w, err, http.StatusUnauthorized)
		return
	}
	eventID, err := s.int64URLParam(r, "eventID")
	if err != nil {
		s.errorJSON(w, err, http.StatusBadRequest)
		return
	}

	event, err := s.db.GetEventByID(s.db.DB(), eventID)
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	if err := s.requireGroupManager(event.GroupID, userID); err != nil {
		s.errorJSON(w, err, http.StatusForbidden)
		return
	}

	var payload eventStatusPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.errorJSON(w, errors.New("bad request: could not decode JSON"), http.StatusBadRequest)
		return
	}

	err = s.db.WriteTx(func(tx *sql.Tx) error {
		return s.db.SetEventStatus(tx, eventID, payload.Status)
	})
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}

	if payload.Status == "cancelled" {
		members, mErr := s.db.GetEventMembers(s.db.DB(), eventID)
		if mErr == nil {
			for _, em := range members {
				if em.ParticipationStatus == "cancelled" {
					continue
				}
				s.notify(em.UserID, "Event cancelled",
					fmt.Sprintf("'%s' on %s has been cancelled.", event.EventTitle, event.EventDate),
					"event", event.EventID)
			}
		}
	}

	s.writeJSON(w, http.StatusOK, envelope{"message": "event status updated"})
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	userID, err := s.getUserIDFromContext(r)
	if err != nil {
		s.errorJSON(w, err, http.StatusUnauthorized)
		return
	}
	eventID, err := s.int64URLParam(r, "eventID")
	if err != nil {
		s.errorJSON(w, err, http.StatusBadRequest)
		return
	}

	event, err := s.db.GetEventByID(s.db.DB(), eventID)
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	if err := s.requireGroupManager(event.GroupID, userID); err != nil {
		s.errorJSON(w, err, http.StatusForbidden)
		return
	}

	err = s.db.WriteTx(func(tx *sql.Tx) error {
		return s.db.DeleteEvent(tx, eventID)
	})
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"message": "event deleted"})
}

// --- Participation ---

// handleRegisterForEvent signs the caller up as a participant.
func (s *Server) handleRegisterForEvent(w http.ResponseWriter, r *http.Request) {
	userID, err := s.getUserIDFromContext(r)
	if err != nil {
		s.errorJSON(w, err, http.StatusUnauthorized)
		return
	}
	eventID, err := s.int64URLParam(r, "eventID")
	if err != nil {
		s.errorJSON(w, err, http.StatusBadRequest)
		return
	}

	var member *database.EventMember
	err = s.db.WriteTx(func(tx *sql.Tx) error {
		var regErr error
		member, regErr = s.db.RegisterForEvent(tx, eventID, userID)
		return regErr
	})
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, envelope{"membership": toEventMemberResponse(member)})
}

// handleCancelRegistration withdraws the caller from an event.
func (s *Server) handleCancelRegistration(w http.ResponseWriter, r *http.Request) {
	userID, err := s.getUserIDFromContext(r)
	if err != nil {
		s.errorJSON(w, err, http.StatusUnauthorized)
		return
	}
	eventID, err := s.int64URLParam(r, "eventID")
	if err != nil {
		s.errorJSON(w, err, http.StatusBadRequest)
		return
	}

	member, err := s.db.GetEventMembership(s.db.DB(), eventID, userID)
	if err != nil {
		s.errorJSON(w, errors.New("you are not registered for this event"), http.StatusNotFound)
		return
	}

	err = s.db.WriteTx(func(tx *sql.Tx) error {
		return s.db.SetParticipationStatus(tx, member.MembershipID, "cancelled")
	})
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"message": "registration cancelled"})
}

type attendancePayload struct {
	Status string `json:"status"`
}

// handleSetAttendance records attended/no_show for a membership after the
// event. Manager-only.
func (s *Server) handleSetAttendance(w http.ResponseWriter, r *http.Request) {
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

	var payload attendancePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.errorJSON(w, errors.New("bad request: could not decode JSON"), http.StatusBadRequest)
		return
	}

	err = s.db.WriteTx(func(tx *sql.Tx) error {
		return s.db.SetParticipationStatus(tx, membershipID, payload.Status)
	})
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"message": "participation status updated"})
}

// --- Volunteers ---

type volunteerPayload struct {
	Responsibility string `json:"responsibility"`
}

// handleVolunteerForEvent signs the caller up in the volunteer role.
func (s *Server) handleVolunteerForEvent(w http.ResponseWriter, r *http.Request) {
	userID, err := s.getUserIDFromContext(r)
	if err != nil {
		s.errorJSON(w, err, http.StatusUnauthorized)
		return
	}
	eventID, err := s.int64URLParam(r, "eventID")
	if err != nil {
		s.errorJSON(w, err, http.StatusBadRequest)
		return
	}

	var payload volunteerPayload
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&payload)
	}

	var member *database.EventMember
	err = s.db.WriteTx(func(tx *sql.Tx) error {
		var volErr error
		member, volErr = s.db.AssignVolunteer(tx, eventID, userID, payload.Responsibility)
		return volErr
	})
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}

	event, eErr := s.db.GetEventByID(s.db.DB(), eventID)
	if eErr == nil {
		s.notify(userID, "Volunteer assignment",
			fmt.Sprintf("You are signed up to volunteer at '%s'.", event.EventTitle),
			"volunteer", event.EventID)
	}

	s.writeJSON(w, http.StatusCreated, envelope{"membership": toEventMemberResponse(member)})
}

type volunteerStatusPayload struct {
	Status string `json:"status"`
}

// handleSetVolunteerStatus lets a volunteer confirm or cancel, and managers
// mark completion.
func (s *Server) handleSetVolunteerStatus(w http.ResponseWriter, r *http.Request) {
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
	if member.UserID != userID {
		event, eErr := s.db.GetEventByID(s.db.DB(), member.EventID)
		if eErr != nil {
			s.dbErrorJSON(w, eErr)
			return
		}
		if err := s.requireGroupManager(event.GroupID, userID); err != nil {
			s.errorJSON(w, err, http.StatusForbidden)
			return
		}
	}

	var payload volunteerStatusPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.errorJSON(w, errors.New("bad request: could not decode JSON"), http.StatusBadRequest)
		return
	}

	err = s.db.WriteTx(func(tx *sql.Tx) error {
		return s.db.SetVolunteerStatus(tx, membershipID, payload.Status)
	})
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"message": "volunteer status updated"})
}

type volunteerHoursPayload struct {
	Hours float64 `json:"hours"`
}

// handleRecordVolunteerHours credits completed volunteer hours. Manager-only.
func (s *Server) handleRecordVolunteerHours(w http.ResponseWriter, r *http.Request) {
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

	var payload volunteerHoursPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.errorJSON(w, errors.New("bad request: could not decode JSON"), http.StatusBadRequest)
		return
	}

	err = s.db.WriteTx(func(tx *sql.Tx) error {
		return s.db.RecordVolunteerHours(tx, membershipID, payload.Hours)
	})
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}

	s.notify(member.UserID, "Volunteer hours recorded",
		fmt.Sprintf("%.1f hours were credited for '%s'. Thank you!", payload.Hours, event.EventTitle),
		"volunteer", event.EventID)
	s.writeJSON(w, http.StatusOK, envelope{"message": "volunteer hours recorded"})
}
