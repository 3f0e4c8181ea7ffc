package api

import (
	"net/http"

	"github.com/eventbridgenz/eventbridge/internal/database"
)

// UserActivityResponse is the serialized form of a user_activity_summary row.
type UserActivityResponse struct {
	UserID              int64   `json:"userId"`
	Username            string  `json:"username"`
	GroupsJoined        int64   `json:"groupsJoined"`
	GroupsCreated       int64   `json:"groupsCreated"`
	EventsParticipated  int64   `json:"eventsParticipated"`
	VolunteerEvents     int64   `json:"volunteerEvents"`
	TotalVolunteerHours float64 `json:"totalVolunteerHours"`
	EventsAttended      int64   `json:"eventsAttended"`
}

func toUserActivityResponse(sum *database.UserActivitySummary) UserActivityResponse {
	return UserActivityResponse{
		UserID:              sum.UserID,
		Username:            sum.Username,
		GroupsJoined:        sum.GroupsJoined,
		GroupsCreated:       sum.GroupsCreated,
		EventsParticipated:  sum.EventsParticipated,
		VolunteerEvents:     sum.VolunteerEvents,
		TotalVolunteerHours: sum.TotalVolunteerHours,
		EventsAttended:      sum.EventsAttended,
	}
}

// GroupActivityResponse is the serialized form of a group_activity_summary row.
type GroupActivityResponse struct {
	GroupID            int64   `json:"groupId"`
	Name               string  `json:"name"`
	Status             string  `json:"status"`
	ActiveMembers      int64   `json:"activeMembers"`
	TotalEvents        int64   `json:"totalEvents"`
	CompletedEvents    int64   `json:"completedEvents"`
	UpcomingEvents     int64   `json:"upcomingEvents"`
	UniqueParticipants int64   `json:"uniqueParticipants"`
	AvgAttendance      float64 `json:"avgAttendance"`
}

func toGroupActivityResponse(sum *database.GroupActivitySummary) GroupActivityResponse {
	return GroupActivityResponse{
		GroupID:            sum.GroupID,
		Name:               sum.Name,
		Status:             sum.Status,
		ActiveMembers:      sum.ActiveMembers,
		TotalEvents:        sum.TotalEvents,
		CompletedEvents:    sum.CompletedEvents,
		UpcomingEvents:     sum.UpcomingEvents,
		UniqueParticipants: sum.UniqueParticipants,
		AvgAttendance:      sum.AvgAttendance,
	}
}

// handleGetMyActivity returns the caller's own activity rollup.
func (s *Server) handleGetMyActivity(w http.ResponseWriter, r *http.Request) {
	userID, err := s.getUserIDFromContext(r)
	if err != nil {
		s.errorJSON(w, err, http.StatusUnauthorized)
		return
	}

	sum, err := s.db.GetUserActivitySummary(s.db.DB(), userID)
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"activity": toUserActivityResponse(sum)})
}

// handleGetUserActivity returns another user's rollup. Admin-only route.
func (s *Server) handleGetUserActivity(w http.ResponseWriter, r *http.Request) {
	userID, err := s.int64URLParam(r, "userID")
	if err != nil {
		s.errorJSON(w, err, http.StatusBadRequest)
		return
	}

	sum, err := s.db.GetUserActivitySummary(s.db.DB(), userID)
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"activity": toUserActivityResponse(sum)})
}

func (s *Server) handleListUserActivity(w http.ResponseWriter, r *http.Request) {
	sums, err := s.db.ListUserActivitySummaries(s.db.DB())
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	out := make([]UserActivityResponse, 0, len(sums))
	for _, sum := range sums {
		out = append(out, toUserActivityResponse(sum))
	}
	s.writeJSON(w, http.StatusOK, envelope{"activity": out})
}

// handleGetGroupActivity returns a group's engagement rollup.
func (s *Server) handleGetGroupActivity(w http.ResponseWriter, r *http.Request) {
	groupID, err := s.int64URLParam(r, "groupID")
	if err != nil {
		s.errorJSON(w, err, http.StatusBadRequest)
		return
	}

	sum, err := s.db.GetGroupActivitySummary(s.db.DB(), groupID)
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"activity": toGroupActivityResponse(sum)})
}

func (s *Server) handleListGroupActivity(w http.ResponseWriter, r *http.Request) {
	sums, err := s.db.ListGroupActivitySummaries(s.db.DB())
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	out := make([]GroupActivityResponse, 0, len(sums))
	for _, sum := range sums {
		out = append(out, toGroupActivityResponse(sum))
	}
	s.writeJSON(w, http.StatusOK, envelope{"activity": out})
}
