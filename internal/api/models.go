package api

import (
	"database/sql"
	"time"

	"github.com/eventbridgenz/eventbridge/internal/database"
)

func strPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func intPtr(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	return &ni.Int64
}

func floatPtr(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	return &nf.Float64
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	return &nt.Time
}

// UserResponse is the DTO for a user profile. The password hash and ban
// metadata never leave the server through it.
type UserResponse struct {
	ID                   int64     `json:"id"`
	Username             string    `json:"username"`
	Email                string    `json:"email"`
	FirstName            string    `json:"firstName"`
	LastName             string    `json:"lastName"`
	Location             *string   `json:"location"`
	ProfileImage         *string   `json:"profileImage"`
	Biography            *string   `json:"biography"`
	PlatformRole         string    `json:"platformRole"`
	Status               string    `json:"status"`
	NotificationsEnabled bool      `json:"notificationsEnabled"`
	CreatedAt            time.Time `json:"createdAt"`
}

func toUserResponse(user *database.User) UserResponse {
	return UserResponse{
		ID:                   user.UserID,
		Username:             user.Username,
		Email:                user.Email,
		FirstName:            user.FirstName,
		LastName:             user.LastName,
		Location:             strPtr(user.Location),
		ProfileImage:         strPtr(user.ProfileImage),
		Biography:            strPtr(user.Biography),
		PlatformRole:         user.PlatformRole,
		Status:               user.Status,
		NotificationsEnabled: user.NotificationsEnabled,
		CreatedAt:            user.CreatedAt,
	}
}

func toUserResponseList(users []*database.User) []UserResponse {
	responseList := make([]UserResponse, len(users))
	for i, user := range users {
		responseList[i] = toUserResponse(user)
	}
	return responseList
}

// GroupResponse is the DTO for a group.
type GroupResponse struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Description     *string   `json:"description"`
	Location        *string   `json:"location"`
	GroupType       string    `json:"groupType"`
	IsPublic        bool      `json:"isPublic"`
	MaxMembers      *int64    `json:"maxMembers"`
	Status          string    `json:"status"`
	RejectionReason *string   `json:"rejectionReason"`
	CreatedBy       int64     `json:"createdBy"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func toGroupResponse(g *database.Group) GroupResponse {
	return GroupResponse{
		ID:              g.GroupID,
		Name:            g.Name,
		Description:     strPtr(g.Description),
		Location:        strPtr(g.GroupLocation),
		GroupType:       g.GroupType,
		IsPublic:        g.IsPublic,
		MaxMembers:      intPtr(g.MaxMembers),
		Status:          g.Status,
		RejectionReason: strPtr(g.RejectionReason),
		CreatedBy:       g.CreatedBy,
		CreatedAt:       g.CreatedAt,
		UpdatedAt:       g.UpdatedAt,
	}
}

func toGroupResponseList(groups []*database.Group) []GroupResponse {
	responseList := make([]GroupResponse, len(groups))
	for i, g := range groups {
		responseList[i] = toGroupResponse(g)
	}
	return responseList
}

// GroupMemberResponse is the DTO for a group membership row.
type GroupMemberResponse struct {
	MembershipID int64      `json:"membershipId"`
	UserID       int64      `json:"userId"`
	GroupID      int64      `json:"groupId"`
	Role         string     `json:"role"`
	Status       string     `json:"status"`
	JoinDate     time.Time  `json:"joinDate"`
	LeftDate     *time.Time `json:"leftDate"`
}

func toGroupMemberResponse(gm *database.GroupMember) GroupMemberResponse {
	return GroupMemberResponse{
		MembershipID: gm.MembershipID,
		UserID:       gm.UserID,
		GroupID:      gm.GroupID,
		Role:         gm.GroupRole,
		Status:       gm.Status,
		JoinDate:     gm.JoinDate,
		LeftDate:     timePtr(gm.LeftDate),
	}
}

func toGroupMemberResponseList(members []*database.GroupMember) []GroupMemberResponse {
	responseList := make([]GroupMemberResponse, len(members))
	for i, gm := range members {
		responseList[i] = toGroupMemberResponse(gm)
	}
	return responseList
}

// GroupRequestResponse is the DTO for a join request.
type GroupRequestResponse struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"userId"`
	GroupID         int64     `json:"groupId"`
	Message         *string   `json:"message"`
	Status          string    `json:"status"`
	RejectionReason *string   `json:"rejectionReason"`
	RequestedAt     time.Time `json:"requestedAt"`
}

func toGroupRequestResponse(gr *database.GroupRequest) GroupRequestResponse {
	return GroupRequestResponse{
		ID:              gr.RequestID,
		UserID:          gr.UserID,
		GroupID:         gr.GroupID,
		Message:         strPtr(gr.Message),
		Status:          gr.Status,
		RejectionReason: strPtr(gr.RejectionReason),
		RequestedAt:     gr.RequestedAt,
	}
}

func toGroupRequestResponseList(requests []*database.GroupRequest) []GroupRequestResponse {
	responseList := make([]GroupRequestResponse, len(requests))
	for i, gr := range requests {
		responseList[i] = toGroupRequestResponse(gr)
	}
	return responseList
}

// EventResponse is the DTO for an event.
type EventResponse struct {
	ID              int64     `json:"id"`
	GroupID         int64     `json:"groupId"`
	Title           string    `json:"title"`
	Description     *string   `json:"description"`
	EventType       *string   `json:"eventType"`
	Date            string    `json:"date"`
	Time            *string   `json:"time"`
	Location        *string   `json:"location"`
	MaxParticipants *int64    `json:"maxParticipants"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"createdAt"`
}

func toEventResponse(e *database.Event) EventResponse {
	return EventResponse{
		ID:              e.EventID,
		GroupID:         e.GroupID,
		Title:           e.EventTitle,
		Description:     strPtr(e.Description),
		EventType:       strPtr(e.EventType),
		Date:            e.EventDate,
		Time:            strPtr(e.EventTime),
		Location:        strPtr(e.Location),
		MaxParticipants: intPtr(e.MaxParticipants),
		Status:          e.Status,
		CreatedAt:       e.CreatedAt,
	}
}

func toEventResponseList(events []*database.Event) []EventResponse {
	responseList := make([]EventResponse, len(events))
	for i, e := range events {
		responseList[i] = toEventResponse(e)
	}
	return responseList
}

// EventMemberResponse is the DTO for an event membership, covering both
// participants and volunteers.
type EventMemberResponse struct {
	MembershipID        int64     `json:"membershipId"`
	EventID             int64     `json:"eventId"`
	UserID              int64     `json:"userId"`
	Role                string    `json:"role"`
	ParticipationStatus string    `json:"participationStatus"`
	RegistrationDate    time.Time `json:"registrationDate"`
	Responsibility      *string   `json:"responsibility"`
	VolunteerStatus     *string   `json:"volunteerStatus"`
	VolunteerHours      *float64  `json:"volunteerHours"`
}

func toEventMemberResponse(em *database.EventMember) EventMemberResponse {
	return EventMemberResponse{
		MembershipID:        em.MembershipID,
		EventID:             em.EventID,
		UserID:              em.UserID,
		Role:                em.EventRole,
		ParticipationStatus: em.ParticipationStatus,
		RegistrationDate:    em.RegistrationDate,
		Responsibility:      strPtr(em.Responsibility),
		VolunteerStatus:     strPtr(em.VolunteerStatus),
		VolunteerHours:      floatPtr(em.VolunteerHours),
	}
}

func toEventMemberResponseList(members []*database.EventMember) []EventMemberResponse {
	responseList := make([]EventMemberResponse, len(members))
	for i, em := range members {
		responseList[i] = toEventMemberResponse(em)
	}
	return responseList
}

// RaceResultResponse is the DTO for a race timing row.
type RaceResultResponse struct {
	MembershipID int64     `json:"membershipId"`
	StartTime    *string   `json:"startTime"`
	FinishTime   *string   `json:"finishTime"`
	Rank         *int64    `json:"rank"`
	Method       string    `json:"method"`
	RecordedBy   *int64    `json:"recordedBy"`
	RecordedAt   time.Time `json:"recordedAt"`
}

func toRaceResultResponse(r *database.RaceResult) RaceResultResponse {
	return RaceResultResponse{
		MembershipID: r.MembershipID,
		StartTime:    strPtr(r.StartTime),
		FinishTime:   strPtr(r.FinishTime),
		Rank:         intPtr(r.RaceRank),
		Method:       r.Method,
		RecordedBy:   intPtr(r.RecordedBy),
		RecordedAt:   r.RecordedAt,
	}
}

func toRaceResultResponseList(results []*database.RaceResult) []RaceResultResponse {
	responseList := make([]RaceResultResponse, len(results))
	for i, r := range results {
		responseList[i] = toRaceResultResponse(r)
	}
	return responseList
}

// HelpRequestResponse is the DTO for a helpdesk ticket.
type HelpRequestResponse struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"userId"`
	Category    string     `json:"category"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    string     `json:"priority"`
	Status      string     `json:"status"`
	AssignedTo  *int64     `json:"assignedTo"`
	ResolvedAt  *time.Time `json:"resolvedAt"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func toHelpRequestResponse(hr *database.HelpRequest) HelpRequestResponse {
	return HelpRequestResponse{
		ID:          hr.RequestID,
		UserID:      hr.UserID,
		Category:    hr.Category,
		Title:       hr.Title,
		Description: hr.Description,
		Priority:    hr.Priority,
		Status:      hr.Status,
		AssignedTo:  intPtr(hr.AssignedTo),
		ResolvedAt:  timePtr(hr.ResolvedAt),
		CreatedAt:   hr.CreatedAt,
		UpdatedAt:   hr.UpdatedAt,
	}
}

func toHelpRequestResponseList(requests []*database.HelpRequest) []HelpRequestResponse {
	responseList := make([]HelpRequestResponse, len(requests))
	for i, hr := range requests {
		responseList[i] = toHelpRequestResponse(hr)
	}
	return responseList
}

// HelpReplyResponse is the DTO for a reply on a helpdesk thread.
type HelpReplyResponse struct {
	ID        int64     `json:"id"`
	RequestID int64     `json:"requestId"`
	SenderID  int64     `json:"senderId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

func toHelpReplyResponse(reply *database.HelpReply) HelpReplyResponse {
	return HelpReplyResponse{
		ID:        reply.ReplyID,
		RequestID: reply.RequestID,
		SenderID:  reply.SenderID,
		Content:   reply.ReplyContent,
		CreatedAt: reply.CreatedAt,
	}
}

func toHelpReplyResponseList(replies []*database.HelpReply) []HelpReplyResponse {
	responseList := make([]HelpReplyResponse, len(replies))
	for i, reply := range replies {
		responseList[i] = toHelpReplyResponse(reply)
	}
	return responseList
}

// NotificationResponse is the DTO for a notification.
type NotificationResponse struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Category  string    `json:"category"`
	RelatedID *int64    `json:"relatedId"`
	IsRead    bool      `json:"isRead"`
	CreatedAt time.Time `json:"createdAt"`
}

func toNotificationResponse(n *database.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        n.NotiID,
		UserID:    n.UserID,
		Title:     n.Title,
		Message:   n.Message,
		Category:  n.Category,
		RelatedID: intPtr(n.RelatedID),
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
}

func toNotificationResponseList(notifications []*database.Notification) []NotificationResponse {
	responseList := make([]NotificationResponse, len(notifications))
	for i, n := range notifications {
		responseList[i] = toNotificationResponse(n)
	}
	return responseList
}
