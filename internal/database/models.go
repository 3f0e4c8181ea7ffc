package database

import (
	"database/sql"
	"time"
)

// User is a row of the users table. PasswordHash is the encoded argon2id
// string and never leaves the database layer in API responses.
type User struct {
	UserID               int64
	Username             string
	Email                string
	PasswordHash         string
	FirstName            string
	LastName             string
	Location             sql.NullString
	ProfileImage         sql.NullString
	Biography            sql.NullString
	PlatformRole         string
	Status               string
	NotificationsEnabled bool
	BannedReason         sql.NullString
	BannedBy             sql.NullInt64
	BannedAt             sql.NullTime
	CreatedAt            time.Time
}

// Group is a row of the group_info table.
type Group struct {
	GroupID         int64
	Name            string
	Description     sql.NullString
	GroupLocation   sql.NullString
	GroupType       string
	IsPublic        bool
	MaxMembers      sql.NullInt64
	Status          string
	RejectionReason sql.NullString
	FirstMembers    sql.NullString
	CreatedBy       int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// GroupMember is a row of the group_members table.
type GroupMember struct {
	MembershipID int64
	UserID       int64
	GroupID      int64
	GroupRole    string
	Status       string
	JoinDate     time.Time
	LeftDate     sql.NullTime
}

// GroupRequest is a row of the group_requests table.
type GroupRequest struct {
	RequestID       int64
	UserID          int64
	GroupID         int64
	Message         sql.NullString
	Status          string
	RejectionReason sql.NullString
	RequestedAt     time.Time
}

// Event is a row of the event_info table. EventDate is an ISO date string
// (YYYY-MM-DD) and EventTime is HH:MM, matching how the views compare dates.
type Event struct {
	EventID         int64
	GroupID         int64
	EventTitle      string
	Description     sql.NullString
	EventType       sql.NullString
	EventDate       string
	EventTime       sql.NullString
	Location        sql.NullString
	MaxParticipants sql.NullInt64
	Status          string
	CreatedAt       time.Time
}

// EventMember is a row of the event_members table. The volunteer fields are
// only populated when EventRole is "volunteer".
type EventMember struct {
	MembershipID        int64
	EventID             int64
	UserID              int64
	EventRole           string
	ParticipationStatus string
	RegistrationDate    time.Time
	Responsibility      sql.NullString
	VolunteerStatus     sql.NullString
	VolunteerHours      sql.NullFloat64
}

// RaceResult is a row of the race_results table. It shares its primary key
// with the event membership it belongs to.
type RaceResult struct {
	MembershipID int64
	StartTime    sql.NullString
	FinishTime   sql.NullString
	RaceRank     sql.NullInt64
	Method       string
	RecordedBy   sql.NullInt64
	RecordedAt   time.Time
}

// HelpRequest is a row of the help_requests table.
type HelpRequest struct {
	RequestID   int64
	UserID      int64
	Category    string
	Title       string
	Description string
	Priority    string
	Status      string
	AssignedTo  sql.NullInt64
	ResolvedAt  sql.NullTime
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HelpReply is a row of the help_replies table.
type HelpReply struct {
	ReplyID      int64
	RequestID    int64
	SenderID     int64
	ReplyContent string
	CreatedAt    time.Time
}

// Notification is a row of the notifications table.
type Notification struct {
	NotiID    int64
	UserID    int64
	Title     string
	Message   string
	Category  string
	RelatedID sql.NullInt64
	IsRead    bool
	CreatedAt time.Time
}

// UserActivitySummary is a row of the user_activity_summary view.
type UserActivitySummary struct {
	UserID              int64
	Username            string
	GroupsJoined        int64
	GroupsCreated       int64
	EventsParticipated  int64
	VolunteerEvents     int64
	TotalVolunteerHours float64
	EventsAttended      int64
}

// GroupActivitySummary is a row of the group_activity_summary view.
type GroupActivitySummary struct {
	GroupID            int64
	Name               string
	Status             string
	ActiveMembers      int64
	TotalEvents        int64
	CompletedEvents    int64
	UpcomingEvents     int64
	UniqueParticipants int64
	AvgAttendance      float64
}
