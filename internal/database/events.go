package database

import (
	"database/sql"
	"time"
)

const eventColumns = `event_id, group_id, event_title, description, event_type, event_date,
	event_time, location, max_participants, status, created_at`

func scanEvent(row *sql.Row) (*Event, error) {
	e := &Event{}
	err := row.Scan(
		&e.EventID,
		&e.GroupID,
		&e.EventTitle,
		&e.Description,
		&e.EventType,
		&e.EventDate,
		&e.EventTime,
		&e.Location,
		&e.MaxParticipants,
		&e.Status,
		&e.CreatedAt,
	)
	return e, err
}

// NewEventParams carries the fields for CreateEvent. EventDate must be an
// ISO date (YYYY-MM-DD) so the upcoming-events comparison in the group view
// works lexicographically.
type NewEventParams struct {
	GroupID         int64
	EventTitle      string
	Description     sql.NullString
	EventType       sql.NullString
	EventDate       string
	EventTime       sql.NullString
	Location        sql.NullString
	MaxParticipants sql.NullInt64
	Status          string
}

func (s *Service) CreateEvent(db DBorTx, p NewEventParams) (*Event, error) {
	if p.Status == "" {
		p.Status = "scheduled"
	}
	if err := checkEnum("status", p.Status, eventStatuses); err != nil {
		return nil, err
	}
	if _, err := time.Parse("2006-01-02", p.EventDate); err != nil {
		return nil, constraintErr("event_date must be YYYY-MM-DD")
	}
	if p.MaxParticipants.Valid && p.MaxParticipants.Int64 <= 0 {
		return nil, constraintErr("max_participants must be positive")
	}
	if err := checkFK(db, "group_info", "group_id", "group_id", p.GroupID); err != nil {
		return nil, err
	}

	query := `INSERT INTO event_info (group_id, event_title, description, event_type, event_date, event_time, location, max_participants, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);`
	res, err := db.Exec(query, p.GroupID, p.EventTitle, p.Description, p.EventType, p.EventDate, p.EventTime, p.Location, p.MaxParticipants, p.Status)
	if err != nil {
		return nil, translateErr(err)
	}
	id, _ := res.LastInsertId()
	return s.GetEventByID(db, id)
}

func (s *Service) GetEventByID(db DBorTx, id int64) (*Event, error) {
	e, err := scanEvent(db.QueryRow(`SELECT `+eventColumns+` FROM event_info WHERE event_id = ?;`, id))
	if err == sql.ErrNoRows {
		return nil, notFoundErr("event", id)
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) GetEventsByGroupID(db DBorTx, groupID int64) ([]*Event, error) {
	query := `SELECT ` + eventColumns + ` FROM event_info WHERE group_id = ? ORDER BY event_date DESC, event_time DESC;`
	rows, err := db.Query(query, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		e := &Event{}
		if err := rows.Scan(
			&e.EventID, &e.GroupID, &e.EventTitle, &e.Description, &e.EventType,
			&e.EventDate, &e.EventTime, &e.Location, &e.MaxParticipants, &e.Status, &e.CreatedAt,
		); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// EventUpdate holds the mutable event fields, nil meaning unchanged.
type EventUpdate struct {
	EventTitle      *string
	Description     *string
	EventType       *string
	EventDate       *string
	EventTime       *string
	Location        *string
	MaxParticipants *int64
}

func (s *Service) UpdateEvent(db DBorTx, eventID int64, up EventUpdate) (*Event, error) {
	if up.EventDate != nil {
		if _, err := time.Parse("2006-01-02", *up.EventDate); err != nil {
			return nil, constraintErr("event_date must be YYYY-MM-DD")
		}
	}
	if up.MaxParticipants != nil && *up.MaxParticipants <= 0 {
		return nil, constraintErr("max_participants must be positive")
	}

	query := `UPDATE event_info SET
		event_title = COALESCE(?, event_title),
		description = COALESCE(?, description),
		event_type = COALESCE(?, event_type),
		event_date = COALESCE(?, event_date),
		event_time = COALESCE(?, event_time),
		location = COALESCE(?, location),
		max_participants = COALESCE(?, max_participants)
		WHERE event_id = ?;`
	res, err := db.Exec(query, up.EventTitle, up.Description, up.EventType, up.EventDate, up.EventTime, up.Location, up.MaxParticipants, eventID)
	if err != nil {
		return nil, translateErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, notFoundErr("event", eventID)
	}
	return s.GetEventByID(db, eventID)
}

func (s *Service) SetEventStatus(db DBorTx, eventID int64, status string) error {
	if err := checkEnum("status", status, eventStatuses); err != nil {
		return err
	}
	res, err := db.Exec(`UPDATE event_info SET status = ? WHERE event_id = ?;`, status, eventID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFoundErr("event", eventID)
	}
	return nil
}

// DeleteEvent removes the event; memberships and race results cascade.
func (s *Service) DeleteEvent(db DBorTx, eventID int64) error {
	res, err := db.Exec(`DELETE FROM event_info WHERE event_id = ?;`, eventID)
	if err != nil {
		return translateErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFoundErr("event", eventID)
	}
	return nil
}

// --- Event memberships ---

func scanEventMember(row *sql.Row) (*EventMember, error) {
	em := &EventMember{}
	err := row.Scan(
		&em.MembershipID,
		&em.EventID,
		&em.UserID,
		&em.EventRole,
		&em.ParticipationStatus,
		&em.RegistrationDate,
		&em.Responsibility,
		&em.VolunteerStatus,
		&em.VolunteerHours,
	)
	return em, err
}

const eventMemberColumns = `membership_id, event_id, user_id, event_role, participation_status,
	registration_date, responsibility, volunteer_status, volunteer_hours`

// RegisterForEvent signs a user up as a participant. Registration is
// refused when the event is full, counting registered and attended rows
// against max_participants.
func (s *Service) RegisterForEvent(db DBorTx, eventID, userID int64) (*EventMember, error) {
	event, err := s.GetEventByID(db, eventID)
	if err != nil {
		return nil, err
	}
	if err := checkFK(db, "users", "user_id", "user_id", userID); err != nil {
		return nil, err
	}
	if event.Status != "scheduled" {
		return nil, constraintErr("event is not open for registration")
	}

	existing, err := s.GetEventMembership(db, eventID, userID)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	if existing != nil && existing.ParticipationStatus != "cancelled" {
		return nil, duplicateErr("event membership")
	}

	if event.MaxParticipants.Valid {
		var n int64
		err := db.QueryRow(`SELECT COUNT(*) FROM event_members
			WHERE event_id = ? AND participation_status IN ('registered', 'attended');`, eventID).Scan(&n)
		if err != nil {
			return nil, err
		}
		if n >= event.MaxParticipants.Int64 {
			return nil, constraintErr("event is full")
		}
	}

	if existing != nil {
		query := `UPDATE event_members SET participation_status = 'registered', registration_date = CURRENT_TIMESTAMP
			WHERE membership_id = ?;`
		if _, err := db.Exec(query, existing.MembershipID); err != nil {
			return nil, err
		}
		return s.GetEventMembership(db, eventID, userID)
	}

	query := `INSERT INTO event_members (event_id, user_id, event_role) VALUES (?, ?, 'participant');`
	if _, err := db.Exec(query, eventID, userID); err != nil {
		return nil, translateErr(err)
	}
	return s.GetEventMembership(db, eventID, userID)
}

// GetEventMembership returns the membership row for the pair, or
// sql.ErrNoRows when none exists.
func (s *Service) GetEventMembership(db DBorTx, eventID, userID int64) (*EventMember, error) {
	query := `SELECT ` + eventMemberColumns + ` FROM event_members WHERE event_id = ? AND user_id = ?;`
	return scanEventMember(db.QueryRow(query, eventID, userID))
}

func (s *Service) GetEventMembershipByID(db DBorTx, membershipID int64) (*EventMember, error) {
	query := `SELECT ` + eventMemberColumns + ` FROM event_members WHERE membership_id = ?;`
	em, err := scanEventMember(db.QueryRow(query, membershipID))
	if err == sql.ErrNoRows {
		return nil, notFoundErr("event membership", membershipID)
	}
	if err != nil {
		return nil, err
	}
	return em, nil
}

func (s *Service) GetEventMembers(db DBorTx, eventID int64) ([]*EventMember, error) {
	query := `SELECT ` + eventMemberColumns + ` FROM event_members WHERE event_id = ? ORDER BY registration_date;`
	rows, err := db.Query(query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []*EventMember
	for rows.Next() {
		em := &EventMember{}
		if err := rows.Scan(
			&em.MembershipID, &em.EventID, &em.UserID, &em.EventRole, &em.ParticipationStatus,
			&em.RegistrationDate, &em.Responsibility, &em.VolunteerStatus, &em.VolunteerHours,
		); err != nil {
			return nil, err
		}
		members = append(members, em)
	}
	return members, rows.Err()
}

func (s *Service) SetParticipationStatus(db DBorTx, membershipID int64, status string) error {
	if err := checkEnum("participation_status", status, participationStates); err != nil {
		return err
	}
	res, err := db.Exec(`UPDATE event_members SET participation_status = ? WHERE membership_id = ?;`, status, membershipID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFoundErr("event membership", membershipID)
	}
	return nil
}

// --- Volunteers ---

// AssignVolunteer signs a user up for an event in the volunteer role with
// the given responsibility, starting in volunteer_status "assigned".
func (s *Service) AssignVolunteer(db DBorTx, eventID, userID int64, responsibility string) (*EventMember, error) {
	if err := checkFK(db, "event_info", "event_id", "event_id", eventID); err != nil {
		return nil, err
	}
	if err := checkFK(db, "users", "user_id", "user_id", userID); err != nil {
		return nil, err
	}

	existing, err := s.GetEventMembership(db, eventID, userID)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	if existing != nil {
		return nil, duplicateErr("event membership")
	}

	query := `INSERT INTO event_members (event_id, user_id, event_role, responsibility, volunteer_status)
		VALUES (?, ?, 'volunteer', ?, 'assigned');`
	if _, err := db.Exec(query, eventID, userID, nullableStr(responsibility)); err != nil {
		return nil, translateErr(err)
	}
	return s.GetEventMembership(db, eventID, userID)
}

func (s *Service) SetVolunteerStatus(db DBorTx, membershipID int64, status string) error {
	if err := checkEnum("volunteer_status", status, volunteerStates); err != nil {
		return err
	}
	query := `UPDATE event_members SET volunteer_status = ? WHERE membership_id = ? AND event_role = 'volunteer';`
	res, err := db.Exec(query, status, membershipID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFoundErr("volunteer membership", membershipID)
	}
	return nil
}

// RecordVolunteerHours completes a volunteer assignment and credits the
// hours. The hours feed the total_volunteer_hours column of the user
// activity view.
func (s *Service) RecordVolunteerHours(db DBorTx, membershipID int64, hours float64) error {
	if hours < 0 {
		return constraintErr("volunteer_hours must not be negative")
	}
	query := `UPDATE event_members SET volunteer_hours = ?, volunteer_status = 'completed'
		WHERE membership_id = ? AND event_role = 'volunteer';`
	res, err := db.Exec(query, hours, membershipID)
	if err != nil {
		return translateErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFoundErr("volunteer membership", membershipID)
	}
	return nil
}
