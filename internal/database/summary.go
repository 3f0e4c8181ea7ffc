package database

import "database/sql"

// GetUserActivitySummary reads one row of the user_activity_summary view.
// Banned users are excluded by the view and come back as ErrNotFound.
func (s *Service) GetUserActivitySummary(db DBorTx, userID int64) (*UserActivitySummary, error) {
	query := `SELECT user_id, username, groups_joined, groups_created, events_participated,
		volunteer_events, total_volunteer_hours, events_attended
		FROM user_activity_summary WHERE user_id = ?;`
	sum := &UserActivitySummary{}
	err := db.QueryRow(query, userID).Scan(
		&sum.UserID,
		&sum.Username,
		&sum.GroupsJoined,
		&sum.GroupsCreated,
		&sum.EventsParticipated,
		&sum.VolunteerEvents,
		&sum.TotalVolunteerHours,
		&sum.EventsAttended,
	)
	if err == sql.ErrNoRows {
		return nil, notFoundErr("user activity summary", userID)
	}
	if err != nil {
		return nil, err
	}
	return sum, nil
}

func (s *Service) ListUserActivitySummaries(db DBorTx) ([]*UserActivitySummary, error) {
	query := `SELECT user_id, username, groups_joined, groups_created, events_participated,
		volunteer_events, total_volunteer_hours, events_attended
		FROM user_activity_summary ORDER BY username;`
	rows, err := db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sums []*UserActivitySummary
	for rows.Next() {
		sum := &UserActivitySummary{}
		if err := rows.Scan(
			&sum.UserID, &sum.Username, &sum.GroupsJoined, &sum.GroupsCreated,
			&sum.EventsParticipated, &sum.VolunteerEvents, &sum.TotalVolunteerHours, &sum.EventsAttended,
		); err != nil {
			return nil, err
		}
		sums = append(sums, sum)
	}
	return sums, rows.Err()
}

// GetGroupActivitySummary reads one row of the group_activity_summary view.
func (s *Service) GetGroupActivitySummary(db DBorTx, groupID int64) (*GroupActivitySummary, error) {
	query := `SELECT group_id, name, status, active_members, total_events, completed_events,
		upcoming_events, unique_participants, avg_attendance
		FROM group_activity_summary WHERE group_id = ?;`
	sum := &GroupActivitySummary{}
	err := db.QueryRow(query, groupID).Scan(
		&sum.GroupID,
		&sum.Name,
		&sum.Status,
		&sum.ActiveMembers,
		&sum.TotalEvents,
		&sum.CompletedEvents,
		&sum.UpcomingEvents,
		&sum.UniqueParticipants,
		&sum.AvgAttendance,
	)
	if err == sql.ErrNoRows {
		return nil, notFoundErr("group activity summary", groupID)
	}
	if err != nil {
		return nil, err
	}
	return sum, nil
}

func (s *Service) ListGroupActivitySummaries(db DBorTx) ([]*GroupActivitySummary, error) {
	query := `SELECT group_id, name, status, active_members, total_events, completed_events,
		upcoming_events, unique_participants, avg_attendance
		FROM group_activity_summary ORDER BY name;`
	rows, err := db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sums []*GroupActivitySummary
	for rows.Next() {
		sum := &GroupActivitySummary{}
		if err := rows.Scan(
			&sum.GroupID, &sum.Name, &sum.Status, &sum.ActiveMembers, &sum.TotalEvents,
			&sum.CompletedEvents, &sum.UpcomingEvents, &sum.UniqueParticipants, &sum.AvgAttendance,
		); err != nil {
			return nil, err
		}
		sums = append(sums, sum)
	}
	return sums, rows.Err()
}
