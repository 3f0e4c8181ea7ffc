package database

import "database/sql"

const raceResultColumns = `membership_id, start_time, finish_time, race_rank, method, recorded_by, recorded_at`

func scanRaceResult(row *sql.Row) (*RaceResult, error) {
	r := &RaceResult{}
	err := row.Scan(
		&r.MembershipID,
		&r.StartTime,
		&r.FinishTime,
		&r.RaceRank,
		&r.Method,
		&r.RecordedBy,
		&r.RecordedAt,
	)
	return r, err
}

// NewRaceResultParams carries the fields for RecordRaceResult. Times are
// HH:MM:SS clock strings so the finish-after-start check can compare them
// lexicographically, the same way the schema does.
type NewRaceResultParams struct {
	MembershipID int64
	StartTime    sql.NullString
	FinishTime   sql.NullString
	RaceRank     sql.NullInt64
	Method       string
	RecordedBy   sql.NullInt64
}

// RecordRaceResult stores a timing row for an event membership. Recording a
// second result for the same membership replaces the first.
func (s *Service) RecordRaceResult(db DBorTx, p NewRaceResultParams) (*RaceResult, error) {
	if p.Method == "" {
		p.Method = "manual"
	}
	if err := checkEnum("method", p.Method, resultMethods); err != nil {
		return nil, err
	}
	if p.RaceRank.Valid && p.RaceRank.Int64 <= 0 {
		return nil, constraintErr("race_rank must be positive")
	}
	if p.StartTime.Valid && p.FinishTime.Valid && p.FinishTime.String <= p.StartTime.String {
		return nil, constraintErr("finish_time must be after start_time")
	}
	if err := checkFK(db, "event_members", "membership_id", "membership_id", p.MembershipID); err != nil {
		return nil, err
	}
	if err := checkNullFK(db, "users", "user_id", "recorded_by", p.RecordedBy); err != nil {
		return nil, err
	}

	query := `INSERT INTO race_results (membership_id, start_time, finish_time, race_rank, method, recorded_by)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(membership_id) DO UPDATE SET
			start_time = excluded.start_time,
			finish_time = excluded.finish_time,
			race_rank = excluded.race_rank,
			method = excluded.method,
			recorded_by = excluded.recorded_by,
			recorded_at = CURRENT_TIMESTAMP;`
	if _, err := db.Exec(query, p.MembershipID, p.StartTime, p.FinishTime, p.RaceRank, p.Method, p.RecordedBy); err != nil {
		return nil, translateErr(err)
	}
	// Recording a result implies attendance.
	if _, err := db.Exec(`UPDATE event_members SET participation_status = 'attended' WHERE membership_id = ?;`, p.MembershipID); err != nil {
		return nil, translateErr(err)
	}
	return s.GetRaceResult(db, p.MembershipID)
}

func (s *Service) GetRaceResult(db DBorTx, membershipID int64) (*RaceResult, error) {
	r, err := scanRaceResult(db.QueryRow(`SELECT `+raceResultColumns+` FROM race_results WHERE membership_id = ?;`, membershipID))
	if err == sql.ErrNoRows {
		return nil, notFoundErr("race result", membershipID)
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// GetEventResults returns all results for an event, ranked rows first.
func (s *Service) GetEventResults(db DBorTx, eventID int64) ([]*RaceResult, error) {
	query := `SELECT r.membership_id, r.start_time, r.finish_time, r.race_rank, r.method, r.recorded_by, r.recorded_at
		FROM race_results r
		JOIN event_members em ON r.membership_id = em.membership_id
		WHERE em.event_id = ?
		ORDER BY r.race_rank IS NULL, r.race_rank;`
	rows, err := db.Query(query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*RaceResult
	for rows.Next() {
		r := &RaceResult{}
		if err := rows.Scan(&r.MembershipID, &r.StartTime, &r.FinishTime, &r.RaceRank, &r.Method, &r.RecordedBy, &r.RecordedAt); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *Service) DeleteRaceResult(db DBorTx, membershipID int64) error {
	res, err := db.Exec(`DELETE FROM race_results WHERE membership_id = ?;`, membershipID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFoundErr("race result", membershipID)
	}
	return nil
}
