package database

import (
	"database/sql"
	"time"
)

const helpRequestColumns = `request_id, user_id, category, title, description, priority,
	status, assigned_to, resolved_at, created_at, updated_at`

func scanHelpRequest(row *sql.Row) (*HelpRequest, error) {
	hr := &HelpRequest{}
	err := row.Scan(
		&hr.RequestID,
		&hr.UserID,
		&hr.Category,
		&hr.Title,
		&hr.Description,
		&hr.Priority,
		&hr.Status,
		&hr.AssignedTo,
		&hr.ResolvedAt,
		&hr.CreatedAt,
		&hr.UpdatedAt,
	)
	return hr, err
}

// NewHelpRequestParams carries the fields for CreateHelpRequest.
type NewHelpRequestParams struct {
	UserID      int64
	Category    string
	Title       string
	Description string
	Priority    string
}

func (s *Service) CreateHelpRequest(db DBorTx, p NewHelpRequestParams) (*HelpRequest, error) {
	if p.Priority == "" {
		p.Priority = "medium"
	}
	if err := checkEnum("category", p.Category, helpCategories); err != nil {
		return nil, err
	}
	if err := checkEnum("priority", p.Priority, helpPriorities); err != nil {
		return nil, err
	}
	if err := checkFK(db, "users", "user_id", "user_id", p.UserID); err != nil {
		return nil, err
	}

	query := `INSERT INTO help_requests (user_id, category, title, description, priority)
		VALUES (?, ?, ?, ?, ?);`
	res, err := db.Exec(query, p.UserID, p.Category, p.Title, p.Description, p.Priority)
	if err != nil {
		return nil, translateErr(err)
	}
	id, _ := res.LastInsertId()
	return s.GetHelpRequestByID(db, id)
}

func (s *Service) GetHelpRequestByID(db DBorTx, id int64) (*HelpRequest, error) {
	hr, err := scanHelpRequest(db.QueryRow(`SELECT `+helpRequestColumns+` FROM help_requests WHERE request_id = ?;`, id))
	if err == sql.ErrNoRows {
		return nil, notFoundErr("help request", id)
	}
	if err != nil {
		return nil, err
	}
	return hr, nil
}

// ListHelpRequests returns requests filtered by status (all when empty),
// urgent tickets first within each status.
func (s *Service) ListHelpRequests(db DBorTx, status string) ([]*HelpRequest, error) {
	query := `SELECT ` + helpRequestColumns + ` FROM help_requests`
	var args []interface{}
	if status != "" {
		if err := checkEnum("status", status, helpStatuses); err != nil {
			return nil, err
		}
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY CASE priority WHEN 'urgent' THEN 0 WHEN 'high' THEN 1 WHEN 'medium' THEN 2 ELSE 3 END, created_at;`

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []*HelpRequest
	for rows.Next() {
		hr := &HelpRequest{}
		if err := rows.Scan(
			&hr.RequestID, &hr.UserID, &hr.Category, &hr.Title, &hr.Description,
			&hr.Priority, &hr.Status, &hr.AssignedTo, &hr.ResolvedAt, &hr.CreatedAt, &hr.UpdatedAt,
		); err != nil {
			return nil, err
		}
		requests = append(requests, hr)
	}
	return requests, rows.Err()
}

func (s *Service) GetHelpRequestsByUserID(db DBorTx, userID int64) ([]*HelpRequest, error) {
	query := `SELECT ` + helpRequestColumns + ` FROM help_requests WHERE user_id = ? ORDER BY created_at DESC;`
	rows, err := db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []*HelpRequest
	for rows.Next() {
		hr := &HelpRequest{}
		if err := rows.Scan(
			&hr.RequestID, &hr.UserID, &hr.Category, &hr.Title, &hr.Description,
			&hr.Priority, &hr.Status, &hr.AssignedTo, &hr.ResolvedAt, &hr.CreatedAt, &hr.UpdatedAt,
		); err != nil {
			return nil, err
		}
		requests = append(requests, hr)
	}
	return requests, rows.Err()
}

// AssignHelpRequest hands a new ticket to a technician and moves it to
// "assigned".
func (s *Service) AssignHelpRequest(db DBorTx, requestID, technicianID int64) error {
	if err := checkFK(db, "users", "user_id", "assigned_to", technicianID); err != nil {
		return err
	}
	query := `UPDATE help_requests SET status = 'assigned', assigned_to = ?, updated_at = CURRENT_TIMESTAMP
		WHERE request_id = ? AND status = 'new';`
	res, err := db.Exec(query, technicianID, requestID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFoundErr("new help request", requestID)
	}
	return nil
}

// SetHelpRequestStatus moves a ticket through its lifecycle. Entering
// "solved" stamps resolved_at; leaving it clears the stamp.
func (s *Service) SetHelpRequestStatus(db DBorTx, requestID int64, status string) error {
	if err := checkEnum("status", status, helpStatuses); err != nil {
		return err
	}
	var query string
	var args []interface{}
	if status == "solved" {
		query = `UPDATE help_requests SET status = ?, resolved_at = ?, updated_at = CURRENT_TIMESTAMP WHERE request_id = ?;`
		args = []interface{}{status, time.Now().UTC(), requestID}
	} else {
		query = `UPDATE help_requests SET status = ?, resolved_at = NULL, updated_at = CURRENT_TIMESTAMP WHERE request_id = ?;`
		args = []interface{}{status, requestID}
	}
	res, err := db.Exec(query, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFoundErr("help request", requestID)
	}
	return nil
}

func (s *Service) SetHelpRequestPriority(db DBorTx, requestID int64, priority string) error {
	if err := checkEnum("priority", priority, helpPriorities); err != nil {
		return err
	}
	res, err := db.Exec(`UPDATE help_requests SET priority = ?, updated_at = CURRENT_TIMESTAMP WHERE request_id = ?;`, priority, requestID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFoundErr("help request", requestID)
	}
	return nil
}

// --- Replies ---

func (s *Service) CreateHelpReply(db DBorTx, requestID, senderID int64, content string) (*HelpReply, error) {
	if err := checkFK(db, "help_requests", "request_id", "request_id", requestID); err != nil {
		return nil, err
	}
	if err := checkFK(db, "users", "user_id", "sender_id", senderID); err != nil {
		return nil, err
	}

	query := `INSERT INTO help_replies (request_id, sender_id, reply_content) VALUES (?, ?, ?);`
	res, err := db.Exec(query, requestID, senderID, content)
	if err != nil {
		return nil, translateErr(err)
	}
	id, _ := res.LastInsertId()

	reply := &HelpReply{}
	err = db.QueryRow(`SELECT reply_id, request_id, sender_id, reply_content, created_at FROM help_replies WHERE reply_id = ?;`, id).Scan(
		&reply.ReplyID, &reply.RequestID, &reply.SenderID, &reply.ReplyContent, &reply.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return reply, nil
}

func (s *Service) GetHelpReplies(db DBorTx, requestID int64) ([]*HelpReply, error) {
	query := `SELECT reply_id, request_id, sender_id, reply_content, created_at
		FROM help_replies WHERE request_id = ? ORDER BY created_at, reply_id;`
	rows, err := db.Query(query, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var replies []*HelpReply
	for rows.Next() {
		reply := &HelpReply{}
		if err := rows.Scan(&reply.ReplyID, &reply.RequestID, &reply.SenderID, &reply.ReplyContent, &reply.CreatedAt); err != nil {
			return nil, err
		}
		replies = append(replies, reply)
	}
	return replies, rows.Err()
}
