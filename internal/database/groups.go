package database

import (
	"database/sql"
	"time"
)

const groupColumns = `group_id, name, description, group_location, group_type, is_public,
	max_members, status, rejection_reason, first_members, created_by, created_at, updated_at`

func scanGroup(row *sql.Row) (*Group, error) {
	g := &Group{}
	err := row.Scan(
		&g.GroupID,
		&g.Name,
		&g.Description,
		&g.GroupLocation,
		&g.GroupType,
		&g.IsPublic,
		&g.MaxMembers,
		&g.Status,
		&g.RejectionReason,
		&g.FirstMembers,
		&g.CreatedBy,
		&g.CreatedAt,
		&g.UpdatedAt,
	)
	return g, err
}

// NewGroupParams carries the fields for CreateGroup. Status defaults to
// "pending"; "draft" is the only other value accepted at creation time.
type NewGroupParams struct {
	Name          string
	Description   sql.NullString
	GroupLocation sql.NullString
	GroupType     string
	IsPublic      bool
	MaxMembers    sql.NullInt64
	Status        string
	CreatedBy     int64
}

// CreateGroup inserts the group and enrolls the creator as an active manager
// in the same transaction.
func (s *Service) CreateGroup(tx *sql.Tx, p NewGroupParams) (*Group, error) {
	if p.GroupType == "" {
		p.GroupType = "mixed"
	}
	if p.Status == "" {
		p.Status = "pending"
	}
	if err := checkEnum("group_type", p.GroupType, groupTypes); err != nil {
		return nil, err
	}
	if p.Status != "pending" && p.Status != "draft" {
		return nil, enumErr("status", p.Status)
	}
	if p.MaxMembers.Valid && p.MaxMembers.Int64 <= 0 {
		return nil, constraintErr("max_members must be positive")
	}
	if err := checkFK(tx, "users", "user_id", "created_by", p.CreatedBy); err != nil {
		return nil, err
	}

	query := `INSERT INTO group_info (name, description, group_location, group_type, is_public, max_members, status, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?);`
	res, err := tx.Exec(query, p.Name, p.Description, p.GroupLocation, p.GroupType, p.IsPublic, p.MaxMembers, p.Status, p.CreatedBy)
	if err != nil {
		return nil, translateErr(err)
	}
	id, _ := res.LastInsertId()

	if _, err := s.AddGroupMember(tx, id, p.CreatedBy, "manager"); err != nil {
		return nil, err
	}
	return s.GetGroupByID(tx, id)
}

func (s *Service) GetGroupByID(db DBorTx, id int64) (*Group, error) {
	g, err := scanGroup(db.QueryRow(`SELECT `+groupColumns+` FROM group_info WHERE group_id = ?;`, id))
	if err == sql.ErrNoRows {
		return nil, notFoundErr("group", id)
	}
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (s *Service) ListGroups(db DBorTx, status string, publicOnly bool) ([]*Group, error) {
	query := `SELECT ` + groupColumns + ` FROM group_info WHERE 1=1`
	var args []interface{}
	if status != "" {
		if err := checkEnum("status", status, groupStatuses); err != nil {
			return nil, err
		}
		query += ` AND status = ?`
		args = append(args, status)
	}
	if publicOnly {
		query += ` AND is_public = 1`
	}
	query += ` ORDER BY created_at DESC;`

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []*Group
	for rows.Next() {
		g := &Group{}
		if err := rows.Scan(
			&g.GroupID, &g.Name, &g.Description, &g.GroupLocation, &g.GroupType,
			&g.IsPublic, &g.MaxMembers, &g.Status, &g.RejectionReason,
			&g.FirstMembers, &g.CreatedBy, &g.CreatedAt, &g.UpdatedAt,
		); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (s *Service) GetGroupsByUserID(db DBorTx, userID int64) ([]*Group, error) {
	query := `
		SELECT g.group_id, g.name, g.description, g.group_location, g.group_type, g.is_public,
			g.max_members, g.status, g.rejection_reason, g.first_members, g.created_by, g.created_at, g.updated_at
		FROM group_info g
		JOIN group_members gm ON g.group_id = gm.group_id
		WHERE gm.user_id = ? AND gm.status = 'active'
		ORDER BY g.created_at DESC;`

	rows, err := db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []*Group
	for rows.Next() {
		g := &Group{}
		if err := rows.Scan(
			&g.GroupID, &g.Name, &g.Description, &g.GroupLocation, &g.GroupType,
			&g.IsPublic, &g.MaxMembers, &g.Status, &g.RejectionReason,
			&g.FirstMembers, &g.CreatedBy, &g.CreatedAt, &g.UpdatedAt,
		); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// GroupUpdate holds the mutable group fields, nil meaning unchanged.
type GroupUpdate struct {
	Name          *string
	Description   *string
	GroupLocation *string
	GroupType     *string
	IsPublic      *bool
	MaxMembers    *int64
}

func (s *Service) UpdateGroup(db DBorTx, groupID int64, up GroupUpdate) (*Group, error) {
	if up.GroupType != nil {
		if err := checkEnum("group_type", *up.GroupType, groupTypes); err != nil {
			return nil, err
		}
	}
	if up.MaxMembers != nil && *up.MaxMembers <= 0 {
		return nil, constraintErr("max_members must be positive")
	}

	query := `UPDATE group_info SET
		name = COALESCE(?, name),
		description = COALESCE(?, description),
		group_location = COALESCE(?, group_location),
		group_type = COALESCE(?, group_type),
		is_public = COALESCE(?, is_public),
		max_members = COALESCE(?, max_members),
		updated_at = CURRENT_TIMESTAMP
		WHERE group_id = ?;`
	res, err := db.Exec(query, up.Name, up.Description, up.GroupLocation, up.GroupType, up.IsPublic, up.MaxMembers, groupID)
	if err != nil {
		return nil, translateErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, notFoundErr("group", groupID)
	}
	return s.GetGroupByID(db, groupID)
}

// ApproveGroup moves a pending group to approved and clears any earlier
// rejection reason.
func (s *Service) ApproveGroup(db DBorTx, groupID int64) error {
	query := `UPDATE group_info SET status = 'approved', rejection_reason = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE group_id = ? AND status = 'pending';`
	res, err := db.Exec(query, groupID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFoundErr("pending group", groupID)
	}
	return nil
}

func (s *Service) RejectGroup(db DBorTx, groupID int64, reason string) error {
	query := `UPDATE group_info SET status = 'rejected', rejection_reason = ?, updated_at = CURRENT_TIMESTAMP
		WHERE group_id = ? AND status = 'pending';`
	res, err := db.Exec(query, reason, groupID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFoundErr("pending group", groupID)
	}
	return nil
}

// SetGroupStatus applies any legal status value directly. Approval and
// rejection have dedicated methods; this covers draft submission and
// deactivation.
func (s *Service) SetGroupStatus(db DBorTx, groupID int64, status string) error {
	if err := checkEnum("status", status, groupStatuses); err != nil {
		return err
	}
	res, err := db.Exec(`UPDATE group_info SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE group_id = ?;`, status, groupID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFoundErr("group", groupID)
	}
	return nil
}

// SetGroupFirstMembers stores the denormalized founding-member snapshot.
func (s *Service) SetGroupFirstMembers(db DBorTx, groupID int64, firstMembers string) error {
	res, err := db.Exec(`UPDATE group_info SET first_members = ? WHERE group_id = ?;`, firstMembers, groupID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFoundErr("group", groupID)
	}
	return nil
}

// DeleteGroup removes the group. Memberships, join requests and the group's
// events (with their race results) cascade away with it.
func (s *Service) DeleteGroup(db DBorTx, groupID int64) error {
	res, err := db.Exec(`DELETE FROM group_info WHERE group_id = ?;`, groupID)
	if err != nil {
		return translateErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFoundErr("group", groupID)
	}
	return nil
}

// --- Memberships ---

// AddGroupMember enrolls a user into a group as an active member. One
// membership row per (user, group) pair; a user who previously left keeps
// their old row, so re-joining reactivates it instead of inserting.
func (s *Service) AddGroupMember(db DBorTx, groupID, userID int64, role string) (*GroupMember, error) {
	if role == "" {
		role = "member"
	}
	if err := checkEnum("group_role", role, groupRoles); err != nil {
		return nil, err
	}
	if err := checkFK(db, "users", "user_id", "user_id", userID); err != nil {
		return nil, err
	}
	if err := checkFK(db, "group_info", "group_id", "group_id", groupID); err != nil {
		return nil, err
	}

	group, err := s.GetGroupByID(db, groupID)
	if err != nil {
		return nil, err
	}
	if group.MaxMembers.Valid {
		count, err := s.CountActiveMembers(db, groupID)
		if err != nil {
			return nil, err
		}
		if count >= group.MaxMembers.Int64 {
			return nil, constraintErr("group is full")
		}
	}

	existing, err := s.GetGroupMembership(db, groupID, userID)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	if existing != nil {
		if existing.Status != "left" {
			return nil, duplicateErr("group membership")
		}
		query := `UPDATE group_members SET status = 'active', group_role = ?, join_date = CURRENT_TIMESTAMP, left_date = NULL
			WHERE membership_id = ?;`
		if _, err := db.Exec(query, role, existing.MembershipID); err != nil {
			return nil, err
		}
		return s.GetGroupMembership(db, groupID, userID)
	}

	query := `INSERT INTO group_members (user_id, group_id, group_role, status) VALUES (?, ?, ?, 'active');`
	if _, err := db.Exec(query, userID, groupID, role); err != nil {
		return nil, translateErr(err)
	}
	return s.GetGroupMembership(db, groupID, userID)
}

// GetGroupMembership returns the membership row for the pair, or
// sql.ErrNoRows when none exists.
func (s *Service) GetGroupMembership(db DBorTx, groupID, userID int64) (*GroupMember, error) {
	query := `SELECT membership_id, user_id, group_id, group_role, status, join_date, left_date
		FROM group_members WHERE group_id = ? AND user_id = ?;`
	gm := &GroupMember{}
	err := db.QueryRow(query, groupID, userID).Scan(
		&gm.MembershipID, &gm.UserID, &gm.GroupID, &gm.GroupRole, &gm.Status, &gm.JoinDate, &gm.LeftDate,
	)
	if err != nil {
		return nil, err
	}
	return gm, nil
}

// LeaveGroup marks the membership left and stamps left_date. The row is kept
// for history rather than deleted.
func (s *Service) LeaveGroup(db DBorTx, groupID, userID int64) error {
	query := `UPDATE group_members SET status = 'left', left_date = ?
		WHERE group_id = ? AND user_id = ? AND status = 'active';`
	res, err := db.Exec(query, time.Now().UTC(), groupID, userID)
	if err != nil {
		return translateErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFoundErr("active membership in group", groupID)
	}
	return nil
}

func (s *Service) SetGroupMemberRole(db DBorTx, groupID, userID int64, role string) error {
	if err := checkEnum("group_role", role, groupRoles); err != nil {
		return err
	}
	query := `UPDATE group_members SET group_role = ? WHERE group_id = ? AND user_id = ? AND status = 'active';`
	res, err := db.Exec(query, role, groupID, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFoundErr("active membership in group", groupID)
	}
	return nil
}

func (s *Service) GetMembersByGroupID(db DBorTx, groupID int64) ([]*GroupMember, error) {
	query := `SELECT membership_id, user_id, group_id, group_role, status, join_date, left_date
		FROM group_members WHERE group_id = ? AND status = 'active' ORDER BY join_date;`
	rows, err := db.Query(query, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []*GroupMember
	for rows.Next() {
		gm := &GroupMember{}
		if err := rows.Scan(&gm.MembershipID, &gm.UserID, &gm.GroupID, &gm.GroupRole, &gm.Status, &gm.JoinDate, &gm.LeftDate); err != nil {
			return nil, err
		}
		members = append(members, gm)
	}
	return members, rows.Err()
}

func (s *Service) CountActiveMembers(db DBorTx, groupID int64) (int64, error) {
	var n int64
	err := db.QueryRow(`SELECT COUNT(*) FROM group_members WHERE group_id = ? AND status = 'active';`, groupID).Scan(&n)
	return n, err
}

// --- Join requests ---

// CreateGroupRequest records a pending join request. A user may only have
// one request per group; re-requesting after rejection reopens the old row.
func (s *Service) CreateGroupRequest(db DBorTx, groupID, userID int64, message string) (*GroupRequest, error) {
	if err := checkFK(db, "users", "user_id", "user_id", userID); err != nil {
		return nil, err
	}
	if err := checkFK(db, "group_info", "group_id", "group_id", groupID); err != nil {
		return nil, err
	}

	existing, err := s.getGroupRequestByPair(db, groupID, userID)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	if existing != nil {
		if existing.Status != "rejected" {
			return nil, duplicateErr("group request")
		}
		query := `UPDATE group_requests SET status = 'pending', message = ?, rejection_reason = NULL, requested_at = CURRENT_TIMESTAMP
			WHERE request_id = ?;`
		if _, err := db.Exec(query, nullableStr(message), existing.RequestID); err != nil {
			return nil, err
		}
		return s.GetGroupRequestByID(db, existing.RequestID)
	}

	query := `INSERT INTO group_requests (user_id, group_id, message) VALUES (?, ?, ?);`
	res, err := db.Exec(query, userID, groupID, nullableStr(message))
	if err != nil {
		return nil, translateErr(err)
	}
	id, _ := res.LastInsertId()
	return s.GetGroupRequestByID(db, id)
}

func (s *Service) GetGroupRequestByID(db DBorTx, id int64) (*GroupRequest, error) {
	query := `SELECT request_id, user_id, group_id, message, status, rejection_reason, requested_at
		FROM group_requests WHERE request_id = ?;`
	gr := &GroupRequest{}
	err := db.QueryRow(query, id).Scan(
		&gr.RequestID, &gr.UserID, &gr.GroupID, &gr.Message, &gr.Status, &gr.RejectionReason, &gr.RequestedAt,
	)
	if err == sql.ErrNoRows {
		return nil, notFoundErr("group request", id)
	}
	if err != nil {
		return nil, err
	}
	return gr, nil
}

func (s *Service) getGroupRequestByPair(db DBorTx, groupID, userID int64) (*GroupRequest, error) {
	query := `SELECT request_id, user_id, group_id, message, status, rejection_reason, requested_at
		FROM group_requests WHERE group_id = ? AND user_id = ?;`
	gr := &GroupRequest{}
	err := db.QueryRow(query, groupID, userID).Scan(
		&gr.RequestID, &gr.UserID, &gr.GroupID, &gr.Message, &gr.Status, &gr.RejectionReason, &gr.RequestedAt,
	)
	if err != nil {
		return nil, err
	}
	return gr, nil
}

func (s *Service) ListPendingGroupRequests(db DBorTx, groupID int64) ([]*GroupRequest, error) {
	query := `SELECT request_id, user_id, group_id, message, status, rejection_reason, requested_at
		FROM group_requests WHERE group_id = ? AND status = 'pending' ORDER BY requested_at;`
	rows, err := db.Query(query, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []*GroupRequest
	for rows.Next() {
		gr := &GroupRequest{}
		if err := rows.Scan(&gr.RequestID, &gr.UserID, &gr.GroupID, &gr.Message, &gr.Status, &gr.RejectionReason, &gr.RequestedAt); err != nil {
			return nil, err
		}
		requests = append(requests, gr)
	}
	return requests, rows.Err()
}

// ApproveGroupRequest marks the request approved and enrolls the requester
// as an active member. Must run inside WriteTx so both writes land together.
func (s *Service) ApproveGroupRequest(tx *sql.Tx, requestID int64) (*GroupMember, error) {
	req, err := s.GetGroupRequestByID(tx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != "pending" {
		return nil, constraintErr("request is not pending")
	}

	query := `UPDATE group_requests SET status = 'approved' WHERE request_id = ?;`
	if _, err := tx.Exec(query, requestID); err != nil {
		return nil, err
	}
	return s.AddGroupMember(tx, req.GroupID, req.UserID, "member")
}

func (s *Service) RejectGroupRequest(db DBorTx, requestID int64, reason string) error {
	query := `UPDATE group_requests SET status = 'rejected', rejection_reason = ? WHERE request_id = ? AND status = 'pending';`
	res, err := db.Exec(query, reason, requestID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFoundErr("pending group request", requestID)
	}
	return nil
}
