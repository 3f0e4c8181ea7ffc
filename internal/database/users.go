package database

import (
	"database/sql"
	"strings"
	"time"
)

const userColumns = `user_id, username, email, password_hash, first_name, last_name,
	location, profile_image, biography, platform_role, status, notifications_enabled,
	banned_reason, banned_by, banned_at, created_at`

func scanUser(row *sql.Row) (*User, error) {
	user := &User{}
	err := row.Scan(
		&user.UserID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.Location,
		&user.ProfileImage,
		&user.Biography,
		&user.PlatformRole,
		&user.Status,
		&user.NotificationsEnabled,
		&user.BannedReason,
		&user.BannedBy,
		&user.BannedAt,
		&user.CreatedAt,
	)
	return user, err
}

// NewUserParams carries the caller-supplied fields for CreateUser. Zero-value
// optional fields are stored as NULL.
type NewUserParams struct {
	Username     string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Location     sql.NullString
	ProfileImage sql.NullString
	Biography    sql.NullString
	PlatformRole string
}

func (s *Service) CreateUser(db DBorTx, p NewUserParams) (*User, error) {
	if p.PlatformRole == "" {
		p.PlatformRole = "participant"
	}
	if err := checkEnum("platform_role", p.PlatformRole, platformRoles); err != nil {
		return nil, err
	}
	if taken, err := s.usernameOrEmailTaken(db, p.Username, p.Email, 0); err != nil {
		return nil, err
	} else if taken != "" {
		return nil, duplicateErr(taken)
	}

	query := `INSERT INTO users (username, email, password_hash, first_name, last_name, location, profile_image, biography, platform_role)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);`
	res, err := db.Exec(query, p.Username, p.Email, p.PasswordHash, p.FirstName, p.LastName, p.Location, p.ProfileImage, p.Biography, p.PlatformRole)
	if err != nil {
		return nil, translateErr(err)
	}
	id, _ := res.LastInsertId()
	return s.GetUserByID(db, id)
}

// usernameOrEmailTaken reports which identity field collides with an existing
// user, excluding the user with exceptID (0 for inserts). Returns "" when
// both are free.
func (s *Service) usernameOrEmailTaken(db DBorTx, username, email string, exceptID int64) (string, error) {
	var id int64
	err := db.QueryRow(`SELECT user_id FROM users WHERE username = ? AND user_id != ?`, username, exceptID).Scan(&id)
	if err == nil {
		return "username", nil
	}
	if err != sql.ErrNoRows {
		return "", err
	}
	err = db.QueryRow(`SELECT user_id FROM users WHERE email = ? AND user_id != ?`, email, exceptID).Scan(&id)
	if err == nil {
		return "email", nil
	}
	if err != sql.ErrNoRows {
		return "", err
	}
	return "", nil
}

func (s *Service) GetUserByID(db DBorTx, id int64) (*User, error) {
	user, err := scanUser(db.QueryRow(`SELECT `+userColumns+` FROM users WHERE user_id = ?;`, id))
	if err == sql.ErrNoRows {
		return nil, notFoundErr("user", id)
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) GetUserByUsername(db DBorTx, username string) (*User, error) {
	user, err := scanUser(db.QueryRow(`SELECT `+userColumns+` FROM users WHERE username = ?;`, username))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) GetUserByEmail(db DBorTx, email string) (*User, error) {
	user, err := scanUser(db.QueryRow(`SELECT `+userColumns+` FROM users WHERE email = ?;`, email))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// UserProfileUpdate holds the mutable profile fields. Nil pointers mean
// "leave unchanged"; a non-nil pointer to an empty string clears the field.
type UserProfileUpdate struct {
	Username     *string
	Email        *string
	FirstName    *string
	LastName     *string
	Location     *string
	ProfileImage *string
	Biography    *string
}

func (s *Service) UpdateUserProfile(db DBorTx, userID int64, up UserProfileUpdate) (*User, error) {
	current, err := s.GetUserByID(db, userID)
	if err != nil {
		return nil, err
	}

	username, email := current.Username, current.Email
	if up.Username != nil {
		username = *up.Username
	}
	if up.Email != nil {
		email = *up.Email
	}
	if taken, err := s.usernameOrEmailTaken(db, username, email, userID); err != nil {
		return nil, err
	} else if taken != "" {
		return nil, duplicateErr(taken)
	}

	var queryBuilder strings.Builder
	queryBuilder.WriteString("UPDATE users SET ")
	var args []interface{}
	set := func(col string, val interface{}) {
		if len(args) > 0 {
			queryBuilder.WriteString(", ")
		}
		queryBuilder.WriteString(col + " = ?")
		args = append(args, val)
	}
	if up.Username != nil {
		set("username", *up.Username)
	}
	if up.Email != nil {
		set("email", *up.Email)
	}
	if up.FirstName != nil {
		set("first_name", *up.FirstName)
	}
	if up.LastName != nil {
		set("last_name", *up.LastName)
	}
	if up.Location != nil {
		set("location", nullableStr(*up.Location))
	}
	if up.ProfileImage != nil {
		set("profile_image", nullableStr(*up.ProfileImage))
	}
	if up.Biography != nil {
		set("biography", nullableStr(*up.Biography))
	}
	if len(args) == 0 {
		return current, nil
	}
	queryBuilder.WriteString(" WHERE user_id = ?;")
	args = append(args, userID)

	if _, err := db.Exec(queryBuilder.String(), args...); err != nil {
		return nil, translateErr(err)
	}
	return s.GetUserByID(db, userID)
}

func nullableStr(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func (s *Service) UpdateUserPassword(db DBorTx, userID int64, passwordHash string) error {
	res, err := db.Exec(`UPDATE users SET password_hash = ? WHERE user_id = ?;`, passwordHash, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFoundErr("user", userID)
	}
	return nil
}

func (s *Service) SetUserPlatformRole(db DBorTx, userID int64, role string) error {
	if err := checkEnum("platform_role", role, platformRoles); err != nil {
		return err
	}
	res, err := db.Exec(`UPDATE users SET platform_role = ? WHERE user_id = ?;`, role, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFoundErr("user", userID)
	}
	return nil
}

func (s *Service) SetNotificationsEnabled(db DBorTx, userID int64, enabled bool) error {
	res, err := db.Exec(`UPDATE users SET notifications_enabled = ? WHERE user_id = ?;`, enabled, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFoundErr("user", userID)
	}
	return nil
}

// BanUser marks the account banned and records who did it and why. Banned
// users drop out of the user activity view until unbanned.
func (s *Service) BanUser(db DBorTx, userID, bannedBy int64, reason string) error {
	if err := checkFK(db, "users", "user_id", "banned_by", bannedBy); err != nil {
		return err
	}
	query := `UPDATE users SET status = 'banned', banned_reason = ?, banned_by = ?, banned_at = ? WHERE user_id = ?;`
	res, err := db.Exec(query, reason, bannedBy, time.Now().UTC(), userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFoundErr("user", userID)
	}
	return nil
}

func (s *Service) UnbanUser(db DBorTx, userID int64) error {
	query := `UPDATE users SET status = 'active', banned_reason = NULL, banned_by = NULL, banned_at = NULL WHERE user_id = ?;`
	res, err := db.Exec(query, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFoundErr("user", userID)
	}
	return nil
}

// DeleteUser removes the account. The schema cascades through memberships,
// requests, help requests, replies and notifications, and nulls out
// banned_by, assigned_to and recorded_by references pointing at this user.
func (s *Service) DeleteUser(db DBorTx, userID int64) error {
	res, err := db.Exec(`DELETE FROM users WHERE user_id = ?;`, userID)
	if err != nil {
		return translateErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFoundErr("user", userID)
	}
	return nil
}

func (s *Service) ListUsers(db DBorTx, status string) ([]*User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	var args []interface{}
	if status != "" {
		if err := checkEnum("status", status, userStatuses); err != nil {
			return nil, err
		}
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC;`

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		user := &User{}
		if err := rows.Scan(
			&user.UserID, &user.Username, &user.Email, &user.PasswordHash,
			&user.FirstName, &user.LastName, &user.Location, &user.ProfileImage,
			&user.Biography, &user.PlatformRole, &user.Status, &user.NotificationsEnabled,
			&user.BannedReason, &user.BannedBy, &user.BannedAt, &user.CreatedAt,
		); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}
