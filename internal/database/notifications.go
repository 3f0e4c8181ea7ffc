package database

import "database/sql"

const notificationColumns = `noti_id, user_id, title, message, category, related_id, is_read, created_at`

// CreateNotification stores a notification for the user unless they have
// opted out. Suppressed deliveries return (nil, nil) rather than an error so
// callers can loop over recipients without special-casing.
func (s *Service) CreateNotification(db DBorTx, userID int64, title, message, category string, relatedID sql.NullInt64) (*Notification, error) {
	if category == "" {
		category = "system"
	}
	if err := checkEnum("category", category, notificationKinds); err != nil {
		return nil, err
	}

	var enabled bool
	err := db.QueryRow(`SELECT notifications_enabled FROM users WHERE user_id = ?;`, userID).Scan(&enabled)
	if err == sql.ErrNoRows {
		return nil, fkErr("user_id", userID)
	}
	if err != nil {
		return nil, err
	}
	if !enabled {
		return nil, nil
	}

	query := `INSERT INTO notifications (user_id, title, message, category, related_id) VALUES (?, ?, ?, ?, ?);`
	res, err := db.Exec(query, userID, title, message, category, relatedID)
	if err != nil {
		return nil, translateErr(err)
	}
	id, _ := res.LastInsertId()
	return s.GetNotificationByID(db, id)
}

func (s *Service) GetNotificationByID(db DBorTx, id int64) (*Notification, error) {
	n := &Notification{}
	err := db.QueryRow(`SELECT `+notificationColumns+` FROM notifications WHERE noti_id = ?;`, id).Scan(
		&n.NotiID, &n.UserID, &n.Title, &n.Message, &n.Category, &n.RelatedID, &n.IsRead, &n.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, notFoundErr("notification", id)
	}
	if err != nil {
		return nil, err
	}
	return n, nil
}

// GetNotificationsByUserID returns the user's notifications newest first,
// optionally only unread ones.
func (s *Service) GetNotificationsByUserID(db DBorTx, userID int64, unreadOnly bool) ([]*Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE user_id = ?`
	if unreadOnly {
		query += ` AND is_read = 0`
	}
	query += ` ORDER BY created_at DESC, noti_id DESC;`

	rows, err := db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []*Notification
	for rows.Next() {
		n := &Notification{}
		if err := rows.Scan(&n.NotiID, &n.UserID, &n.Title, &n.Message, &n.Category, &n.RelatedID, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (s *Service) CountUnreadNotifications(db DBorTx, userID int64) (int64, error) {
	var n int64
	err := db.QueryRow(`SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = 0;`, userID).Scan(&n)
	return n, err
}

// MarkNotificationRead flips a single notification to read. The user ID
// guards against marking someone else's notification.
func (s *Service) MarkNotificationRead(db DBorTx, notiID, userID int64) error {
	res, err := db.Exec(`UPDATE notifications SET is_read = 1 WHERE noti_id = ? AND user_id = ?;`, notiID, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFoundErr("notification", notiID)
	}
	return nil
}

func (s *Service) MarkAllNotificationsRead(db DBorTx, userID int64) (int64, error) {
	res, err := db.Exec(`UPDATE notifications SET is_read = 1 WHERE user_id = ? AND is_read = 0;`, userID)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (s *Service) DeleteNotification(db DBorTx, notiID, userID int64) error {
	res, err := db.Exec(`DELETE FROM notifications WHERE noti_id = ? AND user_id = ?;`, notiID, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFoundErr("notification", notiID)
	}
	return nil
}
