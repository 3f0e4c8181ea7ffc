package api

import (
	"database/sql"
	"net/http"
)

// handleGetMyNotifications lists the caller's notifications, newest first.
// Pass ?unread=true to filter to unread only.
func (s *Server) handleGetMyNotifications(w http.ResponseWriter, r *http.Request) {
	userID, err := s.getUserIDFromContext(r)
	if err != nil {
		s.errorJSON(w, err, http.StatusUnauthorized)
		return
	}

	unreadOnly := r.URL.Query().Get("unread") == "true"
	notifications, err := s.db.GetNotificationsByUserID(s.db.DB(), userID, unreadOnly)
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"notifications": toNotificationResponseList(notifications)})
}

func (s *Server) handleGetUnreadCount(w http.ResponseWriter, r *http.Request) {
	userID, err := s.getUserIDFromContext(r)
	if err != nil {
		s.errorJSON(w, err, http.StatusUnauthorized)
		return
	}

	count, err := s.db.CountUnreadNotifications(s.db.DB(), userID)
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"count": count})
}

// handleMarkNotificationRead marks one notification as read. The lookup is
// scoped to the caller so users cannot touch each other's notifications.
func (s *Server) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	userID, err := s.getUserIDFromContext(r)
	if err != nil {
		s.errorJSON(w, err, http.StatusUnauthorized)
		return
	}
	notiID, err := s.int64URLParam(r, "notiID")
	if err != nil {
		s.errorJSON(w, err, http.StatusBadRequest)
		return
	}

	err = s.db.WriteTx(func(tx *sql.Tx) error {
		return s.db.MarkNotificationRead(tx, notiID, userID)
	})
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"message": "notification marked read"})
}

func (s *Server) handleMarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	userID, err := s.getUserIDFromContext(r)
	if err != nil {
		s.errorJSON(w, err, http.StatusUnauthorized)
		return
	}

	var marked int64
	err = s.db.WriteTx(func(tx *sql.Tx) error {
		var markErr error
		marked, markErr = s.db.MarkAllNotificationsRead(tx, userID)
		return markErr
	})
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"marked": marked})
}

func (s *Server) handleDeleteNotification(w http.ResponseWriter, r *http.Request) {
	userID, err := s.getUserIDFromContext(r)
	if err != nil {
		s.errorJSON(w, err, http.StatusUnauthorized)
		return
	}
	notiID, err := s.int64URLParam(r, "notiID")
	if err != nil {
		s.errorJSON(w, err, http.StatusBadRequest)
		return
	}

	err = s.db.WriteTx(func(tx *sql.Tx) error {
		return s.db.DeleteNotification(tx, notiID, userID)
	})
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"message": "notification deleted"})
}
