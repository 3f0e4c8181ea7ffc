package api

import (
	"database/sql"
	"log"

	"github.com/eventbridgenz/eventbridge/internal/realtime"
)

// notify stores a notification for the user and, if it was not suppressed by
// their preferences, pushes it over the SSE stream. Delivery problems are
// logged rather than surfaced: the triggering operation has already
// committed.
func (s *Server) notify(userID int64, title, message, category string, relatedID int64) {
	var related sql.NullInt64
	if relatedID != 0 {
		related = sql.NullInt64{Int64: relatedID, Valid: true}
	}

	n, err := s.db.CreateNotification(s.db.DB(), userID, title, message, category, related)
	if err != nil {
		log.Printf("ERROR: could not store notification for user %d: %v", userID, err)
		return
	}
	if n == nil {
		// User has notifications disabled.
		return
	}

	s.broker.NotifyUser(userID, realtime.Message{
		Type:    n.Category,
		Payload: toNotificationResponse(n),
	})
}
