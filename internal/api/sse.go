package api

import (
	"errors"
	"fmt"
	"net/http"
)

// handleSSE streams real-time notifications to the client over Server-Sent
// Events. The connection is held open until the client goes away; messages
// arrive on the broker channel registered for the user.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	userID, err := s.getUserIDFromContext(r)
	if err != nil {
		s.errorJSON(w, err, http.StatusUnauthorized)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.errorJSON(w, errors.New("streaming unsupported"), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	clientChan := s.broker.AddClient(userID)
	defer s.broker.RemoveClient(userID)

	// Initial comment so proxies flush the headers immediately.
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case msg, open := <-clientChan:
			if !open {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
