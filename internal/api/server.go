package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/eventbridgenz/eventbridge/internal/config"
	"github.com/eventbridgenz/eventbridge/internal/database"
	"github.com/eventbridgenz/eventbridge/internal/email"
	"github.com/eventbridgenz/eventbridge/internal/realtime"
)

// Server holds all dependencies required by the HTTP handlers: the
// application configuration, the database service, the SSE broker and the
// mail service. Injecting them here keeps the handlers testable.
type Server struct {
	config *config.Config
	db     *database.Service
	broker *realtime.Broker
	email  *email.EmailService
}

// NewServer wires the application's dependencies into a new Server.
func NewServer(cfg *config.Config, db *database.Service, broker *realtime.Broker, email *email.EmailService) *Server {
	return &Server{
		config: cfg,
		db:     db,
		broker: broker,
		email:  email,
	}
}

// envelope is a custom map type used for creating structured JSON responses,
// e.g. envelope{"user": userObject}.
type envelope map[string]interface{}

// writeJSON sends a JSON response with the given status code. All successful
// responses flow through here so the output stays consistent.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}, headers ...http.Header) {
	js, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		http.Error(w, "Internal Server Error: Failed to marshal JSON", http.StatusInternalServerError)
		return
	}

	if len(headers) > 0 {
		for key, value := range headers[0] {
			w.Header()[key] = value
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(js)
}

// errorJSON sends a standardized `{"error": "message"}` response. Defaults
// to 500 when no status is given.
func (s *Server) errorJSON(w http.ResponseWriter, err error, status ...int) {
	statusCode := http.StatusInternalServerError
	if len(status) > 0 {
		statusCode = status[0]
	}

	s.writeJSON(w, statusCode, envelope{"error": err.Error()})
}

// dbErrorJSON maps the database error taxonomy onto HTTP status codes so
// every handler reports integrity failures the same way.
func (s *Server) dbErrorJSON(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		s.errorJSON(w, err, http.StatusNotFound)
	case errors.Is(err, database.ErrDuplicateKey):
		s.errorJSON(w, err, http.StatusConflict)
	case errors.Is(err, database.ErrInvalidEnum),
		errors.Is(err, database.ErrConstraint),
		errors.Is(err, database.ErrForeignKey):
		s.errorJSON(w, err, http.StatusUnprocessableEntity)
	default:
		s.errorJSON(w, errors.New("internal server error"), http.StatusInternalServerError)
	}
}
