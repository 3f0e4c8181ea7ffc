package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/eventbridgenz/eventbridge/internal/auth"
	"github.com/eventbridgenz/eventbridge/internal/database"
)

type registerUserPayload struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Location  string `json:"location"`
}

type loginUserPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleRegisterUser creates a new participant account.
func (s *Server) handleRegisterUser(w http.ResponseWriter, r *http.Request) {
	var payload registerUserPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.errorJSON(w, errors.New("bad request: could not decode JSON"), http.StatusBadRequest)
		return
	}

	if payload.Email == "" || payload.Password == "" || payload.Username == "" {
		s.errorJSON(w, errors.New("username, email, and password are required"), http.StatusBadRequest)
		return
	}
	if len(payload.Password) < 8 {
		s.errorJSON(w, errors.New("password must be at least 8 characters long"), http.StatusBadRequest)
		return
	}

	hashedPassword, err := auth.HashPassword(payload.Password)
	if err != nil {
		s.errorJSON(w, errors.New("internal server error"), http.StatusInternalServerError)
		return
	}

	var location sql.NullString
	if payload.Location != "" {
		location = sql.NullString{String: payload.Location, Valid: true}
	}

	var user *database.User
	err = s.db.WriteTx(func(tx *sql.Tx) error {
		var createErr error
		user, createErr = s.db.CreateUser(tx, database.NewUserParams{
			Username:     payload.Username,
			Email:        payload.Email,
			PasswordHash: hashedPassword,
			FirstName:    payload.FirstName,
			LastName:     payload.LastName,
			Location:     location,
		})
		return createErr
	})
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}

	// Welcome email delivery must not block or fail registration.
	go func() {
		if err := s.email.SendWelcomeEmail(user.Email, user.Username, s.config.FrontendURL); err != nil {
			log.Printf("WARN: could not send welcome email to %s: %v", user.Email, err)
		}
	}()

	s.writeJSON(w, http.StatusCreated, envelope{"user": toUserResponse(user)})
}

// handleLoginUser authenticates an existing user via email/password.
func (s *Server) handleLoginUser(w http.ResponseWriter, r *http.Request) {
	var payload loginUserPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.errorJSON(w, errors.New("bad request: could not decode JSON"), http.StatusBadRequest)
		return
	}

	if payload.Email == "" || payload.Password == "" {
		s.errorJSON(w, errors.New("email and password are required"), http.StatusBadRequest)
		return
	}

	user, err := s.db.GetUserByEmail(s.db.DB(), payload.Email)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			s.errorJSON(w, errors.New("invalid email or password"), http.StatusUnauthorized)
			return
		}
		s.errorJSON(w, errors.New("internal server error"), http.StatusInternalServerError)
		return
	}

	if !auth.CheckPasswordHash(payload.Password, user.PasswordHash) {
		s.errorJSON(w, errors.New("invalid email or password"), http.StatusUnauthorized)
		return
	}

	// Banned accounts cannot open a session.
	if user.Status == "banned" {
		reason := "account suspended"
		if user.BannedReason.Valid {
			reason = "account suspended: " + user.BannedReason.String
		}
		s.errorJSON(w, errors.New(reason), http.StatusForbidden)
		return
	}

	tokenString, err := auth.GenerateJWT(user.UserID, user.PlatformRole, s.config.JwtSecret)
	if err != nil {
		s.errorJSON(w, errors.New("could not generate token"), http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, http.StatusOK, envelope{
		"token": tokenString,
		"user":  toUserResponse(user),
	})
}
