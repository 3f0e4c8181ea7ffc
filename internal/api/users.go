package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/eventbridgenz/eventbridge/internal/auth"
	"github.com/eventbridgenz/eventbridge/internal/database"
)

// handleGetMyProfile returns the authenticated user's own profile.
func (s *Server) handleGetMyProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := s.getUserIDFromContext(r)
	if err != nil {
		s.errorJSON(w, err, http.StatusUnauthorized)
		return
	}

	user, err := s.db.GetUserByID(s.db.DB(), userID)
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"user": toUserResponse(user)})
}

type updateProfilePayload struct {
	Username     *string `json:"username"`
	Email        *string `json:"email"`
	FirstName    *string `json:"firstName"`
	LastName     *string `json:"lastName"`
	Location     *string `json:"location"`
	ProfileImage *string `json:"profileImage"`
	Biography    *string `json:"biography"`
}

// handleUpdateMyProfile applies a partial update to the caller's profile.
// Absent JSON fields are left untouched.
func (s *Server) handleUpdateMyProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := s.getUserIDFromContext(r)
	if err != nil {
		s.errorJSON(w, err, http.StatusUnauthorized)
		return
	}

	var payload updateProfilePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.errorJSON(w, errors.New("bad request: could not decode JSON"), http.StatusBadRequest)
		return
	}

	var user *database.User
	err = s.db.WriteTx(func(tx *sql.Tx) error {
		var updErr error
		user, updErr = s.db.UpdateUserProfile(tx, userID, database.UserProfileUpdate{
			Username:     payload.Username,
			Email:        payload.Email,
			FirstName:    payload.FirstName,
			LastName:     payload.LastName,
			Location:     payload.Location,
			ProfileImage: payload.ProfileImage,
			Biography:    payload.Biography,
		})
		return updErr
	})
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"user": toUserResponse(user)})
}

type changePasswordPayload struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// handleChangeMyPassword verifies the current password before storing a new
// hash.
func (s *Server) handleChangeMyPassword(w http.ResponseWriter, r *http.Request) {
	userID, err := s.getUserIDFromContext(r)
	if err != nil {
		s.errorJSON(w, err, http.StatusUnauthorized)
		return
	}

	var payload changePasswordPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.errorJSON(w, errors.New("bad request: could not decode JSON"), http.StatusBadRequest)
		return
	}
	if len(payload.NewPassword) < 8 {
		s.errorJSON(w, errors.New("password must be at least 8 characters long"), http.StatusBadRequest)
		return
	}

	user, err := s.db.GetUserByID(s.db.DB(), userID)
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	if !auth.CheckPasswordHash(payload.CurrentPassword, user.PasswordHash) {
		s.errorJSON(w, errors.New("current password is incorrect"), http.StatusUnauthorized)
		return
	}

	hashed, err := auth.HashPassword(payload.NewPassword)
	if err != nil {
		s.errorJSON(w, errors.New("internal server error"), http.StatusInternalServerError)
		return
	}
	err = s.db.WriteTx(func(tx *sql.Tx) error {
		return s.db.UpdateUserPassword(tx, userID, hashed)
	})
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"message": "password updated"})
}

type notificationPrefsPayload struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) handleSetNotificationPrefs(w http.ResponseWriter, r *http.Request) {
	userID, err := s.getUserIDFromContext(r)
	if err != nil {
		s.errorJSON(w, err, http.StatusUnauthorized)
		return
	}

	var payload notificationPrefsPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.errorJSON(w, errors.New("bad request: could not decode JSON"), http.StatusBadRequest)
		return
	}

	err = s.db.WriteTx(func(tx *sql.Tx) error {
		return s.db.SetNotificationsEnabled(tx, userID, payload.Enabled)
	})
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"notificationsEnabled": payload.Enabled})
}

// handleDeleteMyProfile removes the caller's account and everything that
// hangs off it.
func (s *Server) handleDeleteMyProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := s.getUserIDFromContext(r)
	if err != nil {
		s.errorJSON(w, err, http.StatusUnauthorized)
		return
	}

	err = s.db.WriteTx(func(tx *sql.Tx) error {
		return s.db.DeleteUser(tx, userID)
	})
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"message": "account deleted"})
}

// --- Admin handlers ---

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.db.ListUsers(s.db.DB(), r.URL.Query().Get("status"))
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"users": toUserResponseList(users)})
}

type banUserPayload struct {
	Reason string `json:"reason"`
}

func (s *Server) handleBanUser(w http.ResponseWriter, r *http.Request) {
	adminID, err := s.getUserIDFromContext(r)
	if err != nil {
		s.errorJSON(w, err, http.StatusUnauthorized)
		return
	}
	targetID, err := s.int64URLParam(r, "userID")
	if err != nil {
		s.errorJSON(w, err, http.StatusBadRequest)
		return
	}
	if targetID == adminID {
		s.errorJSON(w, errors.New("cannot ban your own account"), http.StatusBadRequest)
		return
	}

	var payload banUserPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.errorJSON(w, errors.New("bad request: could not decode JSON"), http.StatusBadRequest)
		return
	}
	if payload.Reason == "" {
		s.errorJSON(w, errors.New("a ban reason is required"), http.StatusBadRequest)
		return
	}

	err = s.db.WriteTx(func(tx *sql.Tx) error {
		return s.db.BanUser(tx, targetID, adminID, payload.Reason)
	})
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"message": "user banned"})
}

func (s *Server) handleUnbanUser(w http.ResponseWriter, r *http.Request) {
	targetID, err := s.int64URLParam(r, "userID")
	if err != nil {
		s.errorJSON(w, err, http.StatusBadRequest)
		return
	}

	err = s.db.WriteTx(func(tx *sql.Tx) error {
		return s.db.UnbanUser(tx, targetID)
	})
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}

	s.notify(targetID, "Account reinstated", "Your account has been reinstated. Welcome back!", "system", 0)
	s.writeJSON(w, http.StatusOK, envelope{"message": "user unbanned"})
}

type setRolePayload struct {
	Role string `json:"role"`
}

func (s *Server) handleSetUserRole(w http.ResponseWriter, r *http.Request) {
	targetID, err := s.int64URLParam(r, "userID")
	if err != nil {
		s.errorJSON(w, err, http.StatusBadRequest)
		return
	}

	var payload setRolePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.errorJSON(w, errors.New("bad request: could not decode JSON"), http.StatusBadRequest)
		return
	}

	err = s.db.WriteTx(func(tx *sql.Tx) error {
		return s.db.SetUserPlatformRole(tx, targetID, payload.Role)
	})
	if err != nil {
		s.dbErrorJSON(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"message": "role updated"})
}

// int64URLParam parses a chi URL parameter as an int64 ID.
func (s *Server) int64URLParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id < 1 {
		return 0, errors.New("invalid " + name + " URL parameter")
	}
	return id, nil
}
