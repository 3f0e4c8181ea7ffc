package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RegisterRoutes sets up all the API endpoints and middleware for the application.
func (s *Server) RegisterRoutes(r *chi.Mux) {
	// --- Global Middleware (Applied to ALL routes) ---
	r.Use(middleware.Logger)    // Logs incoming requests
	r.Use(middleware.Recoverer) // Recovers from panics and returns a 500 error

	// --- REST API Group with CORS ---
	// All routes defined within this group are prefixed with "/api/v1".
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			// In production, you would tighten this to your frontend's domain.
			AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000", s.config.FrontendURL},
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300, // How long the browser can cache preflight results
		}))

		// Auth routes
		r.Post("/users/register", s.handleRegisterUser)
		r.Post("/users/login", s.handleLoginUser)

		// Public data routes: the approved, public group directory.
		r.Get("/groups", s.handleListGroups)
		r.Get("/groups/{groupID}", s.handleGetGroupDetails)
		r.Get("/groups/{groupID}/events", s.handleGetGroupEvents)
		r.Get("/events/{eventID}", s.handleGetEventDetails)
		r.Get("/events/{eventID}/results", s.handleGetEventResults)

		// --- Authenticated REST Routes ---
		// Every route inside this group first passes through authMiddleware,
		// which checks for a valid JWT.
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			// Authenticated endpoint for establishing the notification stream.
			r.Get("/notifications/stream", s.handleSSE)

			// User Routes
			r.Get("/users/me", s.handleGetMyProfile)
			r.Patch("/users/me", s.handleUpdateMyProfile)
			r.Delete("/users/me", s.handleDeleteMyProfile)
			r.Put("/users/me/password", s.handleChangeMyPassword)
			r.Put("/users/me/notification-prefs", s.handleSetNotificationPrefs)
			r.Get("/users/me/groups", s.handleGetMyGroups)
			r.Get("/users/me/activity", s.handleGetMyActivity)
			r.Get("/users/me/help-requests", s.handleGetMyHelpRequests)

			// Group Routes
			r.Post("/groups", s.handleCreateGroup)
			r.Patch("/groups/{groupID}", s.handleUpdateGroup)
			r.Post("/groups/{groupID}/submit", s.handleSubmitGroup)
			r.Delete("/groups/{groupID}", s.handleDeleteGroup)
			r.Get("/groups/{groupID}/members", s.handleGetGroupMembers)
			r.Post("/groups/{groupID}/join", s.handleJoinGroup)
			r.Post("/groups/{groupID}/leave", s.handleLeaveGroup)
			r.Put("/groups/{groupID}/deactivate", s.handleDeactivateGroup)
			r.Put("/groups/{groupID}/members/{memberID}/role", s.handleSetGroupMemberRole)
			r.Get("/groups/{groupID}/activity", s.handleGetGroupActivity)

			// Join Request Routes
			r.Post("/groups/{groupID}/requests", s.handleCreateGroupRequest)
			r.Get("/groups/{groupID}/requests", s.handleListGroupRequests)
			r.Post("/groups/{groupID}/requests/{requestID}/approve", s.handleApproveGroupRequest)
			r.Post("/groups/{groupID}/requests/{requestID}/reject", s.handleRejectGroupRequest)

			// Event Routes
			r.Post("/groups/{groupID}/events", s.handleCreateEvent)
			r.Patch("/events/{eventID}", s.handleUpdateEvent)
			r.Put("/events/{eventID}/status", s.handleSetEventStatus)
			r.Delete("/events/{eventID}", s.handleDeleteEvent)

			// Participation & Volunteer Routes
			r.Post("/events/{eventID}/register", s.handleRegisterForEvent)
			r.Delete("/events/{eventID}/register", s.handleCancelRegistration)
			r.Post("/events/{eventID}/volunteer", s.handleVolunteerForEvent)
			r.Put("/memberships/{membershipID}/participation", s.handleSetAttendance)
			r.Put("/memberships/{membershipID}/volunteer-status", s.handleSetVolunteerStatus)
			r.Put("/memberships/{membershipID}/volunteer-hours", s.handleRecordVolunteerHours)

			// Race Result Routes
			r.Put("/memberships/{membershipID}/result", s.handleRecordRaceResult)
			r.Delete("/memberships/{membershipID}/result", s.handleDeleteRaceResult)

			// Helpdesk Routes (requester side)
			r.Post("/help-requests", s.handleCreateHelpRequest)
			r.Get("/help-requests/{requestID}", s.handleGetHelpRequestDetails)
			r.Post("/help-requests/{requestID}/replies", s.handleCreateHelpReply)

			// Notification Routes
			r.Get("/notifications", s.handleGetMyNotifications)
			r.Get("/notifications/unread-count", s.handleGetUnreadCount)
			r.Put("/notifications/read-all", s.handleMarkAllNotificationsRead)
			r.Put("/notifications/{notiID}/read", s.handleMarkNotificationRead)
			r.Delete("/notifications/{notiID}", s.handleDeleteNotification)

			// Platform administration
			r.Group(func(r chi.Router) {
				r.Use(s.requireRole("super_admin"))

				r.Get("/admin/users", s.handleListUsers)
				r.Put("/admin/users/{userID}/ban", s.handleBanUser)
				r.Put("/admin/users/{userID}/unban", s.handleUnbanUser)
				r.Put("/admin/users/{userID}/role", s.handleSetUserRole)
				r.Get("/admin/users/{userID}/activity", s.handleGetUserActivity)
				r.Get("/admin/activity/users", s.handleListUserActivity)
				r.Get("/admin/activity/groups", s.handleListGroupActivity)

				r.Get("/admin/groups/pending", s.handleListPendingGroups)
				r.Put("/admin/groups/{groupID}/approve", s.handleApproveGroup)
				r.Put("/admin/groups/{groupID}/reject", s.handleRejectGroup)
			})

			// Helpdesk queue for support staff
			r.Group(func(r chi.Router) {
				r.Use(s.requireRole("support_technician", "super_admin"))

				r.Get("/helpdesk/requests", s.handleListHelpRequests)
				r.Post("/helpdesk/requests/{requestID}/assign", s.handleAssignHelpRequest)
				r.Put("/helpdesk/requests/{requestID}/status", s.handleSetHelpRequestStatus)
				r.Put("/helpdesk/requests/{requestID}/priority", s.handleSetHelpRequestPriority)
			})
		})
	})
}
