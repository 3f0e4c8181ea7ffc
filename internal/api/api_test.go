package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/eventbridgenz/eventbridge/internal/config"
	"github.com/eventbridgenz/eventbridge/internal/database"
	"github.com/eventbridgenz/eventbridge/internal/email"
	"github.com/eventbridgenz/eventbridge/internal/realtime"

	"github.com/go-chi/chi/v5"
)

// newTestServer spins up the full HTTP stack over an in-memory database.
func newTestServer(t *testing.T) (*httptest.Server, *database.Service) {
	t.Helper()

	db, err := database.NewService("file::memory:")
	if err != nil {
		t.Fatalf("could not open in-memory database: %v", err)
	}
	db.DB().SetMaxOpenConns(1)
	if err := db.InitSchema(); err != nil {
		t.Fatalf("could not initialize schema: %v", err)
	}
	t.Cleanup(db.Close)

	cfg := &config.Config{
		JwtSecret:   "api-test-secret",
		FrontendURL: "http://localhost:5173",
	}
	srv := NewServer(cfg, db, realtime.NewBroker(), email.NewEmailService(email.SMTPServerConfig{}))

	router := chi.NewRouter()
	srv.RegisterRoutes(router)

	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return ts, db
}

// doJSON issues a request with an optional bearer token and decodes the
// envelope response.
func doJSON(t *testing.T, method, url, token string, body interface{}) (int, map[string]json.RawMessage) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("could not marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("could not build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var out map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("could not decode response: %v", err)
	}
	return resp.StatusCode, out
}

func registerAndLogin(t *testing.T, ts *httptest.Server, username string) string {
	t.Helper()

	status, _ := doJSON(t, http.MethodPost, ts.URL+"/api/v1/users/register", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "hunter2hunter2",
	})
	if status != http.StatusCreated {
		t.Fatalf("register returned status %d", status)
	}
	return login(t, ts, username)
}

func login(t *testing.T, ts *httptest.Server, username string) string {
	t.Helper()

	status, out := doJSON(t, http.MethodPost, ts.URL+"/api/v1/users/login", "", map[string]string{
		"email":    username + "@example.com",
		"password": "hunter2hunter2",
	})
	if status != http.StatusOK {
		t.Fatalf("login returned status %d", status)
	}
	var token string
	if err := json.Unmarshal(out["token"], &token); err != nil || token == "" {
		t.Fatalf("login response has no token: %v", err)
	}
	return token
}

func TestRegisterLoginAndProfile(t *testing.T) {
	ts, _ := newTestServer(t)

	token := registerAndLogin(t, ts, "kereru")

	status, out := doJSON(t, http.MethodGet, ts.URL+"/api/v1/users/me", token, nil)
	if status != http.StatusOK {
		t.Fatalf("profile returned status %d", status)
	}
	var user struct {
		Username string `json:"username"`
		Role     string `json:"platformRole"`
	}
	if err := json.Unmarshal(out["user"], &user); err != nil {
		t.Fatalf("could not decode user: %v", err)
	}
	if user.Username != "kereru" {
		t.Errorf("username = %q, want kereru", user.Username)
	}
	if user.Role != "participant" {
		t.Errorf("platformRole = %q, want participant", user.Role)
	}
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	ts, _ := newTestServer(t)

	status, _ := doJSON(t, http.MethodPost, ts.URL+"/api/v1/users/register", "", map[string]string{
		"username": "tui",
		"email":    "tui@example.com",
		"password": "short",
	})
	if status != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", status, http.StatusBadRequest)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	ts, _ := newTestServer(t)
	registerAndLogin(t, ts, "weka")

	status, _ := doJSON(t, http.MethodPost, ts.URL+"/api/v1/users/login", "", map[string]string{
		"email":    "weka@example.com",
		"password": "not-the-password",
	})
	if status != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", status, http.StatusUnauthorized)
	}
}

func TestAuthMiddlewareRejectsMissingToken(t *testing.T) {
	ts, _ := newTestServer(t)

	status, _ := doJSON(t, http.MethodGet, ts.URL+"/api/v1/users/me", "", nil)
	if status != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", status, http.StatusUnauthorized)
	}
}

func TestDuplicateUsernameConflicts(t *testing.T) {
	ts, _ := newTestServer(t)
	registerAndLogin(t, ts, "pukeko")

	status, _ := doJSON(t, http.MethodPost, ts.URL+"/api/v1/users/register", "", map[string]string{
		"username": "pukeko",
		"email":    "other@example.com",
		"password": "hunter2hunter2",
	})
	if status != http.StatusConflict {
		t.Errorf("status = %d, want %d", status, http.StatusConflict)
	}
}

// promote flips a user's platform role directly in the database so the test
// can mint an admin or technician token on the next login.
func promote(t *testing.T, db *database.Service, username, role string) {
	t.Helper()

	user, err := db.GetUserByUsername(db.DB(), username)
	if err != nil {
		t.Fatalf("could not look up %s: %v", username, err)
	}
	if err := db.SetUserPlatformRole(db.DB(), user.UserID, role); err != nil {
		t.Fatalf("could not promote %s: %v", username, err)
	}
}

func TestGroupApprovalFlow(t *testing.T) {
	ts, db := newTestServer(t)

	creatorToken := registerAndLogin(t, ts, "creator")
	registerAndLogin(t, ts, "admin")
	promote(t, db, "admin", "super_admin")
	adminToken := login(t, ts, "admin")

	status, out := doJSON(t, http.MethodPost, ts.URL+"/api/v1/groups", creatorToken, map[string]interface{}{
		"name":      "Harbour Runners",
		"groupType": "activity",
	})
	if status != http.StatusCreated {
		t.Fatalf("create group returned status %d", status)
	}
	var group struct {
		GroupID int64  `json:"id"`
		Status  string `json:"status"`
	}
	if err := json.Unmarshal(out["group"], &group); err != nil {
		t.Fatalf("could not decode group: %v", err)
	}
	if group.Status != "pending" {
		t.Fatalf("new group status = %q, want pending", group.Status)
	}

	// A plain participant cannot approve groups.
	approveURL := fmt.Sprintf("%s/api/v1/admin/groups/%d/approve", ts.URL, group.GroupID)
	if status, _ := doJSON(t, http.MethodPut, approveURL, creatorToken, nil); status != http.StatusForbidden {
		t.Fatalf("participant approve returned status %d, want %d", status, http.StatusForbidden)
	}

	if status, _ := doJSON(t, http.MethodPut, approveURL, adminToken, nil); status != http.StatusOK {
		t.Fatalf("admin approve returned status %d", status)
	}

	// The approved group is now publicly listed.
	status, out = doJSON(t, http.MethodGet, ts.URL+"/api/v1/groups", "", nil)
	if status != http.StatusOK {
		t.Fatalf("list groups returned status %d", status)
	}
	var groups []struct {
		Name   string `json:"name"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(out["groups"], &groups); err != nil {
		t.Fatalf("could not decode groups: %v", err)
	}
	if len(groups) != 1 || groups[0].Status != "approved" {
		t.Fatalf("public listing = %+v, want one approved group", groups)
	}
}

func TestJoinRequestScopedToItsGroup(t *testing.T) {
	ts, db := newTestServer(t)

	malloryToken := registerAndLogin(t, ts, "mallory")
	victimToken := registerAndLogin(t, ts, "victim")
	joinerToken := registerAndLogin(t, ts, "joiner")
	registerAndLogin(t, ts, "root")
	promote(t, db, "root", "super_admin")
	adminToken := login(t, ts, "root")

	createGroup := func(token, name string, public bool) int64 {
		t.Helper()
		status, out := doJSON(t, http.MethodPost, ts.URL+"/api/v1/groups", token, map[string]interface{}{
			"name":      name,
			"groupType": "social",
			"isPublic":  public,
		})
		if status != http.StatusCreated {
			t.Fatalf("create group %s returned status %d", name, status)
		}
		var group struct {
			ID int64 `json:"id"`
		}
		if err := json.Unmarshal(out["group"], &group); err != nil {
			t.Fatalf("could not decode group: %v", err)
		}
		approveURL := fmt.Sprintf("%s/api/v1/admin/groups/%d/approve", ts.URL, group.ID)
		if status, _ := doJSON(t, http.MethodPut, approveURL, adminToken, nil); status != http.StatusOK {
			t.Fatalf("approve group %s returned status %d", name, status)
		}
		return group.ID
	}

	groupA := createGroup(malloryToken, "Mallory's Club", true)
	groupB := createGroup(victimToken, "Victim's Circle", false)

	status, out := doJSON(t, http.MethodPost, fmt.Sprintf("%s/api/v1/groups/%d/requests", ts.URL, groupB), joinerToken, nil)
	if status != http.StatusCreated {
		t.Fatalf("join request returned status %d", status)
	}
	var request struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(out["request"], &request); err != nil {
		t.Fatalf("could not decode request: %v", err)
	}

	// A manager of another group cannot decide this request through their
	// own group's path.
	wrongApprove := fmt.Sprintf("%s/api/v1/groups/%d/requests/%d/approve", ts.URL, groupA, request.ID)
	if status, _ := doJSON(t, http.MethodPost, wrongApprove, malloryToken, nil); status != http.StatusNotFound {
		t.Fatalf("cross-group approve returned status %d, want %d", status, http.StatusNotFound)
	}
	wrongReject := fmt.Sprintf("%s/api/v1/groups/%d/requests/%d/reject", ts.URL, groupA, request.ID)
	if status, _ := doJSON(t, http.MethodPost, wrongReject, malloryToken, map[string]string{
		"reason": "not my group",
	}); status != http.StatusNotFound {
		t.Fatalf("cross-group reject returned status %d, want %d", status, http.StatusNotFound)
	}

	joiner, err := db.GetUserByUsername(db.DB(), "joiner")
	if err != nil {
		t.Fatalf("could not look up joiner: %v", err)
	}
	if _, err := db.GetGroupMembership(db.DB(), groupB, joiner.UserID); err == nil {
		t.Fatal("joiner gained a membership without the group's manager deciding")
	}

	// The group's own manager can still approve it.
	rightApprove := fmt.Sprintf("%s/api/v1/groups/%d/requests/%d/approve", ts.URL, groupB, request.ID)
	if status, _ := doJSON(t, http.MethodPost, rightApprove, victimToken, nil); status != http.StatusOK {
		t.Fatalf("manager approve returned status %d", status)
	}
	member, err := db.GetGroupMembership(db.DB(), groupB, joiner.UserID)
	if err != nil {
		t.Fatalf("membership missing after approval: %v", err)
	}
	if member.Status != "active" {
		t.Errorf("membership status = %q, want active", member.Status)
	}
}

func TestEventRegistrationFlow(t *testing.T) {
	ts, db := newTestServer(t)

	creatorToken := registerAndLogin(t, ts, "organiser")
	runnerToken := registerAndLogin(t, ts, "runner")
	registerAndLogin(t, ts, "boss")
	promote(t, db, "boss", "super_admin")
	adminToken := login(t, ts, "boss")

	_, out := doJSON(t, http.MethodPost, ts.URL+"/api/v1/groups", creatorToken, map[string]interface{}{
		"name":      "Trail Collective",
		"groupType": "activity",
	})
	var group struct {
		GroupID int64 `json:"id"`
	}
	if err := json.Unmarshal(out["group"], &group); err != nil {
		t.Fatalf("could not decode group: %v", err)
	}
	approveURL := fmt.Sprintf("%s/api/v1/admin/groups/%d/approve", ts.URL, group.GroupID)
	if status, _ := doJSON(t, http.MethodPut, approveURL, adminToken, nil); status != http.StatusOK {
		t.Fatalf("approve returned status %d", status)
	}

	eventsURL := fmt.Sprintf("%s/api/v1/groups/%d/events", ts.URL, group.GroupID)
	status, out := doJSON(t, http.MethodPost, eventsURL, creatorToken, map[string]interface{}{
		"title": "Night Relay",
		"date":  "2026-11-07",
	})
	if status != http.StatusCreated {
		t.Fatalf("create event returned status %d", status)
	}
	var event struct {
		EventID int64 `json:"id"`
	}
	if err := json.Unmarshal(out["event"], &event); err != nil {
		t.Fatalf("could not decode event: %v", err)
	}

	// Only group managers may create events.
	if status, _ := doJSON(t, http.MethodPost, eventsURL, runnerToken, map[string]interface{}{
		"title": "Rogue Event",
		"date":  "2026-11-08",
	}); status != http.StatusForbidden {
		t.Fatalf("non-manager create returned status %d, want %d", status, http.StatusForbidden)
	}

	registerURL := fmt.Sprintf("%s/api/v1/events/%d/register", ts.URL, event.EventID)
	if status, _ := doJSON(t, http.MethodPost, registerURL, runnerToken, nil); status != http.StatusCreated {
		t.Fatalf("event registration returned status %d", status)
	}
	// Registering twice is a conflict.
	if status, _ := doJSON(t, http.MethodPost, registerURL, runnerToken, nil); status != http.StatusConflict {
		t.Fatalf("duplicate registration returned status %d, want %d", status, http.StatusConflict)
	}
}

func TestHelpdeskQueueIsGated(t *testing.T) {
	ts, db := newTestServer(t)

	userToken := registerAndLogin(t, ts, "asker")
	registerAndLogin(t, ts, "fixer")
	promote(t, db, "fixer", "support_technician")
	techToken := login(t, ts, "fixer")

	status, _ := doJSON(t, http.MethodPost, ts.URL+"/api/v1/help-requests", userToken, map[string]string{
		"category":    "technical_issue",
		"title":       "Cannot upload avatar",
		"description": "The button does nothing.",
	})
	if status != http.StatusCreated {
		t.Fatalf("create help request returned status %d", status)
	}

	if status, _ := doJSON(t, http.MethodGet, ts.URL+"/api/v1/helpdesk/requests", userToken, nil); status != http.StatusForbidden {
		t.Fatalf("participant queue access returned status %d, want %d", status, http.StatusForbidden)
	}

	status, out := doJSON(t, http.MethodGet, ts.URL+"/api/v1/helpdesk/requests", techToken, nil)
	if status != http.StatusOK {
		t.Fatalf("technician queue access returned status %d", status)
	}
	var requests []struct {
		Title  string `json:"title"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(out["requests"], &requests); err != nil {
		t.Fatalf("could not decode requests: %v", err)
	}
	if len(requests) != 1 || requests[0].Status != "new" {
		t.Fatalf("queue = %+v, want one new ticket", requests)
	}
}
