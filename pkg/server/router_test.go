package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"oms-backend/pkg/cache"
	"oms-backend/pkg/config"
	"oms-backend/pkg/database"
	"oms-backend/pkg/models"
	"oms-backend/pkg/storage"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Meta *struct {
		Total  int `json:"total"`
		Unread int `json:"unread"`
	} `json:"meta"`
}

type testServer struct {
	t       *testing.T
	handler http.Handler
	app     *App
	db      *database.LocalDatabase
	store   *storage.MemoryStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	serviceHash, err := bcrypt.GenerateFromPassword([]byte("internal-key"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash service key: %v", err)
	}
	cfg := &config.Config{
		Environment:       "test",
		JWTSecret:         "test-secret",
		AllowedOrigins:    []string{"*"},
		ServiceAPIKeyHash: string(serviceHash),
		MaxUploadBytes:    1 << 20,
	}
	db := database.NewMemoryDatabase()
	store := storage.NewMemoryStore("oms-bucket", "us-east-1")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	app, err := NewApp(context.Background(), cfg, logger, db, Options{
		InlineEvents: true,
		Cache:        cache.NewMemoryCache(),
		Store:        store,
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	t.Cleanup(func() { _ = app.Close() })
	return &testServer{t: t, handler: NewRouter(app), app: app, db: db, store: store}
}

func (s *testServer) do(method, path, token string, body interface{}) (int, envelope) {
	s.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			s.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec.Code, decodeEnvelope(s.t, rec)
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return env
}

func (s *testServer) register(email string, role models.Role, orgName string) models.UserLoginResponse {
	s.t.Helper()

	body := map[string]interface{}{
		"email":    email,
		"password": "correct-horse",
		"name":     strings.Split(email, "@")[0],
		"role":     role,
	}
	if orgName != "" {
		body["organizationName"] = orgName
	}
	code, env := s.do(http.MethodPost, "/api/auth/register", "", body)
	if code != http.StatusCreated {
		s.t.Fatalf("register %s: status %d: %+v", email, code, env.Error)
	}
	var resp models.UserLoginResponse
	if err := json.Unmarshal(env.Data, &resp); err != nil {
		s.t.Fatalf("decode login response: %v", err)
	}
	return resp
}

func (s *testServer) seedAdmin() string {
	s.t.Helper()

	admin := &models.User{Email: "admin@example.com", Name: "Admin", Role: models.RoleAdmin, Provider: "email"}
	if err := s.db.CreateUser(context.Background(), admin); err != nil {
		s.t.Fatalf("seed admin: %v", err)
	}
	pair, err := s.app.JWT.GenerateTokenPair(admin)
	if err != nil {
		s.t.Fatalf("admin token: %v", err)
	}
	return pair.AccessToken
}

func decodeData(t *testing.T, env envelope, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("decode data %s: %v", env.Data, err)
	}
}

func TestHealthAndFallbacks(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	code, env := s.do(http.MethodGet, "/healthz", "", nil)
	if code != http.StatusOK {
		t.Fatalf("healthz status = %d", code)
	}
	var health map[string]interface{}
	decodeData(t, env, &health)
	if health["service"] != "oms-backend" || health["database"] != "local" || health["status"] != "healthy" {
		t.Fatalf("unexpected health payload: %v", health)
	}

	if code, env := s.do(http.MethodGet, "/api/nope", "", nil); code != http.StatusNotFound || env.Error == nil || env.Error.Code != "NOT_FOUND" {
		t.Fatalf("unknown route: %d %+v", code, env.Error)
	}
	if code, _ := s.do(http.MethodGet, "/api/me", "", nil); code != http.StatusUnauthorized {
		t.Fatalf("anonymous /api/me = %d", code)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	officer := s.register("chair@example.com", models.RoleOrganization, "Robotics Club")
	if officer.User.OrganizationID == "" || officer.AccessToken == "" {
		t.Fatalf("officer registration should create an organization: %+v", officer.User)
	}
	org, err := s.db.GetOrganization(context.Background(), officer.User.OrganizationID)
	if err != nil {
		t.Fatalf("organization: %v", err)
	}
	if org.Status != models.OrganizationPending || org.OwnerID != officer.User.ID {
		t.Fatalf("new organization should be pending and owned by the officer: %+v", org)
	}

	if code, env := s.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "chair@example.com", "password": "correct-horse", "name": "Again",
	}); code != http.StatusConflict || env.Error.Code != "CONFLICT" {
		t.Fatalf("duplicate email: %d %+v", code, env.Error)
	}

	if code, _ := s.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "chair@example.com", "password": "wrong-password",
	}); code != http.StatusUnauthorized {
		t.Fatalf("wrong password = %d", code)
	}
	code, env := s.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "CHAIR@example.com", "password": "correct-horse",
	})
	if code != http.StatusOK {
		t.Fatalf("login = %d %+v", code, env.Error)
	}

	code, env = s.do(http.MethodPost, "/api/auth/refresh", "", map[string]string{"refresh_token": officer.RefreshToken})
	if code != http.StatusOK {
		t.Fatalf("refresh = %d %+v", code, env.Error)
	}
	if code, _ := s.do(http.MethodGet, "/api/me", officer.RefreshToken, nil); code != http.StatusUnauthorized {
		t.Fatalf("refresh token used as bearer = %d", code)
	}

	if code, env := s.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "not-an-email", "password": "short", "name": "x",
	}); code != http.StatusBadRequest || env.Error.Code != "VALIDATION_ERROR" {
		t.Fatalf("invalid registration: %d %+v", code, env.Error)
	}
}

func TestModerationMembershipAndEventFlow(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	officer := s.register("chair@example.com", models.RoleOrganization, "Robotics Club")
	member := s.register("student@example.com", models.RoleMember, "")
	adminToken := s.seedAdmin()
	orgID := officer.User.OrganizationID

	if code, _ := s.do(http.MethodGet, "/api/admin/organizations/pending", member.AccessToken, nil); code != http.StatusForbidden {
		t.Fatalf("member on admin route = %d", code)
	}
	code, env := s.do(http.MethodGet, "/api/admin/organizations/pending", adminToken, nil)
	if code != http.StatusOK || env.Meta == nil || env.Meta.Total != 1 {
		t.Fatalf("pending organizations: %d %+v", code, env.Meta)
	}

	// joining a pending organization is not allowed yet
	if code, _ := s.do(http.MethodPost, "/api/organizations/"+orgID+"/join", member.AccessToken, nil); code == http.StatusCreated {
		t.Fatalf("join on a pending organization should fail")
	}

	decide := "/api/admin/organizations/" + orgID + "/decision"
	if code, env := s.do(http.MethodPost, decide, adminToken, map[string]string{"decision": "reject"}); code != http.StatusBadRequest || env.Error.Code != "REASON_REQUIRED" {
		t.Fatalf("reject without reason: %d %+v", code, env.Error)
	}
	if code, env := s.do(http.MethodPost, decide, adminToken, map[string]string{"decision": "accept"}); code != http.StatusOK {
		t.Fatalf("accept organization: %d %+v", code, env.Error)
	}
	if code, env := s.do(http.MethodPost, decide, adminToken, map[string]string{"decision": "reject", "reason": "late"}); code != http.StatusConflict || env.Error.Code != "ALREADY_DECIDED" {
		t.Fatalf("second decision: %d %+v", code, env.Error)
	}

	code, env = s.do(http.MethodGet, "/api/notifications", officer.AccessToken, nil)
	if code != http.StatusOK || env.Meta.Total != 1 || env.Meta.Unread != 1 {
		t.Fatalf("officer should have one unread acceptance notification: %d %+v", code, env.Meta)
	}

	code, env = s.do(http.MethodGet, "/api/admin/audit-logs?requestType=organization", adminToken, nil)
	if code != http.StatusOK || env.Meta.Total != 1 {
		t.Fatalf("audit logs: %d %+v", code, env.Meta)
	}

	// membership
	code, env = s.do(http.MethodPost, "/api/organizations/"+orgID+"/join", member.AccessToken, nil)
	if code != http.StatusCreated {
		t.Fatalf("join: %d %+v", code, env.Error)
	}
	var joined struct {
		Request models.Membership `json:"request"`
		Created bool             `json:"created"`
	}
	decodeData(t, env, &joined)
	if !joined.Created || joined.Request.Status != models.MemberPending {
		t.Fatalf("unexpected join result: %+v", joined)
	}
	if code, _ := s.do(http.MethodPost, "/api/organizations/"+orgID+"/join", member.AccessToken, nil); code != http.StatusOK {
		t.Fatalf("repeated join should be idempotent, got %d", code)
	}
	if code, _ := s.do(http.MethodPost, "/api/members/"+joined.Request.ID+"/decision", member.AccessToken, map[string]string{"decision": "approve"}); code != http.StatusForbidden {
		t.Fatalf("member deciding their own request = %d", code)
	}
	if code, env := s.do(http.MethodPost, "/api/members/"+joined.Request.ID+"/decision", officer.AccessToken, map[string]string{"decision": "approve"}); code != http.StatusOK {
		t.Fatalf("approve member: %d %+v", code, env.Error)
	}

	code, env = s.do(http.MethodGet, "/api/me/applications", member.AccessToken, nil)
	if code != http.StatusOK || env.Meta.Total != 1 || env.Meta.Unread != 1 {
		t.Fatalf("applications: %d %+v", code, env.Meta)
	}
	code, env = s.do(http.MethodGet, "/api/notifications?unread=true", member.AccessToken, nil)
	if code != http.StatusOK || env.Meta.Total != 1 {
		t.Fatalf("member approval notification: %d %+v", code, env.Meta)
	}

	// events
	code, env = s.do(http.MethodPost, "/api/events", officer.AccessToken, map[string]interface{}{
		"eventName":     "Build Night",
		"eventDate":     "2030-03-01T18:00:00Z",
		"eventLocation": "Lab 2",
		"tags":          []string{"Robotics", "robotics"},
	})
	if code != http.StatusCreated {
		t.Fatalf("create event: %d %+v", code, env.Error)
	}
	var ev models.Event
	decodeData(t, env, &ev)
	if ev.Status != models.EventPending || ev.OrganizationID != orgID {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if code, _ := s.do(http.MethodPost, "/api/events", member.AccessToken, map[string]interface{}{
		"eventName": "Nope", "eventDate": "2030-03-01T18:00:00Z",
	}); code != http.StatusForbidden {
		t.Fatalf("member creating event = %d", code)
	}
	if code, _ := s.do(http.MethodPost, "/api/events/"+ev.ID+"/like", member.AccessToken, nil); code != http.StatusNotFound {
		t.Fatalf("liking a pending event = %d", code)
	}

	if code, env := s.do(http.MethodPost, "/api/admin/events/"+ev.ID+"/decision", adminToken, map[string]string{"decision": "accept"}); code != http.StatusOK {
		t.Fatalf("accept event: %d %+v", code, env.Error)
	}
	code, env = s.do(http.MethodGet, "/api/notifications?unread=true", member.AccessToken, nil)
	if code != http.StatusOK || env.Meta.Total != 2 {
		t.Fatalf("member should be told about the new event: %d %+v", code, env.Meta)
	}

	code, env = s.do(http.MethodPost, "/api/events/"+ev.ID+"/like", member.AccessToken, nil)
	if code != http.StatusOK {
		t.Fatalf("like: %d %+v", code, env.Error)
	}
	var state models.EngagementState
	decodeData(t, env, &state)
	if !state.Active || state.LikeCount != 1 {
		t.Fatalf("unexpected engagement state: %+v", state)
	}

	code, env = s.do(http.MethodGet, "/api/calendar?scope=me", member.AccessToken, nil)
	if code != http.StatusOK || env.Meta.Total != 1 {
		t.Fatalf("member calendar: %d %+v", code, env.Meta)
	}

	code, env = s.do(http.MethodPost, "/api/notifications/read-all", member.AccessToken, nil)
	if code != http.StatusOK {
		t.Fatalf("read-all: %d %+v", code, env.Error)
	}
	code, env = s.do(http.MethodGet, "/api/notifications?unread=true", member.AccessToken, nil)
	if code != http.StatusOK || env.Meta.Total != 0 {
		t.Fatalf("nothing should be unread after read-all: %+v", env.Meta)
	}
}

func TestCalendarMonth(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	member := s.register("student@example.com", models.RoleMember, "")

	code, env := s.do(http.MethodGet, "/api/calendar/month?year=2024&month=3&weekStart=monday", member.AccessToken, nil)
	if code != http.StatusOK {
		t.Fatalf("month: %d %+v", code, env.Error)
	}
	var grid struct {
		FirstWeekdayOffset int      `json:"firstWeekdayOffset"`
		DaysInMonth        int      `json:"daysInMonth"`
		Weeks              [][7]int `json:"weeks"`
	}
	decodeData(t, env, &grid)
	if grid.FirstWeekdayOffset != 4 || grid.DaysInMonth != 31 || len(grid.Weeks) != 5 {
		t.Fatalf("unexpected grid: %+v", grid)
	}

	if code, _ := s.do(http.MethodGet, "/api/calendar/month?year=2024&month=13", member.AccessToken, nil); code != http.StatusBadRequest {
		t.Fatalf("month 13 = %d", code)
	}
	if code, _ := s.do(http.MethodGet, "/api/calendar/month?weekStart=friday", member.AccessToken, nil); code != http.StatusBadRequest {
		t.Fatalf("friday week start = %d", code)
	}
}

func TestUpload(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	member := s.register("student@example.com", models.RoleMember, "")

	// partType != "" overrides the part's declared Content-Type
	upload := func(filename, partType string, content []byte, fields map[string]string) (int, envelope) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		for k, v := range fields {
			if err := mw.WriteField(k, v); err != nil {
				t.Fatalf("write field: %v", err)
			}
		}
		var (
			fw  io.Writer
			err error
		)
		if partType == "" {
			fw, err = mw.CreateFormFile("file", filename)
		} else {
			h := make(textproto.MIMEHeader)
			h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
			h.Set("Content-Type", partType)
			fw, err = mw.CreatePart(h)
		}
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fw.Write(content); err != nil {
			t.Fatalf("write file: %v", err)
		}
		if err := mw.Close(); err != nil {
			t.Fatalf("close multipart: %v", err)
		}
		req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+member.AccessToken)
		rec := httptest.NewRecorder()
		s.handler.ServeHTTP(rec, req)
		return rec.Code, decodeEnvelope(t, rec)
	}

	png := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)
	code, env := upload("My Flyer.png", "", png, map[string]string{"kind": storage.KindEvent})
	if code != http.StatusCreated {
		t.Fatalf("upload: %d %+v", code, env.Error)
	}
	var out map[string]string
	decodeData(t, env, &out)
	if !strings.HasPrefix(out["url"], "https://oms-bucket.s3.us-east-1.amazonaws.com/events/") {
		t.Fatalf("unexpected url %q", out["url"])
	}
	keys := s.store.Keys()
	if len(keys) != 1 {
		t.Fatalf("expected one stored object, got %v", keys)
	}
	obj, _ := s.store.Object(keys[0])
	if obj.ContentType != "image/png" || !bytes.Equal(obj.Body, png) {
		t.Fatalf("stored object lost its sniffed prefix: %q %d bytes", obj.ContentType, len(obj.Body))
	}

	if code, env := upload("notes.txt", "", []byte("plain text, not an image"), nil); code != http.StatusUnsupportedMediaType {
		t.Fatalf("text upload: %d %+v", code, env.Error)
	}
	// a declared image type does not override the sniffed one
	if code, env := upload("fake.png", "image/png", []byte("<script>alert(1)</script>"), nil); code != http.StatusUnsupportedMediaType {
		t.Fatalf("spoofed image/png upload: %d %+v", code, env.Error)
	}
	if len(s.store.Keys()) != 1 {
		t.Fatalf("rejected uploads must not be stored, got %v", s.store.Keys())
	}
	if code, _ := upload("logo.png", "", png, map[string]string{"kind": storage.KindLogo, "organizationId": "someone-else"}); code != http.StatusForbidden {
		t.Fatalf("member uploading another organization's logo = %d", code)
	}
}

func TestInternalNotifications(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	member := s.register("student@example.com", models.RoleMember, "")

	body := map[string]string{"recipientUid": member.User.ID, "message": "Welcome aboard"}
	raw, _ := json.Marshal(body)

	send := func(key string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/internal/notifications", bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		if key != "" {
			req.Header.Set("X-Service-Key", key)
		}
		rec := httptest.NewRecorder()
		s.handler.ServeHTTP(rec, req)
		return rec.Code
	}
	if code := send("guess"); code != http.StatusUnauthorized {
		t.Fatalf("bad service key = %d", code)
	}
	if code := send("internal-key"); code != http.StatusCreated {
		t.Fatalf("internal notification = %d", code)
	}

	code, env := s.do(http.MethodGet, "/api/notifications", member.AccessToken, nil)
	if code != http.StatusOK || env.Meta.Total != 1 {
		t.Fatalf("notifications: %d %+v", code, env.Meta)
	}
	var list []models.Notification
	decodeData(t, env, &list)
	if list[0].Type != models.NotifGeneral || list[0].Message != "Welcome aboard" {
		t.Fatalf("unexpected notification: %+v", list[0])
	}
}

// acceptedOrgWithMember registers an officer whose organization is accepted and a member
// whose join request was approved.
func (s *testServer) acceptedOrgWithMember() (officer, member models.UserLoginResponse, adminToken string) {
	s.t.Helper()

	officer = s.register("chair@example.com", models.RoleOrganization, "Robotics Club")
	member = s.register("student@example.com", models.RoleMember, "")
	adminToken = s.seedAdmin()
	orgID := officer.User.OrganizationID

	if code, env := s.do(http.MethodPost, "/api/admin/organizations/"+orgID+"/decision", adminToken, map[string]string{"decision": "accept"}); code != http.StatusOK {
		s.t.Fatalf("accept organization: %d %+v", code, env.Error)
	}
	if code, env := s.do(http.MethodPost, "/api/organizations/"+orgID+"/join", member.AccessToken, nil); code != http.StatusCreated {
		s.t.Fatalf("join: %d %+v", code, env.Error)
	}
	requestID := models.JoinRequestID(member.User.ID, orgID)
	if code, env := s.do(http.MethodPost, "/api/members/"+requestID+"/decision", officer.AccessToken, map[string]string{"decision": "approve"}); code != http.StatusOK {
		s.t.Fatalf("approve: %d %+v", code, env.Error)
	}
	return officer, member, adminToken
}

func TestTasksFlow(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	officer, member, _ := s.acceptedOrgWithMember()

	if code, env := s.do(http.MethodPost, "/api/tasks", officer.AccessToken, map[string]interface{}{
		"taskName": "Order parts", "dueDate": "2030-01-10T09:00:00Z", "assignedMembers": []string{"stranger"},
	}); code != http.StatusBadRequest {
		t.Fatalf("assigning a non-member: %d %+v", code, env.Error)
	}

	code, env := s.do(http.MethodPost, "/api/tasks", officer.AccessToken, map[string]interface{}{
		"taskName":        "Order parts",
		"dueDate":         "2030-01-10T09:00:00Z",
		"priority":        "high",
		"assignedMembers": []string{member.User.ID},
	})
	if code != http.StatusCreated {
		t.Fatalf("create task: %d %+v", code, env.Error)
	}
	var task models.Task
	decodeData(t, env, &task)
	if task.Priority != models.PriorityHigh || task.Completed {
		t.Fatalf("unexpected task: %+v", task)
	}

	code, env = s.do(http.MethodGet, "/api/notifications?unread=true", member.AccessToken, nil)
	if code != http.StatusOK || env.Meta.Total != 2 {
		t.Fatalf("member should have approval and task notifications: %d %+v", code, env.Meta)
	}

	code, env = s.do(http.MethodGet, "/api/tasks", member.AccessToken, nil)
	if code != http.StatusOK || env.Meta.Total != 1 {
		t.Fatalf("assigned tasks: %d %+v", code, env.Meta)
	}
	if code, _ := s.do(http.MethodPut, "/api/tasks/"+task.ID, member.AccessToken, map[string]string{"taskName": "Mine now"}); code != http.StatusForbidden {
		t.Fatalf("member editing a task = %d", code)
	}

	code, env = s.do(http.MethodPost, "/api/tasks/"+task.ID+"/toggle", member.AccessToken, nil)
	if code != http.StatusOK {
		t.Fatalf("toggle: %d %+v", code, env.Error)
	}
	decodeData(t, env, &task)
	if !task.Completed || task.CompletedAt == nil {
		t.Fatalf("task should be completed: %+v", task)
	}

	code, env = s.do(http.MethodGet, "/api/calendar?scope=organization", officer.AccessToken, nil)
	if code != http.StatusOK || env.Meta.Total != 1 {
		t.Fatalf("organization calendar: %d %+v", code, env.Meta)
	}
	if code, _ := s.do(http.MethodGet, "/api/calendar?scope=organization", member.AccessToken, nil); code != http.StatusForbidden {
		t.Fatalf("member reading organization calendar = %d", code)
	}

	if code, _ := s.do(http.MethodDelete, "/api/tasks/"+task.ID, officer.AccessToken, nil); code != http.StatusOK {
		t.Fatalf("delete task = %d", code)
	}
}

func TestCommentsFlow(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	officer, member, adminToken := s.acceptedOrgWithMember()

	code, env := s.do(http.MethodPost, "/api/events", officer.AccessToken, map[string]interface{}{
		"eventName": "Demo Day", "eventDate": "2030-05-01T15:00:00Z",
	})
	if code != http.StatusCreated {
		t.Fatalf("create event: %d %+v", code, env.Error)
	}
	var ev models.Event
	decodeData(t, env, &ev)

	commentsPath := "/api/events/" + ev.ID + "/comments"
	if code, _ := s.do(http.MethodPost, commentsPath, member.AccessToken, map[string]string{"comment": "Too early"}); code != http.StatusNotFound {
		t.Fatalf("commenting on a pending event = %d", code)
	}
	if code, env := s.do(http.MethodPost, "/api/admin/events/"+ev.ID+"/decision", adminToken, map[string]string{"decision": "accept"}); code != http.StatusOK {
		t.Fatalf("accept event: %d %+v", code, env.Error)
	}

	if code, _ := s.do(http.MethodPost, commentsPath, member.AccessToken, map[string]string{"comment": "   "}); code != http.StatusBadRequest {
		t.Fatalf("blank comment = %d", code)
	}
	code, env = s.do(http.MethodPost, commentsPath, member.AccessToken, map[string]string{"comment": "See you there"})
	if code != http.StatusCreated {
		t.Fatalf("comment: %d %+v", code, env.Error)
	}
	var c models.Comment
	decodeData(t, env, &c)

	if code, env := s.do(http.MethodPost, commentsPath+"/"+c.ID+"/replies", officer.AccessToken, map[string]string{"comment": "Bring a laptop"}); code != http.StatusCreated {
		t.Fatalf("reply: %d %+v", code, env.Error)
	}

	code, env = s.do(http.MethodGet, commentsPath, member.AccessToken, nil)
	if code != http.StatusOK || env.Meta.Total != 1 {
		t.Fatalf("list comments: %d %+v", code, env.Meta)
	}
	var list []models.Comment
	decodeData(t, env, &list)
	if len(list[0].Replies) != 1 || list[0].Replies[0].Body != "Bring a laptop" {
		t.Fatalf("unexpected replies: %+v", list[0].Replies)
	}
}

func TestBulkDecisionEndToEnd(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	first := s.register("first@example.com", models.RoleOrganization, "Chess Society")
	second := s.register("second@example.com", models.RoleOrganization, "Debate Team")
	adminToken := s.seedAdmin()

	ids := []string{first.User.OrganizationID, "missing", second.User.OrganizationID}
	code, env := s.do(http.MethodPost, "/api/admin/organizations/bulk-decision", adminToken, map[string]interface{}{
		"ids": ids, "decision": "accept",
	})
	if code != http.StatusOK {
		t.Fatalf("bulk: %d %+v", code, env.Error)
	}
	var summary struct {
		Results []struct {
			ID   string `json:"id"`
			Code string `json:"code"`
		} `json:"results"`
		Succeeded int `json:"succeeded"`
		Failed    int `json:"failed"`
	}
	decodeData(t, env, &summary)
	if summary.Succeeded != 2 || summary.Failed != 1 || len(summary.Results) != 3 || summary.Results[1].Code != "NOT_FOUND" {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	code, env = s.do(http.MethodGet, "/api/admin/audit-logs?requestType=organization", adminToken, nil)
	if code != http.StatusOK || env.Meta.Total != 2 {
		t.Fatalf("expected one audit entry per accepted organization: %d %+v", code, env.Meta)
	}
	for _, id := range []string{first.User.OrganizationID, second.User.OrganizationID} {
		org, err := s.db.GetOrganization(context.Background(), id)
		if err != nil || org.Status != models.OrganizationAccepted {
			t.Fatalf("%s should be accepted: %+v %v", id, org, err)
		}
	}

	// a repeat over already decided ids changes nothing and audits nothing
	code, env = s.do(http.MethodPost, "/api/admin/organizations/bulk-decision", adminToken, map[string]interface{}{
		"ids": ids[:1], "decision": "reject", "reason": "late",
	})
	if code != http.StatusOK {
		t.Fatalf("repeat bulk: %d %+v", code, env.Error)
	}
	decodeData(t, env, &summary)
	if summary.Succeeded != 0 || summary.Results[0].Code != "ALREADY_DECIDED" {
		t.Fatalf("unexpected repeat summary: %+v", summary)
	}
	if _, env := s.do(http.MethodGet, "/api/admin/audit-logs", adminToken, nil); env.Meta.Total != 2 {
		t.Fatalf("audit log grew on a failed decision: %+v", env.Meta)
	}
}

func TestEditingRejectedEventResubmits(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	officer, _, adminToken := s.acceptedOrgWithMember()

	code, env := s.do(http.MethodPost, "/api/events", officer.AccessToken, map[string]interface{}{
		"eventName": "Open Lab", "eventDate": "2030-02-01T17:00:00Z",
	})
	if code != http.StatusCreated {
		t.Fatalf("create event: %d %+v", code, env.Error)
	}
	var ev models.Event
	decodeData(t, env, &ev)

	if code, env := s.do(http.MethodPost, "/api/admin/events/"+ev.ID+"/decision", adminToken, map[string]string{"decision": "reject", "reason": "missing room"}); code != http.StatusOK {
		t.Fatalf("reject: %d %+v", code, env.Error)
	}
	code, env = s.do(http.MethodPut, "/api/events/"+ev.ID, officer.AccessToken, map[string]string{"eventLocation": "Lab 4"})
	if code != http.StatusOK {
		t.Fatalf("edit: %d %+v", code, env.Error)
	}
	decodeData(t, env, &ev)
	if ev.Status != models.EventPending || ev.RejectionReason != "" || ev.Location != "Lab 4" {
		t.Fatalf("edited rejected event should be pending again: %+v", ev)
	}

	if code, env := s.do(http.MethodPost, "/api/admin/events/"+ev.ID+"/decision", adminToken, map[string]string{"decision": "accept"}); code != http.StatusOK {
		t.Fatalf("accept: %d %+v", code, env.Error)
	}
	code, env = s.do(http.MethodPut, "/api/events/"+ev.ID, officer.AccessToken, map[string]string{"eventName": "Open Lab Night"})
	if code != http.StatusOK {
		t.Fatalf("edit accepted: %d %+v", code, env.Error)
	}
	decodeData(t, env, &ev)
	if ev.Status != models.EventAccepted || ev.Name != "Open Lab Night" {
		t.Fatalf("editing an accepted event must keep it accepted: %+v", ev)
	}
}
