package router_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/kidcheck/internal/handler"
	"github.com/iliyamo/kidcheck/internal/logger"
	"github.com/iliyamo/kidcheck/internal/middleware"
	"github.com/iliyamo/kidcheck/internal/queue"
	"github.com/iliyamo/kidcheck/internal/repository/memory"
	"github.com/iliyamo/kidcheck/internal/router"
	"github.com/iliyamo/kidcheck/internal/service"
	"github.com/iliyamo/kidcheck/internal/session"
	"github.com/iliyamo/kidcheck/internal/utils"
)

const adminPassword = "123456"

func newServer(t *testing.T) *echo.Echo {
	t.Helper()
	log := logger.Discard()
	st := memory.New()
	creds := service.NewCredentialService(st, st, st, utils.NewBcryptHasher(bcrypt.MinCost), log)
	_, err := creds.EnsureDefaultAdmin(context.Background(), adminPassword)
	require.NoError(t, err)

	e := echo.New()
	e.Validator = handler.NewValidator()
	router.RegisterRoutes(e, router.Deps{
		Creds:     creds,
		Requests:  service.NewRequestService(st, queue.Nop{}, log),
		Analytics: service.NewAnalyticsService(st),
		Sessions:  session.NewManager("test-secret", time.Hour, session.NewMemoryStore()),
		Version:   "test",
		Log:       log,
	})
	return e
}

type result struct {
	Code int
	Body map[string]any
	Rec  *httptest.ResponseRecorder
}

func call(t *testing.T, e *echo.Echo, method, path, token string, body any) result {
	t.Helper()
	var payload string
	if body != nil {
		bs, err := json.Marshal(body)
		require.NoError(t, err)
		payload = string(bs)
	}
	req := httptest.NewRequest(method, path, strings.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	out := result{Code: rec.Code, Rec: rec}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out.Body), rec.Body.String())
	}
	return out
}

func tokenOf(t *testing.T, r result) string {
	t.Helper()
	require.Equal(t, http.StatusOK, r.Code, r.Body)
	sess, ok := r.Body["session"].(map[string]any)
	require.True(t, ok, "session missing: %v", r.Body)
	return sess["token"].(string)
}

func registerParent(t *testing.T, e *echo.Echo, email, name string) string {
	t.Helper()
	return tokenOf(t, call(t, e, http.MethodPost, "/api/register", "", map[string]string{
		"email": email, "password": "secret1", "name": name, "childName": "Bo",
	}))
}

func loginAdmin(t *testing.T, e *echo.Echo) string {
	t.Helper()
	return tokenOf(t, call(t, e, http.MethodPost, "/api/admin/login", "", map[string]string{
		"name": "admin", "password": adminPassword,
	}))
}

func createRequest(t *testing.T, e *echo.Echo, token, typ string) uint64 {
	t.Helper()
	r := call(t, e, http.MethodPost, "/api/requests", token, map[string]string{
		"type": typ, "childName": "Bo", "childGrade": "2nd", "requestMessage": "hi",
	})
	require.Equal(t, http.StatusOK, r.Code, r.Body)
	return uint64(r.Body["request_id"].(float64))
}

func TestHealth(t *testing.T) {
	e := newServer(t)
	r := call(t, e, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, r.Code)
	assert.Equal(t, "healthy", r.Body["status"])
	assert.Equal(t, "test", r.Body["version"])
}

func TestRegisterAndLogin(t *testing.T) {
	e := newServer(t)

	r := call(t, e, http.MethodPost, "/api/register", "", map[string]string{
		"email": "a@x.com", "password": "secret1", "name": "Alice",
	})
	require.Equal(t, http.StatusOK, r.Code)
	user := r.Body["user"].(map[string]any)
	assert.Equal(t, "a@x.com", user["email"])
	assert.Equal(t, "parent", user["user_type"])
	assert.NotEmpty(t, r.Rec.Result().Cookies())

	dup := call(t, e, http.MethodPost, "/api/register", "", map[string]string{
		"email": "A@X.com", "password": "secret1", "name": "Other",
	})
	assert.Equal(t, http.StatusConflict, dup.Code)
	assert.Equal(t, "User already exists", dup.Body["error"])

	short := call(t, e, http.MethodPost, "/api/register", "", map[string]string{
		"email": "b@x.com", "password": "123", "name": "Bob",
	})
	assert.Equal(t, http.StatusBadRequest, short.Code)

	missing := call(t, e, http.MethodPost, "/api/register", "", map[string]string{"email": "c@x.com"})
	assert.Equal(t, http.StatusBadRequest, missing.Code)
	assert.Contains(t, missing.Body["error"], "password")

	good := call(t, e, http.MethodPost, "/api/login", "", map[string]string{"email": "a@x.com", "password": "secret1"})
	assert.Equal(t, http.StatusOK, good.Code)

	bad := call(t, e, http.MethodPost, "/api/login", "", map[string]string{"email": "a@x.com", "password": "wrong1"})
	assert.Equal(t, http.StatusUnauthorized, bad.Code)
	unknown := call(t, e, http.MethodPost, "/api/login", "", map[string]string{"email": "nobody@x.com", "password": "wrong1"})
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, bad.Body["error"], unknown.Body["error"])
}

func TestSessionRequired(t *testing.T) {
	e := newServer(t)
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/me"},
		{http.MethodGet, "/api/requests"},
		{http.MethodPost, "/api/requests"},
		{http.MethodPut, "/api/requests/1"},
		{http.MethodDelete, "/api/requests/1"},
		{http.MethodGet, "/api/analytics"},
		{http.MethodGet, "/api/children"},
	} {
		r := call(t, e, tc.method, tc.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, r.Code, "%s %s", tc.method, tc.path)
	}
	r := call(t, e, http.MethodGet, "/api/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, r.Code)
}

func TestCookieSession(t *testing.T) {
	e := newServer(t)
	reg := call(t, e, http.MethodPost, "/api/register", "", map[string]string{
		"email": "a@x.com", "password": "secret1", "name": "Alice",
	})
	require.Equal(t, http.StatusOK, reg.Code)

	var ck *http.Cookie
	for _, c := range reg.Rec.Result().Cookies() {
		if c.Name == middleware.SessionCookie {
			ck = c
		}
	}
	require.NotNil(t, ck)
	assert.True(t, ck.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(ck)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"email":"a@x.com"`)
}

func TestLogout(t *testing.T) {
	e := newServer(t)
	tok := registerParent(t, e, "a@x.com", "Alice")

	r := call(t, e, http.MethodPost, "/api/logout", tok, nil)
	assert.Equal(t, http.StatusOK, r.Code)
	assert.Equal(t, "Logged out successfully", r.Body["message"])

	after := call(t, e, http.MethodGet, "/api/me", tok, nil)
	assert.Equal(t, http.StatusUnauthorized, after.Code)

	// logging out without a session is fine
	again := call(t, e, http.MethodPost, "/api/logout", "", nil)
	assert.Equal(t, http.StatusOK, again.Code)
}

func TestRoleBoundaries(t *testing.T) {
	e := newServer(t)
	parent := registerParent(t, e, "a@x.com", "Alice")
	admin := loginAdmin(t, e)
	id := createRequest(t, e, parent, "checkin")

	r := call(t, e, http.MethodPut, "/api/requests/1", parent, map[string]string{"status": "approved"})
	assert.Equal(t, http.StatusForbidden, r.Code)
	assert.Equal(t, "Admin access required", r.Body["error"])

	r = call(t, e, http.MethodGet, "/api/analytics", parent, nil)
	assert.Equal(t, http.StatusForbidden, r.Code)

	r = call(t, e, http.MethodPost, "/api/requests", admin, map[string]string{
		"type": "checkin", "childName": "Bo", "childGrade": "2nd",
	})
	assert.Equal(t, http.StatusUnauthorized, r.Code)

	r = call(t, e, http.MethodGet, "/api/children", admin, nil)
	assert.Equal(t, http.StatusUnauthorized, r.Code)

	// the role decides before the id or body is looked at
	r = call(t, e, http.MethodPut, "/api/requests/"+itoa(id), parent, map[string]string{})
	assert.Equal(t, http.StatusForbidden, r.Code)
	assert.Equal(t, "Admin access required", r.Body["error"])

	r = call(t, e, http.MethodPut, "/api/requests/abc", parent, map[string]string{"status": "approved"})
	assert.Equal(t, http.StatusForbidden, r.Code)

	r = call(t, e, http.MethodPost, "/api/requests", admin, map[string]string{})
	assert.Equal(t, http.StatusUnauthorized, r.Code)
	assert.Equal(t, "Not authenticated as parent", r.Body["error"])

	r = call(t, e, http.MethodPost, "/api/children", admin, map[string]string{})
	assert.Equal(t, http.StatusUnauthorized, r.Code)

	r = call(t, e, http.MethodPost, "/api/admin/password", parent, map[string]string{
		"current_password": "secret1", "new_password": "another1",
	})
	assert.Equal(t, http.StatusForbidden, r.Code)

	r = call(t, e, http.MethodPost, "/api/admin/password", parent, map[string]string{})
	assert.Equal(t, http.StatusForbidden, r.Code)

	require.NotZero(t, id)
}

func TestRequestValidation(t *testing.T) {
	e := newServer(t)
	parent := registerParent(t, e, "a@x.com", "Alice")
	admin := loginAdmin(t, e)

	r := call(t, e, http.MethodPost, "/api/requests", parent, map[string]string{
		"type": "pickup", "childName": "Bo", "childGrade": "2nd",
	})
	assert.Equal(t, http.StatusBadRequest, r.Code)

	r = call(t, e, http.MethodPost, "/api/requests", parent, map[string]string{"type": "checkin"})
	assert.Equal(t, http.StatusBadRequest, r.Code)

	id := createRequest(t, e, parent, "checkout")

	r = call(t, e, http.MethodPut, "/api/requests/abc", admin, map[string]string{"status": "approved"})
	assert.Equal(t, http.StatusBadRequest, r.Code)

	r = call(t, e, http.MethodPut, "/api/requests/999", admin, map[string]string{"status": "approved"})
	assert.Equal(t, http.StatusNotFound, r.Code)
	assert.Equal(t, "Request not found", r.Body["error"])

	r = call(t, e, http.MethodPut, "/api/requests/"+itoa(id), admin, map[string]string{"status": "done"})
	assert.Equal(t, http.StatusBadRequest, r.Code)
}

func TestDeleteRequests(t *testing.T) {
	e := newServer(t)
	alice := registerParent(t, e, "a@x.com", "Alice")
	carol := registerParent(t, e, "c@x.com", "Carol")
	admin := loginAdmin(t, e)
	id := createRequest(t, e, alice, "checkin")

	// someone else's request: success, nothing removed
	r := call(t, e, http.MethodDelete, "/api/requests/"+itoa(id), carol, nil)
	assert.Equal(t, http.StatusOK, r.Code)
	list := call(t, e, http.MethodGet, "/api/requests", alice, nil)
	assert.Len(t, list.Body["requests"], 1)

	r = call(t, e, http.MethodDelete, "/api/requests/"+itoa(id), alice, nil)
	assert.Equal(t, http.StatusOK, r.Code)
	list = call(t, e, http.MethodGet, "/api/requests", alice, nil)
	assert.Len(t, list.Body["requests"], 0)

	// already gone, and never existed: both succeed for an admin
	r = call(t, e, http.MethodDelete, "/api/requests/"+itoa(id), admin, nil)
	assert.Equal(t, http.StatusOK, r.Code)
	r = call(t, e, http.MethodDelete, "/api/requests/999", admin, nil)
	assert.Equal(t, http.StatusOK, r.Code)
	assert.Equal(t, "Request deleted successfully", r.Body["message"])
}

func TestChildren(t *testing.T) {
	e := newServer(t)
	parent := registerParent(t, e, "a@x.com", "Alice")

	r := call(t, e, http.MethodPost, "/api/children", parent, map[string]string{"name": "Cy", "grade": "4th"})
	require.Equal(t, http.StatusOK, r.Code)
	assert.NotZero(t, r.Body["child_id"])

	r = call(t, e, http.MethodPost, "/api/children", parent, map[string]string{"name": "Cy"})
	assert.Equal(t, http.StatusBadRequest, r.Code)

	r = call(t, e, http.MethodGet, "/api/children", parent, nil)
	require.Equal(t, http.StatusOK, r.Code)
	kids := r.Body["children"].([]any)
	require.Len(t, kids, 2)
	assert.Equal(t, "Bo", kids[0].(map[string]any)["name"])
	assert.Equal(t, "Cy", kids[1].(map[string]any)["name"])
}

func TestAdminPasswordRotation(t *testing.T) {
	e := newServer(t)
	login := call(t, e, http.MethodPost, "/api/admin/login", "", map[string]string{"name": "admin", "password": adminPassword})
	require.Equal(t, http.StatusOK, login.Code)
	assert.Equal(t, true, login.Body["admin"].(map[string]any)["must_rotate"])
	admin := tokenOf(t, login)

	r := call(t, e, http.MethodPost, "/api/admin/password", admin, map[string]string{
		"current_password": "wrong!", "new_password": "rotated1",
	})
	assert.Equal(t, http.StatusUnauthorized, r.Code)

	r = call(t, e, http.MethodPost, "/api/admin/password", admin, map[string]string{
		"current_password": adminPassword, "new_password": "rotated1",
	})
	require.Equal(t, http.StatusOK, r.Code)

	old := call(t, e, http.MethodPost, "/api/admin/login", "", map[string]string{"name": "admin", "password": adminPassword})
	assert.Equal(t, http.StatusUnauthorized, old.Code)
	fresh := call(t, e, http.MethodPost, "/api/admin/login", "", map[string]string{"name": "admin", "password": "rotated1"})
	require.Equal(t, http.StatusOK, fresh.Code)
	assert.Equal(t, false, fresh.Body["admin"].(map[string]any)["must_rotate"])
}

func TestEndToEnd(t *testing.T) {
	e := newServer(t)
	parent := registerParent(t, e, "a@x.com", "Alice")
	id := createRequest(t, e, parent, "checkin")
	admin := loginAdmin(t, e)

	list := call(t, e, http.MethodGet, "/api/requests", admin, nil)
	require.Equal(t, http.StatusOK, list.Code)
	rows := list.Body["requests"].([]any)
	require.Len(t, rows, 1)
	row := rows[0].(map[string]any)
	assert.Equal(t, "pending", row["status"])
	assert.Equal(t, "Alice", row["parent_name"])
	assert.Equal(t, "a@x.com", row["parent_email"])
	assert.Equal(t, row["created_at"], row["timestamp"])

	upd := call(t, e, http.MethodPut, "/api/requests/"+itoa(id), admin, map[string]string{"status": "approved", "feedback": "ok"})
	require.Equal(t, http.StatusOK, upd.Code, upd.Body)

	mine := call(t, e, http.MethodGet, "/api/requests", parent, nil)
	require.Equal(t, http.StatusOK, mine.Code)
	rows = mine.Body["requests"].([]any)
	require.Len(t, rows, 1)
	row = rows[0].(map[string]any)
	assert.Equal(t, "approved", row["status"])
	assert.Equal(t, "ok", row["feedback"])
	assert.NotNil(t, row["response_time"])
	assert.NotContains(t, row, "parent_email")

	stats := call(t, e, http.MethodGet, "/api/analytics", admin, nil)
	require.Equal(t, http.StatusOK, stats.Code)
	a := stats.Body["analytics"].(map[string]any)
	totals := a["totals"].(map[string]any)
	assert.EqualValues(t, 1, totals["requests"])
	assert.EqualValues(t, 1, totals["approved"])
	assert.EqualValues(t, 0, totals["pending"])
	assert.EqualValues(t, 0, totals["rejected"])
	assert.EqualValues(t, 1, a["by_type"].(map[string]any)["checkin"])

	full := call(t, e, http.MethodGet, "/api/analytics?view=full", admin, nil)
	require.Equal(t, http.StatusOK, full.Code)
	s := full.Body["analytics"].(map[string]any)
	assert.EqualValues(t, 1, s["users"])
	assert.Contains(t, s, "response_time")
	assert.Equal(t, "Alice", s["most_active_parent"].(map[string]any)["name"])
}

func TestRateLimitSkippedWithoutRedis(t *testing.T) {
	e := newServer(t)
	for i := 0; i < 20; i++ {
		r := call(t, e, http.MethodPost, "/api/login", "", map[string]string{"email": "x@x.com", "password": "nope12"})
		require.Equal(t, http.StatusUnauthorized, r.Code)
	}
}

func itoa(id uint64) string { return strconv.FormatUint(id, 10) }
