package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"securegate/internal/db/dbtest"
	"securegate/internal/domain"
	"securegate/internal/middleware"
	"securegate/internal/service"
	"securegate/internal/store"
	"securegate/internal/utils"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")

type captureMailer struct {
	mu   sync.Mutex
	html []string
}

func (m *captureMailer) Send(_ context.Context, _, _, html string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.html = append(m.html, html)
	return nil
}

type testServer struct {
	router *gin.Engine
	users  *store.UserStore
	mail   *captureMailer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb := dbtest.Open(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	uploadDir := t.TempDir()
	files, err := utils.NewDiskStore(uploadDir)
	require.NoError(t, err)

	users := store.NewUserStore(gdb)
	sessions := utils.NewSessionManager("test-secret", utils.NewRevoker(rdb))
	mail := &captureMailer{}

	r := NewRouter(Deps{
		Auth:         service.NewAuthService(users, sessions, mail, nil, "http://client.test"),
		Users:        service.NewUserService(users, files, sessions),
		Posts:        service.NewPostService(store.NewPostStore(gdb), files, rdb),
		Transactions: service.NewTransactionService(store.NewTransactionStore(gdb)),
		Sessions:     sessions,
		UploadDir:    uploadDir,
	})
	return &testServer{router: r, users: users, mail: mail}
}

type response struct {
	code    int
	body    map[string]any
	cookies []*http.Cookie
}

func (s *testServer) do(t *testing.T, method, path string, body any, cookie *http.Cookie) response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return s.serve(t, req)
}

func (s *testServer) serve(t *testing.T, req *http.Request) response {
	t.Helper()
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	var out map[string]any
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return response{code: w.Code, body: out, cookies: w.Result().Cookies()}
}

func sessionCookie(t *testing.T, res response) *http.Cookie {
	t.Helper()
	for _, c := range res.cookies {
		if c.Name == middleware.SessionCookie {
			return c
		}
	}
	t.Fatal("no session cookie")
	return nil
}

func registration(username, email string) map[string]any {
	return map[string]any{
		"firstName": "Ada",
		"lastName":  "Lovelace",
		"address":   "12 Analytical St",
		"contact":   "5551234",
		"email":     email,
		"username":  username,
		"password":  "abcdefg1!",
	}
}

func (s *testServer) login(t *testing.T, username, password string) *http.Cookie {
	t.Helper()
	res := s.do(t, http.MethodPost, "/login", map[string]string{"username": username, "password": password}, nil)
	require.Equal(t, http.StatusOK, res.code, res.body)
	return sessionCookie(t, res)
}

func (s *testServer) registerAdmin(t *testing.T) *http.Cookie {
	t.Helper()
	res := s.do(t, http.MethodPost, "/register", registration("root", "root@example.com"), nil)
	require.Equal(t, http.StatusCreated, res.code, res.body)
	u, err := s.users.FindByUsername(context.Background(), "root")
	require.NoError(t, err)
	require.NoError(t, s.users.Update(context.Background(), u.ID, map[string]any{"role": domain.RoleAdmin}))
	return s.login(t, "root", "abcdefg1!")
}

func TestRegisterAndLogin(t *testing.T) {
	s := newTestServer(t)

	res := s.do(t, http.MethodPost, "/register", registration("ada", "ada@example.com"), nil)
	require.Equal(t, http.StatusCreated, res.code)
	assert.Equal(t, true, res.body["success"])
	data := res.body["data"].(map[string]any)
	assert.NotContains(t, data, "password")
	assert.EqualValues(t, domain.RoleMember, data["role"])

	res = s.do(t, http.MethodPost, "/register", registration("ada", "other@example.com"), nil)
	assert.Equal(t, http.StatusBadRequest, res.code)
	assert.Equal(t, false, res.body["success"])
	assert.Equal(t, "Email or Username already exists.", res.body["message"])

	res = s.do(t, http.MethodPost, "/login", map[string]string{"username": "ada", "password": "abcdefg1!"}, nil)
	require.Equal(t, http.StatusOK, res.code)
	cookie := sessionCookie(t, res)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, 30*24*60*60, cookie.MaxAge)
	assert.NotContains(t, res.body, "token")
	assert.Equal(t, "ada", res.body["data"].(map[string]any)["username"])
}

func TestLoginFailuresLookTheSame(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/register", registration("ada", "ada@example.com"), nil).code)

	unknown := s.do(t, http.MethodPost, "/login", map[string]string{"username": "bob", "password": "abcdefg1!"}, nil)
	wrong := s.do(t, http.MethodPost, "/login", map[string]string{"username": "ada", "password": "zzzzzzz1!"}, nil)
	assert.Equal(t, http.StatusUnauthorized, unknown.code)
	assert.Equal(t, unknown.code, wrong.code)
	assert.Equal(t, unknown.body, wrong.body)
}

func TestLogoutInvalidatesCookieToken(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/register", registration("ada", "ada@example.com"), nil).code)
	cookie := s.login(t, "ada", "abcdefg1!")

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/fetch-profile", nil, cookie).code)
	res := s.do(t, http.MethodPost, "/logout", nil, cookie)
	require.Equal(t, http.StatusOK, res.code)
	assert.Equal(t, -1, sessionCookie(t, res).MaxAge)

	res = s.do(t, http.MethodGet, "/fetch-profile", nil, cookie)
	assert.Equal(t, http.StatusUnauthorized, res.code)
	assert.Equal(t, "Unauthorized - Invalid token", res.body["message"])
}

var tokenPattern = regexp.MustCompile(`token=([0-9a-f]{64})`)

func TestForgotAndResetPassword(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/register", registration("ada", "ada@example.com"), nil).code)

	unknown := s.do(t, http.MethodPost, "/forgot-password", map[string]string{"email": "nobody@example.com"}, nil)
	known := s.do(t, http.MethodPost, "/forgot-password", map[string]string{"email": "ada@example.com"}, nil)
	assert.Equal(t, http.StatusOK, unknown.code)
	assert.Equal(t, unknown.body, known.body)
	require.Len(t, s.mail.html, 1)

	raw := tokenPattern.FindStringSubmatch(s.mail.html[0])[1]
	res := s.do(t, http.MethodPost, "/reset-password", map[string]string{"token": raw, "password": "newpass1!"}, nil)
	require.Equal(t, http.StatusOK, res.code, res.body)

	res = s.do(t, http.MethodPost, "/reset-password", map[string]string{"token": raw, "password": "newpass2!"}, nil)
	assert.Equal(t, http.StatusBadRequest, res.code)
	assert.Equal(t, domain.MsgInvalidResetToken, res.body["message"])

	s.login(t, "ada", "newpass1!")
}

func TestChangePasswordClearsCookie(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/register", registration("ada", "ada@example.com"), nil).code)
	cookie := s.login(t, "ada", "abcdefg1!")

	res := s.do(t, http.MethodPost, "/change-password", map[string]string{
		"currentPassword": "wrongpw1!", "newPassword": "newpass1!", "confirmPassword": "newpass1!",
	}, cookie)
	assert.Equal(t, http.StatusUnauthorized, res.code)

	res = s.do(t, http.MethodPost, "/change-password", map[string]string{
		"currentPassword": "abcdefg1!", "newPassword": "newpass1!", "confirmPassword": "newpass1!",
	}, cookie)
	require.Equal(t, http.StatusOK, res.code, res.body)
	assert.Equal(t, -1, sessionCookie(t, res).MaxAge)
}

func TestProfileRoutes(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/register", registration("ada", "ada@example.com"), nil).code)
	cookie := s.login(t, "ada", "abcdefg1!")

	res := s.do(t, http.MethodPut, "/user/profile", map[string]string{"firstName": "Augusta"}, cookie)
	require.Equal(t, http.StatusOK, res.code, res.body)
	assert.Equal(t, "Augusta", res.body["data"].(map[string]any)["firstName"])

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("image", "me.png")
	require.NoError(t, err)
	part.Write(pngBytes)
	require.NoError(t, w.Close())
	req := httptest.NewRequest(http.MethodPut, "/user/profile-image", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.AddCookie(cookie)
	res = s.serve(t, req)
	require.Equal(t, http.StatusOK, res.code, res.body)
	path := res.body["data"].(map[string]any)["image"].(string)
	assert.Regexp(t, `^/uploads/image-\d+-\d+\.png$`, path)

	served := httptest.NewRecorder()
	s.router.ServeHTTP(served, httptest.NewRequest(http.MethodGet, path, nil))
	assert.Equal(t, http.StatusOK, served.Code)
	assert.Equal(t, pngBytes, served.Body.Bytes())

	req = httptest.NewRequest(http.MethodPut, "/user/profile-image", nil)
	req.AddCookie(cookie)
	res = s.serve(t, req)
	assert.Equal(t, http.StatusBadRequest, res.code)
	assert.Equal(t, "No image file provided.", res.body["message"])
}

func TestAdminGateOrdering(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/register", registration("ada", "ada@example.com"), nil).code)
	member := s.login(t, "ada", "abcdefg1!")

	res := s.do(t, http.MethodGet, "/admin/users", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, res.code)
	assert.Equal(t, "Unauthorized - Missing token", res.body["message"])

	res = s.do(t, http.MethodGet, "/admin/users", nil, &http.Cookie{Name: middleware.SessionCookie, Value: "forged"})
	assert.Equal(t, http.StatusUnauthorized, res.code)

	res = s.do(t, http.MethodGet, "/admin/users", nil, member)
	assert.Equal(t, http.StatusForbidden, res.code)
	assert.Equal(t, "Forbidden - Admins only", res.body["message"])

	admin := s.registerAdmin(t)
	res = s.do(t, http.MethodGet, "/admin/users?page=1&page_size=1", nil, admin)
	require.Equal(t, http.StatusOK, res.code)
	assert.Len(t, res.body["data"], 1)
	assert.EqualValues(t, 2, res.body["pagination"].(map[string]any)["total"])
}

func TestAdminUserManagement(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/register", registration("ada", "ada@example.com"), nil).code)
	admin := s.registerAdmin(t)
	ada, err := s.users.FindByUsername(context.Background(), "ada")
	require.NoError(t, err)
	path := "/admin/users/" + jsonNumber(ada.ID)

	res := s.do(t, http.MethodPut, path, map[string]any{"role": 5}, admin)
	assert.Equal(t, http.StatusBadRequest, res.code)

	res = s.do(t, http.MethodPut, path, map[string]any{"role": 3}, admin)
	require.Equal(t, http.StatusOK, res.code, res.body)
	assert.EqualValues(t, 3, res.body["data"].(map[string]any)["role"])

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodDelete, path, nil, admin).code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, path, nil, admin).code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodDelete, "/admin/users/abc", nil, admin).code)
}

func TestRoleChangeAndDeletionEndSessions(t *testing.T) {
	s := newTestServer(t)
	root := s.registerAdmin(t)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/register", registration("eve", "eve@example.com"), nil).code)
	eve, err := s.users.FindByUsername(context.Background(), "eve")
	require.NoError(t, err)
	path := "/admin/users/" + jsonNumber(eve.ID)
	rootUser, err := s.users.FindByUsername(context.Background(), "root")
	require.NoError(t, err)

	promote := func() *http.Cookie {
		t.Helper()
		require.Equal(t, http.StatusOK, s.do(t, http.MethodPut, path, map[string]any{"role": 2}, root).code)
		cookie := s.login(t, "eve", "abcdefg1!")
		require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/admin/users", nil, cookie).code)
		time.Sleep(2 * time.Millisecond) // Revocation marks have millisecond resolution
		return cookie
	}

	demoted := promote()
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPut, path, map[string]any{"role": 1}, root).code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/admin/users", nil, demoted).code)
	member := s.login(t, "eve", "abcdefg1!")
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/admin/users", nil, member).code)

	deleted := promote()
	require.Equal(t, http.StatusOK, s.do(t, http.MethodDelete, path, nil, root).code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/admin/users", nil, deleted).code)
	res := s.do(t, http.MethodDelete, "/admin/users/"+jsonNumber(rootUser.ID), nil, deleted)
	assert.Equal(t, http.StatusUnauthorized, res.code)
	_, err = s.users.FindByID(context.Background(), rootUser.ID)
	assert.NoError(t, err, "the remaining admin survives")

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/admin/users", nil, root).code, "other sessions are untouched")
}

func jsonNumber(id uint) string {
	b, _ := json.Marshal(id)
	return string(b)
}

func TestPostLifecycle(t *testing.T) {
	s := newTestServer(t)
	admin := s.registerAdmin(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("slug", "hello"))
	require.NoError(t, w.WriteField("published", "false"))
	require.NoError(t, w.WriteField("sections", `[{"tempId":"section-1","title":"One","body":"a"},{"tempId":"section-10","title":"Two","body":"b"}]`))
	for _, name := range []string{"section-1_a.png", "section-10_x.png", "section-1_b.png"} {
		part, err := w.CreateFormFile("images", name)
		require.NoError(t, err)
		part.Write(pngBytes)
	}
	require.NoError(t, w.Close())
	req := httptest.NewRequest(http.MethodPost, "/admin/posts", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.AddCookie(admin)
	res := s.serve(t, req)
	require.Equal(t, http.StatusCreated, res.code, res.body)

	post := res.body["post"].(map[string]any)
	id := jsonNumber(uint(post["id"].(float64)))
	sections := post["PostSections"].([]any)
	require.Len(t, sections, 2)
	first := sections[0].(map[string]any)
	second := sections[1].(map[string]any)
	assert.EqualValues(t, 1, first["section_order"])
	assert.Len(t, first["PostImages"], 2)
	assert.Len(t, second["PostImages"], 1)

	res = s.do(t, http.MethodGet, "/posts/"+id, nil, nil)
	require.Equal(t, http.StatusOK, res.code)
	assert.Equal(t, false, res.body["cached"])
	assert.Equal(t, post["id"], res.body["post"].(map[string]any)["id"])
	res = s.do(t, http.MethodGet, "/posts/"+id, nil, nil)
	assert.Equal(t, true, res.body["cached"])

	res = s.do(t, http.MethodPut, "/admin/posts/"+id, map[string]any{"slug": "hello-world", "published": true, "sections": []any{}}, admin)
	require.Equal(t, http.StatusOK, res.code, res.body)
	assert.Len(t, res.body["post"].(map[string]any)["PostSections"], 2)

	res = s.do(t, http.MethodGet, "/posts", nil, nil)
	require.Equal(t, http.StatusOK, res.code)
	list := res.body["posts"].([]any)
	require.Len(t, list, 1)
	assert.Equal(t, "hello-world", list[0].(map[string]any)["slug"])

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodDelete, "/admin/posts/"+id, nil, admin).code)
	res = s.do(t, http.MethodGet, "/posts/"+id, nil, nil)
	assert.Equal(t, http.StatusNotFound, res.code)
	assert.Equal(t, false, res.body["success"])
}

func TestFinanceRoutes(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/register", registration("ada", "ada@example.com"), nil).code)
	cookie := s.login(t, "ada", "abcdefg1!")

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/finance/fetch", nil, nil).code)

	res := s.do(t, http.MethodPost, "/finance/create", map[string]any{
		"type": "expense", "category": "food", "amount": 12.5, "date": "2024-05-06",
	}, cookie)
	require.Equal(t, http.StatusCreated, res.code, res.body)
	id := jsonNumber(uint(res.body["data"].(map[string]any)["id"].(float64)))

	res = s.do(t, http.MethodPost, "/finance/create", map[string]any{
		"type": "gift", "category": "food", "amount": 1, "date": "2024-05-06",
	}, cookie)
	assert.Equal(t, http.StatusBadRequest, res.code)

	res = s.do(t, http.MethodGet, "/finance/fetch", nil, cookie)
	require.Equal(t, http.StatusOK, res.code)
	assert.Len(t, res.body["transactions"], 1)
	pagination := res.body["pagination"].(map[string]any)
	assert.EqualValues(t, 1, pagination["page"])
	assert.EqualValues(t, 10, pagination["limit"])
	assert.EqualValues(t, 1, pagination["totalPages"])

	res = s.do(t, http.MethodPut, "/finance/update/"+id, map[string]any{"notes": "lunch"}, cookie)
	require.Equal(t, http.StatusOK, res.code, res.body)
	assert.Equal(t, "lunch", res.body["data"].(map[string]any)["notes"])

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodDelete, "/finance/delete/"+id, nil, cookie).code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, "/finance/delete/"+id, nil, cookie).code)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/healthz", nil, nil).code)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "securegate_http_requests_total")
}
