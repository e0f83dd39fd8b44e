package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	_ "github.com/musichub/catalog-api/docs"
	"github.com/musichub/catalog-api/internal/core/domain"
	"github.com/musichub/catalog-api/internal/core/service"
	"github.com/musichub/catalog-api/internal/infrastructure/db/memory"
)

type testServer struct {
	t     *testing.T
	h     http.Handler
	users *memory.UserDirectory
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	users := memory.NewUserDirectory()
	codec, err := service.NewJWTCodec(service.TokenCodecConfig{
		Secret:     []byte("router-test-secret"),
		Issuer:     "musichub",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 720 * time.Hour,
	})
	require.NoError(t, err)

	guard := service.NewGuard(codec, users, zerolog.Nop())
	sessions := service.NewSessionService(users, service.NewBcryptVerifier(bcrypt.MinCost), codec, guard, zerolog.Nop())
	reg := prometheus.NewRegistry()

	e := NewRouter(Deps{
		Guard:      guard,
		Sessions:   sessions,
		Users:      service.NewUserService(users, zerolog.Nop()),
		Log:        zerolog.Nop(),
		Registerer: reg,
		Gatherer:   reg,
	})
	return &testServer{t: t, h: e, users: users}
}

func (s *testServer) do(method, path, token, contentType, body string) *httptest.ResponseRecorder {
	s.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.h.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) signup(username, email, password string) *httptest.ResponseRecorder {
	body := `{"username":"` + username + `","email":"` + email + `","password":"` + password + `"}`
	return s.do(http.MethodPost, "/jwt/auth/signup", "", "application/json", body)
}

func (s *testServer) login(email, password string) *httptest.ResponseRecorder {
	form := url.Values{"username": {email}, "password": {password}}
	return s.do(http.MethodPost, "/jwt/auth/login", "", "application/x-www-form-urlencoded", form.Encode())
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

func TestRouter_SessionLifecycle(t *testing.T) {
	s := newTestServer(t)

	rec := s.signup("ana", "ana@example.com", "pw")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.login("ana@example.com", "pw")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	pair := decode[tokens](t, rec)
	assert.Equal(t, "Bearer", pair.TokenType)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	// First login promoted the guest to admin.
	rec = s.do(http.MethodGet, "/jwt/users/me", pair.AccessToken, "", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	me := decode[map[string]any](t, rec)
	assert.Equal(t, "admin", me["user"].(map[string]any)["role"])
	assert.NotZero(t, me["logged_in_at"])

	rec = s.do(http.MethodGet, "/jwt/users/all", pair.AccessToken, "", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, "/jwt/auth/refresh", pair.RefreshToken, "", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	refreshed := decode[tokens](t, rec)
	assert.Empty(t, refreshed.RefreshToken)

	rec = s.do(http.MethodGet, "/jwt/users/me", refreshed.AccessToken, "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	// A refresh token is not an access token, and vice versa.
	rec = s.do(http.MethodGet, "/jwt/users/me", pair.RefreshToken, "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))

	rec = s.do(http.MethodPost, "/jwt/auth/refresh", pair.AccessToken, "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_SignupConflictAndBadLogin(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.signup("ana", "ana@example.com", "pw").Code)

	rec := s.signup("ana2", "ana@example.com", "pw")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.login("ana@example.com", "nope")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.login("ghost@example.com", "pw")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_InactiveLogin(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.signup("ana", "ana@example.com", "pw").Code)
	require.NoError(t, s.users.SetActive(t.Context(), "ana@example.com", false))

	rec := s.login("ana@example.com", "pw")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRouter_AdminRoutes(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.signup("boss", "boss@example.com", "pw").Code)
	require.Equal(t, http.StatusCreated, s.signup("ana", "ana@example.com", "pw").Code)

	admin := decode[tokens](t, s.login("boss@example.com", "pw"))

	// Demote ana to a plain user before she ever logs in as guest->admin.
	rec := s.do(http.MethodPut, "/jwt/users/ana@example.com/role", admin.AccessToken, "application/json", `{"role":"user"}`)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	user := decode[tokens](t, s.login("ana@example.com", "pw"))
	rec = s.do(http.MethodGet, "/jwt/users/all", user.AccessToken, "", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Swagger UI and most clients percent-encode the "@".
	rec = s.do(http.MethodPut, "/jwt/users/ana%40example.com/role", admin.AccessToken, "application/json", `{"role":"user"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPut, "/jwt/users/ghost@example.com/role", admin.AccessToken, "application/json", `{"role":"user"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodPut, "/jwt/users/ana@example.com/active", admin.AccessToken, "application/json", `{"active":false}`)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	// Deactivated subject: the guard no longer resolves the token.
	rec = s.do(http.MethodGet, "/jwt/users/me", user.AccessToken, "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodGet, "/jwt/users/all?limit=1", admin.AccessToken, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[map[string]any](t, rec)
	assert.Len(t, page["users"], 1)
}

func TestRouter_DeleteAccount(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.signup("ana", "ana@example.com", "pw").Code)
	pair := decode[tokens](t, s.login("ana@example.com", "pw"))

	rec := s.do(http.MethodDelete, "/jwt/users/delete/account", pair.AccessToken, "", "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	_, err := s.users.FindByEmail(t.Context(), "ana@example.com")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	rec = s.do(http.MethodGet, "/jwt/users/me", pair.AccessToken, "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_OpsEndpoints(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/health", "", "", "").Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/health/ready", "", "", "").Code)

	rec := s.do(http.MethodGet, "/metrics", "", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "musichub_requests_total")

	rec = s.do(http.MethodGet, "/swagger/doc.json", "", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/jwt/auth/login")
}

func TestRouter_MissingToken(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodGet, "/jwt/users/me", "", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
}
