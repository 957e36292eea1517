package httpapp_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	httpapp "vidtube/internal/app/http"
	"vidtube/internal/config"
	"vidtube/internal/http-server/cookies"
	"vidtube/internal/lib/jwt"
	"vidtube/internal/lib/logger/handlers/slogdiscard"
	"vidtube/internal/lib/password"
	"vidtube/internal/metrics"
	"vidtube/internal/services/auth"
	"vidtube/internal/storage/sqlite"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	Errors     []string        `json:"errors"`
}

type testClient struct {
	t    *testing.T
	base string
	http *http.Client
}

func (c *testClient) do(method, path, body string, header http.Header) (int, envelope) {
	c.t.Helper()

	var rdr io.Reader
	if body != "" {
		rdr = bytes.NewBufferString(body)
	}

	req, err := http.NewRequest(method, c.base+path, rdr)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}

	res, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer res.Body.Close()

	var env envelope
	require.NoError(c.t, json.NewDecoder(res.Body).Decode(&env))
	require.Equal(c.t, res.StatusCode, env.StatusCode)

	return res.StatusCode, env
}

func newServer(t *testing.T) (*testClient, *metrics.Metrics) {
	t.Helper()

	tokens := config.Tokens{
		AccessSecret:  "access-test-secret",
		AccessTTL:     15 * time.Minute,
		RefreshSecret: "refresh-test-secret",
		RefreshTTL:    240 * time.Hour,
	}

	path := filepath.Join(t.TempDir(), "vidtube.db")
	require.NoError(t, sqlite.Migrate(path))

	storage, err := sqlite.New(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close() })

	hasher, err := password.New(bcrypt.MinCost)
	require.NoError(t, err)

	manager, err := jwt.New(tokens)
	require.NoError(t, err)

	m := metrics.New()
	log := slogdiscard.NewDiscardLogger()
	svc := auth.New(log, storage, storage, storage, hasher, manager, nil, m)

	jar := cookies.Jar{Secure: false, AccessTTL: tokens.AccessTTL, RefreshTTL: tokens.RefreshTTL}

	limits := config.RateLimit{
		LoginRequests:    100,
		LoginWindow:      time.Minute,
		RegisterRequests: 100,
		RegisterWindow:   time.Minute,
		RefreshRequests:  100,
		RefreshWindow:    time.Minute,
		LogoutRequests:   100,
		LogoutWindow:     time.Minute,
	}

	srv := httptest.NewServer(httpapp.NewRouter(log, limits, svc, jar, m))
	t.Cleanup(srv.Close)

	cj, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &testClient{t: t, base: srv.URL, http: &http.Client{Jar: cj}}, m
}

func TestUserSessionFlow(t *testing.T) {
	c, _ := newServer(t)

	code, env := c.do(http.MethodPost, "/api/v1/users/register",
		`{"fullName":"Alice A","email":"a@x.io","username":"Alice","password":"pw1"}`, nil)
	require.Equal(t, http.StatusCreated, code, env.Message)
	assert.True(t, env.Success)
	assert.NotContains(t, string(env.Data), "pass")
	assert.Contains(t, string(env.Data), `"username":"alice"`)

	code, env = c.do(http.MethodPost, "/api/v1/users/register",
		`{"fullName":"Alice B","email":"a@x.io","username":"alice2","password":"pw1"}`, nil)
	require.Equal(t, http.StatusConflict, code)
	assert.False(t, env.Success)

	code, env = c.do(http.MethodPost, "/api/v1/users/login", `{"username":"alice","password":"pw1"}`, nil)
	require.Equal(t, http.StatusOK, code, env.Message)

	var session struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &session))
	require.NotEmpty(t, session.AccessToken)
	require.NotEmpty(t, session.RefreshToken)

	code, env = c.do(http.MethodGet, "/api/v1/users/me", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"email":"a@x.io"`)

	// cookie-driven refresh rotates the pair
	code, env = c.do(http.MethodPost, "/api/v1/users/refresh", "", nil)
	require.Equal(t, http.StatusOK, code, env.Message)

	var rotated struct {
		RefreshToken string `json:"refreshToken"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &rotated))
	assert.NotEqual(t, session.RefreshToken, rotated.RefreshToken)

	// a bare client replaying the old token is rejected
	bare := &testClient{t: t, base: c.base, http: http.DefaultClient}
	code, env = bare.do(http.MethodPost, "/api/v1/users/refresh", `{"refreshToken":"`+session.RefreshToken+`"}`, nil)
	require.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, auth.ErrInvalidRefreshToken.Error(), env.Message)

	code, _ = c.do(http.MethodPost, "/api/v1/users/logout", "", nil)
	require.Equal(t, http.StatusOK, code)

	code, env = c.do(http.MethodGet, "/api/v1/users/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, auth.ErrTokenMissing.Error(), env.Message)

	code, _ = bare.do(http.MethodPost, "/api/v1/users/refresh", `{"refreshToken":"`+rotated.RefreshToken+`"}`, nil)
	require.Equal(t, http.StatusUnauthorized, code)

	// access tokens outlive logout until they expire
	code, _ = bare.do(http.MethodGet, "/api/v1/users/me", "", http.Header{
		"Authorization": {"Bearer " + session.AccessToken},
	})
	require.Equal(t, http.StatusOK, code)
}

func TestChangePasswordFlow(t *testing.T) {
	c, _ := newServer(t)

	code, _ := c.do(http.MethodPost, "/api/v1/users/register",
		`{"fullName":"Bob B","email":"bob@x.io","username":"bob","password":"old-pass"}`, nil)
	require.Equal(t, http.StatusCreated, code)

	code, _ = c.do(http.MethodPost, "/api/v1/users/login", `{"email":"bob@x.io","password":"old-pass"}`, nil)
	require.Equal(t, http.StatusOK, code)

	code, _ = c.do(http.MethodPost, "/api/v1/users/change-password", `{"oldPassword":"wrong","newPassword":"new-pass"}`, nil)
	require.Equal(t, http.StatusUnauthorized, code)

	code, _ = c.do(http.MethodPost, "/api/v1/users/change-password", `{"oldPassword":"old-pass","newPassword":"new-pass"}`, nil)
	require.Equal(t, http.StatusOK, code)

	code, _ = c.do(http.MethodPost, "/api/v1/users/login", `{"email":"bob@x.io","password":"old-pass"}`, nil)
	require.Equal(t, http.StatusUnauthorized, code)

	code, _ = c.do(http.MethodPost, "/api/v1/users/login", `{"email":"bob@x.io","password":"new-pass"}`, nil)
	require.Equal(t, http.StatusOK, code)
}

func TestValidationAndHealth(t *testing.T) {
	c, m := newServer(t)

	code, env := c.do(http.MethodPost, "/api/v1/users/register", `{"email":"not-an-email"}`, nil)
	require.Equal(t, http.StatusBadRequest, code)
	assert.NotEmpty(t, env.Errors)

	code, env = c.do(http.MethodPost, "/api/v1/users/register",
		`{"fullName":"  ","email":"c@x.io","username":"carol","password":"pw"}`, nil)
	require.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, auth.ErrMissingFields.Error(), env.Message)

	code, _ = c.do(http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, code)

	res, err := c.http.Get(c.base + "/metrics")
	require.NoError(t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `vidtube_auth_operations_total{op="register",result="validation"} 1`))
	assert.NotNil(t, m)
}

func TestGateRejectionsAreCounted(t *testing.T) {
	c, _ := newServer(t)

	code, env := c.do(http.MethodPost, "/api/v1/users/logout", "", nil)
	require.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, auth.ErrTokenMissing.Error(), env.Message)

	code, _ = c.do(http.MethodGet, "/api/v1/users/me", "", http.Header{
		"Authorization": {"Bearer not-a-token"},
	})
	require.Equal(t, http.StatusUnauthorized, code)

	body := scrapeMetrics(t, c)
	assert.Contains(t, body, `vidtube_http_requests_total{method="POST",route="logout",status="401"} 1`)
	assert.Contains(t, body, `vidtube_http_requests_total{method="GET",route="me",status="401"} 1`)
}

func scrapeMetrics(t *testing.T, c *testClient) string {
	t.Helper()

	res, err := c.http.Get(c.base + "/metrics")
	require.NoError(t, err)
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	return string(body)
}
