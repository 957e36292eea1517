package ratelimit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"vidtube/internal/config"
	"vidtube/internal/lib/logger/handlers/slogdiscard"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLimits() config.RateLimit {
	return config.RateLimit{
		LoginRequests:    2,
		LoginWindow:      time.Minute,
		RegisterRequests: 5,
		RegisterWindow:   time.Hour,
		RefreshRequests:  3,
		RefreshWindow:    time.Minute,
		LogoutRequests:   3,
		LogoutWindow:     time.Minute,
	}
}

func created(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusCreated)
}

func send(h http.Handler, ip string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, "/", nil)
	r.RemoteAddr = ip + ":5555"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestRegister_LimitsPerIP(t *testing.T) {
	l := New(slogdiscard.NewDiscardLogger(), testLimits())
	h := l.Register()(http.HandlerFunc(created))

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusCreated, send(h, "10.0.0.1").Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, send(h, "10.0.0.1").Code)
	assert.Equal(t, http.StatusCreated, send(h, "10.0.0.2").Code)
}

func TestLogin_UsesConfiguredLimit(t *testing.T) {
	l := New(slogdiscard.NewDiscardLogger(), testLimits())
	h := l.Login()(http.HandlerFunc(created))

	assert.Equal(t, http.StatusCreated, send(h, "10.0.0.1").Code)
	assert.Equal(t, http.StatusCreated, send(h, "10.0.0.1").Code)

	w := send(h, "10.0.0.1")
	require.Equal(t, http.StatusTooManyRequests, w.Code)

	var body struct {
		StatusCode int    `json:"statusCode"`
		Success    bool   `json:"success"`
		Message    string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, http.StatusTooManyRequests, body.StatusCode)
	assert.False(t, body.Success)
	assert.Equal(t, msgTooManyRequests, body.Message)
}

func TestRoutesHaveSeparateBudgets(t *testing.T) {
	l := New(slogdiscard.NewDiscardLogger(), testLimits())
	login := l.Login()(http.HandlerFunc(created))
	refresh := l.Refresh()(http.HandlerFunc(created))

	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusCreated, send(login, "10.0.0.1").Code)
	}
	require.Equal(t, http.StatusTooManyRequests, send(login, "10.0.0.1").Code)

	assert.Equal(t, http.StatusCreated, send(refresh, "10.0.0.1").Code)
}
