package authgate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"vidtube/internal/domain/models"
	"vidtube/internal/http-server/cookies"
	"vidtube/internal/lib/logger/handlers/slogdiscard"
	"vidtube/internal/services/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAuthenticator map[string]models.PublicUser

func (s stubAuthenticator) Authenticate(_ context.Context, token string) (models.PublicUser, error) {
	switch token {
	case "":
		return models.PublicUser{}, auth.ErrTokenMissing
	case "expired":
		return models.PublicUser{}, auth.ErrTokenExpired
	case "orphan":
		return models.PublicUser{}, auth.ErrIdentityNotFound
	}
	user, ok := s[token]
	if !ok {
		return models.PublicUser{}, auth.ErrTokenInvalid
	}
	return user, nil
}

func TestAuthGate(t *testing.T) {
	alice := models.PublicUser{ID: "u1", Username: "alice"}
	gate := New(slogdiscard.NewDiscardLogger(), stubAuthenticator{"good": alice})

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		require.True(t, ok)
		_, _ = w.Write([]byte(user.Username))
	})
	h := gate(next)

	tests := []struct {
		name       string
		prepare    func(r *http.Request)
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "cookie",
			prepare:    func(r *http.Request) { r.AddCookie(&http.Cookie{Name: cookies.AccessToken, Value: "good"}) },
			wantStatus: http.StatusOK,
		},
		{
			name:       "bearer",
			prepare:    func(r *http.Request) { r.Header.Set("Authorization", "Bearer good") },
			wantStatus: http.StatusOK,
		},
		{
			name: "cookie wins over header",
			prepare: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: cookies.AccessToken, Value: "good"})
				r.Header.Set("Authorization", "Bearer bad")
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing",
			prepare:    func(*http.Request) {},
			wantStatus: http.StatusUnauthorized,
			wantMsg:    auth.ErrTokenMissing.Error(),
		},
		{
			name:       "not bearer scheme",
			prepare:    func(r *http.Request) { r.Header.Set("Authorization", "Basic good") },
			wantStatus: http.StatusUnauthorized,
			wantMsg:    auth.ErrTokenMissing.Error(),
		},
		{
			name:       "invalid",
			prepare:    func(r *http.Request) { r.Header.Set("Authorization", "Bearer forged") },
			wantStatus: http.StatusUnauthorized,
			wantMsg:    auth.ErrTokenInvalid.Error(),
		},
		{
			name:       "expired",
			prepare:    func(r *http.Request) { r.Header.Set("Authorization", "Bearer expired") },
			wantStatus: http.StatusUnauthorized,
			wantMsg:    auth.ErrTokenExpired.Error(),
		},
		{
			name:       "unknown identity",
			prepare:    func(r *http.Request) { r.Header.Set("Authorization", "Bearer orphan") },
			wantStatus: http.StatusUnauthorized,
			wantMsg:    auth.ErrIdentityNotFound.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/me", nil)
			tt.prepare(r)
			w := httptest.NewRecorder()

			h.ServeHTTP(w, r)

			require.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, "alice", w.Body.String())
				return
			}

			var body struct {
				StatusCode int    `json:"statusCode"`
				Success    bool   `json:"success"`
				Message    string `json:"message"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, http.StatusUnauthorized, body.StatusCode)
			assert.False(t, body.Success)
			assert.Equal(t, tt.wantMsg, body.Message)
		})
	}
}

func TestUserFromContext_Empty(t *testing.T) {
	_, ok := UserFromContext(context.Background())
	assert.False(t, ok)
}
