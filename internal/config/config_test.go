package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokensValidate(t *testing.T) {
	valid := Tokens{
		AccessSecret:  "access",
		AccessTTL:     15 * time.Minute,
		RefreshSecret: "refresh",
		RefreshTTL:    24 * time.Hour,
	}

	tests := []struct {
		name    string
		mutate  func(*Tokens)
		wantErr error
	}{
		{name: "valid", mutate: func(*Tokens) {}},
		{name: "missing access secret", mutate: func(t *Tokens) { t.AccessSecret = "" }, wantErr: ErrMissingSecret},
		{name: "missing refresh secret", mutate: func(t *Tokens) { t.RefreshSecret = "" }, wantErr: ErrMissingSecret},
		{name: "same secrets", mutate: func(t *Tokens) { t.RefreshSecret = t.AccessSecret }, wantErr: ErrSameSecrets},
		{name: "zero access ttl", mutate: func(t *Tokens) { t.AccessTTL = 0 }, wantErr: ErrInvalidTTL},
		{name: "refresh shorter than access", mutate: func(t *Tokens) { t.RefreshTTL = time.Minute }, wantErr: ErrRefreshTTL},
		{name: "refresh equal to access", mutate: func(t *Tokens) { t.RefreshTTL = t.AccessTTL }, wantErr: ErrRefreshTTL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := valid
			tt.mutate(&tokens)

			err := tokens.Validate()
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
env: local
storage:
  driver: sqlite
  sqlite:
    path: /tmp/vidtube.db
tokens:
  access_secret: a-secret
  access_ttl: 10m
  refresh_secret: r-secret
  refresh_ttl: 48h
http_server:
  address: ":9000"
  insecure_cookie: true
  rate_limit:
    login_requests: 3
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "/tmp/vidtube.db", cfg.Storage.SQLite.Path)
	assert.Equal(t, 10*time.Minute, cfg.Tokens.AccessTTL)
	assert.Equal(t, 48*time.Hour, cfg.Tokens.RefreshTTL)
	assert.Equal(t, ":9000", cfg.HTTPServer.Address)
	assert.True(t, cfg.HTTPServer.InsecureCookie)
	assert.Equal(t, 3, cfg.HTTPServer.RateLimit.LoginRequests)
	assert.Equal(t, 5*time.Minute, cfg.HTTPServer.RateLimit.LoginWindow)
	assert.Equal(t, 5, cfg.HTTPServer.RateLimit.RegisterRequests)
	assert.Equal(t, time.Hour, cfg.HTTPServer.RateLimit.RegisterWindow)
	assert.Equal(t, 10, cfg.Password.Cost)
	assert.Equal(t, 44044, cfg.Grpc.Port)
}

func TestLoad_FailCases(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{
			name: "missing secrets",
			body: `
env: prod
storage:
  driver: mongo
`,
			wantErr: ErrMissingSecret,
		},
		{
			name: "unknown driver",
			body: `
env: prod
storage:
  driver: cassandra
tokens:
  access_secret: a
  refresh_secret: r
`,
			wantErr: ErrUnknownDriver,
		},
		{
			name: "insecure cookies outside local",
			body: `
env: prod
storage:
  driver: mongo
tokens:
  access_secret: a
  refresh_secret: r
http_server:
  insecure_cookie: true
`,
			wantErr: ErrInsecureCookies,
		},
		{
			name: "non-positive rate limit",
			body: `
env: prod
storage:
  driver: mongo
tokens:
  access_secret: a
  refresh_secret: r
http_server:
  rate_limit:
    refresh_window: -1s
`,
			wantErr: ErrInvalidRateLimit,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoad_CookiesSecureByDefault(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		env          string
		wantInsecure bool
	}{
		{
			name: "omitted",
			body: "env: prod\n",
		},
		{
			name: "explicit false",
			body: "env: prod\nhttp_server:\n  insecure_cookie: false\n",
		},
		{
			name:         "env override in local",
			body:         "env: local\n",
			env:          "true",
			wantInsecure: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.env != "" {
				t.Setenv("HTTP_INSECURE_COOKIE", tt.env)
			}

			body := tt.body + "storage:\n  driver: mongo\ntokens:\n  access_secret: a\n  refresh_secret: r\n"
			cfg, err := Load(writeConfig(t, body))
			require.NoError(t, err)
			assert.Equal(t, tt.wantInsecure, cfg.HTTPServer.InsecureCookie)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}
