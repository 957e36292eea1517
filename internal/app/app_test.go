package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"vidtube/internal/config"
	"vidtube/internal/lib/logger/handlers/slogdiscard"
	"vidtube/internal/storage/sqlite"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	path := filepath.Join(t.TempDir(), "vidtube.db")
	require.NoError(t, sqlite.Migrate(path))

	return &config.Config{
		Env: "local",
		Storage: config.Storage{
			Driver: config.DriverSQLite,
			SQLite: config.SQLite{Path: path},
		},
		Tokens: config.Tokens{
			AccessSecret:  "a",
			AccessTTL:     time.Minute,
			RefreshSecret: "r",
			RefreshTTL:    time.Hour,
		},
		Password: config.Password{Cost: 4},
		HTTPServer: config.HTTPServer{
			Address: "127.0.0.1:0",
			RateLimit: config.RateLimit{
				LoginRequests:    10,
				LoginWindow:      time.Minute,
				RegisterRequests: 10,
				RegisterWindow:   time.Minute,
				RefreshRequests:  10,
				RefreshWindow:    time.Minute,
				LogoutRequests:   10,
				LogoutWindow:     time.Minute,
			},
		},
		Grpc: config.GRPCConfig{Port: 0, Timeout: time.Second},
	}
}

func TestNew_SQLite(t *testing.T) {
	ctx := context.Background()

	a, err := New(ctx, slogdiscard.NewDiscardLogger(), testConfig(t))
	require.NoError(t, err)

	assert.NotNil(t, a.GRPCSrv)
	assert.NotNil(t, a.HTTPSrv)
	assert.Len(t, a.closers, 1)

	a.Close(ctx)
	assert.Empty(t, a.closers)
}

func TestNew_FailCases(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown driver", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Storage.Driver = "cassandra"

		_, err := New(ctx, slogdiscard.NewDiscardLogger(), cfg)
		require.ErrorIs(t, err, config.ErrUnknownDriver)
	})

	t.Run("bad token config", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Tokens.RefreshSecret = cfg.Tokens.AccessSecret

		_, err := New(ctx, slogdiscard.NewDiscardLogger(), cfg)
		require.ErrorIs(t, err, config.ErrSameSecrets)
	})
}
