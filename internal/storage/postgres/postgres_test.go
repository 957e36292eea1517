package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"vidtube/internal/storage/storagetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Integration tests run when VIDTUBE_POSTGRES_DSN is set.

func TestStorage(t *testing.T) {
	dsn := os.Getenv("VIDTUBE_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("VIDTUBE_POSTGRES_DSN is not set; skipping Postgres integration test")
	}

	require.NoError(t, Migrate(dsn))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s, err := New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(s.Close)

	storagetest.Run(t, s)
}

func TestMigrateURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "postgres://u:p@localhost:5432/db?sslmode=disable", want: "pgx5://u:p@localhost:5432/db?sslmode=disable"},
		{in: "postgresql://u@db/vidtube", want: "pgx5://u@db/vidtube"},
		{in: "pgx5://already", want: "pgx5://already"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, migrateURL(tt.in))
	}
}
