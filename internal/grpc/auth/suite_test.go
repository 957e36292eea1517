package auth_test

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"vidtube/internal/config"
	authgrpc "vidtube/internal/grpc/auth"
	"vidtube/internal/lib/jwt"
	"vidtube/internal/lib/logger/handlers/slogdiscard"
	"vidtube/internal/lib/password"
	"vidtube/internal/services/auth"
	"vidtube/internal/storage/sqlite"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
)

const bufSize = 1 << 20

type Suite struct {
	*testing.T
	Cfg        config.Tokens
	AuthClient *authgrpc.Client
}

func NewSuite(t *testing.T) (context.Context, *Suite) {
	t.Helper()

	cfg := config.Tokens{
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

	tokens, err := jwt.New(cfg)
	require.NoError(t, err)

	log := slogdiscard.NewDiscardLogger()
	svc := auth.New(log, storage, storage, storage, hasher, tokens, nil, nil)

	lis := bufconn.Listen(bufSize)
	srv := grpc.NewServer()
	authgrpc.Register(srv, svc)

	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	cc, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cc.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	return ctx, &Suite{
		T:          t,
		Cfg:        cfg,
		AuthClient: authgrpc.NewClient(cc),
	}
}
