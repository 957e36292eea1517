package app

import (
	"context"
	"fmt"
	"log/slog"

	grpcapp "vidtube/internal/app/grpc"
	httpapp "vidtube/internal/app/http"
	"vidtube/internal/config"
	"vidtube/internal/domain/models"
	"vidtube/internal/events/rabbitmq"
	"vidtube/internal/http-server/cookies"
	"vidtube/internal/lib/jwt"
	"vidtube/internal/lib/password"
	"vidtube/internal/lib/sl"
	"vidtube/internal/metrics"
	"vidtube/internal/services/auth"
	"vidtube/internal/storage/mongodb"
	"vidtube/internal/storage/postgres"
	"vidtube/internal/storage/sqlite"
)

// Storage is what every driver provides to the auth service.
type Storage interface {
	SaveUser(ctx context.Context, user models.User) error
	UserByID(ctx context.Context, id string) (models.User, error)
	UserByUsernameOrEmail(ctx context.Context, username, email string) (models.User, error)
	SetRefreshToken(ctx context.Context, id string, token *string) error
	RotateRefreshToken(ctx context.Context, id, expected, next string) error
	UpdatePassword(ctx context.Context, id string, passHash []byte) error
}

type App struct {
	log     *slog.Logger
	GRPCSrv *grpcapp.App
	HTTPSrv *httpapp.App

	closers []func(ctx context.Context) error
}

func New(ctx context.Context, log *slog.Logger, cfg *config.Config) (*App, error) {
	const op = "app.New"

	a := &App{log: log}

	storage, err := a.openStorage(ctx, cfg.Storage)
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	hasher, err := password.New(cfg.Password.Cost)
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	tokens, err := jwt.New(cfg.Tokens)
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var publisher auth.Publisher
	if cfg.RabbitMQ.URL != "" {
		p, err := rabbitmq.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)
		if err != nil {
			a.Close(ctx)
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		a.closers = append(a.closers, func(context.Context) error { return p.Close() })
		publisher = p
	} else {
		log.Info("rabbitmq url is empty, identity events are disabled")
	}

	m := metrics.New()

	authService := auth.New(log, storage, storage, storage, hasher, tokens, publisher, m)

	jar := cookies.Jar{
		Secure:     !cfg.HTTPServer.InsecureCookie,
		AccessTTL:  tokens.AccessTTL(),
		RefreshTTL: tokens.RefreshTTL(),
	}

	a.GRPCSrv = grpcapp.New(log, authService, cfg.Grpc.Port, cfg.Grpc.Timeout)
	a.HTTPSrv = httpapp.New(log, cfg.HTTPServer, authService, jar, m)

	return a, nil
}

func (a *App) openStorage(ctx context.Context, cfg config.Storage) (Storage, error) {
	log := a.log.With(slog.String("driver", cfg.Driver))

	switch cfg.Driver {
	case config.DriverMongo:
		s, err := mongodb.New(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, s.Close)
		log.Info("storage connected", slog.String("database", cfg.Mongo.Database))
		return s, nil
	case config.DriverSQLite:
		s, err := sqlite.New(cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return s.Close() })
		log.Info("storage connected", slog.String("path", cfg.SQLite.Path))
		return s, nil
	case config.DriverPostgres:
		s, err := postgres.New(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { s.Close(); return nil })
		log.Info("storage connected")
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownDriver, cfg.Driver)
	}
}

// Close releases storage and broker connections in reverse order.
func (a *App) Close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.log.Error("failed to close resource", sl.Err(err))
		}
	}
	a.closers = nil
}
