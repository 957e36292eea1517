package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"vidtube/internal/domain/models"
	"vidtube/internal/storage"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const uniqueViolation = "23505"

type Storage struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, dsn string) (*Storage, error) {
	const op = "storage.postgres.New"

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse config: %w", op, err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = time.Minute * 30

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create pool: %w", op, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: failed to ping database: %w", op, err)
	}

	return &Storage{pool: pool}, nil
}

// Migrate applies all pending up migrations. dsn is a postgres:// URL.
func Migrate(dsn string) error {
	const op = "storage.postgres.Migrate"

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, migrateURL(dsn))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) Close() {
	s.pool.Close()
}

func (s *Storage) SaveUser(ctx context.Context, user models.User) error {
	const op = "storage.postgres.SaveUser"

	const query = `
		INSERT INTO users (id, username, email, full_name, avatar, cover_image, pass_hash, refresh_token, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := s.pool.Exec(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.FullName,
		user.Avatar,
		user.CoverImage,
		user.PassHash,
		user.RefreshToken,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%s: %w", op, storage.ErrUserAlreadyExists)
		}
		return fmt.Errorf("%s: failed to save user: %w", op, err)
	}

	return nil
}

func (s *Storage) UserByID(ctx context.Context, id string) (models.User, error) {
	const op = "storage.postgres.UserByID"

	return s.queryUser(ctx, op, selectUser+` WHERE id = $1`, id)
}

func (s *Storage) UserByUsernameOrEmail(ctx context.Context, username, email string) (models.User, error) {
	const op = "storage.postgres.UserByUsernameOrEmail"

	return s.queryUser(ctx, op, selectUser+` WHERE username = $1 OR email = $2 LIMIT 1`, username, email)
}

func (s *Storage) SetRefreshToken(ctx context.Context, id string, token *string) error {
	const op = "storage.postgres.SetRefreshToken"

	const query = `
		UPDATE users
		SET refresh_token = $1, updated_at = NOW()
		WHERE id = $2
	`

	tag, err := s.pool.Exec(ctx, query, token, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}

	return nil
}

// RotateRefreshToken is a compare-and-swap on refresh_token.
func (s *Storage) RotateRefreshToken(ctx context.Context, id, expected, next string) error {
	const op = "storage.postgres.RotateRefreshToken"

	const query = `
		UPDATE users
		SET refresh_token = $1, updated_at = NOW()
		WHERE id = $2 AND refresh_token = $3
	`

	tag, err := s.pool.Exec(ctx, query, next, id, expected)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrTokenMismatch)
	}

	return nil
}

func (s *Storage) UpdatePassword(ctx context.Context, id string, passHash []byte) error {
	const op = "storage.postgres.UpdatePassword"

	const query = `
		UPDATE users
		SET pass_hash = $1, refresh_token = NULL, updated_at = NOW()
		WHERE id = $2
	`

	tag, err := s.pool.Exec(ctx, query, passHash, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}

	return nil
}

const selectUser = `
	SELECT id, username, email, full_name, avatar, cover_image, pass_hash, refresh_token, created_at, updated_at
	FROM users`

func (s *Storage) queryUser(ctx context.Context, op, query string, args ...any) (models.User, error) {
	var u models.User

	err := s.pool.QueryRow(ctx, query, args...).Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.FullName,
		&u.Avatar,
		&u.CoverImage,
		&u.PassHash,
		&u.RefreshToken,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
		}
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return u, nil
}

// migrateURL rewrites a postgres:// DSN to the scheme the pgx/v5 migrate driver registers.
func migrateURL(dsn string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(dsn, prefix) {
			return "pgx5://" + strings.TrimPrefix(dsn, prefix)
		}
	}
	return dsn
}
