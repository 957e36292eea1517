package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"vidtube/internal/domain/models"
	"vidtube/internal/storage"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type Storage struct {
	db *sql.DB
}

// New returns a new instance of the Storage.
func New(storagePath string) (*Storage, error) {
	const op = "storage.sqlite.New"

	db, err := sql.Open("sqlite3", storagePath+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// sqlite serialises writers anyway; one connection avoids SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{db: db}, nil
}

// Migrate applies all pending up migrations to the database at storagePath.
func Migrate(storagePath string) error {
	const op = "storage.sqlite.Migrate"

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, "sqlite3://"+storagePath)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) SaveUser(ctx context.Context, user models.User) error {
	const op = "storage.sqlite.SaveUser"

	stmt, err := s.db.PrepareContext(ctx, `
		INSERT INTO users (id, username, email, full_name, avatar, cover_image, pass_hash, refresh_token, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx,
		user.ID,
		user.Username,
		user.Email,
		user.FullName,
		user.Avatar,
		user.CoverImage,
		user.PassHash,
		nullString(user.RefreshToken),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) &&
			(sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique || sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey) {
			return fmt.Errorf("%s: %w", op, storage.ErrUserAlreadyExists)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) UserByID(ctx context.Context, id string) (models.User, error) {
	const op = "storage.sqlite.UserByID"

	row := s.db.QueryRowContext(ctx, selectUser+" WHERE id = ?", id)

	return scanUser(op, row)
}

func (s *Storage) UserByUsernameOrEmail(ctx context.Context, username, email string) (models.User, error) {
	const op = "storage.sqlite.UserByUsernameOrEmail"

	row := s.db.QueryRowContext(ctx, selectUser+" WHERE username = ? OR email = ? LIMIT 1", username, email)

	return scanUser(op, row)
}

func (s *Storage) SetRefreshToken(ctx context.Context, id string, token *string) error {
	const op = "storage.sqlite.SetRefreshToken"

	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET refresh_token = ?, updated_at = ?
		WHERE id = ?`,
		nullString(token), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return expectOneRow(op, res, storage.ErrUserNotFound)
}

// RotateRefreshToken swaps expected for next only if expected is still stored.
func (s *Storage) RotateRefreshToken(ctx context.Context, id, expected, next string) error {
	const op = "storage.sqlite.RotateRefreshToken"

	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET refresh_token = ?, updated_at = ?
		WHERE id = ? AND refresh_token = ?`,
		next, time.Now().UTC(), id, expected,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return expectOneRow(op, res, storage.ErrTokenMismatch)
}

func (s *Storage) UpdatePassword(ctx context.Context, id string, passHash []byte) error {
	const op = "storage.sqlite.UpdatePassword"

	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET pass_hash = ?, refresh_token = NULL, updated_at = ?
		WHERE id = ?`,
		passHash, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return expectOneRow(op, res, storage.ErrUserNotFound)
}

const selectUser = `
	SELECT id, username, email, full_name, avatar, cover_image, pass_hash, refresh_token, created_at, updated_at
	FROM users`

func scanUser(op string, row *sql.Row) (models.User, error) {
	var (
		user    models.User
		refresh sql.NullString
	)

	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.FullName,
		&user.Avatar,
		&user.CoverImage,
		&user.PassHash,
		&refresh,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
		}
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	if refresh.Valid {
		user.RefreshToken = &refresh.String
	}

	return user, nil
}

func expectOneRow(op string, res sql.Result, notMatched error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, notMatched)
	}

	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
