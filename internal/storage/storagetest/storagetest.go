// Package storagetest holds the behaviour every user store must share.
package storagetest

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"vidtube/internal/domain/models"
	"vidtube/internal/lib/ids"
	"vidtube/internal/storage"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Store interface {
	SaveUser(ctx context.Context, user models.User) error
	UserByID(ctx context.Context, id string) (models.User, error)
	UserByUsernameOrEmail(ctx context.Context, username, email string) (models.User, error)
	SetRefreshToken(ctx context.Context, id string, token *string) error
	RotateRefreshToken(ctx context.Context, id, expected, next string) error
	UpdatePassword(ctx context.Context, id string, passHash []byte) error
}

// Run exercises s against the contract the auth service relies on.
func Run(t *testing.T, s Store) {
	t.Run("SaveAndFind", func(t *testing.T) { testSaveAndFind(t, s) })
	t.Run("Duplicate", func(t *testing.T) { testDuplicate(t, s) })
	t.Run("NotFound", func(t *testing.T) { testNotFound(t, s) })
	t.Run("SetRefreshToken", func(t *testing.T) { testSetRefreshToken(t, s) })
	t.Run("RotateRefreshToken", func(t *testing.T) { testRotate(t, s) })
	t.Run("ConcurrentRotate", func(t *testing.T) { testConcurrentRotate(t, s) })
	t.Run("UpdatePassword", func(t *testing.T) { testUpdatePassword(t, s) })
}

// NewUser returns a normalized user with random unique handles.
func NewUser(t *testing.T) models.User {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Millisecond)

	id, err := ids.NewULID(now)
	require.NoError(t, err)

	return models.User{
		ID:        id,
		Username:  strings.ToLower(gofakeit.Username() + gofakeit.DigitN(6)),
		Email:     strings.ToLower(gofakeit.DigitN(6) + gofakeit.Email()),
		FullName:  gofakeit.Name(),
		Avatar:    gofakeit.URL(),
		PassHash:  []byte(gofakeit.LetterN(60)),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func mustSave(t *testing.T, s Store) models.User {
	t.Helper()

	user := NewUser(t)
	require.NoError(t, s.SaveUser(context.Background(), user))

	return user
}

func testSaveAndFind(t *testing.T, s Store) {
	ctx := context.Background()
	user := mustSave(t, s)

	got, err := s.UserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, user.Username, got.Username)
	assert.Equal(t, user.Email, got.Email)
	assert.Equal(t, user.FullName, got.FullName)
	assert.Equal(t, user.Avatar, got.Avatar)
	assert.Equal(t, user.PassHash, got.PassHash)
	assert.Nil(t, got.RefreshToken)
	assert.WithinDuration(t, user.CreatedAt, got.CreatedAt, time.Second)

	byName, err := s.UserByUsernameOrEmail(ctx, user.Username, "")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byName.ID)

	byEmail, err := s.UserByUsernameOrEmail(ctx, "", user.Email)
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)
}

func testDuplicate(t *testing.T, s Store) {
	ctx := context.Background()
	user := mustSave(t, s)

	sameName := NewUser(t)
	sameName.Username = user.Username
	require.ErrorIs(t, s.SaveUser(ctx, sameName), storage.ErrUserAlreadyExists)

	sameEmail := NewUser(t)
	sameEmail.Email = user.Email
	require.ErrorIs(t, s.SaveUser(ctx, sameEmail), storage.ErrUserAlreadyExists)
}

func testNotFound(t *testing.T, s Store) {
	ctx := context.Background()
	missing := NewUser(t)

	_, err := s.UserByID(ctx, missing.ID)
	require.ErrorIs(t, err, storage.ErrUserNotFound)

	_, err = s.UserByUsernameOrEmail(ctx, missing.Username, missing.Email)
	require.ErrorIs(t, err, storage.ErrUserNotFound)

	token := "t"
	require.ErrorIs(t, s.SetRefreshToken(ctx, missing.ID, &token), storage.ErrUserNotFound)
	require.ErrorIs(t, s.UpdatePassword(ctx, missing.ID, []byte("h")), storage.ErrUserNotFound)
}

func testSetRefreshToken(t *testing.T, s Store) {
	ctx := context.Background()
	user := mustSave(t, s)

	token := gofakeit.UUID()
	require.NoError(t, s.SetRefreshToken(ctx, user.ID, &token))

	got, err := s.UserByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, got.RefreshToken)
	assert.Equal(t, token, *got.RefreshToken)

	require.NoError(t, s.SetRefreshToken(ctx, user.ID, nil))
	require.NoError(t, s.SetRefreshToken(ctx, user.ID, nil))

	got, err = s.UserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, got.RefreshToken)
}

func testRotate(t *testing.T, s Store) {
	ctx := context.Background()
	user := mustSave(t, s)

	first, second, third := gofakeit.UUID(), gofakeit.UUID(), gofakeit.UUID()
	require.NoError(t, s.SetRefreshToken(ctx, user.ID, &first))

	require.NoError(t, s.RotateRefreshToken(ctx, user.ID, first, second))
	require.ErrorIs(t, s.RotateRefreshToken(ctx, user.ID, first, third), storage.ErrTokenMismatch)

	got, err := s.UserByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, got.RefreshToken)
	assert.Equal(t, second, *got.RefreshToken)

	require.NoError(t, s.SetRefreshToken(ctx, user.ID, nil))
	require.ErrorIs(t, s.RotateRefreshToken(ctx, user.ID, second, third), storage.ErrTokenMismatch)
}

func testConcurrentRotate(t *testing.T, s Store) {
	ctx := context.Background()
	user := mustSave(t, s)

	current := gofakeit.UUID()
	require.NoError(t, s.SetRefreshToken(ctx, user.ID, &current))

	const workers = 8

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.RotateRefreshToken(ctx, user.ID, current, gofakeit.UUID()); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
}

func testUpdatePassword(t *testing.T, s Store) {
	ctx := context.Background()
	user := mustSave(t, s)

	token := gofakeit.UUID()
	require.NoError(t, s.SetRefreshToken(ctx, user.ID, &token))

	newHash := []byte(gofakeit.LetterN(60))
	require.NoError(t, s.UpdatePassword(ctx, user.ID, newHash))

	got, err := s.UserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, newHash, got.PassHash)
	assert.Nil(t, got.RefreshToken)
}
