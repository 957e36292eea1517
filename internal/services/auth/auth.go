package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"vidtube/internal/domain/models"
	"vidtube/internal/lib/ids"
	"vidtube/internal/lib/jwt"
	"vidtube/internal/lib/password"
	"vidtube/internal/lib/sl"
	"vidtube/internal/storage"
)

type Auth struct {
	log          *slog.Logger
	userSaver    UserSaver
	userProvider UserProvider
	sessions     SessionStorage
	hasher       PasswordHasher
	tokens       TokenManager
	publisher    Publisher
	recorder     Recorder
	now          func() time.Time
}

type UserSaver interface {
	SaveUser(ctx context.Context, user models.User) error
	UpdatePassword(ctx context.Context, id string, passHash []byte) error
}

type UserProvider interface {
	UserByID(ctx context.Context, id string) (models.User, error)
	UserByUsernameOrEmail(ctx context.Context, username, email string) (models.User, error)
}

type SessionStorage interface {
	SetRefreshToken(ctx context.Context, id string, token *string) error
	RotateRefreshToken(ctx context.Context, id, expected, next string) error
}

type PasswordHasher interface {
	Hash(plain string) ([]byte, error)
	Verify(plain string, hash []byte) (bool, error)
}

type TokenManager interface {
	IssuePair(user models.User, now time.Time) (models.TokenPair, error)
	ParseAccess(token string, now time.Time) (*jwt.AccessClaims, error)
	ParseRefresh(token string, now time.Time) (*jwt.RefreshClaims, error)
}

// Publisher receives identity lifecycle events. Delivery is best effort.
type Publisher interface {
	Publish(ctx context.Context, event models.Event) error
}

// Recorder counts operation outcomes.
type Recorder interface {
	ObserveAuth(op, result string)
}

type RegisterInput struct {
	FullName   string
	Email      string
	Username   string
	Password   string
	Avatar     string
	CoverImage string
}

type LoginInput struct {
	Username string
	Email    string
	Password string
}

// New returns a new instance of the Auth service. publisher and recorder
// may be nil.
func New(
	log *slog.Logger,
	userSaver UserSaver,
	userProvider UserProvider,
	sessions SessionStorage,
	hasher PasswordHasher,
	tokens TokenManager,
	publisher Publisher,
	recorder Recorder,
) *Auth {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}

	return &Auth{
		log:          log,
		userSaver:    userSaver,
		userProvider: userProvider,
		sessions:     sessions,
		hasher:       hasher,
		tokens:       tokens,
		publisher:    publisher,
		recorder:     recorder,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Register creates an identity with a hashed password.
func (a *Auth) Register(ctx context.Context, in RegisterInput) (user models.PublicUser, err error) {
	const op = "auth.Register"
	defer a.observe("register", &err)

	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = normalize(in.Email)
	in.Username = normalize(in.Username)
	in.Avatar = strings.TrimSpace(in.Avatar)
	in.CoverImage = strings.TrimSpace(in.CoverImage)

	log := a.log.With(
		slog.String("op", op),
		slog.String("username", in.Username),
	)
	log.Info("registering user")

	if in.FullName == "" || in.Email == "" || in.Username == "" || strings.TrimSpace(in.Password) == "" {
		return models.PublicUser{}, fmt.Errorf("%s: %w", op, ErrMissingFields)
	}

	_, err = a.userProvider.UserByUsernameOrEmail(ctx, in.Username, in.Email)
	switch {
	case err == nil:
		log.Warn("user already exists")
		return models.PublicUser{}, fmt.Errorf("%s: %w", op, ErrUserAlreadyExists)
	case !errors.Is(err, storage.ErrUserNotFound):
		log.Error("failed to look up user", sl.Err(err))
		return models.PublicUser{}, fmt.Errorf("%s: %w", op, err)
	}

	passHash, err := a.hashPassword(in.Password)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))
		return models.PublicUser{}, fmt.Errorf("%s: %w", op, err)
	}

	now := a.now()

	id, err := ids.NewULID(now)
	if err != nil {
		log.Error("failed to generate user id", sl.Err(err))
		return models.PublicUser{}, fmt.Errorf("%s: %w", op, err)
	}

	u := models.User{
		ID:         id,
		Username:   in.Username,
		Email:      in.Email,
		FullName:   in.FullName,
		Avatar:     in.Avatar,
		CoverImage: in.CoverImage,
		PassHash:   passHash,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := a.userSaver.SaveUser(ctx, u); err != nil {
		if errors.Is(err, storage.ErrUserAlreadyExists) {
			log.Warn("user already exists", sl.Err(err))
			return models.PublicUser{}, fmt.Errorf("%s: %w", op, ErrUserAlreadyExists)
		}
		log.Error("failed to save user", sl.Err(err))
		return models.PublicUser{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user registered", slog.String("user_id", u.ID))
	a.publish(ctx, log, models.EventUserRegistered, u)

	return u.Public(), nil
}

// Login verifies credentials, issues a fresh pair and stores the new
// refresh token, which invalidates any earlier session.
func (a *Auth) Login(ctx context.Context, in LoginInput) (user models.PublicUser, pair models.TokenPair, err error) {
	const op = "auth.Login"
	defer a.observe("login", &err)

	log := a.log.With(slog.String("op", op))
	log.Info("login request")

	username, email := normalize(in.Username), normalize(in.Email)
	if username == "" && email == "" {
		return models.PublicUser{}, models.TokenPair{}, fmt.Errorf("%s: %w", op, ErrMissingLogin)
	}
	if in.Password == "" {
		return models.PublicUser{}, models.TokenPair{}, fmt.Errorf("%s: %w", op, ErrMissingPassword)
	}

	u, err := a.userProvider.UserByUsernameOrEmail(ctx, username, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("user not found", sl.Err(err))
			return models.PublicUser{}, models.TokenPair{}, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		log.Error("failed to get user", sl.Err(err))
		return models.PublicUser{}, models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	ok, err := a.hasher.Verify(in.Password, u.PassHash)
	if err != nil {
		log.Error("failed to verify password", sl.Err(err))
		return models.PublicUser{}, models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		log.Warn("invalid password", slog.String("user_id", u.ID))
		return models.PublicUser{}, models.TokenPair{}, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	pair, err = a.tokens.IssuePair(u, a.now())
	if err != nil {
		log.Error("failed to issue tokens", sl.Err(err))
		return models.PublicUser{}, models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := a.sessions.SetRefreshToken(ctx, u.ID, &pair.RefreshToken); err != nil {
		log.Error("failed to save refresh token", sl.Err(err))
		return models.PublicUser{}, models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user logged in", slog.String("user_id", u.ID))
	a.publish(ctx, log, models.EventUserLoggedIn, u)

	return u.Public(), pair, nil
}

// Refresh exchanges the single active refresh token for a new pair. The
// stored token is swapped with compare-and-swap semantics, so a token that
// lost a concurrent race is rejected like any stale token.
func (a *Auth) Refresh(ctx context.Context, refreshToken string) (pair models.TokenPair, err error) {
	const op = "auth.Refresh"
	defer a.observe("refresh", &err)

	log := a.log.With(slog.String("op", op))
	log.Info("refresh request")

	if refreshToken == "" {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, ErrInvalidRefreshToken)
	}

	now := a.now()

	claims, err := a.tokens.ParseRefresh(refreshToken, now)
	if err != nil {
		log.Warn("refresh token rejected", sl.Err(err))
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, ErrInvalidRefreshToken)
	}

	u, err := a.userProvider.UserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("refresh token subject not found", slog.String("user_id", claims.Subject))
			return models.TokenPair{}, fmt.Errorf("%s: %w", op, ErrInvalidRefreshToken)
		}
		log.Error("failed to get user", sl.Err(err))
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	if !u.HasSession() || subtle.ConstantTimeCompare([]byte(*u.RefreshToken), []byte(refreshToken)) != 1 {
		log.Warn("refresh token is not the active one", slog.String("user_id", u.ID))
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, ErrInvalidRefreshToken)
	}

	pair, err = a.tokens.IssuePair(u, now)
	if err != nil {
		log.Error("failed to issue tokens", sl.Err(err))
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := a.sessions.RotateRefreshToken(ctx, u.ID, refreshToken, pair.RefreshToken); err != nil {
		if errors.Is(err, storage.ErrTokenMismatch) {
			log.Warn("refresh token rotated concurrently", slog.String("user_id", u.ID))
			return models.TokenPair{}, fmt.Errorf("%s: %w", op, ErrInvalidRefreshToken)
		}
		log.Error("failed to rotate refresh token", sl.Err(err))
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("tokens refreshed", slog.String("user_id", u.ID))

	return pair, nil
}

// Logout clears the stored refresh token. Logging out twice is not an error.
func (a *Auth) Logout(ctx context.Context, userID string) (err error) {
	const op = "auth.Logout"
	defer a.observe("logout", &err)

	log := a.log.With(
		slog.String("op", op),
		slog.String("user_id", userID),
	)

	if err := a.sessions.SetRefreshToken(ctx, userID, nil); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("user vanished before logout")
			return nil
		}
		log.Error("failed to clear refresh token", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user logged out")
	a.publish(ctx, log, models.EventUserLoggedOut, models.User{ID: userID})

	return nil
}

// Authenticate resolves an access token to the identity it was issued for.
// It never writes.
func (a *Auth) Authenticate(ctx context.Context, accessToken string) (user models.PublicUser, err error) {
	const op = "auth.Authenticate"

	if accessToken == "" {
		return models.PublicUser{}, fmt.Errorf("%s: %w", op, ErrTokenMissing)
	}

	claims, err := a.tokens.ParseAccess(accessToken, a.now())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return models.PublicUser{}, fmt.Errorf("%s: %w", op, ErrTokenExpired)
		}
		return models.PublicUser{}, fmt.Errorf("%s: %w", op, ErrTokenInvalid)
	}

	u, err := a.userProvider.UserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return models.PublicUser{}, fmt.Errorf("%s: %w", op, ErrIdentityNotFound)
		}
		a.log.Error("failed to get user", slog.String("op", op), sl.Err(err))
		return models.PublicUser{}, fmt.Errorf("%s: %w", op, err)
	}

	return u.Public(), nil
}

// CurrentUser returns the profile of an authenticated user.
func (a *Auth) CurrentUser(ctx context.Context, userID string) (models.PublicUser, error) {
	const op = "auth.CurrentUser"

	u, err := a.userProvider.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return models.PublicUser{}, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return models.PublicUser{}, fmt.Errorf("%s: %w", op, err)
	}

	return u.Public(), nil
}

// ChangePassword re-hashes the password and ends the current session.
func (a *Auth) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) (err error) {
	const op = "auth.ChangePassword"
	defer a.observe("change_password", &err)

	log := a.log.With(
		slog.String("op", op),
		slog.String("user_id", userID),
	)

	if oldPassword == "" || strings.TrimSpace(newPassword) == "" {
		return fmt.Errorf("%s: %w", op, ErrMissingFields)
	}

	u, err := a.userProvider.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		log.Error("failed to get user", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	ok, err := a.hasher.Verify(oldPassword, u.PassHash)
	if err != nil {
		log.Error("failed to verify password", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		log.Warn("invalid old password")
		return fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	passHash, err := a.hashPassword(newPassword)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := a.userSaver.UpdatePassword(ctx, u.ID, passHash); err != nil {
		log.Error("failed to update password", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("password changed")
	a.publish(ctx, log, models.EventUserPasswordChanged, u)

	return nil
}

func (a *Auth) hashPassword(plain string) ([]byte, error) {
	hash, err := a.hasher.Hash(plain)
	if err != nil {
		if errors.Is(err, password.ErrTooLong) {
			return nil, ErrPasswordTooLong
		}
		return nil, err
	}

	return hash, nil
}

func (a *Auth) publish(ctx context.Context, log *slog.Logger, eventType string, u models.User) {
	event := models.Event{
		Type:       eventType,
		UserID:     u.ID,
		Username:   u.Username,
		Email:      u.Email,
		OccurredAt: a.now(),
	}

	if err := a.publisher.Publish(ctx, event); err != nil {
		log.Warn("failed to publish event", slog.String("event", eventType), sl.Err(err))
	}
}

func (a *Auth) observe(op string, err *error) {
	result := "ok"
	if *err != nil {
		result = KindOf(*err).String()
	}
	a.recorder.ObserveAuth(op, result)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, models.Event) error { return nil }

type nopRecorder struct{}

func (nopRecorder) ObserveAuth(string, string) {}
