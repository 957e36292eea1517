package jwt

import (
	"errors"
	"fmt"
	"time"

	"vidtube/internal/config"
	"vidtube/internal/domain/models"
	"vidtube/internal/lib/ids"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenInvalid = errors.New("token is invalid")
	ErrTokenExpired = errors.New("token is expired")
)

// AccessClaims is carried by short-lived access tokens.
type AccessClaims struct {
	jwt.RegisteredClaims
	Email    string `json:"email"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
}

// RefreshClaims is carried by refresh tokens: only the subject id.
type RefreshClaims struct {
	jwt.RegisteredClaims
}

// Manager mints and verifies access and refresh tokens. It is safe for
// concurrent use; its only state is the configuration it was built with.
type Manager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func New(cfg config.Tokens) (*Manager, error) {
	const op = "jwt.New"

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Manager{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
	}, nil
}

func (m *Manager) AccessTTL() time.Duration  { return m.accessTTL }
func (m *Manager) RefreshTTL() time.Duration { return m.refreshTTL }

// IssueAccess signs {id, email, username, fullName} with the access secret.
func (m *Manager) IssueAccess(user models.User, now time.Time) (string, time.Time, error) {
	registered, err := registeredClaims(user.ID, now, m.accessTTL)
	if err != nil {
		return "", time.Time{}, err
	}

	claims := AccessClaims{
		RegisteredClaims: registered,
		Email:            user.Email,
		Username:         user.Username,
		FullName:         user.FullName,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.accessSecret)
	if err != nil {
		return "", time.Time{}, err
	}

	return token, registered.ExpiresAt.Time, nil
}

// IssueRefresh signs {id} with the refresh secret.
func (m *Manager) IssueRefresh(user models.User, now time.Time) (string, time.Time, error) {
	registered, err := registeredClaims(user.ID, now, m.refreshTTL)
	if err != nil {
		return "", time.Time{}, err
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, RefreshClaims{RegisteredClaims: registered}).
		SignedString(m.refreshSecret)
	if err != nil {
		return "", time.Time{}, err
	}

	return token, registered.ExpiresAt.Time, nil
}

func (m *Manager) IssuePair(user models.User, now time.Time) (models.TokenPair, error) {
	const op = "jwt.IssuePair"

	access, accessExp, err := m.IssueAccess(user, now)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: access: %w", op, err)
	}

	refresh, refreshExp, err := m.IssueRefresh(user, now)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: refresh: %w", op, err)
	}

	return models.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// ParseAccess verifies signature and expiry against the access secret.
func (m *Manager) ParseAccess(tokenString string, now time.Time) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := parse(tokenString, claims, m.accessSecret, now); err != nil {
		return nil, err
	}

	return claims, nil
}

// ParseRefresh verifies signature and expiry against the refresh secret.
func (m *Manager) ParseRefresh(tokenString string, now time.Time) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := parse(tokenString, claims, m.refreshSecret, now); err != nil {
		return nil, err
	}

	return claims, nil
}

func parse(tokenString string, claims jwt.Claims, secret []byte, now time.Time) error {
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return fmt.Errorf("%w: %s", ErrTokenInvalid, err.Error())
	}

	if !token.Valid {
		return ErrTokenInvalid
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}
	if !ids.Valid(sub) {
		return fmt.Errorf("%w: malformed subject", ErrTokenInvalid)
	}

	return nil
}

func registeredClaims(subject string, now time.Time, ttl time.Duration) (jwt.RegisteredClaims, error) {
	// jti keeps two tokens minted for the same user in the same second distinct.
	jti, err := ids.NewULID(now)
	if err != nil {
		return jwt.RegisteredClaims{}, err
	}

	return jwt.RegisteredClaims{
		ID:        jti,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}, nil
}
