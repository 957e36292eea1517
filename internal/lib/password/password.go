// Package password hashes and verifies user passwords with bcrypt.
//
// Every Hash call draws a fresh salt, so hashing the same password twice
// yields different digests. Verify relies on bcrypt's constant-time compare.
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultCost = 10
	// MaxLength is the bcrypt input limit. Longer passwords are rejected
	// rather than silently truncated.
	MaxLength = 72
)

var (
	ErrTooLong     = errors.New("password is too long")
	ErrEmpty       = errors.New("password is empty")
	ErrInvalidCost = errors.New("invalid bcrypt cost")
)

type Hasher struct {
	cost int
}

// New returns a Hasher using cost, or DefaultCost when cost is zero.
func New(cost int) (*Hasher, error) {
	if cost == 0 {
		cost = DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCost, cost)
	}

	return &Hasher{cost: cost}, nil
}

func (h *Hasher) Hash(plain string) ([]byte, error) {
	const op = "password.Hash"

	if plain == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrEmpty)
	}
	if len(plain) > MaxLength {
		return nil, fmt.Errorf("%s: %w", op, ErrTooLong)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return hash, nil
}

// Verify reports whether plain matches hash. A mismatch is not an error;
// a malformed hash is.
func (h *Hasher) Verify(plain string, hash []byte) (bool, error) {
	const op = "password.Verify"

	err := bcrypt.CompareHashAndPassword(hash, []byte(plain))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}

	return false, fmt.Errorf("%s: %w", op, err)
}
