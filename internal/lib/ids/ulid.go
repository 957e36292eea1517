// Package ids mints the ULIDs used for user ids and token ids.
package ids

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	mu sync.Mutex
	// entropy is monotonic within a millisecond, so ids minted for the same
	// instant still sort in the order they were issued.
	entropy = ulid.Monotonic(rand.Reader, 0)
)

// NewULID returns a 26 char ULID stamped with now. Zero now means time.Now.
func NewULID(now time.Time) (string, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}

	mu.Lock()
	id, err := ulid.New(ulid.Timestamp(now), entropy)
	mu.Unlock()
	if err != nil {
		return "", err
	}

	return id.String(), nil
}

// Valid reports whether s is a canonical ULID. Token subjects are checked
// with it before any store lookup.
func Valid(s string) bool {
	_, err := ulid.ParseStrict(s)
	return err == nil
}
