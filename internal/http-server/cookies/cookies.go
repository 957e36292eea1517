package cookies

import (
	"net/http"
	"time"

	"vidtube/internal/domain/models"
)

const (
	AccessToken  = "accessToken"
	RefreshToken = "refreshToken"
)

// Jar writes the session cookies. Secure is only ever false in local env.
type Jar struct {
	Secure     bool
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func (j Jar) SetTokens(w http.ResponseWriter, pair models.TokenPair) {
	http.SetCookie(w, j.cookie(AccessToken, pair.AccessToken, j.AccessTTL, pair.AccessExpiresAt))
	http.SetCookie(w, j.cookie(RefreshToken, pair.RefreshToken, j.RefreshTTL, pair.RefreshExpiresAt))
}

func (j Jar) Clear(w http.ResponseWriter) {
	for _, name := range []string{AccessToken, RefreshToken} {
		c := j.cookie(name, "", 0, time.Unix(0, 0))
		c.MaxAge = -1
		http.SetCookie(w, c)
	}
}

func (j Jar) cookie(name, value string, ttl time.Duration, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   j.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Value returns the named cookie's value or "".
func Value(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
