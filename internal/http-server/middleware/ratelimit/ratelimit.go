// Package ratelimit caps requests per client IP on the public user routes.
package ratelimit

import (
	"log/slog"
	"net/http"
	"time"

	"vidtube/internal/config"
	resp "vidtube/internal/lib/api/response"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"
)

const msgTooManyRequests = "too many requests, try again later"

type Limiter struct {
	log *slog.Logger
	cfg config.RateLimit
}

func New(log *slog.Logger, cfg config.RateLimit) *Limiter {
	return &Limiter{
		log: log.With(slog.String("component", "middleware/ratelimit")),
		cfg: cfg,
	}
}

func (l *Limiter) Login() func(http.Handler) http.Handler {
	return l.byIP("login", l.cfg.LoginRequests, l.cfg.LoginWindow)
}

func (l *Limiter) Register() func(http.Handler) http.Handler {
	return l.byIP("register", l.cfg.RegisterRequests, l.cfg.RegisterWindow)
}

func (l *Limiter) Refresh() func(http.Handler) http.Handler {
	return l.byIP("refresh", l.cfg.RefreshRequests, l.cfg.RefreshWindow)
}

func (l *Limiter) Logout() func(http.Handler) http.Handler {
	return l.byIP("logout", l.cfg.LogoutRequests, l.cfg.LogoutWindow)
}

// byIP keeps a separate counter per route, so a burst of logins does not
// eat into the refresh budget of the same client.
func (l *Limiter) byIP(route string, requests int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(requests, window,
		httprate.WithKeyByIP(),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			l.log.Warn("rate limit exceeded",
				slog.String("route", route),
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			resp.Render(w, r, resp.Error(http.StatusTooManyRequests, msgTooManyRequests))
		}),
	)
}
