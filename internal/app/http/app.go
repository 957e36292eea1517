package httpapp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"vidtube/internal/config"
	"vidtube/internal/http-server/cookies"
	"vidtube/internal/http-server/handlers/user/changepassword"
	"vidtube/internal/http-server/handlers/user/login"
	"vidtube/internal/http-server/handlers/user/logout"
	"vidtube/internal/http-server/handlers/user/me"
	"vidtube/internal/http-server/handlers/user/refresh"
	"vidtube/internal/http-server/handlers/user/register"
	"vidtube/internal/http-server/middleware/authgate"
	"vidtube/internal/http-server/middleware/mwlogger"
	"vidtube/internal/http-server/middleware/ratelimit"
	resp "vidtube/internal/lib/api/response"
	"vidtube/internal/lib/sl"
	"vidtube/internal/metrics"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator/v10"
)

type Auth interface {
	register.UserRegisterer
	login.UserLoginer
	refresh.TokenRefresher
	logout.UserLogouter
	me.UserProvider
	changepassword.PasswordChanger
	authgate.Authenticator
}

type App struct {
	log    *slog.Logger
	server *http.Server
}

func New(
	log *slog.Logger,
	cfg config.HTTPServer,
	authService Auth,
	jar cookies.Jar,
	m *metrics.Metrics,
) *App {
	return &App{
		log: log,
		server: &http.Server{
			Addr:         cfg.Address,
			Handler:      NewRouter(log, cfg.RateLimit, authService, jar, m),
			ReadTimeout:  cfg.Timeout,
			WriteTimeout: cfg.Timeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
	}
}

func NewRouter(
	log *slog.Logger,
	limits config.RateLimit,
	authService Auth,
	jar cookies.Jar,
	m *metrics.Metrics,
) http.Handler {
	validate := validator.New()

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(mwlogger.New(log))
	router.Use(middleware.Recoverer)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		resp.Render(w, r, resp.OK(http.StatusOK, "ok", nil))
	})
	router.Handle("/metrics", m.Handler())

	limiter := ratelimit.New(log, limits)
	gate := authgate.New(log, authService)

	// metrics sit outside the limiter and the gate so rejected requests are counted too
	router.Route("/api/v1/users", func(r chi.Router) {
		r.With(m.Middleware("register"), limiter.Register()).
			Post("/register", register.New(log, validate, authService))
		r.With(m.Middleware("login"), limiter.Login()).
			Post("/login", login.New(log, validate, jar, authService))
		r.With(m.Middleware("refresh"), limiter.Refresh()).
			Post("/refresh", refresh.New(log, jar, authService))

		r.With(m.Middleware("logout"), limiter.Logout(), gate).
			Post("/logout", logout.New(log, jar, authService))
		r.With(m.Middleware("me"), gate).
			Get("/me", me.New(log, authService))
		r.With(m.Middleware("change_password"), gate).
			Post("/change-password", changepassword.New(log, validate, jar, authService))
	})

	return router
}

func (a *App) MustRun() {
	if err := a.Run(); err != nil {
		panic(err)
	}
}

func (a *App) Run() error {
	const op = "httpapp.Run"

	log := a.log.With(
		slog.String("op", op),
		slog.String("address", a.server.Addr),
	)

	log.Info("HTTP server is running")

	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (a *App) Stop(ctx context.Context) {
	const op = "httpapp.Stop"

	log := a.log.With(slog.String("op", op))
	log.Info("stopping HTTP server", slog.String("address", a.server.Addr))

	if err := a.server.Shutdown(ctx); err != nil {
		log.Error("HTTP server shutdown error", sl.Err(err))
	}
}
