package logout

import (
	"context"
	"log/slog"
	"net/http"

	"vidtube/internal/http-server/cookies"
	"vidtube/internal/http-server/handlers"
	"vidtube/internal/http-server/middleware/authgate"
	resp "vidtube/internal/lib/api/response"

	"github.com/go-chi/chi/middleware"
)

type UserLogouter interface {
	Logout(ctx context.Context, userID string) error
}

// New must be mounted behind authgate.
func New(log *slog.Logger, jar cookies.Jar, logouter UserLogouter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.user.logout.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		user, ok := authgate.UserFromContext(r.Context())
		if !ok {
			resp.Render(w, r, resp.Error(http.StatusUnauthorized, "unauthorized request"))
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), handlers.RequestTimeout)
		defer cancel()

		if err := logouter.Logout(ctx, user.ID); err != nil {
			handlers.RenderError(w, r, log, err)
			return
		}

		log.Info("user logged out", slog.String("user_id", user.ID))

		jar.Clear(w)
		resp.Render(w, r, resp.OK(http.StatusOK, "User logged out", nil))
	}
}
