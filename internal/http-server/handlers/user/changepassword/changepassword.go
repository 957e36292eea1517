package changepassword

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"vidtube/internal/http-server/cookies"
	"vidtube/internal/http-server/handlers"
	"vidtube/internal/http-server/middleware/authgate"
	resp "vidtube/internal/lib/api/response"
	"vidtube/internal/lib/sl"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required"`
}

type PasswordChanger interface {
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
}

// New must be mounted behind authgate. The session ends on success, so the
// client has to log in again.
func New(log *slog.Logger, validate *validator.Validate, jar cookies.Jar, changer PasswordChanger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.user.changepassword.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		user, ok := authgate.UserFromContext(r.Context())
		if !ok {
			resp.Render(w, r, resp.Error(http.StatusUnauthorized, "unauthorized request"))
			return
		}

		var req Request

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("failed to decode request body", sl.Err(err))

			resp.Render(w, r, resp.Error(http.StatusBadRequest, "failed to decode request"))

			return
		}

		if err := validate.Struct(req); err != nil {
			var validateErr validator.ValidationErrors
			if !errors.As(err, &validateErr) {
				handlers.RenderError(w, r, log, err)
				return
			}

			log.Warn("invalid request", sl.Err(err))

			resp.Render(w, r, resp.ValidationError(validateErr))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), handlers.RequestTimeout)
		defer cancel()

		if err := changer.ChangePassword(ctx, user.ID, req.OldPassword, req.NewPassword); err != nil {
			handlers.RenderError(w, r, log, err)
			return
		}

		log.Info("password changed", slog.String("user_id", user.ID))

		jar.Clear(w)
		resp.Render(w, r, resp.OK(http.StatusOK, "Password changed successfully", nil))
	}
}
