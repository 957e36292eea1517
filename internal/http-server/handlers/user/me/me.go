package me

import (
	"context"
	"log/slog"
	"net/http"

	"vidtube/internal/domain/models"
	"vidtube/internal/http-server/handlers"
	"vidtube/internal/http-server/middleware/authgate"
	resp "vidtube/internal/lib/api/response"

	"github.com/go-chi/chi/middleware"
)

type UserProvider interface {
	CurrentUser(ctx context.Context, userID string) (models.PublicUser, error)
}

func New(log *slog.Logger, provider UserProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.user.me.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		gated, ok := authgate.UserFromContext(r.Context())
		if !ok {
			resp.Render(w, r, resp.Error(http.StatusUnauthorized, "unauthorized request"))
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), handlers.RequestTimeout)
		defer cancel()

		user, err := provider.CurrentUser(ctx, gated.ID)
		if err != nil {
			handlers.RenderError(w, r, log, err)
			return
		}

		resp.Render(w, r, resp.OK(http.StatusOK, "Current user fetched successfully", user))
	}
}
