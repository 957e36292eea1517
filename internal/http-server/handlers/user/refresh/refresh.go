package refresh

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"vidtube/internal/domain/models"
	"vidtube/internal/http-server/cookies"
	"vidtube/internal/http-server/handlers"
	resp "vidtube/internal/lib/api/response"
	"vidtube/internal/lib/sl"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

// Request is optional; the refreshToken cookie takes precedence.
type Request struct {
	RefreshToken string `json:"refreshToken"`
}

type Data struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error)
}

func New(log *slog.Logger, jar cookies.Jar, refresher TokenRefresher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.user.refresh.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		token := cookies.Value(r, cookies.RefreshToken)
		if token == "" {
			// an unreadable body is the same as no token: the service answers 401
			var req Request
			if err := render.DecodeJSON(r.Body, &req); err != nil && !errors.Is(err, io.EOF) {
				log.Warn("failed to decode request body", sl.Err(err))
			}
			token = req.RefreshToken
		}

		ctx, cancel := context.WithTimeout(r.Context(), handlers.RequestTimeout)
		defer cancel()

		pair, err := refresher.Refresh(ctx, token)
		if err != nil {
			handlers.RenderError(w, r, log, err)
			return
		}

		log.Info("tokens refreshed")

		jar.SetTokens(w, pair)
		resp.Render(w, r, resp.OK(http.StatusOK, "Access token refreshed", Data{
			AccessToken:  pair.AccessToken,
			RefreshToken: pair.RefreshToken,
		}))
	}
}
