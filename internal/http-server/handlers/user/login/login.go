package login

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"vidtube/internal/domain/models"
	"vidtube/internal/http-server/cookies"
	"vidtube/internal/http-server/handlers"
	resp "vidtube/internal/lib/api/response"
	"vidtube/internal/lib/sl"
	"vidtube/internal/services/auth"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	Username string `json:"username,omitempty" validate:"required_without=Email"`
	Email    string `json:"email,omitempty" validate:"omitempty,email"`
	Password string `json:"password" validate:"required"`
}

type Data struct {
	User         models.PublicUser `json:"user"`
	AccessToken  string            `json:"accessToken"`
	RefreshToken string            `json:"refreshToken"`
}

type UserLoginer interface {
	Login(ctx context.Context, in auth.LoginInput) (models.PublicUser, models.TokenPair, error)
}

func New(log *slog.Logger, validate *validator.Validate, jar cookies.Jar, loginer UserLoginer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.user.login.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

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

		user, pair, err := loginer.Login(ctx, auth.LoginInput{
			Username: req.Username,
			Email:    req.Email,
			Password: req.Password,
		})
		if err != nil {
			handlers.RenderError(w, r, log, err)
			return
		}

		log.Info("user logged in", slog.String("user_id", user.ID))

		jar.SetTokens(w, pair)
		resp.Render(w, r, resp.OK(http.StatusOK, "User logged in successfully", Data{
			User:         user,
			AccessToken:  pair.AccessToken,
			RefreshToken: pair.RefreshToken,
		}))
	}
}
