package register

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"vidtube/internal/domain/models"
	"vidtube/internal/http-server/handlers"
	resp "vidtube/internal/lib/api/response"
	"vidtube/internal/lib/sl"
	"vidtube/internal/services/auth"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	FullName   string `json:"fullName" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Username   string `json:"username" validate:"required"`
	Password   string `json:"password" validate:"required"`
	Avatar     string `json:"avatar,omitempty" validate:"omitempty,url"`
	CoverImage string `json:"coverImage,omitempty" validate:"omitempty,url"`
}

type UserRegisterer interface {
	Register(ctx context.Context, in auth.RegisterInput) (models.PublicUser, error)
}

func New(log *slog.Logger, validate *validator.Validate, registerer UserRegisterer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.user.register.New"

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

		user, err := registerer.Register(ctx, auth.RegisterInput{
			FullName:   req.FullName,
			Email:      req.Email,
			Username:   req.Username,
			Password:   req.Password,
			Avatar:     req.Avatar,
			CoverImage: req.CoverImage,
		})
		if err != nil {
			handlers.RenderError(w, r, log, err)
			return
		}

		log.Info("user registered", slog.String("user_id", user.ID))

		resp.Render(w, r, resp.OK(http.StatusCreated, "User registered successfully", user))
	}
}
