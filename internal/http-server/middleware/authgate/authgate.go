// Package authgate admits requests that carry a valid access token, taken
// from the accessToken cookie or an "Authorization: Bearer" header.
package authgate

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"vidtube/internal/domain/models"
	"vidtube/internal/http-server/cookies"
	"vidtube/internal/http-server/handlers"
	"vidtube/internal/services/auth"

	"github.com/go-chi/chi/middleware"
)

type ctxKey struct{}

type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (models.PublicUser, error)
}

func New(log *slog.Logger, authenticator Authenticator) func(next http.Handler) http.Handler {
	log = log.With(slog.String("component", "middleware/authgate"))

	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			user, err := authenticator.Authenticate(r.Context(), Token(r))
			if err != nil {
				if auth.KindOf(err) == auth.KindUnauthorized {
					log.Debug("request rejected",
						slog.String("request_id", middleware.GetReqID(r.Context())),
						slog.String("reason", auth.Message(err)),
					)
				}
				handlers.RenderError(w, r, log, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		}

		return http.HandlerFunc(fn)
	}
}

// Token extracts the access token. The cookie wins over the header.
func Token(r *http.Request) string {
	if token := cookies.Value(r, cookies.AccessToken); token != "" {
		return token
	}

	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}

	return ""
}

func WithUser(ctx context.Context, user models.PublicUser) context.Context {
	return context.WithValue(ctx, ctxKey{}, user)
}

func UserFromContext(ctx context.Context) (models.PublicUser, bool) {
	user, ok := ctx.Value(ctxKey{}).(models.PublicUser)
	return user, ok
}
