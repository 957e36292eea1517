// Package handlers holds what the user handlers share: status mapping for
// service errors and the per-request timeout.
package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"vidtube/internal/lib/api/response"
	"vidtube/internal/lib/sl"
	"vidtube/internal/services/auth"
)

const RequestTimeout = 5 * time.Second

func StatusFor(kind auth.Kind) int {
	switch kind {
	case auth.KindValidation:
		return http.StatusBadRequest
	case auth.KindConflict:
		return http.StatusConflict
	case auth.KindNotFound:
		return http.StatusNotFound
	case auth.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// RenderError writes the envelope for a service error. Internal errors are
// logged here; the rest were already logged by the service.
func RenderError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	kind := auth.KindOf(err)
	if kind == auth.KindInternal {
		log.Error("request failed", sl.Err(err))
	}

	response.Render(w, r, response.Error(StatusFor(kind), auth.Message(err)))
}
