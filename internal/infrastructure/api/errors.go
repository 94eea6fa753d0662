package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"shopify-merchant-link/internal/application"
	"shopify-merchant-link/internal/domain"

	"github.com/rs/zerolog"
)

// statusFor maps an error kind to its HTTP status and client-facing message.
// Detail stays in the logs.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, "Bad Request"
	case errors.Is(err, domain.ErrSignature):
		return http.StatusUnauthorized, "Could not validate request signature"
	case errors.Is(err, domain.ErrAuthentication):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "Not Found"
	default:
		return http.StatusInternalServerError, "An internal error occurred"
	}
}

// writeError logs err and sends the mapped status unless a response was already sent
func writeError(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, err error) {
	status, message := statusFor(err)

	event := logger.Warn()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.Err(err).Str("path", r.URL.Path).Int("status", status).Msg("Request failed")

	body := map[string]string{"message": message}
	if rs, ok := w.(*application.ResponseState); ok {
		if err := rs.JSON(status, body); errors.Is(err, application.ErrResponseCommitted) {
			logger.Debug().Str("path", r.URL.Path).Int("sent", rs.Status()).Msg("Response already sent, dropping error body")
		}
		return
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
