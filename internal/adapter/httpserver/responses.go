// Package httpserver contains HTTP handlers and middleware.
//
// It exposes the candidate pipeline, assessment administration and the
// admin analytics views as a JSON API. Handlers translate requests into
// usecase calls and map domain errors onto HTTP status codes.
package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/fairyhunter13/softrate-ats/internal/domain"
	obsctx "github.com/fairyhunter13/softrate-ats/internal/observability"
)

type errorEnvelope struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details"`
	RequestID string      `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps an error onto an HTTP status and a stable error code.
// Order matters: named errors are checked before their kind.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE"
	case errors.Is(err, domain.ErrReapplicationBlocked), errors.Is(err, domain.ErrRestartBlocked):
		return http.StatusForbidden, "POLICY_VIOLATION"
	case errors.Is(err, domain.ErrPolicyViolation):
		return http.StatusConflict, "POLICY_VIOLATION"
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest, "INVALID_ARGUMENT"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrInvalidState):
		return http.StatusConflict, "INVALID_STATE"
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, "CONFLICT"
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, "RATE_LIMITED"
	case errors.Is(err, domain.ErrUpstreamTimeout):
		return http.StatusServiceUnavailable, "UPSTREAM_TIMEOUT"
	case errors.Is(err, domain.ErrUpstreamRateLimit):
		return http.StatusServiceUnavailable, "UPSTREAM_RATE_LIMIT"
	case errors.Is(err, domain.ErrSchemaInvalid):
		return http.StatusServiceUnavailable, "SCHEMA_INVALID"
	case errors.Is(err, domain.ErrExternalService):
		return http.StatusBadGateway, "EXTERNAL_SERVICE"
	}
	return http.StatusInternalServerError, "INTERNAL"
}

func writeError(w http.ResponseWriter, r *http.Request, err error, details interface{}) {
	code, codeStr := statusFor(err)
	msg := err.Error()
	if code >= http.StatusInternalServerError {
		LoggerFrom(r).Error("request failed",
			slog.String("code", codeStr),
			slog.String("kind", domain.Kind(err).Error()),
			slog.Any("error", err))
		if code == http.StatusInternalServerError {
			msg = "internal error"
		}
	}
	writeJSON(w, code, errorEnvelope{Error: apiError{
		Code:      codeStr,
		Message:   msg,
		Details:   details,
		RequestID: obsctx.RequestIDFromContext(r.Context()),
	}})
}
