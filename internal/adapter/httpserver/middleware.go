package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"

	"github.com/fairyhunter13/softrate-ats/internal/domain"
	obsctx "github.com/fairyhunter13/softrate-ats/internal/observability"
)

const requestIDHeader = "X-Request-Id"

// Recoverer turns a handler panic into a masked 500 response.
func Recoverer() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				LoggerFrom(r).Error("panic recovered",
					slog.Any("recover", rec),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path))
				writeError(w, r, fmt.Errorf("%w: panic: %v", domain.ErrInternal, rec), nil)
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RequestID assigns every request an id (a ULID unless the caller sent a
// well-formed one) and a logger carrying it together with the trace ids.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get(requestIDHeader)
			if reqID == "" || ValidateID("request_id", reqID) != nil {
				reqID = ulid.Make().String()
				r.Header.Set(requestIDHeader, reqID)
			}
			lg := slog.Default().With(append([]any{slog.String("request_id", reqID)}, traceAttrs(r.Context())...)...)
			ctx := context.WithValue(r.Context(), loggerKey{}, lg)
			ctx = obsctx.ContextWithLogger(ctx, lg)
			ctx = obsctx.ContextWithRequestID(ctx, reqID)
			w.Header().Set(requestIDHeader, reqID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// acceptable lists the media types the API can produce.
var acceptable = []string{"*/*", "application/*", "application/json", "spreadsheetml"}

// JSONOnly answers 406 when the Accept header rules out every type the API
// produces (JSON bodies and the XLSX export).
func JSONOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a := r.Header.Get("Accept")
		if a == "" {
			next.ServeHTTP(w, r)
			return
		}
		for _, t := range acceptable {
			if strings.Contains(a, t) {
				next.ServeHTTP(w, r)
				return
			}
		}
		writeJSON(w, http.StatusNotAcceptable, errorEnvelope{Error: apiError{
			Code:      "INVALID_ARGUMENT",
			Message:   "not acceptable",
			Details:   map[string]any{"accept": a},
			RequestID: obsctx.RequestIDFromContext(r.Context()),
		}})
	})
}

// TimeoutMiddleware bounds handler time; slow stage calls answer 504.
func TimeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, http.StatusText(http.StatusGatewayTimeout))
	}
}

// SecurityHeaders sets response headers for a JSON-only API.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

type loggerKey struct{}

// LoggerFrom returns the request logger, or slog.Default outside a request.
func LoggerFrom(r *http.Request) *slog.Logger {
	if lg, ok := r.Context().Value(loggerKey{}).(*slog.Logger); ok && lg != nil {
		return lg
	}
	return slog.Default()
}

func traceAttrs(ctx context.Context) []any {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return nil
	}
	return []any{slog.String("trace_id", sc.TraceID().String()), slog.String("span_id", sc.SpanID().String())}
}

// routeOf is the chi pattern when routing matched, else the raw path.
func routeOf(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

// AccessLog writes one http_access line per request, at warn for 4xx and
// error for 5xx.
func AccessLog() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			level := slog.LevelInfo
			switch {
			case status >= http.StatusInternalServerError:
				level = slog.LevelError
			case status >= http.StatusBadRequest:
				level = slog.LevelWarn
			}
			LoggerFrom(r).LogAttrs(r.Context(), level, "http_access",
				slog.String("method", r.Method),
				slog.String("route", routeOf(r)),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}
