package httpserver

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fairyhunter13/softrate-ats/internal/adapter/auth"
	"github.com/fairyhunter13/softrate-ats/internal/domain"
	obsctx "github.com/fairyhunter13/softrate-ats/internal/observability"
)

// SessionCookie carries the session token for browser clients.
const SessionCookie = "session"

// candidateID returns the subject of a candidate session, or "".
func candidateID(r *http.Request) string {
	id, _ := obsctx.CandidateIDFromContext(r.Context())
	return id
}

func tokenFrom(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if tok, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(tok)
		}
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// RequireRole admits requests carrying a valid session for role.
func RequireRole(sm *auth.SessionManager, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := tokenFrom(r)
			if tok == "" {
				writeError(w, r, fmt.Errorf("%w: missing session", domain.ErrUnauthorized), nil)
				return
			}
			sess, err := sm.ValidateSession(tok)
			if err != nil {
				msg := "invalid session"
				if errors.Is(err, auth.ErrExpiredToken) {
					msg = "session expired"
				}
				writeError(w, r, fmt.Errorf("%w: %s", domain.ErrUnauthorized, msg), nil)
				return
			}
			if sess.Role != role {
				writeError(w, r, fmt.Errorf("%w: %s session required", domain.ErrUnauthorized, role), nil)
				return
			}
			lg := LoggerFrom(r).With(slog.String("role", sess.Role), slog.String("subject", sess.Subject))
			ctx := context.WithValue(r.Context(), loggerKey{}, lg)
			ctx = obsctx.ContextWithLogger(ctx, lg)
			if sess.Role == auth.RoleCandidate {
				ctx = obsctx.ContextWithCandidateID(ctx, sess.Subject)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type sessionResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func setSessionCookie(w http.ResponseWriter, r *http.Request, token string, exp time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

// issueSession creates a session for subject and sets it as a cookie too.
func issueSession(w http.ResponseWriter, r *http.Request, sm *auth.SessionManager, role, subject string) (sessionResponse, error) {
	tok, exp, err := sm.CreateSession(role, subject)
	if err != nil {
		return sessionResponse{}, fmt.Errorf("op=http.issue_session: %w", err)
	}
	setSessionCookie(w, r, tok, exp)
	return sessionResponse{Token: tok, ExpiresAt: exp}, nil
}

// Logout clears the session cookie. Tokens are stateless and simply expire.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	w.WriteHeader(http.StatusNoContent)
}

type adminLoginRequest struct {
	Username string `json:"username" validate:"required,max=200"`
	Password string `json:"password" validate:"required,max=200"`
}

// AdminLogin checks the configured admin credentials and issues an admin session.
func (s *Server) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req adminLoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !s.Cfg.AdminEnabled() {
		writeError(w, r, fmt.Errorf("%w: admin login disabled", domain.ErrUnauthorized), nil)
		return
	}
	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(s.Cfg.AdminUsername)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(s.Cfg.AdminPassword)) == 1
	if !userOK || !passOK {
		LoggerFrom(r).Warn("admin login failed", slog.String("username", SanitizeString(req.Username, 64)))
		writeError(w, r, fmt.Errorf("%w: invalid credentials", domain.ErrUnauthorized), nil)
		return
	}
	resp, err := issueSession(w, r, s.AdminSessions, auth.RoleAdmin, s.Cfg.AdminUsername)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
