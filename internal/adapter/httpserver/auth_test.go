package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/softrate-ats/internal/adapter/auth"
)

func TestRequireRole(t *testing.T) {
	sm := auth.NewSessionManager("k", time.Hour)
	other := auth.NewSessionManager("other-key", time.Hour)
	var gotSubject string
	h := RequireRole(sm, auth.RoleCandidate)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSubject = candidateID(r)
		w.WriteHeader(http.StatusNoContent)
	}))

	candTok, _, err := sm.CreateSession(auth.RoleCandidate, "cand-1")
	require.NoError(t, err)
	adminTok, _, err := sm.CreateSession(auth.RoleAdmin, "root")
	require.NoError(t, err)
	forged, _, err := other.CreateSession(auth.RoleCandidate, "cand-1")
	require.NoError(t, err)

	tests := []struct {
		name   string
		setup  func(r *http.Request)
		status int
	}{
		{"missing", func(*http.Request) {}, http.StatusUnauthorized},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+candTok) }, http.StatusNoContent},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: SessionCookie, Value: candTok}) }, http.StatusNoContent},
		{"wrong role", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+adminTok) }, http.StatusUnauthorized},
		{"bad signature", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+forged) }, http.StatusUnauthorized},
		{"garbage", func(r *http.Request) { r.Header.Set("Authorization", "Bearer xyz") }, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotSubject = ""
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusNoContent {
				assert.Equal(t, "cand-1", gotSubject)
			}
		})
	}
}

func TestAdminLogin(t *testing.T) {
	h := newHarness(t, shortlisted)

	rec := h.do(t, http.MethodPost, "/v1/admin/login", "", map[string]string{"username": "admin", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(t, http.MethodPost, "/v1/admin/login", "", map[string]string{"username": "admin", "password": "s3cret"})
	require.Equal(t, http.StatusOK, rec.Code)
	sess := decode[sessionResponse](t, rec)
	require.NotEmpty(t, sess.Token)

	rec = h.do(t, http.MethodGet, "/v1/admin/candidates", sess.Token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Candidate sessions are signed with a different key and never pass as admin.
	rec = h.do(t, http.MethodGet, "/v1/admin/candidates", h.token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminLogin_Disabled(t *testing.T) {
	h := newHarness(t, shortlisted)
	h.srv.Cfg.AdminPassword = ""

	rec := h.do(t, http.MethodPost, "/v1/admin/login", "", map[string]string{"username": "admin", "password": "s3cret"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "admin login disabled")
}

func TestLogout(t *testing.T) {
	h := newHarness(t, shortlisted)
	rec := httptest.NewRecorder()
	h.srv.Logout(rec, httptest.NewRequest(http.MethodPost, "/v1/auth/logout", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookie, cookies[0].Name)
	assert.Equal(t, -1, cookies[0].MaxAge)
}
