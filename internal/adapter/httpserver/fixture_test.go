package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/softrate-ats/internal/adapter/ai"
	"github.com/fairyhunter13/softrate-ats/internal/adapter/auth"
	"github.com/fairyhunter13/softrate-ats/internal/adapter/events"
	"github.com/fairyhunter13/softrate-ats/internal/adapter/lock"
	"github.com/fairyhunter13/softrate-ats/internal/adapter/repo/memory"
	"github.com/fairyhunter13/softrate-ats/internal/adapter/textextractor/pdf"
	"github.com/fairyhunter13/softrate-ats/internal/config"
	"github.com/fairyhunter13/softrate-ats/internal/domain"
	"github.com/fairyhunter13/softrate-ats/internal/usecase"
)

type stubScreener struct{ res domain.ScreenResult }

func (s stubScreener) Screen(context.Context, string) (domain.ScreenResult, error) { return s.res, nil }

// lightHasher keeps tests fast; argon2 is covered in the auth package.
type lightHasher struct{}

func (lightHasher) Hash(p string) (string, error) { return "h:" + p, nil }
func (lightHasher) Verify(p, v string) bool       { return v == "h:"+p }

type harness struct {
	srv          *Server
	store        *memory.Store
	assessmentID string
	candidateID  string
	token        string
	adminToken   string
}

func testConfig() config.Config {
	return config.Config{
		AppEnv:             "test",
		SessionSecret:      "test-secret",
		SessionTTL:         time.Hour,
		AdminUsername:      "admin",
		AdminPassword:      "s3cret",
		AdminSessionSecret: "admin-secret",
		MaxUploadMB:        1,
		RateLimitPerMin:    1000,
		QualifyThreshold:   70,
	}
}

func newHarness(t *testing.T, screen domain.ScreenResult) *harness {
	t.Helper()
	cfg := testConfig()
	store := memory.New()
	policy := usecase.DefaultScoringPolicy()
	pipeline := usecase.NewPipelineService(store, lock.NewLocalLocker(), stubScreener{res: screen}, ai.KeywordOracle{}, events.Noop{}, policy)
	assessments := usecase.NewAssessmentService(store, nil)
	accounts := usecase.NewAccountService(store, lightHasher{})
	questions := usecase.NewQuestionService(pipeline, nil, []domain.Question{
		{ID: "p1", Text: "I enjoy teamwork", Type: domain.QuestionMCQ, Difficulty: domain.DifficultyEasy, Keywords: []string{"agree"}, Options: []string{"Agree", "Disagree"}},
	})
	srv := NewServer(cfg, accounts, assessments, pipeline, questions, usecase.NewAdminService(store), pdf.New())

	ctx := context.Background()
	asm, err := assessments.Create(ctx, domain.Assessment{
		RoleTitle: "Backend Engineer",
		JDText:    "Go services with Postgres",
		Questions: []domain.Question{
			{Text: "Explain goroutines", Type: domain.QuestionSubjective, Difficulty: domain.DifficultyMedium, Keywords: []string{"goroutine", "scheduler"}},
			{Text: "Index a table", Type: domain.QuestionCode, Difficulty: domain.DifficultyEasy, Keywords: []string{"index"}},
		},
	})
	require.NoError(t, err)
	cand, err := accounts.Signup(ctx, usecase.SignupInput{Name: "Ann", Email: "ann@example.com", Password: "password1", University: "ITB"})
	require.NoError(t, err)
	tok, _, err := srv.Sessions.CreateSession(auth.RoleCandidate, cand.ID)
	require.NoError(t, err)
	adminTok, _, err := srv.AdminSessions.CreateSession(auth.RoleAdmin, "admin")
	require.NoError(t, err)

	return &harness{srv: srv, store: store, assessmentID: asm.ID, candidateID: cand.ID, token: tok, adminToken: adminTok}
}

// router mounts the handlers under test the same way the app router does.
func (h *harness) router() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID())
	r.Get("/readyz", h.srv.Readyz)
	r.Post("/v1/auth/signup", h.srv.Signup)
	r.Post("/v1/auth/login", h.srv.Login)
	r.Post("/v1/admin/login", h.srv.AdminLogin)
	r.Get("/v1/assessments", h.srv.ListAssessments)
	r.Get("/v1/assessments/{id}", h.srv.GetAssessment)
	r.Group(func(c chi.Router) {
		c.Use(RequireRole(h.srv.Sessions, auth.RoleCandidate))
		c.Get("/v1/me", h.srv.Me)
		c.Put("/v1/me", h.srv.UpdateMe)
		c.Get("/v1/me/applications", h.srv.MyApplications)
		c.Post("/v1/applications", h.srv.SelectJob)
		c.Get("/v1/applications/status", h.srv.ApplicationStatus)
		c.Post("/v1/applications/resume", h.srv.SubmitResume)
		c.Post("/v1/applications/stages/{stage}", h.srv.CompleteStage)
		c.Post("/v1/applications/final", h.srv.SubmitFinal)
		c.Post("/v1/applications/disqualify", h.srv.Disqualify)
		c.Post("/v1/applications/restart", h.srv.Restart)
		c.Get("/v1/tests/psychometric", h.srv.PsychometricQuestions)
		c.Get("/v1/tests/resume-questions", h.srv.ResumeQuestions)
	})
	r.Group(func(a chi.Router) {
		a.Use(RequireRole(h.srv.AdminSessions, auth.RoleAdmin))
		a.Post("/v1/admin/assessments/generate", h.srv.GenerateAssessment)
		a.Post("/v1/admin/assessments", h.srv.CreateAssessment)
		a.Get("/v1/admin/assessments/{id}", h.srv.AdminGetAssessment)
		a.Put("/v1/admin/assessments/{id}", h.srv.UpdateAssessment)
		a.Delete("/v1/admin/assessments/{id}", h.srv.DeleteAssessment)
		a.Get("/v1/admin/candidates", h.srv.AdminCandidates)
		a.Get("/v1/admin/candidates/export.xlsx", h.srv.ExportCandidates)
		a.Delete("/v1/admin/candidates/{id}", h.srv.AdminDeleteCandidate)
	})
	return r
}

func (h *harness) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}
