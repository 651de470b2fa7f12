// Package app assembles the HTTP router and dependency readiness checks.
package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fairyhunter13/softrate-ats/internal/adapter/auth"
	httpserver "github.com/fairyhunter13/softrate-ats/internal/adapter/httpserver"
	"github.com/fairyhunter13/softrate-ats/internal/adapter/observability"
	"github.com/fairyhunter13/softrate-ats/internal/config"
)

// ParseOrigins splits a comma-separated origin list into a slice, trimming spaces.
// If the input is empty, returns ["*"].
func ParseOrigins(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == "*" {
		return []string{"*"}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// requestTimeout leaves room under the server write timeout for the
// response to be flushed.
func requestTimeout(cfg config.Config) time.Duration {
	d := cfg.HTTPWriteTimeout - config.WriteTimeoutSlack
	if d <= 0 {
		return 60 * time.Second
	}
	return d
}

// BuildRouter constructs the HTTP handler with all middlewares and routes.
func BuildRouter(cfg config.Config, srv *httpserver.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(httpserver.Recoverer())
	r.Use(httpserver.TraceMiddleware)
	r.Use(httpserver.RequestID())
	r.Use(httpserver.TimeoutMiddleware(requestTimeout(cfg)))
	r.Use(httpserver.AccessLog())
	r.Use(observability.HTTPMetricsMiddleware)

	origins := ParseOrigins(cfg.CORSAllowOrigins)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id", "Content-Disposition"},
		AllowCredentials: len(origins) > 0 && origins[0] != "*",
		MaxAge:           300,
	}))

	r.Get("/healthz", srv.Healthz)
	r.Get("/readyz", srv.Readyz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(httpserver.JSONOnly)

		v1.Group(func(pub chi.Router) {
			pub.Use(httprate.LimitByIP(cfg.RateLimitPerMin, time.Minute))
			pub.Post("/auth/signup", srv.Signup)
			pub.Post("/auth/login", srv.Login)
			pub.Post("/auth/logout", srv.Logout)
		})
		v1.Get("/assessments", srv.ListAssessments)
		v1.Get("/assessments/{id}", srv.GetAssessment)

		v1.Group(func(c chi.Router) {
			c.Use(httpserver.RequireRole(srv.Sessions, auth.RoleCandidate))
			c.Get("/me", srv.Me)
			c.Put("/me", srv.UpdateMe)
			c.Get("/me/applications", srv.MyApplications)
			c.Get("/applications/status", srv.ApplicationStatus)
			c.Get("/tests/psychometric", srv.PsychometricQuestions)

			c.Group(func(m chi.Router) {
				m.Use(httprate.LimitByIP(cfg.RateLimitPerMin, time.Minute))
				m.Post("/applications", srv.SelectJob)
				m.Post("/applications/resume", srv.SubmitResume)
				m.Post("/applications/stages/{stage}", srv.CompleteStage)
				m.Post("/applications/final", srv.SubmitFinal)
				m.Post("/applications/disqualify", srv.Disqualify)
				m.Post("/applications/restart", srv.Restart)
				m.Get("/tests/resume-questions", srv.ResumeQuestions)
			})
		})

		v1.Route("/admin", func(a chi.Router) {
			a.With(httprate.LimitByIP(cfg.RateLimitPerMin, time.Minute)).Post("/login", srv.AdminLogin)
			a.Group(func(g chi.Router) {
				g.Use(httpserver.RequireRole(srv.AdminSessions, auth.RoleAdmin))
				g.Post("/assessments/generate", srv.GenerateAssessment)
				g.Post("/assessments", srv.CreateAssessment)
				g.Get("/assessments/{id}", srv.AdminGetAssessment)
				g.Put("/assessments/{id}", srv.UpdateAssessment)
				g.Delete("/assessments/{id}", srv.DeleteAssessment)
				g.Get("/candidates", srv.AdminCandidates)
				g.Get("/candidates/export.xlsx", srv.ExportCandidates)
				g.Delete("/candidates/{id}", srv.AdminDeleteCandidate)
			})
		})
	})

	return httpserver.SecurityHeaders(r)
}
