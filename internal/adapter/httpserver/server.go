package httpserver

import (
	"context"

	"github.com/fairyhunter13/softrate-ats/internal/adapter/ai/tokencount"
	"github.com/fairyhunter13/softrate-ats/internal/adapter/auth"
	"github.com/fairyhunter13/softrate-ats/internal/config"
	"github.com/fairyhunter13/softrate-ats/internal/domain"
	"github.com/fairyhunter13/softrate-ats/internal/usecase"
)

// ReadinessCheck is one dependency probed by /readyz.
type ReadinessCheck struct {
	Name string
	Fn   func(ctx context.Context) error
}

// Server aggregates handler dependencies.
type Server struct {
	Cfg         config.Config
	Accounts    usecase.AccountService
	Assessments usecase.AssessmentService
	Pipeline    usecase.PipelineService
	Questions   usecase.QuestionService
	Admin       usecase.AdminService
	Extractor   domain.TextExtractor
	Tokens      *tokencount.Counter

	Sessions      *auth.SessionManager
	AdminSessions *auth.SessionManager

	Checks []ReadinessCheck
}

// NewServer wires handlers to their services. Admin sessions are signed with
// their own secret when one is configured.
func NewServer(cfg config.Config, accounts usecase.AccountService, assessments usecase.AssessmentService, pipeline usecase.PipelineService, questions usecase.QuestionService, admin usecase.AdminService, extractor domain.TextExtractor, checks ...ReadinessCheck) *Server {
	adminSecret := cfg.AdminSessionSecret
	if adminSecret == "" {
		adminSecret = cfg.SessionSecret + ":admin"
	}
	return &Server{
		Cfg:           cfg,
		Accounts:      accounts,
		Assessments:   assessments,
		Pipeline:      pipeline,
		Questions:     questions,
		Admin:         admin,
		Extractor:     extractor,
		Tokens:        tokencount.Default,
		Sessions:      auth.NewSessionManager(cfg.SessionSecret, cfg.SessionTTL),
		AdminSessions: auth.NewSessionManager(adminSecret, cfg.SessionTTL),
		Checks:        checks,
	}
}
