package httpserver

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/fairyhunter13/softrate-ats/internal/config"
	"github.com/fairyhunter13/softrate-ats/internal/domain"
	"github.com/fairyhunter13/softrate-ats/pkg/textx"
)

type selectJobRequest struct {
	AssessmentID string `json:"assessment_id" validate:"required,max=100"`
}

type selectJobResponse struct {
	Application           applicationView `json:"application"`
	Outcome               string          `json:"outcome"`
	DeletedApplicationIDs []string        `json:"deleted_application_ids"`
}

// SelectJob starts, resumes or views the candidate's application to an assessment.
func (s *Server) SelectJob(w http.ResponseWriter, r *http.Request) {
	var req selectJobRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := s.Pipeline.SelectJob(r.Context(), candidateID(r), req.AssessmentID)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	deleted := res.DeletedApplicationIDs
	if deleted == nil {
		deleted = []string{}
	}
	writeJSON(w, http.StatusOK, selectJobResponse{Application: toApplicationView(res.Application, ""), Outcome: res.Outcome, DeletedApplicationIDs: deleted})
}

// ApplicationStatus reports progress on the assessment named by ?assessment_id=.
func (s *Server) ApplicationStatus(w http.ResponseWriter, r *http.Request) {
	asmID := r.URL.Query().Get("assessment_id")
	if err := ValidateID("assessment_id", asmID); err != nil {
		writeError(w, r, err, nil)
		return
	}
	v, err := s.Pipeline.Status(r.Context(), candidateID(r), asmID)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, toStatusView(v))
}

type resumeResponse struct {
	Application applicationView     `json:"application"`
	Screen      domain.ScreenResult `json:"screen"`
	Truncated   bool                `json:"truncated,omitempty"`
}

// SubmitResume accepts a multipart upload with a "resume" file (PDF or plain
// text) or a "resume_text" field, plus "assessment_id".
func (s *Server) SubmitResume(w http.ResponseWriter, r *http.Request) {
	maxBytes := s.Cfg.MaxUploadMB * 1024 * 1024
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+(1<<20))
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeTooLarge(w)
			return
		}
		writeError(w, r, fmt.Errorf("%w: multipart form required", domain.ErrInvalidArgument), nil)
		return
	}
	asmID := r.FormValue("assessment_id")
	if err := ValidateID("assessment_id", asmID); err != nil {
		writeError(w, r, err, nil)
		return
	}

	text, err := s.resumeText(r, maxBytes)
	if errors.Is(err, errUploadTooLarge) {
		s.writeTooLarge(w)
		return
	}
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	text, truncated := s.Tokens.Truncate(text, promptModel(s.Cfg), s.Cfg.LLMMaxPromptTokens)
	if truncated {
		LoggerFrom(r).Info("resume truncated to prompt budget", slog.Int("max_tokens", s.Cfg.LLMMaxPromptTokens))
	}

	res, err := s.Pipeline.SubmitResume(r.Context(), candidateID(r), asmID, text)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, resumeResponse{Application: toApplicationView(res.Application, ""), Screen: res.Screen, Truncated: truncated})
}

var errUploadTooLarge = fmt.Errorf("%w: upload too large", domain.ErrInvalidArgument)

func (s *Server) writeTooLarge(w http.ResponseWriter) {
	writeJSON(w, http.StatusRequestEntityTooLarge, errorEnvelope{Error: apiError{Code: "INVALID_ARGUMENT", Message: "payload too large", Details: map[string]any{"max_mb": s.Cfg.MaxUploadMB}}})
}

func (s *Server) resumeText(r *http.Request, maxBytes int64) (string, error) {
	f, hdr, err := r.FormFile("resume")
	if errors.Is(err, http.ErrMissingFile) {
		text := textx.Clean(r.FormValue("resume_text"))
		if text == "" {
			return "", fmt.Errorf("%w: resume file or resume_text required", domain.ErrInvalidArgument)
		}
		return text, nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: read resume: %v", domain.ErrInvalidArgument, err)
	}
	defer func() { _ = f.Close() }()
	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("%w: read resume: %v", domain.ErrInvalidArgument, err)
	}
	if int64(len(data)) > maxBytes {
		return "", errUploadTooLarge
	}
	if s.Extractor == nil {
		return "", fmt.Errorf("op=http.resume_text: %w: no extractor configured", domain.ErrInternal)
	}
	text, err := s.Extractor.Extract(r.Context(), hdr.Filename, data)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: no text found in %s", domain.ErrInvalidArgument, SanitizeString(hdr.Filename, 100))
	}
	return text, nil
}

// promptModel names the model whose tokenizer sizes prompts.
func promptModel(cfg config.Config) string {
	if cfg.LLMProvider == config.LLMGemini {
		return cfg.GeminiModel
	}
	return cfg.OpenRouterModel
}

type stageRequest struct {
	Score    *int   `json:"score" validate:"required,min=0,max=100"`
	Feedback string `json:"feedback" validate:"max=5000"`
}

// CompleteStage records a generic stage result; {stage} is 2 or 3.
func (s *Server) CompleteStage(w http.ResponseWriter, r *http.Request) {
	stage, err := strconv.Atoi(chi.URLParam(r, "stage"))
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: stage must be a number", domain.ErrInvalidArgument), nil)
		return
	}
	var req stageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	app, err := s.Pipeline.CompleteStage(r.Context(), candidateID(r), stage, *req.Score, SanitizeString(req.Feedback, 5000))
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, toApplicationView(app, ""))
}

type finalRequest struct {
	AssessmentID string   `json:"assessment_id" validate:"required,max=100"`
	Answers      []string `json:"answers" validate:"required,max=100,dive,max=20000"`
}

type finalResponse struct {
	Application applicationView       `json:"application"`
	Breakdown   domain.FinalBreakdown `json:"breakdown"`
	Evaluation  domain.Evaluation     `json:"evaluation"`
	Fallback    bool                  `json:"fallback"`
}

// SubmitFinal scores the JD-test answers and closes the application.
func (s *Server) SubmitFinal(w http.ResponseWriter, r *http.Request) {
	var req finalRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := s.Pipeline.SubmitFinal(r.Context(), candidateID(r), req.AssessmentID, req.Answers)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, finalResponse{
		Application: toApplicationView(res.Application, ""),
		Breakdown:   res.Breakdown,
		Evaluation:  res.Evaluation,
		Fallback:    res.Fallback,
	})
}

type disqualifyRequest struct {
	AssessmentID string `json:"assessment_id" validate:"max=100"`
	Reason       string `json:"reason" validate:"max=1000"`
}

type disqualifyResponse struct {
	Resolved    bool             `json:"resolved"`
	Rule        string           `json:"rule,omitempty"`
	Application *applicationView `json:"application,omitempty"`
}

// Disqualify ends the candidate's attempt, typically after a proctoring violation.
func (s *Server) Disqualify(w http.ResponseWriter, r *http.Request) {
	var req disqualifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := s.Pipeline.Disqualify(r.Context(), candidateID(r), req.AssessmentID, SanitizeString(req.Reason, 1000))
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	out := disqualifyResponse{Resolved: res.Resolved, Rule: res.Rule}
	if res.Resolved {
		v := toApplicationView(res.Application, "")
		out.Application = &v
	}
	writeJSON(w, http.StatusOK, out)
}

// Restart sends the candidate's incomplete application back to the resume stage.
func (s *Server) Restart(w http.ResponseWriter, r *http.Request) {
	app, err := s.Pipeline.Restart(r.Context(), candidateID(r))
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, toApplicationView(app, ""))
}

// PsychometricQuestions serves the fixed psychometric bank.
func (s *Server) PsychometricQuestions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"questions": toQuestionViews(s.Questions.PsychometricQuestions())})
}

// ResumeQuestions drafts technical questions from the active application's resume.
func (s *Server) ResumeQuestions(w http.ResponseWriter, r *http.Request) {
	qs, err := s.Questions.ResumeQuestions(r.Context(), candidateID(r))
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"questions": toQuestionViews(qs)})
}
