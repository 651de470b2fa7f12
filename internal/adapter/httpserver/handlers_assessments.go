package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fairyhunter13/softrate-ats/internal/domain"
)

// ListAssessments lists open job postings without their scoring keywords.
func (s *Server) ListAssessments(w http.ResponseWriter, r *http.Request) {
	items, err := s.Assessments.List(r.Context())
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	out := make([]assessmentView, 0, len(items))
	for _, a := range items {
		out = append(out, toAssessmentView(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

// GetAssessment returns one posting without its scoring keywords.
func (s *Server) GetAssessment(w http.ResponseWriter, r *http.Request) {
	a, ok := s.loadAssessment(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toAssessmentView(a))
}

// AdminGetAssessment returns one posting with full questions.
func (s *Server) AdminGetAssessment(w http.ResponseWriter, r *http.Request) {
	a, ok := s.loadAssessment(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toAdminAssessmentView(a))
}

func (s *Server) loadAssessment(w http.ResponseWriter, r *http.Request) (domain.Assessment, bool) {
	id := chi.URLParam(r, "id")
	if err := ValidateID("id", id); err != nil {
		writeError(w, r, err, nil)
		return domain.Assessment{}, false
	}
	a, err := s.Assessments.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err, nil)
		return domain.Assessment{}, false
	}
	return a, true
}

type generateRequest struct {
	RoleTitle string `json:"role_title" validate:"required,max=200"`
	JDText    string `json:"jd_text" validate:"required,max=50000"`
}

type generateResponse struct {
	Assessment adminAssessmentView `json:"assessment"`
	Fallback   bool                `json:"fallback"`
}

// GenerateAssessment drafts and stores questions for a job description.
func (s *Server) GenerateAssessment(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := s.Assessments.Generate(r.Context(), SanitizeString(req.RoleTitle, 200), SanitizeString(req.JDText, 50000))
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	LoggerFrom(r).Info("assessment generated", slog.String("assessment_id", res.Assessment.ID), slog.Bool("fallback", res.Fallback))
	writeJSON(w, http.StatusCreated, generateResponse{Assessment: toAdminAssessmentView(res.Assessment), Fallback: res.Fallback})
}

type questionRequest struct {
	ID         string   `json:"id" validate:"max=100"`
	Text       string   `json:"text" validate:"required,max=5000"`
	Type       string   `json:"type" validate:"required,oneof=code mcq subjective"`
	Difficulty string   `json:"difficulty" validate:"required,oneof=easy medium hard"`
	Keywords   []string `json:"keywords" validate:"max=50,dive,max=100"`
	Options    []string `json:"options" validate:"max=20,dive,max=500"`
}

type assessmentRequest struct {
	RoleTitle       string            `json:"role_title" validate:"required,max=200"`
	JDText          string            `json:"jd_text" validate:"required,max=50000"`
	SuggestedSkills []string          `json:"suggested_skills" validate:"max=50,dive,max=100"`
	Questions       []questionRequest `json:"questions" validate:"required,min=1,max=100,dive"`
}

func (req assessmentRequest) toDomain(id string) domain.Assessment {
	a := domain.Assessment{
		ID:              id,
		RoleTitle:       SanitizeString(req.RoleTitle, 200),
		JDText:          SanitizeString(req.JDText, 50000),
		SuggestedSkills: req.SuggestedSkills,
	}
	for _, q := range req.Questions {
		a.Questions = append(a.Questions, domain.Question{
			ID:         q.ID,
			Text:       SanitizeString(q.Text, 5000),
			Type:       domain.QuestionType(q.Type),
			Difficulty: domain.Difficulty(q.Difficulty),
			Keywords:   q.Keywords,
			Options:    q.Options,
		})
	}
	return a
}

// CreateAssessment stores a hand-written assessment.
func (s *Server) CreateAssessment(w http.ResponseWriter, r *http.Request) {
	var req assessmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	a, err := s.Assessments.Create(r.Context(), req.toDomain(""))
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusCreated, toAdminAssessmentView(a))
}

// UpdateAssessment replaces an assessment's content.
func (s *Server) UpdateAssessment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := ValidateID("id", id); err != nil {
		writeError(w, r, err, nil)
		return
	}
	var req assessmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	a, err := s.Assessments.Update(r.Context(), req.toDomain(id))
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, toAdminAssessmentView(a))
}

// DeleteAssessment removes an assessment.
func (s *Server) DeleteAssessment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := ValidateID("id", id); err != nil {
		writeError(w, r, err, nil)
		return
	}
	if err := s.Assessments.Delete(r.Context(), id); err != nil {
		writeError(w, r, err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
