package httpserver

import (
	"time"

	"github.com/fairyhunter13/softrate-ats/internal/domain"
	"github.com/fairyhunter13/softrate-ats/internal/usecase"
)

type candidateView struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	University string    `json:"university"`
	CreatedAt  time.Time `json:"created_at"`
}

func toCandidateView(c domain.Candidate) candidateView {
	return candidateView{ID: c.ID, Name: c.Name, Email: c.Email, University: c.University, CreatedAt: c.CreatedAt}
}

type applicationView struct {
	ID           string             `json:"id"`
	AssessmentID string             `json:"assessment_id"`
	RoleTitle    string             `json:"role_title,omitempty"`
	CurrentStage int                `json:"current_stage"`
	Status       string             `json:"status"`
	StageScores  domain.StageScores `json:"stage_scores"`
	HasResume    bool               `json:"has_resume"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at,omitempty"`
}

func toApplicationView(a domain.Application, roleTitle string) applicationView {
	return applicationView{
		ID:           a.ID,
		AssessmentID: a.AssessmentID,
		RoleTitle:    roleTitle,
		CurrentStage: a.CurrentStage,
		Status:       string(a.Status),
		StageScores:  a.StageScores,
		HasResume:    a.ResumeText != nil,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

// questionView hides scoring keywords from candidates.
type questionView struct {
	ID         string   `json:"id"`
	Text       string   `json:"text"`
	Type       string   `json:"type"`
	Difficulty string   `json:"difficulty"`
	Options    []string `json:"options,omitempty"`
}

func toQuestionViews(qs []domain.Question) []questionView {
	out := make([]questionView, 0, len(qs))
	for _, q := range qs {
		out = append(out, questionView{ID: q.ID, Text: q.Text, Type: string(q.Type), Difficulty: string(q.Difficulty), Options: q.Options})
	}
	return out
}

type assessmentView struct {
	ID              string         `json:"id"`
	RoleTitle       string         `json:"role_title"`
	JDText          string         `json:"jd_text"`
	SuggestedSkills []string       `json:"suggested_skills"`
	Questions       []questionView `json:"questions"`
	CreatedAt       time.Time      `json:"created_at"`
}

func toAssessmentView(a domain.Assessment) assessmentView {
	skills := a.SuggestedSkills
	if skills == nil {
		skills = []string{}
	}
	return assessmentView{
		ID:              a.ID,
		RoleTitle:       a.RoleTitle,
		JDText:          a.JDText,
		SuggestedSkills: skills,
		Questions:       toQuestionViews(a.Questions),
		CreatedAt:       a.CreatedAt,
	}
}

// adminAssessmentView includes the full questions with keywords.
type adminAssessmentView struct {
	ID              string            `json:"id"`
	RoleTitle       string            `json:"role_title"`
	JDText          string            `json:"jd_text"`
	SuggestedSkills []string          `json:"suggested_skills"`
	Questions       []domain.Question `json:"questions"`
	CreatedAt       time.Time         `json:"created_at"`
}

func toAdminAssessmentView(a domain.Assessment) adminAssessmentView {
	skills := a.SuggestedSkills
	if skills == nil {
		skills = []string{}
	}
	return adminAssessmentView{ID: a.ID, RoleTitle: a.RoleTitle, JDText: a.JDText, SuggestedSkills: skills, Questions: a.Questions, CreatedAt: a.CreatedAt}
}

type statusView struct {
	ApplicationID string             `json:"application_id,omitempty"`
	Stage         int                `json:"stage"`
	Status        string             `json:"status"`
	StageScores   domain.StageScores `json:"stage_scores"`
}

func toStatusView(v usecase.StatusView) statusView {
	return statusView{ApplicationID: v.ApplicationID, Stage: v.Stage, Status: v.Status, StageScores: v.StageScores}
}

type candidateRowView struct {
	CandidateID   string     `json:"candidate_id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	University    string     `json:"university"`
	ApplicationID string     `json:"application_id,omitempty"`
	AssessmentID  string     `json:"assessment_id,omitempty"`
	RoleTitle     string     `json:"role_title,omitempty"`
	Stage         int        `json:"stage"`
	Status        string     `json:"status"`
	ResumeScore   *int       `json:"resume_score"`
	FinalScore    *int       `json:"final_score"`
	Disqualified  string     `json:"disqualification_reason,omitempty"`
	AppliedAt     *time.Time `json:"applied_at,omitempty"`
}

func toCandidateRowViews(rows []usecase.CandidateRow) []candidateRowView {
	out := make([]candidateRowView, 0, len(rows))
	for _, r := range rows {
		v := candidateRowView{
			CandidateID:   r.CandidateID,
			Name:          r.Name,
			Email:         r.Email,
			University:    r.University,
			ApplicationID: r.ApplicationID,
			AssessmentID:  r.AssessmentID,
			RoleTitle:     r.RoleTitle,
			Stage:         r.Stage,
			Status:        r.Status,
			ResumeScore:   r.ResumeScore,
			FinalScore:    r.FinalScore,
			Disqualified:  r.Disqualified,
		}
		if !r.AppliedAt.IsZero() {
			t := r.AppliedAt
			v.AppliedAt = &t
		}
		out = append(out, v)
	}
	return out
}
