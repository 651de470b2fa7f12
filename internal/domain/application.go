package domain

import (
	"strconv"
	"time"
)

// ApplicationStatus is the lifecycle status of an application.
type ApplicationStatus string

const (
	StatusIncomplete   ApplicationStatus = "Incomplete"
	StatusQualified    ApplicationStatus = "Qualified"
	StatusRejected     ApplicationStatus = "Rejected"
	StatusDisqualified ApplicationStatus = "Disqualified"
)

// Terminal reports whether no stage operation may act on the status.
func (s ApplicationStatus) Terminal() bool { return s != StatusIncomplete }

// Pipeline stages. Stage only increases, except for restart (back to 1)
// and rejection or disqualification (-1).
const (
	StageTerminated      = -1
	StageNew             = 0
	StageResume          = 1
	StagePsychometric    = 2
	StageResumeTechnical = 3
	StageJDTest          = 4
	StageComplete        = 5
)

// ValidStage reports whether n is a known stage number.
func ValidStage(n int) bool { return n >= StageTerminated && n <= StageComplete }

// Application is one candidate's attempt at one assessment.
type Application struct {
	ID           string
	CandidateID  string
	AssessmentID string
	CurrentStage int
	Status       ApplicationStatus
	StageScores  StageScores
	ResumeText   *string
	// ResumeSnapshot keeps the last screened resume text across restarts.
	ResumeSnapshot string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Screening verdicts.
const (
	ScreenShortlisted = "Shortlisted"
	ScreenRejected    = "Rejected"
)

// ScreenResult is the Resume Screener's verdict.
type ScreenResult struct {
	Score    int    `json:"score"`
	Feedback string `json:"feedback"`
	Status   string `json:"status"`
	// Fallback is set when the deterministic screener replaced the external one.
	Fallback bool `json:"fallback,omitempty"`
}

// Shortlisted reports whether the candidate advances past the resume stage.
func (r ScreenResult) Shortlisted() bool { return r.Status == ScreenShortlisted }

// StageResult is the record of a generic stage completion.
type StageResult struct {
	Score       int       `json:"score"`
	Feedback    string    `json:"feedback"`
	CompletedAt time.Time `json:"completed_at"`
}

// JDResult is the raw outcome of the job-description test.
type JDResult struct {
	Score          int    `json:"score"`
	QuestionScores []int  `json:"question_scores"`
	Feedback       string `json:"feedback"`
	Fallback       bool   `json:"fallback,omitempty"`
}

// WeightedScore is one line of the final breakdown.
type WeightedScore struct {
	Score  int `json:"score"`
	Weight int `json:"weight"`
}

// FinalBreakdown is the composite score with its per-stage inputs.
type FinalBreakdown struct {
	Resume          WeightedScore     `json:"resume"`
	Psychometric    WeightedScore     `json:"psychometric"`
	ResumeTechnical WeightedScore     `json:"resume_technical"`
	JDTest          WeightedScore     `json:"jd_test"`
	FinalScore      int               `json:"final_score"`
	Threshold       int               `json:"threshold"`
	Status          ApplicationStatus `json:"status"`
}

// StageScores is the per-stage score record of an application.
type StageScores struct {
	Resume                 *ScreenResult   `json:"resume,omitempty"`
	Stage2                 *StageResult    `json:"stage_2,omitempty"`
	Stage3                 *StageResult    `json:"stage_3,omitempty"`
	JD                     *JDResult       `json:"jd,omitempty"`
	Final                  *FinalBreakdown `json:"final,omitempty"`
	DisqualificationReason string          `json:"disqualification_reason,omitempty"`
}

// StageKey names the stage_scores entry a completed generic stage is stored under.
func StageKey(stage int) string { return "stage_" + strconv.Itoa(stage) }

// RecordStage stores r for a generic stage. It reports false for stages
// that are not recorded through generic completion.
func (s *StageScores) RecordStage(stage int, r StageResult) bool {
	switch stage {
	case StagePsychometric:
		s.Stage2 = &r
	case StageResumeTechnical:
		s.Stage3 = &r
	default:
		return false
	}
	return true
}

// ResumeScore returns the screener score, 0 when absent.
func (s StageScores) ResumeScore() int {
	if s.Resume == nil {
		return 0
	}
	return s.Resume.Score
}

// StageScore returns the recorded score of a generic stage, 0 when absent.
func (s StageScores) StageScore(stage int) int {
	var r *StageResult
	switch stage {
	case StagePsychometric:
		r = s.Stage2
	case StageResumeTechnical:
		r = s.Stage3
	}
	if r == nil {
		return 0
	}
	return r.Score
}

// IsEmpty reports whether nothing has been recorded.
func (s StageScores) IsEmpty() bool { return s == (StageScores{}) }
