// Package domain holds the applicant pipeline entities, error taxonomy and ports.
package domain

import (
	"context"
	"time"
)

// Context is an alias so ports read without importing context everywhere.
type Context = context.Context

// Candidate is a signed-up applicant. Email is unique.
type Candidate struct {
	ID           string
	Name         string
	Email        string
	University   string
	PasswordHash string
	CreatedAt    time.Time
}

// QuestionType tags a question's answer format.
type QuestionType string

const (
	QuestionCode       QuestionType = "code"
	QuestionMCQ        QuestionType = "mcq"
	QuestionSubjective QuestionType = "subjective"
)

// Valid reports whether t is a known question type.
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionCode, QuestionMCQ, QuestionSubjective:
		return true
	}
	return false
}

// Difficulty tags a question's difficulty.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Valid reports whether d is a known difficulty.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Question is one prompt of an assessment or test.
type Question struct {
	ID         string       `json:"id" yaml:"id"`
	Text       string       `json:"text" yaml:"text"`
	Type       QuestionType `json:"type" yaml:"type"`
	Difficulty Difficulty   `json:"difficulty" yaml:"difficulty"`
	Keywords   []string     `json:"keywords" yaml:"keywords"`
	Options    []string     `json:"options,omitempty" yaml:"options,omitempty"`
}

// Assessment is a job posting with its question set.
type Assessment struct {
	ID              string
	RoleTitle       string
	JDText          string
	SuggestedSkills []string
	Questions       []Question
	CreatedAt       time.Time
}

// Submission is the immutable record of one completed stage's answers.
type Submission struct {
	ID            string
	ApplicationID string
	Stage         int
	Answers       []string
	Score         int
	Feedback      string
	CreatedAt     time.Time
}

// Evaluation is the Scoring Oracle's verdict on a set of answers.
type Evaluation struct {
	QuestionScores  []int  `json:"question_scores"`
	FinalScore      int    `json:"final_score"`
	OverallFeedback string `json:"overall_feedback"`
}

// ApplicationEvent is published after a committed transition.
type ApplicationEvent struct {
	Type          string    `json:"type"`
	CandidateID   string    `json:"candidate_id"`
	ApplicationID string    `json:"application_id"`
	AssessmentID  string    `json:"assessment_id"`
	Stage         int       `json:"stage"`
	Status        string    `json:"status"`
	Score         *int      `json:"score,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Application event types.
const (
	EventApplicationCreated = "application.created"
	EventApplicationResumed = "application.resumed"
	EventApplicationDeleted = "application.deleted"
	EventResumeScreened     = "application.resume_screened"
	EventStageCompleted     = "application.stage_completed"
	EventApplicationFinal   = "application.finalized"
	EventDisqualified       = "application.disqualified"
	EventApplicationRestart = "application.restarted"
)
