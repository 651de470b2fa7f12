package usecase

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/fairyhunter13/softrate-ats/internal/domain"
	"github.com/fairyhunter13/softrate-ats/internal/observability"
)

// questionFamily is one keyword-triggered template of the offline generator.
type questionFamily struct {
	skill    string
	triggers []string
	question domain.Question
}

var questionFamilies = []questionFamily{
	{
		skill:    "Python",
		triggers: []string{"python"},
		question: domain.Question{ID: "1", Text: "Write a function to reverse a string in Python without using [::-1].", Type: domain.QuestionCode, Difficulty: domain.DifficultyEasy, Keywords: []string{"python", "string"}},
	},
	{
		skill:    "Communication",
		triggers: []string{"communication", "team"},
		question: domain.Question{ID: "2", Text: "Describe a time you had a conflict with a team member. How did you resolve it?", Type: domain.QuestionSubjective, Difficulty: domain.DifficultyMedium, Keywords: []string{"hr", "behavioral"}},
	},
	{
		skill:    "SQL",
		triggers: []string{"sql", "database", "postgres"},
		question: domain.Question{ID: "3", Text: "Write a SQL query that returns the second highest salary from an employees table.", Type: domain.QuestionCode, Difficulty: domain.DifficultyMedium, Keywords: []string{"sql", "subquery", "limit", "offset"}},
	},
	{
		skill:    "Frontend",
		triggers: []string{"react", "javascript", "frontend"},
		question: domain.Question{ID: "4", Text: "Explain how React decides which components to re-render after a state change.", Type: domain.QuestionSubjective, Difficulty: domain.DifficultyMedium, Keywords: []string{"virtual dom", "reconciliation", "state", "props"}},
	},
	{
		skill:    "Cloud & DevOps",
		triggers: []string{"docker", "aws", "kubernetes", "devops"},
		question: domain.Question{ID: "5", Text: "How would you containerize and deploy a stateless API to the cloud?", Type: domain.QuestionSubjective, Difficulty: domain.DifficultyMedium, Keywords: []string{"dockerfile", "image", "registry", "load balancer"}},
	},
	{
		skill:    "Machine Learning",
		triggers: []string{"machine learning", "pytorch", "tensorflow", "deep learning"},
		question: domain.Question{ID: "6", Text: "How do you detect and reduce overfitting in a model?", Type: domain.QuestionSubjective, Difficulty: domain.DifficultyEasy, Keywords: []string{"validation", "dropout", "regularization"}},
	},
}

var generalQuestion = domain.Question{ID: "99", Text: "Explain the core principles of this role.", Type: domain.QuestionSubjective, Difficulty: domain.DifficultyEasy, Keywords: []string{"general"}}

// KeywordAssessment is the offline question generator. Each keyword family
// found in the text contributes one question; nothing found yields a single
// general question.
func KeywordAssessment(text string) domain.GeneratedAssessment {
	lower := strings.ToLower(text)
	var out domain.GeneratedAssessment
	for _, f := range questionFamilies {
		for _, trig := range f.triggers {
			if strings.Contains(lower, trig) {
				out.SuggestedSkills = append(out.SuggestedSkills, f.skill)
				out.Questions = append(out.Questions, cloneQuestion(f.question))
				break
			}
		}
	}
	if len(out.Questions) == 0 {
		out.SuggestedSkills = []string{"General"}
		out.Questions = []domain.Question{cloneQuestion(generalQuestion)}
	}
	return out
}

func cloneQuestion(q domain.Question) domain.Question {
	q.Keywords = append([]string(nil), q.Keywords...)
	q.Options = append([]string(nil), q.Options...)
	return q
}

// QuestionService serves test content.
type QuestionService struct {
	Pipeline     PipelineService
	Generator    domain.QuestionGenerator
	Psychometric []domain.Question
}

// NewQuestionService constructs a QuestionService.
func NewQuestionService(p PipelineService, g domain.QuestionGenerator, psychometric []domain.Question) QuestionService {
	return QuestionService{Pipeline: p, Generator: g, Psychometric: psychometric}
}

// PsychometricQuestions returns the fixed psychometric bank.
func (s QuestionService) PsychometricQuestions() []domain.Question {
	out := make([]domain.Question, len(s.Psychometric))
	for i, q := range s.Psychometric {
		out[i] = cloneQuestion(q)
	}
	return out
}

// ResumeQuestions drafts technical questions from the resume on the
// candidate's active application.
func (s QuestionService) ResumeQuestions(ctx domain.Context, candidateID string) ([]domain.Question, error) {
	app, err := s.Pipeline.ActiveApplication(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	text := app.ResumeSnapshot
	if app.ResumeText != nil {
		text = *app.ResumeText
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: no resume on the active application", domain.ErrInvalidState)
	}
	if s.Generator != nil {
		qs, err := s.Generator.FromResume(ctx, text)
		if err == nil {
			if err = validateQuestions(qs); err == nil {
				return qs, nil
			}
		}
		observability.LoggerFromContext(ctx).Warn("resume question generation failed, using keyword questions", slog.Any("error", err))
	}
	observability.RecordFallback("question_generator")
	return KeywordAssessment(text).Questions, nil
}

// validateQuestions checks tags and text and fills missing ids.
func validateQuestions(qs []domain.Question) error {
	if len(qs) == 0 {
		return fmt.Errorf("%w: at least one question required", domain.ErrInvalidArgument)
	}
	seen := map[string]bool{}
	for i := range qs {
		q := &qs[i]
		q.Text = strings.TrimSpace(q.Text)
		if q.Text == "" {
			return fmt.Errorf("%w: question %d has no text", domain.ErrInvalidArgument, i+1)
		}
		if q.Type == "" {
			q.Type = domain.QuestionSubjective
		}
		if q.Difficulty == "" {
			q.Difficulty = domain.DifficultyMedium
		}
		if !q.Type.Valid() {
			return fmt.Errorf("%w: question %d has unknown type %q", domain.ErrInvalidArgument, i+1, q.Type)
		}
		if !q.Difficulty.Valid() {
			return fmt.Errorf("%w: question %d has unknown difficulty %q", domain.ErrInvalidArgument, i+1, q.Difficulty)
		}
		if q.ID == "" {
			q.ID = fmt.Sprintf("q%d", i+1)
		}
		if seen[q.ID] {
			return fmt.Errorf("%w: duplicate question id %q", domain.ErrInvalidArgument, q.ID)
		}
		seen[q.ID] = true
	}
	return nil
}
