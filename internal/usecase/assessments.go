package usecase

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fairyhunter13/softrate-ats/internal/domain"
	"github.com/fairyhunter13/softrate-ats/internal/observability"
)

// AssessmentService manages job postings and their question sets.
type AssessmentService struct {
	Store     domain.Store
	Generator domain.QuestionGenerator
}

// NewAssessmentService constructs an AssessmentService.
func NewAssessmentService(store domain.Store, g domain.QuestionGenerator) AssessmentService {
	return AssessmentService{Store: store, Generator: g}
}

// GenerateResult is a generated and stored assessment.
type GenerateResult struct {
	Assessment domain.Assessment
	Fallback   bool
}

// Generate drafts questions for a job description and stores the result as a
// new assessment. Generator failures fall back to keyword questions.
func (s AssessmentService) Generate(ctx domain.Context, roleTitle, jdText string) (GenerateResult, error) {
	roleTitle, jdText = strings.TrimSpace(roleTitle), strings.TrimSpace(jdText)
	if roleTitle == "" || jdText == "" {
		return GenerateResult{}, fmt.Errorf("%w: role title and job description required", domain.ErrInvalidArgument)
	}
	var (
		gen      domain.GeneratedAssessment
		fallback = true
	)
	if s.Generator != nil {
		g, err := s.Generator.FromJobDescription(ctx, roleTitle, jdText)
		if err == nil {
			err = validateQuestions(g.Questions)
		}
		if err == nil {
			gen, fallback = g, false
		} else {
			observability.LoggerFromContext(ctx).Warn("assessment generation failed, using keyword questions", slog.Any("error", err))
		}
	}
	if fallback {
		observability.RecordFallback("question_generator")
		gen = KeywordAssessment(roleTitle + "\n" + jdText)
	}
	a, err := s.Create(ctx, domain.Assessment{
		RoleTitle:       roleTitle,
		JDText:          jdText,
		SuggestedSkills: gen.SuggestedSkills,
		Questions:       gen.Questions,
	})
	if err != nil {
		return GenerateResult{}, err
	}
	return GenerateResult{Assessment: a, Fallback: fallback}, nil
}

// Create validates and stores an assessment.
func (s AssessmentService) Create(ctx domain.Context, a domain.Assessment) (domain.Assessment, error) {
	if err := normalizeAssessment(&a); err != nil {
		return domain.Assessment{}, err
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	err := s.Store.WithinTx(ctx, func(ctx domain.Context, tx domain.Tx) error {
		id, err := tx.Assessments().Create(ctx, a)
		a.ID = id
		return err
	})
	if err != nil {
		return domain.Assessment{}, err
	}
	observability.LoggerFromContext(ctx).Info("assessment created",
		slog.String("assessment_id", a.ID),
		slog.String("role_title", a.RoleTitle),
		slog.Int("questions", len(a.Questions)))
	return a, nil
}

// Update replaces the editable fields of an assessment.
func (s AssessmentService) Update(ctx domain.Context, a domain.Assessment) (domain.Assessment, error) {
	if err := normalizeAssessment(&a); err != nil {
		return domain.Assessment{}, err
	}
	err := s.Store.WithinTx(ctx, func(ctx domain.Context, tx domain.Tx) error {
		cur, err := tx.Assessments().Get(ctx, a.ID)
		if err != nil {
			return err
		}
		a.CreatedAt = cur.CreatedAt
		return tx.Assessments().Update(ctx, a)
	})
	if err != nil {
		return domain.Assessment{}, err
	}
	return a, nil
}

// Delete removes an assessment and every application to it.
func (s AssessmentService) Delete(ctx domain.Context, id string) error {
	return s.Store.WithinTx(ctx, func(ctx domain.Context, tx domain.Tx) error {
		return tx.Assessments().Delete(ctx, id)
	})
}

// Get loads one assessment.
func (s AssessmentService) Get(ctx domain.Context, id string) (domain.Assessment, error) {
	var a domain.Assessment
	err := s.Store.WithinTx(ctx, func(ctx domain.Context, tx domain.Tx) error {
		var err error
		a, err = tx.Assessments().Get(ctx, id)
		return err
	})
	return a, err
}

// List returns every assessment.
func (s AssessmentService) List(ctx domain.Context) ([]domain.Assessment, error) {
	var out []domain.Assessment
	err := s.Store.WithinTx(ctx, func(ctx domain.Context, tx domain.Tx) error {
		var err error
		out, err = tx.Assessments().List(ctx)
		return err
	})
	return out, err
}

// Seed stores assessments whose role title does not exist yet and reports
// how many were created.
func (s AssessmentService) Seed(ctx domain.Context, items []domain.Assessment) (int, error) {
	for i := range items {
		if err := normalizeAssessment(&items[i]); err != nil {
			return 0, fmt.Errorf("op=assessment.seed %q: %w", items[i].RoleTitle, err)
		}
	}
	created := 0
	err := s.Store.WithinTx(ctx, func(ctx domain.Context, tx domain.Tx) error {
		created = 0
		for _, a := range items {
			_, err := tx.Assessments().GetByTitle(ctx, a.RoleTitle)
			if err == nil {
				continue
			}
			if !errors.Is(err, domain.ErrNotFound) {
				return err
			}
			if a.CreatedAt.IsZero() {
				a.CreatedAt = time.Now().UTC()
			}
			if _, err := tx.Assessments().Create(ctx, a); err != nil {
				return err
			}
			created++
		}
		return nil
	})
	return created, err
}

func normalizeAssessment(a *domain.Assessment) error {
	a.RoleTitle = strings.TrimSpace(a.RoleTitle)
	if a.RoleTitle == "" {
		return fmt.Errorf("%w: role title required", domain.ErrInvalidArgument)
	}
	skills := a.SuggestedSkills[:0:0]
	for _, sk := range a.SuggestedSkills {
		if sk = strings.TrimSpace(sk); sk != "" {
			skills = append(skills, sk)
		}
	}
	a.SuggestedSkills = skills
	return validateQuestions(a.Questions)
}
