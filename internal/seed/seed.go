// Package seed loads assessment and psychometric question banks from YAML.
//
// Defaults are embedded in the binary; a file on disk replaces the
// assessment defaults when configured.
package seed

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fairyhunter13/softrate-ats/internal/domain"
)

//go:embed data/*.yaml
var defaults embed.FS

type assessmentsYAML struct {
	Assessments []assessmentYAML `yaml:"assessments"`
}

type assessmentYAML struct {
	RoleTitle       string            `yaml:"role_title"`
	JobDescription  string            `yaml:"job_description"`
	SuggestedSkills []string          `yaml:"suggested_skills"`
	Questions       []domain.Question `yaml:"questions"`
}

type questionsYAML struct {
	Questions []domain.Question `yaml:"questions"`
}

// Seeder persists assessments, skipping titles that already exist.
type Seeder interface {
	Seed(ctx context.Context, items []domain.Assessment) (int, error)
}

// ParseAssessments decodes an assessments document.
func ParseAssessments(b []byte) ([]domain.Assessment, error) {
	var doc assessmentsYAML
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("yaml parse: %w", err)
	}
	if len(doc.Assessments) == 0 {
		return nil, fmt.Errorf("%w: no assessments in seed document", domain.ErrInvalidArgument)
	}
	out := make([]domain.Assessment, 0, len(doc.Assessments))
	for _, a := range doc.Assessments {
		out = append(out, domain.Assessment{
			RoleTitle:       strings.TrimSpace(a.RoleTitle),
			JDText:          strings.TrimSpace(a.JobDescription),
			SuggestedSkills: a.SuggestedSkills,
			Questions:       a.Questions,
		})
	}
	return out, nil
}

// DefaultAssessments returns the embedded assessments.
func DefaultAssessments() ([]domain.Assessment, error) {
	b, err := defaults.ReadFile("data/assessments.yaml")
	if err != nil {
		return nil, err
	}
	return ParseAssessments(b)
}

// LoadAssessments reads path, or the embedded defaults when path is empty.
func LoadAssessments(path string) ([]domain.Assessment, error) {
	if path == "" {
		return DefaultAssessments()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("seed file not found: %s", path)
		}
		return nil, err
	}
	return ParseAssessments(b)
}

// Psychometric returns the embedded psychometric question bank.
func Psychometric() ([]domain.Question, error) {
	b, err := defaults.ReadFile("data/psychometric.yaml")
	if err != nil {
		return nil, err
	}
	var doc questionsYAML
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("yaml parse: %w", err)
	}
	return doc.Questions, nil
}

// Run loads path (or the defaults) and seeds them through s.
func Run(ctx context.Context, s Seeder, path string) (int, error) {
	items, err := LoadAssessments(path)
	if err != nil {
		return 0, fmt.Errorf("op=seed.load: %w", err)
	}
	n, err := s.Seed(ctx, items)
	if err != nil {
		return n, fmt.Errorf("op=seed.run: %w", err)
	}
	source := path
	if source == "" {
		source = "embedded"
	}
	slog.Info("assessments seeded", slog.String("source", source), slog.Int("created", n), slog.Int("total", len(items)))
	return n, nil
}
