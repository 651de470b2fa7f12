package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/softrate-ats/internal/domain"
	"github.com/fairyhunter13/softrate-ats/internal/usecase"
)

func TestQuestionService_ResumeQuestions(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	gen := &stubGenerator{resumeQs: []domain.Question{{Text: "Tell us about your Kafka project."}}}
	svc := usecase.NewQuestionService(f.svc, gen, nil)

	_, err := svc.ResumeQuestions(ctx, f.candidate)
	require.ErrorIs(t, err, domain.ErrNoActiveApplication)

	_, err = f.svc.SelectJob(ctx, f.candidate, f.fullStack)
	require.NoError(t, err)
	_, err = svc.ResumeQuestions(ctx, f.candidate)
	require.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = f.svc.SubmitResume(ctx, f.candidate, f.fullStack, "python and sql")
	require.NoError(t, err)
	qs, err := svc.ResumeQuestions(ctx, f.candidate)
	require.NoError(t, err)
	require.Len(t, qs, 1)
	assert.Equal(t, "q1", qs[0].ID)

	gen.err = errUpstream
	qs, err = svc.ResumeQuestions(ctx, f.candidate)
	require.NoError(t, err)
	require.Len(t, qs, 2)
	assert.Equal(t, "1", qs[0].ID)
	assert.Equal(t, "3", qs[1].ID)
}

func TestQuestionService_PsychometricIsCopied(t *testing.T) {
	t.Parallel()
	bank := []domain.Question{{ID: "p1", Text: "I enjoy teamwork.", Type: domain.QuestionMCQ, Options: []string{"agree", "disagree"}}}
	svc := usecase.NewQuestionService(usecase.PipelineService{}, nil, bank)
	got := svc.PsychometricQuestions()
	got[0].Options[0] = "changed"
	assert.Equal(t, "agree", svc.PsychometricQuestions()[0].Options[0])
}
