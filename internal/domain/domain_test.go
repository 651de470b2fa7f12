package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fairyhunter13/softrate-ats/internal/domain"
)

func TestPipelineErrors_MatchKind(t *testing.T) {
	t.Parallel()
	cases := []struct {
		err  error
		kind error
	}{
		{domain.ErrAlreadyQualifiedElsewhere, domain.ErrPolicyViolation},
		{domain.ErrReapplicationBlocked, domain.ErrPolicyViolation},
		{domain.ErrRestartBlocked, domain.ErrPolicyViolation},
		{domain.ErrNoActiveApplication, domain.ErrInvalidState},
		{domain.ErrNoIncompleteApplication, domain.ErrInvalidState},
		{domain.ErrApplicationNotFound, domain.ErrNotFound},
		{domain.ErrUnsupportedFormat, domain.ErrInvalidArgument},
	}
	for _, c := range cases {
		wrapped := fmt.Errorf("op=test: %w", c.err)
		assert.True(t, errors.Is(wrapped, c.err), c.err.Error())
		assert.True(t, errors.Is(wrapped, c.kind), c.err.Error())
		assert.Equal(t, c.kind, domain.Kind(wrapped))
	}
	assert.False(t, errors.Is(domain.ErrRestartBlocked, domain.ErrInvalidState))
	assert.Equal(t, domain.ErrInternal, domain.Kind(errors.New("boom")))
}

func TestStageScores_Defaults(t *testing.T) {
	t.Parallel()
	var s domain.StageScores
	assert.True(t, s.IsEmpty())
	assert.Equal(t, 0, s.ResumeScore())
	assert.Equal(t, 0, s.StageScore(domain.StagePsychometric))
	assert.Equal(t, 0, s.StageScore(domain.StageResumeTechnical))

	assert.True(t, s.RecordStage(domain.StagePsychometric, domain.StageResult{Score: 64}))
	assert.False(t, s.RecordStage(domain.StageJDTest, domain.StageResult{Score: 1}))
	assert.Equal(t, 64, s.StageScore(domain.StagePsychometric))
	assert.False(t, s.IsEmpty())
	assert.Equal(t, "stage_2", domain.StageKey(domain.StagePsychometric))
}

func TestApplicationStatus_Terminal(t *testing.T) {
	t.Parallel()
	assert.False(t, domain.StatusIncomplete.Terminal())
	assert.True(t, domain.StatusQualified.Terminal())
	assert.True(t, domain.StatusRejected.Terminal())
	assert.True(t, domain.StatusDisqualified.Terminal())
	assert.True(t, domain.ValidStage(-1))
	assert.False(t, domain.ValidStage(6))
}
