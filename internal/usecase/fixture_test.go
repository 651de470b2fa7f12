package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/softrate-ats/internal/adapter/lock"
	"github.com/fairyhunter13/softrate-ats/internal/adapter/repo/memory"
	"github.com/fairyhunter13/softrate-ats/internal/domain"
	"github.com/fairyhunter13/softrate-ats/internal/usecase"
)

type stubScreener struct {
	res domain.ScreenResult
	err error
}

func (s *stubScreener) Screen(_ context.Context, _ string) (domain.ScreenResult, error) {
	return s.res, s.err
}

type stubOracle struct {
	fn func(ctx context.Context, qs []domain.Question, answers []string) (domain.Evaluation, error)
}

func (o *stubOracle) Evaluate(ctx context.Context, qs []domain.Question, answers []string) (domain.Evaluation, error) {
	return o.fn(ctx, qs, answers)
}

func fixedOracle(score int) *stubOracle {
	return &stubOracle{fn: func(_ context.Context, qs []domain.Question, _ []string) (domain.Evaluation, error) {
		scores := make([]int, len(qs))
		for i := range scores {
			scores[i] = score / 10
		}
		return domain.Evaluation{QuestionScores: scores, FinalScore: score, OverallFeedback: "solid answers"}, nil
	}}
}

type recordingEvents struct {
	mu     sync.Mutex
	events []domain.ApplicationEvent
	err    error
}

func (r *recordingEvents) Publish(_ context.Context, ev domain.ApplicationEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *recordingEvents) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

type fixture struct {
	store     *memory.Store
	screener  *stubScreener
	oracle    *stubOracle
	events    *recordingEvents
	svc       usecase.PipelineService
	candidate string
	fullStack string
	aiEng     string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    memory.New(),
		screener: &stubScreener{res: domain.ScreenResult{Score: 80, Feedback: "good", Status: domain.ScreenShortlisted}},
		oracle:   fixedOracle(70),
		events:   &recordingEvents{},
	}
	f.svc = usecase.NewPipelineService(f.store, lock.NewLocalLocker(), f.screener, f.oracle, f.events, usecase.DefaultScoringPolicy())
	questions := []domain.Question{
		{ID: "q1", Text: "Explain the virtual DOM.", Type: domain.QuestionSubjective, Difficulty: domain.DifficultyMedium, Keywords: []string{"diffing"}},
		{ID: "q2", Text: "PUT vs PATCH?", Type: domain.QuestionSubjective, Difficulty: domain.DifficultyMedium, Keywords: []string{"replace"}},
		{ID: "q3", Text: "Zero-downtime migrations?", Type: domain.QuestionSubjective, Difficulty: domain.DifficultyHard, Keywords: []string{"alembic"}},
	}
	err := f.store.WithinTx(context.Background(), func(ctx domain.Context, tx domain.Tx) error {
		var err error
		if f.candidate, err = tx.Candidates().Create(ctx, domain.Candidate{Name: "Grace", Email: "grace@example.com"}); err != nil {
			return err
		}
		if f.fullStack, err = tx.Assessments().Create(ctx, domain.Assessment{RoleTitle: "Full Stack Developer", Questions: questions}); err != nil {
			return err
		}
		f.aiEng, err = tx.Assessments().Create(ctx, domain.Assessment{RoleTitle: "AI Engineer", Questions: questions[:2]})
		return err
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) apps(t *testing.T) []domain.Application {
	t.Helper()
	var out []domain.Application
	err := f.store.WithinTx(context.Background(), func(ctx domain.Context, tx domain.Tx) error {
		var err error
		out, err = tx.Applications().ListByCandidate(ctx, f.candidate)
		return err
	})
	require.NoError(t, err)
	return out
}

func (f *fixture) app(t *testing.T, id string) domain.Application {
	t.Helper()
	var out domain.Application
	err := f.store.WithinTx(context.Background(), func(ctx domain.Context, tx domain.Tx) error {
		var err error
		out, err = tx.Applications().Get(ctx, id)
		return err
	})
	require.NoError(t, err)
	return out
}

func (f *fixture) setStatus(t *testing.T, id string, status domain.ApplicationStatus, stage int) {
	t.Helper()
	err := f.store.WithinTx(context.Background(), func(ctx domain.Context, tx domain.Tx) error {
		a, err := tx.Applications().Get(ctx, id)
		if err != nil {
			return err
		}
		a.Status, a.CurrentStage = status, stage
		return tx.Applications().Update(ctx, a)
	})
	require.NoError(t, err)
}

// driveToJDTest walks a fresh application to stage 4 with the given scores.
func (f *fixture) driveToJDTest(t *testing.T, assessmentID string, resume, psych, tech int) domain.Application {
	t.Helper()
	ctx := context.Background()
	f.screener.res = domain.ScreenResult{Score: resume, Feedback: "ok", Status: domain.ScreenShortlisted}
	_, err := f.svc.SubmitResume(ctx, f.candidate, assessmentID, "Experience, Education, Skills: python sql docker")
	require.NoError(t, err)
	_, err = f.svc.CompleteStage(ctx, f.candidate, domain.StagePsychometric, psych, "psychometric done")
	require.NoError(t, err)
	app, err := f.svc.CompleteStage(ctx, f.candidate, domain.StageResumeTechnical, tech, "technical done")
	require.NoError(t, err)
	require.Equal(t, domain.StageJDTest, app.CurrentStage)
	return app
}

func incompleteCount(apps []domain.Application) int {
	n := 0
	for _, a := range apps {
		if a.Status == domain.StatusIncomplete {
			n++
		}
	}
	return n
}

var errUpstream = errors.New("upstream unavailable")

