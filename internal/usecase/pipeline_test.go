package usecase_test

import (
	"context"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/softrate-ats/internal/domain"
	"github.com/fairyhunter13/softrate-ats/internal/usecase"
)

func TestSelectJob_CreatesApplication(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	res, err := f.svc.SelectJob(context.Background(), f.candidate, f.fullStack)
	require.NoError(t, err)
	assert.Equal(t, usecase.SelectCreated, res.Outcome)
	assert.Equal(t, domain.StageResume, res.Application.CurrentStage)
	assert.Equal(t, domain.StatusIncomplete, res.Application.Status)
	assert.True(t, res.Application.StageScores.IsEmpty())
	assert.Equal(t, []string{domain.EventApplicationCreated}, f.events.types())
}

func TestSelectJob_ResetsOtherIncomplete(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.SelectJob(ctx, f.candidate, f.fullStack)
	require.NoError(t, err)
	second, err := f.svc.SelectJob(ctx, f.candidate, f.aiEng)
	require.NoError(t, err)

	assert.Equal(t, []string{first.Application.ID}, second.DeletedApplicationIDs)
	apps := f.apps(t)
	require.Len(t, apps, 1)
	assert.Equal(t, f.aiEng, apps[0].AssessmentID)
}

func TestSelectJob_ResumesIncompleteUnchanged(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SubmitResume(ctx, f.candidate, f.fullStack, "experience education skills")
	require.NoError(t, err)

	res, err := f.svc.SelectJob(ctx, f.candidate, f.fullStack)
	require.NoError(t, err)
	assert.Equal(t, usecase.SelectResumed, res.Outcome)
	assert.Equal(t, domain.StagePsychometric, res.Application.CurrentStage)
	require.NotNil(t, res.Application.StageScores.Resume)
	assert.Equal(t, 80, res.Application.StageScores.Resume.Score)
}

func TestSelectJob_QualifiedElsewhereIsPolicyViolation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.SelectJob(ctx, f.candidate, f.fullStack)
	require.NoError(t, err)
	f.setStatus(t, res.Application.ID, domain.StatusQualified, domain.StageComplete)

	_, err = f.svc.SelectJob(ctx, f.candidate, f.aiEng)
	require.ErrorIs(t, err, domain.ErrAlreadyQualifiedElsewhere)
	assert.ErrorIs(t, err, domain.ErrPolicyViolation)
	assert.Len(t, f.apps(t), 1)
}

func TestSelectJob_QualifiedHereIsViewOnly(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.SelectJob(ctx, f.candidate, f.fullStack)
	require.NoError(t, err)
	f.setStatus(t, res.Application.ID, domain.StatusQualified, domain.StageComplete)

	again, err := f.svc.SelectJob(ctx, f.candidate, f.fullStack)
	require.NoError(t, err)
	assert.Equal(t, usecase.SelectViewOnly, again.Outcome)
	assert.Equal(t, domain.StatusQualified, again.Application.Status)
}

func TestSelectJob_ReapplicationBlocked(t *testing.T) {
	t.Parallel()
	for _, status := range []domain.ApplicationStatus{domain.StatusRejected, domain.StatusDisqualified} {
		t.Run(string(status), func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			ctx := context.Background()
			res, err := f.svc.SelectJob(ctx, f.candidate, f.fullStack)
			require.NoError(t, err)
			f.setStatus(t, res.Application.ID, status, domain.StageTerminated)

			// An in-progress attempt elsewhere must survive the refused selection.
			other, err := f.svc.SelectJob(ctx, f.candidate, f.aiEng)
			require.NoError(t, err)

			_, err = f.svc.SelectJob(ctx, f.candidate, f.fullStack)
			require.ErrorIs(t, err, domain.ErrReapplicationBlocked)
			assert.ErrorIs(t, err, domain.ErrPolicyViolation)
			assert.Equal(t, domain.StatusIncomplete, f.app(t, other.Application.ID).Status)
		})
	}
}

func TestSelectJob_UnknownAssessment(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	_, err := f.svc.SelectJob(context.Background(), f.candidate, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.SelectJob(context.Background(), "nobody", f.fullStack)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSelectJob_ConcurrentSelectionsKeepOneIncomplete(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		target := f.fullStack
		if i%2 == 1 {
			target = f.aiEng
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.SelectJob(ctx, f.candidate, target)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, incompleteCount(f.apps(t)))
}

func TestSubmitResume_Shortlisted(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	res, err := f.svc.SubmitResume(context.Background(), f.candidate, f.fullStack, "  my resume  ")
	require.NoError(t, err)
	assert.Equal(t, domain.StagePsychometric, res.Application.CurrentStage)
	assert.Equal(t, domain.StatusIncomplete, res.Application.Status)
	require.NotNil(t, res.Application.ResumeText)
	assert.Equal(t, "my resume", *res.Application.ResumeText)
	assert.Equal(t, "my resume", res.Application.ResumeSnapshot)
	assert.Equal(t, []string{domain.EventApplicationCreated, domain.EventResumeScreened}, f.events.types())
}

func TestSubmitResume_RejectedIsTerminal(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.screener.res = domain.ScreenResult{Score: 40, Feedback: "weak", Status: domain.ScreenRejected}
	ctx := context.Background()

	res, err := f.svc.SubmitResume(ctx, f.candidate, f.fullStack, "hello")
	require.NoError(t, err)
	assert.Equal(t, domain.StageTerminated, res.Application.CurrentStage)
	assert.Equal(t, domain.StatusRejected, res.Application.Status)

	_, err = f.svc.CompleteStage(ctx, f.candidate, domain.StagePsychometric, 90, "")
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = f.svc.SubmitResume(ctx, f.candidate, f.fullStack, "hello again")
	assert.ErrorIs(t, err, domain.ErrReapplicationBlocked)
}

func TestSubmitResume_ScreenerFailureFallsBack(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.screener.err = errUpstream

	res, err := f.svc.SubmitResume(context.Background(), f.candidate, f.fullStack,
		"Experience at Acme. Education: BSc. Skills: Python, SQL, Docker. Projects: ATS.")
	require.NoError(t, err)
	assert.True(t, res.Screen.Fallback)
	assert.Equal(t, 100, res.Screen.Score)
	assert.Equal(t, domain.StagePsychometric, res.Application.CurrentStage)
}

func TestSubmitResume_UnknownScreenStatusFallsBack(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.screener.res = domain.ScreenResult{Score: 99, Status: "Maybe"}

	res, err := f.svc.SubmitResume(context.Background(), f.candidate, f.fullStack, "no keywords here")
	require.NoError(t, err)
	assert.True(t, res.Screen.Fallback)
	assert.Equal(t, domain.ScreenRejected, res.Screen.Status)
}

func TestSubmitResume_WrongStage(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.SubmitResume(ctx, f.candidate, f.fullStack, "resume")
	require.NoError(t, err)

	_, err = f.svc.SubmitResume(ctx, f.candidate, f.fullStack, "resume again")
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = f.svc.SubmitResume(ctx, f.candidate, f.fullStack, "   ")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

// Stage completion takes the number of the stage just finished, stores it
// under stage_<n> and advances only from that exact stage.
func TestCompleteStage_KeyAndAdvancePolicy(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.SubmitResume(ctx, f.candidate, f.fullStack, "resume")
	require.NoError(t, err)

	_, err = f.svc.CompleteStage(ctx, f.candidate, domain.StageResumeTechnical, 50, "skipped ahead")
	require.ErrorIs(t, err, domain.ErrInvalidState)

	app, err := f.svc.CompleteStage(ctx, f.candidate, domain.StagePsychometric, 60, "first")
	require.NoError(t, err)
	assert.Equal(t, domain.StageResumeTechnical, app.CurrentStage)
	require.NotNil(t, app.StageScores.Stage2)
	assert.Equal(t, 60, app.StageScores.Stage2.Score)
	assert.Nil(t, app.StageScores.Stage3)

	app, err = f.svc.CompleteStage(ctx, f.candidate, domain.StagePsychometric, 65, "resubmitted")
	require.NoError(t, err)
	assert.Equal(t, domain.StageResumeTechnical, app.CurrentStage, "stale stage must not move the counter")
	assert.Equal(t, 65, app.StageScores.Stage2.Score, "stale stage still overwrites its record")

	app, err = f.svc.CompleteStage(ctx, f.candidate, domain.StageResumeTechnical, 90, "technical")
	require.NoError(t, err)
	assert.Equal(t, domain.StageJDTest, app.CurrentStage)
	assert.Equal(t, 90, app.StageScores.StageScore(domain.StageResumeTechnical))

	_, err = f.svc.CompleteStage(ctx, f.candidate, domain.StageJDTest, 90, "")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = f.svc.CompleteStage(ctx, f.candidate, domain.StagePsychometric, 101, "")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestCompleteStage_NoActiveApplication(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	_, err := f.svc.CompleteStage(context.Background(), f.candidate, domain.StagePsychometric, 10, "")
	require.ErrorIs(t, err, domain.ErrNoActiveApplication)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestSubmitFinal_WeightedScore(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	app := f.driveToJDTest(t, f.fullStack, 80, 60, 90)

	res, err := f.svc.SubmitFinal(ctx, f.candidate, f.fullStack, []string{"a1", "a2", "a3"})
	require.NoError(t, err)
	// 0.2*80 + 0.2*60 + 0.3*90 + 0.3*70 = 76
	assert.Equal(t, 76, res.Breakdown.FinalScore)
	assert.Equal(t, domain.StatusQualified, res.Breakdown.Status)
	assert.False(t, res.Fallback)

	stored := f.app(t, app.ID)
	assert.Equal(t, domain.StageComplete, stored.CurrentStage)
	assert.Equal(t, domain.StatusQualified, stored.Status)
	require.NotNil(t, stored.StageScores.Final)
	assert.Equal(t, domain.WeightedScore{Score: 70, Weight: 30}, stored.StageScores.Final.JDTest)
	assert.Equal(t, domain.WeightedScore{Score: 80, Weight: 20}, stored.StageScores.Final.Resume)
	require.NotNil(t, stored.StageScores.JD)
	assert.Equal(t, []int{7, 7, 7}, stored.StageScores.JD.QuestionScores)

	var subs []domain.Submission
	require.NoError(t, f.store.WithinTx(ctx, func(ctx domain.Context, tx domain.Tx) error {
		var err error
		subs, err = tx.Submissions().ListByApplication(ctx, app.ID)
		return err
	}))
	require.Len(t, subs, 3)
	assert.Equal(t, domain.StageJDTest, subs[2].Stage)
	assert.Equal(t, []string{"a1", "a2", "a3"}, subs[2].Answers)
}

func TestSubmitFinal_QualificationBoundary(t *testing.T) {
	t.Parallel()
	cases := []struct {
		score int
		want  domain.ApplicationStatus
	}{
		{70, domain.StatusQualified},
		{69, domain.StatusRejected},
		{100, domain.StatusQualified},
		{0, domain.StatusRejected},
	}
	for _, tc := range cases {
		t.Run(strconv.Itoa(tc.score), func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			f.oracle = fixedOracle(tc.score)
			f.svc.Oracle = f.oracle
			f.driveToJDTest(t, f.fullStack, tc.score, tc.score, tc.score)

			res, err := f.svc.SubmitFinal(context.Background(), f.candidate, f.fullStack, []string{"x"})
			require.NoError(t, err)
			assert.Equal(t, tc.score, res.Breakdown.FinalScore)
			assert.Equal(t, tc.want, res.Application.Status)
			assert.Equal(t, domain.StageComplete, res.Application.CurrentStage)
		})
	}
}

func TestSubmitFinal_OracleFailureUsesFallback(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.svc.Oracle = &stubOracle{fn: func(context.Context, []domain.Question, []string) (domain.Evaluation, error) {
		return domain.Evaluation{}, errUpstream
	}}
	f.driveToJDTest(t, f.fullStack, 100, 100, 100)

	res, err := f.svc.SubmitFinal(context.Background(), f.candidate, f.fullStack, nil)
	require.NoError(t, err)
	assert.True(t, res.Fallback)
	assert.Equal(t, 50, res.Breakdown.JDTest.Score)
	assert.Equal(t, usecase.OracleFailedFeedback, res.Application.StageScores.JD.Feedback)
	assert.Equal(t, []int{5, 5, 5}, res.Application.StageScores.JD.QuestionScores)
	// 20 + 20 + 30 + 15
	assert.Equal(t, 85, res.Breakdown.FinalScore)
}

func TestSubmitFinal_Preconditions(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SubmitFinal(ctx, f.candidate, f.fullStack, nil)
	require.ErrorIs(t, err, domain.ErrApplicationNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.SubmitResume(ctx, f.candidate, f.fullStack, "resume")
	require.NoError(t, err)
	_, err = f.svc.SubmitFinal(ctx, f.candidate, f.fullStack, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = f.svc.CompleteStage(ctx, f.candidate, domain.StagePsychometric, 50, "")
	require.NoError(t, err)
	_, err = f.svc.CompleteStage(ctx, f.candidate, domain.StageResumeTechnical, 50, "")
	require.NoError(t, err)
	_, err = f.svc.SubmitFinal(ctx, f.candidate, f.fullStack, []string{"1", "2", "3", "4"})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = f.svc.SubmitFinal(ctx, f.candidate, f.fullStack, []string{"1"})
	require.NoError(t, err)
	_, err = f.svc.SubmitFinal(ctx, f.candidate, f.fullStack, []string{"1"})
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestSubmitFinal_LateResultPersistsAfterCancel(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.driveToJDTest(t, f.fullStack, 80, 80, 80)

	ctx, cancel := context.WithCancel(context.Background())
	f.svc.Oracle = &stubOracle{fn: func(octx context.Context, qs []domain.Question, _ []string) (domain.Evaluation, error) {
		cancel()
		assert.NoError(t, octx.Err())
		return domain.Evaluation{QuestionScores: make([]int, len(qs)), FinalScore: 80, OverallFeedback: "late"}, nil
	}}

	res, err := f.svc.SubmitFinal(ctx, f.candidate, f.fullStack, []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, 80, res.Breakdown.FinalScore)
	assert.Equal(t, domain.StatusQualified, f.app(t, res.Application.ID).Status)
}

func TestDisqualify_IdempotentAndTerminal(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	sel, err := f.svc.SelectJob(ctx, f.candidate, f.fullStack)
	require.NoError(t, err)

	res, err := f.svc.Disqualify(ctx, f.candidate, f.fullStack, "reached max strikes")
	require.NoError(t, err)
	assert.True(t, res.Resolved)
	assert.Equal(t, "incomplete_for_assessment", res.Rule)
	assert.Equal(t, domain.StageTerminated, res.Application.CurrentStage)
	assert.Equal(t, "reached max strikes", res.Application.StageScores.DisqualificationReason)

	res, err = f.svc.Disqualify(ctx, f.candidate, f.fullStack, "")
	require.NoError(t, err)
	assert.True(t, res.Resolved)
	assert.Equal(t, "any_for_assessment", res.Rule)
	assert.Equal(t, domain.StatusDisqualified, f.app(t, sel.Application.ID).Status)

	_, err = f.svc.Restart(ctx, f.candidate)
	require.ErrorIs(t, err, domain.ErrRestartBlocked)
}

func TestDisqualify_FallsBackToLatestIncomplete(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	sel, err := f.svc.SelectJob(ctx, f.candidate, f.aiEng)
	require.NoError(t, err)

	res, err := f.svc.Disqualify(ctx, f.candidate, "", "tab switching")
	require.NoError(t, err)
	assert.Equal(t, "latest_incomplete", res.Rule)
	assert.Equal(t, sel.Application.ID, res.Application.ID)
}

func TestDisqualify_NothingToResolve(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	res, err := f.svc.Disqualify(context.Background(), f.candidate, f.fullStack, "no session")
	require.NoError(t, err)
	assert.False(t, res.Resolved)
	assert.Empty(t, f.apps(t))
	assert.Empty(t, f.events.types())
}

func TestDisqualify_UnknownCandidateResolvesNothing(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	res, err := f.svc.Disqualify(context.Background(), "deleted-candidate", f.fullStack, "tab switch")
	require.NoError(t, err)
	assert.False(t, res.Resolved)
	assert.Empty(t, f.events.types())
}

func TestRestart_ResetsIncomplete(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.SubmitResume(ctx, f.candidate, f.fullStack, "resume")
	require.NoError(t, err)
	_, err = f.svc.CompleteStage(ctx, f.candidate, domain.StagePsychometric, 70, "")
	require.NoError(t, err)

	app, err := f.svc.Restart(ctx, f.candidate)
	require.NoError(t, err)
	assert.Equal(t, domain.StageResume, app.CurrentStage)
	assert.Equal(t, domain.StatusIncomplete, app.Status)
	assert.True(t, app.StageScores.IsEmpty())
	assert.Nil(t, app.ResumeText)
	assert.Equal(t, "resume", app.ResumeSnapshot)
}

func TestRestart_Errors(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Restart(ctx, f.candidate)
	require.ErrorIs(t, err, domain.ErrNoIncompleteApplication)

	f.screener.res = domain.ScreenResult{Score: 10, Status: domain.ScreenRejected}
	_, err = f.svc.SubmitResume(ctx, f.candidate, f.fullStack, "resume")
	require.NoError(t, err)
	_, err = f.svc.Restart(ctx, f.candidate)
	require.ErrorIs(t, err, domain.ErrRestartBlocked)
	assert.ErrorIs(t, err, domain.ErrPolicyViolation)
}

func TestStatusAndApplications(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	st, err := f.svc.Status(ctx, f.candidate, f.fullStack)
	require.NoError(t, err)
	assert.Equal(t, usecase.NotStarted, st.Status)
	assert.Equal(t, domain.StageNew, st.Stage)

	_, err = f.svc.SubmitResume(ctx, f.candidate, f.fullStack, "resume")
	require.NoError(t, err)
	st, err = f.svc.Status(ctx, f.candidate, f.fullStack)
	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusIncomplete), st.Status)
	assert.Equal(t, domain.StagePsychometric, st.Stage)

	views, err := f.svc.Applications(ctx, f.candidate)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "Full Stack Developer", views[0].RoleTitle)

	active, err := f.svc.ActiveApplication(ctx, f.candidate)
	require.NoError(t, err)
	assert.Equal(t, views[0].Application.ID, active.ID)
}

func TestPublishFailureDoesNotFailOperation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.events.err = errUpstream
	_, err := f.svc.SelectJob(context.Background(), f.candidate, f.fullStack)
	require.NoError(t, err)
	assert.Len(t, f.events.types(), 1)
}
