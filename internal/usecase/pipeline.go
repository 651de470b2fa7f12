// Package usecase contains application business logic services.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fairyhunter13/softrate-ats/internal/domain"
	"github.com/fairyhunter13/softrate-ats/internal/observability"
)

// OracleFailedFeedback is the feedback recorded when the oracle falls back.
const OracleFailedFeedback = "evaluation failed"

// fallbackQuestionScore is the per-question score recorded on oracle fallback.
const fallbackQuestionScore = 5

// DefaultDisqualificationReason is recorded when no reason is given.
const DefaultDisqualificationReason = "disqualified"

// PipelineService owns the per-application stage machine. Every mutating
// operation holds the candidate's lock and runs in one store transaction.
type PipelineService struct {
	Store    domain.Store
	Locker   domain.Locker
	Screener domain.Screener
	Oracle   domain.Oracle
	Events   domain.EventPublisher
	Policy   ScoringPolicy
	Now      func() time.Time
}

// NewPipelineService constructs a PipelineService with its dependencies.
func NewPipelineService(store domain.Store, locker domain.Locker, screener domain.Screener, oracle domain.Oracle, events domain.EventPublisher, policy ScoringPolicy) PipelineService {
	return PipelineService{Store: store, Locker: locker, Screener: screener, Oracle: oracle, Events: events, Policy: policy}
}

// Selection outcomes.
const (
	SelectCreated  = "created"
	SelectResumed  = "resumed"
	SelectViewOnly = "view_only"
)

// SelectResult describes what SelectJob did.
type SelectResult struct {
	Application domain.Application
	Outcome     string
	// DeletedApplicationIDs lists incomplete applications for other
	// assessments that were discarded.
	DeletedApplicationIDs []string
}

// SelectJob makes assessmentID the candidate's working application.
func (s PipelineService) SelectJob(ctx domain.Context, candidateID, assessmentID string) (SelectResult, error) {
	if candidateID == "" || assessmentID == "" {
		return SelectResult{}, fmt.Errorf("%w: candidate and assessment required", domain.ErrInvalidArgument)
	}
	var res SelectResult
	err := s.withCandidate(ctx, candidateID, func(ctx domain.Context, tx domain.Tx, emit emitFunc) error {
		var err error
		res, err = s.selectJob(ctx, tx, emit, candidateID, assessmentID)
		return err
	})
	if err != nil {
		return SelectResult{}, err
	}
	observability.LoggerFromContext(ctx).Info("job selected",
		slog.String("candidate_id", candidateID),
		slog.String("application_id", res.Application.ID),
		slog.String("outcome", res.Outcome),
		slog.Int("deleted", len(res.DeletedApplicationIDs)))
	return res, nil
}

// selectJob runs every rejecting check before the destructive reset so a
// refused selection never discards another attempt.
func (s PipelineService) selectJob(ctx domain.Context, tx domain.Tx, emit emitFunc, candidateID, assessmentID string) (SelectResult, error) {
	if _, err := tx.Assessments().Get(ctx, assessmentID); err != nil {
		return SelectResult{}, err
	}
	apps, err := tx.Applications().ListByCandidate(ctx, candidateID)
	if err != nil {
		return SelectResult{}, err
	}
	for _, a := range apps {
		if a.AssessmentID != assessmentID && a.Status == domain.StatusQualified {
			return SelectResult{}, fmt.Errorf("%w: qualified for assessment %s", domain.ErrAlreadyQualifiedElsewhere, a.AssessmentID)
		}
	}
	if existing, _, ok := forAssessment(assessmentID).resolve(apps); ok {
		switch existing.Status {
		case domain.StatusRejected, domain.StatusDisqualified:
			return SelectResult{}, fmt.Errorf("%w: application is %s", domain.ErrReapplicationBlocked, existing.Status)
		case domain.StatusQualified:
			return SelectResult{Application: existing, Outcome: SelectViewOnly}, nil
		default:
			emit(domain.EventApplicationResumed, existing, nil, "")
			return SelectResult{Application: existing, Outcome: SelectResumed}, nil
		}
	}

	var deleted []string
	for _, a := range apps {
		if a.Status != domain.StatusIncomplete {
			continue
		}
		if err := tx.Applications().Delete(ctx, a.ID); err != nil {
			return SelectResult{}, err
		}
		deleted = append(deleted, a.ID)
		emit(domain.EventApplicationDeleted, a, nil, "reset by job selection")
	}

	app := domain.Application{
		CandidateID:  candidateID,
		AssessmentID: assessmentID,
		CurrentStage: domain.StageResume,
		Status:       domain.StatusIncomplete,
		CreatedAt:    s.now(),
	}
	id, err := tx.Applications().Create(ctx, app)
	if err != nil {
		return SelectResult{}, err
	}
	app.ID = id
	emit(domain.EventApplicationCreated, app, nil, "")
	return SelectResult{Application: app, Outcome: SelectCreated, DeletedApplicationIDs: deleted}, nil
}

// ResumeResult is the outcome of the resume stage.
type ResumeResult struct {
	Application domain.Application
	Screen      domain.ScreenResult
}

// SubmitResume screens resumeText for the candidate's application to
// assessmentID, creating the application through job selection if needed.
func (s PipelineService) SubmitResume(ctx domain.Context, candidateID, assessmentID, resumeText string) (ResumeResult, error) {
	resumeText = strings.TrimSpace(resumeText)
	if candidateID == "" || assessmentID == "" {
		return ResumeResult{}, fmt.Errorf("%w: candidate and assessment required", domain.ErrInvalidArgument)
	}
	if resumeText == "" {
		return ResumeResult{}, fmt.Errorf("%w: empty resume text", domain.ErrInvalidArgument)
	}

	var res ResumeResult
	err := s.withLock(ctx, candidateID, func(ctx domain.Context) error {
		var appID string
		err := s.inTx(ctx, candidateID, func(ctx domain.Context, tx domain.Tx, emit emitFunc) error {
			sel, err := s.selectJob(ctx, tx, emit, candidateID, assessmentID)
			if err != nil {
				return err
			}
			if err := requireStage(sel.Application, domain.StageResume); err != nil {
				return err
			}
			appID = sel.Application.ID
			return nil
		})
		if err != nil {
			return err
		}

		screen := s.screen(ctx, resumeText)

		return s.inTx(context.WithoutCancel(ctx), candidateID, func(ctx domain.Context, tx domain.Tx, emit emitFunc) error {
			app, err := tx.Applications().Get(ctx, appID)
			if err != nil {
				return err
			}
			if err := requireStage(app, domain.StageResume); err != nil {
				return err
			}
			app.StageScores.Resume = &screen
			app.ResumeText = &resumeText
			app.ResumeSnapshot = resumeText
			if screen.Shortlisted() {
				app.CurrentStage = domain.StagePsychometric
			} else {
				app.CurrentStage = domain.StageTerminated
				app.Status = domain.StatusRejected
			}
			if err := tx.Applications().Update(ctx, app); err != nil {
				return err
			}
			score := screen.Score
			emit(domain.EventResumeScreened, app, &score, "")
			res = ResumeResult{Application: app, Screen: screen}
			return nil
		})
	})
	if err != nil {
		return ResumeResult{}, err
	}
	observability.RecordTransition("submit_resume", res.Application.CurrentStage)
	if res.Application.Status.Terminal() {
		observability.RecordOutcome(string(res.Application.Status))
	}
	observability.LoggerFromContext(ctx).Info("resume screened",
		slog.String("candidate_id", candidateID),
		slog.String("application_id", res.Application.ID),
		slog.Int("score", res.Screen.Score),
		slog.String("screen_status", res.Screen.Status),
		slog.Bool("fallback", res.Screen.Fallback))
	return res, nil
}

func (s PipelineService) screen(ctx domain.Context, text string) domain.ScreenResult {
	if s.Screener != nil {
		r, err := s.Screener.Screen(ctx, text)
		if err == nil && (r.Status == domain.ScreenShortlisted || r.Status == domain.ScreenRejected) {
			r.Score = clampScore(r.Score)
			return r
		}
		if err == nil {
			err = fmt.Errorf("%w: unknown screening status %q", domain.ErrSchemaInvalid, r.Status)
		}
		observability.LoggerFromContext(ctx).Warn("resume screener failed, using keyword screen", slog.Any("error", err))
	}
	observability.RecordFallback("screener")
	r := KeywordScreen(text)
	r.Fallback = true
	return r
}

// CompleteStage records the result of a generic stage (psychometric or
// resume-technical) on the candidate's incomplete application.
//
// stage names the stage just finished and the record is stored under
// stage_<stage>. The counter advances to stage+1 only when the application is
// at that stage; an older stage number overwrites its record and leaves the
// counter alone. A stage not yet reached is rejected.
func (s PipelineService) CompleteStage(ctx domain.Context, candidateID string, stage, score int, feedback string) (domain.Application, error) {
	if stage != domain.StagePsychometric && stage != domain.StageResumeTechnical {
		return domain.Application{}, fmt.Errorf("%w: stage %d is not completed through this operation", domain.ErrInvalidArgument, stage)
	}
	if score < 0 || score > 100 {
		return domain.Application{}, fmt.Errorf("%w: score must be within 0..100", domain.ErrInvalidArgument)
	}
	var out domain.Application
	err := s.withCandidate(ctx, candidateID, func(ctx domain.Context, tx domain.Tx, emit emitFunc) error {
		apps, err := tx.Applications().ListByCandidate(ctx, candidateID)
		if err != nil {
			return err
		}
		app, _, ok := activeRules.resolve(apps)
		if !ok {
			return domain.ErrNoActiveApplication
		}
		if stage > app.CurrentStage {
			return fmt.Errorf("%w: stage %d not reached, application is at stage %d", domain.ErrInvalidState, stage, app.CurrentStage)
		}
		now := s.now()
		app.StageScores.RecordStage(stage, domain.StageResult{Score: score, Feedback: feedback, CompletedAt: now})
		if app.CurrentStage == stage {
			app.CurrentStage = stage + 1
		}
		if err := tx.Applications().Update(ctx, app); err != nil {
			return err
		}
		if _, err := tx.Submissions().Create(ctx, domain.Submission{ApplicationID: app.ID, Stage: stage, Score: score, Feedback: feedback, CreatedAt: now}); err != nil {
			return err
		}
		emit(domain.EventStageCompleted, app, &score, domain.StageKey(stage))
		out = app
		return nil
	})
	if err != nil {
		return domain.Application{}, err
	}
	observability.RecordTransition("complete_stage", out.CurrentStage)
	observability.LoggerFromContext(ctx).Info("stage completed",
		slog.String("candidate_id", candidateID),
		slog.String("application_id", out.ID),
		slog.Int("stage", stage),
		slog.Int("current_stage", out.CurrentStage))
	return out, nil
}

// FinalResult is the outcome of the JD test and the weighted final score.
type FinalResult struct {
	Application domain.Application
	Breakdown   domain.FinalBreakdown
	Evaluation  domain.Evaluation
	Fallback    bool
}

// SubmitFinal scores the JD-test answers and closes the application.
//
// The oracle runs outside the store transaction and detached from ctx, so a
// late result still persists. The application moves to its final state in a
// single transaction together with the submission.
func (s PipelineService) SubmitFinal(ctx domain.Context, candidateID, assessmentID string, answers []string) (FinalResult, error) {
	if candidateID == "" || assessmentID == "" {
		return FinalResult{}, fmt.Errorf("%w: candidate and assessment required", domain.ErrInvalidArgument)
	}
	var res FinalResult
	err := s.withLock(ctx, candidateID, func(ctx domain.Context) error {
		var (
			appID     string
			questions []domain.Question
		)
		err := s.inTx(ctx, candidateID, func(ctx domain.Context, tx domain.Tx, _ emitFunc) error {
			apps, err := tx.Applications().ListByCandidate(ctx, candidateID)
			if err != nil {
				return err
			}
			app, _, ok := forAssessment(assessmentID).resolve(apps)
			if !ok {
				return domain.ErrApplicationNotFound
			}
			if err := requireStage(app, domain.StageJDTest); err != nil {
				return err
			}
			asm, err := tx.Assessments().Get(ctx, assessmentID)
			if err != nil {
				return err
			}
			appID, questions = app.ID, asm.Questions
			return nil
		})
		if err != nil {
			return err
		}
		if len(answers) > len(questions) {
			return fmt.Errorf("%w: %d answers for %d questions", domain.ErrInvalidArgument, len(answers), len(questions))
		}
		padded := make([]string, len(questions))
		copy(padded, answers)

		detached := context.WithoutCancel(ctx)
		eval, fallback := s.evaluate(detached, questions, padded)

		return s.inTx(detached, candidateID, func(ctx domain.Context, tx domain.Tx, emit emitFunc) error {
			app, err := tx.Applications().Get(ctx, appID)
			if err != nil {
				return err
			}
			if err := requireStage(app, domain.StageJDTest); err != nil {
				return err
			}
			breakdown := ComputeFinal(app.StageScores, eval.FinalScore, s.threshold())
			app.StageScores.JD = &domain.JDResult{
				Score:          breakdown.JDTest.Score,
				QuestionScores: eval.QuestionScores,
				Feedback:       eval.OverallFeedback,
				Fallback:       fallback,
			}
			app.StageScores.Final = &breakdown
			app.CurrentStage = domain.StageComplete
			app.Status = breakdown.Status
			if err := tx.Applications().Update(ctx, app); err != nil {
				return err
			}
			sub := domain.Submission{
				ApplicationID: app.ID,
				Stage:         domain.StageJDTest,
				Answers:       padded,
				Score:         breakdown.JDTest.Score,
				Feedback:      eval.OverallFeedback,
				CreatedAt:     s.now(),
			}
			if _, err := tx.Submissions().Create(ctx, sub); err != nil {
				return err
			}
			final := breakdown.FinalScore
			emit(domain.EventApplicationFinal, app, &final, "")
			res = FinalResult{Application: app, Breakdown: breakdown, Evaluation: eval, Fallback: fallback}
			return nil
		})
	})
	if err != nil {
		return FinalResult{}, err
	}
	observability.RecordTransition("submit_final", domain.StageComplete)
	observability.RecordOutcome(string(res.Breakdown.Status))
	observability.ObserveFinalScore(res.Breakdown.FinalScore)
	observability.LoggerFromContext(ctx).Info("final submission scored",
		slog.String("candidate_id", candidateID),
		slog.String("application_id", res.Application.ID),
		slog.Int("final_score", res.Breakdown.FinalScore),
		slog.String("status", string(res.Breakdown.Status)),
		slog.Bool("fallback", res.Fallback))
	return res, nil
}

// evaluate asks the oracle and masks any failure with the fallback verdict.
func (s PipelineService) evaluate(ctx domain.Context, questions []domain.Question, answers []string) (domain.Evaluation, bool) {
	if s.Oracle != nil {
		if s.Policy.OracleTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.Policy.OracleTimeout)
			defer cancel()
		}
		eval, err := s.Oracle.Evaluate(ctx, questions, answers)
		if err == nil {
			eval.FinalScore = clampScore(eval.FinalScore)
			return eval, false
		}
		observability.LoggerFromContext(ctx).Warn("scoring oracle failed, using fallback score", slog.Any("error", err))
	}
	observability.RecordFallback("oracle")
	scores := make([]int, len(questions))
	for i := range scores {
		scores[i] = fallbackQuestionScore
	}
	return domain.Evaluation{
		QuestionScores:  scores,
		FinalScore:      clampScore(s.Policy.OracleFallbackScore),
		OverallFeedback: OracleFailedFeedback,
	}, true
}

// DisqualifyResult reports whether an application was found to disqualify.
type DisqualifyResult struct {
	Resolved    bool
	Rule        string
	Application domain.Application
}

// Disqualify ends the candidate's attempt. assessmentID may be empty. When no
// application resolves the call still succeeds without writing anything.
func (s PipelineService) Disqualify(ctx domain.Context, candidateID, assessmentID, reason string) (DisqualifyResult, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = DefaultDisqualificationReason
	}
	var res DisqualifyResult
	err := s.withCandidate(ctx, candidateID, func(ctx domain.Context, tx domain.Tx, emit emitFunc) error {
		apps, err := tx.Applications().ListByCandidate(ctx, candidateID)
		if err != nil {
			return err
		}
		app, rule, ok := disqualifyRules(assessmentID).resolve(apps)
		if !ok {
			return nil
		}
		app.CurrentStage = domain.StageTerminated
		app.Status = domain.StatusDisqualified
		app.StageScores.DisqualificationReason = reason
		if err := tx.Applications().Update(ctx, app); err != nil {
			return err
		}
		emit(domain.EventDisqualified, app, nil, reason)
		res = DisqualifyResult{Resolved: true, Rule: rule, Application: app}
		return nil
	})
	if errors.Is(err, domain.ErrCandidateNotFound) {
		res, err = DisqualifyResult{}, nil
	}
	if err != nil {
		return DisqualifyResult{}, err
	}
	lg := observability.LoggerFromContext(ctx)
	if !res.Resolved {
		lg.Warn("disqualification matched no application",
			slog.String("candidate_id", candidateID),
			slog.String("assessment_id", assessmentID))
		return res, nil
	}
	observability.RecordTransition("disqualify", domain.StageTerminated)
	observability.RecordOutcome(string(domain.StatusDisqualified))
	lg.Info("candidate disqualified",
		slog.String("candidate_id", candidateID),
		slog.String("application_id", res.Application.ID),
		slog.String("rule", res.Rule),
		slog.String("reason", reason))
	return res, nil
}

// Restart resets the candidate's incomplete application to the resume stage.
// Applications ended by rejection or disqualification cannot be restarted.
func (s PipelineService) Restart(ctx domain.Context, candidateID string) (domain.Application, error) {
	var out domain.Application
	err := s.withCandidate(ctx, candidateID, func(ctx domain.Context, tx domain.Tx, emit emitFunc) error {
		apps, err := tx.Applications().ListByCandidate(ctx, candidateID)
		if err != nil {
			return err
		}
		app, _, ok := restartRules.resolve(apps)
		if !ok {
			return domain.ErrNoIncompleteApplication
		}
		if app.Status == domain.StatusRejected || app.Status == domain.StatusDisqualified {
			return fmt.Errorf("%w: application is %s", domain.ErrRestartBlocked, app.Status)
		}
		app.CurrentStage = domain.StageResume
		app.Status = domain.StatusIncomplete
		app.StageScores = domain.StageScores{}
		app.ResumeText = nil
		if err := tx.Applications().Update(ctx, app); err != nil {
			return err
		}
		emit(domain.EventApplicationRestart, app, nil, "")
		out = app
		return nil
	})
	if err != nil {
		return domain.Application{}, err
	}
	observability.RecordTransition("restart", domain.StageResume)
	observability.LoggerFromContext(ctx).Info("application restarted",
		slog.String("candidate_id", candidateID),
		slog.String("application_id", out.ID))
	return out, nil
}

// NotStarted is the status reported for an assessment without an application.
const NotStarted = "Not Started"

// StatusView is a candidate's progress on one assessment.
type StatusView struct {
	ApplicationID string
	Stage         int
	Status        string
	StageScores   domain.StageScores
}

// Status reports the candidate's progress on assessmentID.
func (s PipelineService) Status(ctx domain.Context, candidateID, assessmentID string) (StatusView, error) {
	var view StatusView
	err := s.Store.WithinTx(ctx, func(ctx domain.Context, tx domain.Tx) error {
		apps, err := tx.Applications().ListByCandidate(ctx, candidateID)
		if err != nil {
			return err
		}
		app, _, ok := forAssessment(assessmentID).resolve(apps)
		if !ok {
			view = StatusView{Stage: domain.StageNew, Status: NotStarted}
			return nil
		}
		view = StatusView{ApplicationID: app.ID, Stage: app.CurrentStage, Status: string(app.Status), StageScores: app.StageScores}
		return nil
	})
	return view, err
}

// ApplicationView pairs an application with its role title.
type ApplicationView struct {
	Application domain.Application
	RoleTitle   string
}

// Applications lists the candidate's applications oldest first.
func (s PipelineService) Applications(ctx domain.Context, candidateID string) ([]ApplicationView, error) {
	var out []ApplicationView
	err := s.Store.WithinTx(ctx, func(ctx domain.Context, tx domain.Tx) error {
		apps, err := tx.Applications().ListByCandidate(ctx, candidateID)
		if err != nil {
			return err
		}
		out = make([]ApplicationView, 0, len(apps))
		for _, a := range apps {
			title := ""
			if asm, err := tx.Assessments().Get(ctx, a.AssessmentID); err == nil {
				title = asm.RoleTitle
			} else if !errors.Is(err, domain.ErrNotFound) {
				return err
			}
			out = append(out, ApplicationView{Application: a, RoleTitle: title})
		}
		return nil
	})
	return out, err
}

// ActiveApplication returns the candidate's incomplete application.
func (s PipelineService) ActiveApplication(ctx domain.Context, candidateID string) (domain.Application, error) {
	var out domain.Application
	err := s.Store.WithinTx(ctx, func(ctx domain.Context, tx domain.Tx) error {
		apps, err := tx.Applications().ListByCandidate(ctx, candidateID)
		if err != nil {
			return err
		}
		app, _, ok := activeRules.resolve(apps)
		if !ok {
			return domain.ErrNoActiveApplication
		}
		out = app
		return nil
	})
	return out, err
}

func requireStage(app domain.Application, stage int) error {
	if app.Status.Terminal() {
		return fmt.Errorf("%w: application is %s", domain.ErrInvalidState, app.Status)
	}
	if app.CurrentStage != stage {
		return fmt.Errorf("%w: application is at stage %d, expected %d", domain.ErrInvalidState, app.CurrentStage, stage)
	}
	return nil
}

func (s PipelineService) threshold() int {
	if s.Policy.QualifyThreshold <= 0 {
		return DefaultScoringPolicy().QualifyThreshold
	}
	return s.Policy.QualifyThreshold
}

func (s PipelineService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
