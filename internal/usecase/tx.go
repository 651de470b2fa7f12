package usecase

import (
	"fmt"
	"log/slog"

	"github.com/fairyhunter13/softrate-ats/internal/domain"
	"github.com/fairyhunter13/softrate-ats/internal/observability"
)

// emitFunc queues an event to publish once the transaction commits.
type emitFunc func(eventType string, app domain.Application, score *int, reason string)

func candidateLockKey(candidateID string) string { return "candidate:" + candidateID }

// withLock holds the candidate's lock while fn runs.
func (s PipelineService) withLock(ctx domain.Context, candidateID string, fn func(ctx domain.Context) error) error {
	if candidateID == "" {
		return fmt.Errorf("%w: candidate required", domain.ErrInvalidArgument)
	}
	ctx = observability.WithLogAttrs(ctx, slog.String("candidate_id", candidateID))
	if s.Locker == nil {
		return fn(ctx)
	}
	unlock, err := s.Locker.Lock(ctx, candidateLockKey(candidateID))
	if err != nil {
		return fmt.Errorf("op=pipeline.lock: %w", err)
	}
	defer unlock()
	return fn(ctx)
}

// withCandidate runs fn in one transaction under the candidate's lock.
func (s PipelineService) withCandidate(ctx domain.Context, candidateID string, fn func(ctx domain.Context, tx domain.Tx, emit emitFunc) error) error {
	return s.withLock(ctx, candidateID, func(ctx domain.Context) error {
		return s.inTx(ctx, candidateID, fn)
	})
}

// inTx runs fn in a transaction holding the candidate row lock and publishes
// the queued events after commit.
func (s PipelineService) inTx(ctx domain.Context, candidateID string, fn func(ctx domain.Context, tx domain.Tx, emit emitFunc) error) error {
	var events []domain.ApplicationEvent
	err := s.Store.WithinTx(ctx, func(ctx domain.Context, tx domain.Tx) error {
		events = events[:0]
		if err := tx.Candidates().LockForUpdate(ctx, candidateID); err != nil {
			return err
		}
		return fn(ctx, tx, func(eventType string, app domain.Application, score *int, reason string) {
			events = append(events, domain.ApplicationEvent{
				Type:          eventType,
				CandidateID:   app.CandidateID,
				ApplicationID: app.ID,
				AssessmentID:  app.AssessmentID,
				Stage:         app.CurrentStage,
				Status:        string(app.Status),
				Score:         score,
				Reason:        reason,
				OccurredAt:    s.now(),
			})
		})
	})
	if err != nil {
		return err
	}
	s.publish(ctx, events)
	return nil
}

// publish is best effort; a failed publish never fails the operation.
func (s PipelineService) publish(ctx domain.Context, events []domain.ApplicationEvent) {
	if s.Events == nil {
		return
	}
	for _, ev := range events {
		if err := s.Events.Publish(ctx, ev); err != nil {
			observability.LoggerFromContext(ctx).Warn("publish application event failed",
				slog.String("type", ev.Type),
				slog.String("application_id", ev.ApplicationID),
				slog.Any("error", err))
		}
	}
}
