package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/fairyhunter13/softrate-ats/internal/domain"
)

// ApplicationRepo persists applications. Stage records live in one JSONB
// column keyed by stage.
type ApplicationRepo struct{ DB DBTX }

// NewApplicationRepo constructs an ApplicationRepo.
func NewApplicationRepo(db DBTX) *ApplicationRepo { return &ApplicationRepo{DB: db} }

const applicationColumns = `id, candidate_id, assessment_id, current_stage, status, stage_scores, resume_text, resume_snapshot, created_at, updated_at`

func scanApplication(row pgx.Row) (domain.Application, error) {
	var (
		a      domain.Application
		status string
		scores []byte
	)
	if err := row.Scan(&a.ID, &a.CandidateID, &a.AssessmentID, &a.CurrentStage, &status, &scores,
		&a.ResumeText, &a.ResumeSnapshot, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return domain.Application{}, err
	}
	a.Status = domain.ApplicationStatus(status)
	if len(scores) > 0 {
		if err := json.Unmarshal(scores, &a.StageScores); err != nil {
			return domain.Application{}, fmt.Errorf("decode stage_scores: %w", err)
		}
	}
	return a, nil
}

// Create inserts an application. A second application for the same
// assessment, or a second incomplete one, yields ErrConflict.
func (r *ApplicationRepo) Create(ctx domain.Context, a domain.Application) (string, error) {
	ctx, span := startSpan(ctx, "applications", "Create", "INSERT")
	defer span.End()
	a.ID = newID(a.ID)
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	scores, err := json.Marshal(a.StageScores)
	if err != nil {
		return "", fmt.Errorf("op=application.create: %w", err)
	}
	q := `INSERT INTO applications (` + applicationColumns + `) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	_, err = r.DB.Exec(ctx, q, a.ID, a.CandidateID, a.AssessmentID, a.CurrentStage, string(a.Status), scores,
		a.ResumeText, a.ResumeSnapshot, a.CreatedAt, now)
	if err != nil {
		return "", fmt.Errorf("op=application.create: %w", mapErr(err))
	}
	return a.ID, nil
}

// Get loads an application by id.
func (r *ApplicationRepo) Get(ctx domain.Context, id string) (domain.Application, error) {
	ctx, span := startSpan(ctx, "applications", "Get", "SELECT")
	defer span.End()
	a, err := scanApplication(r.DB.QueryRow(ctx, `SELECT `+applicationColumns+` FROM applications WHERE id=$1`, id))
	if err != nil {
		return domain.Application{}, fmt.Errorf("op=application.get: %w", notFound(err, domain.ErrApplicationNotFound))
	}
	return a, nil
}

// ListByCandidate returns the candidate's applications oldest first.
func (r *ApplicationRepo) ListByCandidate(ctx domain.Context, candidateID string) ([]domain.Application, error) {
	ctx, span := startSpan(ctx, "applications", "ListByCandidate", "SELECT")
	defer span.End()
	q := `SELECT ` + applicationColumns + ` FROM applications WHERE candidate_id=$1 ORDER BY created_at, seq`
	out, err := r.list(ctx, q, candidateID)
	if err != nil {
		return nil, fmt.Errorf("op=application.list_by_candidate: %w", err)
	}
	return out, nil
}

// List returns every application oldest first.
func (r *ApplicationRepo) List(ctx domain.Context) ([]domain.Application, error) {
	ctx, span := startSpan(ctx, "applications", "List", "SELECT")
	defer span.End()
	out, err := r.list(ctx, `SELECT `+applicationColumns+` FROM applications ORDER BY created_at, seq`)
	if err != nil {
		return nil, fmt.Errorf("op=application.list: %w", err)
	}
	return out, nil
}

func (r *ApplicationRepo) list(ctx domain.Context, q string, args ...any) ([]domain.Application, error) {
	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var out []domain.Application
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Update writes stage, status, records and resume fields.
func (r *ApplicationRepo) Update(ctx domain.Context, a domain.Application) error {
	ctx, span := startSpan(ctx, "applications", "Update", "UPDATE")
	defer span.End()
	scores, err := json.Marshal(a.StageScores)
	if err != nil {
		return fmt.Errorf("op=application.update: %w", err)
	}
	q := `UPDATE applications SET current_stage=$2, status=$3, stage_scores=$4, resume_text=$5, resume_snapshot=$6, updated_at=$7 WHERE id=$1`
	tag, err := r.DB.Exec(ctx, q, a.ID, a.CurrentStage, string(a.Status), scores, a.ResumeText, a.ResumeSnapshot, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("op=application.update: %w", mapErr(err))
	}
	if err := affected(tag, domain.ErrApplicationNotFound); err != nil {
		return fmt.Errorf("op=application.update: %w", err)
	}
	return nil
}

// Delete removes an application; its submissions cascade.
func (r *ApplicationRepo) Delete(ctx domain.Context, id string) error {
	ctx, span := startSpan(ctx, "applications", "Delete", "DELETE")
	defer span.End()
	tag, err := r.DB.Exec(ctx, `DELETE FROM applications WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("op=application.delete: %w", mapErr(err))
	}
	if err := affected(tag, domain.ErrApplicationNotFound); err != nil {
		return fmt.Errorf("op=application.delete: %w", err)
	}
	return nil
}
