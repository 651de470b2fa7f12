package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fairyhunter13/softrate-ats/internal/domain"
)

// SubmissionRepo stores the append-only stage submission log.
type SubmissionRepo struct{ DB DBTX }

// NewSubmissionRepo constructs a SubmissionRepo.
func NewSubmissionRepo(db DBTX) *SubmissionRepo { return &SubmissionRepo{DB: db} }

// Create appends a submission. An unknown application yields ErrNotFound.
func (r *SubmissionRepo) Create(ctx domain.Context, s domain.Submission) (string, error) {
	ctx, span := startSpan(ctx, "submissions", "Create", "INSERT")
	defer span.End()
	s.ID = newID(s.ID)
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	if s.Answers == nil {
		s.Answers = []string{}
	}
	answers, err := json.Marshal(s.Answers)
	if err != nil {
		return "", fmt.Errorf("op=submission.create: %w", err)
	}
	q := `INSERT INTO submissions (id, application_id, stage, answers, score, feedback, created_at) VALUES ($1,$2,$3,$4,$5,$6,$7)`
	if _, err := r.DB.Exec(ctx, q, s.ID, s.ApplicationID, s.Stage, answers, s.Score, s.Feedback, s.CreatedAt); err != nil {
		return "", fmt.Errorf("op=submission.create: %w", mapErr(err))
	}
	return s.ID, nil
}

// ListByApplication returns an application's submissions in insert order.
func (r *SubmissionRepo) ListByApplication(ctx domain.Context, applicationID string) ([]domain.Submission, error) {
	ctx, span := startSpan(ctx, "submissions", "ListByApplication", "SELECT")
	defer span.End()
	q := `SELECT id, application_id, stage, answers, score, feedback, created_at FROM submissions WHERE application_id=$1 ORDER BY seq`
	rows, err := r.DB.Query(ctx, q, applicationID)
	if err != nil {
		return nil, fmt.Errorf("op=submission.list: %w", mapErr(err))
	}
	defer rows.Close()
	var out []domain.Submission
	for rows.Next() {
		var (
			s       domain.Submission
			answers []byte
		)
		if err := rows.Scan(&s.ID, &s.ApplicationID, &s.Stage, &answers, &s.Score, &s.Feedback, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("op=submission.list: %w", err)
		}
		if err := json.Unmarshal(answers, &s.Answers); err != nil {
			return nil, fmt.Errorf("op=submission.list: decode answers: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=submission.list: %w", err)
	}
	return out, nil
}
