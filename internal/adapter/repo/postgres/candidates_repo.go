package postgres

import (
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/fairyhunter13/softrate-ats/internal/domain"
)

// CandidateRepo persists candidate accounts.
type CandidateRepo struct{ DB DBTX }

// NewCandidateRepo constructs a CandidateRepo.
func NewCandidateRepo(db DBTX) *CandidateRepo { return &CandidateRepo{DB: db} }

const candidateColumns = `id, name, email, university, password_hash, created_at`

func scanCandidate(row pgx.Row) (domain.Candidate, error) {
	var c domain.Candidate
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.University, &c.PasswordHash, &c.CreatedAt)
	return c, err
}

// Create inserts a candidate. A taken email yields ErrConflict.
func (r *CandidateRepo) Create(ctx domain.Context, c domain.Candidate) (string, error) {
	ctx, span := startSpan(ctx, "candidates", "Create", "INSERT")
	defer span.End()
	c.ID = newID(c.ID)
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	q := `INSERT INTO candidates (` + candidateColumns + `) VALUES ($1,$2,$3,$4,$5,$6)`
	if _, err := r.DB.Exec(ctx, q, c.ID, c.Name, c.Email, c.University, c.PasswordHash, c.CreatedAt); err != nil {
		return "", fmt.Errorf("op=candidate.create: %w", mapErr(err))
	}
	return c.ID, nil
}

// Get loads a candidate by id.
func (r *CandidateRepo) Get(ctx domain.Context, id string) (domain.Candidate, error) {
	ctx, span := startSpan(ctx, "candidates", "Get", "SELECT")
	defer span.End()
	c, err := scanCandidate(r.DB.QueryRow(ctx, `SELECT `+candidateColumns+` FROM candidates WHERE id=$1`, id))
	if err != nil {
		return domain.Candidate{}, fmt.Errorf("op=candidate.get: %w", notFound(err, domain.ErrCandidateNotFound))
	}
	return c, nil
}

// GetByEmail loads a candidate by case-insensitive email.
func (r *CandidateRepo) GetByEmail(ctx domain.Context, email string) (domain.Candidate, error) {
	ctx, span := startSpan(ctx, "candidates", "GetByEmail", "SELECT")
	defer span.End()
	email = strings.ToLower(strings.TrimSpace(email))
	c, err := scanCandidate(r.DB.QueryRow(ctx, `SELECT `+candidateColumns+` FROM candidates WHERE email=$1`, email))
	if err != nil {
		return domain.Candidate{}, fmt.Errorf("op=candidate.get_by_email: %w", notFound(err, domain.ErrCandidateNotFound))
	}
	return c, nil
}

// List returns every candidate in signup order.
func (r *CandidateRepo) List(ctx domain.Context) ([]domain.Candidate, error) {
	ctx, span := startSpan(ctx, "candidates", "List", "SELECT")
	defer span.End()
	rows, err := r.DB.Query(ctx, `SELECT `+candidateColumns+` FROM candidates ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("op=candidate.list: %w", mapErr(err))
	}
	defer rows.Close()
	var out []domain.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("op=candidate.list: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=candidate.list: %w", err)
	}
	return out, nil
}

// Update writes the profile fields and password hash.
func (r *CandidateRepo) Update(ctx domain.Context, c domain.Candidate) error {
	ctx, span := startSpan(ctx, "candidates", "Update", "UPDATE")
	defer span.End()
	tag, err := r.DB.Exec(ctx, `UPDATE candidates SET name=$2, university=$3, password_hash=$4 WHERE id=$1`,
		c.ID, c.Name, c.University, c.PasswordHash)
	if err != nil {
		return fmt.Errorf("op=candidate.update: %w", mapErr(err))
	}
	if err := affected(tag, domain.ErrCandidateNotFound); err != nil {
		return fmt.Errorf("op=candidate.update: %w", err)
	}
	return nil
}

// Delete removes the candidate; applications and submissions cascade.
func (r *CandidateRepo) Delete(ctx domain.Context, id string) error {
	ctx, span := startSpan(ctx, "candidates", "Delete", "DELETE")
	defer span.End()
	tag, err := r.DB.Exec(ctx, `DELETE FROM candidates WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("op=candidate.delete: %w", mapErr(err))
	}
	if err := affected(tag, domain.ErrCandidateNotFound); err != nil {
		return fmt.Errorf("op=candidate.delete: %w", err)
	}
	return nil
}

// LockForUpdate takes the candidate row lock for the rest of the transaction.
func (r *CandidateRepo) LockForUpdate(ctx domain.Context, id string) error {
	ctx, span := startSpan(ctx, "candidates", "LockForUpdate", "SELECT")
	defer span.End()
	var got string
	if err := r.DB.QueryRow(ctx, `SELECT id FROM candidates WHERE id=$1 FOR UPDATE`, id).Scan(&got); err != nil {
		return fmt.Errorf("op=candidate.lock: %w", notFound(err, domain.ErrCandidateNotFound))
	}
	return nil
}
