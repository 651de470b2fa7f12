package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/fairyhunter13/softrate-ats/internal/domain"
)

// AssessmentRepo persists job postings with their questions as JSONB.
type AssessmentRepo struct{ DB DBTX }

// NewAssessmentRepo constructs an AssessmentRepo.
func NewAssessmentRepo(db DBTX) *AssessmentRepo { return &AssessmentRepo{DB: db} }

const assessmentColumns = `id, role_title, jd_text, suggested_skills, questions, created_at`

func scanAssessment(row pgx.Row) (domain.Assessment, error) {
	var (
		a                 domain.Assessment
		skills, questions []byte
	)
	if err := row.Scan(&a.ID, &a.RoleTitle, &a.JDText, &skills, &questions, &a.CreatedAt); err != nil {
		return domain.Assessment{}, err
	}
	if err := json.Unmarshal(skills, &a.SuggestedSkills); err != nil {
		return domain.Assessment{}, fmt.Errorf("decode suggested_skills: %w", err)
	}
	if err := json.Unmarshal(questions, &a.Questions); err != nil {
		return domain.Assessment{}, fmt.Errorf("decode questions: %w", err)
	}
	return a, nil
}

func encodeAssessment(a domain.Assessment) (skills, questions []byte, err error) {
	if a.SuggestedSkills == nil {
		a.SuggestedSkills = []string{}
	}
	if a.Questions == nil {
		a.Questions = []domain.Question{}
	}
	if skills, err = json.Marshal(a.SuggestedSkills); err != nil {
		return nil, nil, err
	}
	questions, err = json.Marshal(a.Questions)
	return skills, questions, err
}

// Create inserts an assessment and returns its id.
func (r *AssessmentRepo) Create(ctx domain.Context, a domain.Assessment) (string, error) {
	ctx, span := startSpan(ctx, "assessments", "Create", "INSERT")
	defer span.End()
	a.ID = newID(a.ID)
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	skills, questions, err := encodeAssessment(a)
	if err != nil {
		return "", fmt.Errorf("op=assessment.create: %w", err)
	}
	q := `INSERT INTO assessments (` + assessmentColumns + `) VALUES ($1,$2,$3,$4,$5,$6)`
	if _, err := r.DB.Exec(ctx, q, a.ID, a.RoleTitle, a.JDText, skills, questions, a.CreatedAt); err != nil {
		return "", fmt.Errorf("op=assessment.create: %w", mapErr(err))
	}
	return a.ID, nil
}

// Get loads an assessment by id.
func (r *AssessmentRepo) Get(ctx domain.Context, id string) (domain.Assessment, error) {
	ctx, span := startSpan(ctx, "assessments", "Get", "SELECT")
	defer span.End()
	a, err := scanAssessment(r.DB.QueryRow(ctx, `SELECT `+assessmentColumns+` FROM assessments WHERE id=$1`, id))
	if err != nil {
		return domain.Assessment{}, fmt.Errorf("op=assessment.get: %w", notFound(err, domain.ErrAssessmentNotFound))
	}
	return a, nil
}

// GetByTitle loads the oldest assessment with the given role title.
func (r *AssessmentRepo) GetByTitle(ctx domain.Context, title string) (domain.Assessment, error) {
	ctx, span := startSpan(ctx, "assessments", "GetByTitle", "SELECT")
	defer span.End()
	q := `SELECT ` + assessmentColumns + ` FROM assessments WHERE role_title=$1 ORDER BY seq LIMIT 1`
	a, err := scanAssessment(r.DB.QueryRow(ctx, q, title))
	if err != nil {
		return domain.Assessment{}, fmt.Errorf("op=assessment.get_by_title: %w", notFound(err, domain.ErrAssessmentNotFound))
	}
	return a, nil
}

// List returns every assessment in creation order.
func (r *AssessmentRepo) List(ctx domain.Context) ([]domain.Assessment, error) {
	ctx, span := startSpan(ctx, "assessments", "List", "SELECT")
	defer span.End()
	rows, err := r.DB.Query(ctx, `SELECT `+assessmentColumns+` FROM assessments ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("op=assessment.list: %w", mapErr(err))
	}
	defer rows.Close()
	var out []domain.Assessment
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, fmt.Errorf("op=assessment.list: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=assessment.list: %w", err)
	}
	return out, nil
}

// Update replaces the editable fields.
func (r *AssessmentRepo) Update(ctx domain.Context, a domain.Assessment) error {
	ctx, span := startSpan(ctx, "assessments", "Update", "UPDATE")
	defer span.End()
	skills, questions, err := encodeAssessment(a)
	if err != nil {
		return fmt.Errorf("op=assessment.update: %w", err)
	}
	tag, err := r.DB.Exec(ctx, `UPDATE assessments SET role_title=$2, jd_text=$3, suggested_skills=$4, questions=$5 WHERE id=$1`,
		a.ID, a.RoleTitle, a.JDText, skills, questions)
	if err != nil {
		return fmt.Errorf("op=assessment.update: %w", mapErr(err))
	}
	if err := affected(tag, domain.ErrAssessmentNotFound); err != nil {
		return fmt.Errorf("op=assessment.update: %w", err)
	}
	return nil
}

// Delete removes an assessment; its applications cascade.
func (r *AssessmentRepo) Delete(ctx domain.Context, id string) error {
	ctx, span := startSpan(ctx, "assessments", "Delete", "DELETE")
	defer span.End()
	tag, err := r.DB.Exec(ctx, `DELETE FROM assessments WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("op=assessment.delete: %w", mapErr(err))
	}
	if err := affected(tag, domain.ErrAssessmentNotFound); err != nil {
		return fmt.Errorf("op=assessment.delete: %w", err)
	}
	return nil
}
