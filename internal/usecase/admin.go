package usecase

import (
	"time"

	"github.com/fairyhunter13/softrate-ats/internal/domain"
)

// CandidateRow is one line of the admin candidate overview: a candidate with
// one of their applications, or with none.
type CandidateRow struct {
	CandidateID   string
	Name          string
	Email         string
	University    string
	ApplicationID string
	AssessmentID  string
	RoleTitle     string
	Stage         int
	Status        string
	ResumeScore   *int
	FinalScore    *int
	Disqualified  string
	AppliedAt     time.Time
}

// Summary aggregates candidate rows by status.
type Summary struct {
	Candidates   int
	Applications int
	ByStatus     map[string]int
}

// AdminService backs the admin candidate views.
type AdminService struct {
	Store domain.Store
}

// NewAdminService constructs an AdminService.
func NewAdminService(store domain.Store) AdminService { return AdminService{Store: store} }

// CandidateRows lists every candidate joined with their applications.
func (s AdminService) CandidateRows(ctx domain.Context) ([]CandidateRow, error) {
	var rows []CandidateRow
	err := s.Store.WithinTx(ctx, func(ctx domain.Context, tx domain.Tx) error {
		cands, err := tx.Candidates().List(ctx)
		if err != nil {
			return err
		}
		asms, err := tx.Assessments().List(ctx)
		if err != nil {
			return err
		}
		titles := make(map[string]string, len(asms))
		for _, a := range asms {
			titles[a.ID] = a.RoleTitle
		}
		rows = rows[:0]
		for _, c := range cands {
			apps, err := tx.Applications().ListByCandidate(ctx, c.ID)
			if err != nil {
				return err
			}
			base := CandidateRow{CandidateID: c.ID, Name: c.Name, Email: c.Email, University: c.University}
			if len(apps) == 0 {
				base.Status = NotStarted
				rows = append(rows, base)
				continue
			}
			for _, a := range apps {
				r := base
				r.ApplicationID = a.ID
				r.AssessmentID = a.AssessmentID
				r.RoleTitle = titles[a.AssessmentID]
				r.Stage = a.CurrentStage
				r.Status = string(a.Status)
				r.AppliedAt = a.CreatedAt
				r.Disqualified = a.StageScores.DisqualificationReason
				if a.StageScores.Resume != nil {
					v := a.StageScores.Resume.Score
					r.ResumeScore = &v
				}
				if a.StageScores.Final != nil {
					v := a.StageScores.Final.FinalScore
					r.FinalScore = &v
				}
				rows = append(rows, r)
			}
		}
		return nil
	})
	return rows, err
}

// Summarize counts candidates and applications per status.
func Summarize(rows []CandidateRow) Summary {
	s := Summary{ByStatus: map[string]int{}}
	seen := map[string]bool{}
	for _, r := range rows {
		if !seen[r.CandidateID] {
			seen[r.CandidateID] = true
			s.Candidates++
		}
		if r.ApplicationID != "" {
			s.Applications++
			s.ByStatus[r.Status]++
		}
	}
	return s
}

// DeleteCandidate removes a candidate with their applications and submissions.
func (s AdminService) DeleteCandidate(ctx domain.Context, id string) error {
	return s.Store.WithinTx(ctx, func(ctx domain.Context, tx domain.Tx) error {
		return tx.Candidates().Delete(ctx, id)
	})
}
