// Package memory provides an in-process record store. Transactions are
// serialized and applied atomically; it backs local development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fairyhunter13/softrate-ats/internal/domain"
)

// Store is a domain.Store holding every record in memory.
type Store struct {
	mu    sync.Mutex
	state *state
	seq   int64
	// Now is the clock used for timestamps.
	Now func() time.Time
}

type state struct {
	candidates   map[string]domain.Candidate
	assessments  map[string]domain.Assessment
	applications map[string]domain.Application
	submissions  map[string]domain.Submission
	order        map[string]int64
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		state: &state{
			candidates:   map[string]domain.Candidate{},
			assessments:  map[string]domain.Assessment{},
			applications: map[string]domain.Application{},
			submissions:  map[string]domain.Submission{},
			order:        map[string]int64{},
		},
		Now: func() time.Time { return time.Now().UTC() },
	}
}

// WithinTx runs fn against a private copy of the data and publishes the copy
// only if fn succeeds. Calls are serialized, so fn must not call WithinTx.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx domain.Context, tx domain.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("op=memory.tx: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &tx{st: s.state.clone(), store: s}
	if err := fn(ctx, t); err != nil {
		return err
	}
	s.state = t.st
	return nil
}

func (st *state) clone() *state {
	out := &state{
		candidates:   make(map[string]domain.Candidate, len(st.candidates)),
		assessments:  make(map[string]domain.Assessment, len(st.assessments)),
		applications: make(map[string]domain.Application, len(st.applications)),
		submissions:  make(map[string]domain.Submission, len(st.submissions)),
		order:        make(map[string]int64, len(st.order)),
	}
	for k, v := range st.candidates {
		out.candidates[k] = v
	}
	for k, v := range st.assessments {
		out.assessments[k] = v
	}
	for k, v := range st.applications {
		out.applications[k] = v
	}
	for k, v := range st.submissions {
		out.submissions[k] = v
	}
	for k, v := range st.order {
		out.order[k] = v
	}
	return out
}

type tx struct {
	st    *state
	store *Store
}

func (t *tx) Candidates() domain.CandidateRepository     { return candidateRepo{t} }
func (t *tx) Assessments() domain.AssessmentRepository   { return assessmentRepo{t} }
func (t *tx) Applications() domain.ApplicationRepository { return applicationRepo{t} }
func (t *tx) Submissions() domain.SubmissionRepository   { return submissionRepo{t} }

func (t *tx) nextID(id string) string {
	if id == "" {
		id = uuid.New().String()
	}
	t.store.seq++
	t.st.order[id] = t.store.seq
	return id
}

type candidateRepo struct{ t *tx }

func (r candidateRepo) Create(_ context.Context, c domain.Candidate) (string, error) {
	email := strings.ToLower(strings.TrimSpace(c.Email))
	for _, existing := range r.t.st.candidates {
		if existing.Email == email {
			return "", fmt.Errorf("op=candidate.create: %w: email already registered", domain.ErrConflict)
		}
	}
	c.ID = r.t.nextID(c.ID)
	c.Email = email
	if c.CreatedAt.IsZero() {
		c.CreatedAt = r.t.store.Now()
	}
	r.t.st.candidates[c.ID] = c
	return c.ID, nil
}

func (r candidateRepo) Get(_ context.Context, id string) (domain.Candidate, error) {
	c, ok := r.t.st.candidates[id]
	if !ok {
		return domain.Candidate{}, fmt.Errorf("op=candidate.get: %w", domain.ErrCandidateNotFound)
	}
	return c, nil
}

func (r candidateRepo) GetByEmail(_ context.Context, email string) (domain.Candidate, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, c := range r.t.st.candidates {
		if c.Email == email {
			return c, nil
		}
	}
	return domain.Candidate{}, fmt.Errorf("op=candidate.get_by_email: %w", domain.ErrCandidateNotFound)
}

func (r candidateRepo) List(_ context.Context) ([]domain.Candidate, error) {
	out := make([]domain.Candidate, 0, len(r.t.st.candidates))
	for _, c := range r.t.st.candidates {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return r.t.st.order[out[i].ID] < r.t.st.order[out[j].ID] })
	return out, nil
}

func (r candidateRepo) Update(_ context.Context, c domain.Candidate) error {
	if _, ok := r.t.st.candidates[c.ID]; !ok {
		return fmt.Errorf("op=candidate.update: %w", domain.ErrCandidateNotFound)
	}
	r.t.st.candidates[c.ID] = c
	return nil
}

func (r candidateRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.t.st.candidates[id]; !ok {
		return fmt.Errorf("op=candidate.delete: %w", domain.ErrCandidateNotFound)
	}
	delete(r.t.st.candidates, id)
	for appID, a := range r.t.st.applications {
		if a.CandidateID == id {
			r.t.deleteApplication(appID)
		}
	}
	return nil
}

// LockForUpdate is a no-op: transactions are already serialized.
func (r candidateRepo) LockForUpdate(_ context.Context, id string) error {
	if _, ok := r.t.st.candidates[id]; !ok {
		return fmt.Errorf("op=candidate.lock: %w", domain.ErrCandidateNotFound)
	}
	return nil
}

func (t *tx) deleteApplication(id string) {
	delete(t.st.applications, id)
	for subID, s := range t.st.submissions {
		if s.ApplicationID == id {
			delete(t.st.submissions, subID)
		}
	}
}

type assessmentRepo struct{ t *tx }

func (r assessmentRepo) Create(_ context.Context, a domain.Assessment) (string, error) {
	a.ID = r.t.nextID(a.ID)
	if a.CreatedAt.IsZero() {
		a.CreatedAt = r.t.store.Now()
	}
	r.t.st.assessments[a.ID] = cloneAssessment(a)
	return a.ID, nil
}

func (r assessmentRepo) Get(_ context.Context, id string) (domain.Assessment, error) {
	a, ok := r.t.st.assessments[id]
	if !ok {
		return domain.Assessment{}, fmt.Errorf("op=assessment.get: %w", domain.ErrAssessmentNotFound)
	}
	return cloneAssessment(a), nil
}

func (r assessmentRepo) GetByTitle(_ context.Context, title string) (domain.Assessment, error) {
	for _, a := range r.t.st.assessments {
		if strings.EqualFold(a.RoleTitle, title) {
			return cloneAssessment(a), nil
		}
	}
	return domain.Assessment{}, fmt.Errorf("op=assessment.get_by_title: %w", domain.ErrAssessmentNotFound)
}

func (r assessmentRepo) List(_ context.Context) ([]domain.Assessment, error) {
	out := make([]domain.Assessment, 0, len(r.t.st.assessments))
	for _, a := range r.t.st.assessments {
		out = append(out, cloneAssessment(a))
	}
	sort.Slice(out, func(i, j int) bool { return r.t.st.order[out[i].ID] < r.t.st.order[out[j].ID] })
	return out, nil
}

func (r assessmentRepo) Update(_ context.Context, a domain.Assessment) error {
	if _, ok := r.t.st.assessments[a.ID]; !ok {
		return fmt.Errorf("op=assessment.update: %w", domain.ErrAssessmentNotFound)
	}
	r.t.st.assessments[a.ID] = cloneAssessment(a)
	return nil
}

func (r assessmentRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.t.st.assessments[id]; !ok {
		return fmt.Errorf("op=assessment.delete: %w", domain.ErrAssessmentNotFound)
	}
	delete(r.t.st.assessments, id)
	for appID, a := range r.t.st.applications {
		if a.AssessmentID == id {
			r.t.deleteApplication(appID)
		}
	}
	return nil
}

type applicationRepo struct{ t *tx }

func (r applicationRepo) Create(_ context.Context, a domain.Application) (string, error) {
	if _, ok := r.t.st.candidates[a.CandidateID]; !ok {
		return "", fmt.Errorf("op=application.create: %w", domain.ErrCandidateNotFound)
	}
	if _, ok := r.t.st.assessments[a.AssessmentID]; !ok {
		return "", fmt.Errorf("op=application.create: %w", domain.ErrAssessmentNotFound)
	}
	for _, existing := range r.t.st.applications {
		if existing.CandidateID != a.CandidateID {
			continue
		}
		if existing.AssessmentID == a.AssessmentID {
			return "", fmt.Errorf("op=application.create: %w: application exists for assessment", domain.ErrConflict)
		}
		if existing.Status == domain.StatusIncomplete && a.Status == domain.StatusIncomplete {
			return "", fmt.Errorf("op=application.create: %w: candidate has an incomplete application", domain.ErrConflict)
		}
	}
	a.ID = r.t.nextID(a.ID)
	now := r.t.store.Now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	r.t.st.applications[a.ID] = cloneApplication(a)
	return a.ID, nil
}

func (r applicationRepo) Get(_ context.Context, id string) (domain.Application, error) {
	a, ok := r.t.st.applications[id]
	if !ok {
		return domain.Application{}, fmt.Errorf("op=application.get: %w", domain.ErrApplicationNotFound)
	}
	return cloneApplication(a), nil
}

func (r applicationRepo) ListByCandidate(_ context.Context, candidateID string) ([]domain.Application, error) {
	var out []domain.Application
	for _, a := range r.t.st.applications {
		if a.CandidateID == candidateID {
			out = append(out, cloneApplication(a))
		}
	}
	r.sort(out)
	return out, nil
}

func (r applicationRepo) List(_ context.Context) ([]domain.Application, error) {
	out := make([]domain.Application, 0, len(r.t.st.applications))
	for _, a := range r.t.st.applications {
		out = append(out, cloneApplication(a))
	}
	r.sort(out)
	return out, nil
}

func (r applicationRepo) sort(apps []domain.Application) {
	sort.Slice(apps, func(i, j int) bool {
		if !apps[i].CreatedAt.Equal(apps[j].CreatedAt) {
			return apps[i].CreatedAt.Before(apps[j].CreatedAt)
		}
		return r.t.st.order[apps[i].ID] < r.t.st.order[apps[j].ID]
	})
}

func (r applicationRepo) Update(_ context.Context, a domain.Application) error {
	if _, ok := r.t.st.applications[a.ID]; !ok {
		return fmt.Errorf("op=application.update: %w", domain.ErrApplicationNotFound)
	}
	if a.Status == domain.StatusIncomplete {
		for id, other := range r.t.st.applications {
			if id != a.ID && other.CandidateID == a.CandidateID && other.Status == domain.StatusIncomplete {
				return fmt.Errorf("op=application.update: %w: candidate has an incomplete application", domain.ErrConflict)
			}
		}
	}
	a.UpdatedAt = r.t.store.Now()
	r.t.st.applications[a.ID] = cloneApplication(a)
	return nil
}

func (r applicationRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.t.st.applications[id]; !ok {
		return fmt.Errorf("op=application.delete: %w", domain.ErrApplicationNotFound)
	}
	r.t.deleteApplication(id)
	return nil
}

type submissionRepo struct{ t *tx }

func (r submissionRepo) Create(_ context.Context, s domain.Submission) (string, error) {
	if _, ok := r.t.st.applications[s.ApplicationID]; !ok {
		return "", fmt.Errorf("op=submission.create: %w", domain.ErrApplicationNotFound)
	}
	s.ID = r.t.nextID(s.ID)
	if s.CreatedAt.IsZero() {
		s.CreatedAt = r.t.store.Now()
	}
	s.Answers = append([]string(nil), s.Answers...)
	r.t.st.submissions[s.ID] = s
	return s.ID, nil
}

func (r submissionRepo) ListByApplication(_ context.Context, applicationID string) ([]domain.Submission, error) {
	var out []domain.Submission
	for _, s := range r.t.st.submissions {
		if s.ApplicationID == applicationID {
			s.Answers = append([]string(nil), s.Answers...)
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return r.t.st.order[out[i].ID] < r.t.st.order[out[j].ID] })
	return out, nil
}
