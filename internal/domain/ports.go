package domain

// Repositories (ports)

type CandidateRepository interface {
	Create(ctx Context, c Candidate) (string, error)
	Get(ctx Context, id string) (Candidate, error)
	GetByEmail(ctx Context, email string) (Candidate, error)
	List(ctx Context) ([]Candidate, error)
	Update(ctx Context, c Candidate) error
	// Delete removes the candidate with its applications and submissions.
	Delete(ctx Context, id string) error
	// LockForUpdate holds a row lock on the candidate until the transaction ends.
	LockForUpdate(ctx Context, id string) error
}

type AssessmentRepository interface {
	Create(ctx Context, a Assessment) (string, error)
	Get(ctx Context, id string) (Assessment, error)
	GetByTitle(ctx Context, title string) (Assessment, error)
	List(ctx Context) ([]Assessment, error)
	Update(ctx Context, a Assessment) error
	Delete(ctx Context, id string) error
}

type ApplicationRepository interface {
	Create(ctx Context, a Application) (string, error)
	Get(ctx Context, id string) (Application, error)
	// ListByCandidate returns the candidate's applications oldest first.
	ListByCandidate(ctx Context, candidateID string) ([]Application, error)
	List(ctx Context) ([]Application, error)
	Update(ctx Context, a Application) error
	Delete(ctx Context, id string) error
}

type SubmissionRepository interface {
	Create(ctx Context, s Submission) (string, error)
	ListByApplication(ctx Context, applicationID string) ([]Submission, error)
}

// Tx exposes repositories bound to one transaction.
type Tx interface {
	Candidates() CandidateRepository
	Assessments() AssessmentRepository
	Applications() ApplicationRepository
	Submissions() SubmissionRepository
}

// Store runs fn inside a transaction. fn's writes commit together when it
// returns nil and are discarded otherwise.
type Store interface {
	WithinTx(ctx Context, fn func(ctx Context, tx Tx) error) error
}

// Locker provides per-key mutual exclusion across requests.
type Locker interface {
	// Lock blocks until key is held or ctx is done. The returned func releases it.
	Lock(ctx Context, key string) (func(), error)
}

// Oracle scores free-text answers against question specs.
type Oracle interface {
	Evaluate(ctx Context, questions []Question, answers []string) (Evaluation, error)
}

// Screener decides whether a resume is shortlisted.
type Screener interface {
	Screen(ctx Context, resumeText string) (ScreenResult, error)
}

// GeneratedAssessment is a question set proposed for a job description.
type GeneratedAssessment struct {
	SuggestedSkills []string   `json:"suggested_skills"`
	Questions       []Question `json:"questions"`
}

// QuestionGenerator drafts questions from free text.
type QuestionGenerator interface {
	FromJobDescription(ctx Context, roleTitle, jdText string) (GeneratedAssessment, error)
	FromResume(ctx Context, resumeText string) ([]Question, error)
}

// TextExtractor turns an uploaded document into plain text.
type TextExtractor interface {
	// Extract fails with ErrUnsupportedFormat for documents it cannot read.
	Extract(ctx Context, fileName string, data []byte) (string, error)
}

// EventPublisher emits committed application transitions.
type EventPublisher interface {
	Publish(ctx Context, ev ApplicationEvent) error
}

// PasswordHasher creates and checks opaque password verifiers.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, verifier string) bool
}
