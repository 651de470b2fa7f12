package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fairyhunter13/softrate-ats/internal/domain"
)

// DBTX is the query surface shared by a pool and a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PgxPool is a minimal subset of pgxpool used by the store for easy testing.
type PgxPool interface {
	DBTX
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// Store runs repository work inside PostgreSQL transactions.
type Store struct{ Pool PgxPool }

// NewStore constructs a Store with the given pool.
func NewStore(p PgxPool) *Store { return &Store{Pool: p} }

// WithinTx begins a read-committed transaction, hands fn repositories bound
// to it and commits when fn returns nil.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx domain.Context, tx domain.Tx) error) error {
	ctx, span := otel.Tracer("repo.store").Start(ctx, "store.WithinTx")
	defer span.End()
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("op=store.begin: %w", mapErr(err))
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()
	if err := fn(ctx, txRepos{db: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("op=store.commit: %w", mapErr(err))
	}
	return nil
}

type txRepos struct{ db DBTX }

func (t txRepos) Candidates() domain.CandidateRepository     { return NewCandidateRepo(t.db) }
func (t txRepos) Assessments() domain.AssessmentRepository   { return NewAssessmentRepo(t.db) }
func (t txRepos) Applications() domain.ApplicationRepository { return NewApplicationRepo(t.db) }
func (t txRepos) Submissions() domain.SubmissionRepository   { return NewSubmissionRepo(t.db) }

// pgUniqueViolation and pgForeignKeyViolation are PostgreSQL SQLSTATE codes.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// mapErr translates driver errors into domain sentinels.
func mapErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s", domain.ErrConflict, pgErr.ConstraintName)
		case pgForeignKeyViolation:
			return fmt.Errorf("%w: %s", domain.ErrNotFound, pgErr.ConstraintName)
		case pgCheckViolation:
			return fmt.Errorf("%w: %s", domain.ErrInvalidArgument, pgErr.ConstraintName)
		}
	}
	return err
}

// notFound maps pgx.ErrNoRows onto the given typed sentinel.
func notFound(err, sentinel error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return sentinel
	}
	return mapErr(err)
}

func newID(id string) string {
	if id == "" {
		return uuid.New().String()
	}
	return id
}

func startSpan(ctx context.Context, table, name, op string) (context.Context, trace.Span) {
	ctx, span := otel.Tracer("repo."+table).Start(ctx, table+"."+name)
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", op),
		attribute.String("db.sql.table", table),
	)
	return ctx, span
}

// affected turns a zero-row update or delete into the typed not-found error.
func affected(tag pgconn.CommandTag, sentinel error) error {
	if tag.RowsAffected() == 0 {
		return sentinel
	}
	return nil
}
