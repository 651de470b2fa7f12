package usecase

import (
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/fairyhunter13/softrate-ats/internal/domain"
	"github.com/fairyhunter13/softrate-ats/internal/observability"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// AccountService manages candidate accounts.
type AccountService struct {
	Store  domain.Store
	Hasher domain.PasswordHasher
}

// NewAccountService constructs an AccountService.
func NewAccountService(store domain.Store, hasher domain.PasswordHasher) AccountService {
	return AccountService{Store: store, Hasher: hasher}
}

// SignupInput carries a new candidate's details.
type SignupInput struct {
	Name       string
	Email      string
	Password   string
	University string
}

// Signup registers a candidate. A taken email yields ErrConflict.
func (s AccountService) Signup(ctx domain.Context, in SignupInput) (domain.Candidate, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return domain.Candidate{}, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Candidate{}, fmt.Errorf("%w: name required", domain.ErrInvalidArgument)
	}
	if len(in.Password) < MinPasswordLength {
		return domain.Candidate{}, fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidArgument, MinPasswordLength)
	}
	verifier, err := s.Hasher.Hash(in.Password)
	if err != nil {
		return domain.Candidate{}, fmt.Errorf("op=account.signup: %w", err)
	}
	c := domain.Candidate{
		Name:         name,
		Email:        email,
		University:   strings.TrimSpace(in.University),
		PasswordHash: verifier,
		CreatedAt:    time.Now().UTC(),
	}
	err = s.Store.WithinTx(ctx, func(ctx domain.Context, tx domain.Tx) error {
		if _, err := tx.Candidates().GetByEmail(ctx, email); err == nil {
			return fmt.Errorf("%w: email already registered", domain.ErrConflict)
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		id, err := tx.Candidates().Create(ctx, c)
		c.ID = id
		return err
	})
	if err != nil {
		return domain.Candidate{}, err
	}
	observability.LoggerFromContext(ctx).Info("candidate signed up", slog.String("candidate_id", c.ID))
	return c, nil
}

// Login checks credentials. Unknown email and wrong password are
// indistinguishable to the caller.
func (s AccountService) Login(ctx domain.Context, email, password string) (domain.Candidate, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var c domain.Candidate
	err := s.Store.WithinTx(ctx, func(ctx domain.Context, tx domain.Tx) error {
		var err error
		c, err = tx.Candidates().GetByEmail(ctx, email)
		return err
	})
	if errors.Is(err, domain.ErrNotFound) || (err == nil && !s.Hasher.Verify(password, c.PasswordHash)) {
		return domain.Candidate{}, fmt.Errorf("%w: invalid email or password", domain.ErrUnauthorized)
	}
	if err != nil {
		return domain.Candidate{}, err
	}
	return c, nil
}

// Profile loads a candidate.
func (s AccountService) Profile(ctx domain.Context, id string) (domain.Candidate, error) {
	var c domain.Candidate
	err := s.Store.WithinTx(ctx, func(ctx domain.Context, tx domain.Tx) error {
		var err error
		c, err = tx.Candidates().Get(ctx, id)
		return err
	})
	return c, err
}

// UpdateProfile changes the candidate's profile fields. Empty values keep
// the current ones.
func (s AccountService) UpdateProfile(ctx domain.Context, id, name, university string) (domain.Candidate, error) {
	var c domain.Candidate
	err := s.Store.WithinTx(ctx, func(ctx domain.Context, tx domain.Tx) error {
		var err error
		if c, err = tx.Candidates().Get(ctx, id); err != nil {
			return err
		}
		if v := strings.TrimSpace(name); v != "" {
			c.Name = v
		}
		if v := strings.TrimSpace(university); v != "" {
			c.University = v
		}
		return tx.Candidates().Update(ctx, c)
	})
	return c, err
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil || addr.Name != "" {
		return "", fmt.Errorf("%w: invalid email", domain.ErrInvalidArgument)
	}
	return strings.ToLower(addr.Address), nil
}
