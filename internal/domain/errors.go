package domain

import (
	"errors"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInvalidState      = errors.New("invalid state")
	ErrPolicyViolation   = errors.New("policy violation")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrRateLimited       = errors.New("rate limited")
	ErrUpstreamTimeout   = errors.New("upstream timeout")
	ErrUpstreamRateLimit = errors.New("upstream rate limit")
	ErrExternalService   = errors.New("external service failure")
	ErrSchemaInvalid     = errors.New("schema invalid")
	ErrInternal          = errors.New("internal error")
)

// Pipeline errors. Each one matches its own sentinel and its kind under errors.Is.
var (
	ErrUnsupportedFormat = kindError("unsupported format", ErrInvalidArgument)

	ErrAlreadyQualifiedElsewhere = kindError("already qualified for another assessment", ErrPolicyViolation)
	ErrReapplicationBlocked      = kindError("reapplication blocked", ErrPolicyViolation)
	ErrRestartBlocked            = kindError("restart blocked", ErrPolicyViolation)

	ErrNoActiveApplication     = kindError("no active application", ErrInvalidState)
	ErrNoIncompleteApplication = kindError("no incomplete application", ErrInvalidState)

	ErrApplicationNotFound = kindError("application not found", ErrNotFound)
	ErrCandidateNotFound   = kindError("candidate not found", ErrNotFound)
	ErrAssessmentNotFound  = kindError("assessment not found", ErrNotFound)
)

type kindErr struct {
	msg  string
	kind error
}

func kindError(msg string, kind error) error { return &kindErr{msg: msg, kind: kind} }

func (e *kindErr) Error() string { return e.msg }

func (e *kindErr) Unwrap() error { return e.kind }

// Kind returns the taxonomy sentinel err belongs to, or ErrInternal.
func Kind(err error) error {
	for _, k := range []error{
		ErrInvalidArgument, ErrNotFound, ErrConflict, ErrInvalidState, ErrPolicyViolation,
		ErrUnauthorized, ErrRateLimited, ErrUpstreamTimeout, ErrUpstreamRateLimit, ErrExternalService,
		ErrSchemaInvalid,
	} {
		if errors.Is(err, k) {
			return k
		}
	}
	return ErrInternal
}
