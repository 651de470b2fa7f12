package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/fairyhunter13/softrate-ats/internal/domain"
)

const maxJSONBody = 1 << 20

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New(validator.WithRequiredStructEnabled()) })
	return vld
}

// fieldErrors is returned as error details: field name to failed rule.
type fieldErrors map[string]string

// decodeJSON reads a JSON body into dst and validates it. On failure it
// writes the error response and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeJSON(w, http.StatusRequestEntityTooLarge, errorEnvelope{Error: apiError{Code: "INVALID_ARGUMENT", Message: "payload too large"}})
		case errors.Is(err, io.EOF):
			writeError(w, r, fmt.Errorf("%w: request body required", domain.ErrInvalidArgument), nil)
		default:
			writeError(w, r, fmt.Errorf("%w: invalid json", domain.ErrInvalidArgument), nil)
		}
		return false
	}
	if err := getValidator().Struct(dst); err != nil {
		details := fieldErrors{}
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			for _, fe := range ve {
				details[strings.ToLower(fe.Field())] = fe.Tag()
			}
		}
		writeError(w, r, fmt.Errorf("%w: validation failed", domain.ErrInvalidArgument), details)
		return false
	}
	return true
}

var validID = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateID checks a path or body identifier.
func ValidateID(field, id string) error {
	switch {
	case id == "":
		return fmt.Errorf("%w: %s is required", domain.ErrInvalidArgument, field)
	case len(id) > 100:
		return fmt.Errorf("%w: %s is too long (max 100 characters)", domain.ErrInvalidArgument, field)
	case !validID.MatchString(id):
		return fmt.Errorf("%w: %s contains invalid characters", domain.ErrInvalidArgument, field)
	}
	return nil
}

// SanitizeString strips NUL bytes and invalid UTF-8, trims, and caps length.
func SanitizeString(input string, max int) string {
	input = strings.ReplaceAll(input, "\x00", "")
	input = strings.TrimSpace(input)
	if !utf8.ValidString(input) {
		input = strings.ToValidUTF8(input, "")
	}
	if max > 0 && len(input) > max {
		input = strings.ToValidUTF8(input[:max], "")
	}
	return input
}
