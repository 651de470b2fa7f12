// Package auth provides password verifiers and signed session tokens.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2Params defines parameters for Argon2id password hashing
type Argon2Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLen     uint32
	KeyLen      uint32
}

// DefaultArgon2Params are the production hashing parameters.
var DefaultArgon2Params = Argon2Params{
	Memory:      64 * 1024, // 64 MB
	Iterations:  3,
	Parallelism: 2,
	SaltLen:     16,
	KeyLen:      32,
}

// Argon2Hasher implements domain.PasswordHasher.
type Argon2Hasher struct{ Params Argon2Params }

// NewArgon2Hasher returns a hasher using DefaultArgon2Params.
func NewArgon2Hasher() Argon2Hasher { return Argon2Hasher{Params: DefaultArgon2Params} }

// Hash creates an encoded Argon2id verifier for password.
func (h Argon2Hasher) Hash(password string) (string, error) {
	return HashPassword(password, h.Params)
}

// Verify reports whether password matches the encoded verifier.
func (h Argon2Hasher) Verify(password, encoded string) bool {
	return VerifyPassword(password, encoded)
}

// HashPassword creates an Argon2id hash of the password.
// Format: argon2id$iterations$memory$parallelism$salt$hash (raw std base64).
func HashPassword(password string, params Argon2Params) (string, error) {
	salt := make([]byte, params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("op=auth.hash: %w", err)
	}
	hash := argon2.IDKey([]byte(password), salt, params.Iterations, params.Memory, params.Parallelism, params.KeyLen)
	return fmt.Sprintf("argon2id$%d$%d$%d$%s$%s",
		params.Iterations,
		params.Memory,
		params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// VerifyPassword verifies a password against its Argon2id hash. The key
// length is taken from the stored hash.
func VerifyPassword(password, encodedHash string) bool {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[0] != "argon2id" {
		return false
	}
	iters, err1 := parseUint32(parts[1])
	mem, err2 := parseUint32(parts[2])
	par, err3 := parseUint32(parts[3])
	if err1 != nil || err2 != nil || err3 != nil || par == 0 || par > math.MaxUint8 {
		return false
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(expected) == 0 {
		return false
	}
	actual := argon2.IDKey([]byte(password), salt, iters, mem, uint8(par), uint32(len(expected)))
	return subtle.ConstantTimeCompare(actual, expected) == 1
}

func parseUint32(s string) (uint32, error) {
	x, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", s, err)
	}
	return uint32(x), nil
}
