package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Session roles.
const (
	RoleCandidate = "candidate"
	RoleAdmin     = "admin"
)

// Session token errors.
var (
	ErrInvalidToken = errors.New("invalid session token")
	ErrExpiredToken = errors.New("session expired")
)

// SessionData represents session information
type SessionData struct {
	Role      string
	Subject   string
	LoginTime time.Time
	ExpiresAt time.Time
}

// SessionManager issues and validates HMAC-signed session tokens of the form
// base64url(role:subject:iat:exp).base64url(signature).
type SessionManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionManager creates a session manager signing with secret.
func NewSessionManager(secret string, ttl time.Duration) *SessionManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL returns the lifetime of issued sessions.
func (sm *SessionManager) TTL() time.Duration { return sm.ttl }

// CreateSession signs a new session for subject in role.
func (sm *SessionManager) CreateSession(role, subject string) (string, time.Time, error) {
	if role == "" || subject == "" {
		return "", time.Time{}, fmt.Errorf("op=auth.create_session: %w: role and subject required", ErrInvalidToken)
	}
	now := sm.now()
	exp := now.Add(sm.ttl)
	payload := strings.Join([]string{role, subject, strconv.FormatInt(now.Unix(), 10), strconv.FormatInt(exp.Unix(), 10)}, ":")
	enc := base64.RawURLEncoding.EncodeToString([]byte(payload))
	return enc + "." + base64.RawURLEncoding.EncodeToString(sm.sign(enc)), exp, nil
}

// ValidateSession checks the signature and expiry of a token.
func (sm *SessionManager) ValidateSession(token string) (*SessionData, error) {
	enc, sigB64, ok := strings.Cut(token, ".")
	if !ok || enc == "" {
		return nil, ErrInvalidToken
	}
	sig, err := base64.RawURLEncoding.DecodeString(sigB64)
	if err != nil || !hmac.Equal(sm.sign(enc), sig) {
		return nil, ErrInvalidToken
	}
	raw, err := base64.RawURLEncoding.DecodeString(enc)
	if err != nil {
		return nil, ErrInvalidToken
	}
	parts := strings.Split(string(raw), ":")
	if len(parts) < 4 {
		return nil, ErrInvalidToken
	}
	// The subject may itself contain ':'.
	n := len(parts)
	iat, err1 := strconv.ParseInt(parts[n-2], 10, 64)
	exp, err2 := strconv.ParseInt(parts[n-1], 10, 64)
	if err1 != nil || err2 != nil {
		return nil, ErrInvalidToken
	}
	data := &SessionData{
		Role:      parts[0],
		Subject:   strings.Join(parts[1:n-2], ":"),
		LoginTime: time.Unix(iat, 0),
		ExpiresAt: time.Unix(exp, 0),
	}
	if sm.now().After(data.ExpiresAt) {
		return nil, ErrExpiredToken
	}
	return data, nil
}

func (sm *SessionManager) sign(payload string) []byte {
	mac := hmac.New(sha256.New, sm.secret)
	mac.Write([]byte(payload))
	return mac.Sum(nil)
}
