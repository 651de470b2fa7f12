package config

import (
	"time"
)

// LockRetryConfig controls how long a caller waits for a contended candidate lock.
type LockRetryConfig struct {
	// TTL bounds how long a held lock survives a crashed holder.
	TTL time.Duration
	// Wait is the maximum time spent retrying acquisition.
	Wait time.Duration
	// InitialDelay is the first retry delay; it grows exponentially up to MaxDelay.
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// GetLockRetryConfig returns lock acquisition settings.
func (c Config) GetLockRetryConfig() LockRetryConfig {
	rc := LockRetryConfig{
		TTL:          c.LockTTL,
		Wait:         c.LockWait,
		InitialDelay: 25 * time.Millisecond,
		MaxDelay:     500 * time.Millisecond,
	}
	if c.IsTest() {
		rc.InitialDelay = 5 * time.Millisecond
		rc.MaxDelay = 50 * time.Millisecond
	}
	return rc
}
