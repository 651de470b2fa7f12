package ai

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	obs "github.com/fairyhunter13/softrate-ats/internal/adapter/observability"
	"github.com/fairyhunter13/softrate-ats/internal/domain"
)

// CircuitState represents the state of a circuit breaker
type CircuitState int

const (
	// CircuitClosed indicates the circuit is allowing requests to pass through.
	CircuitClosed CircuitState = iota
	// CircuitOpen indicates the circuit is blocking requests due to failures.
	CircuitOpen
	// CircuitHalfOpen indicates the circuit is probing recovery with one request.
	CircuitHalfOpen
)

// String returns a string representation of the circuit state
func (cs CircuitState) String() string {
	switch cs {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker stops calling a provider after consecutive failures so the
// pipeline reaches its fallback without waiting on retries.
type CircuitBreaker struct {
	mu               sync.Mutex
	name             string
	failureThreshold int
	recoveryTimeout  time.Duration
	state            CircuitState
	failureCount     int
	lastFailureTime  time.Time
	probing          bool
	now              func() time.Time
}

// NewCircuitBreaker creates a breaker that opens after threshold consecutive
// failures and probes again after recovery.
func NewCircuitBreaker(name string, threshold int, recovery time.Duration) *CircuitBreaker {
	if threshold <= 0 {
		threshold = 3
	}
	if recovery <= 0 {
		recovery = 30 * time.Second
	}
	return &CircuitBreaker{
		name:             name,
		failureThreshold: threshold,
		recoveryTimeout:  recovery,
		state:            CircuitClosed,
		now:              time.Now,
	}
}

// allow reports whether a request may proceed. In half-open only one probe
// is in flight at a time.
func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	switch cb.state {
	case CircuitOpen:
		if cb.now().Sub(cb.lastFailureTime) < cb.recoveryTimeout {
			return false
		}
		cb.setState(CircuitHalfOpen)
		cb.probing = true
		return true
	case CircuitHalfOpen:
		if cb.probing {
			return false
		}
		cb.probing = true
		return true
	default:
		return true
	}
}

func (cb *CircuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failureCount = 0
	cb.probing = false
	if cb.state != CircuitClosed {
		slog.Info("circuit breaker closed after successful recovery", slog.String("name", cb.name))
		cb.setState(CircuitClosed)
	}
}

func (cb *CircuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failureCount++
	cb.lastFailureTime = cb.now()
	cb.probing = false
	if cb.state == CircuitHalfOpen || cb.failureCount >= cb.failureThreshold {
		if cb.state != CircuitOpen {
			slog.Warn("circuit breaker opened",
				slog.String("name", cb.name),
				slog.Int("failure_count", cb.failureCount),
				slog.Int("threshold", cb.failureThreshold))
		}
		cb.setState(CircuitOpen)
	}
}

func (cb *CircuitBreaker) setState(s CircuitState) {
	cb.state = s
	obs.SetCircuitState(cb.name, int(s))
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// BreakerClient guards a ChatClient with a CircuitBreaker.
type BreakerClient struct {
	Next    ChatClient
	Breaker *CircuitBreaker
}

// ChatJSON implements ChatClient. Caller cancellation does not count as a
// provider failure.
func (c BreakerClient) ChatJSON(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	if !c.Breaker.allow() {
		return "", fmt.Errorf("%w: circuit %s is open", domain.ErrExternalService, c.Breaker.name)
	}
	out, err := c.Next.ChatJSON(ctx, systemPrompt, userPrompt, maxTokens)
	switch {
	case err == nil:
		c.Breaker.recordSuccess()
	case ctx.Err() != nil:
		c.Breaker.mu.Lock()
		c.Breaker.probing = false
		c.Breaker.mu.Unlock()
	default:
		c.Breaker.recordFailure()
	}
	return out, err
}
