// Package circuitbreaker stops a batch from hammering a subgraph that keeps
// failing. After too many consecutive fetch failures the breaker opens and
// further wallets are failed fast until the reset delay has passed.
package circuitbreaker

import (
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrOpen is returned by Allow while the circuit is open
var ErrOpen = errors.New("circuit breaker open: subgraph failing")

// State represents the current state of the circuit breaker
type State int

// Circuit breaker states
const (
	StateClosed   State = iota // Normal operation
	StateOpen                  // Tripped, no new fetches allowed
	StateHalfOpen              // Testing if the subgraph has recovered
)

// String returns the lower-case state name
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Thresholds defines the limits that will trigger the circuit breaker
type Thresholds struct {
	// Consecutive failures that open the circuit. Zero disables the breaker.
	MaxConsecutiveFailures int `json:"max_consecutive_failures"`
}

// CircuitBreaker implements the circuit breaker pattern around subgraph fetches
type CircuitBreaker struct {
	thresholds Thresholds

	state    State
	lastTrip time.Time

	// Duration before a half-open attempt
	resetDelay time.Duration

	mu sync.RWMutex

	failures     int
	successCount int

	// Successful fetches in HalfOpen needed to close the circuit
	successThreshold int

	onTripCallback func(reason string, failures int)

	now func() time.Time
}

// New creates a new CircuitBreaker with the provided thresholds
func New(t Thresholds) *CircuitBreaker {
	return &CircuitBreaker{
		thresholds:       t,
		state:            StateClosed,
		resetDelay:       30 * time.Second,
		successThreshold: 1,
		now:              time.Now,
	}
}

// WithResetDelay sets a custom reset delay and returns the circuit breaker
func (cb *CircuitBreaker) WithResetDelay(delay time.Duration) *CircuitBreaker {
	cb.resetDelay = delay
	return cb
}

// WithSuccessThreshold sets the number of successful fetches needed to close the circuit
func (cb *CircuitBreaker) WithSuccessThreshold(threshold int) *CircuitBreaker {
	if threshold < 1 {
		threshold = 1
	}
	cb.successThreshold = threshold
	return cb
}

// WithTripCallback sets a callback function that is called when the circuit trips
func (cb *CircuitBreaker) WithTripCallback(callback func(reason string, failures int)) *CircuitBreaker {
	cb.onTripCallback = callback
	return cb
}

// Allow reports whether a fetch may proceed. An open circuit whose reset
// delay has elapsed moves to half-open and lets the fetch through.
func (cb *CircuitBreaker) Allow() error {
	if cb.thresholds.MaxConsecutiveFailures <= 0 {
		return nil
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != StateOpen {
		return nil
	}
	if cb.now().Sub(cb.lastTrip) < cb.resetDelay {
		return ErrOpen
	}

	cb.state = StateHalfOpen
	cb.successCount = 0
	logrus.Info("Circuit breaker half-open: probing subgraph")
	return nil
}

// RecordSuccess registers a successful fetch
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	if cb.state == StateHalfOpen {
		cb.successCount++
		if cb.successCount >= cb.successThreshold {
			cb.state = StateClosed
			cb.successCount = 0
			logrus.Info("Circuit breaker closed: subgraph has recovered")
		}
	}
}

// RecordFailure registers a failed fetch and trips the circuit when the
// consecutive failure limit is reached. A failure while half-open re-opens it.
func (cb *CircuitBreaker) RecordFailure(err error) {
	if cb.thresholds.MaxConsecutiveFailures <= 0 {
		return
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	switch {
	case cb.state == StateHalfOpen:
		cb.trip("probe failed: " + errString(err))
	case cb.state == StateClosed && cb.failures >= cb.thresholds.MaxConsecutiveFailures:
		cb.trip("consecutive failures: " + errString(err))
	}
}

// GetState returns the current state of the circuit breaker
func (cb *CircuitBreaker) GetState() State {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// Failures returns the current count of consecutive failures
func (cb *CircuitBreaker) Failures() int {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.failures
}

// Reset forcibly resets the circuit breaker to closed state
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.failures = 0
	cb.successCount = 0
	logrus.Info("Circuit breaker manually reset to closed state")
}

// trip sets the circuit breaker to open state with the current time
func (cb *CircuitBreaker) trip(reason string) {
	cb.state = StateOpen
	cb.lastTrip = cb.now()
	logrus.Warnf("Circuit breaker tripped after %d failures: %s", cb.failures, reason)

	if cb.onTripCallback != nil {
		go cb.onTripCallback(reason, cb.failures)
	}
}

func errString(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
