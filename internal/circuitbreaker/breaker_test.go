package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFetch = errors.New("status 502")

func TestCircuitBreaker_BasicFunctionality(t *testing.T) {
	cb := New(Thresholds{MaxConsecutiveFailures: 3})
	assert.Equal(t, StateClosed, cb.GetState(), "Circuit breaker should start closed")

	require.NoError(t, cb.Allow())
	cb.RecordFailure(errFetch)
	cb.RecordFailure(errFetch)
	assert.Equal(t, 2, cb.Failures())
	assert.Equal(t, StateClosed, cb.GetState(), "Below the limit the circuit stays closed")

	cb.RecordSuccess()
	assert.Equal(t, 0, cb.Failures(), "A success resets the consecutive count")

	cb.RecordFailure(errFetch)
	cb.RecordFailure(errFetch)
	assert.Equal(t, StateClosed, cb.GetState(), "Failures must be consecutive")
}

func TestCircuitBreaker_Trips(t *testing.T) {
	cb := New(Thresholds{MaxConsecutiveFailures: 2}).WithResetDelay(time.Hour)

	cb.RecordFailure(errFetch)
	cb.RecordFailure(errFetch)
	assert.Equal(t, StateOpen, cb.GetState(), "Circuit should be open after trip")

	err := cb.Allow()
	assert.ErrorIs(t, err, ErrOpen)
}

func TestCircuitBreaker_Disabled(t *testing.T) {
	cb := New(Thresholds{})
	for i := 0; i < 100; i++ {
		cb.RecordFailure(errFetch)
	}
	assert.Equal(t, StateClosed, cb.GetState())
	assert.NoError(t, cb.Allow())
}

func TestCircuitBreaker_Recovery(t *testing.T) {
	now := time.Unix(1000, 0)
	cb := New(Thresholds{MaxConsecutiveFailures: 1}).
		WithResetDelay(time.Minute).
		WithSuccessThreshold(2)
	cb.now = func() time.Time { return now }

	cb.RecordFailure(errFetch)
	require.Equal(t, StateOpen, cb.GetState())

	now = now.Add(30 * time.Second)
	assert.ErrorIs(t, cb.Allow(), ErrOpen, "Still inside the reset delay")

	now = now.Add(31 * time.Second)
	require.NoError(t, cb.Allow())
	assert.Equal(t, StateHalfOpen, cb.GetState())

	cb.RecordSuccess()
	assert.Equal(t, StateHalfOpen, cb.GetState(), "One success is below the threshold")
	cb.RecordSuccess()
	assert.Equal(t, StateClosed, cb.GetState(), "Circuit should close after enough successes")
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	now := time.Unix(1000, 0)
	cb := New(Thresholds{MaxConsecutiveFailures: 3}).WithResetDelay(time.Second)
	cb.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		cb.RecordFailure(errFetch)
	}
	require.Equal(t, StateOpen, cb.GetState())

	now = now.Add(2 * time.Second)
	require.NoError(t, cb.Allow())
	cb.RecordFailure(errFetch)
	assert.Equal(t, StateOpen, cb.GetState(), "A failed probe re-opens immediately")
	assert.ErrorIs(t, cb.Allow(), ErrOpen)
}

func TestCircuitBreaker_TripCallback(t *testing.T) {
	done := make(chan int, 1)
	cb := New(Thresholds{MaxConsecutiveFailures: 2}).
		WithTripCallback(func(reason string, failures int) {
			done <- failures
		})

	cb.RecordFailure(errFetch)
	cb.RecordFailure(errFetch)

	select {
	case n := <-done:
		assert.Equal(t, 2, n)
	case <-time.After(time.Second):
		t.Fatal("trip callback was not called")
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb := New(Thresholds{MaxConsecutiveFailures: 1}).WithResetDelay(time.Hour)
	cb.RecordFailure(errFetch)
	require.Equal(t, StateOpen, cb.GetState())

	cb.Reset()
	assert.Equal(t, StateClosed, cb.GetState())
	assert.Equal(t, 0, cb.Failures())
	assert.NoError(t, cb.Allow())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
}
