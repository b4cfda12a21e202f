package resilience

import (
	"errors"
	"testing"
	"time"

	apperrors "tradepulse/internal/errors"
)

func testBreaker(timeout time.Duration) *CircuitBreaker {
	return NewCircuitBreaker("test", CircuitBreakerConfig{
		FailureThreshold: 3,
		SuccessThreshold: 2,
		Timeout:          timeout,
	})
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	cb := testBreaker(time.Minute)

	for i := 0; i < 2; i++ {
		cb.RecordFailure()
	}
	if cb.State() != CircuitClosed {
		t.Fatalf("state = %s after 2 failures, want CLOSED", cb.State())
	}

	cb.RecordFailure()
	if cb.State() != CircuitOpen {
		t.Fatalf("state = %s after 3 failures, want OPEN", cb.State())
	}

	if err := cb.Allow(); !apperrors.Is(err, apperrors.ErrUpstreamGateOpen) {
		t.Errorf("Allow = %v, want ErrUpstreamGateOpen", err)
	}
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	cb := testBreaker(time.Minute)

	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()
	cb.RecordFailure()

	if cb.State() != CircuitClosed {
		t.Errorf("state = %s, want CLOSED (success resets the streak)", cb.State())
	}
}

func TestBreakerHalfOpenRecovery(t *testing.T) {
	cb := testBreaker(10 * time.Millisecond)

	for i := 0; i < 3; i++ {
		cb.RecordFailure()
	}
	time.Sleep(20 * time.Millisecond)

	if err := cb.Allow(); err != nil {
		t.Fatalf("Allow after timeout = %v, want probe allowed", err)
	}
	if cb.State() != CircuitHalfOpen {
		t.Fatalf("state = %s, want HALF_OPEN", cb.State())
	}

	cb.RecordSuccess()
	cb.RecordSuccess()
	if cb.State() != CircuitClosed {
		t.Errorf("state = %s after recovery, want CLOSED", cb.State())
	}
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	cb := testBreaker(10 * time.Millisecond)

	for i := 0; i < 3; i++ {
		cb.RecordFailure()
	}
	time.Sleep(20 * time.Millisecond)
	if err := cb.Allow(); err != nil {
		t.Fatalf("Allow: %v", err)
	}

	cb.RecordFailure()
	if cb.State() != CircuitOpen {
		t.Errorf("state = %s after half-open failure, want OPEN", cb.State())
	}
}

func TestExecute(t *testing.T) {
	cb := testBreaker(time.Minute)
	boom := errors.New("boom")

	for i := 0; i < 3; i++ {
		if err := cb.Execute(func() error { return boom }); !errors.Is(err, boom) {
			t.Fatalf("Execute = %v, want boom", err)
		}
	}

	calls := 0
	err := cb.Execute(func() error {
		calls++
		return nil
	})
	if !apperrors.Is(err, apperrors.ErrUpstreamGateOpen) {
		t.Errorf("Execute while open = %v, want ErrUpstreamGateOpen", err)
	}
	if calls != 0 {
		t.Errorf("fn ran %d times while the circuit was open", calls)
	}
}
