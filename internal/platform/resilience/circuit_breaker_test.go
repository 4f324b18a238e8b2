package resilience

import (
	"testing"
	"time"
)

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	t.Parallel()

	b := NewCircuitBreaker(3, time.Minute, 1)
	for i := 0; i < 3; i++ {
		if err := b.Allow(); err != nil {
			t.Fatalf("Allow before threshold: %v", err)
		}
		b.RecordFailure()
	}

	if err := b.Allow(); err == nil {
		t.Fatal("Allow after threshold should be rejected")
	}
	if got := b.State(); got != CircuitStateOpen {
		t.Fatalf("state=%s want=%s", got, CircuitStateOpen)
	}
}

func TestCircuitBreaker_HalfOpenRecovers(t *testing.T) {
	t.Parallel()

	base := time.Unix(1_700_000_000, 0)
	current := base
	b := NewCircuitBreaker(1, 10*time.Second, 1)
	b.now = func() time.Time { return current }

	b.RecordFailure()
	if err := b.Allow(); err == nil {
		t.Fatal("Allow while open should be rejected")
	}

	current = base.Add(11 * time.Second)
	if err := b.Allow(); err != nil {
		t.Fatalf("Allow probe after open timeout: %v", err)
	}
	b.RecordSuccess()

	if got := b.State(); got != CircuitStateClosed {
		t.Fatalf("state=%s want=%s", got, CircuitStateClosed)
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	t.Parallel()

	base := time.Unix(1_700_000_000, 0)
	current := base
	b := NewCircuitBreaker(1, 10*time.Second, 1)
	b.now = func() time.Time { return current }

	b.RecordFailure()
	current = base.Add(11 * time.Second)
	if err := b.Allow(); err != nil {
		t.Fatalf("Allow probe: %v", err)
	}
	b.RecordFailure()

	if err := b.Allow(); err == nil {
		t.Fatal("Allow after failed probe should be rejected")
	}
}
