package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/fd1az/price-getter/internal/apperror"
)

func TestCircuitBreaker_TripsAfterConsecutiveFailures(t *testing.T) {
	cfg := DefaultConfig("gateway")
	cfg.ConsecutiveFailures = 2
	cfg.Timeout = time.Hour

	var transitions []gobreaker.State
	cfg.OnStateChange = func(_ string, _, to gobreaker.State) {
		transitions = append(transitions, to)
	}

	cb := New[int](cfg)
	boom := errors.New("boom")

	for i := 0; i < 2; i++ {
		if _, err := cb.Execute(func() (int, error) { return 0, boom }); !errors.Is(err, boom) {
			t.Fatalf("call %d: expected boom, got %v", i, err)
		}
	}

	if cb.State() != gobreaker.StateOpen {
		t.Fatalf("expected open breaker, got %v", cb.State())
	}

	_, err := cb.Execute(func() (int, error) { return 1, nil })
	if apperror.GetCode(err) != apperror.CodeCircuitOpen {
		t.Fatalf("expected CIRCUIT_OPEN, got %v", err)
	}

	if len(transitions) != 1 || transitions[0] != gobreaker.StateOpen {
		t.Errorf("expected a single transition to open, got %v", transitions)
	}
}

func TestCircuitBreaker_IgnoresUnsuccessfulFilter(t *testing.T) {
	cfg := DefaultConfig("vm")
	cfg.ConsecutiveFailures = 1
	business := errors.New("function not found")
	cfg.IsSuccessful = func(err error) bool { return err == nil || errors.Is(err, business) }

	cb := New[string](cfg)
	for i := 0; i < 3; i++ {
		_, _ = cb.Execute(func() (string, error) { return "", business })
	}

	if cb.State() != gobreaker.StateClosed {
		t.Errorf("expected closed breaker, got %v", cb.State())
	}
	if cb.Name() != "vm" {
		t.Errorf("unexpected name %q", cb.Name())
	}
}
