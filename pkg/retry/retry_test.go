package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRun_SucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	err := Run(context.Background(), Fixed(3, time.Millisecond), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestRun_PermanentErrorStopsImmediately(t *testing.T) {
	attempts := 0
	sentinel := errors.New("fatal")
	err := Run(context.Background(), Fixed(5, time.Millisecond), func(ctx context.Context) error {
		attempts++
		return Permanent(sentinel)
	})
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel in chain, got %v", err)
	}
}

func TestRun_ExhaustionWrapsLastError(t *testing.T) {
	last := errors.New("still broken")
	err := Run(context.Background(), Fixed(2, time.Millisecond), func(ctx context.Context) error {
		return last
	})
	if err == nil {
		t.Fatal("expected error after exhaustion")
	}
	if !errors.Is(err, last) {
		t.Fatalf("expected last error in chain, got %v", err)
	}
}

func TestRun_ContextCancelBetweenAttempts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := Run(ctx, Fixed(10, 50*time.Millisecond), func(ctx context.Context) error {
		attempts++
		cancel()
		return errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt before cancellation, got %d", attempts)
	}
}

func TestDo_ReturnsValue(t *testing.T) {
	attempts := 0
	got, err := Do(context.Background(), Fixed(3, time.Millisecond), func(ctx context.Context) (int, error) {
		attempts++
		if attempts < 2 {
			return 0, errors.New("transient")
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 42 {
		t.Fatalf("got %d, want 42", got)
	}
}

func TestIsPermanent(t *testing.T) {
	if IsPermanent(errors.New("plain")) {
		t.Error("plain error must not be permanent")
	}
	if !IsPermanent(Permanent(errors.New("fatal"))) {
		t.Error("wrapped error must be permanent")
	}
	wrapped := Permanent(errors.New("deep"))
	if !IsPermanent(wrapped) {
		t.Error("permanence must survive wrapping")
	}
}

func TestExponential_ExhaustsAllAttempts(t *testing.T) {
	attempts := 0
	err := Run(context.Background(), Exponential(4, time.Millisecond, 4*time.Millisecond), func(ctx context.Context) error {
		attempts++
		return errors.New("still broken")
	})
	if err == nil {
		t.Fatal("expected error after exhaustion")
	}
	if attempts != 4 {
		t.Fatalf("expected 4 attempts, got %d", attempts)
	}
}
