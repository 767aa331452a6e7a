package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastConfig(maxAttempts int) Config {
	return Config{
		MaxAttempts:  maxAttempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     10 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestRetry_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastConfig(3), func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Retry() = %v, want nil", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastConfig(4), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry() = %v, want nil", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastConfig(3), func() error {
		calls++
		return errors.New("persistent")
	})
	if !errors.Is(err, ErrMaxAttemptsExceeded) {
		t.Fatalf("Retry() = %v, want ErrMaxAttemptsExceeded", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetry_NonRetryableStopsImmediately(t *testing.T) {
	sentinel := errors.New("fatal")
	cfg := fastConfig(5)
	cfg.IsRetryable = func(err error) bool { return !errors.Is(err, sentinel) }

	calls := 0
	err := Retry(context.Background(), cfg, func() error {
		calls++
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("Retry() = %v, want sentinel", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, fastConfig(3), func() error {
		return errors.New("never retried")
	})
	if !errors.Is(err, ErrContextCancelled) {
		t.Fatalf("Retry() = %v, want ErrContextCancelled", err)
	}
}

func TestRetry_DelaysDouble(t *testing.T) {
	cfg := Config{
		MaxAttempts:  4,
		InitialDelay: 20 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
	}

	start := time.Now()
	_ = Retry(context.Background(), cfg, func() error {
		return errors.New("always")
	})
	elapsed := time.Since(start)

	// 20ms + 40ms + 80ms of backoff between the four attempts.
	if elapsed < 140*time.Millisecond {
		t.Errorf("elapsed = %v, want >= 140ms of accumulated backoff", elapsed)
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil", nil, false},
		{"timeout", errors.New("i/o timeout"), true},
		{"refused", errors.New("dial tcp: connection refused"), true},
		{"deadline", errors.New("context deadline exceeded"), true},
		{"validation", errors.New("mapping is invalid"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.expected {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}
