package retry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func fast(attempts int) *Backoff {
	return &Backoff{
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2,
		MaxAttempts:  attempts,
	}
}

func TestDo(t *testing.T) {
	errBoom := fmt.Errorf("boom")
	tests := []struct {
		name      string
		attempts  int
		failUntil int   // fn fails while attempt < failUntil
		fail      error // error returned while failing
		wantCalls int
		wantErr   string
	}{
		{"immediate success", 5, 1, errBoom, 1, ""},
		{"success after retries", 5, 3, errBoom, 3, ""},
		{"exhausted", 3, 99, errBoom, 3, "giving up after 3 attempts: boom"},
		{"permanent", 5, 99, Permanent(errBoom), 1, "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := fast(tt.attempts).Do(context.Background(), func(attempt int) error {
				calls++
				if attempt < tt.failUntil {
					return tt.fail
				}
				return nil
			})
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			switch {
			case tt.wantErr == "" && err != nil:
				t.Errorf("unexpected error: %v", err)
			case tt.wantErr != "" && (err == nil || err.Error() != tt.wantErr):
				t.Errorf("err = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestDo_ExhaustedWrapsLastError(t *testing.T) {
	sentinel := errors.New("refused")
	err := fast(2).Do(context.Background(), func(int) error { return sentinel })
	if !errors.Is(err, sentinel) {
		t.Errorf("err = %v, want it to wrap %v", err, sentinel)
	}
}

func TestDo_ContextCancelled(t *testing.T) {
	b := &Backoff{InitialDelay: time.Hour, MaxAttempts: 0}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- b.Do(ctx, func(int) error { return fmt.Errorf("down") })
	}()
	cancel()

	select {
	case err := <-done:
		if err == nil || !strings.Contains(err.Error(), "cancelled") {
			t.Errorf("err = %v, want cancellation", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Do did not return after cancel")
	}
}

func TestDo_OnRetry(t *testing.T) {
	b := fast(3)
	var waits []time.Duration
	b.OnRetry = func(attempt int, err error, wait time.Duration) {
		waits = append(waits, wait)
	}
	b.Do(context.Background(), func(int) error { return fmt.Errorf("x") }) //nolint:errcheck

	// Two waits between three attempts, doubling from 1ms.
	if len(waits) != 2 || waits[0] != time.Millisecond || waits[1] != 2*time.Millisecond {
		t.Errorf("waits = %v", waits)
	}
}

func TestJitter(t *testing.T) {
	d := 100 * time.Millisecond
	for i := 0; i < 100; i++ {
		j := jitter(d)
		if j < 75*time.Millisecond || j > 125*time.Millisecond {
			t.Fatalf("jitter(%s) = %s outside ±25%%", d, j)
		}
	}
	if got := jitter(0); got != time.Millisecond {
		t.Errorf("jitter(0) = %s, want 1ms floor", got)
	}
}

func TestIsPermanent(t *testing.T) {
	if IsPermanent(fmt.Errorf("x")) {
		t.Error("plain error is not permanent")
	}
	if !IsPermanent(fmt.Errorf("wrapped: %w", Permanent(fmt.Errorf("x")))) {
		t.Error("wrapped permanent error not detected")
	}
	if Permanent(nil) != nil {
		t.Error("Permanent(nil) should be nil")
	}
}
