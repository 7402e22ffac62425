package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastPolicy(attempts int) Policy {
	return Policy{
		MaxAttempts: attempts,
		BaseDelay:   time.Millisecond,
		Multiplier:  2.0,
		MaxDelay:    5 * time.Millisecond,
	}
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := fastPolicy(5).Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	err := fastPolicy(4).Do(context.Background(), func(ctx context.Context) error {
		calls++
		return boom
	})
	if err == nil {
		t.Fatal("Do returned nil, want error")
	}
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped %v", err, boom)
	}
	if calls != 4 {
		t.Errorf("calls = %d, want 4", calls)
	}
}

func TestDo_PermanentErrorStopsImmediately(t *testing.T) {
	calls := 0
	denied := errors.New("auth denied")
	err := fastPolicy(5).Do(context.Background(), func(ctx context.Context) error {
		calls++
		return Permanent(denied)
	})
	if !errors.Is(err, denied) {
		t.Errorf("err = %v, want %v", err, denied)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

type retryableErr struct{ retryable bool }

func (e *retryableErr) Error() string     { return "api error" }
func (e *retryableErr) IsRetryable() bool { return e.retryable }

func TestDo_HonorsRetryableInterface(t *testing.T) {
	calls := 0
	err := fastPolicy(5).Do(context.Background(), func(ctx context.Context) error {
		calls++
		return &retryableErr{retryable: false}
	})
	if err == nil {
		t.Fatal("Do returned nil, want error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 for non-retryable error", calls)
	}
}

func TestDo_ContextCancelledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Hour, // would block without cancellation
		Multiplier:  2.0,
		MaxDelay:    time.Hour,
	}

	done := make(chan error, 1)
	go func() {
		done <- p.Do(ctx, func(ctx context.Context) error {
			return errors.New("transient")
		})
	}()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Do did not return after cancellation")
	}
}
