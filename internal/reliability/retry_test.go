package reliability

import (
	"context"
	"errors"
	"testing"
	"time"
)

type recordedSleeps struct {
	delays []time.Duration
}

func (r *recordedSleeps) sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

func TestRetryStopsAfterMaxAttempts(t *testing.T) {
	rec := &recordedSleeps{}
	calls := 0
	_, attempts, err := Retry(context.Background(), Policy{
		MaxRetries: 5,
		Backoff:    LinearBackoff(time.Second),
		Sleep:      rec.sleep,
	}, func(context.Context, int) (string, error) {
		calls++
		return "", Transient("test", "op", errors.New("timeout"))
	})
	if err == nil {
		t.Fatalf("expected error after exhausting retries")
	}
	if calls != 6 || attempts != 6 {
		t.Fatalf("calls = %d attempts = %d, want 6", calls, attempts)
	}
	if len(rec.delays) != 5 {
		t.Fatalf("sleeps = %d, want 5", len(rec.delays))
	}
	for i := 1; i < len(rec.delays); i++ {
		if rec.delays[i] < rec.delays[i-1] {
			t.Fatalf("backoff decreased: %v", rec.delays)
		}
	}
	if !IsTransient(err) {
		t.Fatalf("exhausted error should still carry the transient cause: %v", err)
	}
}

func TestRetrySucceedsOnFourthAttempt(t *testing.T) {
	rec := &recordedSleeps{}
	out, attempts, err := Retry(context.Background(), Policy{
		MaxRetries: 5,
		Backoff:    LinearBackoff(time.Second),
		Sleep:      rec.sleep,
	}, func(_ context.Context, attempt int) (int, error) {
		if attempt < 4 {
			return 0, Transient("test", "op", context.DeadlineExceeded)
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("Retry() error = %v", err)
	}
	if out != 42 || attempts != 4 {
		t.Fatalf("out = %d attempts = %d, want 42 and 4", out, attempts)
	}
	want := []time.Duration{time.Second, 2 * time.Second, 3 * time.Second}
	if len(rec.delays) != len(want) {
		t.Fatalf("delays = %v, want %v", rec.delays, want)
	}
	for i := range want {
		if rec.delays[i] != want[i] {
			t.Fatalf("delays = %v, want %v", rec.delays, want)
		}
	}
}

func TestRetryDoesNotRetryPermanent(t *testing.T) {
	calls := 0
	_, _, err := Retry(context.Background(), Policy{MaxRetries: 5, Sleep: (&recordedSleeps{}).sleep},
		func(context.Context, int) (struct{}, error) {
			calls++
			return struct{}{}, Permanent("test", "op", errors.New("401"))
		})
	if err == nil || calls != 1 {
		t.Fatalf("calls = %d err = %v, want 1 call and an error", calls, err)
	}
}

func TestRetryHonorsCanceledWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	_, _, err := Retry(ctx, Policy{MaxRetries: 3, Backoff: LinearBackoff(time.Hour)},
		func(context.Context, int) (int, error) {
			calls++
			return 0, Transient("test", "op", errors.New("slow"))
		})
	if err == nil || calls != 1 {
		t.Fatalf("calls = %d err = %v, want 1 call and an error", calls, err)
	}
}
