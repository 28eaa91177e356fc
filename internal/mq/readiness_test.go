package mq

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// flakyProbe падает failures раз, затем отвечает успехом.
func flakyProbe(failures int, calls *int) ProbeFunc {
	return func(_ context.Context) error {
		*calls++
		if *calls <= failures {
			return errors.New("connection refused")
		}
		return nil
	}
}

// --- Waiter Tests ---

func TestWaiter_ReadyOnFirstAttempt(t *testing.T) {
	calls := 0
	w := NewWaiter(flakyProbe(0, &calls), FixedBackoff(5, 0), testLogger())

	attempts, err := w.WaitUntilReady(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 1 || calls != 1 {
		t.Errorf("expected 1 attempt, got attempts=%d calls=%d", attempts, calls)
	}
}

func TestWaiter_ReadyAfterFailures(t *testing.T) {
	for k := 1; k < 5; k++ {
		calls := 0
		w := NewWaiter(flakyProbe(k, &calls), FixedBackoff(5, 0), testLogger())

		attempts, err := w.WaitUntilReady(context.Background())
		if err != nil {
			t.Fatalf("k=%d: unexpected error: %v", k, err)
		}
		if attempts != k+1 {
			t.Errorf("k=%d: expected %d attempts, got %d", k, k+1, attempts)
		}
	}
}

func TestWaiter_Exhausted(t *testing.T) {
	calls := 0
	w := NewWaiter(flakyProbe(100, &calls), FixedBackoff(4, 0), testLogger())

	attempts, err := w.WaitUntilReady(context.Background())
	if !errors.Is(err, ErrConnectivityExhausted) {
		t.Fatalf("expected ErrConnectivityExhausted, got %v", err)
	}
	if attempts != 4 || calls != 4 {
		t.Errorf("expected 4 attempts, got attempts=%d calls=%d", attempts, calls)
	}
}

func TestWaiter_SleepsFixedIntervalBetweenAttempts(t *testing.T) {
	calls := 0
	w := NewWaiter(flakyProbe(100, &calls), FixedBackoff(3, 2*time.Second), testLogger())

	var sleeps []time.Duration
	w.sleep = func(_ context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}

	if _, err := w.WaitUntilReady(context.Background()); err == nil {
		t.Fatal("expected error")
	}

	// Пауза только между попытками, после последней — нет
	if len(sleeps) != 2 {
		t.Fatalf("expected 2 sleeps, got %d", len(sleeps))
	}
	for _, d := range sleeps {
		if d != 2*time.Second {
			t.Errorf("expected fixed 2s interval, got %v", d)
		}
	}
}

func TestWaiter_ZeroAttemptsMeansOne(t *testing.T) {
	calls := 0
	w := NewWaiter(flakyProbe(100, &calls), FixedBackoff(0, 0), testLogger())

	attempts, err := w.WaitUntilReady(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 || calls != 1 {
		t.Errorf("expected single attempt, got attempts=%d calls=%d", attempts, calls)
	}
}

func TestWaiter_ContextCancelled(t *testing.T) {
	calls := 0
	w := NewWaiter(flakyProbe(100, &calls), FixedBackoff(10, time.Hour), testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := w.WaitUntilReady(ctx)
	if !errors.Is(err, ErrConnectivityExhausted) {
		t.Fatalf("expected ErrConnectivityExhausted, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled in chain, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 probe before cancellation, got %d", calls)
	}
}

func TestExistence(t *testing.T) {
	if ok, err := existence(nil); !ok || err != nil {
		t.Errorf("nil error should mean present, got %v %v", ok, err)
	}
	if ok, err := existence(ErrNotFound); ok || err != nil {
		t.Errorf("not found should mean absent without error, got %v %v", ok, err)
	}
	if _, err := existence(ErrConnectionLost); !errors.Is(err, ErrConnectionLost) {
		t.Errorf("expected ErrConnectionLost, got %v", err)
	}
}

func TestDialConfig_DefaultTimeout(t *testing.T) {
	cfg := dialConfig(0)
	if cfg.Dial == nil {
		t.Error("dial function should be set")
	}
	if cfg.Heartbeat != 10*time.Second {
		t.Errorf("expected heartbeat 10s, got %v", cfg.Heartbeat)
	}
}
