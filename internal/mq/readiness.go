package mq

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// ProbeFunc — лёгкая проверка связи с брокером.
type ProbeFunc func(ctx context.Context) error

// BackoffPolicy — политика повторов ожидания готовности.
//
// Интервал фиксированный, без экспоненты.
type BackoffPolicy struct {
	// MaxAttempts — максимальное число попыток (минимум 1).
	MaxAttempts int

	// Interval — пауза между попытками.
	Interval time.Duration
}

// FixedBackoff создаёт политику с фиксированным интервалом.
func FixedBackoff(maxAttempts int, interval time.Duration) BackoffPolicy {
	return BackoffPolicy{MaxAttempts: maxAttempts, Interval: interval}
}

// attempts возвращает нормализованное число попыток.
func (p BackoffPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Waiter ожидает готовности брокера перед развёртыванием топологии.
type Waiter struct {
	probe  ProbeFunc
	policy BackoffPolicy
	logger *slog.Logger

	// sleep — пауза между попытками, подменяется в тестах.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewWaiter создаёт Waiter.
func NewWaiter(probe ProbeFunc, policy BackoffPolicy, logger *slog.Logger) *Waiter {
	return &Waiter{
		probe:  probe,
		policy: policy,
		logger: logger,
		sleep:  sleepContext,
	}
}

// WaitUntilReady выполняет пробу до первого успеха или до исчерпания попыток.
// Возвращает число выполненных попыток. После последней неудачной попытки
// пауза не делается.
func (w *Waiter) WaitUntilReady(ctx context.Context) (int, error) {
	maxAttempts := w.policy.attempts()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = w.probe(ctx)
		if lastErr == nil {
			w.logger.Info("broker is ready", "attempt", attempt)
			return attempt, nil
		}

		w.logger.Warn("waiting for broker",
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"error", lastErr,
		)

		if attempt == maxAttempts {
			break
		}

		if err := w.sleep(ctx, w.policy.Interval); err != nil {
			return attempt, fmt.Errorf("%w: %w", ErrConnectivityExhausted, err)
		}
	}

	return maxAttempts, fmt.Errorf("%w after %d attempts: %w", ErrConnectivityExhausted, maxAttempts, lastErr)
}

// sleepContext спит d или до отмены контекста.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
