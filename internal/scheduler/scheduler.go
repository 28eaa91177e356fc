package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/omerfehmii/izlenebilir-gorev-kuyrugu/internal/provision"
	"github.com/omerfehmii/izlenebilir-gorev-kuyrugu/internal/telemetry"
	"github.com/omerfehmii/izlenebilir-gorev-kuyrugu/internal/topology"
)

// ErrNoVerification — ни одной проверки ещё не выполнено.
var ErrNoVerification = errors.New("no verification completed yet")

// Watcher — периодическая проверка топологии.
type Watcher struct {
	def      *topology.Definition
	connect  provision.Connector
	schedule cron.Schedule
	logger   *slog.Logger
	metrics  *telemetry.Metrics
	now      func() time.Time

	mu   sync.RWMutex
	last *provision.Verification
}

// Config — конфигурация Watcher.
type Config struct {
	Definition *topology.Definition
	Connect    provision.Connector
	Schedule   string // cron-выражение (default: "@every 1m")
	Logger     *slog.Logger
	Metrics    *telemetry.Metrics
}

// New создаёт Watcher.
func New(cfg Config) (*Watcher, error) {
	expr := cfg.Schedule
	if expr == "" {
		expr = "@every 1m"
	}

	schedule, err := ParseSchedule(expr)
	if err != nil {
		return nil, err
	}

	return &Watcher{
		def:      cfg.Definition,
		connect:  cfg.Connect,
		schedule: schedule,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		now:      time.Now,
	}, nil
}

// Run выполняет проверки по расписанию до отмены контекста.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		next := NextRun(w.schedule, w.now())
		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		if err := w.Tick(ctx); err != nil {
			w.logger.Error("verification tick failed", "error", err)
		}
	}
}

// Tick выполняет одну проверку на новом соединении.
//
// Ошибка подключения возвращается; отсутствующие ресурсы — нет,
// они попадают в Last() и метрики.
func (w *Watcher) Tick(ctx context.Context) error {
	ctx = telemetry.WithLogger(ctx, w.logger)

	broker, err := w.connect(ctx)
	if err != nil {
		return fmt.Errorf("connect to broker: %w", err)
	}
	defer broker.Close()

	v := provision.NewVerifier(broker, w.logger, w.metrics).Verify(ctx, w.def)

	w.mu.Lock()
	w.last = v
	w.mu.Unlock()

	if v.Aborted {
		return v.AbortErr
	}

	w.logger.Debug("verification tick completed",
		"missing", len(v.MissingResources()),
		"next", NextRun(w.schedule, w.now()),
	)
	return nil
}

// Last возвращает результат последней проверки.
func (w *Watcher) Last() (*provision.Verification, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.last == nil {
		return nil, ErrNoVerification
	}
	return w.last, nil
}
