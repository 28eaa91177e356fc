package provision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/omerfehmii/izlenebilir-gorev-kuyrugu/internal/mq"
	"github.com/omerfehmii/izlenebilir-gorev-kuyrugu/internal/telemetry"
	"github.com/omerfehmii/izlenebilir-gorev-kuyrugu/internal/topology"
)

// Provisioner применяет Definition к брокеру.
type Provisioner struct {
	broker  mq.Broker
	logger  *slog.Logger
	metrics *telemetry.Metrics
	now     func() time.Time
}

// NewProvisioner создаёт Provisioner. metrics может быть nil.
func NewProvisioner(broker mq.Broker, logger *slog.Logger, metrics *telemetry.Metrics) *Provisioner {
	return &Provisioner{
		broker:  broker,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// run — состояние одного прогона развёртывания.
type run struct {
	p      *Provisioner
	report *Report

	exchanges map[string]bool // обменник -> объявлен
}

// Provision объявляет exchanges, DLQ, приоритетные очереди и bindings.
//
// Каждый ресурс обрабатывается независимо. Разрыв соединения прерывает
// прогон: Report.Aborted = true, оставшиеся ресурсы не записываются.
func (p *Provisioner) Provision(ctx context.Context, def *topology.Definition) *Report {
	r := &run{
		p:         p,
		report:    &Report{StartedAt: p.now()},
		exchanges: make(map[string]bool),
	}

	steps := []func(ctx context.Context, def *topology.Definition) error{
		r.declareExchanges,
		r.declareDeadLetter,
		r.declareAndBindQueues,
	}

	for _, step := range steps {
		if err := step(ctx, def); err != nil {
			r.report.Aborted = true
			r.report.AbortErr = err
			p.logger.Error("provisioning aborted", "error", err)
			break
		}
	}

	r.report.FinishedAt = p.now()
	p.metrics.ObserveRun(r.report.FinishedAt.Sub(r.report.StartedAt))

	p.logger.Info("provisioning finished",
		"ok", r.report.Count(StatusOK),
		"failed", r.report.Count(StatusFailed),
		"skipped", r.report.Count(StatusSkipped),
		"aborted", r.report.Aborted,
	)

	return r.report
}

// record добавляет результат в отчёт.
// Возвращает ошибку только при разрыве соединения.
func (r *run) record(kind ResourceKind, name string, err error) error {
	res := Result{Kind: kind, Name: name, Status: StatusOK}
	logger := resourceLogger(r.p.logger, kind, name)

	switch {
	case err == nil:
		logger.Debug("resource declared")
	case errors.Is(err, mq.ErrConnectionLost):
		return err
	default:
		res.Status = StatusFailed
		res.Err = err
		logger.Warn("resource declaration failed", "error", err)
	}

	r.report.add(res)
	r.p.metrics.ObserveResource(string(kind), string(res.Status))
	return nil
}

// skip записывает пропущенный ресурс.
func (r *run) skip(kind ResourceKind, name string, err error) {
	r.report.add(Result{Kind: kind, Name: name, Status: StatusSkipped, Err: err})
	r.p.metrics.ObserveResource(string(kind), string(StatusSkipped))
	resourceLogger(r.p.logger, kind, name).Warn("resource skipped", "error", err)
}

// resourceLogger добавляет к логгеру имя ресурса.
// Привязка логируется по имени очереди.
func resourceLogger(logger *slog.Logger, kind ResourceKind, name string) *slog.Logger {
	if kind == KindExchange {
		return telemetry.WithExchange(logger, name)
	}
	return telemetry.WithQueue(logger, name).With("kind", kind)
}

// declareExchanges — шаг 1.
func (r *run) declareExchanges(ctx context.Context, def *topology.Definition) error {
	for _, ex := range def.Exchanges() {
		err := r.p.broker.DeclareExchange(ctx, ex)
		if recErr := r.record(KindExchange, ex.Name, err); recErr != nil {
			return recErr
		}
		r.exchanges[ex.Name] = err == nil
	}
	return nil
}

// declareDeadLetter — шаг 2: DLQ объявляется раньше очередей, которые на неё ссылаются.
func (r *run) declareDeadLetter(ctx context.Context, def *topology.Definition) error {
	dl := def.DeadLetter()

	err := r.p.broker.DeclareQueue(ctx, dl.QueueName, nil)
	if recErr := r.record(KindQueue, dl.QueueName, err); recErr != nil {
		return recErr
	}
	if err != nil {
		r.skip(KindBinding, def.DeadLetterBinding().String(), ErrQueueUnavailable)
		return nil
	}

	return r.bind(ctx, def.DeadLetterBinding())
}

// declareAndBindQueues — шаги 3 и 4.
func (r *run) declareAndBindQueues(ctx context.Context, def *topology.Definition) error {
	queues := def.Queues()
	declared := make([]bool, len(queues))

	for i, q := range queues {
		err := r.p.broker.DeclareQueue(ctx, q.Name, def.Arguments(q))
		if recErr := r.record(KindQueue, q.Name, err); recErr != nil {
			return recErr
		}
		declared[i] = err == nil
	}

	for i, q := range queues {
		b := def.BindingFor(q)
		if !declared[i] {
			r.skip(KindBinding, b.String(), ErrQueueUnavailable)
			continue
		}
		if err := r.bind(ctx, b); err != nil {
			return err
		}
	}

	return nil
}

// bind привязывает очередь, если её обменник был объявлен.
func (r *run) bind(ctx context.Context, b topology.Binding) error {
	if !r.exchanges[b.Exchange] {
		return r.record(KindBinding, b.String(), fmt.Errorf("%w: %s", ErrExchangeUnavailable, b.Exchange))
	}
	return r.record(KindBinding, b.String(), r.p.broker.BindQueue(ctx, b))
}
