package provision

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/omerfehmii/izlenebilir-gorev-kuyrugu/internal/mq"
	"github.com/omerfehmii/izlenebilir-gorev-kuyrugu/internal/telemetry"
	"github.com/omerfehmii/izlenebilir-gorev-kuyrugu/internal/topology"
)

// Verifier пассивно проверяет наличие ресурсов топологии.
type Verifier struct {
	broker  mq.Broker
	logger  *slog.Logger
	metrics *telemetry.Metrics
	now     func() time.Time
}

// NewVerifier создаёт Verifier. metrics может быть nil.
func NewVerifier(broker mq.Broker, logger *slog.Logger, metrics *telemetry.Metrics) *Verifier {
	return &Verifier{
		broker:  broker,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// Verify проверяет очереди (приоритетные и DLQ), затем обменники.
// Ошибка отдельной проверки означает Absent с причиной.
// При разрыве соединения проверка прерывается.
func (v *Verifier) Verify(ctx context.Context, def *topology.Definition) *Verification {
	result := &Verification{CheckedAt: v.now()}

	for _, name := range def.QueueNames() {
		ok, err := v.broker.QueueExists(ctx, name)
		if v.abort(result, err) {
			return result
		}
		check := v.check(name, ok, err)
		result.Queues = append(result.Queues, check)
		v.metrics.SetQueuePresent(name, check.Presence == Present)
	}

	for _, ex := range def.Exchanges() {
		ok, err := v.broker.ExchangeExists(ctx, ex.Name)
		if v.abort(result, err) {
			return result
		}
		check := v.check(ex.Name, ok, err)
		result.Exchanges = append(result.Exchanges, check)
		v.metrics.SetExchangePresent(ex.Name, check.Presence == Present)
	}

	v.metrics.IncVerifications()

	if missing := result.MissingResources(); len(missing) > 0 {
		v.logger.Warn("verification found missing resources", "missing", missing)
	} else {
		v.logger.Info("verification passed", "queues", len(result.Queues), "exchanges", len(result.Exchanges))
	}

	return result
}

func (v *Verifier) check(name string, ok bool, err error) Check {
	c := Check{Name: name, Presence: Absent, Err: err}
	if ok && err == nil {
		c.Presence = Present
	}
	if err != nil {
		v.logger.Warn("verification check failed", "name", name, "error", err)
	}
	return c
}

func (v *Verifier) abort(result *Verification, err error) bool {
	if !errors.Is(err, mq.ErrConnectionLost) {
		return false
	}
	result.Aborted = true
	result.AbortErr = err
	v.logger.Error("verification aborted", "error", err)
	return true
}
