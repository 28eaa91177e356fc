package provision

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/omerfehmii/izlenebilir-gorev-kuyrugu/internal/mq"
	"github.com/omerfehmii/izlenebilir-gorev-kuyrugu/internal/telemetry"
	"github.com/omerfehmii/izlenebilir-gorev-kuyrugu/internal/topology"
)

// Connector открывает соединение с брокером после проверки готовности.
// Логгер прогона доступен через telemetry.FromContext(ctx).
type Connector func(ctx context.Context) (mq.Broker, error)

// Outcome — результат одного прогона.
type Outcome struct {
	RunID    string `json:"run_id"`
	Attempts int    `json:"readiness_attempts"`

	// Provision — nil для прогона только с проверкой.
	Provision *Report `json:"provision,omitempty"`

	// Verification — nil, если развёртывание прервано разрывом соединения.
	Verification *Verification `json:"verification,omitempty"`
}

// Pipeline связывает ожидание готовности, развёртывание и проверку.
type Pipeline struct {
	waiter  *mq.Waiter
	connect Connector
	logger  *slog.Logger
	metrics *telemetry.Metrics
}

// NewPipeline создаёт Pipeline. metrics может быть nil.
func NewPipeline(waiter *mq.Waiter, connect Connector, logger *slog.Logger, metrics *telemetry.Metrics) *Pipeline {
	return &Pipeline{
		waiter:  waiter,
		connect: connect,
		logger:  logger,
		metrics: metrics,
	}
}

// Setup: ожидание → подключение → развёртывание → проверка.
//
// Ошибка возвращается, только если брокер не стал доступен или соединение
// не открылось. Ошибки отдельных ресурсов остаются в Outcome.
func (p *Pipeline) Setup(ctx context.Context, def *topology.Definition) (*Outcome, error) {
	return p.run(ctx, def, true)
}

// Check: ожидание → подключение → проверка, без объявлений.
func (p *Pipeline) Check(ctx context.Context, def *topology.Definition) (*Outcome, error) {
	return p.run(ctx, def, false)
}

func (p *Pipeline) run(ctx context.Context, def *topology.Definition, provision bool) (*Outcome, error) {
	out := &Outcome{RunID: uuid.New().String()}
	logger := telemetry.WithRunID(p.logger, out.RunID)
	ctx = telemetry.WithLogger(ctx, logger)

	attempts, err := p.waiter.WaitUntilReady(ctx)
	out.Attempts = attempts
	p.metrics.SetReadinessAttempts(attempts)
	if err != nil {
		return out, err
	}

	broker, err := p.connect(ctx)
	if err != nil {
		return out, fmt.Errorf("connect to broker: %w", err)
	}
	defer func() {
		if err := broker.Close(); err != nil {
			logger.Warn("failed to close broker connection", "error", err)
		}
	}()

	if provision {
		out.Provision = NewProvisioner(broker, logger, p.metrics).Provision(ctx, def)
		if out.Provision.Aborted {
			return out, nil
		}
	}

	out.Verification = NewVerifier(broker, logger, p.metrics).Verify(ctx, def)
	return out, nil
}
