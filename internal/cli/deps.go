package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/omerfehmii/izlenebilir-gorev-kuyrugu/internal/config"
	"github.com/omerfehmii/izlenebilir-gorev-kuyrugu/internal/mq"
	"github.com/omerfehmii/izlenebilir-gorev-kuyrugu/internal/provision"
	"github.com/omerfehmii/izlenebilir-gorev-kuyrugu/internal/repo"
	"github.com/omerfehmii/izlenebilir-gorev-kuyrugu/internal/report"
	"github.com/omerfehmii/izlenebilir-gorev-kuyrugu/internal/telemetry"
	"github.com/omerfehmii/izlenebilir-gorev-kuyrugu/internal/topology"
)

// AuditStore — журнал прогонов.
type AuditStore interface {
	Record(ctx context.Context, rec *repo.AuditRecord) error
	ListRecent(ctx context.Context, limit int) ([]repo.AuditRecord, error)
}

// Deps — зависимости команд.
type Deps struct {
	Config     *config.Config
	Definition *topology.Definition
	Logger     *slog.Logger
	Output     *report.Output

	// Waiter — ожидание готовности брокера.
	Waiter *mq.Waiter

	// Connect открывает новое соединение с брокером.
	Connect provision.Connector

	Registry *prometheus.Registry
	Metrics  *telemetry.Metrics

	// Audit — nil, если журнал не настроен.
	Audit AuditStore

	closers []func()
}

// NewDeps загружает конфигурацию и создаёт зависимости для реального брокера.
func NewDeps(configPath string, jsonMode bool) (*Deps, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	def, err := cfg.Definition()
	if err != nil {
		return nil, err
	}

	logger := telemetry.SetupLogger()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	url := cfg.Broker.URL()
	timeout := cfg.Broker.DialTimeout()

	d := &Deps{
		Config:     cfg,
		Definition: def,
		Logger:     logger,
		Output:     report.NewOutput(os.Stdout, os.Stderr, jsonMode),
		Waiter: mq.NewWaiter(
			mq.DialProbe(url, timeout),
			mq.FixedBackoff(cfg.Readiness.MaxAttempts, cfg.Readiness.Interval()),
			logger,
		),
		Connect: func(ctx context.Context) (mq.Broker, error) {
			return mq.Dial(url, timeout, telemetry.FromContext(ctx))
		},
		Registry: reg,
		Metrics:  telemetry.NewMetrics(reg),
	}

	return d, nil
}

// enableAudit подключает журнал, если задан DB_URL. Недоступная БД
// отключает журнал, но не мешает развёртыванию.
func (d *Deps) enableAudit(ctx context.Context) {
	if d.Audit != nil || d.Config == nil || d.Config.Audit.DBURL == "" {
		return
	}

	pool, err := repo.NewPool(ctx, d.Config.Audit.DBURL)
	if err != nil {
		d.Logger.Warn("audit log disabled", "error", err)
		return
	}

	audit := repo.NewAuditRepo(pool)
	if err := audit.EnsureSchema(ctx); err != nil {
		pool.Close()
		d.Logger.Warn("audit log disabled", "error", err)
		return
	}

	d.Audit = audit
	d.closers = append(d.closers, pool.Close)
	d.Logger.Info("audit log enabled")
}

// Pipeline возвращает конвейер ожидание → подключение → развёртывание → проверка.
func (d *Deps) Pipeline() *provision.Pipeline {
	return provision.NewPipeline(d.Waiter, d.Connect, d.Logger, d.Metrics)
}

// Close освобождает ресурсы.
func (d *Deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
	d.closers = nil
}

// logConnection пишет параметры подключения без пароля.
func (d *Deps) logConnection() {
	if d.Config == nil {
		return
	}
	b := d.Config.Broker
	d.Logger.Info("connection settings",
		"host", b.Host,
		"port", b.Port,
		"vhost", b.VHost,
		"username", b.Username,
		"management_url", fmt.Sprintf("http://%s:15672", b.Host),
	)
}

// record сохраняет прогон в журнал, если он настроен.
// Ошибка журнала только логируется.
func (d *Deps) record(ctx context.Context, command string, out *provision.Outcome, started time.Time, summary report.Summary) {
	if d.Audit == nil {
		return
	}

	rec, err := repo.NewAuditRecord(command, out, started, time.Now(), summary)
	if err == nil {
		err = d.Audit.Record(ctx, rec)
	}
	if err != nil {
		d.Logger.Warn("failed to record run", "run_id", out.RunID, "error", err)
	}
}
