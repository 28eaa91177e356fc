package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics — метрики развёртывания и проверки топологии.
//
// Nil-значение *Metrics допустимо: все методы становятся no-op.
type Metrics struct {
	resources       *prometheus.CounterVec
	queuePresent    *prometheus.GaugeVec
	exchangePresent *prometheus.GaugeVec
	readiness       prometheus.Gauge
	runDuration     prometheus.Histogram
	verifications   prometheus.Counter
}

// NewMetrics регистрирует метрики в reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		resources: f.NewCounterVec(prometheus.CounterOpts{
			Name: "topology_provision_resources_total",
			Help: "Resources processed by the provisioner, by kind and status",
		}, []string{"kind", "status"}),
		queuePresent: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "topology_queue_present",
			Help: "1 if the queue was found by the last verification, 0 otherwise",
		}, []string{"queue"}),
		exchangePresent: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "topology_exchange_present",
			Help: "1 if the exchange was found by the last verification, 0 otherwise",
		}, []string{"exchange"}),
		readiness: f.NewGauge(prometheus.GaugeOpts{
			Name: "topology_readiness_attempts",
			Help: "Probe attempts used by the last readiness wait",
		}),
		runDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "topology_provision_duration_seconds",
			Help:    "Duration of provisioning runs",
			Buckets: prometheus.DefBuckets,
		}),
		verifications: f.NewCounter(prometheus.CounterOpts{
			Name: "topology_verifications_total",
			Help: "Completed verification passes",
		}),
	}
}

// ObserveResource учитывает обработанный ресурс.
func (m *Metrics) ObserveResource(kind, status string) {
	if m == nil {
		return
	}
	m.resources.WithLabelValues(kind, status).Inc()
}

// SetQueuePresent фиксирует результат проверки очереди.
func (m *Metrics) SetQueuePresent(queue string, present bool) {
	if m == nil {
		return
	}
	m.queuePresent.WithLabelValues(queue).Set(boolToFloat(present))
}

// SetExchangePresent фиксирует результат проверки обменника.
func (m *Metrics) SetExchangePresent(exchange string, present bool) {
	if m == nil {
		return
	}
	m.exchangePresent.WithLabelValues(exchange).Set(boolToFloat(present))
}

// SetReadinessAttempts фиксирует число попыток ожидания брокера.
func (m *Metrics) SetReadinessAttempts(n int) {
	if m == nil {
		return
	}
	m.readiness.Set(float64(n))
}

// ObserveRun учитывает длительность прогона развёртывания.
func (m *Metrics) ObserveRun(d time.Duration) {
	if m == nil {
		return
	}
	m.runDuration.Observe(d.Seconds())
}

// IncVerifications учитывает завершённый проход проверки.
func (m *Metrics) IncVerifications() {
	if m == nil {
		return
	}
	m.verifications.Inc()
}

func boolToFloat(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
