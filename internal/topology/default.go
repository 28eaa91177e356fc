package topology

// Имена фиксированной топологии.
const (
	ExchangePriority = "priority-exchange"
	ExchangeAnomaly  = "anomaly-exchange"
	ExchangeDLQ      = "dlq-exchange"

	QueueDLQ          = "dlq-queue"
	RoutingKeyDLQ     = "failed"
	QueueCritical     = "critical-priority-queue"
	QueueHigh         = "high-priority-queue"
	QueueNormal       = "normal-priority-queue"
	QueueLow          = "low-priority-queue"
	QueueBatch        = "batch-queue"
	QueueAnomaly      = "anomaly-queue"
	RoutingKeyAnomaly = "anomaly.detected"
)

// DefaultSpec возвращает топологию, на которую рассчитывают producers и consumers.
//
//	priority-exchange (topic)
//	├── critical-priority-queue [priority.critical]  255 / 1m   / 1000
//	├── high-priority-queue     [priority.high]      200 / 5m   / 5000
//	├── normal-priority-queue   [priority.normal]    100 / 10m  / 10000
//	├── low-priority-queue      [priority.low]        50 / 30m  / 20000
//	└── batch-queue             [priority.batch]      10 / 1h   / 50000
//	anomaly-exchange (direct)
//	└── anomaly-queue           [anomaly.detected]   150 / 5m   / 2000
//	dlq-exchange (direct)
//	└── dlq-queue               [failed]
func DefaultSpec() Spec {
	return Spec{
		Exchanges: []ExchangeSpec{
			{Name: ExchangePriority, Kind: KindTopic, Durable: true},
			{Name: ExchangeAnomaly, Kind: KindDirect, Durable: true},
			{Name: ExchangeDLQ, Kind: KindDirect, Durable: true},
		},
		Queues: []QueueSpec{
			{Name: QueueCritical, MaxPriority: 255, TTLMillis: 60_000, MaxLength: 1_000, RoutingKey: "priority.critical"},
			{Name: QueueHigh, MaxPriority: 200, TTLMillis: 300_000, MaxLength: 5_000, RoutingKey: "priority.high"},
			{Name: QueueNormal, MaxPriority: 100, TTLMillis: 600_000, MaxLength: 10_000, RoutingKey: "priority.normal"},
			{Name: QueueLow, MaxPriority: 50, TTLMillis: 1_800_000, MaxLength: 20_000, RoutingKey: "priority.low"},
			{Name: QueueBatch, MaxPriority: 10, TTLMillis: 3_600_000, MaxLength: 50_000, RoutingKey: "priority.batch"},
			{Name: QueueAnomaly, MaxPriority: 150, TTLMillis: 300_000, MaxLength: 2_000, RoutingKey: RoutingKeyAnomaly},
		},
		DeadLetter: DeadLetterSpec{
			QueueName:    QueueDLQ,
			ExchangeName: ExchangeDLQ,
			RoutingKey:   RoutingKeyDLQ,
		},
		Routing: RoutingSpec{
			PriorityExchange: ExchangePriority,
			AnomalyExchange:  ExchangeAnomaly,
		},
	}
}

// Default возвращает проверенную фиксированную топологию.
func Default() *Definition {
	return MustNew(DefaultSpec())
}
