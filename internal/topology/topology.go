package topology

import (
	"fmt"
	"slices"
	"strings"
)

// ExchangeKind — тип обменника.
type ExchangeKind string

const (
	// KindTopic — маршрутизация по шаблону ключа.
	KindTopic ExchangeKind = "topic"

	// KindDirect — маршрутизация по точному совпадению ключа.
	KindDirect ExchangeKind = "direct"
)

// OverflowPolicy — поведение очереди при достижении max-length.
type OverflowPolicy string

// OverflowRejectPublish — новые публикации отклоняются брокером.
const OverflowRejectPublish OverflowPolicy = "reject-publish"

// AnomalyMarker — подстрока имени, которая направляет очередь в anomaly-exchange.
const AnomalyMarker = "anomaly"

// ExchangeSpec — описание обменника.
type ExchangeSpec struct {
	Name    string       `yaml:"name" json:"name"`
	Kind    ExchangeKind `yaml:"kind" json:"kind"`
	Durable bool         `yaml:"durable" json:"durable"`
}

// QueueSpec — описание приоритетной очереди.
type QueueSpec struct {
	Name        string         `yaml:"name" json:"name"`
	MaxPriority int            `yaml:"max_priority" json:"max_priority"`
	TTLMillis   int            `yaml:"ttl_ms" json:"ttl_ms"`
	MaxLength   int            `yaml:"max_length" json:"max_length"`
	RoutingKey  string         `yaml:"routing_key" json:"routing_key"`
	Overflow    OverflowPolicy `yaml:"overflow" json:"overflow"`
}

// DeadLetterSpec — единственная DLQ, куда уходят отклонённые,
// просроченные и вытесненные сообщения всех очередей.
type DeadLetterSpec struct {
	QueueName    string `yaml:"queue" json:"queue"`
	ExchangeName string `yaml:"exchange" json:"exchange"`
	RoutingKey   string `yaml:"routing_key" json:"routing_key"`
}

// RoutingSpec — обменники, между которыми распределяются очереди.
type RoutingSpec struct {
	PriorityExchange string `yaml:"priority_exchange" json:"priority_exchange"`
	AnomalyExchange  string `yaml:"anomaly_exchange" json:"anomaly_exchange"`
}

// Binding — привязка очереди к обменнику. Не хранится, вычисляется из Definition.
type Binding struct {
	Exchange   string `json:"exchange"`
	Queue      string `json:"queue"`
	RoutingKey string `json:"routing_key"`
}

// String возвращает представление привязки для логов и отчётов.
func (b Binding) String() string {
	return fmt.Sprintf("%s -> %s [%s]", b.Exchange, b.Queue, b.RoutingKey)
}

// Spec — исходная конфигурация топологии (из кода или YAML).
type Spec struct {
	Exchanges  []ExchangeSpec `yaml:"exchanges"`
	Queues     []QueueSpec    `yaml:"queues"`
	DeadLetter DeadLetterSpec `yaml:"dead_letter"`
	Routing    RoutingSpec    `yaml:"routing"`
}

// Definition — проверенная неизменяемая топология.
//
// Все методы возвращают копии, поэтому значение безопасно передавать
// между этапами без риска изменения.
type Definition struct {
	exchanges  []ExchangeSpec
	queues     []QueueSpec
	deadLetter DeadLetterSpec
	routing    RoutingSpec
}

// New проверяет spec и создаёт Definition.
// Пустая политика переполнения заменяется на reject-publish.
func New(spec Spec) (*Definition, error) {
	queues := slices.Clone(spec.Queues)
	for i := range queues {
		if queues[i].Overflow == "" {
			queues[i].Overflow = OverflowRejectPublish
		}
	}

	def := &Definition{
		exchanges:  slices.Clone(spec.Exchanges),
		queues:     queues,
		deadLetter: spec.DeadLetter,
		routing:    spec.Routing,
	}

	if err := def.validate(); err != nil {
		return nil, err
	}

	return def, nil
}

// MustNew — как New, но паникует при ошибке. Для фиксированных топологий.
func MustNew(spec Spec) *Definition {
	def, err := New(spec)
	if err != nil {
		panic(err)
	}
	return def
}

// Exchanges возвращает обменники в порядке объявления.
func (d *Definition) Exchanges() []ExchangeSpec {
	return slices.Clone(d.exchanges)
}

// Queues возвращает приоритетные очереди (без DLQ) в порядке объявления.
func (d *Definition) Queues() []QueueSpec {
	return slices.Clone(d.queues)
}

// DeadLetter возвращает описание DLQ.
func (d *Definition) DeadLetter() DeadLetterSpec {
	return d.deadLetter
}

// Routing возвращает обменники маршрутизации.
func (d *Definition) Routing() RoutingSpec {
	return d.routing
}

// Exchange ищет обменник по имени.
func (d *Definition) Exchange(name string) (ExchangeSpec, bool) {
	for _, ex := range d.exchanges {
		if ex.Name == name {
			return ex, true
		}
	}
	return ExchangeSpec{}, false
}

// Queue ищет приоритетную очередь по имени.
func (d *Definition) Queue(name string) (QueueSpec, bool) {
	for _, q := range d.queues {
		if q.Name == name {
			return q, true
		}
	}
	return QueueSpec{}, false
}

// QueueNames возвращает имена всех очередей: приоритетные, затем DLQ.
func (d *Definition) QueueNames() []string {
	names := make([]string, 0, len(d.queues)+1)
	for _, q := range d.queues {
		names = append(names, q.Name)
	}
	return append(names, d.deadLetter.QueueName)
}

// IsAnomaly сообщает, относится ли очередь к anomaly-маршруту.
// Сравнение регистрозависимое.
func IsAnomaly(queueName string) bool {
	return strings.Contains(queueName, AnomalyMarker)
}

// Classify возвращает целевой обменник для очереди.
func (d *Definition) Classify(queueName string) string {
	if IsAnomaly(queueName) {
		return d.routing.AnomalyExchange
	}
	return d.routing.PriorityExchange
}

// DeadLetterBinding возвращает привязку DLQ к её обменнику.
func (d *Definition) DeadLetterBinding() Binding {
	return Binding{
		Exchange:   d.deadLetter.ExchangeName,
		Queue:      d.deadLetter.QueueName,
		RoutingKey: d.deadLetter.RoutingKey,
	}
}

// BindingFor возвращает привязку приоритетной очереди.
func (d *Definition) BindingFor(q QueueSpec) Binding {
	return Binding{
		Exchange:   d.Classify(q.Name),
		Queue:      q.Name,
		RoutingKey: q.RoutingKey,
	}
}

// Bindings возвращает все привязки: сначала DLQ, затем очереди по порядку.
func (d *Definition) Bindings() []Binding {
	bindings := make([]Binding, 0, len(d.queues)+1)
	bindings = append(bindings, d.DeadLetterBinding())
	for _, q := range d.queues {
		bindings = append(bindings, d.BindingFor(q))
	}
	return bindings
}

// validate проверяет инварианты топологии.
func (d *Definition) validate() error {
	exchanges := make(map[string]struct{}, len(d.exchanges))
	for _, ex := range d.exchanges {
		if ex.Name == "" {
			return newValidationError("", "exchange.name", ErrEmptyName)
		}
		if _, ok := exchanges[ex.Name]; ok {
			return newValidationError(ex.Name, "exchange.name", ErrDuplicateExchange)
		}
		switch ex.Kind {
		case KindTopic, KindDirect:
		default:
			return newValidationError(ex.Name, "exchange.kind", ErrInvalidExchangeKind)
		}
		exchanges[ex.Name] = struct{}{}
	}

	refs := []struct {
		field string
		name  string
	}{
		{"dead_letter.exchange", d.deadLetter.ExchangeName},
		{"routing.priority_exchange", d.routing.PriorityExchange},
		{"routing.anomaly_exchange", d.routing.AnomalyExchange},
	}
	for _, ref := range refs {
		if _, ok := d.Exchange(ref.name); !ok {
			return newValidationError(ref.name, ref.field, ErrUnknownExchange)
		}
	}

	if d.deadLetter.QueueName == "" {
		return newValidationError("", "dead_letter.queue", ErrEmptyName)
	}
	if d.deadLetter.RoutingKey == "" {
		return newValidationError(d.deadLetter.QueueName, "dead_letter.routing_key", ErrEmptyRoutingKey)
	}

	queues := make(map[string]struct{}, len(d.queues))
	for _, q := range d.queues {
		if err := validateQueue(q); err != nil {
			return err
		}
		if q.Name == d.deadLetter.QueueName {
			return newValidationError(q.Name, "queue.name", ErrQueueNameCollision)
		}
		if _, ok := queues[q.Name]; ok {
			return newValidationError(q.Name, "queue.name", ErrDuplicateQueue)
		}
		queues[q.Name] = struct{}{}
	}

	return nil
}

func validateQueue(q QueueSpec) error {
	if q.Name == "" {
		return newValidationError("", "queue.name", ErrEmptyName)
	}
	if q.MaxPriority < 1 || q.MaxPriority > 255 {
		return newValidationError(q.Name, "queue.max_priority", ErrInvalidPriority)
	}
	if q.TTLMillis <= 0 {
		return newValidationError(q.Name, "queue.ttl_ms", ErrInvalidTTL)
	}
	if q.MaxLength <= 0 {
		return newValidationError(q.Name, "queue.max_length", ErrInvalidMaxLength)
	}
	if q.RoutingKey == "" {
		return newValidationError(q.Name, "queue.routing_key", ErrEmptyRoutingKey)
	}
	if q.Overflow != OverflowRejectPublish {
		return newValidationError(q.Name, "queue.overflow", ErrInvalidOverflow)
	}
	return nil
}
