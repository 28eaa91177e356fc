package topology

// Ключи аргументов очереди RabbitMQ.
const (
	ArgMaxPriority          = "x-max-priority"
	ArgMessageTTL           = "x-message-ttl"
	ArgMaxLength            = "x-max-length"
	ArgDeadLetterExchange   = "x-dead-letter-exchange"
	ArgDeadLetterRoutingKey = "x-dead-letter-routing-key"
	ArgOverflow             = "x-overflow"
)

// QueueArguments — аргументы, с которыми очередь объявляется на брокере.
//
// При повторном запуске аргументы должны совпадать байт в байт,
// иначе брокер ответит PRECONDITION_FAILED.
type QueueArguments map[string]any

// Arguments вычисляет аргументы приоритетной очереди.
// Результат содержит ровно шесть ключей.
func (d *Definition) Arguments(q QueueSpec) QueueArguments {
	overflow := q.Overflow
	if overflow == "" {
		overflow = OverflowRejectPublish
	}

	return QueueArguments{
		ArgMaxPriority:          q.MaxPriority,
		ArgMessageTTL:           q.TTLMillis,
		ArgMaxLength:            q.MaxLength,
		ArgDeadLetterExchange:   d.deadLetter.ExchangeName,
		ArgDeadLetterRoutingKey: d.deadLetter.RoutingKey,
		ArgOverflow:             string(overflow),
	}
}
