package mq

import (
	"context"

	"github.com/omerfehmii/izlenebilir-gorev-kuyrugu/internal/topology"
)

// Broker — операции брокера, нужные для развёртывания топологии.
//
// Повторное объявление с теми же параметрами — no-op на стороне брокера,
// с другими — ErrConflict.
type Broker interface {
	// DeclareExchange объявляет обменник.
	DeclareExchange(ctx context.Context, ex topology.ExchangeSpec) error

	// DeclareQueue объявляет durable очередь с аргументами (nil — без аргументов).
	DeclareQueue(ctx context.Context, name string, args topology.QueueArguments) error

	// BindQueue привязывает очередь к обменнику.
	BindQueue(ctx context.Context, b topology.Binding) error

	// QueueExists выполняет пассивную проверку очереди без побочных эффектов.
	QueueExists(ctx context.Context, name string) (bool, error)

	// ExchangeExists выполняет пассивную проверку обменника.
	ExchangeExists(ctx context.Context, name string) (bool, error)

	// Close закрывает соединение.
	Close() error
}
