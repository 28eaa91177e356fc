package mq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/omerfehmii/izlenebilir-gorev-kuyrugu/internal/topology"
)

// DefaultDialTimeout — таймаут установки TCP-соединения.
const DefaultDialTimeout = 5 * time.Second

// Connection — соединение с RabbitMQ и текущий канал.
//
// Особенности:
//   - Один канал, все вызовы последовательные
//   - Канал переоткрывается после исключения уровня канала
//   - Переподключения нет: разрыв соединения завершает прогон
type Connection struct {
	logger *slog.Logger

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

// dialConfig возвращает конфигурацию AMQP с таймаутом подключения.
func dialConfig(timeout time.Duration) amqp.Config {
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}
	return amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(timeout),
	}
}

// Dial устанавливает соединение с RabbitMQ и открывает канал.
func Dial(url string, timeout time.Duration, logger *slog.Logger) (*Connection, error) {
	conn, err := amqp.DialConfig(url, dialConfig(timeout))
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	logger.Info("connected to RabbitMQ")

	return &Connection{
		logger:  logger,
		conn:    conn,
		channel: ch,
	}, nil
}

// DialProbe возвращает пробу готовности: подключиться и сразу закрыть соединение.
func DialProbe(url string, timeout time.Duration) ProbeFunc {
	return func(_ context.Context) error {
		conn, err := amqp.DialConfig(url, dialConfig(timeout))
		if err != nil {
			return fmt.Errorf("dial amqp: %w", err)
		}
		return conn.Close()
	}
}

// DeclareExchange объявляет обменник.
func (c *Connection) DeclareExchange(_ context.Context, ex topology.ExchangeSpec) error {
	return c.withChannel(func(ch *amqp.Channel) error {
		return ch.ExchangeDeclare(
			ex.Name,         // name
			string(ex.Kind), // type
			ex.Durable,      // durable
			false,           // auto-deleted
			false,           // internal
			false,           // no-wait
			nil,             // arguments
		)
	})
}

// DeclareQueue объявляет durable очередь.
func (c *Connection) DeclareQueue(_ context.Context, name string, args topology.QueueArguments) error {
	return c.withChannel(func(ch *amqp.Channel) error {
		_, err := ch.QueueDeclare(
			name,             // name
			true,             // durable
			false,            // delete when unused
			false,            // exclusive
			false,            // no-wait
			amqp.Table(args), // arguments
		)
		return err
	})
}

// BindQueue привязывает очередь к обменнику.
func (c *Connection) BindQueue(_ context.Context, b topology.Binding) error {
	return c.withChannel(func(ch *amqp.Channel) error {
		return ch.QueueBind(
			b.Queue,      // queue name
			b.RoutingKey, // routing key
			b.Exchange,   // exchange
			false,        // no-wait
			nil,          // arguments
		)
	})
}

// QueueExists пассивно проверяет наличие очереди.
func (c *Connection) QueueExists(_ context.Context, name string) (bool, error) {
	err := c.withChannel(func(ch *amqp.Channel) error {
		_, err := ch.QueueDeclarePassive(name, true, false, false, false, nil)
		return err
	})
	return existence(err)
}

// ExchangeExists пассивно проверяет наличие обменника.
func (c *Connection) ExchangeExists(_ context.Context, name string) (bool, error) {
	err := c.withChannel(func(ch *amqp.Channel) error {
		// Тип и флаги при пассивной проверке брокер не сравнивает
		return ch.ExchangeDeclarePassive(name, "direct", true, false, false, false, nil)
	})
	return existence(err)
}

// existence переводит результат пассивной проверки в (есть/нет, ошибка).
func existence(err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// Close закрывает канал и соединение.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error

	if c.channel != nil && !c.channel.IsClosed() {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close channel: %w", err))
		}
	}
	c.channel = nil

	if c.conn != nil && !c.conn.IsClosed() {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close connection: %w", err))
		}
	}
	c.conn = nil

	if len(errs) > 0 {
		return errs[0]
	}

	c.logger.Info("connection closed")
	return nil
}

// withChannel выполняет fn на живом канале и классифицирует ошибку.
func (c *Connection) withChannel(fn func(ch *amqp.Channel) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch, err := c.channelLocked()
	if err != nil {
		return err
	}

	return c.classify(fn(ch))
}

// channelLocked возвращает открытый канал, переоткрывая его при необходимости.
func (c *Connection) channelLocked() (*amqp.Channel, error) {
	if c.conn == nil || c.conn.IsClosed() {
		return nil, ErrConnectionLost
	}

	if c.channel == nil || c.channel.IsClosed() {
		ch, err := c.conn.Channel()
		if err != nil {
			return nil, fmt.Errorf("%w: open channel: %w", ErrConnectionLost, err)
		}
		c.logger.Debug("channel reopened")
		c.channel = ch
	}

	return c.channel, nil
}

// classify сопоставляет ошибку AMQP с ошибками пакета.
func (c *Connection) classify(err error) error {
	if err == nil {
		return nil
	}

	if c.conn == nil || c.conn.IsClosed() {
		return fmt.Errorf("%w: %w", ErrConnectionLost, err)
	}

	var amqpErr *amqp.Error
	if errors.As(err, &amqpErr) {
		switch amqpErr.Code {
		case amqp.PreconditionFailed:
			return fmt.Errorf("%w: %w", ErrConflict, err)
		case amqp.NotFound:
			return fmt.Errorf("%w: %w", ErrNotFound, err)
		}
	}

	return err
}

// Compile-time check that Connection satisfies Broker.
var _ Broker = (*Connection)(nil)
