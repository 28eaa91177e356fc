package mq

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/omerfehmii/izlenebilir-gorev-kuyrugu/internal/topology"
)

// MockBroker — in-memory реализация Broker для тестов.
//
// Повторяет семантику объявлений RabbitMQ: совпадающие параметры — no-op,
// расходящиеся — ErrConflict; привязка требует существующих обменника и
// очереди. Ошибки отдельных ресурсов и разрыв соединения можно внедрить.
type MockBroker struct {
	mu sync.Mutex

	Exchanges map[string]topology.ExchangeSpec
	Queues    map[string]topology.QueueArguments
	Bindings  map[topology.Binding]int // привязка -> число вызовов bind

	// Calls — журнал вызовов в порядке поступления, например "declare-queue:q".
	Calls []string

	// QueueDeclares — число вызовов declare-queue по имени очереди.
	QueueDeclares map[string]int

	// Внедрение ошибок по имени ресурса (для привязок — по имени очереди).
	ExchangeErrs map[string]error
	QueueErrs    map[string]error
	BindErrs     map[string]error
	CheckErrs    map[string]error

	// DropAfter — после стольких вызовов соединение считается разорванным
	// (0 — никогда).
	DropAfter int

	Closed bool
}

// NewMockBroker возвращает пустой MockBroker.
func NewMockBroker() *MockBroker {
	return &MockBroker{
		Exchanges:     make(map[string]topology.ExchangeSpec),
		Queues:        make(map[string]topology.QueueArguments),
		Bindings:      make(map[topology.Binding]int),
		QueueDeclares: make(map[string]int),
		ExchangeErrs:  make(map[string]error),
		QueueErrs:     make(map[string]error),
		BindErrs:      make(map[string]error),
		CheckErrs:     make(map[string]error),
	}
}

// call регистрирует вызов и проверяет состояние соединения.
func (m *MockBroker) call(op, name string) error {
	if m.Closed {
		return ErrConnectionLost
	}
	if m.DropAfter > 0 && len(m.Calls) >= m.DropAfter {
		m.Closed = true
		return fmt.Errorf("%w: simulated drop before %s %s", ErrConnectionLost, op, name)
	}
	m.Calls = append(m.Calls, op+":"+name)
	return nil
}

func (m *MockBroker) DeclareExchange(_ context.Context, ex topology.ExchangeSpec) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.call("declare-exchange", ex.Name); err != nil {
		return err
	}
	if err := m.ExchangeErrs[ex.Name]; err != nil {
		return err
	}

	if existing, ok := m.Exchanges[ex.Name]; ok {
		if existing != ex {
			return fmt.Errorf("%w: inequivalent arg for exchange %q", ErrConflict, ex.Name)
		}
		return nil
	}

	m.Exchanges[ex.Name] = ex
	return nil
}

func (m *MockBroker) DeclareQueue(_ context.Context, name string, args topology.QueueArguments) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.call("declare-queue", name); err != nil {
		return err
	}
	m.QueueDeclares[name]++
	if err := m.QueueErrs[name]; err != nil {
		return err
	}

	if existing, ok := m.Queues[name]; ok {
		if !sameArguments(existing, args) {
			return fmt.Errorf("%w: inequivalent arg for queue %q", ErrConflict, name)
		}
		return nil
	}

	m.Queues[name] = args
	return nil
}

func (m *MockBroker) BindQueue(_ context.Context, b topology.Binding) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.call("bind-queue", b.Queue); err != nil {
		return err
	}
	if err := m.BindErrs[b.Queue]; err != nil {
		return err
	}
	if _, ok := m.Exchanges[b.Exchange]; !ok {
		return fmt.Errorf("%w: no exchange %q", ErrNotFound, b.Exchange)
	}
	if _, ok := m.Queues[b.Queue]; !ok {
		return fmt.Errorf("%w: no queue %q", ErrNotFound, b.Queue)
	}

	m.Bindings[b]++
	return nil
}

func (m *MockBroker) QueueExists(_ context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.call("check-queue", name); err != nil {
		return false, err
	}
	if err := m.CheckErrs[name]; err != nil {
		return false, err
	}

	_, ok := m.Queues[name]
	return ok, nil
}

func (m *MockBroker) ExchangeExists(_ context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.call("check-exchange", name); err != nil {
		return false, err
	}
	if err := m.CheckErrs[name]; err != nil {
		return false, err
	}

	_, ok := m.Exchanges[name]
	return ok, nil
}

func (m *MockBroker) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Closed = true
	return nil
}

// Reopen — тестовый хелпер: «новое соединение» к тому же состоянию брокера.
func (m *MockBroker) Reopen() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Closed = false
	m.DropAfter = 0
	m.Calls = nil
}

// HasBinding сообщает, существует ли привязка.
func (m *MockBroker) HasBinding(b topology.Binding) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.Bindings[b]
	return ok
}

// CallCount возвращает число зарегистрированных вызовов.
func (m *MockBroker) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.Calls)
}

// sameArguments сравнивает аргументы; nil и пустой набор равны.
func sameArguments(a, b topology.QueueArguments) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}

// Compile-time check that MockBroker satisfies Broker.
var _ Broker = (*MockBroker)(nil)
