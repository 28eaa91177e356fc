package mq

import (
	"context"
	"errors"
	"testing"

	"github.com/omerfehmii/izlenebilir-gorev-kuyrugu/internal/topology"
)

func TestMockBroker_RedeclareIdenticalIsNoop(t *testing.T) {
	m := NewMockBroker()
	ctx := context.Background()
	ex := topology.ExchangeSpec{Name: "ex", Kind: topology.KindTopic, Durable: true}
	args := topology.QueueArguments{topology.ArgMaxPriority: 10}

	for i := 0; i < 2; i++ {
		if err := m.DeclareExchange(ctx, ex); err != nil {
			t.Fatalf("DeclareExchange() #%d: %v", i, err)
		}
		if err := m.DeclareQueue(ctx, "q", args); err != nil {
			t.Fatalf("DeclareQueue() #%d: %v", i, err)
		}
	}

	if len(m.Exchanges) != 1 || len(m.Queues) != 1 {
		t.Errorf("expected single resources, got %d exchanges %d queues", len(m.Exchanges), len(m.Queues))
	}
	if m.QueueDeclares["q"] != 2 {
		t.Errorf("expected 2 declare calls, got %d", m.QueueDeclares["q"])
	}
}

func TestMockBroker_Conflicts(t *testing.T) {
	m := NewMockBroker()
	ctx := context.Background()

	_ = m.DeclareExchange(ctx, topology.ExchangeSpec{Name: "ex", Kind: topology.KindTopic, Durable: true})
	err := m.DeclareExchange(ctx, topology.ExchangeSpec{Name: "ex", Kind: topology.KindDirect, Durable: true})
	if !errors.Is(err, ErrConflict) {
		t.Errorf("expected exchange conflict, got %v", err)
	}

	_ = m.DeclareQueue(ctx, "q", topology.QueueArguments{topology.ArgMaxPriority: 10})
	err = m.DeclareQueue(ctx, "q", topology.QueueArguments{topology.ArgMaxPriority: 20})
	if !errors.Is(err, ErrConflict) {
		t.Errorf("expected queue conflict, got %v", err)
	}
}

func TestMockBroker_BindRequiresResources(t *testing.T) {
	m := NewMockBroker()
	ctx := context.Background()
	b := topology.Binding{Exchange: "ex", Queue: "q", RoutingKey: "k"}

	if err := m.BindQueue(ctx, b); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	_ = m.DeclareExchange(ctx, topology.ExchangeSpec{Name: "ex", Kind: topology.KindDirect})
	_ = m.DeclareQueue(ctx, "q", nil)

	if err := m.BindQueue(ctx, b); err != nil {
		t.Fatalf("BindQueue() unexpected error: %v", err)
	}
	if !m.HasBinding(b) {
		t.Error("expected binding to exist")
	}
}

func TestMockBroker_PassiveChecks(t *testing.T) {
	m := NewMockBroker()
	ctx := context.Background()
	_ = m.DeclareQueue(ctx, "q", nil)

	ok, err := m.QueueExists(ctx, "q")
	if err != nil || !ok {
		t.Errorf("expected queue present, got %v %v", ok, err)
	}
	ok, err = m.QueueExists(ctx, "missing")
	if err != nil || ok {
		t.Errorf("expected queue absent, got %v %v", ok, err)
	}
	if len(m.Queues) != 1 {
		t.Error("passive check must not create queues")
	}
}

func TestMockBroker_DropAfter(t *testing.T) {
	m := NewMockBroker()
	m.DropAfter = 1
	ctx := context.Background()

	if err := m.DeclareQueue(ctx, "a", nil); err != nil {
		t.Fatalf("first call should succeed: %v", err)
	}
	if err := m.DeclareQueue(ctx, "b", nil); !errors.Is(err, ErrConnectionLost) {
		t.Fatalf("expected ErrConnectionLost, got %v", err)
	}
	if _, err := m.QueueExists(ctx, "a"); !errors.Is(err, ErrConnectionLost) {
		t.Fatalf("connection should stay closed, got %v", err)
	}

	m.Reopen()
	if ok, err := m.QueueExists(ctx, "a"); err != nil || !ok {
		t.Errorf("state should survive reopen, got %v %v", ok, err)
	}
}
