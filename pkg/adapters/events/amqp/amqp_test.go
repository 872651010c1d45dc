package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/aescanero/ordo/pkg/ports"
)

// fakeChannel routes published messages to consumers bound on the same key
type fakeChannel struct {
	mu        sync.Mutex
	exchanges []string
	bindings  map[string]string // queue -> key
	consumers map[string]chan amqp.Delivery
	queues    map[string]string // consumer tag -> queue
	acker     *acker
	closed    bool
	n         int
}

type acker struct {
	mu     sync.Mutex
	acks   int
	nacks  int
	events chan struct{}
}

func (a *acker) Ack(tag uint64, multiple bool) error {
	a.mu.Lock()
	a.acks++
	a.mu.Unlock()
	a.events <- struct{}{}
	return nil
}

func (a *acker) Nack(tag uint64, multiple, requeue bool) error {
	a.mu.Lock()
	a.nacks++
	a.mu.Unlock()
	a.events <- struct{}{}
	return nil
}

func (a *acker) Reject(tag uint64, requeue bool) error { return nil }

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		bindings:  make(map[string]string),
		consumers: make(map[string]chan amqp.Delivery),
		queues:    make(map[string]string),
		acker:     &acker{events: make(chan struct{}, 10)},
	}
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	f.exchanges = append(f.exchanges, name+"/"+kind)
	return nil
}

func (f *fakeChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.n++
	return amqp.Queue{Name: "q" + string(rune('0'+f.n))}, nil
}

func (f *fakeChannel) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bindings[name] = key
	return nil
}

func (f *fakeChannel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan amqp.Delivery, 10)
	f.consumers[consumer] = ch
	f.queues[consumer] = queue
	return ch, nil
}

func (f *fakeChannel) Cancel(consumer string, noWait bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ch, ok := f.consumers[consumer]; ok {
		close(ch)
		delete(f.consumers, consumer)
	}
	return nil
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for tag, ch := range f.consumers {
		if f.bindings[f.queues[tag]] == key {
			ch <- amqp.Delivery{Acknowledger: f.acker, Body: msg.Body, MessageId: msg.MessageId}
		}
	}
	return nil
}

func (f *fakeChannel) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for tag, ch := range f.consumers {
		close(ch)
		delete(f.consumers, tag)
	}
	f.closed = true
	return nil
}

func waitAck(t *testing.T, a *acker) {
	t.Helper()
	select {
	case <-a.events:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for ack")
	}
}

func TestNewEventBusDeclaresExchange(t *testing.T) {
	ch := newFakeChannel()
	if _, err := NewEventBus(ch, "", zap.NewNop()); err != nil {
		t.Fatalf("NewEventBus() error = %v", err)
	}
	if len(ch.exchanges) != 1 || ch.exchanges[0] != DefaultExchange+"/topic" {
		t.Errorf("exchanges = %v", ch.exchanges)
	}
}

func TestPublishSubscribe(t *testing.T) {
	ch := newFakeChannel()
	bus, err := NewEventBus(ch, "", zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer bus.Close()

	got := make(chan ports.Event, 1)
	err = bus.Subscribe(context.Background(), "design", func(ctx context.Context, e ports.Event) error {
		got <- e
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	if err := bus.Publish(context.Background(), "design", ports.Event{ID: "e1", Type: ports.EventTypeLefRead}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case e := <-got:
		if e.ID != "e1" || e.Type != ports.EventTypeLefRead {
			t.Errorf("event = %+v", e)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
	waitAck(t, ch.acker)
	if ch.acker.acks != 1 {
		t.Errorf("acks = %d, want 1", ch.acker.acks)
	}
}

func TestHandlerFailureRequeues(t *testing.T) {
	ch := newFakeChannel()
	bus, _ := NewEventBus(ch, "", zap.NewNop())
	defer bus.Close()

	bus.Subscribe(context.Background(), "design", func(ctx context.Context, e ports.Event) error {
		return errors.New("busy")
	})
	bus.Publish(context.Background(), "design", ports.Event{ID: "e1"})

	waitAck(t, ch.acker)
	if ch.acker.nacks != 1 {
		t.Errorf("nacks = %d, want 1", ch.acker.nacks)
	}
}

func TestMalformedDeliveryDropped(t *testing.T) {
	bus, _ := NewEventBus(newFakeChannel(), "", zap.NewNop())
	a := &acker{events: make(chan struct{}, 2)}

	called := false
	bus.handleDelivery(context.Background(), amqp.Delivery{Acknowledger: a, Body: []byte("{")}, func(ctx context.Context, e ports.Event) error {
		called = true
		return nil
	})
	if called || a.nacks != 1 {
		t.Errorf("called = %v, nacks = %d", called, a.nacks)
	}

	body, _ := json.Marshal(ports.Event{ID: "ok"})
	bus.handleDelivery(context.Background(), amqp.Delivery{Acknowledger: a, Body: body}, func(ctx context.Context, e ports.Event) error {
		return nil
	})
	if a.acks != 1 {
		t.Errorf("acks = %d, want 1", a.acks)
	}
}

func TestUnsubscribeAndClose(t *testing.T) {
	ch := newFakeChannel()
	bus, _ := NewEventBus(ch, "", zap.NewNop())
	bus.Subscribe(context.Background(), "design", func(ctx context.Context, e ports.Event) error { return nil })

	if err := bus.Unsubscribe(context.Background(), "design"); err != nil {
		t.Fatalf("Unsubscribe() error = %v", err)
	}
	if len(ch.consumers) != 0 {
		t.Errorf("consumers = %d after Unsubscribe", len(ch.consumers))
	}
	if err := bus.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !ch.closed {
		t.Error("channel not closed")
	}
}
