package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/aescanero/ordo/pkg/ports"
	"go.uber.org/zap"
)

const queueSize = 64

// ErrClosed is returned when subscribing to a closed bus
var ErrClosed = errors.New("event bus closed")

type subscription struct {
	id      uint64
	topic   string
	handler ports.EventHandler
	events  chan deliveryItem
	done    chan struct{}
}

type deliveryItem struct {
	ctx   context.Context
	event ports.Event
}

// EventBus implements ports.EventBus in process. Each subscriber receives
// events on its own goroutine in publish order.
type EventBus struct {
	logger *zap.Logger

	mu          sync.RWMutex
	subscribers map[string][]*subscription
	nextID      uint64
	closed      bool
	wg          sync.WaitGroup
}

// NewEventBus creates a new in-memory event bus
func NewEventBus(logger *zap.Logger) *EventBus {
	return &EventBus{
		logger:      logger,
		subscribers: make(map[string][]*subscription),
	}
}

// Publish queues event for every subscriber of topic. It blocks while a
// subscriber queue is full, until ctx is done.
func (e *EventBus) Publish(ctx context.Context, topic string, event ports.Event) error {
	e.mu.RLock()
	subs := make([]*subscription, len(e.subscribers[topic]))
	copy(subs, e.subscribers[topic])
	e.mu.RUnlock()

	for _, s := range subs {
		select {
		case s.events <- deliveryItem{ctx: ctx, event: event}:
		case <-s.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}

// Subscribe registers handler for topic until ctx is done or the topic is
// unsubscribed
func (e *EventBus) Subscribe(ctx context.Context, topic string, handler ports.EventHandler) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}

	e.nextID++
	s := &subscription{
		id:      e.nextID,
		topic:   topic,
		handler: handler,
		events:  make(chan deliveryItem, queueSize),
		done:    make(chan struct{}),
	}
	e.subscribers[topic] = append(e.subscribers[topic], s)

	e.wg.Add(2)
	go e.deliver(s)
	go func() {
		defer e.wg.Done()
		select {
		case <-ctx.Done():
			e.unsubscribe(s)
		case <-s.done:
		}
	}()

	return nil
}

func (e *EventBus) deliver(s *subscription) {
	defer e.wg.Done()
	for {
		select {
		case item := <-s.events:
			if err := s.handler(item.ctx, item.event); err != nil {
				e.logger.Warn("event handler failed",
					zap.String("topic", s.topic),
					zap.String("event_id", item.event.ID),
					zap.Error(err))
			}
		case <-s.done:
			return
		}
	}
}

// Unsubscribe removes all subscriptions from a topic
func (e *EventBus) Unsubscribe(ctx context.Context, topic string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, s := range e.subscribers[topic] {
		close(s.done)
	}
	delete(e.subscribers, topic)
	return nil
}

// Close stops every subscriber and waits for in-flight handlers
func (e *EventBus) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	for topic, subs := range e.subscribers {
		for _, s := range subs {
			close(s.done)
		}
		delete(e.subscribers, topic)
	}
	e.mu.Unlock()

	e.wg.Wait()
	return nil
}

// unsubscribe removes a single subscription
func (e *EventBus) unsubscribe(s *subscription) {
	e.mu.Lock()
	defer e.mu.Unlock()

	subs := e.subscribers[s.topic]
	for i, cur := range subs {
		if cur.id == s.id {
			close(s.done)
			e.subscribers[s.topic] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}
