package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/aescanero/ordo/pkg/ports"
)

// DefaultExchange is the topic exchange design events are published on
const DefaultExchange = "ordo.events"

// Channel is the subset of *amqp.Channel the bus uses
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Cancel(consumer string, noWait bool) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Dial opens a connection and a channel to url
func Dial(url string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}

	return conn, ch, nil
}

// EventBus implements ports.EventBus over a RabbitMQ topic exchange. Every
// subscription gets an exclusive auto-deleted queue bound to its topic.
type EventBus struct {
	ch       Channel
	exchange string
	logger   *zap.Logger

	mu     sync.Mutex
	tags   map[string][]string
	nextID int
	wg     sync.WaitGroup
}

// NewEventBus declares exchange on ch and returns a bus publishing to it
func NewEventBus(ch Channel, exchange string, logger *zap.Logger) (*EventBus, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	err := ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	return &EventBus{
		ch:       ch,
		exchange: exchange,
		logger:   logger,
		tags:     make(map[string][]string),
	}, nil
}

// Publish sends event with the topic as routing key
func (b *EventBus) Publish(ctx context.Context, topic string, event ports.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	err = b.ch.PublishWithContext(ctx, b.exchange, topic, false, false, amqp.Publishing{
		ContentType: "application/json",
		MessageId:   event.ID,
		Timestamp:   event.Timestamp,
		Type:        string(event.Type),
		Body:        body,
	})
	if err != nil {
		return fmt.Errorf("publish to %s/%s: %w", b.exchange, topic, err)
	}

	b.logger.Debug("event published",
		zap.String("exchange", b.exchange),
		zap.String("routing_key", topic),
		zap.String("event_id", event.ID))

	return nil
}

// Subscribe binds a private queue to topic and consumes it until ctx is
// done or the topic is unsubscribed
func (b *EventBus) Subscribe(ctx context.Context, topic string, handler ports.EventHandler) error {
	q, err := b.ch.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := b.ch.QueueBind(q.Name, topic, b.exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s to %s: %w", q.Name, b.exchange, err)
	}

	b.mu.Lock()
	b.nextID++
	tag := fmt.Sprintf("ordo-%s-%d", topic, b.nextID)
	b.tags[topic] = append(b.tags[topic], tag)
	b.mu.Unlock()

	deliveries, err := b.ch.Consume(
		q.Name, // queue
		tag,    // consumer tag
		false,  // auto-ack
		true,   // exclusive
		false,  // no-local
		false,  // no-wait
		nil,    // args
	)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	b.logger.Info("subscribed to event exchange",
		zap.String("exchange", b.exchange),
		zap.String("routing_key", topic),
		zap.String("queue", q.Name))

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.consume(ctx, tag, deliveries, handler)
	}()

	return nil
}

func (b *EventBus) consume(ctx context.Context, tag string, deliveries <-chan amqp.Delivery, handler ports.EventHandler) {
	for {
		select {
		case <-ctx.Done():
			b.ch.Cancel(tag, false)
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			b.handleDelivery(ctx, d, handler)
		}
	}
}

// handleDelivery acks handled events; malformed ones are dropped and failed
// ones requeued
func (b *EventBus) handleDelivery(ctx context.Context, d amqp.Delivery, handler ports.EventHandler) {
	var event ports.Event
	if err := json.Unmarshal(d.Body, &event); err != nil {
		b.logger.Error("failed to unmarshal event",
			zap.String("message_id", d.MessageId),
			zap.Error(err))
		d.Nack(false, false)
		return
	}

	if err := handler(ctx, event); err != nil {
		b.logger.Error("handler failed",
			zap.String("event_id", event.ID),
			zap.Error(err))
		d.Nack(false, true)
		return
	}

	d.Ack(false)
}

// Unsubscribe cancels the consumers of a topic
func (b *EventBus) Unsubscribe(ctx context.Context, topic string) error {
	b.mu.Lock()
	tags := b.tags[topic]
	delete(b.tags, topic)
	b.mu.Unlock()

	for _, tag := range tags {
		if err := b.ch.Cancel(tag, false); err != nil {
			return fmt.Errorf("cancel consumer %s: %w", tag, err)
		}
	}
	return nil
}

// Close cancels all consumers and closes the channel
func (b *EventBus) Close() error {
	b.mu.Lock()
	topics := make([]string, 0, len(b.tags))
	for topic := range b.tags {
		topics = append(topics, topic)
	}
	b.mu.Unlock()

	for _, topic := range topics {
		b.Unsubscribe(context.Background(), topic)
	}
	err := b.ch.Close()
	b.wg.Wait()
	return err
}
