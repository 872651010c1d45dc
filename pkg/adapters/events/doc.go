// Package events provides event bus implementations for design events.
//
// Implementations:
//   - memory: in-process fan-out with per-subscriber ordering
//   - redis: Redis Streams with consumer groups
//   - amqp: a RabbitMQ topic exchange
package events
