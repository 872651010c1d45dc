package ports

import (
	"context"
	"time"
)

// EventType names a design event
type EventType string

const (
	EventTypeLefRead EventType = "design.lef_read"
	EventTypeDefRead EventType = "design.def_read"
	EventTypeDbRead  EventType = "design.db_read"
)

// Event is a design event published on an EventBus
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// EventHandler consumes events delivered by a bus
type EventHandler func(ctx context.Context, event Event) error

// EventBus publishes and delivers events by topic
type EventBus interface {
	Publish(ctx context.Context, topic string, event Event) error
	Subscribe(ctx context.Context, topic string, handler EventHandler) error
	Unsubscribe(ctx context.Context, topic string) error
	Close() error
}
