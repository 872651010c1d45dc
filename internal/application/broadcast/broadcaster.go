package broadcast

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aescanero/ordo/internal/application/orchestrator"
	"github.com/aescanero/ordo/pkg/odb"
	"github.com/aescanero/ordo/pkg/ports"
	"github.com/aescanero/ordo/pkg/utl"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultTopic carries design events
const DefaultTopic = "design.events"

const defaultPublishTimeout = 5 * time.Second

// ErrAttached is returned when attaching a broadcaster that already has an owner
var ErrAttached = errors.New("broadcaster already attached")

// Broadcaster publishes design notifications as events
type Broadcaster struct {
	bus     ports.EventBus
	topic   string
	logger  *utl.Logger
	timeout time.Duration

	mu    sync.Mutex
	owner *orchestrator.Runtime
	sent  int
}

// New creates a broadcaster publishing on topic ("" means DefaultTopic)
func New(bus ports.EventBus, topic string, logger *utl.Logger) *Broadcaster {
	if topic == "" {
		topic = DefaultTopic
	}
	if logger == nil {
		logger = utl.NewNop()
	}
	return &Broadcaster{
		bus:     bus,
		topic:   topic,
		logger:  logger,
		timeout: defaultPublishTimeout,
	}
}

// Topic returns the topic events are published on
func (b *Broadcaster) Topic() string {
	return b.topic
}

// Attach registers the broadcaster with r
func (b *Broadcaster) Attach(r *orchestrator.Runtime) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.owner != nil {
		return ErrAttached
	}
	if err := r.AddObserver(b); err != nil {
		return err
	}
	b.owner = r
	return nil
}

// Owner returns the runtime the broadcaster is attached to, or nil
func (b *Broadcaster) Owner() *orchestrator.Runtime {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.owner
}

// Detach unregisters the broadcaster from its runtime. A runtime that was
// already closed has dropped its observers, so only the reference is cleared.
func (b *Broadcaster) Detach() error {
	b.mu.Lock()
	owner := b.owner
	b.owner = nil
	b.mu.Unlock()

	if owner == nil || !owner.Initialized() {
		return nil
	}
	return owner.RemoveObserver(b)
}

// Published returns the number of events successfully published
func (b *Broadcaster) Published() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sent
}

func (b *Broadcaster) PostReadLef(tech *odb.Tech, lib *odb.Lib) {
	data := map[string]interface{}{}
	if tech != nil {
		data["tech"] = tech.Name
		data["layers"] = len(tech.Layers)
	}
	if lib != nil {
		data["library"] = lib.Name
		data["masters"] = len(lib.Masters)
	}
	b.publish(ports.EventTypeLefRead, data)
}

func (b *Broadcaster) PostReadDef(block *odb.Block) {
	b.publish(ports.EventTypeDefRead, blockData(block))
}

func (b *Broadcaster) PostReadDb(db *odb.Database) {
	data := blockData(db.Block())
	if tech := db.Tech(); tech != nil {
		data["tech"] = tech.Name
	}
	data["libraries"] = len(db.Libs())
	b.publish(ports.EventTypeDbRead, data)
}

func blockData(block *odb.Block) map[string]interface{} {
	data := map[string]interface{}{}
	if block == nil {
		return data
	}
	data["block"] = block.Name
	data["insts"] = len(block.Insts)
	data["nets"] = len(block.Nets)
	data["pins"] = len(block.BTerms)
	return data
}

// publish never fails the read that triggered it
func (b *Broadcaster) publish(typ ports.EventType, data map[string]interface{}) {
	event := ports.Event{
		ID:        uuid.New().String(),
		Type:      typ,
		Timestamp: time.Now(),
		Data:      data,
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	if err := b.bus.Publish(ctx, b.topic, event); err != nil {
		b.logger.Warn(utl.API, 1, "failed to publish design event",
			zap.String("type", string(typ)),
			zap.String("topic", b.topic),
			zap.Error(err))
		return
	}

	b.mu.Lock()
	b.sent++
	b.mu.Unlock()

	b.logger.Debug(utl.API, 2, "design event published",
		zap.String("event_id", event.ID),
		zap.String("type", string(typ)))
}
