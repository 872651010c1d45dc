package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/aescanero/ordo/pkg/ports"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// EventTypeReady is the first message of every stream
const EventTypeReady ports.EventType = "stream.ready"

const (
	bufferSize = 16
	writeWait  = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler handles WebSocket connections
type Handler struct {
	eventBus ports.EventBus
	topic    string
	logger   *zap.Logger
}

// NewHandler creates a new WebSocket handler streaming topic
func NewHandler(eventBus ports.EventBus, topic string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		eventBus: eventBus,
		topic:    topic,
		logger:   logger,
	}
}

// HandleEventStream streams design events until the client disconnects
func (h *Handler) HandleEventStream(c *gin.Context) {
	filter := parseFilter(c.Query("type"))

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("failed to upgrade connection", zap.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	h.logger.Info("WebSocket connection established",
		zap.String("topic", h.topic),
		zap.String("client", c.ClientIP()))

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// the read side only detects the close
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	eventChan := make(chan ports.Event, bufferSize)
	if err := h.eventBus.Subscribe(ctx, h.topic, h.forward(eventChan, filter)); err != nil {
		h.logger.Error("failed to subscribe to events",
			zap.String("topic", h.topic),
			zap.Error(err))
		return
	}

	if err := h.write(conn, ports.Event{Type: EventTypeReady, Timestamp: time.Now()}); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case event := <-eventChan:
			if err := h.write(conn, event); err != nil {
				return
			}
		}
	}
}

// forward hands events to the connection loop without blocking the bus
func (h *Handler) forward(ch chan<- ports.Event, filter map[ports.EventType]bool) ports.EventHandler {
	return func(ctx context.Context, event ports.Event) error {
		if len(filter) > 0 && !filter[event.Type] {
			return nil
		}
		select {
		case ch <- event:
		case <-ctx.Done():
			return ctx.Err()
		default:
			h.logger.Warn("event channel full, dropping event",
				zap.String("event_id", event.ID),
				zap.String("event_type", string(event.Type)))
		}
		return nil
	}
}

func (h *Handler) write(conn *websocket.Conn, event ports.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to marshal event", zap.Error(err))
		return nil
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		h.logger.Error("failed to write message", zap.Error(err))
		return err
	}
	return nil
}

func parseFilter(param string) map[ports.EventType]bool {
	if param == "" {
		return nil
	}
	filter := make(map[ports.EventType]bool)
	for _, t := range strings.Split(param, ",") {
		if t = strings.TrimSpace(t); t != "" {
			filter[ports.EventType(t)] = true
		}
	}
	return filter
}
