package websocket

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aescanero/ordo/pkg/adapters/events/memory"
	"github.com/aescanero/ordo/pkg/ports"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

func newStream(t *testing.T, query string) (*memory.EventBus, *websocket.Conn) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	bus := memory.NewEventBus(zap.NewNop())
	router := gin.New()
	router.GET("/ws", NewHandler(bus, "design.events", nil).HandleEventStream)
	srv := httptest.NewServer(router)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		srv.Close()
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
		srv.Close()
		_ = bus.Close()
	})

	if e := readEvent(t, conn); e.Type != EventTypeReady {
		t.Fatalf("first message type = %q, want %q", e.Type, EventTypeReady)
	}
	return bus, conn
}

func readEvent(t *testing.T, conn *websocket.Conn) ports.Event {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	var e ports.Event
	if err := json.Unmarshal(data, &e); err != nil {
		t.Fatalf("decode %q: %v", data, err)
	}
	return e
}

func TestStreamForwardsEvents(t *testing.T) {
	bus, conn := newStream(t, "")

	ctx := context.Background()
	_ = bus.Publish(ctx, "design.events", ports.Event{ID: "1", Type: ports.EventTypeLefRead})
	_ = bus.Publish(ctx, "other.events", ports.Event{ID: "x", Type: ports.EventTypeLefRead})
	_ = bus.Publish(ctx, "design.events", ports.Event{ID: "2", Type: ports.EventTypeDefRead,
		Data: map[string]interface{}{"block": "top"}})

	if e := readEvent(t, conn); e.ID != "1" {
		t.Errorf("first event = %+v", e)
	}
	e := readEvent(t, conn)
	if e.ID != "2" || e.Data["block"] != "top" {
		t.Errorf("second event = %+v", e)
	}
}

func TestStreamFiltersByType(t *testing.T) {
	bus, conn := newStream(t, "?type=design.db_read")

	ctx := context.Background()
	_ = bus.Publish(ctx, "design.events", ports.Event{ID: "1", Type: ports.EventTypeLefRead})
	_ = bus.Publish(ctx, "design.events", ports.Event{ID: "2", Type: ports.EventTypeDbRead})

	if e := readEvent(t, conn); e.ID != "2" {
		t.Errorf("filtered stream delivered %+v", e)
	}
}

func TestParseFilter(t *testing.T) {
	if parseFilter("") != nil {
		t.Error("empty parameter should not filter")
	}
	f := parseFilter(" design.lef_read, ,design.def_read ")
	if len(f) != 2 || !f[ports.EventTypeLefRead] || !f[ports.EventTypeDefRead] {
		t.Errorf("parseFilter() = %v", f)
	}
}
