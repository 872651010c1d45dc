package redis

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/aescanero/ordo/pkg/ports"
	"github.com/redis/go-redis/v9"
)

func TestGetStreamKey(t *testing.T) {
	if got := getStreamKey("design"); got != "ordo:events:design" {
		t.Errorf("getStreamKey() = %q", got)
	}
}

func TestDecodeMessage(t *testing.T) {
	want := ports.Event{
		ID:        "e1",
		Type:      ports.EventTypeDefRead,
		Timestamp: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Data:      map[string]interface{}{"block": "top"},
	}
	data, err := json.Marshal(want)
	if err != nil {
		t.Fatal(err)
	}

	got, err := decodeMessage(redis.XMessage{ID: "1-0", Values: map[string]interface{}{"data": string(data)}})
	if err != nil {
		t.Fatalf("decodeMessage() error = %v", err)
	}
	if got.ID != want.ID || got.Type != want.Type || !got.Timestamp.Equal(want.Timestamp) || got.Data["block"] != "top" {
		t.Errorf("decodeMessage() = %+v", got)
	}

	if _, err := decodeMessage(redis.XMessage{Values: map[string]interface{}{}}); err == nil {
		t.Error("missing data field accepted")
	}
	if _, err := decodeMessage(redis.XMessage{Values: map[string]interface{}{"data": "{"}}); err == nil {
		t.Error("malformed payload accepted")
	}
}
