package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/Rrrinav/Tanks/internal/engine"
	"github.com/Rrrinav/Tanks/internal/hub"
	"github.com/Rrrinav/Tanks/internal/room"
)

func newTestServer(t *testing.T) (*hub.Hub, string) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	h := hub.NewHub(ctx, hub.Options{
		Rules:      engine.DefaultRules(),
		MaxRoomAge: time.Hour,
		CodeLength: 6,
	}, zap.NewNop())
	srv := httptest.NewServer(Handler(h, zap.NewNop()))
	t.Cleanup(srv.Close)
	return h, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return c
}

func writeJSON(t *testing.T, c *websocket.Conn, v any) {
	t.Helper()
	payload, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.Write(ctx, websocket.MessageText, payload); err != nil {
		t.Fatalf("write: %v", err)
	}
}

// readUntil drains frames until one of the wanted type arrives; join acks
// race with lobby broadcasts, so order is not fixed.
func readUntil(t *testing.T, c *websocket.Conn, msgType string) map[string]any {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for {
		_, data, err := c.Read(ctx)
		if err != nil {
			t.Fatalf("read while waiting for %q: %v", msgType, err)
		}
		var m map[string]any
		if err := json.Unmarshal(data, &m); err != nil {
			t.Fatalf("bad frame: %v", err)
		}
		if m["type"] == msgType {
			return m
		}
	}
}

func lookupRoom(t *testing.T, h *hub.Hub, code string) *room.Room {
	t.Helper()
	reply := make(chan *room.Room, 1)
	h.Inbox() <- hub.GetRoom{Code: code, Reply: reply}
	select {
	case r := <-reply:
		return r
	case <-time.After(time.Second):
		t.Fatalf("timed out asking the hub for %s", code)
		return nil
	}
}

func TestHandler_DisconnectRunsLeavePath(t *testing.T) {
	h, url := newTestServer(t)

	c := dial(t, url)
	writeJSON(t, c, map[string]string{
		"type":        "join",
		"roomId":      "GAME01",
		"displayName": "alice",
	})

	j := readUntil(t, c, "joined")
	if j["success"] != true || j["roomId"] != "GAME01" {
		t.Fatalf("unexpected join ack: %+v", j)
	}

	// Dropping the connection must run the same teardown as an explicit
	// leave: the emptied room is removed from the hub.
	c.Close(websocket.StatusNormalClosure, "done")

	deadline := time.Now().Add(2 * time.Second)
	for lookupRoom(t, h, "GAME01") != nil {
		if time.Now().After(deadline) {
			t.Fatalf("room still registered after disconnect")
		}
		time.Sleep(20 * time.Millisecond)
	}
}
