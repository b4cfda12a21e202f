package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"tradepulse/internal/models"
)

// wsServer is a minimal websocket feed for ingestor tests.
type wsServer struct {
	srv       *httptest.Server
	conns     chan *websocket.Conn
	connCount int64
}

func newWSServer(t *testing.T) *wsServer {
	t.Helper()

	ws := &wsServer{conns: make(chan *websocket.Conn, 8)}
	upgrader := websocket.Upgrader{}

	ws.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		atomic.AddInt64(&ws.connCount, 1)
		ws.conns <- conn
	}))

	t.Cleanup(ws.srv.Close)
	return ws
}

func (ws *wsServer) url() string {
	return "ws" + strings.TrimPrefix(ws.srv.URL, "http")
}

func (ws *wsServer) accept(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case conn := <-ws.conns:
		return conn
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for websocket connection")
		return nil
	}
}

func testConfig(url string) Config {
	cfg := DefaultConfig(url)
	cfg.BaseDelay = 5 * time.Millisecond
	cfg.MaxDelay = 50 * time.Millisecond
	cfg.HandshakeTimeout = time.Second
	return cfg
}

func feedAlert(id string) models.Alert {
	return models.Alert{
		ID:        id,
		Type:      models.AlertOpportunity,
		Symbol:    "AAPL",
		Message:   "test",
		ExpiresAt: time.Now().Add(time.Hour),
		CreatedAt: time.Now(),
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestIngestorReceivesAlertsInOrder(t *testing.T) {
	server := newWSServer(t)
	in := NewIngestor(testConfig(server.url()), zerolog.Nop())

	var mu sync.Mutex
	var received []string
	in.OnAlert(func(a models.Alert) {
		mu.Lock()
		received = append(received, a.ID)
		mu.Unlock()
	})

	in.Enable(context.Background())
	defer in.Disable()

	conn := server.accept(t)
	defer conn.Close()

	ids := []string{"a1", "a2", "a3", "a4", "a5"}
	for _, id := range ids {
		payload, _ := json.Marshal(feedAlert(id))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	waitFor(t, 5*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == len(ids)
	})

	mu.Lock()
	defer mu.Unlock()
	for i, id := range ids {
		if received[i] != id {
			t.Errorf("received[%d] = %s, want %s (arrival order must be preserved)", i, received[i], id)
		}
	}
}

func TestMalformedPayloadDroppedWithoutClosingConnection(t *testing.T) {
	server := newWSServer(t)
	in := NewIngestor(testConfig(server.url()), zerolog.Nop())

	var count int64
	in.OnAlert(func(a models.Alert) {
		atomic.AddInt64(&count, 1)
	})

	in.Enable(context.Background())
	defer in.Disable()

	conn := server.accept(t)
	defer conn.Close()

	conn.WriteMessage(websocket.TextMessage, []byte("not json at all"))
	conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"opportunity"}`)) // missing id
	payload, _ := json.Marshal(feedAlert("good"))
	conn.WriteMessage(websocket.TextMessage, payload)

	waitFor(t, 5*time.Second, func() bool {
		return atomic.LoadInt64(&count) == 1
	})

	if dropped := in.PayloadsDropped(); dropped != 2 {
		t.Errorf("PayloadsDropped = %d, want 2", dropped)
	}
	if !in.IsConnected() {
		t.Error("connection should survive malformed payloads")
	}
}

func TestReconnectAfterServerClose(t *testing.T) {
	server := newWSServer(t)
	in := NewIngestor(testConfig(server.url()), zerolog.Nop())

	var count int64
	in.OnAlert(func(a models.Alert) {
		atomic.AddInt64(&count, 1)
	})

	in.Enable(context.Background())
	defer in.Disable()

	first := server.accept(t)
	first.Close()

	// The ingestor should dial again after backoff.
	second := server.accept(t)
	defer second.Close()

	waitFor(t, 5*time.Second, in.IsConnected)

	payload, _ := json.Marshal(feedAlert("after-reconnect"))
	if err := second.WriteMessage(websocket.TextMessage, payload); err != nil {
		t.Fatalf("write: %v", err)
	}

	waitFor(t, 5*time.Second, func() bool {
		return atomic.LoadInt64(&count) == 1
	})

	if got := atomic.LoadInt64(&server.connCount); got < 2 {
		t.Errorf("connCount = %d, want at least 2", got)
	}
}

func TestDisableStopsReconnectAttempts(t *testing.T) {
	server := newWSServer(t)
	in := NewIngestor(testConfig(server.url()), zerolog.Nop())

	in.Enable(context.Background())
	conn := server.accept(t)
	defer conn.Close()

	waitFor(t, 5*time.Second, in.IsConnected)

	in.Disable()

	if in.State() != StateDisconnected {
		t.Errorf("state after Disable = %s, want disconnected", in.State())
	}

	// No new connection attempts after disable.
	before := atomic.LoadInt64(&server.connCount)
	time.Sleep(100 * time.Millisecond)
	if after := atomic.LoadInt64(&server.connCount); after != before {
		t.Errorf("connCount grew from %d to %d after Disable", before, after)
	}
}

func TestDisableIsIdempotent(t *testing.T) {
	server := newWSServer(t)
	in := NewIngestor(testConfig(server.url()), zerolog.Nop())

	in.Enable(context.Background())
	server.accept(t)

	in.Disable()
	in.Disable() // second call must not panic or block
}

func TestDialFailureReportsTransportError(t *testing.T) {
	// Port that is not listening.
	in := NewIngestor(testConfig("ws://127.0.0.1:1/ws/alerts"), zerolog.Nop())

	var errCount int64
	in.OnError(func(err error) {
		atomic.AddInt64(&errCount, 1)
	})

	in.Enable(context.Background())
	defer in.Disable()

	waitFor(t, 5*time.Second, func() bool {
		return atomic.LoadInt64(&errCount) >= 1
	})

	if in.IsConnected() {
		t.Error("ingestor should not report connected after dial failures")
	}
}
