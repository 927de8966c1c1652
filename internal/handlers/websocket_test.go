package handlers_test

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"fairplay-backend/internal/handlers"
	"fairplay-backend/internal/services"
)

func newTestSocketServer(t *testing.T) (*handlers.WebSocketHub, *websocket.Conn) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	hub := handlers.NewWebSocketHub(log)
	rounds := services.NewRoundOrchestrator(clock.New(), nil, nil, nil, hub, nil, log)
	ws := handlers.NewWebSocketHandler(rounds, hub, log)

	router := gin.New()
	router.GET("/ws", ws.HandleWebSocket)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to dial websocket: %v", err)
	}
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return hub, conn
}

// Hub fan-out and per-client replies share one connection; every frame must
// flow through the client's single writer, so hammering both at once has to
// deliver intact JSON with no interleaved frames.
func TestWebSocketConcurrentBroadcastAndReplies(t *testing.T) {
	hub, conn := newTestSocketServer(t)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			hub.Broadcast(services.EventCountdown, map[string]any{"millis_left": i})
			time.Sleep(time.Millisecond)
		}
	}()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	pongs, broadcasts := 0, 0
	for i := 0; i < 50; i++ {
		if err := conn.WriteJSON(handlers.Message{Type: "PING"}); err != nil {
			t.Fatalf("Failed to send ping: %v", err)
		}
		for {
			var msg handlers.Message
			if err := conn.ReadJSON(&msg); err != nil {
				t.Fatalf("Read failed after %d pongs, %d broadcasts: %v", pongs, broadcasts, err)
			}
			if msg.Type == services.EventCountdown {
				broadcasts++
				continue
			}
			if msg.Type != "PONG" {
				t.Fatalf("Unexpected frame type %q", msg.Type)
			}
			pongs++
			break
		}
	}
	wg.Wait()

	// The flood may outlast the ping exchange; drain until at least one
	// broadcast proves the fan-out path shared the writer safely.
	for broadcasts == 0 {
		var msg handlers.Message
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("No broadcast ever arrived: %v", err)
		}
		if msg.Type == services.EventCountdown {
			broadcasts++
		}
	}

	if pongs != 50 {
		t.Errorf("Expected 50 pongs, got %d", pongs)
	}
}
