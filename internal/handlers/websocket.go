package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"fairplay-backend/internal/lib/sl"
	"fairplay-backend/internal/services"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is the wire envelope for every websocket push.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Client owns one connection. All outbound frames go through the send
// channel, drained by a single writer goroutine; gorilla connections do not
// tolerate concurrent writers.
type Client struct {
	AccountID int64
	conn      *websocket.Conn
	send      chan *Message
	done      chan struct{}
}

// trySend queues a frame without ever blocking the caller. A full buffer
// drops the frame; the hub evicts clients that stay full.
func (c *Client) trySend(msg *Message) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) writeLoop() {
	defer c.conn.Close()
	for {
		select {
		case msg := <-c.send:
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// WebSocketHub fans live-round events out to every connected client. Client
// membership and eviction are owned by the run goroutine alone.
type WebSocketHub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
	log        *slog.Logger
}

type WebSocketHandler struct {
	rounds *services.RoundOrchestrator
	hub    *WebSocketHub
	log    *slog.Logger
}

// NewWebSocketHub starts the fan-out goroutine. The hub is built before the
// orchestrator so the round loop has a broadcaster from its first event.
func NewWebSocketHub(log *slog.Logger) *WebSocketHub {
	hub := &WebSocketHub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 100),
		log:        log,
	}
	go hub.run()
	return hub
}

func NewWebSocketHandler(rounds *services.RoundOrchestrator, hub *WebSocketHub, log *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		rounds: rounds,
		hub:    hub,
		log:    log,
	}
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error("websocket upgrade failed", sl.Err(err))
		return
	}

	client := &Client{
		AccountID: accountID(c),
		conn:      conn,
		send:      make(chan *Message, 32),
		done:      make(chan struct{}),
	}
	go client.writeLoop()

	// The snapshot is queued before the client joins the hub, so the first
	// broadcast can never precede the state it builds on.
	h.sendRoundState(client)

	h.hub.register <- client
	defer func() {
		h.hub.unregister <- client
	}()

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Warn("websocket read failed", sl.Err(err))
			}
			return
		}
		h.handleMessage(client, &msg)
	}
}

func (h *WebSocketHandler) handleMessage(client *Client, msg *Message) {
	switch msg.Type {
	case "PING":
		client.trySend(&Message{
			Type: "PONG",
			Data: gin.H{"timestamp": time.Now().Unix()},
		})
	case "ROUND_STATE":
		h.sendRoundState(client)
	}
}

func (h *WebSocketHandler) sendRoundState(client *Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	snap, err := h.rounds.Snapshot(ctx)
	if err != nil {
		// No round yet; the client will get round_start when one opens.
		return
	}
	client.trySend(&Message{Type: services.EventRoundState, Data: snap})
}

func (hub *WebSocketHub) run() {
	for {
		select {
		case client := <-hub.register:
			hub.clients[client] = true
			hub.log.Debug("websocket client joined", slog.Int64("account_id", client.AccountID))

		case client := <-hub.unregister:
			hub.drop(client)

		case message := <-hub.broadcast:
			for client := range hub.clients {
				if !client.trySend(message) {
					// A client that cannot drain its buffer is gone or
					// hopelessly behind.
					hub.drop(client)
				}
			}
		}
	}
}

// drop is only called from the run goroutine, so done closes exactly once.
func (hub *WebSocketHub) drop(client *Client) {
	if _, ok := hub.clients[client]; !ok {
		return
	}
	delete(hub.clients, client)
	close(client.done)
	hub.log.Debug("websocket client left", slog.Int64("account_id", client.AccountID))
}

// Broadcast implements services.Broadcaster. A full event buffer drops the
// message rather than stalling the round loop.
func (hub *WebSocketHub) Broadcast(event string, payload any) {
	select {
	case hub.broadcast <- &Message{Type: event, Data: payload}:
	default:
		hub.log.Warn("websocket broadcast buffer full, dropping event", slog.String("event", event))
	}
}
