package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/example/court-rotation/internal/events"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxClientFrame = 4096
	sendBuffer     = 256
)

// EventSubscriber is the subscription side of the event bus.
type EventSubscriber interface {
	Subscribe(name string, handler events.Handler, kinds ...events.Kind) (unsubscribe func())
}

// Hub streams engine notifications to websocket clients. Clients that fall
// behind by more than the send buffer are disconnected.
type Hub struct {
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	clients  map[*client]struct{}
	logger   *slog.Logger
	now      func() time.Time
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu    sync.RWMutex
	kinds map[string]struct{}
}

// NewHub constructs a hub. checkOrigin may be nil to accept every origin.
func NewHub(checkOrigin func(*http.Request) bool, logger *slog.Logger) *Hub {
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		clients: make(map[*client]struct{}),
		logger:  defaultLogger(logger),
		now:     time.Now,
	}
}

// Attach subscribes the hub to every engine notification.
func (h *Hub) Attach(bus EventSubscriber) (unsubscribe func()) {
	return bus.Subscribe("websocket", h.Handle)
}

// Handle broadcasts a single event.
func (h *Hub) Handle(ctx context.Context, event events.Event) error {
	payload, err := json.Marshal(toEventMessage(event))
	if err != nil {
		return err
	}
	h.broadcast(string(event.Kind), payload)
	return nil
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) broadcast(kind string, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if !c.accepts(kind) {
			continue
		}
		select {
		case c.send <- payload:
		default:
			delete(h.clients, c)
			close(c.send)
			h.logger.Warn("dropped slow websocket client", "remote", c.conn.RemoteAddr().String())
		}
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("websocket client registered", "clients", total)
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	total := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("websocket client unregistered", "clients", total)
}

// ServeHTTP upgrades the connection and starts streaming.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := handlerLogger(r.Context(), h.logger, "Hub", "Connect")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.ErrorContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}

	c := &client{hub: h, conn: conn, send: make(chan []byte, sendBuffer), kinds: make(map[string]struct{})}
	welcome, _ := json.Marshal(eventMessage{Type: "connected", At: h.now().UTC()})
	c.send <- welcome
	h.register(c)

	go c.writePump()
	go c.readPump()
}

func (c *client) accepts(kind string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.kinds) == 0 {
		return true
	}
	_, ok := c.kinds[kind]
	return ok
}

func (c *client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxClientFrame)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("websocket read failed", "error", err)
			}
			return
		}
		c.handleMessage(message)
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage applies a client filter request. {"type":"subscribe",
// "kinds":[...]} limits delivery, {"type":"unsubscribe"} clears the filter.
func (c *client) handleMessage(message []byte) {
	var req clientRequest
	if err := json.Unmarshal(message, &req); err != nil {
		c.hub.logger.Warn("ignored malformed websocket message", "error", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	switch req.Type {
	case "subscribe":
		c.kinds = make(map[string]struct{}, len(req.Kinds))
		for _, kind := range req.Kinds {
			c.kinds[kind] = struct{}{}
		}
	case "unsubscribe":
		c.kinds = make(map[string]struct{})
	}
}

type clientRequest struct {
	Type  string   `json:"type"`
	Kinds []string `json:"kinds"`
}

type failureDTO struct {
	Operation string `json:"operation"`
	ErrorKind string `json:"errorKind"`
	Message   string `json:"message"`
}

type eventMessage struct {
	Type    string      `json:"type"`
	At      time.Time   `json:"at"`
	Player  *playerDTO  `json:"player,omitempty"`
	Players []playerDTO `json:"players,omitempty"`
	Court   *courtDTO   `json:"court,omitempty"`
	Game    *gameDTO    `json:"game,omitempty"`
	Failure *failureDTO `json:"failure,omitempty"`
}

func toEventMessage(event events.Event) eventMessage {
	msg := eventMessage{Type: string(event.Kind), At: event.At.UTC()}
	if event.Player != nil {
		dto := toPlayerDTO(*event.Player)
		msg.Player = &dto
	}
	if event.Players != nil {
		msg.Players = toPlayerDTOs(event.Players)
	}
	if event.Court != nil {
		dto := toCourtDTO(*event.Court, event.At)
		msg.Court = &dto
	}
	if event.Game != nil {
		dto := toGameDTO(*event.Game)
		msg.Game = &dto
	}
	if event.Failure != nil {
		msg.Failure = &failureDTO{
			Operation: event.Failure.Operation,
			ErrorKind: event.Failure.ErrorKind,
			Message:   event.Failure.Message,
		}
	}
	return msg
}
