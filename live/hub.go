package live

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/nufflezone/tournament-registry/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Event is the wire format pushed to subscribers of a tournament room.
type Event struct {
	Type         string      `json:"type"`
	TournamentID string      `json:"tournament_id"`
	Payload      interface{} `json:"payload"`
}

type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	room uuid.UUID

	mu     sync.Mutex
	closed bool
}

// Hub fans registration events out to websocket subscribers, one room per
// tournament. It satisfies services.RegistrationNotifier.
type Hub struct {
	register   chan *Client
	unregister chan *Client

	mu     sync.RWMutex
	rooms  map[uuid.UUID]map[*Client]bool
	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		rooms:      make(map[uuid.UUID]map[*Client]bool),
		logger:     logger,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if _, ok := h.rooms[client.room]; !ok {
				h.rooms[client.room] = make(map[*Client]bool)
			}
			h.rooms[client.room][client] = true
			h.mu.Unlock()
			h.logger.Debug("websocket client joined room", slog.String("tournament_id", client.room.String()))

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.room]; ok {
				if _, registered := clients[client]; registered {
					client.markClosed()
					delete(clients, client)
					if len(clients) == 0 {
						delete(h.rooms, client.room)
					}
				}
			}
			h.mu.Unlock()
			h.logger.Debug("websocket client left room", slog.String("tournament_id", client.room.String()))
		}
	}
}

// NotifyRegistration broadcasts a registration event to the tournament's room.
// Slow subscribers are skipped rather than blocking the caller.
func (h *Hub) NotifyRegistration(tournamentID uuid.UUID, event string, reg *models.Registration) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.rooms[tournamentID]
	if !ok {
		return
	}

	message, err := json.Marshal(Event{
		Type:         event,
		TournamentID: tournamentID.String(),
		Payload:      reg,
	})
	if err != nil {
		h.logger.Error("failed to marshal registration event", slog.Any("error", err))
		return
	}

	for client := range clients {
		client.mu.Lock()
		if !client.closed {
			select {
			case client.send <- message:
			default:
				h.logger.Warn("dropping event for slow websocket client",
					slog.String("tournament_id", tournamentID.String()))
			}
		}
		client.mu.Unlock()
	}
}

// Subscribe registers the connection in the tournament's room and starts its
// read and write pumps.
func (h *Hub) Subscribe(tournamentID uuid.UUID, conn *websocket.Conn) {
	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 256),
		room: tournamentID,
	}
	h.register <- client

	go client.writePump()
	go client.readPump()
}

func (c *Client) markClosed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		close(c.send)
		c.closed = true
	}
}

// readPump drains the connection so control frames are processed. Inbound
// messages are ignored; the stream is one-way.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
