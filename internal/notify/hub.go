package notify

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	gorillawebsocket "github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Message is a realtime event delivered to every client in a room.
type Message struct {
	Event     string          `json:"event"`
	Room      string          `json:"room"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Pusher delivers a realtime message to a room.
type Pusher interface {
	Push(ctx context.Context, msg Message) error
}

// DoctorRoom and PatientRoom name the per-user rooms.
func DoctorRoom(id string) string  { return "doctor-" + id }
func PatientRoom(id string) string { return "patient-" + id }

// Conn abstracts a WebSocket connection for testability.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is one connected socket. Rooms are fixed at connect time from the
// authenticated identity; clients cannot join other rooms.
type Client struct {
	ID    string
	Rooms []string
	Send  chan []byte
	conn  Conn
}

func NewClient(conn Conn, rooms ...string) *Client {
	return &Client{
		ID:    uuid.NewString(),
		Rooms: rooms,
		Send:  make(chan []byte, 64),
		conn:  conn,
	}
}

// Hub tracks connected clients by room.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[*Client]struct{}
	all    map[*Client]struct{}
	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		rooms:  make(map[string]map[*Client]struct{}),
		all:    make(map[*Client]struct{}),
		logger: logger,
	}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.all[client] = struct{}{}
	for _, room := range client.Rooms {
		if h.rooms[room] == nil {
			h.rooms[room] = make(map[*Client]struct{})
		}
		h.rooms[room][client] = struct{}{}
	}
}

// Unregister removes the client and closes its Send channel. Safe to call twice.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.all[client]; !ok {
		return
	}
	for _, room := range client.Rooms {
		if members, ok := h.rooms[room]; ok {
			delete(members, client)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	delete(h.all, client)
	close(client.Send)
}

// Broadcast queues msg for every client in msg.Room. Slow clients drop messages.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal realtime message", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.rooms[msg.Room] {
		select {
		case client.Send <- data:
		default:
			h.logger.Warn("dropping realtime message for slow client", zap.String("client", client.ID), zap.String("room", msg.Room))
		}
	}
}

// Push delivers to clients connected to this process.
func (h *Hub) Push(_ context.Context, msg Message) error {
	h.Broadcast(msg)
	return nil
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.all)
}

func (h *Hub) RoomCount(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Serve registers client and pumps messages until the connection closes.
// It blocks, so callers usually run it after upgrading the request.
func (h *Hub) Serve(client *Client) {
	h.Register(client)
	go h.writePump(client)
	h.readPump(client)
}

// readPump only drains inbound frames; the socket is push-only.
func (h *Hub) readPump(client *Client) {
	defer func() {
		h.Unregister(client)
		client.conn.Close()
	}()
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(client *Client) {
	defer client.conn.Close()
	for message := range client.Send {
		if err := client.conn.WriteMessage(gorillawebsocket.TextMessage, message); err != nil {
			return
		}
	}
}

// WrapConn adapts a gorilla connection to Conn.
func WrapConn(ws *gorillawebsocket.Conn) Conn {
	return &gorillaConnAdapter{ws}
}

type gorillaConnAdapter struct {
	conn *gorillawebsocket.Conn
}

func (a *gorillaConnAdapter) ReadMessage() (int, []byte, error) {
	return a.conn.ReadMessage()
}

func (a *gorillaConnAdapter) WriteMessage(messageType int, data []byte) error {
	return a.conn.WriteMessage(messageType, data)
}

func (a *gorillaConnAdapter) Close() error {
	return a.conn.Close()
}
