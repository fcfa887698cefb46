package service

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/komsan13/chat-center-sub001/internal/metrics"
	"github.com/komsan13/chat-center-sub001/internal/model"

	"github.com/gofiber/contrib/websocket"
	"github.com/rs/zerolog"
)

// WSClient is one live operator socket. Send is drained by a single writer
// goroutine, so delivery order per connection follows broadcast order.
type WSClient struct {
	ID        string
	Conn      *websocket.Conn
	UserName  string
	UserAgent string
	Send      chan []byte

	mu            sync.Mutex
	rooms         map[string]struct{}
	lastHeartbeat time.Time
}

func (c *WSClient) joinRoom(roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rooms[roomID] = struct{}{}
}

func (c *WSClient) leaveRoom(roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rooms, roomID)
}

func (c *WSClient) inRoom(roomID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.rooms[roomID]
	return ok
}

func (c *WSClient) roomCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.rooms)
}

// Registry tracks live connections and their room memberships.
type Registry struct {
	clients    map[string]*WSClient
	register   chan *WSClient
	unregister chan *WSClient
	mu         sync.RWMutex
	done       chan struct{}
	log        zerolog.Logger
}

func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{
		clients:    make(map[string]*WSClient),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
		done:       make(chan struct{}),
		log:        log.With().Str("component", "registry").Logger(),
	}
}

func (r *Registry) Run() {
	for {
		select {
		case client := <-r.register:
			r.mu.Lock()
			r.clients[client.ID] = client
			r.mu.Unlock()
			metrics.ConnectedClients.Inc()
			metrics.RoomSubscriptions.Inc() // catch-all membership
			r.log.Info().Str("conn", client.ID).Str("user", client.UserName).
				Int("total", r.OnlineCount()).Msg("connected")

		case client := <-r.unregister:
			r.mu.Lock()
			if _, ok := r.clients[client.ID]; ok {
				delete(r.clients, client.ID)
				close(client.Send)
				metrics.ConnectedClients.Dec()
				metrics.RoomSubscriptions.Sub(float64(client.roomCount()))
			}
			r.mu.Unlock()
			r.log.Info().Str("conn", client.ID).Str("user", client.UserName).
				Int("total", r.OnlineCount()).Msg("disconnected")

		case <-r.done:
			return
		}
	}
}

func (r *Registry) Shutdown() {
	close(r.done)
}

// NewClient builds a connection record. Every connection starts as a member
// of the catch-all room.
func (r *Registry) NewClient(id, userName, userAgent string, conn *websocket.Conn) *WSClient {
	return &WSClient{
		ID:            id,
		Conn:          conn,
		UserName:      userName,
		UserAgent:     userAgent,
		Send:          make(chan []byte, 256),
		rooms:         map[string]struct{}{model.CatchAllRoom: {}},
		lastHeartbeat: time.Now(),
	}
}

func (r *Registry) Register(client *WSClient) {
	r.register <- client
}

func (r *Registry) Unregister(client *WSClient) {
	r.unregister <- client
}

func (r *Registry) JoinRoom(connID, roomID string) {
	r.mu.RLock()
	client, ok := r.clients[connID]
	r.mu.RUnlock()
	if !ok || roomID == "" {
		return
	}
	if !client.inRoom(roomID) {
		client.joinRoom(roomID)
		metrics.RoomSubscriptions.Inc()
	}
}

func (r *Registry) LeaveRoom(connID, roomID string) {
	r.mu.RLock()
	client, ok := r.clients[connID]
	r.mu.RUnlock()
	if !ok || roomID == model.CatchAllRoom {
		return
	}
	if client.inRoom(roomID) {
		client.leaveRoom(roomID)
		metrics.RoomSubscriptions.Dec()
	}
}

// Touch records a heartbeat from the connection.
func (r *Registry) Touch(connID string) {
	r.mu.RLock()
	client, ok := r.clients[connID]
	r.mu.RUnlock()
	if ok {
		client.mu.Lock()
		client.lastHeartbeat = time.Now()
		client.mu.Unlock()
	}
}

// BroadcastRoom fans an event out to every member of the room, or to every
// connection when roomID is empty. Sends are non-blocking: a client with a
// full send queue misses the event rather than stalling the fan-out.
// excludeConn suppresses delivery to the originating connection (typing echo).
func (r *Registry) BroadcastRoom(roomID, event string, data interface{}, excludeConn string) error {
	raw, err := marshalEvent(event, data)
	if err != nil {
		return err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for id, client := range r.clients {
		if id == excludeConn {
			continue
		}
		if roomID != "" && !client.inRoom(roomID) {
			continue
		}
		select {
		case client.Send <- raw:
		default:
			r.log.Warn().Str("conn", id).Str("event", event).Msg("send queue full, dropping")
		}
	}
	return nil
}

func (r *Registry) OnlineCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// RoomMembers returns the connection ids currently joined to a room.
func (r *Registry) RoomMembers(roomID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var members []string
	for id, client := range r.clients {
		if client.inRoom(roomID) {
			members = append(members, id)
		}
	}
	return members
}

func marshalEvent(event string, data interface{}) ([]byte, error) {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return json.Marshal(model.WSEvent{Event: event, Data: raw})
}
