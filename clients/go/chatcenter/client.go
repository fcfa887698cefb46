// Package chatcenter provides the operator-side websocket client for the
// chat-center relay: automatic reconnect with jittered backoff, a background
// heartbeat, and connection-quality scoring.
package chatcenter

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Event is one websocket frame.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

const (
	eventConnected   = "connected"
	eventPingServer  = "ping-server"
	eventPongServer  = "pong-server"
	eventJoinRoom    = "join-room"
	eventLeaveRoom   = "leave-room"
	eventTypingStart = "typing-start"
	eventTypingStop  = "typing-stop"
)

type State string

const (
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateDisconnected State = "disconnected"
)

// Client keeps one operator session connected across network flaps and
// server restarts. Events arrive unfiltered on Events(); filtering by the
// currently selected channel is the UI's concern, not the transport's.
type Client struct {
	url      string
	token    string
	userName string
	dialer   *websocket.Dialer
	log      zerolog.Logger

	mu           sync.Mutex
	conn         *websocket.Conn
	state        State
	connectionID string
	attempt      int

	quality *qualityTracker
	events  chan Event
	outbox  chan Event
	wake    chan struct{}
	done    chan struct{}
	once    sync.Once
}

func New(url, token, userName string, log zerolog.Logger) *Client {
	return &Client{
		url:      url,
		token:    token,
		userName: userName,
		dialer:   &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		log:      log.With().Str("component", "chatcenter-client").Logger(),
		state:    StateDisconnected,
		quality:  newQualityTracker(10),
		events:   make(chan Event, 256),
		outbox:   make(chan Event, 64),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Events delivers every inbound server event except the client's own typing
// echo and the frames the transport consumes itself (hello, pong).
func (c *Client) Events() <-chan Event { return c.events }

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ConnectionID is assigned by the server on connect; empty until then.
func (c *Client) ConnectionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectionID
}

// Quality classifies the rolling ping round-trip window.
func (c *Client) Quality() Quality {
	if c.State() != StateConnected {
		return QualityOffline
	}
	return c.quality.classify()
}

// WakeUp forces an immediate reconnect attempt instead of waiting out the
// backoff delay. Call it on tab-visible, window-focus and network-online
// signals; waking from sleep is the dominant real-world disconnect trigger.
func (c *Client) WakeUp() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Run drives the connection until ctx is cancelled or Close is called.
// Reconnect attempts are unbounded.
func (c *Client) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			c.teardown()
			return
		case <-c.done:
			return
		default:
		}

		c.setState(StateConnecting)
		conn, err := c.dial(ctx)
		if err != nil {
			c.log.Warn().Err(err).Int("attempt", c.nextAttempt()).Msg("connect failed")
			c.setState(StateReconnecting)
			if !c.sleepBackoff(ctx) {
				return
			}
			continue
		}

		c.mu.Lock()
		c.conn = conn
		c.attempt = 0
		c.state = StateConnected
		c.mu.Unlock()
		c.log.Info().Msg("connected")

		c.serve(ctx, conn)

		// A drop is transient: fall straight into reconnecting.
		c.quality.reset()
		c.setState(StateReconnecting)
		if !c.sleepBackoff(ctx) {
			return
		}
	}
}

// Close tears the client down permanently (page teardown).
func (c *Client) Close() {
	c.once.Do(func() {
		close(c.done)
		c.teardown()
	})
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, resp, err := c.dialer.DialContext(ctx, c.url+"?token="+c.token, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	return conn, err
}

// serve pumps the connection until it drops: one writer goroutine, one
// heartbeat worker, reader in the current goroutine.
func (c *Client) serve(ctx context.Context, conn *websocket.Conn) {
	localDone := make(chan struct{})
	defer close(localDone)

	go c.writeLoop(conn, localDone)
	go c.heartbeatLoop(localDone)

	for {
		var event Event
		if err := conn.ReadJSON(&event); err != nil {
			c.log.Warn().Err(err).Msg("connection lost")
			conn.Close()
			return
		}
		c.handleInbound(event)
	}
}

func (c *Client) writeLoop(conn *websocket.Conn, localDone chan struct{}) {
	for {
		select {
		case event := <-c.outbox:
			if err := conn.WriteJSON(event); err != nil {
				conn.Close()
				return
			}
		case <-localDone:
			return
		case <-c.done:
			conn.Close()
			return
		}
	}
}

// heartbeatLoop runs in its own goroutine, the Go analogue of a worker
// thread: heartbeat cadence must not depend on whatever the UI loop is doing.
func (c *Client) heartbeatLoop(localDone chan struct{}) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			data, _ := json.Marshal(map[string]int64{"timestamp": time.Now().UnixMilli()})
			c.enqueue(Event{Event: eventPingServer, Data: data})
		case <-localDone:
			return
		case <-c.done:
			return
		}
	}
}

func (c *Client) handleInbound(event Event) {
	switch event.Event {
	case eventConnected:
		var hello struct {
			ConnectionID string `json:"connection_id"`
		}
		if json.Unmarshal(event.Data, &hello) == nil {
			c.mu.Lock()
			c.connectionID = hello.ConnectionID
			c.mu.Unlock()
		}

	case eventPongServer:
		var pong struct {
			Timestamp int64 `json:"timestamp"`
		}
		if json.Unmarshal(event.Data, &pong) == nil && pong.Timestamp > 0 {
			c.quality.record(time.Since(time.UnixMilli(pong.Timestamp)))
		}

	case eventTypingStart, eventTypingStop:
		// Drop our own echo; another tab of the same operator has a
		// different connection id and still receives it.
		var typing struct {
			ConnectionID string `json:"connection_id"`
		}
		if json.Unmarshal(event.Data, &typing) == nil && typing.ConnectionID == c.ConnectionID() && typing.ConnectionID != "" {
			return
		}
		c.deliver(event)

	default:
		c.deliver(event)
	}
}

func (c *Client) deliver(event Event) {
	select {
	case c.events <- event:
	default:
		c.log.Warn().Str("event", event.Event).Msg("event buffer full, dropping")
	}
}

func (c *Client) enqueue(event Event) {
	select {
	case c.outbox <- event:
	default:
	}
}

// JoinRoom subscribes to a conversation's events. The catch-all room needs
// no join; the server adds every connection to it.
func (c *Client) JoinRoom(roomID string) {
	data, _ := json.Marshal(map[string]string{"room_id": roomID})
	c.enqueue(Event{Event: eventJoinRoom, Data: data})
}

func (c *Client) LeaveRoom(roomID string) {
	data, _ := json.Marshal(map[string]string{"room_id": roomID})
	c.enqueue(Event{Event: eventLeaveRoom, Data: data})
}

// Typing sends a typing indicator tagged with this connection's id.
func (c *Client) Typing(roomID string, active bool) {
	name := eventTypingStart
	if !active {
		name = eventTypingStop
	}
	data, _ := json.Marshal(map[string]string{
		"room_id":       roomID,
		"user_name":     c.userName,
		"connection_id": c.ConnectionID(),
	})
	c.enqueue(Event{Event: name, Data: data})
}

// Send pushes an arbitrary client event.
func (c *Client) Send(event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	c.enqueue(Event{Event: event, Data: data})
	return nil
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Client) nextAttempt() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attempt++
	return c.attempt
}

// sleepBackoff waits out the current backoff delay. A WakeUp cuts the wait
// short; returns false when the client is shutting down.
func (c *Client) sleepBackoff(ctx context.Context) bool {
	delay := backoffDelay(c.currentAttempt())

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-c.wake:
		return true
	case <-ctx.Done():
		return false
	case <-c.done:
		return false
	}
}

func (c *Client) currentAttempt() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempt
}

// backoffDelay is exponential with full jitter, capped at 30s per wait. The
// attempt count itself is never capped.
func backoffDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	base := 500 * time.Millisecond
	max := 30 * time.Second

	delay := base << uint(attempt-1)
	if delay > max || delay <= 0 {
		delay = max
	}
	// Full jitter: anywhere in (0, delay], never a synchronized herd.
	return time.Duration(rand.Int63n(int64(delay))) + time.Millisecond
}

func (c *Client) teardown() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.state = StateDisconnected
	c.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}
