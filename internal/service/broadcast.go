package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/komsan13/chat-center-sub001/internal/metrics"
	"github.com/komsan13/chat-center-sub001/internal/model"
	apperrors "github.com/komsan13/chat-center-sub001/pkg/errors"

	"github.com/rs/zerolog"
)

// DeliveryTier is one strategy in the ordered fallback chain. Attempt returns
// nil when the event was handed to live connections by this tier.
type DeliveryTier interface {
	Name() string
	Attempt(ctx context.Context, room, event string, data interface{}, excludeConn string) error
}

// BroadcastFunc is the in-process fast path: a direct reference to the
// registry's fan-out, present only when ingest and the socket server share a
// process.
type BroadcastFunc func(room, event string, data interface{}, excludeConn string) error

// LocalFuncTier delivers through an injected broadcast function reference.
type LocalFuncTier struct {
	mu sync.RWMutex
	fn BroadcastFunc
}

func NewLocalFuncTier() *LocalFuncTier { return &LocalFuncTier{} }

func (t *LocalFuncTier) Name() string { return "local-func" }

func (t *LocalFuncTier) SetFunc(fn BroadcastFunc) {
	t.mu.Lock()
	t.fn = fn
	t.mu.Unlock()
}

func (t *LocalFuncTier) Attempt(_ context.Context, room, event string, data interface{}, excludeConn string) error {
	t.mu.RLock()
	fn := t.fn
	t.mu.RUnlock()
	if fn == nil {
		return apperrors.Unavailable("broadcast function not set")
	}
	return fn(room, event, data, excludeConn)
}

// HubTier delivers through the raw registry handle.
type HubTier struct {
	hub *Registry
}

func NewHubTier(hub *Registry) *HubTier { return &HubTier{hub: hub} }

func (t *HubTier) Name() string { return "hub" }

func (t *HubTier) Attempt(_ context.Context, room, event string, data interface{}, excludeConn string) error {
	if t.hub == nil {
		return apperrors.Unavailable("no registry handle")
	}
	return t.hub.BroadcastRoom(room, event, data, excludeConn)
}

// HTTPRelayTier POSTs the event to the internal broadcast endpoint of the
// process that owns the live sockets. Used when webhook handling runs in a
// different OS process than the socket server.
type HTTPRelayTier struct {
	url    string
	token  string
	client *http.Client
}

func NewHTTPRelayTier(url, token string, timeout time.Duration) *HTTPRelayTier {
	return &HTTPRelayTier{
		url:    url,
		token:  token,
		client: &http.Client{Timeout: timeout},
	}
}

func (t *HTTPRelayTier) Name() string { return "http-relay" }

// RelayPayload is the internal endpoint's body.
type RelayPayload struct {
	Event   string      `json:"event"`
	Data    interface{} `json:"data"`
	Room    string      `json:"room"`
	Exclude string      `json:"exclude,omitempty"`
}

func (t *HTTPRelayTier) Attempt(ctx context.Context, room, event string, data interface{}, excludeConn string) error {
	if t.url == "" {
		return apperrors.Unavailable("relay url not configured")
	}

	body, err := json.Marshal(RelayPayload{Event: event, Data: data, Room: room, Exclude: excludeConn})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-internal-token", t.token)

	resp, err := t.client.Do(req)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeUnavailable, "relay request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apperrors.Unavailable(fmt.Sprintf("relay returned HTTP %d", resp.StatusCode))
	}
	return nil
}

// BufferedEvent is one ring-buffer entry, kept for diagnostics only.
type BufferedEvent struct {
	Event string      `json:"event"`
	Room  string      `json:"room"`
	Data  interface{} `json:"data,omitempty"`
	Tier  string      `json:"tier"`
	At    time.Time   `json:"at"`
}

// eventRing is a bounded count+age buffer of recently delivered events.
type eventRing struct {
	mu     sync.Mutex
	events []BufferedEvent
	max    int
	maxAge time.Duration
}

func newEventRing(max int, maxAge time.Duration) *eventRing {
	return &eventRing{max: max, maxAge: maxAge}
}

func (b *eventRing) add(ev BufferedEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events = append(b.events, ev)
	cutoff := time.Now().Add(-b.maxAge)
	start := 0
	if over := len(b.events) - b.max; over > 0 {
		start = over
	}
	for start < len(b.events) && b.events[start].At.Before(cutoff) {
		start++
	}
	if start > 0 {
		b.events = append([]BufferedEvent(nil), b.events[start:]...)
	}
}

func (b *eventRing) snapshot() []BufferedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]BufferedEvent, len(b.events))
	copy(out, b.events)
	return out
}

// BroadcastService routes events through the delivery tiers in order. The
// first tier that succeeds wins; every failure along the way is logged and
// counted, and only exhaustion of the whole chain is reported to the caller.
type BroadcastService struct {
	tiers  []DeliveryTier
	recent *eventRing
	log    zerolog.Logger
}

func NewBroadcastService(log zerolog.Logger, tiers ...DeliveryTier) *BroadcastService {
	return &BroadcastService{
		tiers:  tiers,
		recent: newEventRing(100, 5*time.Minute),
		log:    log.With().Str("component", "broadcast").Logger(),
	}
}

func (s *BroadcastService) Broadcast(ctx context.Context, room, event string, data interface{}) error {
	return s.deliver(ctx, room, event, data, "")
}

func (s *BroadcastService) BroadcastExcluding(ctx context.Context, room, event string, data interface{}, excludeConn string) error {
	return s.deliver(ctx, room, event, data, excludeConn)
}

func (s *BroadcastService) deliver(ctx context.Context, room, event string, data interface{}, excludeConn string) error {
	var lastErr error
	for _, tier := range s.tiers {
		err := tier.Attempt(ctx, room, event, data, excludeConn)
		if err == nil {
			metrics.Broadcasts.WithLabelValues(tier.Name(), "ok").Inc()
			s.recent.add(BufferedEvent{Event: event, Room: room, Data: data, Tier: tier.Name(), At: time.Now()})
			return nil
		}
		metrics.Broadcasts.WithLabelValues(tier.Name(), "error").Inc()
		s.log.Warn().Err(err).Str("tier", tier.Name()).Str("event", event).Str("room", room).
			Msg("delivery tier failed, trying next")
		lastErr = err
	}
	return apperrors.Wrap(apperrors.CodeUnavailable, "all delivery tiers failed", lastErr)
}

// Emit targets both the specific room and the catch-all room, so room-list
// UIs refresh even while a different conversation is open. Failures are
// logged and swallowed: broadcast is best-effort notification, persistence is
// the source of truth.
func (s *BroadcastService) Emit(ctx context.Context, room, event string, data interface{}) {
	if err := s.deliver(ctx, room, event, data, ""); err != nil {
		s.log.Error().Err(err).Str("event", event).Str("room", room).Msg("broadcast lost")
	}
	if room != model.CatchAllRoom {
		if err := s.deliver(ctx, model.CatchAllRoom, event, data, ""); err != nil {
			s.log.Error().Err(err).Str("event", event).Msg("catch-all broadcast lost")
		}
	}
}

// RecentEvents exposes the diagnostics ring buffer.
func (s *BroadcastService) RecentEvents() []BufferedEvent {
	return s.recent.snapshot()
}
