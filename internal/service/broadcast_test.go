package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/komsan13/chat-center-sub001/internal/model"
	apperrors "github.com/komsan13/chat-center-sub001/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcast_FirstTierWins(t *testing.T) {
	tier1 := &recordTier{name: "one"}
	tier2 := &recordTier{name: "two"}
	svc := NewBroadcastService(testLogger(), tier1, tier2)

	err := svc.Broadcast(context.Background(), "R1", model.EventNewMessage, "payload")
	require.NoError(t, err)
	assert.Len(t, tier1.recorded(), 1)
	assert.Empty(t, tier2.recorded())
}

func TestBroadcast_FallsThroughFailedTiers(t *testing.T) {
	tier1 := &recordTier{name: "one", err: apperrors.Unavailable("no func")}
	tier2 := &recordTier{name: "two", err: apperrors.Unavailable("no hub")}
	tier3 := &recordTier{name: "three"}
	svc := NewBroadcastService(testLogger(), tier1, tier2, tier3)

	err := svc.Broadcast(context.Background(), "R1", model.EventRoomUpdate, nil)
	require.NoError(t, err)
	require.Len(t, tier3.recorded(), 1)
	assert.Equal(t, "R1", tier3.recorded()[0].Room)
}

func TestBroadcast_AllTiersExhaustedReturnsError(t *testing.T) {
	tier1 := &recordTier{err: apperrors.Unavailable("down")}
	tier2 := &recordTier{err: apperrors.Unavailable("down")}
	svc := NewBroadcastService(testLogger(), tier1, tier2)

	err := svc.Broadcast(context.Background(), "R1", model.EventNewMessage, nil)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeUnavailable))
}

func TestEmit_TargetsRoomAndCatchAll(t *testing.T) {
	tier := &recordTier{}
	svc := NewBroadcastService(testLogger(), tier)

	svc.Emit(context.Background(), "R1", model.EventNewMessage, "x")

	events := tier.recorded()
	require.Len(t, events, 2)
	assert.Equal(t, "R1", events[0].Room)
	assert.Equal(t, model.CatchAllRoom, events[1].Room)
}

func TestEmit_CatchAllNotDoubled(t *testing.T) {
	tier := &recordTier{}
	svc := NewBroadcastService(testLogger(), tier)

	svc.Emit(context.Background(), model.CatchAllRoom, model.EventRoomUpdate, nil)
	assert.Len(t, tier.recorded(), 1)
}

func TestLocalFuncTier_UnsetIsUnavailable(t *testing.T) {
	tier := NewLocalFuncTier()

	err := tier.Attempt(context.Background(), "R1", "e", nil, "")
	assert.True(t, apperrors.Is(err, apperrors.CodeUnavailable))

	called := false
	tier.SetFunc(func(room, event string, data interface{}, exclude string) error {
		called = true
		return nil
	})
	require.NoError(t, tier.Attempt(context.Background(), "R1", "e", nil, ""))
	assert.True(t, called)
}

func TestHTTPRelayTier_PostsEventWithToken(t *testing.T) {
	var got RelayPayload
	var gotToken string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("x-internal-token")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	tier := NewHTTPRelayTier(server.URL, "sekrit", 2*time.Second)
	err := tier.Attempt(context.Background(), "R1", model.EventNewMessage, map[string]string{"k": "v"}, "conn-9")
	require.NoError(t, err)

	assert.Equal(t, "sekrit", gotToken)
	assert.Equal(t, "R1", got.Room)
	assert.Equal(t, model.EventNewMessage, got.Event)
	assert.Equal(t, "conn-9", got.Exclude)
}

func TestHTTPRelayTier_RejectionIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	tier := NewHTTPRelayTier(server.URL, "wrong", 2*time.Second)
	err := tier.Attempt(context.Background(), "R1", "e", nil, "")
	assert.True(t, apperrors.Is(err, apperrors.CodeUnavailable))
}

func TestHTTPRelayTier_UnconfiguredIsUnavailable(t *testing.T) {
	tier := NewHTTPRelayTier("", "t", time.Second)
	err := tier.Attempt(context.Background(), "R1", "e", nil, "")
	assert.True(t, apperrors.Is(err, apperrors.CodeUnavailable))
}

func TestEventRing_BoundedByCount(t *testing.T) {
	ring := newEventRing(3, time.Hour)
	for i := 0; i < 10; i++ {
		ring.add(BufferedEvent{Event: "e", At: time.Now()})
	}
	assert.Len(t, ring.snapshot(), 3)
}

func TestEventRing_BoundedByAge(t *testing.T) {
	ring := newEventRing(100, time.Minute)
	ring.add(BufferedEvent{Event: "old", At: time.Now().Add(-2 * time.Minute)})
	ring.add(BufferedEvent{Event: "new", At: time.Now()})

	events := ring.snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, "new", events[0].Event)
}

func TestBroadcastService_RecordsDeliveredEvents(t *testing.T) {
	tier := &recordTier{}
	svc := NewBroadcastService(testLogger(), tier)

	require.NoError(t, svc.Broadcast(context.Background(), "R1", model.EventNewMessage, nil))
	recent := svc.RecentEvents()
	require.Len(t, recent, 1)
	assert.Equal(t, model.EventNewMessage, recent[0].Event)
	assert.Equal(t, "record", recent[0].Tier)
}
