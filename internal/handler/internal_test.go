package handler

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/komsan13/chat-center-sub001/internal/middleware"
	"github.com/komsan13/chat-center-sub001/internal/model"
	"github.com/komsan13/chat-center-sub001/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testInternalToken = "test-internal-token"

func newRelayApp(t *testing.T) (*fiber.App, *service.Registry) {
	t.Helper()
	reg := service.NewRegistry(zerolog.Nop())
	go reg.Run()
	t.Cleanup(reg.Shutdown)

	app := fiber.New()
	h := NewInternalHandler(reg, zerolog.Nop())
	app.Post("/internal/broadcast", middleware.InternalToken(testInternalToken), h.Broadcast)
	return app, reg
}

func relayRequest(t *testing.T, app *fiber.App, token string, body interface{}) int {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/internal/broadcast", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("x-internal-token", token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	return resp.StatusCode
}

func TestInternalBroadcast_DeliversToRoomMembers(t *testing.T) {
	app, reg := newRelayApp(t)

	client := reg.NewClient("A", "op-A", "test-agent", nil)
	reg.Register(client)
	require.Eventually(t, func() bool { return reg.OnlineCount() == 1 }, time.Second, time.Millisecond)
	reg.JoinRoom("A", "R1")

	status := relayRequest(t, app, testInternalToken, service.RelayPayload{
		Event: model.EventNewMessage,
		Room:  "R1",
		Data:  json.RawMessage(`{"id":"m1"}`),
	})
	require.Equal(t, 200, status)

	select {
	case raw := <-client.Send:
		var ev model.WSEvent
		require.NoError(t, json.Unmarshal(raw, &ev))
		assert.Equal(t, model.EventNewMessage, ev.Event)
	default:
		t.Fatal("relayed event not delivered")
	}
}

func TestInternalBroadcast_RejectsBadToken(t *testing.T) {
	app, _ := newRelayApp(t)

	payload := service.RelayPayload{Event: model.EventRoomUpdate}
	assert.Equal(t, 403, relayRequest(t, app, "", payload))
	assert.Equal(t, 403, relayRequest(t, app, "wrong-token", payload))
}

func TestInternalBroadcast_RequiresEvent(t *testing.T) {
	app, _ := newRelayApp(t)
	assert.Equal(t, 400, relayRequest(t, app, testInternalToken, service.RelayPayload{Room: "R1"}))
}
