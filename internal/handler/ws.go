package handler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/komsan13/chat-center-sub001/internal/middleware"
	"github.com/komsan13/chat-center-sub001/internal/model"
	"github.com/komsan13/chat-center-sub001/internal/service"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type WSHandler struct {
	registry  *service.Registry
	broadcast *service.BroadcastService
	roomOps   *service.RoomOpsService
	jwtSecret []byte
	log       zerolog.Logger
}

func NewWSHandler(registry *service.Registry, broadcast *service.BroadcastService,
	roomOps *service.RoomOpsService, jwtSecret string, log zerolog.Logger) *WSHandler {
	return &WSHandler{
		registry:  registry,
		broadcast: broadcast,
		roomOps:   roomOps,
		jwtSecret: []byte(jwtSecret),
		log:       log.With().Str("component", "ws").Logger(),
	}
}

func (h *WSHandler) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		token := c.Query("token")
		if token == "" {
			return c.Status(401).JSON(fiber.Map{"error": "token required"})
		}

		operatorID, userName, err := middleware.ValidateToken(token, h.jwtSecret)
		if err != nil {
			return c.Status(401).JSON(fiber.Map{"error": "invalid token"})
		}

		c.Locals("operator_id", operatorID)
		c.Locals("user_name", userName)
		c.Locals("user_agent", c.Get("User-Agent"))
		return websocket.New(h.handleConnection)(c)
	}
	return fiber.ErrUpgradeRequired
}

func (h *WSHandler) handleConnection(c *websocket.Conn) {
	userName, _ := c.Locals("user_name").(string)
	userAgent, _ := c.Locals("user_agent").(string)

	client := h.registry.NewClient(uuid.NewString(), userName, userAgent, c)
	h.registry.Register(client)
	defer h.registry.Unregister(client)

	// Tell the client its connection id so it can suppress its own typing echo.
	if hello, err := json.Marshal(fiber.Map{"connection_id": client.ID}); err == nil {
		frame, _ := json.Marshal(model.WSEvent{Event: "connected", Data: hello})
		client.Send <- frame
	}

	// Writer goroutine: sole writer for this connection, so delivery order
	// follows the send-queue order.
	go func() {
		defer c.Close()
		for msg := range client.Send {
			if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
				break
			}
		}
	}()

	c.SetReadDeadline(time.Now().Add(60 * time.Second))
	for {
		_, msg, err := c.ReadMessage()
		if err != nil {
			break
		}
		c.SetReadDeadline(time.Now().Add(60 * time.Second))

		var event model.WSEvent
		if err := json.Unmarshal(msg, &event); err != nil {
			continue
		}
		h.dispatch(client, event)
	}
}

func (h *WSHandler) dispatch(client *service.WSClient, event model.WSEvent) {
	ctx := context.Background()

	switch event.Event {
	case model.EventJoinRoom:
		var ref model.RoomRef
		if json.Unmarshal(event.Data, &ref) == nil && ref.RoomID != "" {
			h.registry.JoinRoom(client.ID, ref.RoomID)
		}

	case model.EventLeaveRoom:
		var ref model.RoomRef
		if json.Unmarshal(event.Data, &ref) == nil {
			h.registry.LeaveRoom(client.ID, ref.RoomID)
		}

	case model.EventTypingStart, model.EventTypingStop:
		var typing model.TypingEvent
		if json.Unmarshal(event.Data, &typing) != nil || typing.RoomID == "" {
			return
		}
		// Relay to room members except the originator; the connection id tag
		// lets other tabs of the same operator still see it.
		typing.ConnectionID = client.ID
		if err := h.broadcast.BroadcastExcluding(ctx, typing.RoomID, event.Event, typing, client.ID); err != nil {
			h.log.Warn().Err(err).Str("room", typing.RoomID).Msg("typing relay failed")
		}

	case model.EventMessageRead:
		var read model.MessageReadEvent
		if json.Unmarshal(event.Data, &read) != nil || read.RoomID == "" {
			return
		}
		if err := h.roomOps.MarkMessagesRead(ctx, read.RoomID, read.MessageIDs); err != nil {
			h.log.Error().Err(err).Str("room", read.RoomID).Msg("message-read failed")
		}

	case model.EventRoomRead:
		var ref model.RoomRef
		if json.Unmarshal(event.Data, &ref) != nil || ref.RoomID == "" {
			return
		}
		if err := h.roomOps.MarkRoomRead(ctx, ref.RoomID); err != nil {
			h.log.Error().Err(err).Str("room", ref.RoomID).Msg("room-read failed")
		}

	case model.EventRoomPropertyUpdate:
		var prop model.RoomPropertyEvent
		if json.Unmarshal(event.Data, &prop) != nil || prop.RoomID == "" {
			return
		}
		if err := h.roomOps.UpdateProperties(ctx, prop.RoomID, prop.Updates); err != nil {
			h.log.Error().Err(err).Str("room", prop.RoomID).Msg("property update failed")
		}

	case model.EventRoomDeleted:
		var ref model.RoomRef
		if json.Unmarshal(event.Data, &ref) != nil || ref.RoomID == "" {
			return
		}
		if err := h.roomOps.DeleteRoom(ctx, ref.RoomID); err != nil {
			h.log.Error().Err(err).Str("room", ref.RoomID).Msg("room delete failed")
		}

	case model.EventPingServer:
		h.registry.Touch(client.ID)
		// Echo the client timestamp back so it can measure round-trip time.
		pong, _ := json.Marshal(model.WSEvent{Event: model.EventPongServer, Data: event.Data})
		select {
		case client.Send <- pong:
		default:
		}

	default:
		h.log.Debug().Str("event", event.Event).Str("conn", client.ID).Msg("unknown event")
	}
}
