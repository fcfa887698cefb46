package handler

import (
	"github.com/komsan13/chat-center-sub001/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// InternalHandler receives tier-3 relayed broadcasts from a sibling process
// that has no in-process path to the live sockets. Guarded by the
// x-internal-token middleware; performs local (tier 1/2 equivalent) delivery.
type InternalHandler struct {
	registry *service.Registry
	log      zerolog.Logger
}

func NewInternalHandler(registry *service.Registry, log zerolog.Logger) *InternalHandler {
	return &InternalHandler{registry: registry, log: log.With().Str("component", "internal").Logger()}
}

func (h *InternalHandler) Broadcast(c *fiber.Ctx) error {
	var payload service.RelayPayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}
	if payload.Event == "" {
		return c.Status(400).JSON(fiber.Map{"error": "event is required"})
	}

	if err := h.registry.BroadcastRoom(payload.Room, payload.Event, payload.Data, payload.Exclude); err != nil {
		h.log.Error().Err(err).Str("event", payload.Event).Msg("relayed broadcast failed")
		return c.Status(500).JSON(fiber.Map{"error": "broadcast failed"})
	}
	return c.JSON(fiber.Map{"ok": true})
}
