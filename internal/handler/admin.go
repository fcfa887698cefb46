package handler

import (
	"github.com/komsan13/chat-center-sub001/internal/service"

	"github.com/gofiber/fiber/v2"
)

type AdminHandler struct {
	registry  *service.Registry
	broadcast *service.BroadcastService
	channels  service.ChannelStore
}

func NewAdminHandler(registry *service.Registry, broadcast *service.BroadcastService, channels service.ChannelStore) *AdminHandler {
	return &AdminHandler{registry: registry, broadcast: broadcast, channels: channels}
}

// Stats reports live connection counts and the recent-broadcast ring buffer.
func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"clients_online": h.registry.OnlineCount(),
		"recent_events":  h.broadcast.RecentEvents(),
	})
}

func (h *AdminHandler) ListChannels(c *fiber.Ctx) error {
	channels, err := h.channels.List(c.Context())
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to list channels"})
	}
	return c.JSON(fiber.Map{"channels": channels})
}

// SetChannelActive flips a credential on or off. Inactive channels still
// match webhook signatures; their events are acked and dropped.
func (h *AdminHandler) SetChannelActive(c *fiber.Ctx) error {
	var req struct {
		Active bool `json:"active"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := h.channels.SetActive(c.Context(), c.Params("id"), req.Active); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}
