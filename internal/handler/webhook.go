package handler

import (
	"github.com/komsan13/chat-center-sub001/internal/platform"
	"github.com/komsan13/chat-center-sub001/internal/service"
	apperrors "github.com/komsan13/chat-center-sub001/pkg/errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

type WebhookHandler struct {
	ingest *service.IngestService
	log    zerolog.Logger
}

func NewWebhookHandler(ingest *service.IngestService, log zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{ingest: ingest, log: log.With().Str("component", "webhook").Logger()}
}

// Receive handles POST /webhook: every stored credential is tried against
// the signature, first match wins.
func (h *WebhookHandler) Receive(c *fiber.Ctx) error {
	return h.handle(c, "")
}

// ReceiveForChannel handles POST /webhook/:channelId: only the named
// channel's secret is tried.
func (h *WebhookHandler) ReceiveForChannel(c *fiber.Ctx) error {
	return h.handle(c, c.Params("channelId"))
}

func (h *WebhookHandler) handle(c *fiber.Ctx, channelID string) error {
	body := c.Body()
	signature := c.Get(platform.SignatureHeader)

	err := h.ingest.HandleWebhook(c.Context(), body, signature, channelID)
	if err == nil {
		return c.JSON(fiber.Map{"ok": true})
	}

	code := apperrors.CodeOf(err)
	switch code {
	case apperrors.CodeInactiveChannel:
		// 200 by contract: a non-2xx would make the platform retry a webhook
		// the operator deliberately disabled.
		return c.JSON(fiber.Map{"ok": true})
	case apperrors.CodeUnauthenticated:
		return c.Status(401).JSON(fiber.Map{"error": "invalid signature"})
	case apperrors.CodeInvalidArgument:
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	case apperrors.CodeNotFound:
		return c.Status(404).JSON(fiber.Map{"error": "unknown channel"})
	default:
		h.log.Error().Err(err).Msg("webhook processing failed")
		return c.Status(500).JSON(fiber.Map{"error": "internal error"})
	}
}
