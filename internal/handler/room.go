package handler

import (
	"errors"
	"time"

	"github.com/komsan13/chat-center-sub001/internal/model"
	"github.com/komsan13/chat-center-sub001/internal/service"
	apperrors "github.com/komsan13/chat-center-sub001/pkg/errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// RoomHandler is the REST surface the operator UI uses next to the socket:
// room listing, history, sends, read markers, property edits.
type RoomHandler struct {
	rooms    service.RoomStore
	messages service.MessageStore
	send     *service.SendService
	roomOps  *service.RoomOpsService
	log      zerolog.Logger
}

func NewRoomHandler(rooms service.RoomStore, messages service.MessageStore,
	send *service.SendService, roomOps *service.RoomOpsService, log zerolog.Logger) *RoomHandler {
	return &RoomHandler{
		rooms:    rooms,
		messages: messages,
		send:     send,
		roomOps:  roomOps,
		log:      log.With().Str("component", "rooms").Logger(),
	}
}

// List returns rooms, pinned first then most recent.
// GET /api/v1/rooms?status=active&tag=new&limit=100
func (h *RoomHandler) List(c *fiber.Ctx) error {
	status := model.RoomStatus(c.Query("status"))
	if status != "" && !status.Valid() {
		return c.Status(400).JSON(fiber.Map{"error": "invalid status filter"})
	}

	rooms, err := h.rooms.List(c.Context(), status, c.Query("tag"), c.QueryInt("limit", 100))
	if err != nil {
		h.log.Error().Err(err).Msg("room list failed")
		return c.Status(500).JSON(fiber.Map{"error": "failed to list rooms"})
	}
	if rooms == nil {
		rooms = []model.ChatRoom{}
	}
	return c.JSON(fiber.Map{"rooms": rooms})
}

func (h *RoomHandler) Get(c *fiber.Ctx) error {
	room, err := h.rooms.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(room)
}

// History returns messages in chronological order, cursored by time.
// GET /api/v1/rooms/:id/messages?before=RFC3339&limit=50
func (h *RoomHandler) History(c *fiber.Ctx) error {
	var before time.Time
	if raw := c.Query("before"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "before must be RFC3339"})
		}
		before = parsed
	}

	msgs, err := h.messages.GetHistory(c.Context(), c.Params("id"), before, c.QueryInt("limit", 50))
	if err != nil {
		h.log.Error().Err(err).Msg("history failed")
		return c.Status(500).JSON(fiber.Map{"error": "failed to get history"})
	}
	if msgs == nil {
		msgs = []model.ChatMessage{}
	}
	return c.JSON(fiber.Map{"messages": msgs})
}

// Send runs the outbound pipeline. The response always carries the persisted
// message; success=false plus the provider detail marks a failed delivery the
// UI can offer to retry.
// POST /api/v1/messages
func (h *RoomHandler) Send(c *fiber.Ctx) error {
	var req service.SendRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}

	result, err := h.send.Send(c.Context(), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// MarkRead zeroes the unread counter.
// POST /api/v1/rooms/:id/read
func (h *RoomHandler) MarkRead(c *fiber.Ctx) error {
	if err := h.roomOps.MarkRoomRead(c.Context(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

// Update applies a room property patch.
// PATCH /api/v1/rooms/:id
func (h *RoomHandler) Update(c *fiber.Ctx) error {
	var patch model.RoomPropertyPatch
	if err := c.BodyParser(&patch); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := h.roomOps.UpdateProperties(c.Context(), c.Params("id"), patch); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

// Delete permanently removes a room and cascades to its messages.
// DELETE /api/v1/rooms/:id
func (h *RoomHandler) Delete(c *fiber.Ctx) error {
	if err := h.roomOps.DeleteRoom(c.Context(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

func respondError(c *fiber.Ctx, err error) error {
	code := apperrors.CodeOf(err)
	status := apperrors.HTTPStatus(code)

	msg := "internal error"
	var app *apperrors.AppError
	if errors.As(err, &app) && status < 500 {
		msg = app.Message
	}
	return c.Status(status).JSON(fiber.Map{"error": msg, "code": code})
}
