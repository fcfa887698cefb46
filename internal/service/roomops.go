package service

import (
	"context"

	"github.com/komsan13/chat-center-sub001/internal/model"

	"github.com/rs/zerolog"
)

// RoomOpsService backs the operator room actions that arrive either as
// socket frames or REST calls: read markers, property edits, permanent
// delete. Each persists first, then echoes the corresponding server event to
// the room and the catch-all room.
type RoomOpsService struct {
	rooms     RoomStore
	messages  MessageStore
	broadcast *BroadcastService
	log       zerolog.Logger
}

func NewRoomOpsService(rooms RoomStore, messages MessageStore, broadcast *BroadcastService, log zerolog.Logger) *RoomOpsService {
	return &RoomOpsService{
		rooms:     rooms,
		messages:  messages,
		broadcast: broadcast,
		log:       log.With().Str("component", "roomops").Logger(),
	}
}

// MarkMessagesRead advances the given sent messages to delivered and echoes
// messages-read.
func (s *RoomOpsService) MarkMessagesRead(ctx context.Context, roomID string, messageIDs []string) error {
	if err := s.messages.MarkDelivered(ctx, roomID, messageIDs); err != nil {
		return err
	}
	s.broadcast.Emit(ctx, roomID, model.EventMessagesRead, model.MessageReadEvent{
		RoomID:     roomID,
		MessageIDs: messageIDs,
	})
	return nil
}

// MarkRoomRead zeroes the unread counter and echoes room-read-update.
func (s *RoomOpsService) MarkRoomRead(ctx context.Context, roomID string) error {
	if err := s.rooms.ResetUnread(ctx, roomID); err != nil {
		return err
	}
	s.broadcast.Emit(ctx, roomID, model.EventRoomReadUpdate, model.RoomRef{RoomID: roomID})
	return nil
}

// UpdateProperties applies an operator edit and echoes room-property-changed.
func (s *RoomOpsService) UpdateProperties(ctx context.Context, roomID string, patch model.RoomPropertyPatch) error {
	if err := s.rooms.UpdateProperties(ctx, roomID, patch); err != nil {
		return err
	}
	s.broadcast.Emit(ctx, roomID, model.EventRoomPropertyChange, model.RoomPropertyEvent{
		RoomID:  roomID,
		Updates: patch,
	})
	return nil
}

// DeleteRoom permanently removes a room and its messages, then echoes
// room-removed.
func (s *RoomOpsService) DeleteRoom(ctx context.Context, roomID string) error {
	if err := s.rooms.Delete(ctx, roomID); err != nil {
		return err
	}
	s.broadcast.Emit(ctx, roomID, model.EventRoomRemoved, model.RoomRef{RoomID: roomID})
	return nil
}
