package service

import (
	"context"
	"errors"
	"time"

	"github.com/komsan13/chat-center-sub001/internal/metrics"
	"github.com/komsan13/chat-center-sub001/internal/model"
	apperrors "github.com/komsan13/chat-center-sub001/pkg/errors"

	"github.com/rs/zerolog"
)

type SendRequest struct {
	RoomID      string            `json:"room_id"`
	MessageType model.MessageType `json:"message_type"`
	Content     string            `json:"content,omitempty"`
	PackageID   string            `json:"package_id,omitempty"`
	StickerID   string            `json:"sticker_id,omitempty"`
	MediaURL    string            `json:"media_url,omitempty"`
	DurationMs  int               `json:"duration_ms,omitempty"`
}

// SendResult reports the pipeline outcome. Error carries the provider's
// detail when delivery was rejected, so the UI can surface a retry
// affordance next to the failed message.
type SendResult struct {
	Message *model.ChatMessage `json:"message"`
	Success bool               `json:"success"`
	Error   string             `json:"error,omitempty"`
}

// SendService pushes operator messages to the external partner with an
// optimistic echo: the message is visible to the sender as "sending" before
// the provider round-trip completes, then re-broadcast with its final status.
type SendService struct {
	rooms     RoomStore
	messages  MessageStore
	channels  ChannelStore
	api       PlatformAPI
	broadcast *BroadcastService
	alerts    *AlertService
	log       zerolog.Logger
}

func NewSendService(rooms RoomStore, messages MessageStore, channels ChannelStore,
	api PlatformAPI, broadcast *BroadcastService, alerts *AlertService, log zerolog.Logger) *SendService {
	return &SendService{
		rooms:     rooms,
		messages:  messages,
		channels:  channels,
		api:       api,
		broadcast: broadcast,
		alerts:    alerts,
		log:       log.With().Str("component", "send").Logger(),
	}
}

func (s *SendService) Send(ctx context.Context, req SendRequest) (*SendResult, error) {
	if req.RoomID == "" {
		return nil, apperrors.InvalidArg("room_id is required")
	}
	if req.MessageType == "" {
		req.MessageType = model.MessageTypeText
	}
	if req.MessageType == model.MessageTypeText && req.Content == "" {
		return nil, apperrors.InvalidArg("content is required for text messages")
	}

	room, err := s.rooms.GetByID(ctx, req.RoomID)
	if err != nil {
		return nil, err
	}

	channel, err := s.resolveCredential(ctx, room)
	if err != nil {
		return nil, err
	}

	msg := &model.ChatMessage{
		RoomID:  room.ID,
		Type:    req.MessageType,
		Payload: buildPayload(req),
		Sender:  model.SenderAgent,
		Status:  model.StatusSending,
	}
	if err := s.messages.Insert(ctx, msg); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "persist message", err)
	}

	// Optimistic echo before the provider round-trip.
	s.broadcast.Emit(ctx, room.ID, model.EventNewMessage, msg)

	pushErr := s.api.Push(ctx, channel.AccessToken, room.ExternalUserID, msg)

	final := model.StatusSent
	if pushErr != nil {
		final = model.StatusFailed
		s.log.Warn().Err(pushErr).Str("room", room.ID).Str("message", msg.ID).Msg("external delivery failed")
		s.alerts.DeliveryFailure(room.DisplayName, pushErr.Error())
		metrics.OutboundSends.WithLabelValues(string(msg.Type), "failed").Inc()
	} else {
		metrics.OutboundSends.WithLabelValues(string(msg.Type), "sent").Inc()
	}

	if err := s.messages.UpdateStatus(ctx, msg.ID, final); err != nil {
		s.log.Error().Err(err).Str("message", msg.ID).Msg("status update failed")
	}
	msg.Status = final

	preview := msg.Payload.Preview(msg.Type)
	now := time.Now()
	if err := s.rooms.TouchLastMessage(ctx, room.ID, preview, now); err != nil {
		s.log.Error().Err(err).Str("room", room.ID).Msg("touch last message failed")
	}

	s.broadcast.Emit(ctx, room.ID, model.EventNewMessage, msg)
	s.broadcast.Emit(ctx, room.ID, model.EventRoomUpdate, model.RoomUpdate{
		ID:            room.ID,
		LastMessage:   preview,
		LastMessageAt: now,
		UnreadCount:   room.UnreadCount,
	})

	result := &SendResult{Message: msg, Success: pushErr == nil}
	if pushErr != nil {
		result.Error = providerDetail(pushErr)
	}
	return result, nil
}

// resolveCredential prefers the room's own channel, falls back to any active
// credential when that one is missing or disabled, and fails fast when none
// remains.
func (s *SendService) resolveCredential(ctx context.Context, room *model.ChatRoom) (*model.Channel, error) {
	if room.ExternalChannelID != nil {
		channel, err := s.channels.GetByID(ctx, *room.ExternalChannelID)
		if err == nil && channel.Active {
			return channel, nil
		}
	}

	list, err := s.channels.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].Active {
			return &list[i], nil
		}
	}
	return nil, apperrors.FailedPrecondition("no active channel credential")
}

func buildPayload(req SendRequest) model.Payload {
	switch req.MessageType {
	case model.MessageTypeSticker:
		return model.Payload{Sticker: &model.StickerPayload{PackageID: req.PackageID, StickerID: req.StickerID}}
	case model.MessageTypeImage, model.MessageTypeVideo, model.MessageTypeAudio, model.MessageTypeFile:
		return model.Payload{Media: &model.MediaPayload{ContentRef: req.MediaURL, DurationMs: req.DurationMs}}
	default:
		return model.Payload{Text: &model.TextPayload{Text: req.Content}}
	}
}

func providerDetail(err error) string {
	var app *apperrors.AppError
	if errors.As(err, &app) && app.Cause != nil {
		return app.Error()
	}
	return err.Error()
}
