package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/komsan13/chat-center-sub001/internal/metrics"
	"github.com/komsan13/chat-center-sub001/internal/model"
	"github.com/komsan13/chat-center-sub001/internal/platform"
	apperrors "github.com/komsan13/chat-center-sub001/pkg/errors"

	"github.com/rs/zerolog"
)

// IngestService authenticates inbound platform webhooks and turns their
// events into room/message mutations plus broadcasts.
type IngestService struct {
	rooms     RoomStore
	messages  MessageStore
	channels  ChannelStore
	api       PlatformAPI
	broadcast *BroadcastService
	alerts    *AlertService

	// enforceSignature is off only in non-production environments to ease
	// local testing.
	enforceSignature bool
	log              zerolog.Logger
}

func NewIngestService(rooms RoomStore, messages MessageStore, channels ChannelStore,
	api PlatformAPI, broadcast *BroadcastService, alerts *AlertService,
	enforceSignature bool, log zerolog.Logger) *IngestService {
	return &IngestService{
		rooms:            rooms,
		messages:         messages,
		channels:         channels,
		api:              api,
		broadcast:        broadcast,
		alerts:           alerts,
		enforceSignature: enforceSignature,
		log:              log.With().Str("component", "ingest").Logger(),
	}
}

// HandleWebhook verifies the signature, resolves which channel credential
// produced the request, and processes the event envelope. channelID narrows
// the credential scan when the webhook URL names a channel; when empty, every
// stored credential is tried and the first signature match wins.
func (s *IngestService) HandleWebhook(ctx context.Context, body []byte, signature, channelID string) error {
	channel, err := s.resolveChannel(ctx, body, signature, channelID)
	if err != nil {
		return err
	}

	var envelope model.WebhookEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return apperrors.Wrap(apperrors.CodeInvalidArgument, "malformed webhook body", err)
	}

	for _, event := range envelope.Events {
		if err := s.processEvent(ctx, channel, event); err != nil {
			// One bad event must not block its siblings; the platform has
			// already been acked for the whole envelope.
			s.log.Error().Err(err).Str("event_type", event.Type).Msg("event processing failed")
			metrics.WebhookEvents.WithLabelValues(event.Type, "error").Inc()
			continue
		}
		metrics.WebhookEvents.WithLabelValues(event.Type, "ok").Inc()
	}
	return nil
}

func (s *IngestService) resolveChannel(ctx context.Context, body []byte, signature, channelID string) (*model.Channel, error) {
	var candidates []model.Channel
	if channelID != "" {
		ch, err := s.channels.GetByID(ctx, channelID)
		if err != nil {
			return nil, err
		}
		candidates = []model.Channel{*ch}
	} else {
		list, err := s.channels.List(ctx)
		if err != nil {
			return nil, err
		}
		candidates = list
	}

	if !s.enforceSignature {
		for i := range candidates {
			if candidates[i].Active {
				return &candidates[i], nil
			}
		}
		return nil, apperrors.InactiveChannel("no active channel")
	}

	for i := range candidates {
		if !platform.Verify(body, candidates[i].Secret, signature) {
			continue
		}
		if !candidates[i].Active {
			// Acked upstream (200) but dropped, otherwise the platform
			// retries a deliberately disabled webhook forever.
			s.log.Info().Str("channel", candidates[i].ID).Msg("inactive channel matched, dropping")
			return nil, apperrors.InactiveChannel("channel disabled")
		}
		return &candidates[i], nil
	}
	return nil, apperrors.Unauthorized("signature mismatch")
}

func (s *IngestService) processEvent(ctx context.Context, channel *model.Channel, event model.WebhookEvent) error {
	switch event.Type {
	case "message":
		return s.processMessage(ctx, channel, event)
	case "follow":
		return s.processFollow(ctx, channel, event)
	case "unfollow":
		return s.processUnfollow(ctx, channel, event)
	default:
		s.log.Debug().Str("type", event.Type).Msg("ignoring unhandled event type")
		return nil
	}
}

func (s *IngestService) processMessage(ctx context.Context, channel *model.Channel, event model.WebhookEvent) error {
	if event.Message == nil || event.Source.UserID == "" {
		return apperrors.InvalidArg("message event missing message or source")
	}

	room, err := s.resolveRoom(ctx, channel, event.Source.UserID, nil)
	if err != nil {
		return err
	}

	msgType, payload := s.normalize(event.Message)
	extID := event.Message.ID
	msg := &model.ChatMessage{
		RoomID:            room.ID,
		ExternalMessageID: &extID,
		Type:              msgType,
		Payload:           payload,
		Sender:            model.SenderUser,
		Status:            model.StatusSent,
		CreatedAt:         eventTime(event),
	}
	if err := s.messages.Insert(ctx, msg); err != nil {
		return fmt.Errorf("persist message: %w", err)
	}

	preview := payload.Preview(msgType)
	if err := s.rooms.TouchLastMessage(ctx, room.ID, preview, msg.CreatedAt); err != nil {
		s.log.Error().Err(err).Str("room", room.ID).Msg("touch last message failed")
	}

	// Re-read the authoritative post-increment count; a client-computed guess
	// drifts under concurrent inbound events for the same room.
	unread, err := s.rooms.IncrementUnread(ctx, room.ID)
	if err != nil {
		s.log.Error().Err(err).Str("room", room.ID).Msg("unread increment failed")
		unread = room.UnreadCount + 1
	}

	s.broadcast.Emit(ctx, room.ID, model.EventNewMessage, msg)
	s.broadcast.Emit(ctx, room.ID, model.EventRoomUpdate, model.RoomUpdate{
		ID:            room.ID,
		LastMessage:   preview,
		LastMessageAt: msg.CreatedAt,
		UnreadCount:   unread,
	})
	return nil
}

// resolveRoom finds the conversation for the partner, creating it on first
// contact. Profile fetch failure is non-fatal: the raw external id becomes
// the display name.
func (s *IngestService) resolveRoom(ctx context.Context, channel *model.Channel, externalUserID string, tags []string) (*model.ChatRoom, error) {
	room, err := s.rooms.GetByPartner(ctx, externalUserID, &channel.ID)
	if err == nil {
		return room, nil
	}
	if !apperrors.Is(err, apperrors.CodeNotFound) {
		return nil, err
	}

	displayName := externalUserID
	avatarURL := ""
	if profile, perr := s.api.GetProfile(ctx, channel.AccessToken, externalUserID); perr == nil {
		displayName = profile.DisplayName
		avatarURL = profile.AvatarURL
	} else {
		s.log.Warn().Err(perr).Str("user", externalUserID).Msg("profile fetch failed, using raw id")
	}

	room = &model.ChatRoom{
		ExternalUserID:    externalUserID,
		ExternalChannelID: &channel.ID,
		DisplayName:       displayName,
		AvatarURL:         avatarURL,
		Tags:              tags,
		Status:            model.RoomStatusActive,
	}
	if err := s.rooms.Create(ctx, room); err != nil {
		// Lost a create race with a concurrent event for the same partner.
		if existing, gerr := s.rooms.GetByPartner(ctx, externalUserID, &channel.ID); gerr == nil {
			return existing, nil
		}
		return nil, fmt.Errorf("create room: %w", err)
	}

	s.broadcast.Emit(ctx, room.ID, model.EventNewRoom, room)
	s.alerts.NewConversation(room.DisplayName, channel.Name)
	return room, nil
}

// normalize maps the provider message shape onto the canonical tagged union.
func (s *IngestService) normalize(wm *model.WebhookMessage) (model.MessageType, model.Payload) {
	switch wm.Type {
	case "text":
		tp := &model.TextPayload{Text: wm.Text}
		for _, e := range wm.Emojis {
			tp.Emojis = append(tp.Emojis, model.InlineEmoji{
				Index:     e.Index,
				Length:    e.Length,
				ProductID: e.ProductID,
				EmojiID:   e.EmojiID,
			})
		}
		return model.MessageTypeText, model.Payload{Text: tp}

	case "image", "video", "audio", "file":
		media := &model.MediaPayload{
			ContentRef: s.api.ContentRef(wm.ID),
			FileName:   wm.FileName,
			FileSize:   wm.FileSize,
			DurationMs: wm.Duration,
		}
		return model.MessageType(wm.Type), model.Payload{Media: media}

	case "sticker":
		return model.MessageTypeSticker, model.Payload{
			Sticker: &model.StickerPayload{PackageID: wm.PackageID, StickerID: wm.StickerID},
		}

	case "location":
		return model.MessageTypeLocation, model.Payload{
			Location: &model.LocationPayload{
				Title:     wm.Title,
				Address:   wm.Address,
				Latitude:  wm.Latitude,
				Longitude: wm.Longitude,
			},
		}

	default:
		return model.MessageTypeText, model.Payload{
			Text: &model.TextPayload{Text: fmt.Sprintf("[unsupported message type: %s]", wm.Type)},
		}
	}
}

// processFollow creates (or resurfaces) the partner's room tagged "new" and
// records a synthetic system message.
func (s *IngestService) processFollow(ctx context.Context, channel *model.Channel, event model.WebhookEvent) error {
	if event.Source.UserID == "" {
		return apperrors.InvalidArg("follow event missing source")
	}

	room, err := s.resolveRoom(ctx, channel, event.Source.UserID, []string{"new"})
	if err != nil {
		return err
	}

	msg := &model.ChatMessage{
		RoomID:    room.ID,
		Type:      model.MessageTypeText,
		Payload:   model.Payload{Text: &model.TextPayload{Text: "started following"}},
		Sender:    model.SenderSystem,
		Status:    model.StatusSent,
		CreatedAt: eventTime(event),
	}
	if err := s.messages.Insert(ctx, msg); err != nil {
		return fmt.Errorf("persist system message: %w", err)
	}
	s.broadcast.Emit(ctx, room.ID, model.EventNewMessage, msg)
	return nil
}

func (s *IngestService) processUnfollow(ctx context.Context, channel *model.Channel, event model.WebhookEvent) error {
	room, err := s.rooms.GetByPartner(ctx, event.Source.UserID, &channel.ID)
	if err != nil {
		if apperrors.Is(err, apperrors.CodeNotFound) {
			return nil
		}
		return err
	}
	return s.rooms.SetStatus(ctx, room.ID, model.RoomStatusArchived)
}

func eventTime(event model.WebhookEvent) time.Time {
	if event.Timestamp > 0 {
		return time.UnixMilli(event.Timestamp)
	}
	return time.Now()
}
