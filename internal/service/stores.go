package service

import (
	"context"
	"time"

	"github.com/komsan13/chat-center-sub001/internal/model"
)

// Persistence is consumed behind narrow interfaces so the pipelines can be
// exercised against fakes; internal/repository provides the pgx
// implementations.

type RoomStore interface {
	Create(ctx context.Context, room *model.ChatRoom) error
	GetByID(ctx context.Context, id string) (*model.ChatRoom, error)
	GetByPartner(ctx context.Context, externalUserID string, channelID *string) (*model.ChatRoom, error)
	List(ctx context.Context, status model.RoomStatus, tag string, limit int) ([]model.ChatRoom, error)
	TouchLastMessage(ctx context.Context, id, preview string, at time.Time) error
	IncrementUnread(ctx context.Context, id string) (int, error)
	ResetUnread(ctx context.Context, id string) error
	SetStatus(ctx context.Context, id string, status model.RoomStatus) error
	UpdateProperties(ctx context.Context, id string, patch model.RoomPropertyPatch) error
	Delete(ctx context.Context, id string) error
}

type MessageStore interface {
	Insert(ctx context.Context, msg *model.ChatMessage) error
	GetByID(ctx context.Context, id string) (*model.ChatMessage, error)
	UpdateStatus(ctx context.Context, id string, status model.MessageStatus) error
	MarkDelivered(ctx context.Context, roomID string, ids []string) error
	GetHistory(ctx context.Context, roomID string, before time.Time, limit int) ([]model.ChatMessage, error)
}

type ChannelStore interface {
	GetByID(ctx context.Context, id string) (*model.Channel, error)
	List(ctx context.Context) ([]model.Channel, error)
	SetActive(ctx context.Context, id string, active bool) error
}

// PlatformAPI is the external messaging platform client boundary.
type PlatformAPI interface {
	Push(ctx context.Context, accessToken, to string, msg *model.ChatMessage) error
	GetProfile(ctx context.Context, accessToken, userID string) (*model.PartnerProfile, error)
	ContentRef(externalMessageID string) string
}
