package model

import "time"

type RoomStatus string

const (
	RoomStatusActive   RoomStatus = "active"
	RoomStatusArchived RoomStatus = "archived"
	RoomStatusBlocked  RoomStatus = "blocked"
	RoomStatusCleared  RoomStatus = "cleared"
)

// ChatRoom is one conversation thread with an external partner.
// (external_user_id, external_channel_id) is unique: the first inbound event
// from a partner creates the room, every later event reuses it.
type ChatRoom struct {
	ID                string     `json:"id"`
	ExternalUserID    string     `json:"external_user_id"`
	ExternalChannelID *string    `json:"external_channel_id,omitempty"`
	DisplayName       string     `json:"display_name"`
	AvatarURL         string     `json:"avatar_url,omitempty"`
	LastMessage       string     `json:"last_message"`
	LastMessageAt     time.Time  `json:"last_message_at"`
	UnreadCount       int        `json:"unread_count"`
	Pinned            bool       `json:"pinned"`
	Muted             bool       `json:"muted"`
	Tags              []string   `json:"tags"`
	Status            RoomStatus `json:"status"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// RoomUpdate is the room-update wire payload. UnreadCount is always re-read
// from storage after the increment, never computed client-side.
type RoomUpdate struct {
	ID            string    `json:"id"`
	LastMessage   string    `json:"last_message"`
	LastMessageAt time.Time `json:"last_message_at"`
	UnreadCount   int       `json:"unread_count"`
}

// RoomPropertyPatch carries the operator-editable room properties. Nil fields
// are left untouched.
type RoomPropertyPatch struct {
	DisplayName *string     `json:"display_name,omitempty"`
	Pinned      *bool       `json:"pinned,omitempty"`
	Muted       *bool       `json:"muted,omitempty"`
	Tags        *[]string   `json:"tags,omitempty"`
	Status      *RoomStatus `json:"status,omitempty"`
}

func (s RoomStatus) Valid() bool {
	switch s {
	case RoomStatusActive, RoomStatusArchived, RoomStatusBlocked, RoomStatusCleared:
		return true
	}
	return false
}
