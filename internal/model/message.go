package model

import "time"

type MessageType string

const (
	MessageTypeText     MessageType = "text"
	MessageTypeImage    MessageType = "image"
	MessageTypeVideo    MessageType = "video"
	MessageTypeAudio    MessageType = "audio"
	MessageTypeFile     MessageType = "file"
	MessageTypeSticker  MessageType = "sticker"
	MessageTypeLocation MessageType = "location"
)

type MessageSender string

const (
	SenderUser   MessageSender = "user"
	SenderAgent  MessageSender = "agent"
	SenderSystem MessageSender = "system"
)

type MessageStatus string

const (
	StatusSending   MessageStatus = "sending"
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusFailed    MessageStatus = "failed"
)

// CanTransition reports whether s -> to is a legal status move. The lattice is
// one-way: sending resolves once to sent or failed, sent may only advance to
// delivered. Nothing ever returns to sending.
func (s MessageStatus) CanTransition(to MessageStatus) bool {
	switch s {
	case StatusSending:
		return to == StatusSent || to == StatusFailed
	case StatusSent:
		return to == StatusDelivered
	default:
		return false
	}
}

// InlineEmoji marks a provider emoji embedded in message text.
type InlineEmoji struct {
	Index     int    `json:"index"`
	Length    int    `json:"length"`
	ProductID string `json:"product_id"`
	EmojiID   string `json:"emoji_id"`
}

type TextPayload struct {
	Text   string        `json:"text"`
	Emojis []InlineEmoji `json:"emojis,omitempty"`
}

// MediaPayload references provider-hosted content. ContentRef is the provider
// content endpoint for the external message id; it is resolved lazily by the
// UI, never fetched during ingest.
type MediaPayload struct {
	ContentRef string `json:"content_ref"`
	FileName   string `json:"file_name,omitempty"`
	FileSize   int64  `json:"file_size,omitempty"`
	DurationMs int    `json:"duration_ms,omitempty"`
}

type StickerPayload struct {
	PackageID string `json:"package_id"`
	StickerID string `json:"sticker_id"`
}

type LocationPayload struct {
	Title     string  `json:"title,omitempty"`
	Address   string  `json:"address,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Payload is the per-type message body. Exactly the variant matching Type is
// set; the rest stay nil. Unsupported provider types carry a human-readable
// placeholder in Text.
type Payload struct {
	Text     *TextPayload     `json:"text,omitempty"`
	Media    *MediaPayload    `json:"media,omitempty"`
	Sticker  *StickerPayload  `json:"sticker,omitempty"`
	Location *LocationPayload `json:"location,omitempty"`
}

// Preview returns the short room-list line for the payload.
func (p Payload) Preview(t MessageType) string {
	switch t {
	case MessageTypeText:
		if p.Text != nil {
			return p.Text.Text
		}
	case MessageTypeImage:
		return "[image]"
	case MessageTypeVideo:
		return "[video]"
	case MessageTypeAudio:
		return "[audio]"
	case MessageTypeFile:
		if p.Media != nil && p.Media.FileName != "" {
			return "[file] " + p.Media.FileName
		}
		return "[file]"
	case MessageTypeSticker:
		return "[sticker]"
	case MessageTypeLocation:
		return "[location]"
	}
	return ""
}

type ChatMessage struct {
	ID                string        `json:"id"`
	RoomID            string        `json:"room_id"`
	ExternalMessageID *string       `json:"external_message_id,omitempty"`
	Type              MessageType   `json:"type"`
	Payload           Payload       `json:"payload"`
	Sender            MessageSender `json:"sender"`
	Status            MessageStatus `json:"status"`
	CreatedAt         time.Time     `json:"created_at"`
}
