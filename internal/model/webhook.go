package model

// WebhookEnvelope is the platform's native event envelope: one POST may carry
// several events.
type WebhookEnvelope struct {
	Destination string         `json:"destination,omitempty"`
	Events      []WebhookEvent `json:"events"`
}

type WebhookSource struct {
	Type    string `json:"type,omitempty"`
	UserID  string `json:"userId"`
	GroupID string `json:"groupId,omitempty"`
}

type WebhookEvent struct {
	Type       string          `json:"type"`
	Timestamp  int64           `json:"timestamp,omitempty"`
	ReplyToken string          `json:"replyToken,omitempty"`
	Source     WebhookSource   `json:"source"`
	Message    *WebhookMessage `json:"message,omitempty"`
}

// WebhookMessage is the provider message body. Field presence depends on
// Type; normalization into Payload happens in the ingest service.
type WebhookMessage struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Text   string `json:"text,omitempty"`
	Emojis []struct {
		Index     int    `json:"index"`
		Length    int    `json:"length"`
		ProductID string `json:"productId"`
		EmojiID   string `json:"emojiId"`
	} `json:"emojis,omitempty"`
	PackageID  string  `json:"packageId,omitempty"`
	StickerID  string  `json:"stickerId,omitempty"`
	FileName   string  `json:"fileName,omitempty"`
	FileSize   int64   `json:"fileSize,omitempty"`
	Duration   int     `json:"duration,omitempty"`
	Title      string  `json:"title,omitempty"`
	Address    string  `json:"address,omitempty"`
	Latitude   float64 `json:"latitude,omitempty"`
	Longitude  float64 `json:"longitude,omitempty"`
}
