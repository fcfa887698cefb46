package model

// PartnerProfile is what the platform's profile API returns for an external
// user. Fetched lazily when a first inbound event creates a room.
type PartnerProfile struct {
	DisplayName   string `json:"display_name"`
	AvatarURL     string `json:"avatar_url"`
	StatusMessage string `json:"status_message,omitempty"`
}
