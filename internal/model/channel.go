package model

import "time"

// Channel is one messaging-platform credential: the webhook signing secret
// plus the access token used for the send API. More than one may exist, and
// an inactive one still matches signatures (its events are acked and dropped).
type Channel struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Secret      string    `json:"-"`
	AccessToken string    `json:"-"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}
