package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/komsan13/chat-center-sub001/internal/model"
	apperrors "github.com/komsan13/chat-center-sub001/pkg/errors"
)

// Client talks to the external messaging platform's REST API: push messages
// to a partner, fetch partner profiles. One client serves every channel; the
// per-channel access token is passed per call.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type pushRequest struct {
	To       string        `json:"to"`
	Messages []pushMessage `json:"messages"`
}

type pushMessage struct {
	Type               string  `json:"type"`
	Text               string  `json:"text,omitempty"`
	PackageID          string  `json:"packageId,omitempty"`
	StickerID          string  `json:"stickerId,omitempty"`
	OriginalContentURL string  `json:"originalContentUrl,omitempty"`
	PreviewImageURL    string  `json:"previewImageUrl,omitempty"`
	Duration           int     `json:"duration,omitempty"`
	Title              string  `json:"title,omitempty"`
	Address            string  `json:"address,omitempty"`
	Latitude           float64 `json:"latitude,omitempty"`
	Longitude          float64 `json:"longitude,omitempty"`
}

// Push sends one message to the partner, shaped per the message type.
func (c *Client) Push(ctx context.Context, accessToken, to string, msg *model.ChatMessage) error {
	pm, err := buildPushMessage(msg)
	if err != nil {
		return err
	}

	body, err := json.Marshal(pushRequest{To: to, Messages: []pushMessage{pm}})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/bot/message/push", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeExternalDelivery, "push request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return apperrors.Wrap(apperrors.CodeExternalDelivery,
			fmt.Sprintf("push rejected with HTTP %d", resp.StatusCode),
			fmt.Errorf("%s", detail))
	}
	return nil
}

func buildPushMessage(msg *model.ChatMessage) (pushMessage, error) {
	switch msg.Type {
	case model.MessageTypeText:
		if msg.Payload.Text == nil {
			return pushMessage{}, apperrors.InvalidArg("text payload required")
		}
		return pushMessage{Type: "text", Text: msg.Payload.Text.Text}, nil
	case model.MessageTypeSticker:
		if msg.Payload.Sticker == nil {
			return pushMessage{}, apperrors.InvalidArg("sticker payload required")
		}
		return pushMessage{
			Type:      "sticker",
			PackageID: msg.Payload.Sticker.PackageID,
			StickerID: msg.Payload.Sticker.StickerID,
		}, nil
	case model.MessageTypeImage, model.MessageTypeVideo:
		if msg.Payload.Media == nil {
			return pushMessage{}, apperrors.InvalidArg("media payload required")
		}
		return pushMessage{
			Type:               string(msg.Type),
			OriginalContentURL: msg.Payload.Media.ContentRef,
			PreviewImageURL:    msg.Payload.Media.ContentRef,
		}, nil
	case model.MessageTypeAudio:
		if msg.Payload.Media == nil {
			return pushMessage{}, apperrors.InvalidArg("media payload required")
		}
		return pushMessage{
			Type:               "audio",
			OriginalContentURL: msg.Payload.Media.ContentRef,
			Duration:           msg.Payload.Media.DurationMs,
		}, nil
	case model.MessageTypeLocation:
		if msg.Payload.Location == nil {
			return pushMessage{}, apperrors.InvalidArg("location payload required")
		}
		return pushMessage{
			Type:      "location",
			Title:     msg.Payload.Location.Title,
			Address:   msg.Payload.Location.Address,
			Latitude:  msg.Payload.Location.Latitude,
			Longitude: msg.Payload.Location.Longitude,
		}, nil
	default:
		return pushMessage{}, apperrors.InvalidArg(fmt.Sprintf("unsendable message type %q", msg.Type))
	}
}

// GetProfile fetches a partner's display name and avatar. Callers treat
// failure as non-fatal and fall back to the raw external id.
func (c *Client) GetProfile(ctx context.Context, accessToken, userID string) (*model.PartnerProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v2/bot/profile/"+userID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("profile fetch HTTP %d", resp.StatusCode)
	}

	var profile struct {
		DisplayName   string `json:"displayName"`
		PictureURL    string `json:"pictureUrl"`
		StatusMessage string `json:"statusMessage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, err
	}
	return &model.PartnerProfile{
		DisplayName:   profile.DisplayName,
		AvatarURL:     profile.PictureURL,
		StatusMessage: profile.StatusMessage,
	}, nil
}

// ContentRef builds the provider content endpoint for an inbound media
// message. The UI resolves it lazily through the authenticated proxy route.
func (c *Client) ContentRef(externalMessageID string) string {
	return c.baseURL + "/v2/bot/message/" + externalMessageID + "/content"
}
