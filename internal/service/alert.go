package service

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// AlertService sends rich embeds to an operator alert webhook. Fire-and-forget:
// alerting must never slow down or fail the pipelines.
type AlertService struct {
	webhookURL string
	client     *http.Client
	log        zerolog.Logger
}

func NewAlertService(webhookURL string, log zerolog.Logger) *AlertService {
	return &AlertService{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		log:        log.With().Str("component", "alerts").Logger(),
	}
}

type alertEmbed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Fields      []alertField `json:"fields,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

type alertField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type alertPayload struct {
	Username string       `json:"username,omitempty"`
	Embeds   []alertEmbed `json:"embeds"`
}

func (s *AlertService) send(payload alertPayload) {
	if s.webhookURL == "" {
		return
	}
	go func() {
		body, err := json.Marshal(payload)
		if err != nil {
			s.log.Error().Err(err).Msg("marshal failed")
			return
		}
		resp, err := s.client.Post(s.webhookURL, "application/json", bytes.NewReader(body))
		if err != nil {
			s.log.Warn().Err(err).Msg("alert send failed")
			return
		}
		resp.Body.Close()
		if resp.StatusCode >= 400 {
			s.log.Warn().Int("status", resp.StatusCode).Msg("alert webhook rejected")
		}
	}()
}

// NewConversation notifies operators of a first contact from a new partner.
func (s *AlertService) NewConversation(displayName, channelName string) {
	s.send(alertPayload{
		Username: "Chat Center",
		Embeds: []alertEmbed{{
			Title: "New conversation",
			Color: 0x2ECC71,
			Fields: []alertField{
				{Name: "Partner", Value: displayName, Inline: true},
				{Name: "Channel", Value: channelName, Inline: true},
			},
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}},
	})
}

// DeliveryFailure notifies operators that an outbound message was rejected.
func (s *AlertService) DeliveryFailure(roomName, detail string) {
	s.send(alertPayload{
		Username: "Chat Center",
		Embeds: []alertEmbed{{
			Title:       "Message delivery failed",
			Description: detail,
			Color:       0xE74C3C,
			Fields: []alertField{
				{Name: "Room", Value: roomName, Inline: true},
			},
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}},
	})
}
