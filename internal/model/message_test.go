package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessageStatus_OneWayLattice(t *testing.T) {
	assert.True(t, StatusSending.CanTransition(StatusSent))
	assert.True(t, StatusSending.CanTransition(StatusFailed))
	assert.True(t, StatusSent.CanTransition(StatusDelivered))

	// No path ever reverts.
	assert.False(t, StatusSent.CanTransition(StatusSending))
	assert.False(t, StatusFailed.CanTransition(StatusSent))
	assert.False(t, StatusFailed.CanTransition(StatusSending))
	assert.False(t, StatusDelivered.CanTransition(StatusSent))
	assert.False(t, StatusSending.CanTransition(StatusDelivered))
}

func TestPayload_Preview(t *testing.T) {
	text := Payload{Text: &TextPayload{Text: "hello"}}
	assert.Equal(t, "hello", text.Preview(MessageTypeText))

	assert.Equal(t, "[sticker]", Payload{}.Preview(MessageTypeSticker))
	assert.Equal(t, "[image]", Payload{}.Preview(MessageTypeImage))

	file := Payload{Media: &MediaPayload{FileName: "report.pdf"}}
	assert.Equal(t, "[file] report.pdf", file.Preview(MessageTypeFile))
}
