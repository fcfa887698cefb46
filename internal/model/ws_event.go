package model

import "encoding/json"

// WSEvent is one websocket frame in either direction.
type WSEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Event names are the wire contract.
const (
	// client -> server
	EventJoinRoom           = "join-room"
	EventLeaveRoom          = "leave-room"
	EventTypingStart        = "typing-start"
	EventTypingStop         = "typing-stop"
	EventMessageRead        = "message-read"
	EventRoomRead           = "room-read"
	EventRoomPropertyUpdate = "room-property-update"
	EventRoomDeleted        = "room-deleted"
	EventPingServer         = "ping-server"

	// server -> client
	EventPongServer         = "pong-server"
	EventNewMessage         = "new-message"
	EventRoomUpdate         = "room-update"
	EventNewRoom            = "new-room"
	EventMessagesRead       = "messages-read"
	EventRoomReadUpdate     = "room-read-update"
	EventRoomPropertyChange = "room-property-changed"
	EventRoomRemoved        = "room-removed"
)

// CatchAllRoom is joined by every connection at register time so room-list
// UIs refresh regardless of which conversation is open.
const CatchAllRoom = "operators"

type RoomRef struct {
	RoomID string `json:"room_id"`
}

type TypingEvent struct {
	RoomID       string `json:"room_id"`
	UserName     string `json:"user_name"`
	ConnectionID string `json:"connection_id,omitempty"`
}

type MessageReadEvent struct {
	RoomID     string   `json:"room_id"`
	MessageIDs []string `json:"message_ids"`
}

type PingEvent struct {
	Timestamp int64 `json:"timestamp"`
}

type RoomPropertyEvent struct {
	RoomID  string            `json:"room_id"`
	Updates RoomPropertyPatch `json:"updates"`
}
