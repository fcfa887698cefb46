package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/komsan13/chat-center-sub001/internal/model"
	apperrors "github.com/komsan13/chat-center-sub001/pkg/errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func partnerKey(userID string, channelID *string) string {
	if channelID == nil {
		return userID + "|"
	}
	return userID + "|" + *channelID
}

type fakeRoomStore struct {
	mu      sync.Mutex
	rooms   map[string]*model.ChatRoom
	touched []string
	deleted []string
}

func newFakeRoomStore() *fakeRoomStore {
	return &fakeRoomStore{rooms: make(map[string]*model.ChatRoom)}
}

func (s *fakeRoomStore) Create(_ context.Context, room *model.ChatRoom) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	for _, existing := range s.rooms {
		if partnerKey(existing.ExternalUserID, existing.ExternalChannelID) == partnerKey(room.ExternalUserID, room.ExternalChannelID) {
			return fmt.Errorf("duplicate partner")
		}
	}
	cp := *room
	s.rooms[room.ID] = &cp
	return nil
}

func (s *fakeRoomStore) GetByID(_ context.Context, id string) (*model.ChatRoom, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		return nil, apperrors.NotFound("room not found")
	}
	cp := *room
	return &cp, nil
}

func (s *fakeRoomStore) GetByPartner(_ context.Context, userID string, channelID *string) (*model.ChatRoom, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, room := range s.rooms {
		if partnerKey(room.ExternalUserID, room.ExternalChannelID) == partnerKey(userID, channelID) {
			cp := *room
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("room not found")
}

func (s *fakeRoomStore) List(_ context.Context, status model.RoomStatus, tag string, limit int) ([]model.ChatRoom, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.ChatRoom
	for _, room := range s.rooms {
		if status != "" && room.Status != status {
			continue
		}
		out = append(out, *room)
	}
	return out, nil
}

func (s *fakeRoomStore) TouchLastMessage(_ context.Context, id, preview string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		return apperrors.NotFound("room not found")
	}
	room.LastMessage = preview
	room.LastMessageAt = at
	if room.Status == model.RoomStatusCleared || room.Status == model.RoomStatusArchived {
		room.Status = model.RoomStatusActive
	}
	s.touched = append(s.touched, id)
	return nil
}

func (s *fakeRoomStore) IncrementUnread(_ context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		return 0, apperrors.NotFound("room not found")
	}
	room.UnreadCount++
	return room.UnreadCount, nil
}

func (s *fakeRoomStore) ResetUnread(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if room, ok := s.rooms[id]; ok {
		room.UnreadCount = 0
		return nil
	}
	return apperrors.NotFound("room not found")
}

func (s *fakeRoomStore) SetStatus(_ context.Context, id string, status model.RoomStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if room, ok := s.rooms[id]; ok {
		room.Status = status
		return nil
	}
	return apperrors.NotFound("room not found")
}

func (s *fakeRoomStore) UpdateProperties(_ context.Context, id string, patch model.RoomPropertyPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		return apperrors.NotFound("room not found")
	}
	if patch.Pinned != nil {
		room.Pinned = *patch.Pinned
	}
	if patch.Muted != nil {
		room.Muted = *patch.Muted
	}
	if patch.DisplayName != nil {
		room.DisplayName = *patch.DisplayName
	}
	if patch.Tags != nil {
		room.Tags = *patch.Tags
	}
	if patch.Status != nil {
		room.Status = *patch.Status
	}
	return nil
}

func (s *fakeRoomStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[id]; !ok {
		return apperrors.NotFound("room not found")
	}
	delete(s.rooms, id)
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *fakeRoomStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}

type fakeMessageStore struct {
	mu       sync.Mutex
	messages map[string]*model.ChatMessage
	inserted []*model.ChatMessage
}

func newFakeMessageStore() *fakeMessageStore {
	return &fakeMessageStore{messages: make(map[string]*model.ChatMessage)}
}

func (s *fakeMessageStore) Insert(_ context.Context, msg *model.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	cp := *msg
	s.messages[msg.ID] = &cp
	s.inserted = append(s.inserted, &cp)
	return nil
}

func (s *fakeMessageStore) GetByID(_ context.Context, id string) (*model.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.messages[id]
	if !ok {
		return nil, apperrors.NotFound("message not found")
	}
	cp := *msg
	return &cp, nil
}

func (s *fakeMessageStore) UpdateStatus(_ context.Context, id string, status model.MessageStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.messages[id]
	if !ok {
		return apperrors.NotFound("message not found")
	}
	if !msg.Status.CanTransition(status) {
		return apperrors.FailedPrecondition("illegal status transition")
	}
	msg.Status = status
	return nil
}

func (s *fakeMessageStore) MarkDelivered(_ context.Context, roomID string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if msg, ok := s.messages[id]; ok && msg.RoomID == roomID && msg.Status == model.StatusSent {
			msg.Status = model.StatusDelivered
		}
	}
	return nil
}

func (s *fakeMessageStore) GetHistory(_ context.Context, roomID string, before time.Time, limit int) ([]model.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.ChatMessage
	for _, msg := range s.messages {
		if msg.RoomID == roomID {
			out = append(out, *msg)
		}
	}
	return out, nil
}

type fakeChannelStore struct {
	channels []model.Channel
}

func (s *fakeChannelStore) GetByID(_ context.Context, id string) (*model.Channel, error) {
	for i := range s.channels {
		if s.channels[i].ID == id {
			cp := s.channels[i]
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("channel not found")
}

func (s *fakeChannelStore) List(_ context.Context) ([]model.Channel, error) {
	return append([]model.Channel(nil), s.channels...), nil
}

func (s *fakeChannelStore) SetActive(_ context.Context, id string, active bool) error {
	for i := range s.channels {
		if s.channels[i].ID == id {
			s.channels[i].Active = active
			return nil
		}
	}
	return apperrors.NotFound("channel not found")
}

type fakePlatform struct {
	mu         sync.Mutex
	pushErr    error
	pushed     []*model.ChatMessage
	profile    *model.PartnerProfile
	profileErr error
}

func (p *fakePlatform) Push(_ context.Context, accessToken, to string, msg *model.ChatMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pushErr != nil {
		return p.pushErr
	}
	cp := *msg
	p.pushed = append(p.pushed, &cp)
	return nil
}

func (p *fakePlatform) GetProfile(_ context.Context, accessToken, userID string) (*model.PartnerProfile, error) {
	if p.profileErr != nil {
		return nil, p.profileErr
	}
	if p.profile != nil {
		return p.profile, nil
	}
	return &model.PartnerProfile{DisplayName: "Partner " + userID}, nil
}

func (p *fakePlatform) ContentRef(externalMessageID string) string {
	return "content://" + externalMessageID
}

// recordTier is a DeliveryTier that captures everything it delivers.
type recordTier struct {
	mu     sync.Mutex
	name   string
	err    error
	events []recordedEvent
}

type recordedEvent struct {
	Room    string
	Event   string
	Data    interface{}
	Exclude string
}

func (t *recordTier) Name() string {
	if t.name == "" {
		return "record"
	}
	return t.name
}

func (t *recordTier) Attempt(_ context.Context, room, event string, data interface{}, excludeConn string) error {
	if t.err != nil {
		return t.err
	}
	if msg, ok := data.(*model.ChatMessage); ok {
		cp := *msg
		data = &cp
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, recordedEvent{Room: room, Event: event, Data: data, Exclude: excludeConn})
	return nil
}

func (t *recordTier) recorded() []recordedEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]recordedEvent(nil), t.events...)
}

// roomEvents filters the capture down to one room's event names, in order.
func (t *recordTier) roomEvents(room string) []string {
	var names []string
	for _, ev := range t.recorded() {
		if ev.Room == room {
			names = append(names, ev.Event)
		}
	}
	return names
}
