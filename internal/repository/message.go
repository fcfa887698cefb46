package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/komsan13/chat-center-sub001/internal/model"
	apperrors "github.com/komsan13/chat-center-sub001/pkg/errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MessageRepository struct {
	pool *pgxpool.Pool
}

func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

func (r *MessageRepository) Insert(ctx context.Context, msg *model.ChatMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	payload, err := json.Marshal(msg.Payload)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO chat_messages (id, room_id, external_message_id, type, payload, sender, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, msg.ID, msg.RoomID, msg.ExternalMessageID, msg.Type, payload, msg.Sender, msg.Status, msg.CreatedAt)
	return err
}

// UpdateStatus finalizes a message's delivery status. The WHERE clause
// enforces the one-way lattice at the storage layer: sending resolves to
// sent/failed, sent advances to delivered, nothing else moves.
func (r *MessageRepository) UpdateStatus(ctx context.Context, id string, status model.MessageStatus) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE chat_messages SET status = $2
		WHERE id = $1 AND (
			(status = 'sending' AND $2 IN ('sent', 'failed')) OR
			(status = 'sent' AND $2 = 'delivered')
		)
	`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.FailedPrecondition("illegal status transition")
	}
	return nil
}

// MarkDelivered advances the given sent messages to delivered in one statement.
func (r *MessageRepository) MarkDelivered(ctx context.Context, roomID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx, `
		UPDATE chat_messages SET status = 'delivered'
		WHERE room_id = $1 AND id = ANY($2) AND status = 'sent'
	`, roomID, ids)
	return err
}

func (r *MessageRepository) GetByID(ctx context.Context, id string) (*model.ChatMessage, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, room_id, external_message_id, type, payload, sender, status, created_at
		FROM chat_messages WHERE id = $1
	`, id)
	return scanMessage(row)
}

// GetHistory retrieves up to limit messages for a room before the given
// cursor, returned in chronological order (newest N selected DESC, then
// reversed).
func (r *MessageRepository) GetHistory(ctx context.Context, roomID string, before time.Time, limit int) ([]model.ChatMessage, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if before.IsZero() {
		before = time.Now().Add(time.Minute)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, room_id, external_message_id, type, payload, sender, status, created_at
		FROM chat_messages
		WHERE room_id = $1 AND created_at < $2
		ORDER BY created_at DESC
		LIMIT $3
	`, roomID, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []model.ChatMessage
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse for chronological order (oldest first)
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func scanMessage(row pgx.Row) (*model.ChatMessage, error) {
	var m model.ChatMessage
	var payload []byte
	err := row.Scan(&m.ID, &m.RoomID, &m.ExternalMessageID, &m.Type, &payload, &m.Sender, &m.Status, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("message not found")
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payload, &m.Payload); err != nil {
		return nil, err
	}
	return &m, nil
}
