package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/komsan13/chat-center-sub001/internal/model"
	apperrors "github.com/komsan13/chat-center-sub001/pkg/errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const roomColumns = `id, external_user_id, external_channel_id, display_name, avatar_url,
	last_message, last_message_at, unread_count, pinned, muted, tags, status, created_at, updated_at`

type RoomRepository struct {
	pool *pgxpool.Pool
}

func NewRoomRepository(pool *pgxpool.Pool) *RoomRepository {
	return &RoomRepository{pool: pool}
}

func (r *RoomRepository) Create(ctx context.Context, room *model.ChatRoom) error {
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	if room.Status == "" {
		room.Status = model.RoomStatusActive
	}
	if room.Tags == nil {
		room.Tags = []string{}
	}
	now := time.Now()
	room.CreatedAt = now
	room.UpdatedAt = now
	if room.LastMessageAt.IsZero() {
		room.LastMessageAt = now
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO chat_rooms (id, external_user_id, external_channel_id, display_name, avatar_url,
			last_message, last_message_at, unread_count, pinned, muted, tags, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, room.ID, room.ExternalUserID, room.ExternalChannelID, room.DisplayName, room.AvatarURL,
		room.LastMessage, room.LastMessageAt, room.UnreadCount, room.Pinned, room.Muted,
		room.Tags, room.Status, room.CreatedAt, room.UpdatedAt)
	return err
}

func (r *RoomRepository) GetByID(ctx context.Context, id string) (*model.ChatRoom, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+roomColumns+` FROM chat_rooms WHERE id = $1`, id)
	return scanRoom(row)
}

// GetByPartner looks up the room for a (external user, channel) pair, the
// unique conversation key.
func (r *RoomRepository) GetByPartner(ctx context.Context, externalUserID string, channelID *string) (*model.ChatRoom, error) {
	var row pgx.Row
	if channelID == nil {
		row = r.pool.QueryRow(ctx, `
			SELECT `+roomColumns+` FROM chat_rooms
			WHERE external_user_id = $1 AND external_channel_id IS NULL
		`, externalUserID)
	} else {
		row = r.pool.QueryRow(ctx, `
			SELECT `+roomColumns+` FROM chat_rooms
			WHERE external_user_id = $1 AND external_channel_id = $2
		`, externalUserID, *channelID)
	}
	return scanRoom(row)
}

// List returns rooms ordered pinned-first then most recent activity.
func (r *RoomRepository) List(ctx context.Context, status model.RoomStatus, tag string, limit int) ([]model.ChatRoom, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}

	var conditions []string
	var args []interface{}
	argIdx := 1

	if status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, status)
		argIdx++
	}
	if tag != "" {
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(tags)", argIdx))
		args = append(args, tag)
		argIdx++
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT %s FROM chat_rooms
		%s
		ORDER BY pinned DESC, last_message_at DESC
		LIMIT $%d
	`, roomColumns, where, argIdx)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []model.ChatRoom
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, *room)
	}
	return rooms, rows.Err()
}

// TouchLastMessage bumps the room's preview line and activity timestamp and
// resurfaces the conversation: any cleared/archived state flips back to
// active so new traffic is never hidden.
func (r *RoomRepository) TouchLastMessage(ctx context.Context, id, preview string, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE chat_rooms
		SET last_message = $2, last_message_at = $3, updated_at = NOW(),
			status = CASE WHEN status IN ('cleared', 'archived') THEN 'active' ELSE status END
		WHERE id = $1
	`, id, preview, at)
	return err
}

// IncrementUnread bumps the unread counter in SQL and returns the post-update
// value read back from the row, so concurrent inbound events never produce a
// client-computed drifted count.
func (r *RoomRepository) IncrementUnread(ctx context.Context, id string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		UPDATE chat_rooms SET unread_count = unread_count + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING unread_count
	`, id).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, apperrors.NotFound("room not found")
	}
	return count, err
}

func (r *RoomRepository) ResetUnread(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE chat_rooms SET unread_count = 0, updated_at = NOW() WHERE id = $1
	`, id)
	return err
}

func (r *RoomRepository) SetStatus(ctx context.Context, id string, status model.RoomStatus) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE chat_rooms SET status = $2, updated_at = NOW() WHERE id = $1
	`, id, status)
	return err
}

// UpdateProperties applies the non-nil fields of the patch.
func (r *RoomRepository) UpdateProperties(ctx context.Context, id string, patch model.RoomPropertyPatch) error {
	var sets []string
	var args []interface{}
	argIdx := 1

	add := func(col string, val interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, argIdx))
		args = append(args, val)
		argIdx++
	}

	if patch.DisplayName != nil {
		add("display_name", *patch.DisplayName)
	}
	if patch.Pinned != nil {
		add("pinned", *patch.Pinned)
	}
	if patch.Muted != nil {
		add("muted", *patch.Muted)
	}
	if patch.Tags != nil {
		add("tags", *patch.Tags)
	}
	if patch.Status != nil {
		if !patch.Status.Valid() {
			return apperrors.InvalidArg("invalid room status")
		}
		add("status", *patch.Status)
	}
	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE chat_rooms SET %s, updated_at = NOW() WHERE id = $%d`,
		strings.Join(sets, ", "), argIdx)
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("room not found")
	}
	return nil
}

// Delete permanently removes a room; messages go with it (FK cascade).
func (r *RoomRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM chat_rooms WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("room not found")
	}
	return nil
}

func scanRoom(row pgx.Row) (*model.ChatRoom, error) {
	var room model.ChatRoom
	err := row.Scan(&room.ID, &room.ExternalUserID, &room.ExternalChannelID, &room.DisplayName,
		&room.AvatarURL, &room.LastMessage, &room.LastMessageAt, &room.UnreadCount,
		&room.Pinned, &room.Muted, &room.Tags, &room.Status, &room.CreatedAt, &room.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("room not found")
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}
