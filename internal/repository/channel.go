package repository

import (
	"context"
	"errors"

	"github.com/komsan13/chat-center-sub001/internal/model"
	apperrors "github.com/komsan13/chat-center-sub001/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ChannelRepository struct {
	pool *pgxpool.Pool
}

func NewChannelRepository(pool *pgxpool.Pool) *ChannelRepository {
	return &ChannelRepository{pool: pool}
}

func (r *ChannelRepository) GetByID(ctx context.Context, id string) (*model.Channel, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, secret, access_token, active, created_at
		FROM chat_channels WHERE id = $1
	`, id)

	var ch model.Channel
	err := row.Scan(&ch.ID, &ch.Name, &ch.Secret, &ch.AccessToken, &ch.Active, &ch.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("channel not found")
	}
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

// List returns every stored credential, active or not. Ingest scans all of
// them for signature matching; inactive matches are acked and dropped.
func (r *ChannelRepository) List(ctx context.Context) ([]model.Channel, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, secret, access_token, active, created_at
		FROM chat_channels ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var channels []model.Channel
	for rows.Next() {
		var ch model.Channel
		if err := rows.Scan(&ch.ID, &ch.Name, &ch.Secret, &ch.AccessToken, &ch.Active, &ch.CreatedAt); err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}

func (r *ChannelRepository) SetActive(ctx context.Context, id string, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE chat_channels SET active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("channel not found")
	}
	return nil
}
