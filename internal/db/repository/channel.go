package repository

import (
	"context"
	"fmt"

	"github.com/ad-tracker/youtube-announcer-go/internal/db"
	"github.com/ad-tracker/youtube-announcer-go/internal/db/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ChannelRepository is the channel registry. Channels are never deleted,
// only deactivated.
type ChannelRepository interface {
	// Upsert registers a channel or refreshes its owner and title.
	// Registering an inactive channel again re-activates it.
	Upsert(ctx context.Context, channel *models.Channel) error

	// GetByKey retrieves a single channel by its messaging target key.
	GetByKey(ctx context.Context, channelKey string) (*models.Channel, error)

	// ListByOwner retrieves the channels registered by a Telegram user.
	ListByOwner(ctx context.Context, ownerUserID int64) ([]*models.Channel, error)

	// ListActive retrieves every active channel, oldest registration first.
	ListActive(ctx context.Context) ([]*models.Channel, error)

	// SetSource configures the YouTube channel for a channel. Changing the
	// source clears the high-water mark so the new source starts cold.
	SetSource(ctx context.Context, channelKey, sourceID, sourceURL string) error

	// SetPlan changes the plan tier.
	SetPlan(ctx context.Context, channelKey string, plan models.Plan) error

	// Deactivate marks the channel inactive.
	Deactivate(ctx context.Context, channelKey string) error

	// Stats summarizes the registry.
	Stats(ctx context.Context) (*models.ChannelStats, error)
}

const channelColumns = `channel_key, owner_user_id, title, source_id, source_url,
	high_water_mark_at, high_water_item_id, plan, active, created_at, updated_at`

type channelRepository struct {
	pool *pgxpool.Pool
}

// NewChannelRepository creates a new ChannelRepository.
func NewChannelRepository(pool *pgxpool.Pool) ChannelRepository {
	return &channelRepository{pool: pool}
}

func (r *channelRepository) Upsert(ctx context.Context, channel *models.Channel) error {
	if channel.Plan == "" {
		channel.Plan = models.PlanFree
	}

	query := `
		INSERT INTO channels (channel_key, owner_user_id, title, plan, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, TRUE, NOW(), NOW())
		ON CONFLICT (channel_key) DO UPDATE
		SET owner_user_id = EXCLUDED.owner_user_id,
		    title = EXCLUDED.title,
		    active = TRUE,
		    updated_at = NOW()
		RETURNING ` + channelColumns

	row := r.pool.QueryRow(ctx, query,
		channel.ChannelKey,
		channel.OwnerUserID,
		channel.Title,
		string(channel.Plan),
	)
	if err := scanChannel(row, channel); err != nil {
		return db.WrapError(err, "upsert channel")
	}

	return nil
}

func (r *channelRepository) GetByKey(ctx context.Context, channelKey string) (*models.Channel, error) {
	query := `SELECT ` + channelColumns + ` FROM channels WHERE channel_key = $1`

	channel := &models.Channel{}
	if err := scanChannel(r.pool.QueryRow(ctx, query, channelKey), channel); err != nil {
		return nil, db.WrapError(err, "get channel by key")
	}

	return channel, nil
}

func (r *channelRepository) ListByOwner(ctx context.Context, ownerUserID int64) ([]*models.Channel, error) {
	query := `SELECT ` + channelColumns + `
		FROM channels
		WHERE owner_user_id = $1
		ORDER BY updated_at DESC`

	rows, err := r.pool.Query(ctx, query, ownerUserID)
	if err != nil {
		return nil, db.WrapError(err, "list channels by owner")
	}
	defer rows.Close()

	return scanChannels(rows)
}

func (r *channelRepository) ListActive(ctx context.Context) ([]*models.Channel, error) {
	query := `SELECT ` + channelColumns + `
		FROM channels
		WHERE active
		ORDER BY created_at, channel_key`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, db.WrapError(err, "list active channels")
	}
	defer rows.Close()

	return scanChannels(rows)
}

func (r *channelRepository) SetSource(ctx context.Context, channelKey, sourceID, sourceURL string) error {
	query := `
		UPDATE channels
		SET high_water_mark_at = CASE WHEN source_id IS DISTINCT FROM $2 THEN NULL ELSE high_water_mark_at END,
		    high_water_item_id = CASE WHEN source_id IS DISTINCT FROM $2 THEN NULL ELSE high_water_item_id END,
		    source_id = $2,
		    source_url = $3,
		    updated_at = NOW()
		WHERE channel_key = $1
	`

	return r.execOne(ctx, "set channel source", query, channelKey, sourceID, sourceURL)
}

func (r *channelRepository) SetPlan(ctx context.Context, channelKey string, plan models.Plan) error {
	query := `UPDATE channels SET plan = $2, updated_at = NOW() WHERE channel_key = $1`
	return r.execOne(ctx, "set channel plan", query, channelKey, string(plan))
}

func (r *channelRepository) Deactivate(ctx context.Context, channelKey string) error {
	query := `UPDATE channels SET active = FALSE, updated_at = NOW() WHERE channel_key = $1`
	return r.execOne(ctx, "deactivate channel", query, channelKey)
}

func (r *channelRepository) Stats(ctx context.Context) (*models.ChannelStats, error) {
	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE active),
		       COUNT(*) FILTER (WHERE active AND source_id IS NOT NULL),
		       COUNT(*) FILTER (WHERE plan = 'plus'),
		       COUNT(DISTINCT owner_user_id)
		FROM channels
	`

	stats := &models.ChannelStats{}
	err := r.pool.QueryRow(ctx, query).Scan(
		&stats.Total,
		&stats.Active,
		&stats.Configured,
		&stats.Plus,
		&stats.Owners,
	)
	if err != nil {
		return nil, db.WrapError(err, "channel stats")
	}

	return stats, nil
}

func (r *channelRepository) execOne(ctx context.Context, op, query string, args ...any) error {
	result, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return db.WrapError(err, op)
	}

	if result.RowsAffected() == 0 {
		return db.WrapError(pgx.ErrNoRows, op)
	}

	return nil
}

func scanChannel(row pgx.Row, channel *models.Channel) error {
	var plan string
	err := row.Scan(
		&channel.ChannelKey,
		&channel.OwnerUserID,
		&channel.Title,
		&channel.SourceID,
		&channel.SourceURL,
		&channel.HighWaterMarkAt,
		&channel.HighWaterItemID,
		&plan,
		&channel.Active,
		&channel.CreatedAt,
		&channel.UpdatedAt,
	)
	if err != nil {
		return err
	}

	channel.Plan, err = models.ParsePlan(plan)
	return err
}

// Helper function to scan multiple channels from query results
func scanChannels(rows pgx.Rows) ([]*models.Channel, error) {
	var channels []*models.Channel

	for rows.Next() {
		channel := &models.Channel{}
		if err := scanChannel(rows, channel); err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		channels = append(channels, channel)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate channels: %w", err)
	}

	return channels, nil
}
