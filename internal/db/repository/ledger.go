package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/ad-tracker/youtube-announcer-go/internal/db"
	"github.com/ad-tracker/youtube-announcer-go/internal/db/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LedgerRepository persists announcement ledger entries and the per-channel
// high-water mark they advance.
type LedgerRepository interface {
	// IsPosted reports whether the item was already announced to the channel.
	IsPosted(ctx context.Context, channelKey, itemID string) (bool, error)

	// RecordPosted inserts the ledger entry and advances the channel's
	// high-water mark to max(current, entry.PublishedAt) in one transaction.
	// Recording the same entry twice is a no-op.
	RecordPosted(ctx context.Context, entry *models.LedgerEntry) error

	// AnchorHighWaterMark sets the high-water mark of a channel that has none.
	// A channel that already has a mark is left untouched.
	AnchorHighWaterMark(ctx context.Context, channelKey, itemID string, at time.Time) error

	// ListRecent returns the newest ledger entries of a channel.
	ListRecent(ctx context.Context, channelKey string, limit int) ([]*models.LedgerEntry, error)
}

type ledgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(pool *pgxpool.Pool) LedgerRepository {
	return &ledgerRepository{pool: pool}
}

func (r *ledgerRepository) IsPosted(ctx context.Context, channelKey, itemID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM announcement_ledger WHERE channel_key = $1 AND item_id = $2)`

	var posted bool
	if err := r.pool.QueryRow(ctx, query, channelKey, itemID).Scan(&posted); err != nil {
		return false, db.WrapError(err, "check ledger")
	}

	return posted, nil
}

func (r *ledgerRepository) RecordPosted(ctx context.Context, entry *models.LedgerEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return db.WrapError(err, "begin record posted")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO announcement_ledger (channel_key, item_id, item_type, published_at, posted_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (channel_key, item_id) DO NOTHING
	`,
		entry.ChannelKey,
		entry.ItemID,
		string(entry.ItemType),
		entry.PublishedAt,
		entry.PostedAt,
	)
	if err != nil {
		return db.WrapError(err, "insert ledger entry")
	}

	_, err = tx.Exec(ctx, `
		UPDATE channels
		SET high_water_mark_at = $2,
		    high_water_item_id = $3,
		    updated_at = NOW()
		WHERE channel_key = $1
		  AND (high_water_mark_at IS NULL OR high_water_mark_at < $2)
	`,
		entry.ChannelKey,
		entry.PublishedAt,
		entry.ItemID,
	)
	if err != nil {
		return db.WrapError(err, "advance high-water mark")
	}

	if err := tx.Commit(ctx); err != nil {
		return db.WrapError(err, "commit record posted")
	}

	return nil
}

func (r *ledgerRepository) AnchorHighWaterMark(ctx context.Context, channelKey, itemID string, at time.Time) error {
	query := `
		UPDATE channels
		SET high_water_mark_at = $2,
		    high_water_item_id = $3,
		    updated_at = NOW()
		WHERE channel_key = $1 AND high_water_mark_at IS NULL
	`

	result, err := r.pool.Exec(ctx, query, channelKey, at, itemID)
	if err != nil {
		return db.WrapError(err, "anchor high-water mark")
	}

	if result.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	err = r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM channels WHERE channel_key = $1)`, channelKey).Scan(&exists)
	if err != nil {
		return db.WrapError(err, "anchor high-water mark")
	}
	if !exists {
		return db.WrapError(pgx.ErrNoRows, "anchor high-water mark")
	}

	return nil
}

func (r *ledgerRepository) ListRecent(ctx context.Context, channelKey string, limit int) ([]*models.LedgerEntry, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT channel_key, item_id, item_type, published_at, posted_at
		FROM announcement_ledger
		WHERE channel_key = $1
		ORDER BY published_at DESC, posted_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, channelKey, limit)
	if err != nil {
		return nil, db.WrapError(err, "list ledger entries")
	}
	defer rows.Close()

	var entries []*models.LedgerEntry
	for rows.Next() {
		entry := &models.LedgerEntry{}
		var itemType string
		if err := rows.Scan(&entry.ChannelKey, &entry.ItemID, &itemType, &entry.PublishedAt, &entry.PostedAt); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		entry.ItemType = models.ItemType(itemType)
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger entries: %w", err)
	}

	return entries, nil
}
