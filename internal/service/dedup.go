package service

import (
	"context"
	"time"

	"github.com/ad-tracker/youtube-announcer-go/internal/db/models"
	"github.com/ad-tracker/youtube-announcer-go/internal/db/repository"
)

// DedupStore answers whether an item was already announced and records
// announcements. Calls for the same channel are serialized; calls for
// different channels never wait on each other.
type DedupStore interface {
	IsPosted(ctx context.Context, channelKey, itemID string) (bool, error)

	// RecordPosted adds the ledger entry and advances the channel's
	// high-water mark to the item's publish time if it is newer.
	// Recording an item twice is a no-op.
	RecordPosted(ctx context.Context, channelKey string, item *models.Item) error

	// Anchor sets the high-water mark of a channel that has none, without
	// recording anything as posted.
	Anchor(ctx context.Context, channelKey string, item *models.Item) error
}

type dedupStore struct {
	ledger repository.LedgerRepository
	locks  *keyedMutex
	now    func() time.Time
}

// NewDedupStore creates a DedupStore backed by the ledger repository.
func NewDedupStore(ledger repository.LedgerRepository) DedupStore {
	return &dedupStore{
		ledger: ledger,
		locks:  newKeyedMutex(),
		now:    time.Now,
	}
}

func (d *dedupStore) IsPosted(ctx context.Context, channelKey, itemID string) (bool, error) {
	unlock := d.locks.Lock(channelKey)
	defer unlock()

	return d.ledger.IsPosted(ctx, channelKey, itemID)
}

func (d *dedupStore) RecordPosted(ctx context.Context, channelKey string, item *models.Item) error {
	unlock := d.locks.Lock(channelKey)
	defer unlock()

	return d.ledger.RecordPosted(ctx, models.NewLedgerEntry(channelKey, item, d.now().UTC()))
}

func (d *dedupStore) Anchor(ctx context.Context, channelKey string, item *models.Item) error {
	unlock := d.locks.Lock(channelKey)
	defer unlock()

	return d.ledger.AnchorHighWaterMark(ctx, channelKey, item.ID, item.PublishedAt)
}
