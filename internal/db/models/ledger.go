package models

import "time"

// LedgerEntry records that an item was announced to a channel.
// The pair (ChannelKey, ItemID) is unique.
type LedgerEntry struct {
	ChannelKey  string    `db:"channel_key" json:"channel_key"`
	ItemID      string    `db:"item_id" json:"item_id"`
	ItemType    ItemType  `db:"item_type" json:"item_type"`
	PublishedAt time.Time `db:"published_at" json:"published_at"`
	PostedAt    time.Time `db:"posted_at" json:"posted_at"`
}

// NewLedgerEntry builds the ledger entry for item posted to channelKey at postedAt.
func NewLedgerEntry(channelKey string, item *Item, postedAt time.Time) *LedgerEntry {
	return &LedgerEntry{
		ChannelKey:  channelKey,
		ItemID:      item.ID,
		ItemType:    item.Type,
		PublishedAt: item.PublishedAt,
		PostedAt:    postedAt,
	}
}

// QuotaInfo is today's YouTube API quota usage.
type QuotaInfo struct {
	QuotaUsed       int `json:"quota_used"`
	QuotaLimit      int `json:"quota_limit"`
	QuotaRemaining  int `json:"quota_remaining"`
	OperationsCount int `json:"operations_count"`
}
