package models

import (
	"errors"
	"fmt"
	"time"
)

// ItemType is the kind of content an item represents.
type ItemType string

const (
	ItemVideo    ItemType = "video"
	ItemLive     ItemType = "live"
	ItemPremiere ItemType = "premiere"
)

// Valid reports whether t is a known item type.
func (t ItemType) Valid() bool {
	switch t {
	case ItemVideo, ItemLive, ItemPremiere:
		return true
	}
	return false
}

var (
	ErrItemMissingID        = errors.New("item has no id")
	ErrItemMissingTimestamp = errors.New("item has no publish time")
)

// Item is one unit of content fetched from YouTube. Items are never persisted
// except as ledger entries.
type Item struct {
	ID           string    `json:"id"`
	Type         ItemType  `json:"type"`
	Title        string    `json:"title"`
	ChannelTitle string    `json:"channel_title"`
	PublishedAt  time.Time `json:"published_at"`
}

// Validate checks the fields the announcement pipeline depends on.
func (i *Item) Validate() error {
	if i.ID == "" {
		return ErrItemMissingID
	}
	if i.PublishedAt.IsZero() {
		return fmt.Errorf("%w: %s", ErrItemMissingTimestamp, i.ID)
	}
	if !i.Type.Valid() {
		return fmt.Errorf("item %s has unknown type %q", i.ID, i.Type)
	}
	return nil
}

// NewerThan reports whether the item was published strictly after t.
func (i *Item) NewerThan(t time.Time) bool {
	return i.PublishedAt.After(t)
}
