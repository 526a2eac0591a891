// Package events publishes announcement events to RabbitMQ for downstream
// consumers. Publishing is best-effort and never affects delivery.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ad-tracker/youtube-announcer-go/internal/db/models"
)

// EventAnnouncementPosted is the type of the event emitted after an
// announcement is recorded in the ledger.
const EventAnnouncementPosted = "announcement.posted"

// AnnouncementEvent describes one recorded announcement.
type AnnouncementEvent struct {
	ID          uuid.UUID       `json:"id"`
	Type        string          `json:"type"`
	ChannelKey  string          `json:"channel_key"`
	SourceID    string          `json:"source_id"`
	ItemID      string          `json:"item_id"`
	ItemType    models.ItemType `json:"item_type"`
	Title       string          `json:"title"`
	PublishedAt time.Time       `json:"published_at"`
	PostedAt    time.Time       `json:"posted_at"`
}

// NewAnnouncementEvent builds the event for item posted to channel.
func NewAnnouncementEvent(channel *models.Channel, item *models.Item, postedAt time.Time) *AnnouncementEvent {
	return &AnnouncementEvent{
		ID:          uuid.New(),
		Type:        EventAnnouncementPosted,
		ChannelKey:  channel.ChannelKey,
		SourceID:    channel.Source(),
		ItemID:      item.ID,
		ItemType:    item.Type,
		Title:       item.Title,
		PublishedAt: item.PublishedAt,
		PostedAt:    postedAt,
	}
}

// Publisher sends announcement events to a broker.
type Publisher interface {
	Publish(ctx context.Context, event *AnnouncementEvent) error
	IsHealthy() bool
	Close() error
}

// NoopPublisher discards events. It is used when the broker is disabled.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, *AnnouncementEvent) error { return nil }
func (NoopPublisher) IsHealthy() bool                                   { return true }
func (NoopPublisher) Close() error                                      { return nil }
