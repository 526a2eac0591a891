package models

import (
	"fmt"
	"time"
)

// Plan is the subscription tier of a channel. It only affects the rendered footer.
type Plan string

const (
	PlanFree Plan = "free"
	PlanPlus Plan = "plus"
)

// ParsePlan converts a stored plan value into a Plan.
func ParsePlan(s string) (Plan, error) {
	switch Plan(s) {
	case PlanFree, PlanPlus:
		return Plan(s), nil
	case "":
		return PlanFree, nil
	default:
		return "", fmt.Errorf("unknown plan %q", s)
	}
}

// Channel is one subscription mapping a messaging target to a YouTube channel.
type Channel struct {
	ChannelKey      string     `db:"channel_key" json:"channel_key"`
	OwnerUserID     int64      `db:"owner_user_id" json:"owner_user_id"`
	Title           string     `db:"title" json:"title"`
	SourceID        *string    `db:"source_id" json:"source_id,omitempty"`
	SourceURL       *string    `db:"source_url" json:"source_url,omitempty"`
	HighWaterMarkAt *time.Time `db:"high_water_mark_at" json:"high_water_mark_at,omitempty"`
	HighWaterItemID *string    `db:"high_water_item_id" json:"high_water_item_id,omitempty"`
	Plan            Plan       `db:"plan" json:"plan"`
	Active          bool       `db:"active" json:"active"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// NewChannel creates an active free-plan channel with no source configured.
func NewChannel(channelKey string, ownerUserID int64, title string) *Channel {
	now := time.Now()
	return &Channel{
		ChannelKey:  channelKey,
		OwnerUserID: ownerUserID,
		Title:       title,
		Plan:        PlanFree,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// HasSource reports whether a YouTube channel has been configured.
func (c *Channel) HasSource() bool {
	return c.SourceID != nil && *c.SourceID != ""
}

// Source returns the configured source ID or an empty string.
func (c *Channel) Source() string {
	if c.SourceID == nil {
		return ""
	}
	return *c.SourceID
}

// HighWaterItem returns the id of the item that set the high-water mark.
func (c *Channel) HighWaterItem() string {
	if c.HighWaterItemID == nil {
		return ""
	}
	return *c.HighWaterItemID
}

// NeverSwept reports whether the channel has no high-water mark yet.
func (c *Channel) NeverSwept() bool {
	return c.HighWaterMarkAt == nil
}

// ChannelStats summarizes the registry for admin commands.
type ChannelStats struct {
	Total      int `json:"total"`
	Active     int `json:"active"`
	Configured int `json:"configured"`
	Plus       int `json:"plus"`
	Owners     int `json:"owners"`
}
