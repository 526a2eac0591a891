package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ad-tracker/youtube-announcer-go/internal/metrics"
	"github.com/ad-tracker/youtube-announcer-go/internal/service/youtube"
)

// ChannelLookup is the part of the Data API client used to resolve channel URLs.
type ChannelLookup interface {
	GetChannel(ctx context.Context, channelID string) (*youtube.ChannelInfo, error)
	ChannelByHandle(ctx context.Context, handle string) (*youtube.ChannelInfo, error)
	ChannelByUsername(ctx context.Context, username string) (*youtube.ChannelInfo, error)
	SearchChannel(ctx context.Context, query string) (string, error)
}

// ChannelResolver turns a YouTube channel URL into channel metadata.
type ChannelResolver struct {
	api     ChannelLookup
	feed    UploadsFeed
	quota   QuotaTracker
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewChannelResolver creates a ChannelResolver. Without api only /channel/
// URLs resolve, verified against the uploads feed.
func NewChannelResolver(api ChannelLookup, feed UploadsFeed, quota QuotaTracker, m *metrics.Metrics, logger *zap.Logger) *ChannelResolver {
	if feed == nil {
		feed = youtube.NewFeedClient(nil, "")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ChannelResolver{
		api:     api,
		feed:    feed,
		quota:   quota,
		metrics: m,
		logger:  logger,
	}
}

// Resolve looks up the channel a URL points to.
func (r *ChannelResolver) Resolve(ctx context.Context, rawURL string) (*youtube.ChannelInfo, error) {
	ref, err := youtube.ParseChannelURL(rawURL)
	if err != nil {
		return nil, err
	}

	if r.api == nil {
		if ref.Kind != youtube.RefChannelID {
			return nil, ErrLookupUnavailable
		}
		return r.resolveFromFeed(ctx, ref.Value)
	}

	var info *youtube.ChannelInfo
	switch ref.Kind {
	case youtube.RefChannelID:
		info, err = r.lookup(ctx, func(ctx context.Context) (*youtube.ChannelInfo, error) {
			return r.api.GetChannel(ctx, ref.Value)
		})
	case youtube.RefHandle:
		info, err = r.lookup(ctx, func(ctx context.Context) (*youtube.ChannelInfo, error) {
			return r.api.ChannelByHandle(ctx, ref.Value)
		})
	case youtube.RefUsername:
		info, err = r.lookup(ctx, func(ctx context.Context) (*youtube.ChannelInfo, error) {
			return r.api.ChannelByUsername(ctx, ref.Value)
		})
	case youtube.RefCustom:
		info, err = r.resolveCustom(ctx, ref.Value)
	default:
		return nil, fmt.Errorf("%w: %s", youtube.ErrInvalidChannelURL, rawURL)
	}
	if err != nil {
		return nil, err
	}

	r.logger.Info("resolved channel",
		zap.String("url", rawURL),
		zap.String("source_id", info.ID),
		zap.String("title", info.Title),
	)
	return info, nil
}

// resolveCustom handles legacy /c/ URLs, which the API cannot look up
// directly, through a channel search.
func (r *ChannelResolver) resolveCustom(ctx context.Context, name string) (*youtube.ChannelInfo, error) {
	if err := r.reserve(ctx, youtube.CostSearchList+youtube.CostChannelsList); err != nil {
		return nil, err
	}

	id, err := r.api.SearchChannel(ctx, name)
	r.spend(ctx, youtube.CostSearchList, youtube.OpSearchList)
	if err != nil {
		return nil, fmt.Errorf("search channel %s: %w", name, err)
	}

	return r.lookup(ctx, func(ctx context.Context) (*youtube.ChannelInfo, error) {
		return r.api.GetChannel(ctx, id)
	})
}

func (r *ChannelResolver) lookup(ctx context.Context, call func(context.Context) (*youtube.ChannelInfo, error)) (*youtube.ChannelInfo, error) {
	if err := r.reserve(ctx, youtube.CostChannelsList); err != nil {
		return nil, err
	}

	info, err := call(ctx)
	r.spend(ctx, youtube.CostChannelsList, youtube.OpChannelsList)
	if err != nil {
		return nil, err
	}
	return info, nil
}

func (r *ChannelResolver) resolveFromFeed(ctx context.Context, channelID string) (*youtube.ChannelInfo, error) {
	videos, err := r.feed.ListUploads(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("verify channel %s: %w", channelID, err)
	}

	info := &youtube.ChannelInfo{
		ID:                channelID,
		UploadsPlaylistID: uploadsPlaylistID(channelID),
	}
	if len(videos) > 0 {
		info.Title = videos[0].ChannelTitle
	}
	return info, nil
}

func (r *ChannelResolver) reserve(ctx context.Context, cost int) error {
	if r.quota == nil {
		return nil
	}
	ok, _, err := r.quota.CheckQuotaAvailable(ctx, cost)
	if err != nil {
		return fmt.Errorf("check quota: %w", err)
	}
	if !ok {
		return ErrQuotaExhausted
	}
	return nil
}

func (r *ChannelResolver) spend(ctx context.Context, cost int, op string) {
	r.metrics.QuotaSpent(op, cost)
	if r.quota == nil {
		return
	}
	if err := r.quota.RecordQuotaUsage(ctx, cost, op); err != nil {
		r.logger.Warn("failed to record quota usage", zap.String("operation", op), zap.Error(err))
	}
}

// IsNotFound reports whether err means the channel does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, youtube.ErrChannelNotFound)
}
