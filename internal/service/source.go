package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ad-tracker/youtube-announcer-go/internal/db/models"
	"github.com/ad-tracker/youtube-announcer-go/internal/metrics"
	"github.com/ad-tracker/youtube-announcer-go/internal/service/youtube"
)

// ContentSource lists the recent items of a YouTube channel, newest first.
type ContentSource interface {
	Fetch(ctx context.Context, sourceID string) ([]*models.Item, error)
}

// YouTubeAPI is the part of the Data API client the content source calls.
type YouTubeAPI interface {
	GetChannel(ctx context.Context, channelID string) (*youtube.ChannelInfo, error)
	ListUploads(ctx context.Context, playlistID string) ([]*youtube.Video, error)
	ListLive(ctx context.Context, channelID string) ([]*youtube.Video, error)
	ListUpcoming(ctx context.Context, channelID string) ([]*youtube.Video, error)
}

// UploadsFeed lists a channel's uploads without spending API quota.
type UploadsFeed interface {
	ListUploads(ctx context.Context, channelID string) ([]*youtube.Video, error)
}

// QuotaTracker gates and records Data API spending.
type QuotaTracker interface {
	CheckQuotaAvailable(ctx context.Context, requiredQuota int) (bool, *models.QuotaInfo, error)
	RecordQuotaUsage(ctx context.Context, quotaCost int, operationType string) error
}

// SourceOptions selects which streams a fetch merges.
type SourceOptions struct {
	UploadsFromFeed  bool
	IncludeLive      bool
	IncludePremieres bool
	RequestTimeout   time.Duration
}

type stream struct {
	name     string
	itemType models.ItemType
	cost     int
	op       string
	primary  bool
	list     func(ctx context.Context) ([]*youtube.Video, error)
}

type contentSource struct {
	api      YouTubeAPI
	feed     UploadsFeed
	quota    QuotaTracker
	metrics  *metrics.Metrics
	opts     SourceOptions
	logger   *zap.Logger
	channels sync.Map // source id -> *youtube.ChannelInfo
}

// NewContentSource creates a ContentSource. api may be nil when uploads come
// from the feed; live and premiere streams are then disabled. quota may be nil.
func NewContentSource(api YouTubeAPI, feed UploadsFeed, quota QuotaTracker, m *metrics.Metrics, opts SourceOptions, logger *zap.Logger) ContentSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 15 * time.Second
	}
	if feed == nil {
		feed = youtube.NewFeedClient(nil, "")
	}
	if api == nil {
		opts.UploadsFromFeed = true
		opts.IncludeLive = false
		opts.IncludePremieres = false
	}

	return &contentSource{
		api:     api,
		feed:    feed,
		quota:   quota,
		metrics: m,
		opts:    opts,
		logger:  logger,
	}
}

func (s *contentSource) Fetch(ctx context.Context, sourceID string) ([]*models.Item, error) {
	if sourceID == "" {
		return nil, ErrNoSource
	}
	log := s.logger.With(zap.String("source_id", sourceID))

	streams, channelTitle, err := s.streams(ctx, sourceID)
	if err != nil {
		return nil, err
	}

	results := make([][]*youtube.Video, len(streams))
	var primaryErr error
	var wg sync.WaitGroup
	for i, st := range streams {
		wg.Go(func() {
			callCtx, cancel := context.WithTimeout(ctx, s.opts.RequestTimeout)
			defer cancel()

			videos, err := st.list(callCtx)
			s.spend(ctx, st.cost, st.op)
			if err != nil {
				if st.primary && errors.Is(err, youtube.ErrChannelNotFound) {
					primaryErr = err
					return
				}
				log.Warn("stream failed, contributing no items",
					zap.String("stream", st.name),
					zap.Error(err),
				)
				return
			}
			results[i] = videos
		})
	}
	wg.Wait()

	if primaryErr != nil {
		s.channels.Delete(sourceID)
		return nil, fmt.Errorf("fetch %s: %w", sourceID, primaryErr)
	}

	types := make([]models.ItemType, len(streams))
	for i, st := range streams {
		types[i] = st.itemType
	}

	return mergeStreams(results, types, channelTitle, log), nil
}

// streams builds the list calls for one fetch. The primary lookup happens
// here, so its failure fails the whole fetch.
func (s *contentSource) streams(ctx context.Context, sourceID string) ([]stream, string, error) {
	var (
		streams      []stream
		channelTitle string
	)

	if s.opts.UploadsFromFeed {
		streams = append(streams, s.feedUploads(sourceID))
	} else {
		info, err := s.channelInfo(ctx, sourceID)
		switch {
		case errors.Is(err, ErrQuotaExhausted):
			// The feed costs no quota.
			s.logger.Debug("quota exhausted, reading uploads from the feed", zap.String("source_id", sourceID))
			streams = append(streams, s.feedUploads(sourceID))
		case err != nil:
			return nil, "", err
		default:
			channelTitle = info.Title
			streams = append(streams, stream{
				name:     "uploads",
				itemType: models.ItemVideo,
				cost:     youtube.CostPlaylistItemsList,
				op:       youtube.OpPlaylistItemsList,
				primary:  true,
				list: func(ctx context.Context) ([]*youtube.Video, error) {
					return s.api.ListUploads(ctx, info.UploadsPlaylistID)
				},
			})
		}
	}

	if s.opts.IncludeLive {
		streams = s.appendSearchStream(ctx, streams, stream{
			name:     "live",
			itemType: models.ItemLive,
			cost:     youtube.CostSearchList,
			op:       youtube.OpSearchList,
			list: func(ctx context.Context) ([]*youtube.Video, error) {
				return s.api.ListLive(ctx, sourceID)
			},
		})
	}
	if s.opts.IncludePremieres {
		streams = s.appendSearchStream(ctx, streams, stream{
			name:     "premieres",
			itemType: models.ItemPremiere,
			cost:     youtube.CostSearchList,
			op:       youtube.OpSearchList,
			list: func(ctx context.Context) ([]*youtube.Video, error) {
				return s.api.ListUpcoming(ctx, sourceID)
			},
		})
	}

	return streams, channelTitle, nil
}

func (s *contentSource) feedUploads(sourceID string) stream {
	return stream{
		name:     "uploads",
		itemType: models.ItemVideo,
		primary:  true,
		list: func(ctx context.Context) ([]*youtube.Video, error) {
			return s.feed.ListUploads(ctx, sourceID)
		},
	}
}

// appendSearchStream adds st unless the quota cannot cover it. A stream
// skipped for quota contributes no items, same as a failed one.
func (s *contentSource) appendSearchStream(ctx context.Context, streams []stream, st stream) []stream {
	pending := st.cost
	for _, prev := range streams {
		pending += prev.cost
	}

	ok, err := s.reserve(ctx, pending)
	if err != nil {
		s.logger.Warn("quota check failed", zap.String("stream", st.name), zap.Error(err))
		return streams
	}
	if !ok {
		s.logger.Debug("quota too low for stream, skipping", zap.String("stream", st.name))
		return streams
	}
	return append(streams, st)
}

func (s *contentSource) channelInfo(ctx context.Context, sourceID string) (*youtube.ChannelInfo, error) {
	if v, ok := s.channels.Load(sourceID); ok {
		if err := s.require(ctx, youtube.CostPlaylistItemsList); err != nil {
			return nil, err
		}
		return v.(*youtube.ChannelInfo), nil
	}

	if err := s.require(ctx, youtube.CostChannelsList+youtube.CostPlaylistItemsList); err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.opts.RequestTimeout)
	defer cancel()

	info, err := s.api.GetChannel(callCtx, sourceID)
	s.spend(ctx, youtube.CostChannelsList, youtube.OpChannelsList)
	if err != nil {
		return nil, fmt.Errorf("look up channel %s: %w", sourceID, err)
	}
	if info.UploadsPlaylistID == "" {
		info.UploadsPlaylistID = uploadsPlaylistID(sourceID)
	}

	s.channels.Store(sourceID, info)
	return info, nil
}

func (s *contentSource) reserve(ctx context.Context, cost int) (bool, error) {
	if s.quota == nil || cost <= 0 {
		return true, nil
	}
	ok, _, err := s.quota.CheckQuotaAvailable(ctx, cost)
	if err != nil {
		return false, fmt.Errorf("check quota: %w", err)
	}
	return ok, nil
}

// require fails with ErrQuotaExhausted when cost does not fit under the threshold.
func (s *contentSource) require(ctx context.Context, cost int) error {
	ok, err := s.reserve(ctx, cost)
	if err != nil {
		return err
	}
	if !ok {
		return ErrQuotaExhausted
	}
	return nil
}

func (s *contentSource) spend(ctx context.Context, cost int, op string) {
	if cost <= 0 {
		return
	}
	s.metrics.QuotaSpent(op, cost)
	if s.quota == nil {
		return
	}
	if err := s.quota.RecordQuotaUsage(context.WithoutCancel(ctx), cost, op); err != nil {
		s.logger.Warn("failed to record quota usage", zap.String("operation", op), zap.Error(err))
	}
}

// uploadsPlaylistID derives the uploads playlist (UU...) of a UC... channel.
func uploadsPlaylistID(channelID string) string {
	if strings.HasPrefix(channelID, "UC") {
		return "UU" + channelID[2:]
	}
	return channelID
}

// mergeStreams flattens the stream results into items, newest first. Streams
// are visited in order, so an id seen in more than one stream keeps the type
// of the first and equal timestamps keep stream order. Malformed items are
// dropped.
func mergeStreams(results [][]*youtube.Video, types []models.ItemType, channelTitle string, log *zap.Logger) []*models.Item {
	seen := make(map[string]struct{})
	var items []*models.Item

	for i, videos := range results {
		for _, v := range videos {
			item := &models.Item{
				ID:           strings.TrimSpace(v.ID),
				Type:         types[i],
				Title:        v.Title,
				ChannelTitle: v.ChannelTitle,
				PublishedAt:  v.PublishedAt,
			}
			if item.ChannelTitle == "" {
				item.ChannelTitle = channelTitle
			}

			if err := item.Validate(); err != nil {
				log.Warn("dropping malformed item", zap.String("item_id", item.ID), zap.Error(err))
				continue
			}
			if _, dup := seen[item.ID]; dup {
				continue
			}
			seen[item.ID] = struct{}{}
			items = append(items, item)
		}
	}

	slices.SortStableFunc(items, func(a, b *models.Item) int {
		return b.PublishedAt.Compare(a.PublishedAt)
	})

	return items
}

// NewItems returns the items past the high-water mark, oldest first. Items
// published at exactly mark are included unless they are the item that set
// it, so a tie left behind by a partial batch is retried; the ledger filters
// the ones already sent. Items with equal timestamps keep their relative order.
func NewItems(items []*models.Item, mark time.Time, markItemID string) []*models.Item {
	var fresh []*models.Item
	for _, item := range items {
		if item.NewerThan(mark) || (item.PublishedAt.Equal(mark) && item.ID != markItemID) {
			fresh = append(fresh, item)
		}
	}

	slices.SortStableFunc(fresh, func(a, b *models.Item) int {
		return a.PublishedAt.Compare(b.PublishedAt)
	})

	return fresh
}
