package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ad-tracker/youtube-announcer-go/internal/db/models"
	"github.com/ad-tracker/youtube-announcer-go/internal/delivery"
	"github.com/ad-tracker/youtube-announcer-go/internal/events"
	"github.com/ad-tracker/youtube-announcer-go/internal/metrics"
)

// ChannelRegistry is the part of the channel repository a sweep needs.
type ChannelRegistry interface {
	ListActive(ctx context.Context) ([]*models.Channel, error)
	Deactivate(ctx context.Context, channelKey string) error
}

// ChannelStatus is how a channel's turn in a sweep ended.
type ChannelStatus string

const (
	StatusOK          ChannelStatus = "ok"
	StatusNoSource    ChannelStatus = "no_source"
	StatusBusy        ChannelStatus = "busy"
	StatusFetchError  ChannelStatus = "fetch_error"
	StatusColdStart   ChannelStatus = "cold_start"
	StatusRetry       ChannelStatus = "retry"
	StatusDeactivated ChannelStatus = "deactivated"
	StatusStoreError  ChannelStatus = "store_error"
	StatusCancelled   ChannelStatus = "cancelled"
	StatusPanic       ChannelStatus = "panic"
)

// ChannelReport summarizes one channel's turn in a sweep.
type ChannelReport struct {
	ChannelKey string        `json:"channel_key"`
	Status     ChannelStatus `json:"status"`
	Fetched    int           `json:"fetched"`
	New        int           `json:"new"`
	Delivered  int           `json:"delivered"`
	Error      string        `json:"error,omitempty"`
}

// SweepReport summarizes a sweep over all active channels.
type SweepReport struct {
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Channels   []ChannelReport `json:"channels"`
	Cancelled  bool            `json:"cancelled"`
	Error      string          `json:"error,omitempty"`
}

// Delivered returns the number of announcements sent in the sweep.
func (r *SweepReport) Delivered() int {
	n := 0
	for _, c := range r.Channels {
		n += c.Delivered
	}
	return n
}

// Count returns how many channels ended with status.
func (r *SweepReport) Count(status ChannelStatus) int {
	n := 0
	for _, c := range r.Channels {
		if c.Status == status {
			n++
		}
	}
	return n
}

// SweeperConfig tunes a Sweeper.
type SweeperConfig struct {
	// Workers bounds how many channels are processed at once. 1 is sequential.
	Workers int
	// FetchTimeout bounds one content fetch.
	FetchTimeout time.Duration
	// EventTimeout bounds publishing one announcement event.
	EventTimeout time.Duration
}

// Sweeper runs the announcement pipeline over every active channel.
type Sweeper struct {
	channels  ChannelRegistry
	source    ContentSource
	dedup     DedupStore
	announcer Announcer
	events    events.Publisher
	metrics   *metrics.Metrics
	cfg       SweeperConfig
	locks     *keyedMutex
	now       func() time.Time
	logger    *zap.Logger
}

// NewSweeper creates a Sweeper. publisher and m may be nil.
func NewSweeper(
	channels ChannelRegistry,
	source ContentSource,
	dedup DedupStore,
	announcer Announcer,
	publisher events.Publisher,
	m *metrics.Metrics,
	cfg SweeperConfig,
	logger *zap.Logger,
) *Sweeper {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 2 * time.Minute
	}
	if cfg.EventTimeout <= 0 {
		cfg.EventTimeout = 10 * time.Second
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Sweeper{
		channels:  channels,
		source:    source,
		dedup:     dedup,
		announcer: announcer,
		events:    publisher,
		metrics:   m,
		cfg:       cfg,
		locks:     newKeyedMutex(),
		now:       time.Now,
		logger:    logger,
	}
}

// Sweep processes every active channel once. A failing channel never stops
// the others. Cancelling ctx stops the sweep between channels and between
// items; a send or store call already started is allowed to finish.
func (s *Sweeper) Sweep(ctx context.Context) *SweepReport {
	report := &SweepReport{StartedAt: s.now()}
	defer func() {
		report.FinishedAt = s.now()
		report.Cancelled = ctx.Err() != nil
		s.metrics.ObserveSweep(report.FinishedAt.Sub(report.StartedAt), len(report.Channels))
		s.logger.Info("sweep finished",
			zap.Int("channels", len(report.Channels)),
			zap.Int("delivered", report.Delivered()),
			zap.Int("fetch_errors", report.Count(StatusFetchError)),
			zap.Int("deactivated", report.Count(StatusDeactivated)),
			zap.Bool("cancelled", report.Cancelled),
			zap.Duration("took", report.FinishedAt.Sub(report.StartedAt)),
		)
	}()

	channels, err := s.channels.ListActive(ctx)
	if err != nil {
		s.logger.Error("failed to list active channels", zap.Error(err))
		report.Error = err.Error()
		return report
	}

	report.Channels = make([]ChannelReport, len(channels))

	var g errgroup.Group
	g.SetLimit(s.cfg.Workers)
	for i, ch := range channels {
		if ctx.Err() != nil {
			report.Channels[i] = ChannelReport{ChannelKey: ch.ChannelKey, Status: StatusCancelled}
			continue
		}
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("channel sweep panicked",
						zap.String("channel_key", ch.ChannelKey),
						zap.Any("panic", r),
						zap.Stack("stack"),
					)
					report.Channels[i] = ChannelReport{
						ChannelKey: ch.ChannelKey,
						Status:     StatusPanic,
						Error:      fmt.Sprint(r),
					}
				}
			}()
			report.Channels[i] = s.sweepChannel(ctx, ch)
			return nil
		})
	}
	_ = g.Wait()

	for _, c := range report.Channels {
		s.metrics.ChannelResult(string(c.Status))
	}

	return report
}

func (s *Sweeper) sweepChannel(ctx context.Context, ch *models.Channel) (rep ChannelReport) {
	rep.ChannelKey = ch.ChannelKey
	log := s.logger.With(zap.String("channel_key", ch.ChannelKey))
	defer func() {
		fields := []zap.Field{
			zap.String("status", string(rep.Status)),
			zap.Int("fetched", rep.Fetched),
			zap.Int("new", rep.New),
			zap.Int("delivered", rep.Delivered),
		}
		if rep.Error != "" {
			fields = append(fields, zap.String("error", rep.Error))
		}
		log.Info("channel swept", fields...)
	}()

	if ctx.Err() != nil {
		rep.Status = StatusCancelled
		return rep
	}

	unlock, ok := s.locks.TryLock(ch.ChannelKey)
	if !ok {
		rep.Status = StatusBusy
		return rep
	}
	defer unlock()

	if !ch.HasSource() {
		rep.Status = StatusNoSource
		return rep
	}

	// Store calls outlive cancellation: an announcement that went out must
	// reach the ledger.
	storeCtx := context.WithoutCancel(ctx)

	fetchCtx, cancel := context.WithTimeout(storeCtx, s.cfg.FetchTimeout)
	items, err := s.source.Fetch(fetchCtx, ch.Source())
	cancel()
	if err != nil {
		s.metrics.FetchError()
		rep.Status = StatusFetchError
		rep.Error = err.Error()
		return rep
	}
	rep.Fetched = len(items)

	if ch.NeverSwept() {
		rep.Status = StatusColdStart
		if len(items) == 0 {
			return rep
		}
		if err := s.dedup.Anchor(storeCtx, ch.ChannelKey, items[0]); err != nil {
			rep.Status = StatusStoreError
			rep.Error = err.Error()
		}
		return rep
	}

	mark := *ch.HighWaterMarkAt
	pending := NewItems(items, mark, ch.HighWaterItem())
	rep.New = len(pending)
	rep.Status = StatusOK

	for _, item := range pending {
		if ctx.Err() != nil {
			rep.Status = StatusCancelled
			return rep
		}

		posted, err := s.dedup.IsPosted(storeCtx, ch.ChannelKey, item.ID)
		if err != nil {
			rep.Status = StatusStoreError
			rep.Error = err.Error()
			return rep
		}
		if posted {
			if !item.NewerThan(mark) {
				continue
			}
			// Already in the ledger but past the mark: bring the mark up.
			if err := s.dedup.RecordPosted(storeCtx, ch.ChannelKey, item); err != nil {
				rep.Status = StatusStoreError
				rep.Error = err.Error()
				return rep
			}
			continue
		}

		outcome, err := s.announcer.Send(ctx, ch, item)
		switch outcome {
		case delivery.Delivered:
			if err := s.dedup.RecordPosted(storeCtx, ch.ChannelKey, item); err != nil {
				log.Error("announcement sent but not recorded, it may be sent again",
					zap.String("item_id", item.ID),
					zap.Error(err),
				)
				rep.Status = StatusStoreError
				rep.Error = err.Error()
				return rep
			}
			rep.Delivered++
			s.publish(storeCtx, ch, item)

		case delivery.Permanent:
			if derr := s.channels.Deactivate(storeCtx, ch.ChannelKey); derr != nil {
				log.Error("failed to deactivate channel", zap.NamedError("send_error", err), zap.Error(derr))
				rep.Status = StatusStoreError
				rep.Error = derr.Error()
				return rep
			}
			s.metrics.ChannelDeactivated()
			log.Warn("channel deactivated after permanent delivery failure", zap.Error(err))
			rep.Status = StatusDeactivated
			rep.Error = errString(err)
			return rep

		default:
			rep.Status = StatusRetry
			rep.Error = errString(err)
			return rep
		}
	}

	return rep
}

func (s *Sweeper) publish(ctx context.Context, ch *models.Channel, item *models.Item) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.EventTimeout)
	defer cancel()

	err := s.events.Publish(ctx, events.NewAnnouncementEvent(ch, item, s.now().UTC()))
	s.metrics.EventPublished(err == nil)
	if err != nil {
		s.logger.Warn("failed to publish announcement event",
			zap.String("channel_key", ch.ChannelKey),
			zap.String("item_id", item.ID),
			zap.Error(err),
		)
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
