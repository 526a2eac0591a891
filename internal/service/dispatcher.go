package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ad-tracker/youtube-announcer-go/internal/db/models"
	"github.com/ad-tracker/youtube-announcer-go/internal/delivery"
	"github.com/ad-tracker/youtube-announcer-go/internal/format"
	"github.com/ad-tracker/youtube-announcer-go/internal/metrics"
)

// Messenger sends text to a messaging target. Errors it returns are marked
// with delivery.PermanentError or delivery.RetryableError.
type Messenger interface {
	SendText(ctx context.Context, target, text string) error
}

// Announcer sends one announcement and classifies the result.
type Announcer interface {
	Send(ctx context.Context, channel *models.Channel, item *models.Item) (delivery.Outcome, error)
}

// Dispatcher renders announcements and sends them through the messenger,
// keeping at least minInterval between consecutive sends.
type Dispatcher struct {
	messenger   Messenger
	format      format.Formatter
	limiter     *rate.Limiter
	sendTimeout time.Duration
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

// NewDispatcher creates a Dispatcher. A zero minInterval disables pacing.
func NewDispatcher(messenger Messenger, f format.Formatter, minInterval, sendTimeout time.Duration, m *metrics.Metrics, logger *zap.Logger) *Dispatcher {
	limit := rate.Inf
	if minInterval > 0 {
		limit = rate.Every(minInterval)
	}
	if sendTimeout <= 0 {
		sendTimeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Dispatcher{
		messenger:   messenger,
		format:      f,
		limiter:     rate.NewLimiter(limit, 1),
		sendTimeout: sendTimeout,
		metrics:     m,
		logger:      logger,
	}
}

// Send delivers the announcement for item to the channel. Waiting for a send
// slot honours ctx; the send itself is bounded by the send timeout only.
func (d *Dispatcher) Send(ctx context.Context, channel *models.Channel, item *models.Item) (delivery.Outcome, error) {
	text := d.format(item, channel.Plan)

	if err := d.limiter.Wait(ctx); err != nil {
		return delivery.Retryable, fmt.Errorf("wait for send slot: %w", err)
	}

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.sendTimeout)
	defer cancel()

	err := d.messenger.SendText(sendCtx, channel.ChannelKey, text)
	outcome := delivery.Classify(err)
	d.metrics.Announcement(outcome.String())

	if err != nil {
		d.logger.Warn("announcement not delivered",
			zap.String("channel_key", channel.ChannelKey),
			zap.String("item_id", item.ID),
			zap.Stringer("outcome", outcome),
			zap.Error(err),
		)
		return outcome, err
	}

	d.logger.Info("announcement delivered",
		zap.String("channel_key", channel.ChannelKey),
		zap.String("item_id", item.ID),
		zap.String("item_type", string(item.Type)),
	)
	return outcome, nil
}
