package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/ad-tracker/youtube-announcer-go/internal/config"
)

const confirmTimeout = 5 * time.Second

// RabbitPublisher publishes events to a topic exchange with publisher confirms.
type RabbitPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	confirms chan amqp.Confirmation
	config   config.RabbitMQConfig
	logger   *zap.Logger
	mu       sync.Mutex
}

// NewRabbitPublisher connects to the broker and declares the exchange and queue.
func NewRabbitPublisher(cfg config.RabbitMQConfig, logger *zap.Logger) (*RabbitPublisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &RabbitPublisher{
		config: cfg,
		logger: logger,
	}

	if err := p.connect(); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *RabbitPublisher) connect() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	connURL := fmt.Sprintf("amqp://%s:%s@%s:%d/",
		p.config.User, p.config.Password, p.config.Host, p.config.Port)

	conn, err := amqp.Dial(connURL)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	fail := func(format string, err error) error {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf(format, err)
	}

	if err := ch.Confirm(false); err != nil {
		return fail("failed to enable publisher confirms: %w", err)
	}

	if err := ch.ExchangeDeclare(
		p.config.Exchange, // name
		"topic",           // type
		true,              // durable
		false,             // auto-deleted
		false,             // internal
		false,             // no-wait
		nil,               // arguments
	); err != nil {
		return fail("failed to declare exchange: %w", err)
	}

	if p.config.Queue != "" {
		_, err = ch.QueueDeclare(
			p.config.Queue, // name
			true,           // durable
			false,          // delete when unused
			false,          // exclusive
			false,          // no-wait
			amqp.Table{
				"x-message-ttl": 86400000, // 24 hours
				"x-max-length":  100000,
			},
		)
		if err != nil {
			return fail("failed to declare queue: %w", err)
		}

		if err := ch.QueueBind(p.config.Queue, p.config.RoutingKey, p.config.Exchange, false, nil); err != nil {
			return fail("failed to bind queue: %w", err)
		}
	}

	p.conn = conn
	p.channel = ch
	p.confirms = ch.NotifyPublish(make(chan amqp.Confirmation, 1))

	p.logger.Info("connected to RabbitMQ",
		zap.String("exchange", p.config.Exchange),
		zap.String("queue", p.config.Queue),
	)

	return nil
}

// Publish sends the event and waits for the broker's confirmation.
func (p *RabbitPublisher) Publish(ctx context.Context, event *AnnouncementEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel == nil || p.channel.IsClosed() {
		return errors.New("rabbitmq channel is not open")
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.channel.PublishWithContext(
		ctx,
		p.config.Exchange,   // exchange
		p.config.RoutingKey, // routing key
		false,               // mandatory
		false,               // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.PostedAt,
			MessageId:    event.ID.String(),
			Type:         event.Type,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	select {
	case confirm, ok := <-p.confirms:
		if !ok {
			return errors.New("rabbitmq channel closed before confirmation")
		}
		if !confirm.Ack {
			return errors.New("message was not acknowledged by broker")
		}
	case <-time.After(confirmTimeout):
		return errors.New("timeout waiting for publish confirmation")
	case <-ctx.Done():
		return ctx.Err()
	}

	p.logger.Debug("published announcement event",
		zap.String("event_id", event.ID.String()),
		zap.String("channel_key", event.ChannelKey),
		zap.String("item_id", event.ItemID),
	)

	return nil
}

// IsHealthy reports whether the connection and channel are open.
func (p *RabbitPublisher) IsHealthy() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.conn != nil && !p.conn.IsClosed() && p.channel != nil && !p.channel.IsClosed()
}

// Close closes the channel and the connection.
func (p *RabbitPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	if p.channel != nil && !p.channel.IsClosed() {
		if err := p.channel.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if p.conn != nil && !p.conn.IsClosed() {
		if err := p.conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("errors closing publisher: %w", err)
	}

	p.logger.Info("RabbitMQ publisher closed")
	return nil
}
