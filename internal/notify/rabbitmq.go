package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/creator-sync/internal/logging"
	"github.com/creator-sync/internal/models"
)

// Config holds the broker settings
type Config struct {
	URL        string
	Exchange   string
	RoutingKey string
	QueueName  string
}

// channel is the subset of *amqp.Channel used for publishing
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitMQ publishes error events as persistent JSON messages to a direct exchange.
// Failed publishes fall back to the log.
type RabbitMQ struct {
	conn       *amqp.Connection
	channel    channel
	exchange   string
	routingKey string
	fallback   *LogNotifier
	logger     *logging.Logger
}

// NewRabbitMQ dials the broker and declares the exchange, queue and binding
func NewRabbitMQ(cfg Config, logger *logging.Logger) (*RabbitMQ, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(cfg.Exchange, "direct", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare(cfg.QueueName, true, false, false, false, nil)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, cfg.RoutingKey, cfg.Exchange, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("bind queue: %w", err)
	}

	logger.WithFields(map[string]interface{}{
		"exchange":    cfg.Exchange,
		"queue":       cfg.QueueName,
		"routing_key": cfg.RoutingKey,
	}).Info("Connected to rabbitmq")

	r := newRabbitMQ(ch, cfg, logger)
	r.conn = conn
	return r, nil
}

func newRabbitMQ(ch channel, cfg Config, logger *logging.Logger) *RabbitMQ {
	return &RabbitMQ{
		channel:    ch,
		exchange:   cfg.Exchange,
		routingKey: cfg.RoutingKey,
		fallback:   NewLogNotifier(logger),
		logger:     logger,
	}
}

// NotifyError publishes the event
func (r *RabbitMQ) NotifyError(ctx context.Context, event *models.ErrorEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = r.channel.PublishWithContext(pubCtx, r.exchange, r.routingKey, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Type:         event.Type,
		Body:         body,
		Timestamp:    time.Now(),
	})
	if err != nil {
		_ = r.fallback.NotifyError(ctx, event)
		return fmt.Errorf("publish event: %w", err)
	}

	r.logger.WithField("account_id", event.AccountID).Debug("Published sync error event")
	return nil
}

// Close closes the channel and connection
func (r *RabbitMQ) Close() error {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
