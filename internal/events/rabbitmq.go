package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// ErrPublisherClosed is returned when publishing on a closed connection.
var ErrPublisherClosed = errors.New("rabbitmq connection is closed")

// RabbitConfig holds the broker connection settings.
type RabbitConfig struct {
	URL      string
	Exchange string
}

// RabbitPublisher publishes events as persistent JSON messages to a topic exchange.
type RabbitPublisher struct {
	cfg  RabbitConfig
	log  logrus.FieldLogger
	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewRabbitPublisher connects to the broker and declares the exchange.
func NewRabbitPublisher(cfg RabbitConfig, log logrus.FieldLogger) (*RabbitPublisher, error) {
	p := &RabbitPublisher{cfg: cfg, log: log}
	if err := p.connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	return p, nil
}

// Publish sends the event with its type as the routing key.
// A dropped connection is redialled once before giving up.
func (p *RabbitPublisher) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil || p.conn.IsClosed() {
		p.log.Warn("rabbitmq connection lost, reconnecting")
		if err := p.connect(); err != nil {
			return fmt.Errorf("%w: %v", ErrPublisherClosed, err)
		}
	}

	return p.ch.PublishWithContext(ctx, p.cfg.Exchange, string(event.Type), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.OccurredAt,
		Body:         body,
	})
}

// Close closes the channel and the connection.
func (p *RabbitPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil && !p.ch.IsClosed() {
		if err := p.ch.Close(); err != nil {
			return fmt.Errorf("close rabbitmq channel: %w", err)
		}
	}
	if p.conn != nil && !p.conn.IsClosed() {
		if err := p.conn.Close(); err != nil {
			return fmt.Errorf("close rabbitmq connection: %w", err)
		}
	}
	return nil
}

func (p *RabbitPublisher) connect() error {
	conn, err := amqp.Dial(p.cfg.URL)
	if err != nil {
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return err
	}

	if err := ch.ExchangeDeclare(p.cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return err
	}

	p.conn = conn
	p.ch = ch
	return nil
}

var (
	_ Publisher = (*RabbitPublisher)(nil)
	_ Publisher = (*LogPublisher)(nil)
)
