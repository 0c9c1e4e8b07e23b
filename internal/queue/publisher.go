package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher delivers request events. Failures are reported to the caller,
// which logs them and carries on; events are best effort.
type Publisher interface {
	Publish(ctx context.Context, ev RequestEvent) error
}

// Nop discards every event. It is used when events are disabled.
type Nop struct{}

func (Nop) Publish(context.Context, RequestEvent) error { return nil }

// AMQPPublisher publishes persistent JSON messages to RequestEventsQueue
// through the default exchange. The connection is opened lazily and
// re-dialed after it closes.
type AMQPPublisher struct {
	url string
	log *slog.Logger

	mu   sync.Mutex
	conn *amqp.Connection
}

func NewAMQPPublisher(url string, log *slog.Logger) *AMQPPublisher {
	return &AMQPPublisher{url: url, log: log}
}

func (p *AMQPPublisher) connection() (*amqp.Connection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil && !p.conn.IsClosed() {
		return p.conn, nil
	}
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	p.conn = conn
	return conn, nil
}

// Publish declares the queue (idempotent) and publishes ev on a fresh channel.
func (p *AMQPPublisher) Publish(ctx context.Context, ev RequestEvent) error {
	conn, err := p.connection()
	if err != nil {
		return err
	}
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(RequestEventsQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq queue declare: %w", err)
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         string(ev.Kind),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", RequestEventsQueue, false, false, pub); err != nil {
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	p.log.Debug("event published", slog.String("kind", string(ev.Kind)), slog.Uint64("request_id", ev.RequestID))
	return nil
}

// Close releases the broker connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil || p.conn.IsClosed() {
		return nil
	}
	return p.conn.Close()
}
