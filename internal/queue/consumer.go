package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AuditLogFile is the file, inside the consumer's directory, that receives
// one line per event.
const AuditLogFile = "requests.log"

// AuditConsumer reads RequestEventsQueue and appends each event to
// <Dir>/requests.log.
type AuditConsumer struct {
	URL string
	Dir string
	Log *slog.Logger
}

// Run connects and consumes until ctx is cancelled, reconnecting with
// exponential backoff (capped at 30s) whenever the broker goes away.
func (c *AuditConsumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			c.Log.Warn("audit consumer: dial failed", slog.Any("error", err), slog.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.Log.Warn("audit consumer: loop ended, reconnecting", slog.Any("error", err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *AuditConsumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.Log.Warn("audit consumer: set QoS failed", slog.Any("error", err))
	}
	if _, err := ch.QueueDeclare(RequestEventsQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(RequestEventsQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handle(d.Body); err != nil {
				c.Log.Error("audit consumer: handle message failed", slog.Any("error", err))
				_ = d.Nack(false, false) // do not requeue poison messages
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *AuditConsumer) handle(body []byte) error {
	var ev RequestEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	return AppendAuditLine(c.Dir, ev)
}

// AppendAuditLine writes ev as a single line to dir/requests.log.
func AppendAuditLine(dir string, ev RequestEvent) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	f, err := os.OpenFile(filepath.Join(dir, AuditLogFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(FormatAuditLine(ev)); err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

// FormatAuditLine renders ev in the single-line audit format.
func FormatAuditLine(ev RequestEvent) string {
	line := fmt.Sprintf("[%s] %s | request_id=%d | parent_id=%d | actor=%s | child=%q | type=%s | status=%s",
		ev.OccurredAt, ev.Kind, ev.RequestID, ev.ParentID, ev.Actor, ev.ChildName, ev.RequestType, ev.Status)
	if ev.Feedback != "" {
		line += fmt.Sprintf(" | feedback=%q", ev.Feedback)
	}
	return line + "\n"
}
