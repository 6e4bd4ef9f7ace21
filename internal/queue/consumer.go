package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const notificationLogName = "notifications.log"

// Consumer reads reservation events and appends one line per event to
// <logDir>/notifications.log, the outbox polled by the mailer.
type Consumer struct {
	url    string
	queue  string
	logDir string
	log    *zap.Logger

	mu sync.Mutex // serialises appends to the log file
}

// NewConsumer returns a Consumer for the given broker, queue and log
// directory.
func NewConsumer(url, queue, logDir string, log *zap.Logger) *Consumer {
	return &Consumer{url: url, queue: queue, logDir: logDir, log: log}
}

// Run consumes until ctx is cancelled, reconnecting with exponential
// backoff (capped at 30s) whenever the broker goes away.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warn("notify consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleepCtx(ctx, backoff) {
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
		c.log.Warn("notify consumer: consume loop ended; reconnecting", zap.Error(err))
		if !sleepCtx(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.Warn("notify consumer: set QoS failed", zap.Error(err))
	}
	if err := declareQueue(ch, c.queue); err != nil {
		return err
	}
	msgs, err := ch.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
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
			if err := c.handleMessage(d.Body); err != nil {
				c.log.Error("notify consumer: handle message failed",
					zap.String("message_id", d.MessageId), zap.Error(err))
				_ = d.Nack(false, false) // no requeue; a bad payload would loop forever
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) handleMessage(body []byte) error {
	var ev ReservationEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.ReservationID == 0 || ev.Type == "" {
		return fmt.Errorf("event %q lacks reservation id or type", ev.EventID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.MkdirAll(c.logDir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", c.logDir, err)
	}
	f, err := os.OpenFile(filepath.Join(c.logDir, notificationLogName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(formatLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

func formatLine(ev ReservationEvent) string {
	names := make([]string, 0, len(ev.Resources))
	for _, r := range ev.Resources {
		names = append(names, fmt.Sprintf("%s x%d", r.Name, r.Quantity))
	}
	status := ev.ToStatus
	if ev.FromStatus != "" {
		status = ev.FromStatus + "->" + ev.ToStatus
	}
	return fmt.Sprintf("[%s] %s | event_id=%s | reservation_id=%d | status=%s | notify=%t | customer=%q <%s> | window=%s %s..%s %s | total=%d cents | resources=[%s]\n",
		ev.OccurredAt, ev.Type, ev.EventID, ev.ReservationID, status, ev.NotifyCustomer,
		ev.Customer.Name, ev.Customer.Email, ev.StartDate, ev.StartTime, ev.EndDate, ev.EndTime,
		ev.TotalPriceCents, strings.Join(names, ", "))
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
