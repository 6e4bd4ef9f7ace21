package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Soli-code/RezerwacjeV4-sub000/internal/booking"
)

// DefaultDialTimeout bounds the broker connect and handshake of one publish.
const DefaultDialTimeout = 3 * time.Second

// Publisher sends reservation events to a durable RabbitMQ queue.  It
// dials per message; reservation events are rare enough that a pooled
// connection is not worth its reconnect handling.
type Publisher struct {
	url         string
	queue       string
	dialTimeout time.Duration
}

var _ booking.Notifier = (*Publisher)(nil)

// NewPublisher returns a Publisher for the given broker URL and queue.
func NewPublisher(url, queue string) *Publisher {
	return &Publisher{url: url, queue: queue, dialTimeout: DefaultDialTimeout}
}

// WithDialTimeout sets the connect and handshake limit; d <= 0 keeps the
// current one.
func (p *Publisher) WithDialTimeout(d time.Duration) *Publisher {
	if d > 0 {
		p.dialTimeout = d
	}
	return p
}

// timeoutFor is the configured dial limit, shortened to ctx's deadline.
func (p *Publisher) timeoutFor(ctx context.Context) time.Duration {
	d := p.dialTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < d {
			d = left
		}
	}
	return d
}

// Notify publishes ev as a persistent JSON message.  The caller decides
// what a failure means; the booking engine only logs it.
func (p *Publisher) Notify(ctx context.Context, ev booking.Event) error {
	body, err := json.Marshal(NewReservationEvent(ev))
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	timeout := p.timeoutFor(ctx)
	if timeout <= 0 {
		return fmt.Errorf("dial broker: %w", context.DeadlineExceeded)
	}
	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(timeout),
	})
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := declareQueue(ch, p.queue); err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID.String(),
		Type:         string(ev.Type),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

// declareQueue makes sure the durable queue exists.  Publisher and
// consumer declare it with identical arguments.
func declareQueue(ch *amqp.Channel, name string) error {
	if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare %s: %w", name, err)
	}
	return nil
}
