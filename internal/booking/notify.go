package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Soli-code/RezerwacjeV4-sub000/internal/model"
)

// EventType names a domain event sent to the notification service.
type EventType string

const (
	EventReservationCreated EventType = "reservation.created"
	EventStatusChanged      EventType = "reservation.status_changed"
	EventRescheduled        EventType = "reservation.rescheduled"
)

// ResourceSummary is the per-resource part of an event.
type ResourceSummary struct {
	ResourceID uint64 `json:"resource_id"`
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
}

// Event carries everything the notification service needs to contact the
// customer without reading the reservation store.
type Event struct {
	ID              uuid.UUID
	Type            EventType
	ReservationID   uint64
	Customer        model.CustomerInfo
	Window          model.TimeWindow
	Resources       []ResourceSummary
	TotalPriceCents int64
	From            model.Status
	To              model.Status
	NotifyCustomer  bool
	OccurredAt      time.Time
}

// Notifier delivers events.  Delivery is best effort: the engine logs
// errors and carries on.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, ev Event) error

func (f NotifierFunc) Notify(ctx context.Context, ev Event) error { return f(ctx, ev) }

var discardNotifier = NotifierFunc(func(context.Context, Event) error { return nil })

func newEvent(typ EventType, res *model.Reservation, at time.Time) Event {
	ev := Event{
		ID:              uuid.New(),
		Type:            typ,
		ReservationID:   res.ID,
		Customer:        res.Customer,
		Window:          res.Window,
		Resources:       make([]ResourceSummary, 0, len(res.Lines)),
		TotalPriceCents: res.TotalPriceCents,
		To:              res.Status,
		OccurredAt:      at.UTC(),
	}
	for _, l := range res.Lines {
		ev.Resources = append(ev.Resources, ResourceSummary{
			ResourceID: l.ResourceID,
			Name:       l.ResourceName,
			Quantity:   l.Quantity,
		})
	}
	return ev
}

// publish hands ev to the notifier.  Failures never reach the caller.
func (e *Engine) publish(ctx context.Context, ev Event) {
	if err := e.notifier.Notify(ctx, ev); err != nil {
		e.log.Warn("notification failed",
			zap.String("event_type", string(ev.Type)),
			zap.Uint64("reservation_id", ev.ReservationID),
			zap.Error(err),
			zap.NamedError("kind", ErrNotificationFailure),
		)
	}
}
