// Package queue carries reservation events over RabbitMQ: the publisher
// implements booking.Notifier and the consumer writes a notification log
// for the mailer.
package queue

import (
	"time"

	"github.com/Soli-code/RezerwacjeV4-sub000/internal/booking"
)

// ReservationEvent is the JSON payload published for every reservation
// change.  It carries enough customer and window data for the mailer to
// work without querying the primary database.
type ReservationEvent struct {
	EventID         string                    `json:"event_id"`
	Type            string                    `json:"type"`
	ReservationID   uint64                    `json:"reservation_id"`
	Customer        CustomerPayload           `json:"customer"`
	StartDate       string                    `json:"start_date"`
	EndDate         string                    `json:"end_date"`
	StartTime       string                    `json:"start_time"`
	EndTime         string                    `json:"end_time"`
	Resources       []booking.ResourceSummary `json:"resources"`
	TotalPriceCents int64                     `json:"total_price_cents"`
	FromStatus      string                    `json:"from_status,omitempty"`
	ToStatus        string                    `json:"to_status"`
	NotifyCustomer  bool                      `json:"notify_customer"`
	OccurredAt      string                    `json:"occurred_at"`
}

type CustomerPayload struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// NewReservationEvent converts a domain event to its wire form.
func NewReservationEvent(ev booking.Event) ReservationEvent {
	resources := ev.Resources
	if resources == nil {
		resources = []booking.ResourceSummary{}
	}
	return ReservationEvent{
		EventID:       ev.ID.String(),
		Type:          string(ev.Type),
		ReservationID: ev.ReservationID,
		Customer: CustomerPayload{
			Name:  ev.Customer.Name,
			Email: ev.Customer.Email,
			Phone: ev.Customer.Phone,
		},
		StartDate:       ev.Window.StartDate.String(),
		EndDate:         ev.Window.EndDate.String(),
		StartTime:       ev.Window.StartTime.String(),
		EndTime:         ev.Window.EndTime.String(),
		Resources:       resources,
		TotalPriceCents: ev.TotalPriceCents,
		FromStatus:      string(ev.From),
		ToStatus:        string(ev.To),
		NotifyCustomer:  ev.NotifyCustomer,
		OccurredAt:      ev.OccurredAt.UTC().Format(time.RFC3339),
	}
}
