package model

import (
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state of a reservation.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusPickedUp  Status = "picked_up"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusArchived  Status = "archived"
)

// AllStatuses lists every status in pipeline order.
var AllStatuses = []Status{
	StatusPending, StatusConfirmed, StatusPickedUp,
	StatusCompleted, StatusCancelled, StatusArchived,
}

// ActiveStatuses are the statuses whose reservations hold equipment.
var ActiveStatuses = []Status{StatusPending, StatusConfirmed, StatusPickedUp}

// ParseStatus converts a raw string into a known Status.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllStatuses {
		if st == known {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown reservation status %q", s)
}

func (s Status) String() string { return string(s) }

// Active reports whether a reservation in this status blocks its
// resources for its window.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusConfirmed || s == StatusPickedUp
}

// Retired reports whether the retention process may archive a
// reservation in this status.
func (s Status) Retired() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Reservation records a customer's booking of one or more resources for a
// single window.  Prices are snapshots taken at booking time; later catalog
// changes never alter an existing reservation.
//
// Fields:
//  ID                – reservations.id
//  CustomerID        – reservations.customer_id
//  Customer          – contact data joined from customers
//  Window            – rental period
//  Status            – lifecycle state
//  BillableDays      – inclusive day count used for pricing
//  PromoApplied      – whether the long-rental tier was used
//  TotalPriceCents   – rental lines plus additional services
//  DepositTotalCents – sum of deposit snapshots × quantity (not in total)
type Reservation struct {
	ID                uint64        `json:"id"`
	CustomerID        uint64        `json:"customer_id"`
	Customer          CustomerInfo  `json:"customer"`
	Window            TimeWindow    `json:"window"`
	Status            Status        `json:"status"`
	BillableDays      int           `json:"billable_days"`
	PromoApplied      bool          `json:"promo_applied"`
	TotalPriceCents   int64         `json:"total_price_cents"`
	DepositTotalCents int64         `json:"deposit_total_cents"`
	Lines             []LineItem    `json:"lines"`
	Services          []ServiceLine `json:"services"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// ResourceIDs returns the resource IDs of the reservation's lines in line
// order.
func (r *Reservation) ResourceIDs() []uint64 {
	ids := make([]uint64, 0, len(r.Lines))
	for _, l := range r.Lines {
		ids = append(ids, l.ResourceID)
	}
	return ids
}

// LineItem is one resource entry of a reservation.  PricePerDayCents is
// the rate actually charged; StandardPriceCents and PromoPriceCents keep
// both catalog rates so the tier can be re-evaluated when the window is
// edited.
type LineItem struct {
	ReservationID      uint64 `json:"reservation_id"`
	ResourceID         uint64 `json:"resource_id"`
	ResourceName       string `json:"resource_name"`
	Quantity           int    `json:"quantity"`
	PricePerDayCents   int64  `json:"price_per_day_cents"`
	StandardPriceCents int64  `json:"standard_price_cents"`
	PromoPriceCents    *int64 `json:"promo_price_cents,omitempty"`
	DepositCents       int64  `json:"deposit_cents"`
}

// ServiceLine is an additional service attached to a reservation.
type ServiceLine struct {
	ReservationID  uint64 `json:"reservation_id"`
	ServiceID      uint64 `json:"service_id"`
	Name           string `json:"name"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

// HistoryEntry is one immutable row of a reservation's status log.  The
// first entry of every reservation has an empty From.
type HistoryEntry struct {
	ReservationID uint64    `json:"reservation_id"`
	From          Status    `json:"from,omitempty"`
	To            Status    `json:"to"`
	At            time.Time `json:"at"`
	Actor         string    `json:"actor"`
	Comment       string    `json:"comment,omitempty"`
	Override      bool      `json:"override"`
}
