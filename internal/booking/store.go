package booking

import (
	"context"
	"time"

	"github.com/Soli-code/RezerwacjeV4-sub000/internal/model"
)

// ResourceCatalog reads resources and additional services.  Missing IDs
// are simply absent from the returned maps.
type ResourceCatalog interface {
	ResourcesByID(ctx context.Context, ids []uint64) (map[uint64]model.Resource, error)
	ServicesByID(ctx context.Context, ids []uint64) (map[uint64]model.Service, error)
}

// CustomerDirectory resolves a customer by e-mail, creating the record on
// first use.  Calling it twice with the same e-mail returns the same ID.
type CustomerDirectory interface {
	UpsertByEmail(ctx context.Context, c model.CustomerInfo) (uint64, error)
}

// Span is one active reservation line as seen by the availability index.
type Span struct {
	ReservationID uint64
	ResourceID    uint64
	Quantity      int
	Status        model.Status
	Window        model.TimeWindow
	CustomerName  string
}

// StatusChange is a compare-and-set status update.  When CheckOverlap is
// set the store re-checks, under its per-resource locks, that no other
// active reservation overlaps this one before applying the change.
type StatusChange struct {
	ReservationID uint64
	From          model.Status
	To            model.Status
	CheckOverlap  bool
	Entry         model.HistoryEntry
}

// WindowChange moves a reservation to a new window and re-prices its lines.
// The store applies it only while the reservation is still in
// ExpectedStatus and no other active reservation overlaps the new window.
type WindowChange struct {
	ReservationID   uint64
	ExpectedStatus  model.Status
	Window          model.TimeWindow
	BillableDays    int
	PromoApplied    bool
	Lines           []model.LineItem
	TotalPriceCents int64
	Entry           model.HistoryEntry
}

// ReservationStore persists reservations.  Reserve, Reschedule and
// UpdateStatus(CheckOverlap) must run their overlap check and their writes
// as one serializable unit per resource; that is what keeps two customers
// from holding the same unit on the same day.
type ReservationStore interface {
	// ActiveSpans returns active reservation lines for the given resources
	// whose window intersects [from, to].  A zero to means unbounded.
	// Results are ordered by resource then start date.
	ActiveSpans(ctx context.Context, resourceIDs []uint64, from, to model.Date) ([]Span, error)

	// Reserve atomically re-checks overlap, then inserts the reservation,
	// its lines, its service lines and the initial history entry.  It
	// returns ErrWindowTaken when the re-check fails.
	Reserve(ctx context.Context, res *model.Reservation, entry model.HistoryEntry) (uint64, error)

	// Reschedule applies a WindowChange.  It returns ErrWindowTaken or
	// ErrStaleStatus when the change cannot be applied.
	Reschedule(ctx context.Context, change WindowChange) error

	// Get loads a reservation with its lines.  It returns ErrNotFound.
	Get(ctx context.Context, id uint64) (*model.Reservation, error)

	// UpdateStatus applies a StatusChange and appends its history entry.
	// It returns ErrStaleStatus when the current status is not From and a
	// *WindowTakenError when the overlap re-check fails.
	UpdateStatus(ctx context.Context, change StatusChange) error

	// History returns the status log of a reservation, oldest first.  It
	// returns ErrNotFound for unknown reservations.
	History(ctx context.Context, id uint64) ([]model.HistoryEntry, error)

	// ListByStatus returns reservations in the given statuses ordered by
	// start date, at most limit rows.
	ListByStatus(ctx context.Context, statuses []model.Status, limit int) ([]model.Reservation, error)

	// ListRetired returns completed or cancelled reservations last updated
	// before the cutoff, oldest first, at most limit rows.
	ListRetired(ctx context.Context, before time.Time, limit int) ([]model.Reservation, error)
}

// Clock supplies the current time.  Tests pin it; production uses
// SystemClock in the shop's time zone.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in Location (UTC when nil).
type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now().UTC()
	}
	return time.Now().In(c.Location)
}
