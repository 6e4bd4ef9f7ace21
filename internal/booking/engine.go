package booking

import (
	"context"

	"go.uber.org/zap"

	"github.com/Soli-code/RezerwacjeV4-sub000/internal/model"
)

// DefaultConflictRetries is how many times a booking that lost the
// check-and-reserve race is re-evaluated before giving up.
const DefaultConflictRetries = 1

// Deps are the collaborators the engine reaches through interfaces.
// Notifier may be nil, in which case events are dropped.
type Deps struct {
	Catalog   ResourceCatalog
	Customers CustomerDirectory
	Store     ReservationStore
	Notifier  Notifier
}

// Options tune the engine.  Zero values select the defaults.
type Options struct {
	Clock           Clock
	Logger          *zap.Logger
	ConflictRetries int
	MaxRentalDays   int
}

// Engine ties the calendar, the availability index, the booking
// transaction and the status machine together.  It holds no locks of its
// own; serialization of concurrent bookings is the store's job.
type Engine struct {
	calendar  Calendar
	index     *AvailabilityIndex
	catalog   ResourceCatalog
	customers CustomerDirectory
	store     ReservationStore
	notifier  Notifier
	clock     Clock
	log       *zap.Logger
	retries   int
}

// New builds an Engine.  It panics if a required dependency is missing.
func New(d Deps, opt Options) *Engine {
	if d.Catalog == nil || d.Customers == nil || d.Store == nil {
		panic("nil dependency passed to booking.New")
	}
	e := &Engine{
		calendar:  Calendar{MaxRentalDays: opt.MaxRentalDays},
		index:     NewAvailabilityIndex(d.Store),
		catalog:   d.Catalog,
		customers: d.Customers,
		store:     d.Store,
		notifier:  d.Notifier,
		clock:     opt.Clock,
		log:       opt.Logger,
		retries:   opt.ConflictRetries,
	}
	if e.notifier == nil {
		e.notifier = discardNotifier
	}
	if e.clock == nil {
		e.clock = SystemClock{}
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}
	if e.retries <= 0 {
		e.retries = DefaultConflictRetries
	}
	return e
}

// Calendar returns the opening-hour rules used for validation.
func (e *Engine) Calendar() Calendar { return e.calendar }

// Availability returns the index used for availability queries.
func (e *Engine) Availability() *AvailabilityIndex { return e.index }

// Get loads a reservation.
func (e *Engine) Get(ctx context.Context, id uint64) (*model.Reservation, error) {
	return e.store.Get(ctx, id)
}
