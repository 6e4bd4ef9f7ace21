package booking_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/Soli-code/RezerwacjeV4-sub000/internal/booking"
	"github.com/Soli-code/RezerwacjeV4-sub000/internal/booking/memstore"
	"github.com/Soli-code/RezerwacjeV4-sub000/internal/model"
)

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []booking.Event
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, ev booking.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return n.err
}

func (n *recordingNotifier) Events() []booking.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]booking.Event(nil), n.events...)
}

func day(m time.Month, d int) model.Date { return model.NewDate(2024, m, d) }

func window(start model.Date, startHour int, end model.Date, endHour int) model.TimeWindow {
	return model.TimeWindow{
		StartDate: start,
		StartTime: model.NewTimeOfDay(startHour, 0),
		EndDate:   end,
		EndTime:   model.NewTimeOfDay(endHour, 0),
	}
}

func int64p(v int64) *int64 { return &v }

type EngineTestSuite struct {
	suite.Suite
	ctx      context.Context
	store    *memstore.Store
	clock    *fixedClock
	notifier *recordingNotifier
	engine   *booking.Engine

	drill    uint64
	saw      uint64
	mixer    uint64
	retired  uint64
	delivery uint64
}

func (s *EngineTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memstore.New()
	s.clock = &fixedClock{now: time.Date(2024, time.May, 1, 10, 0, 0, 0, time.UTC)}
	s.notifier = &recordingNotifier{}

	s.drill = s.store.AddResource(model.Resource{
		Name: "Drill-152", PricePerDayCents: 5000, PromoPricePerDayCents: int64p(4000),
		DepositCents: 20000, Active: true,
	})
	s.saw = s.store.AddResource(model.Resource{
		Name: "Saw-7", PricePerDayCents: 3000, DepositCents: 10000, Active: true,
	})
	s.mixer = s.store.AddResource(model.Resource{
		Name: "Mixer-3", PricePerDayCents: 7000, PromoPricePerDayCents: int64p(6000), Active: true,
	})
	s.retired = s.store.AddResource(model.Resource{
		Name: "Old-Compactor", PricePerDayCents: 9000, Active: false,
	})
	s.delivery = s.store.AddService(model.Service{Name: "Delivery", UnitPriceCents: 2500, Active: true})

	s.engine = booking.New(booking.Deps{
		Catalog:   s.store,
		Customers: s.store,
		Store:     s.store,
		Notifier:  s.notifier,
	}, booking.Options{Clock: s.clock})
}

func (s *EngineTestSuite) submit(email string, w model.TimeWindow, resources ...uint64) (uint64, error) {
	req := booking.SubmitRequest{
		Customer: model.CustomerInfo{Name: "Customer " + email, Email: email},
		Window:   w,
	}
	for _, id := range resources {
		req.Resources = append(req.Resources, booking.ResourceRequest{ResourceID: id, Quantity: 1})
	}
	return s.engine.Submit(s.ctx, req)
}

func (s *EngineTestSuite) TestDrillConflictReportsNextAvailableDate() {
	_, err := s.submit("first@example.com", window(day(time.June, 10), 9, day(time.June, 12), 15), s.drill)
	s.Require().NoError(err)

	_, err = s.submit("second@example.com", window(day(time.June, 11), 9, day(time.June, 13), 15), s.drill)
	s.Require().Error(err)
	s.True(errors.Is(err, booking.ErrResourceUnavailable))

	var unavailable *booking.UnavailableError
	s.Require().True(errors.As(err, &unavailable))
	s.Equal(s.drill, unavailable.ResourceID)
	s.Equal("Drill-152", unavailable.ResourceName)
	s.Equal("2024-06-13", unavailable.NextAvailable.String())
	s.Equal("2024-06-13", unavailable.NextFit.String())

	customers, reservations := s.store.Counts()
	s.Equal(1, customers)
	s.Equal(1, reservations)
}

func (s *EngineTestSuite) TestConflictHintIsFirstFreeDayNotFirstFit() {
	_, err := s.submit("first@example.com", window(day(time.June, 10), 9, day(time.June, 12), 15), s.drill)
	s.Require().NoError(err)
	_, err = s.submit("second@example.com", window(day(time.June, 14), 9, day(time.June, 20), 15), s.drill)
	s.Require().NoError(err)

	_, err = s.submit("third@example.com", window(day(time.June, 11), 9, day(time.June, 13), 15), s.drill)
	var unavailable *booking.UnavailableError
	s.Require().True(errors.As(err, &unavailable))

	next, err := s.engine.Availability().NextAvailableDate(s.ctx, s.drill, day(time.June, 11))
	s.Require().NoError(err)
	s.Equal(next, unavailable.NextAvailable)
	s.Equal("2024-06-13", unavailable.NextAvailable.String())
	s.Equal("2024-06-21", unavailable.NextFit.String())
	s.Contains(unavailable.Error(), "next available date is 2024-06-13")
	s.Contains(unavailable.Error(), "fits from 2024-06-21")
	s.NotContains(unavailable.Error(), "booked until")
}

func (s *EngineTestSuite) TestHugeQuantityIsRejected() {
	w := window(day(time.June, 3), 8, day(time.June, 5), 16)
	_, err := s.engine.Quote(s.ctx, booking.QuoteRequest{
		Resources: []booking.ResourceRequest{{ResourceID: s.drill, Quantity: 1 << 60}},
		Window:    w,
	})
	s.True(errors.Is(err, booking.ErrInvalidRequest))

	_, err = s.engine.Submit(s.ctx, booking.SubmitRequest{
		Customer:  model.CustomerInfo{Name: "Greedy", Email: "greedy@example.com"},
		Resources: []booking.ResourceRequest{{ResourceID: s.drill, Quantity: booking.MaxQuantity + 1}},
		Window:    w,
	})
	s.True(errors.Is(err, booking.ErrInvalidRequest))

	q, err := s.engine.Quote(s.ctx, booking.QuoteRequest{
		Resources: []booking.ResourceRequest{{ResourceID: s.drill, Quantity: booking.MaxQuantity}},
		Window:    w,
	})
	s.Require().NoError(err)
	s.Equal(int64(5000*booking.MaxQuantity*3), q.TotalPriceCents)

	_, reservations := s.store.Counts()
	s.Zero(reservations)
}

func (s *EngineTestSuite) TestOverlongWindowIsRejected() {
	centuries := model.TimeWindow{
		StartDate: day(time.June, 3), StartTime: model.NewTimeOfDay(9, 0),
		EndDate: model.NewDate(2524, time.June, 3), EndTime: model.NewTimeOfDay(9, 0),
	}
	_, err := s.submit("forever@example.com", centuries, s.drill)
	s.True(errors.Is(err, booking.ErrInvalidWindow))

	_, reservations := s.store.Counts()
	s.Zero(reservations)
}

func (s *EngineTestSuite) TestPickupEarlierTodayIsRejected() {
	// the suite clock is 2024-05-01 10:00
	_, err := s.submit("early@example.com", window(day(time.May, 1), 8, day(time.May, 2), 12), s.drill)
	s.True(errors.Is(err, booking.ErrInvalidWindow))

	_, err = s.submit("late@example.com", window(day(time.May, 1), 11, day(time.May, 2), 12), s.drill)
	s.NoError(err)
}

func (s *EngineTestSuite) TestWeekLongRentalUsesPromoPricing() {
	w := window(day(time.June, 1), 8, day(time.June, 7), 16)
	id, err := s.engine.Submit(s.ctx, booking.SubmitRequest{
		Customer: model.CustomerInfo{Name: "Ann", Email: "ann@example.com"},
		Window:   w,
		Resources: []booking.ResourceRequest{
			{ResourceID: s.drill, Quantity: 1},
			{ResourceID: s.saw, Quantity: 2},
		},
		Services: []booking.ServiceRequest{{ServiceID: s.delivery, Quantity: 1}},
	})
	s.Require().NoError(err)

	res, err := s.engine.Get(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(7, res.BillableDays)
	s.True(res.PromoApplied)
	s.Equal(model.StatusPending, res.Status)
	s.Require().Len(res.Lines, 2)
	s.Equal(int64(4000), res.Lines[0].PricePerDayCents)
	s.Equal(int64(3000), res.Lines[1].PricePerDayCents)
	s.Equal(int64(4000*7+3000*2*7+2500), res.TotalPriceCents)
	s.Equal(int64(20000+10000*2), res.DepositTotalCents)
}

func (s *EngineTestSuite) TestShortRentalUsesStandardPricing() {
	id, err := s.submit("bob@example.com", window(day(time.June, 3), 8, day(time.June, 5), 16), s.drill)
	s.Require().NoError(err)

	res, err := s.engine.Get(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(3, res.BillableDays)
	s.False(res.PromoApplied)
	s.Equal(int64(5000), res.Lines[0].PricePerDayCents)
	s.Equal(int64(5000*3), res.TotalPriceCents)
}

func (s *EngineTestSuite) TestFailFastLeavesNoState() {
	_, err := s.submit("first@example.com", window(day(time.June, 10), 9, day(time.June, 12), 15), s.mixer)
	s.Require().NoError(err)
	eventsBefore := len(s.notifier.Events())

	w := window(day(time.June, 11), 9, day(time.June, 11), 15)
	_, err = s.submit("second@example.com", w, s.saw, s.mixer, s.drill)
	s.Require().Error(err)
	var unavailable *booking.UnavailableError
	s.Require().True(errors.As(err, &unavailable))
	s.Equal(s.mixer, unavailable.ResourceID)

	customers, reservations := s.store.Counts()
	s.Equal(1, customers)
	s.Equal(1, reservations)
	s.Len(s.notifier.Events(), eventsBefore)

	free, err := s.engine.Availability().IsAvailable(s.ctx, s.saw, w)
	s.Require().NoError(err)
	s.True(free)
}

func (s *EngineTestSuite) TestInvalidRequests() {
	w := window(day(time.June, 10), 9, day(time.June, 11), 9)
	cases := map[string]booking.SubmitRequest{
		"no resources": {
			Customer: model.CustomerInfo{Name: "A", Email: "a@example.com"}, Window: w,
		},
		"zero quantity": {
			Customer: model.CustomerInfo{Name: "A", Email: "a@example.com"}, Window: w,
			Resources: []booking.ResourceRequest{{ResourceID: s.drill, Quantity: 0}},
		},
		"unknown resource": {
			Customer: model.CustomerInfo{Name: "A", Email: "a@example.com"}, Window: w,
			Resources: []booking.ResourceRequest{{ResourceID: 999, Quantity: 1}},
		},
		"inactive resource": {
			Customer: model.CustomerInfo{Name: "A", Email: "a@example.com"}, Window: w,
			Resources: []booking.ResourceRequest{{ResourceID: s.retired, Quantity: 1}},
		},
		"unknown service": {
			Customer: model.CustomerInfo{Name: "A", Email: "a@example.com"}, Window: w,
			Resources: []booking.ResourceRequest{{ResourceID: s.drill, Quantity: 1}},
			Services:  []booking.ServiceRequest{{ServiceID: 42, Quantity: 1}},
		},
		"missing e-mail": {
			Customer: model.CustomerInfo{Name: "A"}, Window: w,
			Resources: []booking.ResourceRequest{{ResourceID: s.drill, Quantity: 1}},
		},
	}
	for name, req := range cases {
		_, err := s.engine.Submit(s.ctx, req)
		s.True(errors.Is(err, booking.ErrInvalidRequest), "%s: got %v", name, err)
	}

	_, err := s.submit("a@example.com", window(sunday(), 9, sunday().AddDays(1), 9), s.drill)
	s.True(errors.Is(err, booking.ErrInvalidWindow))

	customers, reservations := s.store.Counts()
	s.Zero(customers)
	s.Zero(reservations)
}

func sunday() model.Date { return day(time.June, 9) }

func (s *EngineTestSuite) TestDuplicateResourcesAreMerged() {
	id, err := s.engine.Submit(s.ctx, booking.SubmitRequest{
		Customer: model.CustomerInfo{Name: "Cy", Email: "cy@example.com"},
		Window:   window(day(time.June, 10), 9, day(time.June, 10), 12),
		Resources: []booking.ResourceRequest{
			{ResourceID: s.saw, Quantity: 1},
			{ResourceID: s.saw, Quantity: 2},
		},
	})
	s.Require().NoError(err)
	res, err := s.engine.Get(s.ctx, id)
	s.Require().NoError(err)
	s.Require().Len(res.Lines, 1)
	s.Equal(3, res.Lines[0].Quantity)
}

func (s *EngineTestSuite) TestSameCustomerIsUpsertedOnce() {
	_, err := s.submit("Repeat@Example.com", window(day(time.June, 10), 9, day(time.June, 10), 12), s.drill)
	s.Require().NoError(err)
	_, err = s.submit("repeat@example.com", window(day(time.June, 12), 9, day(time.June, 12), 12), s.drill)
	s.Require().NoError(err)

	customers, reservations := s.store.Counts()
	s.Equal(1, customers)
	s.Equal(2, reservations)
}

func (s *EngineTestSuite) TestConcurrentSubmissionsNeverDoubleBook() {
	const workers = 16
	w := window(day(time.June, 17), 9, day(time.June, 19), 15)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		failures  []error
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			email := string(rune('a'+i)) + "@example.com"
			_, err := s.submit(email, w, s.drill)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			failures = append(failures, err)
		}(i)
	}
	close(start)
	wg.Wait()

	s.Equal(1, successes)
	s.Len(failures, workers-1)
	for _, err := range failures {
		s.True(errors.Is(err, booking.ErrResourceUnavailable) || errors.Is(err, booking.ErrPersistenceConflict),
			"unexpected error: %v", err)
	}

	spans, err := s.store.ActiveSpans(s.ctx, []uint64{s.drill}, w.StartDate, w.EndDate)
	s.Require().NoError(err)
	s.Len(spans, 1)
}

func (s *EngineTestSuite) TestNotificationFailureDoesNotRollBack() {
	s.notifier.err = errors.New("broker down")
	id, err := s.submit("n@example.com", window(day(time.June, 10), 9, day(time.June, 10), 12), s.drill)
	s.Require().NoError(err)
	s.NotZero(id)

	res, err := s.engine.Get(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(model.StatusPending, res.Status)

	_, err = s.engine.Confirm(s.ctx, id, "staff", "")
	s.Require().NoError(err)
}

func (s *EngineTestSuite) TestCreatedEventCarriesSummary() {
	id, err := s.submit("ev@example.com", window(day(time.June, 10), 9, day(time.June, 11), 12), s.drill, s.saw)
	s.Require().NoError(err)

	events := s.notifier.Events()
	s.Require().Len(events, 1)
	ev := events[0]
	s.Equal(booking.EventReservationCreated, ev.Type)
	s.Equal(id, ev.ReservationID)
	s.Equal("ev@example.com", ev.Customer.Email)
	s.Len(ev.Resources, 2)
	s.Equal("Drill-152", ev.Resources[0].Name)
	s.Equal(int64(5000*2+3000*2), ev.TotalPriceCents)
	s.Equal(model.StatusPending, ev.To)
}

func (s *EngineTestSuite) TestPendingCannotSkipToCompleted() {
	id, err := s.submit("p@example.com", window(day(time.June, 10), 9, day(time.June, 10), 12), s.drill)
	s.Require().NoError(err)

	_, err = s.engine.Complete(s.ctx, id, "staff", "")
	s.Require().Error(err)
	s.True(errors.Is(err, booking.ErrInvalidTransition))
	var te *booking.TransitionError
	s.Require().True(errors.As(err, &te))
	s.Equal(model.StatusPending, te.From)
	s.Equal(model.StatusCompleted, te.To)

	res, err := s.engine.Get(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(model.StatusPending, res.Status)
}

func (s *EngineTestSuite) TestFullPipelineIsRecorded() {
	id, err := s.submit("flow@example.com", window(day(time.June, 10), 9, day(time.June, 10), 12), s.drill)
	s.Require().NoError(err)

	steps := []func(context.Context, uint64, string, string) (*model.Reservation, error){
		s.engine.Confirm, s.engine.PickUp, s.engine.Complete, s.engine.Archive,
	}
	for _, step := range steps {
		s.clock.Advance(time.Hour)
		_, err := step(s.ctx, id, "staff@example.com", "ok")
		s.Require().NoError(err)
	}

	history, err := s.engine.History(s.ctx, id)
	s.Require().NoError(err)
	s.Require().Len(history, 5)
	s.Equal(model.Status(""), history[0].From)
	s.Equal(model.StatusPending, history[0].To)
	s.Equal(model.StatusArchived, history[4].To)
	for i := 1; i < len(history); i++ {
		s.Equal(history[i-1].To, history[i].From)
		s.True(history[i].At.After(history[i-1].At))
		s.False(history[i].Override)
	}

	events := s.notifier.Events()
	s.Require().Len(events, 5)
	s.True(events[1].NotifyCustomer)
	s.Equal(model.StatusPending, events[1].From)
	s.Equal(model.StatusConfirmed, events[1].To)
	s.False(events[2].NotifyCustomer)

	_, err = s.engine.Override(s.ctx, id, model.StatusCompleted, "admin", "undo")
	s.True(errors.Is(err, booking.ErrInvalidTransition))
}

func (s *EngineTestSuite) TestCancelReleasesTheWindow() {
	w := window(day(time.June, 10), 9, day(time.June, 12), 15)
	id, err := s.submit("c@example.com", w, s.drill)
	s.Require().NoError(err)

	_, err = s.engine.Cancel(s.ctx, id, "staff", "customer called")
	s.Require().NoError(err)

	_, err = s.submit("d@example.com", w, s.drill)
	s.NoError(err)
}

func (s *EngineTestSuite) TestOverrideReactivationRechecksOverlap() {
	w := window(day(time.June, 10), 9, day(time.June, 12), 15)
	first, err := s.submit("c@example.com", w, s.drill)
	s.Require().NoError(err)
	_, err = s.engine.Cancel(s.ctx, first, "staff", "")
	s.Require().NoError(err)

	res, err := s.engine.Override(s.ctx, first, model.StatusPending, "admin", "cancelled by mistake")
	s.Require().NoError(err)
	s.Equal(model.StatusPending, res.Status)
	history, err := s.engine.History(s.ctx, first)
	s.Require().NoError(err)
	s.True(history[len(history)-1].Override)

	_, err = s.engine.Cancel(s.ctx, first, "staff", "")
	s.Require().NoError(err)
	_, err = s.submit("d@example.com", window(day(time.June, 12), 9, day(time.June, 13), 9), s.drill)
	s.Require().NoError(err)

	_, err = s.engine.Override(s.ctx, first, model.StatusConfirmed, "admin", "")
	s.Require().Error(err)
	var unavailable *booking.UnavailableError
	s.Require().True(errors.As(err, &unavailable))
	s.Equal(s.drill, unavailable.ResourceID)
	s.Equal("2024-06-10", unavailable.NextAvailable.String())
	s.Equal("2024-06-14", unavailable.NextFit.String())
}

func (s *EngineTestSuite) TestOverrideRules() {
	id, err := s.submit("o@example.com", window(day(time.June, 10), 9, day(time.June, 10), 12), s.drill)
	s.Require().NoError(err)

	_, err = s.engine.Override(s.ctx, id, model.StatusArchived, "admin", "")
	s.True(errors.Is(err, booking.ErrInvalidTransition))

	_, err = s.engine.Override(s.ctx, id, model.StatusPending, "admin", "")
	s.True(errors.Is(err, booking.ErrInvalidTransition))

	res, err := s.engine.Override(s.ctx, id, model.StatusPickedUp, "admin", "walk-in pickup")
	s.Require().NoError(err)
	s.Equal(model.StatusPickedUp, res.Status)

	_, err = s.engine.Override(s.ctx, id, model.StatusConfirmed, "admin", "not picked up yet")
	s.Require().NoError(err)

	_, err = s.engine.Override(s.ctx, id, model.Status("lost"), "admin", "")
	s.True(errors.Is(err, booking.ErrInvalidRequest))

	_, err = s.engine.Transition(s.ctx, 999, model.StatusConfirmed, "admin", "")
	s.True(errors.Is(err, booking.ErrNotFound))
}

func (s *EngineTestSuite) TestRescheduleMovesAndRepricesReservation() {
	id, err := s.submit("r@example.com", window(day(time.June, 10), 9, day(time.June, 11), 15), s.drill)
	s.Require().NoError(err)

	res, err := s.engine.Reschedule(s.ctx, id, window(day(time.June, 11), 9, day(time.June, 18), 12), "staff")
	s.Require().NoError(err)
	s.Equal(8, res.BillableDays)
	s.True(res.PromoApplied)
	s.Equal(int64(4000*8), res.TotalPriceCents)

	stored, err := s.engine.Get(s.ctx, id)
	s.Require().NoError(err)
	s.Equal("2024-06-11", stored.Window.StartDate.String())
	s.Equal(int64(4000), stored.Lines[0].PricePerDayCents)

	history, err := s.engine.History(s.ctx, id)
	s.Require().NoError(err)
	s.Require().Len(history, 2)
	s.Equal(model.StatusPending, history[1].From)
	s.Equal(model.StatusPending, history[1].To)
	s.Contains(history[1].Comment, "rescheduled")

	events := s.notifier.Events()
	s.Equal(booking.EventRescheduled, events[len(events)-1].Type)
}

func (s *EngineTestSuite) TestRescheduleRejectsConflictsAndLateStatuses() {
	other, err := s.submit("x@example.com", window(day(time.June, 20), 9, day(time.June, 21), 15), s.drill)
	s.Require().NoError(err)
	id, err := s.submit("r@example.com", window(day(time.June, 10), 9, day(time.June, 11), 15), s.drill)
	s.Require().NoError(err)

	_, err = s.engine.Reschedule(s.ctx, id, window(day(time.June, 19), 9, day(time.June, 20), 9), "staff")
	var unavailable *booking.UnavailableError
	s.Require().True(errors.As(err, &unavailable))
	s.Equal("2024-06-19", unavailable.NextAvailable.String())
	s.Equal("2024-06-22", unavailable.NextFit.String())

	_, err = s.engine.Reschedule(s.ctx, id, window(day(time.June, 11), 9, day(time.June, 12), 9), "staff")
	s.Require().NoError(err)

	_, err = s.engine.Confirm(s.ctx, other, "staff", "")
	s.Require().NoError(err)
	_, err = s.engine.PickUp(s.ctx, other, "staff", "")
	s.Require().NoError(err)
	_, err = s.engine.Reschedule(s.ctx, other, window(day(time.June, 24), 9, day(time.June, 25), 9), "staff")
	s.True(errors.Is(err, booking.ErrInvalidTransition))
}

func (s *EngineTestSuite) TestQuoteDoesNotPersist() {
	q, err := s.engine.Quote(s.ctx, booking.QuoteRequest{
		Window:    window(day(time.June, 1), 8, day(time.June, 7), 16),
		Resources: []booking.ResourceRequest{{ResourceID: s.mixer, Quantity: 2}},
		Services:  []booking.ServiceRequest{{ServiceID: s.delivery, Quantity: 1}},
	})
	s.Require().NoError(err)
	s.Equal(7, q.BillableDays)
	s.True(q.PromoApplied)
	s.Equal(int64(6000*2*7+2500), q.TotalPriceCents)

	customers, reservations := s.store.Counts()
	s.Zero(customers)
	s.Zero(reservations)
}

func (s *EngineTestSuite) TestReservationsInRangeListsEveryResource() {
	id, err := s.submit("cal@example.com", window(day(time.June, 10), 9, day(time.June, 12), 15), s.drill)
	s.Require().NoError(err)
	cancelled, err := s.submit("cal2@example.com", window(day(time.June, 14), 9, day(time.June, 14), 15), s.drill)
	s.Require().NoError(err)
	_, err = s.engine.Cancel(s.ctx, cancelled, "staff", "")
	s.Require().NoError(err)

	got, err := s.engine.Availability().ReservationsInRange(s.ctx,
		[]uint64{s.drill, s.saw, s.drill}, day(time.June, 1), day(time.June, 30))
	s.Require().NoError(err)
	s.Len(got, 2)
	s.Require().Len(got[s.drill], 1)
	s.Equal(id, got[s.drill][0].ReservationID)
	s.Equal("Customer cal@example.com", got[s.drill][0].CustomerName)
	s.NotNil(got[s.saw])
	s.Empty(got[s.saw])

	_, err = s.engine.Availability().ReservationsInRange(s.ctx, []uint64{s.drill}, day(time.June, 30), day(time.June, 1))
	s.True(errors.Is(err, booking.ErrInvalidRequest))
}

func (s *EngineTestSuite) TestNextAvailableDateSkipsBackToBackBookings() {
	_, err := s.submit("a@example.com", window(day(time.June, 10), 9, day(time.June, 11), 15), s.saw)
	s.Require().NoError(err)
	_, err = s.submit("b@example.com", window(day(time.June, 12), 9, day(time.June, 13), 15), s.saw)
	s.Require().NoError(err)
	_, err = s.submit("c@example.com", window(day(time.June, 17), 9, day(time.June, 17), 15), s.saw)
	s.Require().NoError(err)

	next, err := s.engine.Availability().NextAvailableDate(s.ctx, s.saw, day(time.June, 10))
	s.Require().NoError(err)
	s.Equal("2024-06-14", next.String())

	next, err = s.engine.Availability().NextAvailableDate(s.ctx, s.saw, day(time.June, 5))
	s.Require().NoError(err)
	s.Equal("2024-06-05", next.String())
}

func (s *EngineTestSuite) TestArchiveRetired() {
	done, err := s.submit("a@example.com", window(day(time.June, 10), 9, day(time.June, 10), 12), s.drill)
	s.Require().NoError(err)
	dropped, err := s.submit("b@example.com", window(day(time.June, 11), 9, day(time.June, 11), 12), s.drill)
	s.Require().NoError(err)
	active, err := s.submit("c@example.com", window(day(time.June, 12), 9, day(time.June, 12), 12), s.drill)
	s.Require().NoError(err)

	for _, step := range []func(context.Context, uint64, string, string) (*model.Reservation, error){
		s.engine.Confirm, s.engine.PickUp, s.engine.Complete,
	} {
		_, err := step(s.ctx, done, "staff", "")
		s.Require().NoError(err)
	}
	_, err = s.engine.Cancel(s.ctx, dropped, "staff", "")
	s.Require().NoError(err)

	n, err := s.engine.ArchiveRetired(s.ctx, s.clock.Now(), "retention")
	s.Require().NoError(err)
	s.Zero(n)

	s.clock.Advance(48 * time.Hour)
	n, err = s.engine.ArchiveRetired(s.ctx, s.clock.Now().Add(-24*time.Hour), "retention")
	s.Require().NoError(err)
	s.Equal(2, n)

	for id, want := range map[uint64]model.Status{
		done: model.StatusArchived, dropped: model.StatusArchived, active: model.StatusPending,
	} {
		res, err := s.engine.Get(s.ctx, id)
		s.Require().NoError(err)
		s.Equal(want, res.Status)
	}
}

func (s *EngineTestSuite) TestPipelineGroupsByStatus() {
	a, err := s.submit("a@example.com", window(day(time.June, 10), 9, day(time.June, 10), 12), s.drill)
	s.Require().NoError(err)
	_, err = s.submit("b@example.com", window(day(time.June, 11), 9, day(time.June, 11), 12), s.drill)
	s.Require().NoError(err)
	_, err = s.engine.Confirm(s.ctx, a, "staff", "")
	s.Require().NoError(err)

	board, err := s.engine.Pipeline(s.ctx, nil, 0)
	s.Require().NoError(err)
	s.Len(board, 3)
	s.Len(board[model.StatusPending], 1)
	s.Len(board[model.StatusConfirmed], 1)
	s.Empty(board[model.StatusPickedUp])
}

func TestEngineTestSuite(t *testing.T) {
	suite.Run(t, new(EngineTestSuite))
}
