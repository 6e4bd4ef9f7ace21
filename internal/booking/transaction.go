package booking

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Soli-code/RezerwacjeV4-sub000/internal/model"
)

// ResourceRequest asks for Quantity units of a resource.
type ResourceRequest struct {
	ResourceID uint64 `json:"resource_id"`
	Quantity   int    `json:"quantity"`
}

// ServiceRequest attaches an additional service.
type ServiceRequest struct {
	ServiceID uint64 `json:"service_id"`
	Quantity  int    `json:"quantity"`
}

// SubmitRequest is a customer's booking request.
type SubmitRequest struct {
	Customer  model.CustomerInfo `json:"customer"`
	Resources []ResourceRequest  `json:"resources"`
	Window    model.TimeWindow   `json:"window"`
	Services  []ServiceRequest   `json:"services"`
}

// QuoteRequest is a SubmitRequest without customer data.
type QuoteRequest struct {
	Resources []ResourceRequest `json:"resources"`
	Window    model.TimeWindow  `json:"window"`
	Services  []ServiceRequest  `json:"services"`
}

// MaxQuantity is the largest quantity one line or service may carry after
// repeated entries are merged.
const MaxQuantity = 100

func checkQuantity(kind string, id uint64, qty int) error {
	if qty < 1 {
		return invalidRequest("quantity for %s %d must be at least 1", kind, id)
	}
	if qty > MaxQuantity {
		return invalidRequest("quantity for %s %d must be at most %d", kind, id, MaxQuantity)
	}
	return nil
}

// mergeResources rejects empty requests and bad quantities and folds
// repeated resources into one entry, keeping first-seen order.
func mergeResources(reqs []ResourceRequest) ([]ResourceRequest, error) {
	if len(reqs) == 0 {
		return nil, invalidRequest("at least one resource is required")
	}
	pos := make(map[uint64]int, len(reqs))
	out := make([]ResourceRequest, 0, len(reqs))
	for _, r := range reqs {
		if r.ResourceID == 0 {
			return nil, invalidRequest("resource id is required")
		}
		if err := checkQuantity("resource", r.ResourceID, r.Quantity); err != nil {
			return nil, err
		}
		if i, ok := pos[r.ResourceID]; ok {
			out[i].Quantity += r.Quantity
			if err := checkQuantity("resource", r.ResourceID, out[i].Quantity); err != nil {
				return nil, err
			}
			continue
		}
		pos[r.ResourceID] = len(out)
		out = append(out, r)
	}
	return out, nil
}

func mergeServices(reqs []ServiceRequest) ([]ServiceRequest, error) {
	pos := make(map[uint64]int, len(reqs))
	out := make([]ServiceRequest, 0, len(reqs))
	for _, s := range reqs {
		if s.ServiceID == 0 {
			return nil, invalidRequest("service id is required")
		}
		if err := checkQuantity("service", s.ServiceID, s.Quantity); err != nil {
			return nil, err
		}
		if i, ok := pos[s.ServiceID]; ok {
			out[i].Quantity += s.Quantity
			if err := checkQuantity("service", s.ServiceID, out[i].Quantity); err != nil {
				return nil, err
			}
			continue
		}
		pos[s.ServiceID] = len(out)
		out = append(out, s)
	}
	return out, nil
}

// snapshot loads the requested catalog entries and captures their rates.
// Unknown or inactive entries make the request invalid.
func (e *Engine) snapshot(ctx context.Context, resReqs []ResourceRequest, svcReqs []ServiceRequest) ([]model.LineItem, []model.ServiceLine, error) {
	ids := make([]uint64, len(resReqs))
	for i, r := range resReqs {
		ids[i] = r.ResourceID
	}
	resources, err := e.catalog.ResourcesByID(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("load resources: %w", err)
	}
	lines := make([]model.LineItem, 0, len(resReqs))
	for _, r := range resReqs {
		res, ok := resources[r.ResourceID]
		if !ok {
			return nil, nil, invalidRequest("resource %d does not exist", r.ResourceID)
		}
		if !res.Active {
			return nil, nil, invalidRequest("resource %s is not available for rent", res.Name)
		}
		lines = append(lines, snapshotLine(res, r.Quantity))
	}

	svcLines := make([]model.ServiceLine, 0, len(svcReqs))
	if len(svcReqs) == 0 {
		return lines, svcLines, nil
	}
	svcIDs := make([]uint64, len(svcReqs))
	for i, s := range svcReqs {
		svcIDs[i] = s.ServiceID
	}
	services, err := e.catalog.ServicesByID(ctx, svcIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("load services: %w", err)
	}
	for _, s := range svcReqs {
		svc, ok := services[s.ServiceID]
		if !ok || !svc.Active {
			return nil, nil, invalidRequest("service %d is not offered", s.ServiceID)
		}
		svcLines = append(svcLines, snapshotService(svc, s.Quantity))
	}
	return lines, svcLines, nil
}

// Quote prices a request without checking availability or writing
// anything.
func (e *Engine) Quote(ctx context.Context, req QuoteRequest) (Quote, error) {
	resReqs, err := mergeResources(req.Resources)
	if err != nil {
		return Quote{}, err
	}
	svcReqs, err := mergeServices(req.Services)
	if err != nil {
		return Quote{}, err
	}
	if err := e.calendar.ValidateWindow(req.Window, e.clock.Now()); err != nil {
		return Quote{}, err
	}
	lines, svcLines, err := e.snapshot(ctx, resReqs, svcReqs)
	if err != nil {
		return Quote{}, err
	}
	return PriceLines(BillableDays(req.Window), lines, svcLines)
}

// Submit books every requested resource for the window or nothing.  On
// success the reservation is pending and its ID is returned.
//
// Validation and availability failures happen before any write.  When the
// store's locked re-check finds that a concurrent booking took the window
// first, the whole evaluation is repeated; once the retries are spent the
// call fails with ErrPersistenceConflict.
func (e *Engine) Submit(ctx context.Context, req SubmitRequest) (uint64, error) {
	customer := req.Customer.Normalized()
	if customer.Name == "" || customer.Email == "" {
		return 0, invalidRequest("customer name and e-mail are required")
	}
	resReqs, err := mergeResources(req.Resources)
	if err != nil {
		return 0, err
	}
	svcReqs, err := mergeServices(req.Services)
	if err != nil {
		return 0, err
	}
	if err := e.calendar.ValidateWindow(req.Window, e.clock.Now()); err != nil {
		return 0, err
	}

	var lost error
	for attempt := 0; attempt <= e.retries; attempt++ {
		id, err := e.submitOnce(ctx, customer, resReqs, svcReqs, req.Window)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, ErrWindowTaken) {
			return 0, err
		}
		lost = err
		e.log.Info("booking lost a race, re-evaluating",
			zap.String("customer", customer.Email),
			zap.String("window", req.Window.String()),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}
	return 0, fmt.Errorf("%w: %v", ErrPersistenceConflict, lost)
}

func (e *Engine) submitOnce(ctx context.Context, customer model.CustomerInfo, resReqs []ResourceRequest, svcReqs []ServiceRequest, w model.TimeWindow) (uint64, error) {
	lines, svcLines, err := e.snapshot(ctx, resReqs, svcReqs)
	if err != nil {
		return 0, err
	}
	for _, l := range lines {
		ok, err := e.index.IsAvailable(ctx, l.ResourceID, w)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, e.unavailable(ctx, l, w, 0)
		}
	}

	customerID, err := e.customers.UpsertByEmail(ctx, customer)
	if err != nil {
		return 0, fmt.Errorf("upsert customer: %w", err)
	}

	q, err := PriceLines(BillableDays(w), lines, svcLines)
	if err != nil {
		return 0, err
	}
	now := e.clock.Now()
	res := &model.Reservation{
		CustomerID:        customerID,
		Customer:          customer,
		Window:            w,
		Status:            model.StatusPending,
		BillableDays:      q.BillableDays,
		PromoApplied:      q.PromoApplied,
		TotalPriceCents:   q.TotalPriceCents,
		DepositTotalCents: q.DepositTotalCents,
		Lines:             q.Lines,
		Services:          q.Services,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	entry := model.HistoryEntry{
		To:      model.StatusPending,
		At:      now,
		Actor:   customer.Email,
		Comment: "reservation submitted",
	}
	id, err := e.store.Reserve(ctx, res, entry)
	if err != nil {
		if errors.Is(err, ErrWindowTaken) {
			return 0, err
		}
		return 0, fmt.Errorf("reserve: %w", err)
	}
	res.ID = id
	for i := range res.Lines {
		res.Lines[i].ReservationID = id
	}

	e.log.Info("reservation created",
		zap.Uint64("reservation_id", id),
		zap.Uint64("customer_id", customerID),
		zap.String("window", w.String()),
		zap.Int("billable_days", res.BillableDays),
		zap.Bool("promo", res.PromoApplied),
		zap.Int64("total_price_cents", res.TotalPriceCents),
	)
	e.publish(ctx, newEvent(EventReservationCreated, res, now))
	return id, nil
}

// unavailable builds the error for a line whose resource is booked during
// w.  exclude is a reservation whose own booking is ignored.
func (e *Engine) unavailable(ctx context.Context, l model.LineItem, w model.TimeWindow, exclude uint64) error {
	next, err := e.index.nextFree(ctx, l.ResourceID, w.StartDate, exclude)
	if err != nil {
		return err
	}
	fit, err := e.index.nextFit(ctx, l.ResourceID, w.StartDate, BillableDays(w), exclude)
	if err != nil {
		return err
	}
	return &UnavailableError{
		ResourceID:    l.ResourceID,
		ResourceName:  l.ResourceName,
		NextAvailable: next,
		NextFit:       fit,
	}
}

// Reschedule moves a pending or confirmed reservation to a new window.
// The window is validated like a new booking, the reservation's own
// holds are ignored during the availability check, and the lines are
// re-priced from their snapshots for the new length.
func (e *Engine) Reschedule(ctx context.Context, id uint64, w model.TimeWindow, actor string) (*model.Reservation, error) {
	if err := e.calendar.ValidateWindow(w, e.clock.Now()); err != nil {
		return nil, err
	}

	var lost error
	for attempt := 0; attempt <= e.retries; attempt++ {
		res, err := e.rescheduleOnce(ctx, id, w, actor)
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, ErrWindowTaken) && !errors.Is(err, ErrStaleStatus) {
			return nil, err
		}
		lost = err
		e.log.Info("reschedule lost a race, re-evaluating",
			zap.Uint64("reservation_id", id),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}
	return nil, fmt.Errorf("%w: %v", ErrPersistenceConflict, lost)
}

func (e *Engine) rescheduleOnce(ctx context.Context, id uint64, w model.TimeWindow, actor string) (*model.Reservation, error) {
	res, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.Status != model.StatusPending && res.Status != model.StatusConfirmed {
		return nil, &TransitionError{
			From:   res.Status,
			To:     res.Status,
			Reason: "only pending or confirmed reservations can be rescheduled",
		}
	}
	for _, l := range res.Lines {
		conflicts, err := e.index.conflicts(ctx, l.ResourceID, w, id)
		if err != nil {
			return nil, err
		}
		if len(conflicts) > 0 {
			return nil, e.unavailable(ctx, l, w, id)
		}
	}

	q, err := PriceLines(BillableDays(w), res.Lines, res.Services)
	if err != nil {
		return nil, err
	}
	now := e.clock.Now()
	old := res.Window
	change := WindowChange{
		ReservationID:   id,
		ExpectedStatus:  res.Status,
		Window:          w,
		BillableDays:    q.BillableDays,
		PromoApplied:    q.PromoApplied,
		Lines:           q.Lines,
		TotalPriceCents: q.TotalPriceCents,
		Entry: model.HistoryEntry{
			ReservationID: id,
			From:          res.Status,
			To:            res.Status,
			At:            now,
			Actor:         actor,
			Comment:       fmt.Sprintf("rescheduled from %s to %s", old, w),
		},
	}
	if err := e.store.Reschedule(ctx, change); err != nil {
		if errors.Is(err, ErrWindowTaken) || errors.Is(err, ErrStaleStatus) || errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("reschedule: %w", err)
	}

	res.Window = w
	res.BillableDays = q.BillableDays
	res.PromoApplied = q.PromoApplied
	res.Lines = q.Lines
	res.TotalPriceCents = q.TotalPriceCents
	res.DepositTotalCents = q.DepositTotalCents
	res.UpdatedAt = now

	e.log.Info("reservation rescheduled",
		zap.Uint64("reservation_id", id),
		zap.String("from", old.String()),
		zap.String("to", w.String()),
		zap.String("actor", actor),
	)
	e.publish(ctx, newEvent(EventRescheduled, res, now))
	return res, nil
}
