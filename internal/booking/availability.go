package booking

import (
	"context"
	"fmt"
	"sort"

	"github.com/Soli-code/RezerwacjeV4-sub000/internal/model"
)

// ReservationSummary is one calendar entry for a resource.
type ReservationSummary struct {
	ReservationID uint64           `json:"reservation_id"`
	Status        model.Status     `json:"status"`
	Window        model.TimeWindow `json:"window"`
	Quantity      int              `json:"quantity"`
	CustomerName  string           `json:"customer_name"`
}

// AvailabilityIndex answers overlap questions from the store's active
// spans.  Two windows overlap when they share a calendar day; only
// pending, confirmed and picked-up reservations are considered.
type AvailabilityIndex struct {
	store ReservationStore
}

func NewAvailabilityIndex(store ReservationStore) *AvailabilityIndex {
	return &AvailabilityIndex{store: store}
}

// IsAvailable reports whether no active reservation of resourceID overlaps w.
func (a *AvailabilityIndex) IsAvailable(ctx context.Context, resourceID uint64, w model.TimeWindow) (bool, error) {
	conflicts, err := a.conflicts(ctx, resourceID, w, 0)
	if err != nil {
		return false, err
	}
	return len(conflicts) == 0, nil
}

// conflicts returns the active spans of resourceID overlapping w, ignoring
// the reservation exclude (0 ignores nothing).
func (a *AvailabilityIndex) conflicts(ctx context.Context, resourceID uint64, w model.TimeWindow, exclude uint64) ([]Span, error) {
	spans, err := a.store.ActiveSpans(ctx, []uint64{resourceID}, w.StartDate, w.EndDate)
	if err != nil {
		return nil, fmt.Errorf("load spans for resource %d: %w", resourceID, err)
	}
	var out []Span
	for _, s := range spans {
		if s.ResourceID != resourceID || s.ReservationID == exclude || !s.Status.Active() {
			continue
		}
		if s.Window.Overlaps(w) {
			out = append(out, s)
		}
	}
	return out, nil
}

// NextAvailableDate returns the earliest date on or after from that no
// active reservation of resourceID covers.
func (a *AvailabilityIndex) NextAvailableDate(ctx context.Context, resourceID uint64, from model.Date) (model.Date, error) {
	return a.nextFree(ctx, resourceID, from, 0)
}

func (a *AvailabilityIndex) nextFree(ctx context.Context, resourceID uint64, from model.Date, exclude uint64) (model.Date, error) {
	return a.nextFit(ctx, resourceID, from, 1, exclude)
}

// nextFit returns the earliest start date on or after from at which
// resourceID stays free for days consecutive days.
func (a *AvailabilityIndex) nextFit(ctx context.Context, resourceID uint64, from model.Date, days int, exclude uint64) (model.Date, error) {
	if days < 1 {
		days = 1
	}
	spans, err := a.store.ActiveSpans(ctx, []uint64{resourceID}, from, model.Date{})
	if err != nil {
		return model.Date{}, fmt.Errorf("load spans for resource %d: %w", resourceID, err)
	}
	sort.Slice(spans, func(i, j int) bool {
		return spans[i].Window.StartDate.Before(spans[j].Window.StartDate)
	})
	next := from
	for _, s := range spans {
		if s.ResourceID != resourceID || s.ReservationID == exclude || !s.Status.Active() {
			continue
		}
		if s.Window.EndDate.Before(next) {
			continue
		}
		if s.Window.StartDate.After(next.AddDays(days - 1)) {
			break
		}
		next = s.Window.EndDate.AddDays(1)
	}
	return next, nil
}

// ReservationsInRange groups the active reservations intersecting
// [from, to] by resource.  Every requested resource is present in the
// result, with an empty list when nothing is booked.
func (a *AvailabilityIndex) ReservationsInRange(ctx context.Context, resourceIDs []uint64, from, to model.Date) (map[uint64][]ReservationSummary, error) {
	if from.IsZero() || to.IsZero() || to.Before(from) {
		return nil, invalidRequest("range %s..%s is not valid", from, to)
	}
	out := make(map[uint64][]ReservationSummary, len(resourceIDs))
	ids := make([]uint64, 0, len(resourceIDs))
	for _, id := range resourceIDs {
		if _, seen := out[id]; seen {
			continue
		}
		out[id] = []ReservationSummary{}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return out, nil
	}
	spans, err := a.store.ActiveSpans(ctx, ids, from, to)
	if err != nil {
		return nil, fmt.Errorf("load spans: %w", err)
	}
	rng := model.TimeWindow{StartDate: from, EndDate: to}
	for _, s := range spans {
		list, requested := out[s.ResourceID]
		if !requested || !s.Status.Active() || !s.Window.Overlaps(rng) {
			continue
		}
		out[s.ResourceID] = append(list, ReservationSummary{
			ReservationID: s.ReservationID,
			Status:        s.Status,
			Window:        s.Window,
			Quantity:      s.Quantity,
			CustomerName:  s.CustomerName,
		})
	}
	for id := range out {
		list := out[id]
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Window.StartDate.Before(list[j].Window.StartDate)
		})
	}
	return out, nil
}
