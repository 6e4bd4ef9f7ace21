// Package memstore keeps the catalog, customers and reservations in memory.
// It backs APP_STORE=memory and the engine tests.  One RWMutex guards all
// state, so Reserve's overlap check and insert are a single critical
// section.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Soli-code/RezerwacjeV4-sub000/internal/booking"
	"github.com/Soli-code/RezerwacjeV4-sub000/internal/model"
)

// Store implements booking.ResourceCatalog, booking.CustomerDirectory and
// booking.ReservationStore.
type Store struct {
	mu sync.RWMutex

	resources map[uint64]model.Resource
	services  map[uint64]model.Service

	customers       map[uint64]model.Customer
	customerByEmail map[string]uint64

	reservations map[uint64]*model.Reservation
	history      map[uint64][]model.HistoryEntry

	nextResourceID    uint64
	nextServiceID     uint64
	nextCustomerID    uint64
	nextReservationID uint64
}

var (
	_ booking.ResourceCatalog   = (*Store)(nil)
	_ booking.CustomerDirectory = (*Store)(nil)
	_ booking.ReservationStore  = (*Store)(nil)
)

func New() *Store {
	return &Store{
		resources:       make(map[uint64]model.Resource),
		services:        make(map[uint64]model.Service),
		customers:       make(map[uint64]model.Customer),
		customerByEmail: make(map[string]uint64),
		reservations:    make(map[uint64]*model.Reservation),
		history:         make(map[uint64][]model.HistoryEntry),
	}
}

// AddResource stores r.  A zero ID is assigned automatically; the stored
// ID is returned.
func (s *Store) AddResource(r model.Resource) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == 0 {
		s.nextResourceID++
		r.ID = s.nextResourceID
	} else if r.ID > s.nextResourceID {
		s.nextResourceID = r.ID
	}
	s.resources[r.ID] = r
	return r.ID
}

// AddService stores svc the same way AddResource does.
func (s *Store) AddService(svc model.Service) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if svc.ID == 0 {
		s.nextServiceID++
		svc.ID = s.nextServiceID
	} else if svc.ID > s.nextServiceID {
		s.nextServiceID = svc.ID
	}
	s.services[svc.ID] = svc
	return svc.ID
}

// Counts reports how many customers and reservations are stored.
func (s *Store) Counts() (customers, reservations int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.customers), len(s.reservations)
}

func (s *Store) ResourcesByID(_ context.Context, ids []uint64) (map[uint64]model.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[uint64]model.Resource, len(ids))
	for _, id := range ids {
		if r, ok := s.resources[id]; ok {
			out[id] = r
		}
	}
	return out, nil
}

func (s *Store) ServicesByID(_ context.Context, ids []uint64) (map[uint64]model.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[uint64]model.Service, len(ids))
	for _, id := range ids {
		if svc, ok := s.services[id]; ok {
			out[id] = svc
		}
	}
	return out, nil
}

// ListActive returns the bookable resources ordered by name.
func (s *Store) ListActive(_ context.Context) ([]model.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Resource, 0, len(s.resources))
	for _, r := range s.resources {
		if r.Active {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// UpsertByEmail returns the customer with c.Email, creating it on first
// use.  Later calls refresh the name and phone.
func (s *Store) UpsertByEmail(_ context.Context, c model.CustomerInfo) (uint64, error) {
	c = c.Normalized()
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	if id, ok := s.customerByEmail[c.Email]; ok {
		cust := s.customers[id]
		cust.Name, cust.Phone, cust.UpdatedAt = c.Name, c.Phone, now
		s.customers[id] = cust
		return id, nil
	}
	s.nextCustomerID++
	id := s.nextCustomerID
	s.customers[id] = model.Customer{
		ID: id, Email: c.Email, Name: c.Name, Phone: c.Phone,
		CreatedAt: now, UpdatedAt: now,
	}
	s.customerByEmail[c.Email] = id
	return id, nil
}

func (s *Store) ActiveSpans(_ context.Context, resourceIDs []uint64, from, to model.Date) ([]booking.Span, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.spansLocked(resourceIDs, from, to, 0), nil
}

// spansLocked collects active lines of the given resources intersecting
// [from, to], skipping reservation exclude.  Callers hold mu.
func (s *Store) spansLocked(resourceIDs []uint64, from, to model.Date, exclude uint64) []booking.Span {
	wanted := make(map[uint64]bool, len(resourceIDs))
	for _, id := range resourceIDs {
		wanted[id] = true
	}
	var out []booking.Span
	for _, r := range s.reservations {
		if r.ID == exclude || !r.Status.Active() {
			continue
		}
		if r.Window.EndDate.Before(from) || (!to.IsZero() && r.Window.StartDate.After(to)) {
			continue
		}
		for _, l := range r.Lines {
			if !wanted[l.ResourceID] {
				continue
			}
			out = append(out, booking.Span{
				ReservationID: r.ID,
				ResourceID:    l.ResourceID,
				Quantity:      l.Quantity,
				Status:        r.Status,
				Window:        r.Window,
				CustomerName:  r.Customer.Name,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ResourceID != out[j].ResourceID {
			return out[i].ResourceID < out[j].ResourceID
		}
		if !out[i].Window.StartDate.Equal(out[j].Window.StartDate) {
			return out[i].Window.StartDate.Before(out[j].Window.StartDate)
		}
		return out[i].ReservationID < out[j].ReservationID
	})
	return out
}

// takenLocked returns the first resource of ids with an active reservation
// other than exclude overlapping w, or 0.  Callers hold mu.
func (s *Store) takenLocked(ids []uint64, w model.TimeWindow, exclude uint64) uint64 {
	for _, sp := range s.spansLocked(ids, w.StartDate, w.EndDate, exclude) {
		if sp.Window.Overlaps(w) {
			return sp.ResourceID
		}
	}
	return 0
}

func (s *Store) Reserve(_ context.Context, res *model.Reservation, entry model.HistoryEntry) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if taken := s.takenLocked(res.ResourceIDs(), res.Window, 0); taken != 0 {
		return 0, &booking.WindowTakenError{ResourceID: taken}
	}
	s.nextReservationID++
	id := s.nextReservationID
	stored := clone(res)
	stored.ID = id
	for i := range stored.Lines {
		stored.Lines[i].ReservationID = id
	}
	for i := range stored.Services {
		stored.Services[i].ReservationID = id
	}
	s.reservations[id] = stored
	entry.ReservationID = id
	s.history[id] = append(s.history[id], entry)
	return id, nil
}

func (s *Store) Reschedule(_ context.Context, change booking.WindowChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[change.ReservationID]
	if !ok {
		return booking.ErrNotFound
	}
	if r.Status != change.ExpectedStatus {
		return booking.ErrStaleStatus
	}
	if taken := s.takenLocked(r.ResourceIDs(), change.Window, r.ID); taken != 0 {
		return &booking.WindowTakenError{ResourceID: taken}
	}
	r.Window = change.Window
	r.BillableDays = change.BillableDays
	r.PromoApplied = change.PromoApplied
	r.TotalPriceCents = change.TotalPriceCents
	r.Lines = append([]model.LineItem(nil), change.Lines...)
	r.DepositTotalCents = 0
	for i := range r.Lines {
		r.Lines[i].ReservationID = r.ID
		r.DepositTotalCents += r.Lines[i].DepositCents * int64(r.Lines[i].Quantity)
	}
	r.UpdatedAt = change.Entry.At
	s.history[r.ID] = append(s.history[r.ID], change.Entry)
	return nil
}

func (s *Store) Get(_ context.Context, id uint64) (*model.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reservations[id]
	if !ok {
		return nil, booking.ErrNotFound
	}
	return clone(r), nil
}

func (s *Store) UpdateStatus(_ context.Context, change booking.StatusChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[change.ReservationID]
	if !ok {
		return booking.ErrNotFound
	}
	if r.Status != change.From {
		return booking.ErrStaleStatus
	}
	if change.CheckOverlap {
		if taken := s.takenLocked(r.ResourceIDs(), r.Window, r.ID); taken != 0 {
			return &booking.WindowTakenError{ResourceID: taken}
		}
	}
	r.Status = change.To
	r.UpdatedAt = change.Entry.At
	s.history[r.ID] = append(s.history[r.ID], change.Entry)
	return nil
}

func (s *Store) History(_ context.Context, id uint64) ([]model.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.reservations[id]; !ok {
		return nil, booking.ErrNotFound
	}
	return append([]model.HistoryEntry(nil), s.history[id]...), nil
}

func (s *Store) ListByStatus(_ context.Context, statuses []model.Status, limit int) ([]model.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wanted := make(map[model.Status]bool, len(statuses))
	for _, st := range statuses {
		wanted[st] = true
	}
	var out []model.Reservation
	for _, r := range s.reservations {
		if wanted[r.Status] {
			out = append(out, *clone(r))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Window.StartDate.Equal(out[j].Window.StartDate) {
			return out[i].Window.StartDate.Before(out[j].Window.StartDate)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) ListRetired(_ context.Context, before time.Time, limit int) ([]model.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Reservation
	for _, r := range s.reservations {
		if r.Status.Retired() && r.UpdatedAt.Before(before) {
			out = append(out, *clone(r))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.Before(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func clone(r *model.Reservation) *model.Reservation {
	c := *r
	c.Lines = make([]model.LineItem, len(r.Lines))
	for i, l := range r.Lines {
		if l.PromoPriceCents != nil {
			p := *l.PromoPriceCents
			l.PromoPriceCents = &p
		}
		c.Lines[i] = l
	}
	c.Services = append([]model.ServiceLine(nil), r.Services...)
	if c.Services == nil {
		c.Services = []model.ServiceLine{}
	}
	return &c
}
