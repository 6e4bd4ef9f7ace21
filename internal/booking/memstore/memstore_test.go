package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Soli-code/RezerwacjeV4-sub000/internal/booking"
	"github.com/Soli-code/RezerwacjeV4-sub000/internal/model"
)

func june(d int) model.Date { return model.NewDate(2024, time.June, d) }

func reservation(resourceID uint64, start, end int) *model.Reservation {
	return &model.Reservation{
		Status: model.StatusPending,
		Window: model.TimeWindow{StartDate: june(start), EndDate: june(end)},
		Lines:  []model.LineItem{{ResourceID: resourceID, Quantity: 1}},
	}
}

func TestReserveRejectsOverlap(t *testing.T) {
	ctx := context.Background()
	s := New()
	drill := s.AddResource(model.Resource{Name: "Drill-152", Active: true})

	id, err := s.Reserve(ctx, reservation(drill, 10, 12), model.HistoryEntry{To: model.StatusPending})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)

	_, err = s.Reserve(ctx, reservation(drill, 12, 14), model.HistoryEntry{})
	var taken *booking.WindowTakenError
	require.True(t, errors.As(err, &taken))
	assert.Equal(t, drill, taken.ResourceID)
	assert.ErrorIs(t, err, booking.ErrWindowTaken)

	_, err = s.Reserve(ctx, reservation(drill, 13, 14), model.HistoryEntry{})
	assert.NoError(t, err)

	stored, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, stored.Lines[0].ReservationID)
}

func TestUpdateStatusCompareAndSet(t *testing.T) {
	ctx := context.Background()
	s := New()
	drill := s.AddResource(model.Resource{Name: "Drill-152", Active: true})
	id, err := s.Reserve(ctx, reservation(drill, 10, 12), model.HistoryEntry{To: model.StatusPending})
	require.NoError(t, err)

	err = s.UpdateStatus(ctx, booking.StatusChange{ReservationID: id, From: model.StatusConfirmed, To: model.StatusPickedUp})
	assert.ErrorIs(t, err, booking.ErrStaleStatus)

	err = s.UpdateStatus(ctx, booking.StatusChange{ReservationID: 99, From: model.StatusPending, To: model.StatusConfirmed})
	assert.ErrorIs(t, err, booking.ErrNotFound)

	require.NoError(t, s.UpdateStatus(ctx, booking.StatusChange{
		ReservationID: id, From: model.StatusPending, To: model.StatusCancelled,
		Entry: model.HistoryEntry{ReservationID: id, From: model.StatusPending, To: model.StatusCancelled},
	}))

	// the window is free again, so reactivating the old one must now fail
	_, err = s.Reserve(ctx, reservation(drill, 11, 11), model.HistoryEntry{})
	require.NoError(t, err)
	err = s.UpdateStatus(ctx, booking.StatusChange{
		ReservationID: id, From: model.StatusCancelled, To: model.StatusPending, CheckOverlap: true,
	})
	assert.ErrorIs(t, err, booking.ErrWindowTaken)

	history, err := s.History(ctx, id)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := New()
	promo := int64(4000)
	r := reservation(1, 10, 10)
	r.Lines[0].PromoPriceCents = &promo
	id, err := s.Reserve(ctx, r, model.HistoryEntry{})
	require.NoError(t, err)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	*got.Lines[0].PromoPriceCents = 1
	got.Status = model.StatusArchived

	again, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(4000), *again.Lines[0].PromoPriceCents)
	assert.Equal(t, model.StatusPending, again.Status)
}

func TestListActiveAndUpsert(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.AddResource(model.Resource{Name: "Saw", Active: true})
	s.AddResource(model.Resource{Name: "Auger", Active: true})
	s.AddResource(model.Resource{Name: "Broken", Active: false})

	list, err := s.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Auger", list[0].Name)

	a, err := s.UpsertByEmail(ctx, model.CustomerInfo{Name: "Jan", Email: "JAN@example.com"})
	require.NoError(t, err)
	b, err := s.UpsertByEmail(ctx, model.CustomerInfo{Name: "Jan K.", Email: "jan@example.com "})
	require.NoError(t, err)
	assert.Equal(t, a, b)
	customers, _ := s.Counts()
	assert.Equal(t, 1, customers)
}
