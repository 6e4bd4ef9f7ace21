package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Soli-code/RezerwacjeV4-sub000/internal/model"
)

// transitionRule describes an allowed forward move.
type transitionRule struct {
	notifyCustomer bool
}

var transitions = map[model.Status]map[model.Status]transitionRule{
	model.StatusPending: {
		model.StatusConfirmed: {notifyCustomer: true},
		model.StatusCancelled: {},
	},
	model.StatusConfirmed: {
		model.StatusPickedUp:  {},
		model.StatusCancelled: {},
	},
	model.StatusPickedUp: {
		model.StatusCompleted: {},
	},
	model.StatusCompleted: {
		model.StatusArchived: {},
	},
	model.StatusCancelled: {
		model.StatusArchived: {},
	},
}

// CanTransition reports whether the regular pipeline allows from -> to.
func CanTransition(from, to model.Status) bool {
	_, ok := transitions[from][to]
	return ok
}

// AllowedTransitions lists the regular next statuses of from in pipeline
// order.
func AllowedTransitions(from model.Status) []model.Status {
	out := []model.Status{}
	for _, s := range model.AllStatuses {
		if CanTransition(from, s) {
			out = append(out, s)
		}
	}
	return out
}

func rejectTransition(from, to model.Status) error {
	allowed := AllowedTransitions(from)
	reason := "no further status changes are allowed"
	if len(allowed) > 0 {
		names := make([]string, len(allowed))
		for i, s := range allowed {
			names[i] = string(s)
		}
		reason = "allowed next statuses: " + strings.Join(names, ", ")
	}
	return &TransitionError{From: from, To: to, Reason: reason}
}

// Transition moves reservation id to status to along the regular
// pipeline and records who did it.  A concurrent change of the same
// reservation is re-read once before the call fails with
// ErrPersistenceConflict.
func (e *Engine) Transition(ctx context.Context, id uint64, to model.Status, actor, comment string) (*model.Reservation, error) {
	return e.changeStatus(ctx, id, to, actor, comment, false)
}

// Override lets staff move a reservation to any status, backwards
// included.  Archived reservations are final and archived is reachable
// only from completed or cancelled.  Reactivating a reservation re-checks
// its resources so the window cannot be double-booked.
func (e *Engine) Override(ctx context.Context, id uint64, to model.Status, actor, comment string) (*model.Reservation, error) {
	return e.changeStatus(ctx, id, to, actor, comment, true)
}

func (e *Engine) Confirm(ctx context.Context, id uint64, actor, comment string) (*model.Reservation, error) {
	return e.Transition(ctx, id, model.StatusConfirmed, actor, comment)
}

func (e *Engine) PickUp(ctx context.Context, id uint64, actor, comment string) (*model.Reservation, error) {
	return e.Transition(ctx, id, model.StatusPickedUp, actor, comment)
}

func (e *Engine) Complete(ctx context.Context, id uint64, actor, comment string) (*model.Reservation, error) {
	return e.Transition(ctx, id, model.StatusCompleted, actor, comment)
}

func (e *Engine) Cancel(ctx context.Context, id uint64, actor, comment string) (*model.Reservation, error) {
	return e.Transition(ctx, id, model.StatusCancelled, actor, comment)
}

func (e *Engine) Archive(ctx context.Context, id uint64, actor, comment string) (*model.Reservation, error) {
	return e.Transition(ctx, id, model.StatusArchived, actor, comment)
}

func (e *Engine) changeStatus(ctx context.Context, id uint64, to model.Status, actor, comment string, override bool) (*model.Reservation, error) {
	if _, err := model.ParseStatus(string(to)); err != nil {
		return nil, invalidRequest("%v", err)
	}
	var lost error
	for attempt := 0; attempt <= e.retries; attempt++ {
		res, err := e.changeStatusOnce(ctx, id, to, actor, comment, override)
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, ErrStaleStatus) && !errors.Is(err, ErrWindowTaken) {
			return nil, err
		}
		lost = err
		e.log.Info("status change lost a race, re-reading",
			zap.Uint64("reservation_id", id),
			zap.String("to", string(to)),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}
	return nil, fmt.Errorf("%w: %v", ErrPersistenceConflict, lost)
}

func (e *Engine) changeStatusOnce(ctx context.Context, id uint64, to model.Status, actor, comment string, override bool) (*model.Reservation, error) {
	res, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	from := res.Status

	rule, regular := transitions[from][to]
	switch {
	case !override && !regular:
		return nil, rejectTransition(from, to)
	case override && from == model.StatusArchived:
		return nil, &TransitionError{From: from, To: to, Reason: "archived reservations are final"}
	case override && to == model.StatusArchived && !from.Retired():
		return nil, &TransitionError{From: from, To: to, Reason: "only completed or cancelled reservations can be archived"}
	case override && from == to:
		return nil, &TransitionError{From: from, To: to, Reason: "reservation already has this status"}
	}

	now := e.clock.Now()
	change := StatusChange{
		ReservationID: id,
		From:          from,
		To:            to,
		CheckOverlap:  !from.Active() && to.Active(),
		Entry: model.HistoryEntry{
			ReservationID: id,
			From:          from,
			To:            to,
			At:            now,
			Actor:         actor,
			Comment:       comment,
			Override:      override,
		},
	}
	if err := e.store.UpdateStatus(ctx, change); err != nil {
		var taken *WindowTakenError
		if errors.As(err, &taken) && taken.ResourceID != 0 {
			for _, l := range res.Lines {
				if l.ResourceID == taken.ResourceID {
					return nil, e.unavailable(ctx, l, res.Window, id)
				}
			}
		}
		if errors.Is(err, ErrStaleStatus) || errors.Is(err, ErrWindowTaken) || errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update status: %w", err)
	}

	res.Status = to
	res.UpdatedAt = now
	e.log.Info("reservation status changed",
		zap.Uint64("reservation_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("actor", actor),
		zap.Bool("override", change.Entry.Override),
	)
	ev := newEvent(EventStatusChanged, res, now)
	ev.From = from
	ev.NotifyCustomer = rule.notifyCustomer || (change.Entry.Override && to == model.StatusConfirmed)
	e.publish(ctx, ev)
	return res, nil
}

// History returns the status log of a reservation, oldest first.
func (e *Engine) History(ctx context.Context, id uint64) ([]model.HistoryEntry, error) {
	return e.store.History(ctx, id)
}

// Pipeline groups reservations by status for the staff board.  Every
// requested status is a key of the result.
func (e *Engine) Pipeline(ctx context.Context, statuses []model.Status, limit int) (map[model.Status][]model.Reservation, error) {
	if len(statuses) == 0 {
		statuses = model.ActiveStatuses
	}
	list, err := e.store.ListByStatus(ctx, statuses, limit)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	out := make(map[model.Status][]model.Reservation, len(statuses))
	for _, s := range statuses {
		out[s] = []model.Reservation{}
	}
	for _, r := range list {
		if _, ok := out[r.Status]; ok {
			out[r.Status] = append(out[r.Status], r)
		}
	}
	return out, nil
}

// archiveBatchSize bounds one ListRetired page.
const archiveBatchSize = 100

// ArchiveRetired moves completed and cancelled reservations last touched
// before cutoff to archived.  It returns how many were archived.
// Reservations changed concurrently are skipped.
func (e *Engine) ArchiveRetired(ctx context.Context, cutoff time.Time, actor string) (int, error) {
	archived := 0
	for {
		if err := ctx.Err(); err != nil {
			return archived, err
		}
		batch, err := e.store.ListRetired(ctx, cutoff, archiveBatchSize)
		if err != nil {
			return archived, fmt.Errorf("list retired: %w", err)
		}
		moved := 0
		for _, r := range batch {
			_, err := e.changeStatusOnce(ctx, r.ID, model.StatusArchived, actor, "retention", false)
			switch {
			case err == nil:
				moved++
			case errors.Is(err, ErrStaleStatus), errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrNotFound):
				e.log.Debug("skipping reservation during retention",
					zap.Uint64("reservation_id", r.ID), zap.Error(err))
			default:
				return archived, err
			}
		}
		archived += moved
		if len(batch) < archiveBatchSize || moved == 0 {
			break
		}
	}
	e.log.Info("retention finished",
		zap.Time("cutoff", cutoff),
		zap.Int("archived", archived),
	)
	return archived, nil
}
