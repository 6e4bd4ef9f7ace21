// Package booking implements the availability and booking conflict engine:
// business-hour validation, rental duration and pricing, availability
// queries, atomic multi-resource booking and the reservation status
// machine.  Persistence, customer lookup and notification delivery are
// reached through the interfaces in store.go.
package booking

import (
	"errors"
	"fmt"

	"github.com/Soli-code/RezerwacjeV4-sub000/internal/model"
)

// Error kinds surfaced to callers.  Handlers match them with errors.Is.
var (
	// ErrInvalidWindow is returned when a window fails the business
	// calendar or the end-after-start check.
	ErrInvalidWindow = errors.New("invalid rental window")

	// ErrInvalidRequest is returned for malformed booking requests: no
	// resources, bad quantities, unknown or inactive catalog entries.
	ErrInvalidRequest = errors.New("invalid booking request")

	// ErrResourceUnavailable is returned when a requested resource is
	// already booked for an overlapping window.  The concrete error is an
	// *UnavailableError carrying the next free date.
	ErrResourceUnavailable = errors.New("resource unavailable")

	// ErrInvalidTransition is returned when the status machine rejects a
	// change.  The concrete error is a *TransitionError.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrPersistenceConflict is returned when the atomic check-and-reserve
	// step keeps losing races after the bounded retry.
	ErrPersistenceConflict = errors.New("booking conflict, please retry")

	// ErrNotificationFailure wraps notifier errors.  It is logged, never
	// returned from a booking or transition.
	ErrNotificationFailure = errors.New("notification failed")

	// ErrNotFound is returned when a reservation does not exist.
	ErrNotFound = errors.New("reservation not found")
)

// Store contract errors.  Implementations of ReservationStore return these
// so the engine can decide whether to retry.
var (
	// ErrWindowTaken means the store's locked overlap re-check found a
	// conflicting active reservation, or the store could not obtain its
	// locks (deadlock, lock wait timeout).
	ErrWindowTaken = errors.New("window taken by a concurrent booking")

	// ErrStaleStatus means a compare-and-set status update found a status
	// other than the expected one.
	ErrStaleStatus = errors.New("reservation status changed concurrently")
)

// WindowTakenError is returned by stores when the overlap re-check fails
// for a known resource.
type WindowTakenError struct {
	ResourceID uint64
}

func (e *WindowTakenError) Error() string {
	return fmt.Sprintf("resource %d: %s", e.ResourceID, ErrWindowTaken)
}

func (e *WindowTakenError) Is(target error) bool { return target == ErrWindowTaken }

// UnavailableError names the conflicting resource.  NextAvailable is the
// resource's NextAvailableDate from the requested pickup day; NextFit is
// the earliest pickup day from which a rental of the requested length is
// free.
type UnavailableError struct {
	ResourceID    uint64
	ResourceName  string
	NextAvailable model.Date
	NextFit       model.Date
}

func (e *UnavailableError) Error() string {
	name := e.ResourceName
	if name == "" {
		name = fmt.Sprintf("#%d", e.ResourceID)
	}
	msg := fmt.Sprintf("resource %s is not available for the requested window; next available date is %s",
		name, e.NextAvailable)
	if !e.NextFit.IsZero() && !e.NextFit.Equal(e.NextAvailable) {
		msg += fmt.Sprintf("; a rental of the same length fits from %s", e.NextFit)
	}
	return msg
}

func (e *UnavailableError) Is(target error) bool { return target == ErrResourceUnavailable }

// TransitionError explains why a status change was refused.
type TransitionError struct {
	From   model.Status
	To     model.Status
	Reason string
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("cannot move reservation from %s to %s", e.From, e.To)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }

func invalidWindow(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidWindow, fmt.Sprintf(format, args...))
}

func invalidRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}
