// Package repository defines error values shared across the data access
// layer. Sentinel errors let handlers map failure scenarios onto HTTP
// responses with errors.Is, while the typed errors carry the details a
// user-facing message needs (which seats, how many hours).
package repository

import (
	"errors"
	"fmt"
	"time"
)

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own, e.g. an operator reading another operator's
// bus. Handlers translate this into HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an operation cannot proceed because of
// dependent state, such as replacing a seat layout that already has
// bookings against it. Handlers translate this into HTTP 409.
var ErrConflict = errors.New("conflict")

// ErrBusNotFound is returned when a bus-trip lookup yields no rows.
var ErrBusNotFound = errors.New("bus not found")

// ErrBookingNotFound is returned when a booking lookup yields no rows.
var ErrBookingNotFound = errors.New("booking not found")

// CancellationWindowError rejects a cancellation attempted inside the
// non-cancellable window before departure. HoursLeft is the computed gap to
// departure and MinHours the policy threshold; both feed the user-facing
// message so the customer knows why the cancellation was refused.
type CancellationWindowError struct {
	HoursLeft float64
	MinHours  float64
}

func (e *CancellationWindowError) Error() string {
	return fmt.Sprintf("departure is %.1f hours away; cancellations close %.0f hours before departure",
		e.HoursLeft, e.MinHours)
}

// CheckCancelWindow enforces the cancellation policy: the departure must be
// strictly more than minHours in the future. A trip departing at exactly the
// threshold is already inside the window and the cancellation is refused.
func CheckCancelWindow(departureAt, now time.Time, minHours float64) error {
	hoursLeft := departureAt.Sub(now).Hours()
	if hoursLeft <= minHours {
		return &CancellationWindowError{HoursLeft: hoursLeft, MinHours: minHours}
	}
	return nil
}
