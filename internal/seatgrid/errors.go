package seatgrid

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingLayout is returned when a bus trip has no layout configuration.
// The reconstructor refuses to fabricate a default grid because a fallback
// grid could show seats at coordinates the operator never intended; callers
// must log the defect and treat the bus as unbookable.
var ErrMissingLayout = errors.New("bus has no seat layout configuration")

// LayoutValidationError reports a geometrically invalid layout.  Violations
// holds every broken constraint, not just the first, so the operator UI can
// render a complete checklist.
type LayoutValidationError struct {
	Violations []string
}

func (e *LayoutValidationError) Error() string {
	return "invalid seat layout: " + strings.Join(e.Violations, "; ")
}

// PlacementError rejects a single designer action (place, move or toggle).
// When the action collides with an existing seat, Conflict identifies the
// occupying head cell so the UI can highlight it.
type PlacementError struct {
	Deck     Deck
	Row      int
	Col      int
	Reason   string
	Conflict *Seat // occupying seat when the rejection is a collision, else nil
}

func (e *PlacementError) Error() string {
	at := cell{deck: e.Deck, row: e.Row, col: e.Col}
	if e.Conflict != nil {
		return fmt.Sprintf("cannot place at %s: %s (occupied by seat at %s)",
			at, e.Reason, cell{deck: e.Conflict.Deck, row: e.Conflict.Row, col: e.Conflict.Col})
	}
	return fmt.Sprintf("cannot place at %s: %s", at, e.Reason)
}

// SeatConflictError is returned when one or more requested seats are already
// booked at reservation time.  The whole batch is rejected; SeatNumbers
// carries exactly the seats that were unavailable.
type SeatConflictError struct {
	SeatNumbers []string
}

func (e *SeatConflictError) Error() string {
	return "seats already booked: " + strings.Join(e.SeatNumbers, ", ")
}

// SeatNotFoundError is returned when a requested seat number does not exist
// on the referenced bus trip, typically because of a stale client cache.
// The whole batch is rejected.
type SeatNotFoundError struct {
	SeatNumbers []string
}

func (e *SeatNotFoundError) Error() string {
	return "seats not found on bus: " + strings.Join(e.SeatNumbers, ", ")
}
