package seatgrid

import (
	"fmt"
	"sort"
)

// SeatStatus couples a seat with its occupancy state.  BookedBy and
// BookingID are meaningful only while IsBooked is true.
type SeatStatus struct {
	Seat
	IsBooked  bool   `json:"is_booked"`
	BookedBy  uint64 `json:"booked_by,omitempty"`
	BookingID uint64 `json:"booking_id,omitempty"`
}

// Manifest is the in-memory reservation state machine for one bus trip.  It
// enforces the two occupancy invariants the storage layer must also uphold:
// reservations are all-or-nothing, and available + booked == total after
// every mutation.  Handlers build a Manifest from the persisted seat rows to
// pre-validate a request and to compute precise conflict reports; the
// database's conditional update remains the commit authority.
type Manifest struct {
	seats     map[string]*SeatStatus
	total     int
	available int
}

// NewManifest builds a manifest from persisted seat state.  Duplicate seat
// numbers are a data-integrity defect and rejected outright.
func NewManifest(seats []SeatStatus) (*Manifest, error) {
	m := &Manifest{seats: make(map[string]*SeatStatus, len(seats))}
	for i := range seats {
		s := seats[i]
		if _, ok := m.seats[s.SeatNumber]; ok {
			return nil, fmt.Errorf("duplicate seat number %s", s.SeatNumber)
		}
		m.seats[s.SeatNumber] = &s
		m.total++
		if !s.IsBooked {
			m.available++
		}
	}
	return m, nil
}

// TotalSeats returns the number of seats on the trip.
func (m *Manifest) TotalSeats() int { return m.total }

// AvailableSeats returns the number of seats not currently booked.
func (m *Manifest) AvailableSeats() int { return m.available }

// Seat returns the current state of a seat by number.
func (m *Manifest) Seat(number string) (SeatStatus, bool) {
	s, ok := m.seats[number]
	if !ok {
		return SeatStatus{}, false
	}
	return *s, true
}

// Reserve transitions every requested seat from available to booked, or none
// of them.  Unknown seat numbers fail the batch with a SeatNotFoundError;
// already-booked seats fail it with a SeatConflictError.  Both errors list
// exactly the offending seats so the customer sees which ones to re-pick.
func (m *Manifest) Reserve(seatNumbers []string, userID, bookingID uint64) error {
	seatNumbers = dedupe(seatNumbers)
	var missing, conflicted []string
	for _, n := range seatNumbers {
		s, ok := m.seats[n]
		switch {
		case !ok:
			missing = append(missing, n)
		case s.IsBooked:
			conflicted = append(conflicted, n)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return &SeatNotFoundError{SeatNumbers: missing}
	}
	if len(conflicted) > 0 {
		sort.Strings(conflicted)
		return &SeatConflictError{SeatNumbers: conflicted}
	}
	for _, n := range seatNumbers {
		s := m.seats[n]
		s.IsBooked = true
		s.BookedBy = userID
		s.BookingID = bookingID
		m.available--
	}
	return nil
}

// Release returns booked seats to the pool and reports how many actually
// flipped.  Releasing a seat that is already available is a no-op rather
// than an error, so a cancellation interrupted halfway can be retried
// without double-incrementing the availability counter.  Unknown seat
// numbers still fail, since a cancellation only ever names seats recorded
// on the booking.
func (m *Manifest) Release(seatNumbers []string) (int, error) {
	seatNumbers = dedupe(seatNumbers)
	var missing []string
	for _, n := range seatNumbers {
		if _, ok := m.seats[n]; !ok {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return 0, &SeatNotFoundError{SeatNumbers: missing}
	}
	released := 0
	for _, n := range seatNumbers {
		s := m.seats[n]
		if !s.IsBooked {
			continue
		}
		s.IsBooked = false
		s.BookedBy = 0
		s.BookingID = 0
		m.available++
		released++
	}
	return released, nil
}

// dedupe drops repeated seat numbers while keeping first-seen order, so a
// request naming the same seat twice counts it once.
func dedupe(seatNumbers []string) []string {
	seen := make(map[string]struct{}, len(seatNumbers))
	out := make([]string, 0, len(seatNumbers))
	for _, n := range seatNumbers {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
