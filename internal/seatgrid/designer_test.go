package seatgrid

import (
	"errors"
	"reflect"
	"testing"
)

func mustPlace(t *testing.T, d *Designer, deck Deck, row, col int, st SeatType) {
	t.Helper()
	if err := d.PlaceSeat(deck, row, col, st); err != nil {
		t.Fatalf("PlaceSeat(%s,%d,%d,%s): %v", deck, row, col, st, err)
	}
}

func TestPlaceSeatRejectsOutOfBounds(t *testing.T) {
	d := NewDesigner(LayoutConfig{Rows: 3, ColsLeft: 2, ColsRight: 1})
	cases := []struct {
		name     string
		row, col int
	}{
		{"negative row", -1, 0},
		{"row beyond grid", 3, 0},
		{"negative col", 0, -1},
		{"col beyond both blocks", 0, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := d.PlaceSeat(DeckLower, tc.row, tc.col, TypeSeater)
			var perr *PlacementError
			if !errors.As(err, &perr) {
				t.Fatalf("want PlacementError, got %v", err)
			}
		})
	}
}

func TestPlaceSeatRejectsUpperDeckWhenAbsent(t *testing.T) {
	d := NewDesigner(LayoutConfig{Rows: 2, ColsLeft: 1, ColsRight: 1})
	err := d.PlaceSeat(DeckUpper, 0, 0, TypeSeater)
	var perr *PlacementError
	if !errors.As(err, &perr) {
		t.Fatalf("want PlacementError, got %v", err)
	}
}

func TestSleeperSpanBlocksSecondRow(t *testing.T) {
	d := NewDesigner(LayoutConfig{Rows: 3, ColsLeft: 2, ColsRight: 2})
	mustPlace(t, d, DeckLower, 0, 0, TypeSleeper)

	// Any seat landing on the consumed cell must be rejected with a pointer
	// to the occupying sleeper, never silently placed.
	err := d.PlaceSeat(DeckLower, 1, 0, TypeSeater)
	var perr *PlacementError
	if !errors.As(err, &perr) {
		t.Fatalf("want PlacementError, got %v", err)
	}
	if perr.Conflict == nil || perr.Conflict.Row != 0 || perr.Conflict.Col != 0 {
		t.Fatalf("conflict should name the sleeper head at (0,0), got %+v", perr.Conflict)
	}

	// A sleeper whose span would land on the consumed cell is also rejected.
	if err := d.PlaceSeat(DeckLower, 2, 0, TypeSeater); err != nil {
		t.Fatalf("cell below the span should be free: %v", err)
	}
}

func TestSleeperCannotStartAtLastRow(t *testing.T) {
	d := NewDesigner(LayoutConfig{Rows: 2, ColsLeft: 1, ColsRight: 1})
	err := d.PlaceSeat(DeckLower, 1, 0, TypeSleeper)
	var perr *PlacementError
	if !errors.As(err, &perr) {
		t.Fatalf("want PlacementError, got %v", err)
	}
}

func TestPlaceReplacesHeadOnSameCell(t *testing.T) {
	d := NewDesigner(LayoutConfig{Rows: 3, ColsLeft: 1, ColsRight: 1})
	mustPlace(t, d, DeckLower, 0, 0, TypeSeater)
	mustPlace(t, d, DeckLower, 0, 0, TypeSleeper) // upgrade in place
	seats, err := d.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if len(seats) != 1 || seats[0].Type != TypeSleeper {
		t.Fatalf("want a single sleeper, got %+v", seats)
	}
}

func TestMoveSeatIsAtomic(t *testing.T) {
	d := NewDesigner(LayoutConfig{Rows: 3, ColsLeft: 2, ColsRight: 2})
	mustPlace(t, d, DeckLower, 0, 0, TypeSleeper)
	mustPlace(t, d, DeckLower, 0, 1, TypeSeater)

	// Destination occupied by another seat: source must stay put.
	if err := d.MoveSeat(DeckLower, 0, 1, DeckLower, 0, 0); err == nil {
		t.Fatal("move onto an occupied cell should fail")
	}
	// Destination out of bounds: source must stay put.
	if err := d.MoveSeat(DeckLower, 0, 1, DeckLower, 5, 0); err == nil {
		t.Fatal("move outside the grid should fail")
	}
	seats, err := d.Finalize()
	if err != nil {
		t.Fatalf("Finalize after failed moves: %v", err)
	}
	if len(seats) != 2 {
		t.Fatalf("both seats should survive failed moves, got %d", len(seats))
	}
}

func TestMoveSeatWithinOwnSpan(t *testing.T) {
	d := NewDesigner(LayoutConfig{Rows: 4, ColsLeft: 1, ColsRight: 1})
	mustPlace(t, d, DeckLower, 0, 0, TypeSleeper)
	// Shifting a sleeper down one row lands its head on its own old tail.
	if err := d.MoveSeat(DeckLower, 0, 0, DeckLower, 1, 0); err != nil {
		t.Fatalf("move within own span: %v", err)
	}
	seats, err := d.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if len(seats) != 1 || seats[0].Row != 1 {
		t.Fatalf("want sleeper head at row 1, got %+v", seats)
	}
}

func TestToggleMatchesExplicitCalls(t *testing.T) {
	cfg := LayoutConfig{Rows: 3, ColsLeft: 2, ColsRight: 2}

	toggled := NewDesigner(cfg)
	if st, err := toggled.ToggleSeat(DeckLower, 0, 0); err != nil || st != TypeSeater {
		t.Fatalf("first toggle: st=%q err=%v", st, err)
	}
	if st, err := toggled.ToggleSeat(DeckLower, 0, 0); err != nil || st != TypeSleeper {
		t.Fatalf("second toggle: st=%q err=%v", st, err)
	}

	explicit := NewDesigner(cfg)
	mustPlace(t, explicit, DeckLower, 0, 0, TypeSleeper)

	a, err := toggled.Finalize()
	if err != nil {
		t.Fatalf("Finalize toggled: %v", err)
	}
	b, err := explicit.Finalize()
	if err != nil {
		t.Fatalf("Finalize explicit: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("toggle state diverged from explicit placement:\n%+v\n%+v", a, b)
	}

	// Third toggle empties the cell again.
	if st, err := toggled.ToggleSeat(DeckLower, 0, 0); err != nil || st != "" {
		t.Fatalf("third toggle: st=%q err=%v", st, err)
	}
	empty, err := toggled.Finalize()
	if err != nil {
		t.Fatalf("Finalize emptied: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("grid should be empty after full cycle, got %+v", empty)
	}
}

func TestToggleSkipsSleeperWhenSpanBlocked(t *testing.T) {
	d := NewDesigner(LayoutConfig{Rows: 2, ColsLeft: 1, ColsRight: 1})
	// Last row: the seater→sleeper step is illegal, so the cycle goes
	// straight back to empty.
	if _, err := d.ToggleSeat(DeckLower, 1, 0); err != nil {
		t.Fatalf("toggle to seater: %v", err)
	}
	if st, err := d.ToggleSeat(DeckLower, 1, 0); err != nil || st != "" {
		t.Fatalf("toggle should skip sleeper and empty the cell: st=%q err=%v", st, err)
	}
}

func TestRemoveSeatFreesSpan(t *testing.T) {
	d := NewDesigner(LayoutConfig{Rows: 3, ColsLeft: 1, ColsRight: 1})
	mustPlace(t, d, DeckLower, 0, 0, TypeSleeper)

	// Removing via the tail is rejected with a pointer to the head.
	err := d.RemoveSeat(DeckLower, 1, 0)
	var perr *PlacementError
	if !errors.As(err, &perr) || perr.Conflict == nil {
		t.Fatalf("tail removal should name the head, got %v", err)
	}

	if err := d.RemoveSeat(DeckLower, 0, 0); err != nil {
		t.Fatalf("RemoveSeat head: %v", err)
	}
	// The freed span accepts a new seat immediately.
	mustPlace(t, d, DeckLower, 1, 0, TypeSeater)
}

func TestFinalizeNumberingOrder(t *testing.T) {
	// Lower deck before upper, left block before right, row-major within a
	// block. Booking logic keys on these numbers, so the order is a contract.
	cfg := LayoutConfig{Rows: 2, ColsLeft: 2, ColsRight: 1, UpperDeck: true}
	d := NewDesigner(cfg)
	mustPlace(t, d, DeckUpper, 0, 0, TypeSeater)  // numbered last
	mustPlace(t, d, DeckLower, 1, 2, TypeSeater)  // right block
	mustPlace(t, d, DeckLower, 0, 1, TypeSeater)  // left block, row 0
	mustPlace(t, d, DeckLower, 1, 0, TypeSeater)  // left block, row 1
	mustPlace(t, d, DeckLower, 0, 2, TypeSeater)  // right block, row 0

	seats, err := d.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	want := []Seat{
		{SeatNumber: "S1", Type: TypeSeater, Deck: DeckLower, Row: 0, Col: 1},
		{SeatNumber: "S2", Type: TypeSeater, Deck: DeckLower, Row: 1, Col: 0},
		{SeatNumber: "S3", Type: TypeSeater, Deck: DeckLower, Row: 0, Col: 2},
		{SeatNumber: "S4", Type: TypeSeater, Deck: DeckLower, Row: 1, Col: 2},
		{SeatNumber: "S5", Type: TypeSeater, Deck: DeckUpper, Row: 0, Col: 0},
	}
	if !reflect.DeepEqual(seats, want) {
		t.Fatalf("numbering order mismatch:\ngot  %+v\nwant %+v", seats, want)
	}
}

func TestFinalizeIsReproducible(t *testing.T) {
	build := func() []Seat {
		d := NewDesigner(LayoutConfig{Rows: 4, ColsLeft: 2, ColsRight: 2, UpperDeck: true})
		mustPlace(t, d, DeckLower, 0, 0, TypeSleeper)
		mustPlace(t, d, DeckLower, 2, 0, TypeSeater)
		mustPlace(t, d, DeckLower, 0, 2, TypeSleeper)
		mustPlace(t, d, DeckUpper, 1, 1, TypeSeater)
		seats, err := d.Finalize()
		if err != nil {
			t.Fatalf("Finalize: %v", err)
		}
		return seats
	}
	first := build()
	for i := 0; i < 10; i++ {
		if got := build(); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d produced a different mapping:\ngot  %+v\nwant %+v", i, got, first)
		}
	}
}

func TestFinalizeAggregatesAllViolations(t *testing.T) {
	d := NewDesigner(LayoutConfig{Rows: 0, ColsLeft: 0, ColsRight: 1})
	_, err := d.Finalize()
	var verr *LayoutValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("want LayoutValidationError, got %v", err)
	}
	// rows and cols_left are both broken; the operator sees the full list.
	if len(verr.Violations) < 2 {
		t.Fatalf("want every violation reported, got %v", verr.Violations)
	}
}
