package seatgrid

import (
	"errors"
	"fmt"
	"testing"
)

func TestRenderDeckReconstructsDesignedGrid(t *testing.T) {
	cfg := LayoutConfig{Rows: 3, ColsLeft: 2, ColsRight: 2}
	d := NewDesigner(cfg)
	mustPlace(t, d, DeckLower, 0, 0, TypeSleeper)
	mustPlace(t, d, DeckLower, 0, 1, TypeSeater)
	mustPlace(t, d, DeckLower, 2, 3, TypeSeater)
	seats, err := d.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	grid, err := RenderDeck(cfg, seats, DeckLower)
	if err != nil {
		t.Fatalf("RenderDeck: %v", err)
	}
	if got := grid.Left[0][0]; got.Kind != CellSeat || got.Seat.Type != TypeSleeper {
		t.Fatalf("(0,0) should be the sleeper head, got %+v", got)
	}
	if got := grid.Left[1][0]; got.Kind != CellSleeperTail || got.Seat != nil {
		t.Fatalf("(1,0) should be a bare sleeper tail, got %+v", got)
	}
	if got := grid.Left[0][1]; got.Kind != CellSeat || got.Seat.Type != TypeSeater {
		t.Fatalf("(0,1) should be a seater, got %+v", got)
	}
	if got := grid.Right[2][1]; got.Kind != CellSeat {
		t.Fatalf("(2,3) maps to right block cell [2][1], got %+v", got)
	}
	if got := grid.Left[2][0]; got.Kind != CellEmpty {
		t.Fatalf("untouched cell should stay empty, got %+v", got)
	}
}

// Round-trip identity: re-deriving positions from the rendered grid must
// reproduce exactly the seatNumber→(deck,row,col) mapping Finalize assigned.
func TestRenderRoundTripIdentity(t *testing.T) {
	cfg := LayoutConfig{Rows: 5, ColsLeft: 2, ColsRight: 3, UpperDeck: true}
	d := NewDesigner(cfg)
	mustPlace(t, d, DeckLower, 0, 0, TypeSleeper)
	mustPlace(t, d, DeckLower, 2, 0, TypeSleeper)
	mustPlace(t, d, DeckLower, 0, 1, TypeSeater)
	mustPlace(t, d, DeckLower, 4, 4, TypeSeater)
	mustPlace(t, d, DeckUpper, 0, 2, TypeSleeper)
	mustPlace(t, d, DeckUpper, 3, 0, TypeSeater)
	seats, err := d.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	assigned := make(map[string]string, len(seats))
	for _, s := range seats {
		assigned[s.SeatNumber] = fmt.Sprintf("%s/%d/%d", s.Deck, s.Row, s.Col)
	}

	derived := make(map[string]string, len(seats))
	grids, err := RenderAll(cfg, seats)
	if err != nil {
		t.Fatalf("RenderAll: %v", err)
	}
	for _, g := range grids {
		walk := func(block [][]Cell, colOffset int) {
			for row := range block {
				for col := range block[row] {
					c := block[row][col]
					if c.Kind != CellSeat {
						continue
					}
					derived[c.Seat.SeatNumber] = fmt.Sprintf("%s/%d/%d", g.Deck, row, col+colOffset)
				}
			}
		}
		walk(g.Left, 0)
		walk(g.Right, cfg.ColsLeft)
	}

	if len(derived) != len(assigned) {
		t.Fatalf("derived %d seats, finalize assigned %d", len(derived), len(assigned))
	}
	for num, pos := range assigned {
		if derived[num] != pos {
			t.Fatalf("seat %s: finalize says %s, render says %s", num, pos, derived[num])
		}
	}
}

func TestRenderRefusesMissingLayout(t *testing.T) {
	_, err := RenderDeck(LayoutConfig{}, nil, DeckLower)
	if !errors.Is(err, ErrMissingLayout) {
		t.Fatalf("want ErrMissingLayout, got %v", err)
	}
	_, err = RenderAll(LayoutConfig{}, nil)
	if !errors.Is(err, ErrMissingLayout) {
		t.Fatalf("want ErrMissingLayout from RenderAll, got %v", err)
	}
}

func TestRenderRejectsCorruptSeatData(t *testing.T) {
	cfg := LayoutConfig{Rows: 2, ColsLeft: 1, ColsRight: 1}
	cases := []struct {
		name  string
		seats []Seat
	}{
		{
			"duplicate cell",
			[]Seat{
				{SeatNumber: "S1", Type: TypeSeater, Deck: DeckLower, Row: 0, Col: 0},
				{SeatNumber: "S2", Type: TypeSeater, Deck: DeckLower, Row: 0, Col: 0},
			},
		},
		{
			"seat outside grid",
			[]Seat{{SeatNumber: "S1", Type: TypeSeater, Deck: DeckLower, Row: 9, Col: 0}},
		},
		{
			"sleeper overruns grid",
			[]Seat{{SeatNumber: "S1", Type: TypeSleeper, Deck: DeckLower, Row: 1, Col: 0}},
		},
		{
			"seat under a sleeper span",
			[]Seat{
				{SeatNumber: "S1", Type: TypeSleeper, Deck: DeckLower, Row: 0, Col: 0},
				{SeatNumber: "S2", Type: TypeSeater, Deck: DeckLower, Row: 1, Col: 0},
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := RenderDeck(cfg, tc.seats, DeckLower); err == nil {
				t.Fatal("corrupt seat data must not render silently")
			}
		})
	}
}

func TestRenderDeckRejectsAbsentUpperDeck(t *testing.T) {
	cfg := LayoutConfig{Rows: 2, ColsLeft: 1, ColsRight: 1}
	if _, err := RenderDeck(cfg, nil, DeckUpper); err == nil {
		t.Fatal("rendering an upper deck the layout lacks should fail")
	}
}
