// Package seatgrid owns the bidirectional mapping between a bus's declared
// layout configuration and its flat seat collection.  The operator-side
// Designer turns placement actions into canonical (deck,row,col) coordinates
// and assigns stable seat numbers; the customer-side RenderDeck reconstructs
// the exact grid from persisted data; the Manifest tracks booked/available
// state with all-or-nothing reservation semantics.  The package has no
// dependencies on storage or transport and is safe to exercise in isolation.
package seatgrid

import (
	"fmt"
	"strings"
)

// Deck identifies one of the two stacked seating levels of a bus.  The lower
// deck always exists; the upper deck only when the layout enables it.
type Deck string

const (
	DeckLower Deck = "LOWER" // always present
	DeckUpper Deck = "UPPER" // only when LayoutConfig.UpperDeck is true
)

// SeatType distinguishes how many grid cells a seat spans.  A seater occupies
// a single cell; a sleeper occupies its own cell plus the cell directly below
// it in the next row of the same column.
type SeatType string

const (
	TypeSeater  SeatType = "SEATER"
	TypeSleeper SeatType = "SLEEPER"
)

// LayoutConfig describes the shape of a bus's seating area.  Columns
// 0..ColsLeft-1 form the left block and ColsLeft..ColsLeft+ColsRight-1 the
// right block; the aisle between them is a rendering gap, not a grid cell.
//
// Fields:
//  Rows      – number of row slots per deck (positive).
//  ColsLeft  – columns on the left side of the aisle (positive).
//  ColsRight – columns on the right side of the aisle (positive).
//  UpperDeck – whether a second deck exists.
type LayoutConfig struct {
	Rows      int  `json:"rows"`
	ColsLeft  int  `json:"cols_left"`
	ColsRight int  `json:"cols_right"`
	UpperDeck bool `json:"upper_deck"`
}

// Validate returns every dimensional violation of the configuration.  An
// empty slice means the configuration is usable.  Callers that need an error
// value should wrap the result in a LayoutValidationError.
func (c LayoutConfig) Validate() []string {
	var violations []string
	if c.Rows <= 0 {
		violations = append(violations, fmt.Sprintf("rows must be positive, got %d", c.Rows))
	}
	if c.ColsLeft <= 0 {
		violations = append(violations, fmt.Sprintf("cols_left must be positive, got %d", c.ColsLeft))
	}
	if c.ColsRight <= 0 {
		violations = append(violations, fmt.Sprintf("cols_right must be positive, got %d", c.ColsRight))
	}
	return violations
}

// Cols returns the total number of stored columns across both blocks.
func (c LayoutConfig) Cols() int { return c.ColsLeft + c.ColsRight }

// IsZero reports whether the configuration carries no dimensions at all.
// A persisted bus row with a zero config has lost its layout and must be
// treated as unbookable rather than backfilled with a guessed grid.
func (c LayoutConfig) IsZero() bool {
	return c.Rows == 0 && c.ColsLeft == 0 && c.ColsRight == 0 && !c.UpperDeck
}

// Decks lists the decks present under this configuration, lower first.  The
// order doubles as the seat-numbering order used by Designer.Finalize.
func (c LayoutConfig) Decks() []Deck {
	if c.UpperDeck {
		return []Deck{DeckLower, DeckUpper}
	}
	return []Deck{DeckLower}
}

// Seat is one physical seat at a fixed grid position.  SeatNumber is the sole
// cross-reference key between bookings and grid positions; it is assigned by
// Designer.Finalize in a deterministic traversal order and never changes for
// the lifetime of the owning bus trip.
//
// Fields:
//  SeatNumber – unique identifier within a bus trip (format S<n>).
//  Type       – SEATER or SLEEPER.
//  Deck       – LOWER or UPPER.
//  Row        – zero-based row index into the deck's grid.
//  Col        – zero-based column index (left block then right block).
//  Gender     – optional constraint tag; stored but not enforced by any rule.
type Seat struct {
	SeatNumber string   `json:"seat_number"`
	Type       SeatType `json:"type"`
	Deck       Deck     `json:"deck"`
	Row        int      `json:"row"`
	Col        int      `json:"col"`
	Gender     string   `json:"gender,omitempty"`
}

// ParseDeck normalizes a deck string.  The empty string maps to the lower
// deck so older clients that omit the field keep working.
func ParseDeck(s string) (Deck, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "LOWER":
		return DeckLower, nil
	case "UPPER":
		return DeckUpper, nil
	}
	return "", fmt.Errorf("unknown deck %q", s)
}

// ParseSeatType normalizes a seat-type string.
func ParseSeatType(s string) (SeatType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SEATER":
		return TypeSeater, nil
	case "SLEEPER":
		return TypeSleeper, nil
	}
	return "", fmt.Errorf("unknown seat type %q", s)
}

// cell addresses one grid position within a single bus.
type cell struct {
	deck Deck
	row  int
	col  int
}

func (p cell) String() string {
	return fmt.Sprintf("%s(%d,%d)", strings.ToLower(string(p.deck)), p.row, p.col)
}
