package seatgrid

import (
	"fmt"
	"sort"
)

// Designer is the operator-side authority over a bus's seat grid.  It
// translates freeform placement actions into the canonical (deck,row,col)
// coordinate space and emits the final immutable seat collection at
// Finalize time.  The interactive drag/drop UI is a thin caller of these
// methods; the engine, not the UI, decides what is a legal grid.
//
// A Designer is not safe for concurrent use; each design session owns one.
type Designer struct {
	cfg   LayoutConfig
	heads map[cell]SeatType // seat head positions only; sleeper tails are implied
}

// NewDesigner starts an empty design session for the given configuration.
// Dimensional problems with the configuration itself are reported by
// Finalize so the operator receives one complete checklist.
func NewDesigner(cfg LayoutConfig) *Designer {
	return &Designer{cfg: cfg, heads: make(map[cell]SeatType)}
}

// occupant resolves which seat head, if any, consumes the given cell.  A
// cell is consumed either by a head placed on it or by the tail of a sleeper
// placed one row above in the same column.  The ignore argument excludes a
// head from consideration, which MoveSeat uses to let a seat move into its
// own span.
func (d *Designer) occupant(p cell, ignore *cell) (cell, SeatType, bool) {
	if ignore == nil || *ignore != p {
		if t, ok := d.heads[p]; ok {
			return p, t, true
		}
	}
	above := cell{deck: p.deck, row: p.row - 1, col: p.col}
	if p.row > 0 && (ignore == nil || *ignore != above) {
		if t, ok := d.heads[above]; ok && t == TypeSleeper {
			return above, t, true
		}
	}
	return cell{}, "", false
}

// canPlace validates a placement without mutating the grid.  It returns nil
// when the placement is legal.  Replacing the head currently on the target
// cell is allowed; colliding with any other seat's span is not.
func (d *Designer) canPlace(p cell, t SeatType) *PlacementError {
	if p.deck == DeckUpper && !d.cfg.UpperDeck {
		return &PlacementError{Deck: p.deck, Row: p.row, Col: p.col, Reason: "layout has no upper deck"}
	}
	if p.row < 0 || p.row >= d.cfg.Rows || p.col < 0 || p.col >= d.cfg.Cols() {
		return &PlacementError{Deck: p.deck, Row: p.row, Col: p.col, Reason: "outside the configured grid"}
	}
	// The target cell may hold a head we are replacing, but it must not be
	// the tail of a sleeper rooted one row above.
	if head, ht, ok := d.occupant(p, &p); ok {
		return &PlacementError{
			Deck: p.deck, Row: p.row, Col: p.col,
			Reason:   "cell is the lower half of a sleeper",
			Conflict: &Seat{Type: ht, Deck: head.deck, Row: head.row, Col: head.col},
		}
	}
	if t == TypeSleeper {
		if p.row+1 >= d.cfg.Rows {
			return &PlacementError{Deck: p.deck, Row: p.row, Col: p.col, Reason: "sleeper cannot start at the last row"}
		}
		below := cell{deck: p.deck, row: p.row + 1, col: p.col}
		if head, ht, ok := d.occupant(below, &p); ok {
			return &PlacementError{
				Deck: p.deck, Row: p.row, Col: p.col,
				Reason:   "sleeper span collides with an existing seat",
				Conflict: &Seat{Type: ht, Deck: head.deck, Row: head.row, Col: head.col},
			}
		}
	}
	return nil
}

// PlaceSeat inserts a seat head at a grid cell, replacing a head already on
// that exact cell.  Collisions with another seat's span are rejected with a
// PlacementError identifying the occupying seat instead of silently
// overwriting it.
func (d *Designer) PlaceSeat(deck Deck, row, col int, t SeatType) error {
	if t != TypeSeater && t != TypeSleeper {
		return fmt.Errorf("unknown seat type %q", t)
	}
	p := cell{deck: deck, row: row, col: col}
	if perr := d.canPlace(p, t); perr != nil {
		return perr
	}
	d.heads[p] = t
	return nil
}

// RemoveSeat deletes the seat head at the given cell and frees its span.
// Removing the tail half of a sleeper is rejected with a pointer to the
// head, since the tail is not a seat entry of its own.
func (d *Designer) RemoveSeat(deck Deck, row, col int) error {
	p := cell{deck: deck, row: row, col: col}
	if _, ok := d.heads[p]; ok {
		delete(d.heads, p)
		return nil
	}
	if head, ht, ok := d.occupant(p, nil); ok {
		return &PlacementError{
			Deck: deck, Row: row, Col: col,
			Reason:   "cell is the lower half of a sleeper; remove the seat at its head",
			Conflict: &Seat{Type: ht, Deck: head.deck, Row: head.row, Col: head.col},
		}
	}
	return &PlacementError{Deck: deck, Row: row, Col: col, Reason: "no seat at cell"}
}

// MoveSeat relocates the seat at the source cell to the destination cell,
// keeping its type.  The move is atomic: when the destination is invalid the
// source seat stays untouched.  A seat may move within its own span, e.g. a
// sleeper shifting down one row.
func (d *Designer) MoveSeat(fromDeck Deck, fromRow, fromCol int, toDeck Deck, toRow, toCol int) error {
	from := cell{deck: fromDeck, row: fromRow, col: fromCol}
	t, ok := d.heads[from]
	if !ok {
		return &PlacementError{Deck: fromDeck, Row: fromRow, Col: fromCol, Reason: "no seat at source cell"}
	}
	to := cell{deck: toDeck, row: toRow, col: toCol}
	// Validate the destination with the moving seat lifted off the grid, then
	// commit both halves together.
	delete(d.heads, from)
	if ot, ok := d.heads[to]; ok {
		d.heads[from] = t
		return &PlacementError{
			Deck: toDeck, Row: toRow, Col: toCol,
			Reason:   "destination cell already holds a seat",
			Conflict: &Seat{Type: ot, Deck: toDeck, Row: toRow, Col: toCol},
		}
	}
	if perr := d.canPlace(to, t); perr != nil {
		d.heads[from] = t
		return perr
	}
	d.heads[to] = t
	return nil
}

// ToggleSeat cycles a cell through empty → seater → sleeper → empty.  It is
// the non-drag input fallback and always lands on the same grid state the
// equivalent explicit PlaceSeat/RemoveSeat calls would produce.  When the
// sleeper step is illegal at this cell (last row, or the span is blocked)
// the cycle skips straight to empty.  The returned type is the cell's new
// state, "" meaning empty.
func (d *Designer) ToggleSeat(deck Deck, row, col int) (SeatType, error) {
	p := cell{deck: deck, row: row, col: col}
	cur, isHead := d.heads[p]
	if !isHead {
		if head, ht, ok := d.occupant(p, nil); ok {
			return "", &PlacementError{
				Deck: deck, Row: row, Col: col,
				Reason:   "cell is the lower half of a sleeper",
				Conflict: &Seat{Type: ht, Deck: head.deck, Row: head.row, Col: head.col},
			}
		}
		if err := d.PlaceSeat(deck, row, col, TypeSeater); err != nil {
			return "", err
		}
		return TypeSeater, nil
	}
	switch cur {
	case TypeSeater:
		if d.canPlace(p, TypeSleeper) == nil {
			d.heads[p] = TypeSleeper
			return TypeSleeper, nil
		}
		delete(d.heads, p)
		return "", nil
	default: // sleeper
		delete(d.heads, p)
		return "", nil
	}
}

// Finalize validates the whole design and assigns seat numbers S1..Sn in a
// fixed traversal order: lower deck before upper deck, left block before
// right block, row-major within each block, skipping cells consumed by a
// sleeper's lower half.  The numbering is an explicit contract — booking and
// customer-view logic cross-reference seats by SeatNumber only, so the same
// design must always produce the same seatNumber→(deck,row,col) mapping.
//
// An invalid configuration or placement set fails with a
// LayoutValidationError enumerating every violated constraint.
func (d *Designer) Finalize() ([]Seat, error) {
	violations := d.cfg.Validate()
	for _, p := range d.sortedHeads() {
		t := d.heads[p]
		if p.deck == DeckUpper && !d.cfg.UpperDeck {
			violations = append(violations, fmt.Sprintf("seat at %s placed on a deck the layout does not have", p))
		}
		if p.row < 0 || p.row >= d.cfg.Rows || p.col < 0 || p.col >= d.cfg.Cols() {
			violations = append(violations, fmt.Sprintf("seat at %s lies outside the configured grid", p))
			continue
		}
		if t == TypeSleeper {
			if p.row+1 >= d.cfg.Rows {
				violations = append(violations, fmt.Sprintf("sleeper at %s overruns the last row", p))
			} else if _, ok := d.heads[cell{deck: p.deck, row: p.row + 1, col: p.col}]; ok {
				violations = append(violations, fmt.Sprintf("sleeper at %s overlaps the seat at %s",
					p, cell{deck: p.deck, row: p.row + 1, col: p.col}))
			}
		}
	}
	if len(violations) > 0 {
		return nil, &LayoutValidationError{Violations: violations}
	}

	seats := make([]Seat, 0, len(d.heads))
	n := 0
	for _, deck := range d.cfg.Decks() {
		for _, block := range [][2]int{{0, d.cfg.ColsLeft}, {d.cfg.ColsLeft, d.cfg.Cols()}} {
			for row := 0; row < d.cfg.Rows; row++ {
				for col := block[0]; col < block[1]; col++ {
					t, ok := d.heads[cell{deck: deck, row: row, col: col}]
					if !ok {
						continue
					}
					n++
					seats = append(seats, Seat{
						SeatNumber: fmt.Sprintf("S%d", n),
						Type:       t,
						Deck:       deck,
						Row:        row,
						Col:        col,
					})
				}
			}
		}
	}
	return seats, nil
}

// sortedHeads returns head cells in a stable order so validation messages do
// not shuffle between runs.
func (d *Designer) sortedHeads() []cell {
	out := make([]cell, 0, len(d.heads))
	for p := range d.heads {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].deck != out[j].deck {
			return out[i].deck == DeckLower
		}
		if out[i].row != out[j].row {
			return out[i].row < out[j].row
		}
		return out[i].col < out[j].col
	})
	return out
}
