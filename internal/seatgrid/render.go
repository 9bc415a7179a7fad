package seatgrid

import "fmt"

// CellKind classifies one rendered grid cell.
type CellKind string

const (
	CellEmpty       CellKind = "EMPTY"        // no seat occupies the cell
	CellSeat        CellKind = "SEAT"         // a seat head sits here
	CellSleeperTail CellKind = "SLEEPER_TAIL" // lower half of the sleeper one row up
)

// Cell is one position in a rendered deck grid.  Seat is populated only for
// CellSeat; a sleeper tail consumes the cell but renders nothing of its own.
type Cell struct {
	Kind CellKind `json:"kind"`
	Seat *Seat    `json:"seat,omitempty"`
}

// DeckGrid is the reconstructed visual grid for one deck, split into the two
// column blocks with the aisle between them.  Left is Rows×ColsLeft and
// Right is Rows×ColsRight, both row-major.
type DeckGrid struct {
	Deck  Deck     `json:"deck"`
	Left  [][]Cell `json:"left"`
	Right [][]Cell `json:"right"`
}

// RenderDeck reproduces the exact grid the operator designed for one deck of
// a bus, given the persisted configuration and seat collection.  Seats are
// located strictly by their stored (row,col) coordinates — never inferred
// from slice order — and nothing is default-filled: a zero configuration
// yields ErrMissingLayout, and coordinates that do not fit the configuration
// are reported as data-integrity errors rather than dropped.
func RenderDeck(cfg LayoutConfig, seats []Seat, deck Deck) (*DeckGrid, error) {
	if cfg.IsZero() {
		return nil, ErrMissingLayout
	}
	if v := cfg.Validate(); len(v) > 0 {
		return nil, &LayoutValidationError{Violations: v}
	}
	if deck == DeckUpper && !cfg.UpperDeck {
		return nil, fmt.Errorf("layout has no upper deck")
	}

	byPos := make(map[[2]int]*Seat, len(seats))
	for i := range seats {
		s := &seats[i]
		if s.Deck != deck {
			continue
		}
		if s.Row < 0 || s.Row >= cfg.Rows || s.Col < 0 || s.Col >= cfg.Cols() {
			return nil, fmt.Errorf("seat %s stored outside the configured grid at %s",
				s.SeatNumber, cell{deck: deck, row: s.Row, col: s.Col})
		}
		if s.Type == TypeSleeper && s.Row+1 >= cfg.Rows {
			return nil, fmt.Errorf("sleeper %s overruns the grid at %s",
				s.SeatNumber, cell{deck: deck, row: s.Row, col: s.Col})
		}
		key := [2]int{s.Row, s.Col}
		if dup, ok := byPos[key]; ok {
			return nil, fmt.Errorf("seats %s and %s share cell %s",
				dup.SeatNumber, s.SeatNumber, cell{deck: deck, row: s.Row, col: s.Col})
		}
		byPos[key] = s
	}

	grid := &DeckGrid{
		Deck:  deck,
		Left:  newCellRows(cfg.Rows, cfg.ColsLeft),
		Right: newCellRows(cfg.Rows, cfg.ColsRight),
	}
	set := func(row, col int, c Cell) error {
		if col < cfg.ColsLeft {
			if grid.Left[row][col].Kind != CellEmpty {
				return fmt.Errorf("cell %s consumed twice", cell{deck: deck, row: row, col: col})
			}
			grid.Left[row][col] = c
		} else {
			if grid.Right[row][col-cfg.ColsLeft].Kind != CellEmpty {
				return fmt.Errorf("cell %s consumed twice", cell{deck: deck, row: row, col: col})
			}
			grid.Right[row][col-cfg.ColsLeft] = c
		}
		return nil
	}
	for row := 0; row < cfg.Rows; row++ {
		for col := 0; col < cfg.Cols(); col++ {
			s, ok := byPos[[2]int{row, col}]
			if !ok {
				continue
			}
			if err := set(row, col, Cell{Kind: CellSeat, Seat: s}); err != nil {
				return nil, err
			}
			if s.Type == TypeSleeper {
				if err := set(row+1, col, Cell{Kind: CellSleeperTail}); err != nil {
					return nil, err
				}
			}
		}
	}
	return grid, nil
}

// RenderAll renders every deck the configuration declares, lower first.
func RenderAll(cfg LayoutConfig, seats []Seat) ([]*DeckGrid, error) {
	if cfg.IsZero() {
		return nil, ErrMissingLayout
	}
	out := make([]*DeckGrid, 0, 2)
	for _, deck := range cfg.Decks() {
		g, err := RenderDeck(cfg, seats, deck)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

func newCellRows(rows, cols int) [][]Cell {
	out := make([][]Cell, rows)
	for i := range out {
		out[i] = make([]Cell, cols)
		for j := range out[i] {
			out[i][j] = Cell{Kind: CellEmpty}
		}
	}
	return out
}
