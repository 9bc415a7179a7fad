package repository // repository defines data access for bus trips and their seats

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/yatrago/bus-reservation/internal/seatgrid"
)

// Bus mirrors the `buses` table. One row is one scheduled trip: a vehicle
// running a route on a journey date with a fixed seat layout. The layout
// columns are denormalized into a seatgrid.LayoutConfig; the per-seat rows
// live in `bus_seats`.
//
// Fields:
//  ID                – primary key identifier.
//  OperatorID        – user ID of the operator running the trip.
//  Name              – service name shown to customers (e.g. "Night Rider").
//  BusNumber         – vehicle registration number.
//  FromCity, ToCity  – route endpoints.
//  JourneyDate       – travel date, YYYY-MM-DD.
//  DepartureTime     – departure clock time, HH:MM; combined with
//                      JourneyDate for the cancellation window check.
//  ArrivalTime       – arrival clock time, HH:MM.
//  Layout            – grid shape (rows, left/right columns, upper deck).
//  TotalSeats        – number of placed seat records; fixed at creation.
//  AvailableSeats    – TotalSeats minus booked seats; maintained
//                      transactionally alongside every seat mutation.
//  PriceCents        – base fare in cents.
//  PriceSeaterCents  – seater fare override (0 means use PriceCents).
//  PriceSleeperCents – sleeper fare override (0 means use PriceCents).
type Bus struct {
	ID                uint64
	OperatorID        uint64
	Name              string
	BusNumber         string
	FromCity          string
	ToCity            string
	JourneyDate       string
	DepartureTime     string
	ArrivalTime       string
	Layout            seatgrid.LayoutConfig
	TotalSeats        int
	AvailableSeats    int
	PriceCents        uint32
	PriceSeaterCents  uint32
	PriceSleeperCents uint32
	IsActive          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// DepartureAt combines JourneyDate and DepartureTime into a single UTC
// timestamp. Both fields are stored as strings exactly as the operator
// entered them, so this is the one place the combination rule lives.
func (b *Bus) DepartureAt() (time.Time, error) {
	return CombineDeparture(b.JourneyDate, b.DepartureTime)
}

// CombineDeparture parses a YYYY-MM-DD journey date plus an HH:MM departure
// time into one UTC timestamp.
func CombineDeparture(journeyDate, departureTime string) (time.Time, error) {
	t, err := time.Parse("2006-01-02 15:04", journeyDate+" "+departureTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid journey date/time %q %q: %w", journeyDate, departureTime, err)
	}
	return t.UTC(), nil
}

// SeatPriceCents resolves the fare for a seat type, falling back to the base
// price when no per-type override is configured.
func (b *Bus) SeatPriceCents(t seatgrid.SeatType) uint32 {
	switch t {
	case seatgrid.TypeSeater:
		if b.PriceSeaterCents > 0 {
			return b.PriceSeaterCents
		}
	case seatgrid.TypeSleeper:
		if b.PriceSleeperCents > 0 {
			return b.PriceSleeperCents
		}
	}
	return b.PriceCents
}

// BusSeat mirrors one row of `bus_seats`: a seat's fixed grid identity from
// the seat-grid engine plus its live occupancy state.
type BusSeat struct {
	ID    uint64
	BusID uint64
	seatgrid.SeatStatus
	CreatedAt string
	UpdatedAt string
}

// BusRepo provides persistence for buses and their seat collections.
type BusRepo struct {
	db *sql.DB
}

// NewBusRepo constructs a BusRepo bound to the given database handle.
func NewBusRepo(db *sql.DB) *BusRepo { return &BusRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions that
// span the booking and bus repositories.
func (r *BusRepo) DB() *sql.DB { return r.db }

const busColumns = `id, operator_id, name, bus_number, from_city, to_city,
		   journey_date, departure_time, arrival_time,
		   grid_rows, cols_left, cols_right, upper_deck,
		   total_seats, available_seats,
		   price_cents, price_seater_cents, price_sleeper_cents,
		   is_active, created_at, updated_at`

func scanBus(row interface{ Scan(...interface{}) error }) (*Bus, error) {
	var b Bus
	err := row.Scan(
		&b.ID, &b.OperatorID, &b.Name, &b.BusNumber, &b.FromCity, &b.ToCity,
		&b.JourneyDate, &b.DepartureTime, &b.ArrivalTime,
		&b.Layout.Rows, &b.Layout.ColsLeft, &b.Layout.ColsRight, &b.Layout.UpperDeck,
		&b.TotalSeats, &b.AvailableSeats,
		&b.PriceCents, &b.PriceSeaterCents, &b.PriceSleeperCents,
		&b.IsActive, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// CreateWithSeats inserts a bus trip together with its finalized seat
// collection in one transaction. TotalSeats and AvailableSeats are both set
// to len(seats): the counter invariant holds from the very first write.
func (r *BusRepo) CreateWithSeats(ctx context.Context, b *Bus, seats []seatgrid.Seat) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const q = `INSERT INTO buses
		(operator_id, name, bus_number, from_city, to_city,
		 journey_date, departure_time, arrival_time,
		 grid_rows, cols_left, cols_right, upper_deck,
		 total_seats, available_seats,
		 price_cents, price_seater_cents, price_sleeper_cents)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`
	res, err := tx.ExecContext(ctx, q,
		b.OperatorID, b.Name, b.BusNumber, b.FromCity, b.ToCity,
		b.JourneyDate, b.DepartureTime, b.ArrivalTime,
		b.Layout.Rows, b.Layout.ColsLeft, b.Layout.ColsRight, b.Layout.UpperDeck,
		len(seats), len(seats),
		b.PriceCents, b.PriceSeaterCents, b.PriceSleeperCents,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	b.TotalSeats = len(seats)
	b.AvailableSeats = len(seats)

	if err := insertSeatsTx(ctx, tx, b.ID, seats); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// insertSeatsTx bulk-inserts the seat rows for a bus in a single statement.
func insertSeatsTx(ctx context.Context, tx *sql.Tx, busID uint64, seats []seatgrid.Seat) error {
	if len(seats) == 0 {
		return nil
	}
	query := `INSERT INTO bus_seats (bus_id, seat_number, seat_type, deck, row_idx, col_idx, gender) VALUES `
	args := make([]interface{}, 0, len(seats)*7)
	for i, s := range seats {
		if i > 0 {
			query += ","
		}
		query += "(?,?,?,?,?,?,?)"
		args = append(args, busID, s.SeatNumber, string(s.Type), string(s.Deck), s.Row, s.Col, s.Gender)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// GetByID loads a bus trip by id. Returns ErrBusNotFound when no row exists.
func (r *BusRepo) GetByID(ctx context.Context, id uint64) (*Bus, error) {
	b, err := scanBus(r.db.QueryRowContext(ctx, `SELECT `+busColumns+` FROM buses WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBusNotFound
		}
		return nil, err
	}
	return b, nil
}

// GetByIDAndOperator loads a bus while enforcing ownership. A bus owned by a
// different operator yields ErrForbidden so handlers can distinguish 403
// from 404.
func (r *BusRepo) GetByIDAndOperator(ctx context.Context, id, operatorID uint64) (*Bus, error) {
	b, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.OperatorID != operatorID {
		return nil, ErrForbidden
	}
	return b, nil
}

// SeatsByBus returns every seat row of a bus ordered by seat id, i.e. the
// order Finalize assigned the numbers in.
func (r *BusRepo) SeatsByBus(ctx context.Context, busID uint64) ([]BusSeat, error) {
	const q = `SELECT id, bus_id, seat_number, seat_type, deck, row_idx, col_idx, gender,
					  is_booked, booked_by, booking_id, created_at, updated_at
			   FROM bus_seats WHERE bus_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, busID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BusSeat
	for rows.Next() {
		var s BusSeat
		var seatType, deck string
		var gender sql.NullString
		var bookedBy, bookingID sql.NullInt64
		if err := rows.Scan(
			&s.ID, &s.BusID, &s.SeatNumber, &seatType, &deck, &s.Row, &s.Col, &gender,
			&s.IsBooked, &bookedBy, &bookingID, &s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, err
		}
		s.Type = seatgrid.SeatType(seatType)
		s.Deck = seatgrid.Deck(deck)
		if gender.Valid {
			s.Gender = gender.String
		}
		if bookedBy.Valid {
			s.BookedBy = uint64(bookedBy.Int64)
		}
		if bookingID.Valid {
			s.BookingID = uint64(bookingID.Int64)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListByOperator returns all trips belonging to an operator, newest journey
// first.
func (r *BusRepo) ListByOperator(ctx context.Context, operatorID uint64) ([]Bus, error) {
	const q = `SELECT ` + busColumns + ` FROM buses WHERE operator_id = ? ORDER BY journey_date DESC, departure_time DESC`
	rows, err := r.db.QueryContext(ctx, q, operatorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Bus
	for rows.Next() {
		b, err := scanBus(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ReplaceLayout swaps a bus's layout configuration and seat collection for a
// newly finalized design. Layout shape is immutable once bookings exist:
// replacing it then would orphan seat references held by those bookings, so
// the operation fails with ErrConflict instead.
func (r *BusRepo) ReplaceLayout(ctx context.Context, busID, operatorID uint64, cfg seatgrid.LayoutConfig, seats []seatgrid.Seat) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var ownerID uint64
	err = tx.QueryRowContext(ctx, `SELECT operator_id FROM buses WHERE id = ? FOR UPDATE`, busID).Scan(&ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrBusNotFound
		}
		return err
	}
	if ownerID != operatorID {
		return ErrForbidden
	}

	var booked int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bus_seats WHERE bus_id = ? AND is_booked = 1`, busID).Scan(&booked); err != nil {
		return err
	}
	if booked > 0 {
		return ErrConflict
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM bus_seats WHERE bus_id = ?`, busID); err != nil {
		return err
	}
	if err := insertSeatsTx(ctx, tx, busID, seats); err != nil {
		return err
	}
	const upd = `UPDATE buses SET grid_rows=?, cols_left=?, cols_right=?, upper_deck=?,
						total_seats=?, available_seats=? WHERE id = ?`
	if _, err := tx.ExecContext(ctx, upd,
		cfg.Rows, cfg.ColsLeft, cfg.ColsRight, cfg.UpperDeck,
		len(seats), len(seats), busID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// DeleteByIDAndOperator removes a bus trip and its seats. Trips with
// confirmed bookings cannot be deleted (ErrConflict); cancel or complete
// them first.
func (r *BusRepo) DeleteByIDAndOperator(ctx context.Context, busID, operatorID uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var ownerID uint64
	err = tx.QueryRowContext(ctx, `SELECT operator_id FROM buses WHERE id = ? FOR UPDATE`, busID).Scan(&ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrBusNotFound
		}
		return err
	}
	if ownerID != operatorID {
		return ErrForbidden
	}
	var active int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings WHERE bus_id = ? AND status = 'CONFIRMED'`, busID).Scan(&active); err != nil {
		return err
	}
	if active > 0 {
		return ErrConflict
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM bus_seats WHERE bus_id = ?`, busID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM buses WHERE id = ?`, busID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
