package repository

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"time"

	"github.com/yatrago/bus-reservation/internal/seatgrid"
)

// BookingRepo provides CRUD operations for bookings, their passengers and
// the seat flips that back them. A booking groups one or more seats on a
// single bus trip for one customer; each seat carries exactly one
// passenger. All timestamps are stored in UTC.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// DB exposes the underlying handle for callers that open a transaction
// spanning several repository methods.
func (r *BookingRepo) DB() *sql.DB { return r.db }

// Booking mirrors the schema of the bookings table.
//
// Fields:
//  BookingRef       – customer-facing reference (UUID), printed on tickets.
//  Status           – 'CONFIRMED' or 'CANCELLED'; bookings are confirmed
//                     atomically with their seat flips, so there is no
//                     pending state.
//  TotalAmountCents – sum of per-seat fares at booking time.
//  PaymentRef       – external payment reference, nil until payment is
//                     initiated.
type Booking struct {
	ID               uint64
	BookingRef       string
	UserID           uint64
	BusID            uint64
	Status           string
	TotalAmountCents uint32
	PaymentRef       *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Passenger mirrors the booking_passengers table: one traveller assigned to
// one seat of a booking. Gender is recorded for manifests but drives no
// allocation rule.
type Passenger struct {
	BookingID  uint64
	Name       string
	Age        int
	Gender     string
	SeatNumber string
	PriceCents uint32
}

// CreateTx inserts a booking within an existing transaction and populates
// the generated ID and timestamps on the record. The caller commits or
// rolls back.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *Booking) error {
	const q = `INSERT INTO bookings (booking_ref, user_id, bus_id, status, total_amount_cents) VALUES (?,?,?,?,?)`
	result, err := tx.ExecContext(ctx, q, b.BookingRef, b.UserID, b.BusID, b.Status, b.TotalAmountCents)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	const sel = `SELECT created_at, updated_at FROM bookings WHERE id = ?`
	return tx.QueryRowContext(ctx, sel, b.ID).Scan(&b.CreatedAt, &b.UpdatedAt)
}

// AddPassengersTx bulk-inserts the passenger rows of a booking in a single
// statement. Passing an empty slice has no effect.
func (r *BookingRepo) AddPassengersTx(ctx context.Context, tx *sql.Tx, passengers []Passenger) error {
	if len(passengers) == 0 {
		return nil
	}
	query := `INSERT INTO booking_passengers (booking_id, name, age, gender, seat_number, price_cents) VALUES `
	args := make([]interface{}, 0, len(passengers)*6)
	for i, p := range passengers {
		if i > 0 {
			query += ","
		}
		query += "(?,?,?,?,?,?)"
		args = append(args, p.BookingID, p.Name, p.Age, p.Gender, p.SeatNumber, p.PriceCents)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// ReserveSeatsTx flips the requested seats to booked in one conditional
// UPDATE. The WHERE clause only matches seats that are still free, so two
// concurrent bookings for the same seat cannot both succeed: the loser's
// RowsAffected comes up short and the whole batch fails. On a short count
// the free/missing seats are re-read inside the same transaction to name
// the culprits precisely.
func (r *BookingRepo) ReserveSeatsTx(ctx context.Context, tx *sql.Tx, busID, userID, bookingID uint64, seatNumbers []string) error {
	if len(seatNumbers) == 0 {
		return nil
	}
	placeholders := strings.Repeat("?,", len(seatNumbers))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]interface{}, 0, len(seatNumbers)+3)
	args = append(args, userID, bookingID, busID)
	for _, n := range seatNumbers {
		args = append(args, n)
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE bus_seats SET is_booked = 1, booked_by = ?, booking_id = ?
		 WHERE bus_id = ? AND seat_number IN (`+placeholders+`) AND is_booked = 0`,
		args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == int64(len(seatNumbers)) {
		return nil
	}
	return r.diagnoseShortReserve(ctx, tx, busID, bookingID, seatNumbers)
}

// diagnoseShortReserve classifies why a conditional reserve fell short:
// seats taken by someone else become a SeatConflictError, seat numbers the
// bus never had become a SeatNotFoundError. The caller rolls back either
// way.
func (r *BookingRepo) diagnoseShortReserve(ctx context.Context, tx *sql.Tx, busID, bookingID uint64, seatNumbers []string) error {
	placeholders := strings.Repeat("?,", len(seatNumbers))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]interface{}, 0, len(seatNumbers)+1)
	args = append(args, busID)
	for _, n := range seatNumbers {
		args = append(args, n)
	}
	rows, err := tx.QueryContext(ctx,
		`SELECT seat_number, is_booked, booking_id FROM bus_seats
		 WHERE bus_id = ? AND seat_number IN (`+placeholders+`)`,
		args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	type seatState struct {
		booked    bool
		bookingID uint64
	}
	found := make(map[string]seatState, len(seatNumbers))
	for rows.Next() {
		var num string
		var booked bool
		var bid sql.NullInt64
		if err := rows.Scan(&num, &booked, &bid); err != nil {
			return err
		}
		st := seatState{booked: booked}
		if bid.Valid {
			st.bookingID = uint64(bid.Int64)
		}
		found[num] = st
	}
	if err := rows.Err(); err != nil {
		return err
	}

	var missing, conflicted []string
	for _, n := range seatNumbers {
		st, ok := found[n]
		switch {
		case !ok:
			missing = append(missing, n)
		case st.booked && st.bookingID != bookingID:
			conflicted = append(conflicted, n)
		}
	}
	sort.Strings(missing)
	sort.Strings(conflicted)
	if len(missing) > 0 {
		return &seatgrid.SeatNotFoundError{SeatNumbers: missing}
	}
	if len(conflicted) > 0 {
		return &seatgrid.SeatConflictError{SeatNumbers: conflicted}
	}
	// Short count with nothing to blame means the state changed under us.
	return ErrConflict
}

// DecrementAvailableTx moves the bus's availability counter down by n. The
// count guard keeps the counter from going negative even if it has drifted;
// a zero-row update surfaces as ErrConflict so the booking rolls back
// instead of breaking the conservation invariant.
func (r *BookingRepo) DecrementAvailableTx(ctx context.Context, tx *sql.Tx, busID uint64, n int) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE buses SET available_seats = available_seats - ? WHERE id = ? AND available_seats >= ?`,
		n, busID, n)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrConflict
	}
	return nil
}

// ReleaseSeatsTx frees every seat still held by a booking and returns how
// many rows actually flipped. Scoping the update to the booking ID makes a
// cancellation retry harmless: seats already freed (or since re-booked by
// someone else) match zero rows instead of being clobbered.
func (r *BookingRepo) ReleaseSeatsTx(ctx context.Context, tx *sql.Tx, busID, bookingID uint64) (int, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE bus_seats SET is_booked = 0, booked_by = NULL, booking_id = NULL
		 WHERE bus_id = ? AND booking_id = ?`,
		busID, bookingID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// IncrementAvailableTx moves the availability counter up by n, capped at
// total_seats for the same drift reason as the decrement guard.
func (r *BookingRepo) IncrementAvailableTx(ctx context.Context, tx *sql.Tx, busID uint64, n int) error {
	if n == 0 {
		return nil
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE buses SET available_seats = available_seats + ?
		 WHERE id = ? AND available_seats + ? <= total_seats`,
		n, busID, n)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrConflict
	}
	return nil
}

// CancelInfo is what the cancellation flow needs to decide and act: the
// trip, its departure moment and the booking's current status.
type CancelInfo struct {
	BusID       uint64
	BookingRef  string
	Status      string
	DepartureAt time.Time
	SeatNumbers []string
}

// GetCancelInfoTx loads a booking's cancellation context inside a
// transaction, locking the booking row. It returns ErrBookingNotFound when
// the booking does not exist and ErrForbidden when it belongs to another
// user.
func (r *BookingRepo) GetCancelInfoTx(ctx context.Context, tx *sql.Tx, bookingID, userID uint64) (*CancelInfo, error) {
	const q = `SELECT b.user_id, b.bus_id, b.booking_ref, b.status, bu.journey_date, bu.departure_time
			   FROM bookings b
			   JOIN buses bu ON bu.id = b.bus_id
			   WHERE b.id = ? FOR UPDATE`
	var (
		ownerID       uint64
		info          CancelInfo
		journeyDate   string
		departureTime string
	)
	err := tx.QueryRowContext(ctx, q, bookingID).Scan(
		&ownerID, &info.BusID, &info.BookingRef, &info.Status, &journeyDate, &departureTime)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	if ownerID != userID {
		return nil, ErrForbidden
	}
	if info.DepartureAt, err = CombineDeparture(journeyDate, departureTime); err != nil {
		return nil, err
	}
	rows, err := tx.QueryContext(ctx,
		`SELECT seat_number FROM booking_passengers WHERE booking_id = ? ORDER BY seat_number`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		info.SeatNumbers = append(info.SeatNumbers, n)
	}
	return &info, rows.Err()
}

// MarkCancelledTx sets a booking's status to CANCELLED.
func (r *BookingRepo) MarkCancelledTx(ctx context.Context, tx *sql.Tx, bookingID uint64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = 'CANCELLED' WHERE id = ?`, bookingID)
	return err
}

// SetPaymentRef attaches an external payment reference to a confirmed
// booking owned by the user. Cancelled bookings cannot take payments.
func (r *BookingRepo) SetPaymentRef(ctx context.Context, bookingID, userID uint64, ref string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET payment_ref = ? WHERE id = ? AND user_id = ? AND status = 'CONFIRMED'`,
		ref, bookingID, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// BookingDetail is a booking joined with its trip and passenger list, the
// shape returned to customers and operators.
type BookingDetail struct {
	ID               uint64      `json:"id"`
	BookingRef       string      `json:"booking_ref"`
	UserID           uint64      `json:"user_id,omitempty"`
	BusID            uint64      `json:"bus_id"`
	Status           string      `json:"status"`
	TotalAmountCents uint32      `json:"total_amount_cents"`
	PaymentRef       *string     `json:"payment_ref,omitempty"`
	BusName          string      `json:"bus_name"`
	FromCity         string      `json:"from_city"`
	ToCity           string      `json:"to_city"`
	JourneyDate      string      `json:"journey_date"`
	DepartureTime    string      `json:"departure_time"`
	CreatedAt        time.Time   `json:"created_at"`
	Passengers       []Passenger `json:"passengers"`
}

const bookingDetailColumns = `b.id, b.booking_ref, b.user_id, b.bus_id, b.status,
					  b.total_amount_cents, b.payment_ref,
					  bu.name, bu.from_city, bu.to_city, bu.journey_date, bu.departure_time,
					  b.created_at`

func scanBookingDetail(row interface{ Scan(...interface{}) error }) (*BookingDetail, error) {
	var d BookingDetail
	var payRef sql.NullString
	err := row.Scan(
		&d.ID, &d.BookingRef, &d.UserID, &d.BusID, &d.Status,
		&d.TotalAmountCents, &payRef,
		&d.BusName, &d.FromCity, &d.ToCity, &d.JourneyDate, &d.DepartureTime,
		&d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if payRef.Valid {
		ref := payRef.String
		d.PaymentRef = &ref
	}
	d.Passengers = []Passenger{}
	return &d, nil
}

// attachPassengers loads the passenger rows for a set of booking details in
// one query.
func (r *BookingRepo) attachPassengers(ctx context.Context, details []*BookingDetail) error {
	if len(details) == 0 {
		return nil
	}
	index := make(map[uint64]*BookingDetail, len(details))
	ids := make([]interface{}, 0, len(details))
	placeholders := make([]string, 0, len(details))
	for _, d := range details {
		index[d.ID] = d
		ids = append(ids, d.ID)
		placeholders = append(placeholders, "?")
	}
	q := `SELECT booking_id, name, age, gender, seat_number, price_cents
		  FROM booking_passengers
		  WHERE booking_id IN (` + strings.Join(placeholders, ",") + `)
		  ORDER BY booking_id, seat_number`
	rows, err := r.db.QueryContext(ctx, q, ids...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var p Passenger
		if err := rows.Scan(&p.BookingID, &p.Name, &p.Age, &p.Gender, &p.SeatNumber, &p.PriceCents); err != nil {
			return err
		}
		if d, ok := index[p.BookingID]; ok {
			d.Passengers = append(d.Passengers, p)
		}
	}
	return rows.Err()
}

// GetByIDForUser returns one booking with passengers, enforcing ownership.
func (r *BookingRepo) GetByIDForUser(ctx context.Context, bookingID, userID uint64) (*BookingDetail, error) {
	const q = `SELECT ` + bookingDetailColumns + `
			   FROM bookings b
			   JOIN buses bu ON bu.id = b.bus_id
			   WHERE b.id = ?`
	d, err := scanBookingDetail(r.db.QueryRowContext(ctx, q, bookingID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	if d.UserID != userID {
		return nil, ErrForbidden
	}
	if err := r.attachPassengers(ctx, []*BookingDetail{d}); err != nil {
		return nil, err
	}
	return d, nil
}

func (r *BookingRepo) queryDetails(ctx context.Context, q string, args ...interface{}) ([]BookingDetail, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ptrs := make([]*BookingDetail, 0)
	for rows.Next() {
		d, err := scanBookingDetail(rows)
		if err != nil {
			return nil, err
		}
		ptrs = append(ptrs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.attachPassengers(ctx, ptrs); err != nil {
		return nil, err
	}
	out := make([]BookingDetail, len(ptrs))
	for i, d := range ptrs {
		out[i] = *d
	}
	return out, nil
}

// ListByUser returns a customer's bookings, newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]BookingDetail, error) {
	const q = `SELECT ` + bookingDetailColumns + `
			   FROM bookings b
			   JOIN buses bu ON bu.id = b.bus_id
			   WHERE b.user_id = ?
			   ORDER BY b.created_at DESC`
	return r.queryDetails(ctx, q, userID)
}

// ListByBusForOperator returns all bookings on a trip after verifying the
// caller operates it. ErrBusNotFound when the trip does not exist,
// ErrForbidden when it belongs to another operator.
func (r *BookingRepo) ListByBusForOperator(ctx context.Context, busID, operatorID uint64) ([]BookingDetail, error) {
	var ownerID uint64
	err := r.db.QueryRowContext(ctx, `SELECT operator_id FROM buses WHERE id = ?`, busID).Scan(&ownerID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrBusNotFound
		}
		return nil, err
	}
	if ownerID != operatorID {
		return nil, ErrForbidden
	}
	const q = `SELECT ` + bookingDetailColumns + `
			   FROM bookings b
			   JOIN buses bu ON bu.id = b.bus_id
			   WHERE b.bus_id = ?
			   ORDER BY b.created_at DESC`
	return r.queryDetails(ctx, q, busID)
}

// ListAll returns every booking for the admin console, newest first.
func (r *BookingRepo) ListAll(ctx context.Context, limit, offset int) ([]BookingDetail, error) {
	const q = `SELECT ` + bookingDetailColumns + `
			   FROM bookings b
			   JOIN buses bu ON bu.id = b.bus_id
			   ORDER BY b.created_at DESC
			   LIMIT ? OFFSET ?`
	return r.queryDetails(ctx, q, limit, offset)
}
