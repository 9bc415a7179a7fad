package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/yatrago/bus-reservation/internal/seatgrid"
)

func newMock(t *testing.T) (*BookingRepo, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	return NewBookingRepo(db), mock, func() { db.Close() }
}

func TestReserveSeatsTxFullCount(t *testing.T) {
	repo, mock, done := newMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE bus_seats SET is_booked = 1`).
		WithArgs(uint64(7), uint64(100), uint64(3), "S1", "S2").
		WillReturnResult(sqlmock.NewResult(0, 2))

	tx, err := repo.DB().BeginTx(context.Background(), nil)
	if err != nil {
		t.Fatalf("BeginTx: %v", err)
	}
	if err := repo.ReserveSeatsTx(context.Background(), tx, 3, 7, 100, []string{"S1", "S2"}); err != nil {
		t.Fatalf("ReserveSeatsTx: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

// A short RowsAffected count means at least one seat was not free. The
// follow-up read must name the seat held by another booking.
func TestReserveSeatsTxShortCountNamesConflict(t *testing.T) {
	repo, mock, done := newMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE bus_seats SET is_booked = 1`).
		WithArgs(uint64(7), uint64(100), uint64(3), "S1", "S2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT seat_number, is_booked, booking_id FROM bus_seats`).
		WithArgs(uint64(3), "S1", "S2").
		WillReturnRows(sqlmock.NewRows([]string{"seat_number", "is_booked", "booking_id"}).
			AddRow("S1", true, 100). // ours, flipped by the update
			AddRow("S2", true, 55))  // someone else's
	mock.ExpectRollback()

	tx, err := repo.DB().BeginTx(context.Background(), nil)
	if err != nil {
		t.Fatalf("BeginTx: %v", err)
	}
	err = repo.ReserveSeatsTx(context.Background(), tx, 3, 7, 100, []string{"S1", "S2"})
	var conflict *seatgrid.SeatConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("want SeatConflictError, got %v", err)
	}
	if len(conflict.SeatNumbers) != 1 || conflict.SeatNumbers[0] != "S2" {
		t.Fatalf("conflict must name exactly S2, got %v", conflict.SeatNumbers)
	}
	_ = tx.Rollback()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestReserveSeatsTxUnknownSeat(t *testing.T) {
	repo, mock, done := newMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE bus_seats SET is_booked = 1`).
		WithArgs(uint64(7), uint64(100), uint64(3), "S99").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT seat_number, is_booked, booking_id FROM bus_seats`).
		WithArgs(uint64(3), "S99").
		WillReturnRows(sqlmock.NewRows([]string{"seat_number", "is_booked", "booking_id"}))
	mock.ExpectRollback()

	tx, _ := repo.DB().BeginTx(context.Background(), nil)
	err := repo.ReserveSeatsTx(context.Background(), tx, 3, 7, 100, []string{"S99"})
	var nf *seatgrid.SeatNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("want SeatNotFoundError, got %v", err)
	}
	_ = tx.Rollback()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

// Retried release: the first pass frees both seats, the retry matches zero
// rows, so the caller increments the availability counter by zero.
func TestReleaseSeatsTxIdempotentRetry(t *testing.T) {
	repo, mock, done := newMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE bus_seats SET is_booked = 0`).
		WithArgs(uint64(3), uint64(100)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`UPDATE bus_seats SET is_booked = 0`).
		WithArgs(uint64(3), uint64(100)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	tx, _ := repo.DB().BeginTx(context.Background(), nil)
	n, err := repo.ReleaseSeatsTx(context.Background(), tx, 3, 100)
	if err != nil || n != 2 {
		t.Fatalf("first release: n=%d err=%v", n, err)
	}
	n, err = repo.ReleaseSeatsTx(context.Background(), tx, 3, 100)
	if err != nil || n != 0 {
		t.Fatalf("retry release: n=%d err=%v", n, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDecrementAvailableTxGuardsCounter(t *testing.T) {
	repo, mock, done := newMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE buses SET available_seats = available_seats - `).
		WithArgs(4, uint64(3), 4).
		WillReturnResult(sqlmock.NewResult(0, 0))

	tx, _ := repo.DB().BeginTx(context.Background(), nil)
	err := repo.DecrementAvailableTx(context.Background(), tx, 3, 4)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("exhausted counter should surface ErrConflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestIncrementAvailableTxZeroIsNoOp(t *testing.T) {
	repo, mock, done := newMock(t)
	defer done()

	mock.ExpectBegin()
	tx, _ := repo.DB().BeginTx(context.Background(), nil)
	if err := repo.IncrementAvailableTx(context.Background(), tx, 3, 0); err != nil {
		t.Fatalf("increment by zero must not touch the database: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
