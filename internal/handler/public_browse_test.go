package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"

	"github.com/yatrago/bus-reservation/internal/repository"
)

func newPublicHandler(t *testing.T) (*PublicHandler, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	return NewPublicHandler(repository.NewBusRepo(db)), mock, func() { db.Close() }
}

func getRequest(path, id string) (*httptest.ResponseRecorder, echo.Context) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id)
	return rec, c
}

var busRowColumns = []string{
	"id", "operator_id", "name", "bus_number", "from_city", "to_city",
	"journey_date", "departure_time", "arrival_time",
	"grid_rows", "cols_left", "cols_right", "upper_deck",
	"total_seats", "available_seats",
	"price_cents", "price_seater_cents", "price_sleeper_cents",
	"is_active", "created_at", "updated_at",
}

func nightBusRow() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(busRowColumns).AddRow(
		3, 9, "Night Rider", "NR-12", "Pune", "Goa",
		"2026-09-14", "22:30", "06:00",
		2, 1, 1, false,
		2, 2,
		80000, 0, 120000,
		true, now, now,
	)
}

// The trip summary must expose the resolved fare per seat type so the client
// can show prices before the customer opens the seat map. The seater fare
// has no override here and falls back to the base price.
func TestGetTripExposesSeatTypeFares(t *testing.T) {
	h, mock, done := newPublicHandler(t)
	defer done()
	mock.ExpectQuery(`SELECT id, operator_id`).WithArgs(uint64(3)).WillReturnRows(nightBusRow())

	rec, c := getRequest("/v1/buses/3", "3")
	if err := h.GetTrip(c); err != nil {
		t.Fatalf("GetTrip: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		PriceCents        uint32 `json:"price_cents"`
		PriceSeaterCents  uint32 `json:"price_seater_cents"`
		PriceSleeperCents uint32 `json:"price_sleeper_cents"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.PriceCents != 80000 || resp.PriceSeaterCents != 80000 || resp.PriceSleeperCents != 120000 {
		t.Fatalf("fares = %+v, want base 80000, seater fallback 80000, sleeper 120000", resp)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetSeatMapExposesSeatTypeFares(t *testing.T) {
	h, mock, done := newPublicHandler(t)
	defer done()
	mock.ExpectQuery(`SELECT id, operator_id`).WithArgs(uint64(3)).WillReturnRows(nightBusRow())
	seatCols := []string{
		"id", "bus_id", "seat_number", "seat_type", "deck", "row_idx", "col_idx", "gender",
		"is_booked", "booked_by", "booking_id", "created_at", "updated_at",
	}
	mock.ExpectQuery(`FROM bus_seats WHERE bus_id = \?`).WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows(seatCols).
			AddRow(1, 3, "S1", "SEATER", "LOWER", 0, 0, nil, false, nil, nil, "", "").
			AddRow(2, 3, "S2", "SEATER", "LOWER", 1, 0, nil, false, nil, nil, "", ""))

	rec, c := getRequest("/v1/buses/3/seatmap", "3")
	if err := h.GetSeatMap(c); err != nil {
		t.Fatalf("GetSeatMap: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Decks             []json.RawMessage `json:"decks"`
		PriceCents        uint32            `json:"price_cents"`
		PriceSeaterCents  uint32            `json:"price_seater_cents"`
		PriceSleeperCents uint32            `json:"price_sleeper_cents"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Decks) != 1 {
		t.Fatalf("want one rendered deck, got %d", len(resp.Decks))
	}
	if resp.PriceCents != 80000 || resp.PriceSeaterCents != 80000 || resp.PriceSleeperCents != 120000 {
		t.Fatalf("fares = %+v, want base 80000, seater fallback 80000, sleeper 120000", resp)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
