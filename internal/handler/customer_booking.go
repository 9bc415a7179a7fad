package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/yatrago/bus-reservation/internal/config"
	"github.com/yatrago/bus-reservation/internal/queue"
	"github.com/yatrago/bus-reservation/internal/repository"
	"github.com/yatrago/bus-reservation/internal/seatgrid"
	queue_publisher "github.com/yatrago/bus-reservation/internal/service"
)

// BookingHandler serves the customer booking flow: create, list, inspect,
// cancel and pay.
type BookingHandler struct {
	Cfg      config.Config
	Buses    *repository.BusRepo
	Bookings *repository.BookingRepo
}

func NewBookingHandler(cfg config.Config, buses *repository.BusRepo, bookings *repository.BookingRepo) *BookingHandler {
	if buses == nil || bookings == nil {
		panic("nil repository passed to NewBookingHandler")
	}
	return &BookingHandler{Cfg: cfg, Buses: buses, Bookings: bookings}
}

// ----- DTOs -----

type passengerReq struct {
	Name       string `json:"name"`
	Age        int    `json:"age"`
	Gender     string `json:"gender"` // recorded for the manifest, optional
	SeatNumber string `json:"seat_number"`
}

type createBookingReq struct {
	BusID      uint64         `json:"bus_id"`
	Passengers []passengerReq `json:"passengers"`
}

// validate normalizes the request and returns a client-facing message when
// it is malformed. Each passenger claims exactly one distinct seat.
func (req *createBookingReq) validate(maxSeats int) string {
	if req.BusID == 0 {
		return "bus_id required"
	}
	if len(req.Passengers) == 0 {
		return "at least one passenger required"
	}
	if len(req.Passengers) > maxSeats {
		return "too many seats in one booking"
	}
	seen := make(map[string]bool, len(req.Passengers))
	for i := range req.Passengers {
		p := &req.Passengers[i]
		p.Name = strings.TrimSpace(p.Name)
		p.SeatNumber = strings.ToUpper(strings.TrimSpace(p.SeatNumber))
		p.Gender = strings.ToUpper(strings.TrimSpace(p.Gender))
		switch {
		case p.Name == "":
			return "passenger name required"
		case p.Age <= 0 || p.Age > 120:
			return "passenger age out of range"
		case p.SeatNumber == "":
			return "passenger seat_number required"
		case seen[p.SeatNumber]:
			return "duplicate seat_number " + p.SeatNumber
		}
		seen[p.SeatNumber] = true
	}
	return ""
}

func (req *createBookingReq) seatNumbers() []string {
	out := make([]string, len(req.Passengers))
	for i, p := range req.Passengers {
		out[i] = p.SeatNumber
	}
	return out
}

// CreateBooking reserves seats all-or-nothing. The in-memory manifest check
// produces precise error lists up front; the conditional UPDATE inside the
// transaction is what actually decides races, so a seat grabbed between the
// two steps still fails the batch cleanly.
func (h *BookingHandler) CreateBooking(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createBookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validate(h.Cfg.MaxSeatsPerBooking); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	bus, err := h.Buses.GetByID(ctx, req.BusID)
	if err != nil {
		if errors.Is(err, repository.ErrBusNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "bus not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load bus failed"})
	}
	if !bus.IsActive {
		return c.JSON(http.StatusConflict, echo.Map{"error": "trip is not open for booking"})
	}
	if dep, err := bus.DepartureAt(); err != nil || !dep.After(time.Now().UTC()) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "trip has already departed"})
	}

	rows, err := h.Buses.SeatsByBus(ctx, req.BusID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load seats failed"})
	}
	statuses := make([]seatgrid.SeatStatus, len(rows))
	seatTypes := make(map[string]seatgrid.SeatType, len(rows))
	for i, r := range rows {
		statuses[i] = r.SeatStatus
		seatTypes[r.SeatNumber] = r.Type
	}
	manifest, err := seatgrid.NewManifest(statuses)
	if err != nil {
		c.Logger().Errorf("bus %d seat data corrupt: %v", req.BusID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "seat data corrupt"})
	}
	if err := manifest.Reserve(req.seatNumbers(), userID, 0); err != nil {
		return seatErrorResponse(c, err)
	}

	total := uint32(0)
	passengers := make([]repository.Passenger, len(req.Passengers))
	for i, p := range req.Passengers {
		price := bus.SeatPriceCents(seatTypes[p.SeatNumber])
		total += price
		passengers[i] = repository.Passenger{
			Name:       p.Name,
			Age:        p.Age,
			Gender:     p.Gender,
			SeatNumber: p.SeatNumber,
			PriceCents: price,
		}
	}

	tx, err := h.Bookings.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "begin tx failed"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	booking := &repository.Booking{
		BookingRef:       uuid.NewString(),
		UserID:           userID,
		BusID:            req.BusID,
		Status:           "CONFIRMED",
		TotalAmountCents: total,
	}
	if err := h.Bookings.CreateTx(ctx, tx, booking); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create booking failed"})
	}
	if err := h.Bookings.ReserveSeatsTx(ctx, tx, req.BusID, userID, booking.ID, req.seatNumbers()); err != nil {
		return seatErrorResponse(c, err)
	}
	if err := h.Bookings.DecrementAvailableTx(ctx, tx, req.BusID, len(req.Passengers)); err != nil {
		return c.JSON(http.StatusConflict, echo.Map{"error": "not enough seats available"})
	}
	for i := range passengers {
		passengers[i].BookingID = booking.ID
	}
	if err := h.Bookings.AddPassengersTx(ctx, tx, passengers); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save passengers failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}
	committed = true

	// Best effort: a broker outage must not fail a committed booking.
	go func(ev queue.BookingConfirmedEvent) {
		pubCtx, pubCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer pubCancel()
		_ = queue_publisher.PublishBookingConfirmed(pubCtx, ev)
	}(queue.BookingConfirmedEvent{
		BookingID:        booking.ID,
		BookingRef:       booking.BookingRef,
		UserID:           userID,
		BusID:            bus.ID,
		BusName:          bus.Name,
		FromCity:         bus.FromCity,
		ToCity:           bus.ToCity,
		JourneyDate:      bus.JourneyDate,
		DepartureTime:    bus.DepartureTime,
		SeatNumbers:      req.seatNumbers(),
		TotalAmountCents: total,
		ConfirmedAt:      time.Now().UTC().Format(time.RFC3339),
	})

	return c.JSON(http.StatusCreated, echo.Map{
		"id":                 booking.ID,
		"booking_ref":        booking.BookingRef,
		"status":             booking.Status,
		"total_amount_cents": total,
		"seats":              req.seatNumbers(),
	})
}

// seatErrorResponse maps seat-level failures onto HTTP responses naming the
// exact seats involved.
func seatErrorResponse(c echo.Context, err error) error {
	var conflict *seatgrid.SeatConflictError
	if errors.As(err, &conflict) {
		return c.JSON(http.StatusConflict, echo.Map{
			"error": "seats already booked",
			"seats": conflict.SeatNumbers,
		})
	}
	var nf *seatgrid.SeatNotFoundError
	if errors.As(err, &nf) {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{
			"error": "unknown seats for this bus",
			"seats": nf.SeatNumbers,
		})
	}
	c.Logger().Errorf("reserve seats: %v", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reserve seats failed"})
}

// CancelBooking releases a booking's seats and restores availability. The
// release is scoped to the booking, so retrying a cancellation is harmless
// and the availability counter moves only by the number of seats actually
// freed.
func (h *BookingHandler) CancelBooking(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	tx, err := h.Bookings.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "begin tx failed"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	info, err := h.Bookings.GetCancelInfoTx(ctx, tx, bookingID, userID)
	switch {
	case errors.Is(err, repository.ErrBookingNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load booking failed"})
	}

	if werr := repository.CheckCancelWindow(info.DepartureAt, time.Now().UTC(), float64(h.Cfg.CancelWindowHours)); werr != nil {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": werr.Error()})
	}

	released, err := h.Bookings.ReleaseSeatsTx(ctx, tx, info.BusID, bookingID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "release seats failed"})
	}
	if err := h.Bookings.IncrementAvailableTx(ctx, tx, info.BusID, released); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "restore availability failed"})
	}
	if err := h.Bookings.MarkCancelledTx(ctx, tx, bookingID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancel booking failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}
	committed = true

	go func(ev queue.BookingCancelledEvent) {
		pubCtx, pubCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer pubCancel()
		_ = queue_publisher.PublishBookingCancelled(pubCtx, ev)
	}(queue.BookingCancelledEvent{
		BookingID:     bookingID,
		BookingRef:    info.BookingRef,
		UserID:        userID,
		BusID:         info.BusID,
		SeatNumbers:   info.SeatNumbers,
		SeatsReleased: released,
		CancelledAt:   time.Now().UTC().Format(time.RFC3339),
	})

	return c.JSON(http.StatusOK, echo.Map{
		"id":             bookingID,
		"status":         "CANCELLED",
		"seats_released": released,
	})
}

// ListMyBookings returns the caller's bookings, newest first.
func (h *BookingHandler) ListMyBookings(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	bookings, err := h.Bookings.ListByUser(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list bookings failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": bookings})
}

// GetBooking returns one booking with its passengers.
func (h *BookingHandler) GetBooking(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	d, err := h.Bookings.GetByIDForUser(ctx, bookingID, userID)
	switch {
	case errors.Is(err, repository.ErrBookingNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load booking failed"})
	}
	return c.JSON(http.StatusOK, d)
}

// InitiatePayment attaches a generated payment reference to a confirmed
// booking. Actual charging happens against an external provider keyed by
// this reference.
func (h *BookingHandler) InitiatePayment(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	ref := uuid.NewString()
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Bookings.SetPaymentRef(ctx, bookingID, userID, ref); err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no confirmed booking to pay"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "initiate payment failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"id": bookingID, "payment_ref": ref})
}
