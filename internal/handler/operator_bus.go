package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/yatrago/bus-reservation/internal/repository"
	"github.com/yatrago/bus-reservation/internal/seatgrid"
)

// OperatorHandler serves the trip-management endpoints: creating buses with
// designed seat layouts, previewing layouts, replacing them and inspecting
// bookings.
type OperatorHandler struct {
	Buses    *repository.BusRepo
	Bookings *repository.BookingRepo
}

func NewOperatorHandler(buses *repository.BusRepo, bookings *repository.BookingRepo) *OperatorHandler {
	if buses == nil || bookings == nil {
		panic("nil repository passed to NewOperatorHandler")
	}
	return &OperatorHandler{Buses: buses, Bookings: bookings}
}

// ----- DTOs -----

// seatPlacement is one designer action: put a seat of the given type on a
// cell. Placements apply in order, so later entries may replace earlier
// ones on the same cell.
type seatPlacement struct {
	Deck string `json:"deck"` // LOWER | UPPER, empty means LOWER
	Row  int    `json:"row"`
	Col  int    `json:"col"`
	Type string `json:"type"` // SEATER | SLEEPER
}

type layoutReq struct {
	Config seatgrid.LayoutConfig `json:"config"`
	Seats  []seatPlacement       `json:"seats"`
}

type createBusReq struct {
	Name              string    `json:"name"`
	BusNumber         string    `json:"bus_number"`
	FromCity          string    `json:"from_city"`
	ToCity            string    `json:"to_city"`
	JourneyDate       string    `json:"journey_date"`   // YYYY-MM-DD
	DepartureTime     string    `json:"departure_time"` // HH:MM
	ArrivalTime       string    `json:"arrival_time"`   // HH:MM
	PriceCents        uint32    `json:"price_cents"`
	PriceSeaterCents  uint32    `json:"price_seater_cents"`
	PriceSleeperCents uint32    `json:"price_sleeper_cents"`
	Layout            layoutReq `json:"layout"`
}

// buildLayout runs the designer over the submitted placements and finalizes
// the grid. The error return is already shaped for the client.
func buildLayout(req layoutReq) ([]seatgrid.Seat, error) {
	d := seatgrid.NewDesigner(req.Config)
	for _, p := range req.Seats {
		deck, err := seatgrid.ParseDeck(p.Deck)
		if err != nil {
			return nil, err
		}
		st, err := seatgrid.ParseSeatType(p.Type)
		if err != nil {
			return nil, err
		}
		if err := d.PlaceSeat(deck, p.Row, p.Col, st); err != nil {
			return nil, err
		}
	}
	return d.Finalize()
}

// layoutErrorResponse maps designer/validation failures onto 422 responses
// carrying the precise violation details.
func layoutErrorResponse(c echo.Context, err error) error {
	var verr *seatgrid.LayoutValidationError
	if errors.As(err, &verr) {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{
			"error":      "invalid layout",
			"violations": verr.Violations,
		})
	}
	var perr *seatgrid.PlacementError
	if errors.As(err, &perr) {
		body := echo.Map{"error": perr.Error()}
		if perr.Conflict != nil {
			body["conflict"] = perr.Conflict
		}
		return c.JSON(http.StatusUnprocessableEntity, body)
	}
	return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
}

// validateTrip checks the trip fields shared by create and update.
func validateTrip(req *createBusReq) string {
	req.Name = strings.TrimSpace(req.Name)
	req.BusNumber = strings.TrimSpace(req.BusNumber)
	req.FromCity = strings.TrimSpace(req.FromCity)
	req.ToCity = strings.TrimSpace(req.ToCity)
	switch {
	case req.Name == "" || req.BusNumber == "":
		return "name and bus_number required"
	case req.FromCity == "" || req.ToCity == "":
		return "from_city and to_city required"
	case strings.EqualFold(req.FromCity, req.ToCity):
		return "from_city and to_city must differ"
	case req.PriceCents == 0:
		return "price_cents required"
	}
	if _, err := repository.CombineDeparture(req.JourneyDate, req.DepartureTime); err != nil {
		return "journey_date must be YYYY-MM-DD and departure_time HH:MM"
	}
	if req.ArrivalTime != "" {
		if _, err := time.Parse("15:04", req.ArrivalTime); err != nil {
			return "arrival_time must be HH:MM"
		}
	}
	return ""
}

// CreateBus designs the seat grid from the submitted placements, finalizes
// it and persists the trip with its seats in one transaction.
func (h *OperatorHandler) CreateBus(c echo.Context) error {
	operatorID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createBusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := validateTrip(&req); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	seats, err := buildLayout(req.Layout)
	if err != nil {
		return layoutErrorResponse(c, err)
	}
	if len(seats) == 0 {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "layout has no seats"})
	}

	bus := &repository.Bus{
		OperatorID:        operatorID,
		Name:              req.Name,
		BusNumber:         req.BusNumber,
		FromCity:          req.FromCity,
		ToCity:            req.ToCity,
		JourneyDate:       req.JourneyDate,
		DepartureTime:     req.DepartureTime,
		ArrivalTime:       req.ArrivalTime,
		Layout:            req.Layout.Config,
		PriceCents:        req.PriceCents,
		PriceSeaterCents:  req.PriceSeaterCents,
		PriceSleeperCents: req.PriceSleeperCents,
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()
	if err := h.Buses.CreateWithSeats(ctx, bus, seats); err != nil {
		c.Logger().Errorf("create bus: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create bus failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"id":          bus.ID,
		"total_seats": bus.TotalSeats,
		"seats":       seats,
	})
}

// PreviewLayout runs the designer and reconstructor over the submitted
// placements and returns the rendered grids without persisting anything.
// Operators iterate on a design against this endpoint before creating the
// trip.
func (h *OperatorHandler) PreviewLayout(c echo.Context) error {
	var req layoutReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	seats, err := buildLayout(req)
	if err != nil {
		return layoutErrorResponse(c, err)
	}
	grids, err := seatgrid.RenderAll(req.Config, seats)
	if err != nil {
		return layoutErrorResponse(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"total_seats": len(seats),
		"decks":       grids,
	})
}

// ReplaceLayout swaps a trip's layout for a newly designed one. Fails with
// 409 once any seat of the trip is booked.
func (h *OperatorHandler) ReplaceLayout(c echo.Context) error {
	operatorID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	busID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid bus id"})
	}
	var req layoutReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	seats, err := buildLayout(req)
	if err != nil {
		return layoutErrorResponse(c, err)
	}
	if len(seats) == 0 {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "layout has no seats"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()
	switch err := h.Buses.ReplaceLayout(ctx, busID, operatorID, req.Config, seats); {
	case err == nil:
		return c.JSON(http.StatusOK, echo.Map{"id": busID, "total_seats": len(seats)})
	case errors.Is(err, repository.ErrBusNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "bus not found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "layout is locked by existing bookings"})
	default:
		c.Logger().Errorf("replace layout: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "replace layout failed"})
	}
}

// ListBuses returns the operator's own trips.
func (h *OperatorHandler) ListBuses(c echo.Context) error {
	operatorID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	buses, err := h.Buses.ListByOperator(ctx, operatorID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list buses failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"buses": buses})
}

// GetBus returns one of the operator's trips including the live seat rows.
func (h *OperatorHandler) GetBus(c echo.Context) error {
	operatorID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	busID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid bus id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	bus, err := h.Buses.GetByIDAndOperator(ctx, busID, operatorID)
	switch {
	case errors.Is(err, repository.ErrBusNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "bus not found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load bus failed"})
	}
	seats, err := h.Buses.SeatsByBus(ctx, busID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load seats failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"bus": bus, "seats": seats})
}

// DeleteBus removes a trip without confirmed bookings.
func (h *OperatorHandler) DeleteBus(c echo.Context) error {
	operatorID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	busID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid bus id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()
	switch err := h.Buses.DeleteByIDAndOperator(ctx, busID, operatorID); {
	case err == nil:
		return c.NoContent(http.StatusNoContent)
	case errors.Is(err, repository.ErrBusNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "bus not found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "bus has confirmed bookings"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete bus failed"})
	}
}

// ListBusBookings returns every booking on one of the operator's trips.
func (h *OperatorHandler) ListBusBookings(c echo.Context) error {
	operatorID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	busID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid bus id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	bookings, err := h.Bookings.ListByBusForOperator(ctx, busID, operatorID)
	switch {
	case errors.Is(err, repository.ErrBusNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "bus not found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list bookings failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": bookings})
}
