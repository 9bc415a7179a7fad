package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/yatrago/bus-reservation/internal/repository"
	"github.com/yatrago/bus-reservation/internal/seatgrid"
)

// PublicHandler serves the unauthenticated browse endpoints: trip search,
// trip details and the seat map customers pick from.
type PublicHandler struct {
	Buses *repository.BusRepo
}

func NewPublicHandler(buses *repository.BusRepo) *PublicHandler {
	if buses == nil {
		panic("nil repository passed to NewPublicHandler")
	}
	return &PublicHandler{Buses: buses}
}

// SearchTrips lists active trips by route and date with pagination.
// Query params: from, to, date (YYYY-MM-DD), page, page_size.
func (h *PublicHandler) SearchTrips(c echo.Context) error {
	q := repository.BusSearchQuery{
		FromCity:    strings.TrimSpace(c.QueryParam("from")),
		ToCity:      strings.TrimSpace(c.QueryParam("to")),
		JourneyDate: strings.TrimSpace(c.QueryParam("date")),
		Page:        queryInt(c, "page", 1),
		PageSize:    queryInt(c, "page_size", 20),
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 || q.PageSize > 100 {
		q.PageSize = 20
	}
	if q.JourneyDate != "" {
		if _, err := time.Parse("2006-01-02", q.JourneyDate); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	rows, total, err := h.Buses.SearchTrips(ctx, q)
	if err != nil {
		c.Logger().Errorf("search trips: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "search failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"data":      rows,
		"total":     total,
		"page":      q.Page,
		"page_size": q.PageSize,
	})
}

// GetTrip returns the public view of one trip.
func (h *PublicHandler) GetTrip(c echo.Context) error {
	busID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid bus id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	bus, err := h.Buses.GetByID(ctx, busID)
	if err != nil {
		if errors.Is(err, repository.ErrBusNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "bus not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load bus failed"})
	}
	if !bus.IsActive {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "bus not found"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"id":              bus.ID,
		"name":            bus.Name,
		"bus_number":      bus.BusNumber,
		"from_city":       bus.FromCity,
		"to_city":         bus.ToCity,
		"journey_date":    bus.JourneyDate,
		"departure_time":  bus.DepartureTime,
		"arrival_time":    bus.ArrivalTime,
		"total_seats":         bus.TotalSeats,
		"available_seats":     bus.AvailableSeats,
		"price_cents":         bus.PriceCents,
		"price_seater_cents":  bus.SeatPriceCents(seatgrid.TypeSeater),
		"price_sleeper_cents": bus.SeatPriceCents(seatgrid.TypeSleeper),
		"layout":              bus.Layout,
	})
}

// GetSeatMap reconstructs the trip's grid from the stored seat rows and
// overlays live occupancy, so the client can draw the deck exactly as the
// operator designed it. Corrupt or missing layout data is a server-side
// defect: it gets logged and surfaces as 409, never as a silently wrong
// map.
func (h *PublicHandler) GetSeatMap(c echo.Context) error {
	busID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid bus id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	bus, err := h.Buses.GetByID(ctx, busID)
	if err != nil {
		if errors.Is(err, repository.ErrBusNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "bus not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load bus failed"})
	}
	rows, err := h.Buses.SeatsByBus(ctx, busID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load seats failed"})
	}

	seats := make([]seatgrid.Seat, len(rows))
	occupancy := make(map[string]bool, len(rows))
	for i, r := range rows {
		seats[i] = r.Seat
		occupancy[r.SeatNumber] = r.IsBooked
	}
	grids, err := seatgrid.RenderAll(bus.Layout, seats)
	if err != nil {
		c.Logger().Errorf("seat map for bus %d unrenderable: %v", busID, err)
		return c.JSON(http.StatusConflict, echo.Map{"error": "seat map unavailable for this trip"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"bus_id":              busID,
		"layout":              bus.Layout,
		"decks":               grids,
		"booked":              bookedNumbers(rows),
		"occupancy":           occupancy,
		"available_seats":     bus.AvailableSeats,
		"total_seats":         bus.TotalSeats,
		"price_cents":         bus.PriceCents,
		"price_seater_cents":  bus.SeatPriceCents(seatgrid.TypeSeater),
		"price_sleeper_cents": bus.SeatPriceCents(seatgrid.TypeSleeper),
	})
}

func bookedNumbers(rows []repository.BusSeat) []string {
	out := []string{}
	for _, r := range rows {
		if r.IsBooked {
			out = append(out, r.SeatNumber)
		}
	}
	return out
}

func queryInt(c echo.Context, name string, def int) int {
	v := c.QueryParam(name)
	if v == "" {
		return def
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return def
}
