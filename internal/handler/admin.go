package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/yatrago/bus-reservation/internal/repository"
)

// AdminHandler serves the back-office endpoints: user management and a
// global view over bookings.
type AdminHandler struct {
	Users    *repository.UserRepo
	Tokens   *repository.TokenRepo
	Bookings *repository.BookingRepo
}

func NewAdminHandler(users *repository.UserRepo, tokens *repository.TokenRepo, bookings *repository.BookingRepo) *AdminHandler {
	if users == nil || tokens == nil || bookings == nil {
		panic("nil repository passed to NewAdminHandler")
	}
	return &AdminHandler{Users: users, Tokens: tokens, Bookings: bookings}
}

type adminUserRow struct {
	ID        uint64    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// ListUsers returns users, optionally filtered by ?role=.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	role := strings.ToUpper(strings.TrimSpace(c.QueryParam("role")))
	switch role {
	case "", "CUSTOMER", "OPERATOR", "ADMIN":
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown role"})
	}
	page := queryInt(c, "page", 1)
	pageSize := queryInt(c, "page_size", 50)
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	users, err := h.Users.List(ctx, role, pageSize, (page-1)*pageSize)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list users failed"})
	}
	rows := make([]adminUserRow, len(users))
	for i, u := range users {
		rows[i] = adminUserRow{
			ID: u.ID, Email: u.Email, FullName: u.FullName,
			Role: u.Role, IsActive: u.IsActive, CreatedAt: u.CreatedAt,
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"users": rows, "page": page, "page_size": pageSize})
}

type setActiveReq struct {
	IsActive bool `json:"is_active"`
}

// SetUserActive enables or disables an account. Disabling also revokes
// every refresh token, ending the user's sessions.
func (h *AdminHandler) SetUserActive(c echo.Context) error {
	userID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	var req setActiveReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Users.SetActive(ctx, userID, req.IsActive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update user failed"})
	}
	if !req.IsActive {
		_ = h.Tokens.RevokeAllForUser(ctx, userID)
	}
	return c.JSON(http.StatusOK, echo.Map{"id": userID, "is_active": req.IsActive})
}

// ListBookings returns every booking in the system, newest first.
func (h *AdminHandler) ListBookings(c echo.Context) error {
	page := queryInt(c, "page", 1)
	pageSize := queryInt(c, "page_size", 50)
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	bookings, err := h.Bookings.ListAll(ctx, pageSize, (page-1)*pageSize)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list bookings failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": bookings, "page": page, "page_size": pageSize})
}
