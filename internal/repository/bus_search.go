package repository

import (
	"context"
	"strings"
)

// BusSearchQuery defines filters & pagination for the public trip search.
type BusSearchQuery struct {
	FromCity    string
	ToCity      string
	JourneyDate string // YYYY-MM-DD; empty matches any date from today on
	Page        int
	PageSize    int
}

// PublicBusRow is the shape the search endpoint returns: enough to render a
// results list without exposing operator internals.
type PublicBusRow struct {
	ID             uint64  `json:"id"`
	Name           string  `json:"name"`
	BusNumber      string  `json:"bus_number"`
	FromCity       string  `json:"from_city"`
	ToCity         string  `json:"to_city"`
	JourneyDate    string  `json:"journey_date"`
	DepartureTime  string  `json:"departure_time"`
	ArrivalTime    string  `json:"arrival_time"`
	TotalSeats     int     `json:"total_seats"`
	AvailableSeats int     `json:"available_seats"`
	PriceCents     uint64  `json:"price_cents"`
	Price          float64 `json:"price"`
}

// SearchTrips lists active trips matching the filters, soonest departure
// first, with a total count for pagination.
func (r *BusRepo) SearchTrips(ctx context.Context, q BusSearchQuery) ([]PublicBusRow, int64, error) {
	where := []string{"b.is_active = 1"}
	args := []any{}

	if q.JourneyDate != "" {
		where = append(where, "b.journey_date = ?")
		args = append(args, q.JourneyDate)
	} else {
		where = append(where, "b.journey_date >= CURDATE()")
	}
	if q.FromCity != "" {
		where = append(where, "LOWER(b.from_city) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.FromCity)+"%")
	}
	if q.ToCity != "" {
		where = append(where, "LOWER(b.to_city) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.ToCity)+"%")
	}

	cond := strings.Join(where, " AND ")

	var total int64
	countSQL := `SELECT COUNT(*) FROM buses b WHERE ` + cond
	if err := r.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := q.PageSize
	offset := (q.Page - 1) * q.PageSize

	dataSQL := `SELECT
			b.id,
			b.name,
			b.bus_number,
			b.from_city,
			b.to_city,
			b.journey_date,
			b.departure_time,
			b.arrival_time,
			b.total_seats,
			b.available_seats,
			b.price_cents
		FROM buses b
		WHERE ` + cond + `
		ORDER BY b.journey_date ASC, b.departure_time ASC
		LIMIT ? OFFSET ?`

	argsData := append(append([]any{}, args...), limit, offset)

	rows, err := r.db.QueryContext(ctx, dataSQL, argsData...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]PublicBusRow, 0, limit)
	for rows.Next() {
		var d PublicBusRow
		if err := rows.Scan(
			&d.ID,
			&d.Name,
			&d.BusNumber,
			&d.FromCity,
			&d.ToCity,
			&d.JourneyDate,
			&d.DepartureTime,
			&d.ArrivalTime,
			&d.TotalSeats,
			&d.AvailableSeats,
			&d.PriceCents,
		); err != nil {
			return nil, 0, err
		}
		d.Price = float64(d.PriceCents) / 100.0
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
