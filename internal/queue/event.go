// Package queue defines message payloads exchanged over the message broker.
package queue

// BookingConfirmedEvent is published when a booking is confirmed. It carries
// enough trip context for downstream consumers (ticket mailers, analytics)
// to act without querying the primary database.
type BookingConfirmedEvent struct {
	BookingID        uint64   `json:"booking_id"`
	BookingRef       string   `json:"booking_ref"`
	UserID           uint64   `json:"user_id"`
	BusID            uint64   `json:"bus_id"`
	BusName          string   `json:"bus_name"`
	FromCity         string   `json:"from_city"`
	ToCity           string   `json:"to_city"`
	JourneyDate      string   `json:"journey_date"`
	DepartureTime    string   `json:"departure_time"`
	SeatNumbers      []string `json:"seats"`
	TotalAmountCents uint32   `json:"total_amount_cents"`
	ConfirmedAt      string   `json:"confirmed_at"`
}

// BookingCancelledEvent is published when a customer cancels a booking.
// SeatsReleased counts the seats actually freed; a retried cancellation
// publishes zero.
type BookingCancelledEvent struct {
	BookingID     uint64   `json:"booking_id"`
	BookingRef    string   `json:"booking_ref"`
	UserID        uint64   `json:"user_id"`
	BusID         uint64   `json:"bus_id"`
	SeatNumbers   []string `json:"seats"`
	SeatsReleased int      `json:"seats_released"`
	CancelledAt   string   `json:"cancelled_at"`
}
