package models

import (
	"time"
)

// SeatStatus represents the booking status of a seat for a travel date
type SeatStatus string

const (
	SeatStatusAvailable SeatStatus = "available"
	SeatStatusHeld      SeatStatus = "held"
	SeatStatusBooked    SeatStatus = "booked"
)

// Seat represents a physical seat on a bus for a specific travel date
type Seat struct {
	ID                  string     `json:"id" db:"id"`
	BusID               string     `json:"bus_id" db:"bus_id"`
	TravelDate          time.Time  `json:"travel_date" db:"travel_date"`
	SeatLabel           string     `json:"seat_label" db:"seat_label"`
	Status              SeatStatus `json:"status" db:"status"`
	IsPermanentlyBooked bool       `json:"is_permanently_booked" db:"is_permanently_booked"`
	TicketID            *string    `json:"ticket_id,omitempty" db:"ticket_id"`
	BookingID           *string    `json:"booking_id,omitempty" db:"booking_id"`
	HeldByReservationID *string    `json:"held_by_reservation_id,omitempty" db:"held_by_reservation_id"`
	HeldUntil           *time.Time `json:"held_until,omitempty" db:"held_until"`
	CreatedAt           time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at" db:"updated_at"`
}

// IsReleasable reports whether the seat may be returned to the available pool.
// Permanently booked seats stay booked no matter which release path asks.
func (s *Seat) IsReleasable() bool {
	return !s.IsPermanentlyBooked
}
