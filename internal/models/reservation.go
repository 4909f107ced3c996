package models

import (
	"time"
)

// Reservation represents a temporary hold on a set of seats while the
// passenger completes payment. Expiry is computed from CreatedAt so that a
// TTL change in configuration applies to holds already in flight.
type Reservation struct {
	ID             string    `json:"id" db:"id"`
	Code           string    `json:"code" db:"code"`
	BusID          string    `json:"bus_id" db:"bus_id"`
	TravelDate     time.Time `json:"travel_date" db:"travel_date"`
	SeatIDs        UUIDArray `json:"seat_ids" db:"seat_ids"`
	PassengerName  string    `json:"passenger_name" db:"passenger_name"`
	PassengerPhone string    `json:"passenger_phone" db:"passenger_phone"`
	PassengerEmail *string   `json:"passenger_email,omitempty" db:"passenger_email"`
	IsPermanent    bool      `json:"is_permanent" db:"is_permanent"`
	TicketID       *string   `json:"ticket_id,omitempty" db:"ticket_id"`
	BookingID      *string   `json:"booking_id,omitempty" db:"booking_id"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// ExpiresAt returns the moment the hold lapses for the given TTL
func (r *Reservation) ExpiresAt(ttl time.Duration) time.Time {
	return r.CreatedAt.Add(ttl)
}

// IsExpiredAt reports whether the hold has lapsed at the given instant.
// Permanent reservations never expire.
func (r *Reservation) IsExpiredAt(now time.Time, ttl time.Duration) bool {
	if r.IsPermanent {
		return false
	}
	return now.After(r.ExpiresAt(ttl))
}

// RemainingAt returns how long the hold is still valid at the given instant,
// clamped at zero
func (r *Reservation) RemainingAt(now time.Time, ttl time.Duration) time.Duration {
	remaining := r.ExpiresAt(ttl).Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// PassengerInfo carries passenger contact details supplied at hold time
type PassengerInfo struct {
	Name  string  `json:"name" binding:"required"`
	Phone string  `json:"phone" binding:"required"`
	Email *string `json:"email,omitempty"`
}

// CreateHoldRequest is the request to place a temporary hold on seats
type CreateHoldRequest struct {
	BusID      string        `json:"bus_id" binding:"required"`
	TravelDate string        `json:"travel_date" binding:"required"` // YYYY-MM-DD
	SeatIDs    []string      `json:"seat_ids" binding:"required,min=1"`
	Passenger  PassengerInfo `json:"passenger" binding:"required"`
}

// CreateHoldResponse is returned when a hold is successfully placed
type CreateHoldResponse struct {
	ReservationID string    `json:"reservation_id"`
	Code          string    `json:"code"`
	ExpiresAt     time.Time `json:"expires_at"`
	TTLSeconds    int       `json:"ttl_seconds"`
}

// ReservationStatusResponse reports the current state of a hold
type ReservationStatusResponse struct {
	Expired          bool    `json:"expired"`
	IsPaid           bool    `json:"is_paid"`
	RemainingSeconds *int    `json:"remaining_seconds,omitempty"`
	ExpiringSoon     bool    `json:"expiring_soon"`
	BookingID        *string `json:"booking_id,omitempty"`
}

// ReleaseReservationResponse reports the outcome of a release attempt.
// RetainedSeatCount is the number of seats kept booked because a paid
// ticket claims them.
type ReleaseReservationResponse struct {
	Released          bool `json:"released"`
	RetainedSeatCount int  `json:"retained_seat_count"`
}
