package models

import (
	"fmt"
	"math/rand"
	"regexp"
	"time"
)

// TicketStatus represents the lifecycle state of a ticket
type TicketStatus string

const (
	TicketStatusPending   TicketStatus = "pending"
	TicketStatusConfirmed TicketStatus = "confirmed"
	TicketStatusCanceled  TicketStatus = "canceled"
)

// TicketPaymentStatus represents the payment state recorded on a ticket
type TicketPaymentStatus string

const (
	TicketPaymentPending  TicketPaymentStatus = "pending"
	TicketPaymentPaid     TicketPaymentStatus = "paid"
	TicketPaymentRefunded TicketPaymentStatus = "refunded"
)

// Ticket is the financial record of a booking. Tickets are never deleted;
// refunds and cancellations flip statuses instead.
type Ticket struct {
	ID             string              `json:"id" db:"id"`
	BookingID      string              `json:"booking_id" db:"booking_id"`
	ReservationID  *string             `json:"reservation_id,omitempty" db:"reservation_id"`
	BusID          string              `json:"bus_id" db:"bus_id"`
	TravelDate     time.Time           `json:"travel_date" db:"travel_date"`
	SeatIDs        UUIDArray           `json:"seat_ids" db:"seat_ids"`
	SeatLabels     StringArray         `json:"seat_labels" db:"seat_labels"`
	Price          float64             `json:"price" db:"price"`
	Status         TicketStatus        `json:"status" db:"status"`
	PaymentStatus  TicketPaymentStatus `json:"payment_status" db:"payment_status"`
	PassengerName  string              `json:"passenger_name" db:"passenger_name"`
	PassengerPhone string              `json:"passenger_phone" db:"passenger_phone"`
	PassengerEmail *string             `json:"passenger_email,omitempty" db:"passenger_email"`
	RouteName      *string             `json:"route_name,omitempty" db:"route_name"`
	BusNumber      *string             `json:"bus_number,omitempty" db:"bus_number"`
	DepartureTime  *time.Time          `json:"departure_time,omitempty" db:"departure_time"`
	CreatedAt      time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at" db:"updated_at"`
}

// IsPaid reports whether the ticket represents settled money
func (t *Ticket) IsPaid() bool {
	return t.PaymentStatus == TicketPaymentPaid || t.Status == TicketStatusConfirmed
}

var bookingIDPattern = regexp.MustCompile(`^BK-\d+$`)

// IsValidBookingID reports whether id matches the canonical BK-<digits> format
func IsValidBookingID(id string) bool {
	return bookingIDPattern.MatchString(id)
}

// NewBookingID generates a booking reference in the canonical BK-<digits>
// format. The timestamp prefix keeps references sortable; the random suffix
// avoids collisions for bookings created in the same second.
func NewBookingID() string {
	return fmt.Sprintf("BK-%d%04d", time.Now().Unix(), rand.Intn(10000))
}

// ConfirmBookingRequest carries whatever identifiers the client still has
// after returning from the payment gateway. All fields are optional; the
// server works with whichever ones resolve.
type ConfirmBookingRequest struct {
	ReservationID string `json:"reservation_id"`
	TicketID      string `json:"ticket_id"`
	BookingID     string `json:"booking_id"`
}

// ConfirmBookingResponse is returned after a confirmation attempt
type ConfirmBookingResponse struct {
	Success   bool   `json:"success"`
	BookingID string `json:"booking_id"`
}
