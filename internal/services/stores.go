package services

import (
	"encoding/json"
	"time"

	"github.com/bussewa/booking-backend/internal/models"
)

// SeatStore is the seat inventory surface the lifecycle engine drives.
// The engine is the only component that transitions seat status.
type SeatStore interface {
	MarkHeld(reservationID, busID string, seatIDs []string, heldUntil time.Time) (int, error)
	ReleaseHolds(reservationID string) error
	MarkBooked(busID string, seatIDs []string, ticketID, bookingID string) (int, error)
	MarkAvailable(busID string, seatIDs []string) (int, error)
	GetExisting(busID string, seatIDs []string) ([]string, error)
	GetPermanentlyBooked(seatIDs []string) ([]models.Seat, error)
	ReleaseOrphanedHolds(now time.Time) (int, error)
}

// ReservationStore persists seat holds
type ReservationStore interface {
	Create(reservation *models.Reservation) error
	GetByID(id string) (*models.Reservation, error)
	GetByCode(code string) (*models.Reservation, error)
	LinkTicket(id, ticketID string) error
	MarkPermanent(id string, ticketID, bookingID *string) error
	Delete(id string) error
	ListExpired(cutoff time.Time, limit int) ([]*models.Reservation, error)
	DeletePromoted(limit int) (int, error)
}

// TicketStore persists the financial ledger
type TicketStore interface {
	Create(ticket *models.Ticket) error
	GetByID(id string) (*models.Ticket, error)
	GetByBookingID(bookingID string) (*models.Ticket, error)
	GetPaidByReservation(reservationID string) (*models.Ticket, error)
	FindPaidBySeatOverlap(seatIDs []string) ([]*models.Ticket, error)
	ConfirmPaid(id, bookingID string, seatIDs []string) error
	UpdateStatus(id string, status models.TicketStatus, paymentStatus models.TicketPaymentStatus) error
}

// PaymentStore persists gateway payment records
type PaymentStore interface {
	Create(payment *models.Payment) error
	GetByPidx(pidx string) (*models.Payment, error)
	MarkStatus(id string, status models.PaymentStatus, transactionID string, raw json.RawMessage) error
	SaveRawPayload(id string, raw json.RawMessage) error
}

// TripCatalog supplies read-only trip display data for ticket snapshots
type TripCatalog interface {
	GetTripSnapshot(busID string, travelDate time.Time) (*models.TripSnapshot, error)
}
