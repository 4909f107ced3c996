package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/bussewa/booking-backend/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// TicketRepository handles ticket persistence. Tickets are append-mostly:
// rows are never deleted, only their statuses change.
type TicketRepository struct {
	db DB
}

// NewTicketRepository creates a new ticket repository
func NewTicketRepository(db DB) *TicketRepository {
	return &TicketRepository{db: db}
}

const ticketColumns = `
	id, booking_id, reservation_id, bus_id, travel_date, seat_ids, seat_labels,
	price, status, payment_status, passenger_name, passenger_phone, passenger_email,
	route_name, bus_number, departure_time, created_at, updated_at
`

// Create inserts a new ticket, assigning ID, booking reference and
// timestamps when absent
func (r *TicketRepository) Create(ticket *models.Ticket) error {
	if ticket.ID == "" {
		ticket.ID = uuid.New().String()
	}
	if ticket.BookingID == "" {
		ticket.BookingID = models.NewBookingID()
	}
	if ticket.Status == "" {
		ticket.Status = models.TicketStatusPending
	}
	if ticket.PaymentStatus == "" {
		ticket.PaymentStatus = models.TicketPaymentPending
	}
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = time.Now()
	}
	ticket.UpdatedAt = ticket.CreatedAt

	query := `
		INSERT INTO tickets (` + ticketColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`

	_, err := r.db.Exec(query,
		ticket.ID, ticket.BookingID, ticket.ReservationID, ticket.BusID, ticket.TravelDate,
		ticket.SeatIDs, ticket.SeatLabels, ticket.Price, ticket.Status, ticket.PaymentStatus,
		ticket.PassengerName, ticket.PassengerPhone, ticket.PassengerEmail,
		ticket.RouteName, ticket.BusNumber, ticket.DepartureTime,
		ticket.CreatedAt, ticket.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create ticket: %w", err)
	}

	return nil
}

// GetByID fetches a ticket by primary key, nil without error when missing
func (r *TicketRepository) GetByID(id string) (*models.Ticket, error) {
	var ticket models.Ticket

	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id = $1`

	err := r.db.Get(&ticket, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}

	return &ticket, nil
}

// GetByBookingID fetches a ticket by its booking reference
func (r *TicketRepository) GetByBookingID(bookingID string) (*models.Ticket, error) {
	var ticket models.Ticket

	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE booking_id = $1`

	err := r.db.Get(&ticket, query, bookingID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get ticket by booking id: %w", err)
	}

	return &ticket, nil
}

// GetPaidByReservation returns the paid or confirmed ticket referencing the
// reservation, if one exists. This is the probe expiry and release paths use
// before discarding a hold.
func (r *TicketRepository) GetPaidByReservation(reservationID string) (*models.Ticket, error) {
	var ticket models.Ticket

	query := `
		SELECT ` + ticketColumns + `
		FROM tickets
		WHERE reservation_id = $1
		  AND (payment_status = 'paid' OR status = 'confirmed')
		ORDER BY created_at DESC
		LIMIT 1
	`

	err := r.db.Get(&ticket, query, reservationID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to probe paid ticket for reservation: %w", err)
	}

	return &ticket, nil
}

// FindPaidBySeatOverlap returns paid or confirmed tickets claiming any of
// the given seats. Used when a reservation lapses to stop its release from
// freeing seats another booking already paid for.
func (r *TicketRepository) FindPaidBySeatOverlap(seatIDs []string) ([]*models.Ticket, error) {
	if len(seatIDs) == 0 {
		return nil, nil
	}

	var tickets []*models.Ticket

	query := `
		SELECT ` + ticketColumns + `
		FROM tickets
		WHERE (payment_status = 'paid' OR status = 'confirmed')
		  AND seat_ids && $1
	`

	if err := r.db.Select(&tickets, query, pq.Array(seatIDs)); err != nil {
		return nil, fmt.Errorf("failed to find paid tickets by seat overlap: %w", err)
	}

	return tickets, nil
}

// ConfirmPaid marks the ticket confirmed and paid, repairing the booking
// reference and backfilling seat IDs in the same statement. Running it
// twice is harmless.
func (r *TicketRepository) ConfirmPaid(id, bookingID string, seatIDs []string) error {
	query := `
		UPDATE tickets
		SET status = 'confirmed', payment_status = 'paid',
		    booking_id = $1,
		    seat_ids = CASE WHEN cardinality(seat_ids) = 0 THEN $2 ELSE seat_ids END,
		    updated_at = NOW()
		WHERE id = $3
	`

	if _, err := r.db.Exec(query, bookingID, models.UUIDArray(seatIDs), id); err != nil {
		return fmt.Errorf("failed to confirm ticket: %w", err)
	}

	return nil
}

// UpdateStatus sets the lifecycle and payment statuses, for refund and
// cancellation paths
func (r *TicketRepository) UpdateStatus(id string, status models.TicketStatus, paymentStatus models.TicketPaymentStatus) error {
	query := `UPDATE tickets SET status = $1, payment_status = $2, updated_at = NOW() WHERE id = $3`

	if _, err := r.db.Exec(query, status, paymentStatus, id); err != nil {
		return fmt.Errorf("failed to update ticket status: %w", err)
	}

	return nil
}
