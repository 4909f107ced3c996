package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/bussewa/booking-backend/internal/models"
	"github.com/google/uuid"
)

// ReservationRepository handles reservation persistence
type ReservationRepository struct {
	db DB
}

// NewReservationRepository creates a new reservation repository
func NewReservationRepository(db DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

// Create inserts a new reservation. ID, code and timestamps are assigned
// here if the caller left them empty.
func (r *ReservationRepository) Create(reservation *models.Reservation) error {
	if reservation.ID == "" {
		reservation.ID = uuid.New().String()
	}
	if reservation.Code == "" {
		reservation.Code = newReservationCode()
	}
	if reservation.CreatedAt.IsZero() {
		reservation.CreatedAt = time.Now()
	}
	reservation.UpdatedAt = reservation.CreatedAt

	query := `
		INSERT INTO reservations (
			id, code, bus_id, travel_date, seat_ids,
			passenger_name, passenger_phone, passenger_email,
			is_permanent, ticket_id, booking_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.Exec(query,
		reservation.ID, reservation.Code, reservation.BusID, reservation.TravelDate,
		reservation.SeatIDs, reservation.PassengerName, reservation.PassengerPhone,
		reservation.PassengerEmail, reservation.IsPermanent, reservation.TicketID,
		reservation.BookingID, reservation.CreatedAt, reservation.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create reservation: %w", err)
	}

	return nil
}

// GetByID fetches a reservation by its primary key. Returns nil without
// error when no row exists.
func (r *ReservationRepository) GetByID(id string) (*models.Reservation, error) {
	var reservation models.Reservation

	query := `
		SELECT id, code, bus_id, travel_date, seat_ids,
		       passenger_name, passenger_phone, passenger_email,
		       is_permanent, ticket_id, booking_id, created_at, updated_at
		FROM reservations
		WHERE id = $1
	`

	err := r.db.Get(&reservation, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}

	return &reservation, nil
}

// GetByCode fetches a reservation by its short lookup code
func (r *ReservationRepository) GetByCode(code string) (*models.Reservation, error) {
	var reservation models.Reservation

	query := `
		SELECT id, code, bus_id, travel_date, seat_ids,
		       passenger_name, passenger_phone, passenger_email,
		       is_permanent, ticket_id, booking_id, created_at, updated_at
		FROM reservations
		WHERE code = $1
	`

	err := r.db.Get(&reservation, query, code)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get reservation by code: %w", err)
	}

	return &reservation, nil
}

// LinkTicket records the ticket created for this reservation at payment
// initiation time
func (r *ReservationRepository) LinkTicket(id, ticketID string) error {
	query := `UPDATE reservations SET ticket_id = $1, updated_at = NOW() WHERE id = $2`

	if _, err := r.db.Exec(query, ticketID, id); err != nil {
		return fmt.Errorf("failed to link ticket to reservation: %w", err)
	}

	return nil
}

// MarkPermanent flips the reservation out of the expirable pool once its
// payment has settled
func (r *ReservationRepository) MarkPermanent(id string, ticketID, bookingID *string) error {
	query := `
		UPDATE reservations
		SET is_permanent = true,
		    ticket_id = COALESCE($1, ticket_id),
		    booking_id = COALESCE($2, booking_id),
		    updated_at = NOW()
		WHERE id = $3
	`

	if _, err := r.db.Exec(query, ticketID, bookingID, id); err != nil {
		return fmt.Errorf("failed to mark reservation permanent: %w", err)
	}

	return nil
}

// Delete removes a reservation. Seats and tickets are untouched; callers
// deal with those before deleting.
func (r *ReservationRepository) Delete(id string) error {
	if _, err := r.db.Exec(`DELETE FROM reservations WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete reservation: %w", err)
	}

	return nil
}

// ListExpired returns non-permanent reservations created before the cutoff,
// oldest first, capped at limit. The cutoff is computed by the caller so
// the TTL lives in one place.
func (r *ReservationRepository) ListExpired(cutoff time.Time, limit int) ([]*models.Reservation, error) {
	var reservations []*models.Reservation

	query := `
		SELECT id, code, bus_id, travel_date, seat_ids,
		       passenger_name, passenger_phone, passenger_email,
		       is_permanent, ticket_id, booking_id, created_at, updated_at
		FROM reservations
		WHERE is_permanent = false
		  AND created_at < $1
		ORDER BY created_at ASC
		LIMIT $2
	`

	if err := r.db.Select(&reservations, query, cutoff, limit); err != nil {
		return nil, fmt.Errorf("failed to list expired reservations: %w", err)
	}

	return reservations, nil
}

// DeletePromoted removes permanent reservation rows, capped at limit. A
// promoted reservation's durable state lives on the seat and ticket rows,
// so anything still here was left behind by a crash or a retried confirm.
func (r *ReservationRepository) DeletePromoted(limit int) (int, error) {
	query := `
		DELETE FROM reservations
		WHERE id IN (
			SELECT id FROM reservations
			WHERE is_permanent = true
			ORDER BY updated_at ASC
			LIMIT $1
		)
	`

	result, err := r.db.Exec(query, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to delete promoted reservations: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	return int(rowsAffected), nil
}

// newReservationCode builds a short human-readable lookup code. Collisions
// are tolerable because the code is a convenience key, not the primary one.
func newReservationCode() string {
	id := uuid.New().String()
	return "RSV-" + id[:8]
}
