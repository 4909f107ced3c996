package database

import (
	"fmt"
	"time"

	"github.com/bussewa/booking-backend/internal/models"
	"github.com/jmoiron/sqlx"
)

// SeatRepository handles seat inventory persistence
type SeatRepository struct {
	db DB
}

// NewSeatRepository creates a new seat repository
func NewSeatRepository(db DB) *SeatRepository {
	return &SeatRepository{db: db}
}

// MarkHeld transitions available seats to held for a reservation. The
// status check in the WHERE clause makes concurrent hold attempts for the
// same seat mutually exclusive: only one UPDATE matches the row. Returns
// the number of seats actually held; the caller compares it against the
// requested count and compensates on a shortfall.
func (r *SeatRepository) MarkHeld(reservationID, busID string, seatIDs []string, heldUntil time.Time) (int, error) {
	if len(seatIDs) == 0 {
		return 0, nil
	}

	query, args, err := sqlx.In(`
		UPDATE seats
		SET status = 'held', held_by_reservation_id = ?, held_until = ?, updated_at = NOW()
		WHERE id IN (?)
		  AND bus_id = ?
		  AND status = 'available'
		  AND is_permanently_booked = false
	`, reservationID, heldUntil, seatIDs, busID)
	if err != nil {
		return 0, fmt.Errorf("failed to build hold query: %w", err)
	}

	query = sqlx.Rebind(sqlx.DOLLAR, query)
	result, err := r.db.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to hold seats: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	return int(rowsAffected), nil
}

// ReleaseHolds returns every seat held by the reservation to the available
// pool. Used both to compensate a partial hold and to tear down a lapsed
// reservation. Permanently booked seats are never touched.
func (r *SeatRepository) ReleaseHolds(reservationID string) error {
	query := `
		UPDATE seats
		SET status = 'available', held_by_reservation_id = NULL, held_until = NULL, updated_at = NOW()
		WHERE held_by_reservation_id = $1
		  AND is_permanently_booked = false
	`

	if _, err := r.db.Exec(query, reservationID); err != nil {
		return fmt.Errorf("failed to release seat holds: %w", err)
	}

	return nil
}

// MarkBooked transitions seats to booked and pins them to a ticket. The
// WHERE clause lets the update run again for the same ticket without
// touching seats another ticket already owns, so confirmation retries are
// harmless.
func (r *SeatRepository) MarkBooked(busID string, seatIDs []string, ticketID, bookingID string) (int, error) {
	if len(seatIDs) == 0 {
		return 0, nil
	}

	query, args, err := sqlx.In(`
		UPDATE seats
		SET status = 'booked', is_permanently_booked = true,
		    ticket_id = ?, booking_id = ?,
		    held_by_reservation_id = NULL, held_until = NULL, updated_at = NOW()
		WHERE id IN (?)
		  AND bus_id = ?
		  AND (is_permanently_booked = false OR ticket_id = ?)
	`, ticketID, bookingID, seatIDs, busID, ticketID)
	if err != nil {
		return 0, fmt.Errorf("failed to build booking query: %w", err)
	}

	query = sqlx.Rebind(sqlx.DOLLAR, query)
	result, err := r.db.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to mark seats booked: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	return int(rowsAffected), nil
}

// MarkAvailable returns seats to the available pool, skipping permanently
// booked seats. Returns the number of seats actually released.
func (r *SeatRepository) MarkAvailable(busID string, seatIDs []string) (int, error) {
	if len(seatIDs) == 0 {
		return 0, nil
	}

	query, args, err := sqlx.In(`
		UPDATE seats
		SET status = 'available', ticket_id = NULL, booking_id = NULL,
		    held_by_reservation_id = NULL, held_until = NULL, updated_at = NOW()
		WHERE id IN (?)
		  AND bus_id = ?
		  AND is_permanently_booked = false
	`, seatIDs, busID)
	if err != nil {
		return 0, fmt.Errorf("failed to build release query: %w", err)
	}

	query = sqlx.Rebind(sqlx.DOLLAR, query)
	result, err := r.db.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to release seats: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	return int(rowsAffected), nil
}

// GetExisting returns the subset of the given seat IDs that exist for the
// bus. Stale or foreign IDs arriving from client-side state are silently
// dropped by the caller.
func (r *SeatRepository) GetExisting(busID string, seatIDs []string) ([]string, error) {
	if len(seatIDs) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`SELECT id FROM seats WHERE id IN (?) AND bus_id = ?`, seatIDs, busID)
	if err != nil {
		return nil, fmt.Errorf("failed to build existence query: %w", err)
	}

	query = sqlx.Rebind(sqlx.DOLLAR, query)
	var existing []string
	if err := r.db.Select(&existing, query, args...); err != nil {
		return nil, fmt.Errorf("failed to check seat existence: %w", err)
	}

	return existing, nil
}

// GetPermanentlyBooked returns the seats among the given IDs that are
// pinned to a ticket. Used by the release path to decide which seats a
// lapsed reservation may not take back.
func (r *SeatRepository) GetPermanentlyBooked(seatIDs []string) ([]models.Seat, error) {
	if len(seatIDs) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`
		SELECT id, bus_id, travel_date, seat_label, status, is_permanently_booked,
		       ticket_id, booking_id, held_by_reservation_id, held_until,
		       created_at, updated_at
		FROM seats
		WHERE id IN (?)
		  AND is_permanently_booked = true
	`, seatIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build booked seats query: %w", err)
	}

	query = sqlx.Rebind(sqlx.DOLLAR, query)
	var seats []models.Seat
	if err := r.db.Select(&seats, query, args...); err != nil {
		return nil, fmt.Errorf("failed to load booked seats: %w", err)
	}

	return seats, nil
}

// ReleaseOrphanedHolds releases held seats whose hold lapsed and whose
// reservation no longer exists. Seats still pointed at by a live
// reservation are left for ReleaseReservation, which applies the paid
// seat guards.
func (r *SeatRepository) ReleaseOrphanedHolds(now time.Time) (int, error) {
	query := `
		UPDATE seats
		SET status = 'available', held_by_reservation_id = NULL, held_until = NULL, updated_at = NOW()
		WHERE status = 'held'
		  AND is_permanently_booked = false
		  AND held_until < $1
		  AND (held_by_reservation_id IS NULL
		       OR NOT EXISTS (SELECT 1 FROM reservations WHERE reservations.id = seats.held_by_reservation_id))
	`

	result, err := r.db.Exec(query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to release orphaned holds: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	return int(rowsAffected), nil
}
