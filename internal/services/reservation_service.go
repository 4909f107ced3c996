package services

import (
	"fmt"
	"time"

	"github.com/bussewa/booking-backend/internal/config"
	"github.com/bussewa/booking-backend/internal/models"
	"github.com/bussewa/booking-backend/pkg/seatref"
	"github.com/bussewa/booking-backend/pkg/validator"
	"github.com/sirupsen/logrus"
)

// ReservationService drives the seat hold lifecycle: placing holds,
// reporting expiry, confirming paid bookings and releasing lapsed holds.
// Apart from the hold itself every operation is written to be re-runnable;
// concurrent and repeated calls converge on the same end state instead of
// coordinating through locks. When inventory and the ticket ledger
// disagree, the ledger wins and inventory is rewritten to match it.
type ReservationService struct {
	seats        SeatStore
	reservations ReservationStore
	tickets      TicketStore
	holdTTL      time.Duration
	expiringSoon time.Duration
	phones       *validator.PhoneValidator
	logger       *logrus.Logger
	now          func() time.Time
}

// NewReservationService creates a new reservation lifecycle service
func NewReservationService(
	seats SeatStore,
	reservations ReservationStore,
	tickets TicketStore,
	cfg config.ReservationConfig,
	logger *logrus.Logger,
) *ReservationService {
	return &ReservationService{
		seats:        seats,
		reservations: reservations,
		tickets:      tickets,
		holdTTL:      cfg.HoldTTL,
		expiringSoon: cfg.ExpiringSoonWindow,
		phones:       validator.NewPhoneValidator(),
		logger:       logger,
		now:          time.Now,
	}
}

// HoldTTL returns the configured hold lifetime
func (s *ReservationService) HoldTTL() time.Duration {
	return s.holdTTL
}

// CreateHold places a temporary hold on the requested seats. All requested
// seats must be taken or none are: the seat store performs the transition
// as a single conditional update, and a shortfall is compensated by
// releasing whatever the update did catch before reporting the conflict.
func (s *ReservationService) CreateHold(req *models.CreateHoldRequest) (*models.CreateHoldResponse, error) {
	travelDate, err := time.Parse("2006-01-02", req.TravelDate)
	if err != nil {
		return nil, fmt.Errorf("invalid travel date %q: %w", req.TravelDate, err)
	}

	phone, err := s.phones.Validate(req.Passenger.Phone)
	if err != nil {
		return nil, fmt.Errorf("invalid passenger phone: %w", err)
	}

	seatIDs, dropped := seatref.NormalizeAll(req.SeatIDs)
	if dropped > 0 {
		s.logger.WithFields(logrus.Fields{
			"bus_id":  req.BusID,
			"dropped": dropped,
		}).Warn("Dropped malformed seat identifiers from hold request")
	}
	if len(seatIDs) == 0 {
		return nil, fmt.Errorf("no valid seat identifiers in request")
	}

	existing, err := s.seats.GetExisting(req.BusID, seatIDs)
	if err != nil {
		return nil, err
	}
	if len(existing) < len(seatIDs) {
		return nil, &models.NotFoundError{Resource: "seat", ID: fmt.Sprintf("%d of %d requested", len(seatIDs)-len(existing), len(seatIDs))}
	}

	createdAt := s.now()
	reservation := &models.Reservation{
		BusID:          req.BusID,
		TravelDate:     travelDate,
		SeatIDs:        models.UUIDArray(seatIDs),
		PassengerName:  req.Passenger.Name,
		PassengerPhone: phone,
		PassengerEmail: req.Passenger.Email,
		CreatedAt:      createdAt,
	}
	if err := s.reservations.Create(reservation); err != nil {
		return nil, err
	}

	expiresAt := reservation.ExpiresAt(s.holdTTL)
	held, err := s.seats.MarkHeld(reservation.ID, req.BusID, seatIDs, expiresAt)
	if err != nil {
		s.rollbackHold(reservation.ID)
		return nil, err
	}
	if held < len(seatIDs) {
		s.rollbackHold(reservation.ID)
		s.logger.WithFields(logrus.Fields{
			"reservation_id": reservation.ID,
			"requested":      len(seatIDs),
			"held":           held,
		}).Info("Hold request lost the race for seats")
		return nil, &models.SeatUnavailableError{
			Requested: len(seatIDs),
			Conflicts: len(seatIDs) - held,
		}
	}

	s.logger.WithFields(logrus.Fields{
		"reservation_id": reservation.ID,
		"code":           reservation.Code,
		"bus_id":         req.BusID,
		"seats":          len(seatIDs),
		"expires_at":     expiresAt,
	}).Info("Seat hold created")

	return &models.CreateHoldResponse{
		ReservationID: reservation.ID,
		Code:          reservation.Code,
		ExpiresAt:     expiresAt,
		TTLSeconds:    int(s.holdTTL.Seconds()),
	}, nil
}

// rollbackHold undoes a partially placed hold
func (s *ReservationService) rollbackHold(reservationID string) {
	if err := s.seats.ReleaseHolds(reservationID); err != nil {
		s.logger.WithError(err).WithField("reservation_id", reservationID).Error("Failed to roll back seat holds")
	}
	if err := s.reservations.Delete(reservationID); err != nil {
		s.logger.WithError(err).WithField("reservation_id", reservationID).Error("Failed to delete reservation after rollback")
	}
}

// CheckExpiry reports the hold state for a reservation referenced by ID or
// lookup code. A reservation whose payment settled without the seats being
// promoted is healed here: the paid ticket outranks whatever the inventory
// currently says.
func (s *ReservationService) CheckExpiry(ref string) (*models.ReservationStatusResponse, error) {
	reservation, err := s.resolveReservation(ref)
	if err != nil {
		return nil, err
	}
	if reservation == nil {
		// Deleted reservations were either promoted or swept; either way
		// the hold no longer exists.
		return &models.ReservationStatusResponse{Expired: true}, nil
	}

	if reservation.IsPermanent {
		return &models.ReservationStatusResponse{
			IsPaid:    true,
			BookingID: reservation.BookingID,
		}, nil
	}

	if ticket := s.paidTicketFor(reservation); ticket != nil {
		s.logger.WithFields(logrus.Fields{
			"reservation_id": reservation.ID,
			"ticket_id":      ticket.ID,
			"booking_id":     ticket.BookingID,
		}).Warn("Reservation paid but not promoted, healing")
		s.promote(reservation, ticket)
		return &models.ReservationStatusResponse{
			IsPaid:    true,
			BookingID: &ticket.BookingID,
		}, nil
	}

	now := s.now()
	if reservation.IsExpiredAt(now, s.holdTTL) {
		return &models.ReservationStatusResponse{Expired: true}, nil
	}

	remaining := int(reservation.RemainingAt(now, s.holdTTL).Seconds())
	return &models.ReservationStatusResponse{
		RemainingSeconds: &remaining,
		ExpiringSoon:     time.Duration(remaining)*time.Second < s.expiringSoon,
	}, nil
}

// ConfirmReservation finalizes a booking after payment. Every step is
// tolerant of the previous steps having already run or their records being
// missing: confirmation may be retried by the client, replayed after a
// crash, or arrive with only some of the identifiers. Step failures after
// the first successful resolution degrade to a logged warning rather than
// an error, because at that point money has moved and the booking must
// stand.
func (s *ReservationService) ConfirmReservation(req *models.ConfirmBookingRequest) (*models.ConfirmBookingResponse, error) {
	var warnings []string

	ticket, err := s.resolveTicket(req.TicketID, req.BookingID)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("ticket lookup: %v", err))
	}

	var reservation *models.Reservation
	if req.ReservationID != "" {
		reservation, err = s.resolveReservation(req.ReservationID)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("reservation lookup: %v", err))
		}
	}
	if reservation == nil && ticket != nil && ticket.ReservationID != nil {
		reservation, err = s.resolveReservation(*ticket.ReservationID)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("reservation lookup via ticket: %v", err))
		}
	}

	if ticket == nil && reservation == nil {
		return nil, &models.NotFoundError{Resource: "booking", ID: firstNonEmpty(req.BookingID, req.TicketID, req.ReservationID)}
	}

	bookingID := s.canonicalBookingID(ticket, reservation, req.BookingID)

	if ticket != nil {
		seatIDs := []string(ticket.SeatIDs)
		if len(seatIDs) == 0 && reservation != nil {
			seatIDs = []string(reservation.SeatIDs)
		}
		if err := s.tickets.ConfirmPaid(ticket.ID, bookingID, seatIDs); err != nil {
			warnings = append(warnings, fmt.Sprintf("ticket confirm: %v", err))
		}
	}

	busID, seatIDs := s.seatTargets(ticket, reservation)
	seatIDs, _ = seatref.NormalizeAll(seatIDs)

	if len(seatIDs) > 0 && busID != "" {
		existing, err := s.seats.GetExisting(busID, seatIDs)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("seat existence check: %v", err))
			existing = seatIDs
		}

		ticketID := s.canonicalTicketID(ticket, reservation)
		if ticketID != "" {
			if _, err := s.seats.MarkBooked(busID, existing, ticketID, bookingID); err != nil {
				warnings = append(warnings, fmt.Sprintf("seat promotion: %v", err))
			}
		} else {
			warnings = append(warnings, "no ticket resolved, seats left held")
		}
	}

	if reservation != nil && !reservation.IsPermanent {
		var ticketID *string
		if t := s.canonicalTicketID(ticket, reservation); t != "" {
			ticketID = &t
		}
		if err := s.reservations.MarkPermanent(reservation.ID, ticketID, &bookingID); err != nil {
			warnings = append(warnings, fmt.Sprintf("reservation promotion: %v", err))
		}
	}

	if len(warnings) > 0 {
		warn := &models.PartialReconciliationWarning{BookingID: bookingID, Steps: warnings}
		s.logger.WithField("booking_id", bookingID).Warn(warn.Error())
	}

	return &models.ConfirmBookingResponse{Success: true, BookingID: bookingID}, nil
}

// ReleaseReservation returns a lapsed hold's seats to the pool. Before any
// seat is freed the ledger is probed three ways for money that already
// settled: a paid ticket referencing the reservation forces promotion
// instead of release, paid tickets claiming any of the seats keep those
// seats booked, and seats already pinned to a ticket are never touched.
func (s *ReservationService) ReleaseReservation(ref string) (*models.ReleaseReservationResponse, error) {
	reservation, err := s.resolveReservation(ref)
	if err != nil {
		return nil, err
	}
	if reservation == nil {
		return nil, &models.NotFoundError{Resource: "reservation", ID: ref}
	}

	seatIDs := []string(reservation.SeatIDs)

	if reservation.IsPermanent {
		return &models.ReleaseReservationResponse{Released: false, RetainedSeatCount: len(seatIDs)}, nil
	}

	if ticket := s.paidTicketFor(reservation); ticket != nil {
		s.logger.WithFields(logrus.Fields{
			"reservation_id": reservation.ID,
			"ticket_id":      ticket.ID,
		}).Warn("Release requested for a paid reservation, promoting instead")
		s.promote(reservation, ticket)
		if err := s.reservations.Delete(reservation.ID); err != nil {
			s.logger.WithError(err).WithField("reservation_id", reservation.ID).Error("Failed to remove promoted reservation")
		}
		return &models.ReleaseReservationResponse{Released: false, RetainedSeatCount: len(seatIDs)}, nil
	}

	retained := make(map[string]struct{})

	claimants, err := s.tickets.FindPaidBySeatOverlap(seatIDs)
	if err != nil {
		s.logger.WithError(err).WithField("reservation_id", reservation.ID).Error("Seat overlap probe failed, keeping all seats")
		return nil, err
	}
	for _, claimant := range claimants {
		claimed := intersect(seatIDs, claimant.SeatIDs)
		for _, id := range claimed {
			retained[id] = struct{}{}
		}
		// Rewrite inventory to match the ledger while we are here
		if _, err := s.seats.MarkBooked(reservation.BusID, claimed, claimant.ID, claimant.BookingID); err != nil {
			s.logger.WithError(err).WithField("ticket_id", claimant.ID).Error("Failed to pin claimed seats to ticket")
		}
	}

	booked, err := s.seats.GetPermanentlyBooked(seatIDs)
	if err != nil {
		s.logger.WithError(err).WithField("reservation_id", reservation.ID).Error("Booked seat probe failed, keeping all seats")
		return nil, err
	}
	for _, seat := range booked {
		retained[seat.ID] = struct{}{}
	}

	releasable := make([]string, 0, len(seatIDs))
	for _, id := range seatIDs {
		if _, keep := retained[id]; !keep {
			releasable = append(releasable, id)
		}
	}

	if len(releasable) > 0 {
		if _, err := s.seats.MarkAvailable(reservation.BusID, releasable); err != nil {
			return nil, err
		}
	}

	if err := s.reservations.Delete(reservation.ID); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"reservation_id": reservation.ID,
		"released":       len(releasable),
		"retained":       len(retained),
	}).Info("Reservation released")

	return &models.ReleaseReservationResponse{Released: true, RetainedSeatCount: len(retained)}, nil
}

// PromotePaid finalizes a reservation whose payment the gateway reports as
// settled, then removes the reservation row. Seats stay booked.
func (s *ReservationService) PromotePaid(reservationID *string, ticket *models.Ticket) {
	var reservation *models.Reservation
	if reservationID != nil && *reservationID != "" {
		var err error
		reservation, err = s.resolveReservation(*reservationID)
		if err != nil {
			s.logger.WithError(err).WithField("reservation_id", *reservationID).Error("Failed to load reservation for promotion")
		}
	}
	if reservation == nil && ticket.ReservationID != nil {
		var err error
		reservation, err = s.resolveReservation(*ticket.ReservationID)
		if err != nil {
			s.logger.WithError(err).WithField("reservation_id", *ticket.ReservationID).Error("Failed to load reservation for promotion")
		}
	}

	if err := s.tickets.ConfirmPaid(ticket.ID, ticket.BookingID, ticket.SeatIDs); err != nil {
		s.logger.WithError(err).WithField("ticket_id", ticket.ID).Error("Failed to confirm paid ticket")
	}

	if _, err := s.seats.MarkBooked(ticket.BusID, ticket.SeatIDs, ticket.ID, ticket.BookingID); err != nil {
		s.logger.WithError(err).WithField("ticket_id", ticket.ID).Error("Failed to promote seats for paid ticket")
	}

	if reservation != nil {
		if err := s.reservations.MarkPermanent(reservation.ID, &ticket.ID, &ticket.BookingID); err != nil {
			s.logger.WithError(err).WithField("reservation_id", reservation.ID).Error("Failed to mark reservation permanent")
		}
		if err := s.reservations.Delete(reservation.ID); err != nil {
			s.logger.WithError(err).WithField("reservation_id", reservation.ID).Error("Failed to remove promoted reservation")
		}
	}
}

// TearDown releases a reservation's seats after a refund, expiry or
// cancellation reported by the gateway. Seats the ledger still claims are
// protected by the same guards as any other release.
func (s *ReservationService) TearDown(reservationID *string, ticket *models.Ticket) {
	ref := ""
	if reservationID != nil && *reservationID != "" {
		ref = *reservationID
	} else if ticket.ReservationID != nil {
		ref = *ticket.ReservationID
	}

	if ref != "" {
		if _, err := s.ReleaseReservation(ref); err != nil && !models.IsNotFound(err) {
			s.logger.WithError(err).WithField("reservation_id", ref).Error("Failed to release reservation after gateway teardown")
		}
		return
	}

	// No reservation to go through; free the ticket's seats directly
	if _, err := s.seats.MarkAvailable(ticket.BusID, ticket.SeatIDs); err != nil {
		s.logger.WithError(err).WithField("ticket_id", ticket.ID).Error("Failed to release seats after gateway teardown")
	}
}

// SweepStats summarizes one expiry sweep run
type SweepStats struct {
	Scanned       int
	Released      int
	Promoted      int
	OrphanedSeats int
	Cleaned       int
}

// SweepExpired releases every reservation whose hold lapsed, in batches.
// Each reservation goes through ReleaseReservation so the paid seat guards
// apply; a sweep can therefore end up promoting a booking rather than
// releasing it. Afterwards held seats whose reservation vanished entirely
// are returned to the pool, and permanent reservation rows whose truth
// already moved to the seat and ticket records are removed.
func (s *ReservationService) SweepExpired(batchSize int) (*SweepStats, error) {
	now := s.now()
	cutoff := now.Add(-s.holdTTL)

	expired, err := s.reservations.ListExpired(cutoff, batchSize)
	if err != nil {
		return nil, err
	}

	stats := &SweepStats{Scanned: len(expired)}
	for _, reservation := range expired {
		result, err := s.ReleaseReservation(reservation.ID)
		if err != nil {
			if models.IsNotFound(err) {
				continue
			}
			s.logger.WithError(err).WithField("reservation_id", reservation.ID).Error("Sweep failed to release reservation")
			continue
		}
		if result.Released {
			stats.Released++
		} else {
			stats.Promoted++
		}
	}

	orphaned, err := s.seats.ReleaseOrphanedHolds(now)
	if err != nil {
		s.logger.WithError(err).Error("Sweep failed to release orphaned seat holds")
	}
	stats.OrphanedSeats = orphaned

	cleaned, err := s.reservations.DeletePromoted(batchSize)
	if err != nil {
		s.logger.WithError(err).Error("Sweep failed to clean promoted reservations")
	}
	stats.Cleaned = cleaned

	return stats, nil
}

// resolveReservation looks a reservation up by primary key first, then by
// the short code clients sometimes echo back instead
func (s *ReservationService) resolveReservation(ref string) (*models.Reservation, error) {
	if ref == "" {
		return nil, nil
	}

	reservation, err := s.reservations.GetByID(ref)
	if err != nil {
		return nil, err
	}
	if reservation != nil {
		return reservation, nil
	}

	return s.reservations.GetByCode(ref)
}

// resolveTicket tries the ticket ID then the booking reference
func (s *ReservationService) resolveTicket(ticketID, bookingID string) (*models.Ticket, error) {
	if ticketID != "" {
		ticket, err := s.tickets.GetByID(ticketID)
		if err != nil {
			return nil, err
		}
		if ticket != nil {
			return ticket, nil
		}
	}

	if bookingID != "" {
		return s.tickets.GetByBookingID(bookingID)
	}

	return nil, nil
}

// paidTicketFor probes the ledger for settled money behind a reservation,
// via the back-reference and via the reservation's own ticket link
func (s *ReservationService) paidTicketFor(reservation *models.Reservation) *models.Ticket {
	ticket, err := s.tickets.GetPaidByReservation(reservation.ID)
	if err != nil {
		s.logger.WithError(err).WithField("reservation_id", reservation.ID).Error("Paid ticket probe failed")
	}
	if ticket != nil {
		return ticket
	}

	if reservation.TicketID != nil {
		linked, err := s.tickets.GetByID(*reservation.TicketID)
		if err != nil {
			s.logger.WithError(err).WithField("ticket_id", *reservation.TicketID).Error("Linked ticket probe failed")
		}
		if linked != nil && linked.IsPaid() {
			return linked
		}
	}

	return nil
}

// promote pins a reservation's seats to its paid ticket and takes the
// reservation out of the expirable pool
func (s *ReservationService) promote(reservation *models.Reservation, ticket *models.Ticket) {
	seatIDs := []string(ticket.SeatIDs)
	if len(seatIDs) == 0 {
		seatIDs = []string(reservation.SeatIDs)
	}

	if _, err := s.seats.MarkBooked(reservation.BusID, seatIDs, ticket.ID, ticket.BookingID); err != nil {
		s.logger.WithError(err).WithField("reservation_id", reservation.ID).Error("Failed to promote seats")
	}
	if err := s.reservations.MarkPermanent(reservation.ID, &ticket.ID, &ticket.BookingID); err != nil {
		s.logger.WithError(err).WithField("reservation_id", reservation.ID).Error("Failed to mark reservation permanent")
	}
}

// canonicalBookingID picks the booking reference the client should see,
// repairing it to the BK-<digits> format when absent or malformed
func (s *ReservationService) canonicalBookingID(ticket *models.Ticket, reservation *models.Reservation, requested string) string {
	if ticket != nil && models.IsValidBookingID(ticket.BookingID) {
		return ticket.BookingID
	}
	if reservation != nil && reservation.BookingID != nil && models.IsValidBookingID(*reservation.BookingID) {
		return *reservation.BookingID
	}
	if models.IsValidBookingID(requested) {
		return requested
	}

	repaired := models.NewBookingID()
	s.logger.WithField("booking_id", repaired).Warn("No canonical booking reference found, assigning one")
	return repaired
}

func (s *ReservationService) canonicalTicketID(ticket *models.Ticket, reservation *models.Reservation) string {
	if ticket != nil {
		return ticket.ID
	}
	if reservation != nil && reservation.TicketID != nil {
		return *reservation.TicketID
	}
	return ""
}

// seatTargets picks the seat set and bus to reconcile, preferring the
// reservation's copy over the ticket snapshot
func (s *ReservationService) seatTargets(ticket *models.Ticket, reservation *models.Reservation) (string, []string) {
	if reservation != nil && len(reservation.SeatIDs) > 0 {
		return reservation.BusID, []string(reservation.SeatIDs)
	}
	if ticket != nil {
		return ticket.BusID, []string(ticket.SeatIDs)
	}
	return "", nil
}

func intersect(a []string, b []string) []string {
	inB := make(map[string]struct{}, len(b))
	for _, v := range b {
		inB[v] = struct{}{}
	}
	result := make([]string, 0, len(a))
	for _, v := range a {
		if _, ok := inB[v]; ok {
			result = append(result, v)
		}
	}
	return result
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
