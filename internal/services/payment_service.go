package services

import (
	"fmt"
	"math"

	"github.com/bussewa/booking-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// PaymentService coordinates the Khalti payment flow: issuing a ticket and
// a gateway transaction for a held reservation, then reconciling the
// outcome when the client returns. All seat transitions are delegated to
// the reservation service; this layer only owns tickets and payments.
type PaymentService struct {
	payments     PaymentStore
	tickets      TicketStore
	reservations ReservationStore
	catalog      TripCatalog
	gateway      GatewayClient
	engine       *ReservationService
	logger       *logrus.Logger
}

// NewPaymentService creates a new payment service
func NewPaymentService(
	payments PaymentStore,
	tickets TicketStore,
	reservations ReservationStore,
	catalog TripCatalog,
	gateway GatewayClient,
	engine *ReservationService,
	logger *logrus.Logger,
) *PaymentService {
	return &PaymentService{
		payments:     payments,
		tickets:      tickets,
		reservations: reservations,
		catalog:      catalog,
		gateway:      gateway,
		engine:       engine,
		logger:       logger,
	}
}

// InitiatePayment creates a pending ticket for the reservation and
// registers the transaction with Khalti. The ticket is created before the
// gateway call so a crash in between leaves a pending ticket the expiry
// sweep can account for, never a paid transaction without a ledger row.
func (s *PaymentService) InitiatePayment(req *models.InitiatePaymentRequest) (*models.InitiatePaymentResponse, error) {
	reservation, err := s.reservations.GetByID(req.ReservationID)
	if err != nil {
		return nil, err
	}
	if reservation == nil {
		reservation, err = s.reservations.GetByCode(req.ReservationID)
		if err != nil {
			return nil, err
		}
	}
	if reservation == nil {
		return nil, &models.NotFoundError{Resource: "reservation", ID: req.ReservationID}
	}

	status, err := s.engine.CheckExpiry(reservation.ID)
	if err != nil {
		return nil, err
	}
	if status.Expired {
		return nil, fmt.Errorf("reservation %s has expired", reservation.ID)
	}

	ticket := &models.Ticket{
		ReservationID:  &reservation.ID,
		BusID:          reservation.BusID,
		TravelDate:     reservation.TravelDate,
		SeatIDs:        reservation.SeatIDs,
		Price:          req.Amount,
		PassengerName:  reservation.PassengerName,
		PassengerPhone: reservation.PassengerPhone,
		PassengerEmail: reservation.PassengerEmail,
	}

	snapshot, err := s.catalog.GetTripSnapshot(reservation.BusID, reservation.TravelDate)
	if err != nil {
		s.logger.WithError(err).WithField("bus_id", reservation.BusID).Warn("Trip snapshot unavailable, issuing ticket without display fields")
	} else if snapshot != nil {
		ticket.RouteName = &snapshot.RouteName
		ticket.BusNumber = &snapshot.BusNumber
		ticket.DepartureTime = snapshot.DepartureTime
	}

	if err := s.tickets.Create(ticket); err != nil {
		return nil, err
	}

	if err := s.reservations.LinkTicket(reservation.ID, ticket.ID); err != nil {
		s.logger.WithError(err).WithField("reservation_id", reservation.ID).Warn("Failed to link ticket to reservation")
	}

	email := ""
	if reservation.PassengerEmail != nil {
		email = *reservation.PassengerEmail
	}

	initiated, err := s.gateway.Initiate(&KhaltiInitiateParams{
		AmountPaisa:       npr2paisa(req.Amount),
		PurchaseOrderID:   ticket.BookingID,
		PurchaseOrderName: purchaseOrderName(ticket),
		CustomerName:      reservation.PassengerName,
		CustomerEmail:     email,
		CustomerPhone:     reservation.PassengerPhone,
	})
	if err != nil {
		return nil, &models.GatewayError{Op: "initiate", Err: err}
	}

	payment := &models.Payment{
		TicketID:        ticket.ID,
		Pidx:            initiated.Pidx,
		PurchaseOrderID: ticket.BookingID,
		Amount:          req.Amount,
	}
	if err := s.payments.Create(payment); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"reservation_id": reservation.ID,
		"ticket_id":      ticket.ID,
		"booking_id":     ticket.BookingID,
		"pidx":           initiated.Pidx,
	}).Info("Payment initiated")

	return &models.InitiatePaymentResponse{
		PaymentURL: initiated.PaymentURL,
		Pidx:       initiated.Pidx,
		TicketID:   ticket.ID,
		BookingID:  ticket.BookingID,
		ExpiresAt:  initiated.ExpiresAt,
	}, nil
}

// VerifyPayment asks Khalti for the authoritative transaction state and
// reconciles local records to match. Client-reported outcomes are never
// trusted; only the lookup result drives state changes. The call is safe
// to repeat for any pidx.
func (s *PaymentService) VerifyPayment(req *models.VerifyPaymentRequest) (*models.VerifyPaymentResponse, error) {
	payment, err := s.payments.GetByPidx(req.Pidx)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, &models.NotFoundError{Resource: "payment", ID: req.Pidx}
	}

	lookup, err := s.gateway.Lookup(req.Pidx)
	if err != nil {
		return nil, &models.GatewayError{Op: "lookup", Err: err}
	}

	ticket, err := s.tickets.GetByID(payment.TicketID)
	if err != nil {
		return nil, err
	}
	if ticket == nil {
		return nil, &models.NotFoundError{Resource: "ticket", ID: payment.TicketID}
	}

	reservationID := &req.ReservationID
	if req.ReservationID == "" {
		reservationID = ticket.ReservationID
	}

	logger := s.logger.WithFields(logrus.Fields{
		"pidx":       req.Pidx,
		"ticket_id":  ticket.ID,
		"booking_id": ticket.BookingID,
		"status":     lookup.Status,
	})

	switch lookup.Status {
	case KhaltiStatusCompleted:
		if err := s.payments.MarkStatus(payment.ID, models.PaymentStatusCompleted, lookup.TransactionID, lookup.Raw); err != nil {
			logger.WithError(err).Error("Failed to record completed payment")
		}
		s.engine.PromotePaid(reservationID, ticket)
		logger.Info("Payment completed, booking promoted")

		return &models.VerifyPaymentResponse{
			Status:        lookup.Status,
			Paid:          true,
			BookingID:     ticket.BookingID,
			Amount:        payment.Amount,
			PassengerName: ticket.PassengerName,
			SeatLabels:    ticket.SeatLabels,
		}, nil

	case KhaltiStatusRefunded:
		if err := s.payments.MarkStatus(payment.ID, models.PaymentStatusRefunded, lookup.TransactionID, lookup.Raw); err != nil {
			logger.WithError(err).Error("Failed to record refunded payment")
		}
		if err := s.tickets.UpdateStatus(ticket.ID, models.TicketStatusCanceled, models.TicketPaymentRefunded); err != nil {
			logger.WithError(err).Error("Failed to cancel refunded ticket")
		}
		s.engine.TearDown(reservationID, ticket)
		logger.Info("Payment refunded, booking torn down")

		return &models.VerifyPaymentResponse{Status: lookup.Status, Paid: false}, nil

	case KhaltiStatusExpired, KhaltiStatusUserCanceled:
		if err := s.payments.MarkStatus(payment.ID, models.PaymentStatusCanceled, lookup.TransactionID, lookup.Raw); err != nil {
			logger.WithError(err).Error("Failed to record canceled payment")
		}
		if err := s.tickets.UpdateStatus(ticket.ID, models.TicketStatusCanceled, models.TicketPaymentPending); err != nil {
			logger.WithError(err).Error("Failed to cancel unpaid ticket")
		}
		s.engine.TearDown(reservationID, ticket)
		logger.Info("Payment abandoned, hold torn down")

		return &models.VerifyPaymentResponse{Status: lookup.Status, Paid: false}, nil

	default:
		// Pending, Initiated, or something new the gateway grew. Keep the
		// payload for audit and change nothing.
		if err := s.payments.SaveRawPayload(payment.ID, lookup.Raw); err != nil {
			logger.WithError(err).Error("Failed to store gateway payload")
		}
		logger.Info("Payment not settled yet, no state change")

		return &models.VerifyPaymentResponse{Status: lookup.Status, Paid: false}, nil
	}
}

// npr2paisa converts a rupee amount to paisa. Rounding matters here:
// truncating the float product undercharges by one paisa for amounts
// like 19.99 whose binary form sits just below the true value.
func npr2paisa(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func purchaseOrderName(ticket *models.Ticket) string {
	if ticket.RouteName != nil && *ticket.RouteName != "" {
		return fmt.Sprintf("Bus ticket - %s", *ticket.RouteName)
	}
	return "Bus ticket"
}
