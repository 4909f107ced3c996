package handlers

import (
	"net/http"

	"github.com/bussewa/booking-backend/internal/models"
	"github.com/bussewa/booking-backend/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// PaymentHandler handles payment and booking confirmation endpoints
type PaymentHandler struct {
	paymentService     *services.PaymentService
	reservationService *services.ReservationService
	logger             *logrus.Logger
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(
	paymentService *services.PaymentService,
	reservationService *services.ReservationService,
	logger *logrus.Logger,
) *PaymentHandler {
	return &PaymentHandler{
		paymentService:     paymentService,
		reservationService: reservationService,
		logger:             logger,
	}
}

// InitiatePayment starts a Khalti transaction for a held reservation
// POST /api/v1/payments/initiate
func (h *PaymentHandler) InitiatePayment(c *gin.Context) {
	var req models.InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	response, err := h.paymentService.InitiatePayment(&req)
	if err != nil {
		if models.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		if models.IsGatewayError(err) {
			h.logger.WithError(err).Error("Payment gateway rejected initiation")
			c.JSON(http.StatusBadGateway, gin.H{"error": "payment gateway unavailable"})
			return
		}

		h.logger.WithError(err).Error("Failed to initiate payment")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, response)
}

// VerifyPayment reconciles a transaction against the gateway's view
// POST /api/v1/payments/verify
func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	var req models.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	response, err := h.paymentService.VerifyPayment(&req)
	if err != nil {
		if models.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		if models.IsGatewayError(err) {
			h.logger.WithError(err).Error("Payment gateway lookup failed")
			c.JSON(http.StatusBadGateway, gin.H{"error": "payment gateway unavailable"})
			return
		}

		h.logger.WithError(err).Error("Failed to verify payment")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify payment"})
		return
	}

	c.JSON(http.StatusOK, response)
}

// ConfirmBooking finalizes a booking from whatever identifiers the client
// still holds after the payment redirect
// POST /api/v1/bookings/confirm
func (h *PaymentHandler) ConfirmBooking(c *gin.Context) {
	var req models.ConfirmBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	response, err := h.reservationService.ConfirmReservation(&req)
	if err != nil {
		if models.IsNotFound(err) {
			// Echo the booking reference if the client supplied one so it
			// can still be displayed
			body := gin.H{"error": err.Error()}
			if req.BookingID != "" {
				body["booking_id"] = req.BookingID
			}
			c.JSON(http.StatusNotFound, body)
			return
		}

		h.logger.WithError(err).Error("Failed to confirm booking")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to confirm booking"})
		return
	}

	c.JSON(http.StatusOK, response)
}
