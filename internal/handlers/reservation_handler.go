package handlers

import (
	"net/http"

	"github.com/bussewa/booking-backend/internal/models"
	"github.com/bussewa/booking-backend/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ReservationHandler handles seat hold endpoints
type ReservationHandler struct {
	reservationService *services.ReservationService
	logger             *logrus.Logger
}

// NewReservationHandler creates a new ReservationHandler
func NewReservationHandler(reservationService *services.ReservationService, logger *logrus.Logger) *ReservationHandler {
	return &ReservationHandler{
		reservationService: reservationService,
		logger:             logger,
	}
}

// CreateHold places a temporary hold on seats
// POST /api/v1/reservations
func (h *ReservationHandler) CreateHold(c *gin.Context) {
	var req models.CreateHoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	response, err := h.reservationService.CreateHold(&req)
	if err != nil {
		if seatErr, ok := err.(*models.SeatUnavailableError); ok {
			c.JSON(http.StatusConflict, gin.H{
				"error":     "seats_unavailable",
				"requested": seatErr.Requested,
				"conflicts": seatErr.Conflicts,
				"message":   seatErr.Error(),
			})
			return
		}
		if models.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}

		h.logger.WithError(err).Error("Failed to create seat hold")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, response)
}

// GetStatus reports whether a hold is still alive, expiring soon, expired,
// or already paid
// GET /api/v1/reservations/:id/status
func (h *ReservationHandler) GetStatus(c *gin.Context) {
	ref := c.Param("id")

	response, err := h.reservationService.CheckExpiry(ref)
	if err != nil {
		h.logger.WithError(err).WithField("reservation", ref).Error("Failed to check reservation status")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check reservation status"})
		return
	}

	c.JSON(http.StatusOK, response)
}

// Release returns a lapsed hold's seats to the pool
// POST /api/v1/reservations/:id/release
func (h *ReservationHandler) Release(c *gin.Context) {
	ref := c.Param("id")

	response, err := h.reservationService.ReleaseReservation(ref)
	if err != nil {
		if models.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}

		h.logger.WithError(err).WithField("reservation", ref).Error("Failed to release reservation")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to release reservation"})
		return
	}

	c.JSON(http.StatusOK, response)
}
