package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ridehub/rental-backend/internal/middleware"
	"github.com/ridehub/rental-backend/internal/models"
	"github.com/ridehub/rental-backend/internal/services"
	"github.com/sirupsen/logrus"
)

// BookingHandler handles booking read and cancellation endpoints
type BookingHandler struct {
	reconciliation *services.ReconciliationService
	logger         *logrus.Logger
}

// NewBookingHandler creates a new BookingHandler
func NewBookingHandler(reconciliation *services.ReconciliationService, logger *logrus.Logger) *BookingHandler {
	return &BookingHandler{
		reconciliation: reconciliation,
		logger:         logger,
	}
}

// List returns the caller's bookings, newest first
// @Summary List bookings
// @Tags Bookings
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param limit query int false "Page size (default 20, max 100)"
// @Param offset query int false "Offset"
// @Success 200 {object} map[string]interface{}
// @Router /bookings [get]
func (h *BookingHandler) List(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	bookings, err := h.reconciliation.ListUserBookings(userCtx.UserID, limit, offset)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list bookings")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list bookings"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"bookings": bookings,
		"count":    len(bookings),
		"limit":    limit,
		"offset":   offset,
	})
}

// Get returns a single booking with its transaction
// @Summary Get booking
// @Tags Bookings
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param id path string true "Booking ID"
// @Success 200 {object} models.BookingWithTransaction
// @Failure 404 {object} map[string]interface{} "Booking not found"
// @Router /bookings/{id} [get]
func (h *BookingHandler) Get(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return
	}

	booking, err := h.reconciliation.GetUserBooking(bookingID, userCtx.UserID)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrBookingNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "booking not found"})
		case errors.Is(err, models.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{"error": "not authorized for this booking"})
		default:
			h.logger.WithError(err).Error("Failed to fetch booking")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch booking"})
		}
		return
	}

	c.JSON(http.StatusOK, booking)
}

// Cancel cancels the caller's pending booking
// @Summary Cancel booking
// @Description Cancels a pending booking, fails its transaction, and releases the vehicle. Re-cancel is a no-op.
// @Tags Bookings
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param id path string true "Booking ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{} "Booking not found"
// @Failure 409 {object} map[string]interface{} "Booking already completed"
// @Router /bookings/{id}/cancel [patch]
func (h *BookingHandler) Cancel(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return
	}

	err = h.reconciliation.CancelPendingBooking(bookingID, userCtx.UserID, callerMeta(c))
	if err != nil {
		var conflictErr *models.ConflictError
		switch {
		case errors.Is(err, models.ErrBookingNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "booking not found"})
		case errors.Is(err, models.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{"error": "not authorized for this booking"})
		case errors.As(err, &conflictErr):
			c.JSON(http.StatusConflict, gin.H{"error": conflictErr.Error()})
		default:
			h.logger.WithError(err).Error("Failed to cancel booking")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to cancel booking"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"booking_id": bookingID,
		"status":     models.BookingStatusCancelled,
	})
}
