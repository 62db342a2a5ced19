package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ridehub/rental-backend/internal/middleware"
	"github.com/ridehub/rental-backend/internal/models"
	"github.com/ridehub/rental-backend/internal/services"
	"github.com/sirupsen/logrus"
)

// CheckoutHandler handles checkout initiation and payment callback endpoints
type CheckoutHandler struct {
	reconciliation *services.ReconciliationService
	logger         *logrus.Logger
}

// NewCheckoutHandler creates a new CheckoutHandler
func NewCheckoutHandler(reconciliation *services.ReconciliationService, logger *logrus.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		reconciliation: reconciliation,
		logger:         logger,
	}
}

func callerMeta(c *gin.Context) *services.CallerMeta {
	return &services.CallerMeta{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

// Checkout initiates a rental booking and returns the gateway redirect URL
// @Summary Initiate vehicle rental checkout
// @Description Creates a pending booking with its payment transaction and returns the eSewa redirect URL
// @Tags Checkout
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param request body models.CheckoutRequest true "Checkout request"
// @Success 201 {object} models.CheckoutResponse
// @Failure 400 {object} map[string]interface{} "Validation error"
// @Failure 404 {object} map[string]interface{} "Vehicle not found"
// @Failure 409 {object} map[string]interface{} "Vehicle not available"
// @Router /checkout [post]
func (h *CheckoutHandler) Checkout(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var req models.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	response, err := h.reconciliation.InitiateCheckout(userCtx.UserID, &req, callerMeta(c))
	if err != nil {
		var validationErr *models.ValidationError
		var conflictErr *models.ConflictError
		switch {
		case errors.As(err, &validationErr):
			c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Reason})
		case errors.Is(err, models.ErrVehicleNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "vehicle not found"})
		case errors.As(err, &conflictErr):
			c.JSON(http.StatusConflict, gin.H{"error": conflictErr.Error()})
		default:
			h.logger.WithError(err).Error("Checkout failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to initiate checkout"})
		}
		return
	}

	c.JSON(http.StatusCreated, response)
}

// PaymentSuccess reconciles a successful payment callback
// @Summary Reconcile successful payment
// @Description Applies a success outcome to the transaction, booking, and vehicle. Safe to replay.
// @Tags Payments
// @Accept json
// @Produce json
// @Param request body models.PaymentCallbackRequest true "Callback payload"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{} "Unknown transaction"
// @Failure 409 {object} map[string]interface{} "Outcome contradicts recorded state"
// @Router /payments/status [post]
func (h *CheckoutHandler) PaymentSuccess(c *gin.Context) {
	h.handleCallback(c, models.OutcomeSuccess)
}

// PaymentFailure reconciles a failed or user-abandoned payment callback
// @Summary Reconcile failed payment
// @Description Applies a failure outcome: transaction fails, booking cancels, vehicle releases. Safe to replay.
// @Tags Payments
// @Accept json
// @Produce json
// @Param request body models.PaymentCallbackRequest true "Callback payload"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{} "Unknown transaction"
// @Failure 409 {object} map[string]interface{} "Outcome contradicts recorded state"
// @Router /payments/failure [post]
func (h *CheckoutHandler) PaymentFailure(c *gin.Context) {
	h.handleCallback(c, models.OutcomeFailure)
}

func (h *CheckoutHandler) handleCallback(c *gin.Context, outcome models.PaymentOutcome) {
	var req models.PaymentCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	err := h.reconciliation.HandlePaymentCallback(req.ProductID, outcome, callerMeta(c))
	if err != nil {
		var inconsistentErr *models.InconsistentCallbackError
		var conflictErr *models.ConflictError
		switch {
		case errors.Is(err, models.ErrTransactionNotFound), errors.Is(err, models.ErrBookingNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "transaction not found"})
		case errors.As(err, &inconsistentErr):
			c.JSON(http.StatusConflict, gin.H{
				"error":    "inconsistent_callback",
				"recorded": inconsistentErr.Recorded,
				"reported": inconsistentErr.Reported,
			})
		case errors.As(err, &conflictErr):
			c.JSON(http.StatusConflict, gin.H{"error": conflictErr.Error()})
		default:
			h.logger.WithError(err).WithField("product_id", req.ProductID).
				Error("Payment callback reconciliation failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reconcile payment"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"product_id": req.ProductID,
		"outcome":    outcome,
	})
}

// GetPaymentStatus returns the recorded state of one of the caller's transactions
// @Summary Get payment status
// @Description Returns the transaction record for post-redirect polling
// @Tags Payments
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param product_id path string true "Transaction product ID"
// @Success 200 {object} models.Transaction
// @Failure 404 {object} map[string]interface{} "Unknown transaction"
// @Router /payments/{product_id}/status [get]
func (h *CheckoutHandler) GetPaymentStatus(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	productID := c.Param("product_id")
	txn, err := h.reconciliation.GetTransactionForUser(productID, userCtx.UserID)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrTransactionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "transaction not found"})
		case errors.Is(err, models.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{"error": "not authorized for this transaction"})
		default:
			h.logger.WithError(err).Error("Failed to fetch payment status")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch payment status"})
		}
		return
	}

	c.JSON(http.StatusOK, txn)
}

// GetPaymentAudits returns the audit trail for one of the caller's transactions
// @Summary Get payment audit trail
// @Description Returns every recorded payment event for the transaction, oldest first
// @Tags Payments
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param product_id path string true "Transaction product ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{} "Unknown transaction"
// @Router /payments/{product_id}/audits [get]
func (h *CheckoutHandler) GetPaymentAudits(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	productID := c.Param("product_id")
	audits, err := h.reconciliation.ListPaymentAudits(productID, userCtx.UserID)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrTransactionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "transaction not found"})
		case errors.Is(err, models.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{"error": "not authorized for this transaction"})
		default:
			h.logger.WithError(err).Error("Failed to fetch payment audit trail")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch payment audit trail"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"product_id": productID,
		"audits":     audits,
		"count":      len(audits),
	})
}
