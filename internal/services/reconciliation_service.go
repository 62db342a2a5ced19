package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ridehub/rental-backend/internal/config"
	"github.com/ridehub/rental-backend/internal/database"
	"github.com/ridehub/rental-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// PaymentGateway is the contract the reconciliation service needs from the
// payment provider. EsewaService implements it. CheckStatus is the server-side
// verification behind success callbacks; the callback body alone is never
// trusted to mark money as captured.
type PaymentGateway interface {
	InitiatePayment(params *InitiatePaymentParams) (*PaymentInitiation, error)
	CheckStatus(productID string, amount float64) (*EsewaStatusResponse, error)
	IsConfigured() bool
}

// ReconciliationService orchestrates the checkout → callback workflow: it
// creates the transaction/booking pair, obtains the gateway redirect, and
// later reconciles booking, transaction, and vehicle state from the
// asynchronous payment outcome.
type ReconciliationService struct {
	vehicleRepo *database.VehicleRepository
	bookingRepo *database.BookingRepository
	txnRepo     *database.TransactionRepository
	gateway     PaymentGateway
	audit       *AuditService
	config      config.BookingConfig
	logger      *logrus.Logger
}

// NewReconciliationService creates a new reconciliation service
func NewReconciliationService(
	vehicleRepo *database.VehicleRepository,
	bookingRepo *database.BookingRepository,
	txnRepo *database.TransactionRepository,
	gateway PaymentGateway,
	audit *AuditService,
	cfg config.BookingConfig,
	logger *logrus.Logger,
) *ReconciliationService {
	return &ReconciliationService{
		vehicleRepo: vehicleRepo,
		bookingRepo: bookingRepo,
		txnRepo:     txnRepo,
		gateway:     gateway,
		audit:       audit,
		config:      cfg,
		logger:      logger,
	}
}

// Quote computes the server-side rental cost. The client's displayed amount is
// informational only; this value is what gets charged.
func (s *ReconciliationService) Quote(pricePerDay float64, durationDays int, requiresDriver bool) float64 {
	total := pricePerDay * float64(durationDays)
	if requiresDriver {
		total += s.config.DriverDayRate * float64(durationDays)
	}
	return total
}

// mintTransactionID generates the opaque product id shared by the transaction,
// the booking, and the gateway
func mintTransactionID() string {
	return fmt.Sprintf("RENT-%d-%s", time.Now().Unix(), strings.ToUpper(uuid.New().String()[:8]))
}

// InitiateCheckout validates the request, opens the transaction/booking pair,
// and obtains the gateway redirect URL. Every failure past record creation
// rolls the created records back; no orphaned transaction or booking survives
// a failed initiation.
func (s *ReconciliationService) InitiateCheckout(
	userID uuid.UUID,
	req *models.CheckoutRequest,
	meta *CallerMeta,
) (*models.CheckoutResponse, error) {
	startDate, endDate, err := req.ParseDates()
	if err != nil {
		return nil, models.NewValidationError("invalid dates: %v", err)
	}

	if !endDate.After(startDate) {
		return nil, models.NewValidationError("end_date must be after start_date")
	}

	today := time.Now().Truncate(24 * time.Hour)
	if startDate.Before(today) {
		return nil, models.NewValidationError("start_date is in the past")
	}

	durationDays := models.RentalDays(startDate, endDate)
	if durationDays < s.config.MinRentalDays || durationDays > s.config.MaxRentalDays {
		return nil, models.NewValidationError("rental duration must be between %d and %d days",
			s.config.MinRentalDays, s.config.MaxRentalDays)
	}

	vehicleID, err := uuid.Parse(req.VehicleID)
	if err != nil {
		return nil, models.NewValidationError("invalid vehicle_id: %v", err)
	}

	vehicle, err := s.vehicleRepo.GetByID(vehicleID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up vehicle: %w", err)
	}
	if vehicle == nil {
		return nil, models.ErrVehicleNotFound
	}
	if !vehicle.IsAvailable() {
		return nil, models.NewConflictError("vehicle", fmt.Sprintf("vehicle is %s", vehicle.Status))
	}

	totalAmount := s.Quote(vehicle.PricePerDay, durationDays, req.RequiresDriver)
	productID := mintTransactionID()

	if _, err := s.txnRepo.Open(productID, totalAmount); err != nil {
		return nil, fmt.Errorf("failed to open transaction: %w", err)
	}

	booking := &models.Booking{
		UserID:         userID,
		VehicleID:      vehicle.ID,
		VehicleType:    vehicle.VehicleType,
		StartDate:      startDate,
		EndDate:        endDate,
		DurationDays:   durationDays,
		RequiresDriver: req.RequiresDriver,
		TotalAmount:    totalAmount,
		TransactionID:  productID,
	}
	if req.Message != "" {
		booking.Message = &req.Message
	}

	if err := s.bookingRepo.Create(booking); err != nil {
		// The pair is created atomically or not at all: roll the transaction
		// back before reporting the failure
		if delErr := s.txnRepo.Delete(productID); delErr != nil {
			s.logger.WithError(delErr).WithField("product_id", productID).
				Error("Failed to roll back transaction after booking creation failure")
		}
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	initiation, err := s.gateway.InitiatePayment(&InitiatePaymentParams{
		ProductID: productID,
		Amount:    totalAmount,
	})
	if err != nil {
		s.rollbackCheckout(productID)

		audit := models.NewPaymentAudit(models.PaymentEventInitiationFailed, models.PaymentSourceBackend).
			SetProduct(productID).
			SetBooking(booking.ID).
			SetError(err.Error())
		s.audit.Record(audit, meta)

		return nil, fmt.Errorf("payment initiation failed: %w", err)
	}

	audit := models.NewPaymentAudit(models.PaymentEventInitiated, models.PaymentSourceBackend).
		SetProduct(productID).
		SetBooking(booking.ID)
	audit.SetAmounts(totalAmount, totalAmount)
	s.audit.Record(audit, meta)

	s.logger.WithFields(logrus.Fields{
		"product_id":   productID,
		"booking_id":   booking.ID,
		"user_id":      userID,
		"vehicle_id":   vehicle.ID,
		"total_amount": totalAmount,
		"duration":     durationDays,
	}).Info("Checkout initiated")

	return &models.CheckoutResponse{
		Success:       true,
		URL:           initiation.RedirectURL,
		TransactionID: productID,
		TotalAmount:   totalAmount,
	}, nil
}

// rollbackCheckout deletes the transaction/booking pair created during a
// checkout that could not reach the gateway
func (s *ReconciliationService) rollbackCheckout(productID string) {
	if err := s.bookingRepo.DeleteByTransactionID(productID); err != nil {
		s.logger.WithError(err).WithField("product_id", productID).
			Error("Failed to roll back booking after initiation failure")
	}
	if err := s.txnRepo.Delete(productID); err != nil {
		s.logger.WithError(err).WithField("product_id", productID).
			Error("Failed to roll back transaction after initiation failure")
		return
	}

	rolledBack := models.NewPaymentAudit(models.PaymentEventRolledBack, models.PaymentSourceBackend).
		SetProduct(productID)
	s.audit.Record(rolledBack, nil)
}

// HandlePaymentCallback applies the gateway's reported outcome to the
// transaction, the booking, and the vehicle, in that fixed order. Replays with
// the recorded outcome are no-ops; replays that contradict it surface an
// InconsistentCallbackError.
func (s *ReconciliationService) HandlePaymentCallback(
	productID string,
	outcome models.PaymentOutcome,
	meta *CallerMeta,
) error {
	txn, err := s.txnRepo.GetByProductID(productID)
	if err != nil {
		return err
	}
	if txn == nil {
		return fmt.Errorf("callback for unknown transaction %s: %w", productID, models.ErrTransactionNotFound)
	}

	booking, err := s.bookingRepo.GetByTransactionID(productID)
	if err != nil {
		return err
	}
	if booking == nil {
		return fmt.Errorf("no booking bound to transaction %s: %w", productID, models.ErrBookingNotFound)
	}

	received := models.NewPaymentAudit(models.PaymentEventCallbackReceived, models.PaymentSourceEsewaCallback).
		SetProduct(productID).
		SetBooking(booking.ID).
		SetPaymentStatus(string(outcome))
	s.audit.Record(received, meta)

	terminal := outcome.TerminalStatus()

	if txn.IsTerminal() {
		return s.checkReplay(txn, terminal, meta)
	}

	// A success claim is verified against the gateway before anything is
	// recorded; the transaction stays PENDING if verification cannot pass
	var verifiedAmount float64
	if outcome == models.OutcomeSuccess {
		verification, err := s.gateway.CheckStatus(productID, txn.Amount)
		if err != nil {
			return fmt.Errorf("failed to verify payment with gateway: %w", err)
		}
		if verification.Status != string(models.TransactionStatusComplete) {
			s.audit.RecordMismatch(productID, verification.Status, string(terminal), meta)
			return models.NewConflictError("transaction",
				fmt.Sprintf("gateway reports %s, not a completed payment", verification.Status))
		}

		amountCheck := models.NewPaymentAudit(models.PaymentEventReconciliationMismatch, models.PaymentSourceEsewaCallback).
			SetProduct(productID).
			SetBooking(booking.ID).
			SetPaymentStatus(verification.Status)
		if !amountCheck.SetAmounts(txn.Amount, verification.TotalAmount) {
			amountCheck.SetError("gateway-reported amount does not match the recorded charge")
			s.audit.Record(amountCheck, meta)
			return models.NewConflictError("transaction", "gateway-reported amount does not match the recorded charge")
		}
		verifiedAmount = verification.TotalAmount
	}

	closed, err := s.txnRepo.CloseIfPending(productID, terminal)
	if err != nil {
		return err
	}
	if !closed {
		// Lost the race to another terminal write; re-read and judge the
		// replay against whatever landed
		txn, err = s.txnRepo.GetByProductID(productID)
		if err != nil {
			return err
		}
		if txn == nil {
			return fmt.Errorf("transaction %s disappeared during reconciliation: %w",
				productID, models.ErrTransactionNotFound)
		}
		return s.checkReplay(txn, terminal, meta)
	}

	var bookingStatus models.BookingStatus
	if outcome == models.OutcomeSuccess {
		bookingStatus = models.BookingStatusCompleted
	} else {
		bookingStatus = models.BookingStatusCancelled
	}

	finalized, err := s.bookingRepo.FinalizeIfPending(productID, bookingStatus)
	if err != nil {
		return err
	}
	if !finalized {
		s.logger.WithFields(logrus.Fields{
			"product_id": productID,
			"booking_id": booking.ID,
			"status":     booking.Status,
		}).Warn("Booking was already terminal when callback arrived")
	}

	if outcome == models.OutcomeSuccess {
		claimed, err := s.vehicleRepo.MarkRented(booking.VehicleID)
		if err != nil {
			return err
		}
		if !claimed {
			// Paid booking lost the vehicle to a competing rental; this needs
			// operator attention, not a silent overwrite
			s.audit.RecordMismatch(productID, "vehicle unavailable", string(terminal), meta)
			return models.NewConflictError("vehicle", "vehicle is no longer available for a paid booking")
		}

		success := models.NewPaymentAudit(models.PaymentEventSuccess, models.PaymentSourceEsewaCallback).
			SetProduct(productID).
			SetBooking(booking.ID).
			SetPaymentStatus(string(terminal))
		success.SetAmounts(txn.Amount, verifiedAmount)
		s.audit.Record(success, meta)
	} else {
		if err := s.vehicleRepo.Release(booking.VehicleID); err != nil {
			return err
		}

		failed := models.NewPaymentAudit(models.PaymentEventFailed, models.PaymentSourceEsewaCallback).
			SetProduct(productID).
			SetBooking(booking.ID).
			SetPaymentStatus(string(terminal))
		s.audit.Record(failed, meta)
	}

	s.logger.WithFields(logrus.Fields{
		"product_id":     productID,
		"booking_id":     booking.ID,
		"outcome":        outcome,
		"booking_status": bookingStatus,
	}).Info("Payment callback reconciled")

	return nil
}

// checkReplay judges a callback against an already-terminal transaction
func (s *ReconciliationService) checkReplay(
	txn *models.Transaction,
	reported models.TransactionStatus,
	meta *CallerMeta,
) error {
	if txn.Status == reported {
		s.logger.WithFields(logrus.Fields{
			"product_id": txn.ProductID,
			"status":     txn.Status,
		}).Info("Duplicate payment callback, no further side effects")
		return nil
	}

	s.audit.RecordMismatch(txn.ProductID, string(txn.Status), string(reported), meta)
	return &models.InconsistentCallbackError{
		ProductID: txn.ProductID,
		Recorded:  txn.Status,
		Reported:  reported,
	}
}

// CancelPendingBooking cancels a booking on the owner's request. Only legal
// while the paired transaction is still PENDING; re-cancel of a cancelled
// booking is a no-op, cancel of a completed one is a conflict.
func (s *ReconciliationService) CancelPendingBooking(bookingID, userID uuid.UUID, meta *CallerMeta) error {
	booking, err := s.bookingRepo.GetByID(bookingID)
	if err != nil {
		return err
	}
	if booking == nil {
		return models.ErrBookingNotFound
	}
	if booking.UserID != userID {
		return models.ErrForbidden
	}

	switch booking.Status {
	case models.BookingStatusCancelled:
		return nil
	case models.BookingStatusCompleted:
		return models.NewConflictError("booking", "booking is already completed")
	}

	txn, err := s.txnRepo.GetByProductID(booking.TransactionID)
	if err != nil {
		return err
	}
	if txn != nil && txn.Status == models.TransactionStatusComplete {
		return models.NewConflictError("transaction", "payment already completed for this booking")
	}

	closed, err := s.txnRepo.CloseIfPending(booking.TransactionID, models.TransactionStatusFailed)
	if err != nil {
		return err
	}
	if !closed {
		// A callback landed between the guard reads and this write; whichever
		// terminal transition won stays
		current, err := s.txnRepo.GetByProductID(booking.TransactionID)
		if err != nil {
			return err
		}
		if current != nil && current.Status == models.TransactionStatusComplete {
			return models.NewConflictError("transaction", "payment already completed for this booking")
		}
		// Already failed: a failure callback or concurrent cancel got there
		// first, the booking and vehicle still need to settle below
	}

	finalized, err := s.bookingRepo.FinalizeIfPending(booking.TransactionID, models.BookingStatusCancelled)
	if err != nil {
		return err
	}
	if !finalized {
		current, err := s.bookingRepo.GetByID(bookingID)
		if err != nil {
			return err
		}
		if current != nil && current.Status == models.BookingStatusCancelled {
			return nil
		}
		return models.NewConflictError("booking", "booking was completed before the cancel could apply")
	}

	if err := s.vehicleRepo.Release(booking.VehicleID); err != nil {
		return err
	}

	audit := models.NewPaymentAudit(models.PaymentEventUserCancelled, models.PaymentSourceUser).
		SetProduct(booking.TransactionID).
		SetBooking(booking.ID)
	s.audit.Record(audit, meta)

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"product_id": booking.TransactionID,
		"user_id":    userID,
	}).Info("Booking cancelled by user")

	return nil
}

// GetTransactionForUser returns the transaction behind one of the caller's
// bookings, for post-redirect status polling
func (s *ReconciliationService) GetTransactionForUser(productID string, userID uuid.UUID) (*models.Transaction, error) {
	booking, err := s.bookingRepo.GetByTransactionID(productID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, models.ErrTransactionNotFound
	}
	if booking.UserID != userID {
		return nil, models.ErrForbidden
	}

	txn, err := s.txnRepo.GetByProductID(productID)
	if err != nil {
		return nil, err
	}
	if txn == nil {
		return nil, models.ErrTransactionNotFound
	}
	return txn, nil
}

// ListPaymentAudits returns the audit trail behind one of the caller's
// bookings, owner-only
func (s *ReconciliationService) ListPaymentAudits(productID string, userID uuid.UUID) ([]*models.PaymentAudit, error) {
	booking, err := s.bookingRepo.GetByTransactionID(productID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, models.ErrTransactionNotFound
	}
	if booking.UserID != userID {
		return nil, models.ErrForbidden
	}

	return s.audit.History(productID)
}

// ListUserBookings returns the caller's bookings enriched with their
// transaction records
func (s *ReconciliationService) ListUserBookings(userID uuid.UUID, limit, offset int) ([]*models.BookingWithTransaction, error) {
	bookings, err := s.bookingRepo.ListByUserID(userID, limit, offset)
	if err != nil {
		return nil, err
	}

	enriched := make([]*models.BookingWithTransaction, 0, len(bookings))
	for _, b := range bookings {
		item := &models.BookingWithTransaction{Booking: *b}
		txn, err := s.txnRepo.GetByProductID(b.TransactionID)
		if err != nil {
			return nil, err
		}
		item.Transaction = txn
		enriched = append(enriched, item)
	}
	return enriched, nil
}

// GetUserBooking returns a single booking, owner-only
func (s *ReconciliationService) GetUserBooking(bookingID, userID uuid.UUID) (*models.BookingWithTransaction, error) {
	booking, err := s.bookingRepo.GetByID(bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, models.ErrBookingNotFound
	}
	if booking.UserID != userID {
		return nil, models.ErrForbidden
	}

	txn, err := s.txnRepo.GetByProductID(booking.TransactionID)
	if err != nil {
		return nil, err
	}
	return &models.BookingWithTransaction{Booking: *booking, Transaction: txn}, nil
}
