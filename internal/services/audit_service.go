package services

import (
	"github.com/ridehub/rental-backend/internal/database"
	"github.com/ridehub/rental-backend/internal/models"
	"github.com/ridehub/rental-backend/internal/utils"
	"github.com/sirupsen/logrus"
)

// AuditService appends payment events to the immutable audit trail. Audit
// failures are logged, never propagated; the workflow must not fail because
// bookkeeping did.
type AuditService struct {
	repo   *database.PaymentAuditRepository
	logger *logrus.Logger
}

// NewAuditService creates a new audit service
func NewAuditService(repo *database.PaymentAuditRepository, logger *logrus.Logger) *AuditService {
	return &AuditService{repo: repo, logger: logger}
}

// CallerMeta carries request metadata for events triggered over HTTP
type CallerMeta struct {
	IPAddress string
	UserAgent string
}

// Record appends an event, attaching caller metadata and parsed device info
func (s *AuditService) Record(audit *models.PaymentAudit, meta *CallerMeta) {
	if meta != nil {
		audit.SetCaller(meta.IPAddress, meta.UserAgent)
		if meta.UserAgent != "" {
			device := utils.ParseUserAgent(meta.UserAgent)
			audit.DeviceInfo = models.JSONB{
				"device_type": device.DeviceType,
				"os":          device.OS,
				"browser":     device.Browser,
				"is_bot":      device.IsBot,
			}
		}
	}

	if err := s.repo.Insert(audit); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"event_type": audit.EventType,
			"product_id": audit.ProductID,
		}).Error("Failed to write payment audit entry")
	}
}

// History returns the audit trail for one transaction, oldest first
func (s *AuditService) History(productID string) ([]*models.PaymentAudit, error) {
	return s.repo.ListByProductID(productID)
}

// RecordMismatch logs and persists a reconciliation mismatch. These entries
// are the loud trail behind InconsistentCallbackError.
func (s *AuditService) RecordMismatch(productID, recorded, reported string, meta *CallerMeta) {
	s.logger.WithFields(logrus.Fields{
		"product_id": productID,
		"recorded":   recorded,
		"reported":   reported,
	}).Error("Payment reconciliation mismatch")

	audit := models.NewPaymentAudit(models.PaymentEventReconciliationMismatch, models.PaymentSourceEsewaCallback).
		SetProduct(productID).
		SetPaymentStatus(reported).
		SetError("callback outcome conflicts with recorded terminal status: " + recorded)
	s.Record(audit, meta)
}
