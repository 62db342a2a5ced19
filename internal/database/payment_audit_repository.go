package database

import (
	"fmt"

	"github.com/ridehub/rental-backend/internal/models"
)

// PaymentAuditRepository persists the append-only payment audit trail
type PaymentAuditRepository struct {
	db DB
}

// NewPaymentAuditRepository creates a new PaymentAuditRepository
func NewPaymentAuditRepository(db DB) *PaymentAuditRepository {
	return &PaymentAuditRepository{db: db}
}

// Insert appends an audit entry. Entries are never updated or deleted.
func (r *PaymentAuditRepository) Insert(audit *models.PaymentAudit) error {
	query := `
		INSERT INTO payment_audits (
			id, product_id, booking_id, event_type, event_source,
			expected_amount, received_amount, amounts_match,
			payment_status, error_message, ip_address, user_agent,
			device_info, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := r.db.Exec(query,
		audit.ID, audit.ProductID, audit.BookingID, audit.EventType, audit.EventSource,
		audit.ExpectedAmount, audit.ReceivedAmount, audit.AmountsMatch,
		audit.PaymentStatus, audit.ErrorMessage, audit.IPAddress, audit.UserAgent,
		audit.DeviceInfo, audit.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert payment audit: %w", err)
	}
	return nil
}

// ListByProductID retrieves the audit trail for one transaction, oldest first
func (r *PaymentAuditRepository) ListByProductID(productID string) ([]*models.PaymentAudit, error) {
	query := `
		SELECT id, product_id, booking_id, event_type, event_source,
		       expected_amount, received_amount, amounts_match,
		       payment_status, error_message, ip_address, user_agent,
		       device_info, created_at
		FROM payment_audits
		WHERE product_id = $1
		ORDER BY created_at ASC`

	rows, err := r.db.Query(query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment audits: %w", err)
	}
	defer rows.Close()

	var audits []*models.PaymentAudit
	for rows.Next() {
		var a models.PaymentAudit
		if err := rows.Scan(
			&a.ID, &a.ProductID, &a.BookingID, &a.EventType, &a.EventSource,
			&a.ExpectedAmount, &a.ReceivedAmount, &a.AmountsMatch,
			&a.PaymentStatus, &a.ErrorMessage, &a.IPAddress, &a.UserAgent,
			&a.DeviceInfo, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan payment audit: %w", err)
		}
		audits = append(audits, &a)
	}
	return audits, rows.Err()
}
