package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// JSONB is a custom type for handling JSONB fields
type JSONB map[string]interface{}

// Value implements the driver.Valuer interface
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	bytes, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(bytes), nil
}

// Scan implements the sql.Scanner interface
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

// PaymentEventType represents the type of payment event
type PaymentEventType string

const (
	PaymentEventInitiated              PaymentEventType = "payment_initiated"
	PaymentEventInitiationFailed       PaymentEventType = "payment_initiation_failed"
	PaymentEventCallbackReceived       PaymentEventType = "callback_received"
	PaymentEventSuccess                PaymentEventType = "payment_success"
	PaymentEventFailed                 PaymentEventType = "payment_failed"
	PaymentEventUserCancelled          PaymentEventType = "user_cancelled"
	PaymentEventRolledBack             PaymentEventType = "rolled_back"
	PaymentEventReconciliationMismatch PaymentEventType = "reconciliation_mismatch"
)

// PaymentEventSource identifies where the event originated
type PaymentEventSource string

const (
	PaymentSourceBackend       PaymentEventSource = "backend"
	PaymentSourceEsewaCallback PaymentEventSource = "esewa_callback"
	PaymentSourceUser          PaymentEventSource = "user"
)

// PaymentAudit is an immutable audit log entry for payment events
type PaymentAudit struct {
	ID        uuid.UUID `json:"id" db:"id"`
	ProductID *string   `json:"product_id,omitempty" db:"product_id"`
	BookingID *uuid.UUID `json:"booking_id,omitempty" db:"booking_id"`

	EventType   PaymentEventType   `json:"event_type" db:"event_type"`
	EventSource PaymentEventSource `json:"event_source" db:"event_source"`

	// Amount tracking for reconciliation verification
	ExpectedAmount *float64 `json:"expected_amount,omitempty" db:"expected_amount"`
	ReceivedAmount *float64 `json:"received_amount,omitempty" db:"received_amount"`
	AmountsMatch   *bool    `json:"amounts_match,omitempty" db:"amounts_match"`

	PaymentStatus *string `json:"payment_status,omitempty" db:"payment_status"`
	ErrorMessage  *string `json:"error_message,omitempty" db:"error_message"`

	// Caller metadata
	IPAddress  *string `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent  *string `json:"user_agent,omitempty" db:"user_agent"`
	DeviceInfo JSONB   `json:"device_info,omitempty" db:"device_info"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// NewPaymentAudit creates an audit entry with required fields
func NewPaymentAudit(eventType PaymentEventType, source PaymentEventSource) *PaymentAudit {
	return &PaymentAudit{
		ID:          uuid.New(),
		EventType:   eventType,
		EventSource: source,
		CreatedAt:   time.Now(),
	}
}

// SetProduct sets the transaction id the event belongs to
func (pa *PaymentAudit) SetProduct(productID string) *PaymentAudit {
	pa.ProductID = &productID
	return pa
}

// SetBooking sets the booking the event belongs to
func (pa *PaymentAudit) SetBooking(bookingID uuid.UUID) *PaymentAudit {
	pa.BookingID = &bookingID
	return pa
}

// SetAmounts records and verifies amounts, returning whether they match
func (pa *PaymentAudit) SetAmounts(expected, received float64) bool {
	pa.ExpectedAmount = &expected
	pa.ReceivedAmount = &received

	// Tolerance for floating point
	const tolerance = 0.01
	diff := expected - received
	if diff < 0 {
		diff = -diff
	}
	match := diff < tolerance
	pa.AmountsMatch = &match
	return match
}

// SetPaymentStatus records the status the gateway reported
func (pa *PaymentAudit) SetPaymentStatus(status string) *PaymentAudit {
	pa.PaymentStatus = &status
	return pa
}

// SetError records error information
func (pa *PaymentAudit) SetError(message string) *PaymentAudit {
	pa.ErrorMessage = &message
	return pa
}

// SetCaller records request metadata from the caller
func (pa *PaymentAudit) SetCaller(ip, userAgent string) *PaymentAudit {
	if ip != "" {
		pa.IPAddress = &ip
	}
	if userAgent != "" {
		pa.UserAgent = &userAgent
	}
	return pa
}
