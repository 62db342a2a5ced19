package models

import "time"

// TransactionStatus represents the state of a payment-gateway transaction.
// The uppercase PENDING/COMPLETE values mirror what eSewa reports in its
// status-check API, so reconciliation compares them without mapping.
type TransactionStatus string

const (
	TransactionStatusPending  TransactionStatus = "PENDING"
	TransactionStatusComplete TransactionStatus = "COMPLETE"
	TransactionStatusFailed   TransactionStatus = "failed"
)

// Transaction is the gateway-facing record tracking whether money was
// captured for a booking. Identity is the product_id minted at checkout.
type Transaction struct {
	ProductID string            `json:"product_id" db:"product_id"`
	Amount    float64           `json:"amount" db:"amount"`
	Status    TransactionStatus `json:"status" db:"status"`
	CreatedAt time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt time.Time         `json:"updated_at" db:"updated_at"`
}

// IsTerminal reports whether the transaction has a final outcome recorded
func (t *Transaction) IsTerminal() bool {
	return t.Status == TransactionStatusComplete || t.Status == TransactionStatusFailed
}

// PaymentOutcome is the result reported by a gateway callback
type PaymentOutcome string

const (
	OutcomeSuccess PaymentOutcome = "success"
	OutcomeFailure PaymentOutcome = "failure"
)

// TerminalStatus maps a callback outcome to the transaction status it records
func (o PaymentOutcome) TerminalStatus() TransactionStatus {
	if o == OutcomeSuccess {
		return TransactionStatusComplete
	}
	return TransactionStatusFailed
}

// PaymentCallbackRequest is the body posted by the gateway-facing callback
// endpoints after eSewa redirects the payer back through the frontend.
type PaymentCallbackRequest struct {
	ProductID string `json:"product_id" binding:"required"`
}
