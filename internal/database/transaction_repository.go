package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ridehub/rental-backend/internal/models"
)

// TransactionRepository handles payment transaction database operations
type TransactionRepository struct {
	db DB
}

// NewTransactionRepository creates a new TransactionRepository
func NewTransactionRepository(db DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Open creates a PENDING transaction for a freshly minted product id.
// Returns ErrDuplicateTransaction when the id is already taken.
func (r *TransactionRepository) Open(productID string, amount float64) (*models.Transaction, error) {
	now := time.Now()
	txn := &models.Transaction{
		ProductID: productID,
		Amount:    amount,
		Status:    models.TransactionStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	query := `
		INSERT INTO transactions (product_id, amount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.Exec(query, txn.ProductID, txn.Amount, txn.Status, txn.CreatedAt, txn.UpdatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "unique constraint") || strings.Contains(err.Error(), "duplicate key") {
			return nil, models.ErrDuplicateTransaction
		}
		return nil, fmt.Errorf("failed to open transaction: %w", err)
	}
	return txn, nil
}

// GetByProductID retrieves a transaction. Returns nil when absent.
func (r *TransactionRepository) GetByProductID(productID string) (*models.Transaction, error) {
	var txn models.Transaction
	query := `
		SELECT product_id, amount, status, created_at, updated_at
		FROM transactions
		WHERE product_id = $1`

	err := r.db.QueryRow(query, productID).Scan(
		&txn.ProductID, &txn.Amount, &txn.Status, &txn.CreatedAt, &txn.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &txn, nil
}

// CloseIfPending records the terminal status for a transaction. The WHERE
// clause guarantees a terminal status is written at most once; a replayed
// callback sees zero rows affected. Returns false when nothing transitioned.
func (r *TransactionRepository) CloseIfPending(productID string, status models.TransactionStatus) (bool, error) {
	query := `
		UPDATE transactions
		SET status = $2, updated_at = NOW()
		WHERE product_id = $1 AND status = 'PENDING'`

	result, err := r.db.Exec(query, productID, status)
	if err != nil {
		return false, fmt.Errorf("failed to close transaction: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return rows > 0, nil
}

// Delete removes a transaction during checkout rollback. Only a PENDING
// transaction may be rolled back; terminal records are financial history.
func (r *TransactionRepository) Delete(productID string) error {
	query := `DELETE FROM transactions WHERE product_id = $1 AND status = 'PENDING'`

	if _, err := r.db.Exec(query, productID); err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	return nil
}
