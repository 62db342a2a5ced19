package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ridehub/rental-backend/internal/models"
)

// BookingRepository handles booking database operations
type BookingRepository struct {
	db DB
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(db DB) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = `
	id, user_id, vehicle_id, vehicle_type, start_date, end_date, duration_days,
	requires_driver, total_amount, transaction_id, status, message, created_at, updated_at`

// Create persists a new booking in pending state. transaction_id carries a
// unique constraint, so a second booking for the same transaction fails here.
func (r *BookingRepository) Create(booking *models.Booking) error {
	booking.ID = uuid.New()
	booking.Status = models.BookingStatusPending
	booking.CreatedAt = time.Now()
	booking.UpdatedAt = booking.CreatedAt

	query := `
		INSERT INTO bookings (` + bookingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := r.db.Exec(query,
		booking.ID, booking.UserID, booking.VehicleID, booking.VehicleType,
		booking.StartDate, booking.EndDate, booking.DurationDays,
		booking.RequiresDriver, booking.TotalAmount, booking.TransactionID,
		booking.Status, booking.Message, booking.CreatedAt, booking.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "unique constraint") || strings.Contains(err.Error(), "duplicate key") {
			return models.ErrDuplicateTransaction
		}
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (r *BookingRepository) scanBooking(row *sql.Row) (*models.Booking, error) {
	var b models.Booking
	err := row.Scan(
		&b.ID, &b.UserID, &b.VehicleID, &b.VehicleType, &b.StartDate, &b.EndDate,
		&b.DurationDays, &b.RequiresDriver, &b.TotalAmount, &b.TransactionID,
		&b.Status, &b.Message, &b.CreatedAt, &b.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// GetByID retrieves a booking by id. Returns nil when absent.
func (r *BookingRepository) GetByID(bookingID uuid.UUID) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking, err := r.scanBooking(r.db.QueryRow(query, bookingID))
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

// GetByTransactionID retrieves the booking bound to a transaction. Returns nil
// when absent.
func (r *BookingRepository) GetByTransactionID(transactionID string) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE transaction_id = $1`

	booking, err := r.scanBooking(r.db.QueryRow(query, transactionID))
	if err != nil {
		return nil, fmt.Errorf("failed to get booking by transaction: %w", err)
	}
	return booking, nil
}

// ListByUserID retrieves a user's bookings, newest first
func (r *BookingRepository) ListByUserID(userID uuid.UUID, limit, offset int) ([]*models.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		var b models.Booking
		if err := rows.Scan(
			&b.ID, &b.UserID, &b.VehicleID, &b.VehicleType, &b.StartDate, &b.EndDate,
			&b.DurationDays, &b.RequiresDriver, &b.TotalAmount, &b.TransactionID,
			&b.Status, &b.Message, &b.CreatedAt, &b.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, &b)
	}
	return bookings, rows.Err()
}

// FinalizeIfPending moves a pending booking to a terminal status, keyed by
// transaction id. The WHERE clause is the terminal-write guard: a booking that
// already reached a terminal state is never rewritten, so whichever of a
// callback and a user cancel lands first wins. Returns false when no pending
// booking was transitioned.
func (r *BookingRepository) FinalizeIfPending(transactionID string, status models.BookingStatus) (bool, error) {
	query := `
		UPDATE bookings
		SET status = $2, updated_at = NOW()
		WHERE transaction_id = $1 AND status = 'pending'`

	result, err := r.db.Exec(query, transactionID, status)
	if err != nil {
		return false, fmt.Errorf("failed to finalize booking: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return rows > 0, nil
}

// DeleteByTransactionID removes a booking during checkout rollback. Only a
// pending booking may be rolled back.
func (r *BookingRepository) DeleteByTransactionID(transactionID string) error {
	query := `DELETE FROM bookings WHERE transaction_id = $1 AND status = 'pending'`

	if _, err := r.db.Exec(query, transactionID); err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}
	return nil
}
