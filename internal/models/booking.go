package models

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// BookingStatus represents the lifecycle state of a booking
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"   // Created at checkout, awaiting payment outcome
	BookingStatusCompleted BookingStatus = "completed" // Payment reconciled successfully
	BookingStatusCancelled BookingStatus = "cancelled" // Payment failed, abandoned, or user-cancelled
)

// Booking represents a user's request to rent a vehicle for a date range.
// Exactly one booking exists per transaction (transaction_id is unique).
type Booking struct {
	ID             uuid.UUID     `json:"id" db:"id"`
	UserID         uuid.UUID     `json:"user_id" db:"user_id"`
	VehicleID      uuid.UUID     `json:"vehicle_id" db:"vehicle_id"`
	VehicleType    VehicleType   `json:"vehicle_type" db:"vehicle_type"`
	StartDate      time.Time     `json:"start_date" db:"start_date"`
	EndDate        time.Time     `json:"end_date" db:"end_date"`
	DurationDays   int           `json:"duration_days" db:"duration_days"`
	RequiresDriver bool          `json:"requires_driver" db:"requires_driver"`
	TotalAmount    float64       `json:"total_amount" db:"total_amount"`
	TransactionID  string        `json:"transaction_id" db:"transaction_id"`
	Status         BookingStatus `json:"status" db:"status"`
	Message        *string       `json:"message,omitempty" db:"message"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at" db:"updated_at"`
}

// IsTerminal reports whether no further transition is permitted
func (b *Booking) IsTerminal() bool {
	return b.Status == BookingStatusCompleted || b.Status == BookingStatusCancelled
}

// RentalDays returns the ceiling of the day difference between two dates
func RentalDays(start, end time.Time) int {
	return int(math.Ceil(end.Sub(start).Hours() / 24))
}

// CheckoutRequest is the body of POST /checkout. The client never supplies the
// amount; it is recomputed server-side from the vehicle's price.
type CheckoutRequest struct {
	VehicleID      string `json:"vehicle_id" binding:"required,uuid"`
	StartDate      string `json:"start_date" binding:"required"` // YYYY-MM-DD
	EndDate        string `json:"end_date" binding:"required"`   // YYYY-MM-DD
	RequiresDriver bool   `json:"requires_driver"`
	Message        string `json:"message"`
}

// ParseDates validates and parses the request's calendar dates
func (r *CheckoutRequest) ParseDates() (start, end time.Time, err error) {
	start, err = time.Parse("2006-01-02", r.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start_date: %w", err)
	}
	end, err = time.Parse("2006-01-02", r.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end_date: %w", err)
	}
	return start, end, nil
}

// CheckoutResponse carries the gateway redirect URL back to the client
type CheckoutResponse struct {
	Success       bool    `json:"success"`
	URL           string  `json:"url"`
	TransactionID string  `json:"transaction_id"`
	TotalAmount   float64 `json:"total_amount"`
}

// BookingWithTransaction is a booking enriched with its payment record for listings
type BookingWithTransaction struct {
	Booking
	Transaction *Transaction `json:"transaction,omitempty"`
}
