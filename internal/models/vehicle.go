package models

import (
	"time"

	"github.com/google/uuid"
)

// VehicleType discriminates the two rentable vehicle kinds
type VehicleType string

const (
	VehicleTypeCar  VehicleType = "car"
	VehicleTypeBike VehicleType = "bike"
)

// VehicleStatus represents the availability of a vehicle
type VehicleStatus string

const (
	VehicleStatusAvailable   VehicleStatus = "available"   // Free to be booked
	VehicleStatusRented      VehicleStatus = "rented"      // Claimed by an active booking
	VehicleStatusMaintenance VehicleStatus = "maintenance" // Taken off the fleet by an admin
)

// Vehicle represents a rentable car or bike. Both kinds live in one table,
// discriminated by vehicle_type, so a lookup by id needs a single query.
type Vehicle struct {
	ID          uuid.UUID     `json:"id" db:"id"`
	VehicleType VehicleType   `json:"vehicle_type" db:"vehicle_type"`
	Name        string        `json:"name" db:"name"`
	Brand       string        `json:"brand" db:"brand"`
	ModelYear   int           `json:"model_year" db:"model_year"`
	City        string        `json:"city" db:"city"`
	District    string        `json:"district" db:"district"`
	PricePerDay float64       `json:"price_per_day" db:"price_per_day"`
	Status      VehicleStatus `json:"status" db:"status"`

	// Car-only
	FuelType *string `json:"fuel_type,omitempty" db:"fuel_type"`

	// Bike-only
	EngineCapacity *int `json:"engine_capacity,omitempty" db:"engine_capacity"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsAvailable reports whether the vehicle can accept a new booking
func (v *Vehicle) IsAvailable() bool {
	return v.Status == VehicleStatusAvailable
}

// VehicleFilter narrows vehicle listings
type VehicleFilter struct {
	VehicleType *VehicleType
	City        *string
	Status      *VehicleStatus
}
