package database

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/ridehub/rental-backend/internal/models"
)

// VehicleRepository handles vehicle database operations. Cars and bikes share
// one table with a vehicle_type discriminator, so a lookup by id is a single
// query regardless of kind.
type VehicleRepository struct {
	db DB
}

// NewVehicleRepository creates a new VehicleRepository
func NewVehicleRepository(db DB) *VehicleRepository {
	return &VehicleRepository{db: db}
}

const vehicleColumns = `
	id, vehicle_type, name, brand, model_year, city, district,
	price_per_day, status, fuel_type, engine_capacity, created_at, updated_at`

func scanVehicle(row *sql.Row) (*models.Vehicle, error) {
	var v models.Vehicle
	err := row.Scan(
		&v.ID, &v.VehicleType, &v.Name, &v.Brand, &v.ModelYear, &v.City, &v.District,
		&v.PricePerDay, &v.Status, &v.FuelType, &v.EngineCapacity, &v.CreatedAt, &v.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// GetByID retrieves a vehicle by id, car or bike. Returns nil when absent.
func (r *VehicleRepository) GetByID(vehicleID uuid.UUID) (*models.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE id = $1`

	vehicle, err := scanVehicle(r.db.QueryRow(query, vehicleID))
	if err != nil {
		return nil, fmt.Errorf("failed to get vehicle: %w", err)
	}
	return vehicle, nil
}

// List retrieves vehicles matching the filter
func (r *VehicleRepository) List(filter models.VehicleFilter) ([]*models.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE 1=1`
	args := []interface{}{}

	if filter.VehicleType != nil {
		args = append(args, *filter.VehicleType)
		query += fmt.Sprintf(" AND vehicle_type = $%d", len(args))
	}
	if filter.City != nil {
		args = append(args, *filter.City)
		query += fmt.Sprintf(" AND city = $%d", len(args))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list vehicles: %w", err)
	}
	defer rows.Close()

	var vehicles []*models.Vehicle
	for rows.Next() {
		var v models.Vehicle
		if err := rows.Scan(
			&v.ID, &v.VehicleType, &v.Name, &v.Brand, &v.ModelYear, &v.City, &v.District,
			&v.PricePerDay, &v.Status, &v.FuelType, &v.EngineCapacity, &v.CreatedAt, &v.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan vehicle: %w", err)
		}
		vehicles = append(vehicles, &v)
	}
	return vehicles, rows.Err()
}

// MarkRented claims the vehicle for an active booking. The transition only
// fires while the vehicle is still available, so of two racing claims exactly
// one sees rows affected. Returns false when the claim lost.
func (r *VehicleRepository) MarkRented(vehicleID uuid.UUID) (bool, error) {
	query := `
		UPDATE vehicles
		SET status = 'rented', updated_at = NOW()
		WHERE id = $1 AND status = 'available'`

	result, err := r.db.Exec(query, vehicleID)
	if err != nil {
		return false, fmt.Errorf("failed to mark vehicle rented: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return rows > 0, nil
}

// Release returns a rented vehicle to the fleet. A vehicle in maintenance is
// left alone. Releasing an already-available vehicle is a no-op, which keeps
// repeated failure callbacks harmless.
func (r *VehicleRepository) Release(vehicleID uuid.UUID) error {
	query := `
		UPDATE vehicles
		SET status = 'available', updated_at = NOW()
		WHERE id = $1 AND status = 'rented'`

	if _, err := r.db.Exec(query, vehicleID); err != nil {
		return fmt.Errorf("failed to release vehicle: %w", err)
	}
	return nil
}
