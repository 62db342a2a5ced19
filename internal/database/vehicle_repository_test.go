package database

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/ridehub/rental-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vehicleRows(v *models.Vehicle) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "vehicle_type", "name", "brand", "model_year", "city", "district",
		"price_per_day", "status", "fuel_type", "engine_capacity", "created_at", "updated_at",
	}).AddRow(
		v.ID, v.VehicleType, v.Name, v.Brand, v.ModelYear, v.City, v.District,
		v.PricePerDay, v.Status, v.FuelType, v.EngineCapacity, v.CreatedAt, v.UpdatedAt,
	)
}

func sampleCar() *models.Vehicle {
	now := time.Now()
	fuel := "petrol"
	return &models.Vehicle{
		ID:          uuid.New(),
		VehicleType: models.VehicleTypeCar,
		Name:        "Swift Dzire",
		Brand:       "Suzuki",
		ModelYear:   2022,
		City:        "Kathmandu",
		District:    "Kathmandu",
		PricePerDay: 2500,
		Status:      models.VehicleStatusAvailable,
		FuelType:    &fuel,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestGetVehicleByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mockDB := &mockDatabase{db: db}
	repo := NewVehicleRepository(mockDB)

	t.Run("Success", func(t *testing.T) {
		vehicle := sampleCar()

		mock.ExpectQuery(`SELECT (.+) FROM vehicles WHERE id`).
			WithArgs(vehicle.ID).
			WillReturnRows(vehicleRows(vehicle))

		got, err := repo.GetByID(vehicle.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, vehicle.ID, got.ID)
		assert.Equal(t, models.VehicleTypeCar, got.VehicleType)
		assert.True(t, got.IsAvailable())

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not Found", func(t *testing.T) {
		missingID := uuid.New()

		mock.ExpectQuery(`SELECT (.+) FROM vehicles WHERE id`).
			WithArgs(missingID).
			WillReturnError(sql.ErrNoRows)

		got, err := repo.GetByID(missingID)
		require.NoError(t, err)
		assert.Nil(t, got)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestListVehicles(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mockDB := &mockDatabase{db: db}
	repo := NewVehicleRepository(mockDB)

	t.Run("Filtered By Type And City", func(t *testing.T) {
		vehicle := sampleCar()
		vt := models.VehicleTypeCar
		city := "Kathmandu"

		mock.ExpectQuery(`SELECT (.+) FROM vehicles WHERE 1=1 AND vehicle_type = \$1 AND city = \$2`).
			WithArgs(vt, city).
			WillReturnRows(vehicleRows(vehicle))

		got, err := repo.List(models.VehicleFilter{VehicleType: &vt, City: &city})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, vehicle.ID, got[0].ID)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unfiltered", func(t *testing.T) {
		vehicle := sampleCar()

		mock.ExpectQuery(`SELECT (.+) FROM vehicles WHERE 1=1`).
			WillReturnRows(vehicleRows(vehicle))

		got, err := repo.List(models.VehicleFilter{})
		require.NoError(t, err)
		assert.Len(t, got, 1)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMarkVehicleRented(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mockDB := &mockDatabase{db: db}
	repo := NewVehicleRepository(mockDB)

	vehicleID := uuid.New()

	t.Run("Available Vehicle Claimed", func(t *testing.T) {
		mock.ExpectExec(`UPDATE vehicles`).
			WithArgs(vehicleID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		ok, err := repo.MarkRented(vehicleID)
		require.NoError(t, err)
		assert.True(t, ok)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Claim Lost To Competing Rental", func(t *testing.T) {
		mock.ExpectExec(`UPDATE vehicles`).
			WithArgs(vehicleID).
			WillReturnResult(sqlmock.NewResult(0, 0))

		ok, err := repo.MarkRented(vehicleID)
		require.NoError(t, err)
		assert.False(t, ok)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestReleaseVehicle(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mockDB := &mockDatabase{db: db}
	repo := NewVehicleRepository(mockDB)

	vehicleID := uuid.New()

	// Releasing an already-available vehicle affects zero rows and still succeeds
	mock.ExpectExec(`UPDATE vehicles`).
		WithArgs(vehicleID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.Release(vehicleID)
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}
