package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ridehub/rental-backend/internal/database"
	"github.com/ridehub/rental-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// VehicleHandler handles the public vehicle catalogue endpoints
type VehicleHandler struct {
	vehicleRepo *database.VehicleRepository
	logger      *logrus.Logger
}

// NewVehicleHandler creates a new VehicleHandler
func NewVehicleHandler(vehicleRepo *database.VehicleRepository, logger *logrus.Logger) *VehicleHandler {
	return &VehicleHandler{
		vehicleRepo: vehicleRepo,
		logger:      logger,
	}
}

// List returns vehicles matching the optional filters
// @Summary List vehicles
// @Tags Vehicles
// @Produce json
// @Param type query string false "Vehicle type (car|bike)"
// @Param city query string false "City"
// @Param status query string false "Status (available|rented|maintenance)"
// @Success 200 {object} map[string]interface{}
// @Router /vehicles [get]
func (h *VehicleHandler) List(c *gin.Context) {
	filter := models.VehicleFilter{}

	if v := c.Query("type"); v != "" {
		vt := models.VehicleType(v)
		if vt != models.VehicleTypeCar && vt != models.VehicleTypeBike {
			c.JSON(http.StatusBadRequest, gin.H{"error": "type must be car or bike"})
			return
		}
		filter.VehicleType = &vt
	}
	if v := c.Query("city"); v != "" {
		filter.City = &v
	}
	if v := c.Query("status"); v != "" {
		st := models.VehicleStatus(v)
		filter.Status = &st
	}

	vehicles, err := h.vehicleRepo.List(filter)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list vehicles")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list vehicles"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"vehicles": vehicles,
		"count":    len(vehicles),
	})
}

// Get returns a single vehicle
// @Summary Get vehicle
// @Tags Vehicles
// @Produce json
// @Param id path string true "Vehicle ID"
// @Success 200 {object} models.Vehicle
// @Failure 404 {object} map[string]interface{} "Vehicle not found"
// @Router /vehicles/{id} [get]
func (h *VehicleHandler) Get(c *gin.Context) {
	vehicleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid vehicle id"})
		return
	}

	vehicle, err := h.vehicleRepo.GetByID(vehicleID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to fetch vehicle")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch vehicle"})
		return
	}
	if vehicle == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "vehicle not found"})
		return
	}

	c.JSON(http.StatusOK, vehicle)
}
