package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/ridehub/rental-backend/internal/config"
	"github.com/ridehub/rental-backend/internal/database"
	"github.com/ridehub/rental-backend/internal/handlers"
	"github.com/ridehub/rental-backend/internal/middleware"
	"github.com/ridehub/rental-backend/internal/services"
	"github.com/ridehub/rental-backend/pkg/jwt"
	"github.com/sirupsen/logrus"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting RideHub Rental Backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	// Initialize repositories
	vehicleRepository := database.NewVehicleRepository(db)
	bookingRepository := database.NewBookingRepository(db)
	transactionRepository := database.NewTransactionRepository(db)
	paymentAuditRepository := database.NewPaymentAuditRepository(db)

	// Initialize services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)
	esewaService := services.NewEsewaService(cfg.Esewa, cfg.Booking.GatewayTimeout, logger)
	if !esewaService.IsConfigured() {
		logger.Warn("eSewa gateway credentials are not configured; checkout will fail")
	}
	auditService := services.NewAuditService(paymentAuditRepository, logger)
	reconciliationService := services.NewReconciliationService(
		vehicleRepository,
		bookingRepository,
		transactionRepository,
		esewaService,
		auditService,
		cfg.Booking,
		logger,
	)
	logger.Info("Services initialized")

	// Initialize handlers
	checkoutHandler := handlers.NewCheckoutHandler(reconciliationService, logger)
	bookingHandler := handlers.NewBookingHandler(reconciliationService, logger)
	vehicleHandler := handlers.NewVehicleHandler(vehicleRepository, logger)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	// CORS configuration
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Vehicle catalogue (public)
		vehicles := v1.Group("/vehicles")
		{
			vehicles.GET("", vehicleHandler.List)
			vehicles.GET("/:id", vehicleHandler.Get)
		}

		// Payment callbacks (reached via gateway redirect, no JWT)
		payments := v1.Group("/payments")
		{
			payments.POST("/status", checkoutHandler.PaymentSuccess)
			payments.POST("/failure", checkoutHandler.PaymentFailure)

			paymentsProtected := payments.Group("")
			paymentsProtected.Use(middleware.AuthMiddleware(jwtService))
			{
				paymentsProtected.GET("/:product_id/status", checkoutHandler.GetPaymentStatus)
				paymentsProtected.GET("/:product_id/audits", checkoutHandler.GetPaymentAudits)
			}
		}

		// Checkout and bookings (protected)
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(jwtService))
		{
			protected.POST("/checkout", checkoutHandler.Checkout)
			protected.GET("/bookings", bookingHandler.List)
			protected.GET("/bookings/:id", bookingHandler.Get)
			protected.PATCH("/bookings/:id/cancel", bookingHandler.Cancel)
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"ip":         c.ClientIP(),
			"latency_ms": latency.Milliseconds(),
			"user_agent": c.Request.UserAgent(),
		}

		if userCtx, exists := middleware.GetUserContext(c); exists {
			fields["user_id"] = userCtx.UserID
		}

		entry := logger.WithFields(fields)

		if len(c.Errors) > 0 {
			for i, err := range c.Errors {
				entry = entry.WithField(fmt.Sprintf("error_%d", i), err.Error())
			}
			entry.Error("Request failed with errors")
		} else {
			status := c.Writer.Status()
			if status >= 500 {
				entry.Error("Request completed with server error")
			} else if status >= 400 {
				entry.Warn("Request completed with client error")
			} else {
				entry.Info("Request completed successfully")
			}
		}
	}
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db database.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  "healthy",
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}
