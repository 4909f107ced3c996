package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bussewa/booking-backend/internal/config"
	"github.com/bussewa/booking-backend/internal/database"
	"github.com/bussewa/booking-backend/internal/handlers"
	"github.com/bussewa/booking-backend/internal/middleware"
	"github.com/bussewa/booking-backend/internal/services"
	"github.com/bussewa/booking-backend/pkg/jwt"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
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

	logger.Info("Starting Bussewa Booking Backend")
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
	logger.Info("Database connection established")

	// Initialize repositories
	seatRepository := database.NewSeatRepository(db)
	reservationRepository := database.NewReservationRepository(db)
	ticketRepository := database.NewTicketRepository(db)
	paymentRepository := database.NewPaymentRepository(db)
	tripCatalogRepository := database.NewTripCatalogRepository(db)

	// Initialize services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)

	reservationService := services.NewReservationService(
		seatRepository,
		reservationRepository,
		ticketRepository,
		cfg.Reservation,
		logger,
	)

	khaltiService := services.NewKhaltiService(&cfg.Payment, logger)

	paymentService := services.NewPaymentService(
		paymentRepository,
		ticketRepository,
		reservationRepository,
		tripCatalogRepository,
		khaltiService,
		reservationService,
		logger,
	)

	// Start the expiry sweep
	sweepService := services.NewSweepService(
		reservationService,
		cfg.Reservation.SweepInterval,
		cfg.Reservation.SweepBatchSize,
		logger,
	)
	if err := sweepService.Start(); err != nil {
		logger.Fatalf("Failed to start expiry sweep: %v", err)
	}

	logger.Info("Services initialized")

	// Initialize handlers
	reservationHandler := handlers.NewReservationHandler(reservationService, logger)
	paymentHandler := handlers.NewPaymentHandler(paymentService, reservationService, logger)

	// Initialize Gin router
	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	if cfg.Security.EnableRequestLog {
		router.Use(middleware.RequestLogger(logger))
	}

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

	// API routes
	v1 := router.Group("/api/v1")
	{
		authRequired := middleware.AuthMiddleware(jwtService)

		reservations := v1.Group("/reservations")
		reservations.Use(authRequired)
		{
			reservations.POST("", reservationHandler.CreateHold)
			reservations.GET("/:id/status", reservationHandler.GetStatus)
			reservations.POST("/:id/release", reservationHandler.Release)
		}

		payments := v1.Group("/payments")
		{
			payments.POST("/initiate", authRequired, paymentHandler.InitiatePayment)
			// Verify is hit on the gateway return redirect, before the
			// client has re-attached its token
			payments.POST("/verify", paymentHandler.VerifyPayment)
		}

		bookings := v1.Group("/bookings")
		{
			bookings.POST("/confirm", paymentHandler.ConfirmBooking)
		}

		// Operational endpoints behind auth
		admin := v1.Group("/admin")
		admin.Use(authRequired)
		{
			admin.POST("/sweep", func(c *gin.Context) {
				stats, err := sweepService.RunOnce()
				if err != nil {
					c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
					return
				}
				c.JSON(http.StatusOK, stats)
			})
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

	logger.Info("Stopping expiry sweep...")
	sweepService.Stop()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

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
