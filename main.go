package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"partner-portal/internal/config"
	"partner-portal/internal/handlers"
	"partner-portal/internal/leads"
	"partner-portal/internal/metrics"
	"partner-portal/internal/middleware"
	"partner-portal/internal/sheets"
	"partner-portal/internal/transformer"
	"partner-portal/internal/users"
)

func main() {
	// Setup logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	logger.WithField("backend", cfg.SheetsBackend).Info("Starting Partner Portal API")

	// Initialize components
	source := newSource(cfg, logger)
	transformer := transformer.New(cfg.Location)
	calculator := metrics.NewCalculator(cfg.Location)
	leadService := leads.NewService(source, transformer, cfg.LeadsTab, cfg.DupesTab, logger)
	directory := users.NewDirectory(source, cfg.UsersTab, cfg.SignInLogTab, logger)

	// Initialize handlers
	handler := handlers.New(leadService, directory, transformer, calculator, logger)

	// Setup Gin router
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.Logger(logger),
		gin.Recovery(),
		middleware.CORS(cfg.FrontendOrigins),
	)
	handler.Register(router)

	// Start server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithField("port", cfg.Port).Info("Server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited")
}

// newSource builds the configured sheet backend. A backend that cannot be built is replaced by
// sheets.Unavailable so the API still starts and reports the problem per request.
func newSource(cfg *config.Config, logger *logrus.Logger) sheets.Source {
	var (
		source sheets.Source
		err    error
	)
	switch cfg.SheetsBackend {
	case config.BackendXLSX:
		source, err = sheets.NewWorkbookClient(cfg.WorkbookPath, logger)
	default:
		source, err = sheets.NewGoogleClient(context.Background(), sheets.GoogleConfig{
			SpreadsheetID:       cfg.SpreadsheetID,
			DefaultTab:          cfg.DefaultTab,
			ServiceAccountEmail: cfg.ServiceAccountEmail,
			PrivateKey:          cfg.PrivateKey,
			PrivateKeyB64:       cfg.PrivateKeyB64,
			Timeout:             cfg.HTTPTimeout,
		}, logger)
	}
	if err != nil {
		logger.WithError(err).Warn("Sheet backend unavailable, API will answer 503")
		return sheets.Unavailable{Err: err}
	}
	return source
}
