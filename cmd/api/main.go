package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/clinic-appointments/internal/api/router"
	"github.com/wolfman30/clinic-appointments/internal/app/bootstrap"
	"github.com/wolfman30/clinic-appointments/internal/appointments"
	appconfig "github.com/wolfman30/clinic-appointments/internal/config"
	"github.com/wolfman30/clinic-appointments/internal/doctors"
	httpmiddleware "github.com/wolfman30/clinic-appointments/internal/http/middleware"
	"github.com/wolfman30/clinic-appointments/internal/notify"
	"github.com/wolfman30/clinic-appointments/internal/observability/metrics"
	"github.com/wolfman30/clinic-appointments/internal/payments"
	"github.com/wolfman30/clinic-appointments/internal/slots"
	"github.com/wolfman30/clinic-appointments/pkg/logging"
)

func main() {
	// Local development reads .env; deployed environments set variables directly.
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.NewWithFormat(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting clinic appointments API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"memory_store", cfg.UseMemoryStore,
	)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	catalog, err := slots.NewCatalog(slots.Config{
		OpenHour:    cfg.ClinicOpenHour,
		CloseHour:   cfg.ClinicCloseHour,
		StepMinutes: cfg.SlotStepMinutes,
	})
	if err != nil {
		logger.Error("invalid clinic hours", "error", err)
		os.Exit(1)
	}

	pool := bootstrap.ConnectPostgresPool(ctx, cfg.DatabaseURL, logger)
	if pool == nil && !cfg.UseMemoryStore {
		logger.Error("database unavailable")
		os.Exit(1)
	}
	if pool != nil {
		defer pool.Close()
	}
	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	storage, err := bootstrap.BuildStorage(ctx, cfg, pool, redisClient, logger)
	if err != nil {
		logger.Error("failed to build storage", "error", err)
		os.Exit(1)
	}
	defer func() { _ = storage.Close() }()

	metricsHandler, bookingMetrics := setupMetrics()
	gateway, verifier := setupPayments(cfg, logger)

	svc := storage.Wire(appointments.NewService(storage.Appointments, catalog, logger).
		WithStorageTimeout(cfg.StorageTimeout).
		WithNotifier(setupEmailSender(cfg, logger)).
		WithMetrics(bookingMetrics))

	appointmentsHandler := appointments.NewHandler(svc, cfg.Location(), logger)
	if verifier != nil {
		appointmentsHandler.WithVerifier(verifier)
	}
	if storage.Audit != nil {
		appointmentsHandler.WithHistory(storage.Audit)
	}

	limiter := httpmiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go limiter.Run(ctx, time.Minute)

	// Setup router
	routerCfg := &router.Config{
		Logger:             logger,
		Appointments:       appointmentsHandler,
		Doctors:            doctors.NewHandler(storage.Doctors, logger),
		RateLimiter:        limiter,
		AdminAuthSecret:    cfg.AdminJWTSecret,
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	}
	if gateway != nil {
		routerCfg.Payments = payments.NewOrderHandler(gateway, int64(cfg.ConsultationFeeMinor), cfg.ConsultationCurrency, cfg.GatewayTimeout, logger)
	}

	srv := newServer(cfg, router.New(routerCfg))

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

func newServer(cfg *appconfig.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// setupMetrics registers booking metrics on a dedicated registry alongside the
// Go runtime collectors.
func setupMetrics() (http.Handler, *metrics.BookingMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), metrics.NewBookingMetrics(reg)
}

func setupEmailSender(cfg *appconfig.Config, logger *logging.Logger) notify.EmailSender {
	sender := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger)
	if sender == nil {
		logger.Info("SENDGRID_API_KEY not set; confirmation emails are logged only")
		return notify.NewStubEmailSender(logger)
	}
	return sender
}

// setupPayments returns nil values when Razorpay credentials are missing; the
// order endpoint and signature checks are then disabled.
func setupPayments(cfg *appconfig.Config, logger *logging.Logger) (payments.Gateway, *payments.Verifier) {
	gateway := payments.NewRazorpayGateway(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, logger)
	if gateway == nil {
		logger.Warn("razorpay credentials missing; online payments disabled")
		return nil, nil
	}
	return gateway, payments.NewVerifier(cfg.RazorpayKeySecret)
}
