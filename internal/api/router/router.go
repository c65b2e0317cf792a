package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/wolfman30/clinic-appointments/internal/appointments"
	"github.com/wolfman30/clinic-appointments/internal/doctors"
	httpmiddleware "github.com/wolfman30/clinic-appointments/internal/http/middleware"
	"github.com/wolfman30/clinic-appointments/internal/payments"
	"github.com/wolfman30/clinic-appointments/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger       *logging.Logger
	Appointments *appointments.Handler
	Doctors      *doctors.Handler

	// Payments is nil when no gateway credentials are configured.
	Payments *payments.OrderHandler

	// RateLimiter guards the public booking API when set.
	RateLimiter        *httpmiddleware.RateLimiter
	AdminAuthSecret    string
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	if cfg.Appointments == nil {
		panic("router: appointments handler required")
	}
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", health)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api", func(api chi.Router) {
		if cfg.RateLimiter != nil {
			api.Use(httpmiddleware.RateLimit(cfg.RateLimiter))
		}
		api.Post("/appointments", cfg.Appointments.CreateAppointment)
		api.Get("/slots", cfg.Appointments.ListSlots)
		api.Get("/doctors/{doctorID}/booked-slots", cfg.Appointments.BookedSlots)
		if cfg.Doctors != nil {
			api.Get("/doctors", cfg.Doctors.ListDoctors)
		}
		if cfg.Payments != nil {
			api.Post("/payments/orders", cfg.Payments.CreateOrder)
		}
	})

	// Admin routes are only mounted when a signing secret is configured.
	if cfg.AdminAuthSecret != "" {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			admin.Get("/appointments/{appointmentID}", cfg.Appointments.GetAppointment)
			admin.Post("/appointments/{appointmentID}/status", cfg.Appointments.UpdateStatus)
		})
	}

	return r
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
