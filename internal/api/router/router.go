package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/careconnect-ai/platform/internal/appointments"
	"github.com/careconnect-ai/platform/internal/assist"
	"github.com/careconnect-ai/platform/internal/auth"
	"github.com/careconnect-ai/platform/internal/careteam"
	httpmiddleware "github.com/careconnect-ai/platform/internal/http/middleware"
	"github.com/careconnect-ai/platform/internal/reports"
	"github.com/careconnect-ai/platform/internal/vitals"
	"github.com/careconnect-ai/platform/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger *logging.Logger
	AppID  string

	AuthService *auth.Service
	AuthHandler *auth.Handler

	AppointmentsHandler *appointments.Handler
	CareTeamHandler     *careteam.Handler
	VitalsHandler       *vitals.Handler
	ReportsHandler      *reports.Handler
	AssistHandler       *assist.Handler

	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	r.Use(httpmiddleware.AppID(cfg.AppID))
	if cfg.AuthService != nil {
		r.Use(cfg.AuthService.Middleware)
	}

	// Public endpoints (health checks, metrics, session issuance)
	r.Group(func(public chi.Router) {
		public.Get("/healthz", handleHealth)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.AuthHandler != nil {
			public.Post("/api/auth/anonymous", cfg.AuthHandler.HandleToken)
		}
	})

	r.Route("/api", func(api chi.Router) {
		if cfg.AppointmentsHandler != nil {
			api.Route("/appointments", cfg.AppointmentsHandler.Routes)
		}
		if cfg.CareTeamHandler != nil {
			cfg.CareTeamHandler.Routes(api)
		}
		if cfg.VitalsHandler != nil {
			api.Get("/vitals", cfg.VitalsHandler.HandleGet)
		}
		if cfg.ReportsHandler != nil {
			api.Route("/reports", cfg.ReportsHandler.Routes)
		}
		if cfg.AssistHandler != nil {
			cfg.AssistHandler.Routes(api)
		}
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
