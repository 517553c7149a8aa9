package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"slotbook/internal/config"
	"slotbook/internal/domain"
	"slotbook/internal/identity"

	"github.com/rs/zerolog"
)

// HTTPServer exposes the booking core over JSON/HTTP. It is a thin facade:
// every decision happens in the lifecycle engine and availability service.
type HTTPServer struct {
	cfg          *config.Config
	bookings     domain.BookingService
	availability domain.AvailabilityService
	catalog      domain.Catalog
	server       *http.Server
	limiter      *rateLimiter
	logger       *zerolog.Logger
}

func NewHTTPServer(cfg *config.Config, bookings domain.BookingService, availability domain.AvailabilityService, cat domain.Catalog, logger *zerolog.Logger) *HTTPServer {
	srv := &HTTPServer{
		cfg:          cfg,
		bookings:     bookings,
		availability: availability,
		catalog:      cat,
		limiter:      newRateLimiter(cfg.API.RateLimit),
		logger:       logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/bookings", srv.handleCreateBooking)
	mux.HandleFunc("GET /api/v1/bookings", srv.handleListOwnBookings)
	mux.HandleFunc("GET /api/v1/bookings/all", srv.handleListAllBookings)
	mux.HandleFunc("GET /api/v1/bookings/{id}", srv.handleGetBooking)
	mux.HandleFunc("DELETE /api/v1/bookings/{id}", srv.handleCancelBooking)
	mux.HandleFunc("POST /api/v1/bookings/{id}/reschedule", srv.handleRescheduleBooking)
	mux.HandleFunc("PATCH /api/v1/bookings/{id}/notes", srv.handleUpdateNotes)
	mux.HandleFunc("GET /api/v1/bookings/{id}/audit", srv.handleBookingAudit)
	mux.HandleFunc("GET /api/v1/activities", srv.handleListActivities)
	mux.HandleFunc("GET /api/v1/availability/{activity}", srv.handleAvailability)
	mux.HandleFunc("GET /api/v1/schedule/{activity}", srv.handleSchedule)
	mux.HandleFunc("GET /healthz", srv.handleHealth)

	authMW := identity.NewMiddleware(identity.Config{
		Secret: cfg.Auth.JWTSecret,
		Issuer: cfg.Auth.Issuer,
	}, func(r *http.Request) bool {
		return r.URL.Path == "/healthz"
	})

	handler := srv.loggingMiddleware(authMW.Wrap(srv.limitMiddleware(mux)))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}
	return srv
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
