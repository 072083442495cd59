package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"gearbook/internal/config"
	"gearbook/internal/domain"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	errMissingAPIKey = errors.New("missing api key header")
	errInvalidAPIKey = errors.New("invalid api key")
)

// HTTPServer is the thin transport adapter over the booking and equipment
// services. All business rules live below; handlers only parse, dispatch
// and map domain errors to status codes.
type HTTPServer struct {
	booking   domain.BookingService
	equipment domain.EquipmentService
	auth      *HTTPAuth
	server    *http.Server
	logger    *zerolog.Logger
}

func NewHTTPServer(cfg config.HTTPConfig, authCfg config.AuthConfig, monitoring config.MonitoringConfig, booking domain.BookingService, equipment domain.EquipmentService, logger *zerolog.Logger) *HTTPServer {
	srv := &HTTPServer{
		booking:   booking,
		equipment: equipment,
		auth:      NewHTTPAuth(authCfg, cfg.RateLimit),
		logger:    logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/equipment", srv.handleCreateEquipment)
	mux.HandleFunc("GET /api/v1/equipment", srv.handleListEquipment)
	mux.HandleFunc("GET /api/v1/equipment/{id}", srv.handleGetEquipment)
	mux.HandleFunc("PATCH /api/v1/equipment/{id}", srv.handleUpdateEquipment)
	mux.HandleFunc("PATCH /api/v1/equipment/{id}/status", srv.handleSetEquipmentStatus)
	mux.HandleFunc("DELETE /api/v1/equipment/{id}", srv.handleDeleteEquipment)
	mux.HandleFunc("POST /api/v1/equipment/{id}/bookings", srv.handleCreateBooking)
	mux.HandleFunc("GET /api/v1/equipment/{id}/bookings", srv.handleListBookings)
	mux.HandleFunc("PATCH /api/v1/equipment/{id}/bookings/{bookingID}/{action}", srv.handleBookingAction)
	mux.HandleFunc("GET /api/v1/export/reservations", srv.handleExport)
	mux.HandleFunc("GET /healthz", srv.handleHealth)
	if monitoring.PrometheusEnabled {
		mux.Handle("GET /metrics", promhttp.Handler())
	}

	handler := srv.loggingMiddleware(srv.auth.Wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

// Handler exposes the full middleware chain, for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
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
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidRange):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// writeDomainError maps expected domain outcomes to their status codes.
// Anything else is a storage failure: logged, returned as a generic 500.
func (s *HTTPServer) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}
