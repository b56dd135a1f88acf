package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fairway/internal/config"
	"fairway/internal/database"
	"fairway/internal/domain"
	"fairway/internal/service"

	"github.com/rs/zerolog"
)

type scheduleExporter interface {
	ExportSchedule(ctx context.Context, startDate, endDate time.Time) (string, error)
}

// HTTPServer exposes the booking engine over HTTP for the front-desk client
// and integrations.
type HTTPServer struct {
	cfg      config.APIConfig
	facility config.FacilityConfig
	bookings domain.BookingService
	bays     domain.BayService
	members  domain.MemberService
	audit    domain.AuditService
	exporter scheduleExporter
	server   *http.Server
	auth     *HTTPAuth
	logger   *zerolog.Logger
}

func NewHTTPServer(
	cfg config.APIConfig,
	facility config.FacilityConfig,
	bookings domain.BookingService,
	bays domain.BayService,
	members domain.MemberService,
	audit domain.AuditService,
	exporter scheduleExporter,
	logger *zerolog.Logger,
) *HTTPServer {
	mux := http.NewServeMux()
	srv := &HTTPServer{
		cfg:      cfg,
		facility: facility,
		bookings: bookings,
		bays:     bays,
		members:  members,
		audit:    audit,
		exporter: exporter,
		logger:   logger,
	}
	srv.auth = NewHTTPAuth(cfg)

	mux.HandleFunc("/health", srv.handleHealth)
	mux.HandleFunc("/api/v1/availability/bulk", srv.handleAvailabilityBulk)
	mux.HandleFunc("/api/v1/availability/", srv.handleAvailability)
	mux.HandleFunc("/api/v1/bays", srv.handleBays)
	mux.HandleFunc("/api/v1/bays/", srv.handleBayActions)
	mux.HandleFunc("/api/v1/bookings", srv.handleBookings)
	mux.HandleFunc("/api/v1/bookings/", srv.handleBookingActions)
	mux.HandleFunc("/api/v1/members", srv.handleMembers)
	mux.HandleFunc("/api/v1/members/", srv.handleMemberByID)
	mux.HandleFunc("/api/v1/settings", srv.handleSettings)
	mux.HandleFunc("/api/v1/audit", srv.handleAudit)
	mux.HandleFunc("/api/v1/exports/schedule", srv.handleExportSchedule)

	handler := srv.loggingMiddleware(srv.auth.Wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
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

// Handler returns the fully wrapped handler, used by tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// writeServiceError maps engine errors onto HTTP statuses. Soft validation
// rejections carry override_allowed so the client can offer the retry.
func writeServiceError(w http.ResponseWriter, err error) {
	var vErr *service.ValidationError
	if errors.As(err, &vErr) {
		status := http.StatusUnprocessableEntity
		if vErr.Kind == service.KindConflict {
			status = http.StatusConflict
		}
		writeJSON(w, status, map[string]any{
			"error":            vErr.Reason,
			"kind":             string(vErr.Kind),
			"override_allowed": vErr.Overridable(),
		})
		return
	}

	switch {
	case errors.Is(err, database.ErrBookingNotFound),
		errors.Is(err, database.ErrBayNotFound),
		errors.Is(err, database.ErrMemberNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, database.ErrVersionConflict),
		errors.Is(err, database.ErrInvalidTransition),
		errors.Is(err, database.ErrBayConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id")
	}
	return id, nil
}

func parseDate(raw string) (time.Time, error) {
	return time.Parse("2006-01-02", strings.TrimSpace(raw))
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
