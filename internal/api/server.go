package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"stationhours/internal/availability"
	"stationhours/internal/metrics"
	"stationhours/internal/model"
	"stationhours/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"
)

// AvailabilityService is what the HTTP layer needs from the service layer.
type AvailabilityService interface {
	Now() time.Time
	ListStations(ctx context.Context, activeOnly bool) ([]model.Station, error)
	Station(ctx context.Context, stationID int64) (*model.Station, error)
	Status(ctx context.Context, stationID int64) (*service.StationStatus, error)
	Timeline(ctx context.Context, stationID int64, date availability.Date) (*service.DayPlan, error)
	Week(ctx context.Context, stationID int64, days int) ([]service.DayPlan, error)
	Schedule(ctx context.Context, stationID int64) ([]availability.WeekdayRule, error)
	UpdateSchedule(ctx context.Context, stationID int64, rules []availability.WeekdayRule) ([]availability.WeekdayRule, error)
	SaveException(ctx context.Context, stationID int64, e availability.Exception) error
	RemoveException(ctx context.Context, stationID int64, date availability.Date) error
	SetOverride(ctx context.Context, stationID int64, o availability.ManualOverride) error
	ClearOverride(ctx context.Context, stationID int64) error
}

// Options configures the HTTP server.
type Options struct {
	Port               int
	APIKey             string
	RateLimitPerMinute int
}

// HTTPServer serves the station availability API.
type HTTPServer struct {
	server  *http.Server
	svc     AvailabilityService
	apiKey  string
	metrics *metrics.Metrics
	logger  *zerolog.Logger
}

// NewHTTPServer builds the router. m may be nil.
func NewHTTPServer(opts Options, svc AvailabilityService, m *metrics.Metrics, logger *zerolog.Logger) *HTTPServer {
	l := logger.With().Str("component", "api").Logger()
	s := &HTTPServer{
		svc:     svc,
		apiKey:  opts.APIKey,
		metrics: m,
		logger:  &l,
	}
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           s.routes(opts.RateLimitPerMinute),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	return s
}

// Handler returns the root handler.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// Start serves until Shutdown is called.
func (s *HTTPServer) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("api server listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) routes(ratePerMinute int) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	r.Route("/api/v1", func(r chi.Router) {
		if ratePerMinute > 0 {
			r.Use(rateLimit(ratePerMinute))
		}
		r.Use(s.requireAPIKey)

		r.Get("/stations", s.handleListStations)
		r.Route("/stations/{id}", func(r chi.Router) {
			r.Get("/status", s.handleStatus)
			r.Get("/timeline", s.handleTimeline)
			r.Get("/schedule", s.handleGetSchedule)
			r.Put("/schedule", s.handlePutSchedule)
			r.Post("/exceptions", s.handlePostException)
			r.Delete("/exceptions/{date}", s.handleDeleteException)
			r.Put("/override", s.handlePutOverride)
			r.Delete("/override", s.handleDeleteOverride)
			r.Get("/report.xlsx", s.handleReport)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

// rateLimit limits each client IP to perMinute requests in a sliding window.
func rateLimit(perMinute int) func(http.Handler) http.Handler {
	return httprate.Limit(
		perMinute,
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		}),
	)
}

func (s *HTTPServer) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey != "" && r.Header.Get("X-Api-Key") != s.apiKey {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *HTTPServer) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if pattern := rc.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.ObserveRequest(r.Method, route, status, time.Since(start))

		s.logger.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("route", route).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeServiceError maps service errors to status codes.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	switch {
	case errors.Is(err, service.ErrStationNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrExceptionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	default:
		s.logger.Error().Err(err).
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("path", r.URL.Path).
			Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(r io.Reader, v any) error {
	dec := json.NewDecoder(io.LimitReader(r, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
