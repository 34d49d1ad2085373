// Package server exposes the courier aggregation operations over a thin
// JSON REST surface. It only maps transport to manager calls; all domain
// behavior lives in pkg/courier.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/RedwanAhmedTapu/multivendorbackend-sub002/internal/telemetry"
	"github.com/RedwanAhmedTapu/multivendorbackend-sub002/pkg/courier"
)

// Server is the HTTP server for the courier aggregation service.
type Server struct {
	port    int
	manager *courier.Manager
	logger  *otelzap.Logger
	metrics *telemetry.Metrics
}

// Config holds server configuration.
type Config struct {
	Port int
}

// New creates a new server instance.
func New(cfg Config, manager *courier.Manager, logger *otelzap.Logger) *Server {
	return &Server{
		port:    cfg.Port,
		manager: manager,
		logger:  logger,
		metrics: telemetry.NewMetrics(),
	}
}

// Router builds the chi router. Exposed for handler tests.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/couriers", func(r chi.Router) {
		r.Get("/", s.handleListProviders)
		r.Post("/compare-prices", s.handleComparePrices)
		r.Delete("/cache", s.handleClearCache)

		r.Route("/{provider}", func(r chi.Router) {
			r.Post("/price", s.handleCalculatePrice)
			r.Post("/orders", s.handleCreateOrder)
			r.Post("/orders/track-batch", s.handleBatchTrack)
			r.Get("/orders/{trackingID}", s.handleTrackOrder)
			r.Get("/cities", s.handleCities)
			r.Get("/zones", s.handleZones)
			r.Get("/areas", s.handleAreas)
			r.Get("/balance", s.handleBalance)
			r.Get("/stores", s.handleStores)
		})
	})
	return r
}

// Run starts the HTTP server and blocks until context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", zap.Int("port", s.port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleListProviders(w http.ResponseWriter, r *http.Request) {
	names, err := s.manager.ActiveProviders(r.Context())
	if err != nil {
		s.writeError(w, "listProviders", "", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"providers": names})
}

func (s *Server) handleComparePrices(w http.ResponseWriter, r *http.Request) {
	var pkg courier.PackageDescriptor
	if err := json.NewDecoder(r.Body).Decode(&pkg); err != nil {
		s.writeBadRequest(w, "invalid JSON body")
		return
	}
	start := time.Now()
	comparisons, err := s.manager.ComparePrices(r.Context(), &pkg)
	s.record("comparePrices", "all", err, start)
	if err != nil {
		s.writeError(w, "comparePrices", "", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"comparisons": comparisons})
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	provider := r.URL.Query().Get("provider")
	method := r.URL.Query().Get("method")
	s.manager.ClearCache(r.Context(), provider, method)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCalculatePrice(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	var pkg courier.PackageDescriptor
	if err := json.NewDecoder(r.Body).Decode(&pkg); err != nil {
		s.writeBadRequest(w, "invalid JSON body")
		return
	}
	start := time.Now()
	quote, err := s.manager.CalculateDeliveryCost(r.Context(), provider, &pkg)
	s.record("calculateCharge", provider, err, start)
	if err != nil {
		s.writeError(w, "calculateCharge", provider, err)
		return
	}
	s.writeJSON(w, http.StatusOK, quote)
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	var order courier.OrderDescriptor
	if err := json.NewDecoder(r.Body).Decode(&order); err != nil {
		s.writeBadRequest(w, "invalid JSON body")
		return
	}
	start := time.Now()
	result, err := s.manager.CreateShippingOrder(r.Context(), provider, &order)
	s.record("createOrder", provider, err, start)
	if err != nil {
		s.writeError(w, "createOrder", provider, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handleBatchTrack(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	var body struct {
		TrackingIDs []string `json:"tracking_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeBadRequest(w, "invalid JSON body")
		return
	}
	if len(body.TrackingIDs) == 0 {
		s.writeBadRequest(w, "tracking_ids is required")
		return
	}
	start := time.Now()
	results, err := s.manager.BatchTrackOrders(r.Context(), provider, body.TrackingIDs)
	s.record("batchTrack", provider, err, start)
	if err != nil {
		s.writeError(w, "batchTrack", provider, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) handleTrackOrder(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	trackingID := chi.URLParam(r, "trackingID")
	start := time.Now()
	result, err := s.manager.TrackShippingOrder(r.Context(), provider, trackingID)
	s.record("trackOrder", provider, err, start)
	if err != nil {
		s.writeError(w, "trackOrder", provider, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCities(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	adapter, err := s.manager.GetService(r.Context(), provider)
	if err != nil {
		s.writeError(w, "getCities", provider, err)
		return
	}
	cities, err := adapter.GetCities(r.Context())
	if err != nil {
		s.writeError(w, "getCities", provider, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"cities": cities})
}

func (s *Server) handleZones(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	adapter, err := s.manager.GetService(r.Context(), provider)
	if err != nil {
		s.writeError(w, "getZones", provider, err)
		return
	}
	zones, err := adapter.GetZones(r.Context(), locationFilter(r))
	if err != nil {
		s.writeError(w, "getZones", provider, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"zones": zones})
}

func (s *Server) handleAreas(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	start := time.Now()
	areas, err := s.manager.GetAvailableAreas(r.Context(), provider, locationFilter(r))
	s.record("getAreas", provider, err, start)
	if err != nil {
		s.writeError(w, "getAreas", provider, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"areas": areas})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	start := time.Now()
	balance, err := s.manager.GetProviderBalance(r.Context(), provider)
	s.record("getBalance", provider, err, start)
	if err != nil {
		s.writeError(w, "getBalance", provider, err)
		return
	}
	s.writeJSON(w, http.StatusOK, balance)
}

func (s *Server) handleStores(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	start := time.Now()
	stores, err := s.manager.GetPickupStores(r.Context(), provider)
	s.record("getStores", provider, err, start)
	if err != nil {
		s.writeError(w, "getStores", provider, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"stores": stores})
}

func locationFilter(r *http.Request) courier.LocationFilter {
	var f courier.LocationFilter
	if v, err := strconv.Atoi(r.URL.Query().Get("city_id")); err == nil {
		f.CityID = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("zone_id")); err == nil {
		f.ZoneID = v
	}
	return f
}

func (s *Server) record(operation, provider string, err error, start time.Time) {
	status := "success"
	if err != nil {
		status = "error"
		var cerr *courier.Error
		if errors.As(err, &cerr) {
			s.metrics.RecordError(provider, string(cerr.Code))
		}
	}
	s.metrics.RecordRequest(operation, provider, status, time.Since(start).Seconds())
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeBadRequest(w http.ResponseWriter, msg string) {
	s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

// writeError maps the courier error taxonomy onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, operation, provider string, err error) {
	status := http.StatusInternalServerError
	var cerr *courier.Error
	if errors.As(err, &cerr) {
		switch cerr.Code {
		case courier.CodeValidation:
			status = http.StatusBadRequest
		case courier.CodeConfiguration:
			status = http.StatusNotFound
		case courier.CodeRateLimit:
			status = http.StatusTooManyRequests
		case courier.CodeAuthentication, courier.CodeUpstreamClient:
			status = http.StatusBadGateway
		case courier.CodeUpstreamTransient:
			status = http.StatusGatewayTimeout
		}
	} else if errors.Is(err, courier.ErrProviderNotFound) {
		status = http.StatusNotFound
	}

	s.logger.Warn("Request failed",
		zap.String("operation", operation),
		zap.String("provider", provider),
		zap.Int("status", status),
		zap.Error(err),
	)
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
