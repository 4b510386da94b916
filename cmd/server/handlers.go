// cmd/server/handlers.go
package main

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pricehawk/pricehawk/internal/telemetry"
)

// PriceFetcher is the service surface the HTTP layer needs.
type PriceFetcher interface {
	FetchPrice(ctx context.Context, url string) *float64
	FetchPricesBatch(ctx context.Context, urls []string, maxConcurrent int) map[string]*float64
}

// HealthReporter exposes per-domain extraction health.
type HealthReporter interface {
	Snapshot() []telemetry.DomainHealth
}

type apiServer struct {
	fetcher PriceFetcher
	health  HealthReporter
}

func newRouter(fetcher PriceFetcher, health HealthReporter) http.Handler {
	s := &apiServer{fetcher: fetcher, health: health}

	r := mux.NewRouter()
	r.HandleFunc("/health", s.healthHandler).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	r.HandleFunc("/api/health/extraction", s.extractionHealthHandler).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/prices", s.fetchPriceHandler).Methods("POST")
	api.HandleFunc("/prices/batch", s.fetchBatchHandler).Methods("POST")

	return r
}

func (s *apiServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *apiServer) extractionHealthHandler(w http.ResponseWriter, r *http.Request) {
	snapshot := s.health.Snapshot()
	degraded := 0
	for _, h := range snapshot {
		if h.Alerting {
			degraded++
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"domains":  snapshot,
		"degraded": degraded,
	})
}

type fetchRequest struct {
	URL string `json:"url"`
}

type fetchResponse struct {
	URL   string   `json:"url"`
	Price *float64 `json:"price"`
}

func (s *apiServer) fetchPriceHandler(w http.ResponseWriter, r *http.Request) {
	var req fetchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "body must be {\"url\": \"...\"}"})
		return
	}

	price := s.fetcher.FetchPrice(r.Context(), req.URL)
	writeJSON(w, http.StatusOK, fetchResponse{URL: req.URL, Price: price})
}

type batchRequest struct {
	URLs          []string `json:"urls"`
	MaxConcurrent int      `json:"max_concurrent"`
}

func (s *apiServer) fetchBatchHandler(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.URLs) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "body must be {\"urls\": [...]}"})
		return
	}

	results := s.fetcher.FetchPricesBatch(r.Context(), req.URLs, req.MaxConcurrent)
	writeJSON(w, http.StatusOK, map[string]interface{}{"prices": results})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
