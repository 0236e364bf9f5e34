package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReadyFunc reports whether the service dependencies are reachable
type ReadyFunc func(ctx context.Context) error

// NewRouter registers the table routes plus health and metrics endpoints
func NewRouter(h *TableHandler, ready ReadyFunc) *mux.Router {
	router := mux.NewRouter()

	// API v1 routes
	v1 := router.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/symbols", h.ListSymbols).Methods("GET")
	v1.HandleFunc("/tables", h.ListTables).Methods("GET")
	v1.HandleFunc("/tables/{symbol}/{session}", h.GetTable).Methods("GET")
	v1.HandleFunc("/tables/{symbol}/{session}/distribution", h.GetDistribution).Methods("GET")
	v1.HandleFunc("/recompute/{symbol}", h.Recompute).Methods("POST")

	// Health check endpoints
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if ready != nil {
			if err := ready(r.Context()); err != nil {
				respondWithJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "error": err.Error()})
				return
			}
		}
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	router.HandleFunc("/live", func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "alive"})
	})

	// Metrics endpoint
	router.Handle("/metrics", promhttp.Handler())

	return router
}
