package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter builds the HTTP router with all middleware applied.
func NewRouter(h *Handlers) *mux.Router {
	r := mux.NewRouter()

	r.Use(h.RecoveryMiddleware)
	r.Use(h.LoggingMiddleware)
	r.Use(h.RateLimitMiddleware)

	r.HandleFunc("/run", h.HandleRun).Methods(http.MethodPost)
	r.HandleFunc("/jobs", h.HandleListJobs).Methods(http.MethodGet)
	r.HandleFunc("/jobs/{id}", h.HandleGetJob).Methods(http.MethodGet)

	r.HandleFunc("/health", h.HandleHealth).Methods(http.MethodGet)
	r.HandleFunc("/ready", h.HandleReady).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return r
}
