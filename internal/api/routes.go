package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// SetupRoutes configures all API routes.
func SetupRoutes(handler *Handler) *mux.Router {
	r := mux.NewRouter()
	r.Use(handler.instrument)

	// Health check
	r.HandleFunc("/health", handler.HealthCheck).Methods(http.MethodGet)
	r.Handle("/metrics", handler.metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/indicators", handler.GetIndicators).Methods(http.MethodGet)
	api.HandleFunc("/technical", handler.GetTechnical).Methods(http.MethodGet)
	api.HandleFunc("/returns", handler.GetReturns).Methods(http.MethodGet)
	api.HandleFunc("/candles", handler.GetCandles).Methods(http.MethodGet)
	api.HandleFunc("/snapshots/{symbol}", handler.GetSnapshots).Methods(http.MethodGet)
	api.HandleFunc("/analyze", handler.Analyze).Methods(http.MethodPost)

	return r
}
