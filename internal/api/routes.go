package api

import (
	"github.com/gorilla/mux"
)

// SetupRoutes configures all API routes
func SetupRoutes(handler *Handler) *mux.Router {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/stocks/{symbol}/versions", handler.GetStockVersions).Methods("GET")
	api.HandleFunc("/stocks/{symbol}/prices", handler.GetPriceHistory).Methods("GET")
	api.HandleFunc("/stocks/{symbol}/attributes", handler.GetAttributeHistory).Methods("GET")
	api.HandleFunc("/prices", handler.GetPrices).Methods("GET")
	api.HandleFunc("/prices/latest", handler.GetLatestPriceDate).Methods("GET")
	api.HandleFunc("/attributes", handler.GetAttributes).Methods("GET")
	api.HandleFunc("/runs/{date}", handler.TriggerRun).Methods("POST")

	return r
}
