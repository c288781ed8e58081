package api

import (
	"github.com/gorilla/mux"
)

// SetupRoutes configures all API routes
func SetupRoutes(handler *Handler) *mux.Router {
	r := mux.NewRouter()

	// Health check and metrics
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")
	r.Handle("/metrics", handler.Metrics.Handler()).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()

	// Portfolio routes
	api.HandleFunc("/portfolio", handler.GetPortfolio).Methods("GET")
	api.HandleFunc("/portfolio/summary", handler.GetSummary).Methods("GET")
	api.HandleFunc("/status", handler.GetStatus).Methods("GET")
	api.HandleFunc("/price-updates", handler.InjectPriceUpdate).Methods("POST")

	// Backend routes
	api.HandleFunc("/price/{symbol}", handler.GetPrice).Methods("GET")
	api.HandleFunc("/holdings/{id}/sell", handler.SellHolding).Methods("POST")
	api.HandleFunc("/holdings/{id}/liquidate", handler.LiquidateHolding).Methods("POST")

	return r
}
