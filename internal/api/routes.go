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

	// Portfolio
	api.HandleFunc("/stocks", handler.GetAllStocks).Methods("GET")
	api.HandleFunc("/stocks", handler.AddStock).Methods("POST")
	api.HandleFunc("/stocks/{symbol}", handler.GetStock).Methods("GET")
	api.HandleFunc("/stocks/{symbol}", handler.RemoveStock).Methods("DELETE")

	// Analysis
	api.HandleFunc("/stocks/{symbol}/history", handler.GetScoreHistory).Methods("GET")
	api.HandleFunc("/stocks/{symbol}/analyze", handler.AnalyzeStock).Methods("POST")
	api.HandleFunc("/analysis", handler.TriggerReanalysis).Methods("POST")

	return r
}
