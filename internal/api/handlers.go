package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/trogers1052/stock-analysis-service/internal/models"
)

const (
	defaultHistoryLimit = 30
	maxHistoryLimit     = 500
)

// StockService is the portfolio and analysis surface the handlers expose
type StockService interface {
	ListStocks(ctx context.Context) ([]*models.StockRecord, error)
	GetStock(ctx context.Context, symbol string) (*models.StockRecord, error)
	AddStock(ctx context.Context, symbol string) (*models.StockRecord, error)
	RemoveStock(ctx context.Context, symbol string) error
	TriggerReanalysis(ctx context.Context) (*models.BatchResult, error)
	AnalyzeStock(ctx context.Context, symbol string) (*models.StockRecord, error)
	ScoreHistory(ctx context.Context, symbol string, limit int) ([]*models.ScoreSnapshot, error)
	Ready(ctx context.Context) error
	ReanalysisRunning() bool
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	service StockService
	log     zerolog.Logger
}

// NewHandler creates a new Handler
func NewHandler(service StockService, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("component", "api").Logger(),
	}
}

// GetAllStocks handles GET /stocks
func (h *Handler) GetAllStocks(w http.ResponseWriter, r *http.Request) {
	stocks, err := h.service.ListStocks(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, stocks)
}

// GetStock handles GET /stocks/{symbol}
func (h *Handler) GetStock(w http.ResponseWriter, r *http.Request) {
	stock, err := h.service.GetStock(r.Context(), mux.Vars(r)["symbol"])
	if err != nil {
		h.respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, stock)
}

// AddStock handles POST /stocks
func (h *Handler) AddStock(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Symbol string `json:"symbol"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	stock, err := h.service.AddStock(r.Context(), req.Symbol)
	if err != nil {
		h.respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, stock)
}

// RemoveStock handles DELETE /stocks/{symbol}
func (h *Handler) RemoveStock(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RemoveStock(r.Context(), mux.Vars(r)["symbol"]); err != nil {
		h.respondError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetScoreHistory handles GET /stocks/{symbol}/history?limit=N
func (h *Handler) GetScoreHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxHistoryLimit {
			respondJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be between 1 and 500"})
			return
		}
		limit = n
	}

	history, err := h.service.ScoreHistory(r.Context(), mux.Vars(r)["symbol"], limit)
	if err != nil {
		h.respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, history)
}

// AnalyzeStock handles POST /stocks/{symbol}/analyze. The pass runs to
// completion even if the client goes away.
func (h *Handler) AnalyzeStock(w http.ResponseWriter, r *http.Request) {
	stock, err := h.service.AnalyzeStock(context.WithoutCancel(r.Context()), mux.Vars(r)["symbol"])
	if err != nil {
		h.respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, stock)
}

// TriggerReanalysis handles POST /analysis. The response lists every
// symbol's outcome once the batch finishes. The batch is detached from the
// request so a client timeout does not cancel it.
func (h *Handler) TriggerReanalysis(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.TriggerReanalysis(context.WithoutCancel(r.Context()))
	if err != nil {
		h.respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "healthy", ReanalysisRunning: h.service.ReanalysisRunning()}
	if err := h.service.Ready(r.Context()); err != nil {
		h.log.Warn().Err(err).Msg("Health check failed")
		resp.Status = "unhealthy"
		respondJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

type healthResponse struct {
	Status            string `json:"status"`
	ReanalysisRunning bool   `json:"reanalysis_running"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps error kinds onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrDuplicateSymbol), errors.Is(err, models.ErrBatchInProgress):
		return http.StatusConflict
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrSymbolNotFound):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrTransientFetch):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("Request failed")
		msg = "internal server error"
	}
	respondJSON(w, status, errorResponse{Error: msg})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
