// Package handlers provides HTTP handlers for Mahalanobis distance operations.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/qbayes/internal/domain"
	"github.com/aristath/qbayes/internal/modules/mahalanobis"
)

// Handler handles distance HTTP requests. The estimator keeps an audit
// trail, so access is serialized here.
type Handler struct {
	estimator *mahalanobis.Estimator
	mu        *sync.Mutex
	log       zerolog.Logger
}

// NewHandler creates a new distance handler
func NewHandler(estimator *mahalanobis.Estimator, mu *sync.Mutex, log zerolog.Logger) *Handler {
	return &Handler{
		estimator: estimator,
		mu:        mu,
		log:       log.With().Str("handler", "mahalanobis").Logger(),
	}
}

// ReportRequest represents a request for a distance report
type ReportRequest struct {
	Reference     [][]float64        `json:"reference"`
	Probabilities map[string]float64 `json:"probabilities"`
}

// DistancesRequest represents a request for raw distances
type DistancesRequest struct {
	Reference [][]float64 `json:"reference"`
	Query     [][]float64 `json:"query"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrShapeMismatch),
		errors.Is(err, domain.ErrInsufficientSamples),
		errors.Is(err, domain.ErrEmptyInput),
		errors.Is(err, domain.ErrInvalidRange):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// HandleReport handles POST /api/distance/report
func (h *Handler) HandleReport(w http.ResponseWriter, r *http.Request) {
	var req ReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	report, err := h.estimator.Summarize(req.Reference, req.Probabilities)
	h.mu.Unlock()
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	writeJSON(w, report)
}

// HandleDistances handles POST /api/distance/mahalanobis
func (h *Handler) HandleDistances(w http.ResponseWriter, r *http.Request) {
	var req DistancesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	distances, err := h.estimator.Distances(req.Reference, req.Query)
	h.mu.Unlock()
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	writeJSON(w, map[string][]float64{"distances": distances})
}

// HandleStats handles GET /api/distance/stats
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	stats := h.estimator.Stats()
	h.mu.Unlock()

	writeJSON(w, stats)
}

// RegisterRoutes registers all distance routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/distance", func(r chi.Router) {
		r.Post("/report", h.HandleReport)
		r.Post("/mahalanobis", h.HandleDistances)
		r.Get("/stats", h.HandleStats)
	})
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
