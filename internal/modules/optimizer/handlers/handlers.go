// Package handlers provides HTTP handlers for the noise-aware optimizer.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/qbayes/internal/domain"
	"github.com/aristath/qbayes/internal/modules/optimizer"
)

// Handler handles optimizer HTTP requests
type Handler struct {
	optimizer *optimizer.Optimizer
	mu        *sync.Mutex
	log       zerolog.Logger
}

// NewHandler creates a new optimizer handler
func NewHandler(opt *optimizer.Optimizer, mu *sync.Mutex, log zerolog.Logger) *Handler {
	return &Handler{
		optimizer: opt,
		mu:        mu,
		log:       log.With().Str("handler", "optimizer").Logger(),
	}
}

// RunRequest represents an optimization request
type RunRequest struct {
	Initial       [][]float64 `json:"initial"`
	Target        []float64   `json:"target"`
	MaxIterations int         `json:"max_iterations"`
	LearningRate  float64     `json:"learning_rate"`
}

// HandleRun handles POST /api/optimizer/run
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.MaxIterations == 0 {
		req.MaxIterations = 100
	}
	if req.LearningRate == 0 {
		req.LearningRate = 0.01
	}

	h.mu.Lock()
	result, err := h.optimizer.Optimize(req.Initial, req.Target, req.MaxIterations, req.LearningRate)
	h.mu.Unlock()
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrShapeMismatch) || errors.Is(err, domain.ErrInvalidRange) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(result)
}

// RegisterRoutes registers all optimizer routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/optimizer", func(r chi.Router) {
		r.Post("/run", h.HandleRun)
	})
}
