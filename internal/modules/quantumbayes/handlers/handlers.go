// Package handlers provides HTTP handlers for quantum-Bayes projections.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/qbayes/internal/domain"
	"github.com/aristath/qbayes/internal/modules/quantumbayes"
)

// Handler handles quantum-Bayes HTTP requests
type Handler struct {
	scorer    *quantumbayes.Scorer
	collapser *quantumbayes.Collapser
	mu        *sync.Mutex
	log       zerolog.Logger
}

// NewHandler creates a new quantum-Bayes handler
func NewHandler(scorer *quantumbayes.Scorer, collapser *quantumbayes.Collapser, mu *sync.Mutex, log zerolog.Logger) *Handler {
	return &Handler{
		scorer:    scorer,
		collapser: collapser,
		mu:        mu,
		log:       log.With().Str("handler", "quantumbayes").Logger(),
	}
}

// ProjectRequest represents a projection request
type ProjectRequest struct {
	Samples   [][]float64 `json:"samples"`
	Entropy   float64     `json:"entropy"`
	Coherence float64     `json:"coherence"`
}

// CollapseRequest represents a wave collapse request
type CollapseRequest struct {
	Samples        [][]float64 `json:"samples"`
	Influence      *float64    `json:"influence,omitempty"`
	PreviousAction int         `json:"previous_action"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrShapeMismatch),
		errors.Is(err, domain.ErrEmptyInput),
		errors.Is(err, domain.ErrInvalidRange):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// HandleProject handles POST /api/quantum/project
func (h *Handler) HandleProject(w http.ResponseWriter, r *http.Request) {
	var req ProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	scores, err := h.scorer.ProjectAndScore(req.Samples, req.Entropy, req.Coherence)
	h.mu.Unlock()
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	writeJSON(w, map[string][]float64{"projections": scores})
}

// HandlePosterior handles POST /api/quantum/posterior
func (h *Handler) HandlePosterior(w http.ResponseWriter, r *http.Request) {
	var req ProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	posterior, projections, err := h.scorer.PosteriorWithDistance(req.Samples, req.Entropy, req.Coherence)
	h.mu.Unlock()
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	writeJSON(w, map[string]interface{}{
		"posterior":   posterior,
		"projections": projections,
	})
}

// HandlePredict handles POST /api/quantum/predict
func (h *Handler) HandlePredict(w http.ResponseWriter, r *http.Request) {
	var req ProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	next, posterior, err := h.scorer.PredictNext(req.Samples, req.Entropy, req.Coherence)
	h.mu.Unlock()
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	writeJSON(w, map[string]float64{
		"next_state": next,
		"posterior":  posterior,
	})
}

// HandleCollapse handles POST /api/quantum/collapse
func (h *Handler) HandleCollapse(w http.ResponseWriter, r *http.Request) {
	var req CollapseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	influence := h.collapser.Influence()
	if req.Influence != nil {
		influence = *req.Influence
	}
	if influence < 0 || influence > 1 {
		http.Error(w, "influence must be within [0, 1]", http.StatusBadRequest)
		return
	}
	if req.PreviousAction != 0 && req.PreviousAction != 1 {
		http.Error(w, "previous_action must be 0 or 1", http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	result, err := h.collapser.SimulateWaveCollapse(req.Samples, influence, req.PreviousAction)
	h.mu.Unlock()
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	writeJSON(w, result)
}

// RegisterRoutes registers all quantum-Bayes routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/quantum", func(r chi.Router) {
		r.Post("/project", h.HandleProject)
		r.Post("/posterior", h.HandlePosterior)
		r.Post("/predict", h.HandlePredict)
		r.Post("/collapse", h.HandleCollapse)
	})
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
