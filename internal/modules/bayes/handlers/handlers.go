// Package handlers provides HTTP handlers for Bayesian inference.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/qbayes/internal/modules/bayes"
)

// Handler handles Bayes HTTP requests
type Handler struct {
	engine *bayes.Engine
	log    zerolog.Logger
}

// NewHandler creates a new Bayes handler
func NewHandler(engine *bayes.Engine, log zerolog.Logger) *Handler {
	return &Handler{
		engine: engine,
		log:    log.With().Str("handler", "bayes").Logger(),
	}
}

// DecideRequest represents a request to run one inference pass
type DecideRequest struct {
	Entropy   float64 `json:"entropy"`
	Coherence float64 `json:"coherence"`
	Influence float64 `json:"influence"`
	Action    int     `json:"action"`
}

// HandleDecide handles POST /api/bayes/decide
func (h *Handler) HandleDecide(w http.ResponseWriter, r *http.Request) {
	var req DecideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Influence < 0 || req.Influence > 1 {
		http.Error(w, "influence must be within [0, 1]", http.StatusBadRequest)
		return
	}
	if req.Action != 0 && req.Action != 1 {
		http.Error(w, "action must be 0 or 1", http.StatusBadRequest)
		return
	}

	decision := h.engine.Decide(req.Entropy, req.Coherence, req.Influence, req.Action)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(decision)
}

// RegisterRoutes registers all Bayes routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/bayes", func(r chi.Router) {
		r.Post("/decide", h.HandleDecide)
	})
}
