// Package handlers provides HTTP handlers for reference noise operations.
package handlers

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/qbayes/internal/modules/noise"
	"github.com/aristath/qbayes/pkg/formulas"
)

// Handler handles noise HTTP requests. It keeps a registry of live
// noise instances addressed by id.
type Handler struct {
	mu       sync.Mutex
	registry map[string]*noise.ReferenceNoise
	log      zerolog.Logger
}

// NewHandler creates a new noise handler.
func NewHandler(log zerolog.Logger) *Handler {
	return &Handler{
		registry: make(map[string]*noise.ReferenceNoise),
		log:      log.With().Str("handler", "noise").Logger(),
	}
}

// CreateRequest represents a request to create a noise instance
type CreateRequest struct {
	Influence     float64            `json:"influence"`
	AlgorithmType string             `json:"algorithm_type"`
	Parameters    map[string]float64 `json:"parameters"`
	RealComponent *float64           `json:"real_component,omitempty"`
	ImagComponent *float64           `json:"imag_component,omitempty"`
}

// AdjustRequest represents a request to adjust a noise influence
type AdjustRequest struct {
	ID    string  `json:"id"`
	Delta float64 `json:"delta"`
}

// CombineRequest represents a request to combine two noise instances
type CombineRequest struct {
	ID      string  `json:"id"`
	OtherID string  `json:"other_id"`
	Weight  float64 `json:"weight"`
}

// EntropyRequest represents a request to compute distribution entropy
type EntropyRequest struct {
	Probabilities map[string]float64 `json:"probabilities"`
}

type noiseResponse struct {
	ID            string                   `json:"id"`
	Influence     float64                  `json:"influence"`
	AlgorithmType string                   `json:"algorithm_type"`
	Parameters    map[string]float64       `json:"parameters"`
	History       []noise.AdjustmentRecord `json:"history"`
}

func (h *Handler) respond(w http.ResponseWriter, id string, n *noise.ReferenceNoise) {
	writeJSON(w, http.StatusOK, noiseResponse{
		ID:            id,
		Influence:     n.Influence(),
		AlgorithmType: n.AlgorithmType(),
		Parameters:    n.Parameters(),
		History:       n.History(),
	})
}

// HandleCreate handles POST /api/noise
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var (
		n   *noise.ReferenceNoise
		err error
	)
	if req.RealComponent != nil && req.ImagComponent != nil {
		n, err = noise.NewComplex(*req.RealComponent, *req.ImagComponent, req.AlgorithmType, req.Parameters)
	} else {
		n, err = noise.New(req.Influence, req.AlgorithmType, req.Parameters)
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	id := uuid.New().String()
	h.mu.Lock()
	h.registry[id] = n
	h.mu.Unlock()

	h.log.Debug().Str("id", id).Float64("influence", n.Influence()).Msg("Noise created")
	h.respond(w, id, n)
}

// HandleGet handles GET /api/noise/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request, id string) {
	h.mu.Lock()
	n, ok := h.registry[id]
	h.mu.Unlock()
	if !ok {
		http.Error(w, "Noise instance not found", http.StatusNotFound)
		return
	}
	h.respond(w, id, n)
}

// HandleAdjust handles POST /api/noise/adjust
func (h *Handler) HandleAdjust(w http.ResponseWriter, r *http.Request) {
	var req AdjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	n, ok := h.registry[req.ID]
	if ok {
		n.Adjust(req.Delta)
	}
	h.mu.Unlock()

	if !ok {
		http.Error(w, "Noise instance not found", http.StatusNotFound)
		return
	}
	h.respond(w, req.ID, n)
}

// HandleCombine handles POST /api/noise/combine
func (h *Handler) HandleCombine(w http.ResponseWriter, r *http.Request) {
	var req CombineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	a, okA := h.registry[req.ID]
	b, okB := h.registry[req.OtherID]
	if !okA || !okB {
		http.Error(w, "Noise instance not found", http.StatusNotFound)
		return
	}

	combined, err := a.Combine(b, req.Weight)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	id := uuid.New().String()
	h.registry[id] = combined
	h.respond(w, id, combined)
}

// HandleEntropy handles POST /api/noise/entropy
func (h *Handler) HandleEntropy(w http.ResponseWriter, r *http.Request) {
	var req EntropyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	entropy := formulas.EntropyOfDistribution(req.Probabilities)
	writeJSON(w, http.StatusOK, map[string]float64{"entropy": entropy})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
