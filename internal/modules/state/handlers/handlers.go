// Package handlers provides HTTP handlers for the state vector engine.
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
	"github.com/aristath/qbayes/internal/modules/state"
)

// Handler handles state HTTP requests. It owns the single live engine;
// access is serialized through the shared mutex.
type Handler struct {
	scorer *quantumbayes.Scorer
	repo   *state.Repository
	engine *state.Engine
	mu     *sync.Mutex
	log    zerolog.Logger
}

// NewHandler creates a new state handler
func NewHandler(scorer *quantumbayes.Scorer, repo *state.Repository, mu *sync.Mutex, log zerolog.Logger) *Handler {
	return &Handler{
		scorer: scorer,
		repo:   repo,
		mu:     mu,
		log:    log.With().Str("handler", "state").Logger(),
	}
}

// ConstructRequest represents a request to construct a new engine
type ConstructRequest struct {
	NumPositions int       `json:"num_positions"`
	LearningRate float64   `json:"learning_rate"`
	Vector       []float64 `json:"vector,omitempty"`
}

// UpdateRequest represents a state update request
type UpdateRequest struct {
	Action int `json:"action"`
}

// PairRequest carries a second vector for interference or entanglement
type PairRequest struct {
	Vector       []float64 `json:"vector"`
	LearningRate float64   `json:"learning_rate,omitempty"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidRange),
		errors.Is(err, domain.ErrShapeMismatch),
		errors.Is(err, domain.ErrTypeMismatch),
		errors.Is(err, domain.ErrEmptyInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// requireEngine writes a 409 when no engine has been constructed yet.
func (h *Handler) requireEngine(w http.ResponseWriter) bool {
	if h.engine == nil {
		http.Error(w, "No state engine constructed", http.StatusConflict)
		return false
	}
	return true
}

// HandleConstruct handles POST /api/state
func (h *Handler) HandleConstruct(w http.ResponseWriter, r *http.Request) {
	var req ConstructRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.LearningRate == 0 {
		req.LearningRate = 0.1
	}

	var opts []state.Option
	if len(req.Vector) > 0 {
		opts = append(opts, state.WithVector(req.Vector))
	}

	h.mu.Lock()
	engine, err := state.New(h.scorer, req.NumPositions, req.LearningRate, h.log, opts...)
	if err == nil {
		h.engine = engine
	}
	var view state.View
	if err == nil {
		view = h.engine.Visualize()
	}
	h.mu.Unlock()

	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	h.log.Info().Int("num_positions", req.NumPositions).Msg("State engine constructed")
	writeJSON(w, view)
}

// HandleGet handles GET /api/state
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.requireEngine(w) {
		return
	}
	writeJSON(w, h.engine.Visualize())
}

// HandleUpdate handles POST /api/state/update
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Action != 0 && req.Action != 1 {
		http.Error(w, "action must be 0 or 1", http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.requireEngine(w) {
		return
	}
	if err := h.engine.Update(req.Action); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, h.engine.Visualize())
}

// pairEngine builds a throwaway engine around the supplied vector so it
// can interfere or entangle with the live one.
func (h *Handler) pairEngine(req PairRequest) (*state.Engine, error) {
	learningRate := req.LearningRate
	if learningRate == 0 {
		learningRate = h.engine.LearningRate()
	}
	return state.New(h.scorer, len(req.Vector), learningRate, h.log, state.WithVector(req.Vector))
}

// HandleInterference handles POST /api/state/interference
func (h *Handler) HandleInterference(w http.ResponseWriter, r *http.Request) {
	var req PairRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.requireEngine(w) {
		return
	}

	other, err := h.pairEngine(req)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	result, err := h.engine.Interference(other)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, map[string][]float64{"state": result})
}

// HandleEntanglement handles POST /api/state/entanglement
func (h *Handler) HandleEntanglement(w http.ResponseWriter, r *http.Request) {
	var req PairRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.requireEngine(w) {
		return
	}

	other, err := h.pairEngine(req)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	entanglement, err := h.engine.Entanglement(other)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, map[string]float64{"entanglement": entanglement})
}

// HandleSaveSnapshot handles POST /api/state/snapshots
func (h *Handler) HandleSaveSnapshot(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.requireEngine(w) {
		return
	}

	id, err := h.repo.Save(h.engine)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"id": id})
}

// HandleListSnapshots handles GET /api/state/snapshots
func (h *Handler) HandleListSnapshots(w http.ResponseWriter, r *http.Request) {
	metas, err := h.repo.List(50)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if metas == nil {
		metas = []state.SnapshotMeta{}
	}
	writeJSON(w, metas)
}

// HandleRestoreSnapshot handles POST /api/state/snapshots/{id}/restore
func (h *Handler) HandleRestoreSnapshot(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	record, err := h.repo.Get(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	h.mu.Lock()
	engine, err := state.FromRecord(h.scorer, record, h.log)
	if err == nil {
		h.engine = engine
	}
	var view state.View
	if err == nil {
		view = h.engine.Visualize()
	}
	h.mu.Unlock()

	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	h.log.Info().Str("id", id).Msg("State engine restored from snapshot")
	writeJSON(w, view)
}

// RegisterRoutes registers all state routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/state", func(r chi.Router) {
		r.Post("/", h.HandleConstruct)
		r.Get("/", h.HandleGet)
		r.Post("/update", h.HandleUpdate)
		r.Post("/interference", h.HandleInterference)
		r.Post("/entanglement", h.HandleEntanglement)
		r.Post("/snapshots", h.HandleSaveSnapshot)
		r.Get("/snapshots", h.HandleListSnapshots)
		r.Post("/snapshots/{id}/restore", h.HandleRestoreSnapshot)
	})
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
