// Package handlers provides HTTP handlers for spectral analysis.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/qbayes/internal/domain"
	"github.com/aristath/qbayes/internal/modules/spectral"
)

// Handler handles spectral HTTP requests. The cache is single-owner
// state, so access is serialized here.
type Handler struct {
	cache *spectral.Cache
	mu    *sync.Mutex
	log   zerolog.Logger
}

// NewHandler creates a new spectral handler
func NewHandler(cache *spectral.Cache, mu *sync.Mutex, log zerolog.Logger) *Handler {
	return &Handler{
		cache: cache,
		mu:    mu,
		log:   log.With().Str("handler", "spectral").Logger(),
	}
}

// Sample is one complex signal sample on the wire
type Sample struct {
	Real float64 `json:"real"`
	Imag float64 `json:"imag"`
}

// AnalyzeRequest represents an analysis request. Either Signal (complex)
// or RealSignal may be supplied.
type AnalyzeRequest struct {
	Signal     []Sample  `json:"signal,omitempty"`
	RealSignal []float64 `json:"real_signal,omitempty"`
}

// HandleAnalyze handles POST /api/spectral/analyze
func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var (
		entry *spectral.Entry
		err   error
	)
	h.mu.Lock()
	if len(req.Signal) > 0 {
		signal := make([]complex128, len(req.Signal))
		for i, s := range req.Signal {
			signal[i] = complex(s.Real, s.Imag)
		}
		entry, err = h.cache.Analyze(signal)
	} else {
		entry, err = h.cache.AnalyzeReal(req.RealSignal)
	}
	h.mu.Unlock()

	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrEmptyInput) || errors.Is(err, domain.ErrInvalidSignal) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}

	writeJSON(w, entry)
}

// HandleStats handles GET /api/spectral/stats
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	stats := h.cache.Stats()
	h.mu.Unlock()

	writeJSON(w, stats)
}

// HandleClear handles POST /api/spectral/clear
func (h *Handler) HandleClear(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	h.cache.Clear()
	stats := h.cache.Stats()
	h.mu.Unlock()

	writeJSON(w, stats)
}

// RegisterRoutes registers all spectral routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/spectral", func(r chi.Router) {
		r.Post("/analyze", h.HandleAnalyze)
		r.Get("/stats", h.HandleStats)
		r.Post("/clear", h.HandleClear)
	})
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
