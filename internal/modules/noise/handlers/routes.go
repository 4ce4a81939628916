package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all noise routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/noise", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Post("/adjust", h.HandleAdjust)
		r.Post("/combine", h.HandleCombine)
		r.Post("/entropy", h.HandleEntropy)
		r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGet(w, r, chi.URLParam(r, "id"))
		})
	})
}
