package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/qbayes/internal/modules/bayes"
)

func setupRouter() *chi.Mux {
	log := zerolog.Nop()
	r := chi.NewRouter()
	NewHandler(bayes.NewEngine(log), log).RegisterRoutes(r)
	return r
}

func TestHandleDecide(t *testing.T) {
	router := setupRouter()

	body, _ := json.Marshal(DecideRequest{
		Entropy:   0.9,
		Coherence: 0.9,
		Influence: 1.0,
		Action:    1,
	})
	req := httptest.NewRequest(http.MethodPost, "/bayes/decide", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var decision bayes.Decision
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decision))
	assert.Equal(t, 1, decision.ActionToTake)
	assert.InDelta(t, 0.8, decision.JointProbability, 1e-12)
}

func TestHandleDecideValidation(t *testing.T) {
	router := setupRouter()

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", "{not json"},
		{"influence out of range", `{"entropy":0.5,"coherence":0.5,"influence":1.5,"action":1}`},
		{"bad action", `{"entropy":0.5,"coherence":0.5,"influence":0.5,"action":2}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/bayes/decide", bytes.NewReader([]byte(tt.body)))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}
