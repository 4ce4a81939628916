package state

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/qbayes/internal/domain"
	"github.com/aristath/qbayes/internal/modules/quantumbayes"
)

// Record is the durable snapshot of an engine. Round-tripping a record
// reconstructs an engine whose Visualize output is bit-identical.
type Record struct {
	StateVector   []float64 `msgpack:"state_vector" json:"state_vector"`
	Probabilities []float64 `msgpack:"probabilities" json:"probabilities"`
	NumPositions  int       `msgpack:"num_positions" json:"num_positions"`
	LearningRate  float64   `msgpack:"learning_rate" json:"learning_rate"`
}

// Snapshot captures the engine's current state as a record.
func (e *Engine) Snapshot() Record {
	return Record{
		StateVector:   e.Vector(),
		Probabilities: e.Probabilities(),
		NumPositions:  e.numPositions,
		LearningRate:  e.learningRate,
	}
}

// Serialize encodes the engine's snapshot as msgpack.
func (e *Engine) Serialize() ([]byte, error) {
	payload, err := msgpack.Marshal(e.Snapshot())
	if err != nil {
		return nil, fmt.Errorf("encoding state snapshot: %w", err)
	}
	return payload, nil
}

// FromRecord reconstructs an engine from a snapshot record. The stored
// vectors are restored verbatim, bypassing renormalization.
func FromRecord(scorer *quantumbayes.Scorer, record Record, log zerolog.Logger) (*Engine, error) {
	if record.NumPositions < 1 {
		return nil, fmt.Errorf("snapshot has %d positions: %w", record.NumPositions, domain.ErrInvalidRange)
	}
	if len(record.StateVector) != record.NumPositions || len(record.Probabilities) != record.NumPositions {
		return nil, fmt.Errorf("snapshot vectors do not match %d positions: %w",
			record.NumPositions, domain.ErrShapeMismatch)
	}

	e, err := New(scorer, record.NumPositions, record.LearningRate, log)
	if err != nil {
		return nil, err
	}
	copy(e.vector, record.StateVector)
	copy(e.probabilities, record.Probabilities)
	return e, nil
}

// Deserialize decodes a msgpack snapshot and reconstructs its engine.
func Deserialize(scorer *quantumbayes.Scorer, payload []byte, log zerolog.Logger) (*Engine, error) {
	var record Record
	if err := msgpack.Unmarshal(payload, &record); err != nil {
		return nil, fmt.Errorf("decoding state snapshot: %w", err)
	}
	return FromRecord(scorer, record, log)
}
