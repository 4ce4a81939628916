package spectral

import (
	"errors"
	"math"
	"math/cmplx"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/qbayes/internal/domain"
)

func newTestCache() *Cache {
	return NewCache(zerolog.Nop())
}

func pureTone(n, freq int) []complex128 {
	signal := make([]complex128, n)
	for i := range signal {
		angle := 2 * math.Pi * float64(freq) * float64(i) / float64(n)
		signal[i] = cmplx.Exp(complex(0, angle))
	}
	return signal
}

func TestAnalyzeEmpty(t *testing.T) {
	c := newTestCache()

	_, err := c.Analyze(nil)
	assert.True(t, errors.Is(err, domain.ErrEmptyInput), "got %v", err)
}

func TestAnalyzeNonFinite(t *testing.T) {
	c := newTestCache()

	signal := []complex128{1, complex(math.NaN(), 0), 3}
	_, err := c.Analyze(signal)
	assert.True(t, errors.Is(err, domain.ErrInvalidSignal), "got %v", err)

	signal = []complex128{1, complex(0, math.Inf(1))}
	_, err = c.Analyze(signal)
	assert.True(t, errors.Is(err, domain.ErrInvalidSignal), "got %v", err)
}

func TestAnalyzePureTone(t *testing.T) {
	c := newTestCache()

	signal := pureTone(16, 3)
	entry, err := c.Analyze(signal)
	require.NoError(t, err)

	assert.Equal(t, 3, entry.DominantFreqIdx)
	assert.InDelta(t, 3.0/16.0, entry.DominantFreq, 1e-12)
	// A unit-modulus tone of length n carries energy n.
	assert.InDelta(t, 16.0, entry.Energy, 1e-9)
	require.Len(t, entry.Magnitudes, 16)
	require.Len(t, entry.Phases, 16)
}

func TestAnalyzeCacheHit(t *testing.T) {
	c := newTestCache()

	signal := []complex128{1, 2, 3, 4}
	first, err := c.Analyze(signal)
	require.NoError(t, err)

	stats := c.Stats()
	assert.Equal(t, uint64(0), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, 1, stats.Size)

	// Same content in freshly allocated backing memory still hits.
	again := []complex128{1, 2, 3, 4}
	second, err := c.Analyze(again)
	require.NoError(t, err)
	assert.Same(t, first, second)

	stats = c.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
}

func TestAnalyzeDistinctSignals(t *testing.T) {
	c := newTestCache()

	_, err := c.Analyze([]complex128{1, 2, 3})
	require.NoError(t, err)
	_, err = c.Analyze([]complex128{1, 2, 4})
	require.NoError(t, err)

	stats := c.Stats()
	assert.Equal(t, uint64(0), stats.Hits)
	assert.Equal(t, uint64(2), stats.Misses)
	assert.Equal(t, 2, stats.Size)
}

func TestClearKeepsCounters(t *testing.T) {
	c := newTestCache()

	signal := []complex128{1, 2, 3, 4}
	_, err := c.Analyze(signal)
	require.NoError(t, err)
	_, err = c.Analyze(signal)
	require.NoError(t, err)

	c.Clear()

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, 0, stats.Size)

	// After clearing, the same signal is recomputed.
	_, err = c.Analyze(signal)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), c.Stats().Misses)
}

func TestAnalyzeReal(t *testing.T) {
	c := newTestCache()

	entry, err := c.AnalyzeReal([]float64{1, 0, -1, 0})
	require.NoError(t, err)

	// cos(2πi/4) concentrates its mass at frequencies 1 and n-1.
	assert.InDelta(t, 2.0, entry.Magnitudes[1], 1e-9)
	assert.InDelta(t, 2.0, entry.Magnitudes[3], 1e-9)
	assert.InDelta(t, 0.0, entry.Magnitudes[0], 1e-9)
	assert.InDelta(t, 2.0, entry.Energy, 1e-9)

	empty, err := c.AnalyzeReal(nil)
	assert.Nil(t, empty)
	assert.True(t, errors.Is(err, domain.ErrEmptyInput))
}

func TestAnalyzeSingleSample(t *testing.T) {
	c := newTestCache()

	entry, err := c.Analyze([]complex128{complex(2, 0)})
	require.NoError(t, err)
	assert.Equal(t, 0, entry.DominantFreqIdx)
	assert.InDelta(t, 0.0, entry.DominantFreq, 1e-12)
	assert.InDelta(t, 0.0, entry.Entropy, 1e-12)
}
