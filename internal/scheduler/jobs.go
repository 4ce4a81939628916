package scheduler

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/aristath/qbayes/internal/modules/spectral"
	"github.com/aristath/qbayes/internal/modules/state"
)

// SnapshotPruneJob trims the state snapshot table down to the most
// recent retention entries.
type SnapshotPruneJob struct {
	Repo      *state.Repository
	Retention int
	Log       zerolog.Logger
}

// Name implements Job.
func (j *SnapshotPruneJob) Name() string { return "snapshot_prune" }

// Run implements Job.
func (j *SnapshotPruneJob) Run() error {
	removed, err := j.Repo.Prune(j.Retention)
	if err != nil {
		return err
	}
	if removed > 0 {
		j.Log.Info().Int64("removed", removed).Msg("Pruned old state snapshots")
	}
	return nil
}

// SpectralSweepJob clears the spectral cache when it grows past
// MaxEntries. Hit/miss counters survive the sweep.
type SpectralSweepJob struct {
	Cache      *spectral.Cache
	MaxEntries int
	Mu         *sync.Mutex
	Log        zerolog.Logger
}

// Name implements Job.
func (j *SpectralSweepJob) Name() string { return "spectral_sweep" }

// Run implements Job.
func (j *SpectralSweepJob) Run() error {
	j.Mu.Lock()
	defer j.Mu.Unlock()

	stats := j.Cache.Stats()
	if stats.Size <= j.MaxEntries {
		return nil
	}
	j.Cache.Clear()
	j.Log.Info().
		Int("evicted", stats.Size).
		Uint64("hits", stats.Hits).
		Uint64("misses", stats.Misses).
		Msg("Spectral cache swept")
	return nil
}
