package state

import (
	"database/sql"
	"math/rand"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo, err := NewRepository(db, zerolog.Nop())
	require.NoError(t, err)
	return repo
}

func TestSerializeRoundTrip(t *testing.T) {
	e := newTestEngine(t, 2, WithVector([]float64{3, 4}))

	payload, err := e.Serialize()
	require.NoError(t, err)

	restored, err := Deserialize(newStateScorer(), payload, zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, e.Visualize(), restored.Visualize())
	assert.Equal(t, e.NumPositions(), restored.NumPositions())
	assert.Equal(t, e.LearningRate(), restored.LearningRate())
}

func TestDeserializeRejectsCorruptRecords(t *testing.T) {
	_, err := Deserialize(newStateScorer(), []byte("not msgpack"), zerolog.Nop())
	assert.Error(t, err)
}

func TestRepositorySaveAndGet(t *testing.T) {
	repo := newTestRepository(t)
	e := newTestEngine(t, 2, WithVector([]float64{3, 4}))

	id, err := repo.Save(e)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	record, err := repo.Get(id)
	require.NoError(t, err)
	assert.Equal(t, e.Snapshot(), record)

	restored, err := FromRecord(newStateScorer(), record, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, e.Visualize(), restored.Visualize())
}

func TestRepositoryGetMissing(t *testing.T) {
	repo := newTestRepository(t)
	_, err := repo.Get("does-not-exist")
	assert.Error(t, err)
}

func TestRepositoryListAndDelete(t *testing.T) {
	repo := newTestRepository(t)

	var ids []string
	for i := 0; i < 3; i++ {
		e := newTestEngine(t, 2, WithRand(rand.New(rand.NewSource(int64(i)))))
		id, err := repo.Save(e)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	metas, err := repo.List(10)
	require.NoError(t, err)
	require.Len(t, metas, 3)
	for _, meta := range metas {
		assert.Equal(t, 2, meta.NumPositions)
		assert.False(t, meta.CreatedAt.IsZero())
	}

	require.NoError(t, repo.Delete(ids[0]))
	metas, err = repo.List(10)
	require.NoError(t, err)
	assert.Len(t, metas, 2)

	assert.Error(t, repo.Delete(ids[0]))
}

func TestRepositoryPrune(t *testing.T) {
	repo := newTestRepository(t)

	for i := 0; i < 5; i++ {
		e := newTestEngine(t, 2, WithRand(rand.New(rand.NewSource(int64(i)))))
		_, err := repo.Save(e)
		require.NoError(t, err)
	}

	removed, err := repo.Prune(2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)

	metas, err := repo.List(10)
	require.NoError(t, err)
	assert.Len(t, metas, 2)

	removed, err = repo.Prune(2)
	require.NoError(t, err)
	assert.Equal(t, int64(0), removed)
}
