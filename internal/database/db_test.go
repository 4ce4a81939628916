package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOpensAndDefaultsProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "test.db")

	db, err := New(Config{Path: path, Name: "test"})
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, ProfileStandard, db.Profile())
	assert.Equal(t, "test", db.Name())
	assert.True(t, filepath.IsAbs(db.Path()))

	// The connection is usable for DDL right away.
	_, err = db.Conn().Exec("CREATE TABLE items (id INTEGER PRIMARY KEY)")
	assert.NoError(t, err)
}

func TestNewInMemoryURI(t *testing.T) {
	db, err := New(Config{Path: "file::memory:", Profile: ProfileStandard, Name: "mem"})
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, "file::memory:", db.Path())
}
