package posterior

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/adaptive-context/internal/arm"
)

// #region helpers
func tempSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func memBadger(t *testing.T) *BadgerStore {
	t.Helper()
	s, err := NewBadgerStore(BadgerConfig{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// backends runs fn against every Store implementation.
func backends(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("sqlite", func(t *testing.T) { fn(t, tempSQLite(t)) })
	t.Run("badger", func(t *testing.T) { fn(t, memBadger(t)) })
}

// #endregion helpers

// #region store-tests
func TestSaveAndLoad(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		require.NoError(t, s.Save(Posterior{ArmID: "tool:exec:bash", Alpha: 5, Beta: 1, Pulls: 4, LastUpdated: ts}))

		all, err := s.Load()
		require.NoError(t, err)
		require.Len(t, all, 1)
		p := all["tool:exec:bash"]
		assert.Equal(t, 5.0, p.Alpha)
		assert.Equal(t, 1.0, p.Beta)
		assert.Equal(t, 4, p.Pulls)
		assert.True(t, p.LastUpdated.Equal(ts))
	})
}

func TestSaveUpserts(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		require.NoError(t, s.Save(Posterior{ArmID: "skill:skill:github", Alpha: 1, Beta: 1}))
		require.NoError(t, s.Save(Posterior{ArmID: "skill:skill:github", Alpha: 2, Beta: 1, Pulls: 1}))

		p, err := s.Get("skill:skill:github")
		require.NoError(t, err)
		assert.Equal(t, 2.0, p.Alpha)
		assert.Equal(t, 1, p.Pulls)
		assert.False(t, p.LastUpdated.IsZero(), "zero timestamps are stamped on save")
	})
}

func TestGetNotFound(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		_, err := s.Get("tool:exec:missing")
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestSaveBatch(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		require.NoError(t, s.SaveBatch(nil))
		require.NoError(t, s.SaveBatch([]Posterior{
			{ArmID: "tool:fs:read_file", Alpha: 2, Beta: 1, Pulls: 1},
			{ArmID: "file:workspace:AGENTS.md", Alpha: 1, Beta: 2, Pulls: 1},
		}))
		all, err := s.Load()
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})
}

func TestResetSingleAndAll(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		require.NoError(t, s.SaveBatch([]Posterior{
			{ArmID: "tool:exec:bash", Alpha: 9, Beta: 3, Pulls: 10},
			{ArmID: "tool:web:web_fetch", Alpha: 4, Beta: 7, Pulls: 9},
		}))

		n, err := s.Reset("tool:exec:bash")
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		p, err := s.Get("tool:exec:bash")
		require.NoError(t, err)
		assert.Equal(t, 1.0, p.Alpha)
		assert.Equal(t, 1.0, p.Beta)
		assert.Equal(t, 0, p.Pulls)

		other, err := s.Get("tool:web:web_fetch")
		require.NoError(t, err)
		assert.Equal(t, 9, other.Pulls)

		n, err = s.Reset("tool:exec:unknown")
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		n, err = s.Reset("")
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		all, err := s.Load()
		require.NoError(t, err)
		for _, p := range all {
			assert.Equal(t, 1.0, p.Alpha)
			assert.Equal(t, 1.0, p.Beta)
			assert.Equal(t, 0, p.Pulls)
		}
	})
}

func TestSQLiteClosedDB(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "closed.db"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.Load()
	require.Error(t, err)
	require.Error(t, s.Save(Posterior{ArmID: "tool:exec:bash", Alpha: 1, Beta: 1}))
	_, err = s.Reset("")
	require.Error(t, err)
}

func TestSQLiteSharedDBNotClosed(t *testing.T) {
	owner := tempSQLite(t)
	shared, err := NewSQLiteStoreWithDB(owner.DB())
	require.NoError(t, err)
	require.NoError(t, shared.Close())

	// The owner's handle must still be usable.
	require.NoError(t, owner.Save(Posterior{ArmID: "tool:exec:bash", Alpha: 1, Beta: 1}))
}

func TestBadgerRequiresDir(t *testing.T) {
	_, err := NewBadgerStore(BadgerConfig{})
	require.Error(t, err)
}

func TestBadgerPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := NewBadgerStore(DefaultBadgerConfig(dir))
	require.NoError(t, err)
	require.NoError(t, s.Save(Posterior{ArmID: arm.ID("memory:memory:m1"), Alpha: 3, Beta: 2, Pulls: 3}))
	require.NoError(t, s.Close())

	s, err = NewBadgerStore(DefaultBadgerConfig(dir))
	require.NoError(t, err)
	defer s.Close()
	p, err := s.Get("memory:memory:m1")
	require.NoError(t, err)
	assert.Equal(t, 3, p.Pulls)
}

// #endregion store-tests
