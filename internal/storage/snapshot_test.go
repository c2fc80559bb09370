package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// steppingClock returns a clock that advances one minute per call.
func steppingClock() func() time.Time {
	now := time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		now = now.Add(time.Minute)
		return now
	}
}

func TestSnapshots_CreateAndList(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.ReplaceRoomRates(ctx, testRecords()))

	snaps, err := NewSnapshots(store)
	require.NoError(t, err)
	snaps.now = steppingClock()

	info, err := snaps.Create(ctx, "before-term", "Rates before term two")
	require.NoError(t, err)
	assert.Equal(t, "before-term", info.ID)
	assert.Equal(t, 3, info.RoomRates)
	assert.Equal(t, ExpectedSchemaVersion, info.SchemaVersion)
	assert.Positive(t, info.FileSize)
	assert.FileExists(t, filepath.Join(filepath.Dir(store.Path()), "snapshots", "before-term.db"))

	_, err = snaps.Create(ctx, "before-term", "again")
	assert.ErrorIs(t, err, ErrSnapshotExists)

	generated, err := snaps.Create(ctx, "", "")
	require.NoError(t, err)

	list, err := snaps.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, generated.ID, list[0].ID, "newest first")
	assert.Equal(t, "Rates before term two", list[1].Description)
}

func TestSnapshots_InvalidIDs(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	snaps, err := NewSnapshots(store)
	require.NoError(t, err)

	for _, id := range []string{"../escape", "a/b", `a\b`} {
		_, err := snaps.Create(ctx, id, "")
		assert.ErrorIs(t, err, ErrInvalidSnapshotID, id)
		assert.ErrorIs(t, snaps.Restore(ctx, id), ErrInvalidSnapshotID, id)
	}
	assert.ErrorIs(t, snaps.Restore(ctx, "missing"), ErrSnapshotNotFound)
	assert.ErrorIs(t, snaps.Delete(ctx, "missing"), ErrSnapshotNotFound)
}

func TestSnapshots_Restore(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.ReplaceRoomRates(ctx, testRecords()))
	snaps, err := NewSnapshots(store)
	require.NoError(t, err)

	_, err = snaps.Create(ctx, "three-rates", "")
	require.NoError(t, err)

	require.NoError(t, store.ReplaceRoomRates(ctx, testRecords()[:1]))
	require.NoError(t, snaps.Restore(ctx, "three-rates"))

	reopened, err := NewSQLiteStorage(store.Path())
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	records, err := reopened.GetRoomRates(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestSnapshots_RestoreRejectsCorruptCopy(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	snaps, err := NewSnapshots(store)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(snaps.dataPath("broken"), []byte("not a database"), 0o600))

	assert.Error(t, snaps.Restore(ctx, "broken"))

	_, err = store.GetRoomRates(ctx)
	assert.NoError(t, err, "the live database stays open when a restore is refused")
}

func TestSnapshots_AutoSnapshotPrunes(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	snaps, err := NewSnapshots(store)
	require.NoError(t, err)
	snaps.now = steppingClock()

	_, err = snaps.Create(ctx, "manual", "")
	require.NoError(t, err)

	for range maxAutoSnapshots + 2 {
		info, err := snaps.AutoSnapshot(ctx, "rates-import")
		require.NoError(t, err)
		assert.True(t, info.IsAuto)
	}

	list, err := snaps.List(ctx)
	require.NoError(t, err)

	auto := 0
	for _, s := range list {
		if s.IsAuto {
			auto++
		}
	}
	assert.Equal(t, maxAutoSnapshots, auto)
	assert.Len(t, list, maxAutoSnapshots+1, "manual snapshots are never pruned")
}
