package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"famcal/internal/models"
)

func entryAt(id string, start time.Time) models.IndexEntry {
	return models.IndexEntry{
		ID:        id,
		Title:     "entry " + id,
		Start:     start,
		End:       start.Add(time.Hour),
		Category:  models.CategoryFamily,
		Priority:  models.PriorityMedium,
		CreatedBy: "user-1",
	}
}

func TestIndex_LoadAbsentFileIsEmpty(t *testing.T) {
	ix := NewIndex(filepath.Join(t.TempDir(), indexFileName), nil)
	require.NoError(t, ix.Load(context.Background()))
	assert.Equal(t, 0, ix.Len())
}

func TestIndex_LoadCorruptFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), indexFileName)
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o600))

	ix := NewIndex(path, nil)
	assert.Error(t, ix.Load(context.Background()))
}

func TestIndex_EncodeWithDoesNotMutate(t *testing.T) {
	ix := NewIndex(filepath.Join(t.TempDir(), indexFileName), nil)
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	e := entryAt("ev-1", start)

	data, err := ix.EncodeWith(&e, "")
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	assert.Equal(t, 0, ix.Len(), "EncodeWith must not mutate the map")

	ix.Apply(&e, "")
	assert.Equal(t, 1, ix.Len())
}

func TestIndex_RoundTripThroughFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), indexFileName)
	ix := NewIndex(path, nil)
	ctx := context.Background()

	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	e := entryAt("ev-1", start)

	data, err := ix.EncodeWith(&e, "")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	ix.Apply(&e, "")

	reloaded := NewIndex(path, nil)
	require.NoError(t, reloaded.Load(ctx))
	got, ok := reloaded.Get("ev-1")
	require.True(t, ok)
	assert.Equal(t, "ev-1", got.ID)
	assert.True(t, got.Start.Equal(start))
}

func TestIndex_QueryDeterministicOrder(t *testing.T) {
	ix := NewIndex(filepath.Join(t.TempDir(), indexFileName), nil)
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	// Same start time for b and c exercises the id tiebreak.
	for _, e := range []models.IndexEntry{
		entryAt("c", base.Add(time.Hour)),
		entryAt("a", base),
		entryAt("b", base.Add(time.Hour)),
	} {
		ix.Apply(&e, "")
	}

	first := ix.Query(models.EventFilter{})
	second := ix.Query(models.EventFilter{})

	require.Len(t, first, 3)
	assert.Equal(t, "a", first[0].ID)
	assert.Equal(t, "b", first[1].ID)
	assert.Equal(t, "c", first[2].ID)
	assert.Equal(t, first, second)
}

func TestIndex_QueryAppliesFilter(t *testing.T) {
	ix := NewIndex(filepath.Join(t.TempDir(), indexFileName), nil)
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	mine := entryAt("mine", base)
	theirs := entryAt("theirs", base)
	theirs.CreatedBy = "user-2"
	ix.Apply(&mine, "")
	ix.Apply(&theirs, "")

	got := ix.Query(models.EventFilter{UserID: "user-1"})
	require.Len(t, got, 1)
	assert.Equal(t, "mine", got[0].ID)
}

func TestIndex_QuerySeriesParent(t *testing.T) {
	ix := NewIndex(filepath.Join(t.TempDir(), indexFileName), nil)
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	parent := entryAt("parent", base)
	inst1 := entryAt("inst-1", base.AddDate(0, 0, 7))
	inst1.SeriesParentID = "parent"
	inst2 := entryAt("inst-2", base.AddDate(0, 0, 14))
	inst2.SeriesParentID = "parent"
	for _, e := range []models.IndexEntry{parent, inst1, inst2} {
		ix.Apply(&e, "")
	}

	got := ix.Query(models.EventFilter{SeriesParentID: "parent"})
	require.Len(t, got, 2)
	assert.Equal(t, "inst-1", got[0].ID)
	assert.Equal(t, "inst-2", got[1].ID)
}
