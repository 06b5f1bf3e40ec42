package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity(t *testing.T) {
	require.InDelta(t, 1.0, CosineSimilarity([]float32{1, 0}, []float32{1, 0}), 1e-9)
	require.InDelta(t, 1.0, CosineSimilarity([]float32{2, 0}, []float32{5, 0}), 1e-9)
	require.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	require.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)

	require.Zero(t, CosineSimilarity([]float32{1, 0}, []float32{1}))
	require.Zero(t, CosineSimilarity(nil, nil))
	require.Zero(t, CosineSimilarity([]float32{0, 0}, []float32{1, 0}))
}

func seedPoints(t *testing.T, m *Memory) {
	t.Helper()
	err := m.Upsert(context.Background(), []Point{
		{ID: "a", Vector: []float32{1, 0}, Text: "alpha", Metadata: map[string]any{"project_id": "p1"}},
		{ID: "b", Vector: []float32{0.9, 0.1}, Text: "beta", Metadata: map[string]any{"project_id": "p1"}},
		{ID: "c", Vector: []float32{0, 1}, Text: "gamma", Metadata: map[string]any{"project_id": "p2"}},
	})
	require.NoError(t, err)
}

func TestMemoryQueryRanksBySimilarity(t *testing.T) {
	m := NewMemory()
	seedPoints(t, m)

	matches, err := m.Query(context.Background(), []float32{1, 0}, 0, nil)
	require.NoError(t, err)
	require.Len(t, matches, 3)
	require.Equal(t, "a", matches[0].ID)
	require.Equal(t, "b", matches[1].ID)
	require.Equal(t, "c", matches[2].ID)
	require.Greater(t, matches[0].Score, matches[1].Score)
}

func TestMemoryQueryHonorsTopKAndFilter(t *testing.T) {
	m := NewMemory()
	seedPoints(t, m)

	matches, err := m.Query(context.Background(), []float32{1, 0}, 1, nil)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Equal(t, "a", matches[0].ID)

	matches, err = m.Query(context.Background(), []float32{1, 0}, 10, Filter{"project_id": "p2"})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Equal(t, "c", matches[0].ID)
}

func TestMemoryUpsertOverwritesByID(t *testing.T) {
	m := NewMemory()
	seedPoints(t, m)

	err := m.Upsert(context.Background(), []Point{
		{ID: "a", Vector: []float32{0, 1}, Text: "alpha v2", Metadata: map[string]any{"project_id": "p1"}},
	})
	require.NoError(t, err)
	require.Equal(t, 3, m.Len())

	matches, err := m.Query(context.Background(), []float32{0, 1}, 1, Filter{"project_id": "p1"})
	require.NoError(t, err)
	require.Equal(t, "alpha v2", matches[0].Text)
}

func TestMemoryDeleteByFilter(t *testing.T) {
	m := NewMemory()
	seedPoints(t, m)

	require.NoError(t, m.DeleteByFilter(context.Background(), Filter{"project_id": "p1"}))
	require.Equal(t, 1, m.Len())

	matches, err := m.Query(context.Background(), []float32{1, 0}, 0, nil)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Equal(t, "c", matches[0].ID)
}

func TestMemoryDimensionLifecycle(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	dim, err := m.Dimension(ctx)
	require.NoError(t, err)
	require.Zero(t, dim)

	require.NoError(t, m.EnsureCollection(ctx, 4))
	dim, err = m.Dimension(ctx)
	require.NoError(t, err)
	require.Equal(t, 4, dim)

	// Recreate drops the points and adopts the new width.
	seedPoints(t, m)
	require.NoError(t, m.Recreate(ctx, 8))
	require.Zero(t, m.Len())
	dim, err = m.Dimension(ctx)
	require.NoError(t, err)
	require.Equal(t, 8, dim)
}

func TestMatchesFilterRequiresStringValues(t *testing.T) {
	meta := map[string]any{"project_id": "p1", "chunk_index": 3}

	require.True(t, matchesFilter(meta, Filter{"project_id": "p1"}))
	require.True(t, matchesFilter(meta, nil))
	require.False(t, matchesFilter(meta, Filter{"project_id": "p2"}))
	require.False(t, matchesFilter(meta, Filter{"missing": "x"}))
	// Non-string metadata never matches an equality filter.
	require.False(t, matchesFilter(meta, Filter{"chunk_index": "3"}))
}
