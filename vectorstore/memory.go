package vectorstore

import (
	"context"
	"sort"
	"sync"
)

// Memory is an in-process store for tests and single-node development.
type Memory struct {
	mu     sync.RWMutex
	dim    int
	points map[string]Point
}

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{points: map[string]Point{}}
}

func (m *Memory) EnsureCollection(ctx context.Context, dim int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dim == 0 {
		m.dim = dim
	}
	return nil
}

func (m *Memory) Upsert(ctx context.Context, points []Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range points {
		m.points[p.ID] = p
		if m.dim == 0 {
			m.dim = len(p.Vector)
		}
	}
	return nil
}

func (m *Memory) Query(ctx context.Context, vector []float32, topK int, filter Filter) ([]Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matches := make([]Match, 0, len(m.points))
	for _, p := range m.points {
		if !matchesFilter(p.Metadata, filter) {
			continue
		}
		matches = append(matches, Match{
			ID:       p.ID,
			Score:    CosineSimilarity(vector, p.Vector),
			Text:     p.Text,
			Metadata: p.Metadata,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (m *Memory) DeleteByFilter(ctx context.Context, filter Filter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, p := range m.points {
		if matchesFilter(p.Metadata, filter) {
			delete(m.points, id)
		}
	}
	return nil
}

func (m *Memory) Dimension(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dim, nil
}

func (m *Memory) Recreate(ctx context.Context, dim int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.points = map[string]Point{}
	m.dim = dim
	return nil
}

// Len reports the number of stored points.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.points)
}

func matchesFilter(metadata map[string]any, filter Filter) bool {
	for k, want := range filter {
		got, ok := metadata[k].(string)
		if !ok || got != want {
			return false
		}
	}
	return true
}
