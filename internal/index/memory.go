// Package index provides the in-process vector index used when no external
// search backend is configured.
package index

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"docqa/internal/agent"
	"docqa/internal/bus"
)

// Embedder turns text into a vector for similarity search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type entry struct {
	hit    agent.Hit
	vector []float32
}

// Memory is an in-memory cosine-similarity index over an Embedder. Safe for
// concurrent use; contents live for the process lifetime.
type Memory struct {
	embedder Embedder

	mu      sync.RWMutex
	entries []entry
}

func NewMemory(embedder Embedder) *Memory {
	return &Memory{embedder: embedder}
}

func (m *Memory) Index(ctx context.Context, chunks []bus.Chunk) error {
	for _, c := range chunks {
		vec, err := m.embedder.Embed(ctx, c.Text)
		if err != nil {
			return fmt.Errorf("embed chunk: %w", err)
		}
		m.mu.Lock()
		m.entries = append(m.entries, entry{
			hit: agent.Hit{
				Text:           c.Text,
				SourceDocument: c.SourceDocument,
				DocKind:        c.DocKind,
				LocatorValue:   c.Locator.Value,
			},
			vector: vec,
		})
		m.mu.Unlock()
	}
	return nil
}

// Query returns up to topK nearest entries by cosine similarity, best first.
// An empty index yields an empty result, never an error.
func (m *Memory) Query(ctx context.Context, query string, topK int) ([]agent.Hit, error) {
	m.mu.RLock()
	n := len(m.entries)
	m.mu.RUnlock()
	if n == 0 || topK <= 0 {
		return nil, nil
	}

	qvec, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	m.mu.RLock()
	scored := make([]agent.Hit, 0, len(m.entries))
	for _, e := range m.entries {
		h := e.hit
		h.Score = cosine(qvec, e.vector)
		scored = append(scored, h)
	}
	m.mu.RUnlock()

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if topK < len(scored) {
		scored = scored[:topK]
	}
	return scored, nil
}

// Len reports how many chunks are indexed.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func cosine(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
