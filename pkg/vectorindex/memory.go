package vectorindex

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryIndex is an in-process Index used in tests and single-node
// deployments without Postgres.
type MemoryIndex struct {
	mu      sync.RWMutex
	tenants map[uuid.UUID]map[uuid.UUID]Point
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		tenants: make(map[uuid.UUID]map[uuid.UUID]Point),
	}
}

var _ Index = &MemoryIndex{}

func (x *MemoryIndex) Upsert(_ context.Context, tenantID uuid.UUID, points []Point) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	store, ok := x.tenants[tenantID]
	if !ok {
		store = make(map[uuid.UUID]Point)
		x.tenants[tenantID] = store
	}

	now := time.Now()
	for _, p := range points {
		if existing, ok := store[p.ID]; ok {
			p.CreatedAt = existing.CreatedAt
		} else if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		store[p.ID] = p
	}
	return nil
}

func (x *MemoryIndex) Search(_ context.Context, tenantID uuid.UUID, vector []float32, opts SearchOptions) ([]ScoredPoint, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 5
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	var hits []ScoredPoint
	for _, p := range x.tenants[tenantID] {
		if !matchesFilter(p.Payload, opts.Filter) {
			continue
		}
		sim := cosineSimilarity(vector, p.Vector)
		if sim < opts.Threshold {
			continue
		}
		hits = append(hits, ScoredPoint{Point: p, Similarity: sim})
	}

	// Equal scores break toward the most recently inserted point.
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].CreatedAt.After(hits[j].CreatedAt)
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (x *MemoryIndex) Delete(_ context.Context, tenantID uuid.UUID, ids []uuid.UUID) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	store := x.tenants[tenantID]
	for _, id := range ids {
		delete(store, id)
	}
	return nil
}

func (x *MemoryIndex) DeleteByFilter(_ context.Context, tenantID uuid.UUID, filter map[string]string) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	store := x.tenants[tenantID]
	for id, p := range store {
		if matchesFilter(p.Payload, filter) {
			delete(store, id)
		}
	}
	return nil
}

func (x *MemoryIndex) Count(_ context.Context, tenantID uuid.UUID) (int64, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return int64(len(x.tenants[tenantID])), nil
}

func matchesFilter(payload map[string]any, filter map[string]string) bool {
	for key, want := range filter {
		value, ok := payload[key]
		if !ok {
			return false
		}
		if fmt.Sprintf("%v", value) != want {
			return false
		}
	}
	return true
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
