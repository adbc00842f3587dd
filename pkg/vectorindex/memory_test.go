package vectorindex

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func point(vec []float32, payload map[string]any, createdAt time.Time) Point {
	return Point{ID: uuid.New(), Vector: vec, Payload: payload, CreatedAt: createdAt}
}

func TestTenantIsolation(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()

	tenantA := uuid.New()
	tenantB := uuid.New()

	require.NoError(t, idx.Upsert(ctx, tenantA, []Point{point([]float32{1, 0}, nil, time.Now())}))
	require.NoError(t, idx.Upsert(ctx, tenantB, []Point{point([]float32{1, 0}, nil, time.Now())}))

	hits, err := idx.Search(ctx, tenantA, []float32{1, 0}, SearchOptions{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	count, err := idx.Count(ctx, tenantB)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestSearchOrderingAndThreshold(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()
	tenant := uuid.New()

	close := point([]float32{1, 0.1}, map[string]any{"document_id": "a"}, time.Now())
	far := point([]float32{0, 1}, map[string]any{"document_id": "b"}, time.Now())
	require.NoError(t, idx.Upsert(ctx, tenant, []Point{far, close}))

	hits, err := idx.Search(ctx, tenant, []float32{1, 0}, SearchOptions{Limit: 10})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, close.ID, hits[0].ID)
	assert.Greater(t, hits[0].Similarity, hits[1].Similarity)

	// Threshold drops the orthogonal vector.
	hits, err = idx.Search(ctx, tenant, []float32{1, 0}, SearchOptions{Limit: 10, Threshold: 0.5})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, close.ID, hits[0].ID)
}

func TestSearchTieBreaksOnRecency(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()
	tenant := uuid.New()

	older := point([]float32{1, 0}, nil, time.Now().Add(-time.Hour))
	newer := point([]float32{1, 0}, nil, time.Now())
	require.NoError(t, idx.Upsert(ctx, tenant, []Point{older, newer}))

	hits, err := idx.Search(ctx, tenant, []float32{1, 0}, SearchOptions{Limit: 2})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, newer.ID, hits[0].ID)
	assert.Equal(t, older.ID, hits[1].ID)
}

func TestSearchPayloadFilter(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()
	tenant := uuid.New()

	docA := point([]float32{1, 0}, map[string]any{"document_id": "a"}, time.Now())
	docB := point([]float32{1, 0}, map[string]any{"document_id": "b"}, time.Now())
	require.NoError(t, idx.Upsert(ctx, tenant, []Point{docA, docB}))

	hits, err := idx.Search(ctx, tenant, []float32{1, 0}, SearchOptions{
		Limit:  10,
		Filter: map[string]string{"document_id": "a"},
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, docA.ID, hits[0].ID)
}

func TestUpsertKeepsOriginalCreatedAt(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()
	tenant := uuid.New()

	created := time.Now().Add(-time.Hour)
	p := point([]float32{1, 0}, nil, created)
	require.NoError(t, idx.Upsert(ctx, tenant, []Point{p}))

	p.Vector = []float32{0, 1}
	p.CreatedAt = time.Time{}
	require.NoError(t, idx.Upsert(ctx, tenant, []Point{p}))

	hits, err := idx.Search(ctx, tenant, []float32{0, 1}, SearchOptions{Limit: 1})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.True(t, hits[0].CreatedAt.Equal(created))
}

func TestDeleteByFilter(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()
	tenant := uuid.New()

	docA := point([]float32{1, 0}, map[string]any{"document_id": "a"}, time.Now())
	docB := point([]float32{1, 0}, map[string]any{"document_id": "b"}, time.Now())
	require.NoError(t, idx.Upsert(ctx, tenant, []Point{docA, docB}))

	require.NoError(t, idx.DeleteByFilter(ctx, tenant, map[string]string{"document_id": "a"}))

	count, err := idx.Count(ctx, tenant)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	require.NoError(t, idx.Delete(ctx, tenant, []uuid.UUID{docB.ID}))
	count, err = idx.Count(ctx, tenant)
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)
}
