package vectorindex

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Point is a single embedded chunk stored in the index.
type Point struct {
	ID        uuid.UUID      `json:"id"`
	Vector    []float32      `json:"vector"`
	Payload   map[string]any `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
}

// ScoredPoint is a search hit with its cosine similarity in [0, 1].
type ScoredPoint struct {
	Point
	Similarity float64 `json:"similarity"`
}

// SearchOptions narrows a search beyond the mandatory tenant scope.
type SearchOptions struct {
	Limit     int
	Threshold float64
	// Filter matches payload fields by exact value. Keys the point
	// does not carry never match.
	Filter map[string]string
}

// Index stores and retrieves embedding vectors. Every operation is
// scoped to a tenant; implementations must never return another
// tenant's points regardless of the filter supplied.
type Index interface {
	Upsert(ctx context.Context, tenantID uuid.UUID, points []Point) error
	Search(ctx context.Context, tenantID uuid.UUID, vector []float32, opts SearchOptions) ([]ScoredPoint, error)
	Delete(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) error
	DeleteByFilter(ctx context.Context, tenantID uuid.UUID, filter map[string]string) error
	Count(ctx context.Context, tenantID uuid.UUID) (int64, error)
}
