package vectorindex

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Dimensions is the width of the stored vectors. The embedding provider
// configured at startup must produce vectors of exactly this width; the
// column type below has to stay in sync.
const Dimensions = 768

type vectorPoint struct {
	Id        uuid.UUID         `gorm:"type:uuid;primaryKey"`
	TenantId  uuid.UUID         `gorm:"type:uuid;not null;index"`
	Embedding pgvector.Vector   `gorm:"type:vector(768)"`
	Payload   datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt time.Time         `gorm:"autoCreateTime"`
}

func (vectorPoint) TableName() string {
	return "vector_points"
}

// PgVectorIndex persists points in Postgres using the pgvector
// extension. Cosine distance via the <=> operator.
type PgVectorIndex struct {
	db *gorm.DB
}

func NewPgVectorIndex(db *gorm.DB) *PgVectorIndex {
	return &PgVectorIndex{db: db}
}

var _ Index = &PgVectorIndex{}

// Migrate creates the backing table. The vector extension must already be
// installed on the database.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&vectorPoint{})
}

func (x *PgVectorIndex) Upsert(ctx context.Context, tenantID uuid.UUID, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	models := make([]*vectorPoint, len(points))
	for i, p := range points {
		payload := make(datatypes.JSONMap, len(p.Payload))
		for k, v := range p.Payload {
			payload[k] = v
		}
		models[i] = &vectorPoint{
			Id:        p.ID,
			TenantId:  tenantID,
			Embedding: pgvector.NewVector(p.Vector),
			Payload:   payload,
		}
	}

	// Re-upserting an id keeps its original created_at so recency
	// ordering reflects first insertion.
	return x.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"embedding", "payload"}),
		}).
		Create(models).Error
}

func (x *PgVectorIndex) Search(ctx context.Context, tenantID uuid.UUID, vector []float32, opts SearchOptions) ([]ScoredPoint, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 5
	}

	type result struct {
		vectorPoint
		Similarity float64
	}
	var results []result

	queryVector := pgvector.NewVector(vector)

	// Cosine distance in pgvector is 1 - cosine_similarity, so
	// 1 - (embedding <=> query) recovers the similarity.
	query := x.db.WithContext(ctx).
		Table("vector_points").
		Select("vector_points.*, 1 - (embedding <=> ?) as similarity", queryVector).
		Where("tenant_id = ?", tenantID).
		Where("1 - (embedding <=> ?) >= ?", queryVector, opts.Threshold)

	for key, value := range opts.Filter {
		query = query.Where("payload ->> ? = ?", key, value)
	}

	err := query.
		Order("similarity DESC, created_at DESC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	scored := make([]ScoredPoint, len(results))
	for i, res := range results {
		scored[i] = ScoredPoint{
			Point: Point{
				ID:        res.Id,
				Vector:    res.Embedding.Slice(),
				Payload:   res.Payload,
				CreatedAt: res.CreatedAt,
			},
			Similarity: res.Similarity,
		}
	}
	return scored, nil
}

func (x *PgVectorIndex) Delete(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return x.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Where("id IN ?", ids).
		Delete(&vectorPoint{}).Error
}

func (x *PgVectorIndex) DeleteByFilter(ctx context.Context, tenantID uuid.UUID, filter map[string]string) error {
	query := x.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	for key, value := range filter {
		query = query.Where("payload ->> ? = ?", key, value)
	}
	return query.Delete(&vectorPoint{}).Error
}

func (x *PgVectorIndex) Count(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	err := x.db.WithContext(ctx).
		Model(&vectorPoint{}).
		Where("tenant_id = ?", tenantID).
		Count(&count).Error
	return count, err
}
