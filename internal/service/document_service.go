package service

import (
	"context"
	"encoding/json"
	"time"

	"rag-orchestrator-be/internal/dto"
	"rag-orchestrator-be/internal/entity"
	"rag-orchestrator-be/internal/pkg/logger"
	"rag-orchestrator-be/internal/pkg/serverutils"
	"rag-orchestrator-be/internal/repository/specification"
	"rag-orchestrator-be/internal/repository/unitofwork"
	"rag-orchestrator-be/pkg/embedding"
	pkgNats "rag-orchestrator-be/pkg/nats"
	"rag-orchestrator-be/pkg/utils"
	"rag-orchestrator-be/pkg/vectorindex"

	"rag-orchestrator-be/pkg/events"

	"github.com/google/uuid"
)

type IDocumentService interface {
	Upload(ctx context.Context, tenantId uuid.UUID, req *dto.UploadDocumentRequest) (*dto.UploadDocumentResponse, error)
	Show(ctx context.Context, tenantId uuid.UUID, id uuid.UUID) (*dto.ShowDocumentResponse, error)
	List(ctx context.Context, tenantId uuid.UUID, req *dto.ListDocumentsRequest) (*dto.ListDocumentsResponse, error)
	Search(ctx context.Context, tenantId uuid.UUID, req *dto.SearchDocumentsRequest) ([]*dto.SearchDocumentsResponse, error)
	Delete(ctx context.Context, tenantId uuid.UUID, id uuid.UUID) error
	Process(ctx context.Context, tenantId uuid.UUID, documentId uuid.UUID) error
}

type documentService struct {
	uowFactory        unitofwork.RepositoryFactory
	publisherService  IPublisherService
	embeddingProvider embedding.Provider
	index             vectorindex.Index
	splitter          *utils.TextSplitter
	eventPublisher    *pkgNats.Publisher
	logger            logger.ILogger
}

func NewDocumentService(
	uowFactory unitofwork.RepositoryFactory,
	publisherService IPublisherService,
	embeddingProvider embedding.Provider,
	index vectorindex.Index,
	splitter *utils.TextSplitter,
	eventPublisher *pkgNats.Publisher,
	log logger.ILogger,
) IDocumentService {
	return &documentService{
		uowFactory:        uowFactory,
		publisherService:  publisherService,
		embeddingProvider: embeddingProvider,
		index:             index,
		splitter:          splitter,
		eventPublisher:    eventPublisher,
		logger:            log,
	}
}

func (s *documentService) Upload(ctx context.Context, tenantId uuid.UUID, req *dto.UploadDocumentRequest) (*dto.UploadDocumentResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	doc := entity.Document{
		Id:            uuid.New(),
		TenantId:      tenantId,
		Filename:      req.Filename,
		ByteSize:      int64(len(req.Content)),
		MimeType:      "text/plain",
		Status:        entity.DocumentStatusUploading,
		ExtractedText: req.Content,
		CreatedAt:     time.Now(),
	}

	if err := uow.DocumentRepository().Create(ctx, &doc); err != nil {
		return nil, err
	}

	msgPayload := dto.PublishProcessDocumentMessage{
		DocumentId: doc.Id,
		TenantId:   tenantId,
	}
	msgJson, err := json.Marshal(msgPayload)
	if err != nil {
		return nil, err
	}

	if err := s.publisherService.Publish(ctx, msgJson); err != nil {
		return nil, err
	}

	return &dto.UploadDocumentResponse{
		Id:     doc.Id,
		Status: string(doc.Status),
	}, nil
}

// Process runs the ingestion pipeline for an uploaded document: split,
// embed, store chunks and index vectors. Invoked by the background
// consumer, never from a request path.
func (s *documentService) Process(ctx context.Context, tenantId uuid.UUID, documentId uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	doc, err := uow.DocumentRepository().FindOne(ctx,
		specification.TenantOwnedBy{TenantID: tenantId},
		specification.ByID{ID: documentId},
	)
	if err != nil {
		return err
	}
	if doc == nil {
		return serverutils.NotFoundError("document not found")
	}

	if !doc.CanTransitionTo(entity.DocumentStatusProcessing) {
		return serverutils.ConflictError("document is not in a processable state")
	}

	doc.Status = entity.DocumentStatusProcessing
	if err := uow.DocumentRepository().Update(ctx, doc); err != nil {
		return err
	}

	if err := s.ingest(ctx, uow, doc); err != nil {
		s.logger.Error("DocumentService", "Ingestion failed", map[string]interface{}{
			"document_id": doc.Id,
			"error":       err.Error(),
		})
		doc.Status = entity.DocumentStatusFailed
		doc.ErrorMessage = err.Error()
		return uow.DocumentRepository().Update(ctx, doc)
	}

	doc.Status = entity.DocumentStatusCompleted
	doc.ErrorMessage = ""
	if err := uow.DocumentRepository().Update(ctx, doc); err != nil {
		return err
	}

	if s.eventPublisher != nil {
		evt := events.NewBaseEvent("DOCUMENT_PROCESSED", map[string]interface{}{
			"document_id": doc.Id,
			"tenant_id":   doc.TenantId,
			"filename":    doc.Filename,
			"chunk_count": doc.ChunkCount,
		})
		if err := s.eventPublisher.Publish(ctx, evt); err != nil {
			s.logger.Warn("DocumentService", "Failed to publish DOCUMENT_PROCESSED event", map[string]interface{}{"error": err.Error()})
		}
	}

	return nil
}

func (s *documentService) ingest(ctx context.Context, uow unitofwork.UnitOfWork, doc *entity.Document) error {
	chunks := s.splitter.Split(doc.ExtractedText)
	if len(chunks) == 0 {
		doc.ChunkCount = 0
		return nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	vectors, err := s.embeddingProvider.GenerateBatch(ctx, texts)
	if err != nil {
		return err
	}

	chunkEntities := make([]*entity.DocumentChunk, len(chunks))
	points := make([]vectorindex.Point, 0, len(chunks))
	now := time.Now()

	for i, c := range chunks {
		chunk := &entity.DocumentChunk{
			Id:         uuid.New(),
			DocumentId: doc.Id,
			ChunkIndex: c.Index,
			Content:    c.Content,
			TokenCount: c.TokenCount,
			StartChar:  c.StartChar,
			EndChar:    c.EndChar,
			Embedded:   vectors[i] != nil,
			CreatedAt:  now,
		}
		chunkEntities[i] = chunk

		// Chunks without a vector stay searchable by metadata only.
		if vectors[i] == nil {
			continue
		}
		points = append(points, vectorindex.Point{
			ID:     chunk.Id,
			Vector: vectors[i],
			Payload: map[string]any{
				"document_id": doc.Id.String(),
				"chunk_index": chunk.ChunkIndex,
				"filename":    doc.Filename,
				"content":     chunk.Content,
			},
			CreatedAt: now,
		})
	}

	if err := uow.DocumentChunkRepository().CreateBulk(ctx, chunkEntities); err != nil {
		return err
	}

	if len(points) > 0 {
		if err := s.index.Upsert(ctx, doc.TenantId, points); err != nil {
			return err
		}
		// First chunk vector doubles as the document-level embedding used
		// for document similarity listings.
		doc.Embedding = points[0].Vector
	}

	doc.ChunkCount = len(chunkEntities)
	return nil
}

func (s *documentService) Show(ctx context.Context, tenantId uuid.UUID, id uuid.UUID) (*dto.ShowDocumentResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	doc, err := uow.DocumentRepository().FindOne(ctx,
		specification.TenantOwnedBy{TenantID: tenantId},
		specification.ByID{ID: id},
	)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, serverutils.NotFoundError("document not found")
	}

	return mapDocumentToResponse(doc), nil
}

func (s *documentService) List(ctx context.Context, tenantId uuid.UUID, req *dto.ListDocumentsRequest) (*dto.ListDocumentsResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	page := req.Page
	if page < 1 {
		page = 1
	}
	limit := req.Limit
	if limit < 1 || limit > 100 {
		limit = 20
	}

	specs := []specification.Specification{
		specification.TenantOwnedBy{TenantID: tenantId},
	}
	if req.Status != "" {
		specs = append(specs, specification.ByStatus{Status: req.Status})
	}

	total, err := uow.DocumentRepository().Count(ctx, specs...)
	if err != nil {
		return nil, err
	}

	specs = append(specs,
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: limit, Offset: (page - 1) * limit},
	)

	docs, err := uow.DocumentRepository().FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.ShowDocumentResponse, len(docs))
	for i, doc := range docs {
		responses[i] = *mapDocumentToResponse(doc)
	}

	return &dto.ListDocumentsResponse{
		Documents: responses,
		Total:     total,
		Page:      page,
		Limit:     limit,
	}, nil
}

func (s *documentService) Search(ctx context.Context, tenantId uuid.UUID, req *dto.SearchDocumentsRequest) ([]*dto.SearchDocumentsResponse, error) {
	vector, err := s.embeddingProvider.GenerateOne(ctx, req.Query)
	if err != nil {
		return nil, serverutils.ProviderError("failed to embed search query", err)
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 5
	}
	threshold := req.Threshold
	if threshold <= 0 {
		threshold = 0.7
	}

	scored, err := s.index.Search(ctx, tenantId, vector, vectorindex.SearchOptions{
		Limit:     limit,
		Threshold: threshold,
	})
	if err != nil {
		return nil, err
	}

	results := make([]*dto.SearchDocumentsResponse, 0, len(scored))
	for _, sp := range scored {
		res := &dto.SearchDocumentsResponse{
			ChunkId:        sp.ID,
			RelevanceScore: sp.Similarity,
		}
		if v, ok := sp.Payload["document_id"].(string); ok {
			if id, err := uuid.Parse(v); err == nil {
				res.DocumentId = id
			}
		}
		if v, ok := sp.Payload["filename"].(string); ok {
			res.Filename = v
		}
		if v, ok := sp.Payload["content"].(string); ok {
			res.Content = v
		}
		switch v := sp.Payload["chunk_index"].(type) {
		case float64:
			res.ChunkIndex = int(v)
		case int:
			res.ChunkIndex = v
		}
		results = append(results, res)
	}

	return results, nil
}

func (s *documentService) Delete(ctx context.Context, tenantId uuid.UUID, id uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	doc, err := uow.DocumentRepository().FindOne(ctx,
		specification.TenantOwnedBy{TenantID: tenantId},
		specification.ByID{ID: id},
	)
	if err != nil {
		return err
	}
	if doc == nil {
		return serverutils.NotFoundError("document not found")
	}

	if err := s.index.DeleteByFilter(ctx, tenantId, map[string]string{"document_id": id.String()}); err != nil {
		return err
	}

	if err := uow.SessionDocumentRepository().DeactivateByDocumentId(ctx, id); err != nil {
		return err
	}

	doc.Status = entity.DocumentStatusDeleted
	if err := uow.DocumentRepository().Update(ctx, doc); err != nil {
		return err
	}

	return uow.DocumentRepository().Delete(ctx, id)
}

func mapDocumentToResponse(doc *entity.Document) *dto.ShowDocumentResponse {
	return &dto.ShowDocumentResponse{
		Id:         doc.Id,
		Filename:   doc.Filename,
		Status:     string(doc.Status),
		ChunkCount: doc.ChunkCount,
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
	}
}
