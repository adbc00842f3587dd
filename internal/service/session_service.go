package service

import (
	"context"
	"fmt"
	"time"

	"rag-orchestrator-be/internal/dto"
	"rag-orchestrator-be/internal/entity"
	"rag-orchestrator-be/internal/pkg/serverutils"
	"rag-orchestrator-be/internal/repository/specification"
	"rag-orchestrator-be/internal/repository/unitofwork"
	"rag-orchestrator-be/pkg/routing"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

type ISessionService interface {
	Create(ctx context.Context, tenantId, userId uuid.UUID, req *dto.CreateConversationSessionRequest) (*dto.CreateConversationSessionResponse, error)
	Show(ctx context.Context, tenantId uuid.UUID, id uuid.UUID) (*dto.ShowConversationSessionResponse, error)
	List(ctx context.Context, tenantId, userId uuid.UUID) ([]*dto.ShowConversationSessionResponse, error)
	UpdateMode(ctx context.Context, tenantId uuid.UUID, id uuid.UUID, req *dto.UpdateSessionModeRequest) (*dto.UpdateSessionModeResponse, error)
	AttachDocument(ctx context.Context, tenantId uuid.UUID, sessionId uuid.UUID, req *dto.AttachDocumentRequest) error
	DetachDocument(ctx context.Context, tenantId uuid.UUID, sessionId, documentId uuid.UUID) error
	ListDocuments(ctx context.Context, tenantId uuid.UUID, sessionId uuid.UUID) ([]*dto.SessionDocumentResponse, error)
	DocumentContext(ctx context.Context, tenantId uuid.UUID, sessionId uuid.UUID) (*dto.DocumentContextResponse, error)
}

type sessionService struct {
	uowFactory   unitofwork.RepositoryFactory
	contextCache *cache.Cache
}

func NewSessionService(uowFactory unitofwork.RepositoryFactory) ISessionService {
	return &sessionService{
		uowFactory:   uowFactory,
		contextCache: cache.New(30*time.Second, time.Minute),
	}
}

func (s *sessionService) Create(ctx context.Context, tenantId, userId uuid.UUID, req *dto.CreateConversationSessionRequest) (*dto.CreateConversationSessionResponse, error) {
	mode := req.Mode
	if mode == "" {
		mode = string(routing.ModeAuto)
	}
	if _, err := routing.ParseMode(mode); err != nil {
		return nil, serverutils.ValidationError(err.Error())
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	session := entity.ConversationSession{
		Id:        uuid.New(),
		TenantId:  tenantId,
		UserId:    userId,
		Title:     req.Title,
		Mode:      mode,
		CreatedAt: time.Now(),
	}

	if err := uow.SessionRepository().Create(ctx, &session); err != nil {
		return nil, err
	}

	return &dto.CreateConversationSessionResponse{
		Id:   session.Id,
		Mode: session.Mode,
	}, nil
}

func (s *sessionService) Show(ctx context.Context, tenantId uuid.UUID, id uuid.UUID) (*dto.ShowConversationSessionResponse, error) {
	session, err := s.findSession(ctx, tenantId, id)
	if err != nil {
		return nil, err
	}
	return mapSessionToResponse(session), nil
}

func (s *sessionService) List(ctx context.Context, tenantId, userId uuid.UUID) ([]*dto.ShowConversationSessionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	sessions, err := uow.SessionRepository().FindAll(ctx,
		specification.TenantOwnedBy{TenantID: tenantId},
		specification.ByUserID{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	responses := make([]*dto.ShowConversationSessionResponse, len(sessions))
	for i, session := range sessions {
		responses[i] = mapSessionToResponse(session)
	}
	return responses, nil
}

func (s *sessionService) UpdateMode(ctx context.Context, tenantId uuid.UUID, id uuid.UUID, req *dto.UpdateSessionModeRequest) (*dto.UpdateSessionModeResponse, error) {
	mode, err := routing.ParseMode(req.Mode)
	if err != nil {
		return nil, serverutils.ValidationError(err.Error())
	}

	session, err := s.findSession(ctx, tenantId, id)
	if err != nil {
		return nil, err
	}

	// rag_only is meaningless without a corpus to retrieve from.
	if mode == routing.ModeRagOnly {
		docCtx, err := s.DocumentContext(ctx, tenantId, id)
		if err != nil {
			return nil, err
		}
		if !docCtx.HasDocuments {
			return nil, serverutils.ValidationError("rag_only mode requires at least one active document")
		}
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	session.Mode = string(mode)
	if err := uow.SessionRepository().Update(ctx, session); err != nil {
		return nil, err
	}

	return &dto.UpdateSessionModeResponse{Id: session.Id, Mode: session.Mode}, nil
}

func (s *sessionService) AttachDocument(ctx context.Context, tenantId uuid.UUID, sessionId uuid.UUID, req *dto.AttachDocumentRequest) error {
	if _, err := s.findSession(ctx, tenantId, sessionId); err != nil {
		return err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	doc, err := uow.DocumentRepository().FindOne(ctx,
		specification.TenantOwnedBy{TenantID: tenantId},
		specification.ByID{ID: req.DocumentId},
	)
	if err != nil {
		return err
	}
	if doc == nil {
		return serverutils.NotFoundError("document not found")
	}
	if doc.Status != entity.DocumentStatusCompleted {
		return serverutils.ValidationError("only completed documents can be attached")
	}

	link := entity.SessionDocument{
		Id:         uuid.New(),
		SessionId:  sessionId,
		DocumentId: req.DocumentId,
		IsActive:   true,
		CreatedAt:  time.Now(),
	}
	if err := uow.SessionDocumentRepository().Upsert(ctx, &link); err != nil {
		return err
	}

	s.contextCache.Delete(contextCacheKey(tenantId, sessionId))
	return nil
}

func (s *sessionService) DetachDocument(ctx context.Context, tenantId uuid.UUID, sessionId, documentId uuid.UUID) error {
	session, err := s.findSession(ctx, tenantId, sessionId)
	if err != nil {
		return err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	links, err := uow.SessionDocumentRepository().FindAll(ctx,
		specification.BySessionID{SessionID: sessionId},
		specification.ByDocumentID{DocumentID: documentId},
		specification.ActiveOnly{},
	)
	if err != nil {
		return err
	}
	if len(links) == 0 {
		return serverutils.NotFoundError("document is not attached to this session")
	}

	link := links[0]
	link.IsActive = false
	if err := uow.SessionDocumentRepository().Upsert(ctx, link); err != nil {
		return err
	}

	s.contextCache.Delete(contextCacheKey(tenantId, sessionId))

	// Detaching the last document leaves rag_only with nothing to
	// retrieve, so the session drops back to auto.
	if session.Mode == string(routing.ModeRagOnly) {
		docCtx, err := s.DocumentContext(ctx, tenantId, sessionId)
		if err != nil {
			return err
		}
		if !docCtx.HasDocuments {
			session.Mode = string(routing.ModeAuto)
			if err := uow.SessionRepository().Update(ctx, session); err != nil {
				return err
			}
		}
	}

	return nil
}

func (s *sessionService) ListDocuments(ctx context.Context, tenantId uuid.UUID, sessionId uuid.UUID) ([]*dto.SessionDocumentResponse, error) {
	if _, err := s.findSession(ctx, tenantId, sessionId); err != nil {
		return nil, err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	links, err := uow.SessionDocumentRepository().FindAll(ctx,
		specification.BySessionID{SessionID: sessionId},
	)
	if err != nil {
		return nil, err
	}

	responses := make([]*dto.SessionDocumentResponse, 0, len(links))
	for _, link := range links {
		doc, err := uow.DocumentRepository().FindOne(ctx,
			specification.TenantOwnedBy{TenantID: tenantId},
			specification.ByID{ID: link.DocumentId},
		)
		if err != nil {
			return nil, err
		}
		if doc == nil {
			continue
		}
		responses = append(responses, &dto.SessionDocumentResponse{
			DocumentId: doc.Id,
			Filename:   doc.Filename,
			Status:     string(doc.Status),
			IsActive:   link.IsActive,
		})
	}
	return responses, nil
}

// DocumentContext aggregates the active corpus counts for a session. The
// result feeds routing on every workflow run so it is cached briefly.
func (s *sessionService) DocumentContext(ctx context.Context, tenantId uuid.UUID, sessionId uuid.UUID) (*dto.DocumentContextResponse, error) {
	key := contextCacheKey(tenantId, sessionId)
	if cached, found := s.contextCache.Get(key); found {
		return cached.(*dto.DocumentContextResponse), nil
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	links, err := uow.SessionDocumentRepository().FindAll(ctx,
		specification.BySessionID{SessionID: sessionId},
		specification.ActiveOnly{},
	)
	if err != nil {
		return nil, err
	}

	docIds := make([]uuid.UUID, 0, len(links))
	for _, link := range links {
		doc, err := uow.DocumentRepository().FindOne(ctx,
			specification.TenantOwnedBy{TenantID: tenantId},
			specification.ByID{ID: link.DocumentId},
			specification.ByStatus{Status: string(entity.DocumentStatusCompleted)},
		)
		if err != nil {
			return nil, err
		}
		if doc != nil {
			docIds = append(docIds, doc.Id)
		}
	}

	totalChunks, err := uow.DocumentChunkRepository().CountByDocumentIds(ctx, docIds)
	if err != nil {
		return nil, err
	}

	res := &dto.DocumentContextResponse{
		HasDocuments:   len(docIds) > 0,
		TotalDocuments: len(docIds),
		TotalChunks:    int(totalChunks),
		DocumentIds:    docIds,
	}
	s.contextCache.Set(key, res, cache.DefaultExpiration)
	return res, nil
}

func (s *sessionService) findSession(ctx context.Context, tenantId uuid.UUID, id uuid.UUID) (*entity.ConversationSession, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	session, err := uow.SessionRepository().FindOne(ctx,
		specification.TenantOwnedBy{TenantID: tenantId},
		specification.ByID{ID: id},
	)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, serverutils.NotFoundError("session not found")
	}
	return session, nil
}

func contextCacheKey(tenantId, sessionId uuid.UUID) string {
	return fmt.Sprintf("docctx:%s:%s", tenantId, sessionId)
}

func mapSessionToResponse(session *entity.ConversationSession) *dto.ShowConversationSessionResponse {
	return &dto.ShowConversationSessionResponse{
		Id:        session.Id,
		Title:     session.Title,
		Mode:      session.Mode,
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
	}
}
