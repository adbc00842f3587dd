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
	"rag-orchestrator-be/internal/websocket"
	"rag-orchestrator-be/pkg/events"
	"rag-orchestrator-be/pkg/llm"
	pkgNats "rag-orchestrator-be/pkg/nats"
	"rag-orchestrator-be/pkg/routing"
	"rag-orchestrator-be/pkg/workflow"

	"github.com/google/uuid"
)

type IWorkflowService interface {
	Execute(ctx context.Context, tenantId uuid.UUID, req *dto.ExecuteWorkflowRequest) (*dto.ExecuteWorkflowResponse, error)
	Resume(ctx context.Context, tenantId uuid.UUID, executionId uuid.UUID, req *dto.ResumeWorkflowRequest) (*dto.ExecuteWorkflowResponse, error)
	GetExecution(ctx context.Context, tenantId uuid.UUID, id uuid.UUID) (*dto.ShowExecutionResponse, error)
	ListApprovals(ctx context.Context, tenantId uuid.UUID, executionId uuid.UUID) ([]*dto.ShowApprovalResponse, error)
}

type workflowService struct {
	uowFactory     unitofwork.RepositoryFactory
	executor       *workflow.Executor
	checkpoints    workflow.CheckpointStore
	sessionService ISessionService
	eventPublisher *pkgNats.Publisher
	hub            *websocket.Hub
	logger         logger.ILogger
	runTimeout     time.Duration
}

const defaultRunTimeout = 5 * time.Minute

func NewWorkflowService(
	uowFactory unitofwork.RepositoryFactory,
	executor *workflow.Executor,
	checkpoints workflow.CheckpointStore,
	sessionService ISessionService,
	eventPublisher *pkgNats.Publisher,
	hub *websocket.Hub,
	log logger.ILogger,
	runTimeout time.Duration,
) IWorkflowService {
	if runTimeout <= 0 {
		runTimeout = defaultRunTimeout
	}
	return &workflowService{
		uowFactory:     uowFactory,
		executor:       executor,
		checkpoints:    checkpoints,
		sessionService: sessionService,
		eventPublisher: eventPublisher,
		hub:            hub,
		logger:         log,
		runTimeout:     runTimeout,
	}
}

func (s *workflowService) Execute(ctx context.Context, tenantId uuid.UUID, req *dto.ExecuteWorkflowRequest) (*dto.ExecuteWorkflowResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	session, err := uow.SessionRepository().FindOne(ctx,
		specification.TenantOwnedBy{TenantID: tenantId},
		specification.ByID{ID: req.SessionId},
	)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, serverutils.NotFoundError("session not found")
	}

	mode, err := routing.ParseMode(session.Mode)
	if err != nil {
		return nil, serverutils.ValidationError(err.Error())
	}

	docCtx, err := s.sessionService.DocumentContext(ctx, tenantId, req.SessionId)
	if err != nil {
		return nil, err
	}

	threadId := workflow.ThreadID(tenantId, req.SessionId)

	// A thread with an unresolved interruption must not start a new turn:
	// the fresh run would overwrite the checkpoint the pending resume needs.
	if s.hasPendingInterrupt(ctx, threadId) {
		return nil, serverutils.ConflictError("session is waiting for a review decision, resolve it before starting a new turn")
	}

	execution := entity.WorkflowExecution{
		Id:        uuid.New(),
		TenantId:  tenantId,
		SessionId: req.SessionId,
		ThreadId:  threadId,
		Status:    string(workflow.StatusRunning),
		Input:     map[string]interface{}{"input": req.Input, "mode": session.Mode},
		CreatedAt: time.Now(),
	}
	if err := uow.WorkflowExecutionRepository().Create(ctx, &execution); err != nil {
		return nil, err
	}

	input := workflow.RunInput{
		TenantID:       tenantId,
		SessionID:      req.SessionId,
		UserInput:      req.Input,
		History:        s.loadHistory(ctx, threadId),
		SessionMode:    mode,
		HasDocuments:   docCtx.HasDocuments,
		TotalDocuments: docCtx.TotalDocuments,
		TotalChunks:    docCtx.TotalChunks,
	}

	userId := session.UserId
	go func() {
		// The run outlives the HTTP request that started it, but never a
		// hung model call: the deadline cancels retrieval and generation,
		// which the pipeline degrades or fails on, and frees the thread.
		runCtx, cancel := context.WithTimeout(context.Background(), s.runTimeout)
		result, err := s.executor.Run(runCtx, input)
		cancel()
		if err != nil {
			s.logger.Error("WorkflowService", "Execution run failed", map[string]interface{}{
				"execution_id": execution.Id,
				"error":        err.Error(),
			})
			s.markFailed(context.Background(), execution.Id, err)
			return
		}
		s.finish(context.Background(), execution.Id, userId, result)
	}()

	return &dto.ExecuteWorkflowResponse{
		ExecutionId: execution.Id,
		ThreadId:    threadId,
		Status:      string(workflow.StatusRunning),
	}, nil
}

func (s *workflowService) Resume(ctx context.Context, tenantId uuid.UUID, executionId uuid.UUID, req *dto.ResumeWorkflowRequest) (*dto.ExecuteWorkflowResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	execution, err := uow.WorkflowExecutionRepository().FindOne(ctx,
		specification.TenantOwnedBy{TenantID: tenantId},
		specification.ByID{ID: executionId},
	)
	if err != nil {
		return nil, err
	}
	if execution == nil {
		return nil, serverutils.NotFoundError("execution not found")
	}
	if execution.Status != string(workflow.StatusInterrupted) {
		return nil, serverutils.ConflictError("execution is not waiting for a decision")
	}

	approval, err := uow.HitlApprovalRepository().FindPendingByExecutionId(ctx, tenantId, executionId)
	if err != nil {
		return nil, err
	}
	if approval != nil {
		now := time.Now()
		approval.ResolvedAt = &now
		approval.Feedback = req.Action
		if req.Action == workflow.ActionRegenerate {
			approval.Status = entity.HitlApprovalRejected
		} else {
			approval.Status = entity.HitlApprovalApproved
		}
		if err := uow.HitlApprovalRepository().Update(ctx, approval); err != nil {
			return nil, err
		}
	}

	execution.Status = string(workflow.StatusRunning)
	if err := uow.WorkflowExecutionRepository().Update(ctx, execution); err != nil {
		return nil, err
	}

	session, err := uow.SessionRepository().FindOne(ctx,
		specification.TenantOwnedBy{TenantID: tenantId},
		specification.ByID{ID: execution.SessionId},
	)
	if err != nil {
		return nil, err
	}

	var userId uuid.UUID
	if session != nil {
		userId = session.UserId
	}

	payload := workflow.ResumePayload{Action: req.Action, EditedText: req.EditedText}
	threadId := execution.ThreadId
	executionRecordId := execution.Id

	go func() {
		runCtx, cancel := context.WithTimeout(context.Background(), s.runTimeout)
		result, err := s.executor.Resume(runCtx, threadId, payload)
		cancel()
		if err != nil {
			s.logger.Error("WorkflowService", "Execution resume failed", map[string]interface{}{
				"execution_id": executionRecordId,
				"error":        err.Error(),
			})
			s.markFailed(context.Background(), executionRecordId, err)
			return
		}
		s.finish(context.Background(), executionRecordId, userId, result)
	}()

	return &dto.ExecuteWorkflowResponse{
		ExecutionId: execution.Id,
		ThreadId:    threadId,
		Status:      string(workflow.StatusRunning),
	}, nil
}

// finish records a terminal or interrupted result on the execution row,
// opens an approval when the run interrupted, and fans the outcome out to
// the event bus and connected clients.
func (s *workflowService) finish(ctx context.Context, executionId uuid.UUID, userId uuid.UUID, result *workflow.Result) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	execution, err := uow.WorkflowExecutionRepository().FindOne(ctx, specification.ByID{ID: executionId})
	if err != nil || execution == nil {
		s.logger.Error("WorkflowService", "Failed to reload execution", map[string]interface{}{"execution_id": executionId})
		return
	}

	execution.Status = string(result.Status)
	execution.ErrorMessage = result.Error
	execution.Output = buildExecutionOutput(result)
	if err := uow.WorkflowExecutionRepository().Update(ctx, execution); err != nil {
		s.logger.Error("WorkflowService", "Failed to persist execution result", map[string]interface{}{
			"execution_id": executionId,
			"error":        err.Error(),
		})
		return
	}

	eventType := "WORKFLOW_COMPLETED"
	if result.Status == workflow.StatusInterrupted && result.Interrupt != nil {
		eventType = "HITL_PENDING"
		approval := entity.HitlApproval{
			Id:          uuid.New(),
			TenantId:    execution.TenantId,
			ExecutionId: execution.Id,
			Prompt:      result.Interrupt.Message,
			ContextPayload: map[string]interface{}{
				"type":            result.Interrupt.Type,
				"step":            result.Interrupt.Step,
				"score":           result.Interrupt.Score,
				"threshold":       result.Interrupt.Threshold,
				"generation":      result.Interrupt.Generation,
				"documents_count": result.Interrupt.DocumentsCount,
				"options":         result.Interrupt.Options,
			},
			Status:    entity.HitlApprovalPending,
			CreatedAt: time.Now(),
		}
		if err := uow.HitlApprovalRepository().Create(ctx, &approval); err != nil {
			s.logger.Error("WorkflowService", "Failed to create approval", map[string]interface{}{
				"execution_id": executionId,
				"error":        err.Error(),
			})
		}
	}

	if s.eventPublisher != nil {
		evt := events.NewBaseEvent(eventType, map[string]interface{}{
			"execution_id": execution.Id,
			"tenant_id":    execution.TenantId,
			"session_id":   execution.SessionId,
			"status":       execution.Status,
		})
		if err := s.eventPublisher.Publish(ctx, evt); err != nil {
			s.logger.Warn("WorkflowService", "Failed to publish workflow event", map[string]interface{}{"error": err.Error()})
		}
	}

	if s.hub != nil && userId != uuid.Nil {
		s.hub.Send(userId, "workflow_update", map[string]interface{}{
			"execution_id": execution.Id,
			"status":       execution.Status,
			"output":       execution.Output,
		})
	}
}

func (s *workflowService) GetExecution(ctx context.Context, tenantId uuid.UUID, id uuid.UUID) (*dto.ShowExecutionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	execution, err := uow.WorkflowExecutionRepository().FindOne(ctx,
		specification.TenantOwnedBy{TenantID: tenantId},
		specification.ByID{ID: id},
	)
	if err != nil {
		return nil, err
	}
	if execution == nil {
		return nil, serverutils.NotFoundError("execution not found")
	}

	return mapExecutionToResponse(execution), nil
}

func (s *workflowService) ListApprovals(ctx context.Context, tenantId uuid.UUID, executionId uuid.UUID) ([]*dto.ShowApprovalResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	specs := []specification.Specification{
		specification.TenantOwnedBy{TenantID: tenantId},
	}
	if executionId != uuid.Nil {
		specs = append(specs, specification.ByExecutionID{ExecutionID: executionId})
	}

	approvals, err := uow.HitlApprovalRepository().FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}

	responses := make([]*dto.ShowApprovalResponse, len(approvals))
	for i, approval := range approvals {
		responses[i] = &dto.ShowApprovalResponse{
			Id:          approval.Id,
			ExecutionId: approval.ExecutionId,
			Prompt:      approval.Prompt,
			Status:      string(approval.Status),
			Feedback:    approval.Feedback,
			CreatedAt:   approval.CreatedAt,
			ResolvedAt:  approval.ResolvedAt,
		}
	}
	return responses, nil
}

// loadHistory recovers the conversation so far from the thread's last
// checkpoint. A fresh session, a corrupt blob or a pending interruption
// all yield an empty history.
func (s *workflowService) loadHistory(ctx context.Context, threadId string) []llm.Message {
	blob, ok, err := s.checkpoints.Get(ctx, threadId)
	if err != nil || !ok {
		return nil
	}

	var state workflow.State
	if err := json.Unmarshal(blob, &state); err != nil {
		return nil
	}
	if state.PendingInterrupt != nil {
		return nil
	}
	return state.Messages
}

func (s *workflowService) hasPendingInterrupt(ctx context.Context, threadId string) bool {
	blob, ok, err := s.checkpoints.Get(ctx, threadId)
	if err != nil || !ok {
		return false
	}
	var state workflow.State
	if err := json.Unmarshal(blob, &state); err != nil {
		return false
	}
	return state.PendingInterrupt != nil
}

// markFailed records a run that never produced a result, so the row does
// not stay running forever.
func (s *workflowService) markFailed(ctx context.Context, executionId uuid.UUID, runErr error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	execution, err := uow.WorkflowExecutionRepository().FindOne(ctx, specification.ByID{ID: executionId})
	if err != nil || execution == nil {
		return
	}

	execution.Status = string(workflow.StatusFailed)
	execution.ErrorMessage = runErr.Error()
	if err := uow.WorkflowExecutionRepository().Update(ctx, execution); err != nil {
		s.logger.Error("WorkflowService", "Failed to persist execution failure", map[string]interface{}{
			"execution_id": executionId,
			"error":        err.Error(),
		})
	}
}

func buildExecutionOutput(result *workflow.Result) map[string]interface{} {
	output := map[string]interface{}{}
	if result.State == nil {
		return output
	}

	output["answer"] = result.State.Generation
	if result.State.Route != nil {
		output["route_path"] = string(result.State.Route.Path)
		output["route_confidence"] = result.State.Route.Confidence
	}
	if result.State.GroundednessScore != nil {
		output["groundedness_score"] = *result.State.GroundednessScore
	}
	if len(result.State.Documents) > 0 {
		sources := make([]interface{}, len(result.State.Documents))
		for i, doc := range result.State.Documents {
			sources[i] = map[string]interface{}{
				"document_id": doc.DocumentID,
				"filename":    doc.Filename,
				"chunk_index": doc.ChunkIndex,
				"score":       doc.Score,
			}
		}
		output["sources"] = sources
	}
	return output
}

func mapExecutionToResponse(execution *entity.WorkflowExecution) *dto.ShowExecutionResponse {
	res := &dto.ShowExecutionResponse{
		Id:           execution.Id,
		ThreadId:     execution.ThreadId,
		Status:       execution.Status,
		ErrorMessage: execution.ErrorMessage,
		CreatedAt:    execution.CreatedAt,
		UpdatedAt:    execution.UpdatedAt,
	}

	if v, ok := execution.Input["input"].(string); ok {
		res.Input = v
	}
	if execution.Output == nil {
		return res
	}
	if v, ok := execution.Output["answer"].(string); ok {
		res.Answer = v
	}
	if v, ok := execution.Output["route_path"].(string); ok {
		res.RoutePath = v
	}
	if v, ok := execution.Output["route_confidence"].(float64); ok {
		res.RouteConfidence = v
	}
	if v, ok := execution.Output["groundedness_score"].(float64); ok {
		res.GroundednessScore = &v
	}
	if raw, ok := execution.Output["sources"].([]interface{}); ok {
		for _, item := range raw {
			m, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			source := dto.RetrievedSourceDTO{}
			if v, ok := m["document_id"].(string); ok {
				if id, err := uuid.Parse(v); err == nil {
					source.DocumentId = id
				}
			}
			if v, ok := m["filename"].(string); ok {
				source.Filename = v
			}
			switch v := m["chunk_index"].(type) {
			case float64:
				source.ChunkIndex = int(v)
			case int:
				source.ChunkIndex = v
			}
			if v, ok := m["score"].(float64); ok {
				source.Score = v
			}
			res.Sources = append(res.Sources, source)
		}
	}
	return res
}
