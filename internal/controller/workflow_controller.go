package controller

import (
	"rag-orchestrator-be/internal/dto"
	"rag-orchestrator-be/internal/pkg/serverutils"
	"rag-orchestrator-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IWorkflowController interface {
	RegisterRoutes(r fiber.Router)
	Execute(ctx *fiber.Ctx) error
	Resume(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	Approvals(ctx *fiber.Ctx) error
}

type workflowController struct {
	workflowService service.IWorkflowService
}

func NewWorkflowController(workflowService service.IWorkflowService) IWorkflowController {
	return &workflowController{
		workflowService: workflowService,
	}
}

func (c *workflowController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/workflow/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("execute", c.Execute)
	h.Get("executions/:id", c.Show)
	h.Post("executions/:id/resume", c.Resume)
	h.Get("executions/:id/approvals", c.Approvals)
}

func (c *workflowController) Execute(ctx *fiber.Ctx) error {
	tenantId := tenantFromLocals(ctx)

	var req dto.ExecuteWorkflowRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.workflowService.Execute(ctx.Context(), tenantId, &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Workflow started", res))
}

func (c *workflowController) Resume(ctx *fiber.Ctx) error {
	tenantId := tenantFromLocals(ctx)
	id, _ := uuid.Parse(ctx.Params("id"))

	var req dto.ResumeWorkflowRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.workflowService.Resume(ctx.Context(), tenantId, id, &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Workflow resumed", res))
}

func (c *workflowController) Show(ctx *fiber.Ctx) error {
	tenantId := tenantFromLocals(ctx)
	id, _ := uuid.Parse(ctx.Params("id"))

	res, err := c.workflowService.GetExecution(ctx.Context(), tenantId, id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Execution detail", res))
}

func (c *workflowController) Approvals(ctx *fiber.Ctx) error {
	tenantId := tenantFromLocals(ctx)
	id, _ := uuid.Parse(ctx.Params("id"))

	res, err := c.workflowService.ListApprovals(ctx.Context(), tenantId, id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Approvals", res))
}
