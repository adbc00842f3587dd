package controller

import (
	"rag-orchestrator-be/internal/dto"
	"rag-orchestrator-be/internal/pkg/serverutils"
	"rag-orchestrator-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ISessionController interface {
	RegisterRoutes(r fiber.Router)
	Create(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	List(ctx *fiber.Ctx) error
	UpdateMode(ctx *fiber.Ctx) error
	AttachDocument(ctx *fiber.Ctx) error
	DetachDocument(ctx *fiber.Ctx) error
	ListDocuments(ctx *fiber.Ctx) error
	DocumentContext(ctx *fiber.Ctx) error
}

type sessionController struct {
	sessionService service.ISessionService
}

func NewSessionController(sessionService service.ISessionService) ISessionController {
	return &sessionController{
		sessionService: sessionService,
	}
}

func (c *sessionController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/session/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("", c.Create)
	h.Get("", c.List)
	h.Get(":id", c.Show)
	h.Put(":id/mode", c.UpdateMode)
	h.Post(":id/documents", c.AttachDocument)
	h.Delete(":id/documents/:document_id", c.DetachDocument)
	h.Get(":id/documents", c.ListDocuments)
	h.Get(":id/context", c.DocumentContext)
}

func (c *sessionController) Create(ctx *fiber.Ctx) error {
	tenantId := tenantFromLocals(ctx)
	userIdStr, _ := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	var req dto.CreateConversationSessionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.sessionService.Create(ctx.Context(), tenantId, userId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Session created", res))
}

func (c *sessionController) Show(ctx *fiber.Ctx) error {
	tenantId := tenantFromLocals(ctx)
	id, _ := uuid.Parse(ctx.Params("id"))

	res, err := c.sessionService.Show(ctx.Context(), tenantId, id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Session detail", res))
}

func (c *sessionController) List(ctx *fiber.Ctx) error {
	tenantId := tenantFromLocals(ctx)
	userIdStr, _ := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	res, err := c.sessionService.List(ctx.Context(), tenantId, userId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Sessions", res))
}

func (c *sessionController) UpdateMode(ctx *fiber.Ctx) error {
	tenantId := tenantFromLocals(ctx)
	id, _ := uuid.Parse(ctx.Params("id"))

	var req dto.UpdateSessionModeRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.sessionService.UpdateMode(ctx.Context(), tenantId, id, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Session mode updated", res))
}

func (c *sessionController) AttachDocument(ctx *fiber.Ctx) error {
	tenantId := tenantFromLocals(ctx)
	id, _ := uuid.Parse(ctx.Params("id"))

	var req dto.AttachDocumentRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if err := c.sessionService.AttachDocument(ctx.Context(), tenantId, id, &req); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Document attached", nil))
}

func (c *sessionController) DetachDocument(ctx *fiber.Ctx) error {
	tenantId := tenantFromLocals(ctx)
	id, _ := uuid.Parse(ctx.Params("id"))
	documentId, _ := uuid.Parse(ctx.Params("document_id"))

	if err := c.sessionService.DetachDocument(ctx.Context(), tenantId, id, documentId); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Document detached", nil))
}

func (c *sessionController) ListDocuments(ctx *fiber.Ctx) error {
	tenantId := tenantFromLocals(ctx)
	id, _ := uuid.Parse(ctx.Params("id"))

	res, err := c.sessionService.ListDocuments(ctx.Context(), tenantId, id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Session documents", res))
}

func (c *sessionController) DocumentContext(ctx *fiber.Ctx) error {
	tenantId := tenantFromLocals(ctx)
	id, _ := uuid.Parse(ctx.Params("id"))

	res, err := c.sessionService.DocumentContext(ctx.Context(), tenantId, id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Document context", res))
}
