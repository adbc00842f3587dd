package controller

import (
	"rag-orchestrator-be/internal/dto"
	"rag-orchestrator-be/internal/pkg/serverutils"
	"rag-orchestrator-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IDocumentController interface {
	RegisterRoutes(r fiber.Router)
	Upload(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	List(ctx *fiber.Ctx) error
	Search(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
}

type documentController struct {
	documentService service.IDocumentService
}

func NewDocumentController(documentService service.IDocumentService) IDocumentController {
	return &documentController{
		documentService: documentService,
	}
}

func (c *documentController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/document/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("", c.Upload)
	h.Get("", c.List)
	h.Post("search", c.Search)
	h.Get(":id", c.Show)
	h.Delete(":id", c.Delete)
}

func tenantFromLocals(ctx *fiber.Ctx) uuid.UUID {
	tenantIdStr, _ := ctx.Locals("tenant_id").(string)
	tenantId, _ := uuid.Parse(tenantIdStr)
	return tenantId
}

func (c *documentController) Upload(ctx *fiber.Ctx) error {
	tenantId := tenantFromLocals(ctx)

	var req dto.UploadDocumentRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.documentService.Upload(ctx.Context(), tenantId, &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Document accepted for processing", res))
}

func (c *documentController) Show(ctx *fiber.Ctx) error {
	tenantId := tenantFromLocals(ctx)
	id, _ := uuid.Parse(ctx.Params("id"))

	res, err := c.documentService.Show(ctx.Context(), tenantId, id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Document detail", res))
}

func (c *documentController) List(ctx *fiber.Ctx) error {
	tenantId := tenantFromLocals(ctx)

	var req dto.ListDocumentsRequest
	if err := ctx.QueryParser(&req); err != nil {
		return err
	}

	res, err := c.documentService.List(ctx.Context(), tenantId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Documents", res))
}

func (c *documentController) Search(ctx *fiber.Ctx) error {
	tenantId := tenantFromLocals(ctx)

	var req dto.SearchDocumentsRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.documentService.Search(ctx.Context(), tenantId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Search results", res))
}

func (c *documentController) Delete(ctx *fiber.Ctx) error {
	tenantId := tenantFromLocals(ctx)
	id, _ := uuid.Parse(ctx.Params("id"))

	if err := c.documentService.Delete(ctx.Context(), tenantId, id); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Document deleted", nil))
}
