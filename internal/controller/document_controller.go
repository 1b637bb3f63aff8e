package controller

import (
	"cv-rag/internal/dto"
	"cv-rag/internal/pkg/serverutils"
	"cv-rag/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IDocumentController interface {
	RegisterRoutes(r fiber.Router)
	Ingest(ctx *fiber.Ctx) error
	GetJob(ctx *fiber.Ctx) error
}

type documentController struct {
	ingestionService service.IIngestionService
	publisherService service.IPublisherService
}

func NewDocumentController(ingestionService service.IIngestionService, publisherService service.IPublisherService) IDocumentController {
	return &documentController{
		ingestionService: ingestionService,
		publisherService: publisherService,
	}
}

func (c *documentController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/documents")
	h.Post("", c.Ingest)
	h.Get("jobs/:id", c.GetJob)
}

// Ingest indexes a document. With ?async=true the work is queued and the
// job is returned with 202.
func (c *documentController) Ingest(ctx *fiber.Ctx) error {
	var req dto.IngestDocumentRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if ctx.QueryBool("async", false) {
		job, err := c.publisherService.EnqueueIngest(ctx.UserContext(), &req)
		if err != nil {
			return err
		}
		return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Ingestion queued", job))
	}

	res, err := c.ingestionService.Ingest(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Document indexed", res))
}

func (c *documentController) GetJob(ctx *fiber.Ctx) error {
	job, ok := c.publisherService.GetJob(ctx.UserContext(), ctx.Params("id"))
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "ingestion job not found")
	}
	return ctx.JSON(serverutils.SuccessResponse("Ingestion job", job))
}
