package controller

import (
	"cv-rag/internal/dto"
	"cv-rag/internal/pkg/serverutils"
	"cv-rag/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IAnswerController interface {
	RegisterRoutes(r fiber.Router)
	Answer(ctx *fiber.Ctx) error
	GetHistory(ctx *fiber.Ctx) error
	DeleteHistoryEntry(ctx *fiber.Ctx) error
	ClearHistory(ctx *fiber.Ctx) error
}

type answerController struct {
	service service.IAnswerService
}

func NewAnswerController(service service.IAnswerService) IAnswerController {
	return &answerController{service: service}
}

func (c *answerController) RegisterRoutes(r fiber.Router) {
	r.Post("/answer", c.Answer)

	h := r.Group("/history")
	h.Get("", c.GetHistory)
	h.Delete("", c.ClearHistory)
	h.Delete(":id", c.DeleteHistoryEntry)
}

func (c *answerController) Answer(ctx *fiber.Ctx) error {
	var req dto.AnswerRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Answer(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success answer question", res))
}

func (c *answerController) GetHistory(ctx *fiber.Ctx) error {
	limit := ctx.QueryInt("limit", 0)
	if limit < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "limit must not be negative")
	}

	res, err := c.service.GetHistory(ctx.UserContext(), limit)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get history", res))
}

func (c *answerController) DeleteHistoryEntry(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid history entry id")
	}

	ok, err := c.service.DeleteHistoryEntry(ctx.UserContext(), id)
	if err != nil {
		return err
	}
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "history entry not found")
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success delete history entry", nil))
}

func (c *answerController) ClearHistory(ctx *fiber.Ctx) error {
	if err := c.service.ClearHistory(ctx.UserContext()); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Success clear history", nil))
}
