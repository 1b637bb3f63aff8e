package controller

import (
	"cv-rag/internal/pkg/serverutils"
	"cv-rag/internal/service"

	"github.com/gofiber/fiber/v2"
)

type INamespaceController interface {
	RegisterRoutes(r fiber.Router)
	Stats(ctx *fiber.Ctx) error
	Reset(ctx *fiber.Ctx) error
}

type namespaceController struct {
	service service.INamespaceService
}

func NewNamespaceController(service service.INamespaceService) INamespaceController {
	return &namespaceController{service: service}
}

func (c *namespaceController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/namespace")
	h.Get("stats", c.Stats)
	h.Delete("", c.Reset)
}

func (c *namespaceController) Stats(ctx *fiber.Ctx) error {
	res, err := c.service.Stats(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Namespace stats", res))
}

func (c *namespaceController) Reset(ctx *fiber.Ctx) error {
	if err := c.service.Reset(ctx.UserContext()); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Namespace deleted", nil))
}
