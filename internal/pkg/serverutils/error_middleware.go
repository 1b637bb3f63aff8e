package serverutils

import (
	"errors"
	"log"

	"cv-rag/pkg/apperror"

	"github.com/gofiber/fiber/v2"
)

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind apperror.Kind) int {
	switch kind {
	case apperror.KindValidation:
		return fiber.StatusBadRequest
	case apperror.KindNamespaceConflict:
		return fiber.StatusConflict
	case apperror.KindIndexUnavailable, apperror.KindEmbedding, apperror.KindGeneration:
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusInternalServerError
}

// ErrorHandlerMiddleware renders every error returned by a handler as
// {success:false, error:{kind, message}}. Internal detail is logged, never
// sent.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var fe *fiber.Error
		if errors.As(err, &fe) {
			return ctx.Status(fe.Code).JSON(ErrorResponse(fe.Code, fe.Message))
		}

		kind := apperror.KindOf(err)
		status := StatusFor(kind)
		if status >= fiber.StatusInternalServerError {
			log.Printf("[ERROR] %s %s: %v", ctx.Method(), ctx.Path(), err)
		}

		return ctx.Status(status).JSON(ErrorBody{
			Success: false,
			Code:    status,
			Error: ErrorDetail{
				Kind:    string(kind),
				Message: apperror.UserMessage(err),
			},
		})
	}
}
