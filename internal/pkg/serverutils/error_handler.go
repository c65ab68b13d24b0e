package serverutils

import (
	"errors"
	"log"

	"ai-therapist-be/internal/pkg/apperror"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware converts errors returned by handlers into the
// structured error envelope. Internal causes are logged, never serialized.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var appErr *apperror.Error
		if errors.As(err, &appErr) {
			status := apperror.HTTPStatus(appErr.Kind)
			if status >= fiber.StatusInternalServerError {
				log.Printf("[ERROR] %s %s: %v", ctx.Method(), ctx.Path(), err)
			}
			return ctx.Status(status).JSON(ErrorResponse{
				Success: false,
				Message: appErr.Message,
				Kind:    string(appErr.Kind),
			})
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return ctx.Status(fiberErr.Code).JSON(ErrorResponse{
				Success: false,
				Message: fiberErr.Message,
			})
		}

		log.Printf("[ERROR] %s %s: %v", ctx.Method(), ctx.Path(), err)
		return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Success: false,
			Message: "Internal server error",
		})
	}
}
