package utils

import (
	"context"
	"errors"

	"github.com/chezmonami/platform/pkg/domain"
	"github.com/gofiber/fiber/v2"
)

func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return fiber.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout
	default:
		return fiber.StatusInternalServerError
	}
}

// WriteError renders err as {"error": ..., "fields": ...}. Store failures are
// not echoed to the client.
func WriteError(c *fiber.Ctx, err error) error {
	code := HTTPStatus(err)

	body := fiber.Map{"error": err.Error()}
	if code == fiber.StatusInternalServerError {
		body["error"] = "internal error"
	}

	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		body["fields"] = ve.Fields
	}

	return c.Status(code).JSON(body)
}
