package utils

import (
	"strconv"
	"strings"

	"github.com/chezmonami/platform/pkg/domain"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// ParseID reads a positive integer path parameter.
func ParseID(c *fiber.Ctx, param string) (int64, error) {
	raw := c.Params(param)

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.Invalid(param, param+" is invalid")
	}

	return id, nil
}

// Bind decodes the request body into dst and runs struct validation on it.
func Bind(c *fiber.Ctx, validate *validator.Validate, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return domain.Invalid("body", "invalid request body")
	}

	if err := validate.Struct(dst); err != nil {
		return FormatValidationError(err)
	}

	return nil
}

// QueryBool returns nil when the parameter is absent.
func QueryBool(c *fiber.Ctx, key string) (*bool, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, domain.Invalid(key, key+" must be true or false")
	}

	return &v, nil
}

// QueryID returns nil when the parameter is absent.
func QueryID(c *fiber.Ctx, key string) (*int64, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, domain.Invalid(key, key+" is invalid")
	}

	return &id, nil
}
