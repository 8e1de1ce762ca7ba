package handler

import (
	"context"
	"time"

	"github.com/chezmonami/platform/pkg/mylogger"
	"github.com/chezmonami/platform/pkg/utils"
	"github.com/chezmonami/platform/services/promotion/internal/domain"
	"github.com/chezmonami/platform/services/promotion/internal/service"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type PlacementHandler struct {
	svc      service.PlacementService
	validate *validator.Validate
	logger   *zap.Logger
	timeout  time.Duration
}

func NewPlacementHandler(svc service.PlacementService, logger *zap.Logger, timeout time.Duration) *PlacementHandler {
	return &PlacementHandler{
		svc:      svc,
		validate: validator.New(),
		logger:   logger,
		timeout:  timeout,
	}
}

type PlacementInput struct {
	ElementID   int64      `json:"element_id"`
	ElementType string     `json:"element_type" validate:"omitempty,oneof=structure product"`
	Position    string     `json:"position"`
	SortOrder   int32      `json:"sort_order"`
	Title       *string    `json:"title" validate:"omitempty,max=120"`
	StartsAt    *time.Time `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"`
	Enabled     *bool      `json:"enabled"`
}

// toDomain uses fallback when the request omits enabled.
func (in *PlacementInput) toDomain(fallback bool) domain.PlacementInput {
	enabled := fallback
	if in.Enabled != nil {
		enabled = *in.Enabled
	}

	return domain.PlacementInput{
		ElementID:   in.ElementID,
		ElementType: domain.ElementType(in.ElementType),
		Position:    domain.Position(in.Position),
		SortOrder:   in.SortOrder,
		Title:       in.Title,
		StartsAt:    in.StartsAt,
		EndsAt:      in.EndsAt,
		Enabled:     enabled,
	}
}

func (h *PlacementHandler) ctx(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), h.timeout)
}

func (h *PlacementHandler) fail(ctx context.Context, c *fiber.Ctx, msg string, err error) error {
	mylogger.Warn(ctx, h.logger, msg, zap.String("path", c.Path()), zap.Error(err))
	return utils.WriteError(c, err)
}

func (h *PlacementHandler) Create(c *fiber.Ctx) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	input := new(PlacementInput)
	if err := utils.Bind(c, h.validate, input); err != nil {
		return h.fail(ctx, c, "create placement: invalid input", err)
	}

	placement, err := h.svc.Create(ctx, input.toDomain(true))
	if err != nil {
		return h.fail(ctx, c, "create placement failed", err)
	}

	return c.Status(fiber.StatusCreated).JSON(placement)
}

func (h *PlacementHandler) Update(c *fiber.Ctx) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	id, err := utils.ParseID(c, "id")
	if err != nil {
		return h.fail(ctx, c, "invalid placement id", err)
	}

	input := new(PlacementInput)
	if err := utils.Bind(c, h.validate, input); err != nil {
		return h.fail(ctx, c, "update placement: invalid input", err)
	}

	enabled := true
	if input.Enabled == nil {
		current, err := h.svc.Get(ctx, id)
		if err != nil {
			return h.fail(ctx, c, "update placement failed", err)
		}
		enabled = current.Enabled
	}

	placement, err := h.svc.Update(ctx, id, input.toDomain(enabled))
	if err != nil {
		return h.fail(ctx, c, "update placement failed", err)
	}

	return c.JSON(placement)
}

func (h *PlacementHandler) Get(c *fiber.Ctx) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	id, err := utils.ParseID(c, "id")
	if err != nil {
		return h.fail(ctx, c, "invalid placement id", err)
	}

	placement, err := h.svc.Get(ctx, id)
	if err != nil {
		return h.fail(ctx, c, "get placement failed", err)
	}

	return c.JSON(placement)
}

func (h *PlacementHandler) List(c *fiber.Ctx) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	var position *domain.Position
	if raw := c.Query("position"); raw != "" {
		p, err := domain.ParsePosition(raw)
		if err != nil {
			return h.fail(ctx, c, "list placements: invalid position", err)
		}
		position = &p
	}

	placements, err := h.svc.List(ctx, position)
	if err != nil {
		return h.fail(ctx, c, "list placements failed", err)
	}

	return c.JSON(fiber.Map{"placements": placements})
}

func (h *PlacementHandler) ListActive(c *fiber.Ctx) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	var position domain.Position
	if raw := c.Query("position"); raw != "" {
		p, err := domain.ParsePosition(raw)
		if err != nil {
			return h.fail(ctx, c, "active placements: invalid position", err)
		}
		position = p
	}

	placements, err := h.svc.ListActive(ctx, position)
	if err != nil {
		return h.fail(ctx, c, "active placements failed", err)
	}

	return c.JSON(fiber.Map{"placements": placements})
}

func (h *PlacementHandler) Delete(c *fiber.Ctx) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	id, err := utils.ParseID(c, "id")
	if err != nil {
		return h.fail(ctx, c, "invalid placement id", err)
	}

	if err := h.svc.Delete(ctx, id); err != nil {
		return h.fail(ctx, c, "delete placement failed", err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
