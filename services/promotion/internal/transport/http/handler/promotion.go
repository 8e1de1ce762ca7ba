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
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type PromotionHandler struct {
	svc      service.PromotionService
	validate *validator.Validate
	logger   *zap.Logger
	timeout  time.Duration
	now      func() time.Time
}

func NewPromotionHandler(svc service.PromotionService, logger *zap.Logger, timeout time.Duration) *PromotionHandler {
	return &PromotionHandler{
		svc:      svc,
		validate: validator.New(),
		logger:   logger,
		timeout:  timeout,
		now:      time.Now,
	}
}

// PromotionInput omits enabled to mean true.
type PromotionInput struct {
	ProductID     int64            `json:"product_id"`
	Kind          string           `json:"kind" validate:"required"`
	Value         decimal.Decimal  `json:"value"`
	OriginalPrice *decimal.Decimal `json:"original_price"`
	StartsAt      *time.Time       `json:"starts_at"`
	EndsAt        *time.Time       `json:"ends_at"`
	StockCap      *int32           `json:"stock_cap"`
	Enabled       *bool            `json:"enabled"`
}

// toDomain uses fallback when the request omits enabled.
func (in *PromotionInput) toDomain(fallback bool) domain.PromotionInput {
	enabled := fallback
	if in.Enabled != nil {
		enabled = *in.Enabled
	}

	return domain.PromotionInput{
		ProductID:     in.ProductID,
		Kind:          domain.ParseDiscountKind(in.Kind),
		Value:         in.Value,
		OriginalPrice: in.OriginalPrice,
		StartsAt:      in.StartsAt,
		EndsAt:        in.EndsAt,
		StockCap:      in.StockCap,
		Enabled:       enabled,
	}
}

type EnabledInput struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

type promotionView struct {
	*domain.Promotion
	PercentOff int64 `json:"percent_off"`
	Active     bool  `json:"active"`
	Exhausted  bool  `json:"exhausted"`
}

func (h *PromotionHandler) view(p *domain.Promotion) promotionView {
	return promotionView{
		Promotion:  p,
		PercentOff: p.PercentOff(),
		Active:     p.IsActive(h.now()),
		Exhausted:  p.Exhausted(),
	}
}

func (h *PromotionHandler) views(ps []*domain.Promotion) []promotionView {
	out := make([]promotionView, 0, len(ps))
	for _, p := range ps {
		out = append(out, h.view(p))
	}
	return out
}

func (h *PromotionHandler) ctx(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), h.timeout)
}

func (h *PromotionHandler) fail(ctx context.Context, c *fiber.Ctx, msg string, err error) error {
	mylogger.Warn(
		ctx,
		h.logger,
		msg,
		zap.String("path", c.Path()),
		zap.Error(err),
	)

	return utils.WriteError(c, err)
}

func (h *PromotionHandler) Create(c *fiber.Ctx) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	input := new(PromotionInput)
	if err := utils.Bind(c, h.validate, input); err != nil {
		return h.fail(ctx, c, "create promotion: invalid input", err)
	}

	promotion, err := h.svc.Create(ctx, input.toDomain(true))
	if err != nil {
		return h.fail(ctx, c, "create promotion failed", err)
	}

	return c.Status(fiber.StatusCreated).JSON(h.view(promotion))
}

func (h *PromotionHandler) Update(c *fiber.Ctx) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	id, err := utils.ParseID(c, "id")
	if err != nil {
		return h.fail(ctx, c, "invalid promotion id", err)
	}

	input := new(PromotionInput)
	if err := utils.Bind(c, h.validate, input); err != nil {
		return h.fail(ctx, c, "update promotion: invalid input", err)
	}

	enabled := true
	if input.Enabled == nil {
		current, err := h.svc.Get(ctx, id)
		if err != nil {
			return h.fail(ctx, c, "update promotion failed", err)
		}
		enabled = current.Enabled
	}

	promotion, err := h.svc.Update(ctx, id, input.toDomain(enabled))
	if err != nil {
		return h.fail(ctx, c, "update promotion failed", err)
	}

	return c.JSON(h.view(promotion))
}

func (h *PromotionHandler) Get(c *fiber.Ctx) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	id, err := utils.ParseID(c, "id")
	if err != nil {
		return h.fail(ctx, c, "invalid promotion id", err)
	}

	promotion, err := h.svc.Get(ctx, id)
	if err != nil {
		return h.fail(ctx, c, "get promotion failed", err)
	}

	return c.JSON(h.view(promotion))
}

func (h *PromotionHandler) List(c *fiber.Ctx) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	productID, err := utils.QueryID(c, "product_id")
	if err != nil {
		return h.fail(ctx, c, "list promotions: invalid product id", err)
	}

	filter := domain.PromotionFilter{
		ProductID: productID,
		Limit:     c.QueryInt("limit", 0),
		Offset:    c.QueryInt("offset", 0),
	}

	promotions, err := h.svc.List(ctx, filter)
	if err != nil {
		return h.fail(ctx, c, "list promotions failed", err)
	}

	return c.JSON(fiber.Map{
		"promotions": h.views(promotions),
		"limit":      filter.Limit,
		"offset":     filter.Offset,
	})
}

func (h *PromotionHandler) ListActive(c *fiber.Ctx) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	productID, err := utils.QueryID(c, "product_id")
	if err != nil {
		return h.fail(ctx, c, "active promotions: invalid product id", err)
	}

	promotions, err := h.svc.ListActive(ctx, productID)
	if err != nil {
		return h.fail(ctx, c, "active promotions failed", err)
	}

	return c.JSON(fiber.Map{"promotions": h.views(promotions)})
}

func (h *PromotionHandler) SetEnabled(c *fiber.Ctx) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	id, err := utils.ParseID(c, "id")
	if err != nil {
		return h.fail(ctx, c, "invalid promotion id", err)
	}

	input := new(EnabledInput)
	if err := utils.Bind(c, h.validate, input); err != nil {
		return h.fail(ctx, c, "toggle promotion: invalid input", err)
	}

	promotion, err := h.svc.SetEnabled(ctx, id, *input.Enabled)
	if err != nil {
		return h.fail(ctx, c, "toggle promotion failed", err)
	}

	return c.JSON(h.view(promotion))
}

func (h *PromotionHandler) Delete(c *fiber.Ctx) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	id, err := utils.ParseID(c, "id")
	if err != nil {
		return h.fail(ctx, c, "invalid promotion id", err)
	}

	if err := h.svc.Delete(ctx, id); err != nil {
		return h.fail(ctx, c, "delete promotion failed", err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
