package handler

import (
	"context"
	"time"

	"github.com/chezmonami/platform/pkg/mylogger"
	"github.com/chezmonami/platform/pkg/utils"
	"github.com/chezmonami/platform/services/order/internal/domain"
	"github.com/chezmonami/platform/services/order/internal/service"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type CartHandler struct {
	svc      service.CartService
	validate *validator.Validate
	logger   *zap.Logger
	timeout  time.Duration
}

func NewCartHandler(svc service.CartService, logger *zap.Logger, timeout time.Duration) *CartHandler {
	return &CartHandler{
		svc:      svc,
		validate: validator.New(),
		logger:   logger,
		timeout:  timeout,
	}
}

type CartItemInput struct {
	ProductID int64           `json:"product_id" validate:"required,gt=0"`
	Name      string          `json:"name" validate:"required,max=200"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int32           `json:"quantity" validate:"required,gt=0"`
	ImageURL  string          `json:"image_url" validate:"omitempty,url"`
	Currency  string          `json:"currency" validate:"required,len=3,alpha"`
}

type QuantityInput struct {
	Quantity int32 `json:"quantity" validate:"gte=0"`
}

type cartView struct {
	*domain.Cart
	Total decimal.Decimal `json:"total"`
}

func (h *CartHandler) respond(c *fiber.Ctx, cart *domain.Cart) error {
	return c.JSON(cartView{Cart: cart, Total: cart.Total()})
}

func (h *CartHandler) fail(ctx context.Context, c *fiber.Ctx, msg string, err error) error {
	mylogger.Warn(
		ctx,
		h.logger,
		msg,
		zap.String("session_id", c.Params("session")),
		zap.Error(err),
	)

	return utils.WriteError(c, err)
}

func (h *CartHandler) Get(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	cart, err := h.svc.Get(ctx, c.Params("session"))
	if err != nil {
		return h.fail(ctx, c, "get cart failed", err)
	}

	return h.respond(c, cart)
}

func (h *CartHandler) AddItem(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	input := new(CartItemInput)
	if err := utils.Bind(c, h.validate, input); err != nil {
		return h.fail(ctx, c, "add cart item: invalid input", err)
	}

	cart, err := h.svc.AddItem(ctx, c.Params("session"), domain.CartItem{
		ProductID: input.ProductID,
		Name:      input.Name,
		UnitPrice: input.UnitPrice,
		Quantity:  input.Quantity,
		ImageURL:  input.ImageURL,
		Currency:  input.Currency,
	})
	if err != nil {
		return h.fail(ctx, c, "add cart item failed", err)
	}

	return h.respond(c, cart)
}

func (h *CartHandler) SetQuantity(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	productID, err := utils.ParseID(c, "productId")
	if err != nil {
		return h.fail(ctx, c, "invalid product id", err)
	}

	input := new(QuantityInput)
	if err := utils.Bind(c, h.validate, input); err != nil {
		return h.fail(ctx, c, "set quantity: invalid input", err)
	}

	cart, err := h.svc.SetQuantity(ctx, c.Params("session"), productID, input.Quantity)
	if err != nil {
		return h.fail(ctx, c, "set quantity failed", err)
	}

	return h.respond(c, cart)
}

func (h *CartHandler) RemoveItem(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	productID, err := utils.ParseID(c, "productId")
	if err != nil {
		return h.fail(ctx, c, "invalid product id", err)
	}

	cart, err := h.svc.RemoveItem(ctx, c.Params("session"), productID)
	if err != nil {
		return h.fail(ctx, c, "remove cart item failed", err)
	}

	return h.respond(c, cart)
}

func (h *CartHandler) Clear(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	if err := h.svc.Clear(ctx, c.Params("session")); err != nil {
		return h.fail(ctx, c, "clear cart failed", err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *CartHandler) Checkout(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	input := new(ContactInput)
	if err := utils.Bind(c, h.validate, input); err != nil {
		return h.fail(ctx, c, "checkout: invalid input", err)
	}

	order, err := h.svc.Checkout(ctx, c.Params("session"), input.toDomain())
	if err != nil {
		return h.fail(ctx, c, "checkout failed", err)
	}

	mylogger.Info(
		ctx,
		h.logger,
		"checkout succeeded",
		zap.Int64("order_id", order.ID),
		zap.String("order_number", order.Number),
	)

	return c.Status(fiber.StatusCreated).JSON(order)
}
