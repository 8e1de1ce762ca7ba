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

type OrderHandler struct {
	svc      service.OrderService
	validate *validator.Validate
	logger   *zap.Logger
	timeout  time.Duration
}

func NewOrderHandler(svc service.OrderService, logger *zap.Logger, timeout time.Duration) *OrderHandler {
	return &OrderHandler{
		svc:      svc,
		validate: validator.New(),
		logger:   logger,
		timeout:  timeout,
	}
}

type ContactInput struct {
	Name    string `json:"name" validate:"required,max=200"`
	Phone   string `json:"phone" validate:"required,max=50"`
	Email   string `json:"email" validate:"omitempty,email"`
	Address string `json:"address" validate:"max=500"`
	Message string `json:"message" validate:"max=2000"`
}

func (in ContactInput) toDomain() domain.Contact {
	return domain.Contact{
		Name:    in.Name,
		Phone:   in.Phone,
		Email:   in.Email,
		Address: in.Address,
		Message: in.Message,
	}
}

type OrderItemInput struct {
	ProductID int64           `json:"product_id" validate:"required,gt=0"`
	Name      string          `json:"name" validate:"required,max=200"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int32           `json:"quantity" validate:"required,gt=0"`
	ImageURL  string          `json:"image_url" validate:"omitempty,url"`
	Currency  string          `json:"currency" validate:"omitempty,len=3,alpha"`
}

type CreateOrderInput struct {
	Customer ContactInput     `json:"customer"`
	Items    []OrderItemInput `json:"items" validate:"required,min=1,dive"`
	Currency string           `json:"currency" validate:"omitempty,len=3,alpha"`
}

type UpdateStatusInput struct {
	Status           string  `json:"status" validate:"required"`
	Comment          string  `json:"comment" validate:"max=2000"`
	TrackingNumber   *string `json:"tracking_number" validate:"omitempty,max=100"`
	ExpectedRevision *int64  `json:"expected_revision"`
}

type CustomerInfoInput struct {
	ContactInput
	ExpectedRevision *int64 `json:"expected_revision"`
}

func (h *OrderHandler) ctx(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), h.timeout)
}

func (h *OrderHandler) fail(ctx context.Context, c *fiber.Ctx, msg string, err error) error {
	mylogger.Warn(
		ctx,
		h.logger,
		msg,
		zap.Int("http_status", utils.HTTPStatus(err)),
		zap.Error(err),
	)

	return utils.WriteError(c, err)
}

func (h *OrderHandler) Create(c *fiber.Ctx) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	input := new(CreateOrderInput)
	if err := utils.Bind(c, h.validate, input); err != nil {
		return h.fail(ctx, c, "create order: invalid input", err)
	}

	items := make([]domain.OrderItem, 0, len(input.Items))
	for _, item := range input.Items {
		items = append(items, domain.OrderItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			ImageURL:  item.ImageURL,
			Currency:  item.Currency,
		})
	}

	order, err := h.svc.CreateOrder(ctx, domain.NewOrder{
		Contact:  input.Customer.toDomain(),
		Items:    items,
		Currency: input.Currency,
	})
	if err != nil {
		return h.fail(ctx, c, "create order failed", err)
	}

	return c.Status(fiber.StatusCreated).JSON(order)
}

func (h *OrderHandler) Get(c *fiber.Ctx) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	id, err := utils.ParseID(c, "id")
	if err != nil {
		return h.fail(ctx, c, "invalid order id", err)
	}

	order, err := h.svc.GetOrder(ctx, id)
	if err != nil {
		return h.fail(ctx, c, "get order failed", err)
	}

	return c.JSON(order)
}

func (h *OrderHandler) GetByNumber(c *fiber.Ctx) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	order, err := h.svc.GetByNumber(ctx, c.Params("number"))
	if err != nil {
		return h.fail(ctx, c, "get order by number failed", err)
	}

	return c.JSON(order)
}

type orderView struct {
	*domain.Order
	InfoIncomplete bool `json:"info_incomplete"`
}

func (h *OrderHandler) List(c *fiber.Ctx) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	filter := domain.ListFilter{
		Limit:  c.QueryInt("limit", 0),
		Offset: c.QueryInt("offset", 0),
	}

	if raw := c.Query("status"); raw != "" {
		status, err := domain.ParseStatus(raw)
		if err != nil {
			return h.fail(ctx, c, "list orders: invalid status", err)
		}
		filter.Status = &status
	}

	incomplete, err := utils.QueryBool(c, "incomplete")
	if err != nil {
		return h.fail(ctx, c, "list orders: invalid incomplete flag", err)
	}
	filter.Incomplete = incomplete

	orders, err := h.svc.ListOrders(ctx, filter)
	if err != nil {
		return h.fail(ctx, c, "list orders failed", err)
	}

	views := make([]orderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, orderView{Order: o, InfoIncomplete: o.IsInfoIncomplete()})
	}

	return c.JSON(fiber.Map{
		"orders": views,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

func (h *OrderHandler) UpdateStatus(c *fiber.Ctx) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	id, err := utils.ParseID(c, "id")
	if err != nil {
		return h.fail(ctx, c, "invalid order id", err)
	}

	input := new(UpdateStatusInput)
	if err := utils.Bind(c, h.validate, input); err != nil {
		return h.fail(ctx, c, "update status: invalid input", err)
	}

	order, err := h.svc.UpdateStatus(ctx, id, domain.StatusUpdate{
		Status:           input.Status,
		Comment:          input.Comment,
		TrackingNumber:   input.TrackingNumber,
		ExpectedRevision: input.ExpectedRevision,
	})
	if err != nil {
		return h.fail(ctx, c, "update status failed", err)
	}

	return c.JSON(order)
}

func (h *OrderHandler) CompleteCustomerInfo(c *fiber.Ctx) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	id, err := utils.ParseID(c, "id")
	if err != nil {
		return h.fail(ctx, c, "invalid order id", err)
	}

	input := new(CustomerInfoInput)
	if err := utils.Bind(c, h.validate, input); err != nil {
		return h.fail(ctx, c, "complete customer info: invalid input", err)
	}

	order, err := h.svc.CompleteCustomerInfo(ctx, id, input.toDomain(), input.ExpectedRevision)
	if err != nil {
		return h.fail(ctx, c, "complete customer info failed", err)
	}

	return c.JSON(orderView{Order: order, InfoIncomplete: order.IsInfoIncomplete()})
}

func (h *OrderHandler) History(c *fiber.Ctx) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	id, err := utils.ParseID(c, "id")
	if err != nil {
		return h.fail(ctx, c, "invalid order id", err)
	}

	entries, err := h.svc.ListHistory(ctx, id)
	if err != nil {
		return h.fail(ctx, c, "list history failed", err)
	}

	return c.JSON(fiber.Map{"history": entries})
}

func (h *OrderHandler) Delete(c *fiber.Ctx) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	id, err := utils.ParseID(c, "id")
	if err != nil {
		return h.fail(ctx, c, "invalid order id", err)
	}

	if err := h.svc.DeleteOrder(ctx, id); err != nil {
		return h.fail(ctx, c, "delete order failed", err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
