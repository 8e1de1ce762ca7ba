package http

import (
	"github.com/chezmonami/platform/services/order/internal/transport/http/handler"
	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Order *handler.OrderHandler
	Cart  *handler.CartHandler
}

func RegisterRoutes(app *fiber.App, h *Handlers) {
	api := app.Group("/api")

	order := api.Group("/orders")
	order.Post("", h.Order.Create)
	order.Get("", h.Order.List)
	order.Get("/number/:number", h.Order.GetByNumber)
	order.Get("/:id", h.Order.Get)
	order.Patch("/:id/status", h.Order.UpdateStatus)
	order.Put("/:id/customer", h.Order.CompleteCustomerInfo)
	order.Get("/:id/history", h.Order.History)
	order.Delete("/:id", h.Order.Delete)

	cart := api.Group("/carts/:session")
	cart.Get("", h.Cart.Get)
	cart.Delete("", h.Cart.Clear)
	cart.Post("/items", h.Cart.AddItem)
	cart.Patch("/items/:productId", h.Cart.SetQuantity)
	cart.Delete("/items/:productId", h.Cart.RemoveItem)
	cart.Post("/checkout", h.Cart.Checkout)
}
