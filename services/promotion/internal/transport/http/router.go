package http

import (
	"github.com/chezmonami/platform/services/promotion/internal/transport/http/handler"
	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Promotion *handler.PromotionHandler
	Placement *handler.PlacementHandler
}

func RegisterRoutes(app *fiber.App, h *Handlers) {
	api := app.Group("/api")

	promotions := api.Group("/promotions")
	promotions.Post("", h.Promotion.Create)
	promotions.Get("", h.Promotion.List)
	promotions.Get("/active", h.Promotion.ListActive)
	promotions.Get("/:id", h.Promotion.Get)
	promotions.Put("/:id", h.Promotion.Update)
	promotions.Patch("/:id/enabled", h.Promotion.SetEnabled)
	promotions.Delete("/:id", h.Promotion.Delete)

	placements := api.Group("/placements")
	placements.Post("", h.Placement.Create)
	placements.Get("", h.Placement.List)
	placements.Get("/active", h.Placement.ListActive)
	placements.Get("/:id", h.Placement.Get)
	placements.Put("/:id", h.Placement.Update)
	placements.Delete("/:id", h.Placement.Delete)
}
