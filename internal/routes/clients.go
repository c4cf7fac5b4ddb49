package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/banksys/bankcore/internal/client"
)

// RegisterClientRoutes wires client account endpoints.
func RegisterClientRoutes(r fiber.Router, h *client.Handler) {
	r.Post("/clients", h.Create)
	r.Get("/clients", h.List)
	r.Get("/clients/:clientId", h.Get)
	r.Put("/clients/:clientId", h.Update)
	r.Delete("/clients/:clientId", h.Delete)
}
