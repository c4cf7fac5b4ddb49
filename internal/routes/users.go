package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/banksys/bankcore/internal/user"
)

// RegisterUserRoutes wires bank staff endpoints.
func RegisterUserRoutes(r fiber.Router, h *user.Handler) {
	r.Post("/users", h.Create)
	r.Get("/users", h.List)
	r.Get("/users/:userId", h.Get)
	r.Put("/users/:userId", h.Update)
	r.Delete("/users/:userId", h.Delete)
}
