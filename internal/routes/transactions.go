package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/banksys/bankcore/internal/transactions"
)

// RegisterTransactionRoutes wires the money movement endpoints.
func RegisterTransactionRoutes(r fiber.Router, h *transactions.Handler) {
	r.Post("/deposit", h.Deposit)
	r.Post("/withdraw", h.Withdraw)
	r.Post("/transfer", h.Transfer)
	r.Get("/total-balance", h.TotalBalance)
	r.Get("/history", h.History)
}
