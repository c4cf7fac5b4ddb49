package transactions

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/banksys/bankcore/internal/ledger"
)

// Handler exposes the transaction endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a transaction handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type movementRequest struct {
	ClientID int64  `json:"client_id"`
	Amount   string `json:"amount"`
}

type transferRequest struct {
	FromClientID int64  `json:"from_client_id"`
	ToClientID   int64  `json:"to_client_id"`
	Amount       string `json:"amount"`
	AuthorizedBy int64  `json:"authorized_by"`
}

type transferLogResponse struct {
	ID                   int64     `json:"id"`
	SenderID             int64     `json:"sender_id"`
	ReceiverID           int64     `json:"receiver_id"`
	AuthorizedBy         int64     `json:"authorized_by"`
	Amount               string    `json:"amount"`
	SenderBalanceAfter   string    `json:"sender_balance_after"`
	ReceiverBalanceAfter string    `json:"receiver_balance_after"`
	CreatedAt            time.Time `json:"created_at"`
}

// Deposit credits a client account.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	var req movementRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return err
	}

	res, err := h.service.Deposit(c.UserContext(), req.ClientID, amount)
	if err != nil {
		return mapLedgerError(err)
	}
	if res.RowsAffected == 0 {
		return fiber.NewError(http.StatusNotFound, "client account not found")
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"rows_affected": res.RowsAffected,
		"completed_at":  res.CompletedAt,
	})
}

// Withdraw debits a client account.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	var req movementRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return err
	}

	res, err := h.service.Withdraw(c.UserContext(), req.ClientID, amount)
	if err != nil {
		return mapLedgerError(err)
	}
	if res.RowsAffected == 0 {
		return fiber.NewError(http.StatusUnprocessableEntity, "withdrawal declined")
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"rows_affected": res.RowsAffected,
		"completed_at":  res.CompletedAt,
	})
}

// Transfer moves funds between two client accounts.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return err
	}

	res, err := h.service.Transfer(c.UserContext(), TransferInput{
		FromClientID: req.FromClientID,
		ToClientID:   req.ToClientID,
		Amount:       amount,
		AuthorizedBy: req.AuthorizedBy,
	})
	if err != nil {
		return mapLedgerError(err)
	}
	if !res.Completed {
		return fiber.NewError(http.StatusUnprocessableEntity, "insufficient funds")
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"completed":    true,
		"completed_at": res.CompletedAt,
	})
}

// TotalBalance reports the bank-wide balance total.
func (h *Handler) TotalBalance(c *fiber.Ctx) error {
	total, err := h.service.TotalBalance(c.UserContext())
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"total_balance": total.StringFixed(2),
		"timestamp":     time.Now().UTC(),
	})
}

// History returns the transfer audit log.
func (h *Handler) History(c *fiber.Ctx) error {
	records, err := h.service.TransferHistory(c.UserContext())
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	out := make([]transferLogResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, transferLogResponse{
			ID:                   rec.ID,
			SenderID:             rec.SenderID,
			ReceiverID:           rec.ReceiverID,
			AuthorizedBy:         rec.AuthorizedBy,
			Amount:               rec.Amount.StringFixed(2),
			SenderBalanceAfter:   rec.SenderBalanceAfter.StringFixed(2),
			ReceiverBalanceAfter: rec.ReceiverBalanceAfter.StringFixed(2),
			CreatedAt:            rec.CreatedAt,
		})
	}
	return c.Status(http.StatusOK).JSON(out)
}

func parseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fiber.NewError(http.StatusBadRequest, "amount is not a valid decimal")
	}
	return amount, nil
}

func mapLedgerError(err error) error {
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount):
		return fiber.NewError(http.StatusBadRequest, "amount must be positive")
	case errors.Is(err, ledger.ErrInvalidReference):
		return fiber.NewError(http.StatusNotFound, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
