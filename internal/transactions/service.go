package transactions

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/banksys/bankcore/internal/ledger"
	"github.com/banksys/bankcore/internal/notification"
)

// Service fronts the ledger engine for the transaction endpoints and emits
// notifications for completed movements.
type Service struct {
	ledger   ledger.Ledger
	notifier notification.Notifier
}

// NewService constructs a transaction service.
func NewService(ledger ledger.Ledger, notifier notification.Notifier) *Service {
	return &Service{ledger: ledger, notifier: notifier}
}

// TransferInput captures the data needed to move funds between clients.
type TransferInput struct {
	FromClientID int64
	ToClientID   int64
	Amount       decimal.Decimal
	AuthorizedBy int64
}

// MovementResult reports the outcome of a deposit or withdrawal.
type MovementResult struct {
	RowsAffected int64
	CompletedAt  time.Time
}

// TransferResult reports the outcome of a transfer.
type TransferResult struct {
	Completed   bool
	CompletedAt time.Time
}

// Deposit credits a client account. A zero row count means the account does
// not exist; the caller decides how to present that.
func (s *Service) Deposit(ctx context.Context, accountID int64, amount decimal.Decimal) (MovementResult, error) {
	rows, err := s.ledger.Deposit(ctx, accountID, amount)
	if err != nil {
		return MovementResult{}, err
	}
	if rows > 0 {
		s.notify(ctx, notification.KindDeposit, accountID, amount)
	}
	return MovementResult{RowsAffected: rows, CompletedAt: time.Now().UTC()}, nil
}

// Withdraw debits a client account. A zero row count covers both a missing
// account and insufficient funds.
func (s *Service) Withdraw(ctx context.Context, accountID int64, amount decimal.Decimal) (MovementResult, error) {
	rows, err := s.ledger.Withdraw(ctx, accountID, amount)
	if err != nil {
		return MovementResult{}, err
	}
	if rows > 0 {
		s.notify(ctx, notification.KindWithdrawal, accountID, amount)
	}
	return MovementResult{RowsAffected: rows, CompletedAt: time.Now().UTC()}, nil
}

// Transfer moves funds between two client accounts under the authorizing
// user's name.
func (s *Service) Transfer(ctx context.Context, input TransferInput) (TransferResult, error) {
	ok, err := s.ledger.Transfer(ctx, input.FromClientID, input.ToClientID, input.Amount, input.AuthorizedBy)
	if err != nil {
		return TransferResult{}, err
	}
	if ok && s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindTransferCompleted,
			Destination: strconv.FormatInt(input.ToClientID, 10),
			Body:        fmt.Sprintf("You received %s from client %d", input.Amount.StringFixed(2), input.FromClientID),
		})
	}
	return TransferResult{Completed: ok, CompletedAt: time.Now().UTC()}, nil
}

// TotalBalance returns the sum of every client balance.
func (s *Service) TotalBalance(ctx context.Context) (decimal.Decimal, error) {
	return s.ledger.TotalBalance(ctx)
}

// TransferHistory returns the full audit log in insertion order.
func (s *Service) TransferHistory(ctx context.Context) ([]ledger.TransferRecord, error) {
	return s.ledger.TransferHistory(ctx)
}

func (s *Service) notify(ctx context.Context, kind string, accountID int64, amount decimal.Decimal) {
	if s.notifier == nil {
		return
	}
	_ = s.notifier.Send(ctx, notification.Message{
		Kind:        kind,
		Destination: strconv.FormatInt(accountID, 10),
		Body:        fmt.Sprintf("Movement of %s on account %d", amount.StringFixed(2), accountID),
	})
}
