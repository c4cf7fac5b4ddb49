package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type inMemoryLedger struct {
	mu       sync.RWMutex
	balances map[int64]decimal.Decimal
	users    map[int64]struct{}
	history  []TransferRecord
	nextID   int64
}

// NewInMemory creates a concurrency-safe in-memory engine with the same
// result semantics as the Postgres backend. Every operation runs under one
// mutex, which stands in for the row-locked unit of work.
func NewInMemory() Ledger {
	return &inMemoryLedger{
		balances: make(map[int64]decimal.Decimal),
		users:    make(map[int64]struct{}),
	}
}

func (l *inMemoryLedger) EnsureAccount(_ context.Context, accountID int64, opening decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.balances[accountID]; !exists {
		l.balances[accountID] = opening
	}
	return nil
}

func (l *inMemoryLedger) EnsureUser(_ context.Context, userID int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.users[userID] = struct{}{}
	return nil
}

func (l *inMemoryLedger) RemoveAccount(_ context.Context, accountID int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.balances, accountID)
	return nil
}

func (l *inMemoryLedger) RemoveUser(_ context.Context, userID int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.users, userID)
	return nil
}

func (l *inMemoryLedger) Balance(_ context.Context, accountID int64) (decimal.Decimal, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	balance, exists := l.balances[accountID]
	if !exists {
		return decimal.Zero, ErrNotFound
	}
	return balance, nil
}

func (l *inMemoryLedger) Deposit(_ context.Context, accountID int64, amount decimal.Decimal) (int64, error) {
	if !amount.IsPositive() {
		return 0, ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	balance, exists := l.balances[accountID]
	if !exists {
		return 0, nil
	}
	l.balances[accountID] = balance.Add(amount)
	return 1, nil
}

func (l *inMemoryLedger) Withdraw(_ context.Context, accountID int64, amount decimal.Decimal) (int64, error) {
	if !amount.IsPositive() {
		return 0, ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	balance, exists := l.balances[accountID]
	if !exists {
		return 0, nil
	}
	if balance.LessThan(amount) {
		return 0, nil
	}
	l.balances[accountID] = balance.Sub(amount)
	return 1, nil
}

func (l *inMemoryLedger) Transfer(_ context.Context, fromID, toID int64, amount decimal.Decimal, authorizedBy int64) (bool, error) {
	if !amount.IsPositive() {
		return false, ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	senderBalance, ok := l.balances[fromID]
	if !ok {
		return false, fmt.Errorf("%w: sender account %d", ErrInvalidReference, fromID)
	}
	if senderBalance.LessThan(amount) {
		return false, nil
	}
	receiverBalance, ok := l.balances[toID]
	if !ok {
		return false, fmt.Errorf("%w: receiver account %d", ErrInvalidReference, toID)
	}
	if _, ok := l.users[authorizedBy]; !ok {
		return false, fmt.Errorf("%w: authorizing user %d", ErrInvalidReference, authorizedBy)
	}

	senderAfter := senderBalance.Sub(amount)
	// The receiver snapshot is taken after the debit, so a self-transfer
	// credits the already-debited balance and nets to zero.
	if fromID == toID {
		receiverBalance = senderAfter
	}
	receiverAfter := receiverBalance.Add(amount)
	l.balances[fromID] = senderAfter
	l.balances[toID] = receiverAfter

	l.nextID++
	l.history = append(l.history, TransferRecord{
		ID:                   l.nextID,
		SenderID:             fromID,
		ReceiverID:           toID,
		AuthorizedBy:         authorizedBy,
		Amount:               amount,
		SenderBalanceAfter:   senderAfter,
		ReceiverBalanceAfter: receiverAfter,
		CreatedAt:            time.Now().UTC(),
	})
	return true, nil
}

func (l *inMemoryLedger) TotalBalance(_ context.Context) (decimal.Decimal, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	total := decimal.Zero
	for _, balance := range l.balances {
		total = total.Add(balance)
	}
	return total, nil
}

func (l *inMemoryLedger) TransferHistory(_ context.Context) ([]TransferRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]TransferRecord, len(l.history))
	copy(out, l.history)
	return out, nil
}
