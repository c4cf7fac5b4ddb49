package ledger

import "github.com/shopspring/decimal"

// SeedBalance is a test helper that overwrites the balance for an account
// when using the in-memory engine.
func SeedBalance(l Ledger, accountID int64, balance decimal.Decimal) {
	if mem, ok := l.(*inMemoryLedger); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		mem.balances[accountID] = balance
	}
}

// SeedUser is a test helper that registers an acting user with the in-memory
// engine.
func SeedUser(l Ledger, userID int64) {
	if mem, ok := l.(*inMemoryLedger); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		mem.users[userID] = struct{}{}
	}
}
