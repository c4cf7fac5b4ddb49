package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
)

func amt(t *testing.T, value string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(value)
	if err != nil {
		t.Fatalf("parse amount %q: %v", value, err)
	}
	return d
}

func TestInMemoryLedger_Deposit(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	SeedBalance(l, 1, amt(t, "100.00"))

	rows, err := l.Deposit(ctx, 1, amt(t, "50.00"))
	if err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	if rows != 1 {
		t.Fatalf("expected 1 row affected, got %d", rows)
	}

	balance, err := l.Balance(ctx, 1)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !balance.Equal(amt(t, "150.00")) {
		t.Fatalf("expected balance 150.00, got %s", balance)
	}
}

func TestInMemoryLedger_DepositUnknownAccount(t *testing.T) {
	l := NewInMemory()

	rows, err := l.Deposit(context.Background(), 42, amt(t, "10.00"))
	if err != nil {
		t.Fatalf("expected business failure without error, got %v", err)
	}
	if rows != 0 {
		t.Fatalf("expected 0 rows affected, got %d", rows)
	}
}

func TestInMemoryLedger_DepositRejectsNonPositiveAmount(t *testing.T) {
	l := NewInMemory()
	SeedBalance(l, 1, amt(t, "100.00"))

	if _, err := l.Deposit(context.Background(), 1, decimal.Zero); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := l.Withdraw(context.Background(), 1, amt(t, "-5.00")); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestInMemoryLedger_WithdrawInsufficientFunds(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	SeedBalance(l, 1, amt(t, "100.00"))

	rows, err := l.Withdraw(ctx, 1, amt(t, "150.00"))
	if err != nil {
		t.Fatalf("expected business failure without error, got %v", err)
	}
	if rows != 0 {
		t.Fatalf("expected 0 rows affected, got %d", rows)
	}

	balance, _ := l.Balance(ctx, 1)
	if !balance.Equal(amt(t, "100.00")) {
		t.Fatalf("balance changed on failed withdrawal: %s", balance)
	}
}

func TestInMemoryLedger_Withdraw(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	SeedBalance(l, 1, amt(t, "100.00"))

	rows, err := l.Withdraw(ctx, 1, amt(t, "40.00"))
	if err != nil {
		t.Fatalf("withdraw failed: %v", err)
	}
	if rows != 1 {
		t.Fatalf("expected 1 row affected, got %d", rows)
	}

	balance, _ := l.Balance(ctx, 1)
	if !balance.Equal(amt(t, "60.00")) {
		t.Fatalf("expected balance 60.00, got %s", balance)
	}
}

func TestInMemoryLedger_TransferWritesAuditRow(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	SeedBalance(l, 1, amt(t, "100.00"))
	SeedBalance(l, 2, amt(t, "20.00"))
	SeedUser(l, 7)

	ok, err := l.Transfer(ctx, 1, 2, amt(t, "30.00"), 7)
	if err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	if !ok {
		t.Fatal("expected transfer to succeed")
	}

	senderBalance, _ := l.Balance(ctx, 1)
	receiverBalance, _ := l.Balance(ctx, 2)
	if !senderBalance.Equal(amt(t, "70.00")) {
		t.Fatalf("expected sender balance 70.00, got %s", senderBalance)
	}
	if !receiverBalance.Equal(amt(t, "50.00")) {
		t.Fatalf("expected receiver balance 50.00, got %s", receiverBalance)
	}

	history, err := l.TransferHistory(ctx)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 audit row, got %d", len(history))
	}
	rec := history[0]
	if rec.SenderID != 1 || rec.ReceiverID != 2 || rec.AuthorizedBy != 7 {
		t.Fatalf("unexpected identities in audit row: %+v", rec)
	}
	if !rec.Amount.Equal(amt(t, "30.00")) {
		t.Fatalf("expected amount 30.00, got %s", rec.Amount)
	}
	if !rec.SenderBalanceAfter.Equal(amt(t, "70.00")) || !rec.ReceiverBalanceAfter.Equal(amt(t, "50.00")) {
		t.Fatalf("audit row balances do not match commit snapshots: %+v", rec)
	}
}

func TestInMemoryLedger_TransferConservation(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	SeedBalance(l, 1, amt(t, "100.00"))
	SeedBalance(l, 2, amt(t, "20.00"))
	SeedUser(l, 7)

	before, _ := l.TotalBalance(ctx)
	if _, err := l.Transfer(ctx, 1, 2, amt(t, "42.42"), 7); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	after, _ := l.TotalBalance(ctx)
	if !before.Equal(after) {
		t.Fatalf("transfer changed total balance: %s -> %s", before, after)
	}
}

func TestInMemoryLedger_TransferUnknownUser(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	SeedBalance(l, 1, amt(t, "100.00"))
	SeedBalance(l, 2, amt(t, "20.00"))

	ok, err := l.Transfer(ctx, 1, 2, amt(t, "30.00"), 999)
	if !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("expected ErrInvalidReference, got %v", err)
	}
	if ok {
		t.Fatal("transfer must not report success")
	}

	senderBalance, _ := l.Balance(ctx, 1)
	receiverBalance, _ := l.Balance(ctx, 2)
	if !senderBalance.Equal(amt(t, "100.00")) || !receiverBalance.Equal(amt(t, "20.00")) {
		t.Fatalf("balances changed on failed transfer: %s / %s", senderBalance, receiverBalance)
	}

	history, _ := l.TransferHistory(ctx)
	if len(history) != 0 {
		t.Fatalf("audit row written for failed transfer: %+v", history)
	}
}

func TestInMemoryLedger_TransferUnknownReceiver(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	SeedBalance(l, 1, amt(t, "100.00"))
	SeedUser(l, 7)

	if _, err := l.Transfer(ctx, 1, 404, amt(t, "10.00"), 7); !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("expected ErrInvalidReference, got %v", err)
	}

	senderBalance, _ := l.Balance(ctx, 1)
	if !senderBalance.Equal(amt(t, "100.00")) {
		t.Fatalf("sender balance changed on failed transfer: %s", senderBalance)
	}
}

func TestInMemoryLedger_TransferInsufficientFunds(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	SeedBalance(l, 1, amt(t, "10.00"))
	SeedBalance(l, 2, amt(t, "0.00"))
	SeedUser(l, 7)

	ok, err := l.Transfer(ctx, 1, 2, amt(t, "30.00"), 7)
	if err != nil {
		t.Fatalf("insufficient funds must not be an error, got %v", err)
	}
	if ok {
		t.Fatal("expected transfer to report failure")
	}
}

func TestInMemoryLedger_RemoveAccount(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	SeedBalance(l, 1, amt(t, "100.00"))

	if err := l.RemoveAccount(ctx, 1); err != nil {
		t.Fatalf("remove account: %v", err)
	}

	rows, err := l.Deposit(ctx, 1, amt(t, "10.00"))
	if err != nil {
		t.Fatalf("expected business failure without error, got %v", err)
	}
	if rows != 0 {
		t.Fatalf("removed account accepted a deposit: %d rows", rows)
	}
	if _, err := l.Balance(ctx, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after removal, got %v", err)
	}
}

func TestInMemoryLedger_RemoveUserRevokesAuthorization(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	SeedBalance(l, 1, amt(t, "100.00"))
	SeedBalance(l, 2, amt(t, "0.00"))
	SeedUser(l, 7)

	if err := l.RemoveUser(ctx, 7); err != nil {
		t.Fatalf("remove user: %v", err)
	}

	ok, err := l.Transfer(ctx, 1, 2, amt(t, "10.00"), 7)
	if !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("expected ErrInvalidReference, got %v", err)
	}
	if ok {
		t.Fatal("transfer must not report success")
	}
	history, _ := l.TransferHistory(ctx)
	if len(history) != 0 {
		t.Fatalf("audit row written for removed user: %+v", history)
	}
}

func TestInMemoryLedger_TotalBalanceIsStableWithoutMutation(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	SeedBalance(l, 1, amt(t, "150.00"))
	SeedBalance(l, 2, amt(t, "50.00"))

	first, err := l.TotalBalance(ctx)
	if err != nil {
		t.Fatalf("total balance: %v", err)
	}
	second, err := l.TotalBalance(ctx)
	if err != nil {
		t.Fatalf("total balance: %v", err)
	}
	if !first.Equal(second) || !first.Equal(amt(t, "200.00")) {
		t.Fatalf("expected stable total 200.00, got %s then %s", first, second)
	}
}

func TestInMemoryLedger_ConcurrentWithdrawalsSingleSuccess(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	SeedBalance(l, 1, amt(t, "100.00"))

	// Each withdrawal fits on its own, together they overdraw.
	withdrawal := amt(t, "60.00")
	var wg sync.WaitGroup
	results := make([]int64, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rows, err := l.Withdraw(ctx, 1, withdrawal)
			if err != nil {
				t.Errorf("withdraw %d: %v", i, err)
			}
			results[i] = rows
		}(i)
	}
	wg.Wait()

	if results[0]+results[1] != 1 {
		t.Fatalf("expected exactly one successful withdrawal, got %v", results)
	}
	balance, _ := l.Balance(ctx, 1)
	if !balance.Equal(amt(t, "40.00")) {
		t.Fatalf("expected balance 40.00, got %s", balance)
	}
}

func TestInMemoryLedger_ConcurrentTransfersConserveTotal(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	SeedBalance(l, 1, amt(t, "1000.00"))
	SeedBalance(l, 2, amt(t, "0.00"))
	SeedUser(l, 7)

	const workers = 10
	chunk := amt(t, "5.00")
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.Transfer(ctx, 1, 2, chunk, 7); err != nil {
				t.Errorf("transfer failed: %v", err)
			}
		}()
	}
	wg.Wait()

	total, _ := l.TotalBalance(ctx)
	if !total.Equal(amt(t, "1000.00")) {
		t.Fatalf("total drifted under concurrency: %s", total)
	}
	history, _ := l.TransferHistory(ctx)
	if len(history) != workers {
		t.Fatalf("expected %d audit rows, got %d", workers, len(history))
	}
}
