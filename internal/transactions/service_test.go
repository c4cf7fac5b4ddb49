package transactions

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/banksys/bankcore/internal/ledger"
	"github.com/banksys/bankcore/internal/notification"
)

type recordingNotifier struct {
	mu       sync.Mutex
	messages []notification.Message
}

func (n *recordingNotifier) Send(_ context.Context, m notification.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, m)
	return nil
}

func (n *recordingNotifier) kinds() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.messages))
	for _, m := range n.messages {
		out = append(out, m.Kind)
	}
	return out
}

func newFixture() (*Service, ledger.Ledger, *recordingNotifier) {
	engine := ledger.NewInMemory()
	notifier := &recordingNotifier{}
	return NewService(engine, notifier), engine, notifier
}

func TestServiceDepositNotifies(t *testing.T) {
	svc, engine, notifier := newFixture()
	ctx := context.Background()
	ledger.SeedBalance(engine, 1, decimal.RequireFromString("100.00"))

	res, err := svc.Deposit(ctx, 1, decimal.RequireFromString("50.00"))
	if err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	if res.RowsAffected != 1 {
		t.Fatalf("expected 1 row affected, got %d", res.RowsAffected)
	}
	if kinds := notifier.kinds(); len(kinds) != 1 || kinds[0] != notification.KindDeposit {
		t.Fatalf("expected one deposit notification, got %v", kinds)
	}
}

func TestServiceDepositUnknownAccountDoesNotNotify(t *testing.T) {
	svc, _, notifier := newFixture()

	res, err := svc.Deposit(context.Background(), 42, decimal.RequireFromString("10.00"))
	if err != nil {
		t.Fatalf("expected business failure without error, got %v", err)
	}
	if res.RowsAffected != 0 {
		t.Fatalf("expected 0 rows affected, got %d", res.RowsAffected)
	}
	if kinds := notifier.kinds(); len(kinds) != 0 {
		t.Fatalf("expected no notifications, got %v", kinds)
	}
}

func TestServiceWithdrawInsufficientFunds(t *testing.T) {
	svc, engine, notifier := newFixture()
	ctx := context.Background()
	ledger.SeedBalance(engine, 1, decimal.RequireFromString("20.00"))

	res, err := svc.Withdraw(ctx, 1, decimal.RequireFromString("50.00"))
	if err != nil {
		t.Fatalf("expected business failure without error, got %v", err)
	}
	if res.RowsAffected != 0 {
		t.Fatalf("expected 0 rows affected, got %d", res.RowsAffected)
	}
	if kinds := notifier.kinds(); len(kinds) != 0 {
		t.Fatalf("expected no notifications, got %v", kinds)
	}
}

func TestServiceTransferNotifiesReceiver(t *testing.T) {
	svc, engine, notifier := newFixture()
	ctx := context.Background()
	ledger.SeedBalance(engine, 1, decimal.RequireFromString("100.00"))
	ledger.SeedBalance(engine, 2, decimal.RequireFromString("0.00"))
	ledger.SeedUser(engine, 7)

	res, err := svc.Transfer(ctx, TransferInput{
		FromClientID: 1,
		ToClientID:   2,
		Amount:       decimal.RequireFromString("30.00"),
		AuthorizedBy: 7,
	})
	if err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	if !res.Completed {
		t.Fatal("expected transfer to complete")
	}

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.messages) != 1 {
		t.Fatalf("expected one notification, got %d", len(notifier.messages))
	}
	msg := notifier.messages[0]
	if msg.Kind != notification.KindTransferCompleted {
		t.Fatalf("expected transfer notification, got %q", msg.Kind)
	}
	if msg.Destination != "2" {
		t.Fatalf("notification should target the receiver, got %q", msg.Destination)
	}
}

func TestServiceTransferUnknownAuthorizer(t *testing.T) {
	svc, engine, notifier := newFixture()
	ctx := context.Background()
	ledger.SeedBalance(engine, 1, decimal.RequireFromString("100.00"))
	ledger.SeedBalance(engine, 2, decimal.RequireFromString("0.00"))

	_, err := svc.Transfer(ctx, TransferInput{
		FromClientID: 1,
		ToClientID:   2,
		Amount:       decimal.RequireFromString("30.00"),
		AuthorizedBy: 999,
	})
	if !errors.Is(err, ledger.ErrInvalidReference) {
		t.Fatalf("expected ErrInvalidReference, got %v", err)
	}
	if kinds := notifier.kinds(); len(kinds) != 0 {
		t.Fatalf("expected no notifications, got %v", kinds)
	}
}

func TestServiceTotalBalanceAndHistory(t *testing.T) {
	svc, engine, _ := newFixture()
	ctx := context.Background()
	ledger.SeedBalance(engine, 1, decimal.RequireFromString("100.00"))
	ledger.SeedBalance(engine, 2, decimal.RequireFromString("50.00"))
	ledger.SeedUser(engine, 7)

	if _, err := svc.Transfer(ctx, TransferInput{FromClientID: 1, ToClientID: 2, Amount: decimal.RequireFromString("25.00"), AuthorizedBy: 7}); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}

	total, err := svc.TotalBalance(ctx)
	if err != nil {
		t.Fatalf("total balance: %v", err)
	}
	if !total.Equal(decimal.RequireFromString("150.00")) {
		t.Fatalf("expected total 150.00, got %s", total)
	}

	history, err := svc.TransferHistory(ctx)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 audit row, got %d", len(history))
	}
	if !history[0].SenderBalanceAfter.Equal(decimal.RequireFromString("75.00")) {
		t.Fatalf("unexpected sender snapshot: %s", history[0].SenderBalanceAfter)
	}
}
