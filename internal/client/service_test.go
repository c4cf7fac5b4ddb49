package client

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/banksys/bankcore/internal/ledger"
)

func newTestService() *Service {
	return NewService(NewMemoryRepository(), ledger.NewInMemory())
}

func validInput() CreateInput {
	return CreateInput{
		FirstName:      "Ada",
		LastName:       "Moyo",
		Email:          "ada@example.com",
		Phone:          "+24300000001",
		Username:       "ada",
		PIN:            "4312",
		InitialBalance: decimal.RequireFromString("100.00"),
	}
}

func TestServiceCreateRegistersLedgerAccount(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, validInput())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("expected generated id")
	}
	if err := bcrypt.CompareHashAndPassword(created.PINHash, []byte("4312")); err != nil {
		t.Fatalf("stored hash does not match PIN: %v", err)
	}

	balance, err := svc.ledger.Balance(ctx, created.ID)
	if err != nil {
		t.Fatalf("ledger does not know the new account: %v", err)
	}
	if !balance.Equal(decimal.RequireFromString("100.00")) {
		t.Fatalf("expected opening balance 100.00, got %s", balance)
	}
}

func TestServiceCreateRejectsShortPIN(t *testing.T) {
	svc := newTestService()
	input := validInput()
	input.PIN = "12"

	if _, err := svc.Create(context.Background(), input); err == nil {
		t.Fatal("expected short PIN to be rejected")
	}
}

func TestServiceCreateRejectsNegativeOpeningBalance(t *testing.T) {
	svc := newTestService()
	input := validInput()
	input.InitialBalance = decimal.RequireFromString("-1.00")

	if _, err := svc.Create(context.Background(), input); err == nil {
		t.Fatal("expected negative opening balance to be rejected")
	}
}

func TestServiceGetReturnsEngineBalance(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, validInput())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := svc.ledger.Deposit(ctx, created.ID, decimal.RequireFromString("25.00")); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}

	got, err := svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !got.Balance.Equal(decimal.RequireFromString("125.00")) {
		t.Fatalf("expected balance 125.00 from engine, got %s", got.Balance)
	}
}

func TestServiceGetUnknownClient(t *testing.T) {
	svc := newTestService()

	if _, err := svc.Get(context.Background(), 404); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestServiceUpdateKeepsPINWhenEmpty(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, validInput())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	updated, err := svc.Update(ctx, created.ID, UpdateInput{
		FirstName: "Ada",
		LastName:  "Banda",
		Email:     "ada@example.com",
		Username:  "ada",
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.LastName != "Banda" {
		t.Fatalf("expected updated last name, got %q", updated.LastName)
	}
	if err := bcrypt.CompareHashAndPassword(updated.PINHash, []byte("4312")); err != nil {
		t.Fatalf("PIN hash changed without a new PIN: %v", err)
	}
	if !updated.Balance.Equal(decimal.RequireFromString("100.00")) {
		t.Fatalf("update touched the balance: %s", updated.Balance)
	}
}

func TestServiceUpdateRehashesNewPIN(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, validInput())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	input := UpdateInput{FirstName: "Ada", LastName: "Moyo", Email: "ada@example.com", Username: "ada", PIN: "9876"}
	updated, err := svc.Update(ctx, created.ID, input)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if err := bcrypt.CompareHashAndPassword(updated.PINHash, []byte("9876")); err != nil {
		t.Fatalf("new PIN not stored: %v", err)
	}
}

func TestServiceVerifyPIN(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, validInput())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := svc.VerifyPIN(ctx, created.ID, "4312"); err != nil {
		t.Fatalf("correct PIN rejected: %v", err)
	}
	if err := svc.VerifyPIN(ctx, created.ID, "0000"); err == nil {
		t.Fatal("wrong PIN accepted")
	}
}

func TestServiceDelete(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, validInput())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := svc.repo.Find(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected client to be gone, got %v", err)
	}

	// The engine must forget the account too: no posthumous deposits.
	rows, err := svc.ledger.Deposit(ctx, created.ID, decimal.RequireFromString("10.00"))
	if err != nil {
		t.Fatalf("deposit after delete: %v", err)
	}
	if rows != 0 {
		t.Fatalf("deleted account accepted a deposit: %d rows", rows)
	}
	if _, err := svc.ledger.Balance(ctx, created.ID); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("engine still tracks deleted account: %v", err)
	}
}
