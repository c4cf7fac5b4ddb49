package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidAmount occurs when an operation is invoked with a zero or
	// negative amount. Amount parsing belongs to the transport boundary; this
	// is the engine's defensive check.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrNotFound indicates a point lookup referenced an account that does
	// not exist.
	ErrNotFound = errors.New("account not found")

	// ErrInvalidReference indicates a transfer referenced a sender, receiver
	// or authorizing user that does not exist. The whole unit of work is
	// rolled back when it is returned.
	ErrInvalidReference = errors.New("invalid reference")
)

// TransferRecord is one immutable audit-log entry describing a completed
// transfer. Balances are snapshots taken at commit time, not references, so
// the history stays correct after later mutations.
type TransferRecord struct {
	ID                   int64
	SenderID             int64
	ReceiverID           int64
	AuthorizedBy         int64
	Amount               decimal.Decimal
	SenderBalanceAfter   decimal.Decimal
	ReceiverBalanceAfter decimal.Decimal
	CreatedAt            time.Time
}

// Ledger defines the transaction engine contract implemented by backends
// (Postgres in production, in-memory for development and tests).
//
// Result conventions follow a strict split between business failures and
// integrity failures: insufficient funds and missing accounts on deposit or
// withdrawal are reported as zero/false results with a nil error, while a
// transfer referencing a nonexistent account or user returns an error
// matching ErrInvalidReference. Any store fault rolls back the unit of work
// and propagates as a wrapped error.
type Ledger interface {
	// EnsureAccount informs the engine's balance store that an account with
	// the given identity exists, seeding the opening balance. The account
	// lifecycle itself is owned by the client CRUD collaborator.
	EnsureAccount(ctx context.Context, accountID int64, opening decimal.Decimal) error

	// EnsureUser informs the engine that an acting user exists. Transfers
	// verify the authorizing user against this set inside their unit of work.
	EnsureUser(ctx context.Context, userID int64) error

	// RemoveAccount withdraws a deleted account from the engine's balance
	// store. Subsequent deposits and withdrawals against the id report the
	// account as missing.
	RemoveAccount(ctx context.Context, accountID int64) error

	// RemoveUser withdraws a deleted acting user. Subsequent transfers naming
	// the id as authorizer fail with ErrInvalidReference.
	RemoveUser(ctx context.Context, userID int64) error

	// Balance returns the committed balance for one account, or ErrNotFound.
	Balance(ctx context.Context, accountID int64) (decimal.Decimal, error)

	// Deposit credits amount to the account inside one unit of work and
	// returns the number of rows affected: 1 on success, 0 when the account
	// does not exist.
	Deposit(ctx context.Context, accountID int64, amount decimal.Decimal) (int64, error)

	// Withdraw debits amount if the committed balance covers it. Returns 1 on
	// success and 0 when the balance is insufficient or the account does not
	// exist. The balance read and the debit execute under the same row lock
	// so the balance can never go negative.
	Withdraw(ctx context.Context, accountID int64, amount decimal.Decimal) (int64, error)

	// Transfer moves amount between two accounts and appends one audit-log
	// row, all inside a single unit of work. It returns false with a nil
	// error when the sender's balance is insufficient, and an
	// ErrInvalidReference error when the sender, receiver or authorizing user
	// does not exist. Partial application is never observable.
	Transfer(ctx context.Context, fromID, toID int64, amount decimal.Decimal, authorizedBy int64) (bool, error)

	// TotalBalance sums every account balance. Snapshot-level consistency;
	// it takes no locks and may interleave with concurrent postings.
	TotalBalance(ctx context.Context) (decimal.Decimal, error)

	// TransferHistory returns every audit-log row in insertion order.
	TransferHistory(ctx context.Context) ([]TransferRecord, error)
}
