package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PostgresLedger runs the transaction engine against PostgreSQL. Balances
// live in the clients table; every mutating operation is one database
// transaction, and the balance read that backs a sufficiency check locks the
// row with FOR UPDATE so a concurrent unit of work cannot invalidate it
// before commit.
type PostgresLedger struct {
	db *pgxpool.Pool
}

// NewPostgresLedger constructs a Postgres-backed transaction engine.
func NewPostgresLedger(db *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{db: db}
}

// EnsureAccount verifies the client row exists. The row itself, opening
// balance included, is created by the client repository; the shared table
// means there is nothing to seed here.
func (l *PostgresLedger) EnsureAccount(ctx context.Context, accountID int64, _ decimal.Decimal) error {
	var exists bool
	if err := l.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM clients WHERE id = $1)`, accountID).Scan(&exists); err != nil {
		return fmt.Errorf("ensure account %d: %w", accountID, err)
	}
	if !exists {
		return fmt.Errorf("ensure account %d: %w", accountID, ErrNotFound)
	}
	return nil
}

// EnsureUser verifies the user row exists. Like EnsureAccount it is a
// referential sanity check; the users table is owned by the user CRUD layer.
func (l *PostgresLedger) EnsureUser(ctx context.Context, userID int64) error {
	var exists bool
	if err := l.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
		return fmt.Errorf("ensure user %d: %w", userID, err)
	}
	if !exists {
		return fmt.Errorf("ensure user %d: user %w", userID, ErrNotFound)
	}
	return nil
}

// RemoveAccount is a no-op: the clients table is shared with the repository,
// so the row deletion that triggered this call already removed the balance.
func (l *PostgresLedger) RemoveAccount(_ context.Context, _ int64) error {
	return nil
}

// RemoveUser is a no-op for the same reason; transfers consult the users
// table directly.
func (l *PostgresLedger) RemoveUser(_ context.Context, _ int64) error {
	return nil
}

// Balance returns the committed balance for one account.
func (l *PostgresLedger) Balance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	var raw string
	err := l.db.QueryRow(ctx, `SELECT balance::text FROM clients WHERE id = $1`, accountID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, ErrNotFound
		}
		return decimal.Zero, fmt.Errorf("read balance for account %d: %w", accountID, err)
	}
	balance, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse balance for account %d: %w", accountID, err)
	}
	return balance, nil
}

// Deposit credits the account with a single conditional UPDATE. Zero rows
// affected means the account does not exist; the transaction is rolled back
// and 0 is returned without an error.
func (l *PostgresLedger) Deposit(ctx context.Context, accountID int64, amount decimal.Decimal) (int64, error) {
	if !amount.IsPositive() {
		return 0, ErrInvalidAmount
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("begin deposit: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	cmd, err := tx.Exec(ctx, `UPDATE clients SET balance = balance + $2::numeric WHERE id = $1`, accountID, amount.String())
	if err != nil {
		return 0, fmt.Errorf("apply deposit: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return 0, nil
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit deposit: %w", err)
	}
	return cmd.RowsAffected(), nil
}

// Withdraw debits the account after a locked sufficiency check. Insufficient
// funds and a missing account both roll back and return 0 with a nil error.
func (l *PostgresLedger) Withdraw(ctx context.Context, accountID int64, amount decimal.Decimal) (int64, error) {
	if !amount.IsPositive() {
		return 0, ErrInvalidAmount
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("begin withdrawal: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	balance, err := balanceForUpdate(ctx, tx, accountID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	if balance.LessThan(amount) {
		return 0, nil
	}

	cmd, err := tx.Exec(ctx, `UPDATE clients SET balance = balance - $2::numeric WHERE id = $1`, accountID, amount.String())
	if err != nil {
		return 0, fmt.Errorf("apply withdrawal: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit withdrawal: %w", err)
	}
	return cmd.RowsAffected(), nil
}

// Transfer moves amount from one account to another and appends the audit
// row, all inside one transaction. Both balance rows are locked before
// mutation so the post-transfer snapshots written to the log are exact.
func (l *PostgresLedger) Transfer(ctx context.Context, fromID, toID int64, amount decimal.Decimal, authorizedBy int64) (bool, error) {
	if !amount.IsPositive() {
		return false, ErrInvalidAmount
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, fmt.Errorf("begin transfer: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	senderBalance, err := balanceForUpdate(ctx, tx, fromID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, fmt.Errorf("%w: sender account %d", ErrInvalidReference, fromID)
		}
		return false, err
	}

	if senderBalance.LessThan(amount) {
		return false, nil
	}

	if _, err := tx.Exec(ctx, `UPDATE clients SET balance = balance - $2::numeric WHERE id = $1`, fromID, amount.String()); err != nil {
		return false, fmt.Errorf("debit sender: %w", err)
	}

	receiverBalance, err := balanceForUpdate(ctx, tx, toID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, fmt.Errorf("%w: receiver account %d", ErrInvalidReference, toID)
		}
		return false, err
	}

	if _, err := tx.Exec(ctx, `UPDATE clients SET balance = balance + $2::numeric WHERE id = $1`, toID, amount.String()); err != nil {
		return false, fmt.Errorf("credit receiver: %w", err)
	}

	var userExists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, authorizedBy).Scan(&userExists); err != nil {
		return false, fmt.Errorf("check authorizing user: %w", err)
	}
	if !userExists {
		return false, fmt.Errorf("%w: authorizing user %d", ErrInvalidReference, authorizedBy)
	}

	senderAfter := senderBalance.Sub(amount)
	receiverAfter := receiverBalance.Add(amount)

	const insertLog = `
        INSERT INTO transfer_log (sender_id, receiver_id, authorized_by, amount, sender_balance_after, receiver_balance_after)
        VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6::numeric)`
	if _, err := tx.Exec(ctx, insertLog, fromID, toID, authorizedBy, amount.String(), senderAfter.String(), receiverAfter.String()); err != nil {
		return false, fmt.Errorf("append transfer log: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit transfer: %w", err)
	}
	return true, nil
}

// TotalBalance sums all balances without locking; concurrent postings may
// interleave and the result reflects whichever rows were committed when read.
func (l *PostgresLedger) TotalBalance(ctx context.Context) (decimal.Decimal, error) {
	var raw string
	if err := l.db.QueryRow(ctx, `SELECT COALESCE(SUM(balance), 0)::text FROM clients`).Scan(&raw); err != nil {
		return decimal.Zero, fmt.Errorf("sum balances: %w", err)
	}
	total, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse balance total: %w", err)
	}
	return total, nil
}

// TransferHistory returns every audit-log row in insertion order.
func (l *PostgresLedger) TransferHistory(ctx context.Context) ([]TransferRecord, error) {
	const query = `
        SELECT id, sender_id, receiver_id, authorized_by,
               amount::text, sender_balance_after::text, receiver_balance_after::text,
               created_at
        FROM transfer_log
        ORDER BY id`

	rows, err := l.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("read transfer log: %w", err)
	}
	defer rows.Close()

	var records []TransferRecord
	for rows.Next() {
		var (
			rec           TransferRecord
			amount        string
			senderAfter   string
			receiverAfter string
		)
		if err := rows.Scan(&rec.ID, &rec.SenderID, &rec.ReceiverID, &rec.AuthorizedBy, &amount, &senderAfter, &receiverAfter, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transfer log row: %w", err)
		}
		if rec.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse transfer amount: %w", err)
		}
		if rec.SenderBalanceAfter, err = decimal.NewFromString(senderAfter); err != nil {
			return nil, fmt.Errorf("parse sender balance: %w", err)
		}
		if rec.ReceiverBalanceAfter, err = decimal.NewFromString(receiverAfter); err != nil {
			return nil, fmt.Errorf("parse receiver balance: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transfer log: %w", err)
	}
	return records, nil
}

// balanceForUpdate reads an account balance under a row lock held until the
// surrounding transaction commits or rolls back.
func balanceForUpdate(ctx context.Context, tx pgx.Tx, accountID int64) (decimal.Decimal, error) {
	var raw string
	if err := tx.QueryRow(ctx, `SELECT balance::text FROM clients WHERE id = $1 FOR UPDATE`, accountID).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, ErrNotFound
		}
		return decimal.Zero, fmt.Errorf("lock balance for account %d: %w", accountID, err)
	}
	balance, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse balance for account %d: %w", accountID, err)
	}
	return balance, nil
}
