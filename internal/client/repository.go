package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound indicates the client id does not exist.
	ErrNotFound = errors.New("client not found")

	// ErrReferenced indicates the client cannot be deleted because transfer
	// history rows reference it.
	ErrReferenced = errors.New("client is referenced by transfer history")
)

// Repository persists client records.
type Repository interface {
	Create(ctx context.Context, client Client) (int64, error)
	Find(ctx context.Context, id int64) (Client, error)
	List(ctx context.Context) ([]Client, error)
	Update(ctx context.Context, client Client) error
	Delete(ctx context.Context, id int64) error
}

// PostgresRepository stores clients in PostgreSQL. The clients table doubles
// as the engine's balance store, so creation here is what brings an account
// into existence for the ledger.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a client row and returns the generated id.
func (r *PostgresRepository) Create(ctx context.Context, c Client) (int64, error) {
	const query = `
        INSERT INTO clients (first_name, last_name, email, phone, username, pin_hash, balance)
        VALUES ($1, $2, $3, $4, $5, $6, $7::numeric)
        RETURNING id`
	var id int64
	if err := r.db.QueryRow(ctx, query, c.FirstName, c.LastName, c.Email, c.Phone, c.Username, c.PINHash, c.Balance.String()).Scan(&id); err != nil {
		return 0, fmt.Errorf("create client: %w", err)
	}
	return id, nil
}

// Find fetches one client by id.
func (r *PostgresRepository) Find(ctx context.Context, id int64) (Client, error) {
	const query = `
        SELECT id, first_name, last_name, email, phone, username, pin_hash, balance::text, created_at
        FROM clients WHERE id = $1`
	c, err := scanClient(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Client{}, ErrNotFound
		}
		return Client{}, fmt.Errorf("find client %d: %w", id, err)
	}
	return c, nil
}

// List returns all clients in id order.
func (r *PostgresRepository) List(ctx context.Context) ([]Client, error) {
	const query = `
        SELECT id, first_name, last_name, email, phone, username, pin_hash, balance::text, created_at
        FROM clients ORDER BY id`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	var clients []Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan client row: %w", err)
		}
		clients = append(clients, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clients: %w", err)
	}
	return clients, nil
}

// Update rewrites identity and contact fields. The balance column is
// deliberately absent: only the ledger engine mutates it.
func (r *PostgresRepository) Update(ctx context.Context, c Client) error {
	const query = `
        UPDATE clients
        SET first_name = $2, last_name = $3, email = $4, phone = $5, username = $6, pin_hash = $7
        WHERE id = $1`
	cmd, err := r.db.Exec(ctx, query, c.ID, c.FirstName, c.LastName, c.Email, c.Phone, c.Username, c.PINHash)
	if err != nil {
		return fmt.Errorf("update client %d: %w", c.ID, err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a client. Rows referenced by the transfer log are protected
// by a foreign key and surface as ErrReferenced.
func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrReferenced
		}
		return fmt.Errorf("delete client %d: %w", id, err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanClient(row pgx.Row) (Client, error) {
	var (
		c       Client
		phone   *string
		balance string
	)
	if err := row.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &phone, &c.Username, &c.PINHash, &balance, &c.CreatedAt); err != nil {
		return Client{}, err
	}
	if phone != nil {
		c.Phone = *phone
	}
	parsed, err := decimal.NewFromString(balance)
	if err != nil {
		return Client{}, fmt.Errorf("parse balance: %w", err)
	}
	c.Balance = parsed
	return c, nil
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
