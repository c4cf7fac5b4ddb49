package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound indicates the user id does not exist.
	ErrNotFound = errors.New("user not found")

	// ErrReferenced indicates the user cannot be deleted because transfer
	// history rows name them as the authorizer.
	ErrReferenced = errors.New("user is referenced by transfer history")
)

// Repository persists bank staff records.
type Repository interface {
	Create(ctx context.Context, user User) (int64, error)
	Find(ctx context.Context, id int64) (User, error)
	List(ctx context.Context) ([]User, error)
	Update(ctx context.Context, user User) error
	Delete(ctx context.Context, id int64) error
}

// PostgresRepository stores users in PostgreSQL. The users table is the same
// one the engine consults for the authorization check during transfers.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a user row and returns the generated id.
func (r *PostgresRepository) Create(ctx context.Context, u User) (int64, error) {
	const query = `
        INSERT INTO users (first_name, last_name, email, username, password_hash, permission_level)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id`
	var id int64
	if err := r.db.QueryRow(ctx, query, u.FirstName, u.LastName, u.Email, u.Username, u.PasswordHash, u.PermissionLevel).Scan(&id); err != nil {
		return 0, fmt.Errorf("create user: %w", err)
	}
	return id, nil
}

// Find fetches one user by id.
func (r *PostgresRepository) Find(ctx context.Context, id int64) (User, error) {
	const query = `
        SELECT id, first_name, last_name, email, username, password_hash, permission_level, created_at
        FROM users WHERE id = $1`
	u, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("find user %d: %w", id, err)
	}
	return u, nil
}

// List returns all users in id order.
func (r *PostgresRepository) List(ctx context.Context) ([]User, error) {
	const query = `
        SELECT id, first_name, last_name, email, username, password_hash, permission_level, created_at
        FROM users ORDER BY id`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

// Update rewrites identity fields and the permission level.
func (r *PostgresRepository) Update(ctx context.Context, u User) error {
	const query = `
        UPDATE users
        SET first_name = $2, last_name = $3, email = $4, username = $5, password_hash = $6, permission_level = $7
        WHERE id = $1`
	cmd, err := r.db.Exec(ctx, query, u.ID, u.FirstName, u.LastName, u.Email, u.Username, u.PasswordHash, u.PermissionLevel)
	if err != nil {
		return fmt.Errorf("update user %d: %w", u.ID, err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a user. Rows referenced by the transfer log are protected by
// a foreign key and surface as ErrReferenced.
func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrReferenced
		}
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Username, &u.PasswordHash, &u.PermissionLevel, &u.CreatedAt); err != nil {
		return User{}, err
	}
	return u, nil
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
