package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/banksys/bankcore/internal/ledger"
)

// Service manages bank staff accounts. New users are registered with the
// ledger engine so they can authorize transfers.
type Service struct {
	repo   Repository
	ledger ledger.Ledger
}

// NewService builds a user service instance.
func NewService(repo Repository, ledger ledger.Ledger) *Service {
	return &Service{repo: repo, ledger: ledger}
}

// CreateInput captures the data required to register a staff member.
type CreateInput struct {
	FirstName       string
	LastName        string
	Email           string
	Username        string
	Password        string
	PermissionLevel int
}

// UpdateInput captures the mutable fields. An empty password keeps the
// current hash.
type UpdateInput struct {
	FirstName       string
	LastName        string
	Email           string
	Username        string
	Password        string
	PermissionLevel int
}

// Create validates input, hashes the password and registers the user with
// the ledger engine as a potential transfer authorizer.
func (s *Service) Create(ctx context.Context, input CreateInput) (User, error) {
	if err := validate(input.FirstName, input.LastName, input.Email, input.Username, input.PermissionLevel); err != nil {
		return User{}, err
	}
	if len(input.Password) < 8 {
		return User{}, errors.New("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	u := User{
		FirstName:       strings.TrimSpace(input.FirstName),
		LastName:        strings.TrimSpace(input.LastName),
		Email:           strings.TrimSpace(input.Email),
		Username:        strings.TrimSpace(input.Username),
		PasswordHash:    hash,
		PermissionLevel: input.PermissionLevel,
		CreatedAt:       time.Now().UTC(),
	}

	id, err := s.repo.Create(ctx, u)
	if err != nil {
		return User{}, err
	}
	u.ID = id

	if err := s.ledger.EnsureUser(ctx, id); err != nil {
		return User{}, err
	}

	return u, nil
}

// Get returns one user by id.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	return s.repo.Find(ctx, id)
}

// List returns all users.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// Update rewrites user fields, rehashing the password only when a new one is
// supplied.
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput) (User, error) {
	if err := validate(input.FirstName, input.LastName, input.Email, input.Username, input.PermissionLevel); err != nil {
		return User{}, err
	}

	existing, err := s.repo.Find(ctx, id)
	if err != nil {
		return User{}, err
	}

	hash := existing.PasswordHash
	if input.Password != "" {
		if len(input.Password) < 8 {
			return User{}, errors.New("password must be at least 8 characters")
		}
		if hash, err = bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost); err != nil {
			return User{}, err
		}
	}

	updated := User{
		ID:              id,
		FirstName:       strings.TrimSpace(input.FirstName),
		LastName:        strings.TrimSpace(input.LastName),
		Email:           strings.TrimSpace(input.Email),
		Username:        strings.TrimSpace(input.Username),
		PasswordHash:    hash,
		PermissionLevel: input.PermissionLevel,
		CreatedAt:       existing.CreatedAt,
	}
	if err := s.repo.Update(ctx, updated); err != nil {
		return User{}, err
	}
	return updated, nil
}

// Delete removes a user. Users named as authorizer in the transfer log are
// kept so the audit trail stays resolvable. The SQL store enforces the same
// rule with a foreign key.
func (s *Service) Delete(ctx context.Context, id int64) error {
	history, err := s.ledger.TransferHistory(ctx)
	if err != nil {
		return err
	}
	for _, rec := range history {
		if rec.AuthorizedBy == id {
			return ErrReferenced
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	return s.ledger.RemoveUser(ctx, id)
}

func validate(firstName, lastName, email, username string, permission int) error {
	if strings.TrimSpace(firstName) == "" || strings.TrimSpace(lastName) == "" {
		return errors.New("first and last name are required")
	}
	if !strings.Contains(email, "@") {
		return errors.New("email is invalid")
	}
	if strings.TrimSpace(username) == "" {
		return errors.New("username is required")
	}
	if permission < PermissionTeller || permission > PermissionAdmin {
		return errors.New("permission level is out of range")
	}
	return nil
}
