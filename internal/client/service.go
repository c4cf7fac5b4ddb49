package client

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/banksys/bankcore/internal/ledger"
)

// Service manages the client lifecycle and keeps the ledger engine informed
// of account existence. Balance reads go through the engine so both storage
// modes agree on the committed value.
type Service struct {
	repo   Repository
	ledger ledger.Ledger
}

// NewService builds a client service instance.
func NewService(repo Repository, ledger ledger.Ledger) *Service {
	return &Service{repo: repo, ledger: ledger}
}

// CreateInput captures the data required to open a client account.
type CreateInput struct {
	FirstName      string
	LastName       string
	Email          string
	Phone          string
	Username       string
	PIN            string
	InitialBalance decimal.Decimal
}

// UpdateInput captures the mutable identity fields. The balance is not here
// on purpose; it belongs to the engine.
type UpdateInput struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Username  string
	PIN       string // optional; empty keeps the current hash
}

// Create validates input, hashes the PIN and registers the new account with
// the ledger engine.
func (s *Service) Create(ctx context.Context, input CreateInput) (Client, error) {
	if err := validateIdentity(input.FirstName, input.LastName, input.Email, input.Username); err != nil {
		return Client{}, err
	}
	if len(input.PIN) < 4 {
		return Client{}, errors.New("PIN must be at least 4 digits")
	}
	if input.InitialBalance.IsNegative() {
		return Client{}, errors.New("initial balance cannot be negative")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.PIN), bcrypt.DefaultCost)
	if err != nil {
		return Client{}, err
	}

	c := Client{
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		Email:     strings.TrimSpace(input.Email),
		Phone:     strings.TrimSpace(input.Phone),
		Username:  strings.TrimSpace(input.Username),
		PINHash:   hash,
		Balance:   input.InitialBalance,
		CreatedAt: time.Now().UTC(),
	}

	id, err := s.repo.Create(ctx, c)
	if err != nil {
		return Client{}, err
	}
	c.ID = id

	if err := s.ledger.EnsureAccount(ctx, id, input.InitialBalance); err != nil {
		return Client{}, err
	}

	return c, nil
}

// Get returns one client with the committed balance from the engine.
func (s *Service) Get(ctx context.Context, id int64) (Client, error) {
	c, err := s.repo.Find(ctx, id)
	if err != nil {
		return Client{}, err
	}
	balance, err := s.ledger.Balance(ctx, id)
	if err != nil {
		return Client{}, err
	}
	c.Balance = balance
	return c, nil
}

// List returns all clients with committed balances.
func (s *Service) List(ctx context.Context) ([]Client, error) {
	clients, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range clients {
		balance, err := s.ledger.Balance(ctx, clients[i].ID)
		if err != nil {
			return nil, err
		}
		clients[i].Balance = balance
	}
	return clients, nil
}

// Update rewrites identity fields, rehashing the PIN only when a new one is
// supplied.
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput) (Client, error) {
	if err := validateIdentity(input.FirstName, input.LastName, input.Email, input.Username); err != nil {
		return Client{}, err
	}

	existing, err := s.repo.Find(ctx, id)
	if err != nil {
		return Client{}, err
	}

	hash := existing.PINHash
	if input.PIN != "" {
		if len(input.PIN) < 4 {
			return Client{}, errors.New("PIN must be at least 4 digits")
		}
		if hash, err = bcrypt.GenerateFromPassword([]byte(input.PIN), bcrypt.DefaultCost); err != nil {
			return Client{}, err
		}
	}

	updated := Client{
		ID:        id,
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		Email:     strings.TrimSpace(input.Email),
		Phone:     strings.TrimSpace(input.Phone),
		Username:  strings.TrimSpace(input.Username),
		PINHash:   hash,
		CreatedAt: existing.CreatedAt,
	}
	if err := s.repo.Update(ctx, updated); err != nil {
		return Client{}, err
	}
	return s.Get(ctx, id)
}

// Delete removes a client. Accounts named in the transfer log are kept: the
// audit trail must stay resolvable. The SQL store enforces the same rule with
// a foreign key.
func (s *Service) Delete(ctx context.Context, id int64) error {
	history, err := s.ledger.TransferHistory(ctx)
	if err != nil {
		return err
	}
	for _, rec := range history {
		if rec.SenderID == id || rec.ReceiverID == id {
			return ErrReferenced
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	return s.ledger.RemoveAccount(ctx, id)
}

// VerifyPIN compares a candidate PIN against the stored hash.
func (s *Service) VerifyPIN(ctx context.Context, id int64, pin string) error {
	c, err := s.repo.Find(ctx, id)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword(c.PINHash, []byte(pin)); err != nil {
		return errors.New("invalid PIN")
	}
	return nil
}

func validateIdentity(firstName, lastName, email, username string) error {
	if strings.TrimSpace(firstName) == "" || strings.TrimSpace(lastName) == "" {
		return errors.New("first and last name are required")
	}
	if !strings.Contains(email, "@") {
		return errors.New("email is invalid")
	}
	if strings.TrimSpace(username) == "" {
		return errors.New("username is required")
	}
	return nil
}
