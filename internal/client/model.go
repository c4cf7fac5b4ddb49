package client

import (
	"time"

	"github.com/shopspring/decimal"
)

// Client represents one account holder: identity and contact details plus
// the money-holding balance. The balance is mutated exclusively by the
// ledger engine; this package only reads it.
type Client struct {
	ID        int64
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Username  string
	PINHash   []byte
	Balance   decimal.Decimal
	CreatedAt time.Time
}
