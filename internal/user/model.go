package user

import "time"

// Permission levels for bank staff. Higher values grant broader access.
const (
	PermissionTeller  = 1
	PermissionManager = 2
	PermissionAdmin   = 3
)

// User is a bank employee who can authorize transfers between client
// accounts.
type User struct {
	ID              int64
	FirstName       string
	LastName        string
	Email           string
	Username        string
	PasswordHash    []byte
	PermissionLevel int
	CreatedAt       time.Time
}
