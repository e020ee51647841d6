// Package user models platform accounts and their roles.
package user

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// Role is the closed set of account kinds.
type Role string

const (
	RoleVendor Role = "vendor"
	RoleCenter Role = "center"
	RoleAdmin  Role = "admin"
)

// ErrInvalidRole is returned by ParseRole for unknown values.
var ErrInvalidRole = errors.New("invalid role")

// ParseRole converts s to a Role.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleVendor, RoleCenter, RoleAdmin:
		return r, nil
	default:
		return "", errors.Wrapf(ErrInvalidRole, "%q", s)
	}
}

// SelfRegistered reports whether accounts of this role may sign up on their
// own. Admins are provisioned out of band.
func (r Role) SelfRegistered() bool {
	return r == RoleVendor || r == RoleCenter
}

func (r Role) String() string { return string(r) }

// Status tracks admin review of an account.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Sentinel errors for user lookups and writes.
var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("user already exists")
)

// User is a platform account.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Role         Role
	IsApproved   bool
	Status       Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Repository persists accounts.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	ListByRole(ctx context.Context, role Role) ([]User, error)
	// SetStatus records a review decision; IsApproved follows the status.
	SetStatus(ctx context.Context, id string, status Status) (*User, error)
}
