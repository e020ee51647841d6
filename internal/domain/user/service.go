package user

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/vendor-request-system/internal/domain/validation"
)

// Service exposes admin account management.
type Service struct {
	users Repository
}

// NewService creates a user Service.
func NewService(users Repository) *Service {
	return &Service{users: users}
}

// ListByRole returns vendor or center accounts.
func (s *Service) ListByRole(ctx context.Context, role Role) ([]User, error) {
	if !role.SelfRegistered() {
		return nil, validation.New("role", "must be vendor or center")
	}
	users, err := s.users.ListByRole(ctx, role)
	if err != nil {
		return nil, errors.Wrapf(err, "list %s users", role)
	}
	return users, nil
}

// Get returns a single account.
func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	return s.users.GetByID(ctx, id)
}

// SetStatus approves or rejects an account directly.
func (s *Service) SetStatus(ctx context.Context, id string, status Status) (*User, error) {
	if status != StatusApproved && status != StatusRejected {
		return nil, validation.New("status", "must be approved or rejected")
	}
	u, err := s.users.SetStatus(ctx, id, status)
	if err != nil {
		return nil, errors.Wrap(err, "set user status")
	}
	return u, nil
}
