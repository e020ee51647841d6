// Package application implements vendor and center onboarding: a business
// submits an application which an admin approves or rejects once.
package application

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/vendor-request-system/internal/domain/user"
)

// Type distinguishes vendor and center applications.
type Type string

const (
	TypeVendor Type = "vendor"
	TypeCenter Type = "center"
)

// TypeForRole maps an account role to the application it may submit.
func TypeForRole(r user.Role) (Type, bool) {
	switch r {
	case user.RoleVendor:
		return TypeVendor, true
	case user.RoleCenter:
		return TypeCenter, true
	default:
		return "", false
	}
}

// Status is the review state. Approved and rejected are terminal.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Sentinel errors for the application workflow.
var (
	ErrNotFound         = errors.New("application not found")
	ErrAlreadySubmitted = errors.New("application already submitted")
	ErrAlreadyDecided   = errors.New("application already reviewed")
	ErrWrongType        = errors.New("application type does not match account role")
)

type Contact struct {
	Name  string
	Phone string
}

// BankDetails is the payout account of the applicant.
type BankDetails struct {
	BankName          string
	AccountNumber     string
	Branch            string
	AccountHolderName string
}

// Application is a business profile under review. Once approved it is the
// source of the district used for order pricing.
type Application struct {
	ID             string
	UserID         string
	Type           Type
	BusinessName   string
	PAN            string
	Email          string
	Phone          string
	Province       string
	District       string
	Category       string
	ContactPerson1 Contact
	ContactPerson2 Contact
	BankDetails    BankDetails
	PANDocument    string
	Status         Status
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Type   Type
	Status Status
}

// Repository persists applications.
type Repository interface {
	Create(ctx context.Context, a *Application) error
	GetByID(ctx context.Context, id string) (*Application, error)
	List(ctx context.Context, f Filter) ([]Application, error)
	ListByUser(ctx context.Context, userID string) ([]Application, error)
	// Decide moves a pending application to status. Approval also marks the
	// owning user approved in the same transaction. A non-pending
	// application yields ErrAlreadyDecided.
	Decide(ctx context.Context, id string, status Status) (*Application, error)
	// Profile returns the user's application of type t, preferring an
	// approved one.
	Profile(ctx context.Context, userID string, t Type) (*Application, error)
}
