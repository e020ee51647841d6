package application

import (
	"context"
	"net/mail"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xenking/vendor-request-system/internal/domain/user"
	"github.com/xenking/vendor-request-system/internal/domain/validation"
	"github.com/xenking/vendor-request-system/internal/events"
)

// Locations validates province and district names.
type Locations interface {
	ValidateLocation(ctx context.Context, province, district string) error
}

type Service struct {
	repo      Repository
	locations Locations
	events    events.Publisher
}

func NewService(repo Repository, locations Locations, pub events.Publisher) *Service {
	return &Service{repo: repo, locations: locations, events: pub}
}

// Submit files an application for the caller. The type follows the caller's
// role and each user may hold one application per type.
func (s *Service) Submit(ctx context.Context, userID string, role user.Role, a Application) (*Application, error) {
	t, ok := TypeForRole(role)
	if !ok {
		return nil, ErrWrongType
	}
	if a.Type != "" && a.Type != t {
		return nil, ErrWrongType
	}
	a.Type = t

	normalize(&a)
	if err := validate(&a); err != nil {
		return nil, err
	}
	if err := s.locations.ValidateLocation(ctx, a.Province, a.District); err != nil {
		return nil, err
	}

	a.ID = uuid.New().String()
	a.UserID = userID
	a.Status = StatusPending
	if err := s.repo.Create(ctx, &a); err != nil {
		return nil, errors.Wrap(err, "create application")
	}

	zctx.From(ctx).Info("Application submitted",
		zap.String("application_id", a.ID),
		zap.String("type", string(a.Type)),
	)
	return &a, nil
}

func (s *Service) List(ctx context.Context, f Filter) ([]Application, error) {
	if f.Status != "" && !f.Status.valid() {
		return nil, validation.New("status", "must be pending, approved or rejected")
	}
	return s.repo.List(ctx, f)
}

// Mine returns the caller's own applications.
func (s *Service) Mine(ctx context.Context, userID string) ([]Application, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *Service) Get(ctx context.Context, id string) (*Application, error) {
	return s.repo.GetByID(ctx, id)
}

// Decide approves or rejects a pending application.
func (s *Service) Decide(ctx context.Context, id string, status Status) (*Application, error) {
	if status != StatusApproved && status != StatusRejected {
		return nil, validation.New("status", "must be approved or rejected")
	}

	a, err := s.repo.Decide(ctx, id, status)
	if err != nil {
		return nil, errors.Wrap(err, "decide application")
	}

	zctx.From(ctx).Info("Application decided",
		zap.String("application_id", a.ID),
		zap.String("user_id", a.UserID),
		zap.String("status", string(a.Status)),
	)
	events.Emit(ctx, s.events, events.Event{
		Type: events.ApplicationDecided,
		Key:  a.UserID,
		Payload: map[string]string{
			"applicationId": a.ID,
			"userId":        a.UserID,
			"type":          string(a.Type),
			"status":        string(a.Status),
		},
	})
	return a, nil
}

// Profile returns the business profile of a user.
func (s *Service) Profile(ctx context.Context, userID string, t Type) (*Application, error) {
	return s.repo.Profile(ctx, userID, t)
}

// District returns the district recorded on the user's profile.
func (s *Service) District(ctx context.Context, userID string, t Type) (string, error) {
	a, err := s.repo.Profile(ctx, userID, t)
	if err != nil {
		return "", err
	}
	return a.District, nil
}

func (st Status) valid() bool {
	return st == StatusPending || st == StatusApproved || st == StatusRejected
}

func normalize(a *Application) {
	for _, f := range []*string{
		&a.BusinessName, &a.PAN, &a.Email, &a.Phone, &a.Province, &a.District, &a.Category,
		&a.ContactPerson1.Name, &a.ContactPerson1.Phone,
		&a.ContactPerson2.Name, &a.ContactPerson2.Phone,
		&a.BankDetails.BankName, &a.BankDetails.AccountNumber,
		&a.BankDetails.Branch, &a.BankDetails.AccountHolderName,
		&a.PANDocument,
	} {
		*f = strings.TrimSpace(*f)
	}
	a.Email = strings.ToLower(a.Email)
}

func validate(a *Application) error {
	required := []struct {
		field string
		value string
	}{
		{"businessName", a.BusinessName},
		{"pan", a.PAN},
		{"email", a.Email},
		{"phone", a.Phone},
		{"province", a.Province},
		{"district", a.District},
		{"contactPerson1.name", a.ContactPerson1.Name},
		{"contactPerson1.phone", a.ContactPerson1.Phone},
		{"bankDetails.bankName", a.BankDetails.BankName},
		{"bankDetails.accountNumber", a.BankDetails.AccountNumber},
		{"bankDetails.branch", a.BankDetails.Branch},
		{"bankDetails.accountHolderName", a.BankDetails.AccountHolderName},
	}
	for _, r := range required {
		if r.value == "" {
			return validation.Required(r.field)
		}
	}

	if _, err := mail.ParseAddress(a.Email); err != nil {
		return validation.New("email", "is not a valid address")
	}
	if a.Type == TypeCenter && a.Category == "" {
		return validation.Required("category")
	}
	if (a.ContactPerson2.Name == "") != (a.ContactPerson2.Phone == "") {
		return validation.New("contactPerson2", "needs both name and phone")
	}
	return nil
}
