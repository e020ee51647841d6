package product

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/vendor-request-system/internal/domain/validation"
)

// Service enforces center ownership over catalog writes.
type Service struct {
	repo Repository
}

// NewService creates a product Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ListByCenter returns every product of a center, including unavailable ones.
func (s *Service) ListByCenter(ctx context.Context, centerID string) ([]Product, error) {
	return s.repo.ListByCenter(ctx, centerID, false)
}

// ListAvailable returns what vendors may order from a center.
func (s *Service) ListAvailable(ctx context.Context, centerID string) ([]Product, error) {
	return s.repo.ListByCenter(ctx, centerID, true)
}

func (s *Service) Get(ctx context.Context, id string) (*Product, error) {
	return s.repo.GetByID(ctx, id)
}

// Create adds a product to the caller's catalog.
func (s *Service) Create(ctx context.Context, centerID string, p Product) (*Product, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.Category = strings.TrimSpace(p.Category)
	if p.Name == "" {
		return nil, validation.Required("name")
	}
	if err := checkPrice(p.Price); err != nil {
		return nil, err
	}
	if err := checkQuantity(p.Quantity); err != nil {
		return nil, err
	}

	p.ID = uuid.New().String()
	p.CenterID = centerID
	p.Price = p.Price.Round(2)
	if err := s.repo.Create(ctx, &p); err != nil {
		return nil, errors.Wrap(err, "create product")
	}
	return &p, nil
}

// Update patches a product owned by centerID.
func (s *Service) Update(ctx context.Context, centerID, id string, patch Patch) (*Product, error) {
	if err := s.authorize(ctx, centerID, id); err != nil {
		return nil, err
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, validation.Required("name")
		}
		patch.Name = &name
	}
	if patch.Price != nil {
		if err := checkPrice(*patch.Price); err != nil {
			return nil, err
		}
		rounded := patch.Price.Round(2)
		patch.Price = &rounded
	}
	if patch.Quantity != nil {
		if err := checkQuantity(*patch.Quantity); err != nil {
			return nil, err
		}
	}

	p, err := s.repo.Update(ctx, id, centerID, patch)
	if err != nil {
		return nil, errors.Wrap(err, "update product")
	}
	return p, nil
}

// Delete removes a product owned by centerID.
func (s *Service) Delete(ctx context.Context, centerID, id string) error {
	if err := s.authorize(ctx, centerID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id, centerID); err != nil {
		return errors.Wrap(err, "delete product")
	}
	return nil
}

func (s *Service) authorize(ctx context.Context, centerID, id string) error {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if p.CenterID != centerID {
		return ErrNotOwner
	}
	return nil
}

func checkPrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return validation.New("price", "must not be negative")
	}
	if price.Round(2).GreaterThan(MaxPrice) {
		return validation.New("price", "must not exceed "+MaxPrice.StringFixed(2))
	}
	return nil
}

func checkQuantity(qty int) error {
	switch {
	case qty < 0:
		return validation.New("quantity", "must not be negative")
	case qty > MaxQuantity:
		return validation.New("quantity", fmt.Sprintf("must not exceed %d", MaxQuantity))
	}
	return nil
}
