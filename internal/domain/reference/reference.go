// Package reference serves the lookup data shared by every role: provinces,
// districts, platform bank accounts and product categories.
package reference

import (
	"context"
	"strings"

	"github.com/go-faster/errors"

	"github.com/xenking/vendor-request-system/internal/domain/validation"
)

// Sentinel errors for reference data.
var (
	ErrNotFound  = errors.New("reference entry not found")
	ErrDuplicate = errors.New("reference entry already exists")
)

type Province struct {
	ID   int
	Name string
}

type District struct {
	ID         int
	ProvinceID int
	Name       string
}

// BankDetail is a platform bank account that commission is paid into.
type BankDetail struct {
	ID                int
	BankName          string
	Branch            string
	AccountNumber     string
	AccountHolderName string
}

type Category struct {
	ID          int
	Name        string
	Description string
}

// Repository is the canonical reference-data store.
type Repository interface {
	Provinces(ctx context.Context) ([]Province, error)
	CreateProvince(ctx context.Context, name string) (*Province, error)
	Districts(ctx context.Context) ([]District, error)
	DistrictsByProvince(ctx context.Context, provinceID int) ([]District, error)
	CreateDistrict(ctx context.Context, provinceID int, name string) (*District, error)
	// DistrictInProvince reports whether the named district belongs to the
	// named province.
	DistrictInProvince(ctx context.Context, province, district string) (bool, error)
	BankDetails(ctx context.Context) ([]BankDetail, error)
	CreateBankDetail(ctx context.Context, b *BankDetail) error
	Categories(ctx context.Context) ([]Category, error)
	CategoryByID(ctx context.Context, id int) (*Category, error)
}

// Service validates writes to the reference store.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Provinces(ctx context.Context) ([]Province, error) {
	return s.repo.Provinces(ctx)
}

func (s *Service) Districts(ctx context.Context) ([]District, error) {
	return s.repo.Districts(ctx)
}

func (s *Service) DistrictsByProvince(ctx context.Context, provinceID int) ([]District, error) {
	return s.repo.DistrictsByProvince(ctx, provinceID)
}

func (s *Service) AddProvince(ctx context.Context, name string) (*Province, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validation.Required("name")
	}
	p, err := s.repo.CreateProvince(ctx, name)
	if err != nil {
		return nil, errors.Wrapf(err, "create province %q", name)
	}
	return p, nil
}

// AddDistrict adds a district under an existing province. District names are
// unique across the country.
func (s *Service) AddDistrict(ctx context.Context, provinceID int, name string) (*District, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validation.Required("name")
	}
	if provinceID <= 0 {
		return nil, validation.Required("provinceId")
	}
	d, err := s.repo.CreateDistrict(ctx, provinceID, name)
	if err != nil {
		return nil, errors.Wrapf(err, "create district %q", name)
	}
	return d, nil
}

// ValidateLocation checks that district lies in province.
func (s *Service) ValidateLocation(ctx context.Context, province, district string) error {
	ok, err := s.repo.DistrictInProvince(ctx, province, district)
	if err != nil {
		return errors.Wrap(err, "check location")
	}
	if !ok {
		return validation.New("district", "is not a district of "+province)
	}
	return nil
}

func (s *Service) BankDetails(ctx context.Context) ([]BankDetail, error) {
	return s.repo.BankDetails(ctx)
}

func (s *Service) AddBankDetail(ctx context.Context, b BankDetail) (*BankDetail, error) {
	b.BankName = strings.TrimSpace(b.BankName)
	b.Branch = strings.TrimSpace(b.Branch)
	b.AccountNumber = strings.TrimSpace(b.AccountNumber)
	b.AccountHolderName = strings.TrimSpace(b.AccountHolderName)

	switch {
	case b.BankName == "":
		return nil, validation.Required("bankName")
	case b.Branch == "":
		return nil, validation.Required("branch")
	case b.AccountNumber == "":
		return nil, validation.Required("accountNumber")
	case b.AccountHolderName == "":
		return nil, validation.Required("accountHolderName")
	}

	if err := s.repo.CreateBankDetail(ctx, &b); err != nil {
		return nil, errors.Wrap(err, "create bank detail")
	}
	return &b, nil
}

func (s *Service) Categories(ctx context.Context) ([]Category, error) {
	return s.repo.Categories(ctx)
}

func (s *Service) Category(ctx context.Context, id int) (*Category, error) {
	return s.repo.CategoryByID(ctx, id)
}
