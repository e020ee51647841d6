// Package product manages the catalog each distribution center stocks.
package product

import (
	"context"
	"math"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for catalog access.
var (
	ErrNotFound = errors.New("product not found")
	ErrNotOwner = errors.New("product belongs to another center")
)

// Catalog bounds, matching the NUMERIC(14,2) price and INTEGER quantity
// columns.
var (
	MaxPrice    = decimal.RequireFromString("999999999999.99")
	MaxQuantity = math.MaxInt32
)

// Product is a catalog item stocked by a distribution center.
type Product struct {
	ID          string
	CenterID    string
	Name        string
	Description string
	Price       decimal.Decimal
	Quantity    int
	Category    string
	Image       string
	IsAvailable bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Patch carries a partial update. Nil fields are left unchanged.
type Patch struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Quantity    *int
	Category    *string
	Image       *string
	IsAvailable *bool
}

// Repository defines catalog persistence.
type Repository interface {
	ListByCenter(ctx context.Context, centerID string, onlyAvailable bool) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	// GetByIDs returns the products among ids stocked by centerID.
	GetByIDs(ctx context.Context, centerID string, ids []string) ([]Product, error)
	Create(ctx context.Context, p *Product) error
	// Update applies p to the product if centerID owns it.
	Update(ctx context.Context, id, centerID string, p Patch) (*Product, error)
	Delete(ctx context.Context, id, centerID string) error
}
