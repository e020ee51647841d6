// Package order places vendor orders against a center's catalog and tracks
// them through review, payment and completion.
package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Status is the fulfilment state of an order.
//
//	pending -> approved | rejected
//	pending | approved -> paid (payment completed)
//	paid -> completed
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusPaid      Status = "paid"
	StatusCompleted Status = "completed"
)

// PaymentStatus is the settlement state of an order.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
)

// Sentinel errors for order operations.
var (
	ErrNotFound              = errors.New("order not found")
	ErrNotOwner              = errors.New("not authorized for this order")
	ErrVendorProfileNotFound = errors.New("vendor profile not found")
	ErrCenterProfileNotFound = errors.New("center profile not found")
	ErrInvalidTransition     = errors.New("order status does not allow this change")
)

// Item is an order line with the unit price frozen at placement.
type Item struct {
	ProductID   string
	ProductName string
	Quantity    int
	Price       decimal.Decimal
}

// Order is a vendor purchase from a single center.
type Order struct {
	ID               string
	VendorID         string
	CenterID         string
	Items            []Item
	TotalAmount      decimal.Decimal
	DiscountRate     int
	DiscountAmount   decimal.Decimal
	FinalAmount      decimal.Decimal
	CommissionRate   int
	CommissionAmount decimal.Decimal
	// VendorDistrict is the vendor's district at placement, kept to explain
	// the discount tier.
	VendorDistrict string
	Status         Status
	PaymentStatus  PaymentStatus
	Notes          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Stats summarises a vendor's orders.
type Stats struct {
	TotalOrders     int
	TotalAmount     decimal.Decimal
	TotalDiscount   decimal.Decimal
	TotalCommission decimal.Decimal
	TotalCenters    int
}

// CenterCommission is the commission owed by one center.
type CenterCommission struct {
	CenterID     string
	BusinessName string
	Orders       int
	Sales        decimal.Decimal
	Commission   decimal.Decimal
}

// Repository persists orders.
type Repository interface {
	// Create reserves stock for every item and inserts the order in one
	// transaction. A product whose stock no longer covers its item fails
	// the whole order with *pricing.InsufficientStockError.
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	ListByVendor(ctx context.Context, vendorID string) ([]Order, error)
	ListByCenter(ctx context.Context, centerID string) ([]Order, error)
	// UpdatePayment sets the payment status of a pending or approved order.
	// A completed payment moves the order to paid.
	UpdatePayment(ctx context.Context, id string, payment PaymentStatus) error
	// Transition moves an order from one status to another. With restock
	// the reserved quantities are returned to the catalog.
	Transition(ctx context.Context, id string, from, to Status, restock bool) error
	Stats(ctx context.Context, vendorID string) (*Stats, error)
	Commissions(ctx context.Context) ([]CenterCommission, error)
}
