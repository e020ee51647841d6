// Package pricing computes order totals, district discounts and platform
// commission for a vendor cart.
//
// Amounts are NPR held as decimal.Decimal. Catalog prices carry at most two
// decimal places, so the line total is exact; the discount and commission are
// each rounded once to paisa with banker's rounding, and the final amount is
// total minus the rounded discount so the three always reconcile.
package pricing

import (
	"fmt"
	"math"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Rates are whole percentages.
const (
	SameDistrictDiscountRate  = 10
	CrossDistrictDiscountRate = 5
	CommissionRate            = 5
)

// Scale is the number of decimal places kept on every amount.
const Scale = 2

// ErrEmptyCart is returned when no lines were requested.
var ErrEmptyCart = errors.New("order must contain at least one item")

// ProductNotFoundError indicates a line references a product the lookup does
// not know.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product not found: %s", e.ProductID)
}

// InsufficientStockError indicates a product is unavailable or has fewer
// units than requested.
type InsufficientStockError struct {
	ProductID string
	Name      string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	name := e.Name
	if name == "" {
		name = e.ProductID
	}
	return fmt.Sprintf("product %s is not available in requested quantity", name)
}

// InvalidQuantityError indicates a line with a quantity below one.
type InvalidQuantityError struct {
	ProductID string
	Quantity  int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity for product %s must be at least 1, got %d", e.ProductID, e.Quantity)
}

// Line is a requested product and quantity.
type Line struct {
	ProductID string
	Quantity  int
}

// Snapshot is the catalog state of a product at pricing time.
type Snapshot struct {
	ProductID string
	Name      string
	Price     decimal.Decimal
	Quantity  int
	Available bool
}

// Lookup resolves product snapshots by id.
type Lookup interface {
	Product(id string) (Snapshot, bool)
}

// LookupFunc adapts a function to Lookup.
type LookupFunc func(id string) (Snapshot, bool)

// Product implements Lookup.
func (f LookupFunc) Product(id string) (Snapshot, bool) { return f(id) }

// MapLookup is a Lookup over an in-memory index.
type MapLookup map[string]Snapshot

// Product implements Lookup.
func (m MapLookup) Product(id string) (Snapshot, bool) {
	s, ok := m[id]
	return s, ok
}

// NewMapLookup indexes snapshots by product id.
func NewMapLookup(snapshots []Snapshot) MapLookup {
	m := make(MapLookup, len(snapshots))
	for _, s := range snapshots {
		m[s.ProductID] = s
	}
	return m
}

// PricedLine freezes the unit price charged for a line.
type PricedLine struct {
	ProductID string
	Name      string
	Quantity  int
	Price     decimal.Decimal
}

// Subtotal returns price times quantity.
func (l PricedLine) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// PricedOrder is the result of pricing a cart. It is not persisted.
type PricedOrder struct {
	Lines            []PricedLine
	TotalAmount      decimal.Decimal
	DiscountRate     int
	DiscountAmount   decimal.Decimal
	FinalAmount      decimal.Decimal
	CommissionRate   int
	CommissionAmount decimal.Decimal
	SameDistrict     bool
}

// DiscountRateFor returns the discount percentage for a vendor buying from a
// center. Districts are compared exactly.
func DiscountRateFor(vendorDistrict, centerDistrict string) int {
	if vendorDistrict == centerDistrict {
		return SameDistrictDiscountRate
	}
	return CrossDistrictDiscountRate
}

// PriceOrder resolves every line against lookup, checks stock and computes
// the order amounts. It fails on the first offending line and never returns
// a partial result.
//
// Repeated lines for the same product are checked against the cumulative
// quantity requested.
func PriceOrder(vendorDistrict, centerDistrict string, lines []Line, lookup Lookup) (*PricedOrder, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	priced := make([]PricedLine, 0, len(lines))
	demand := make(map[string]int, len(lines))
	total := decimal.Zero

	for _, line := range lines {
		if line.Quantity < 1 {
			return nil, &InvalidQuantityError{ProductID: line.ProductID, Quantity: line.Quantity}
		}

		p, ok := lookup.Product(line.ProductID)
		if !ok {
			return nil, &ProductNotFoundError{ProductID: line.ProductID}
		}

		// Compared against the remaining stock so the running sum never
		// overflows.
		prior := demand[line.ProductID]
		if !p.Available || line.Quantity > p.Quantity-prior {
			requested := prior + line.Quantity
			if requested < prior {
				requested = math.MaxInt
			}
			return nil, &InsufficientStockError{
				ProductID: p.ProductID,
				Name:      p.Name,
				Requested: requested,
				Available: p.Quantity,
			}
		}
		demand[line.ProductID] = prior + line.Quantity

		pl := PricedLine{
			ProductID: p.ProductID,
			Name:      p.Name,
			Quantity:  line.Quantity,
			Price:     p.Price,
		}
		total = total.Add(pl.Subtotal())
		priced = append(priced, pl)
	}

	rate := DiscountRateFor(vendorDistrict, centerDistrict)
	discount := percent(total, rate)
	final := total.Sub(discount)
	commission := percent(final, CommissionRate)

	return &PricedOrder{
		Lines:            priced,
		TotalAmount:      total.Round(Scale),
		DiscountRate:     rate,
		DiscountAmount:   discount,
		FinalAmount:      final.Round(Scale),
		CommissionRate:   CommissionRate,
		CommissionAmount: commission,
		SameDistrict:     rate == SameDistrictDiscountRate,
	}, nil
}

func percent(amount decimal.Decimal, rate int) decimal.Decimal {
	return amount.
		Mul(decimal.NewFromInt(int64(rate))).
		Div(decimal.NewFromInt(100)).
		RoundBank(Scale)
}
