package pricing

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func snapshot(id, price string, qty int) Snapshot {
	return Snapshot{
		ProductID: id,
		Name:      "Product " + id,
		Price:     dec(price),
		Quantity:  qty,
		Available: true,
	}
}

func assertAmount(t *testing.T, want string, got decimal.Decimal, field string) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "%s: want %s, got %s", field, want, got)
}

func TestPriceOrder_SameDistrict(t *testing.T) {
	lookup := NewMapLookup([]Snapshot{snapshot("p1", "100", 10)})

	got, err := PriceOrder("Kathmandu", "Kathmandu", []Line{{ProductID: "p1", Quantity: 2}}, lookup)
	require.NoError(t, err)

	assertAmount(t, "200", got.TotalAmount, "total")
	assert.Equal(t, 10, got.DiscountRate)
	assertAmount(t, "20", got.DiscountAmount, "discount")
	assertAmount(t, "180", got.FinalAmount, "final")
	assert.Equal(t, 5, got.CommissionRate)
	assertAmount(t, "9", got.CommissionAmount, "commission")
	assert.True(t, got.SameDistrict)
}

func TestPriceOrder_CrossDistrict(t *testing.T) {
	lookup := NewMapLookup([]Snapshot{snapshot("p1", "100", 10)})

	got, err := PriceOrder("Kathmandu", "Lalitpur", []Line{{ProductID: "p1", Quantity: 2}}, lookup)
	require.NoError(t, err)

	assertAmount(t, "200", got.TotalAmount, "total")
	assert.Equal(t, 5, got.DiscountRate)
	assertAmount(t, "10", got.DiscountAmount, "discount")
	assertAmount(t, "190", got.FinalAmount, "final")
	assertAmount(t, "9.50", got.CommissionAmount, "commission")
	assert.False(t, got.SameDistrict)
}

func TestPriceOrder_DistrictComparisonIsExact(t *testing.T) {
	lookup := NewMapLookup([]Snapshot{snapshot("p1", "100", 10)})

	got, err := PriceOrder("kathmandu", "Kathmandu", []Line{{ProductID: "p1", Quantity: 1}}, lookup)
	require.NoError(t, err)
	assert.Equal(t, CrossDistrictDiscountRate, got.DiscountRate)
}

func TestPriceOrder_MultipleLines(t *testing.T) {
	lookup := NewMapLookup([]Snapshot{
		snapshot("p1", "12.50", 5),
		snapshot("p2", "3.99", 100),
	})

	got, err := PriceOrder("Kaski", "Kaski", []Line{
		{ProductID: "p1", Quantity: 3},
		{ProductID: "p2", Quantity: 7},
	}, lookup)
	require.NoError(t, err)

	// 37.50 + 27.93
	assertAmount(t, "65.43", got.TotalAmount, "total")
	assertAmount(t, "6.54", got.DiscountAmount, "discount")
	assertAmount(t, "58.89", got.FinalAmount, "final")
	assertAmount(t, "2.94", got.CommissionAmount, "commission")

	require.Len(t, got.Lines, 2)
	assert.Equal(t, "p1", got.Lines[0].ProductID)
	assert.Equal(t, 3, got.Lines[0].Quantity)
	assertAmount(t, "12.50", got.Lines[0].Price, "line price")
	assertAmount(t, "27.93", got.Lines[1].Subtotal(), "line subtotal")
}

func TestPriceOrder_AmountsReconcile(t *testing.T) {
	lookup := NewMapLookup([]Snapshot{snapshot("p1", "0.15", 1000)})

	for qty := 1; qty <= 50; qty++ {
		got, err := PriceOrder("Jhapa", "Morang", []Line{{ProductID: "p1", Quantity: qty}}, lookup)
		require.NoError(t, err)
		assert.True(t, got.TotalAmount.Sub(got.DiscountAmount).Equal(got.FinalAmount), "qty %d", qty)
		assert.True(t, got.DiscountAmount.Equal(got.DiscountAmount.Round(Scale)), "qty %d", qty)
		assert.True(t, got.CommissionAmount.Equal(got.CommissionAmount.Round(Scale)), "qty %d", qty)
	}
}

func TestPriceOrder_BankersRounding(t *testing.T) {
	tests := []struct {
		price      string
		discount   string
		final      string
		commission string
	}{
		// 0.005 rounds down to the even cent
		{price: "0.10", discount: "0.00", final: "0.10", commission: "0.00"},
		// 0.015 rounds up to the even cent
		{price: "0.30", discount: "0.02", final: "0.28", commission: "0.01"},
	}

	for _, tt := range tests {
		t.Run(tt.price, func(t *testing.T) {
			lookup := NewMapLookup([]Snapshot{snapshot("p1", tt.price, 10)})

			got, err := PriceOrder("A", "B", []Line{{ProductID: "p1", Quantity: 1}}, lookup)
			require.NoError(t, err)
			assertAmount(t, tt.discount, got.DiscountAmount, "discount")
			assertAmount(t, tt.final, got.FinalAmount, "final")
			assertAmount(t, tt.commission, got.CommissionAmount, "commission")
		})
	}
}

func TestPriceOrder_Errors(t *testing.T) {
	unavailable := snapshot("off", "10", 5)
	unavailable.Available = false
	lookup := NewMapLookup([]Snapshot{
		snapshot("p1", "10", 3),
		unavailable,
	})

	tests := []struct {
		name  string
		lines []Line
		check func(t *testing.T, err error)
	}{
		{
			name:  "empty cart",
			lines: nil,
			check: func(t *testing.T, err error) {
				require.ErrorIs(t, err, ErrEmptyCart)
			},
		},
		{
			name:  "zero quantity",
			lines: []Line{{ProductID: "p1", Quantity: 0}},
			check: func(t *testing.T, err error) {
				var qErr *InvalidQuantityError
				require.ErrorAs(t, err, &qErr)
				assert.Equal(t, "p1", qErr.ProductID)
			},
		},
		{
			name:  "unknown product",
			lines: []Line{{ProductID: "p1", Quantity: 1}, {ProductID: "ghost", Quantity: 1}},
			check: func(t *testing.T, err error) {
				var nfErr *ProductNotFoundError
				require.ErrorAs(t, err, &nfErr)
				assert.Equal(t, "ghost", nfErr.ProductID)
			},
		},
		{
			name:  "quantity above stock",
			lines: []Line{{ProductID: "p1", Quantity: 4}},
			check: func(t *testing.T, err error) {
				var stErr *InsufficientStockError
				require.ErrorAs(t, err, &stErr)
				assert.Equal(t, 4, stErr.Requested)
				assert.Equal(t, 3, stErr.Available)
				assert.Contains(t, stErr.Error(), "Product p1")
			},
		},
		{
			name:  "unavailable product",
			lines: []Line{{ProductID: "off", Quantity: 1}},
			check: func(t *testing.T, err error) {
				var stErr *InsufficientStockError
				require.ErrorAs(t, err, &stErr)
				assert.Equal(t, "off", stErr.ProductID)
			},
		},
		{
			name:  "repeated lines exceed stock together",
			lines: []Line{{ProductID: "p1", Quantity: 2}, {ProductID: "p1", Quantity: 2}},
			check: func(t *testing.T, err error) {
				var stErr *InsufficientStockError
				require.ErrorAs(t, err, &stErr)
				assert.Equal(t, 4, stErr.Requested)
			},
		},
		{
			name:  "repeated lines summing past max int",
			lines: []Line{{ProductID: "p1", Quantity: 2}, {ProductID: "p1", Quantity: math.MaxInt - 1}},
			check: func(t *testing.T, err error) {
				var stErr *InsufficientStockError
				require.ErrorAs(t, err, &stErr)
				assert.Equal(t, math.MaxInt, stErr.Requested)
				assert.Equal(t, 3, stErr.Available)
			},
		},
		{
			name:  "single huge line",
			lines: []Line{{ProductID: "p1", Quantity: math.MaxInt}},
			check: func(t *testing.T, err error) {
				var stErr *InsufficientStockError
				require.ErrorAs(t, err, &stErr)
				assert.Equal(t, math.MaxInt, stErr.Requested)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PriceOrder("Kathmandu", "Kathmandu", tt.lines, lookup)
			assert.Nil(t, got)
			tt.check(t, err)
		})
	}
}

func TestPriceOrder_ExactStockIsAccepted(t *testing.T) {
	lookup := NewMapLookup([]Snapshot{snapshot("p1", "10", 3)})

	got, err := PriceOrder("X", "X", []Line{{ProductID: "p1", Quantity: 3}}, lookup)
	require.NoError(t, err)
	assertAmount(t, "30", got.TotalAmount, "total")
}

func TestLookupFunc(t *testing.T) {
	calls := 0
	lookup := LookupFunc(func(id string) (Snapshot, bool) {
		calls++
		return snapshot(id, "1", 1), true
	})

	_, err := PriceOrder("X", "Y", []Line{{ProductID: "a", Quantity: 1}, {ProductID: "b", Quantity: 1}}, lookup)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestDiscountRateFor(t *testing.T) {
	assert.Equal(t, 10, DiscountRateFor("Kaski", "Kaski"))
	assert.Equal(t, 5, DiscountRateFor("Kaski", "Syangja"))
	assert.Equal(t, 10, DiscountRateFor("", ""))
}
