package product

import (
	"context"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/vendor-request-system/internal/domain/validation"
)

type mockRepo struct {
	byID      map[string]*Product
	lastPatch Patch
	deleted   []string
}

func newMockRepo(products ...Product) *mockRepo {
	m := &mockRepo{byID: make(map[string]*Product)}
	for i := range products {
		m.byID[products[i].ID] = &products[i]
	}
	return m
}

func (m *mockRepo) ListByCenter(_ context.Context, centerID string, onlyAvailable bool) ([]Product, error) {
	var out []Product
	for _, p := range m.byID {
		if p.CenterID != centerID || (onlyAvailable && !p.IsAvailable) {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

func (m *mockRepo) GetByID(_ context.Context, id string) (*Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

func (m *mockRepo) GetByIDs(context.Context, string, []string) ([]Product, error) { return nil, nil }

func (m *mockRepo) Create(_ context.Context, p *Product) error {
	m.byID[p.ID] = p
	return nil
}

func (m *mockRepo) Update(_ context.Context, id, _ string, patch Patch) (*Product, error) {
	m.lastPatch = patch
	p := m.byID[id]
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Quantity != nil {
		p.Quantity = *patch.Quantity
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	return p, nil
}

func (m *mockRepo) Delete(_ context.Context, id, _ string) error {
	m.deleted = append(m.deleted, id)
	delete(m.byID, id)
	return nil
}

func ptr[T any](v T) *T { return &v }

func TestCreate(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	p, err := svc.Create(context.Background(), "c1", Product{
		Name:        " Basmati Rice ",
		Price:       decimal.RequireFromString("120.456"),
		Quantity:    50,
		IsAvailable: true,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "c1", p.CenterID)
	assert.Equal(t, "Basmati Rice", p.Name)
	assert.True(t, decimal.RequireFromString("120.46").Equal(p.Price))
	assert.Contains(t, repo.byID, p.ID)
}

func TestCreate_Validation(t *testing.T) {
	svc := NewService(newMockRepo())

	tests := []struct {
		name  string
		in    Product
		field string
	}{
		{"empty name", Product{Price: decimal.NewFromInt(1)}, "name"},
		{"negative price", Product{Name: "x", Price: decimal.NewFromInt(-1)}, "price"},
		{"negative quantity", Product{Name: "x", Price: decimal.NewFromInt(1), Quantity: -3}, "quantity"},
		{"price beyond column", Product{Name: "x", Price: decimal.RequireFromString("1e13")}, "price"},
		{"price rounds past column", Product{Name: "x", Price: decimal.RequireFromString("999999999999.995")}, "price"},
		{"quantity beyond column", Product{Name: "x", Price: decimal.NewFromInt(1), Quantity: math.MaxInt32 + 1}, "quantity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), "c1", tt.in)
			var vErr *validation.Error
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestUpdate_Ownership(t *testing.T) {
	repo := newMockRepo(Product{ID: "p1", CenterID: "c1", Name: "Tea", Price: decimal.NewFromInt(10)})
	svc := NewService(repo)

	_, err := svc.Update(context.Background(), "c2", "p1", Patch{Quantity: ptr(5)})
	require.ErrorIs(t, err, ErrNotOwner)

	_, err = svc.Update(context.Background(), "c1", "missing", Patch{})
	require.ErrorIs(t, err, ErrNotFound)

	p, err := svc.Update(context.Background(), "c1", "p1", Patch{
		Quantity: ptr(5),
		Price:    ptr(decimal.RequireFromString("9.999")),
	})
	require.NoError(t, err)
	assert.Equal(t, 5, p.Quantity)
	assert.True(t, decimal.RequireFromString("10.00").Equal(p.Price))
	assert.Nil(t, repo.lastPatch.Name)
}

func TestUpdate_Validation(t *testing.T) {
	repo := newMockRepo(Product{ID: "p1", CenterID: "c1", Name: "Tea"})
	svc := NewService(repo)

	_, err := svc.Update(context.Background(), "c1", "p1", Patch{Name: ptr("  ")})
	var vErr *validation.Error
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "name", vErr.Field)

	_, err = svc.Update(context.Background(), "c1", "p1", Patch{Quantity: ptr(-1)})
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "quantity", vErr.Field)

	_, err = svc.Update(context.Background(), "c1", "p1", Patch{Quantity: ptr(math.MaxInt32 + 1)})
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "quantity", vErr.Field)

	_, err = svc.Update(context.Background(), "c1", "p1", Patch{Price: ptr(decimal.RequireFromString("1000000000000"))})
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "price", vErr.Field)

	p, err := svc.Update(context.Background(), "c1", "p1", Patch{
		Price:    ptr(MaxPrice),
		Quantity: ptr(MaxQuantity),
	})
	require.NoError(t, err)
	assert.Equal(t, MaxQuantity, p.Quantity)
}

func TestDelete(t *testing.T) {
	repo := newMockRepo(Product{ID: "p1", CenterID: "c1"})
	svc := NewService(repo)

	require.ErrorIs(t, svc.Delete(context.Background(), "c2", "p1"), ErrNotOwner)
	require.NoError(t, svc.Delete(context.Background(), "c1", "p1"))
	assert.Equal(t, []string{"p1"}, repo.deleted)
}

func TestListAvailable(t *testing.T) {
	repo := newMockRepo(
		Product{ID: "p1", CenterID: "c1", IsAvailable: true},
		Product{ID: "p2", CenterID: "c1", IsAvailable: false},
		Product{ID: "p3", CenterID: "c2", IsAvailable: true},
	)
	svc := NewService(repo)

	all, err := svc.ListByCenter(context.Background(), "c1")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	avail, err := svc.ListAvailable(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, avail, 1)
	assert.Equal(t, "p1", avail[0].ID)
}
