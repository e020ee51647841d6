package repository

import (
	"context"
	"math"
	"sort"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/vendor-request-system/internal/domain/order"
	"github.com/xenking/vendor-request-system/internal/domain/pricing"
)

const (
	orderColumns = `id, vendor_id, center_id, total_amount, discount_rate, discount_amount, final_amount,
		commission_rate, commission_amount, vendor_district, status, payment_status, notes,
		created_at, updated_at`

	reserveStockSQL = `UPDATE products SET quantity = quantity - $2, updated_at = now()
		WHERE id = $1 AND center_id = $3 AND is_available AND quantity >= $2`

	stockLevelSQL = `SELECT name, quantity, is_available FROM products WHERE id = $1 AND center_id = $2`

	restockSQL = `UPDATE products p SET quantity = p.quantity + i.quantity, updated_at = now()
		FROM (SELECT product_id, SUM(quantity) AS quantity FROM order_items
			WHERE order_id = $1 GROUP BY product_id) i
		WHERE p.id = i.product_id`

	insertOrderSQL = `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, now(), now())
		RETURNING created_at, updated_at`

	insertOrderItemSQL = `INSERT INTO order_items (order_id, line_no, product_id, product_name, quantity, price)
		VALUES ($1, $2, $3, $4, $5, $6)`

	getOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	listVendorOrdersSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE vendor_id = $1 ORDER BY created_at DESC`

	listCenterOrdersSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE center_id = $1 ORDER BY created_at DESC`

	orderItemsSQL = `SELECT order_id, product_id, product_name, quantity, price FROM order_items
		WHERE order_id = ANY($1) ORDER BY order_id, line_no`

	updatePaymentSQL = `UPDATE orders SET
			payment_status = $2,
			status = CASE WHEN $2 = 'completed' THEN 'paid' ELSE status END,
			updated_at = now()
		WHERE id = $1 AND status IN ('pending', 'approved')`

	transitionOrderSQL = `UPDATE orders SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2`

	orderExistsSQL = `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`

	vendorStatsSQL = `SELECT COUNT(*),
			COALESCE(SUM(final_amount), 0),
			COALESCE(SUM(discount_amount), 0),
			COALESCE(SUM(commission_amount), 0),
			COUNT(DISTINCT center_id)
		FROM orders WHERE vendor_id = $1`

	commissionsSQL = `SELECT o.center_id,
			COALESCE((SELECT a.business_name FROM applications a
				WHERE a.user_id = o.center_id AND a.type = 'center'
				ORDER BY (a.status = 'approved') DESC, a.created_at DESC LIMIT 1), ''),
			COUNT(*),
			SUM(o.final_amount),
			SUM(o.commission_amount)
		FROM orders o
		WHERE o.status <> 'rejected'
		GROUP BY o.center_id
		ORDER BY SUM(o.commission_amount) DESC`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create reserves stock and inserts the order with its items in a single
// transaction. Each reservation is a conditional decrement, so two orders
// racing for the last units cannot both succeed.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, d := range demandOf(o.Items) {
			if err := reserve(ctx, tx, o.CenterID, d); err != nil {
				return err
			}
		}

		err := tx.QueryRow(ctx, insertOrderSQL,
			o.ID, o.VendorID, o.CenterID,
			o.TotalAmount, o.DiscountRate, o.DiscountAmount, o.FinalAmount,
			o.CommissionRate, o.CommissionAmount, o.VendorDistrict,
			o.Status, o.PaymentStatus, o.Notes,
		).Scan(&o.CreatedAt, &o.UpdatedAt)
		if err != nil {
			return errors.Wrap(err, "insert order")
		}

		batch := &pgx.Batch{}
		for i, it := range o.Items {
			batch.Queue(insertOrderItemSQL, o.ID, i, it.ProductID, it.ProductName, it.Quantity, it.Price)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return errors.Wrap(err, "insert order items")
		}
		return nil
	})
}

type demand struct {
	productID string
	name      string
	quantity  int
}

// demandOf sums item quantities per product. Products are visited in id
// order so concurrent orders lock rows in the same sequence.
func demandOf(items []order.Item) []demand {
	byID := make(map[string]*demand, len(items))
	var out []*demand
	for _, it := range items {
		d, ok := byID[it.ProductID]
		if !ok {
			d = &demand{productID: it.ProductID, name: it.ProductName}
			byID[it.ProductID] = d
			out = append(out, d)
		}
		if it.Quantity > math.MaxInt-d.quantity {
			d.quantity = math.MaxInt
		} else {
			d.quantity += it.Quantity
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].productID < out[j].productID })

	res := make([]demand, len(out))
	for i, d := range out {
		res[i] = *d
	}
	return res
}

// reserve decrements stock by d.quantity. Demand beyond the INTEGER column
// range can never be satisfied and skips the update.
func reserve(ctx context.Context, tx pgx.Tx, centerID string, d demand) error {
	if d.quantity <= math.MaxInt32 {
		tag, err := tx.Exec(ctx, reserveStockSQL, d.productID, d.quantity, centerID)
		if err != nil {
			return errors.Wrapf(err, "reserve stock of %q", d.productID)
		}
		if tag.RowsAffected() == 1 {
			return nil
		}
	}

	var (
		name      string
		available int
		listed    bool
	)
	err := tx.QueryRow(ctx, stockLevelSQL, d.productID, centerID).Scan(&name, &available, &listed)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return &pricing.ProductNotFoundError{ProductID: d.productID}
	case err != nil:
		return errors.Wrapf(err, "read stock of %q", d.productID)
	}
	if !listed {
		available = 0
	}
	return &pricing.InsufficientStockError{
		ProductID: d.productID,
		Name:      name,
		Requested: d.quantity,
		Available: available,
	}
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	orders, err := r.list(ctx, getOrderSQL, id)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, order.ErrNotFound
	}
	return &orders[0], nil
}

func (r *OrderRepository) ListByVendor(ctx context.Context, vendorID string) ([]order.Order, error) {
	return r.list(ctx, listVendorOrdersSQL, vendorID)
}

func (r *OrderRepository) ListByCenter(ctx context.Context, centerID string) ([]order.Order, error) {
	return r.list(ctx, listCenterOrdersSQL, centerID)
}

// list runs an order query and attaches the items of every returned order
// with one extra round trip.
func (r *OrderRepository) list(ctx context.Context, query string, args ...any) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query orders")
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, errors.Wrap(err, "scan orders")
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}

	rows, err = r.pool.Query(ctx, orderItemsSQL, ids)
	if err != nil {
		return nil, errors.Wrap(err, "query order items")
	}
	defer rows.Close()
	for rows.Next() {
		var (
			orderID string
			it      order.Item
		)
		if err := rows.Scan(&orderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.Price); err != nil {
			return nil, errors.Wrap(err, "scan order item")
		}
		i := index[orderID]
		orders[i].Items = append(orders[i].Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate order items")
	}
	return orders, nil
}

func (r *OrderRepository) UpdatePayment(ctx context.Context, id string, payment order.PaymentStatus) error {
	tag, err := r.pool.Exec(ctx, updatePaymentSQL, id, payment)
	if err != nil {
		return errors.Wrapf(err, "update payment of %q", id)
	}
	if tag.RowsAffected() == 0 {
		return r.missingOrStale(ctx, r.pool, id)
	}
	return nil
}

// Transition changes the status only if the order is still in from. With
// restock the order's quantities go back to the catalog in the same
// transaction.
func (r *OrderRepository) Transition(ctx context.Context, id string, from, to order.Status, restock bool) error {
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, transitionOrderSQL, id, from, to)
		if err != nil {
			return errors.Wrapf(err, "transition order %q", id)
		}
		if tag.RowsAffected() == 0 {
			return r.missingOrStale(ctx, tx, id)
		}
		if restock {
			if _, err := tx.Exec(ctx, restockSQL, id); err != nil {
				return errors.Wrap(err, "restock")
			}
		}
		return nil
	})
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *OrderRepository) missingOrStale(ctx context.Context, q querier, id string) error {
	var exists bool
	if err := q.QueryRow(ctx, orderExistsSQL, id).Scan(&exists); err != nil {
		return errors.Wrap(err, "check order")
	}
	if exists {
		return order.ErrInvalidTransition
	}
	return order.ErrNotFound
}

func (r *OrderRepository) Stats(ctx context.Context, vendorID string) (*order.Stats, error) {
	var st order.Stats
	err := r.pool.QueryRow(ctx, vendorStatsSQL, vendorID).Scan(
		&st.TotalOrders, &st.TotalAmount, &st.TotalDiscount, &st.TotalCommission, &st.TotalCenters,
	)
	if err != nil {
		return nil, errors.Wrap(err, "vendor stats")
	}
	return &st, nil
}

func (r *OrderRepository) Commissions(ctx context.Context) ([]order.CenterCommission, error) {
	rows, err := r.pool.Query(ctx, commissionsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "query commissions")
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.CenterCommission, error) {
		var c order.CenterCommission
		err := row.Scan(&c.CenterID, &c.BusinessName, &c.Orders, &c.Sales, &c.Commission)
		return c, err
	})
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var o order.Order
	err := row.Scan(
		&o.ID, &o.VendorID, &o.CenterID,
		&o.TotalAmount, &o.DiscountRate, &o.DiscountAmount, &o.FinalAmount,
		&o.CommissionRate, &o.CommissionAmount, &o.VendorDistrict,
		&o.Status, &o.PaymentStatus, &o.Notes, &o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}
