package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/vendor-request-system/internal/domain/application"
	"github.com/xenking/vendor-request-system/internal/domain/pricing"
	"github.com/xenking/vendor-request-system/internal/domain/product"
	"github.com/xenking/vendor-request-system/internal/domain/user"
	"github.com/xenking/vendor-request-system/internal/domain/validation"
	"github.com/xenking/vendor-request-system/internal/events"
)

// Profiles resolves the district a vendor or center operates in.
type Profiles interface {
	District(ctx context.Context, userID string, t application.Type) (string, error)
}

// Catalog fetches the products a center stocks.
type Catalog interface {
	GetByIDs(ctx context.Context, centerID string, ids []string) ([]product.Product, error)
}

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	CenterID string
	Items    []pricing.Line
	Notes    string
}

// Service encapsulates order business logic.
type Service struct {
	orders   Repository
	catalog  Catalog
	profiles Profiles
	events   events.Publisher

	placed   metric.Int64Counter
	rejected metric.Int64Counter
}

// NewService creates an order Service. Counters are registered on meter.
func NewService(
	orders Repository,
	catalog Catalog,
	profiles Profiles,
	pub events.Publisher,
	meter metric.Meter,
) (*Service, error) {
	placed, err := meter.Int64Counter("vrs.orders.placed",
		metric.WithDescription("Orders accepted and persisted"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "orders placed counter")
	}
	rejected, err := meter.Int64Counter("vrs.orders.rejected",
		metric.WithDescription("Order placements refused before persistence"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "orders rejected counter")
	}

	return &Service{
		orders:   orders,
		catalog:  catalog,
		profiles: profiles,
		events:   pub,
		placed:   placed,
		rejected: rejected,
	}, nil
}

// PlaceOrder prices the cart against the center's catalog and persists the
// order, reserving stock atomically. Nothing is written if any line fails.
func (s *Service) PlaceOrder(ctx context.Context, vendorID string, req PlaceOrderRequest) (*Order, error) {
	o, err := s.placeOrder(ctx, vendorID, req)
	if err != nil {
		s.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", rejectReason(err))))
		return nil, err
	}

	s.placed.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("same_district", o.DiscountRate == pricing.SameDistrictDiscountRate),
	))
	zctx.From(ctx).Info("Order placed",
		zap.String("order_id", o.ID),
		zap.String("center_id", o.CenterID),
		zap.Int("discount_rate", o.DiscountRate),
		zap.Stringer("final_amount", o.FinalAmount),
	)
	events.Emit(ctx, s.events, events.Event{
		Type:    events.OrderPlaced,
		Key:     o.ID,
		Payload: newOrderEvent(o),
	})
	return o, nil
}

func (s *Service) placeOrder(ctx context.Context, vendorID string, req PlaceOrderRequest) (*Order, error) {
	if req.CenterID == "" {
		return nil, validation.Required("centerId")
	}
	if len(req.Items) == 0 {
		return nil, pricing.ErrEmptyCart
	}

	vendorDistrict, centerDistrict, err := s.districts(ctx, vendorID, req.CenterID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(req.Items))
	seen := make(map[string]struct{}, len(req.Items))
	for _, item := range req.Items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}

	// Products of other centers are absent from the result and therefore
	// reported as not found.
	fetched, err := s.catalog.GetByIDs(ctx, req.CenterID, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	snapshots := make([]pricing.Snapshot, len(fetched))
	for i, p := range fetched {
		snapshots[i] = pricing.Snapshot{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  p.Quantity,
			Available: p.IsAvailable,
		}
	}

	priced, err := pricing.PriceOrder(vendorDistrict, centerDistrict, req.Items, pricing.NewMapLookup(snapshots))
	if err != nil {
		return nil, err
	}

	items := make([]Item, len(priced.Lines))
	for i, l := range priced.Lines {
		items[i] = Item{
			ProductID:   l.ProductID,
			ProductName: l.Name,
			Quantity:    l.Quantity,
			Price:       l.Price,
		}
	}

	o := &Order{
		ID:               uuid.New().String(),
		VendorID:         vendorID,
		CenterID:         req.CenterID,
		Items:            items,
		TotalAmount:      priced.TotalAmount,
		DiscountRate:     priced.DiscountRate,
		DiscountAmount:   priced.DiscountAmount,
		FinalAmount:      priced.FinalAmount,
		CommissionRate:   priced.CommissionRate,
		CommissionAmount: priced.CommissionAmount,
		VendorDistrict:   vendorDistrict,
		Status:           StatusPending,
		PaymentStatus:    PaymentPending,
		Notes:            req.Notes,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	return o, nil
}

// districts looks up both profiles concurrently. A missing vendor profile is
// reported before a missing center profile.
func (s *Service) districts(ctx context.Context, vendorID, centerID string) (vendor, center string, err error) {
	var (
		g                    errgroup.Group
		vendorErr, centerErr error
	)
	g.Go(func() error {
		vendor, vendorErr = s.profiles.District(ctx, vendorID, application.TypeVendor)
		return nil
	})
	g.Go(func() error {
		center, centerErr = s.profiles.District(ctx, centerID, application.TypeCenter)
		return nil
	})
	_ = g.Wait()

	switch {
	case errors.Is(vendorErr, application.ErrNotFound):
		return "", "", ErrVendorProfileNotFound
	case vendorErr != nil:
		return "", "", errors.Wrap(vendorErr, "vendor profile")
	case errors.Is(centerErr, application.ErrNotFound):
		return "", "", ErrCenterProfileNotFound
	case centerErr != nil:
		return "", "", errors.Wrap(centerErr, "center profile")
	}
	return vendor, center, nil
}

// Get returns an order visible to the caller: its vendor, its center or an
// admin.
func (s *Service) Get(ctx context.Context, callerID string, role user.Role, id string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch {
	case role == user.RoleAdmin,
		role == user.RoleVendor && o.VendorID == callerID,
		role == user.RoleCenter && o.CenterID == callerID:
		return o, nil
	default:
		return nil, ErrNotOwner
	}
}

// List returns the vendor's own orders or the center's incoming orders,
// newest first.
func (s *Service) List(ctx context.Context, callerID string, role user.Role) ([]Order, error) {
	switch role {
	case user.RoleVendor:
		return s.orders.ListByVendor(ctx, callerID)
	case user.RoleCenter:
		return s.orders.ListByCenter(ctx, callerID)
	default:
		return nil, ErrNotOwner
	}
}

// UpdatePayment records the vendor's payment for an order. Only the vendor
// that placed the order may do so.
func (s *Service) UpdatePayment(ctx context.Context, vendorID, id string, payment PaymentStatus) (*Order, error) {
	if payment != PaymentPending && payment != PaymentCompleted {
		return nil, validation.New("paymentStatus", "must be pending or completed")
	}

	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.VendorID != vendorID {
		return nil, ErrNotOwner
	}

	if err := s.orders.UpdatePayment(ctx, id, payment); err != nil {
		return nil, errors.Wrap(err, "update payment")
	}

	updated, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "reload order")
	}
	events.Emit(ctx, s.events, events.Event{
		Type:    events.OrderPaymentUpdated,
		Key:     id,
		Payload: newOrderEvent(updated),
	})
	return updated, nil
}

// UpdateStatus lets the order's center approve, reject or complete it.
// Rejecting returns the reserved stock.
func (s *Service) UpdateStatus(ctx context.Context, centerID, id string, to Status) (*Order, error) {
	var (
		from    Status
		restock bool
	)
	switch to {
	case StatusApproved:
		from = StatusPending
	case StatusRejected:
		from, restock = StatusPending, true
	case StatusCompleted:
		from = StatusPaid
	default:
		return nil, validation.New("status", "must be approved, rejected or completed")
	}

	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.CenterID != centerID {
		return nil, ErrNotOwner
	}

	if err := s.orders.Transition(ctx, id, from, to, restock); err != nil {
		return nil, errors.Wrapf(err, "transition to %s", to)
	}

	updated, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "reload order")
	}
	zctx.From(ctx).Info("Order status changed",
		zap.String("order_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	events.Emit(ctx, s.events, events.Event{
		Type:    events.OrderStatusChanged,
		Key:     id,
		Payload: newOrderEvent(updated),
	})
	return updated, nil
}

// Stats aggregates the vendor's orders.
func (s *Service) Stats(ctx context.Context, vendorID string) (*Stats, error) {
	st, err := s.orders.Stats(ctx, vendorID)
	if err != nil {
		return nil, errors.Wrap(err, "order stats")
	}
	return st, nil
}

// Commissions reports commission owed per center.
func (s *Service) Commissions(ctx context.Context) ([]CenterCommission, error) {
	return s.orders.Commissions(ctx)
}

func rejectReason(err error) string {
	var (
		notFound *pricing.ProductNotFoundError
		stock    *pricing.InsufficientStockError
		qty      *pricing.InvalidQuantityError
		invalid  *validation.Error
	)
	switch {
	case errors.Is(err, ErrVendorProfileNotFound), errors.Is(err, ErrCenterProfileNotFound):
		return "profile"
	case errors.As(err, &notFound):
		return "product_not_found"
	case errors.As(err, &stock):
		return "insufficient_stock"
	case errors.As(err, &qty), errors.As(err, &invalid), errors.Is(err, pricing.ErrEmptyCart):
		return "invalid"
	default:
		return "error"
	}
}

type orderEvent struct {
	OrderID          string          `json:"orderId"`
	VendorID         string          `json:"vendorId"`
	CenterID         string          `json:"centerId"`
	Status           Status          `json:"status"`
	PaymentStatus    PaymentStatus   `json:"paymentStatus"`
	FinalAmount      decimal.Decimal `json:"finalAmount"`
	CommissionAmount decimal.Decimal `json:"commissionAmount"`
}

func newOrderEvent(o *Order) orderEvent {
	return orderEvent{
		OrderID:          o.ID,
		VendorID:         o.VendorID,
		CenterID:         o.CenterID,
		Status:           o.Status,
		PaymentStatus:    o.PaymentStatus,
		FinalAmount:      o.FinalAmount,
		CommissionAmount: o.CommissionAmount,
	}
}
