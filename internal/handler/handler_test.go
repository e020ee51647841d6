package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/vendor-request-system/internal/domain/application"
	"github.com/xenking/vendor-request-system/internal/domain/auth"
	"github.com/xenking/vendor-request-system/internal/domain/message"
	"github.com/xenking/vendor-request-system/internal/domain/order"
	"github.com/xenking/vendor-request-system/internal/domain/pricing"
	"github.com/xenking/vendor-request-system/internal/domain/reference"
	"github.com/xenking/vendor-request-system/internal/domain/user"
	"github.com/xenking/vendor-request-system/internal/domain/validation"
)

// --- Stubs ---
//
// Each stub embeds its interface so calls the test does not expect panic.

type stubAuth struct {
	AuthService
	principals map[string]auth.Principal
}

func (s *stubAuth) Verify(raw string) (auth.Principal, error) {
	p, ok := s.principals[raw]
	if !ok {
		return auth.Principal{}, errors.Wrap(auth.ErrInvalidToken, "unknown token")
	}
	return p, nil
}

func (s *stubAuth) Login(_ context.Context, email, _ string) (*auth.Session, error) {
	if email != "v@example.com" {
		return nil, auth.ErrInvalidCredentials
	}
	return &auth.Session{Token: "vendor", User: &user.User{ID: "v1", Email: email, Role: user.RoleVendor}}, nil
}

type stubOrders struct {
	OrderService
	placed    order.PlaceOrderRequest
	placeErr  error
	payErr    error
	stats     *order.Stats
	statusErr error
}

func (s *stubOrders) PlaceOrder(_ context.Context, vendorID string, req order.PlaceOrderRequest) (*order.Order, error) {
	s.placed = req
	if s.placeErr != nil {
		return nil, s.placeErr
	}
	return &order.Order{
		ID:       "o1",
		VendorID: vendorID,
		CenterID: req.CenterID,
		Items: []order.Item{
			{ProductID: "p1", ProductName: "Rice", Quantity: 2, Price: decimal.RequireFromString("100.00")},
		},
		TotalAmount:      decimal.RequireFromString("200.00"),
		DiscountRate:     10,
		DiscountAmount:   decimal.RequireFromString("20.00"),
		FinalAmount:      decimal.RequireFromString("180.00"),
		CommissionRate:   5,
		CommissionAmount: decimal.RequireFromString("9.00"),
		VendorDistrict:   "Kathmandu",
		Status:           order.StatusPending,
		PaymentStatus:    order.PaymentPending,
	}, nil
}

func (s *stubOrders) UpdatePayment(_ context.Context, _, id string, _ order.PaymentStatus) (*order.Order, error) {
	if s.payErr != nil {
		return nil, s.payErr
	}
	return &order.Order{ID: id, Status: order.StatusPaid, PaymentStatus: order.PaymentCompleted}, nil
}

func (s *stubOrders) UpdateStatus(context.Context, string, string, order.Status) (*order.Order, error) {
	return nil, s.statusErr
}

func (s *stubOrders) Stats(context.Context, string) (*order.Stats, error) {
	return s.stats, nil
}

type stubReference struct {
	ReferenceService
	err error
}

func (s *stubReference) Provinces(context.Context) ([]reference.Province, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []reference.Province{{ID: 3, Name: "Bagmati"}}, nil
}

type stubMessages struct {
	MessageService
	err error
}

func (s *stubMessages) MarkRead(context.Context, string, string) (*message.Message, error) {
	return nil, s.err
}

func (s *stubMessages) UnreadCount(context.Context, string) (int, error) {
	return 4, nil
}

// --- Helpers ---

type env struct {
	router  http.Handler
	orders  *stubOrders
	refs    *stubReference
	message *stubMessages
}

func newEnv() *env {
	e := &env{
		orders:  &stubOrders{},
		refs:    &stubReference{},
		message: &stubMessages{},
	}
	h := NewHandler(Services{
		Auth: &stubAuth{principals: map[string]auth.Principal{
			"vendor": {UserID: "v1", Role: user.RoleVendor},
			"center": {UserID: "c1", Role: user.RoleCenter},
			"admin":  {UserID: "a1", Role: user.RoleAdmin},
		}},
		Reference: e.refs,
		Orders:    e.orders,
		Messages:  e.message,
	})
	e.router = NewRouter(h, RouterOptions{})
	return e
}

func (e *env) do(t *testing.T, method, path, token, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var out map[string]any
	if strings.HasPrefix(strings.TrimSpace(w.Body.String()), "{") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

// --- Tests ---

func TestPlaceOrder_Created(t *testing.T) {
	e := newEnv()
	w, body := e.do(t, http.MethodPost, "/api/orders", "vendor",
		`{"centerId":"c1","items":[{"productId":"p1","quantity":2}],"notes":"asap"}`)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "o1", body["id"])
	assert.Equal(t, "v1", body["vendorId"])
	assert.InDelta(t, 180.0, body["finalAmount"], 1e-9)
	assert.InDelta(t, 9.0, body["commissionAmount"], 1e-9)
	assert.Equal(t, "Kathmandu", body["vendorDistrict"])

	assert.Equal(t, order.PlaceOrderRequest{
		CenterID: "c1",
		Items:    []pricing.Line{{ProductID: "p1", Quantity: 2}},
		Notes:    "asap",
	}, e.orders.placed)
}

func TestPlaceOrder_InsufficientStock(t *testing.T) {
	e := newEnv()
	e.orders.placeErr = errors.Wrap(&pricing.InsufficientStockError{ProductID: "p1", Name: "Rice", Requested: 5, Available: 1}, "create order")

	w, body := e.do(t, http.MethodPost, "/api/orders", "vendor", `{"centerId":"c1","items":[{"productId":"p1","quantity":5}]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "product Rice is not available in requested quantity", body["message"])
	assert.EqualValues(t, http.StatusBadRequest, body["code"])
}

func TestAuthentication(t *testing.T) {
	e := newEnv()

	tests := []struct {
		name   string
		setup  func(r *http.Request)
		status int
	}{
		{"missing", func(*http.Request) {}, http.StatusUnauthorized},
		{"forged", func(r *http.Request) { r.Header.Set("Authorization", "Bearer forged") }, http.StatusUnauthorized},
		{"wrong scheme", func(r *http.Request) { r.Header.Set("Authorization", "Basic vendor") }, http.StatusUnauthorized},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer vendor") }, http.StatusOK},
		{"legacy header", func(r *http.Request) { r.Header.Set("x-auth-token", "vendor") }, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/messages/unread", nil)
			tt.setup(req)
			w := httptest.NewRecorder()
			e.router.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestRoleChecks(t *testing.T) {
	e := newEnv()

	w, body := e.do(t, http.MethodPost, "/api/orders", "center", `{}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "access denied", body["message"])

	w, _ = e.do(t, http.MethodPost, "/api/locations/provinces", "vendor", `{"name":"x"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = e.do(t, http.MethodGet, "/api/admin/vendors", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUpdatePayment_NotOwner(t *testing.T) {
	e := newEnv()
	e.orders.payErr = order.ErrNotOwner

	w, body := e.do(t, http.MethodPut, "/api/orders/o1/payment", "vendor", `{"paymentStatus":"completed"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, order.ErrNotOwner.Error(), body["message"])
}

func TestUpdatePayment_Paid(t *testing.T) {
	e := newEnv()
	w, body := e.do(t, http.MethodPut, "/api/orders/o1/payment", "vendor", `{"paymentStatus":"completed"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "paid", body["status"])
	assert.Equal(t, "completed", body["paymentStatus"])
}

func TestUpdateOrderStatus_InvalidTransition(t *testing.T) {
	e := newEnv()
	e.orders.statusErr = errors.Wrap(order.ErrInvalidTransition, "transition to completed")

	w, body := e.do(t, http.MethodPut, "/api/orders/o1/status", "center", `{"status":"completed"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, order.ErrInvalidTransition.Error(), body["message"], "wrap context is not exposed")
}

func TestOrderStats(t *testing.T) {
	e := newEnv()
	e.orders.stats = &order.Stats{
		TotalOrders:     3,
		TotalAmount:     decimal.RequireFromString("1140.50"),
		TotalDiscount:   decimal.RequireFromString("60.00"),
		TotalCommission: decimal.RequireFromString("57.03"),
		TotalCenters:    2,
	}

	w, body := e.do(t, http.MethodGet, "/api/orders/stats", "vendor", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 3, body["totalOrders"])
	assert.InDelta(t, 1140.5, body["totalAmount"], 1e-9)
	assert.InDelta(t, 60.0, body["totalDiscount"], 1e-9)
	assert.InDelta(t, 57.03, body["totalCommission"], 1e-9)
	assert.EqualValues(t, 2, body["totalCenters"])
}

func TestMarkRead_NotReceiver(t *testing.T) {
	e := newEnv()
	e.message.err = message.ErrNotReceiver

	w, _ := e.do(t, http.MethodPut, "/api/messages/m1/read", "center", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUnreadCount(t *testing.T) {
	e := newEnv()
	w, body := e.do(t, http.MethodGet, "/api/messages/unread", "admin", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 4, body["count"])
}

func TestPublicReference(t *testing.T) {
	e := newEnv()
	req := httptest.NewRequest(http.MethodGet, "/api/locations/provinces", nil)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"id":3,"name":"Bagmati"}]`, w.Body.String())
}

func TestInternalErrorHidden(t *testing.T) {
	e := newEnv()
	e.refs.err = errors.New("pq: connection reset by peer")

	w, body := e.do(t, http.MethodGet, "/api/locations/provinces", "", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal server error", body["message"])
}

func TestLogin(t *testing.T) {
	e := newEnv()

	w, body := e.do(t, http.MethodPost, "/api/auth/login", "", `{"email":"v@example.com","password":"secret1"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "vendor", body["token"])

	w, body = e.do(t, http.MethodPost, "/api/auth/login", "", `{"email":"x@example.com","password":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, auth.ErrInvalidCredentials.Error(), body["message"])
}

func TestMalformedBody(t *testing.T) {
	e := newEnv()
	for _, body := range []string{"", "{", `{"centerId":1}`} {
		w, out := e.do(t, http.MethodPost, "/api/orders", "vendor", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Equal(t, errMalformedBody.Error(), out["message"], body)
	}
}

func TestRegister_InvalidRole(t *testing.T) {
	e := newEnv()
	w, _ := e.do(t, http.MethodPost, "/api/auth/register", "", `{"email":"a@b.c","password":"secret1","role":"admin2"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBadPathParam(t *testing.T) {
	e := newEnv()
	w, body := e.do(t, http.MethodGet, "/api/categories/abc", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "id: must be a positive integer", body["message"])
}

func TestUnknownRoute(t *testing.T) {
	e := newEnv()
	w, body := e.do(t, http.MethodGet, "/api/nope", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "route not found", body["message"])
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{validation.Required("name"), http.StatusBadRequest},
		{&pricing.InvalidQuantityError{ProductID: "p", Quantity: 0}, http.StatusBadRequest},
		{pricing.ErrEmptyCart, http.StatusBadRequest},
		{&pricing.ProductNotFoundError{ProductID: "p"}, http.StatusNotFound},
		{errors.Wrap(order.ErrCenterProfileNotFound, "resolve"), http.StatusNotFound},
		{message.ErrReceiverNotFound, http.StatusNotFound},
		{auth.ErrNotApproved, http.StatusForbidden},
		{application.ErrWrongType, http.StatusForbidden},
		{user.ErrEmailTaken, http.StatusConflict},
		{application.ErrAlreadyDecided, http.StatusConflict},
		{reference.ErrDuplicate, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		status, msg := classify(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
		assert.NotEmpty(t, msg)
	}
}
