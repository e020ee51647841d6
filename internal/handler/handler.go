// Package handler exposes the VRS domain services over a JSON REST API.
package handler

import (
	"context"

	"github.com/xenking/vendor-request-system/internal/domain/application"
	"github.com/xenking/vendor-request-system/internal/domain/auth"
	"github.com/xenking/vendor-request-system/internal/domain/message"
	"github.com/xenking/vendor-request-system/internal/domain/order"
	"github.com/xenking/vendor-request-system/internal/domain/product"
	"github.com/xenking/vendor-request-system/internal/domain/reference"
	"github.com/xenking/vendor-request-system/internal/domain/user"
)

// AuthService registers, logs in and identifies callers.
type AuthService interface {
	Register(ctx context.Context, email, password string, role user.Role) (*auth.Session, error)
	Login(ctx context.Context, email, password string) (*auth.Session, error)
	Me(ctx context.Context, p auth.Principal) (*user.User, error)
	Verify(raw string) (auth.Principal, error)
}

// UserService is the admin view of accounts.
type UserService interface {
	ListByRole(ctx context.Context, role user.Role) ([]user.User, error)
	SetStatus(ctx context.Context, id string, status user.Status) (*user.User, error)
}

type ReferenceService interface {
	Provinces(ctx context.Context) ([]reference.Province, error)
	Districts(ctx context.Context) ([]reference.District, error)
	DistrictsByProvince(ctx context.Context, provinceID int) ([]reference.District, error)
	AddProvince(ctx context.Context, name string) (*reference.Province, error)
	AddDistrict(ctx context.Context, provinceID int, name string) (*reference.District, error)
	BankDetails(ctx context.Context) ([]reference.BankDetail, error)
	AddBankDetail(ctx context.Context, b reference.BankDetail) (*reference.BankDetail, error)
	Categories(ctx context.Context) ([]reference.Category, error)
	Category(ctx context.Context, id int) (*reference.Category, error)
}

type ApplicationService interface {
	Submit(ctx context.Context, userID string, role user.Role, a application.Application) (*application.Application, error)
	List(ctx context.Context, f application.Filter) ([]application.Application, error)
	Mine(ctx context.Context, userID string) ([]application.Application, error)
	Decide(ctx context.Context, id string, status application.Status) (*application.Application, error)
	Profile(ctx context.Context, userID string, t application.Type) (*application.Application, error)
}

type ProductService interface {
	ListByCenter(ctx context.Context, centerID string) ([]product.Product, error)
	ListAvailable(ctx context.Context, centerID string) ([]product.Product, error)
	Create(ctx context.Context, centerID string, p product.Product) (*product.Product, error)
	Update(ctx context.Context, centerID, id string, patch product.Patch) (*product.Product, error)
	Delete(ctx context.Context, centerID, id string) error
}

type OrderService interface {
	PlaceOrder(ctx context.Context, vendorID string, req order.PlaceOrderRequest) (*order.Order, error)
	Get(ctx context.Context, callerID string, role user.Role, id string) (*order.Order, error)
	List(ctx context.Context, callerID string, role user.Role) ([]order.Order, error)
	UpdatePayment(ctx context.Context, vendorID, id string, payment order.PaymentStatus) (*order.Order, error)
	UpdateStatus(ctx context.Context, centerID, id string, to order.Status) (*order.Order, error)
	Stats(ctx context.Context, vendorID string) (*order.Stats, error)
	Commissions(ctx context.Context) ([]order.CenterCommission, error)
}

type MessageService interface {
	Send(ctx context.Context, senderID string, req message.SendRequest) (*message.Message, error)
	List(ctx context.Context, userID string) ([]message.Message, error)
	MarkRead(ctx context.Context, userID, id string) (*message.Message, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
}

// Services bundles the domain services the API delegates to.
type Services struct {
	Auth         AuthService
	Users        UserService
	Reference    ReferenceService
	Applications ApplicationService
	Products     ProductService
	Orders       OrderService
	Messages     MessageService
}

// Handler implements the HTTP endpoints. Business rules live in the
// services; handlers only decode, authorize by role and encode.
type Handler struct {
	svc Services
}

// NewHandler creates a Handler over the given services.
func NewHandler(s Services) *Handler {
	return &Handler{svc: s}
}
