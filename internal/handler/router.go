package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/vendor-request-system/internal/domain/user"
	"github.com/xenking/vendor-request-system/pkg/httpmiddleware"
)

// Probes serves the health endpoints.
type Probes interface {
	LiveEndpoint(w http.ResponseWriter, r *http.Request)
	ReadyEndpoint(w http.ResponseWriter, r *http.Request)
}

// RouterOptions configures NewRouter.
type RouterOptions struct {
	Probes Probes
	// AuthLimit throttles the public auth endpoints. Nil disables it.
	AuthLimit httpmiddleware.Middleware
	// Middlewares run inside the router, after routing, so they can read
	// the matched route pattern.
	Middlewares []httpmiddleware.Middleware
}

// NewRouter mounts every endpoint of h.
func NewRouter(h *Handler, opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	for _, m := range opts.Middlewares {
		r.Use(m)
	}
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Code: http.StatusNotFound, Message: "route not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Code: http.StatusMethodNotAllowed, Message: "method not allowed"})
	})

	if opts.Probes != nil {
		r.Get("/livez", opts.Probes.LiveEndpoint)
		r.Get("/readyz", opts.Probes.ReadyEndpoint)
	}

	var (
		vendor = requireRole(user.RoleVendor)
		center = requireRole(user.RoleCenter)
		admin  = requireRole(user.RoleAdmin)
	)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				if opts.AuthLimit != nil {
					r.Use(opts.AuthLimit)
				}
				r.Post("/register", h.register)
				r.Post("/login", h.login)
			})
			r.With(h.authenticate).Get("/me", h.me)
		})

		r.Route("/locations", func(r chi.Router) {
			r.Get("/provinces", h.listProvinces)
			r.Get("/districts", h.listDistricts)
			r.Get("/provinces/{id}/districts", h.listProvinceDistricts)
			r.With(h.authenticate, admin).Post("/provinces", h.createProvince)
			r.With(h.authenticate, admin).Post("/districts", h.createDistrict)
		})

		r.Get("/bank-details", h.listBankDetails)
		r.With(h.authenticate, admin).Post("/bank-details", h.createBankDetail)
		r.Get("/categories", h.listCategories)
		r.Get("/categories/{id}", h.getCategory)

		// Everything below requires a session.
		r.Group(func(r chi.Router) {
			r.Use(h.authenticate)

			r.Route("/applications", func(r chi.Router) {
				applicant := requireRole(user.RoleVendor, user.RoleCenter)
				r.With(applicant).Post("/", h.submitApplication)
				r.With(applicant).Get("/me", h.myApplications)
				r.With(admin).Get("/", h.listApplications)
				r.With(admin).Put("/{id}", h.decideApplication)
			})

			r.Route("/centers", func(r chi.Router) {
				r.With(center).Get("/profile", h.centerProfile)
				r.With(requireRole(user.RoleVendor, user.RoleAdmin)).Get("/{id}/products", h.centerCatalog)
			})

			r.Route("/products", func(r chi.Router) {
				r.Use(center)
				r.Get("/", h.listProducts)
				r.Post("/", h.createProduct)
				r.Put("/{id}", h.updateProduct)
				r.Delete("/{id}", h.deleteProduct)
			})

			r.Route("/orders", func(r chi.Router) {
				r.With(requireRole(user.RoleVendor, user.RoleCenter)).Get("/", h.listOrders)
				r.With(vendor).Get("/stats", h.orderStats)
				r.Get("/{id}", h.getOrder)
				r.With(vendor).Post("/", h.placeOrder)
				r.With(vendor).Put("/{id}/payment", h.updatePayment)
				r.With(center).Put("/{id}/status", h.updateOrderStatus)
			})

			r.Route("/messages", func(r chi.Router) {
				r.Get("/", h.listMessages)
				r.Post("/", h.sendMessage)
				r.Get("/unread", h.unreadCount)
				r.Put("/{id}/read", h.markRead)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(admin)
				r.Get("/vendors", h.listUsers(user.RoleVendor))
				r.Get("/centers", h.listUsers(user.RoleCenter))
				r.Put("/users/{id}", h.setUserStatus)
				r.Get("/commissions", h.commissions)
			})
		})
	})

	return r
}
