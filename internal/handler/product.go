package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/xenking/vendor-request-system/internal/domain/product"
)

type productResponse struct {
	ID          string    `json:"id"`
	CenterID    string    `json:"centerId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Quantity    int       `json:"quantity"`
	Category    string    `json:"category"`
	Image       string    `json:"image,omitempty"`
	IsAvailable bool      `json:"isAvailable"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// productRequest doubles as create body and patch; absent fields stay nil.
type productRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Quantity    *int             `json:"quantity"`
	Category    *string          `json:"category"`
	Image       *string          `json:"image"`
	IsAvailable *bool            `json:"isAvailable"`
}

func (req productRequest) product() product.Product {
	p := product.Product{IsAvailable: true}
	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.Price != nil {
		p.Price = *req.Price
	}
	if req.Quantity != nil {
		p.Quantity = *req.Quantity
	}
	if req.Category != nil {
		p.Category = *req.Category
	}
	if req.Image != nil {
		p.Image = *req.Image
	}
	if req.IsAvailable != nil {
		p.IsAvailable = *req.IsAvailable
	}
	return p
}

func (req productRequest) patch() product.Patch {
	return product.Patch(req)
}

func toProduct(p *product.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		CenterID:    p.CenterID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.InexactFloat64(),
		Quantity:    p.Quantity,
		Category:    p.Category,
		Image:       p.Image,
		IsAvailable: p.IsAvailable,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toProducts(in []product.Product) []productResponse {
	out := make([]productResponse, len(in))
	for i := range in {
		out[i] = toProduct(&in[i])
	}
	return out
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	ps, err := h.svc.Products.ListByCenter(r.Context(), principal(r).UserID)
	if err != nil {
		fail(w, r, "list products", err)
		return
	}
	writeJSON(w, http.StatusOK, toProducts(ps))
}

// centerCatalog is the vendor-facing view of a center: available products only.
func (h *Handler) centerCatalog(w http.ResponseWriter, r *http.Request) {
	ps, err := h.svc.Products.ListAvailable(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, "center catalog", err)
		return
	}
	writeJSON(w, http.StatusOK, toProducts(ps))
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decode(w, r, &req); err != nil {
		fail(w, r, "create product", err)
		return
	}
	p, err := h.svc.Products.Create(r.Context(), principal(r).UserID, req.product())
	if err != nil {
		fail(w, r, "create product", err)
		return
	}
	writeJSON(w, http.StatusCreated, toProduct(p))
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decode(w, r, &req); err != nil {
		fail(w, r, "update product", err)
		return
	}
	p, err := h.svc.Products.Update(r.Context(), principal(r).UserID, chi.URLParam(r, "id"), req.patch())
	if err != nil {
		fail(w, r, "update product", err)
		return
	}
	writeJSON(w, http.StatusOK, toProduct(p))
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Products.Delete(r.Context(), principal(r).UserID, chi.URLParam(r, "id")); err != nil {
		fail(w, r, "delete product", err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Message string `json:"message"`
	}{"product removed"})
}
