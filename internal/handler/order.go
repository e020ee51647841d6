package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/vendor-request-system/internal/domain/order"
	"github.com/xenking/vendor-request-system/internal/domain/pricing"
)

type orderItemBody struct {
	ProductID   string  `json:"productId"`
	ProductName string  `json:"productName,omitempty"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price,omitempty"`
}

type placeOrderRequest struct {
	CenterID string          `json:"centerId"`
	Items    []orderItemBody `json:"items"`
	Notes    string          `json:"notes"`
}

type orderResponse struct {
	ID               string              `json:"id"`
	VendorID         string              `json:"vendorId"`
	CenterID         string              `json:"centerId"`
	Items            []orderItemBody     `json:"items"`
	TotalAmount      float64             `json:"totalAmount"`
	DiscountRate     int                 `json:"discountRate"`
	DiscountAmount   float64             `json:"discountAmount"`
	FinalAmount      float64             `json:"finalAmount"`
	CommissionRate   int                 `json:"commissionRate"`
	CommissionAmount float64             `json:"commissionAmount"`
	VendorDistrict   string              `json:"vendorDistrict"`
	Status           order.Status        `json:"status"`
	PaymentStatus    order.PaymentStatus `json:"paymentStatus"`
	Notes            string              `json:"notes,omitempty"`
	CreatedAt        time.Time           `json:"createdAt"`
	UpdatedAt        time.Time           `json:"updatedAt"`
}

type statsResponse struct {
	TotalOrders     int     `json:"totalOrders"`
	TotalAmount     float64 `json:"totalAmount"`
	TotalDiscount   float64 `json:"totalDiscount"`
	TotalCommission float64 `json:"totalCommission"`
	TotalCenters    int     `json:"totalCenters"`
}

func toOrder(o *order.Order) orderResponse {
	items := make([]orderItemBody, len(o.Items))
	for i, it := range o.Items {
		items[i] = orderItemBody{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			Price:       it.Price.InexactFloat64(),
		}
	}
	return orderResponse{
		ID:               o.ID,
		VendorID:         o.VendorID,
		CenterID:         o.CenterID,
		Items:            items,
		TotalAmount:      o.TotalAmount.InexactFloat64(),
		DiscountRate:     o.DiscountRate,
		DiscountAmount:   o.DiscountAmount.InexactFloat64(),
		FinalAmount:      o.FinalAmount.InexactFloat64(),
		CommissionRate:   o.CommissionRate,
		CommissionAmount: o.CommissionAmount.InexactFloat64(),
		VendorDistrict:   o.VendorDistrict,
		Status:           o.Status,
		PaymentStatus:    o.PaymentStatus,
		Notes:            o.Notes,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
	}
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := decode(w, r, &req); err != nil {
		fail(w, r, "place order", err)
		return
	}
	lines := make([]pricing.Line, len(req.Items))
	for i, it := range req.Items {
		lines[i] = pricing.Line{ProductID: it.ProductID, Quantity: it.Quantity}
	}
	o, err := h.svc.Orders.PlaceOrder(r.Context(), principal(r).UserID, order.PlaceOrderRequest{
		CenterID: req.CenterID,
		Items:    lines,
		Notes:    req.Notes,
	})
	if err != nil {
		fail(w, r, "place order", err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrder(o))
}

// listOrders returns the vendor's own orders or the center's incoming ones.
func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	orders, err := h.svc.Orders.List(r.Context(), p.UserID, p.Role)
	if err != nil {
		fail(w, r, "list orders", err)
		return
	}
	out := make([]orderResponse, len(orders))
	for i := range orders {
		out[i] = toOrder(&orders[i])
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	o, err := h.svc.Orders.Get(r.Context(), p.UserID, p.Role, chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, "get order", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrder(o))
}

func (h *Handler) updatePayment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PaymentStatus order.PaymentStatus `json:"paymentStatus"`
	}
	if err := decode(w, r, &req); err != nil {
		fail(w, r, "update payment", err)
		return
	}
	o, err := h.svc.Orders.UpdatePayment(r.Context(), principal(r).UserID, chi.URLParam(r, "id"), req.PaymentStatus)
	if err != nil {
		fail(w, r, "update payment", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrder(o))
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status order.Status `json:"status"`
	}
	if err := decode(w, r, &req); err != nil {
		fail(w, r, "update order status", err)
		return
	}
	o, err := h.svc.Orders.UpdateStatus(r.Context(), principal(r).UserID, chi.URLParam(r, "id"), req.Status)
	if err != nil {
		fail(w, r, "update order status", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrder(o))
}

func (h *Handler) orderStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Orders.Stats(r.Context(), principal(r).UserID)
	if err != nil {
		fail(w, r, "order stats", err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{
		TotalOrders:     st.TotalOrders,
		TotalAmount:     st.TotalAmount.InexactFloat64(),
		TotalDiscount:   st.TotalDiscount.InexactFloat64(),
		TotalCommission: st.TotalCommission.InexactFloat64(),
		TotalCenters:    st.TotalCenters,
	})
}
