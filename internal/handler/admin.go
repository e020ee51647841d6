package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/vendor-request-system/internal/domain/user"
)

type commissionResponse struct {
	CenterID     string  `json:"centerId"`
	BusinessName string  `json:"businessName"`
	Orders       int     `json:"orders"`
	Sales        float64 `json:"sales"`
	Commission   float64 `json:"commission"`
}

func (h *Handler) listUsers(role user.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		us, err := h.svc.Users.ListByRole(r.Context(), role)
		if err != nil {
			fail(w, r, "list users", err)
			return
		}
		out := make([]userResponse, len(us))
		for i := range us {
			out[i] = toUser(&us[i])
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func (h *Handler) setUserStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status user.Status `json:"status"`
	}
	if err := decode(w, r, &req); err != nil {
		fail(w, r, "set user status", err)
		return
	}
	u, err := h.svc.Users.SetStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		fail(w, r, "set user status", err)
		return
	}
	writeJSON(w, http.StatusOK, toUser(u))
}

func (h *Handler) commissions(w http.ResponseWriter, r *http.Request) {
	cs, err := h.svc.Orders.Commissions(r.Context())
	if err != nil {
		fail(w, r, "commissions", err)
		return
	}
	out := make([]commissionResponse, len(cs))
	for i, c := range cs {
		out[i] = commissionResponse{
			CenterID:     c.CenterID,
			BusinessName: c.BusinessName,
			Orders:       c.Orders,
			Sales:        c.Sales.InexactFloat64(),
			Commission:   c.Commission.InexactFloat64(),
		}
	}
	writeJSON(w, http.StatusOK, out)
}
