package handler

import (
	"net/http"

	"github.com/xenking/vendor-request-system/internal/domain/reference"
)

type provinceResponse struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type districtResponse struct {
	ID         int    `json:"id"`
	ProvinceID int    `json:"provinceId"`
	Name       string `json:"name"`
}

type bankDetailBody struct {
	ID                int    `json:"id,omitempty"`
	BankName          string `json:"bankName"`
	Branch            string `json:"branch"`
	AccountNumber     string `json:"accountNumber"`
	AccountHolderName string `json:"accountHolderName"`
}

type categoryResponse struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func toProvinces(in []reference.Province) []provinceResponse {
	out := make([]provinceResponse, len(in))
	for i, p := range in {
		out[i] = provinceResponse{ID: p.ID, Name: p.Name}
	}
	return out
}

func toDistrict(d reference.District) districtResponse {
	return districtResponse{ID: d.ID, ProvinceID: d.ProvinceID, Name: d.Name}
}

func toDistricts(in []reference.District) []districtResponse {
	out := make([]districtResponse, len(in))
	for i, d := range in {
		out[i] = toDistrict(d)
	}
	return out
}

func toBankDetail(b reference.BankDetail) bankDetailBody {
	return bankDetailBody{
		ID:                b.ID,
		BankName:          b.BankName,
		Branch:            b.Branch,
		AccountNumber:     b.AccountNumber,
		AccountHolderName: b.AccountHolderName,
	}
}

func toCategory(c reference.Category) categoryResponse {
	return categoryResponse{ID: c.ID, Name: c.Name, Description: c.Description}
}

func (h *Handler) listProvinces(w http.ResponseWriter, r *http.Request) {
	ps, err := h.svc.Reference.Provinces(r.Context())
	if err != nil {
		fail(w, r, "list provinces", err)
		return
	}
	writeJSON(w, http.StatusOK, toProvinces(ps))
}

func (h *Handler) listDistricts(w http.ResponseWriter, r *http.Request) {
	ds, err := h.svc.Reference.Districts(r.Context())
	if err != nil {
		fail(w, r, "list districts", err)
		return
	}
	writeJSON(w, http.StatusOK, toDistricts(ds))
}

func (h *Handler) listProvinceDistricts(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "id")
	if err != nil {
		fail(w, r, "list province districts", err)
		return
	}
	ds, err := h.svc.Reference.DistrictsByProvince(r.Context(), id)
	if err != nil {
		fail(w, r, "list province districts", err)
		return
	}
	writeJSON(w, http.StatusOK, toDistricts(ds))
}

func (h *Handler) createProvince(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decode(w, r, &req); err != nil {
		fail(w, r, "create province", err)
		return
	}
	p, err := h.svc.Reference.AddProvince(r.Context(), req.Name)
	if err != nil {
		fail(w, r, "create province", err)
		return
	}
	writeJSON(w, http.StatusCreated, provinceResponse{ID: p.ID, Name: p.Name})
}

func (h *Handler) createDistrict(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProvinceID int    `json:"provinceId"`
		Name       string `json:"name"`
	}
	if err := decode(w, r, &req); err != nil {
		fail(w, r, "create district", err)
		return
	}
	d, err := h.svc.Reference.AddDistrict(r.Context(), req.ProvinceID, req.Name)
	if err != nil {
		fail(w, r, "create district", err)
		return
	}
	writeJSON(w, http.StatusCreated, toDistrict(*d))
}

func (h *Handler) listBankDetails(w http.ResponseWriter, r *http.Request) {
	bs, err := h.svc.Reference.BankDetails(r.Context())
	if err != nil {
		fail(w, r, "list bank details", err)
		return
	}
	out := make([]bankDetailBody, len(bs))
	for i, b := range bs {
		out[i] = toBankDetail(b)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) createBankDetail(w http.ResponseWriter, r *http.Request) {
	var req bankDetailBody
	if err := decode(w, r, &req); err != nil {
		fail(w, r, "create bank detail", err)
		return
	}
	b, err := h.svc.Reference.AddBankDetail(r.Context(), reference.BankDetail{
		BankName:          req.BankName,
		Branch:            req.Branch,
		AccountNumber:     req.AccountNumber,
		AccountHolderName: req.AccountHolderName,
	})
	if err != nil {
		fail(w, r, "create bank detail", err)
		return
	}
	writeJSON(w, http.StatusCreated, toBankDetail(*b))
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	cs, err := h.svc.Reference.Categories(r.Context())
	if err != nil {
		fail(w, r, "list categories", err)
		return
	}
	out := make([]categoryResponse, len(cs))
	for i, c := range cs {
		out[i] = toCategory(c)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) getCategory(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "id")
	if err != nil {
		fail(w, r, "get category", err)
		return
	}
	c, err := h.svc.Reference.Category(r.Context(), id)
	if err != nil {
		fail(w, r, "get category", err)
		return
	}
	writeJSON(w, http.StatusOK, toCategory(*c))
}
