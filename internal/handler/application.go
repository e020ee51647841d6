package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/vendor-request-system/internal/domain/application"
)

type contactBody struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type applicationBankBody struct {
	BankName          string `json:"bankName"`
	AccountNumber     string `json:"accountNumber"`
	Branch            string `json:"branch"`
	AccountHolderName string `json:"accountHolderName"`
}

type applicationBody struct {
	Type           application.Type    `json:"type,omitempty"`
	BusinessName   string              `json:"businessName"`
	PAN            string              `json:"panNumber"`
	Email          string              `json:"email"`
	Phone          string              `json:"phone"`
	Province       string              `json:"province"`
	District       string              `json:"district"`
	Category       string              `json:"category"`
	ContactPerson1 contactBody         `json:"contactPerson1"`
	ContactPerson2 contactBody         `json:"contactPerson2"`
	BankDetails    applicationBankBody `json:"bankDetails"`
	PANDocument    string              `json:"panDocument"`
}

type applicationResponse struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
	applicationBody
	Status    application.Status `json:"status"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

func (b applicationBody) domain() application.Application {
	return application.Application{
		Type:           b.Type,
		BusinessName:   b.BusinessName,
		PAN:            b.PAN,
		Email:          b.Email,
		Phone:          b.Phone,
		Province:       b.Province,
		District:       b.District,
		Category:       b.Category,
		ContactPerson1: application.Contact(b.ContactPerson1),
		ContactPerson2: application.Contact(b.ContactPerson2),
		BankDetails:    application.BankDetails(b.BankDetails),
		PANDocument:    b.PANDocument,
	}
}

func toApplication(a *application.Application) applicationResponse {
	return applicationResponse{
		ID:     a.ID,
		UserID: a.UserID,
		applicationBody: applicationBody{
			Type:           a.Type,
			BusinessName:   a.BusinessName,
			PAN:            a.PAN,
			Email:          a.Email,
			Phone:          a.Phone,
			Province:       a.Province,
			District:       a.District,
			Category:       a.Category,
			ContactPerson1: contactBody(a.ContactPerson1),
			ContactPerson2: contactBody(a.ContactPerson2),
			BankDetails:    applicationBankBody(a.BankDetails),
			PANDocument:    a.PANDocument,
		},
		Status:    a.Status,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func toApplications(in []application.Application) []applicationResponse {
	out := make([]applicationResponse, len(in))
	for i := range in {
		out[i] = toApplication(&in[i])
	}
	return out
}

func (h *Handler) submitApplication(w http.ResponseWriter, r *http.Request) {
	var req applicationBody
	if err := decode(w, r, &req); err != nil {
		fail(w, r, "submit application", err)
		return
	}
	p := principal(r)
	a, err := h.svc.Applications.Submit(r.Context(), p.UserID, p.Role, req.domain())
	if err != nil {
		fail(w, r, "submit application", err)
		return
	}
	writeJSON(w, http.StatusCreated, toApplication(a))
}

// listApplications supports ?type= and ?status= filters.
func (h *Handler) listApplications(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	as, err := h.svc.Applications.List(r.Context(), application.Filter{
		Type:   application.Type(q.Get("type")),
		Status: application.Status(q.Get("status")),
	})
	if err != nil {
		fail(w, r, "list applications", err)
		return
	}
	writeJSON(w, http.StatusOK, toApplications(as))
}

func (h *Handler) myApplications(w http.ResponseWriter, r *http.Request) {
	as, err := h.svc.Applications.Mine(r.Context(), principal(r).UserID)
	if err != nil {
		fail(w, r, "my applications", err)
		return
	}
	writeJSON(w, http.StatusOK, toApplications(as))
}

func (h *Handler) decideApplication(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status application.Status `json:"status"`
	}
	if err := decode(w, r, &req); err != nil {
		fail(w, r, "decide application", err)
		return
	}
	a, err := h.svc.Applications.Decide(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		fail(w, r, "decide application", err)
		return
	}
	writeJSON(w, http.StatusOK, toApplication(a))
}

func (h *Handler) centerProfile(w http.ResponseWriter, r *http.Request) {
	a, err := h.svc.Applications.Profile(r.Context(), principal(r).UserID, application.TypeCenter)
	if err != nil {
		fail(w, r, "center profile", err)
		return
	}
	writeJSON(w, http.StatusOK, toApplication(a))
}
