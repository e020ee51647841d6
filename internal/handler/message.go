package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/vendor-request-system/internal/domain/message"
	"github.com/xenking/vendor-request-system/internal/domain/user"
)

type participantResponse struct {
	ID    string    `json:"id"`
	Email string    `json:"email"`
	Role  user.Role `json:"role"`
}

type messageResponse struct {
	ID               string              `json:"id"`
	Sender           participantResponse `json:"sender"`
	Receiver         participantResponse `json:"receiver"`
	Content          string              `json:"content"`
	IsRead           bool                `json:"isRead"`
	RelatedOrderID   string              `json:"relatedOrder,omitempty"`
	RelatedProductID string              `json:"relatedProduct,omitempty"`
	CreatedAt        time.Time           `json:"createdAt"`
}

func toMessage(m *message.Message) messageResponse {
	return messageResponse{
		ID:               m.ID,
		Sender:           participantResponse(m.Sender),
		Receiver:         participantResponse(m.Receiver),
		Content:          m.Content,
		IsRead:           m.Read,
		RelatedOrderID:   m.RelatedOrderID,
		RelatedProductID: m.RelatedProductID,
		CreatedAt:        m.CreatedAt,
	}
}

func (h *Handler) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ReceiverID       string `json:"receiverId"`
		Content          string `json:"content"`
		RelatedOrderID   string `json:"relatedOrder"`
		RelatedProductID string `json:"relatedProduct"`
	}
	if err := decode(w, r, &req); err != nil {
		fail(w, r, "send message", err)
		return
	}
	m, err := h.svc.Messages.Send(r.Context(), principal(r).UserID, message.SendRequest(req))
	if err != nil {
		fail(w, r, "send message", err)
		return
	}
	writeJSON(w, http.StatusCreated, toMessage(m))
}

func (h *Handler) listMessages(w http.ResponseWriter, r *http.Request) {
	ms, err := h.svc.Messages.List(r.Context(), principal(r).UserID)
	if err != nil {
		fail(w, r, "list messages", err)
		return
	}
	out := make([]messageResponse, len(ms))
	for i := range ms {
		out[i] = toMessage(&ms[i])
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.Messages.MarkRead(r.Context(), principal(r).UserID, chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, "mark read", err)
		return
	}
	writeJSON(w, http.StatusOK, toMessage(m))
}

func (h *Handler) unreadCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Messages.UnreadCount(r.Context(), principal(r).UserID)
	if err != nil {
		fail(w, r, "unread count", err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Count int `json:"count"`
	}{n})
}
