package handler

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/vendor-request-system/internal/domain/auth"
	"github.com/xenking/vendor-request-system/internal/domain/user"
)

// legacyTokenHeader is the header older clients send the session token in.
const legacyTokenHeader = "x-auth-token"

func bearerToken(r *http.Request) string {
	if v := r.Header.Get("Authorization"); v != "" {
		scheme, token, ok := strings.Cut(v, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.Header.Get(legacyTokenHeader)
}

// authenticate resolves the session token into an auth.Principal.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			fail(w, r, "authenticate", errUnauthorized)
			return
		}
		p, err := h.svc.Auth.Verify(raw)
		if err != nil {
			fail(w, r, "authenticate", err)
			return
		}

		ctx := auth.WithPrincipal(r.Context(), p)
		ctx = zctx.With(ctx, zap.String("user_id", p.UserID), zap.Stringer("role", p.Role))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRole admits only principals with one of roles. It must run after
// authenticate.
func requireRole(roles ...user.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := auth.PrincipalFrom(r.Context())
			if !ok {
				fail(w, r, "authorize", errUnauthorized)
				return
			}
			if !slices.Contains(roles, p.Role) {
				fail(w, r, "authorize", errForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func principal(r *http.Request) auth.Principal {
	p, _ := auth.PrincipalFrom(r.Context())
	return p
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

type userResponse struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Role       user.Role `json:"role"`
	IsApproved bool      `json:"isApproved"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
}

func toUser(u *user.User) userResponse {
	return userResponse{
		ID:         u.ID,
		Email:      u.Email,
		Role:       u.Role,
		IsApproved: u.IsApproved,
		Status:     string(u.Status),
		CreatedAt:  u.CreatedAt,
	}
}

type sessionResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decode(w, r, &req); err != nil {
		fail(w, r, "register", err)
		return
	}
	role, err := user.ParseRole(req.Role)
	if err != nil {
		fail(w, r, "register", err)
		return
	}
	s, err := h.svc.Auth.Register(r.Context(), req.Email, req.Password, role)
	if err != nil {
		fail(w, r, "register", err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{Token: s.Token, User: toUser(s.User)})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decode(w, r, &req); err != nil {
		fail(w, r, "login", err)
		return
	}
	s, err := h.svc.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		fail(w, r, "login", err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Token: s.Token, User: toUser(s.User)})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Auth.Me(r.Context(), principal(r))
	if err != nil {
		fail(w, r, "me", err)
		return
	}
	writeJSON(w, http.StatusOK, toUser(u))
}
