package auth

import (
	"context"
	"net/mail"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/xenking/vendor-request-system/internal/domain/user"
	"github.com/xenking/vendor-request-system/internal/domain/validation"
)

// Sentinel errors for credential checks.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotApproved        = errors.New("account pending approval")
)

const minPasswordLen = 6

// Session is a successful register or login result.
type Session struct {
	Token string
	User  *user.User
}

// Service handles registration, login and identity lookups.
type Service struct {
	users  user.Repository
	tokens *Tokens
	cost   int
}

// NewService creates an auth Service.
func NewService(users user.Repository, tokens *Tokens) *Service {
	return &Service{
		users:  users,
		tokens: tokens,
		cost:   bcrypt.DefaultCost,
	}
}

// Register creates a vendor or center account and returns a session for it.
// The account starts unapproved.
func (s *Service) Register(ctx context.Context, email, password string, role user.Role) (*Session, error) {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, validation.New("email", "is not a valid address")
	}
	if len(password) < minPasswordLen {
		return nil, validation.New("password", "must be at least 6 characters")
	}
	if !role.SelfRegistered() {
		return nil, validation.New("role", "must be vendor or center")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}

	u := &user.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		Status:       user.StatusPending,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, errors.Wrap(err, "create user")
	}

	return s.session(u)
}

// Login verifies credentials. Vendors and centers must be approved first.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, "get user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if u.Role != user.RoleAdmin && !u.IsApproved {
		return nil, ErrNotApproved
	}

	return s.session(u)
}

// Me returns the account behind a principal.
func (s *Service) Me(ctx context.Context, p Principal) (*user.User, error) {
	u, err := s.users.GetByID(ctx, p.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "get user")
	}
	return u, nil
}

// Verify exposes token verification to the transport layer.
func (s *Service) Verify(raw string) (Principal, error) {
	return s.tokens.Verify(raw)
}

func (s *Service) session(u *user.User) (*Session, error) {
	token, err := s.tokens.Issue(u.ID, u.Role)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: u}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
