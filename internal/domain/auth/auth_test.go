package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/xenking/vendor-request-system/internal/domain/user"
	"github.com/xenking/vendor-request-system/internal/domain/validation"
)

// --- Mock implementations ---

type mockUserRepo struct {
	mu      sync.Mutex
	byID    map[string]*user.User
	byEmail map[string]*user.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		byID:    make(map[string]*user.User),
		byEmail: make(map[string]*user.User),
	}
}

func (m *mockUserRepo) Create(_ context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[u.Email]; ok {
		return user.ErrEmailTaken
	}
	m.byID[u.ID] = u
	m.byEmail[u.Email] = u
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return u, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byEmail[email]
	if !ok {
		return nil, user.ErrNotFound
	}
	return u, nil
}

func (m *mockUserRepo) ListByRole(context.Context, user.Role) ([]user.User, error) {
	return nil, nil
}

func (m *mockUserRepo) SetStatus(_ context.Context, id string, status user.Status) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	u.Status = status
	u.IsApproved = status == user.StatusApproved
	return u, nil
}

func newTestService(repo user.Repository) *Service {
	svc := NewService(repo, NewTokens("test-secret", time.Hour))
	svc.cost = bcrypt.MinCost
	return svc
}

// --- Token tests ---

func TestTokens_RoundTrip(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)

	raw, err := tokens.Issue("user-1", user.RoleCenter)
	require.NoError(t, err)

	p, err := tokens.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, Principal{UserID: "user-1", Role: user.RoleCenter}, p)
}

func TestTokens_Expired(t *testing.T) {
	tokens := NewTokens("secret", time.Minute)
	issued := time.Now().Add(-2 * time.Hour)
	tokens.now = func() time.Time { return issued }

	raw, err := tokens.Issue("user-1", user.RoleVendor)
	require.NoError(t, err)

	tokens.now = time.Now
	_, err = tokens.Verify(raw)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokens_WrongSecret(t *testing.T) {
	raw, err := NewTokens("one", time.Hour).Issue("user-1", user.RoleVendor)
	require.NoError(t, err)

	_, err = NewTokens("two", time.Hour).Verify(raw)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokens_RejectsOtherAlgorithms(t *testing.T) {
	claims := Claims{
		Role: user.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "attacker",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokens("secret", time.Hour).Verify(raw)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokens_UnknownRole(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)
	raw, err := tokens.Issue("user-1", user.Role("superuser"))
	require.NoError(t, err)

	_, err = tokens.Verify(raw)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestPrincipalContext(t *testing.T) {
	_, ok := PrincipalFrom(context.Background())
	assert.False(t, ok)

	ctx := WithPrincipal(context.Background(), Principal{UserID: "u", Role: user.RoleAdmin})
	p, ok := PrincipalFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, "u", p.UserID)
}

// --- Service tests ---

func TestRegister(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestService(repo)

	sess, err := svc.Register(context.Background(), "  Shop@Example.com ", "secret1", user.RoleVendor)
	require.NoError(t, err)
	require.NotEmpty(t, sess.Token)
	assert.Equal(t, "shop@example.com", sess.User.Email)
	assert.Equal(t, user.StatusPending, sess.User.Status)
	assert.False(t, sess.User.IsApproved)
	assert.NotEqual(t, "secret1", sess.User.PasswordHash)

	p, err := svc.Verify(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, p.UserID)
	assert.Equal(t, user.RoleVendor, p.Role)
}

func TestRegister_Validation(t *testing.T) {
	svc := newTestService(newMockUserRepo())

	tests := []struct {
		name     string
		email    string
		password string
		role     user.Role
		field    string
	}{
		{name: "bad email", email: "nope", password: "secret1", role: user.RoleVendor, field: "email"},
		{name: "short password", email: "a@b.np", password: "123", role: user.RoleVendor, field: "password"},
		{name: "admin role", email: "a@b.np", password: "secret1", role: user.RoleAdmin, field: "role"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.email, tt.password, tt.role)
			var vErr *validation.Error
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc := newTestService(newMockUserRepo())

	_, err := svc.Register(context.Background(), "a@b.np", "secret1", user.RoleCenter)
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "A@B.np", "secret2", user.RoleVendor)
	require.ErrorIs(t, err, user.ErrEmailTaken)
}

func TestLogin(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	sess, err := svc.Register(ctx, "vendor@shop.np", "secret1", user.RoleVendor)
	require.NoError(t, err)

	_, err = svc.Login(ctx, "vendor@shop.np", "secret1")
	require.ErrorIs(t, err, ErrNotApproved)

	_, err = repo.SetStatus(ctx, sess.User.ID, user.StatusApproved)
	require.NoError(t, err)

	got, err := svc.Login(ctx, "VENDOR@shop.np", "secret1")
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, got.User.ID)

	_, err = svc.Login(ctx, "vendor@shop.np", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "ghost@shop.np", "secret1")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_AdminSkipsApproval(t *testing.T) {
	repo := newMockUserRepo()
	hash, err := bcrypt.GenerateFromPassword([]byte("rootpass"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), &user.User{
		ID:           "admin-1",
		Email:        "admin@vrs.np",
		PasswordHash: string(hash),
		Role:         user.RoleAdmin,
	}))

	sess, err := newTestService(repo).Login(context.Background(), "admin@vrs.np", "rootpass")
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, sess.User.Role)
}

func TestMe(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestService(repo)

	_, err := svc.Me(context.Background(), Principal{UserID: "missing"})
	require.True(t, errors.Is(err, user.ErrNotFound))
}
