package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/vendor-request-system/internal/domain/user"
)

const (
	userColumns = `id, email, password_hash, role, is_approved, status, created_at, updated_at`

	createUserSQL = `INSERT INTO users (id, email, password_hash, role, is_approved, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`

	getUserByIDSQL    = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	getUserByEmailSQL = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	listUsersByRole   = `SELECT ` + userColumns + ` FROM users WHERE role = $1 ORDER BY created_at DESC`

	setUserStatusSQL = `UPDATE users
		SET status = $2, is_approved = ($2 = 'approved'), updated_at = now()
		WHERE id = $1
		RETURNING ` + userColumns
)

var _ user.Repository = (*UserRepository)(nil)

// UserRepository implements user.Repository backed by PostgreSQL.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create inserts u and fills its timestamps.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	err := r.pool.QueryRow(ctx, createUserSQL,
		u.ID, u.Email, u.PasswordHash, u.Role, u.IsApproved, u.Status,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return user.ErrEmailTaken
		}
		return errors.Wrapf(err, "create user %q", u.Email)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	return r.getOne(ctx, getUserByIDSQL, id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.getOne(ctx, getUserByEmailSQL, email)
}

func (r *UserRepository) ListByRole(ctx context.Context, role user.Role) ([]user.User, error) {
	rows, err := r.pool.Query(ctx, listUsersByRole, role)
	if err != nil {
		return nil, errors.Wrap(err, "list users")
	}
	return pgx.CollectRows(rows, scanUser)
}

func (r *UserRepository) SetStatus(ctx context.Context, id string, status user.Status) (*user.User, error) {
	return r.getOne(ctx, setUserStatusSQL, id, status)
}

func (r *UserRepository) getOne(ctx context.Context, query string, args ...any) (*user.User, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query user")
	}
	u, err := pgx.CollectExactlyOneRow(rows, scanUser)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, errors.Wrap(err, "scan user")
	}
	return &u, nil
}

func scanUser(row pgx.CollectableRow) (user.User, error) {
	var u user.User
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.Role,
		&u.IsApproved, &u.Status, &u.CreatedAt, &u.UpdatedAt,
	)
	return u, err
}
