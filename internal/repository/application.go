package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/vendor-request-system/internal/domain/application"
)

const (
	applicationColumns = `id, user_id, type, business_name, pan, email, phone, province, district, category,
		contact1_name, contact1_phone, contact2_name, contact2_phone,
		bank_name, account_number, branch, account_holder_name,
		pan_document, status, created_at, updated_at`

	createApplicationSQL = `INSERT INTO applications (
			id, user_id, type, business_name, pan, email, phone, province, district, category,
			contact1_name, contact1_phone, contact2_name, contact2_phone,
			bank_name, account_number, branch, account_holder_name,
			pan_document, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING created_at, updated_at`

	getApplicationSQL = `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1`

	listApplicationsSQL = `SELECT ` + applicationColumns + ` FROM applications
		WHERE ($1 = '' OR type = $1) AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC`

	listUserApplicationsSQL = `SELECT ` + applicationColumns + ` FROM applications
		WHERE user_id = $1 ORDER BY created_at DESC`

	profileSQL = `SELECT ` + applicationColumns + ` FROM applications
		WHERE user_id = $1 AND type = $2
		ORDER BY (status = 'approved') DESC, created_at DESC
		LIMIT 1`

	decideApplicationSQL = `UPDATE applications SET status = $2, updated_at = now()
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + applicationColumns

	approveUserSQL = `UPDATE users SET is_approved = TRUE, status = 'approved', updated_at = now()
		WHERE id = $1`

	applicationExistsSQL = `SELECT EXISTS (SELECT 1 FROM applications WHERE id = $1)`
)

var _ application.Repository = (*ApplicationRepository)(nil)

// ApplicationRepository implements application.Repository backed by
// PostgreSQL.
type ApplicationRepository struct {
	pool *pgxpool.Pool
}

// NewApplicationRepository returns an ApplicationRepository that uses the
// given pool.
func NewApplicationRepository(pool *pgxpool.Pool) *ApplicationRepository {
	return &ApplicationRepository{pool: pool}
}

func (r *ApplicationRepository) Create(ctx context.Context, a *application.Application) error {
	err := r.pool.QueryRow(ctx, createApplicationSQL,
		a.ID, a.UserID, a.Type, a.BusinessName, a.PAN, a.Email, a.Phone, a.Province, a.District, a.Category,
		a.ContactPerson1.Name, a.ContactPerson1.Phone, a.ContactPerson2.Name, a.ContactPerson2.Phone,
		a.BankDetails.BankName, a.BankDetails.AccountNumber, a.BankDetails.Branch, a.BankDetails.AccountHolderName,
		a.PANDocument, a.Status,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return application.ErrAlreadySubmitted
		}
		return errors.Wrap(err, "insert application")
	}
	return nil
}

func (r *ApplicationRepository) GetByID(ctx context.Context, id string) (*application.Application, error) {
	return collectApplication(r.pool.Query(ctx, getApplicationSQL, id))
}

func (r *ApplicationRepository) List(ctx context.Context, f application.Filter) ([]application.Application, error) {
	rows, err := r.pool.Query(ctx, listApplicationsSQL, string(f.Type), string(f.Status))
	if err != nil {
		return nil, errors.Wrap(err, "list applications")
	}
	return pgx.CollectRows(rows, scanApplication)
}

func (r *ApplicationRepository) ListByUser(ctx context.Context, userID string) ([]application.Application, error) {
	rows, err := r.pool.Query(ctx, listUserApplicationsSQL, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list user applications")
	}
	return pgx.CollectRows(rows, scanApplication)
}

func (r *ApplicationRepository) Profile(ctx context.Context, userID string, t application.Type) (*application.Application, error) {
	return collectApplication(r.pool.Query(ctx, profileSQL, userID, t))
}

// Decide updates the application and, on approval, its user in one
// transaction so neither change is visible without the other.
func (r *ApplicationRepository) Decide(ctx context.Context, id string, status application.Status) (*application.Application, error) {
	var decided *application.Application
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		a, err := collectApplication(tx.Query(ctx, decideApplicationSQL, id, status))
		if errors.Is(err, application.ErrNotFound) {
			var exists bool
			if err := tx.QueryRow(ctx, applicationExistsSQL, id).Scan(&exists); err != nil {
				return errors.Wrap(err, "check application")
			}
			if exists {
				return application.ErrAlreadyDecided
			}
			return application.ErrNotFound
		}
		if err != nil {
			return err
		}

		if a.Status == application.StatusApproved {
			if _, err := tx.Exec(ctx, approveUserSQL, a.UserID); err != nil {
				return errors.Wrap(err, "approve user")
			}
		}
		decided = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return decided, nil
}

func collectApplication(rows pgx.Rows, err error) (*application.Application, error) {
	if err != nil {
		return nil, errors.Wrap(err, "query application")
	}
	a, err := pgx.CollectExactlyOneRow(rows, scanApplication)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, application.ErrNotFound
		}
		return nil, errors.Wrap(err, "scan application")
	}
	return &a, nil
}

func scanApplication(row pgx.CollectableRow) (application.Application, error) {
	var a application.Application
	err := row.Scan(
		&a.ID, &a.UserID, &a.Type, &a.BusinessName, &a.PAN, &a.Email, &a.Phone,
		&a.Province, &a.District, &a.Category,
		&a.ContactPerson1.Name, &a.ContactPerson1.Phone,
		&a.ContactPerson2.Name, &a.ContactPerson2.Phone,
		&a.BankDetails.BankName, &a.BankDetails.AccountNumber,
		&a.BankDetails.Branch, &a.BankDetails.AccountHolderName,
		&a.PANDocument, &a.Status, &a.CreatedAt, &a.UpdatedAt,
	)
	return a, err
}
