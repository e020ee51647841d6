package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/vendor-request-system/internal/domain/reference"
)

const (
	listProvincesSQL  = `SELECT id, name FROM provinces ORDER BY id`
	createProvinceSQL = `INSERT INTO provinces (name) VALUES ($1) RETURNING id, name`

	listDistrictsSQL         = `SELECT id, province_id, name FROM districts ORDER BY name`
	listProvinceDistrictsSQL = `SELECT id, province_id, name FROM districts WHERE province_id = $1 ORDER BY name`
	createDistrictSQL        = `INSERT INTO districts (province_id, name) VALUES ($1, $2) RETURNING id, province_id, name`

	districtInProvinceSQL = `SELECT EXISTS (
			SELECT 1 FROM districts d JOIN provinces p ON p.id = d.province_id
			WHERE lower(p.name) = lower($1) AND lower(d.name) = lower($2))`

	listBankDetailsSQL  = `SELECT id, bank_name, branch, account_number, account_holder_name FROM bank_details ORDER BY id`
	createBankDetailSQL = `INSERT INTO bank_details (bank_name, branch, account_number, account_holder_name)
		VALUES ($1, $2, $3, $4) RETURNING id`

	listCategoriesSQL = `SELECT id, name, description FROM categories ORDER BY name`
	getCategorySQL    = `SELECT id, name, description FROM categories WHERE id = $1`
)

var _ reference.Repository = (*ReferenceRepository)(nil)

// ReferenceRepository implements reference.Repository backed by PostgreSQL.
// The rows are seeded by the schema migration.
type ReferenceRepository struct {
	pool *pgxpool.Pool
}

func NewReferenceRepository(pool *pgxpool.Pool) *ReferenceRepository {
	return &ReferenceRepository{pool: pool}
}

func (r *ReferenceRepository) Provinces(ctx context.Context) ([]reference.Province, error) {
	rows, err := r.pool.Query(ctx, listProvincesSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list provinces")
	}
	return pgx.CollectRows(rows, scanProvince)
}

func (r *ReferenceRepository) CreateProvince(ctx context.Context, name string) (*reference.Province, error) {
	rows, err := r.pool.Query(ctx, createProvinceSQL, name)
	if err != nil {
		return nil, errors.Wrap(err, "insert province")
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanProvince)
	if err != nil {
		return nil, referenceWriteError(err)
	}
	return &p, nil
}

func (r *ReferenceRepository) Districts(ctx context.Context) ([]reference.District, error) {
	rows, err := r.pool.Query(ctx, listDistrictsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list districts")
	}
	return pgx.CollectRows(rows, scanDistrict)
}

func (r *ReferenceRepository) DistrictsByProvince(ctx context.Context, provinceID int) ([]reference.District, error) {
	rows, err := r.pool.Query(ctx, listProvinceDistrictsSQL, provinceID)
	if err != nil {
		return nil, errors.Wrapf(err, "list districts of province %d", provinceID)
	}
	return pgx.CollectRows(rows, scanDistrict)
}

// CreateDistrict reports reference.ErrNotFound when the province does not
// exist.
func (r *ReferenceRepository) CreateDistrict(ctx context.Context, provinceID int, name string) (*reference.District, error) {
	rows, err := r.pool.Query(ctx, createDistrictSQL, provinceID, name)
	if err != nil {
		return nil, errors.Wrap(err, "insert district")
	}
	d, err := pgx.CollectExactlyOneRow(rows, scanDistrict)
	if err != nil {
		return nil, referenceWriteError(err)
	}
	return &d, nil
}

func (r *ReferenceRepository) DistrictInProvince(ctx context.Context, province, district string) (bool, error) {
	var ok bool
	if err := r.pool.QueryRow(ctx, districtInProvinceSQL, province, district).Scan(&ok); err != nil {
		return false, errors.Wrap(err, "lookup district")
	}
	return ok, nil
}

func (r *ReferenceRepository) BankDetails(ctx context.Context) ([]reference.BankDetail, error) {
	rows, err := r.pool.Query(ctx, listBankDetailsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list bank details")
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (reference.BankDetail, error) {
		var b reference.BankDetail
		err := row.Scan(&b.ID, &b.BankName, &b.Branch, &b.AccountNumber, &b.AccountHolderName)
		return b, err
	})
}

func (r *ReferenceRepository) CreateBankDetail(ctx context.Context, b *reference.BankDetail) error {
	err := r.pool.QueryRow(ctx, createBankDetailSQL,
		b.BankName, b.Branch, b.AccountNumber, b.AccountHolderName,
	).Scan(&b.ID)
	if err != nil {
		return referenceWriteError(err)
	}
	return nil
}

func (r *ReferenceRepository) Categories(ctx context.Context) ([]reference.Category, error) {
	rows, err := r.pool.Query(ctx, listCategoriesSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list categories")
	}
	return pgx.CollectRows(rows, scanCategory)
}

func (r *ReferenceRepository) CategoryByID(ctx context.Context, id int) (*reference.Category, error) {
	rows, err := r.pool.Query(ctx, getCategorySQL, id)
	if err != nil {
		return nil, errors.Wrap(err, "query category")
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCategory)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, reference.ErrNotFound
		}
		return nil, errors.Wrap(err, "scan category")
	}
	return &c, nil
}

func referenceWriteError(err error) error {
	switch {
	case isUniqueViolation(err):
		return reference.ErrDuplicate
	case isForeignKeyViolation(err):
		return reference.ErrNotFound
	default:
		return errors.Wrap(err, "write reference entry")
	}
}

func scanProvince(row pgx.CollectableRow) (reference.Province, error) {
	var p reference.Province
	err := row.Scan(&p.ID, &p.Name)
	return p, err
}

func scanDistrict(row pgx.CollectableRow) (reference.District, error) {
	var d reference.District
	err := row.Scan(&d.ID, &d.ProvinceID, &d.Name)
	return d, err
}

func scanCategory(row pgx.CollectableRow) (reference.Category, error) {
	var c reference.Category
	err := row.Scan(&c.ID, &c.Name, &c.Description)
	return c, err
}
