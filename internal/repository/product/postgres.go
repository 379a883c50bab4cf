package product

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rcmarket/marketplace/internal/domain"
	"github.com/sirupsen/logrus"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger logrus.FieldLogger
}

func NewPostgres(pool *pgxpool.Pool, logger logrus.FieldLogger) Repository {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &postgresRepo{pool: pool, logger: logger.WithField("repo", "product")}
}

const productColumns = `id::text, seller_id, title, description, price_cents, image_url, category, condition, created_at, updated_at`

func (r *postgresRepo) List(ctx context.Context) ([]domain.Product, error) {
	const q = `
SELECT ` + productColumns + `
FROM products
ORDER BY created_at DESC
`
	return r.query(ctx, q)
}

func (r *postgresRepo) ListBySeller(ctx context.Context, sellerID string) ([]domain.Product, error) {
	const q = `
SELECT ` + productColumns + `
FROM products
WHERE seller_id = $1
ORDER BY created_at DESC
`
	return r.query(ctx, q, sellerID)
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	const q = `
SELECT ` + productColumns + `
FROM products
WHERE id::text = $1
`
	p, err := scanProduct(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			r.logger.WithField("id", id).Debug("get: not found")
		}
		return nil, err
	}
	return p, nil
}

func (r *postgresRepo) Create(ctx context.Context, p domain.Product) (*domain.Product, error) {
	const q = `
INSERT INTO products (seller_id, title, description, price_cents, image_url, category, condition)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + productColumns
	out, err := scanProduct(r.pool.QueryRow(ctx, q,
		p.SellerID,
		p.Title,
		p.Description,
		p.PriceCents,
		p.ImageURL,
		p.Category,
		p.Condition,
	))
	if err != nil {
		r.logger.WithError(err).WithField("title", p.Title).Error("create")
		return nil, err
	}
	return out, nil
}

func (r *postgresRepo) Update(ctx context.Context, id string, patch Patch) (*domain.Product, error) {
	const q = `
UPDATE products SET
    title = COALESCE($2, title),
    description = COALESCE($3, description),
    price_cents = COALESCE($4, price_cents),
    image_url = COALESCE($5, image_url),
    category = COALESCE($6, category),
    condition = COALESCE($7, condition),
    updated_at = now()
WHERE id::text = $1
RETURNING ` + productColumns
	return scanProduct(r.pool.QueryRow(ctx, q,
		id,
		patch.Title,
		patch.Description,
		patch.PriceCents,
		patch.ImageURL,
		patch.Category,
		patch.Condition,
	))
}

func (r *postgresRepo) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id::text = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Upsert inserts p or, when a listing with the same id exists, overwrites it.
func (r *postgresRepo) Upsert(ctx context.Context, p domain.Product) (*domain.Product, error) {
	const q = `
INSERT INTO products (id, seller_id, title, description, price_cents, image_url, category, condition)
VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO UPDATE SET
    seller_id = EXCLUDED.seller_id,
    title = EXCLUDED.title,
    description = EXCLUDED.description,
    price_cents = EXCLUDED.price_cents,
    image_url = EXCLUDED.image_url,
    category = EXCLUDED.category,
    condition = EXCLUDED.condition,
    updated_at = now()
RETURNING ` + productColumns
	out, err := scanProduct(r.pool.QueryRow(ctx, q,
		p.ID,
		p.SellerID,
		p.Title,
		p.Description,
		p.PriceCents,
		p.ImageURL,
		p.Category,
		p.Condition,
	))
	if err != nil {
		r.logger.WithError(err).WithField("id", p.ID).Error("upsert")
		return nil, err
	}
	r.logger.WithFields(logrus.Fields{"id": out.ID, "title": out.Title}).Debug("upserted")
	return out, nil
}

func (r *postgresRepo) query(ctx context.Context, q string, args ...interface{}) ([]domain.Product, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		r.logger.WithError(err).Error("list")
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		r.logger.WithError(err).Error("list rows")
		return nil, err
	}
	r.logger.WithField("count", len(result)).Debug("list")
	return result, nil
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	err := row.Scan(
		&p.ID,
		&p.SellerID,
		&p.Title,
		&p.Description,
		&p.PriceCents,
		&p.ImageURL,
		&p.Category,
		&p.Condition,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrAlreadyExists
		}
		return nil, err
	}
	return &p, nil
}
