package wishlist

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rcmarket/marketplace/internal/domain"
	"github.com/rcmarket/marketplace/internal/repository/product"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) ListByUser(ctx context.Context, userID string) ([]domain.WishlistItem, error) {
	const q = `
SELECT w.id::text, w.user_id, w.product_id::text, w.created_at, ` + product.JoinColumns + `
FROM wishlist w
LEFT JOIN products p ON p.id = w.product_id
WHERE w.user_id = $1
ORDER BY w.created_at DESC
`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.WishlistItem, 0)
	for rows.Next() {
		var item domain.WishlistItem
		var joined product.Joined
		dest := append([]interface{}{&item.ID, &item.UserID, &item.ProductID, &item.CreatedAt}, joined.Dest()...)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		item.Product = joined.Product()
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *postgresRepo) Add(ctx context.Context, userID, productID string) (*domain.WishlistItem, error) {
	const q = `
INSERT INTO wishlist (user_id, product_id)
VALUES ($1, $2::uuid)
RETURNING id::text, user_id, product_id::text, created_at
`
	var item domain.WishlistItem
	if err := r.pool.QueryRow(ctx, q, userID, productID).Scan(&item.ID, &item.UserID, &item.ProductID, &item.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return nil, domain.ErrAlreadyExists
			case "23503", "22P02":
				return nil, domain.ErrNotFound
			}
		}
		return nil, err
	}
	return &item, nil
}

func (r *postgresRepo) Remove(ctx context.Context, userID, productID string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM wishlist WHERE user_id = $1 AND product_id::text = $2`, userID, productID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
