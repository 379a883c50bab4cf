package cart

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
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

func (r *postgresRepo) ListByUser(ctx context.Context, userID string) ([]domain.CartItem, error) {
	const q = `
SELECT c.id::text, c.user_id, c.product_id::text, c.quantity, c.created_at, ` + product.JoinColumns + `
FROM cart_items c
LEFT JOIN products p ON p.id = c.product_id
WHERE c.user_id = $1
ORDER BY c.created_at
`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.CartItem, 0)
	for rows.Next() {
		var item domain.CartItem
		var joined product.Joined
		dest := append([]interface{}{&item.ID, &item.UserID, &item.ProductID, &item.Quantity, &item.CreatedAt}, joined.Dest()...)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		item.Product = joined.Product()
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *postgresRepo) Upsert(ctx context.Context, userID, productID string, quantity int) (*domain.CartItem, error) {
	const q = `
INSERT INTO cart_items (user_id, product_id, quantity)
VALUES ($1, $2::uuid, $3)
ON CONFLICT (user_id, product_id) DO UPDATE SET quantity = EXCLUDED.quantity
RETURNING id::text, user_id, product_id::text, quantity, created_at
`
	var item domain.CartItem
	err := r.pool.QueryRow(ctx, q, userID, productID, quantity).Scan(
		&item.ID,
		&item.UserID,
		&item.ProductID,
		&item.Quantity,
		&item.CreatedAt,
	)
	if err != nil {
		return nil, mapWriteError(err)
	}
	return &item, nil
}

func (r *postgresRepo) Remove(ctx context.Context, userID, productID string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1 AND product_id::text = $2`, userID, productID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) Clear(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
	return err
}

// mapWriteError maps a foreign-key miss on product_id to ErrNotFound.
func mapWriteError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23503", "22P02":
			return domain.ErrNotFound
		case "23505":
			return domain.ErrAlreadyExists
		}
	}
	return err
}
