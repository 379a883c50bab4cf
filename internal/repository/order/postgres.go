package order

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rcmarket/marketplace/internal/domain"
	"github.com/rcmarket/marketplace/internal/repository/product"
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
	return &postgresRepo{pool: pool, logger: logger.WithField("repo", "order")}
}

const orderColumns = `id::text, user_id, total_cents, shipping_address, created_at`

func (r *postgresRepo) Create(ctx context.Context, o domain.Order) (*domain.Order, error) {
	const q = `
INSERT INTO orders (user_id, total_cents, shipping_address)
VALUES ($1, $2, $3)
RETURNING ` + orderColumns
	return scanOrder(r.pool.QueryRow(ctx, q, o.UserID, o.TotalCents, o.ShippingAddress))
}

func (r *postgresRepo) InsertItems(ctx context.Context, orderID string, items []domain.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	orderIDs := make([]string, len(items))
	productIDs := make([]string, len(items))
	quantities := make([]int32, len(items))
	prices := make([]int64, len(items))
	for i, it := range items {
		if it.Quantity <= 0 || it.Quantity > math.MaxInt32 {
			return domain.Invalid(fmt.Sprintf("quantity %d out of range", it.Quantity))
		}
		orderIDs[i] = orderID
		productIDs[i] = it.ProductID
		quantities[i] = int32(it.Quantity)
		prices[i] = it.UnitPriceCents
	}

	const q = `
INSERT INTO order_items (order_id, product_id, quantity, price_cents)
SELECT o::uuid, p::uuid, q, pr
FROM unnest($1::text[], $2::text[], $3::int[], $4::bigint[]) AS t(o, p, q, pr)
`
	cmd, err := r.pool.Exec(ctx, q, orderIDs, productIDs, quantities, prices)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			r.logger.WithFields(logrus.Fields{
				"order_id":   orderID,
				"code":       pgErr.Code,
				"constraint": pgErr.ConstraintName,
			}).Warn("insert items rejected")
		}
		return err
	}
	r.logger.WithFields(logrus.Fields{"order_id": orderID, "rows": cmd.RowsAffected()}).Debug("inserted items")
	return nil
}

func (r *postgresRepo) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM orders WHERE id::text = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	const q = `
SELECT ` + orderColumns + `
FROM orders
WHERE id::text = $1
`
	o, err := scanOrder(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		return nil, err
	}
	orders := []domain.Order{*o}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (r *postgresRepo) ListByOwner(ctx context.Context, userID string) ([]domain.Order, error) {
	const q = `
SELECT ` + orderColumns + `
FROM orders
WHERE user_id = $1
ORDER BY created_at DESC
`
	orders, err := r.queryOrders(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *postgresRepo) ListOrphans(ctx context.Context, createdBefore time.Time) ([]domain.Order, error) {
	const q = `
SELECT ` + orderColumns + `
FROM orders o
WHERE o.created_at < $1
  AND NOT EXISTS (SELECT 1 FROM order_items oi WHERE oi.order_id = o.id)
ORDER BY o.created_at
`
	return r.queryOrders(ctx, q, createdBefore)
}

func (r *postgresRepo) queryOrders(ctx context.Context, q string, args ...interface{}) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

// attachItems loads the items of every order in one query and assigns them in place.
func (r *postgresRepo) attachItems(ctx context.Context, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
		orders[i].Items = make([]domain.OrderItem, 0)
	}

	const q = `
SELECT oi.id::text, oi.order_id::text, oi.product_id::text, oi.quantity, oi.price_cents, oi.created_at, ` + product.JoinColumns + `
FROM order_items oi
LEFT JOIN products p ON p.id = oi.product_id
WHERE oi.order_id::text = ANY($1::text[])
ORDER BY oi.created_at, oi.id
`
	rows, err := r.pool.Query(ctx, q, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var it domain.OrderItem
		var joined product.Joined
		dest := append([]interface{}{&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.UnitPriceCents, &it.CreatedAt}, joined.Dest()...)
		if err := rows.Scan(dest...); err != nil {
			return err
		}
		it.Product = joined.Product()
		if i, ok := index[it.OrderID]; ok {
			orders[i].Items = append(orders[i].Items, it)
		}
	}
	return rows.Err()
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	if err := row.Scan(&o.ID, &o.UserID, &o.TotalCents, &o.ShippingAddress, &o.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}
