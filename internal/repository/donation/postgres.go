package donation

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rcmarket/marketplace/internal/domain"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

const donationColumns = `id::text, user_id, item_name, description, category, quantity, condition, pickup_address, pincode, status, created_at`

func (r *postgresRepo) ListByUser(ctx context.Context, userID string) ([]domain.Donation, error) {
	const q = `
SELECT ` + donationColumns + `
FROM donations
WHERE user_id = $1
ORDER BY created_at DESC
`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Donation, 0)
	for rows.Next() {
		d, err := scanDonation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (r *postgresRepo) Create(ctx context.Context, d domain.Donation) (*domain.Donation, error) {
	const q = `
INSERT INTO donations (user_id, item_name, description, category, quantity, condition, pickup_address, pincode, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE(NULLIF($9, ''), 'pending'))
RETURNING ` + donationColumns
	return scanDonation(r.pool.QueryRow(ctx, q,
		d.UserID,
		d.ItemName,
		d.Description,
		d.Category,
		d.Quantity,
		d.Condition,
		d.PickupAddress,
		d.Pincode,
		d.Status,
	))
}

func scanDonation(row pgx.Row) (*domain.Donation, error) {
	var d domain.Donation
	if err := row.Scan(
		&d.ID,
		&d.UserID,
		&d.ItemName,
		&d.Description,
		&d.Category,
		&d.Quantity,
		&d.Condition,
		&d.PickupAddress,
		&d.Pincode,
		&d.Status,
		&d.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &d, nil
}
