package product

import (
	"context"

	"github.com/rcmarket/marketplace/internal/domain"
)

// Patch holds the fields of a partial listing update; nil fields are left alone.
type Patch struct {
	Title       *string
	Description *string
	PriceCents  *int64
	ImageURL    *string
	Category    *string
	Condition   *string
}

type Repository interface {
	List(ctx context.Context) ([]domain.Product, error)
	ListBySeller(ctx context.Context, sellerID string) ([]domain.Product, error)
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	Create(ctx context.Context, p domain.Product) (*domain.Product, error)
	Update(ctx context.Context, id string, patch Patch) (*domain.Product, error)
	Delete(ctx context.Context, id string) error
	Upsert(ctx context.Context, p domain.Product) (*domain.Product, error)
}
