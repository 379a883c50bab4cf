package cart

import (
	"context"

	"github.com/rcmarket/marketplace/internal/domain"
)

// Repository stores per-user cart lines, one per product.
type Repository interface {
	ListByUser(ctx context.Context, userID string) ([]domain.CartItem, error)
	// Upsert sets the quantity of the user's line for productID, creating it if needed.
	Upsert(ctx context.Context, userID, productID string, quantity int) (*domain.CartItem, error)
	Remove(ctx context.Context, userID, productID string) error
	Clear(ctx context.Context, userID string) error
}
