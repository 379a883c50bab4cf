package wishlist

import (
	"context"

	"github.com/rcmarket/marketplace/internal/domain"
)

type Repository interface {
	ListByUser(ctx context.Context, userID string) ([]domain.WishlistItem, error)
	// Add fails with domain.ErrAlreadyExists when the product is already saved.
	Add(ctx context.Context, userID, productID string) (*domain.WishlistItem, error)
	Remove(ctx context.Context, userID, productID string) error
}
