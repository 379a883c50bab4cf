package order

import (
	"context"
	"time"

	"github.com/rcmarket/marketplace/internal/domain"
)

// Repository writes order headers and line items as two separate statements. It
// deliberately offers no transaction spanning both.
type Repository interface {
	// Create inserts the header and returns it with its store-assigned id.
	Create(ctx context.Context, o domain.Order) (*domain.Order, error)
	// InsertItems writes all items for orderID in a single statement.
	InsertItems(ctx context.Context, orderID string, items []domain.OrderItem) error
	Delete(ctx context.Context, id string) error
	// GetByID returns the header with its items and their products.
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	// ListByOwner returns the owner's orders newest-first with items and products.
	ListByOwner(ctx context.Context, userID string) ([]domain.Order, error)
	// ListOrphans returns headers created before the cutoff that have no items.
	ListOrphans(ctx context.Context, createdBefore time.Time) ([]domain.Order, error)
}
