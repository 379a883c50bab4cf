package donation

import (
	"context"

	"github.com/rcmarket/marketplace/internal/domain"
)

type Repository interface {
	ListByUser(ctx context.Context, userID string) ([]domain.Donation, error)
	Create(ctx context.Context, d domain.Donation) (*domain.Donation, error)
}
