package cart

import (
	"context"
	"strings"

	"github.com/rcmarket/marketplace/internal/domain"
	cartrepo "github.com/rcmarket/marketplace/internal/repository/cart"
)

type identitySource interface {
	CachedIdentity(ctx context.Context) (domain.Identity, bool)
}

// Service manages the cached identity's cart. Every operation requires a cached
// identity and fails with domain.ErrNotLoggedIn otherwise.
type Service struct {
	repo     cartrepo.Repository
	identity identitySource
}

func New(repo cartrepo.Repository, identity identitySource) *Service {
	return &Service{repo: repo, identity: identity}
}

type AddInput struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity,omitempty"`
}

func (s *Service) Items(ctx context.Context) ([]domain.CartItem, error) {
	userID, err := s.owner(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByUser(ctx, userID)
}

// Add sets the quantity of a product in the cart. A zero quantity means 1.
func (s *Service) Add(ctx context.Context, in AddInput) (*domain.CartItem, error) {
	userID, err := s.owner(ctx)
	if err != nil {
		return nil, err
	}
	productID := strings.TrimSpace(in.ProductID)
	if productID == "" {
		return nil, domain.Invalid("productId required")
	}
	quantity := in.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 0 {
		return nil, domain.Invalid("quantity must be positive")
	}
	return s.repo.Upsert(ctx, userID, productID, quantity)
}

func (s *Service) Remove(ctx context.Context, productID string) error {
	userID, err := s.owner(ctx)
	if err != nil {
		return err
	}
	return s.repo.Remove(ctx, userID, productID)
}

func (s *Service) Clear(ctx context.Context) error {
	userID, err := s.owner(ctx)
	if err != nil {
		return err
	}
	return s.repo.Clear(ctx, userID)
}

func (s *Service) owner(ctx context.Context) (string, error) {
	identity, ok := s.identity.CachedIdentity(ctx)
	if !ok {
		return "", domain.ErrNotLoggedIn
	}
	return identity.ID, nil
}
