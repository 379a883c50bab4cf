package wishlist

import (
	"context"
	"strings"

	"github.com/rcmarket/marketplace/internal/domain"
	wishlistrepo "github.com/rcmarket/marketplace/internal/repository/wishlist"
)

type identitySource interface {
	CachedIdentity(ctx context.Context) (domain.Identity, bool)
}

type Service struct {
	repo     wishlistrepo.Repository
	identity identitySource
}

func New(repo wishlistrepo.Repository, identity identitySource) *Service {
	return &Service{repo: repo, identity: identity}
}

func (s *Service) Items(ctx context.Context) ([]domain.WishlistItem, error) {
	identity, ok := s.identity.CachedIdentity(ctx)
	if !ok {
		return nil, domain.ErrNotLoggedIn
	}
	return s.repo.ListByUser(ctx, identity.ID)
}

// Add saves a product; saving it twice yields domain.ErrAlreadyExists.
func (s *Service) Add(ctx context.Context, productID string) (*domain.WishlistItem, error) {
	identity, ok := s.identity.CachedIdentity(ctx)
	if !ok {
		return nil, domain.ErrNotLoggedIn
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, domain.Invalid("productId required")
	}
	return s.repo.Add(ctx, identity.ID, productID)
}

func (s *Service) Remove(ctx context.Context, productID string) error {
	identity, ok := s.identity.CachedIdentity(ctx)
	if !ok {
		return domain.ErrNotLoggedIn
	}
	return s.repo.Remove(ctx, identity.ID, productID)
}
