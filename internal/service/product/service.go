package product

import (
	"context"
	"strings"

	"github.com/rcmarket/marketplace/internal/domain"
	productrepo "github.com/rcmarket/marketplace/internal/repository/product"
)

type identitySource interface {
	CachedIdentity(ctx context.Context) (domain.Identity, bool)
}

type Service struct {
	repo     productrepo.Repository
	identity identitySource
}

func New(repo productrepo.Repository, identity identitySource) *Service {
	return &Service{repo: repo, identity: identity}
}

type CreateInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	PriceCents  int64  `json:"priceCents"`
	ImageURL    string `json:"imageUrl"`
	Category    string `json:"category"`
	Condition   string `json:"condition"`
}

type UpdateInput struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	PriceCents  *int64  `json:"priceCents,omitempty"`
	ImageURL    *string `json:"imageUrl,omitempty"`
	Category    *string `json:"category,omitempty"`
	Condition   *string `json:"condition,omitempty"`
}

func (s *Service) List(ctx context.Context) ([]domain.Product, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Product, error) {
	return s.repo.GetByID(ctx, id)
}

// ListMine returns the listings whose seller is the cached identity.
func (s *Service) ListMine(ctx context.Context) ([]domain.Product, error) {
	identity, ok := s.identity.CachedIdentity(ctx)
	if !ok {
		return nil, domain.ErrNotLoggedIn
	}
	return s.repo.ListBySeller(ctx, identity.ID)
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Product, error) {
	identity, ok := s.identity.CachedIdentity(ctx)
	if !ok {
		return nil, domain.ErrNotLoggedIn
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, domain.Invalid("title required")
	}
	if in.PriceCents < 0 {
		return nil, domain.Invalid("price must not be negative")
	}
	seller := identity.ID
	return s.repo.Create(ctx, domain.Product{
		SellerID:    &seller,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		PriceCents:  in.PriceCents,
		ImageURL:    strings.TrimSpace(in.ImageURL),
		Category:    strings.TrimSpace(in.Category),
		Condition:   strings.TrimSpace(in.Condition),
	})
}

// Update applies a partial update. Only the seller may change a listing; anyone
// else gets domain.ErrNotFound.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*domain.Product, error) {
	if err := s.authorize(ctx, id); err != nil {
		return nil, err
	}
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return nil, domain.Invalid("title must not be empty")
	}
	if in.PriceCents != nil && *in.PriceCents < 0 {
		return nil, domain.Invalid("price must not be negative")
	}
	return s.repo.Update(ctx, id, productrepo.Patch{
		Title:       trimmed(in.Title),
		Description: trimmed(in.Description),
		PriceCents:  in.PriceCents,
		ImageURL:    trimmed(in.ImageURL),
		Category:    trimmed(in.Category),
		Condition:   trimmed(in.Condition),
	})
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.authorize(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) authorize(ctx context.Context, id string) error {
	identity, ok := s.identity.CachedIdentity(ctx)
	if !ok {
		return domain.ErrNotLoggedIn
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if p.SellerID == nil || *p.SellerID != identity.ID {
		return domain.ErrNotFound
	}
	return nil
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	return &t
}
