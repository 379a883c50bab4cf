package donation

import (
	"context"
	"strings"

	"github.com/rcmarket/marketplace/internal/domain"
	donationrepo "github.com/rcmarket/marketplace/internal/repository/donation"
)

const statusPending = "pending"

type identitySource interface {
	CachedIdentity(ctx context.Context) (domain.Identity, bool)
}

type Service struct {
	repo     donationrepo.Repository
	identity identitySource
}

func New(repo donationrepo.Repository, identity identitySource) *Service {
	return &Service{repo: repo, identity: identity}
}

type CreateInput struct {
	ItemName      string `json:"itemName"`
	Description   string `json:"description"`
	Category      string `json:"category"`
	Quantity      int    `json:"quantity"`
	Condition     string `json:"condition"`
	PickupAddress string `json:"pickupAddress"`
	Pincode       string `json:"pincode"`
}

func (s *Service) List(ctx context.Context) ([]domain.Donation, error) {
	identity, ok := s.identity.CachedIdentity(ctx)
	if !ok {
		return nil, domain.ErrNotLoggedIn
	}
	return s.repo.ListByUser(ctx, identity.ID)
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Donation, error) {
	identity, ok := s.identity.CachedIdentity(ctx)
	if !ok {
		return nil, domain.ErrNotLoggedIn
	}
	d := domain.Donation{
		UserID:        identity.ID,
		ItemName:      strings.TrimSpace(in.ItemName),
		Description:   strings.TrimSpace(in.Description),
		Category:      strings.TrimSpace(in.Category),
		Quantity:      in.Quantity,
		Condition:     strings.TrimSpace(in.Condition),
		PickupAddress: strings.TrimSpace(in.PickupAddress),
		Pincode:       strings.TrimSpace(in.Pincode),
		Status:        statusPending,
	}
	switch {
	case d.ItemName == "":
		return nil, domain.Invalid("itemName required")
	case d.Quantity <= 0:
		return nil, domain.Invalid("quantity must be positive")
	case d.PickupAddress == "":
		return nil, domain.Invalid("pickupAddress required")
	case d.Pincode == "":
		return nil, domain.Invalid("pincode required")
	}
	return s.repo.Create(ctx, d)
}
