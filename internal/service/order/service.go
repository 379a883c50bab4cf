// Package order places orders as two dependent writes, a header and then its line
// items, and makes a failure between them explicit to the caller.
package order

import (
	"context"
	"math"
	"strings"

	"github.com/rcmarket/marketplace/internal/domain"
	"github.com/rcmarket/marketplace/internal/metrics"
	orderrepo "github.com/rcmarket/marketplace/internal/repository/order"
	"github.com/sirupsen/logrus"
)

type orderRepo interface {
	Create(ctx context.Context, o domain.Order) (*domain.Order, error)
	InsertItems(ctx context.Context, orderID string, items []domain.OrderItem) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListByOwner(ctx context.Context, userID string) ([]domain.Order, error)
}

var _ orderRepo = (orderrepo.Repository)(nil)

// identitySource reads the cached session identity; *session.Synchronizer satisfies it.
type identitySource interface {
	CachedIdentity(ctx context.Context) (domain.Identity, bool)
}

type Options struct {
	Policy OrphanPolicy
	Logger logrus.FieldLogger
}

type Service struct {
	repo     orderRepo
	identity identitySource
	policy   OrphanPolicy
	logger   logrus.FieldLogger
}

func New(repo orderRepo, identity identitySource, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Service{
		repo:     repo,
		identity: identity,
		policy:   opts.Policy,
		logger:   opts.Logger.WithField("service", "order"),
	}
}

// ItemInput is one requested line. Price is the unit price in cents at purchase time.
type ItemInput struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Price     int64  `json:"price"`
}

type PlaceOrderInput struct {
	TotalAmount     int64       `json:"totalAmount"`
	ShippingAddress string      `json:"shippingAddress"`
	Items           []ItemInput `json:"items"`
}

// PlaceOrder writes the header, then all line items in one bulk insert. A header
// failure returns a *HeaderError before any item write. An item failure returns a
// *PartialOrderError; depending on the policy the header is left behind or deleted.
// The order is owned by the cached identity, or by nobody when there is none.
// Once started, the writes run to completion even if ctx is cancelled.
func (s *Service) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*domain.Order, error) {
	if err := validate(in); err != nil {
		metrics.RecordOrderWrite(metrics.OrderInvalidRequest)
		return nil, err
	}

	header := domain.Order{
		TotalCents:      in.TotalAmount,
		ShippingAddress: strings.TrimSpace(in.ShippingAddress),
	}
	if identity, ok := s.identity.CachedIdentity(ctx); ok {
		owner := identity.ID
		header.UserID = &owner
	} else {
		s.logger.Warn("placing order without an authenticated owner")
	}

	wctx := context.WithoutCancel(ctx)
	created, err := s.repo.Create(wctx, header)
	if err != nil {
		metrics.RecordOrderWrite(metrics.OrderHeaderFailed)
		s.logger.WithError(err).Error("order header insert failed")
		return nil, &HeaderError{Err: err}
	}

	items := make([]domain.OrderItem, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, domain.OrderItem{
			OrderID:        created.ID,
			ProductID:      strings.TrimSpace(it.ProductID),
			Quantity:       it.Quantity,
			UnitPriceCents: it.Price,
		})
	}

	if err := s.repo.InsertItems(wctx, created.ID, items); err != nil {
		return nil, s.partial(wctx, created, err)
	}

	metrics.RecordOrderWrite(metrics.OrderPlaced)
	s.logger.WithFields(logrus.Fields{"order_id": created.ID, "items": len(items)}).Info("order placed")
	return created, nil
}

func (s *Service) partial(ctx context.Context, created *domain.Order, cause error) error {
	perr := &PartialOrderError{Order: created, Err: cause}
	log := s.logger.WithError(cause).WithFields(logrus.Fields{
		"order_id": created.ID,
		"policy":   s.policy.String(),
	})

	if s.policy == OrphanCompensate {
		if err := s.repo.Delete(ctx, created.ID); err != nil {
			perr.CompensationErr = err
			log.WithField("rollback_error", err).Error("line items failed and header rollback failed; order is orphaned")
		} else {
			perr.Compensated = true
			metrics.RecordOrderWrite(metrics.OrderCompensated)
			log.Warn("line items failed; header rolled back")
			return perr
		}
	} else {
		log.Error("line items failed; order header left without items")
	}
	metrics.RecordOrderWrite(metrics.OrderItemsFailed)
	return perr
}

// ListOrders returns the cached identity's orders, newest first, with items and
// products attached.
func (s *Service) ListOrders(ctx context.Context) ([]domain.Order, error) {
	identity, ok := s.identity.CachedIdentity(ctx)
	if !ok {
		return nil, domain.ErrNotLoggedIn
	}
	return s.repo.ListByOwner(ctx, identity.ID)
}

// GetOrder looks an order up by id. It is not scoped to the cached identity.
func (s *Service) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.Invalid("order id required")
	}
	return s.repo.GetByID(ctx, id)
}

func validate(in PlaceOrderInput) error {
	if strings.TrimSpace(in.ShippingAddress) == "" {
		return domain.Invalid("shipping address required")
	}
	if in.TotalAmount < 0 {
		return domain.Invalid("total amount must not be negative")
	}
	if len(in.Items) == 0 {
		return domain.Invalid("at least one item required")
	}
	for _, it := range in.Items {
		if strings.TrimSpace(it.ProductID) == "" {
			return domain.Invalid("productId required")
		}
		if it.Quantity <= 0 {
			return domain.Invalid("quantity must be positive")
		}
		if it.Quantity > math.MaxInt32 {
			return domain.Invalid("quantity too large")
		}
		if it.Price < 0 {
			return domain.Invalid("price must not be negative")
		}
	}
	return nil
}
