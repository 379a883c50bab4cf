package httpserver

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/rcmarket/marketplace/internal/domain"
	cartsvc "github.com/rcmarket/marketplace/internal/service/cart"
	donationsvc "github.com/rcmarket/marketplace/internal/service/donation"
	ordersvc "github.com/rcmarket/marketplace/internal/service/order"
	productsvc "github.com/rcmarket/marketplace/internal/service/product"
	"github.com/rcmarket/marketplace/internal/session"
	"github.com/sirupsen/logrus"
)

func logDiscard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(context.Context) error { return p.err }

type stubSession struct {
	mu          sync.Mutex
	identity    *domain.Identity
	loginErr    error
	registerErr error
	passwordErr error
	loggedOut   bool
	resolved    int
	subscribers int
	notify      func(topic string)
	subscribed  chan struct{}
	unsubscribe chan struct{}
}

func (s *stubSession) Register(_ context.Context, in session.RegisterInput) (*session.Registration, error) {
	if s.registerErr != nil {
		return nil, s.registerErr
	}
	return &session.Registration{Identity: domain.Identity{ID: "u1", Email: in.Email, Name: in.Name}}, nil
}

func (s *stubSession) Login(_ context.Context, email, _ string) (domain.Identity, error) {
	if s.loginErr != nil {
		return domain.Identity{}, s.loginErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = &domain.Identity{ID: "u1", Email: email, Name: "user"}
	return *s.identity, nil
}

func (s *stubSession) Logout(context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loggedOut = true
	s.identity = nil
}

func (s *stubSession) Resolve(ctx context.Context) (domain.Identity, bool) {
	s.mu.Lock()
	s.resolved++
	s.mu.Unlock()
	return s.CachedIdentity(ctx)
}

func (s *stubSession) CachedIdentity(context.Context) (domain.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return domain.Identity{}, false
	}
	return *s.identity, true
}

func (s *stubSession) IsAuthenticated(ctx context.Context) bool {
	_, ok := s.CachedIdentity(ctx)
	return ok
}

func (s *stubSession) UpdateProfile(_ context.Context, patch session.ProfilePatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return domain.ErrNotLoggedIn
	}
	if patch.Name != nil {
		s.identity.Name = *patch.Name
	}
	if patch.Location != nil {
		s.identity.Location = *patch.Location
	}
	return nil
}

func (s *stubSession) ChangePassword(context.Context, string, string) error {
	return s.passwordErr
}

func (s *stubSession) Subscribe(fn func(topic string)) func() {
	s.mu.Lock()
	s.notify = fn
	s.subscribers++
	s.mu.Unlock()
	if s.subscribed != nil {
		close(s.subscribed)
	}
	return func() {
		s.mu.Lock()
		s.subscribers--
		s.mu.Unlock()
		if s.unsubscribe != nil {
			close(s.unsubscribe)
		}
	}
}

type stubProductService struct {
	products []domain.Product
	err      error
}

func (s *stubProductService) List(context.Context) ([]domain.Product, error) {
	return s.products, s.err
}

func (s *stubProductService) Get(_ context.Context, id string) (*domain.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	for i := range s.products {
		if s.products[i].ID == id {
			return &s.products[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *stubProductService) ListMine(context.Context) ([]domain.Product, error) {
	return s.products, s.err
}

func (s *stubProductService) Create(_ context.Context, in productsvc.CreateInput) (*domain.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Product{ID: "p-new", Title: in.Title, PriceCents: in.PriceCents}, nil
}

func (s *stubProductService) Update(ctx context.Context, id string, _ productsvc.UpdateInput) (*domain.Product, error) {
	return s.Get(ctx, id)
}

func (s *stubProductService) Delete(context.Context, string) error {
	return s.err
}

type stubCartService struct {
	err error
}

func (s *stubCartService) Items(context.Context) ([]domain.CartItem, error) {
	return []domain.CartItem{}, s.err
}

func (s *stubCartService) Add(_ context.Context, in cartsvc.AddInput) (*domain.CartItem, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.CartItem{ProductID: in.ProductID, Quantity: in.Quantity}, nil
}

func (s *stubCartService) Remove(context.Context, string) error { return s.err }

func (s *stubCartService) Clear(context.Context) error { return s.err }

type stubWishlistService struct {
	err error
}

func (s *stubWishlistService) Items(context.Context) ([]domain.WishlistItem, error) {
	return []domain.WishlistItem{}, s.err
}

func (s *stubWishlistService) Add(_ context.Context, productID string) (*domain.WishlistItem, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.WishlistItem{ProductID: productID}, nil
}

func (s *stubWishlistService) Remove(context.Context, string) error { return s.err }

type stubDonationService struct {
	err error
}

func (s *stubDonationService) List(context.Context) ([]domain.Donation, error) {
	return []domain.Donation{}, s.err
}

func (s *stubDonationService) Create(_ context.Context, in donationsvc.CreateInput) (*domain.Donation, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Donation{ID: "d1", ItemName: in.ItemName, Status: "pending"}, nil
}

type stubOrderService struct {
	order *domain.Order
	err   error
}

func (s *stubOrderService) PlaceOrder(context.Context, ordersvc.PlaceOrderInput) (*domain.Order, error) {
	return s.order, s.err
}

func (s *stubOrderService) ListOrders(context.Context) ([]domain.Order, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.order == nil {
		return []domain.Order{}, nil
	}
	return []domain.Order{*s.order}, nil
}

func (s *stubOrderService) GetOrder(context.Context, string) (*domain.Order, error) {
	if s.order == nil && s.err == nil {
		return nil, domain.ErrNotFound
	}
	return s.order, s.err
}

var errBoom = errors.New("boom")

func fullDeps(sess *stubSession) Deps {
	return Deps{
		Session:     sess,
		ProductSvc:  &stubProductService{},
		CartSvc:     &stubCartService{},
		WishlistSvc: &stubWishlistService{},
		DonationSvc: &stubDonationService{},
		OrderSvc:    &stubOrderService{},
	}
}
