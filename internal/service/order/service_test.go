package order

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/rcmarket/marketplace/internal/domain"
)

// memoryRepo stores headers and items separately, with no transaction between them.
type memoryRepo struct {
	orders map[string]domain.Order
	items  map[string][]domain.OrderItem
	nextID int

	createErr   error
	insertErr   error
	deleteErr   error
	afterCreate func()
	insertCall  int
	deleteCall  int
	lastItems   []domain.OrderItem
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{orders: make(map[string]domain.Order), items: make(map[string][]domain.OrderItem)}
}

func (r *memoryRepo) Create(_ context.Context, o domain.Order) (*domain.Order, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	r.nextID++
	o.ID = fmt.Sprintf("order-%d", r.nextID)
	r.orders[o.ID] = o
	clone := o
	if r.afterCreate != nil {
		r.afterCreate()
	}
	return &clone, nil
}

func (r *memoryRepo) InsertItems(ctx context.Context, orderID string, items []domain.OrderItem) error {
	r.insertCall++
	r.lastItems = items
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if r.insertErr != nil {
		return r.insertErr
	}
	r.items[orderID] = append(r.items[orderID], items...)
	return nil
}

func (r *memoryRepo) Delete(ctx context.Context, id string) error {
	r.deleteCall++
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if r.deleteErr != nil {
		return r.deleteErr
	}
	if _, ok := r.orders[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.orders, id)
	delete(r.items, id)
	return nil
}

func (r *memoryRepo) GetByID(_ context.Context, id string) (*domain.Order, error) {
	o, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	o.Items = append([]domain.OrderItem{}, r.items[id]...)
	return &o, nil
}

func (r *memoryRepo) ListByOwner(_ context.Context, userID string) ([]domain.Order, error) {
	var out []domain.Order
	for id, o := range r.orders {
		if o.UserID != nil && *o.UserID == userID {
			o.Items = r.items[id]
			out = append(out, o)
		}
	}
	return out, nil
}

type stubIdentity struct {
	identity domain.Identity
	ok       bool
}

func (s stubIdentity) CachedIdentity(context.Context) (domain.Identity, bool) {
	return s.identity, s.ok
}

var signedIn = stubIdentity{identity: domain.Identity{ID: "user-1", Email: "a@example.com"}, ok: true}

func signatureInput() PlaceOrderInput {
	return PlaceOrderInput{
		TotalAmount:     100,
		ShippingAddress: "X",
		Items:           []ItemInput{{ProductID: "p1", Quantity: 2, Price: 50}},
	}
}

func TestPlaceOrderSuccess(t *testing.T) {
	repo := newMemoryRepo()
	svc := New(repo, signedIn, Options{})

	o, err := svc.PlaceOrder(context.Background(), signatureInput())
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if o.ID == "" || o.UserID == nil || *o.UserID != "user-1" || o.TotalCents != 100 {
		t.Fatalf("unexpected header %+v", o)
	}
	if len(o.Items) != 0 {
		t.Fatalf("expected header without embedded items")
	}
	if repo.insertCall != 1 {
		t.Fatalf("expected exactly one bulk insert, got %d", repo.insertCall)
	}
	item := repo.lastItems[0]
	if item.OrderID != o.ID || item.ProductID != "p1" || item.Quantity != 2 || item.UnitPriceCents != 50 {
		t.Fatalf("unexpected line item %+v", item)
	}
}

func TestPlaceOrderHeaderFailureNeverWritesItems(t *testing.T) {
	repo := newMemoryRepo()
	repo.createErr = errors.New("connection refused")
	svc := New(repo, signedIn, Options{})

	_, err := svc.PlaceOrder(context.Background(), signatureInput())
	if !errors.Is(err, ErrHeaderInsert) {
		t.Fatalf("expected ErrHeaderInsert, got %v", err)
	}
	if errors.Is(err, ErrPartialOrder) {
		t.Fatalf("header failure must not look like a partial order")
	}
	if !errors.Is(err, repo.createErr) {
		t.Fatalf("expected store error to be wrapped, got %v", err)
	}
	if repo.insertCall != 0 {
		t.Fatalf("expected no line item write, got %d", repo.insertCall)
	}
}

func TestPlaceOrderItemFailureLeavesOrphan(t *testing.T) {
	repo := newMemoryRepo()
	repo.insertErr = errors.New("foreign key violation")
	svc := New(repo, signedIn, Options{})

	o, err := svc.PlaceOrder(context.Background(), signatureInput())
	if o != nil {
		t.Fatalf("expected no order on partial failure, got %+v", o)
	}
	var perr *PartialOrderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *PartialOrderError, got %T %v", err, err)
	}
	if errors.Is(err, ErrHeaderInsert) {
		t.Fatalf("partial order must be distinct from a header failure")
	}
	if !errors.Is(err, repo.insertErr) || !perr.Orphaned() || repo.deleteCall != 0 {
		t.Fatalf("expected orphan left in place, got %+v (deletes=%d)", perr, repo.deleteCall)
	}

	got, err := svc.GetOrder(context.Background(), perr.Order.ID)
	if err != nil {
		t.Fatalf("orphan header must stay retrievable: %v", err)
	}
	if got.TotalCents != 100 || got.ShippingAddress != "X" || len(got.Items) != 0 {
		t.Fatalf("expected header with zero items, got %+v", got)
	}
}

func TestPlaceOrderItemFailureCompensates(t *testing.T) {
	repo := newMemoryRepo()
	repo.insertErr = errors.New("foreign key violation")
	svc := New(repo, signedIn, Options{Policy: OrphanCompensate})

	// the caller gives up after the item failure; the rollback still runs
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.PlaceOrder(ctx, signatureInput())

	var perr *PartialOrderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *PartialOrderError, got %v", err)
	}
	if !perr.Compensated || perr.Orphaned() || perr.CompensationErr != nil {
		t.Fatalf("expected compensated failure, got %+v", perr)
	}
	if _, err := repo.GetByID(context.Background(), perr.Order.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected header deleted, got %v", err)
	}
}

func TestPlaceOrderCompensationFailureReportsOrphan(t *testing.T) {
	repo := newMemoryRepo()
	repo.insertErr = errors.New("timeout")
	repo.deleteErr = errors.New("timeout again")
	svc := New(repo, signedIn, Options{Policy: OrphanCompensate})

	_, err := svc.PlaceOrder(context.Background(), signatureInput())
	var perr *PartialOrderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *PartialOrderError, got %v", err)
	}
	if perr.Compensated || !perr.Orphaned() || !errors.Is(perr.CompensationErr, repo.deleteErr) {
		t.Fatalf("expected orphan with rollback error, got %+v", perr)
	}
	if _, err := repo.GetByID(context.Background(), perr.Order.ID); err != nil {
		t.Fatalf("expected header still present: %v", err)
	}
}

func TestPlaceOrderCompletesAfterCallerCancels(t *testing.T) {
	repo := newMemoryRepo()
	svc := New(repo, signedIn, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	repo.afterCreate = cancel

	o, err := svc.PlaceOrder(ctx, signatureInput())
	if err != nil {
		t.Fatalf("expected order placed despite cancellation, got %v", err)
	}
	got, err := repo.GetByID(context.Background(), o.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if len(got.Items) != 1 || got.Items[0].Quantity != 2 {
		t.Fatalf("expected line items written, got %+v", got.Items)
	}
}

func TestPlaceOrderWithoutIdentityHasNoOwner(t *testing.T) {
	repo := newMemoryRepo()
	svc := New(repo, stubIdentity{}, Options{})

	o, err := svc.PlaceOrder(context.Background(), signatureInput())
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if o.UserID != nil {
		t.Fatalf("expected nil owner, got %q", *o.UserID)
	}
}

func TestPlaceOrderValidation(t *testing.T) {
	cases := map[string]PlaceOrderInput{
		"no items":       {TotalAmount: 1, ShippingAddress: "X"},
		"no address":     {TotalAmount: 1, ShippingAddress: "  ", Items: []ItemInput{{ProductID: "p1", Quantity: 1}}},
		"no product":     {TotalAmount: 1, ShippingAddress: "X", Items: []ItemInput{{Quantity: 1}}},
		"zero quantity":  {TotalAmount: 1, ShippingAddress: "X", Items: []ItemInput{{ProductID: "p1"}}},
		"negative price": {TotalAmount: 1, ShippingAddress: "X", Items: []ItemInput{{ProductID: "p1", Quantity: 1, Price: -1}}},
		"negative total": {TotalAmount: -5, ShippingAddress: "X", Items: []ItemInput{{ProductID: "p1", Quantity: 1}}},
		"huge quantity":  {TotalAmount: 1, ShippingAddress: "X", Items: []ItemInput{{ProductID: "p1", Quantity: math.MaxInt32 + 1}}},
	}
	for name, in := range cases {
		repo := newMemoryRepo()
		svc := New(repo, signedIn, Options{})
		_, err := svc.PlaceOrder(context.Background(), in)
		var verr *domain.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
		if len(repo.orders) != 0 || repo.insertCall != 0 {
			t.Fatalf("%s: expected no writes", name)
		}
	}
}

func TestListOrders(t *testing.T) {
	repo := newMemoryRepo()
	svc := New(repo, signedIn, Options{})
	if _, err := svc.PlaceOrder(context.Background(), signatureInput()); err != nil {
		t.Fatalf("place order: %v", err)
	}
	if _, err := New(repo, stubIdentity{}, Options{}).PlaceOrder(context.Background(), signatureInput()); err != nil {
		t.Fatalf("place anonymous order: %v", err)
	}

	orders, err := svc.ListOrders(context.Background())
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if len(orders) != 1 || len(orders[0].Items) != 1 {
		t.Fatalf("unexpected orders %+v", orders)
	}

	if _, err := New(repo, stubIdentity{}, Options{}).ListOrders(context.Background()); !errors.Is(err, domain.ErrNotLoggedIn) {
		t.Fatalf("expected ErrNotLoggedIn, got %v", err)
	}
}

func TestParseOrphanPolicy(t *testing.T) {
	for in, want := range map[string]OrphanPolicy{"": OrphanLeave, "leave": OrphanLeave, " Compensate ": OrphanCompensate} {
		got, err := ParseOrphanPolicy(in)
		if err != nil || got != want {
			t.Fatalf("ParseOrphanPolicy(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseOrphanPolicy("delete"); err == nil {
		t.Fatalf("expected error for unknown policy")
	}
}
