package httpserver

import (
	"context"
	"errors"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rcmarket/marketplace/internal/domain"
	"github.com/rcmarket/marketplace/internal/metrics"
	cartsvc "github.com/rcmarket/marketplace/internal/service/cart"
	donationsvc "github.com/rcmarket/marketplace/internal/service/donation"
	ordersvc "github.com/rcmarket/marketplace/internal/service/order"
	productsvc "github.com/rcmarket/marketplace/internal/service/product"
	"github.com/rcmarket/marketplace/internal/session"
	"github.com/sirupsen/logrus"
)

type sessionService interface {
	Register(ctx context.Context, in session.RegisterInput) (*session.Registration, error)
	Login(ctx context.Context, email, password string) (domain.Identity, error)
	Logout(ctx context.Context)
	Resolve(ctx context.Context) (domain.Identity, bool)
	CachedIdentity(ctx context.Context) (domain.Identity, bool)
	IsAuthenticated(ctx context.Context) bool
	UpdateProfile(ctx context.Context, patch session.ProfilePatch) error
	ChangePassword(ctx context.Context, oldPassword, newPassword string) error
	Subscribe(fn func(topic string)) func()
}

type productService interface {
	List(ctx context.Context) ([]domain.Product, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
	ListMine(ctx context.Context) ([]domain.Product, error)
	Create(ctx context.Context, in productsvc.CreateInput) (*domain.Product, error)
	Update(ctx context.Context, id string, in productsvc.UpdateInput) (*domain.Product, error)
	Delete(ctx context.Context, id string) error
}

type cartService interface {
	Items(ctx context.Context) ([]domain.CartItem, error)
	Add(ctx context.Context, in cartsvc.AddInput) (*domain.CartItem, error)
	Remove(ctx context.Context, productID string) error
	Clear(ctx context.Context) error
}

type wishlistService interface {
	Items(ctx context.Context) ([]domain.WishlistItem, error)
	Add(ctx context.Context, productID string) (*domain.WishlistItem, error)
	Remove(ctx context.Context, productID string) error
}

type donationService interface {
	List(ctx context.Context) ([]domain.Donation, error)
	Create(ctx context.Context, in donationsvc.CreateInput) (*domain.Donation, error)
}

type orderService interface {
	PlaceOrder(ctx context.Context, in ordersvc.PlaceOrderInput) (*domain.Order, error)
	ListOrders(ctx context.Context) ([]domain.Order, error)
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
}

// Deps groups the services the router exposes. Session is required; a nil
// service leaves its routes unregistered.
type Deps struct {
	Session     sessionService
	ProductSvc  productService
	CartSvc     cartService
	WishlistSvc wishlistService
	DonationSvc donationService
	OrderSvc    orderService
	CORSOrigins []string
}

type handler struct {
	logger logrus.FieldLogger
	deps   Deps
}

// buildRouter wires routes for the API.
func buildRouter(logger *logrus.Logger, db pinger, deps Deps) (*gin.Engine, error) {
	if deps.Session == nil {
		return nil, errors.New("httpserver: session service is required")
	}
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(requestID(), accessLog(logger), gin.Recovery())
	if len(deps.CORSOrigins) > 0 {
		cfg := cors.DefaultConfig()
		cfg.AllowOrigins = deps.CORSOrigins
		cfg.AllowCredentials = true
		cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization", requestIDHeader)
		cfg.ExposeHeaders = []string{requestIDHeader}
		cfg.MaxAge = 12 * time.Hour
		router.Use(cors.New(cfg))
	}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	h := &handler{logger: logger, deps: deps}

	auth := router.Group("/auth")
	auth.POST("/register", h.register)
	auth.POST("/login", h.login)
	auth.POST("/logout", h.logout)
	auth.POST("/password", h.changePassword)

	router.GET("/me", h.me)
	router.PATCH("/me", h.updateMe)
	router.GET("/session", h.sessionState)
	router.POST("/session/refresh", h.refreshSession)
	router.GET("/session/events", h.sessionEvents)

	if deps.ProductSvc != nil {
		router.GET("/products", h.listProducts)
		router.GET("/products/:id", h.getProduct)
		router.POST("/products", h.createProduct)
		router.PATCH("/products/:id", h.updateProduct)
		router.DELETE("/products/:id", h.deleteProduct)
		router.GET("/me/products", h.myProducts)
	}
	if deps.CartSvc != nil {
		router.GET("/cart", h.cartItems)
		router.POST("/cart", h.addToCart)
		router.DELETE("/cart/:productId", h.removeFromCart)
		router.DELETE("/cart", h.clearCart)
	}
	if deps.WishlistSvc != nil {
		router.GET("/wishlist", h.wishlistItems)
		router.POST("/wishlist", h.addToWishlist)
		router.DELETE("/wishlist/:productId", h.removeFromWishlist)
	}
	if deps.DonationSvc != nil {
		router.GET("/donations", h.listDonations)
		router.POST("/donations", h.createDonation)
	}
	if deps.OrderSvc != nil {
		router.GET("/orders", h.listOrders)
		router.POST("/orders", h.placeOrder)
		router.GET("/orders/:id", h.getOrder)
	}

	return router, nil
}
