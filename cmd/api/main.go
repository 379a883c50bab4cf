package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rcmarket/marketplace/internal/authority/kratos"
	"github.com/rcmarket/marketplace/internal/authority/local"
	"github.com/rcmarket/marketplace/internal/config"
	"github.com/rcmarket/marketplace/internal/db"
	"github.com/rcmarket/marketplace/internal/httpserver"
	"github.com/rcmarket/marketplace/internal/reconcile"
	cartrepo "github.com/rcmarket/marketplace/internal/repository/cart"
	customerrepo "github.com/rcmarket/marketplace/internal/repository/customer"
	donationrepo "github.com/rcmarket/marketplace/internal/repository/donation"
	orderrepo "github.com/rcmarket/marketplace/internal/repository/order"
	productrepo "github.com/rcmarket/marketplace/internal/repository/product"
	tokenrepo "github.com/rcmarket/marketplace/internal/repository/token"
	wishlistrepo "github.com/rcmarket/marketplace/internal/repository/wishlist"
	cartsvc "github.com/rcmarket/marketplace/internal/service/cart"
	donationsvc "github.com/rcmarket/marketplace/internal/service/donation"
	ordersvc "github.com/rcmarket/marketplace/internal/service/order"
	productsvc "github.com/rcmarket/marketplace/internal/service/product"
	wishlistsvc "github.com/rcmarket/marketplace/internal/service/wishlist"
	"github.com/rcmarket/marketplace/internal/session"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.FromEnv()
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.JSONFormatter{})
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(lvl)
	}
	log := logger.WithField("component", "api")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbpool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		log.WithError(err).Fatal("connect to db")
	}
	defer dbpool.Close()

	store, publisher := sessionStore(ctx, cfg, log)
	events := session.NewBroadcaster(publisher, logger)

	var authority session.Authority
	switch cfg.AuthProvider {
	case "kratos":
		authority = kratos.New(cfg.KratosPublicURL, cfg.KratosTimeout, logger)
	case "local":
		authority = local.New(customerrepo.NewPostgres(dbpool, logger), tokenrepo.NewPostgres(dbpool), local.Options{
			RequireConfirmation: cfg.AuthRequireConfirm,
			Logger:              logger,
		})
	default:
		log.WithField("provider", cfg.AuthProvider).Fatal("unknown auth provider")
	}

	sessions := session.New(authority, store, events, logger)
	if identity, ok := sessions.Resolve(ctx); ok {
		log.WithField("user_id", identity.ID).Info("restored session")
	}

	policy, err := ordersvc.ParseOrphanPolicy(cfg.OrderOrphanPolicy)
	if err != nil {
		log.WithError(err).Fatal("order orphan policy")
	}

	productRepo := productrepo.NewPostgres(dbpool, logger)
	orderRepo := orderrepo.NewPostgres(dbpool, logger)

	if cfg.OrphanSweepSchedule != "" {
		sweeper := reconcile.NewSweeper(orderRepo, cfg.OrphanMinAge, logger)
		if _, err := sweeper.Schedule(ctx, cfg.OrphanSweepSchedule); err != nil {
			log.WithError(err).Fatal("schedule orphan sweep")
		}
	}

	srv, err := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		Session:     sessions,
		ProductSvc:  productsvc.New(productRepo, sessions),
		CartSvc:     cartsvc.New(cartrepo.NewPostgres(dbpool), sessions),
		WishlistSvc: wishlistsvc.New(wishlistrepo.NewPostgres(dbpool), sessions),
		DonationSvc: donationsvc.New(donationrepo.NewPostgres(dbpool), sessions),
		OrderSvc:    ordersvc.New(orderRepo, sessions, ordersvc.Options{Policy: policy, Logger: logger}),
		CORSOrigins: cfg.CORSOrigins,
	})
	if err != nil {
		log.WithError(err).Fatal("init server")
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serverErr:
		log.WithError(err).Error("server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	} else {
		log.Info("server stopped")
	}
}

func sessionStore(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (session.Store, session.Publisher) {
	if cfg.SessionStore != "redis" {
		return session.NewMemoryStore(), nil
	}
	client, err := db.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.WithError(err).Fatal("connect to redis")
	}
	return session.NewRedisStore(client, cfg.SessionKeyPrefix), session.NewRedisPublisher(client, cfg.SessionKeyPrefix)
}
