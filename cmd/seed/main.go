package main

import (
	"context"
	"flag"

	"github.com/rcmarket/marketplace/internal/authority/local"
	"github.com/rcmarket/marketplace/internal/config"
	"github.com/rcmarket/marketplace/internal/db"
	customerrepo "github.com/rcmarket/marketplace/internal/repository/customer"
	productrepo "github.com/rcmarket/marketplace/internal/repository/product"
	tokenrepo "github.com/rcmarket/marketplace/internal/repository/token"
	"github.com/rcmarket/marketplace/internal/seed"
	"github.com/sirupsen/logrus"
)

func main() {
	var confirmEmail string
	flag.StringVar(&confirmEmail, "confirm", "", "Mark the built-in account with this email as confirmed")
	flag.Parse()

	cfg := config.FromEnv()
	logger := logrus.New()
	log := logger.WithField("component", "seed")

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		log.WithError(err).Fatal("connect db")
	}
	defer pool.Close()

	n, err := seed.Apply(ctx, productrepo.NewPostgres(pool, logger))
	if err != nil {
		log.WithError(err).Fatal("seed apply")
	}
	log.WithField("listings", n).Info("seed applied")

	if confirmEmail != "" {
		auth := local.New(customerrepo.NewPostgres(pool, logger), tokenrepo.NewPostgres(pool), local.Options{Logger: logger})
		if err := auth.Confirm(ctx, confirmEmail); err != nil {
			log.WithError(err).WithField("email", confirmEmail).Fatal("confirm account")
		}
		log.WithField("email", confirmEmail).Info("account confirmed")
	}
}
