package main

import (
	"context"

	"github.com/rcmarket/marketplace/internal/config"
	"github.com/rcmarket/marketplace/internal/db"
	"github.com/rcmarket/marketplace/internal/migrate"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.FromEnv()
	log := logrus.New().WithField("component", "migrate")

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		log.WithError(err).Fatal("connect db")
	}
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		log.WithError(err).Fatal("apply migrations")
	}

	version, dirty, err := migrate.Version(ctx, pool)
	if err != nil {
		log.WithError(err).Fatal("read schema version")
	}
	log.WithFields(logrus.Fields{"version": version, "dirty": dirty}).Info("migrations applied")
}
