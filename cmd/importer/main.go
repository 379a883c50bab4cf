package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/rcmarket/marketplace/internal/config"
	"github.com/rcmarket/marketplace/internal/db"
	"github.com/rcmarket/marketplace/internal/importer"
	"github.com/rcmarket/marketplace/internal/repository/product"
	"github.com/sirupsen/logrus"
)

func main() {
	var (
		filePath string
		sellerID string
	)
	flag.StringVar(&filePath, "file", "", "Path to listings CSV (title,priceCents required)")
	flag.StringVar(&sellerID, "seller", "", "Seller id for rows without a sellerId column value")
	flag.Parse()

	if filePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.FromEnv()
	logger := logrus.New()
	log := logger.WithField("component", "importer")
	ctx := context.Background()

	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		log.WithError(err).Fatal("connect db")
	}
	defer pool.Close()

	f, err := os.Open(filePath)
	if err != nil {
		log.WithError(err).Fatal("open file")
	}
	defer f.Close()

	imp := importer.NewCSVImporter(f, product.NewPostgres(pool, logger), sellerID)

	start := time.Now()
	count, err := imp.Run(ctx)
	if err != nil {
		log.WithError(err).WithField("imported", count).Fatal("import failed")
	}

	log.WithFields(logrus.Fields{
		"imported": count,
		"file":     filePath,
		"elapsed":  time.Since(start).Truncate(time.Millisecond).String(),
	}).Info("import finished")
}
