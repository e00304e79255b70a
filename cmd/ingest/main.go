package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/dvloznov/expense-tracker/internal/config"
	infraBQ "github.com/dvloznov/expense-tracker/internal/infra/bigquery"
	"github.com/dvloznov/expense-tracker/internal/ingest"
	"github.com/dvloznov/expense-tracker/internal/logger"
	"github.com/dvloznov/expense-tracker/internal/objectstore"
)

func main() {
	// Initialize structured logger
	log := logger.New()

	// Parse CLI flags
	bucket := flag.String("bucket", "", "object store bucket holding the receipt image")
	key := flag.String("key", "", "object key of the receipt image (e.g. abc123_receipt.jpg)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if *bucket == "" {
		*bucket = cfg.Storage.Bucket
	}
	if *bucket == "" || *key == "" {
		log.Fatal().Msg("Error: --bucket and --key are required")
	}

	// Create context with timeout so CLI doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	// Add logger to context
	ctx = logger.WithContext(ctx, log)

	gateway, err := objectstore.NewGateway(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create object store gateway")
	}
	defer gateway.Close()

	extractor, err := ingest.NewGeminiExtractor(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create extractor")
	}

	repo, err := infraBQ.NewReceiptRepository(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create receipt repository")
	}
	defer repo.Close()

	svc := ingest.NewService(gateway, extractor, repo, ingest.BatchPolicy(cfg.Ingest.BatchPolicy))

	log.Info().Str("bucket", *bucket).Str("object_key", *key).Msg("Starting ingestion")

	if err := svc.IngestObject(ctx, *bucket, *key); err != nil {
		log.Fatal().Err(err).Msg("Ingestion failed")
	}

	fmt.Println("Ingestion completed successfully.")
}
