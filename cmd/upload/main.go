package main

import (
	"context"
	"flag"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/dvloznov/expense-tracker/internal/config"
	"github.com/dvloznov/expense-tracker/internal/ingest"
	"github.com/dvloznov/expense-tracker/internal/logger"
	"github.com/dvloznov/expense-tracker/internal/objectstore"
)

func main() {
	// Initialize structured logger
	log := logger.New()

	var (
		bucketName string
		filePath   string
		userID     string
		category   string
	)

	flag.StringVar(&bucketName, "bucket", "", "object store bucket name (defaults to GCS_BUCKET)")
	flag.StringVar(&filePath, "file", "", "path to local receipt image (required)")
	flag.StringVar(&userID, "user", "", "user the receipt belongs to (required)")
	flag.StringVar(&category, "category", ingest.DefaultCategory, "expense category: food, entertainment or work")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if bucketName == "" {
		bucketName = cfg.Storage.Bucket
	}

	if bucketName == "" || filePath == "" || userID == "" {
		log.Fatal().Msg("Usage: upload -file /path/to/receipt.jpg -user USER_ID [-bucket BUCKET_NAME] [-category CATEGORY]")
	}
	if !ingest.IsValidCategory(category) {
		log.Fatal().Str("category", category).Msg("Category must be one of: food, entertainment, work")
	}

	ctx := context.Background()
	ctx = logger.WithContext(ctx, log)

	gateway, err := objectstore.NewGateway(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create object store gateway")
	}
	defer gateway.Close()

	f, err := os.Open(filePath)
	if err != nil {
		log.Fatal().Err(err).Str("file", filePath).Msg("Failed to open file")
	}
	defer f.Close()

	contentType := mime.TypeByExtension(filepath.Ext(filePath))
	if contentType == "" {
		contentType = "image/jpeg"
	}

	// The uuid prefix before the underscore becomes the receipt id.
	key := uuid.New().String() + "_" + filepath.Base(filePath)
	metadata := map[string]string{
		ingest.MetadataKeyUser:     userID,
		ingest.MetadataKeyCategory: category,
	}

	log.Info().
		Str("bucket", bucketName).
		Str("object_key", key).
		Str("user_id", userID).
		Str("category", category).
		Msg("Uploading receipt image")

	if err := gateway.Upload(ctx, bucketName, key, contentType, metadata, f); err != nil {
		log.Fatal().Err(err).Msg("Upload failed")
	}

	fmt.Printf("Uploaded %s as %s (receipt id %s)\n", filePath, key, ingest.DeriveReceiptID(key))
}
