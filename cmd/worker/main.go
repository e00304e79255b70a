package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/expense-tracker/internal/config"
	infraBQ "github.com/dvloznov/expense-tracker/internal/infra/bigquery"
	"github.com/dvloznov/expense-tracker/internal/ingest"
	"github.com/dvloznov/expense-tracker/internal/jobs"
	"github.com/dvloznov/expense-tracker/internal/jobs/inmemory"
	"github.com/dvloznov/expense-tracker/internal/logger"
	"github.com/dvloznov/expense-tracker/internal/objectstore"
)

func main() {
	// Initialize logger
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx := logger.WithContext(context.Background(), log)

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

	ingestSvc := ingest.NewService(gateway, extractor, repo, ingest.BatchPolicy(cfg.Ingest.BatchPolicy))

	// Initialize job store and queue
	// In production, this would be replaced with Cloud Tasks or Pub/Sub
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cfg.Ingest.QueueSize, cfg.Ingest.Workers, jobStore)

	log.Info().Msg("Starting worker service")

	// Create context that cancels on interrupt
	workerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Create job handler that runs the ingestion pipeline
	handler := func(ctx context.Context, job jobs.Job) error {
		ingestJob, ok := job.(*jobs.IngestReceiptJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log.Info().
			Str("job_id", ingestJob.JobID).
			Str("object_key", ingestJob.ObjectKey).
			Msg("Processing ingestion job")

		if err := ingestSvc.IngestObject(ctx, ingestJob.Bucket, ingestJob.ObjectKey); err != nil {
			log.Error().
				Err(err).
				Str("job_id", ingestJob.JobID).
				Str("object_key", ingestJob.ObjectKey).
				Msg("Ingestion failed")
			return err
		}

		log.Info().
			Str("job_id", ingestJob.JobID).
			Str("receipt_id", ingestJob.ReceiptID).
			Msg("Ingestion completed successfully")

		return nil
	}

	// Start consuming jobs
	if err := jobQueue.Start(workerCtx, handler); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	log.Info().Msg("Worker service started, waiting for jobs...")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker service...")

	// Cancel context to stop workers
	cancel()

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop the queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	log.Info().Msg("Worker service exited")
}
