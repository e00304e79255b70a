package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dvloznov/expense-tracker/internal/api/handlers"
	"github.com/dvloznov/expense-tracker/internal/api/middleware"
	"github.com/dvloznov/expense-tracker/internal/config"
	infraBQ "github.com/dvloznov/expense-tracker/internal/infra/bigquery"
	"github.com/dvloznov/expense-tracker/internal/ingest"
	"github.com/dvloznov/expense-tracker/internal/jobs"
	"github.com/dvloznov/expense-tracker/internal/jobs/inmemory"
	"github.com/dvloznov/expense-tracker/internal/logger"
	"github.com/dvloznov/expense-tracker/internal/objectstore"
	"github.com/dvloznov/expense-tracker/internal/stats"
)

func main() {
	// Initialize logger
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if cfg.Storage.Bucket == "" {
		log.Warn().Msg("No storage bucket configured - receipt uploads will be disabled")
	}

	ctx := context.Background()

	// Initialize the object store gateway
	gateway, err := objectstore.NewGateway(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create object store gateway")
	}
	defer gateway.Close()

	// Initialize the vision extractor
	extractor, err := ingest.NewGeminiExtractor(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create extractor")
	}

	// Initialize the receipts repository
	repo, err := infraBQ.NewReceiptRepository(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create receipt repository")
	}
	defer repo.Close()

	ingestSvc := ingest.NewService(gateway, extractor, repo, ingest.BatchPolicy(cfg.Ingest.BatchPolicy))
	statsSvc := stats.NewService(repo)

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cfg.Ingest.QueueSize, cfg.Ingest.Workers, jobStore)

	// Start worker in background to process jobs
	workerCtx, cancelWorker := context.WithCancel(logger.WithContext(ctx, log))
	defer cancelWorker()

	// Create job handler for processing ingestion jobs
	jobHandler := func(ctx context.Context, job jobs.Job) error {
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

	// Start job consumer in background
	go func() {
		log.Info().Msg("Starting ingestion worker")
		if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
			log.Error().Err(err).Msg("Ingestion worker stopped with error")
		}
	}()

	// Initialize handlers
	eventsHandler := handlers.NewEventsHandler(ingestSvc, log)
	receiptsHandler := handlers.NewReceiptsHandler(gateway, repo, jobQueue, cfg.Storage.Bucket, log)
	statsHandler := handlers.NewStatsHandler(statsSvc, log)
	jobsHandler := handlers.NewJobsHandler(jobStore, log)

	// Create router
	mux := http.NewServeMux()

	// Event notification endpoint
	mux.HandleFunc("/event", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			eventsHandler.HandleEvent(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Receipts endpoints
	mux.HandleFunc("/api/receipts/upload", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			receiptsHandler.UploadReceipt(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/expenses/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			userID := strings.TrimPrefix(r.URL.Path, "/api/expenses/")
			if userID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "User ID is required")
				return
			}
			receiptsHandler.ListExpenses(w, r, userID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Stats endpoints
	mux.HandleFunc("/api/stats/monthly/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			userID := strings.TrimPrefix(r.URL.Path, "/api/stats/monthly/")
			if userID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "User ID is required")
				return
			}
			statsHandler.MonthlyStats(w, r, userID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/stats/categories/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			userID := strings.TrimPrefix(r.URL.Path, "/api/stats/categories/")
			if userID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "User ID is required")
				return
			}
			statsHandler.CategoryStats(w, r, userID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Jobs endpoints
	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			jobsHandler.GetJob(w, r, jobID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(
					middleware.Auth(mux),
				),
			),
		),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Cancel worker context
	cancelWorker()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	log.Info().Msg("Server exited")
}
