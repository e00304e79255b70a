package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds every externally supplied setting for the service. It is
// built once at process start and passed by reference into constructors;
// nothing in the codebase reads the environment after Load returns.
type Config struct {
	// Port is the HTTP listen port for the API server.
	Port string

	Storage  StorageConfig
	BigQuery BigQueryConfig
	Gemini   GeminiConfig
	Ingest   IngestConfig
}

// StorageConfig configures the object store the receipts live in.
type StorageConfig struct {
	// Bucket is the bucket receipt images are uploaded to.
	Bucket string

	// Endpoint is the public base URL objects are reachable under; it is
	// only used to derive the source_url stored with each receipt.
	Endpoint string
}

// BigQueryConfig configures the dataset receipts are persisted to.
type BigQueryConfig struct {
	ProjectID string
	DatasetID string
}

// GeminiConfig configures the vision model used for field extraction.
type GeminiConfig struct {
	// APIKey authenticates against the Gemini API. Left empty, the genai
	// client falls back to its own environment lookup.
	APIKey string

	// Model is the model name sent with every inference request.
	Model string
}

// IngestConfig configures the ingestion orchestrator and its job queue.
type IngestConfig struct {
	// BatchPolicy decides what happens when one record of a notification
	// fails: "abort" stops the whole batch, "continue" isolates the
	// failure and keeps processing the remaining records.
	BatchPolicy string

	// Workers is the number of concurrent queue workers.
	Workers int

	// QueueSize is the job channel buffer; publishing blocks beyond it.
	QueueSize int
}

// Defaults applied by Load when the environment leaves a value unset.
const (
	DefaultPort            = "8080"
	DefaultDatasetID       = "expenses"
	DefaultModel           = "gemini-2.0-flash"
	DefaultStorageEndpoint = "https://storage.googleapis.com"
	DefaultBatchPolicy     = "abort"
	DefaultWorkers         = 5
	DefaultQueueSize       = 100
)

// Load builds a Config from the environment. A .env file in the working
// directory is read first when present; real environment variables win.
func Load() (*Config, error) {
	// Missing .env is fine; explicit env vars are enough.
	_ = godotenv.Load()

	cfg := &Config{
		Port: getenv("PORT", DefaultPort),
		Storage: StorageConfig{
			Bucket:   os.Getenv("GCS_BUCKET"),
			Endpoint: getenv("STORAGE_ENDPOINT", DefaultStorageEndpoint),
		},
		BigQuery: BigQueryConfig{
			ProjectID: os.Getenv("GOOGLE_CLOUD_PROJECT"),
			DatasetID: getenv("BIGQUERY_DATASET", DefaultDatasetID),
		},
		Gemini: GeminiConfig{
			APIKey: os.Getenv("GEMINI_API_KEY"),
			Model:  getenv("GEMINI_MODEL", DefaultModel),
		},
		Ingest: IngestConfig{
			BatchPolicy: getenv("INGEST_BATCH_POLICY", DefaultBatchPolicy),
			Workers:     getenvInt("INGEST_WORKERS", DefaultWorkers),
			QueueSize:   getenvInt("INGEST_QUEUE_SIZE", DefaultQueueSize),
		},
	}

	if cfg.BigQuery.ProjectID == "" {
		return nil, fmt.Errorf("config: GOOGLE_CLOUD_PROJECT is required")
	}
	if cfg.Ingest.BatchPolicy != "abort" && cfg.Ingest.BatchPolicy != "continue" {
		return nil, fmt.Errorf("config: invalid INGEST_BATCH_POLICY %q (want \"abort\" or \"continue\")", cfg.Ingest.BatchPolicy)
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
