package config

import (
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GOOGLE_CLOUD_PROJECT", "test-project")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != DefaultPort {
		t.Errorf("Port = %q, want %q", cfg.Port, DefaultPort)
	}
	if cfg.BigQuery.DatasetID != DefaultDatasetID {
		t.Errorf("DatasetID = %q, want %q", cfg.BigQuery.DatasetID, DefaultDatasetID)
	}
	if cfg.Gemini.Model != DefaultModel {
		t.Errorf("Model = %q, want %q", cfg.Gemini.Model, DefaultModel)
	}
	if cfg.Storage.Endpoint != DefaultStorageEndpoint {
		t.Errorf("Endpoint = %q, want %q", cfg.Storage.Endpoint, DefaultStorageEndpoint)
	}
	if cfg.Ingest.BatchPolicy != DefaultBatchPolicy {
		t.Errorf("BatchPolicy = %q, want %q", cfg.Ingest.BatchPolicy, DefaultBatchPolicy)
	}
	if cfg.Ingest.Workers != DefaultWorkers {
		t.Errorf("Workers = %d, want %d", cfg.Ingest.Workers, DefaultWorkers)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("GOOGLE_CLOUD_PROJECT", "test-project")
	t.Setenv("PORT", "9090")
	t.Setenv("GCS_BUCKET", "receipt-uploads")
	t.Setenv("BIGQUERY_DATASET", "spend")
	t.Setenv("GEMINI_MODEL", "gemini-2.5-flash")
	t.Setenv("INGEST_BATCH_POLICY", "continue")
	t.Setenv("INGEST_WORKERS", "2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want %q", cfg.Port, "9090")
	}
	if cfg.Storage.Bucket != "receipt-uploads" {
		t.Errorf("Bucket = %q, want %q", cfg.Storage.Bucket, "receipt-uploads")
	}
	if cfg.BigQuery.DatasetID != "spend" {
		t.Errorf("DatasetID = %q, want %q", cfg.BigQuery.DatasetID, "spend")
	}
	if cfg.Gemini.Model != "gemini-2.5-flash" {
		t.Errorf("Model = %q, want %q", cfg.Gemini.Model, "gemini-2.5-flash")
	}
	if cfg.Ingest.BatchPolicy != "continue" {
		t.Errorf("BatchPolicy = %q, want %q", cfg.Ingest.BatchPolicy, "continue")
	}
	if cfg.Ingest.Workers != 2 {
		t.Errorf("Workers = %d, want 2", cfg.Ingest.Workers)
	}
}

func TestLoadMissingProject(t *testing.T) {
	t.Setenv("GOOGLE_CLOUD_PROJECT", "")

	if _, err := Load(); err == nil {
		t.Error("Load() expected error for missing project, got nil")
	}
}

func TestLoadInvalidBatchPolicy(t *testing.T) {
	t.Setenv("GOOGLE_CLOUD_PROJECT", "test-project")
	t.Setenv("INGEST_BATCH_POLICY", "sometimes")

	if _, err := Load(); err == nil {
		t.Error("Load() expected error for invalid batch policy, got nil")
	}
}

func TestGetenvInt(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		fallback int
		want     int
	}{
		{"unset", "", 5, 5},
		{"valid", "12", 5, 12},
		{"garbage", "twelve", 5, 5},
		{"zero", "0", 5, 5},
		{"negative", "-3", 5, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_INT_VALUE", tt.value)
			if got := getenvInt("TEST_INT_VALUE", tt.fallback); got != tt.want {
				t.Errorf("getenvInt(%q) = %d, want %d", tt.value, got, tt.want)
			}
		})
	}
}
