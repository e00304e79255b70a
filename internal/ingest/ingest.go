package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/expense-tracker/internal/logger"
)

// BatchPolicy decides how a notification batch reacts to one record
// failing. The choice is explicit configuration, not an accident of
// control flow.
type BatchPolicy string

const (
	// BatchAbortOnFirstFailure stops the whole batch at the first failing
	// record; later records are never processed. This treats the event
	// delivery as atomic and leans on upstream redelivery.
	BatchAbortOnFirstFailure BatchPolicy = "abort"

	// BatchContinueOnFailure isolates per-record failures: good records
	// persist, and the combined error reports every failing key.
	BatchContinueOnFailure BatchPolicy = "continue"
)

// Service is the ingestion orchestrator. It coordinates
// fetch → infer → parse → persist for each record of a notification and
// owns the batch failure policy. It performs no retries of its own:
// because persistence is an upsert keyed on receipt_id, at-least-once
// redelivery of the notification is safe.
type Service struct {
	fetcher   ObjectFetcher
	extractor Extractor
	store     ReceiptStore
	policy    BatchPolicy
}

// NewService creates an orchestrator. An empty policy means
// BatchAbortOnFirstFailure.
func NewService(fetcher ObjectFetcher, extractor Extractor, store ReceiptStore, policy BatchPolicy) *Service {
	if policy == "" {
		policy = BatchAbortOnFirstFailure
	}
	return &Service{
		fetcher:   fetcher,
		extractor: extractor,
		store:     store,
		policy:    policy,
	}
}

// IngestNotification processes every record of a notification
// sequentially and synchronously. The returned error always names the
// offending object key(s).
func (s *Service) IngestNotification(ctx context.Context, n *Notification) error {
	log := logger.FromContext(ctx)

	var errs []error
	for _, rec := range n.Records {
		bucket := rec.S3.Bucket.Name
		key := rec.S3.Object.Key

		if err := s.IngestObject(ctx, bucket, key); err != nil {
			wrapped := fmt.Errorf("processing receipt %s: %w", key, err)
			log.Error().Err(err).Str("object_key", key).Msg("Receipt ingestion failed")

			if s.policy == BatchAbortOnFirstFailure {
				return wrapped
			}
			errs = append(errs, wrapped)
		}
	}

	return errors.Join(errs...)
}

// IngestObject runs the full pipeline for a single stored object.
func (s *Service) IngestObject(ctx context.Context, bucket, key string) error {
	state := &State{
		Bucket: bucket,
		Key:    key,
	}
	return s.newIngestionPipeline().Execute(ctx, state)
}

// newIngestionPipeline builds the standard 5-step pipeline for one receipt.
func (s *Service) newIngestionPipeline() *Pipeline {
	return NewPipeline(
		&FetchObjectStep{svc: s},
		&InferTextStep{svc: s},
		&ParseFieldsStep{},
		&BuildRecordStep{svc: s},
		&PersistRecordStep{svc: s},
	)
}
