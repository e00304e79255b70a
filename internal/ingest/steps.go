package ingest

import (
	"context"
	"fmt"
	"time"

	infra "github.com/dvloznov/expense-tracker/internal/infra/bigquery"
	"github.com/dvloznov/expense-tracker/internal/logger"
	"github.com/dvloznov/expense-tracker/internal/objectstore"
)

// Step is a single step of the ingestion pipeline for one object.
type Step interface {
	Execute(ctx context.Context, state *State) error
}

// State holds the shared state across all pipeline steps for one object.
type State struct {
	Bucket string
	Key    string

	Object     *objectstore.Object
	RawText    string
	Extraction *ExtractionResult
	Row        *infra.ReceiptRow
}

// FetchObjectStep downloads the object's bytes and metadata from the store.
type FetchObjectStep struct {
	svc *Service
}

func (s *FetchObjectStep) Execute(ctx context.Context, state *State) error {
	obj, err := s.svc.fetcher.Fetch(ctx, state.Bucket, state.Key)
	if err != nil {
		return err
	}
	state.Object = obj

	log := logger.FromContext(ctx)
	log.Info().
		Str("bucket", state.Bucket).
		Str("object_key", state.Key).
		Int("bytes", len(obj.Data)).
		Msg("Fetched receipt image from object store")
	return nil
}

// InferTextStep sends the image to the vision model and keeps the raw text.
type InferTextStep struct {
	svc *Service
}

func (s *InferTextStep) Execute(ctx context.Context, state *State) error {
	raw, err := s.svc.extractor.Infer(ctx, state.Object.Data, state.Object.ContentType)
	if err != nil {
		return err
	}
	state.RawText = raw

	log := logger.FromContext(ctx)
	log.Info().
		Str("object_key", state.Key).
		Int("response_chars", len(raw)).
		Msg("Model inference completed")
	return nil
}

// ParseFieldsStep normalizes the raw model output into an ExtractionResult.
type ParseFieldsStep struct{}

func (s *ParseFieldsStep) Execute(ctx context.Context, state *State) error {
	result, err := ParseExtraction(state.RawText)
	if err != nil {
		return err
	}
	state.Extraction = result

	log := logger.FromContext(ctx)
	log.Info().
		Str("object_key", state.Key).
		Bool("amount_defaulted", result.AmountUnavailable).
		Bool("vendor_defaulted", result.VendorUnavailable).
		Bool("date_defaulted", result.DateUnavailable).
		Msg("Parsed receipt fields")
	return nil
}

// BuildRecordStep assembles the receipt row from the derived id, the
// upload-time metadata and the parsed fields.
type BuildRecordStep struct {
	svc *Service
}

func (s *BuildRecordStep) Execute(ctx context.Context, state *State) error {
	if state.Extraction.TotalAmount < 0 {
		return fmt.Errorf("BuildRecordStep: negative total amount %.2f for %s", state.Extraction.TotalAmount, state.Key)
	}

	category := state.Object.Metadata[MetadataKeyCategory]
	if category == "" {
		category = DefaultCategory
	}

	state.Row = &infra.ReceiptRow{
		ReceiptID:   DeriveReceiptID(state.Key),
		UserID:      state.Object.Metadata[MetadataKeyUser],
		Category:    category,
		ReceiptDate: state.Extraction.ReceiptDate,
		VendorName:  state.Extraction.VendorName,
		TotalAmount: state.Extraction.TotalAmount,
		SourceURL:   s.svc.fetcher.ObjectURL(state.Bucket, state.Key),
		CreatedTS:   time.Now(),
	}
	return nil
}

// PersistRecordStep upserts the receipt row.
type PersistRecordStep struct {
	svc *Service
}

func (s *PersistRecordStep) Execute(ctx context.Context, state *State) error {
	if err := s.svc.store.UpsertReceipt(ctx, state.Row); err != nil {
		return err
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("receipt_id", state.Row.ReceiptID).
		Str("user_id", state.Row.UserID).
		Str("category", state.Row.Category).
		Msg("Persisted receipt record")
	return nil
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []Step
}

// NewPipeline creates a pipeline with the given steps.
func NewPipeline(steps ...Step) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps sequentially, stopping at the first failure.
func (p *Pipeline) Execute(ctx context.Context, state *State) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}
