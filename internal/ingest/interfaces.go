package ingest

import (
	"context"

	infra "github.com/dvloznov/expense-tracker/internal/infra/bigquery"
	"github.com/dvloznov/expense-tracker/internal/objectstore"
)

// ObjectFetcher is the object-store boundary of the pipeline. It performs
// no retries; redelivery of the notification is the retry mechanism.
type ObjectFetcher interface {
	// Fetch returns an object's bytes and upload-time metadata.
	Fetch(ctx context.Context, bucket, key string) (*objectstore.Object, error)

	// ObjectURL derives the public URL stored as a receipt's source_url.
	ObjectURL(bucket, key string) string
}

// Extractor wraps the external vision inference capability. It returns
// whatever text the model produces; interpreting that text is the parser's
// job. The seam is deliberately thin so the model can be swapped without
// touching the rest of the pipeline.
type Extractor interface {
	Infer(ctx context.Context, data []byte, mimeType string) (string, error)
}

// ReceiptStore is the persistence boundary of the pipeline.
type ReceiptStore interface {
	UpsertReceipt(ctx context.Context, row *infra.ReceiptRow) error
}
