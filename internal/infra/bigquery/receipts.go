package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
)

const receiptsTable = "receipts"

// ReceiptRow is the persisted shape of one ingested receipt.
// receipt_id is unique and immutable once created; rows are written by the
// ingestion pipeline only and never mutated by the read side.
type ReceiptRow struct {
	ReceiptID string `bigquery:"receipt_id"` // REQUIRED
	UserID    string `bigquery:"user_id"`    // NULLABLE

	Category string `bigquery:"category"` // REQUIRED, validated at upload time

	ReceiptDate civil.Date `bigquery:"receipt_date"` // DATE, REQUIRED
	VendorName  string     `bigquery:"vendor_name"`  // REQUIRED, "Unknown" when unextractable
	TotalAmount float64    `bigquery:"total_amount"` // FLOAT64, REQUIRED, non-negative

	SourceURL string `bigquery:"source_url"` // NULLABLE

	CreatedTS time.Time              `bigquery:"created_ts"` // REQUIRED
	UpdatedTS bigquery.NullTimestamp `bigquery:"updated_ts"` // NULLABLE, set on re-ingestion
}
