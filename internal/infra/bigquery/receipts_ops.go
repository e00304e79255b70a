package bigquery

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/expense-tracker/internal/config"
)

// ErrPersistence marks any write failure against the receipts table.
var ErrPersistence = errors.New("receipt persistence failed")

// ReceiptRepository is the persistence boundary the ingestion pipeline and
// the aggregation engine depend on.
type ReceiptRepository interface {
	// UpsertReceipt inserts the row, or overwrites the existing row with
	// the same receipt_id. Re-running ingestion for a key is therefore
	// safe under at-least-once notification delivery.
	UpsertReceipt(ctx context.Context, row *ReceiptRow) error

	// ListReceiptsByUser returns all of a user's receipts ordered by
	// receipt date ascending. Empty slice, not an error, for unknown users.
	ListReceiptsByUser(ctx context.Context, userID string) ([]*ReceiptRow, error)

	// Close releases the underlying client.
	Close() error
}

// BigQueryReceiptRepository is the concrete ReceiptRepository. It holds a
// shared BigQuery client to avoid creating a new connection per operation.
type BigQueryReceiptRepository struct {
	client    *bigquery.Client
	projectID string
	datasetID string
}

// NewReceiptRepository creates a repository with a shared BigQuery client.
func NewReceiptRepository(ctx context.Context, cfg *config.Config) (*BigQueryReceiptRepository, error) {
	client, err := bigquery.NewClient(ctx, cfg.BigQuery.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("NewReceiptRepository: creating client: %w", err)
	}
	return &BigQueryReceiptRepository{
		client:    client,
		projectID: cfg.BigQuery.ProjectID,
		datasetID: cfg.BigQuery.DatasetID,
	}, nil
}

// Close closes the BigQuery client connection.
func (r *BigQueryReceiptRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// UpsertReceipt writes a receipt row via a single MERGE statement keyed on
// receipt_id. The statement is atomic: either the full row is visible
// afterwards or nothing changed.
func (r *BigQueryReceiptRepository) UpsertReceipt(ctx context.Context, row *ReceiptRow) error {
	q := r.client.Query(fmt.Sprintf(`
		MERGE `+"`%s.%s.%s`"+` t
		USING (SELECT @receipt_id AS receipt_id) s
		ON t.receipt_id = s.receipt_id
		WHEN MATCHED THEN UPDATE SET
			user_id = @user_id,
			category = @category,
			receipt_date = @receipt_date,
			vendor_name = @vendor_name,
			total_amount = @total_amount,
			source_url = @source_url,
			updated_ts = CURRENT_TIMESTAMP()
		WHEN NOT MATCHED THEN INSERT (
			receipt_id, user_id, category, receipt_date,
			vendor_name, total_amount, source_url, created_ts
		) VALUES (
			@receipt_id, @user_id, @category, @receipt_date,
			@vendor_name, @total_amount, @source_url, CURRENT_TIMESTAMP()
		)
	`, r.projectID, r.datasetID, receiptsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "receipt_id", Value: row.ReceiptID},
		{Name: "user_id", Value: row.UserID},
		{Name: "category", Value: row.Category},
		{Name: "receipt_date", Value: row.ReceiptDate},
		{Name: "vendor_name", Value: row.VendorName},
		{Name: "total_amount", Value: row.TotalAmount},
		{Name: "source_url", Value: row.SourceURL},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("UpsertReceipt %s: running merge: %w: %v", row.ReceiptID, ErrPersistence, err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("UpsertReceipt %s: waiting for job: %w: %v", row.ReceiptID, ErrPersistence, err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("UpsertReceipt %s: job error: %w: %v", row.ReceiptID, ErrPersistence, err)
	}

	return nil
}

// ListReceiptsByUser retrieves all receipts for a user, oldest first.
func (r *BigQueryReceiptRepository) ListReceiptsByUser(ctx context.Context, userID string) ([]*ReceiptRow, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT
			receipt_id,
			user_id,
			category,
			receipt_date,
			vendor_name,
			total_amount,
			source_url,
			created_ts,
			updated_ts
		FROM `+"`%s.%s.%s`"+`
		WHERE user_id = @user_id
		ORDER BY receipt_date ASC
	`, r.projectID, r.datasetID, receiptsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListReceiptsByUser %s: reading query: %w", userID, err)
	}

	var receipts []*ReceiptRow
	for {
		var row ReceiptRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListReceiptsByUser %s: iterating: %w", userID, err)
		}
		receipts = append(receipts, &row)
	}

	return receipts, nil
}

// Ensure the concrete repository satisfies the interface.
var _ ReceiptRepository = (*BigQueryReceiptRepository)(nil)
