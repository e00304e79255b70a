package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	infra "github.com/dvloznov/expense-tracker/internal/infra/bigquery"
	"github.com/dvloznov/expense-tracker/internal/objectstore"
)

// mockFetcher is a function-field mock of the object store boundary.
type mockFetcher struct {
	FetchFunc func(ctx context.Context, bucket, key string) (*objectstore.Object, error)
	fetched   []string
}

func (m *mockFetcher) Fetch(ctx context.Context, bucket, key string) (*objectstore.Object, error) {
	m.fetched = append(m.fetched, key)
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, bucket, key)
	}
	return &objectstore.Object{
		Data:        []byte("image bytes"),
		ContentType: "image/jpeg",
		Metadata:    map[string]string{"user": "u-1", "category": "food"},
	}, nil
}

func (m *mockFetcher) ObjectURL(bucket, key string) string {
	return "https://store.example.com/" + bucket + "/" + key
}

// mockExtractor is a function-field mock of the inference seam.
type mockExtractor struct {
	InferFunc func(ctx context.Context, data []byte, mimeType string) (string, error)
}

func (m *mockExtractor) Infer(ctx context.Context, data []byte, mimeType string) (string, error) {
	if m.InferFunc != nil {
		return m.InferFunc(ctx, data, mimeType)
	}
	return `{"total_amount": "100.00", "vendor_name": "Spar", "receipt_date": "2025-01-15"}`, nil
}

// mockStore records upserted rows.
type mockStore struct {
	UpsertFunc func(ctx context.Context, row *infra.ReceiptRow) error
	rows       []*infra.ReceiptRow
}

func (m *mockStore) UpsertReceipt(ctx context.Context, row *infra.ReceiptRow) error {
	if m.UpsertFunc != nil {
		if err := m.UpsertFunc(ctx, row); err != nil {
			return err
		}
	}
	m.rows = append(m.rows, row)
	return nil
}

func notificationFor(keys ...string) *Notification {
	n := &Notification{}
	for _, key := range keys {
		n.Records = append(n.Records, EventRecord{
			S3: StorageEntity{
				Bucket: BucketSpec{Name: "receipts"},
				Object: ObjectSpec{Key: key},
			},
		})
	}
	return n
}

func TestIngestNotificationSuccess(t *testing.T) {
	fetcher := &mockFetcher{}
	store := &mockStore{}
	svc := NewService(fetcher, &mockExtractor{}, store, BatchAbortOnFirstFailure)

	err := svc.IngestNotification(context.Background(), notificationFor("abc123_invoice.jpg"))
	if err != nil {
		t.Fatalf("IngestNotification() error = %v", err)
	}

	if len(store.rows) != 1 {
		t.Fatalf("persisted %d rows, want 1", len(store.rows))
	}

	row := store.rows[0]
	if row.ReceiptID != "abc123" {
		t.Errorf("ReceiptID = %q, want %q", row.ReceiptID, "abc123")
	}
	if row.UserID != "u-1" {
		t.Errorf("UserID = %q, want %q", row.UserID, "u-1")
	}
	if row.Category != "food" {
		t.Errorf("Category = %q, want %q", row.Category, "food")
	}
	if row.VendorName != "Spar" {
		t.Errorf("VendorName = %q, want %q", row.VendorName, "Spar")
	}
	if row.TotalAmount != 100.00 {
		t.Errorf("TotalAmount = %v, want 100.00", row.TotalAmount)
	}
	if want := "https://store.example.com/receipts/abc123_invoice.jpg"; row.SourceURL != want {
		t.Errorf("SourceURL = %q, want %q", row.SourceURL, want)
	}
}

func TestIngestNotificationAbortsOnFirstFailure(t *testing.T) {
	fetcher := &mockFetcher{
		FetchFunc: func(ctx context.Context, bucket, key string) (*objectstore.Object, error) {
			if key == "bad_one.jpg" {
				return nil, fmt.Errorf("Fetch: %w", objectstore.ErrNotFound)
			}
			t.Fatalf("unexpected fetch of %q after the first record failed", key)
			return nil, nil
		},
	}
	store := &mockStore{}
	svc := NewService(fetcher, &mockExtractor{}, store, BatchAbortOnFirstFailure)

	err := svc.IngestNotification(context.Background(), notificationFor("bad_one.jpg", "good_two.jpg"))
	if err == nil {
		t.Fatal("IngestNotification() expected error, got nil")
	}
	if !strings.Contains(err.Error(), "bad_one.jpg") {
		t.Errorf("error %q does not reference the offending key", err)
	}
	if !errors.Is(err, objectstore.ErrNotFound) {
		t.Errorf("error %v does not wrap the gateway failure", err)
	}
	if len(fetcher.fetched) != 1 {
		t.Errorf("fetched %v, want only the first record", fetcher.fetched)
	}
	if len(store.rows) != 0 {
		t.Errorf("persisted %d rows, want 0", len(store.rows))
	}
}

func TestIngestNotificationContinuePolicy(t *testing.T) {
	fetcher := &mockFetcher{
		FetchFunc: func(ctx context.Context, bucket, key string) (*objectstore.Object, error) {
			if key == "bad_one.jpg" {
				return nil, fmt.Errorf("Fetch: %w", objectstore.ErrNotFound)
			}
			return &objectstore.Object{
				Data:        []byte("image bytes"),
				ContentType: "image/jpeg",
				Metadata:    map[string]string{"user": "u-1", "category": "work"},
			}, nil
		},
	}
	store := &mockStore{}
	svc := NewService(fetcher, &mockExtractor{}, store, BatchContinueOnFailure)

	err := svc.IngestNotification(context.Background(), notificationFor("bad_one.jpg", "good123_two.jpg"))
	if err == nil {
		t.Fatal("IngestNotification() expected error, got nil")
	}
	if !strings.Contains(err.Error(), "bad_one.jpg") {
		t.Errorf("error %q does not reference the failing key", err)
	}

	if len(store.rows) != 1 || store.rows[0].ReceiptID != "good123" {
		t.Errorf("good record was not persisted: %+v", store.rows)
	}
}

func TestIngestNotificationMalformedResponseFailsRecord(t *testing.T) {
	extractor := &mockExtractor{
		InferFunc: func(ctx context.Context, data []byte, mimeType string) (string, error) {
			return "the image was too blurry to read", nil
		},
	}
	store := &mockStore{}
	svc := NewService(&mockFetcher{}, extractor, store, BatchAbortOnFirstFailure)

	err := svc.IngestNotification(context.Background(), notificationFor("abc123_blurry.jpg"))
	if !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("IngestNotification() error = %v, want ErrMalformedResponse", err)
	}
	if len(store.rows) != 0 {
		t.Errorf("persisted %d rows, want 0", len(store.rows))
	}
}

func TestIngestNotificationNegativeAmountFailsRecord(t *testing.T) {
	extractor := &mockExtractor{
		InferFunc: func(ctx context.Context, data []byte, mimeType string) (string, error) {
			return `{"total_amount": "-12.00", "vendor_name": "X", "receipt_date": "2025-01-01"}`, nil
		},
	}
	store := &mockStore{}
	svc := NewService(&mockFetcher{}, extractor, store, BatchAbortOnFirstFailure)

	err := svc.IngestNotification(context.Background(), notificationFor("abc123_refund.jpg"))
	if err == nil {
		t.Fatal("IngestNotification() expected error for negative amount, got nil")
	}
	if len(store.rows) != 0 {
		t.Errorf("persisted %d rows, want 0", len(store.rows))
	}
}

func TestIngestNotificationDefaultCategory(t *testing.T) {
	fetcher := &mockFetcher{
		FetchFunc: func(ctx context.Context, bucket, key string) (*objectstore.Object, error) {
			return &objectstore.Object{
				Data:     []byte("image bytes"),
				Metadata: map[string]string{"user": "u-1"},
			}, nil
		},
	}
	store := &mockStore{}
	svc := NewService(fetcher, &mockExtractor{}, store, "")

	if err := svc.IngestNotification(context.Background(), notificationFor("abc123_x.jpg")); err != nil {
		t.Fatalf("IngestNotification() error = %v", err)
	}
	if store.rows[0].Category != DefaultCategory {
		t.Errorf("Category = %q, want default %q", store.rows[0].Category, DefaultCategory)
	}
}

func TestIngestNotificationPersistenceFailure(t *testing.T) {
	store := &mockStore{
		UpsertFunc: func(ctx context.Context, row *infra.ReceiptRow) error {
			return fmt.Errorf("UpsertReceipt: %w", infra.ErrPersistence)
		},
	}
	svc := NewService(&mockFetcher{}, &mockExtractor{}, store, BatchAbortOnFirstFailure)

	err := svc.IngestNotification(context.Background(), notificationFor("abc123_x.jpg"))
	if !errors.Is(err, infra.ErrPersistence) {
		t.Errorf("IngestNotification() error = %v, want ErrPersistence", err)
	}
}

func TestIngestNotificationEmptyBatch(t *testing.T) {
	svc := NewService(&mockFetcher{}, &mockExtractor{}, &mockStore{}, BatchAbortOnFirstFailure)

	if err := svc.IngestNotification(context.Background(), &Notification{}); err != nil {
		t.Errorf("IngestNotification() on empty batch = %v, want nil", err)
	}
}
