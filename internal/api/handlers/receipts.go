package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dvloznov/expense-tracker/internal/api/middleware"
	infra "github.com/dvloznov/expense-tracker/internal/infra/bigquery"
	"github.com/dvloznov/expense-tracker/internal/ingest"
	"github.com/dvloznov/expense-tracker/internal/jobs"
)

// maxUploadBytes caps a single receipt image upload.
const maxUploadBytes = 10 << 20

// Uploader writes receipt images into the object store.
type Uploader interface {
	Upload(ctx context.Context, bucket, key, contentType string, metadata map[string]string, r io.Reader) error
}

// ReceiptLister is the read side used for the expenses listing.
type ReceiptLister interface {
	ListReceiptsByUser(ctx context.Context, userID string) ([]*infra.ReceiptRow, error)
}

// ReceiptsHandler handles receipt upload and listing endpoints.
type ReceiptsHandler struct {
	uploader  Uploader
	lister    ReceiptLister
	publisher jobs.Publisher
	bucket    string
	log       zerolog.Logger
}

// NewReceiptsHandler creates a new receipts handler.
func NewReceiptsHandler(uploader Uploader, lister ReceiptLister, publisher jobs.Publisher, bucket string, log zerolog.Logger) *ReceiptsHandler {
	return &ReceiptsHandler{
		uploader:  uploader,
		lister:    lister,
		publisher: publisher,
		bucket:    bucket,
		log:       log,
	}
}

// UploadReceipt handles POST /api/receipts/upload
// It accepts a multipart form with the receipt image under "file" plus
// "user_id" and "category" fields, stores the image with user/category
// metadata, and enqueues an asynchronous ingestion job.
func (h *ReceiptsHandler) UploadReceipt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	userID := r.FormValue("user_id")
	if userID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	category := r.FormValue("category")
	if !ingest.IsValidCategory(category) {
		middleware.WriteError(w, http.StatusBadRequest,
			fmt.Sprintf("category must be one of: %s, %s, %s",
				ingest.CategoryFood, ingest.CategoryEntertainment, ingest.CategoryWork))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}

	// The prefix before the underscore becomes the stable receipt id.
	key := uuid.New().String() + "_" + filepath.Base(header.Filename)
	metadata := map[string]string{
		ingest.MetadataKeyUser:     userID,
		ingest.MetadataKeyCategory: category,
	}

	if err := h.uploader.Upload(ctx, h.bucket, key, contentType, metadata, file); err != nil {
		h.log.Error().Err(err).Str("object_key", key).Msg("Failed to store receipt image")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to store receipt image")
		return
	}

	job := &jobs.IngestReceiptJob{
		Bucket:    h.bucket,
		ObjectKey: key,
		ReceiptID: ingest.DeriveReceiptID(key),
	}
	if err := h.publisher.PublishIngestReceipt(ctx, job); err != nil {
		h.log.Error().Err(err).Str("object_key", key).Msg("Failed to enqueue ingestion job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue ingestion job")
		return
	}

	h.log.Info().
		Str("job_id", job.JobID).
		Str("receipt_id", job.ReceiptID).
		Str("user_id", userID).
		Str("category", category).
		Msg("Receipt uploaded and ingestion enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id":     job.JobID,
		"receipt_id": job.ReceiptID,
		"object_key": key,
		"status":     string(job.Status),
	})
}

// expenseItem is the listing shape of one receipt.
type expenseItem struct {
	ReceiptID   string  `json:"receipt_id"`
	Category    string  `json:"category"`
	Date        string  `json:"date"`
	VendorName  string  `json:"vendor_name"`
	TotalAmount float64 `json:"total_amount"`
	SourceURL   string  `json:"source_url,omitempty"`
}

// ListExpenses handles GET /api/expenses/{user_id}
func (h *ReceiptsHandler) ListExpenses(w http.ResponseWriter, r *http.Request, userID string) {
	ctx := r.Context()

	rows, err := h.lister.ListReceiptsByUser(ctx, userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to list expenses")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list expenses")
		return
	}

	items := make([]expenseItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, expenseItem{
			ReceiptID:   row.ReceiptID,
			Category:    row.Category,
			Date:        row.ReceiptDate.In(time.UTC).Format("Jan 02, 2006"),
			VendorName:  row.VendorName,
			TotalAmount: row.TotalAmount,
			SourceURL:   row.SourceURL,
		})
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"expenses": items,
		"count":    len(items),
	})
}
