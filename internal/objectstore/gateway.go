package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"

	"github.com/dvloznov/expense-tracker/internal/config"
)

// Sentinel errors for the two store failures callers distinguish.
// Everything else surfaces as a plain wrapped error.
var (
	// ErrNotFound indicates the requested object does not exist.
	ErrNotFound = errors.New("object not found")

	// ErrAccessDenied indicates the store rejected our credentials.
	ErrAccessDenied = errors.New("object store access denied")
)

// Object is a fetched store object: its bytes plus the key-value metadata
// attached at upload time. For receipts the metadata carries "user" and
// "category".
type Object struct {
	Data        []byte
	Metadata    map[string]string
	ContentType string
}

// Gateway is a thin client over the object store. It performs no retries;
// retry policy belongs to the caller.
type Gateway struct {
	client   *storage.Client
	endpoint string
}

// NewGateway creates a gateway with a shared storage client.
// It assumes Application Default Credentials are configured.
func NewGateway(ctx context.Context, cfg *config.Config) (*Gateway, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewGateway: create storage client: %w", err)
	}
	return &Gateway{
		client:   client,
		endpoint: strings.TrimSuffix(cfg.Storage.Endpoint, "/"),
	}, nil
}

// Close closes the underlying storage client.
func (g *Gateway) Close() error {
	return g.client.Close()
}

// Fetch downloads an object's bytes and attached metadata. Pure read.
func (g *Gateway) Fetch(ctx context.Context, bucket, key string) (*Object, error) {
	obj := g.client.Bucket(bucket).Object(key)

	attrs, err := obj.Attrs(ctx)
	if err != nil {
		return nil, mapStoreError(fmt.Sprintf("Fetch: reading attrs of %s/%s", bucket, key), err)
	}

	r, err := obj.NewReader(ctx)
	if err != nil {
		return nil, mapStoreError(fmt.Sprintf("Fetch: opening reader for %s/%s", bucket, key), err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("Fetch: reading bytes of %s/%s: %w", bucket, key, err)
	}

	return &Object{
		Data:        data,
		Metadata:    attrs.Metadata,
		ContentType: attrs.ContentType,
	}, nil
}

// Upload writes r to bucket/key with the given content type and metadata.
func (g *Gateway) Upload(ctx context.Context, bucket, key, contentType string, metadata map[string]string, r io.Reader) error {
	w := g.client.Bucket(bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	w.Metadata = metadata

	if _, err := io.Copy(w, r); err != nil {
		// Close to release the writer; the copy error is the one to report.
		_ = w.Close()
		return fmt.Errorf("Upload: copying %s/%s: %w", bucket, key, err)
	}

	if err := w.Close(); err != nil {
		return mapStoreError(fmt.Sprintf("Upload: finalizing %s/%s", bucket, key), err)
	}

	return nil
}

// ObjectURL derives the public URL of a stored object from the configured
// endpoint. This is what gets persisted as a receipt's source_url.
func (g *Gateway) ObjectURL(bucket, key string) string {
	return fmt.Sprintf("%s/%s/%s", g.endpoint, bucket, key)
}

// mapStoreError translates storage client failures onto the gateway's
// error taxonomy, keeping the original error in the chain.
func mapStoreError(op string, err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return fmt.Errorf("%s: %w: %v", op, ErrNotFound, err)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%s: %w: %v", op, ErrAccessDenied, err)
		case http.StatusNotFound:
			return fmt.Errorf("%s: %w: %v", op, ErrNotFound, err)
		}
	}

	return fmt.Errorf("%s: %w", op, err)
}
