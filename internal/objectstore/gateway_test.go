package objectstore

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

func TestMapStoreError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "object not exist",
			err:  storage.ErrObjectNotExist,
			want: ErrNotFound,
		},
		{
			name: "bucket not exist",
			err:  storage.ErrBucketNotExist,
			want: ErrNotFound,
		},
		{
			name: "wrapped object not exist",
			err:  fmt.Errorf("reading: %w", storage.ErrObjectNotExist),
			want: ErrNotFound,
		},
		{
			name: "forbidden",
			err:  &googleapi.Error{Code: http.StatusForbidden, Message: "forbidden"},
			want: ErrAccessDenied,
		},
		{
			name: "unauthorized",
			err:  &googleapi.Error{Code: http.StatusUnauthorized, Message: "unauthorized"},
			want: ErrAccessDenied,
		},
		{
			name: "api not found",
			err:  &googleapi.Error{Code: http.StatusNotFound, Message: "no such object"},
			want: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapStoreError("Fetch: test", tt.err)
			if !errors.Is(got, tt.want) {
				t.Errorf("mapStoreError() = %v, want errors.Is(..., %v)", got, tt.want)
			}
		})
	}
}

func TestMapStoreErrorPassthrough(t *testing.T) {
	underlying := errors.New("connection reset")
	got := mapStoreError("Fetch: test", underlying)

	if !errors.Is(got, underlying) {
		t.Errorf("mapStoreError() lost the original error: %v", got)
	}
	if errors.Is(got, ErrNotFound) || errors.Is(got, ErrAccessDenied) {
		t.Errorf("mapStoreError() mapped an unrelated error onto the taxonomy: %v", got)
	}
}

func TestObjectURL(t *testing.T) {
	g := &Gateway{endpoint: "https://storage.googleapis.com"}

	got := g.ObjectURL("receipts", "abc123_invoice.jpg")
	want := "https://storage.googleapis.com/receipts/abc123_invoice.jpg"
	if got != want {
		t.Errorf("ObjectURL() = %q, want %q", got, want)
	}
}
