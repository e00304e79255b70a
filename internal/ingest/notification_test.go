package ingest

import (
	"strings"
	"testing"
)

func TestDecodeNotification(t *testing.T) {
	payload := `{
		"Records": [
			{"s3": {"bucket": {"name": "receipts"}, "object": {"key": "abc123_invoice.jpg"}}},
			{"s3": {"bucket": {"name": "receipts"}, "object": {"key": "def456_bill.png"}}}
		]
	}`

	n, err := DecodeNotification(strings.NewReader(payload))
	if err != nil {
		t.Fatalf("DecodeNotification() error = %v", err)
	}

	if len(n.Records) != 2 {
		t.Fatalf("decoded %d records, want 2", len(n.Records))
	}
	if n.Records[0].S3.Bucket.Name != "receipts" {
		t.Errorf("bucket = %q, want %q", n.Records[0].S3.Bucket.Name, "receipts")
	}
	if n.Records[1].S3.Object.Key != "def456_bill.png" {
		t.Errorf("key = %q, want %q", n.Records[1].S3.Object.Key, "def456_bill.png")
	}
}

func TestDecodeNotificationEmptyRecords(t *testing.T) {
	n, err := DecodeNotification(strings.NewReader(`{"Records": []}`))
	if err != nil {
		t.Fatalf("DecodeNotification() error = %v", err)
	}
	if len(n.Records) != 0 {
		t.Errorf("decoded %d records, want 0", len(n.Records))
	}
}

func TestDecodeNotificationInvalid(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", "not a json body"},
		{"missing bucket", `{"Records": [{"s3": {"bucket": {"name": ""}, "object": {"key": "a.jpg"}}}]}`},
		{"missing key", `{"Records": [{"s3": {"bucket": {"name": "receipts"}, "object": {"key": ""}}}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeNotification(strings.NewReader(tt.payload)); err == nil {
				t.Error("DecodeNotification() expected error, got nil")
			}
		})
	}
}
