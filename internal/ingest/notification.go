package ingest

import (
	"encoding/json"
	"fmt"
	"io"
)

// Notification is the inbound event payload describing newly created
// objects in the store. The shape mirrors a cloud object-store event so the
// service can sit directly behind a bucket notification hook.
type Notification struct {
	Records []EventRecord `json:"Records"`
}

// EventRecord is a single object-created event inside a notification.
type EventRecord struct {
	S3 StorageEntity `json:"s3"`
}

// StorageEntity identifies the bucket and object an event refers to.
type StorageEntity struct {
	Bucket BucketSpec `json:"bucket"`
	Object ObjectSpec `json:"object"`
}

// BucketSpec names the bucket.
type BucketSpec struct {
	Name string `json:"name"`
}

// ObjectSpec names the object key.
type ObjectSpec struct {
	Key string `json:"key"`
}

// DecodeNotification parses a notification payload and rejects records
// missing a bucket or key. An empty Records list is valid; ingestion of it
// is a no-op.
func DecodeNotification(r io.Reader) (*Notification, error) {
	var n Notification
	if err := json.NewDecoder(r).Decode(&n); err != nil {
		return nil, fmt.Errorf("DecodeNotification: invalid payload: %w", err)
	}

	for i, rec := range n.Records {
		if rec.S3.Bucket.Name == "" {
			return nil, fmt.Errorf("DecodeNotification: record %d missing bucket name", i)
		}
		if rec.S3.Object.Key == "" {
			return nil, fmt.Errorf("DecodeNotification: record %d missing object key", i)
		}
	}

	return &n, nil
}
