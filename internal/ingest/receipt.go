package ingest

import "strings"

// DeriveReceiptID derives the stable receipt identifier from an object key.
// Upload keys are built as "<id>_<original filename>", so the id is the
// substring before the first underscore; a key without an underscore is its
// own id. The derivation is deterministic, which is what makes re-running
// ingestion for the same key idempotent.
func DeriveReceiptID(key string) string {
	if idx := strings.Index(key, "_"); idx != -1 {
		return key[:idx]
	}
	return key
}
