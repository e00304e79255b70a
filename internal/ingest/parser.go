package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"cloud.google.com/go/civil"
)

// ErrMalformedResponse indicates the model output contained nothing that
// could be read as a JSON object. Missing individual fields never raise
// this; they fall back to defaults instead.
var ErrMalformedResponse = errors.New("no parseable structure in model response")

// ExtractionResult is the normalized triple read from one model response.
// It only lives between the parser and the orchestrator; it is discarded
// once a receipt row has been persisted.
type ExtractionResult struct {
	TotalAmount float64
	VendorName  string
	ReceiptDate civil.Date

	// Unavailable markers record which fields the model failed to supply
	// and were therefore defaulted.
	AmountUnavailable bool
	VendorUnavailable bool
	DateUnavailable   bool
}

// ParseExtraction turns raw model output into an ExtractionResult.
// The model is instructed to emit clean JSON, but responses are untrusted:
// the JSON object may be wrapped in prose or code fences, and any field may
// be absent, null, or the literal "None". Parsing the same text twice
// yields the same result.
func ParseExtraction(raw string) (*ExtractionResult, error) {
	return parseExtractionAt(raw, time.Now())
}

// parseExtractionAt is ParseExtraction with an explicit "now" used for the
// receipt-date default.
func parseExtractionAt(raw string, now time.Time) (*ExtractionResult, error) {
	span, ok := extractObjectSpan(raw)
	if !ok {
		return nil, fmt.Errorf("parseExtractionAt: %w", ErrMalformedResponse)
	}

	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(span), &fields); err != nil {
		return nil, fmt.Errorf("parseExtractionAt: %w: %v", ErrMalformedResponse, err)
	}

	result := &ExtractionResult{}

	amount, ok := normalizeAmount(fields["total_amount"])
	if !ok {
		result.AmountUnavailable = true
	}
	result.TotalAmount = amount

	vendor, ok := normalizeVendor(fields["vendor_name"])
	if !ok {
		result.VendorUnavailable = true
	}
	result.VendorName = vendor

	date, ok := normalizeDate(fields["receipt_date"])
	if !ok {
		result.DateUnavailable = true
		date = civil.DateOf(now)
	}
	result.ReceiptDate = date

	return result, nil
}

// extractObjectSpan locates the outermost brace-delimited span in the text:
// from the first '{' to the last '}'. This mirrors a greedy dot-all match
// and deliberately ignores any prose or fences around the object.
func extractObjectSpan(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	if start == -1 {
		return "", false
	}
	end := strings.LastIndex(raw, "}")
	if end <= start {
		return "", false
	}
	return raw[start : end+1], true
}

// normalizeAmount reads a total amount from a JSON value. String amounts
// have currency symbols and whitespace stripped before parsing; anything
// that still fails to parse counts as unavailable and defaults to 0.
func normalizeAmount(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case string:
		s := stripCurrency(val)
		if s == "" || s == "None" {
			return 0, false
		}
		amount, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return amount, true
	default:
		// Absent key or JSON null.
		return 0, false
	}
}

// stripCurrency removes currency symbols and surrounding whitespace from an
// amount string, e.g. "₹ 1250.00 " → "1250.00".
func stripCurrency(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Sc, r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

func normalizeVendor(v interface{}) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return DefaultVendorName, false
	}
	s = strings.TrimSpace(s)
	if s == "" || s == "None" {
		return DefaultVendorName, false
	}
	return s, true
}

// normalizeDate reads a receipt date the model has already converted to ISO
// form per the instruction contract. Anything else counts as unavailable.
func normalizeDate(v interface{}) (civil.Date, bool) {
	s, ok := v.(string)
	if !ok {
		return civil.Date{}, false
	}
	s = strings.TrimSpace(s)
	if s == "" || s == "None" {
		return civil.Date{}, false
	}
	parsed, err := time.Parse("2006-01-02", s)
	if err != nil {
		return civil.Date{}, false
	}
	return civil.DateOf(parsed), true
}
