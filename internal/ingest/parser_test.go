package ingest

import (
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
)

var parseNow = time.Date(2025, time.March, 14, 10, 30, 0, 0, time.UTC)

func TestParseExtractionCleanJSON(t *testing.T) {
	raw := `{"total_amount": "1250.00", "vendor_name": "Cafe Coffee Day", "receipt_date": "2025-02-18"}`

	got, err := parseExtractionAt(raw, parseNow)
	if err != nil {
		t.Fatalf("parseExtractionAt() error = %v", err)
	}

	if got.TotalAmount != 1250.00 {
		t.Errorf("TotalAmount = %v, want 1250.00", got.TotalAmount)
	}
	if got.VendorName != "Cafe Coffee Day" {
		t.Errorf("VendorName = %q, want %q", got.VendorName, "Cafe Coffee Day")
	}
	if want := (civil.Date{Year: 2025, Month: time.February, Day: 18}); got.ReceiptDate != want {
		t.Errorf("ReceiptDate = %v, want %v", got.ReceiptDate, want)
	}
	if got.AmountUnavailable || got.VendorUnavailable || got.DateUnavailable {
		t.Errorf("unexpected unavailable markers: %+v", got)
	}
}

func TestParseExtractionIgnoresSurroundingProse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{
			name: "prose around object",
			raw:  "Here is the extracted data:\n{\"total_amount\": \"42.50\", \"vendor_name\": \"Lidl\", \"receipt_date\": \"2025-01-05\"}\nLet me know if you need anything else.",
		},
		{
			name: "markdown code fence",
			raw:  "```json\n{\"total_amount\": \"42.50\", \"vendor_name\": \"Lidl\", \"receipt_date\": \"2025-01-05\"}\n```",
		},
		{
			name: "no surrounding text",
			raw:  "{\"total_amount\": \"42.50\", \"vendor_name\": \"Lidl\", \"receipt_date\": \"2025-01-05\"}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseExtractionAt(tt.raw, parseNow)
			if err != nil {
				t.Fatalf("parseExtractionAt() error = %v", err)
			}
			if got.TotalAmount != 42.50 || got.VendorName != "Lidl" {
				t.Errorf("parseExtractionAt() = %+v, want amount 42.50 vendor Lidl", got)
			}
		})
	}
}

func TestParseExtractionAmountNormalization(t *testing.T) {
	tests := []struct {
		name        string
		amount      string
		want        float64
		unavailable bool
	}{
		{"rupee symbol", `"₹1250.50"`, 1250.50, false},
		{"dollar with spaces", `" $ 12.50 "`, 12.50, false},
		{"euro trailing", `"23.40€"`, 23.40, false},
		{"plain", `"99.99"`, 99.99, false},
		{"json number", `150.25`, 150.25, false},
		{"literal None", `"None"`, 0, true},
		{"null", `null`, 0, true},
		{"garbage", `"twelve euros"`, 0, true},
		{"empty string", `""`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := `{"total_amount": ` + tt.amount + `, "vendor_name": "X", "receipt_date": "2025-01-01"}`
			got, err := parseExtractionAt(raw, parseNow)
			if err != nil {
				t.Fatalf("parseExtractionAt() error = %v", err)
			}
			if got.TotalAmount != tt.want {
				t.Errorf("TotalAmount = %v, want %v", got.TotalAmount, tt.want)
			}
			if got.AmountUnavailable != tt.unavailable {
				t.Errorf("AmountUnavailable = %v, want %v", got.AmountUnavailable, tt.unavailable)
			}
		})
	}
}

func TestParseExtractionDefaults(t *testing.T) {
	raw := `{"total_amount": "None", "vendor_name": "None", "receipt_date": "None"}`

	got, err := parseExtractionAt(raw, parseNow)
	if err != nil {
		t.Fatalf("parseExtractionAt() error = %v", err)
	}

	if got.TotalAmount != 0 || !got.AmountUnavailable {
		t.Errorf("amount = %v (unavailable=%v), want 0 with marker", got.TotalAmount, got.AmountUnavailable)
	}
	if got.VendorName != DefaultVendorName || !got.VendorUnavailable {
		t.Errorf("vendor = %q (unavailable=%v), want %q with marker", got.VendorName, got.VendorUnavailable, DefaultVendorName)
	}
	if want := civil.DateOf(parseNow); got.ReceiptDate != want || !got.DateUnavailable {
		t.Errorf("date = %v (unavailable=%v), want %v with marker", got.ReceiptDate, got.DateUnavailable, want)
	}
}

func TestParseExtractionMissingKeys(t *testing.T) {
	got, err := parseExtractionAt(`{}`, parseNow)
	if err != nil {
		t.Fatalf("parseExtractionAt() error = %v", err)
	}

	if got.TotalAmount != 0 || got.VendorName != DefaultVendorName || got.ReceiptDate != civil.DateOf(parseNow) {
		t.Errorf("parseExtractionAt({}) = %+v, want all defaults", got)
	}
	if !got.AmountUnavailable || !got.VendorUnavailable || !got.DateUnavailable {
		t.Errorf("expected all unavailable markers set, got %+v", got)
	}
}

func TestParseExtractionUnparsableDate(t *testing.T) {
	raw := `{"total_amount": "5.00", "vendor_name": "X", "receipt_date": "18/02/2025"}`

	got, err := parseExtractionAt(raw, parseNow)
	if err != nil {
		t.Fatalf("parseExtractionAt() error = %v", err)
	}
	if !got.DateUnavailable || got.ReceiptDate != civil.DateOf(parseNow) {
		t.Errorf("non-ISO date should fall back to the current date, got %+v", got)
	}
}

func TestParseExtractionMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"no braces at all", "I could not read the receipt, sorry."},
		{"empty string", ""},
		{"only open brace", "{ this never closes"},
		{"braces around non-object", "{]["},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseExtractionAt(tt.raw, parseNow)
			if !errors.Is(err, ErrMalformedResponse) {
				t.Errorf("parseExtractionAt() error = %v, want ErrMalformedResponse", err)
			}
		})
	}
}

func TestParseExtractionIdempotent(t *testing.T) {
	raw := "Result:\n{\"total_amount\": \"₹99.00\", \"vendor_name\": \"Big Bazaar\", \"receipt_date\": \"2025-02-01\"}"

	first, err := parseExtractionAt(raw, parseNow)
	if err != nil {
		t.Fatalf("first parse error = %v", err)
	}
	second, err := parseExtractionAt(raw, parseNow)
	if err != nil {
		t.Fatalf("second parse error = %v", err)
	}

	if *first != *second {
		t.Errorf("parsing the same text twice differed: %+v vs %+v", first, second)
	}
}

func TestStripCurrency(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"₹1250.00", "1250.00"},
		{" $ 12.50 ", "12.50"},
		{"23.40€", "23.40"},
		{"99.99", "99.99"},
		{"£ £5", "5"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := stripCurrency(tt.input); got != tt.want {
				t.Errorf("stripCurrency(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
