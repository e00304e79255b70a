package ingest

// Defaults applied while building a receipt record.
const (
	// DefaultVendorName is stored when the model could not read a vendor.
	DefaultVendorName = "Unknown"

	// DefaultCategory is used when the uploaded object carries no
	// category metadata. Categories are validated at upload time, so this
	// only happens for objects written outside the upload endpoint.
	DefaultCategory = "work"

	// Metadata keys attached to uploaded receipt objects.
	MetadataKeyUser     = "user"
	MetadataKeyCategory = "category"
)

// Categories accepted at upload time.
const (
	CategoryFood          = "food"
	CategoryEntertainment = "entertainment"
	CategoryWork          = "work"
)

// IsValidCategory reports whether c is one of the accepted expense
// categories.
func IsValidCategory(c string) bool {
	switch c {
	case CategoryFood, CategoryEntertainment, CategoryWork:
		return true
	}
	return false
}
