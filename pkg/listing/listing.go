// Package listing defines the canonical Listing entity and the normalizer
// that converts raw API records into it.
package listing

import (
	"encoding/json"
	"time"
)

// Listing is one marketplace item, uniquely keyed by URL. Descriptive fields
// are frozen at first observation; only Downloaded and ArtifactPaths change
// afterwards, set exactly once by the materializer.
type Listing struct {
	URL         string
	ProfileURL  string
	Title       string
	Description string
	// Price is the rendered display string ("150 NOK" or "Not specified").
	Price string
	// PriceMinor is the source value in minor currency units (øre).
	PriceMinor int64
	ImageURLs  []string
	CreatedAt  string
	Sold       bool
	Category   string
	Condition  string
	Size       string
	Location   string
	Colors     string
	ScrapedAt  time.Time

	// Raw is the untouched source payload, retained for debugging and
	// forward compatibility.
	Raw json.RawMessage

	Downloaded    bool
	ArtifactPaths []string
}
