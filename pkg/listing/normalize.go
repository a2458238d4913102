package listing

import (
	"fmt"
	"strings"
	"time"

	"tisescraper/pkg/tise"
)

// Sentinels for optional fields so downstream consumers never need nil checks.
const (
	PriceNotSpecified = "Not specified"
	LocationUnknown   = "Unknown location"
	ColorsUnspecified = "No colors specified"
)

// Normalize converts one raw API record into the canonical Listing. Records
// without an identifier are skipped, not errors; the second return value
// reports whether a Listing was produced.
func Normalize(raw *tise.RawListing, profileURL, siteURL string) (*Listing, bool) {
	if raw.ID == "" {
		return nil, false
	}

	code := raw.ShortCode
	if code == "" {
		code = raw.ID
	}

	var imageURLs []string
	for _, set := range raw.ImageSets {
		// Only the original-quality variant; entries without one are
		// dropped, never substituted.
		if set.Original != "" {
			imageURLs = append(imageURLs, set.Original)
		}
	}

	return &Listing{
		URL:         tise.ListingURL(siteURL, code),
		ProfileURL:  profileURL,
		Title:       raw.Title,
		Description: raw.Caption,
		Price:       FormatPrice(raw.Price),
		PriceMinor:  raw.Price,
		ImageURLs:   imageURLs,
		CreatedAt:   raw.CreatedAt,
		Sold:        raw.Sold,
		Category:    raw.Category,
		Condition:   raw.Condition,
		Size:        raw.ProductSize,
		Location:    extractLocation(raw.Location),
		Colors:      extractColors(raw.Colors),
		ScrapedAt:   time.Now(),
		Raw:         raw.Raw,
	}, true
}

// FormatPrice renders a minor-unit price (øre) as a major-unit display string.
// Integer division truncates; zero or absent renders the explicit sentinel.
func FormatPrice(minor int64) string {
	if minor <= 0 {
		return PriceNotSpecified
	}
	return fmt.Sprintf("%d NOK", minor/100)
}

func extractLocation(loc *tise.RawLocation) string {
	if loc != nil && loc.Label != "" {
		return loc.Label
	}
	return LocationUnknown
}

func extractColors(colors []tise.RawColor) string {
	var names []string
	for _, c := range colors {
		if c.Name != "" {
			names = append(names, c.Name)
		}
	}
	if len(names) == 0 {
		return ColorsUnspecified
	}
	return strings.Join(names, ", ")
}
