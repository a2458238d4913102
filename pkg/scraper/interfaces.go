package scraper

import (
	"context"

	"tisescraper/pkg/tise"
)

// Source is the listing-discovery contract. The API client is the default
// implementation; the browser-rendered source is the pluggable alternative
// for profiles the plain API path cannot serve. Both produce raw records so
// everything downstream of discovery is shared.
type Source interface {
	Discover(ctx context.Context, handle string) ([]tise.RawListing, error)
}
