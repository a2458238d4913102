// Package store provides the persisted record store backing the
// deduplication gate and profile bookkeeping.
package store

import (
	"time"

	"tisescraper/pkg/listing"
)

// Profile is a monitored account row.
type Profile struct {
	URL         string
	Handle      string
	LastChecked time.Time
	TotalFound  int
	Active      bool
}

// Statistics summarizes the stored state.
type Statistics struct {
	TotalListings      int
	DownloadedListings int
	ActiveProfiles     int
	// RecentListings counts listings scraped in the last 24 hours.
	RecentListings  int
	DownloadPercent float64
}

// Store is the persistence contract consumed by the sync engine. The only
// writers are the deduplication gate (listing rows, profile bookkeeping) and
// the materializer completion path (downloaded flag, artifact paths).
type Store interface {
	Close() error

	ProfileExists(url string) (bool, error)
	// AddProfile inserts a profile if absent. Returns whether a row was created.
	AddProfile(url, handle string) (bool, error)
	GetActiveProfiles() ([]Profile, error)
	// UpdateProfileChecked advances last-checked to now and adds seenDelta to
	// the cumulative listings-seen counter.
	UpdateProfileChecked(url string, seenDelta int) error

	ListingExists(url string) (bool, error)
	// AddListing inserts a listing if its URL is absent, in one atomic step.
	// Returns whether the listing was inserted (true means "new").
	AddListing(l *listing.Listing) (bool, error)
	// MarkListingDownloaded sets the downloaded flag and artifact paths.
	// Idempotent: repeating the call with the same arguments changes nothing.
	MarkListingDownloaded(url string, paths []string) error

	// GetPendingListings returns admitted listings whose artifacts have not
	// been materialized yet, oldest first.
	GetPendingListings() ([]listing.Listing, error)

	GetStatistics() (*Statistics, error)

	// LogAction records one scrape action for operability.
	LogAction(profileURL, action, status, message string) error
}
