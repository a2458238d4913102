package tise

import (
	"fmt"
	"strings"
)

// BaseURL is the default API origin.
const BaseURL = "https://tise.com"

// UserLookupURL builds the user-info endpoint for a profile handle.
func UserLookupURL(base, handle string) string {
	return fmt.Sprintf("%s/api/users/%s", strings.TrimRight(base, "/"), handle)
}

// FirstListingPageURL builds the first listings page for a resolved user,
// sorted sold-ascending so unsold items are not starved by sold-item churn.
func FirstListingPageURL(base, userID string) string {
	return fmt.Sprintf("%s/api/user/%s/tises?sort=sold.asc", strings.TrimRight(base, "/"), userID)
}

// ResolveCursor resolves a possibly-relative next cursor against the API origin.
func ResolveCursor(base, next string) string {
	if strings.HasPrefix(next, "/") {
		return strings.TrimRight(base, "/") + next
	}
	return next
}

// ListingURL builds the canonical listing URL from its short code.
func ListingURL(site, code string) string {
	return fmt.Sprintf("%s/t/%s", strings.TrimRight(site, "/"), code)
}

// ProfileURL builds the public profile URL for a handle.
func ProfileURL(site, handle string) string {
	return fmt.Sprintf("%s/profiles/%s", strings.TrimRight(site, "/"), handle)
}

// HandleFromProfileURL extracts the profile handle from a profile URL.
func HandleFromProfileURL(profileURL string) string {
	trimmed := strings.TrimRight(profileURL, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}
