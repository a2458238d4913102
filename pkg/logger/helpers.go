package logger

// LogRequest logs an HTTP request outcome at a level matching its status class.
func LogRequest(url string, statusCode int, durationMs float64) {
	fields := map[string]interface{}{
		"url":         url,
		"status_code": statusCode,
		"duration_ms": durationMs,
	}
	switch {
	case statusCode >= 200 && statusCode < 300:
		GetLogger().DebugWithFields("HTTP request completed", fields)
	case statusCode >= 400 && statusCode < 500:
		GetLogger().WarnWithFields("HTTP request client error", fields)
	case statusCode >= 500:
		GetLogger().ErrorWithFields("HTTP request server error", fields)
	}
}

// LogListingAdmitted logs a listing passing the deduplication gate.
func LogListingAdmitted(profileURL, listingURL string, isNew bool) {
	fields := map[string]interface{}{
		"profile_url": profileURL,
		"listing_url": listingURL,
		"new":         isNew,
	}
	if isNew {
		GetLogger().InfoWithFields("new listing admitted", fields)
	} else {
		GetLogger().DebugWithFields("listing already known", fields)
	}
}

// LogMaterialized logs the outcome of materializing one listing.
func LogMaterialized(listingURL string, artifacts, imageFailures int) {
	fields := map[string]interface{}{
		"listing_url":    listingURL,
		"artifacts":      artifacts,
		"image_failures": imageFailures,
	}
	if imageFailures > 0 {
		GetLogger().WarnWithFields("listing materialized partially", fields)
	} else {
		GetLogger().InfoWithFields("listing materialized", fields)
	}
}

// LogCycle logs the completion of a full profile check cycle.
func LogCycle(profilesChecked, newListings int) {
	GetLogger().InfoWithFields("profile check cycle completed", map[string]interface{}{
		"profiles_checked": profilesChecked,
		"new_listings":     newListings,
	})
}
