package downloader

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"path"
	"strings"
)

// ShortID derives a stable 8-character identifier from an image source URL.
// Tise CDN URLs carry a UUID as the segment before the final path component
// (.../4c2bc7f2-1bce-490e-95b2-ef040a840e6b/perfect-jeans); the first eight
// characters of that segment are unique enough and re-run stable. URLs
// without such a segment fall back to a content hash of the URL itself.
func ShortID(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil {
		segments := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(segments) >= 2 {
			seg := segments[len(segments)-2]
			if len(seg) >= 8 {
				return seg[:8]
			}
		}
	}
	sum := sha256.Sum256([]byte(rawURL))
	return hex.EncodeToString(sum[:])[:8]
}

// SanitizeHandle makes a profile handle safe to use as a path segment:
// reserved filesystem characters are replaced and the length is capped.
func SanitizeHandle(handle string) string {
	const invalid = `<>:"/\|?*`
	sanitized := strings.Map(func(r rune) rune {
		if strings.ContainsRune(invalid, r) {
			return '_'
		}
		return r
	}, handle)
	if sanitized == "" {
		sanitized = "unknown_profile"
	}
	// Truncate on a rune boundary so non-ASCII handles never yield an
	// invalid-UTF-8 path segment.
	if runes := []rune(sanitized); len(runes) > 50 {
		sanitized = string(runes[:50])
	}
	return sanitized
}

// extFor determines the output extension from the declared content type,
// falling back to the URL's path suffix. WEBP always maps to .jpg because
// WEBP sources are converted; unrecognized types default to .jpg.
func extFor(contentType, rawURL string) string {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "jpeg"), strings.Contains(ct, "jpg"):
		return ".jpg"
	case strings.Contains(ct, "png"):
		return ".png"
	case strings.Contains(ct, "gif"):
		return ".gif"
	case strings.Contains(ct, "webp"):
		return ".jpg"
	}

	ext := ""
	if u, err := url.Parse(rawURL); err == nil {
		ext = strings.ToLower(path.Ext(u.Path))
	}
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif":
		return ext
	case ".webp":
		return ".jpg"
	default:
		return ".jpg"
	}
}
