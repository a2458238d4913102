package downloader

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestShortID(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{
			name: "uuid segment before final component",
			url:  "https://cdn.tise.com/images/4c2bc7f2-1bce-490e-95b2-ef040a840e6b/perfect-jeans",
			want: "4c2bc7f2",
		},
		{
			name: "plain long segment",
			url:  "https://cdn.tise.com/abc12345wide/orig.jpg",
			want: "abc12345",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShortID(tt.url))
		})
	}
}

func TestShortIDHashFallback(t *testing.T) {
	// One path segment, nothing before the final component to take.
	assert.Equal(t, "43e54580", ShortID("https://cdn.tise.com/orig.jpg"))
	// Short penultimate segment also falls back to the content hash.
	assert.Equal(t, "317076b0", ShortID("https://cdn.tise.com/ab/orig.jpg"))
}

func TestSanitizeHandle(t *testing.T) {
	assert.Equal(t, "alice", SanitizeHandle("alice"))
	assert.Equal(t, "a_b_c", SanitizeHandle(`a/b\c`))
	assert.Equal(t, "shop_2_hand", SanitizeHandle("shop?2*hand"))
	assert.Equal(t, "unknown_profile", SanitizeHandle(""))

	long := SanitizeHandle("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	assert.Len(t, long, 50)
}

func TestSanitizeHandleTruncatesOnRuneBoundary(t *testing.T) {
	// 60 two-byte runes; a byte-level cap would cut one in half.
	handle := strings.Repeat("ø", 60)
	sanitized := SanitizeHandle(handle)
	assert.True(t, utf8.ValidString(sanitized))
	assert.Equal(t, 50, utf8.RuneCountInString(sanitized))
	assert.Equal(t, strings.Repeat("ø", 50), sanitized)
}

func TestExtFor(t *testing.T) {
	tests := []struct {
		contentType string
		url         string
		want        string
	}{
		{"image/jpeg", "https://cdn.tise.com/x/a", ".jpg"},
		{"image/png", "https://cdn.tise.com/x/a", ".png"},
		{"image/gif", "https://cdn.tise.com/x/a", ".gif"},
		// WEBP sources are re-encoded, so the extension is already jpg.
		{"image/webp", "https://cdn.tise.com/x/a", ".jpg"},
		{"", "https://cdn.tise.com/x/a.png", ".png"},
		{"", "https://cdn.tise.com/x/a.webp", ".jpg"},
		{"application/octet-stream", "https://cdn.tise.com/x/a", ".jpg"},
		{"", "https://cdn.tise.com/x/a", ".jpg"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, extFor(tt.contentType, tt.url), "contentType=%q url=%q", tt.contentType, tt.url)
	}
}
