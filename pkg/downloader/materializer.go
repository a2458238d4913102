// Package downloader materializes admitted listings to disk: it fetches every
// image, normalizes format and size, writes metadata, and reports the
// resulting artifact set.
package downloader

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tisescraper/pkg/listing"
	"tisescraper/pkg/logger"
	"tisescraper/pkg/tise"
)

// Fetcher is the single capability the materializer needs from the HTTP
// layer. *tise.Client satisfies it.
type Fetcher interface {
	Download(ctx context.Context, url string) (body []byte, contentType string, err error)
}

// Materializer writes a listing's artifacts under a per-profile folder.
type Materializer struct {
	fetcher Fetcher
	root    string
	maxEdge int
	quality int
	logger  logger.Logger
}

// NewMaterializer creates a materializer rooted at downloadsRoot.
func NewMaterializer(fetcher Fetcher, downloadsRoot string, maxEdge, jpegQuality int, log logger.Logger) (*Materializer, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	if err := os.MkdirAll(downloadsRoot, 0755); err != nil {
		return nil, fmt.Errorf("failed to create downloads root: %w", err)
	}
	if maxEdge <= 0 {
		maxEdge = 2000
	}
	if jpegQuality <= 0 {
		jpegQuality = 85
	}
	return &Materializer{
		fetcher: fetcher,
		root:    downloadsRoot,
		maxEdge: maxEdge,
		quality: jpegQuality,
		logger:  log,
	}, nil
}

// Root returns the downloads root directory.
func (m *Materializer) Root() string {
	return m.root
}

// metadataDoc is the per-listing metadata document written beside the images.
type metadataDoc struct {
	ListingURL  string    `json:"listing_url"`
	ProfileURL  string    `json:"profile_url"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Price       string    `json:"price"`
	ImageCount  int       `json:"image_count"`
	ScrapedAt   time.Time `json:"scraped_at"`
}

// Materialize fetches and persists every artifact a listing owns and returns
// the local paths that succeeded. Individual image failures are dropped, not
// fatal: the caller still marks the listing downloaded with whatever
// succeeded. A listing whose every image fails yields no artifacts at all,
// leaving it pending for a later retry.
func (m *Materializer) Materialize(ctx context.Context, l *listing.Listing) ([]string, error) {
	handle := SanitizeHandle(tise.HandleFromProfileURL(l.ProfileURL))
	profileDir := filepath.Join(m.root, handle)
	imagesDir := filepath.Join(profileDir, "images")
	if err := os.MkdirAll(imagesDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create images directory: %w", err)
	}

	var artifacts []string
	failures := 0
	for i, imgURL := range l.ImageURLs {
		select {
		case <-ctx.Done():
			return artifacts, ctx.Err()
		default:
		}

		path, err := m.fetchImage(ctx, imgURL, imagesDir, i+1)
		if err != nil {
			failures++
			m.logger.WarnWithFields("image dropped from listing", map[string]interface{}{
				"listing_url": l.URL,
				"image_url":   imgURL,
				"error":       err.Error(),
			})
			continue
		}
		artifacts = append(artifacts, path)
	}

	if len(l.ImageURLs) > 0 && len(artifacts) == 0 {
		// Nothing usable was produced; skip the metadata document too so the
		// listing stays pending and gets retried.
		logger.LogMaterialized(l.URL, 0, failures)
		return nil, nil
	}

	metaPath, err := m.writeMetadata(l, profileDir, len(artifacts))
	if err != nil {
		m.logger.WithError(err).WithField("listing_url", l.URL).Error("failed to write listing metadata")
	} else {
		artifacts = append(artifacts, metaPath)
	}

	logger.LogMaterialized(l.URL, len(artifacts), failures)
	return artifacts, nil
}

// fetchImage downloads, normalizes, and atomically places one image. The
// filename is {sequence}_{shortid}{ext}: stable across re-runs with no
// counter file, and collision-free within a listing.
func (m *Materializer) fetchImage(ctx context.Context, imgURL, imagesDir string, seq int) (string, error) {
	data, contentType, err := m.fetcher.Download(ctx, imgURL)
	if err != nil {
		return "", err
	}

	ext := extFor(contentType, imgURL)
	normalized, err := normalizeImage(data, ext, m.maxEdge, m.quality)
	if err != nil {
		return "", err
	}

	filename := fmt.Sprintf("%d_%s%s", seq, ShortID(imgURL), ext)
	path := filepath.Join(imagesDir, filename)
	if err := writeFileAtomic(path, normalized); err != nil {
		return "", err
	}

	m.logger.DebugWithFields("image saved", map[string]interface{}{
		"path": path,
		"size": len(normalized),
	})
	return path, nil
}

func (m *Materializer) writeMetadata(l *listing.Listing, profileDir string, imageCount int) (string, error) {
	doc := metadataDoc{
		ListingURL:  l.URL,
		ProfileURL:  l.ProfileURL,
		Title:       l.Title,
		Description: l.Description,
		Price:       l.Price,
		ImageCount:  imageCount,
		ScrapedAt:   l.ScrapedAt,
	}
	encoded, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(profileDir, "metadata.json")
	if err := writeFileAtomic(path, encoded); err != nil {
		return "", err
	}
	return path, nil
}

// writeFileAtomic writes via a temp file and rename so a crash mid-write
// never leaves a truncated artifact at the final path.
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}
