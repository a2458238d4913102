package downloader

import (
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"tisescraper/pkg/logger"
)

// CleanupOld removes whole per-profile download folders whose modification
// time is older than maxAge. Retention operates on folders, never on
// individual artifacts. Returns the number of folders removed.
func CleanupOld(root string, maxAge time.Duration, log logger.Logger) (int, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	cutoff := time.Now().Add(-maxAge)

	entries, err := os.ReadDir(root)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			dir := filepath.Join(root, entry.Name())
			if err := os.RemoveAll(dir); err != nil {
				log.WithError(err).WithField("dir", dir).Warn("failed to remove old download folder")
				continue
			}
			removed++
			log.InfoWithFields("removed old download folder", map[string]interface{}{
				"dir": dir,
			})
		}
	}
	return removed, nil
}

// DiskUsage reports the file count and total size under the downloads root.
func DiskUsage(root string) (files int, bytes int64, err error) {
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		files++
		bytes += info.Size()
		return nil
	})
	if os.IsNotExist(err) {
		return 0, 0, nil
	}
	return files, bytes, err
}
