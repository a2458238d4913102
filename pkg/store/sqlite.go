package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"tisescraper/pkg/listing"
)

// DB is the SQLite implementation of Store.
type DB struct {
	conn *sql.DB
}

// Open opens or creates the SQLite database at the given path. Failure here
// is the one condition that aborts startup.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// WAL keeps readers unblocked during the cycle's writes.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}
	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS listings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		listing_url TEXT UNIQUE NOT NULL,
		profile_url TEXT NOT NULL,
		title TEXT,
		description TEXT,
		price TEXT,
		price_minor INTEGER,
		image_urls TEXT,
		created_at TEXT,
		scraped_at TIMESTAMP NOT NULL,
		sold INTEGER DEFAULT 0,
		category TEXT,
		condition TEXT,
		size TEXT,
		location TEXT,
		colors TEXT,
		raw TEXT,
		downloaded INTEGER DEFAULT 0,
		artifact_paths TEXT
	);
	CREATE TABLE IF NOT EXISTS profiles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		profile_url TEXT UNIQUE NOT NULL,
		handle TEXT,
		last_checked TIMESTAMP,
		total_found INTEGER DEFAULT 0,
		active INTEGER DEFAULT 1
	);
	CREATE TABLE IF NOT EXISTS scrape_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ts TIMESTAMP NOT NULL,
		profile_url TEXT,
		action TEXT,
		status TEXT,
		message TEXT
	);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// ProfileExists reports whether a profile row exists for the URL.
func (db *DB) ProfileExists(url string) (bool, error) {
	var one int
	err := db.conn.QueryRow("SELECT 1 FROM profiles WHERE profile_url = ?", url).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

// AddProfile inserts a profile if absent.
func (db *DB) AddProfile(url, handle string) (bool, error) {
	res, err := db.conn.Exec(`
		INSERT INTO profiles (profile_url, handle, last_checked)
		VALUES (?, ?, ?)
		ON CONFLICT(profile_url) DO NOTHING`,
		url, handle, time.Now())
	if err != nil {
		return false, err
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

// GetActiveProfiles returns all active profiles in insertion order.
func (db *DB) GetActiveProfiles() ([]Profile, error) {
	rows, err := db.conn.Query(`
		SELECT profile_url, handle, last_checked, total_found, active
		FROM profiles WHERE active = 1 ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []Profile
	for rows.Next() {
		var p Profile
		var lastChecked sql.NullTime
		var handle sql.NullString
		if err := rows.Scan(&p.URL, &handle, &lastChecked, &p.TotalFound, &p.Active); err != nil {
			return nil, err
		}
		if handle.Valid {
			p.Handle = handle.String
		}
		if lastChecked.Valid {
			p.LastChecked = lastChecked.Time
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// UpdateProfileChecked advances last_checked and the cumulative seen counter.
func (db *DB) UpdateProfileChecked(url string, seenDelta int) error {
	_, err := db.conn.Exec(`
		UPDATE profiles
		SET last_checked = ?, total_found = total_found + ?
		WHERE profile_url = ?`,
		time.Now(), seenDelta, url)
	return err
}

// ListingExists reports whether a listing row exists for the URL.
func (db *DB) ListingExists(url string) (bool, error) {
	var one int
	err := db.conn.QueryRow("SELECT 1 FROM listings WHERE listing_url = ?", url).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

// AddListing inserts a listing if its URL is absent. The unique constraint is
// the compare-and-insert: RowsAffected tells whether this observation was new.
func (db *DB) AddListing(l *listing.Listing) (bool, error) {
	imageURLs, err := json.Marshal(l.ImageURLs)
	if err != nil {
		return false, err
	}
	res, err := db.conn.Exec(`
		INSERT INTO listings
		(listing_url, profile_url, title, description, price, price_minor,
		 image_urls, created_at, scraped_at, sold, category, condition, size,
		 location, colors, raw)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(listing_url) DO NOTHING`,
		l.URL, l.ProfileURL, l.Title, l.Description, l.Price, l.PriceMinor,
		string(imageURLs), l.CreatedAt, l.ScrapedAt, boolToInt(l.Sold),
		l.Category, l.Condition, l.Size, l.Location, l.Colors, string(l.Raw))
	if err != nil {
		return false, err
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

// MarkListingDownloaded sets the downloaded flag and artifact paths.
func (db *DB) MarkListingDownloaded(url string, paths []string) error {
	encoded, err := json.Marshal(paths)
	if err != nil {
		return err
	}
	_, err = db.conn.Exec(`
		UPDATE listings SET downloaded = 1, artifact_paths = ?
		WHERE listing_url = ?`,
		string(encoded), url)
	return err
}

// GetListing returns one listing row by URL, or nil when absent.
func (db *DB) GetListing(url string) (*listing.Listing, error) {
	row := db.conn.QueryRow(`
		SELECT listing_url, profile_url, title, description, price, price_minor,
		       image_urls, created_at, scraped_at, sold, category, condition,
		       size, location, colors, raw, downloaded, artifact_paths
		FROM listings WHERE listing_url = ?`, url)

	var l listing.Listing
	var imageURLs, raw string
	var artifactPaths sql.NullString
	var sold, downloaded int
	err := row.Scan(&l.URL, &l.ProfileURL, &l.Title, &l.Description, &l.Price,
		&l.PriceMinor, &imageURLs, &l.CreatedAt, &l.ScrapedAt, &sold,
		&l.Category, &l.Condition, &l.Size, &l.Location, &l.Colors, &raw,
		&downloaded, &artifactPaths)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	l.Sold = sold != 0
	l.Downloaded = downloaded != 0
	l.Raw = json.RawMessage(raw)
	if err := json.Unmarshal([]byte(imageURLs), &l.ImageURLs); err != nil {
		return nil, err
	}
	if artifactPaths.Valid && artifactPaths.String != "" {
		if err := json.Unmarshal([]byte(artifactPaths.String), &l.ArtifactPaths); err != nil {
			return nil, err
		}
	}
	return &l, nil
}

// GetPendingListings returns admitted listings not yet downloaded, oldest
// first. A crash between admit and materialize leaves rows here; the next run
// picks them up.
func (db *DB) GetPendingListings() ([]listing.Listing, error) {
	rows, err := db.conn.Query(`
		SELECT listing_url FROM listings WHERE downloaded = 0 ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pending []listing.Listing
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, err
		}
		l, err := db.GetListing(url)
		if err != nil {
			return nil, err
		}
		if l != nil {
			pending = append(pending, *l)
		}
	}
	return pending, rows.Err()
}

// GetStatistics summarizes stored state.
func (db *DB) GetStatistics() (*Statistics, error) {
	var s Statistics
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM listings").Scan(&s.TotalListings); err != nil {
		return nil, err
	}
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM listings WHERE downloaded = 1").Scan(&s.DownloadedListings); err != nil {
		return nil, err
	}
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM profiles WHERE active = 1").Scan(&s.ActiveProfiles); err != nil {
		return nil, err
	}
	cutoff := time.Now().Add(-24 * time.Hour)
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM listings WHERE scraped_at > ?", cutoff).Scan(&s.RecentListings); err != nil {
		return nil, err
	}
	if s.TotalListings > 0 {
		s.DownloadPercent = float64(s.DownloadedListings) / float64(s.TotalListings) * 100
	}
	return &s, nil
}

// LogAction records one scrape action row.
func (db *DB) LogAction(profileURL, action, status, message string) error {
	_, err := db.conn.Exec(`
		INSERT INTO scrape_log (ts, profile_url, action, status, message)
		VALUES (?, ?, ?, ?, ?)`,
		time.Now(), profileURL, action, status, message)
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
