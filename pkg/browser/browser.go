// Package browser provides the alternate listing-discovery source for
// profiles that require JavaScript execution. It renders the profile page in
// headless Chrome and extracts the same raw listing records the API serves,
// so everything downstream of discovery is shared with the API path.
package browser

import (
	"context"
	"encoding/json"
	"os/exec"
	"time"

	"github.com/chromedp/chromedp"

	errs "tisescraper/pkg/errors"
	"tisescraper/pkg/logger"
	"tisescraper/pkg/tise"
)

// Tise embeds the rendered page's state as JSON; this pulls the profile's
// listing records out of it.
const extractListingsJS = `(() => {
	const el = document.querySelector('#__NEXT_DATA__');
	if (!el) return '[]';
	try {
		const data = JSON.parse(el.textContent);
		const tises = data.props && data.props.pageProps && data.props.pageProps.tises;
		return JSON.stringify(tises || []);
	} catch (e) {
		return '[]';
	}
})()`

// Source discovers listings by rendering profile pages in headless Chrome.
type Source struct {
	siteURL   string
	timeout   time.Duration
	userAgent string
	logger    logger.Logger
}

// NewSource creates a browser-rendered discovery source.
func NewSource(siteURL string, timeout time.Duration, userAgent string, log logger.Logger) *Source {
	if log == nil {
		log = logger.GetLogger()
	}
	if siteURL == "" {
		siteURL = tise.BaseURL
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Source{
		siteURL:   siteURL,
		timeout:   timeout,
		userAgent: userAgent,
		logger:    log,
	}
}

// Discover renders the profile page and returns its raw listing records. It
// satisfies the same discovery contract as the API client.
func (s *Source) Discover(ctx context.Context, handle string) ([]tise.RawListing, error) {
	profileURL := tise.ProfileURL(s.siteURL, handle)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if s.userAgent != "" {
		opts = append(opts, chromedp.UserAgent(s.userAgent))
	}
	if bin := findChromeBinary(); bin != "" {
		opts = append(opts, chromedp.ExecPath(bin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelBrowser()

	browserCtx, cancelTimeout := context.WithTimeout(browserCtx, s.timeout)
	defer cancelTimeout()

	s.logger.DebugWithFields("rendering profile page", map[string]interface{}{
		"handle": handle,
		"url":    profileURL,
	})

	var payload string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(profileURL),
		chromedp.WaitReady("body"),
		chromedp.Evaluate(extractListingsJS, &payload),
	)
	if err != nil {
		return nil, errs.New(errs.ErrorTypeNetwork, 0, "browser rendering failed for %s: %v", profileURL, err)
	}

	var records []json.RawMessage
	if err := json.Unmarshal([]byte(payload), &records); err != nil {
		return nil, errs.New(errs.ErrorTypeMalformed, 0, "unexpected embedded state shape: %v", err)
	}

	listings := make([]tise.RawListing, 0, len(records))
	for _, raw := range records {
		var record tise.RawListing
		if err := json.Unmarshal(raw, &record); err != nil {
			s.logger.WarnWithFields("skipping malformed rendered listing record", map[string]interface{}{
				"handle": handle,
				"error":  err.Error(),
			})
			continue
		}
		record.Raw = raw
		listings = append(listings, record)
	}

	s.logger.InfoWithFields("browser discovery finished", map[string]interface{}{
		"handle":   handle,
		"listings": len(listings),
	})
	return listings, nil
}

// findChromeBinary locates a usable Chrome or Chromium binary.
func findChromeBinary() string {
	candidates := []string{
		"google-chrome",
		"google-chrome-stable",
		"chromium",
		"chromium-browser",
	}
	for _, name := range candidates {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	return ""
}
