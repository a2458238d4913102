// Package tise implements the Tise API client: the HTTP wrapper with bounded
// retry, the identity resolver, and the cursor-following pagination walker.
package tise

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	errs "tisescraper/pkg/errors"
	"tisescraper/pkg/logger"
	"tisescraper/pkg/ratelimit"
	"tisescraper/pkg/retry"
)

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	MaxPages   int
	UserAgents []string
	Headers    map[string]string
	Backoff    retry.BackoffStrategy
	Throttle   ratelimit.Limiter
}

// Client talks to the Tise API. Headers are fixed at construction; the only
// per-request variation is the rotated User-Agent.
type Client struct {
	httpClient *http.Client
	baseURL    string
	maxRetries int
	maxPages   int
	userAgents []string
	headers    map[string]string
	backoff    retry.BackoffStrategy
	throttle   ratelimit.Limiter
	logger     logger.Logger

	attempts atomic.Uint64
}

// NewClient creates a Tise API client.
func NewClient(opts Options, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = BaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 10
	}
	if len(opts.UserAgents) == 0 {
		opts.UserAgents = []string{
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		}
	}
	if opts.Backoff == nil {
		opts.Backoff = retry.DefaultExponentialBackoff()
	}
	if opts.Throttle == nil {
		opts.Throttle = ratelimit.NewThrottle(2*time.Second, time.Second)
	}

	headers := make(map[string]string, len(opts.Headers))
	for k, v := range opts.Headers {
		headers[k] = v
	}

	return &Client{
		httpClient: &http.Client{Timeout: opts.Timeout},
		baseURL:    opts.BaseURL,
		maxRetries: opts.MaxRetries,
		maxPages:   opts.MaxPages,
		userAgents: opts.UserAgents,
		headers:    headers,
		backoff:    opts.Backoff,
		throttle:   opts.Throttle,
		logger:     log,
	}
}

// APIBase returns the configured API origin.
func (c *Client) APIBase() string {
	return c.baseURL
}

// nextUserAgent rotates through the configured pool, one step per attempt.
func (c *Client) nextUserAgent() string {
	n := c.attempts.Add(1)
	return c.userAgents[int(n-1)%len(c.userAgents)]
}

// doOnce performs a single GET attempt and maps failures to typed errors.
func (c *Client) doOnce(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", errs.New(errs.ErrorTypeUnknown, 0, "failed to create request: %v", err)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("User-Agent", c.nextUserAgent())

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		return nil, "", errs.New(errs.ErrorTypeNetwork, 0, "network error: %v", err)
	}
	defer resp.Body.Close()

	logger.LogRequest(url, resp.StatusCode, float64(time.Since(start).Milliseconds()))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", statusError(resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", errs.New(errs.ErrorTypeNetwork, resp.StatusCode, "failed to read response body: %v", err)
	}
	return body, resp.Header.Get("Content-Type"), nil
}

func statusError(code int) *errs.Error {
	switch {
	case code == http.StatusTooManyRequests:
		return errs.New(errs.ErrorTypeRateLimit, code, "rate limit exceeded")
	case code == http.StatusNotFound:
		return errs.New(errs.ErrorTypeNotFound, code, "resource not found")
	case code >= 500:
		return errs.New(errs.ErrorTypeServerError, code, "server error")
	default:
		return errs.New(errs.ErrorTypeUnknown, code, "unexpected status code: %d", code)
	}
}

// Fetch performs a GET with bounded retries. Any transport failure or non-2xx
// status is retried until the attempt budget is spent; exhausting it surfaces
// the last error as a soft failure for this single call. A successful fetch is
// followed by the courtesy delay.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	var body []byte
	var contentType string

	err := retry.Do(func() error {
		var err error
		body, contentType, err = c.doOnce(ctx, url)
		return err
	}, &retry.Config{
		MaxAttempts: c.maxRetries,
		Backoff:     c.backoff,
		// The request path retries every non-2xx outcome, not just the ones
		// the taxonomy marks retryable. Context cancellation still stops it.
		RetryIf: func(err error) bool {
			return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		},
		Context: ctx,
		Logger:  c.logger,
	})
	if err != nil {
		return nil, "", err
	}

	if err := c.throttle.Wait(ctx); err != nil {
		// The data is already in hand; a cancelled courtesy wait is not a
		// fetch failure.
		return body, contentType, nil
	}
	return body, contentType, nil
}

// GetJSON fetches url and decodes the body into target. A body that does not
// match the expected shape is a malformed-response error.
func (c *Client) GetJSON(ctx context.Context, url string, target interface{}) error {
	body, _, err := c.Fetch(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, target); err != nil {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          url,
			"error":        err.Error(),
			"body_preview": preview,
		})
		return errs.New(errs.ErrorTypeMalformed, 0, "failed to parse JSON: %v", err)
	}
	return nil
}

// Download fetches a binary resource, returning the body and its declared
// content type.
func (c *Client) Download(ctx context.Context, url string) ([]byte, string, error) {
	return c.Fetch(ctx, url)
}

// ResolveUser maps a profile handle to the API's internal user identifier.
// Both a rejected lookup (HTTP 4xx) and a well-formed envelope missing the
// identifier come back as a not-found error; the two cases log differently.
func (c *Client) ResolveUser(ctx context.Context, handle string) (string, error) {
	url := UserLookupURL(c.baseURL, handle)

	var envelope UserLookupResult
	if err := c.GetJSON(ctx, url, &envelope); err != nil {
		var apiErr *errs.Error
		if errors.As(err, &apiErr) && apiErr.Code >= 400 && apiErr.Code < 500 {
			c.logger.WarnWithFields("user lookup rejected by API", map[string]interface{}{
				"handle": handle,
				"status": apiErr.Code,
			})
			return "", errs.New(errs.ErrorTypeNotFound, apiErr.Code, "no user found for handle %q", handle)
		}
		return "", err
	}

	if envelope.Result.ID == "" {
		c.logger.WarnWithFields("user identifier missing from lookup envelope", map[string]interface{}{
			"handle": handle,
		})
		return "", errs.New(errs.ErrorTypeNotFound, 0, "no user identifier in envelope for handle %q", handle)
	}

	c.logger.DebugWithFields("resolved user handle", map[string]interface{}{
		"handle":  handle,
		"user_id": envelope.Result.ID,
	})
	return envelope.Result.ID, nil
}

// WalkListings follows the listings cursor chain for a resolved user and
// returns the raw records in page-arrival order. The walk stops when the
// cursor runs out or the page ceiling is reached; a failed page truncates the
// walk and returns everything gathered so far.
func (c *Client) WalkListings(ctx context.Context, userID string) ([]RawListing, error) {
	var all []RawListing
	next := FirstListingPageURL(c.baseURL, userID)

	for page := 1; ; page++ {
		select {
		case <-ctx.Done():
			return all, ctx.Err()
		default:
		}

		var envelope ListingPage
		if err := c.GetJSON(ctx, next, &envelope); err != nil {
			c.logger.WarnWithFields("listing walk truncated by page failure", map[string]interface{}{
				"user_id": userID,
				"page":    page,
				"error":   err.Error(),
			})
			return all, nil
		}

		for _, raw := range envelope.Results {
			var record RawListing
			if err := json.Unmarshal(raw, &record); err != nil {
				c.logger.WarnWithFields("skipping malformed listing record", map[string]interface{}{
					"user_id": userID,
					"page":    page,
					"error":   err.Error(),
				})
				continue
			}
			record.Raw = raw
			all = append(all, record)
		}

		c.logger.DebugWithFields("fetched listing page", map[string]interface{}{
			"user_id": userID,
			"page":    page,
			"results": len(envelope.Results),
		})

		if envelope.Next == nil || *envelope.Next == "" {
			return all, nil
		}
		if page >= c.maxPages {
			// A live cursor at the ceiling usually means a malformed or
			// cyclic chain upstream.
			c.logger.WarnWithFields("page ceiling reached with cursor still present", map[string]interface{}{
				"user_id":   userID,
				"max_pages": c.maxPages,
			})
			return all, nil
		}
		next = ResolveCursor(c.baseURL, *envelope.Next)
	}
}

// Discover resolves a handle and walks its listings. It satisfies the
// scraper discovery contract.
func (c *Client) Discover(ctx context.Context, handle string) ([]RawListing, error) {
	userID, err := c.ResolveUser(ctx, handle)
	if err != nil {
		return nil, err
	}
	return c.WalkListings(ctx, userID)
}
