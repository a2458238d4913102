// Package scraper implements the incremental synchronization engine: it
// discovers listings for a profile, normalizes them, admits new ones through
// the deduplication gate, and hands them to the materializer.
package scraper

import (
	"context"
	"errors"

	"tisescraper/pkg/downloader"
	errs "tisescraper/pkg/errors"
	"tisescraper/pkg/listing"
	"tisescraper/pkg/logger"
	"tisescraper/pkg/store"
	"tisescraper/pkg/tise"
)

// Engine drives one profile through the full sync pipeline. It is strictly
// sequential: one listing is fully processed before the next begins.
type Engine struct {
	source       Source
	store        store.Store
	materializer *downloader.Materializer
	siteURL      string
	logger       logger.Logger
}

// NewEngine creates a sync engine.
func NewEngine(source Source, st store.Store, mat *downloader.Materializer, siteURL string, log logger.Logger) *Engine {
	if log == nil {
		log = logger.GetLogger()
	}
	if siteURL == "" {
		siteURL = tise.BaseURL
	}
	return &Engine{
		source:       source,
		store:        st,
		materializer: mat,
		siteURL:      siteURL,
		logger:       log,
	}
}

// CheckProfile runs one sync cycle for a profile: discover, normalize, admit,
// materialize. It returns the number of newly admitted listings. No failure
// on one listing aborts the rest; last-checked advances regardless of outcome.
func (e *Engine) CheckProfile(ctx context.Context, profileURL string) (int, error) {
	handle := tise.HandleFromProfileURL(profileURL)
	newCount := 0

	defer func() {
		if err := e.store.UpdateProfileChecked(profileURL, newCount); err != nil {
			e.logger.WithError(err).WithField("profile_url", profileURL).Error("failed to update profile last-checked")
		}
	}()

	raws, err := e.source.Discover(ctx, handle)
	if err != nil {
		var apiErr *errs.Error
		if errors.As(err, &apiErr) && apiErr.Type == errs.ErrorTypeNotFound {
			// Terminal for this profile's cycle, not for the process.
			e.logAction(profileURL, "resolve", "not_found", err.Error())
			return 0, err
		}
		e.logAction(profileURL, "discover", "error", err.Error())
		return 0, err
	}

	for i := range raws {
		select {
		case <-ctx.Done():
			return newCount, ctx.Err()
		default:
		}

		l, ok := listing.Normalize(&raws[i], profileURL, e.siteURL)
		if !ok {
			e.logger.DebugWithFields("skipping listing record without identifier", map[string]interface{}{
				"profile_url": profileURL,
			})
			continue
		}

		inserted, err := e.store.AddListing(l)
		if err != nil {
			// The write is abandoned; the cycle continues.
			e.logger.WithError(err).WithField("listing_url", l.URL).Error("failed to persist listing")
			e.logAction(profileURL, "admit", "error", err.Error())
			continue
		}
		logger.LogListingAdmitted(profileURL, l.URL, inserted)
		if !inserted {
			continue
		}
		newCount++
		e.logAction(profileURL, "discover", "new", l.URL)

		if _, err := e.materialize(ctx, l); err != nil {
			if ctx.Err() != nil {
				return newCount, ctx.Err()
			}
		}
	}

	e.logger.InfoWithFields("profile cycle finished", map[string]interface{}{
		"profile_url":  profileURL,
		"listings":     len(raws),
		"new_listings": newCount,
	})
	return newCount, nil
}

// materialize downloads a listing's artifacts and records the downloaded
// transition. Partial artifact sets still count as downloaded; a listing with
// zero artifacts stays pending so a later run retries it. The boolean reports
// whether the listing was actually marked downloaded.
func (e *Engine) materialize(ctx context.Context, l *listing.Listing) (bool, error) {
	artifacts, err := e.materializer.Materialize(ctx, l)
	if err != nil {
		e.logger.WithError(err).WithField("listing_url", l.URL).Error("materialization failed")
		return false, err
	}
	if len(artifacts) == 0 {
		e.logger.WarnWithFields("listing yielded no artifacts, left pending", map[string]interface{}{
			"listing_url": l.URL,
		})
		e.logAction(l.ProfileURL, "materialize", "pending", l.URL)
		return false, nil
	}
	if err := e.store.MarkListingDownloaded(l.URL, artifacts); err != nil {
		e.logger.WithError(err).WithField("listing_url", l.URL).Error("failed to mark listing downloaded")
		return false, err
	}
	e.logAction(l.ProfileURL, "materialize", "ok", l.URL)
	return true, nil
}

// RetryPending re-materializes listings admitted by an earlier run that never
// produced artifacts, e.g. after a crash mid-cycle or an image-host outage.
// It returns the number of listings that transitioned to downloaded.
func (e *Engine) RetryPending(ctx context.Context) (int, error) {
	pending, err := e.store.GetPendingListings()
	if err != nil {
		return 0, err
	}
	recovered := 0
	for i := range pending {
		select {
		case <-ctx.Done():
			return recovered, ctx.Err()
		default:
		}
		l := pending[i]
		done, err := e.materialize(ctx, &l)
		if err != nil {
			continue
		}
		if done {
			recovered++
		}
	}
	return recovered, nil
}

func (e *Engine) logAction(profileURL, action, status, message string) {
	if err := e.store.LogAction(profileURL, action, status, message); err != nil {
		e.logger.WithError(err).Debug("failed to write scrape log row")
	}
}
