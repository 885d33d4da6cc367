package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"maps-scraper/config"
	"maps-scraper/models"
	"maps-scraper/scraper"
)

// Browser is an Engine that can also search and be released.
type Browser interface {
	Engine
	Search(ctx context.Context, query string) error
	Release()
}

// AcquireFunc opens an exclusively-owned browser session.
type AcquireFunc func(ctx context.Context, cfg config.Config, log *zap.SugaredLogger) (Browser, error)

// AcquireChrome is the production AcquireFunc.
func AcquireChrome(ctx context.Context, cfg config.Config, log *zap.SugaredLogger) (Browser, error) {
	s, err := scraper.Acquire(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Runner executes batches. The zero value is not usable; use NewRunner.
type Runner struct {
	Config  config.Config
	Log     *zap.SugaredLogger
	Acquire AcquireFunc
}

// NewRunner returns a Runner backed by Chrome.
func NewRunner(cfg config.Config, log *zap.SugaredLogger) *Runner {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Runner{Config: cfg, Log: log, Acquire: AcquireChrome}
}

// RunBatch searches query and extracts up to target listings. The browser
// session is released on every exit path. A stopped run or a non-positive
// target returns without acquiring a session.
func (r *Runner) RunBatch(ctx context.Context, query string, target int, progress models.ProgressFunc, cancel *CancelToken) models.BatchOutcome {
	batchID := uuid.NewString()
	log := r.Log.With("query", query, "batch", batchID)
	out := models.BatchOutcome{BatchID: batchID, Query: query, Listings: []models.Listing{}}

	emit := func(stage models.Stage, status string) {
		if progress != nil {
			progress(models.ProgressEvent{BatchID: batchID, Stage: stage, Total: target, Status: status})
		}
	}

	if cancel.Cancelled() || ctx.Err() != nil {
		log.Infof("[%s] skipped, run stopped", query)
		out.Status = models.StatusSuccess
		return out
	}
	if target <= 0 {
		out.Status = models.StatusNoListings
		return out
	}

	emit(models.StageSearching, "Searching the map directory...")
	log.Infof("[%s] ▶ starting", query)

	browser, err := r.Acquire(ctx, r.Config, log)
	if err != nil {
		log.Errorf("[%s] ✗ %v", query, err)
		out.Status = err.Error()
		out.Err = err
		return out
	}
	defer browser.Release()

	if err := browser.Search(ctx, query); err != nil {
		log.Errorf("[%s] ✗ search: %v", query, err)
		out.Status = fmt.Sprintf("Search failed: %v", err)
		out.Err = err
		return out
	}
	emit(models.StageFoundResults, "Found search results, starting extraction...")

	listings, status, err := Extract(ctx, browser, Options{
		BatchID:   batchID,
		Target:    target,
		ItemDelay: r.Config.ItemDelay,
		Cancel:    cancel,
		Log:       log,
	}, progress)
	out.Listings = listings
	out.Status = status
	out.Err = err

	if err != nil {
		log.Errorf("[%s] ✗ %s (%d listings kept)", query, status, len(listings))
	} else {
		log.Infof("[%s] ✓ %d listings collected (%s)", query, len(listings), status)
	}
	return out
}

// RunAll runs one batch per query, up to Config.Workers at a time, each with
// its own browser session. Results keep the order of queries.
func (r *Runner) RunAll(ctx context.Context, queries []string, target int, progress models.ProgressFunc, cancel *CancelToken) []models.QueryResult {
	ordered := make([]models.QueryResult, len(queries))
	if len(queries) == 0 {
		return ordered
	}

	workers := r.Config.Workers
	if workers <= 0 {
		workers = 1
	}

	// Events from concurrent batches are serialised so callers see the
	// same single-goroutine delivery they get from RunBatch.
	if progress != nil && workers > 1 {
		progress = serialize(progress)
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for i, q := range queries {
		g.Go(func() error {
			ordered[i] = models.QueryResult{
				Query:   q,
				Index:   i,
				Outcome: r.RunBatch(ctx, q, target, progress, cancel),
			}
			return nil
		})
	}
	_ = g.Wait()
	return ordered
}
