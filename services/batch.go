package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"maps-scraper/models"
	"maps-scraper/scraper"
	"maps-scraper/utils"
)

const (
	// maxConsecutiveFailures is how many item failures in a row are absorbed
	// before the feed is scrolled for fresh entries.
	maxConsecutiveFailures = 3
	// maxStagnantScrolls is how many recovery scrolls may yield nothing
	// before the feed is considered exhausted.
	maxStagnantScrolls = 2
	errorMessageLimit  = 50
)

// Engine is the browser surface the batch loop drives.
// *scraper.Session implements it.
type Engine interface {
	CountVisible(ctx context.Context) int
	Grow(ctx context.Context) bool
	Activate(ctx context.Context, index int) (bool, error)
	Extract(ctx context.Context) (models.Listing, error)
}

// CancelToken is a cooperative stop flag checked once per item.
type CancelToken struct {
	flag atomic.Bool
}

// Cancel asks the running batch to stop before its next item.
func (c *CancelToken) Cancel() {
	if c != nil {
		c.flag.Store(true)
	}
}

// Cancelled reports whether Cancel was called.
func (c *CancelToken) Cancelled() bool {
	return c != nil && c.flag.Load()
}

// Options tune one extraction loop.
type Options struct {
	BatchID   string
	Target    int
	ItemDelay time.Duration
	Cancel    *CancelToken
	Log       *zap.SugaredLogger
}

// batch carries the loop's running state so progress events can be built
// from one place.
type batch struct {
	opts     Options
	progress models.ProgressFunc
	log      *zap.SugaredLogger
	listings []models.Listing
}

func (b *batch) emit(stage models.Stage, current, total int, status, company string) {
	if b.progress == nil {
		return
	}
	b.progress(models.ProgressEvent{
		BatchID:     b.opts.BatchID,
		Stage:       stage,
		Current:     current,
		Total:       total,
		Extracted:   len(b.listings),
		Status:      status,
		CompanyName: company,
	})
}

func (b *batch) stopRequested(ctx context.Context) bool {
	return b.opts.Cancel.Cancelled() || ctx.Err() != nil
}

// Extract grows the feed towards opts.Target, then opens and extracts each
// entry in order. It returns the listings gathered (also on early stop),
// the batch status text and, for a lost session, the fatal error.
func Extract(ctx context.Context, eng Engine, opts Options, progress models.ProgressFunc) ([]models.Listing, string, error) {
	b := &batch{opts: opts, progress: progress, log: opts.Log, listings: make([]models.Listing, 0)}
	if b.log == nil {
		b.log = zap.NewNop().Sugar()
	}
	if opts.Target <= 0 {
		return b.listings, models.StatusNoListings, nil
	}

	visible := eng.CountVisible(ctx)
	for visible < opts.Target && !b.stopRequested(ctx) {
		if !eng.Grow(ctx) {
			break
		}
		visible = eng.CountVisible(ctx)
	}
	if visible == 0 {
		return b.listings, models.StatusNoListings, nil
	}

	limit := min(visible, opts.Target)
	processed := make(map[int]struct{}, limit)
	consecutiveFailures := 0
	stagnant := 0
	var fatal error

	for i := 0; i < limit; i++ {
		if b.stopRequested(ctx) {
			b.log.Infof("extraction stopped before item %d", i+1)
			break
		}
		if _, done := processed[i]; done {
			continue
		}
		processed[i] = struct{}{}

		total := min(visible, opts.Target)
		b.emit(models.StageProcessing, i+1, total, fmt.Sprintf("Processing listing %d of %d...", i+1, total), "")

		ok, err := b.process(ctx, eng, i, total)
		if err != nil {
			consecutiveFailures++
			b.emit(models.StageError, i+1, total, "Error: "+utils.Truncate(err.Error(), errorMessageLimit), "")
			if isSessionLost(err) {
				b.log.Warnf("⚠ session lost at item %d: %v", i+1, err)
				fatal = err
				break
			}
			b.log.Debugf("item %d: %v", i+1, err)
		} else if ok {
			consecutiveFailures = 0
		} else {
			consecutiveFailures++
		}

		if consecutiveFailures > maxConsecutiveFailures {
			b.emit(models.StageScrolling, i+1, total, "Loading more results...", "")
			if eng.Grow(ctx) {
				stagnant = 0
				visible = eng.CountVisible(ctx)
			} else {
				stagnant++
			}
			consecutiveFailures = 0
		}
		if stagnant > maxStagnantScrolls {
			b.log.Infof("feed exhausted after %d stagnant scrolls", stagnant)
			break
		}

		if err := utils.Sleep(ctx, opts.ItemDelay); err != nil {
			break
		}
	}

	if fatal != nil {
		return b.listings, "Session lost: " + fatal.Error(), fatal
	}

	n := len(b.listings)
	b.emit(models.StageCompleted, n, n, fmt.Sprintf("Extraction completed! Found %d results", n), "")
	return b.listings, models.StatusSuccess, nil
}

// process activates and extracts one entry. ok is false for a miss
// (activation out of range or a nameless record).
func (b *batch) process(ctx context.Context, eng Engine, i, total int) (bool, error) {
	activated, err := eng.Activate(ctx, i)
	if err != nil {
		return false, err
	}
	if !activated {
		b.emit(models.StageFailed, i+1, total, "Failed to open listing", "")
		return false, nil
	}

	b.emit(models.StageExtracting, i+1, total, "Extracting business details...", "")
	l, err := eng.Extract(ctx)
	if err != nil {
		return false, err
	}
	if !l.Valid() {
		b.emit(models.StageFailed, i+1, total, "No data found for this listing", "")
		return false, nil
	}

	b.listings = append(b.listings, l)
	b.emit(models.StageSuccess, i+1, total, "Extracted: "+l.Name, l.Name)
	return true, nil
}

// isSessionLost reports errors after which the browser cannot be reused.
func isSessionLost(err error) bool {
	if errors.Is(err, scraper.ErrSessionLost) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection") || strings.Contains(msg, "session")
}
