package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"maps-scraper/config"
	"maps-scraper/models"
	"maps-scraper/services"
	"maps-scraper/storage"
	"maps-scraper/utils"
)

func runScrape(cmd *cobra.Command, f *flags, args []string) error {
	cfg := resolveConfig(cmd, f, args)
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := utils.NewLogger(cfg.Verbose)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	log.Infof("╔═══════════════════════════════════════════════════╗")
	log.Infof("║         Map Directory Listing Extractor           ║")
	log.Infof("╚═══════════════════════════════════════════════════╝")
	log.Infof("Queries  : %s", strings.Join(cfg.Queries, " | "))
	log.Infof("Workers  : %d (queries processed concurrently)", cfg.Workers)
	log.Infof("Target   : %d listings per query", cfg.Target)
	log.Infof("Output   : %s", cfg.OutFile)
	if cfg.DBDriver != "" {
		log.Infof("Database : %s", cfg.DBDriver)
	}

	rootCtx, cancelRoot := context.WithTimeout(cmd.Context(), cfg.GlobalTimeout)
	defer cancelRoot()

	// First interrupt stops cooperatively and keeps partial results; a
	// second one tears the sessions down.
	cancel := &services.CancelToken{}
	stop := watchInterrupts(log, cancel, cancelRoot)
	defer stop()

	runner := services.NewRunner(cfg, log)
	runner.Acquire = acquire
	results := runner.RunAll(rootCtx, cfg.Queries, cfg.Target, progressLogger(log), cancel)

	return report(cmd.Context(), log, cfg, results)
}

// report exports the merged listings, optionally stores them and prints the
// closing summary. It fails only when nothing at all was extracted and every
// query errored.
func report(ctx context.Context, log *zap.SugaredLogger, cfg config.Config, results []models.QueryResult) error {
	var merged []models.Listing
	for _, r := range results {
		merged = utils.MergeByName(merged, r.Outcome.Listings)
	}

	total, err := utils.WriteJSON(cfg.OutFile, merged)
	if err != nil {
		return fmt.Errorf("write JSON: %w", err)
	}
	if cfg.CSVFile != "" {
		if _, err := utils.WriteCSV(cfg.CSVFile, merged); err != nil {
			return fmt.Errorf("write CSV: %w", err)
		}
	}

	saved := 0
	if cfg.DBDriver != "" {
		saved, err = save(ctx, cfg, results)
		if err != nil {
			return err
		}
	}

	log.Infof("═══════════════════════════════════════════════════")
	log.Infof("  DONE — %d unique listings → %s", total, cfg.OutFile)
	if cfg.CSVFile != "" {
		log.Infof("  CSV  — %s", cfg.CSVFile)
	}
	if cfg.DBDriver != "" {
		log.Infof("  DB   — %d listings upserted → listings table", saved)
	}
	failed := 0
	for _, r := range results {
		status := fmt.Sprintf("%d listings (%s)", len(r.Outcome.Listings), r.Outcome.Status)
		if r.Outcome.Err != nil {
			failed++
			status = "ERROR: " + r.Outcome.Status
		}
		log.Infof("    %-28s %s", utils.Truncate(r.Query, 26)+":", status)
	}

	stats := utils.BuildSummaryStats(results)
	log.Infof("  STATS")
	log.Infof("    Listings Extracted     : %d", stats.TotalListings)
	log.Infof("    Rated Listings         : %d", stats.RatedListings)
	log.Infof("    Average Rating         : %.2f", stats.AverageRating)
	log.Infof("    Total Reviews          : %d", stats.TotalReviews)
	log.Infof("    With Phone / Email     : %d / %d", stats.Contacts.Phone, stats.Contacts.Email)
	log.Infof("    With Website / Address : %d / %d", stats.Contacts.Website, stats.Contacts.Address)
	if len(stats.TopCategories) > 0 {
		log.Infof("    Top Categories")
		for _, c := range stats.TopCategories {
			log.Infof("      - %s: %d", c.Category, c.Count)
		}
	}
	if len(stats.TopRatedListings) > 0 {
		log.Infof("    Top 5 Highest Rated")
		for i, l := range stats.TopRatedListings {
			log.Infof("      %d) %s★ (%s reviews) | %s", i+1, l.Rating, orDash(l.ReviewsCount), l.Name)
		}
	}
	log.Infof("═══════════════════════════════════════════════════")

	if len(results) > 0 && failed == len(results) && stats.TotalListings == 0 {
		return fmt.Errorf("all %d queries failed", failed)
	}
	return nil
}

func save(ctx context.Context, cfg config.Config, results []models.QueryResult) (int, error) {
	openCtx, cancelOpen := context.WithTimeout(ctx, 30*time.Second)
	defer cancelOpen()
	store, err := storage.Open(openCtx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return 0, err
	}
	defer store.Close()

	dbCtx, cancelDB := context.WithTimeout(ctx, 30*time.Second)
	defer cancelDB()
	saved := 0
	for _, r := range results {
		n, err := store.SaveListings(dbCtx, r.Query, r.Outcome.Listings)
		if err != nil {
			return saved, fmt.Errorf("store listings for %q: %w", r.Query, err)
		}
		saved += n
	}
	return saved, nil
}

// progressLogger turns progress events into log lines.
func progressLogger(log *zap.SugaredLogger) models.ProgressFunc {
	return func(ev models.ProgressEvent) {
		id := ev.BatchID
		if len(id) > 8 {
			id = id[:8]
		}
		switch ev.Stage {
		case models.StageSuccess:
			log.Infof("[%s] ✓ %d/%d %s", id, ev.Current, ev.Total, ev.CompanyName)
		case models.StageFailed, models.StageError:
			log.Warnf("[%s] ⚠ %d/%d %s", id, ev.Current, ev.Total, ev.Status)
		case models.StageCompleted:
			log.Infof("[%s] ■ %s (%d extracted)", id, ev.Status, ev.Extracted)
		default:
			log.Debugf("[%s] %s %d/%d %s", id, ev.Stage, ev.Current, ev.Total, ev.Status)
		}
	}
}

func watchInterrupts(log *zap.SugaredLogger, cancel *services.CancelToken, hardStop context.CancelFunc) func() {
	sig := make(chan os.Signal, 2)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		interrupts := 0
		for {
			select {
			case <-sig:
				interrupts++
				if interrupts == 1 {
					log.Warnf("⚠ interrupt received, finishing current item (press again to abort)")
					cancel.Cancel()
					continue
				}
				log.Warnf("⚠ aborting")
				hardStop()
				return
			case <-done:
				return
			}
		}
	}()

	return func() {
		signal.Stop(sig)
		close(done)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
