package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"maps-scraper/scraper"
	"maps-scraper/utils"
)

// runDoctor starts and releases one browser session, reporting which launch
// strategy succeeded.
func runDoctor(cmd *cobra.Command, f *flags) error {
	cfg := resolveConfig(cmd, f, nil)

	log, err := utils.NewLogger(cfg.Verbose)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.NavigateTimeout*2)
	defer cancel()

	browser, err := acquire(ctx, cfg, log)
	if err != nil {
		log.Errorf("✗ %v", err)
		return err
	}
	defer browser.Release()

	if s, ok := browser.(*scraper.Session); ok {
		log.Infof("✓ browser session ready (strategy: %s)", s.Strategy)
	} else {
		log.Infof("✓ browser session ready")
	}
	fmt.Fprintln(cmd.OutOrStdout(), "ok")
	return nil
}
