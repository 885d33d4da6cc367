package utils

import (
	"context"

	"github.com/chromedp/chromedp"

	"maps-scraper/config"
)

// NewAllocator creates a Chrome exec allocator context from the given Config.
// An empty execPath lets chromedp locate Chrome itself.
func NewAllocator(parent context.Context, cfg config.Config, execPath string) (context.Context, context.CancelFunc) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("log-level", "3"),
		chromedp.UserAgent(cfg.UserAgent),
		chromedp.WindowSize(1920, 1080),
	)
	if execPath != "" {
		opts = append(opts, chromedp.ExecPath(execPath))
	}
	return chromedp.NewExecAllocator(parent, opts...)
}
