package scraper

import (
	"context"

	"github.com/chromedp/chromedp"

	"maps-scraper/utils"
)

const countJS = `
(() => {
	const feed = document.querySelector('` + FeedSelector + `');
	if (!feed) return 0;
	return feed.querySelectorAll('` + FeedEntrySelector + `').length;
})();
`

const scrollFeedJS = `
(() => {
	const feed = document.querySelector('` + FeedSelector + `');
	if (!feed) return false;
	feed.scrollTop = feed.scrollHeight;
	return true;
})();
`

// CountVisible returns how many feed entries are currently materialized.
// A missing feed or a failed evaluation counts as zero.
func (s *Session) CountVisible(ctx context.Context) int {
	var n int
	if err := s.run(ctx, s.cfg.WaitTimeout, chromedp.Evaluate(countJS, &n)); err != nil {
		s.logger().Debugf("count feed entries: %v", err)
		return 0
	}
	return n
}

// Grow scrolls the feed to the bottom, waits for the lazy loader to settle
// and reports whether new entries appeared.
func (s *Session) Grow(ctx context.Context) bool {
	before := s.CountVisible(ctx)

	var scrolled bool
	if err := s.run(ctx, s.cfg.WaitTimeout, chromedp.Evaluate(scrollFeedJS, &scrolled)); err != nil || !scrolled {
		return false
	}
	if err := utils.Sleep(ctx, s.cfg.ScrollSettle); err != nil {
		return false
	}

	after := s.CountVisible(ctx)
	s.logger().Debugf("feed grew %d → %d", before, after)
	return after > before
}
