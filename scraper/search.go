package scraper

import (
	"context"
	"errors"
	"strings"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"maps-scraper/utils"
)

// consentJS clicks the first consent/cookie button it finds and reports
// whether it clicked anything.
const consentJS = `
(() => {
	const labels = ['accept', 'reject', 'got it', 'i agree', 'alles akzeptieren'];
	const buttons = Array.from(document.querySelectorAll('button'));
	for (const b of buttons) {
		const text  = (b.innerText || '').trim().toLowerCase();
		const aria  = (b.getAttribute('aria-label') || '').trim().toLowerCase();
		if (labels.some(l => text.startsWith(l) || aria.startsWith(l))) {
			b.click();
			return true;
		}
	}
	return false;
})();
`

const submitJS = `
(() => {
	const btn = document.querySelector('` + SearchButtonSelector + `');
	if (!btn) return false;
	btn.click();
	return true;
})();
`

// Search opens the directory landing view, submits query and waits until the
// result feed is present. Every step except consent dismissal is bounded and
// fails with a *SearchFailedError.
func (s *Session) Search(ctx context.Context, query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return &SearchFailedError{Step: "query", Err: errors.New("empty query")}
	}

	if err := s.run(ctx, s.cfg.NavigateTimeout, chromedp.Navigate(s.cfg.BaseURL)); err != nil {
		return &SearchFailedError{Step: "navigate " + s.cfg.BaseURL, Err: err}
	}
	if err := utils.Sleep(ctx, s.cfg.NavigateSettle); err != nil {
		return &SearchFailedError{Step: "navigate", Err: err}
	}

	s.dismissConsent(ctx)

	if err := s.run(ctx, s.cfg.WaitTimeout,
		chromedp.WaitVisible(SearchBoxSelector, chromedp.ByQuery),
		chromedp.Clear(SearchBoxSelector, chromedp.ByQuery),
		chromedp.SendKeys(SearchBoxSelector, query, chromedp.ByQuery),
	); err != nil {
		return &SearchFailedError{Step: "enter query", Err: err}
	}

	var clicked bool
	if err := s.run(ctx, s.cfg.WaitTimeout, chromedp.Evaluate(submitJS, &clicked)); err != nil {
		return &SearchFailedError{Step: "submit query", Err: err}
	}
	if !clicked {
		if err := s.run(ctx, s.cfg.WaitTimeout,
			chromedp.SendKeys(SearchBoxSelector, kb.Enter, chromedp.ByQuery),
		); err != nil {
			return &SearchFailedError{Step: "submit query", Err: err}
		}
	}

	if err := s.run(ctx, s.cfg.WaitTimeout, chromedp.WaitReady(FeedSelector, chromedp.ByQuery)); err != nil {
		return &SearchFailedError{Step: "wait for result feed", Err: err}
	}
	if err := utils.Sleep(ctx, s.cfg.FeedSettle); err != nil {
		return &SearchFailedError{Step: "wait for result feed", Err: err}
	}
	return nil
}

// dismissConsent is best-effort: no interstitial, or a failed click, is fine.
func (s *Session) dismissConsent(ctx context.Context) {
	var clicked bool
	if err := s.run(ctx, s.cfg.WaitTimeout, chromedp.Evaluate(consentJS, &clicked)); err != nil {
		s.logger().Debugf("consent check: %v", err)
		return
	}
	if clicked {
		s.logger().Debugf("consent interstitial dismissed")
		_ = utils.Sleep(ctx, s.cfg.ConsentSettle)
	}
}
