package scraper

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"

	"maps-scraper/models"
	"maps-scraper/utils"
)

// entryJS resolves feed entry idx and applies action ('scroll' or 'click').
const entryJS = `
(() => {
	const feed = document.querySelector('` + FeedSelector + `');
	if (!feed) return { ok: false, count: 0 };
	const nodes = Array.from(feed.querySelectorAll('` + FeedEntrySelector + `'));
	const idx   = %d;
	if (idx < 0 || nodes.length <= idx) return { ok: false, count: nodes.length };
	const el = nodes[idx];
	if (%q === 'scroll') {
		el.scrollIntoView({ block: 'center' });
	} else {
		el.click();
	}
	return { ok: true, count: nodes.length };
})();
`

// Activate opens the feed entry at index so its detail panel renders.
// It returns false with a nil error when index is outside the entries
// currently materialized.
func (s *Session) Activate(ctx context.Context, index int) (bool, error) {
	ok, err := s.entryAction(ctx, index, "scroll")
	if err != nil || !ok {
		return false, err
	}
	if err := utils.Sleep(ctx, s.cfg.ScrollIntoViewSettle); err != nil {
		return false, err
	}

	ok, err = s.entryAction(ctx, index, "click")
	if err != nil || !ok {
		return false, err
	}
	if err := utils.Sleep(ctx, s.cfg.ActivateSettle); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Session) entryAction(ctx context.Context, index int, action string) (bool, error) {
	var res models.ActivateResult
	script := fmt.Sprintf(entryJS, index, action)
	if err := s.run(ctx, s.cfg.WaitTimeout, chromedp.Evaluate(script, &res)); err != nil {
		return false, fmt.Errorf("%s feed entry %d: %w", action, index, err)
	}
	if !res.OK {
		s.logger().Debugf("%s feed entry %d: out of range (%d entries)", action, index, res.Count)
	}
	return res.OK, nil
}
