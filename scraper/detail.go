package scraper

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"

	"maps-scraper/models"
	"maps-scraper/utils"
)

// mainTextJS returns the rendered text of the main detail region.
const mainTextJS = `
(() => {
	const main = document.querySelector('` + MainPanelSelector + `');
	return main ? (main.innerText || '') : '';
})();
`

// Extract reads the currently open detail panel into a listing. Missing
// fields are left empty; only a failed snapshot returns an error.
func (s *Session) Extract(ctx context.Context) (models.Listing, error) {
	if err := utils.Sleep(ctx, s.cfg.DetailSettle); err != nil {
		return models.Listing{}, err
	}

	var html, mainText string
	if err := s.run(ctx, s.cfg.WaitTimeout,
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.Evaluate(mainTextJS, &mainText),
	); err != nil {
		return models.Listing{}, fmt.Errorf("snapshot detail panel: %w", err)
	}

	panel, err := NewPanel(html, mainText)
	if err != nil {
		return models.Listing{}, fmt.Errorf("parse detail panel: %w", err)
	}

	l := ExtractPanel(panel)
	if l.Email != "" && s.verifier != nil && !s.verifier.Verify(ctx, l.Email) {
		s.logger().Debugf("dropping %s: no MX records", l.Email)
		l.Email = ""
	}
	return l, nil
}
