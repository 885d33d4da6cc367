package scraper

// CSS selectors used across the scraper.
// Centralising them makes future updates trivial.
const (
	// Search surface
	SearchBoxSelector    = `#searchboxinput`
	SearchButtonSelector = `#searchbox-searchbutton`

	// Result feed
	FeedSelector      = `div[role="feed"]`
	FeedEntrySelector = `a[href*="/maps/place/"]`

	// Detail panel
	MainPanelSelector  = `div[role="main"]`
	CategorySelector   = `button[jsaction*="category"] .DkEaL`
	InfoButtonSelector = `button[data-item-id], button[data-tooltip], a[data-item-id]`
	TelLinkSelector    = `a[href^="tel:"]`
	RatingSelector     = `span[role="img"][aria-label*="stars"], span.MW4etd`
	ReviewsSelector    = `span.UY7F9 button span[aria-label*="reviews"]`
)

// NameSelectors go from the most specific panel heading to the most generic.
var NameSelectors = []string{
	`h1.DUwDvf.fontHeadlineLarge`,
	`h1[class*="fontHeadlineLarge"]`,
	`h1.DUwDvf`,
	`[role="main"] h1`,
}
