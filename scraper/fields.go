package scraper

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"maps-scraper/models"
)

var (
	// Tried in order; the first pattern whose first match is at least
	// minPhoneLen characters wins.
	phonePatterns = []*regexp.Regexp{
		regexp.MustCompile(`[+]?[(]?[0-9]{1,3}[)]?[-\s.]?[(]?[0-9]{1,4}[)]?[-\s.]?[0-9]{1,4}[-\s.]?[0-9]{1,9}`),
		regexp.MustCompile(`\b\d{3}[-.]?\d{3}[-.]?\d{4}\b`),
		regexp.MustCompile(`\b\d{10}\b`),
	}
	emailRegex   = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	ratingRegex  = regexp.MustCompile(`[\d.]+`)
	reviewsRegex = regexp.MustCompile(`[\d,]+`)
)

const minPhoneLen = 10

// ExtractPhone returns the first plausible phone number in text.
func ExtractPhone(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}
	for _, re := range phonePatterns {
		if m := strings.TrimSpace(re.FindString(text)); len(m) >= minPhoneLen {
			return m, true
		}
	}
	return "", false
}

// ExtractEmail returns the first email address in text.
func ExtractEmail(text string) (string, bool) {
	m := emailRegex.FindString(text)
	return m, m != ""
}

// Panel is a snapshot of the rendered detail view.
type Panel struct {
	Doc      *goquery.Document
	MainText string // rendered text of the main detail region

	info *infoFields
}

// NewPanel parses an HTML snapshot of the detail view.
func NewPanel(html, mainText string) (*Panel, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	return &Panel{Doc: doc, MainText: mainText}, nil
}

// fieldStrategy recovers one field from the panel.
type fieldStrategy func(*Panel) (string, bool)

// firstOf runs strategies in order and returns the first success.
func firstOf(p *Panel, strategies []fieldStrategy) string {
	for _, try := range strategies {
		if v, ok := try(p); ok {
			return v
		}
	}
	return ""
}

var (
	nameStrategies     = selectorTexts(NameSelectors...)
	categoryStrategies = selectorTexts(CategorySelector)
	phoneStrategies    = []fieldStrategy{phoneFromInfoButtons, phoneFromTelLink}
	websiteStrategies  = []fieldStrategy{websiteFromInfoButtons}
	addressStrategies  = []fieldStrategy{addressFromInfoButtons}
	ratingStrategies   = []fieldStrategy{ratingFromBadge}
	reviewsStrategies  = []fieldStrategy{reviewsFromLabel}
	emailStrategies    = []fieldStrategy{emailFromMainText, emailFromMainMarkup}
)

// ExtractPanel builds a listing from the panel. Each field is recovered
// independently; a miss leaves that field empty.
func ExtractPanel(p *Panel) models.Listing {
	return models.Listing{
		Name:         firstOf(p, nameStrategies),
		Category:     firstOf(p, categoryStrategies),
		Phone:        firstOf(p, phoneStrategies),
		Website:      firstOf(p, websiteStrategies),
		Address:      firstOf(p, addressStrategies),
		Rating:       firstOf(p, ratingStrategies),
		ReviewsCount: firstOf(p, reviewsStrategies),
		Email:        firstOf(p, emailStrategies),
	}
}

// selectorTexts yields one strategy per selector: the trimmed text of the
// selector's first match, if non-empty.
func selectorTexts(selectors ...string) []fieldStrategy {
	out := make([]fieldStrategy, 0, len(selectors))
	for _, sel := range selectors {
		out = append(out, func(p *Panel) (string, bool) {
			text := strings.TrimSpace(p.Doc.Find(sel).First().Text())
			return text, text != ""
		})
	}
	return out
}

// infoFields holds what the info-button scan classified.
type infoFields struct {
	phone, website, address string
}

// infoButtons scans the panel's info buttons once and caches the result.
func (p *Panel) infoButtons() infoFields {
	if p.info != nil {
		return *p.info
	}
	var f infoFields
	p.Doc.Find(InfoButtonSelector).Each(func(_ int, sel *goquery.Selection) {
		itemID := strings.ToLower(sel.AttrOr("data-item-id", ""))
		label := sel.AttrOr("aria-label", "")
		lowerLabel := strings.ToLower(label)
		text := strings.TrimSpace(sel.Text())

		switch {
		case strings.Contains(itemID, "phone") || strings.Contains(lowerLabel, "phone"):
			if after, ok := afterColon(label); ok {
				f.phone = after
			} else if phone, ok := ExtractPhone(text); ok {
				f.phone = phone
			}
		case strings.Contains(itemID, "website") || strings.Contains(lowerLabel, "website"):
			// Loose check: anything with a dot or a scheme passes.
			if text != "" && (strings.Contains(text, ".") || strings.Contains(strings.ToLower(text), "http")) {
				f.website = text
			}
		case strings.Contains(itemID, "address") || strings.Contains(lowerLabel, "address"):
			if after, ok := afterColon(label); ok {
				f.address = after
			} else if text != "" {
				f.address = text
			}
		}
	})
	p.info = &f
	return f
}

func afterColon(label string) (string, bool) {
	_, after, found := strings.Cut(label, ":")
	if !found {
		return "", false
	}
	after = strings.TrimSpace(after)
	return after, after != ""
}

func phoneFromInfoButtons(p *Panel) (string, bool) {
	v := p.infoButtons().phone
	return v, v != ""
}

func websiteFromInfoButtons(p *Panel) (string, bool) {
	v := p.infoButtons().website
	return v, v != ""
}

func addressFromInfoButtons(p *Panel) (string, bool) {
	v := p.infoButtons().address
	return v, v != ""
}

func phoneFromTelLink(p *Panel) (string, bool) {
	href, ok := p.Doc.Find(TelLinkSelector).First().Attr("href")
	if !ok {
		return "", false
	}
	phone := strings.TrimSpace(strings.TrimPrefix(href, "tel:"))
	return phone, phone != ""
}

func ratingFromBadge(p *Panel) (string, bool) {
	sel := p.Doc.Find(RatingSelector).First()
	if sel.Length() == 0 {
		return "", false
	}
	text := sel.AttrOr("aria-label", "")
	if text == "" {
		text = sel.Text()
	}
	m := ratingRegex.FindString(text)
	return m, m != ""
}

func reviewsFromLabel(p *Panel) (string, bool) {
	label := p.Doc.Find(ReviewsSelector).First().AttrOr("aria-label", "")
	m := reviewsRegex.FindString(label)
	return m, m != ""
}

func emailFromMainText(p *Panel) (string, bool) {
	return ExtractEmail(p.MainText)
}

// emailFromMainMarkup covers snapshots taken without rendered text.
func emailFromMainMarkup(p *Panel) (string, bool) {
	if strings.TrimSpace(p.MainText) != "" {
		return "", false
	}
	var parts []string
	main := p.Doc.Find(MainPanelSelector).First()
	main.Find("*").AddBack().Contents().Each(func(_ int, sel *goquery.Selection) {
		if goquery.NodeName(sel) == "#text" {
			parts = append(parts, sel.Text())
		}
	})
	return ExtractEmail(strings.Join(parts, " "))
}
