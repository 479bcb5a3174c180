package scrape

import (
	"github.com/PuerkitoBio/goquery"
)

// containerStrategy locates candidate result cards in a search results
// document. Strategies run in order; the first one that yields at least
// one viable card wins.
type containerStrategy struct {
	name string
	find func(doc *goquery.Document) *goquery.Selection
}

func bySelector(sel string) func(doc *goquery.Document) *goquery.Selection {
	return func(doc *goquery.Document) *goquery.Selection {
		return doc.Find(sel)
	}
}

// containerStrategies is ordered from the current markup down to
// progressively older and more generic shapes. The last entries walk up
// from content anchors instead of matching containers directly, which
// survives class renames at the cost of precision.
var containerStrategies = []containerStrategy{
	{"search-result-container", bySelector("li.reusable-search__result-container")},
	{"entity-result-universal", bySelector("div[data-view-name='search-entity-result-universal-template']")},
	{"entity-result", bySelector("div.entity-result")},
	{"entity-result-list", bySelector("ul.reusable-search__entity-result-list > li")},
	{"search-results-list", bySelector("div.search-results-container li")},
	{"legacy-search-result", bySelector("li.search-result")},
	{"chameleon-urn", bySelector("li[data-chameleon-result-urn]")},
	{"org-module", bySelector("div[data-test-search-result]")},
	{"main-list-items", bySelector("main ul > li")},
	{"scaffold-list-items", bySelector("div.scaffold-layout__list ul > li")},
	{"heading-blocks", findHeadingBlocks},
	{"company-anchor-blocks", findCompanyAnchorBlocks},
	{"internal-link-blocks", findInternalLinkBlocks},
}

// findHeadingBlocks walks up from in-card headings to their enclosing
// list items or divs. Closest operates element-wise and dedupes, so the
// result is one block per distinct card.
func findHeadingBlocks(doc *goquery.Document) *goquery.Selection {
	return doc.Find("main h3, main h2, main div[role='heading']").
		Closest("li, div.entity-result, div[data-urn]")
}

// findCompanyAnchorBlocks walks up from company-profile anchors.
func findCompanyAnchorBlocks(doc *goquery.Document) *goquery.Selection {
	return doc.Find("main a[href*='/company/'], main a[href*='/school/']").
		Closest("li, div")
}

// findInternalLinkBlocks is the broadest net: any internal non-profile,
// non-post link inside the main region.
func findInternalLinkBlocks(doc *goquery.Document) *goquery.Selection {
	return doc.Find("main a[href]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		return isInternalLink(href) && !isProfilePath(href) && !isPostPath(href)
	}).Closest("li, div")
}

// ExtractCompanyCards runs the container cascade over a serialized search
// results page and extracts one provisional CompanyCard per viable card.
// An empty result is not an error; the diagnostics carry a page snapshot
// and per-pattern match counts for debugging markup drift.
func ExtractCompanyCards(html string) ([]CompanyCard, Diagnostics, error) {
	var diag Diagnostics
	doc, err := parseDoc(html)
	if err != nil {
		return nil, diag, err
	}

	for _, strat := range containerStrategies {
		sel := strat.find(doc)
		diag.PatternCounts = append(diag.PatternCounts, PatternCount{
			Pattern: strat.name,
			Matches: sel.Length(),
		})
		if sel.Length() == 0 {
			continue
		}

		var cards []CompanyCard
		seen := make(map[string]bool)
		sel.Each(func(_ int, card *goquery.Selection) {
			c, ok := extractCompanyCard(card)
			if !ok || seen[c.URL] {
				return
			}
			seen[c.URL] = true
			cards = append(cards, c)
		})
		// A pattern whose matches all fail card extraction counts as a
		// miss: an early selector can match containers with nothing
		// extractable in them (ads, upsell modules) on pages where a
		// later, broader pattern still reaches the real cards.
		if len(cards) > 0 {
			diag.Strategy = strat.name
			return cards, diag, nil
		}
	}

	diag.snapshot(doc)
	return nil, diag, nil
}

// extractCompanyCard pulls a single card's fields. A card is viable when
// it has both a company name and a company-profile URL. A panicking card
// is skipped, never fails the page.
func extractCompanyCard(card *goquery.Selection) (c CompanyCard, ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	link := card.Find("a[href*='/company/'], a[href*='/school/']").First()
	if link.Length() == 0 {
		return c, false
	}
	href, _ := link.Attr("href")
	c.URL = absoluteURL(href)
	if c.URL == "" {
		return c, false
	}

	c.Name = companyName(card, link)
	if c.Name == "" {
		return c, false
	}

	if img := card.Find("img").First(); img.Length() > 0 {
		src, _ := img.Attr("src")
		c.LogoURL = absoluteURL(src)
	}

	c.Description = companyDescription(card, c.Name)
	c.ConnectionInfo = connectionInfo(card)
	c.SummaryLinks = summaryLinks(card)
	if len(c.SummaryLinks) == 0 && c.ConnectionInfo != "" {
		if name := NameFromInfo(c.ConnectionInfo); name != "" {
			c.DirectNames = append(c.DirectNames, name)
		}
	}
	return c, true
}

// nameProbes locate the display name within a card, most reliable first.
// Probes run against the card, falling back to the company anchor's own
// text as a last resort.
var nameProbes = []string{
	"span.visually-hidden",
	"span.entity-result__title-text",
	"span.t-16",
	"span[aria-hidden='true']",
	"span",
}

func companyName(card, link *goquery.Selection) string {
	for _, probe := range nameProbes {
		found := ""
		link.Find(probe).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if t := cleanText(s.Text()); t != "" && !isSummaryText(t) {
				found = t
				return false
			}
			return true
		})
		if found != "" {
			return found
		}
	}
	if t := cleanText(link.Text()); t != "" && !isSummaryText(t) {
		return t
	}
	// Heading fallback for cards where the anchor wraps only the logo.
	if t := cleanText(card.Find("h3, h2, div[role='heading']").First().Text()); t != "" {
		return t
	}
	return ""
}

const descriptionMax = 200

// descriptionProbes locate subtitle/summary text within a card.
var descriptionProbes = []string{
	"div.entity-result__primary-subtitle",
	"p.entity-result__summary",
	"div.entity-result__secondary-subtitle",
	"p.subline-level-1",
	"div.t-12",
	"p",
}

func companyDescription(card *goquery.Selection, name string) string {
	for _, probe := range descriptionProbes {
		t := cleanText(card.Find(probe).First().Text())
		if t == "" || t == name || isConnectionInfo(t) {
			continue
		}
		return truncate(dedupePhrases(t, name), descriptionMax)
	}
	return ""
}

// captionProbes locate the social-proof caption ("Jane Doe works here",
// "3 connections work here") within a card.
var captionProbes = []string{
	"div.entity-result__insights",
	"span.entity-result__simple-insight-text",
	"div.search-result__social-proof",
	"span.t-12",
	"div.t-12",
}

func connectionInfo(card *goquery.Selection) string {
	for _, probe := range captionProbes {
		found := ""
		card.Find(probe).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if t := cleanText(s.Text()); isConnectionInfo(t) {
				found = t
				return false
			}
			return true
		})
		if found != "" {
			return found
		}
	}
	// Last resort: any short text node mentioning connections.
	found := ""
	card.Find("span, div, p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		t := cleanText(s.Text())
		if len(t) > 0 && len(t) < 120 && isConnectionInfo(t) && s.Children().Length() == 0 {
			found = t
			return false
		}
		return true
	})
	return found
}

// summaryLinks collects connection-summary anchors. Both signals are
// required: aggregate-shaped text ("3 connections work here") AND a
// person-search target. Text alone may decorate a post link; a
// person-search href alone may be generic chrome like "See all
// employees", and neither should become a placeholder.
func summaryLinks(card *goquery.Selection) []SummaryLink {
	var links []SummaryLink
	seen := make(map[string]bool)
	card.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		text := cleanText(a.Text())
		if !isPeopleSearchPath(href) || !isSummaryText(text) {
			return
		}
		u := absoluteURLKeepQuery(href)
		if u == "" || seen[u] {
			return
		}
		seen[u] = true
		links = append(links, SummaryLink{Text: text, URL: u})
	})
	return links
}
