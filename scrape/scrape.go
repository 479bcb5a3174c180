// Package scrape converts serialized LinkedIn markup into provisional
// entity records plus diagnostic metadata.
//
// The upstream markup changes frequently and without notice, so every
// extraction task runs a strategy cascade: an ordered list of independent
// techniques tried in sequence until one yields a minimally viable
// result. Extraction never fails a crawl — a malformed card is skipped,
// and an empty page produces an empty result set with a diagnostic
// snapshot for operator debugging.
//
// Parsing happens host-side on serialized HTML (goquery), keeping the
// selector semantics of in-page evaluation without needing a live
// document for tests.
package scrape

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// CompanyCard is a provisional company record extracted from one result
// card, before resolution and persistence.
type CompanyCard struct {
	Name           string
	URL            string
	LogoURL        string
	Description    string
	ConnectionInfo string

	// SummaryLinks are placeholder records for anchors like
	// "3 connections work here" that must be followed to resolve
	// individual identities.
	SummaryLinks []SummaryLink

	// DirectNames are person names regex-extracted straight out of the
	// connection-info text when no summary link was present.
	DirectNames []string
}

// SummaryLink is an unresolved pointer to a person-search results page.
// Text doubles as the temporary connection name if resolution fails.
type SummaryLink struct {
	Text string
	URL  string
}

// PersonCard is one person extracted from a person-search results page.
type PersonCard struct {
	Name     string
	URL      string
	ImageURL string
}

// MemberCard is one direct connection from the connections list.
type MemberCard struct {
	Name       string
	ProfileURL string
	Headline   string
}

// Employer is the current-experience block of a profile page.
type Employer struct {
	CompanyName string
	CompanyURL  string
}

// PatternCount records how many elements one cascade pattern matched.
type PatternCount struct {
	Pattern string `json:"pattern"`
	Matches int    `json:"matches"`
}

// Diagnostics describes which strategy succeeded and, when none did, a
// snapshot of the page for debugging markup changes without reproducing
// them live.
type Diagnostics struct {
	Strategy      string         `json:"strategy,omitempty"`
	PageTitle     string         `json:"page_title,omitempty"`
	BodySample    string         `json:"body_sample,omitempty"`
	PatternCounts []PatternCount `json:"pattern_counts,omitempty"`
}

const bodySampleLen = 500

// snapshot fills the failure fields of a Diagnostics from the document.
func (d *Diagnostics) snapshot(doc *goquery.Document) {
	d.PageTitle = strings.TrimSpace(doc.Find("title").First().Text())
	if body, err := goquery.OuterHtml(doc.Find("body").First()); err == nil {
		sample := []rune(body)
		if len(sample) > bodySampleLen {
			sample = sample[:bodySampleLen]
		}
		d.BodySample = string(sample)
	}
}

func parseDoc(html string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}
