package scrape

import (
	"github.com/PuerkitoBio/goquery"
)

// ExtractMemberCards extracts the viewer's direct connections from the
// connections list page. The list markup is stable, so this is a fixed
// selector rather than a cascade.
func ExtractMemberCards(html string) ([]MemberCard, Diagnostics, error) {
	var diag Diagnostics
	doc, err := parseDoc(html)
	if err != nil {
		return nil, diag, err
	}

	var members []MemberCard
	seen := make(map[string]bool)
	doc.Find("li.mn-connection-card").Each(func(_ int, card *goquery.Selection) {
		m, ok := extractMemberCard(card)
		if !ok || seen[m.ProfileURL] {
			return
		}
		seen[m.ProfileURL] = true
		members = append(members, m)
	})
	diag.PatternCounts = []PatternCount{{Pattern: "mn-connection-card", Matches: len(members)}}

	if len(members) == 0 {
		diag.snapshot(doc)
		return nil, diag, nil
	}
	diag.Strategy = "mn-connection-card"
	return members, diag, nil
}

func extractMemberCard(card *goquery.Selection) (m MemberCard, ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	link := card.Find("a.mn-connection-card__link, a[href*='/in/']").First()
	if link.Length() == 0 {
		return m, false
	}
	href, _ := link.Attr("href")
	m.ProfileURL = absoluteURL(href)
	if m.ProfileURL == "" {
		return m, false
	}

	m.Name = cleanText(card.Find("span.mn-connection-card__name").First().Text())
	if m.Name == "" {
		m.Name = personName(card, link)
	}
	if m.Name == "" {
		return m, false
	}

	m.Headline = cleanText(card.Find("span.mn-connection-card__occupation").First().Text())
	return m, true
}

// ExtractCurrentEmployer pulls the current employer out of a serialized
// profile page via the experience-section company logo anchor. Profiles
// without a current position return (nil, nil).
func ExtractCurrentEmployer(html string) (*Employer, error) {
	doc, err := parseDoc(html)
	if err != nil {
		return nil, err
	}

	link := doc.Find("a[data-field='experience_company_logo']").First()
	if link.Length() == 0 {
		return nil, nil
	}
	href, _ := link.Attr("href")
	url := absoluteURL(href)
	if url == "" || !isCompanyPath(url) {
		return nil, nil
	}

	name := ""
	link.Find("span[aria-hidden='true'], span.visually-hidden, span").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if t := cleanText(s.Text()); t != "" {
			name = t
			return false
		}
		return true
	})
	if name == "" {
		name = cleanText(link.Text())
	}
	if name == "" {
		return nil, nil
	}
	return &Employer{CompanyName: name, CompanyURL: url}, nil
}
