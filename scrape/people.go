package scrape

import (
	"github.com/PuerkitoBio/goquery"
)

// personContainerStrategies locate person cards on a people-search
// results page. The profile-anchor fallback survives container class
// renames because /in/ links are structural.
var personContainerStrategies = []containerStrategy{
	{"search-result-container", bySelector("li.reusable-search__result-container")},
	{"entity-result", bySelector("div.entity-result")},
	{"entity-result-list", bySelector("ul.reusable-search__entity-result-list > li")},
	{"legacy-search-result", bySelector("li.search-result")},
	{"main-list-items", bySelector("main ul > li")},
	{"profile-anchor-blocks", findProfileAnchorBlocks},
}

func findProfileAnchorBlocks(doc *goquery.Document) *goquery.Selection {
	return doc.Find("main a[href*='/in/']").Closest("li, div")
}

// ExtractPeopleCards runs the person cascade over a serialized
// people-search page. One person per card; duplicate profile URLs across
// cards collapse to the first occurrence.
func ExtractPeopleCards(html string) ([]PersonCard, Diagnostics, error) {
	var diag Diagnostics
	doc, err := parseDoc(html)
	if err != nil {
		return nil, diag, err
	}

	for _, strat := range personContainerStrategies {
		sel := strat.find(doc)
		diag.PatternCounts = append(diag.PatternCounts, PatternCount{
			Pattern: strat.name,
			Matches: sel.Length(),
		})
		if sel.Length() == 0 {
			continue
		}

		var people []PersonCard
		seen := make(map[string]bool)
		sel.Each(func(_ int, card *goquery.Selection) {
			p, ok := extractPersonCard(card)
			if !ok || seen[p.URL] {
				return
			}
			seen[p.URL] = true
			people = append(people, p)
		})
		if len(people) > 0 {
			diag.Strategy = strat.name
			return people, diag, nil
		}
	}

	diag.snapshot(doc)
	return nil, diag, nil
}

func extractPersonCard(card *goquery.Selection) (p PersonCard, ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	link := card.Find("a[href*='/in/']").First()
	if link.Length() == 0 {
		return p, false
	}
	href, _ := link.Attr("href")
	p.URL = absoluteURL(href)
	if p.URL == "" {
		return p, false
	}

	p.Name = personName(card, link)
	if p.Name == "" {
		return p, false
	}

	p.ImageURL = profilePhoto(card)
	return p, true
}

// personName probes the same spots as companyName but validates the
// candidate as a human name, which filters out "View profile" chrome.
func personName(card, link *goquery.Selection) string {
	for _, probe := range nameProbes {
		found := ""
		link.Find(probe).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if t := cleanText(s.Text()); ValidPersonName(t) {
				found = t
				return false
			}
			return true
		})
		if found != "" {
			return found
		}
	}
	if t := cleanText(link.Text()); ValidPersonName(t) {
		return t
	}
	found := ""
	card.Find("span.visually-hidden, span[aria-hidden='true'], span").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if t := cleanText(s.Text()); ValidPersonName(t) {
			found = t
			return false
		}
		return true
	})
	return found
}

// photoProbes match profile photos by src substring since the img class
// names churn.
var photoProbes = []string{
	"img[src*='profile-displayphoto']",
	"img.presence-entity__image",
	"img.EntityPhoto-circle-3",
	"img[src*='media.licdn.com']",
}

func profilePhoto(card *goquery.Selection) string {
	for _, probe := range photoProbes {
		if img := card.Find(probe).First(); img.Length() > 0 {
			src, _ := img.Attr("src")
			if u := absoluteURL(src); u != "" {
				return u
			}
		}
	}
	return ""
}
