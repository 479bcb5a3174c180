package scrape

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// stripPolicy removes every tag from extracted text. Scraped fragments
// occasionally carry inline markup or encoded entities; everything that
// reaches the store is plain text.
var stripPolicy = bluemonday.StrictPolicy()

// cleanText sanitizes a scraped fragment: strip markup, decode entities,
// collapse whitespace.
func cleanText(s string) string {
	s = stripPolicy.Sanitize(s)
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}

// truncate limits s to max runes, appending an ellipsis when cut.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}

// dedupePhrases removes repeated "•"-separated phrases and phrases equal
// to skip (the company name tends to be repeated in subtitles).
func dedupePhrases(s, skip string) string {
	parts := strings.Split(s, "•")
	seen := make(map[string]bool, len(parts))
	var kept []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || strings.EqualFold(p, skip) || seen[strings.ToLower(p)] {
			continue
		}
		seen[strings.ToLower(p)] = true
		kept = append(kept, p)
	}
	return strings.Join(kept, " • ")
}

// absoluteURL resolves site-relative hrefs against the upstream origin
// and strips query/fragment noise so URLs compare stably.
func absoluteURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if i := strings.IndexAny(href, "?#"); i >= 0 {
		href = href[:i]
	}
	if strings.HasPrefix(href, "/") {
		return "https://www.linkedin.com" + href
	}
	return href
}

// absoluteURLKeepQuery resolves a site-relative href but keeps the query
// string. People-search URLs carry their filter in the query, so
// stripping it would point the link at an unfiltered search.
func absoluteURLKeepQuery(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if i := strings.IndexByte(href, '#'); i >= 0 {
		href = href[:i]
	}
	if strings.HasPrefix(href, "/") {
		return "https://www.linkedin.com" + href
	}
	return href
}

// Path classification for internal links.

func isCompanyPath(href string) bool {
	return strings.Contains(href, "/company/") || strings.Contains(href, "/school/")
}

func isProfilePath(href string) bool {
	return strings.Contains(href, "/in/")
}

func isPostPath(href string) bool {
	return strings.Contains(href, "/posts/") || strings.Contains(href, "/feed/") ||
		strings.Contains(href, "/pulse/")
}

func isPeopleSearchPath(href string) bool {
	return strings.Contains(href, "/search/results/people")
}

func isInternalLink(href string) bool {
	return strings.HasPrefix(href, "/") || strings.Contains(href, "linkedin.com")
}
