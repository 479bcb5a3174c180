package scrape

import (
	"regexp"
	"strings"
	"unicode"
)

// nameStopWords reject candidate strings that look like UI chrome rather
// than a human name. Matched case-insensitively as substrings.
var nameStopWords = []string{
	"linkedin", "view", "profile", "connection", "company", "school",
	"member", "follower", "people", "result", "status", "premium",
	"search", "mutual", "degree",
}

// ValidPersonName applies a strict human-name shape check: a capitalized
// first token followed by 1-3 further capitalized tokens, total length
// 4-79, no leading digit, and none of the stop words.
func ValidPersonName(name string) bool {
	name = strings.TrimSpace(name)
	if len(name) < 4 || len(name) > 79 {
		return false
	}
	r := []rune(name)
	if unicode.IsDigit(r[0]) {
		return false
	}

	lower := strings.ToLower(name)
	for _, w := range nameStopWords {
		if strings.Contains(lower, w) {
			return false
		}
	}

	tokens := strings.Fields(name)
	if len(tokens) < 2 || len(tokens) > 4 {
		return false
	}
	for _, tok := range tokens {
		first := []rune(tok)[0]
		if !unicode.IsUpper(first) {
			return false
		}
	}
	return true
}

// namePattern matches a capitalized multi-token name shape.
const namePattern = `([A-Z][\pL'’-]+(?:\s+[A-Z][\pL'’.-]*){1,3})`

// directNamePatterns extract a literal person name out of connection-info
// text, most specific shape first.
var directNamePatterns = []*regexp.Regexp{
	regexp.MustCompile(namePattern + `\s+works\s+here`),
	regexp.MustCompile(namePattern + `\s+were\s+hired\s+here`),
	regexp.MustCompile(namePattern + `\s+from\s+your`),
	regexp.MustCompile(namePattern + `\s+(?:and|works|were|from)\b`),
}

// genericNameWords disqualify a regex capture that swallowed generic
// phrasing instead of a name.
var genericNameWords = []string{"connection", "company", "people", "other", "member"}

// NameFromInfo attempts to regex-extract a literal person name out of a
// connection-info string. Returns "" when nothing name-shaped is found.
func NameFromInfo(info string) string {
	for _, re := range directNamePatterns {
		m := re.FindStringSubmatch(info)
		if m == nil {
			continue
		}
		candidate := strings.TrimSpace(m[1])
		if containsAnyFold(candidate, genericNameWords) {
			continue
		}
		if ValidPersonName(candidate) {
			return candidate
		}
	}
	return ""
}

// connectionCountRe matches "<N> connections/people ... work/hired here".
var connectionCountRe = regexp.MustCompile(`(?i)\b(\d+)\s+(?:connections?|people)\b.*\b(?:works?|hired)\b`)

// ConnectionCount parses the headcount out of connection-info text like
// "3 connections work here". Returns (0, false) when absent.
func ConnectionCount(info string) (int, bool) {
	m := connectionCountRe.FindStringSubmatch(info)
	if m == nil {
		return 0, false
	}
	n := 0
	for _, c := range m[1] {
		n = n*10 + int(c-'0')
	}
	if n == 0 {
		return 0, false
	}
	return n, true
}

// summaryTextRe matches visible link text implying multiple or unnamed
// contacts ("3 connections work here", "others were hired here").
var summaryTextRe = regexp.MustCompile(`(?i)\b(?:\d+\s+)?(?:other\s+)?(?:connections?|people|others?)\s+(?:work|works|were\s+hired|hired)\b`)

// isSummaryText reports whether anchor text looks like a
// connection-summary link rather than a single person.
func isSummaryText(text string) bool {
	return summaryTextRe.MatchString(text)
}

// connectionInfoRe matches caption text worth keeping as connection info:
// connection/work/hire keywords or a numeric-person pattern.
var connectionInfoRe = regexp.MustCompile(`(?i)\bconnections?\b|\bwork\b|\bworks\b|\bhired?\b|\d+\s+(?:people|person|others?)\b`)

func isConnectionInfo(text string) bool {
	return connectionInfoRe.MatchString(text)
}

func containsAnyFold(s string, words []string) bool {
	lower := strings.ToLower(s)
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
