package scrape

import (
	"strings"
	"testing"
)

const searchResultsPage = `<html><head><title>Acme | Search</title></head><body><main>
<ul class="reusable-search__entity-result-list">
<li class="reusable-search__result-container">
  <div class="entity-result">
    <a href="/company/acme/?trk=search"><span class="visually-hidden">Acme Corp</span></a>
    <img src="https://media.licdn.com/dms/image/acme-logo.png">
    <div class="entity-result__primary-subtitle">Software Development &bull; Acme Corp &bull; 51-200 employees</div>
    <div class="entity-result__insights">
      <a href="/search/results/people/?currentCompany=%5B%2212345%22%5D">3 connections work here</a>
    </div>
  </div>
</li>
<li class="reusable-search__result-container">
  <div class="entity-result">
    <a href="/company/globex/"><span class="visually-hidden">Globex</span></a>
    <div class="entity-result__primary-subtitle">Logistics</div>
    <span class="entity-result__simple-insight-text">Maria Gonzalez works here</span>
  </div>
</li>
</ul>
</main></body></html>`

func TestExtractCompanyCards(t *testing.T) {
	cards, diag, err := ExtractCompanyCards(searchResultsPage)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if diag.Strategy != "search-result-container" {
		t.Errorf("strategy: got %q", diag.Strategy)
	}
	if len(cards) != 2 {
		t.Fatalf("cards: got %d, want 2", len(cards))
	}

	acme := cards[0]
	if acme.Name != "Acme Corp" {
		t.Errorf("name: got %q", acme.Name)
	}
	if acme.URL != "https://www.linkedin.com/company/acme/" {
		t.Errorf("url: got %q", acme.URL)
	}
	if acme.LogoURL != "https://media.licdn.com/dms/image/acme-logo.png" {
		t.Errorf("logo: got %q", acme.LogoURL)
	}
	// Company name is deduped out of the subtitle.
	if acme.Description != "Software Development • 51-200 employees" {
		t.Errorf("description: got %q", acme.Description)
	}
	if len(acme.SummaryLinks) != 1 {
		t.Fatalf("summary links: got %d, want 1", len(acme.SummaryLinks))
	}
	sl := acme.SummaryLinks[0]
	if sl.Text != "3 connections work here" {
		t.Errorf("summary text: got %q", sl.Text)
	}
	// The people-search query must survive URL normalization.
	if !strings.Contains(sl.URL, "currentCompany=") {
		t.Errorf("summary url lost its query: %q", sl.URL)
	}
	if len(acme.DirectNames) != 0 {
		t.Errorf("direct names alongside summary link: %v", acme.DirectNames)
	}

	globex := cards[1]
	if globex.Name != "Globex" {
		t.Errorf("name: got %q", globex.Name)
	}
	if globex.ConnectionInfo != "Maria Gonzalez works here" {
		t.Errorf("connection info: got %q", globex.ConnectionInfo)
	}
	if len(globex.SummaryLinks) != 0 {
		t.Errorf("summary links: got %d, want 0", len(globex.SummaryLinks))
	}
	if len(globex.DirectNames) != 1 || globex.DirectNames[0] != "Maria Gonzalez" {
		t.Errorf("direct names: got %v", globex.DirectNames)
	}
}

func TestExtractCompanyCards_CascadeFallback(t *testing.T) {
	page := `<html><body><main><ul>
<li data-chameleon-result-urn="urn:li:company:1">
  <a href="/company/initech/"><span aria-hidden="true">Initech</span></a>
</li>
</ul></main></body></html>`

	cards, diag, err := ExtractCompanyCards(page)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if diag.Strategy != "chameleon-urn" {
		t.Errorf("strategy: got %q, want chameleon-urn", diag.Strategy)
	}
	if len(cards) != 1 || cards[0].Name != "Initech" {
		t.Fatalf("cards: got %+v", cards)
	}

	// The counts show every earlier pattern missed before the winner hit.
	for _, pc := range diag.PatternCounts {
		if pc.Pattern == "chameleon-urn" {
			if pc.Matches != 1 {
				t.Errorf("winner matches: got %d, want 1", pc.Matches)
			}
			break
		}
		if pc.Matches != 0 {
			t.Errorf("pattern %q before winner: got %d matches", pc.Pattern, pc.Matches)
		}
	}
}

func TestExtractCompanyCards_UnviablePatternFallsThrough(t *testing.T) {
	// The first pattern matches a container with nothing extractable in
	// it; the cascade moves on instead of stopping there.
	page := `<html><body><main><ul>
<li class="reusable-search__result-container"><div>Promoted</div></li>
<li data-chameleon-result-urn="urn:li:company:1">
  <a href="/company/initech/"><span aria-hidden="true">Initech</span></a>
</li>
</ul></main></body></html>`

	cards, diag, err := ExtractCompanyCards(page)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if diag.Strategy != "chameleon-urn" {
		t.Errorf("strategy: got %q, want chameleon-urn", diag.Strategy)
	}
	if len(cards) != 1 || cards[0].Name != "Initech" {
		t.Fatalf("cards: got %+v", cards)
	}
	if diag.PatternCounts[0].Matches != 1 {
		t.Errorf("first pattern matches: got %d, want 1", diag.PatternCounts[0].Matches)
	}
}

func TestExtractCompanyCards_SummaryLinkRequiresTextAndTarget(t *testing.T) {
	page := `<html><body><main><ul class="reusable-search__entity-result-list">
<li class="reusable-search__result-container">
  <a href="/company/acme/"><span class="visually-hidden">Acme Corp</span></a>
  <a href="/search/results/people/?currentCompany=42">See all 42 employees</a>
</li>
<li class="reusable-search__result-container">
  <a href="/company/globex/"><span class="visually-hidden">Globex</span></a>
  <span class="entity-result__simple-insight-text">Maria Gonzalez works here</span>
  <a href="/posts/globex_activity-123">2 others were hired here</a>
</li>
</ul></main></body></html>`

	cards, _, err := ExtractCompanyCards(page)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(cards) != 2 {
		t.Fatalf("cards: got %d, want 2", len(cards))
	}

	// A people-search anchor with generic "See all" text is page chrome,
	// not a connection summary.
	acme := cards[0]
	if len(acme.SummaryLinks) != 0 {
		t.Errorf("summary links from generic anchor: %+v", acme.SummaryLinks)
	}
	if len(acme.DirectNames) != 0 {
		t.Errorf("direct names: got %v", acme.DirectNames)
	}

	// Aggregate-shaped text pointing at a post is not a summary either,
	// so the direct-name fallback still applies.
	globex := cards[1]
	if len(globex.SummaryLinks) != 0 {
		t.Errorf("summary links from post anchor: %+v", globex.SummaryLinks)
	}
	if len(globex.DirectNames) != 1 || globex.DirectNames[0] != "Maria Gonzalez" {
		t.Errorf("direct names: got %v", globex.DirectNames)
	}
}

func TestExtractCompanyCards_EmptyPage(t *testing.T) {
	page := `<html><head><title>Sign In</title></head><body><form>Please sign in</form></body></html>`

	cards, diag, err := ExtractCompanyCards(page)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if cards != nil {
		t.Errorf("cards on empty page: %v", cards)
	}
	if diag.Strategy != "" {
		t.Errorf("strategy on empty page: %q", diag.Strategy)
	}
	if diag.PageTitle != "Sign In" {
		t.Errorf("page title: got %q", diag.PageTitle)
	}
	if diag.BodySample == "" {
		t.Error("expected a body sample for debugging")
	}
	if len(diag.PatternCounts) != len(containerStrategies) {
		t.Errorf("pattern counts: got %d, want %d", len(diag.PatternCounts), len(containerStrategies))
	}
}

func TestExtractCompanyCards_MalformedCardSkipped(t *testing.T) {
	page := `<html><body><main><ul class="reusable-search__entity-result-list">
<li class="reusable-search__result-container"><div>no link here</div></li>
<li class="reusable-search__result-container">
  <a href="/company/acme/"><span class="visually-hidden">Acme Corp</span></a>
</li>
</ul></main></body></html>`

	cards, _, err := ExtractCompanyCards(page)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(cards) != 1 || cards[0].Name != "Acme Corp" {
		t.Fatalf("cards: got %+v", cards)
	}
}

func TestExtractPeopleCards(t *testing.T) {
	page := `<html><body><main><ul class="reusable-search__entity-result-list">
<li class="reusable-search__result-container">
  <a href="/in/jane-doe/?miniProfile=x">
    <span class="visually-hidden">View Jane Doe&#39;s profile</span>
    <span class="visually-hidden">Jane Doe</span>
  </a>
  <img src="https://media.licdn.com/dms/image/profile-displayphoto-shrink_100_100/jane.jpg">
</li>
<li class="reusable-search__result-container">
  <a href="/in/jane-doe/"><span class="visually-hidden">Jane Doe</span></a>
</li>
<li class="reusable-search__result-container"><div>Status is reachable</div></li>
</ul></main></body></html>`

	people, diag, err := ExtractPeopleCards(page)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if diag.Strategy != "search-result-container" {
		t.Errorf("strategy: got %q", diag.Strategy)
	}
	// One person: the duplicate profile URL collapses, the cardless row is
	// skipped, and the "View ... profile" chrome is rejected as a name.
	if len(people) != 1 {
		t.Fatalf("people: got %d, want 1", len(people))
	}
	p := people[0]
	if p.Name != "Jane Doe" {
		t.Errorf("name: got %q", p.Name)
	}
	if p.URL != "https://www.linkedin.com/in/jane-doe/" {
		t.Errorf("url: got %q", p.URL)
	}
	if !strings.Contains(p.ImageURL, "profile-displayphoto") {
		t.Errorf("image: got %q", p.ImageURL)
	}
}

func TestExtractMemberCards(t *testing.T) {
	page := `<html><body><ul>
<li class="mn-connection-card">
  <a class="mn-connection-card__link" href="/in/john-smith/"></a>
  <span class="mn-connection-card__name">John Smith</span>
  <span class="mn-connection-card__occupation">Engineer at Initech</span>
</li>
<li class="mn-connection-card">
  <a class="mn-connection-card__link" href="/in/ada-okafor/"></a>
  <span class="mn-connection-card__name">Ada Okafor</span>
</li>
</ul></body></html>`

	members, diag, err := ExtractMemberCards(page)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if diag.Strategy != "mn-connection-card" {
		t.Errorf("strategy: got %q", diag.Strategy)
	}
	if len(members) != 2 {
		t.Fatalf("members: got %d, want 2", len(members))
	}
	if members[0].Name != "John Smith" || members[0].Headline != "Engineer at Initech" {
		t.Errorf("first member: %+v", members[0])
	}
	if members[1].ProfileURL != "https://www.linkedin.com/in/ada-okafor/" {
		t.Errorf("second member url: %q", members[1].ProfileURL)
	}
}

func TestExtractCurrentEmployer(t *testing.T) {
	page := `<html><body><main>
<a data-field="experience_company_logo" href="/company/initech/?lipi=x">
  <span aria-hidden="true">Initech</span>
</a>
</main></body></html>`

	emp, err := ExtractCurrentEmployer(page)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if emp == nil {
		t.Fatal("expected an employer")
	}
	if emp.CompanyName != "Initech" {
		t.Errorf("name: got %q", emp.CompanyName)
	}
	if emp.CompanyURL != "https://www.linkedin.com/company/initech/" {
		t.Errorf("url: got %q", emp.CompanyURL)
	}
}

func TestExtractCurrentEmployer_None(t *testing.T) {
	emp, err := ExtractCurrentEmployer(`<html><body><main>Open to work</main></body></html>`)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if emp != nil {
		t.Errorf("expected nil employer, got %+v", emp)
	}
}
