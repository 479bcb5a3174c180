package resolve

import (
	"context"
	"fmt"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/netweave/dbopen"
	"github.com/hazyhaar/netweave/scrape"
	"github.com/hazyhaar/netweave/store"
)

// fakeFetcher serves canned markup per URL and fails on everything else.
type fakeFetcher struct {
	pages map[string]string
	calls int
}

func (f *fakeFetcher) FetchHTML(_ context.Context, url string) (string, error) {
	f.calls++
	html, ok := f.pages[url]
	if !ok {
		return "", fmt.Errorf("fetch %s: connection reset", url)
	}
	return html, nil
}

func testResolver(t *testing.T, fetcher Fetcher) (*Resolver, *store.Store) {
	t.Helper()
	db := dbopen.OpenMemory(t)
	if err := store.ApplySchema(db); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	st := store.New(db)
	return New(st, fetcher, nil), st
}

const peoplePage = `<html><body><main><ul class="reusable-search__entity-result-list">
<li class="reusable-search__result-container">
  <a href="/in/jane-doe/"><span class="visually-hidden">Jane Doe</span></a>
</li>
<li class="reusable-search__result-container">
  <a href="/in/ada-okafor/"><span class="visually-hidden">Ada Okafor</span></a>
</li>
</ul></main></body></html>`

func TestResolveCompany_SummaryLinkResolved(t *testing.T) {
	summaryURL := "https://www.linkedin.com/search/results/people/?currentCompany=42"
	r, st := testResolver(t, &fakeFetcher{pages: map[string]string{summaryURL: peoplePage}})
	ctx := context.Background()
	sess, _ := st.CreateSession(ctx, store.ModeFirstConnections)

	card := scrape.CompanyCard{
		Name:           "Acme Corp",
		URL:            "https://www.linkedin.com/company/acme/",
		ConnectionInfo: "2 connections work here",
		SummaryLinks:   []scrape.SummaryLink{{Text: "2 connections work here", URL: summaryURL}},
	}
	if err := r.ResolveCompany(ctx, sess.ID, card); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	results, err := st.SessionResults(ctx, sess.ID)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results: got %d, want 2", len(results))
	}
	if results[0].ConnectionName != "Ada Okafor" || results[1].ConnectionName != "Jane Doe" {
		t.Errorf("names: got %q, %q", results[0].ConnectionName, results[1].ConnectionName)
	}
	if results[1].ConnectionPath != "You -> Jane Doe" {
		t.Errorf("path: got %q", results[1].ConnectionPath)
	}
	if results[1].ProfileURL != "https://www.linkedin.com/in/jane-doe/" {
		t.Errorf("profile url: got %q", results[1].ProfileURL)
	}
}

func TestResolveCompany_SameNameDistinctProfiles(t *testing.T) {
	page := `<html><body><main><ul class="reusable-search__entity-result-list">
<li class="reusable-search__result-container">
  <a href="/in/jane-doe/"><span class="visually-hidden">Jane Doe</span></a>
</li>
<li class="reusable-search__result-container">
  <a href="/in/jane-doe-8a2/"><span class="visually-hidden">Jane Doe</span></a>
</li>
</ul></main></body></html>`
	summaryURL := "https://www.linkedin.com/search/results/people/?currentCompany=9"
	r, st := testResolver(t, &fakeFetcher{pages: map[string]string{summaryURL: page}})
	ctx := context.Background()
	sess, _ := st.CreateSession(ctx, store.ModeFirstConnections)

	card := scrape.CompanyCard{
		Name:         "Initech",
		URL:          "https://www.linkedin.com/company/initech/",
		SummaryLinks: []scrape.SummaryLink{{Text: "2 connections work here", URL: summaryURL}},
	}
	if err := r.ResolveCompany(ctx, sess.ID, card); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	// Same display name, different profiles: both rows land.
	results, _ := st.SessionResults(ctx, sess.ID)
	if len(results) != 2 {
		t.Fatalf("results: got %d, want 2", len(results))
	}
	if results[0].ProfileURL == results[1].ProfileURL {
		t.Errorf("profile urls collapsed: %q", results[0].ProfileURL)
	}
	for _, res := range results {
		if res.ConnectionName != "Jane Doe" {
			t.Errorf("name: got %q", res.ConnectionName)
		}
	}
}

func TestResolveCompany_FailedResolutionKeepsPlaceholder(t *testing.T) {
	r, st := testResolver(t, &fakeFetcher{})
	ctx := context.Background()
	sess, _ := st.CreateSession(ctx, store.ModeFirstConnections)

	card := scrape.CompanyCard{
		Name: "Globex",
		URL:  "https://www.linkedin.com/company/globex/",
		SummaryLinks: []scrape.SummaryLink{{
			Text: "3 connections work here",
			URL:  "https://www.linkedin.com/search/results/people/?currentCompany=7",
		}},
	}
	// The fetch fails; the company must still land with the placeholder.
	if err := r.ResolveCompany(ctx, sess.ID, card); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	results, _ := st.SessionResults(ctx, sess.ID)
	if len(results) != 1 {
		t.Fatalf("results: got %d, want 1", len(results))
	}
	if results[0].CompanyName != "Globex" {
		t.Errorf("company: got %q", results[0].CompanyName)
	}
	if results[0].ConnectionName != "3 connections work here" {
		t.Errorf("placeholder name: got %q", results[0].ConnectionName)
	}
}

func TestResolveCompany_DirectName(t *testing.T) {
	r, st := testResolver(t, &fakeFetcher{})
	ctx := context.Background()
	sess, _ := st.CreateSession(ctx, store.ModeFirstConnections)

	card := scrape.CompanyCard{
		Name:           "Initech",
		URL:            "https://www.linkedin.com/company/initech/",
		ConnectionInfo: "Maria Gonzalez works here",
		DirectNames:    []string{"Maria Gonzalez"},
	}
	if err := r.ResolveCompany(ctx, sess.ID, card); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	results, _ := st.SessionResults(ctx, sess.ID)
	if len(results) != 1 || results[0].ConnectionName != "Maria Gonzalez" {
		t.Fatalf("results: %+v", results)
	}
	if results[0].ConnectionPath != "You -> Maria Gonzalez" {
		t.Errorf("path: got %q", results[0].ConnectionPath)
	}
}

func TestSynthesizeName(t *testing.T) {
	tests := []struct {
		info string
		want string
	}{
		{"3 connections work here", "3 Connections"},
		{"1 connection works here", "1st Degree Connection"},
		{"Maria Gonzalez works here", "Maria Gonzalez"},
		{"", "Network Connection"},
		{"See jobs", "Network Connection"},
	}
	for _, tt := range tests {
		if got := synthesizeName(tt.info); got != tt.want {
			t.Errorf("synthesizeName(%q) = %q, want %q", tt.info, got, tt.want)
		}
	}
}

func TestResolveCompany_SynthesizedFallback(t *testing.T) {
	r, st := testResolver(t, &fakeFetcher{})
	ctx := context.Background()
	sess, _ := st.CreateSession(ctx, store.ModeFirstConnections)

	card := scrape.CompanyCard{
		Name:           "Umbrella",
		URL:            "https://www.linkedin.com/company/umbrella/",
		ConnectionInfo: "3 connections work here",
	}
	if err := r.ResolveCompany(ctx, sess.ID, card); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	results, _ := st.SessionResults(ctx, sess.ID)
	if len(results) != 1 {
		t.Fatalf("results: got %d, want 1", len(results))
	}
	if results[0].ConnectionPath != "You -> 3 Connections" {
		t.Errorf("path: got %q", results[0].ConnectionPath)
	}
}

func TestResolveCompany_FetcherNotCalledWithoutLinks(t *testing.T) {
	f := &fakeFetcher{}
	r, st := testResolver(t, f)
	ctx := context.Background()
	sess, _ := st.CreateSession(ctx, store.ModeFirstConnections)

	card := scrape.CompanyCard{
		Name: "Hooli",
		URL:  "https://www.linkedin.com/company/hooli/",
	}
	if err := r.ResolveCompany(ctx, sess.ID, card); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if f.calls != 0 {
		t.Errorf("fetcher calls: got %d, want 0", f.calls)
	}
}
