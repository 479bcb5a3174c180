// Package resolve turns provisional extraction results into persisted
// entities: deduplicated companies, resolved connection identities, and
// the relationship rows tying them together.
package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/netweave/scrape"
	"github.com/hazyhaar/netweave/store"
)

// Fetcher is the resolver's whole view of the browser: navigate to a URL
// and hand back serialized markup.
type Fetcher interface {
	FetchHTML(ctx context.Context, url string) (string, error)
}

// Resolver persists extraction results for one session.
type Resolver struct {
	store   *store.Store
	fetcher Fetcher
	log     *slog.Logger

	// Pace is the delay between summary-link fetches. Zero skips pacing
	// (tests).
	Pace time.Duration
}

// New creates a Resolver. A nil logger falls back to slog.Default.
func New(st *store.Store, fetcher Fetcher, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{store: st, fetcher: fetcher, log: log}
}

// resolved is one connection identity attributed to a company.
type resolved struct {
	name       string
	profileURL string
	imageURL   string
}

// ResolveCompany upserts the company and persists one connection row plus
// one relationship row per resolved identity. Summary-link resolution is
// best-effort: a failed or empty fetch degrades to the placeholder text
// as the connection name, and the company is never dropped.
func (r *Resolver) ResolveCompany(ctx context.Context, sessionID string, card scrape.CompanyCard) error {
	co, err := r.store.UpsertCompany(ctx, &store.Company{
		Name:        card.Name,
		LinkedInURL: card.URL,
		LogoURL:     card.LogoURL,
		Description: card.Description,
	})
	if err != nil {
		return fmt.Errorf("resolve: upsert company %q: %w", card.Name, err)
	}

	people := r.resolveIdentities(ctx, card)
	if len(people) == 0 {
		people = []resolved{{name: synthesizeName(card.ConnectionInfo)}}
	}

	for _, p := range people {
		conn := &store.Connection{
			SessionID:        sessionID,
			Name:             p.name,
			ProfileURL:       p.profileURL,
			ProfileImageURL:  p.imageURL,
			ConnectionSource: card.ConnectionInfo,
			ConnectionDegree: 1,
			CompanyName:      co.Name,
			CompanyURL:       co.LinkedInURL,
		}
		if _, err := r.store.LinkCompanyConnection(ctx, co.ID, conn, "You -> "+p.name); err != nil {
			return fmt.Errorf("resolve: link %q to %q: %w", p.name, co.Name, err)
		}
	}
	return nil
}

// resolveIdentities produces connection identities for a card: follow
// each summary link through the fetcher, fall back to the regex-extracted
// direct names.
func (r *Resolver) resolveIdentities(ctx context.Context, card scrape.CompanyCard) []resolved {
	var people []resolved
	// Dedupe by profile URL when one exists; distinct people can share a
	// name. Placeholders and direct names have no URL and dedupe by name.
	seen := make(map[string]bool)
	add := func(p resolved) {
		key := p.profileURL
		if key == "" {
			key = p.name
		}
		if p.name == "" || seen[key] {
			return
		}
		seen[key] = true
		people = append(people, p)
	}

	for i, link := range card.SummaryLinks {
		if i > 0 {
			r.pace(ctx)
		}
		found, err := r.resolveSummaryLink(ctx, link)
		if err != nil {
			r.log.Warn("resolve: summary link failed, keeping placeholder",
				"company", card.Name, "url", link.URL, "error", err)
			add(resolved{name: link.Text})
			continue
		}
		if len(found) == 0 {
			r.log.Warn("resolve: summary link yielded no people, keeping placeholder",
				"company", card.Name, "url", link.URL)
			add(resolved{name: link.Text})
			continue
		}
		for _, p := range found {
			add(p)
		}
	}

	if len(card.SummaryLinks) == 0 {
		for _, name := range card.DirectNames {
			add(resolved{name: name})
		}
	}
	return people
}

func (r *Resolver) resolveSummaryLink(ctx context.Context, link scrape.SummaryLink) ([]resolved, error) {
	html, err := r.fetcher.FetchHTML(ctx, link.URL)
	if err != nil {
		return nil, err
	}
	people, diag, err := scrape.ExtractPeopleCards(html)
	if err != nil {
		return nil, err
	}
	if len(people) == 0 && diag.Strategy == "" {
		r.log.Warn("resolve: person cascade found nothing",
			"url", link.URL, "page_title", diag.PageTitle)
	}
	out := make([]resolved, 0, len(people))
	for _, p := range people {
		out = append(out, resolved{name: p.Name, profileURL: p.URL, imageURL: p.ImageURL})
	}
	return out, nil
}

// synthesizeName derives a last-resort connection name from the card's
// connection-info text.
func synthesizeName(info string) string {
	if n, ok := scrape.ConnectionCount(info); ok {
		if n == 1 {
			return "1st Degree Connection"
		}
		return fmt.Sprintf("%d Connections", n)
	}
	if name := scrape.NameFromInfo(info); name != "" {
		return name
	}
	return "Network Connection"
}

func (r *Resolver) pace(ctx context.Context) {
	if r.Pace <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(r.Pace):
	}
}
