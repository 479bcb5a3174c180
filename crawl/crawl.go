package crawl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/netweave/browse"
	"github.com/hazyhaar/netweave/resolve"
	"github.com/hazyhaar/netweave/scrape"
	"github.com/hazyhaar/netweave/store"
)

// Entry pages for the two pipelines. The company search is scoped to the
// viewer's first-degree network.
const (
	companySearchURL   = "https://www.linkedin.com/search/results/companies/?network=%5B%22F%22%5D"
	connectionsListURL = "https://www.linkedin.com/mynetwork/invite-connect/connections/"
)

// scrollPause is the wait between scroll iterations while lazy results
// attach. Shorter than the rate limit since no new page is requested.
const scrollPause = 1500 * time.Millisecond

// Navigator is the crawl's view of a browser session. *browse.Session
// implements it; tests drive the pipelines with a fake.
type Navigator interface {
	Login(ctx context.Context, email, password string) error
	Navigate(ctx context.Context, url string) error
	ScrollToLoad(ctx context.Context, iterations int, pause time.Duration) error
	HTML(ctx context.Context) (string, error)
	FetchHTML(ctx context.Context, url string) (string, error)
	Close() error
}

// Credentials authenticate one crawl. Held in memory only for the
// duration of the run, never persisted.
type Credentials struct {
	Email    string
	Password string
}

// ErrSessionNotPending is returned when a start is attempted on a
// session that already ran. Sessions are single-shot; a re-crawl means
// a new session.
var ErrSessionNotPending = errors.New("crawl: session is not pending")

// Crawler drives crawl sessions end to end.
type Crawler struct {
	store    *store.Store
	registry *Registry
	cfg      Config
	log      *slog.Logger
}

// New creates a Crawler. A nil logger falls back to slog.Default.
func New(st *store.Store, reg *Registry, cfg Config, log *slog.Logger) *Crawler {
	if log == nil {
		log = slog.Default()
	}
	return &Crawler{store: st, registry: reg, cfg: cfg, log: log}
}

// Start launches a crawl in the background: registers the session, spins
// up a browser, and returns immediately. Progress is observed by polling
// the session row.
func (c *Crawler) Start(sessionID string, creds Credentials) error {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := c.cfg.withSettings(ctx, c.store)

	// Check the status up front so a terminal session is rejected before
	// anything is registered or written.
	sess, err := c.store.GetSession(ctx, sessionID)
	if err != nil {
		cancel()
		return err
	}
	if sess == nil {
		cancel()
		return fmt.Errorf("crawl: session %s not found", sessionID)
	}
	if sess.Status != store.StatusPending {
		cancel()
		return fmt.Errorf("%w: session %s is %s", ErrSessionNotPending, sessionID, sess.Status)
	}

	mgr := browse.NewManager(browse.Config{
		RemoteURL:  cfg.BrowserRemote,
		Headless:   cfg.Headless,
		NavTimeout: cfg.NavTimeout,
		Logger:     c.log,
	})
	if err := c.registry.Register(sessionID, cancel, mgr); err != nil {
		cancel()
		return err
	}

	go func() {
		defer c.registry.Remove(sessionID)
		defer mgr.Close()
		defer cancel()

		if err := mgr.Start(ctx); err != nil {
			c.finish(sessionID, fmt.Errorf("crawl: start browser: %w", err))
			return
		}
		nav, err := mgr.NewSession()
		if err != nil {
			c.finish(sessionID, fmt.Errorf("crawl: open page: %w", err))
			return
		}
		runErr := c.Run(ctx, sessionID, nav, creds, cfg)
		if errors.Is(runErr, ErrSessionNotPending) {
			// The session reached a terminal state between the pre-check
			// and the run. Leave its status and error untouched.
			c.log.Warn("crawl: not started", "session", sessionID, "error", runErr)
			return
		}
		c.finish(sessionID, runErr)
	}()
	return nil
}

// Run executes one crawl synchronously over the given navigator. It
// reports progress and counts along the way but leaves the terminal
// status to the caller.
func (c *Crawler) Run(ctx context.Context, sessionID string, nav Navigator, creds Credentials, cfg Config) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("crawl: panic: %v", p)
		}
	}()

	sess, err := c.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess == nil {
		return fmt.Errorf("crawl: session %s not found", sessionID)
	}
	if sess.Status != store.StatusPending {
		return fmt.Errorf("%w: session %s is %s", ErrSessionNotPending, sessionID, sess.Status)
	}

	if err := c.store.UpdateSessionStatus(ctx, sessionID, store.StatusRunning, ""); err != nil {
		return err
	}
	c.progress(ctx, sessionID, 2)

	c.log.Info("crawl: logging in", "session", sessionID, "mode", sess.Mode)
	if err := nav.Login(ctx, creds.Email, creds.Password); err != nil {
		return fmt.Errorf("crawl: login: %w", err)
	}
	c.progress(ctx, sessionID, 5)

	switch sess.Mode {
	case store.ModeFirstConnections:
		return c.runFirstConnections(ctx, sessionID, nav, cfg)
	case store.ModeFriendsOfFriends:
		return c.runFriendsOfFriends(ctx, sessionID, nav, cfg)
	default:
		return fmt.Errorf("crawl: unknown mode %q", sess.Mode)
	}
}

// runFirstConnections enumerates companies where the viewer has direct
// contacts and resolves each card's identities.
func (c *Crawler) runFirstConnections(ctx context.Context, sessionID string, nav Navigator, cfg Config) error {
	if err := nav.Navigate(ctx, companySearchURL); err != nil {
		return err
	}
	c.progress(ctx, sessionID, 10)

	if err := nav.ScrollToLoad(ctx, cfg.ScrollIterations, scrollPause); err != nil {
		return err
	}
	html, err := nav.HTML(ctx)
	if err != nil {
		return err
	}

	cards, diag, err := scrape.ExtractCompanyCards(html)
	if err != nil {
		return fmt.Errorf("crawl: extract companies: %w", err)
	}
	if len(cards) == 0 {
		c.log.Warn("crawl: no company cards extracted",
			"session", sessionID,
			"page_title", diag.PageTitle,
			"patterns", diag.PatternCounts)
	} else {
		c.log.Info("crawl: extracted company cards",
			"session", sessionID, "count", len(cards), "strategy", diag.Strategy)
	}
	c.store.UpdateSessionCounts(ctx, sessionID, len(cards), 0)
	c.progress(ctx, sessionID, 30)

	res := resolve.New(c.store, nav, c.log)
	res.Pace = cfg.rateLimit()

	for i, card := range cards {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := res.ResolveCompany(ctx, sessionID, card); err != nil {
			c.log.Warn("crawl: company skipped", "session", sessionID,
				"company", card.Name, "error", err)
		}
		c.store.UpdateSessionCounts(ctx, sessionID, len(cards), i+1)
		c.progress(ctx, sessionID, 30+(i+1)*65/len(cards))
		if i < len(cards)-1 {
			if err := c.pace(ctx, cfg); err != nil {
				return err
			}
		}
	}

	c.progress(ctx, sessionID, 100)
	return nil
}

// runFriendsOfFriends walks the viewer's connections list, visits each
// profile for its current employer, and persists the pairing.
func (c *Crawler) runFriendsOfFriends(ctx context.Context, sessionID string, nav Navigator, cfg Config) error {
	if err := nav.Navigate(ctx, connectionsListURL); err != nil {
		return err
	}
	c.progress(ctx, sessionID, 10)

	if err := nav.ScrollToLoad(ctx, cfg.ScrollIterations, scrollPause); err != nil {
		return err
	}
	html, err := nav.HTML(ctx)
	if err != nil {
		return err
	}

	members, diag, err := scrape.ExtractMemberCards(html)
	if err != nil {
		return fmt.Errorf("crawl: extract members: %w", err)
	}
	if len(members) == 0 {
		c.log.Warn("crawl: no member cards extracted",
			"session", sessionID, "page_title", diag.PageTitle)
	}
	if len(members) > cfg.MaxConnections {
		members = members[:cfg.MaxConnections]
	}
	c.store.UpdateSessionCounts(ctx, sessionID, len(members), 0)
	c.progress(ctx, sessionID, 30)

	for i, m := range members {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.visitMember(ctx, sessionID, nav, m); err != nil {
			c.log.Warn("crawl: member skipped", "session", sessionID,
				"name", m.Name, "error", err)
		}
		c.store.UpdateSessionCounts(ctx, sessionID, len(members), i+1)
		c.progress(ctx, sessionID, 30+(i+1)*65/len(members))
		if i < len(members)-1 {
			if err := c.pace(ctx, cfg); err != nil {
				return err
			}
		}
	}

	c.progress(ctx, sessionID, 100)
	return nil
}

// visitMember fetches one member's profile, extracts the current
// employer, and persists the connection. Members without a resolvable
// employer are stored without a company link.
func (c *Crawler) visitMember(ctx context.Context, sessionID string, nav Navigator, m scrape.MemberCard) error {
	html, err := nav.FetchHTML(ctx, m.ProfileURL)
	if err != nil {
		return err
	}
	emp, err := scrape.ExtractCurrentEmployer(html)
	if err != nil {
		return err
	}

	conn := &store.Connection{
		SessionID:        sessionID,
		Name:             m.Name,
		Headline:         m.Headline,
		ProfileURL:       m.ProfileURL,
		ConnectionSource: "connections_list",
		ConnectionDegree: 1,
	}
	if emp == nil {
		return c.store.InsertConnection(ctx, conn)
	}

	co, err := c.store.UpsertCompany(ctx, &store.Company{
		Name:        emp.CompanyName,
		LinkedInURL: emp.CompanyURL,
	})
	if err != nil {
		return err
	}
	conn.CompanyName = co.Name
	conn.CompanyURL = co.LinkedInURL
	_, err = c.store.LinkCompanyConnection(ctx, co.ID, conn, "You -> "+m.Name)
	return err
}

// finish records the terminal status. It runs on a fresh context because
// the crawl context is usually already cancelled by the time a failed
// run gets here.
func (c *Crawler) finish(sessionID string, runErr error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if runErr == nil {
		if err := c.store.UpdateSessionStatus(ctx, sessionID, store.StatusCompleted, ""); err != nil {
			c.log.Error("crawl: mark completed", "session", sessionID, "error", err)
		}
		c.log.Info("crawl: completed", "session", sessionID)
		return
	}

	msg := runErr.Error()
	if errors.Is(runErr, context.Canceled) {
		msg = "cancelled by user"
	}
	if err := c.store.UpdateSessionStatus(ctx, sessionID, store.StatusFailed, msg); err != nil {
		c.log.Error("crawl: mark failed", "session", sessionID, "error", err)
	}
	c.log.Warn("crawl: failed", "session", sessionID, "error", runErr)
}

// progress records a checkpoint, logging rather than failing on error so
// a progress write never kills a crawl.
func (c *Crawler) progress(ctx context.Context, sessionID string, pct int) {
	if err := c.store.UpdateSessionProgress(ctx, sessionID, pct); err != nil {
		c.log.Warn("crawl: progress update", "session", sessionID, "error", err)
	}
}

// pace sleeps the configured rate limit, aborting early on cancellation.
func (c *Crawler) pace(ctx context.Context, cfg Config) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(cfg.rateLimit()):
		return nil
	}
}
