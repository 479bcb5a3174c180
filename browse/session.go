package browse

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
)

// Session is one stealth page driven through a crawl. Not safe for
// concurrent use; a crawl drives its session sequentially.
type Session struct {
	page       *rod.Page
	navTimeout time.Duration
	log        *slog.Logger
}

// Navigate loads a URL and waits for the load event, bounded by the
// configured navigation timeout.
func (s *Session) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, s.navTimeout)
	defer cancel()

	p := s.page.Context(navCtx)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("browse: navigate %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		// Heavy pages fire load late; the DOM is usually usable anyway.
		s.log.Warn("browse: wait load timeout", "url", url, "error", err)
	}
	return nil
}

// WaitVisible blocks until the selector is visible or the timeout hits.
func (s *Session) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	el, err := s.page.Context(waitCtx).Element(selector)
	if err != nil {
		return fmt.Errorf("browse: find %s: %w", selector, err)
	}
	if err := el.WaitVisible(); err != nil {
		return fmt.Errorf("browse: wait visible %s: %w", selector, err)
	}
	return nil
}

// ScrollToLoad scrolls to the bottom of the page iterations times,
// pausing between scrolls so lazily rendered results attach.
func (s *Session) ScrollToLoad(ctx context.Context, iterations int, pause time.Duration) error {
	for i := 0; i < iterations; i++ {
		_, err := s.page.Context(ctx).Eval(`() => window.scrollTo(0, document.body.scrollHeight)`)
		if err != nil {
			return fmt.Errorf("browse: scroll: %w", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pause):
		}
	}
	return nil
}

// HTML serializes the current DOM as outer HTML.
func (s *Session) HTML(ctx context.Context) (string, error) {
	res, err := s.page.Context(ctx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return "", fmt.Errorf("browse: serialize dom: %w", err)
	}
	return res.Value.Str(), nil
}

// FetchHTML navigates to a URL and returns the serialized DOM. This is
// the resolver's whole view of the browser.
func (s *Session) FetchHTML(ctx context.Context, url string) (string, error) {
	if err := s.Navigate(ctx, url); err != nil {
		return "", err
	}
	// Give client-side rendering a beat to settle.
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(2 * time.Second):
	}
	return s.HTML(ctx)
}

// URL returns the page's current location.
func (s *Session) URL(ctx context.Context) (string, error) {
	info, err := s.page.Context(ctx).Info()
	if err != nil {
		return "", fmt.Errorf("browse: page info: %w", err)
	}
	return info.URL, nil
}

// Close closes the page, leaving the browser running.
func (s *Session) Close() error {
	if s.page != nil {
		return s.page.Close()
	}
	return nil
}
