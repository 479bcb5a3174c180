package browse

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const loginURL = "https://www.linkedin.com/login"

// Sentinel errors for post-login classification. Both are fatal for a
// crawl; ErrAuthChallenge means a human has to clear a checkpoint first.
var (
	ErrBadCredentials = errors.New("browse: login rejected")
	ErrAuthChallenge  = errors.New("browse: login blocked by a verification challenge")
)

// Login signs in with the given credentials and classifies the outcome
// from the post-submit URL. CAPTCHA and verification checkpoints map to
// ErrAuthChallenge; staying on the login form maps to ErrBadCredentials.
func (s *Session) Login(ctx context.Context, email, password string) error {
	if err := s.Navigate(ctx, loginURL); err != nil {
		return err
	}

	p := s.page.Context(ctx)

	user, err := p.Element("#username")
	if err != nil {
		return fmt.Errorf("browse: login form username: %w", err)
	}
	if err := user.Input(email); err != nil {
		return fmt.Errorf("browse: type username: %w", err)
	}

	pass, err := p.Element("#password")
	if err != nil {
		return fmt.Errorf("browse: login form password: %w", err)
	}
	if err := pass.Input(password); err != nil {
		return fmt.Errorf("browse: type password: %w", err)
	}

	submit, err := p.Element("button[type='submit']")
	if err != nil {
		return fmt.Errorf("browse: login submit button: %w", err)
	}
	if err := submit.Click("left", 1); err != nil {
		return fmt.Errorf("browse: submit login: %w", err)
	}

	// The post-submit redirect chain takes a few seconds.
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Second):
	}

	current, err := s.URL(ctx)
	if err != nil {
		return err
	}
	err = classifyPostLogin(current)
	if errors.Is(err, errUnrecognizedLanding) {
		// Unknown landing page: accept it only when the signed-in
		// navigation landmark is present.
		if probeErr := s.WaitVisible(ctx, "#global-nav", 5*time.Second); probeErr != nil {
			return fmt.Errorf("%w (at %s)", err, current)
		}
		return nil
	}
	return err
}

var errUnrecognizedLanding = errors.New("browse: login landed on an unrecognized page")

func classifyPostLogin(url string) error {
	switch {
	case strings.Contains(url, "/feed"):
		return nil
	case strings.Contains(url, "/checkpoint"), strings.Contains(url, "/challenge"):
		return fmt.Errorf("%w (at %s)", ErrAuthChallenge, url)
	case strings.Contains(url, "/login"), strings.Contains(url, "/uas/"):
		return ErrBadCredentials
	default:
		return errUnrecognizedLanding
	}
}
