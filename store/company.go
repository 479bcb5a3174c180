package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Company is a deduplicated entity shared across sessions. The profile
// URL is the dedupe key; industry/size/location/website are reserved and
// usually empty.
type Company struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	LinkedInURL string `json:"linkedin_url"`
	LogoURL     string `json:"logo_url,omitempty"`
	Description string `json:"description,omitempty"`
	Industry    string `json:"industry,omitempty"`
	Size        string `json:"size,omitempty"`
	Location    string `json:"location,omitempty"`
	Website     string `json:"website,omitempty"`
	CreatedAt   int64  `json:"created_at"`
}

// UpsertCompany looks a company up by its profile URL and reuses the
// existing row when found; otherwise it creates one. Repeated upserts
// with the same URL always return the original identifier.
func (s *Store) UpsertCompany(ctx context.Context, c *Company) (*Company, error) {
	if c.LinkedInURL == "" {
		return nil, fmt.Errorf("store: upsert company: empty profile URL")
	}

	existing, err := s.GetCompanyByURL(ctx, c.LinkedInURL)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	c.ID = s.newCompanyID()
	c.CreatedAt = time.Now().UnixMilli()
	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO companies (id, name, linkedin_url, logo_url, description,
		                       industry, size, location, website, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.LinkedInURL, c.LogoURL, c.Description,
		c.Industry, c.Size, c.Location, c.Website, c.CreatedAt)
	if err != nil {
		// Lost a race with a concurrent insert on the unique URL.
		if existing, gerr := s.GetCompanyByURL(ctx, c.LinkedInURL); gerr == nil && existing != nil {
			return existing, nil
		}
		return nil, fmt.Errorf("store: insert company: %w", err)
	}
	return c, nil
}

// GetCompanyByURL retrieves a company by profile URL. Returns (nil, nil)
// when absent.
func (s *Store) GetCompanyByURL(ctx context.Context, url string) (*Company, error) {
	c := &Company{}
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, name, linkedin_url, logo_url, description,
		       industry, size, location, website, created_at
		FROM companies WHERE linkedin_url = ?`, url).Scan(
		&c.ID, &c.Name, &c.LinkedInURL, &c.LogoURL, &c.Description,
		&c.Industry, &c.Size, &c.Location, &c.Website, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get company by url: %w", err)
	}
	return c, nil
}

// CountCompanies returns the number of cached companies.
func (s *Store) CountCompanies(ctx context.Context) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM companies`).Scan(&n)
	return n, err
}
