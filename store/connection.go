package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hazyhaar/netweave/dbopen"
)

// Connection is a person record scoped to one session. Immutable once
// created; removed only by session cascade.
type Connection struct {
	ID                string `json:"id"`
	SessionID         string `json:"session_id"`
	Name              string `json:"name"`
	Headline          string `json:"headline,omitempty"`
	ProfileURL        string `json:"profile_url,omitempty"`
	ProfileImageURL   string `json:"profile_image_url,omitempty"`
	ConnectionSource  string `json:"connection_source,omitempty"`
	ConnectionDegree  int    `json:"connection_degree"`
	CompanyName       string `json:"company_name,omitempty"`
	CompanyURL        string `json:"company_url,omitempty"`
	MutualConnections string `json:"mutual_connections,omitempty"`
	Location          string `json:"location,omitempty"`
	CreatedAt         int64  `json:"created_at"`
}

// CompanyConnection links one company, one connection, and the owning
// session, plus a human-readable path string ("You -> Jane Doe").
type CompanyConnection struct {
	ID             string `json:"id"`
	SessionID      string `json:"session_id"`
	CompanyID      string `json:"company_id"`
	ConnectionID   string `json:"connection_id"`
	ConnectionPath string `json:"connection_path"`
	CreatedAt      int64  `json:"created_at"`
}

// InsertConnection creates a connection row. Name must be non-empty and
// degree must be 1 or 2 (also enforced by the schema CHECKs).
func (s *Store) InsertConnection(ctx context.Context, c *Connection) error {
	if c.Name == "" {
		return fmt.Errorf("store: insert connection: empty name")
	}
	if c.ConnectionDegree != 1 && c.ConnectionDegree != 2 {
		return fmt.Errorf("store: insert connection: degree %d not in {1,2}", c.ConnectionDegree)
	}
	if c.ID == "" {
		c.ID = s.newConnectionID()
	}
	c.CreatedAt = time.Now().UnixMilli()

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO connections (id, session_id, name, headline, profile_url,
		        profile_image_url, connection_source, connection_degree,
		        company_name, company_url, mutual_connections, location, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.SessionID, c.Name, c.Headline, c.ProfileURL,
		c.ProfileImageURL, c.ConnectionSource, c.ConnectionDegree,
		c.CompanyName, c.CompanyURL, c.MutualConnections, c.Location, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("store: insert connection: %w", err)
	}
	return nil
}

// LinkCompanyConnection writes the connection row and its junction row in
// one transaction so a partial failure never leaves a dangling link.
func (s *Store) LinkCompanyConnection(ctx context.Context, companyID string, conn *Connection, path string) (*CompanyConnection, error) {
	if conn.Name == "" {
		return nil, fmt.Errorf("store: link company connection: empty name")
	}
	if conn.ConnectionDegree != 1 && conn.ConnectionDegree != 2 {
		return nil, fmt.Errorf("store: link company connection: degree %d not in {1,2}", conn.ConnectionDegree)
	}
	if conn.ID == "" {
		conn.ID = s.newConnectionID()
	}
	now := time.Now().UnixMilli()
	conn.CreatedAt = now

	link := &CompanyConnection{
		ID:             s.newLinkID(),
		SessionID:      conn.SessionID,
		CompanyID:      companyID,
		ConnectionID:   conn.ID,
		ConnectionPath: path,
		CreatedAt:      now,
	}

	err := dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO connections (id, session_id, name, headline, profile_url,
			        profile_image_url, connection_source, connection_degree,
			        company_name, company_url, mutual_connections, location, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			conn.ID, conn.SessionID, conn.Name, conn.Headline, conn.ProfileURL,
			conn.ProfileImageURL, conn.ConnectionSource, conn.ConnectionDegree,
			conn.CompanyName, conn.CompanyURL, conn.MutualConnections, conn.Location, conn.CreatedAt); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO company_connections (id, session_id, company_id, connection_id, connection_path, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			link.ID, link.SessionID, link.CompanyID, link.ConnectionID, link.ConnectionPath, link.CreatedAt)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("store: link company connection: %w", err)
	}
	return link, nil
}

// SessionConnections returns all connections for a session.
func (s *Store) SessionConnections(ctx context.Context, sessionID string) ([]*Connection, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, session_id, name, headline, profile_url, profile_image_url,
		       connection_source, connection_degree, company_name, company_url,
		       mutual_connections, location, created_at
		FROM connections WHERE session_id = ? ORDER BY created_at ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("store: session connections: %w", err)
	}
	defer rows.Close()

	var conns []*Connection
	for rows.Next() {
		c := &Connection{}
		if err := rows.Scan(
			&c.ID, &c.SessionID, &c.Name, &c.Headline, &c.ProfileURL, &c.ProfileImageURL,
			&c.ConnectionSource, &c.ConnectionDegree, &c.CompanyName, &c.CompanyURL,
			&c.MutualConnections, &c.Location, &c.CreatedAt); err != nil {
			return nil, err
		}
		conns = append(conns, c)
	}
	return conns, rows.Err()
}

// SessionResult is one row of the joined view the results UI renders.
type SessionResult struct {
	CompanyID          string `json:"company_id"`
	CompanyName        string `json:"company_name"`
	CompanyURL         string `json:"company_url"`
	CompanyLogoURL     string `json:"company_logo_url,omitempty"`
	CompanyDescription string `json:"company_description,omitempty"`
	ConnectionID       string `json:"connection_id"`
	ConnectionName     string `json:"connection_name"`
	ConnectionHeadline string `json:"connection_headline,omitempty"`
	ProfileURL         string `json:"profile_url,omitempty"`
	ConnectionDegree   int    `json:"connection_degree"`
	ConnectionPath     string `json:"connection_path"`
}

// SessionResults returns the company/connection join for one session.
func (s *Store) SessionResults(ctx context.Context, sessionID string) ([]*SessionResult, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT cc.company_id, co.name, co.linkedin_url, co.logo_url, co.description,
		       cc.connection_id, cn.name, cn.headline, cn.profile_url,
		       cn.connection_degree, cc.connection_path
		FROM company_connections cc
		JOIN companies co ON co.id = cc.company_id
		JOIN connections cn ON cn.id = cc.connection_id
		WHERE cc.session_id = ?
		ORDER BY co.name, cn.name`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("store: session results: %w", err)
	}
	defer rows.Close()

	var results []*SessionResult
	for rows.Next() {
		r := &SessionResult{}
		if err := rows.Scan(
			&r.CompanyID, &r.CompanyName, &r.CompanyURL, &r.CompanyLogoURL, &r.CompanyDescription,
			&r.ConnectionID, &r.ConnectionName, &r.ConnectionHeadline, &r.ProfileURL,
			&r.ConnectionDegree, &r.ConnectionPath); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
