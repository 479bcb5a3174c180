package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Crawl modes.
const (
	ModeFirstConnections = "first_connections"
	ModeFriendsOfFriends = "friends_of_friends"
)

// Session statuses.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// CrawlSession is one crawl run. Mutated only by the orchestrator; never
// mutated after reaching a terminal status except by deletion.
type CrawlSession struct {
	ID                   string `json:"id"`
	Mode                 string `json:"mode"`
	Status               string `json:"status"`
	Progress             int    `json:"progress"`
	TotalConnections     int    `json:"total_connections,omitempty"`
	ProcessedConnections int    `json:"processed_connections,omitempty"`
	ErrorMessage         string `json:"error_message,omitempty"`
	CreatedAt            int64  `json:"created_at"`
}

// ValidMode reports whether mode is a recognised crawl mode.
func ValidMode(mode string) bool {
	return mode == ModeFirstConnections || mode == ModeFriendsOfFriends
}

// CreateSession inserts a new pending session and returns it.
func (s *Store) CreateSession(ctx context.Context, mode string) (*CrawlSession, error) {
	if !ValidMode(mode) {
		return nil, fmt.Errorf("store: unknown crawl mode %q", mode)
	}
	sess := &CrawlSession{
		ID:        s.newSessionID(),
		Mode:      mode,
		Status:    StatusPending,
		CreatedAt: time.Now().UnixMilli(),
	}
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO crawl_sessions (id, mode, status, progress, error_message, created_at)
		VALUES (?, ?, ?, 0, '', ?)`,
		sess.ID, sess.Mode, sess.Status, sess.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("store: create session: %w", err)
	}
	return sess, nil
}

// GetSession retrieves a session by ID. Returns (nil, nil) when absent.
func (s *Store) GetSession(ctx context.Context, id string) (*CrawlSession, error) {
	sess := &CrawlSession{}
	var total, processed sql.NullInt64
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, mode, status, progress, total_connections, processed_connections,
		       error_message, created_at
		FROM crawl_sessions WHERE id = ?`, id).Scan(
		&sess.ID, &sess.Mode, &sess.Status, &sess.Progress, &total, &processed,
		&sess.ErrorMessage, &sess.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get session: %w", err)
	}
	sess.TotalConnections = int(total.Int64)
	sess.ProcessedConnections = int(processed.Int64)
	return sess, nil
}

// ListSessions returns all sessions, newest first.
func (s *Store) ListSessions(ctx context.Context) ([]*CrawlSession, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, mode, status, progress, total_connections, processed_connections,
		       error_message, created_at
		FROM crawl_sessions ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("store: list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*CrawlSession
	for rows.Next() {
		sess := &CrawlSession{}
		var total, processed sql.NullInt64
		if err := rows.Scan(
			&sess.ID, &sess.Mode, &sess.Status, &sess.Progress, &total, &processed,
			&sess.ErrorMessage, &sess.CreatedAt); err != nil {
			return nil, err
		}
		sess.TotalConnections = int(total.Int64)
		sess.ProcessedConnections = int(processed.Int64)
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// UpdateSessionStatus sets the status and error message. Progress is left
// untouched so a failed session keeps its last reported value.
func (s *Store) UpdateSessionStatus(ctx context.Context, id, status, errMsg string) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE crawl_sessions SET status = ?, error_message = ? WHERE id = ?`,
		status, errMsg, id)
	if err != nil {
		return fmt.Errorf("store: update session status: %w", err)
	}
	return nil
}

// UpdateSessionProgress records the latest progress checkpoint (0-100).
func (s *Store) UpdateSessionProgress(ctx context.Context, id string, progress int) error {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	_, err := s.DB.ExecContext(ctx, `
		UPDATE crawl_sessions SET progress = ? WHERE id = ?`, progress, id)
	if err != nil {
		return fmt.Errorf("store: update session progress: %w", err)
	}
	return nil
}

// UpdateSessionCounts records total/processed connection counts.
func (s *Store) UpdateSessionCounts(ctx context.Context, id string, total, processed int) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE crawl_sessions SET total_connections = ?, processed_connections = ? WHERE id = ?`,
		nullInt(total), nullInt(processed), id)
	if err != nil {
		return fmt.Errorf("store: update session counts: %w", err)
	}
	return nil
}

// DeleteSession removes a session. Connections and company links cascade;
// companies are a shared cache and survive.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM crawl_sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete session: %w", err)
	}
	return nil
}
