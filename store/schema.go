package store

import (
	"database/sql"
	"fmt"
)

// Schema contains the complete DDL for the netweave tables.
const Schema = `
-- Crawl sessions: one row per crawl run
CREATE TABLE IF NOT EXISTS crawl_sessions (
    id                    TEXT PRIMARY KEY,
    mode                  TEXT NOT NULL,
    status                TEXT NOT NULL DEFAULT 'pending',
    progress              INTEGER NOT NULL DEFAULT 0,
    total_connections     INTEGER,
    processed_connections INTEGER,
    error_message         TEXT NOT NULL DEFAULT '',
    created_at            INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_created ON crawl_sessions(created_at DESC);

-- Companies: cross-session cache, deduplicated by profile URL
CREATE TABLE IF NOT EXISTS companies (
    id           TEXT PRIMARY KEY,
    name         TEXT NOT NULL,
    linkedin_url TEXT NOT NULL UNIQUE,
    logo_url     TEXT NOT NULL DEFAULT '',
    description  TEXT NOT NULL DEFAULT '',
    industry     TEXT NOT NULL DEFAULT '',
    size         TEXT NOT NULL DEFAULT '',
    location     TEXT NOT NULL DEFAULT '',
    website      TEXT NOT NULL DEFAULT '',
    created_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_companies_url ON companies(linkedin_url);

-- Connections: people discovered during one session
CREATE TABLE IF NOT EXISTS connections (
    id                TEXT PRIMARY KEY,
    session_id        TEXT NOT NULL,
    name              TEXT NOT NULL CHECK (name != ''),
    headline          TEXT NOT NULL DEFAULT '',
    profile_url       TEXT NOT NULL DEFAULT '',
    profile_image_url TEXT NOT NULL DEFAULT '',
    connection_source TEXT NOT NULL DEFAULT '',
    connection_degree INTEGER NOT NULL DEFAULT 1 CHECK (connection_degree IN (1, 2)),
    company_name      TEXT NOT NULL DEFAULT '',
    company_url       TEXT NOT NULL DEFAULT '',
    created_at        INTEGER NOT NULL,
    FOREIGN KEY (session_id) REFERENCES crawl_sessions(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_connections_session ON connections(session_id);

-- Junction: which connection relates to which company, per session
CREATE TABLE IF NOT EXISTS company_connections (
    id              TEXT PRIMARY KEY,
    session_id      TEXT NOT NULL,
    company_id      TEXT NOT NULL,
    connection_id   TEXT NOT NULL,
    connection_path TEXT NOT NULL DEFAULT '',
    created_at      INTEGER NOT NULL,
    FOREIGN KEY (session_id) REFERENCES crawl_sessions(id) ON DELETE CASCADE,
    FOREIGN KEY (company_id) REFERENCES companies(id) ON DELETE CASCADE,
    FOREIGN KEY (connection_id) REFERENCES connections(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_cc_session ON company_connections(session_id);
CREATE INDEX IF NOT EXISTS idx_cc_company ON company_connections(company_id);

-- Settings overlay: durable key/value pairs editable from the UI
CREATE TABLE IF NOT EXISTS settings (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL,
    updated_at INTEGER NOT NULL
);
`

// ApplySchema executes the DDL and the additive column migrations.
// Idempotent: safe to run on every open.
func ApplySchema(db *sql.DB) error {
	if _, err := db.Exec(Schema); err != nil {
		return fmt.Errorf("store: apply schema: %w", err)
	}
	return migrateColumns(db)
}

// migrateColumns applies additive, idempotent column migrations. The
// database is a long-lived local file reused across versions, so every
// column added after the first release is probed via pragma_table_info
// before ALTER TABLE.
func migrateColumns(db *sql.DB) error {
	cols := []struct{ table, name, ddl string }{
		{"connections", "mutual_connections",
			"ALTER TABLE connections ADD COLUMN mutual_connections TEXT NOT NULL DEFAULT ''"},
		{"connections", "location",
			"ALTER TABLE connections ADD COLUMN location TEXT NOT NULL DEFAULT ''"},
	}
	for _, c := range cols {
		var count int
		err := db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, c.table, c.name).Scan(&count)
		if err != nil {
			return fmt.Errorf("store: probe column %s.%s: %w", c.table, c.name, err)
		}
		if count == 0 {
			if _, err := db.Exec(c.ddl); err != nil {
				return fmt.Errorf("store: add column %s.%s: %w", c.table, c.name, err)
			}
		}
	}
	return nil
}
