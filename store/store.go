// Package store provides the SQLite persistence layer for crawl sessions,
// discovered companies, discovered people, and the links between them.
//
// Companies are a shared cross-session cache deduplicated by profile URL.
// Connections and company links are scoped to one session and removed by
// cascade when the session is deleted.
package store

import (
	"database/sql"

	"github.com/hazyhaar/netweave/dbopen"
	"github.com/hazyhaar/netweave/idgen"
)

// Store is the netweave database handle.
type Store struct {
	DB *sql.DB

	newSessionID    idgen.Generator
	newCompanyID    idgen.Generator
	newConnectionID idgen.Generator
	newLinkID       idgen.Generator
}

// Open opens (or creates) the netweave SQLite database at path, applies
// pragmas, the schema, and the additive column migrations.
func Open(path string, opts ...dbopen.Option) (*Store, error) {
	allOpts := append([]dbopen.Option{dbopen.WithMkdirAll()}, opts...)

	db, err := dbopen.Open(path, allOpts...)
	if err != nil {
		return nil, err
	}
	if err := ApplySchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return New(db), nil
}

// New wraps an already-open database. The caller is responsible for having
// applied the schema (tests use dbopen.OpenMemory + ApplySchema).
func New(db *sql.DB) *Store {
	return &Store{
		DB:              db,
		newSessionID:    idgen.Prefixed("ses_", idgen.Default),
		newCompanyID:    idgen.Prefixed("cmp_", idgen.Default),
		newConnectionID: idgen.Prefixed("con_", idgen.Default),
		newLinkID:       idgen.Prefixed("ccx_", idgen.Default),
	}
}

// Close closes the database.
func (s *Store) Close() error {
	return s.DB.Close()
}

func nullInt(v int) sql.NullInt64 {
	if v == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(v), Valid: true}
}
