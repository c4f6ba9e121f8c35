// Package db bootstraps the PostgreSQL database of the web gateway and keeps
// it tidy.
package db

import (
	"database/sql"

	"github.com/cockroachdb/errors"
	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS visitor_sessions (
    visitor_id TEXT NOT NULL,
    key TEXT NOT NULL,
    value TEXT NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (visitor_id, key)
);

CREATE INDEX IF NOT EXISTS visitor_sessions_updated_at_idx ON visitor_sessions (updated_at);
`

// InitPostgres opens dsn, checks the connection and creates the schema.
func InitPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ping postgres")
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create schema")
	}

	return db, nil
}
