// Package repository provides PostgreSQL persistence for visitor sessions of
// the web gateway.
package repository

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/atinyakov/JobBoard/internal/client/storage"
	"github.com/cockroachdb/errors"
	"github.com/lib/pq"
)

// PostgresSessionRepository stores session key/value pairs per visitor.
type PostgresSessionRepository struct {
	// DB is the database handle for executing queries and transactions.
	DB *sql.DB
}

// NewPostgresSessionRepository creates a repository over db.
func NewPostgresSessionRepository(db *sql.DB) *PostgresSessionRepository {
	return &PostgresSessionRepository{DB: db}
}

// Get returns the value stored under key for visitorID.
//
//	ctx:       context for cancellation and deadlines
//	visitorID: identifier of the visitor
//	key:       session key
//
// The boolean is false when no such row exists.
func (r *PostgresSessionRepository) Get(ctx context.Context, visitorID, key string) (string, bool, error) {
	var value string
	err := r.DB.QueryRowContext(ctx, `
		SELECT value FROM visitor_sessions WHERE visitor_id = $1 AND key = $2
	`, visitorID, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "get session value")
	}
	return value, true, nil
}

// Put upserts all values for visitorID in one transaction.
func (r *PostgresSessionRepository) Put(ctx context.Context, visitorID string, values map[string]string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO visitor_sessions (visitor_id, key, value, updated_at)
			VALUES ($1, $2, $3, now())
			ON CONFLICT (visitor_id, key) DO UPDATE SET
				value = EXCLUDED.value,
				updated_at = EXCLUDED.updated_at
		`, visitorID, k, values[k])
		if err != nil {
			return errors.Wrap(err, "upsert session value")
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit")
	}
	return nil
}

// Delete removes keys for visitorID. Missing keys are ignored.
func (r *PostgresSessionRepository) Delete(ctx context.Context, visitorID string, keys []string) error {
	_, err := r.DB.ExecContext(ctx, `
		DELETE FROM visitor_sessions WHERE visitor_id = $1 AND key = ANY($2)
	`, visitorID, pq.Array(keys))
	if err != nil {
		return errors.Wrap(err, "delete session values")
	}
	return nil
}

// Touch marks every row of visitorID as used now so the idle cleaner keeps
// them. A visitor without rows is left alone.
func (r *PostgresSessionRepository) Touch(ctx context.Context, visitorID string) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE visitor_sessions SET updated_at = now() WHERE visitor_id = $1
	`, visitorID)
	if err != nil {
		return errors.Wrap(err, "touch session")
	}
	return nil
}

// VisitorStore adapts the repository to storage.Store for one visitor.
// Each call runs with its own timeout since Store methods carry no context.
type VisitorStore struct {
	repo      *PostgresSessionRepository
	visitorID string
	timeout   time.Duration
}

var _ storage.Store = (*VisitorStore)(nil)

// ForVisitor returns the store of visitorID.
func (r *PostgresSessionRepository) ForVisitor(visitorID string, timeout time.Duration) *VisitorStore {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &VisitorStore{repo: r, visitorID: visitorID, timeout: timeout}
}

func (s *VisitorStore) Get(key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.repo.Get(ctx, s.visitorID, key)
}

func (s *VisitorStore) Put(values map[string]string) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.repo.Put(ctx, s.visitorID, values)
}

func (s *VisitorStore) Delete(keys ...string) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.repo.Delete(ctx, s.visitorID, keys)
}

// Touch records activity of the visitor.
func (s *VisitorStore) Touch() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.repo.Touch(ctx, s.visitorID)
}
