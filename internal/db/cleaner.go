package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// CleanIdleSessions deletes every visitor whose session rows were all last
// written or touched before now minus retention. It returns the number of
// rows removed.
func CleanIdleSessions(ctx context.Context, db *sql.DB, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	res, err := db.ExecContext(ctx, `
		DELETE FROM visitor_sessions
		 WHERE visitor_id IN (
			SELECT visitor_id FROM visitor_sessions
			 GROUP BY visitor_id
			HAVING MAX(updated_at) < $1
		 )
	`, cutoff)
	if err != nil {
		return 0, errors.Wrap(err, "clean idle sessions")
	}
	rows, _ := res.RowsAffected()
	return rows, nil
}

// StartSessionCleaner runs CleanIdleSessions every interval until ctx is done.
func StartSessionCleaner(
	ctx context.Context,
	db *sql.DB,
	interval time.Duration,
	retention time.Duration,
	log *zap.Logger,
) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rows, err := CleanIdleSessions(ctx, db, retention)
				if err != nil {
					log.Error("failed to clean idle visitor sessions", zap.Error(err))
					continue
				}
				if rows > 0 {
					log.Info("cleaned idle visitor sessions", zap.Int64("removed", rows))
				}
			}
		}
	}()
}
