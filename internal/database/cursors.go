// internal/database/cursors.go
package database

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

// GetRepoCursor returns the poller's high-water mark for a repository.
// The zero time means the repository has never been polled.
func (q *Queries) GetRepoCursor(ctx context.Context, repoName string) (time.Time, error) {
	var t time.Time
	err := q.db.QueryRow(ctx, `
		SELECT last_synced_at FROM repo_cursors WHERE repo_name = $1`, repoName).Scan(&t)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, nil
	}
	return t, err
}

func (q *Queries) UpsertRepoCursor(ctx context.Context, repoName string, lastSyncedAt time.Time) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO repo_cursors (repo_name, last_synced_at)
		VALUES ($1, $2)
		ON CONFLICT (repo_name)
		DO UPDATE SET last_synced_at = EXCLUDED.last_synced_at`,
		repoName, lastSyncedAt)
	return err
}
