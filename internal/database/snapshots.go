// internal/database/snapshots.go
package database

import (
	"context"
	"time"

	"devsprint-service/internal/model"
)

type UpsertSnapshotParams struct {
	SprintID        int64
	SnapshotDate    time.Time
	RemainingPoints int
}

// UpsertSnapshot records one burndown measurement per (sprint, date).
// Re-simulating a day replaces the prior value, which makes a replay
// corrective rather than an error.
func (q *Queries) UpsertSnapshot(ctx context.Context, arg UpsertSnapshotParams) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO burndown_snapshots (sprint_id, snapshot_date, remaining_points)
		VALUES ($1, $2, $3)
		ON CONFLICT (sprint_id, snapshot_date)
		DO UPDATE SET remaining_points = EXCLUDED.remaining_points`,
		arg.SprintID, arg.SnapshotDate, arg.RemainingPoints)
	return err
}

// ListSnapshots returns the sprint's series in ascending date order,
// one row per date, ready for chart consumption.
func (q *Queries) ListSnapshots(ctx context.Context, sprintID int64) ([]model.BurndownSnapshot, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, sprint_id, snapshot_date, remaining_points
		FROM burndown_snapshots
		WHERE sprint_id = $1
		ORDER BY snapshot_date`, sprintID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []model.BurndownSnapshot
	for rows.Next() {
		var s model.BurndownSnapshot
		if err := rows.Scan(&s.ID, &s.SprintID, &s.SnapshotDate, &s.RemainingPoints); err != nil {
			return nil, err
		}
		snaps = append(snaps, s)
	}
	return snaps, rows.Err()
}
