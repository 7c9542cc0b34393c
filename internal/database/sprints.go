// internal/database/sprints.go
package database

import (
	"context"
	"time"

	"devsprint-service/internal/model"

	"github.com/jackc/pgx/v5"
)

const sprintColumns = `id, name, goal, start_date, end_date, status, simulated_offset_days, created_at, updated_at`

func scanSprint(row pgx.Row) (model.Sprint, error) {
	var s model.Sprint
	err := row.Scan(&s.ID, &s.Name, &s.Goal, &s.StartDate, &s.EndDate,
		&s.Status, &s.SimulatedOffsetDays, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

type CreateSprintParams struct {
	Name      string
	Goal      *string
	StartDate time.Time
	EndDate   time.Time
	Status    model.SprintStatus
}

func (q *Queries) CreateSprint(ctx context.Context, arg CreateSprintParams) (model.Sprint, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO sprints (name, goal, start_date, end_date, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+sprintColumns,
		arg.Name, arg.Goal, arg.StartDate, arg.EndDate, arg.Status)
	return scanSprint(row)
}

func (q *Queries) GetSprint(ctx context.Context, id int64) (model.Sprint, error) {
	row := q.db.QueryRow(ctx, `SELECT `+sprintColumns+` FROM sprints WHERE id = $1`, id)
	return scanSprint(row)
}

// GetActiveSprint returns the earliest-starting ACTIVE sprint.
func (q *Queries) GetActiveSprint(ctx context.Context) (model.Sprint, error) {
	row := q.db.QueryRow(ctx, `
		SELECT `+sprintColumns+` FROM sprints
		WHERE status = $1
		ORDER BY start_date, id
		LIMIT 1`, model.SprintActive)
	return scanSprint(row)
}

func (q *Queries) ListSprints(ctx context.Context) ([]model.Sprint, error) {
	rows, err := q.db.Query(ctx, `SELECT `+sprintColumns+` FROM sprints ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sprints []model.Sprint
	for rows.Next() {
		s, err := scanSprint(rows)
		if err != nil {
			return nil, err
		}
		sprints = append(sprints, s)
	}
	return sprints, rows.Err()
}

// ListActiveSprints returns every ACTIVE sprint, for the daily
// snapshot capture pass.
func (q *Queries) ListActiveSprints(ctx context.Context) ([]model.Sprint, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+sprintColumns+` FROM sprints
		WHERE status = $1
		ORDER BY id`, model.SprintActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sprints []model.Sprint
	for rows.Next() {
		s, err := scanSprint(rows)
		if err != nil {
			return nil, err
		}
		sprints = append(sprints, s)
	}
	return sprints, rows.Err()
}

type UpdateSprintParams struct {
	ID        int64
	Name      string
	Goal      *string
	StartDate time.Time
	EndDate   time.Time
	Status    model.SprintStatus
}

func (q *Queries) UpdateSprint(ctx context.Context, arg UpdateSprintParams) (model.Sprint, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE sprints
		SET name = $2, goal = $3, start_date = $4, end_date = $5, status = $6, updated_at = now()
		WHERE id = $1
		RETURNING `+sprintColumns,
		arg.ID, arg.Name, arg.Goal, arg.StartDate, arg.EndDate, arg.Status)
	return scanSprint(row)
}

// SetSprintOffset persists the simulated-day offset; the date range
// is deliberately untouched.
func (q *Queries) SetSprintOffset(ctx context.Context, id int64, offsetDays int) error {
	tag, err := q.db.Exec(ctx, `
		UPDATE sprints SET simulated_offset_days = $2, updated_at = now()
		WHERE id = $1`, id, offsetDays)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (q *Queries) DeleteSprint(ctx context.Context, id int64) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM sprints WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
