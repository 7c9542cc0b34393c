// internal/database/tasks.go
package database

import (
	"context"

	"devsprint-service/internal/model"

	"github.com/jackc/pgx/v5"
)

const taskColumns = `id, story_id, title, status, story_points, is_tech_debt, assignee, created_at, updated_at`

func scanTask(row pgx.Row) (model.Task, error) {
	var t model.Task
	err := row.Scan(&t.ID, &t.StoryID, &t.Title, &t.Status, &t.StoryPoints,
		&t.IsTechDebt, &t.Assignee, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (q *Queries) collectTasks(ctx context.Context, sql string, args ...any) ([]model.Task, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

type CreateTaskParams struct {
	StoryID     int64
	Title       string
	Status      model.TaskStatus
	StoryPoints int
	IsTechDebt  bool
	Assignee    *string
}

func (q *Queries) CreateTask(ctx context.Context, arg CreateTaskParams) (model.Task, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO tasks (story_id, title, status, story_points, is_tech_debt, assignee)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+taskColumns,
		arg.StoryID, arg.Title, arg.Status, arg.StoryPoints, arg.IsTechDebt, arg.Assignee)
	return scanTask(row)
}

func (q *Queries) GetTask(ctx context.Context, id int64) (model.Task, error) {
	row := q.db.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	return scanTask(row)
}

func (q *Queries) ListTasks(ctx context.Context) ([]model.Task, error) {
	return q.collectTasks(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY id`)
}

func (q *Queries) ListTasksByStory(ctx context.Context, storyID int64) ([]model.Task, error) {
	return q.collectTasks(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE story_id = $1
		ORDER BY id`, storyID)
}

// ListTasksByIDs resolves task references in bulk; unknown ids are
// simply absent from the result.
func (q *Queries) ListTasksByIDs(ctx context.Context, ids []int64) ([]model.Task, error) {
	return q.collectTasks(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE id = ANY($1)
		ORDER BY id`, ids)
}

// ListUnfinishedTasksBySprint returns the sprint's non-terminal tasks
// in ascending id order, the deterministic order the simulation
// advances them in.
func (q *Queries) ListUnfinishedTasksBySprint(ctx context.Context, sprintID int64) ([]model.Task, error) {
	return q.collectTasks(ctx, `
		SELECT t.id, t.story_id, t.title, t.status, t.story_points, t.is_tech_debt, t.assignee, t.created_at, t.updated_at
		FROM tasks t
		JOIN user_stories s ON s.id = t.story_id
		WHERE s.sprint_id = $1 AND t.status <> $2
		ORDER BY t.id`, sprintID, model.TaskDone)
}

// ListTasksInReview is the review queue across all sprints.
func (q *Queries) ListTasksInReview(ctx context.Context) ([]model.Task, error) {
	return q.collectTasks(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE status = $1
		ORDER BY id`, model.TaskCodeReview)
}

type UpdateTaskParams struct {
	ID          int64
	Title       string
	Status      model.TaskStatus
	StoryPoints int
	IsTechDebt  bool
	Assignee    *string
}

func (q *Queries) UpdateTask(ctx context.Context, arg UpdateTaskParams) (model.Task, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE tasks
		SET title = $2, status = $3, story_points = $4, is_tech_debt = $5, assignee = $6, updated_at = now()
		WHERE id = $1
		RETURNING `+taskColumns,
		arg.ID, arg.Title, arg.Status, arg.StoryPoints, arg.IsTechDebt, arg.Assignee)
	return scanTask(row)
}

func (q *Queries) SetTaskStatus(ctx context.Context, id int64, status model.TaskStatus) error {
	tag, err := q.db.Exec(ctx, `
		UPDATE tasks SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (q *Queries) DeleteTask(ctx context.Context, id int64) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// CountTasksBySprint counts every task in the sprint regardless of
// status. Tech-debt synthesis requires a non-zero count.
func (q *Queries) CountTasksBySprint(ctx context.Context, sprintID int64) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, `
		SELECT count(*)
		FROM tasks t
		JOIN user_stories s ON s.id = t.story_id
		WHERE s.sprint_id = $1`, sprintID).Scan(&n)
	return n, err
}

// SumRemainingPoints is the burndown measurement: story points of the
// sprint's tasks not yet DONE.
func (q *Queries) SumRemainingPoints(ctx context.Context, sprintID int64) (int, error) {
	var sum int
	err := q.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(t.story_points), 0)
		FROM tasks t
		JOIN user_stories s ON s.id = t.story_id
		WHERE s.sprint_id = $1 AND t.status <> $2`, sprintID, model.TaskDone).Scan(&sum)
	return sum, err
}

// SprintIDForTask walks task -> story -> sprint; nil when the task's
// story sits in the backlog.
func (q *Queries) SprintIDForTask(ctx context.Context, taskID int64) (*int64, error) {
	var sprintID *int64
	err := q.db.QueryRow(ctx, `
		SELECT s.sprint_id
		FROM tasks t
		JOIN user_stories s ON s.id = t.story_id
		WHERE t.id = $1`, taskID).Scan(&sprintID)
	return sprintID, err
}
