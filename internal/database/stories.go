// internal/database/stories.go
package database

import (
	"context"

	"devsprint-service/internal/model"

	"github.com/jackc/pgx/v5"
)

const storyColumns = `id, sprint_id, title, description, story_points, priority, is_tech_debt, status, created_at, updated_at`

func scanStory(row pgx.Row) (model.UserStory, error) {
	var s model.UserStory
	err := row.Scan(&s.ID, &s.SprintID, &s.Title, &s.Description, &s.StoryPoints,
		&s.Priority, &s.IsTechDebt, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func (q *Queries) collectStories(ctx context.Context, sql string, args ...any) ([]model.UserStory, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stories []model.UserStory
	for rows.Next() {
		s, err := scanStory(rows)
		if err != nil {
			return nil, err
		}
		stories = append(stories, s)
	}
	return stories, rows.Err()
}

type CreateStoryParams struct {
	SprintID    *int64
	Title       string
	Description *string
	StoryPoints int
	Priority    int
	IsTechDebt  bool
	Status      model.StoryStatus
}

func (q *Queries) CreateStory(ctx context.Context, arg CreateStoryParams) (model.UserStory, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO user_stories (sprint_id, title, description, story_points, priority, is_tech_debt, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+storyColumns,
		arg.SprintID, arg.Title, arg.Description, arg.StoryPoints, arg.Priority, arg.IsTechDebt, arg.Status)
	return scanStory(row)
}

func (q *Queries) GetStory(ctx context.Context, id int64) (model.UserStory, error) {
	row := q.db.QueryRow(ctx, `SELECT `+storyColumns+` FROM user_stories WHERE id = $1`, id)
	return scanStory(row)
}

func (q *Queries) ListStories(ctx context.Context) ([]model.UserStory, error) {
	return q.collectStories(ctx, `SELECT `+storyColumns+` FROM user_stories ORDER BY id`)
}

func (q *Queries) ListStoriesBySprint(ctx context.Context, sprintID int64) ([]model.UserStory, error) {
	return q.collectStories(ctx, `
		SELECT `+storyColumns+` FROM user_stories
		WHERE sprint_id = $1
		ORDER BY priority, id`, sprintID)
}

// GetTechDebtStory returns the sprint's flagged tech-debt story, used
// as the attachment point for synthesized tasks.
func (q *Queries) GetTechDebtStory(ctx context.Context, sprintID int64) (model.UserStory, error) {
	row := q.db.QueryRow(ctx, `
		SELECT `+storyColumns+` FROM user_stories
		WHERE sprint_id = $1 AND is_tech_debt = TRUE
		ORDER BY priority, id
		LIMIT 1`, sprintID)
	return scanStory(row)
}

type UpdateStoryParams struct {
	ID          int64
	SprintID    *int64
	Title       string
	Description *string
	StoryPoints int
	Priority    int
	IsTechDebt  bool
	Status      model.StoryStatus
}

func (q *Queries) UpdateStory(ctx context.Context, arg UpdateStoryParams) (model.UserStory, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE user_stories
		SET sprint_id = $2, title = $3, description = $4, story_points = $5,
		    priority = $6, is_tech_debt = $7, status = $8, updated_at = now()
		WHERE id = $1
		RETURNING `+storyColumns,
		arg.ID, arg.SprintID, arg.Title, arg.Description, arg.StoryPoints,
		arg.Priority, arg.IsTechDebt, arg.Status)
	return scanStory(row)
}

// SyncStoryStatus recomputes a story's status from its tasks: all
// tasks DONE -> DONE, any task past TODO -> ACTIVE, else PLANNED.
// Stories with no tasks are left alone.
func (q *Queries) SyncStoryStatus(ctx context.Context, storyID int64) error {
	_, err := q.db.Exec(ctx, `
		UPDATE user_stories s
		SET status = CASE
			WHEN NOT EXISTS (
				SELECT 1 FROM tasks t WHERE t.story_id = s.id AND t.status <> $2
			) THEN $3
			WHEN EXISTS (
				SELECT 1 FROM tasks t WHERE t.story_id = s.id AND t.status IN ($4, $5)
			) THEN $6
			ELSE $7
		END,
		updated_at = now()
		WHERE s.id = $1
		  AND EXISTS (SELECT 1 FROM tasks t WHERE t.story_id = s.id)`,
		storyID,
		model.TaskDone, model.StoryDone,
		model.TaskInProgress, model.TaskCodeReview, model.StoryActive,
		model.StoryPlanned)
	return err
}

func (q *Queries) DeleteStory(ctx context.Context, id int64) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM user_stories WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
