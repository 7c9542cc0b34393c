// internal/database/querier.go
package database

import (
	"context"
	"time"

	"devsprint-service/internal/model"
)

// Querier is the persistence contract consumed by the simulation
// engine, the activity correlator, the poller and the API layer.
// Row-not-found is reported as pgx.ErrNoRows; callers translate it
// into the service error taxonomy at their boundary.
type Querier interface {
	// sprints
	CreateSprint(ctx context.Context, arg CreateSprintParams) (model.Sprint, error)
	GetSprint(ctx context.Context, id int64) (model.Sprint, error)
	GetActiveSprint(ctx context.Context) (model.Sprint, error)
	ListSprints(ctx context.Context) ([]model.Sprint, error)
	ListActiveSprints(ctx context.Context) ([]model.Sprint, error)
	UpdateSprint(ctx context.Context, arg UpdateSprintParams) (model.Sprint, error)
	SetSprintOffset(ctx context.Context, id int64, offsetDays int) error
	DeleteSprint(ctx context.Context, id int64) error
	AcquireSprintLock(ctx context.Context, sprintID int64) error

	// user stories
	CreateStory(ctx context.Context, arg CreateStoryParams) (model.UserStory, error)
	GetStory(ctx context.Context, id int64) (model.UserStory, error)
	ListStories(ctx context.Context) ([]model.UserStory, error)
	ListStoriesBySprint(ctx context.Context, sprintID int64) ([]model.UserStory, error)
	GetTechDebtStory(ctx context.Context, sprintID int64) (model.UserStory, error)
	UpdateStory(ctx context.Context, arg UpdateStoryParams) (model.UserStory, error)
	SyncStoryStatus(ctx context.Context, storyID int64) error
	DeleteStory(ctx context.Context, id int64) error

	// tasks
	CreateTask(ctx context.Context, arg CreateTaskParams) (model.Task, error)
	GetTask(ctx context.Context, id int64) (model.Task, error)
	ListTasks(ctx context.Context) ([]model.Task, error)
	ListTasksByStory(ctx context.Context, storyID int64) ([]model.Task, error)
	ListTasksByIDs(ctx context.Context, ids []int64) ([]model.Task, error)
	ListUnfinishedTasksBySprint(ctx context.Context, sprintID int64) ([]model.Task, error)
	ListTasksInReview(ctx context.Context) ([]model.Task, error)
	UpdateTask(ctx context.Context, arg UpdateTaskParams) (model.Task, error)
	SetTaskStatus(ctx context.Context, id int64, status model.TaskStatus) error
	DeleteTask(ctx context.Context, id int64) error
	CountTasksBySprint(ctx context.Context, sprintID int64) (int64, error)
	SumRemainingPoints(ctx context.Context, sprintID int64) (int, error)
	SprintIDForTask(ctx context.Context, taskID int64) (*int64, error)

	// github links
	CreateCommitLink(ctx context.Context, arg CreateCommitLinkParams) (bool, error)
	CreatePRLink(ctx context.Context, arg CreatePRLinkParams) (bool, error)
	ListLinksByTask(ctx context.Context, taskID int64) ([]model.GithubLink, error)

	// burndown snapshots
	UpsertSnapshot(ctx context.Context, arg UpsertSnapshotParams) error
	ListSnapshots(ctx context.Context, sprintID int64) ([]model.BurndownSnapshot, error)

	// poller cursors
	GetRepoCursor(ctx context.Context, repoName string) (time.Time, error)
	UpsertRepoCursor(ctx context.Context, repoName string, lastSyncedAt time.Time) error
}

var _ Querier = (*Queries)(nil)
