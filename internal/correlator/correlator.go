// internal/correlator/correlator.go

// Package correlator ingests commit/pull-request activity events,
// resolves "Ref #<id>" task references, records idempotent link rows
// and drives pipeline transitions triggered by external activity. It
// never moves a task past CODE_REVIEW; finishing work is the
// simulation engine's job.
package correlator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"devsprint-service/internal/apperrors"
	"devsprint-service/internal/database"
	"devsprint-service/internal/model"
	"devsprint-service/internal/pipeline"
)

// Result reports the net effect of one ingested event. Replaying the
// same payload yields a zero Result.
type Result struct {
	LinksCreated      int `json:"links_created"`
	TasksTransitioned int `json:"tasks_transitioned"`
}

// Correlator ties external activity to tasks.
type Correlator struct {
	dbpool *pgxpool.Pool
	logger *slog.Logger
}

func New(dbpool *pgxpool.Pool, logger *slog.Logger) *Correlator {
	return &Correlator{dbpool: dbpool, logger: logger}
}

// Ingest validates and applies one activity event inside a single
// transaction serialized against the simulation engine per sprint.
func (c *Correlator) Ingest(ctx context.Context, event model.ActivityEvent) (Result, error) {
	if err := validate(event); err != nil {
		return Result{}, err
	}

	tx, err := c.dbpool.Begin(ctx)
	if err != nil {
		return Result{}, err
	}
	defer tx.Rollback(ctx)

	res, err := c.ingest(ctx, database.New(tx), event)
	if err != nil {
		return Result{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Result{}, err
	}
	return res, nil
}

// validate checks the payload's structural fields. Unresolvable task
// references are NOT a validation concern.
func validate(event model.ActivityEvent) error {
	if strings.TrimSpace(event.RepoName) == "" {
		return apperrors.MalformedPayloadf("activity event missing repository name")
	}
	for i, commit := range event.Commits {
		if strings.TrimSpace(commit.Hash) == "" {
			return apperrors.MalformedPayloadf("commit %d missing hash", i)
		}
	}
	if event.PullRequest != nil && strings.TrimSpace(event.PullRequest.URL) == "" {
		return apperrors.MalformedPayloadf("pull request missing URL")
	}
	return nil
}

func (c *Correlator) ingest(ctx context.Context, q database.Querier, event model.ActivityEvent) (Result, error) {
	refs := taskRefs(event)
	if len(refs) == 0 {
		c.logger.Info("Activity event carried no task references", "repo", event.RepoName)
		return Result{}, nil
	}

	// The first read only determines which sprints to serialize on.
	tasks, err := q.ListTasksByIDs(ctx, refs)
	if err != nil {
		return Result{}, err
	}
	if len(tasks) == 0 {
		c.logger.Info("Activity event resolved no tasks", "repo", event.RepoName)
		return Result{}, nil
	}

	if err := c.lockSprints(ctx, q, tasks); err != nil {
		return Result{}, err
	}

	// A simulation day step can commit while we wait on the lock, so
	// transition decisions must come from rows re-read under it.
	tasks, err = q.ListTasksByIDs(ctx, refs)
	if err != nil {
		return Result{}, err
	}

	var res Result
	repoName := &event.RepoName
	touchedStories := make(map[int64]bool)

	for _, task := range tasks {
		for _, commit := range event.Commits {
			created, err := q.CreateCommitLink(ctx, database.CreateCommitLinkParams{
				TaskID:     task.ID,
				CommitHash: commit.Hash,
				RepoName:   repoName,
			})
			if err != nil {
				return Result{}, err
			}
			if created {
				res.LinksCreated++
			}
		}

		switch {
		case event.PullRequest != nil:
			created, err := q.CreatePRLink(ctx, database.CreatePRLinkParams{
				TaskID:   task.ID,
				PRURL:    event.PullRequest.URL,
				RepoName: repoName,
			})
			if err != nil {
				return Result{}, err
			}
			if created {
				res.LinksCreated++
			}
			// A pull request means the work is up for review, wherever
			// the task currently sits before CODE_REVIEW.
			if next, ok := pipeline.ForceCodeReview(task.Status); ok {
				if err := q.SetTaskStatus(ctx, task.ID, next); err != nil {
					return Result{}, err
				}
				res.TasksTransitioned++
				touchedStories[task.StoryID] = true
			}
		case len(event.Commits) > 0 && task.Status == model.TaskTodo:
			// Commits alone signal that work has started.
			if err := q.SetTaskStatus(ctx, task.ID, model.TaskInProgress); err != nil {
				return Result{}, err
			}
			res.TasksTransitioned++
			touchedStories[task.StoryID] = true
		}
	}

	for _, storyID := range sortedKeys(touchedStories) {
		if err := q.SyncStoryStatus(ctx, storyID); err != nil {
			return Result{}, err
		}
	}

	c.logger.Info("Activity event ingested",
		"repo", event.RepoName,
		"tasks_resolved", len(tasks),
		"links_created", res.LinksCreated,
		"tasks_transitioned", res.TasksTransitioned)
	return res, nil
}

// taskRefs collects the distinct referenced ids from commit messages
// and pull-request text, in first-mention order.
func taskRefs(event model.ActivityEvent) []int64 {
	var refs []int64
	seen := make(map[int64]bool)
	collect := func(text string) {
		for _, id := range ExtractTaskRefs(text) {
			if !seen[id] {
				seen[id] = true
				refs = append(refs, id)
			}
		}
	}

	for _, commit := range event.Commits {
		collect(commit.Message)
	}
	if event.PullRequest != nil {
		collect(fmt.Sprintf("%s\n%s", event.PullRequest.Title, event.PullRequest.Body))
	}
	return refs
}

// lockSprints serializes against the simulation engine for every
// sprint the resolved tasks belong to, in ascending sprint id order
// so two concurrent ingests cannot deadlock.
func (c *Correlator) lockSprints(ctx context.Context, q database.Querier, tasks []model.Task) error {
	sprintIDs := make(map[int64]bool)
	for _, task := range tasks {
		sprintID, err := q.SprintIDForTask(ctx, task.ID)
		if err != nil {
			return err
		}
		if sprintID != nil {
			sprintIDs[*sprintID] = true
		}
	}
	for _, id := range sortedKeys(sprintIDs) {
		if err := q.AcquireSprintLock(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func sortedKeys(m map[int64]bool) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
