// internal/correlator/correlator_test.go
package correlator

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devsprint-service/internal/apperrors"
	"devsprint-service/internal/database"
	"devsprint-service/internal/database/databasetest"
	"devsprint-service/internal/model"
)

func TestExtractTaskRefs(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []int64
	}{
		{"single ref", "Ref #7 fix bug", []int64{7}},
		{"case insensitive", "REF #12 and ref #9", []int64{12, 9}},
		{"duplicates collapse", "Ref #5, ref #5 again", []int64{5}},
		{"multiline PR body", "Title line\nRef #3\n\nref  #4", []int64{3, 4}},
		{"no marker", "fix bug #7", nil},
		{"marker without id", "Ref # something", nil},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractTaskRefs(tt.text))
		})
	}
}

func testCorrelator() *Correlator {
	return New(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func seedTask(t *testing.T, fake *databasetest.Fake, status model.TaskStatus) model.Task {
	t.Helper()
	ctx := context.Background()

	sprint, err := fake.CreateSprint(ctx, database.CreateSprintParams{
		Name:      "Sprint 1",
		StartDate: time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC),
		Status:    model.SprintActive,
	})
	require.NoError(t, err)

	story, err := fake.CreateStory(ctx, database.CreateStoryParams{
		SprintID:    &sprint.ID,
		Title:       "Login hardening",
		StoryPoints: 5,
		Priority:    1,
		Status:      model.StoryPlanned,
	})
	require.NoError(t, err)

	task, err := fake.CreateTask(ctx, database.CreateTaskParams{
		StoryID:     story.ID,
		Title:       "Audit log on failure",
		Status:      status,
		StoryPoints: 3,
	})
	require.NoError(t, err)
	return task
}

func TestIngestValidation(t *testing.T) {
	c := testCorrelator()
	ctx := context.Background()

	tests := []struct {
		name  string
		event model.ActivityEvent
	}{
		{"missing repo", model.ActivityEvent{}},
		{"commit without hash", model.ActivityEvent{
			RepoName: "acme/app",
			Commits:  []model.CommitEvent{{Message: "Ref #1"}},
		}},
		{"pull request without URL", model.ActivityEvent{
			RepoName:    "acme/app",
			PullRequest: &model.PullRequestEvent{Title: "Ref #1"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Ingest(ctx, tt.event)
			assert.True(t, apperrors.IsMalformedPayload(err))
		})
	}
}

func TestIngestCommitStartsTodoTask(t *testing.T) {
	ctx := context.Background()
	c := testCorrelator()
	fake := databasetest.New()
	task := seedTask(t, fake, model.TaskTodo)

	event := model.ActivityEvent{
		RepoName: "acme/app",
		Commits:  []model.CommitEvent{{Hash: "7fd1a60b", Message: "Ref #3 fix bug"}},
	}
	require.Equal(t, int64(3), task.ID)

	res, err := c.ingest(ctx, fake, event)
	require.NoError(t, err)
	assert.Equal(t, Result{LinksCreated: 1, TasksTransitioned: 1}, res)

	got, _ := fake.GetTask(ctx, task.ID)
	assert.Equal(t, model.TaskInProgress, got.Status)

	links, _ := fake.ListLinksByTask(ctx, task.ID)
	require.Len(t, links, 1)
	require.NotNil(t, links[0].CommitHash)
	assert.Equal(t, "7fd1a60b", *links[0].CommitHash)
}

func TestIngestCommitLeavesStartedTaskAlone(t *testing.T) {
	ctx := context.Background()
	c := testCorrelator()
	fake := databasetest.New()
	task := seedTask(t, fake, model.TaskCodeReview)

	event := model.ActivityEvent{
		RepoName: "acme/app",
		Commits:  []model.CommitEvent{{Hash: "abc123", Message: "Ref #3 follow-up"}},
	}

	res, err := c.ingest(ctx, fake, event)
	require.NoError(t, err)
	assert.Equal(t, Result{LinksCreated: 1, TasksTransitioned: 0}, res)

	got, _ := fake.GetTask(ctx, task.ID)
	assert.Equal(t, model.TaskCodeReview, got.Status)
}

func TestIngestPullRequestForcesCodeReview(t *testing.T) {
	ctx := context.Background()
	c := testCorrelator()
	fake := databasetest.New()
	task := seedTask(t, fake, model.TaskInProgress)

	event := model.ActivityEvent{
		RepoName: "acme/app",
		PullRequest: &model.PullRequestEvent{
			Title: "Harden login",
			Body:  "Closes the audit gap.\nRef #3",
			URL:   "https://github.com/acme/app/pull/12",
		},
	}

	res, err := c.ingest(ctx, fake, event)
	require.NoError(t, err)
	assert.Equal(t, Result{LinksCreated: 1, TasksTransitioned: 1}, res)

	got, _ := fake.GetTask(ctx, task.ID)
	assert.Equal(t, model.TaskCodeReview, got.Status)

	links, _ := fake.ListLinksByTask(ctx, task.ID)
	require.Len(t, links, 1)
	require.NotNil(t, links[0].PRURL)
	assert.Equal(t, "https://github.com/acme/app/pull/12", *links[0].PRURL)
	require.NotNil(t, links[0].RepoName)
	assert.Equal(t, "acme/app", *links[0].RepoName)
}

func TestIngestNeverAdvancesPastCodeReview(t *testing.T) {
	ctx := context.Background()
	c := testCorrelator()
	fake := databasetest.New()
	task := seedTask(t, fake, model.TaskDone)

	event := model.ActivityEvent{
		RepoName: "acme/app",
		Commits:  []model.CommitEvent{{Hash: "abc", Message: "Ref #3"}},
		PullRequest: &model.PullRequestEvent{
			Body: "Ref #3",
			URL:  "https://github.com/acme/app/pull/9",
		},
	}

	res, err := c.ingest(ctx, fake, event)
	require.NoError(t, err)
	assert.Equal(t, 0, res.TasksTransitioned)

	got, _ := fake.GetTask(ctx, task.ID)
	assert.Equal(t, model.TaskDone, got.Status)
}

func TestIngestUnresolvableRefsAreSkipped(t *testing.T) {
	ctx := context.Background()
	c := testCorrelator()
	fake := databasetest.New()

	event := model.ActivityEvent{
		RepoName: "acme/app",
		Commits:  []model.CommitEvent{{Hash: "abc", Message: "Ref #999 ghost"}},
	}

	res, err := c.ingest(ctx, fake, event)
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
	assert.Empty(t, fake.Links)
}

// Replaying the exact same payload must be a no-op on both the link
// table and task statuses.
func TestIngestIsIdempotent(t *testing.T) {
	ctx := context.Background()
	c := testCorrelator()
	fake := databasetest.New()
	task := seedTask(t, fake, model.TaskTodo)

	event := model.ActivityEvent{
		RepoName: "acme/app",
		Commits: []model.CommitEvent{
			{Hash: "aaa111", Message: "Ref #3 start"},
			{Hash: "bbb222", Message: "Ref #3 more"},
		},
		PullRequest: &model.PullRequestEvent{
			Title: "Ref #3",
			URL:   "https://github.com/acme/app/pull/5",
		},
	}

	first, err := c.ingest(ctx, fake, event)
	require.NoError(t, err)
	assert.Equal(t, Result{LinksCreated: 3, TasksTransitioned: 1}, first)

	second, err := c.ingest(ctx, fake, event)
	require.NoError(t, err)
	assert.Equal(t, Result{}, second)

	links, _ := fake.ListLinksByTask(ctx, task.ID)
	assert.Len(t, links, 3)
}

// finishWhileLockedQuerier simulates a simulation day step committing
// while the ingest waits on the sprint lock: by the time the lock is
// held, the referenced task has already finished.
type finishWhileLockedQuerier struct {
	*databasetest.Fake
	taskID int64
}

func (f *finishWhileLockedQuerier) AcquireSprintLock(ctx context.Context, sprintID int64) error {
	if err := f.Fake.SetTaskStatus(ctx, f.taskID, model.TaskDone); err != nil {
		return err
	}
	return f.Fake.AcquireSprintLock(ctx, sprintID)
}

func TestIngestDecidesFromStatusReadUnderLock(t *testing.T) {
	ctx := context.Background()
	c := testCorrelator()
	fake := databasetest.New()
	task := seedTask(t, fake, model.TaskInProgress)
	q := &finishWhileLockedQuerier{Fake: fake, taskID: task.ID}

	event := model.ActivityEvent{
		RepoName: "acme/app",
		Commits:  []model.CommitEvent{{Hash: "abc123", Message: "Ref #3 wrap up"}},
		PullRequest: &model.PullRequestEvent{
			Title: "Ref #3 harden login",
			URL:   "https://github.com/acme/app/pull/12",
		},
	}

	res, err := c.ingest(ctx, q, event)
	require.NoError(t, err)

	// Links still land, but a task that finished while we waited must
	// never be pulled back to CODE_REVIEW or IN_PROGRESS.
	assert.Equal(t, Result{LinksCreated: 2, TasksTransitioned: 0}, res)
	got, _ := fake.GetTask(ctx, task.ID)
	assert.Equal(t, model.TaskDone, got.Status)
}

func TestIngestSyncsStoryStatus(t *testing.T) {
	ctx := context.Background()
	c := testCorrelator()
	fake := databasetest.New()
	task := seedTask(t, fake, model.TaskTodo)

	event := model.ActivityEvent{
		RepoName: "acme/app",
		Commits:  []model.CommitEvent{{Hash: "abc", Message: "Ref #3"}},
	}
	_, err := c.ingest(ctx, fake, event)
	require.NoError(t, err)

	story, err := fake.GetStory(ctx, task.StoryID)
	require.NoError(t, err)
	assert.Equal(t, model.StoryActive, story.Status)
}
