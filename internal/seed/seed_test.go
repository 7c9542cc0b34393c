// internal/seed/seed_test.go
package seed

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devsprint-service/internal/correlator"
	"devsprint-service/internal/database"
	"devsprint-service/internal/database/databasetest"
	"devsprint-service/internal/model"
)

type recordingIngester struct {
	events []model.ActivityEvent
}

func (r *recordingIngester) Ingest(_ context.Context, event model.ActivityEvent) (correlator.Result, error) {
	r.events = append(r.events, event)
	return correlator.Result{LinksCreated: 2, TasksTransitioned: 1}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestRunSeedsFreshDatabase(t *testing.T) {
	ctx := context.Background()
	fake := databasetest.New()
	ingester := &recordingIngester{}
	today := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)

	s := New(fake, ingester, discardLogger(), fixedClock(today))
	require.NoError(t, s.Run(ctx))

	sprint, err := fake.GetActiveSprint(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Sprint 2024-06-10", sprint.Name)
	assert.Equal(t, time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), sprint.StartDate)
	assert.Equal(t, time.Date(2024, 6, 17, 0, 0, 0, 0, time.UTC), sprint.EndDate)

	stories, err := fake.ListStoriesBySprint(ctx, sprint.ID)
	require.NoError(t, err)
	assert.Len(t, stories, 4)

	tasks, err := fake.ListTasks(ctx)
	require.NoError(t, err)
	assert.Len(t, tasks, 11)

	// stories with started tasks end up ACTIVE
	for _, story := range stories {
		if story.Title == "Login and access control cleanup" {
			assert.Equal(t, model.StoryActive, story.Status)
		}
	}

	// one synthetic event referencing the first and last created task
	require.Len(t, ingester.events, 1)
	event := ingester.events[0]
	assert.Equal(t, demoRepo, event.RepoName)
	require.Len(t, event.Commits, 1)
	assert.Contains(t, event.Commits[0].Message, "Ref #")
	require.NotNil(t, event.PullRequest)
	assert.Equal(t, demoPRURL, event.PullRequest.URL)
}

func TestRunSkipsWhenTasksExist(t *testing.T) {
	ctx := context.Background()
	fake := databasetest.New()
	story, err := fake.CreateStory(ctx, database.CreateStoryParams{
		Title: "Existing", StoryPoints: 3, Priority: 3, Status: model.StoryPlanned,
	})
	require.NoError(t, err)
	_, err = fake.CreateTask(ctx, database.CreateTaskParams{
		StoryID: story.ID, Title: "Existing task", Status: model.TaskTodo, StoryPoints: 3,
	})
	require.NoError(t, err)

	ingester := &recordingIngester{}
	s := New(fake, ingester, discardLogger(), nil)
	require.NoError(t, s.Run(ctx))

	tasks, err := fake.ListTasks(ctx)
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
	assert.Empty(t, ingester.events)
}

func TestRunReusesActiveSprint(t *testing.T) {
	ctx := context.Background()
	fake := databasetest.New()
	existing, err := fake.CreateSprint(ctx, database.CreateSprintParams{
		Name:      "Sprint 7",
		StartDate: time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC),
		Status:    model.SprintActive,
	})
	require.NoError(t, err)

	s := New(fake, &recordingIngester{}, discardLogger(), fixedClock(time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)))
	require.NoError(t, s.Run(ctx))

	sprints, err := fake.ListSprints(ctx)
	require.NoError(t, err)
	require.Len(t, sprints, 1)

	stories, err := fake.ListStoriesBySprint(ctx, existing.ID)
	require.NoError(t, err)
	assert.Len(t, stories, 4)
}
