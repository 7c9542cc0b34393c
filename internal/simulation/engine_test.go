// internal/simulation/engine_test.go
package simulation

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

var testToday = time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)

func testEngine() *Engine {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewEngine(nil, logger, func() time.Time { return testToday })
}

func seedSprint(t *testing.T, fake *databasetest.Fake, taskPoints ...int) (model.Sprint, []model.Task) {
	t.Helper()
	ctx := context.Background()

	sprint, err := fake.CreateSprint(ctx, database.CreateSprintParams{
		Name:      "Sprint 42",
		StartDate: time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC),
		Status:    model.SprintActive,
	})
	require.NoError(t, err)

	story, err := fake.CreateStory(ctx, database.CreateStoryParams{
		SprintID:    &sprint.ID,
		Title:       "Checkout flow",
		StoryPoints: 8,
		Priority:    1,
		Status:      model.StoryPlanned,
	})
	require.NoError(t, err)

	var tasks []model.Task
	for _, pts := range taskPoints {
		task, err := fake.CreateTask(ctx, database.CreateTaskParams{
			StoryID:     story.ID,
			Title:       "Implement",
			Status:      model.TaskTodo,
			StoryPoints: pts,
		})
		require.NoError(t, err)
		tasks = append(tasks, task)
	}
	return sprint, tasks
}

func TestAdvanceDaysRejectsNonPositiveCounts(t *testing.T) {
	e := testEngine()

	for _, days := range []int{0, -1, -10} {
		err := e.AdvanceDays(context.Background(), 1, days)
		assert.True(t, apperrors.IsInvalidArgument(err), "days=%d", days)
	}
}

func TestSetRemainingDaysRejectsNegative(t *testing.T) {
	e := testEngine()

	err := e.SetRemainingDays(context.Background(), 1, -1)
	assert.True(t, apperrors.IsInvalidArgument(err))
}

func TestAdvanceOneDayUnknownSprint(t *testing.T) {
	e := testEngine()
	fake := databasetest.New()

	err := e.advanceOneDay(context.Background(), fake, 99)
	assert.True(t, apperrors.IsNotFound(err))
}

// Walks the canonical four-day scenario: two TODO tasks of 3 and 5
// points march through the pipeline together, the board drains on day
// three, and a synthesized tech-debt task restarts the burn.
func TestAdvanceOneDayScenario(t *testing.T) {
	ctx := context.Background()
	e := testEngine()
	fake := databasetest.New()
	sprint, tasks := seedSprint(t, fake, 3, 5)

	day := func(n int) time.Time {
		return time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
	}

	// Day 1: both tasks start.
	require.NoError(t, e.advanceOneDay(ctx, fake, sprint.ID))
	for _, task := range tasks {
		got, err := fake.GetTask(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, model.TaskInProgress, got.Status)
	}
	snaps, err := fake.ListSnapshots(ctx, sprint.ID)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, day(1), snaps[0].SnapshotDate)
	assert.Equal(t, 8, snaps[0].RemainingPoints)

	story, err := fake.GetStory(ctx, tasks[0].StoryID)
	require.NoError(t, err)
	assert.Equal(t, model.StoryActive, story.Status)

	// Day 2: both reach code review; points unchanged.
	require.NoError(t, e.advanceOneDay(ctx, fake, sprint.ID))
	for _, task := range tasks {
		got, _ := fake.GetTask(ctx, task.ID)
		assert.Equal(t, model.TaskCodeReview, got.Status)
	}
	snaps, _ = fake.ListSnapshots(ctx, sprint.ID)
	require.Len(t, snaps, 2)
	assert.Equal(t, 8, snaps[1].RemainingPoints)

	// Day 3: board drains, snapshot shows zero, tech debt appears.
	require.NoError(t, e.advanceOneDay(ctx, fake, sprint.ID))
	snaps, _ = fake.ListSnapshots(ctx, sprint.ID)
	require.Len(t, snaps, 3)
	assert.Equal(t, 0, snaps[2].RemainingPoints)

	story, _ = fake.GetStory(ctx, tasks[0].StoryID)
	assert.Equal(t, model.StoryDone, story.Status)

	debt, err := fake.GetTechDebtStory(ctx, sprint.ID)
	require.NoError(t, err)
	debtTasks, err := fake.ListTasksByStory(ctx, debt.ID)
	require.NoError(t, err)
	require.Len(t, debtTasks, 1)
	assert.Equal(t, model.TaskTodo, debtTasks[0].Status)
	assert.Equal(t, 2, debtTasks[0].StoryPoints)
	assert.True(t, debtTasks[0].IsTechDebt)

	// Day 4: the synthesized task starts burning.
	require.NoError(t, e.advanceOneDay(ctx, fake, sprint.ID))
	got, _ := fake.GetTask(ctx, debtTasks[0].ID)
	assert.Equal(t, model.TaskInProgress, got.Status)
	snaps, _ = fake.ListSnapshots(ctx, sprint.ID)
	require.Len(t, snaps, 4)
	assert.Equal(t, 2, snaps[3].RemainingPoints)

	// Synthesis happened exactly once across the whole run.
	all, _ := fake.ListTasks(ctx)
	assert.Len(t, all, 3)

	// Dates are consecutive with one row per date.
	for i, snap := range snaps {
		assert.Equal(t, day(i+1), snap.SnapshotDate)
	}
}

func TestAdvanceOneDayEmptySprintNeverSynthesizes(t *testing.T) {
	ctx := context.Background()
	e := testEngine()
	fake := databasetest.New()
	sprint, _ := seedSprint(t, fake) // story but zero tasks

	for i := 0; i < 3; i++ {
		require.NoError(t, e.advanceOneDay(ctx, fake, sprint.ID))
	}

	snaps, err := fake.ListSnapshots(ctx, sprint.ID)
	require.NoError(t, err)
	require.Len(t, snaps, 3)
	for _, snap := range snaps {
		assert.Equal(t, 0, snap.RemainingPoints)
	}
	tasks, _ := fake.ListTasks(ctx)
	assert.Empty(t, tasks)
}

// Re-simulating an already-covered date replaces the snapshot row
// instead of duplicating it.
func TestSnapshotReplayIsCorrective(t *testing.T) {
	ctx := context.Background()
	e := testEngine()
	fake := databasetest.New()
	sprint, _ := seedSprint(t, fake, 3, 5)

	require.NoError(t, e.advanceOneDay(ctx, fake, sprint.ID))

	// Rewind the clock one day and replay it.
	require.NoError(t, fake.SetSprintOffset(ctx, sprint.ID, 0))
	require.NoError(t, e.advanceOneDay(ctx, fake, sprint.ID))

	snaps, err := fake.ListSnapshots(ctx, sprint.ID)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, 8, snaps[0].RemainingPoints)
}

func TestSetRemainingDaysRetargetsCountdown(t *testing.T) {
	ctx := context.Background()
	e := testEngine()
	fake := databasetest.New()
	sprint, tasks := seedSprint(t, fake, 3)

	require.NoError(t, e.advanceOneDay(ctx, fake, sprint.ID))
	snapsBefore, _ := fake.ListSnapshots(ctx, sprint.ID)

	require.NoError(t, e.setRemainingDays(ctx, fake, sprint.ID, 4))

	countdown, err := e.Countdown(ctx, fake, sprint.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, countdown)

	// Retargeting only moves the offset: no pipeline movement, no
	// snapshot writes.
	snapsAfter, _ := fake.ListSnapshots(ctx, sprint.ID)
	assert.Equal(t, snapsBefore, snapsAfter)
	task, _ := fake.GetTask(ctx, tasks[0].ID)
	assert.Equal(t, model.TaskInProgress, task.Status)
}

func TestSetRemainingDaysUnknownSprint(t *testing.T) {
	e := testEngine()
	fake := databasetest.New()

	err := e.setRemainingDays(context.Background(), fake, 42, 3)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestCaptureSnapshotUsesSimulatedDate(t *testing.T) {
	ctx := context.Background()
	e := testEngine()
	fake := databasetest.New()
	sprint, _ := seedSprint(t, fake, 3, 5)
	require.NoError(t, fake.SetSprintOffset(ctx, sprint.ID, 2))

	require.NoError(t, e.captureSnapshot(ctx, fake, sprint.ID))

	snaps, err := fake.ListSnapshots(ctx, sprint.ID)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, time.Date(2024, 6, 12, 0, 0, 0, 0, time.UTC), snaps[0].SnapshotDate)
	assert.Equal(t, 8, snaps[0].RemainingPoints)
}
