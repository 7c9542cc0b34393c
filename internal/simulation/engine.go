// internal/simulation/engine.go

// Package simulation advances a sprint's simulated clock, drives the
// task pipeline one step per simulated day, injects tech-debt work
// when the board drains, and records one burndown snapshot per day.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"devsprint-service/internal/apperrors"
	"devsprint-service/internal/database"
	"devsprint-service/internal/model"
	"devsprint-service/internal/pipeline"
	"devsprint-service/internal/timeline"
)

const (
	// Synthesized tech-debt sizing when a board fully drains.
	techDebtStoryPoints = 5
	techDebtTaskPoints  = 2

	// Bounded fan-out for the all-sprints snapshot capture.
	captureConcurrency = 5

	// Serialization failures inside a day step are retried this many
	// times before surfacing as a Conflict.
	maxDayAttempts = 3
)

// Engine is the sprint simulation driver. The wall clock is injected
// so every derived date is reproducible in tests.
type Engine struct {
	dbpool *pgxpool.Pool
	logger *slog.Logger
	now    func() time.Time

	// Per-sprint in-process mutexes; the advisory lock inside each
	// transaction covers other processes.
	locks sync.Map
}

// NewEngine creates an Engine. A nil now falls back to time.Now.
func NewEngine(dbpool *pgxpool.Pool, logger *slog.Logger, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{dbpool: dbpool, logger: logger, now: now}
}

func (e *Engine) sprintMutex(sprintID int64) *sync.Mutex {
	mu, _ := e.locks.LoadOrStore(sprintID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// AdvanceDays applies n simulated days to the sprint. Each day runs
// in its own transaction: a failure on day k leaves days 1..k-1
// durably recorded, and every day step is idempotent on replay.
func (e *Engine) AdvanceDays(ctx context.Context, sprintID int64, days int) error {
	if days <= 0 {
		return apperrors.InvalidArgumentf("days must be positive, got %d", days)
	}

	mu := e.sprintMutex(sprintID)
	mu.Lock()
	defer mu.Unlock()

	for day := 1; day <= days; day++ {
		if err := e.runDay(ctx, sprintID); err != nil {
			return fmt.Errorf("advancing day %d of %d for sprint %d: %w", day, days, sprintID, err)
		}
	}
	return nil
}

// runDay executes a single day step transactionally, retrying
// serialization failures.
func (e *Engine) runDay(ctx context.Context, sprintID int64) error {
	var err error
	for attempt := 1; attempt <= maxDayAttempts; attempt++ {
		err = e.runDayTx(ctx, sprintID)
		if err == nil || !isSerializationFailure(err) {
			return err
		}
		e.logger.Warn("Day step hit a serialization failure, retrying",
			"sprint_id", sprintID, "attempt", attempt)
	}
	return apperrors.Conflictf(err, "day step for sprint %d kept racing", sprintID)
}

func (e *Engine) runDayTx(ctx context.Context, sprintID int64) error {
	tx, err := e.dbpool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	q := database.New(tx)
	if err := q.AcquireSprintLock(ctx, sprintID); err != nil {
		return err
	}
	if err := e.advanceOneDay(ctx, q, sprintID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// advanceOneDay is the heart of the engine: bump the simulated clock,
// advance every non-terminal task exactly once in ascending task id
// order, synthesize tech-debt work if the board just drained, and
// upsert the day's snapshot.
func (e *Engine) advanceOneDay(ctx context.Context, q database.Querier, sprintID int64) error {
	sprint, err := q.GetSprint(ctx, sprintID)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NotFoundf("sprint %d not found", sprintID)
	} else if err != nil {
		return err
	}

	tl := timeline.Timeline{
		StartDate:  sprint.StartDate,
		EndDate:    sprint.EndDate,
		OffsetDays: sprint.SimulatedOffsetDays,
	}
	if err := tl.AdvanceBy(1); err != nil {
		return err
	}
	if err := q.SetSprintOffset(ctx, sprintID, tl.OffsetDays); err != nil {
		return err
	}
	day := tl.CurrentDate(e.now())

	totalTasks, err := q.CountTasksBySprint(ctx, sprintID)
	if err != nil {
		return err
	}

	tasks, err := q.ListUnfinishedTasksBySprint(ctx, sprintID)
	if err != nil {
		return err
	}

	touchedStories := make(map[int64]bool)
	for _, task := range tasks {
		next, ok := pipeline.Advance(task.Status)
		if !ok {
			continue
		}
		if err := q.SetTaskStatus(ctx, task.ID, next); err != nil {
			return err
		}
		touchedStories[task.StoryID] = true
	}

	for _, storyID := range sortedKeys(touchedStories) {
		if err := q.SyncStoryStatus(ctx, storyID); err != nil {
			return err
		}
	}

	remaining, err := q.SumRemainingPoints(ctx, sprintID)
	if err != nil {
		return err
	}
	if err := q.UpsertSnapshot(ctx, database.UpsertSnapshotParams{
		SprintID:        sprintID,
		SnapshotDate:    day,
		RemainingPoints: remaining,
	}); err != nil {
		return err
	}

	// Board fully drained? Keep the burndown series alive with one
	// synthesized tech-debt task. The new task is measured by the
	// NEXT day's snapshot, so today's series point still shows the
	// drop to zero. A sprint that never had tasks is left alone.
	if totalTasks > 0 && remaining == 0 {
		storyID, err := e.synthesizeTechDebt(ctx, q, sprintID)
		if err != nil {
			return err
		}
		if err := q.SyncStoryStatus(ctx, storyID); err != nil {
			return err
		}
	}

	e.logger.Info("Simulated day applied",
		"sprint_id", sprintID,
		"date", day.Format(time.DateOnly),
		"tasks_advanced", len(tasks),
		"remaining_points", remaining)
	return nil
}

// synthesizeTechDebt attaches a small TODO tech-debt task to the
// sprint's tech-debt story, creating the story first if the sprint
// has none. Returns the owning story id.
func (e *Engine) synthesizeTechDebt(ctx context.Context, q database.Querier, sprintID int64) (int64, error) {
	story, err := q.GetTechDebtStory(ctx, sprintID)
	if errors.Is(err, pgx.ErrNoRows) {
		desc := "- Pay down warnings and code smells\n- Auto-generated when the board drained"
		story, err = q.CreateStory(ctx, database.CreateStoryParams{
			SprintID:    &sprintID,
			Title:       "Tech debt fixes",
			Description: &desc,
			StoryPoints: techDebtStoryPoints,
			Priority:    1,
			IsTechDebt:  true,
			Status:      model.StoryPlanned,
		})
	}
	if err != nil {
		return 0, err
	}

	task, err := q.CreateTask(ctx, database.CreateTaskParams{
		StoryID:     story.ID,
		Title:       "Address tech debt backlog",
		Status:      model.TaskTodo,
		StoryPoints: techDebtTaskPoints,
		IsTechDebt:  true,
	})
	if err != nil {
		return 0, err
	}

	e.logger.Info("Synthesized tech-debt task",
		"sprint_id", sprintID, "story_id", story.ID, "task_id", task.ID)
	return story.ID, nil
}

// SetRemainingDays retargets the sprint countdown so that exactly r
// days remain. It never drives the pipeline or writes a snapshot;
// the next AdvanceDays continues from the new offset.
func (e *Engine) SetRemainingDays(ctx context.Context, sprintID int64, remainingDays int) error {
	if remainingDays < 0 {
		return apperrors.InvalidArgumentf("remaining days must be non-negative, got %d", remainingDays)
	}

	mu := e.sprintMutex(sprintID)
	mu.Lock()
	defer mu.Unlock()

	tx, err := e.dbpool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	q := database.New(tx)
	if err := q.AcquireSprintLock(ctx, sprintID); err != nil {
		return err
	}
	if err := e.setRemainingDays(ctx, q, sprintID, remainingDays); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (e *Engine) setRemainingDays(ctx context.Context, q database.Querier, sprintID int64, remainingDays int) error {
	sprint, err := q.GetSprint(ctx, sprintID)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NotFoundf("sprint %d not found", sprintID)
	} else if err != nil {
		return err
	}

	tl := timeline.Timeline{
		StartDate:  sprint.StartDate,
		EndDate:    sprint.EndDate,
		OffsetDays: sprint.SimulatedOffsetDays,
	}
	if err := tl.SetRemainingDays(e.now(), remainingDays); err != nil {
		return err
	}
	if err := q.SetSprintOffset(ctx, sprintID, tl.OffsetDays); err != nil {
		return err
	}

	e.logger.Info("Sprint countdown retargeted",
		"sprint_id", sprintID, "remaining_days", remainingDays, "offset_days", tl.OffsetDays)
	return nil
}

// Countdown returns the sprint's remaining-day count at its current
// simulated date.
func (e *Engine) Countdown(ctx context.Context, q database.Querier, sprintID int64) (int, error) {
	sprint, err := q.GetSprint(ctx, sprintID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, apperrors.NotFoundf("sprint %d not found", sprintID)
	} else if err != nil {
		return 0, err
	}
	tl := timeline.Timeline{
		StartDate:  sprint.StartDate,
		EndDate:    sprint.EndDate,
		OffsetDays: sprint.SimulatedOffsetDays,
	}
	return tl.Countdown(e.now()), nil
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	// 40001 serialization_failure, 40P01 deadlock_detected
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}

func sortedKeys(m map[int64]bool) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// CaptureSnapshots refreshes today's snapshot for every active
// sprint, each in its own serialized transaction. Used by the daily
// capture loop; a per-sprint failure is logged, not fatal.
func (e *Engine) CaptureSnapshots(ctx context.Context) error {
	sprints, err := database.New(e.dbpool).ListActiveSprints(ctx)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(captureConcurrency)
	for _, sprint := range sprints {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			if err := e.captureSprintSnapshot(gctx, sprint.ID); err != nil && !errors.Is(err, context.Canceled) {
				e.logger.Error("Failed to capture snapshot", "sprint_id", sprint.ID, "error", err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (e *Engine) captureSprintSnapshot(ctx context.Context, sprintID int64) error {
	mu := e.sprintMutex(sprintID)
	mu.Lock()
	defer mu.Unlock()

	tx, err := e.dbpool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	q := database.New(tx)
	if err := q.AcquireSprintLock(ctx, sprintID); err != nil {
		return err
	}
	if err := e.captureSnapshot(ctx, q, sprintID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (e *Engine) captureSnapshot(ctx context.Context, q database.Querier, sprintID int64) error {
	sprint, err := q.GetSprint(ctx, sprintID)
	if err != nil {
		return err
	}
	tl := timeline.Timeline{
		StartDate:  sprint.StartDate,
		EndDate:    sprint.EndDate,
		OffsetDays: sprint.SimulatedOffsetDays,
	}
	remaining, err := q.SumRemainingPoints(ctx, sprintID)
	if err != nil {
		return err
	}
	return q.UpsertSnapshot(ctx, database.UpsertSnapshotParams{
		SprintID:        sprintID,
		SnapshotDate:    tl.CurrentDate(e.now()),
		RemainingPoints: remaining,
	})
}

// Run drives the periodic snapshot capture until ctx is cancelled.
func (e *Engine) Run(ctx context.Context, interval time.Duration) {
	e.logger.Info("Starting snapshot capture loop", "interval", interval.String())
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if err := e.CaptureSnapshots(ctx); err != nil {
		e.logger.Error("Initial snapshot capture failed", "error", err)
	}

	for {
		select {
		case <-ticker.C:
			if err := e.CaptureSnapshots(ctx); err != nil {
				e.logger.Error("Snapshot capture failed", "error", err)
			}
		case <-ctx.Done():
			e.logger.Info("Snapshot capture loop shutting down", "reason", ctx.Err())
			return
		}
	}
}
