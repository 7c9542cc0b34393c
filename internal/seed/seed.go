// internal/seed/seed.go

// Package seed loads a demo sprint with stories, tasks and one
// correlated GitHub activity event, so a fresh deployment has a
// board, a burndown and a review queue to look at.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"devsprint-service/internal/correlator"
	"devsprint-service/internal/database"
	"devsprint-service/internal/model"
	"devsprint-service/internal/timeline"
)

const (
	demoRepo       = "octocat/Hello-World"
	demoCommitHash = "7fd1a60b01f91b314f59955a4e4d4f5a5d5f90a3"
	demoPRURL      = "https://github.com/octocat/Hello-World/pull/1"
)

// Ingester is the correlator slice the seeder drives for the demo
// webhook event.
type Ingester interface {
	Ingest(ctx context.Context, event model.ActivityEvent) (correlator.Result, error)
}

type taskDef struct {
	title      string
	points     int
	status     model.TaskStatus
	isTechDebt bool
	assignee   string
}

type storyDef struct {
	title       string
	description string
	points      int
	priority    int
	tasks       []taskDef
}

var demoStories = []storyDef{
	{
		title:       "Login and access control cleanup",
		description: "- Support enterprise SSO\n- Audit-log failed logins\n- Map out the role permission matrix",
		points:      8,
		priority:    1,
		tasks: []taskDef{
			{title: "Implement the base login endpoint", points: 3, status: model.TaskInProgress, assignee: "alice"},
			{title: "Wire up OAuth2 SSO", points: 3, status: model.TaskTodo, assignee: "bob"},
			{title: "Fix leftover security scan findings", points: 2, status: model.TaskTodo, isTechDebt: true, assignee: "alice"},
		},
	},
	{
		title:       "Team board usability",
		description: "- Render story descriptions as Markdown\n- Smoother in-column ordering\n- Visibility grouping and filters",
		points:      7,
		priority:    2,
		tasks: []taskDef{
			{title: "Render story Markdown", points: 2, status: model.TaskDone, assignee: "carol"},
			{title: "Drag-to-reorder within board columns", points: 3, status: model.TaskTodo, assignee: "dave"},
			{title: "Highlight tech debt cards", points: 2, status: model.TaskCodeReview, isTechDebt: true, assignee: "carol"},
		},
	},
	{
		title:       "Continuous delivery and release safety",
		description: "- Pre-deploy health checks\n- Pipeline caching and parallelism\n- Automated rollback scripts",
		points:      9,
		priority:    1,
		tasks: []taskDef{
			{title: "Pipeline cache and parallelism tuning", points: 4, status: model.TaskInProgress, assignee: "erin"},
			{title: "Pre-deploy smoke checks", points: 3, status: model.TaskCodeReview, assignee: "frank"},
			{title: "Rollback script and runbook", points: 2, status: model.TaskTodo, assignee: "erin"},
		},
	},
	{
		title:       "Monitoring and alerting loop",
		description: "- Define key SLI/SLO targets\n- Introduce alert suppression\n- Alerting observability dashboard",
		points:      6,
		priority:    3,
		tasks: []taskDef{
			{title: "Core API SLO definitions and dashboard", points: 3, status: model.TaskDone, assignee: "grace"},
			{title: "Alert suppression and on-call handoff rules", points: 3, status: model.TaskTodo, assignee: "heidi"},
		},
	},
}

// Seeder populates demo data through the same store and correlator
// the API uses.
type Seeder struct {
	db       database.Querier
	ingester Ingester
	logger   *slog.Logger
	now      func() time.Time
}

func New(db database.Querier, ingester Ingester, logger *slog.Logger, now func() time.Time) *Seeder {
	if now == nil {
		now = time.Now
	}
	return &Seeder{db: db, ingester: ingester, logger: logger, now: now}
}

// Run seeds the demo sprint. It is a no-op when any tasks already
// exist, so restarting the service never duplicates data.
func (s *Seeder) Run(ctx context.Context) error {
	tasks, err := s.db.ListTasks(ctx)
	if err != nil {
		return fmt.Errorf("checking existing tasks: %w", err)
	}
	if len(tasks) > 0 {
		s.logger.Info("demo seed skipped, tasks already present", "count", len(tasks))
		return nil
	}

	sprint, err := s.ensureActiveSprint(ctx)
	if err != nil {
		return err
	}
	s.logger.Info("demo sprint ready", "sprint_id", sprint.ID, "name", sprint.Name)

	var createdTaskIDs []int64
	for _, def := range demoStories {
		desc := def.description
		story, err := s.db.CreateStory(ctx, database.CreateStoryParams{
			SprintID:    &sprint.ID,
			Title:       def.title,
			Description: &desc,
			StoryPoints: def.points,
			Priority:    def.priority,
			Status:      model.StoryPlanned,
		})
		if err != nil {
			return fmt.Errorf("creating story %q: %w", def.title, err)
		}
		for _, td := range def.tasks {
			assignee := td.assignee
			task, err := s.db.CreateTask(ctx, database.CreateTaskParams{
				StoryID:     story.ID,
				Title:       td.title,
				Status:      td.status,
				StoryPoints: td.points,
				IsTechDebt:  td.isTechDebt,
				Assignee:    &assignee,
			})
			if err != nil {
				return fmt.Errorf("creating task %q: %w", td.title, err)
			}
			createdTaskIDs = append(createdTaskIDs, task.ID)
		}
		if err := s.db.SyncStoryStatus(ctx, story.ID); err != nil {
			return fmt.Errorf("syncing story %d: %w", story.ID, err)
		}
	}

	if err := s.sendDemoActivity(ctx, createdTaskIDs); err != nil {
		return err
	}

	s.logger.Info("demo data seeded", "tasks", len(createdTaskIDs))
	return nil
}

// ensureActiveSprint reuses the current active sprint or starts a
// week-long one anchored on today.
func (s *Seeder) ensureActiveSprint(ctx context.Context) (model.Sprint, error) {
	sprint, err := s.db.GetActiveSprint(ctx)
	if err == nil {
		return sprint, nil
	}

	today := timeline.DateOf(s.now())
	goal := "Deliver core features and pay down tech debt"
	sprint, err = s.db.CreateSprint(ctx, database.CreateSprintParams{
		Name:      "Sprint " + today.Format(time.DateOnly),
		Goal:      &goal,
		StartDate: today,
		EndDate:   today.AddDate(0, 0, 7),
		Status:    model.SprintActive,
	})
	if err != nil {
		return model.Sprint{}, fmt.Errorf("creating demo sprint: %w", err)
	}
	return sprint, nil
}

// sendDemoActivity replays one synthetic push-plus-PR event through
// the correlator so the seeded board shows real link rows.
func (s *Seeder) sendDemoActivity(ctx context.Context, taskIDs []int64) error {
	if len(taskIDs) == 0 || s.ingester == nil {
		return nil
	}
	commitTarget := taskIDs[0]
	prTarget := taskIDs[len(taskIDs)-1]

	event := model.ActivityEvent{
		RepoName: demoRepo,
		Commits: []model.CommitEvent{
			{Hash: demoCommitHash, Message: fmt.Sprintf("Optimize pipeline cache Ref #%d", commitTarget)},
		},
		PullRequest: &model.PullRequestEvent{
			Title: fmt.Sprintf("Ref #%d Improve deployment readiness", prTarget),
			Body:  fmt.Sprintf("Ref #%d Adds smoke checks before deploy", prTarget),
			URL:   demoPRURL,
		},
	}
	result, err := s.ingester.Ingest(ctx, event)
	if err != nil {
		return fmt.Errorf("ingesting demo activity: %w", err)
	}
	s.logger.Info("demo activity correlated",
		"links_created", result.LinksCreated,
		"tasks_transitioned", result.TasksTransitioned)
	return nil
}
