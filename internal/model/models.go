// internal/model/models.go
package model

import "time"

// SprintStatus is the lifecycle state of a sprint.
type SprintStatus string

const (
	SprintActive SprintStatus = "ACTIVE"
	SprintClosed SprintStatus = "CLOSED"
)

// StoryStatus is derived from the statuses of a story's tasks.
type StoryStatus string

const (
	StoryPlanned StoryStatus = "PLANNED"
	StoryActive  StoryStatus = "ACTIVE"
	StoryDone    StoryStatus = "DONE"
)

// TaskStatus is a pipeline state. Transitions are owned by the
// pipeline package and are strictly forward-only.
type TaskStatus string

const (
	TaskTodo       TaskStatus = "TODO"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskCodeReview TaskStatus = "CODE_REVIEW"
	TaskDone       TaskStatus = "DONE"
)

// Sprint is a bounded iteration. SimulatedOffsetDays shifts the
// sprint's notion of "today" without touching its date range, so
// historical snapshot dates keep their meaning.
type Sprint struct {
	ID                  int64        `json:"id"`
	Name                string       `json:"name"`
	Goal                *string      `json:"goal"`
	StartDate           time.Time    `json:"start_date"`
	EndDate             time.Time    `json:"end_date"`
	Status              SprintStatus `json:"status"`
	SimulatedOffsetDays int          `json:"simulated_offset_days"`
	CreatedAt           time.Time    `json:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at"`
}

// UserStory is a unit of planned work. SprintID is nil for backlog
// stories not yet committed to a sprint.
type UserStory struct {
	ID          int64       `json:"id"`
	SprintID    *int64      `json:"sprint_id"`
	Title       string      `json:"title"`
	Description *string     `json:"description"`
	StoryPoints int         `json:"story_points"`
	Priority    int         `json:"priority"`
	IsTechDebt  bool        `json:"is_tech_debt"`
	Status      StoryStatus `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Task is the unit that moves through the delivery pipeline.
type Task struct {
	ID          int64      `json:"id"`
	StoryID     int64      `json:"story_id"`
	Title       string     `json:"title"`
	Status      TaskStatus `json:"status"`
	StoryPoints int        `json:"story_points"`
	IsTechDebt  bool       `json:"is_tech_debt"`
	Assignee    *string    `json:"assignee"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// GithubLink ties a task to a commit or a pull request. A given
// (task, commit hash) or (task, PR URL) pair exists at most once.
type GithubLink struct {
	ID         int64     `json:"id"`
	TaskID     int64     `json:"task_id"`
	CommitHash *string   `json:"commit_hash"`
	PRURL      *string   `json:"pr_url"`
	RepoName   *string   `json:"repo_name"`
	CreatedAt  time.Time `json:"created_at"`
}

// BurndownSnapshot records remaining story points for a sprint on one
// simulated date. Unique on (sprint, date); re-simulation replaces.
type BurndownSnapshot struct {
	ID              int64     `json:"id"`
	SprintID        int64     `json:"sprint_id"`
	SnapshotDate    time.Time `json:"snapshot_date"`
	RemainingPoints int       `json:"remaining_points"`
}

// CommitEvent is a single commit inside an activity event.
type CommitEvent struct {
	Hash    string `json:"id"`
	Message string `json:"message"`
}

// PullRequestEvent is the pull-request part of an activity event.
type PullRequestEvent struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"html_url"`
}

// ActivityEvent is the transport-agnostic shape the correlator
// consumes: webhook payloads and poller results both reduce to it.
type ActivityEvent struct {
	RepoName    string            `json:"repo_name"`
	Commits     []CommitEvent     `json:"commits"`
	PullRequest *PullRequestEvent `json:"pull_request"`
}

// Commit is a commit fetched from the GitHub API by the poller.
type Commit struct {
	SHA        string
	AuthorName string
	Message    string
	URL        string
	CommitDate time.Time
}

// PullRequest is a pull request fetched from the GitHub API.
type PullRequest struct {
	Title     string
	Body      string
	URL       string
	UpdatedAt time.Time
}
