// internal/database/databasetest/fake.go

// Package databasetest provides an in-memory Querier for unit tests
// that need stateful storage behavior (multi-day simulation runs,
// replayed webhook payloads) without a live Postgres.
package databasetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"devsprint-service/internal/database"
	"devsprint-service/internal/model"
)

// Fake is an in-memory database.Querier. It mirrors the SQL layer's
// observable behavior: ascending-id ordering, link uniqueness on the
// natural keys, snapshot replace-on-conflict, and delete cascades.
type Fake struct {
	mu sync.Mutex

	nextID    int64
	Sprints   map[int64]model.Sprint
	Stories   map[int64]model.UserStory
	Tasks     map[int64]model.Task
	Links     map[int64]model.GithubLink
	Snapshots map[int64]model.BurndownSnapshot
	Cursors   map[string]time.Time
}

var _ database.Querier = (*Fake)(nil)

func New() *Fake {
	return &Fake{
		Sprints:   make(map[int64]model.Sprint),
		Stories:   make(map[int64]model.UserStory),
		Tasks:     make(map[int64]model.Task),
		Links:     make(map[int64]model.GithubLink),
		Snapshots: make(map[int64]model.BurndownSnapshot),
		Cursors:   make(map[string]time.Time),
	}
}

func (f *Fake) id() int64 {
	f.nextID++
	return f.nextID
}

func sortedIDs[T any](m map[int64]T) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// --- sprints ---

func (f *Fake) CreateSprint(_ context.Context, arg database.CreateSprintParams) (model.Sprint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := model.Sprint{
		ID:        f.id(),
		Name:      arg.Name,
		Goal:      arg.Goal,
		StartDate: arg.StartDate,
		EndDate:   arg.EndDate,
		Status:    arg.Status,
	}
	f.Sprints[s.ID] = s
	return s, nil
}

func (f *Fake) GetSprint(_ context.Context, id int64) (model.Sprint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.Sprints[id]
	if !ok {
		return model.Sprint{}, pgx.ErrNoRows
	}
	return s, nil
}

func (f *Fake) GetActiveSprint(_ context.Context) (model.Sprint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var best *model.Sprint
	for _, id := range sortedIDs(f.Sprints) {
		s := f.Sprints[id]
		if s.Status != model.SprintActive {
			continue
		}
		if best == nil || s.StartDate.Before(best.StartDate) {
			c := s
			best = &c
		}
	}
	if best == nil {
		return model.Sprint{}, pgx.ErrNoRows
	}
	return *best, nil
}

func (f *Fake) ListSprints(_ context.Context) ([]model.Sprint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Sprint
	for _, id := range sortedIDs(f.Sprints) {
		out = append(out, f.Sprints[id])
	}
	return out, nil
}

func (f *Fake) ListActiveSprints(_ context.Context) ([]model.Sprint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Sprint
	for _, id := range sortedIDs(f.Sprints) {
		if f.Sprints[id].Status == model.SprintActive {
			out = append(out, f.Sprints[id])
		}
	}
	return out, nil
}

func (f *Fake) UpdateSprint(_ context.Context, arg database.UpdateSprintParams) (model.Sprint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.Sprints[arg.ID]
	if !ok {
		return model.Sprint{}, pgx.ErrNoRows
	}
	s.Name = arg.Name
	s.Goal = arg.Goal
	s.StartDate = arg.StartDate
	s.EndDate = arg.EndDate
	s.Status = arg.Status
	f.Sprints[arg.ID] = s
	return s, nil
}

func (f *Fake) SetSprintOffset(_ context.Context, id int64, offsetDays int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.Sprints[id]
	if !ok {
		return pgx.ErrNoRows
	}
	s.SimulatedOffsetDays = offsetDays
	f.Sprints[id] = s
	return nil
}

func (f *Fake) DeleteSprint(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.Sprints[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.Sprints, id)
	for sid, snap := range f.Snapshots {
		if snap.SprintID == id {
			delete(f.Snapshots, sid)
		}
	}
	for stid, st := range f.Stories {
		if st.SprintID != nil && *st.SprintID == id {
			st.SprintID = nil
			f.Stories[stid] = st
		}
	}
	return nil
}

func (f *Fake) AcquireSprintLock(context.Context, int64) error { return nil }

// --- stories ---

func (f *Fake) CreateStory(_ context.Context, arg database.CreateStoryParams) (model.UserStory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := model.UserStory{
		ID:          f.id(),
		SprintID:    arg.SprintID,
		Title:       arg.Title,
		Description: arg.Description,
		StoryPoints: arg.StoryPoints,
		Priority:    arg.Priority,
		IsTechDebt:  arg.IsTechDebt,
		Status:      arg.Status,
	}
	f.Stories[s.ID] = s
	return s, nil
}

func (f *Fake) GetStory(_ context.Context, id int64) (model.UserStory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.Stories[id]
	if !ok {
		return model.UserStory{}, pgx.ErrNoRows
	}
	return s, nil
}

func (f *Fake) ListStories(_ context.Context) ([]model.UserStory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.UserStory
	for _, id := range sortedIDs(f.Stories) {
		out = append(out, f.Stories[id])
	}
	return out, nil
}

func (f *Fake) ListStoriesBySprint(_ context.Context, sprintID int64) ([]model.UserStory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.UserStory
	for _, id := range sortedIDs(f.Stories) {
		s := f.Stories[id]
		if s.SprintID != nil && *s.SprintID == sprintID {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out, nil
}

func (f *Fake) GetTechDebtStory(_ context.Context, sprintID int64) (model.UserStory, error) {
	stories, _ := f.ListStoriesBySprint(context.Background(), sprintID)
	for _, s := range stories {
		if s.IsTechDebt {
			return s, nil
		}
	}
	return model.UserStory{}, pgx.ErrNoRows
}

func (f *Fake) UpdateStory(_ context.Context, arg database.UpdateStoryParams) (model.UserStory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.Stories[arg.ID]
	if !ok {
		return model.UserStory{}, pgx.ErrNoRows
	}
	s.SprintID = arg.SprintID
	s.Title = arg.Title
	s.Description = arg.Description
	s.StoryPoints = arg.StoryPoints
	s.Priority = arg.Priority
	s.IsTechDebt = arg.IsTechDebt
	s.Status = arg.Status
	f.Stories[arg.ID] = s
	return s, nil
}

func (f *Fake) SyncStoryStatus(_ context.Context, storyID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.Stories[storyID]
	if !ok {
		return nil
	}
	var total, done, started int
	for _, t := range f.Tasks {
		if t.StoryID != storyID {
			continue
		}
		total++
		switch t.Status {
		case model.TaskDone:
			done++
		case model.TaskInProgress, model.TaskCodeReview:
			started++
		}
	}
	if total == 0 {
		return nil
	}
	switch {
	case done == total:
		s.Status = model.StoryDone
	case started > 0:
		s.Status = model.StoryActive
	default:
		s.Status = model.StoryPlanned
	}
	f.Stories[storyID] = s
	return nil
}

func (f *Fake) DeleteStory(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.Stories[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.Stories, id)
	for tid, t := range f.Tasks {
		if t.StoryID != id {
			continue
		}
		delete(f.Tasks, tid)
		for lid, l := range f.Links {
			if l.TaskID == tid {
				delete(f.Links, lid)
			}
		}
	}
	return nil
}

// --- tasks ---

func (f *Fake) CreateTask(_ context.Context, arg database.CreateTaskParams) (model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := model.Task{
		ID:          f.id(),
		StoryID:     arg.StoryID,
		Title:       arg.Title,
		Status:      arg.Status,
		StoryPoints: arg.StoryPoints,
		IsTechDebt:  arg.IsTechDebt,
		Assignee:    arg.Assignee,
	}
	f.Tasks[t.ID] = t
	return t, nil
}

func (f *Fake) GetTask(_ context.Context, id int64) (model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.Tasks[id]
	if !ok {
		return model.Task{}, pgx.ErrNoRows
	}
	return t, nil
}

func (f *Fake) ListTasks(_ context.Context) ([]model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Task
	for _, id := range sortedIDs(f.Tasks) {
		out = append(out, f.Tasks[id])
	}
	return out, nil
}

func (f *Fake) ListTasksByStory(_ context.Context, storyID int64) ([]model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Task
	for _, id := range sortedIDs(f.Tasks) {
		if f.Tasks[id].StoryID == storyID {
			out = append(out, f.Tasks[id])
		}
	}
	return out, nil
}

func (f *Fake) ListTasksByIDs(_ context.Context, ids []int64) ([]model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []model.Task
	for _, id := range sortedIDs(f.Tasks) {
		if want[id] {
			out = append(out, f.Tasks[id])
		}
	}
	return out, nil
}

func (f *Fake) sprintIDForTaskLocked(taskID int64) *int64 {
	t, ok := f.Tasks[taskID]
	if !ok {
		return nil
	}
	s, ok := f.Stories[t.StoryID]
	if !ok {
		return nil
	}
	return s.SprintID
}

func (f *Fake) ListUnfinishedTasksBySprint(_ context.Context, sprintID int64) ([]model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Task
	for _, id := range sortedIDs(f.Tasks) {
		t := f.Tasks[id]
		if t.Status == model.TaskDone {
			continue
		}
		if sid := f.sprintIDForTaskLocked(id); sid != nil && *sid == sprintID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *Fake) ListTasksInReview(_ context.Context) ([]model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Task
	for _, id := range sortedIDs(f.Tasks) {
		if f.Tasks[id].Status == model.TaskCodeReview {
			out = append(out, f.Tasks[id])
		}
	}
	return out, nil
}

func (f *Fake) UpdateTask(_ context.Context, arg database.UpdateTaskParams) (model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.Tasks[arg.ID]
	if !ok {
		return model.Task{}, pgx.ErrNoRows
	}
	t.Title = arg.Title
	t.Status = arg.Status
	t.StoryPoints = arg.StoryPoints
	t.IsTechDebt = arg.IsTechDebt
	t.Assignee = arg.Assignee
	f.Tasks[arg.ID] = t
	return t, nil
}

func (f *Fake) SetTaskStatus(_ context.Context, id int64, status model.TaskStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.Tasks[id]
	if !ok {
		return pgx.ErrNoRows
	}
	t.Status = status
	f.Tasks[id] = t
	return nil
}

func (f *Fake) DeleteTask(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.Tasks[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.Tasks, id)
	for lid, l := range f.Links {
		if l.TaskID == id {
			delete(f.Links, lid)
		}
	}
	return nil
}

func (f *Fake) CountTasksBySprint(_ context.Context, sprintID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id := range f.Tasks {
		if sid := f.sprintIDForTaskLocked(id); sid != nil && *sid == sprintID {
			n++
		}
	}
	return n, nil
}

func (f *Fake) SumRemainingPoints(_ context.Context, sprintID int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sum := 0
	for id, t := range f.Tasks {
		if t.Status == model.TaskDone {
			continue
		}
		if sid := f.sprintIDForTaskLocked(id); sid != nil && *sid == sprintID {
			sum += t.StoryPoints
		}
	}
	return sum, nil
}

func (f *Fake) SprintIDForTask(_ context.Context, taskID int64) (*int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.Tasks[taskID]; !ok {
		return nil, pgx.ErrNoRows
	}
	return f.sprintIDForTaskLocked(taskID), nil
}

// --- github links ---

func (f *Fake) CreateCommitLink(_ context.Context, arg database.CreateCommitLinkParams) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.Links {
		if l.TaskID == arg.TaskID && l.CommitHash != nil && *l.CommitHash == arg.CommitHash {
			return false, nil
		}
	}
	hash := arg.CommitHash
	id := f.id()
	f.Links[id] = model.GithubLink{
		ID:         id,
		TaskID:     arg.TaskID,
		CommitHash: &hash,
		RepoName:   arg.RepoName,
	}
	return true, nil
}

func (f *Fake) CreatePRLink(_ context.Context, arg database.CreatePRLinkParams) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.Links {
		if l.TaskID == arg.TaskID && l.PRURL != nil && *l.PRURL == arg.PRURL {
			return false, nil
		}
	}
	url := arg.PRURL
	id := f.id()
	f.Links[id] = model.GithubLink{
		ID:       id,
		TaskID:   arg.TaskID,
		PRURL:    &url,
		RepoName: arg.RepoName,
	}
	return true, nil
}

func (f *Fake) ListLinksByTask(_ context.Context, taskID int64) ([]model.GithubLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.GithubLink
	for _, id := range sortedIDs(f.Links) {
		if f.Links[id].TaskID == taskID {
			out = append(out, f.Links[id])
		}
	}
	return out, nil
}

// --- burndown snapshots ---

func (f *Fake) UpsertSnapshot(_ context.Context, arg database.UpsertSnapshotParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, s := range f.Snapshots {
		if s.SprintID == arg.SprintID && s.SnapshotDate.Equal(arg.SnapshotDate) {
			s.RemainingPoints = arg.RemainingPoints
			f.Snapshots[id] = s
			return nil
		}
	}
	id := f.id()
	f.Snapshots[id] = model.BurndownSnapshot{
		ID:              id,
		SprintID:        arg.SprintID,
		SnapshotDate:    arg.SnapshotDate,
		RemainingPoints: arg.RemainingPoints,
	}
	return nil
}

func (f *Fake) ListSnapshots(_ context.Context, sprintID int64) ([]model.BurndownSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.BurndownSnapshot
	for _, id := range sortedIDs(f.Snapshots) {
		if f.Snapshots[id].SprintID == sprintID {
			out = append(out, f.Snapshots[id])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SnapshotDate.Before(out[j].SnapshotDate) })
	return out, nil
}

// --- poller cursors ---

func (f *Fake) GetRepoCursor(_ context.Context, repoName string) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Cursors[repoName], nil
}

func (f *Fake) UpsertRepoCursor(_ context.Context, repoName string, lastSyncedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Cursors[repoName] = lastSyncedAt
	return nil
}
