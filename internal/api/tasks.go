// internal/api/tasks.go
package api

import (
	"net/http"

	"devsprint-service/internal/apperrors"
	"devsprint-service/internal/database"
	"devsprint-service/internal/model"
)

type taskRequest struct {
	StoryID     *int64  `json:"story_id"`
	Title       *string `json:"title"`
	Status      *string `json:"status"`
	StoryPoints *int    `json:"story_points"`
	IsTechDebt  *bool   `json:"is_tech_debt"`
	Assignee    *string `json:"assignee"`
}

// GET /api/v1/tasks
func (h *Handler) listTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.db.ListTasks(r.Context())
	if err != nil {
		h.respondWithFailure(w, err, "Failed to list tasks")
		return
	}
	respondWithJSON(w, http.StatusOK, tasks)
}

// POST /api/v1/tasks
func (h *Handler) createTask(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondWithFailure(w, err, "Failed to decode task")
		return
	}
	if req.StoryID == nil {
		h.respondWithFailure(w, apperrors.InvalidArgumentf("story_id is required"), "")
		return
	}
	if req.Title == nil || *req.Title == "" {
		h.respondWithFailure(w, apperrors.InvalidArgumentf("title is required"), "")
		return
	}
	if req.StoryPoints == nil || *req.StoryPoints < 1 {
		h.respondWithFailure(w, apperrors.InvalidArgumentf("story_points must be a positive integer"), "")
		return
	}
	if _, err := h.db.GetStory(r.Context(), *req.StoryID); err != nil {
		h.respondWithFailure(w, err, "Failed to check story")
		return
	}

	status := model.TaskTodo
	if req.Status != nil {
		var err error
		if status, err = parseTaskStatus(*req.Status); err != nil {
			h.respondWithFailure(w, err, "")
			return
		}
	}
	isTechDebt := req.IsTechDebt != nil && *req.IsTechDebt

	task, err := h.db.CreateTask(r.Context(), database.CreateTaskParams{
		StoryID:     *req.StoryID,
		Title:       *req.Title,
		Status:      status,
		StoryPoints: *req.StoryPoints,
		IsTechDebt:  isTechDebt,
		Assignee:    req.Assignee,
	})
	if err != nil {
		h.respondWithFailure(w, err, "Failed to create task")
		return
	}
	if err := h.db.SyncStoryStatus(r.Context(), task.StoryID); err != nil {
		h.respondWithFailure(w, err, "Failed to sync story status")
		return
	}
	respondWithJSON(w, http.StatusCreated, task)
}

// PATCH /api/v1/tasks/{taskID}
func (h *Handler) updateTask(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "taskID")
	if err != nil {
		h.respondWithFailure(w, err, "")
		return
	}
	var req taskRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondWithFailure(w, err, "Failed to decode task")
		return
	}

	task, err := h.db.GetTask(r.Context(), id)
	if err != nil {
		h.respondWithFailure(w, err, "Failed to get task")
		return
	}

	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.Status != nil {
		if task.Status, err = parseTaskStatus(*req.Status); err != nil {
			h.respondWithFailure(w, err, "")
			return
		}
	}
	if req.StoryPoints != nil {
		if *req.StoryPoints < 1 {
			h.respondWithFailure(w, apperrors.InvalidArgumentf("story_points must be a positive integer"), "")
			return
		}
		task.StoryPoints = *req.StoryPoints
	}
	if req.IsTechDebt != nil {
		task.IsTechDebt = *req.IsTechDebt
	}
	if req.Assignee != nil {
		task.Assignee = req.Assignee
	}

	updated, err := h.db.UpdateTask(r.Context(), database.UpdateTaskParams{
		ID:          task.ID,
		Title:       task.Title,
		Status:      task.Status,
		StoryPoints: task.StoryPoints,
		IsTechDebt:  task.IsTechDebt,
		Assignee:    task.Assignee,
	})
	if err != nil {
		h.respondWithFailure(w, err, "Failed to update task")
		return
	}
	if err := h.db.SyncStoryStatus(r.Context(), updated.StoryID); err != nil {
		h.respondWithFailure(w, err, "Failed to sync story status")
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

// DELETE /api/v1/tasks/{taskID}
func (h *Handler) deleteTask(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "taskID")
	if err != nil {
		h.respondWithFailure(w, err, "")
		return
	}
	task, err := h.db.GetTask(r.Context(), id)
	if err != nil {
		h.respondWithFailure(w, err, "Failed to get task")
		return
	}
	if err := h.db.DeleteTask(r.Context(), id); err != nil {
		h.respondWithFailure(w, err, "Failed to delete task")
		return
	}
	if err := h.db.SyncStoryStatus(r.Context(), task.StoryID); err != nil {
		h.respondWithFailure(w, err, "Failed to sync story status")
		return
	}
	respondWithJSON(w, http.StatusNoContent, nil)
}
