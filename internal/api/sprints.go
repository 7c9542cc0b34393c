// internal/api/sprints.go
package api

import (
	"context"
	"net/http"

	"devsprint-service/internal/apperrors"
	"devsprint-service/internal/database"
	"devsprint-service/internal/model"
)

type sprintRequest struct {
	Name      *string `json:"name"`
	Goal      *string `json:"goal"`
	StartDate *string `json:"start_date"`
	EndDate   *string `json:"end_date"`
	Status    *string `json:"status"`
}

// storyView embeds a story's tasks; sprintView embeds its stories.
type storyView struct {
	model.UserStory
	Tasks []taskView `json:"tasks"`
}

type taskView struct {
	model.Task
	GithubLinks []model.GithubLink `json:"github_links"`
}

type sprintView struct {
	model.Sprint
	Stories []storyView `json:"stories"`
}

// POST /api/v1/sprints
func (h *Handler) createSprint(w http.ResponseWriter, r *http.Request) {
	var req sprintRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondWithFailure(w, err, "Failed to decode sprint")
		return
	}
	if req.Name == nil || *req.Name == "" {
		h.respondWithFailure(w, apperrors.InvalidArgumentf("name is required"), "")
		return
	}
	if req.StartDate == nil || req.EndDate == nil {
		h.respondWithFailure(w, apperrors.InvalidArgumentf("start_date and end_date are required"), "")
		return
	}
	start, err := parseDate(*req.StartDate)
	if err != nil {
		h.respondWithFailure(w, err, "")
		return
	}
	end, err := parseDate(*req.EndDate)
	if err != nil {
		h.respondWithFailure(w, err, "")
		return
	}
	if end.Before(start) {
		h.respondWithFailure(w, apperrors.InvalidArgumentf("end date must not precede start date"), "")
		return
	}
	status := model.SprintActive
	if req.Status != nil {
		if status, err = parseSprintStatus(*req.Status); err != nil {
			h.respondWithFailure(w, err, "")
			return
		}
	}

	sprint, err := h.db.CreateSprint(r.Context(), database.CreateSprintParams{
		Name:      *req.Name,
		Goal:      req.Goal,
		StartDate: start,
		EndDate:   end,
		Status:    status,
	})
	if err != nil {
		h.respondWithFailure(w, err, "Failed to create sprint")
		return
	}
	respondWithJSON(w, http.StatusCreated, sprint)
}

// GET /api/v1/sprints
func (h *Handler) listSprints(w http.ResponseWriter, r *http.Request) {
	sprints, err := h.db.ListSprints(r.Context())
	if err != nil {
		h.respondWithFailure(w, err, "Failed to list sprints")
		return
	}
	respondWithJSON(w, http.StatusOK, sprints)
}

// GET /api/v1/sprints/active
func (h *Handler) getActiveSprint(w http.ResponseWriter, r *http.Request) {
	sprint, err := h.db.GetActiveSprint(r.Context())
	if err != nil {
		h.respondWithFailure(w, err, "Failed to get active sprint")
		return
	}
	view, err := h.buildSprintView(r.Context(), sprint)
	if err != nil {
		h.respondWithFailure(w, err, "Failed to assemble sprint")
		return
	}
	respondWithJSON(w, http.StatusOK, view)
}

// GET /api/v1/sprints/{sprintID}
func (h *Handler) getSprint(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "sprintID")
	if err != nil {
		h.respondWithFailure(w, err, "")
		return
	}
	sprint, err := h.db.GetSprint(r.Context(), id)
	if err != nil {
		h.respondWithFailure(w, err, "Failed to get sprint")
		return
	}
	view, err := h.buildSprintView(r.Context(), sprint)
	if err != nil {
		h.respondWithFailure(w, err, "Failed to assemble sprint")
		return
	}
	respondWithJSON(w, http.StatusOK, view)
}

// PATCH /api/v1/sprints/{sprintID}
func (h *Handler) updateSprint(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "sprintID")
	if err != nil {
		h.respondWithFailure(w, err, "")
		return
	}
	var req sprintRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondWithFailure(w, err, "Failed to decode sprint")
		return
	}

	sprint, err := h.db.GetSprint(r.Context(), id)
	if err != nil {
		h.respondWithFailure(w, err, "Failed to get sprint")
		return
	}

	if req.Name != nil {
		sprint.Name = *req.Name
	}
	if req.Goal != nil {
		sprint.Goal = req.Goal
	}
	if req.StartDate != nil {
		if sprint.StartDate, err = parseDate(*req.StartDate); err != nil {
			h.respondWithFailure(w, err, "")
			return
		}
	}
	if req.EndDate != nil {
		if sprint.EndDate, err = parseDate(*req.EndDate); err != nil {
			h.respondWithFailure(w, err, "")
			return
		}
	}
	if req.Status != nil {
		if sprint.Status, err = parseSprintStatus(*req.Status); err != nil {
			h.respondWithFailure(w, err, "")
			return
		}
	}
	if sprint.EndDate.Before(sprint.StartDate) {
		h.respondWithFailure(w, apperrors.InvalidArgumentf("end date must not precede start date"), "")
		return
	}

	updated, err := h.db.UpdateSprint(r.Context(), database.UpdateSprintParams{
		ID:        sprint.ID,
		Name:      sprint.Name,
		Goal:      sprint.Goal,
		StartDate: sprint.StartDate,
		EndDate:   sprint.EndDate,
		Status:    sprint.Status,
	})
	if err != nil {
		h.respondWithFailure(w, err, "Failed to update sprint")
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

// DELETE /api/v1/sprints/{sprintID}
func (h *Handler) deleteSprint(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "sprintID")
	if err != nil {
		h.respondWithFailure(w, err, "")
		return
	}
	if err := h.db.DeleteSprint(r.Context(), id); err != nil {
		h.respondWithFailure(w, err, "Failed to delete sprint")
		return
	}
	respondWithJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) buildSprintView(ctx context.Context, sprint model.Sprint) (sprintView, error) {
	stories, err := h.db.ListStoriesBySprint(ctx, sprint.ID)
	if err != nil {
		return sprintView{}, err
	}

	view := sprintView{Sprint: sprint, Stories: []storyView{}}
	for _, story := range stories {
		sv, err := h.buildStoryView(ctx, story)
		if err != nil {
			return sprintView{}, err
		}
		view.Stories = append(view.Stories, sv)
	}
	return view, nil
}

func (h *Handler) buildStoryView(ctx context.Context, story model.UserStory) (storyView, error) {
	tasks, err := h.db.ListTasksByStory(ctx, story.ID)
	if err != nil {
		return storyView{}, err
	}
	sv := storyView{UserStory: story, Tasks: []taskView{}}
	for _, task := range tasks {
		links, err := h.db.ListLinksByTask(ctx, task.ID)
		if err != nil {
			return storyView{}, err
		}
		if links == nil {
			links = []model.GithubLink{}
		}
		sv.Tasks = append(sv.Tasks, taskView{Task: task, GithubLinks: links})
	}
	return sv, nil
}
