// internal/api/stories.go
package api

import (
	"net/http"

	"devsprint-service/internal/apperrors"
	"devsprint-service/internal/database"
	"devsprint-service/internal/model"
)

type storyRequest struct {
	SprintID    *int64  `json:"sprint_id"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	StoryPoints *int    `json:"story_points"`
	Priority    *int    `json:"priority"`
	IsTechDebt  *bool   `json:"is_tech_debt"`
	Status      *string `json:"status"`
}

// POST /api/v1/stories
func (h *Handler) createStory(w http.ResponseWriter, r *http.Request) {
	var req storyRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondWithFailure(w, err, "Failed to decode story")
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
	priority := 3
	if req.Priority != nil {
		priority = *req.Priority
	}
	if priority < 1 || priority > 5 {
		h.respondWithFailure(w, apperrors.InvalidArgumentf("priority must be between 1 and 5"), "")
		return
	}
	if req.SprintID != nil {
		if _, err := h.db.GetSprint(r.Context(), *req.SprintID); err != nil {
			h.respondWithFailure(w, err, "Failed to check sprint")
			return
		}
	}

	status := model.StoryPlanned
	if req.Status != nil {
		var err error
		if status, err = parseStoryStatus(*req.Status); err != nil {
			h.respondWithFailure(w, err, "")
			return
		}
	}
	isTechDebt := req.IsTechDebt != nil && *req.IsTechDebt

	story, err := h.db.CreateStory(r.Context(), database.CreateStoryParams{
		SprintID:    req.SprintID,
		Title:       *req.Title,
		Description: req.Description,
		StoryPoints: *req.StoryPoints,
		Priority:    priority,
		IsTechDebt:  isTechDebt,
		Status:      status,
	})
	if err != nil {
		h.respondWithFailure(w, err, "Failed to create story")
		return
	}
	respondWithJSON(w, http.StatusCreated, story)
}

// GET /api/v1/stories
func (h *Handler) listStories(w http.ResponseWriter, r *http.Request) {
	stories, err := h.db.ListStories(r.Context())
	if err != nil {
		h.respondWithFailure(w, err, "Failed to list stories")
		return
	}
	respondWithJSON(w, http.StatusOK, stories)
}

// GET /api/v1/stories/{storyID}
func (h *Handler) getStory(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "storyID")
	if err != nil {
		h.respondWithFailure(w, err, "")
		return
	}
	story, err := h.db.GetStory(r.Context(), id)
	if err != nil {
		h.respondWithFailure(w, err, "Failed to get story")
		return
	}
	view, err := h.buildStoryView(r.Context(), story)
	if err != nil {
		h.respondWithFailure(w, err, "Failed to assemble story")
		return
	}
	respondWithJSON(w, http.StatusOK, view)
}

// PATCH /api/v1/stories/{storyID}
func (h *Handler) updateStory(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "storyID")
	if err != nil {
		h.respondWithFailure(w, err, "")
		return
	}
	var req storyRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondWithFailure(w, err, "Failed to decode story")
		return
	}

	story, err := h.db.GetStory(r.Context(), id)
	if err != nil {
		h.respondWithFailure(w, err, "Failed to get story")
		return
	}

	if req.SprintID != nil {
		if _, err := h.db.GetSprint(r.Context(), *req.SprintID); err != nil {
			h.respondWithFailure(w, err, "Failed to check sprint")
			return
		}
		story.SprintID = req.SprintID
	}
	if req.Title != nil {
		story.Title = *req.Title
	}
	if req.Description != nil {
		story.Description = req.Description
	}
	if req.StoryPoints != nil {
		if *req.StoryPoints < 1 {
			h.respondWithFailure(w, apperrors.InvalidArgumentf("story_points must be a positive integer"), "")
			return
		}
		story.StoryPoints = *req.StoryPoints
	}
	if req.Priority != nil {
		if *req.Priority < 1 || *req.Priority > 5 {
			h.respondWithFailure(w, apperrors.InvalidArgumentf("priority must be between 1 and 5"), "")
			return
		}
		story.Priority = *req.Priority
	}
	if req.IsTechDebt != nil {
		story.IsTechDebt = *req.IsTechDebt
	}
	if req.Status != nil {
		if story.Status, err = parseStoryStatus(*req.Status); err != nil {
			h.respondWithFailure(w, err, "")
			return
		}
	}

	updated, err := h.db.UpdateStory(r.Context(), database.UpdateStoryParams{
		ID:          story.ID,
		SprintID:    story.SprintID,
		Title:       story.Title,
		Description: story.Description,
		StoryPoints: story.StoryPoints,
		Priority:    story.Priority,
		IsTechDebt:  story.IsTechDebt,
		Status:      story.Status,
	})
	if err != nil {
		h.respondWithFailure(w, err, "Failed to update story")
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

// DELETE /api/v1/stories/{storyID}
func (h *Handler) deleteStory(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "storyID")
	if err != nil {
		h.respondWithFailure(w, err, "")
		return
	}
	if err := h.db.DeleteStory(r.Context(), id); err != nil {
		h.respondWithFailure(w, err, "Failed to delete story")
		return
	}
	respondWithJSON(w, http.StatusNoContent, nil)
}
