// internal/api/activity.go
package api

import (
	"net/http"

	"devsprint-service/internal/apperrors"
	"devsprint-service/internal/model"
)

// githubWebhookPayload mirrors the subset of GitHub's push and
// pull_request event payloads that the correlator consumes.
type githubWebhookPayload struct {
	Repository struct {
		FullName string `json:"full_name"`
	} `json:"repository"`
	Commits     []model.CommitEvent     `json:"commits"`
	PullRequest *model.PullRequestEvent `json:"pull_request"`
}

// POST /api/v1/github/webhook
func (h *Handler) githubWebhook(w http.ResponseWriter, r *http.Request) {
	var payload githubWebhookPayload
	if err := decodeJSON(r, &payload); err != nil {
		h.respondWithFailure(w, err, "Failed to decode webhook")
		return
	}

	event := model.ActivityEvent{
		RepoName:    payload.Repository.FullName,
		Commits:     payload.Commits,
		PullRequest: payload.PullRequest,
	}
	result, err := h.ingester.Ingest(r.Context(), event)
	if err != nil {
		h.respondWithFailure(w, err, "Failed to ingest activity event")
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

type advanceDaysRequest struct {
	SprintID *int64 `json:"sprint_id"`
	Days     *int   `json:"days"`
}

type setRemainingDaysRequest struct {
	SprintID      *int64 `json:"sprint_id"`
	RemainingDays *int   `json:"remaining_days"`
}

// resolveSprintID falls back to the active sprint when the request
// does not name one.
func (h *Handler) resolveSprintID(r *http.Request, explicit *int64) (int64, error) {
	if explicit != nil {
		return *explicit, nil
	}
	sprint, err := h.db.GetActiveSprint(r.Context())
	if err != nil {
		return 0, err
	}
	return sprint.ID, nil
}

// POST /api/v1/simulate/advance_days
func (h *Handler) advanceDays(w http.ResponseWriter, r *http.Request) {
	var req advanceDaysRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondWithFailure(w, err, "Failed to decode request")
		return
	}
	if req.Days == nil {
		h.respondWithFailure(w, apperrors.InvalidArgumentf("days is required"), "")
		return
	}
	sprintID, err := h.resolveSprintID(r, req.SprintID)
	if err != nil {
		h.respondWithFailure(w, err, "Failed to resolve sprint")
		return
	}
	if err := h.simulator.AdvanceDays(r.Context(), sprintID, *req.Days); err != nil {
		h.respondWithFailure(w, err, "Failed to advance simulation")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"sprint_id":     sprintID,
		"days_advanced": *req.Days,
	})
}

// POST /api/v1/simulate/set_remaining_days
func (h *Handler) setRemainingDays(w http.ResponseWriter, r *http.Request) {
	var req setRemainingDaysRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondWithFailure(w, err, "Failed to decode request")
		return
	}
	if req.RemainingDays == nil {
		h.respondWithFailure(w, apperrors.InvalidArgumentf("remaining_days is required"), "")
		return
	}
	sprintID, err := h.resolveSprintID(r, req.SprintID)
	if err != nil {
		h.respondWithFailure(w, err, "Failed to resolve sprint")
		return
	}
	if err := h.simulator.SetRemainingDays(r.Context(), sprintID, *req.RemainingDays); err != nil {
		h.respondWithFailure(w, err, "Failed to set remaining days")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"sprint_id":      sprintID,
		"remaining_days": *req.RemainingDays,
	})
}
