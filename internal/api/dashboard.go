// internal/api/dashboard.go
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"

	"devsprint-service/internal/model"
	"devsprint-service/internal/timeline"
)

// burndownPayload is chart-ready: one label per sprint day, an ideal
// linear descent and the recorded actual remaining points. Actual
// stops at the last captured snapshot, so a chart renders a partial
// line for an in-flight sprint; before the first capture it holds a
// single live-remaining point.
type burndownPayload struct {
	SprintID    int64     `json:"sprint_id"`
	TotalDays   int       `json:"total_days"`
	TotalPoints int       `json:"total_points"`
	Labels      []string  `json:"labels"`
	Ideal       []float64 `json:"ideal"`
	Actual      []int     `json:"actual"`
}

// dashboardPayload renders even without an active sprint: the sprint,
// burndown and countdown fields go null and the review queue stays.
type dashboardPayload struct {
	Sprint         *sprintView      `json:"sprint"`
	Burndown       *burndownPayload `json:"burndown"`
	ReviewQueue    []model.Task     `json:"review_queue"`
	TechDebtPoints int              `json:"tech_debt_points"`
	CountdownDays  *int             `json:"sprint_countdown_days"`
}

// GET /api/v1/burndown/{sprintID}
func (h *Handler) getBurndown(w http.ResponseWriter, r *http.Request) {
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
	payload, err := h.buildBurndown(r.Context(), sprint)
	if err != nil {
		h.respondWithFailure(w, err, "Failed to build burndown")
		return
	}
	respondWithJSON(w, http.StatusOK, payload)
}

// GET /api/v1/dashboard
func (h *Handler) getDashboard(w http.ResponseWriter, r *http.Request) {
	var payload dashboardPayload

	sprint, err := h.db.GetActiveSprint(r.Context())
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		// No active sprint: the board still renders around nulls.
	case err != nil:
		h.respondWithFailure(w, err, "Failed to get active sprint")
		return
	default:
		view, err := h.buildSprintView(r.Context(), sprint)
		if err != nil {
			h.respondWithFailure(w, err, "Failed to assemble sprint")
			return
		}
		burndown, err := h.buildBurndown(r.Context(), sprint)
		if err != nil {
			h.respondWithFailure(w, err, "Failed to build burndown")
			return
		}
		for _, story := range view.Stories {
			if story.IsTechDebt {
				payload.TechDebtPoints += story.StoryPoints
			}
		}
		tl := timeline.Timeline{
			StartDate:  sprint.StartDate,
			EndDate:    sprint.EndDate,
			OffsetDays: sprint.SimulatedOffsetDays,
		}
		countdown := tl.Countdown(h.now())
		payload.Sprint = &view
		payload.Burndown = &burndown
		payload.CountdownDays = &countdown
	}

	reviewQueue, err := h.db.ListTasksInReview(r.Context())
	if err != nil {
		h.respondWithFailure(w, err, "Failed to list review queue")
		return
	}
	if reviewQueue == nil {
		reviewQueue = []model.Task{}
	}
	payload.ReviewQueue = reviewQueue

	respondWithJSON(w, http.StatusOK, payload)
}

// buildBurndown assembles the chart payload for one sprint. The ideal
// line descends linearly from the sprint's total committed points to
// zero on the last day; the actual line replays recorded snapshots,
// carrying the last known value across days without one.
func (h *Handler) buildBurndown(ctx context.Context, sprint model.Sprint) (burndownPayload, error) {
	stories, err := h.db.ListStoriesBySprint(ctx, sprint.ID)
	if err != nil {
		return burndownPayload{}, err
	}
	totalPoints := 0
	liveRemaining := 0
	for _, story := range stories {
		tasks, err := h.db.ListTasksByStory(ctx, story.ID)
		if err != nil {
			return burndownPayload{}, err
		}
		for _, task := range tasks {
			totalPoints += task.StoryPoints
			if task.Status != model.TaskDone {
				liveRemaining += task.StoryPoints
			}
		}
	}

	start := timeline.DateOf(sprint.StartDate)
	end := timeline.DateOf(sprint.EndDate)
	totalDays := int(end.Sub(start).Hours()/24) + 1

	payload := burndownPayload{
		SprintID:    sprint.ID,
		TotalDays:   totalDays,
		TotalPoints: totalPoints,
		Labels:      make([]string, 0, totalDays),
		Ideal:       make([]float64, 0, totalDays),
		Actual:      []int{},
	}

	perDay := 0.0
	if totalDays > 1 {
		perDay = float64(totalPoints) / float64(totalDays-1)
	}
	for i := 0; i < totalDays; i++ {
		payload.Labels = append(payload.Labels, fmt.Sprintf("Day %d", i+1))
		ideal := float64(totalPoints) - perDay*float64(i)
		if ideal < 0 {
			ideal = 0
		}
		payload.Ideal = append(payload.Ideal, ideal)
	}

	snapshots, err := h.db.ListSnapshots(ctx, sprint.ID)
	if err != nil {
		return burndownPayload{}, err
	}
	if len(snapshots) == 0 {
		// No captures yet: seed the series with the live remaining
		// total so a brand-new sprint still draws a point.
		payload.Actual = []int{liveRemaining}
		return payload, nil
	}
	remainingByDay := make(map[int]int, len(snapshots))
	lastDay := -1
	for _, snap := range snapshots {
		day := int(timeline.DateOf(snap.SnapshotDate).Sub(start).Hours() / 24)
		if day < 0 || day >= totalDays {
			continue
		}
		remainingByDay[day] = snap.RemainingPoints
		if day > lastDay {
			lastDay = day
		}
	}
	carried := totalPoints
	for i := 0; i <= lastDay; i++ {
		if v, ok := remainingByDay[i]; ok {
			carried = v
		}
		payload.Actual = append(payload.Actual, carried)
	}

	return payload, nil
}
