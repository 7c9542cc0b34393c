// internal/api/handler.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5"

	"devsprint-service/internal/apperrors"
	"devsprint-service/internal/correlator"
	"devsprint-service/internal/database"
	"devsprint-service/internal/model"
)

// Simulator is the slice of the simulation engine the API drives.
type Simulator interface {
	AdvanceDays(ctx context.Context, sprintID int64, days int) error
	SetRemainingDays(ctx context.Context, sprintID int64, remainingDays int) error
}

// Ingester consumes webhook-shaped activity events.
type Ingester interface {
	Ingest(ctx context.Context, event model.ActivityEvent) (correlator.Result, error)
}

// Handler is the container for API dependencies.
type Handler struct {
	db        database.Querier
	simulator Simulator
	ingester  Ingester
	logger    *slog.Logger
	now       func() time.Time
}

// NewRouter creates and configures a new chi router with all API
// routes. A nil now falls back to time.Now.
func NewRouter(db database.Querier, simulator Simulator, ingester Ingester, logger *slog.Logger, now func() time.Time) http.Handler {
	if now == nil {
		now = time.Now
	}
	h := &Handler{
		db:        db,
		simulator: simulator,
		ingester:  ingester,
		logger:    logger,
		now:       now,
	}

	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// API Routes
	r.Get("/health", h.healthCheck)
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/sprints", func(r chi.Router) {
			r.Post("/", h.createSprint)
			r.Get("/", h.listSprints)
			r.Get("/active", h.getActiveSprint)
			r.Get("/{sprintID}", h.getSprint)
			r.Patch("/{sprintID}", h.updateSprint)
			r.Delete("/{sprintID}", h.deleteSprint)
		})
		r.Route("/stories", func(r chi.Router) {
			r.Post("/", h.createStory)
			r.Get("/", h.listStories)
			r.Get("/{storyID}", h.getStory)
			r.Patch("/{storyID}", h.updateStory)
			r.Delete("/{storyID}", h.deleteStory)
		})
		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", h.listTasks)
			r.Post("/", h.createTask)
			r.Patch("/{taskID}", h.updateTask)
			r.Delete("/{taskID}", h.deleteTask)
		})
		r.Post("/github/webhook", h.githubWebhook)
		r.Post("/simulate/advance_days", h.advanceDays)
		r.Post("/simulate/set_remaining_days", h.setRemainingDays)
		r.Get("/burndown/{sprintID}", h.getBurndown)
		r.Get("/dashboard", h.getDashboard)
	})

	return r
}

// healthCheck is a simple health endpoint.
func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondWithJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func respondWithError(w http.ResponseWriter, status int, message string) {
	respondWithJSON(w, status, map[string]string{"error": message})
}

// respondWithFailure maps the service error taxonomy onto HTTP codes;
// anything unclassified is a 500 and gets logged.
func (h *Handler) respondWithFailure(w http.ResponseWriter, err error, fallback string) {
	switch {
	case apperrors.IsInvalidArgument(err), apperrors.IsMalformedPayload(err):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case apperrors.IsNotFound(err), errors.Is(err, pgx.ErrNoRows):
		respondWithError(w, http.StatusNotFound, err.Error())
	case apperrors.IsConflict(err):
		respondWithError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error(fallback, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.MalformedPayloadf("invalid JSON body: %v", err)
	}
	return nil
}

func parseDate(s string) (time.Time, error) {
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, apperrors.InvalidArgumentf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return d, nil
}

func parseSprintStatus(s string) (model.SprintStatus, error) {
	switch st := model.SprintStatus(s); st {
	case model.SprintActive, model.SprintClosed:
		return st, nil
	}
	return "", apperrors.InvalidArgumentf("invalid sprint status %q", s)
}

func parseStoryStatus(s string) (model.StoryStatus, error) {
	switch st := model.StoryStatus(s); st {
	case model.StoryPlanned, model.StoryActive, model.StoryDone:
		return st, nil
	}
	return "", apperrors.InvalidArgumentf("invalid story status %q", s)
}

func parseTaskStatus(s string) (model.TaskStatus, error) {
	switch st := model.TaskStatus(s); st {
	case model.TaskTodo, model.TaskInProgress, model.TaskCodeReview, model.TaskDone:
		return st, nil
	}
	return "", apperrors.InvalidArgumentf("invalid task status %q", s)
}

func urlID(r *http.Request, key string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, key), 10, 64)
	if err != nil {
		return 0, apperrors.InvalidArgumentf("invalid %s", key)
	}
	return id, nil
}
