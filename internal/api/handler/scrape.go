package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stagewatch/stagewatch/internal/api/response"
	"github.com/stagewatch/stagewatch/internal/cache"
	"github.com/stagewatch/stagewatch/internal/scheduler"
	"github.com/stagewatch/stagewatch/internal/store"
	"github.com/stagewatch/stagewatch/pkg/models"
)

const recentJobCount = 10

// Trigger is the scheduler surface the scrape handlers depend on.
type Trigger interface {
	TriggerAsync() bool
	Status() scheduler.Status
}

// JobStore is the subset of the store the scrape handlers depend on.
type JobStore interface {
	GetScrapeJob(ctx context.Context, id uuid.UUID) (*models.ScrapeJob, error)
	ListScrapeJobs(ctx context.Context, limit int) ([]*models.ScrapeJob, error)
}

// NewTriggerScrapeHandler returns an http.HandlerFunc for POST /api/v1/scrape/trigger.
// Fire-and-forget: the response reports only whether a run was started.
func NewTriggerScrapeHandler(sched Trigger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		started := sched.TriggerAsync()
		response.Accepted(w, map[string]any{
			"started": started,
		})
	}
}

// NewScrapeStatusHandler returns an http.HandlerFunc for GET /api/v1/scrape/status.
func NewScrapeStatusHandler(sched Trigger, st JobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobs, err := st.ListScrapeJobs(r.Context(), recentJobCount)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to load job history", nil)
			return
		}

		status := sched.Status()
		response.JSON(w, map[string]any{
			"in_progress":     status.InProgress,
			"schedule_active": status.ScheduleActive,
			"recent_jobs":     jobs,
		})
	}
}

// NewListScrapeJobsHandler returns an http.HandlerFunc for GET /api/v1/scrape/jobs.
func NewListScrapeJobsHandler(st JobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseLimit(r, recentJobCount)
		jobs, err := st.ListScrapeJobs(r.Context(), limit)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to load job history", nil)
			return
		}
		response.Collection(w, jobs, len(jobs))
	}
}

// NewGetScrapeJobHandler returns an http.HandlerFunc for GET /api/v1/scrape/jobs/{jobID}.
// The ingestion runner publishes each job's status to the cache, so when the
// store is unreachable the handler still answers pollers with the cached
// status instead of a 500.
func NewGetScrapeJobHandler(st JobStore, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "jobID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"jobID must be a valid UUID", nil)
			return
		}

		job, err := st.GetScrapeJob(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "Job not found", nil)
			return
		}
		if err != nil {
			if status, ok, cerr := c.GetJobStatus(r.Context(), id); cerr == nil && ok {
				response.JSON(w, map[string]any{
					"id":     id,
					"status": status,
				})
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to load job", nil)
			return
		}
		response.JSON(w, job)
	}
}
