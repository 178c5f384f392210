package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stagewatch/stagewatch/internal/cache"
	"github.com/stagewatch/stagewatch/internal/store"
	"github.com/stagewatch/stagewatch/pkg/models"
)

// jobStatusTTL bounds how long a published job status outlives its run.
const jobStatusTTL = 30 * time.Minute

// BatchSource produces one consolidated, deduplicated batch per cycle.
// *scraper.Aggregator satisfies this.
type BatchSource interface {
	Run(ctx context.Context) (models.Batch, []string)
}

// Runner executes one end-to-end ingestion cycle: record a job start, collect
// the batch, persist it, recompute derived statistics, and record the job's
// terminal status. Source-level errors degrade the run but do not fail it;
// only persistence and statistics failures produce a failed job.
type Runner struct {
	store  store.Store
	agg    BatchSource
	cache  cache.Cache
	logger *slog.Logger
}

func NewRunner(st store.Store, agg BatchSource, c cache.Cache, logger *slog.Logger) *Runner {
	return &Runner{store: st, agg: agg, cache: c, logger: logger}
}

// Run performs one ingestion cycle and returns the terminal job record.
// The returned error is non-nil only when the job record itself could not
// be written; a failed cycle with a recorded failed job returns nil.
func (r *Runner) Run(ctx context.Context) (*models.ScrapeJob, error) {
	job := &models.ScrapeJob{
		ID:        uuid.New(),
		Source:    "all",
		Status:    models.JobStatusRunning,
		StartTime: time.Now().UTC(),
	}
	if err := r.store.CreateScrapeJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to record job start: %w", err)
	}
	_ = r.cache.SetJobStatus(ctx, job.ID, models.JobStatusRunning, jobStatusTTL)

	r.logger.Info("ingestion run started", "job_id", job.ID)

	batch, sourceErrs := r.agg.Run(ctx)

	created, err := r.persist(ctx, batch)
	if err != nil {
		return r.fail(ctx, job, fmt.Errorf("persistence failed: %w", err))
	}

	if err := r.recomputeStats(ctx); err != nil {
		return r.fail(ctx, job, fmt.Errorf("statistics recompute failed: %w", err))
	}

	opts := []store.JobFinishOption{store.WithConcertsFound(len(created))}
	if len(sourceErrs) > 0 {
		opts = append(opts, store.WithErrorMessage(strings.Join(sourceErrs, "; ")))
	}
	if err := r.store.FinishScrapeJob(ctx, job.ID, models.JobStatusCompleted, opts...); err != nil {
		return nil, fmt.Errorf("failed to record job completion: %w", err)
	}
	_ = r.cache.SetJobStatus(ctx, job.ID, models.JobStatusCompleted, jobStatusTTL)
	r.invalidateListings(ctx)

	r.logger.Info("ingestion run completed",
		"job_id", job.ID,
		"concerts_found", len(created),
		"source_errors", len(sourceErrs))

	return r.store.GetScrapeJob(ctx, job.ID)
}

func (r *Runner) fail(ctx context.Context, job *models.ScrapeJob, cause error) (*models.ScrapeJob, error) {
	r.logger.Error("ingestion run failed", "job_id", job.ID, "error", cause)
	if err := r.store.FinishScrapeJob(ctx, job.ID, models.JobStatusFailed,
		store.WithErrorMessage(cause.Error())); err != nil {
		return nil, fmt.Errorf("failed to record job failure: %w", err)
	}
	_ = r.cache.SetJobStatus(ctx, job.ID, models.JobStatusFailed, jobStatusTTL)
	return r.store.GetScrapeJob(ctx, job.ID)
}

// invalidateListings drops the cached dashboard and listing responses so the
// next read reflects the batch this run just persisted. Errors only degrade
// freshness (entries expire on their own TTL), so they are logged, not fatal.
func (r *Runner) invalidateListings(ctx context.Context) {
	if err := r.cache.Delete(ctx, cache.DashboardStatsKey()); err != nil {
		r.logger.Warn("failed to invalidate dashboard stats cache", "error", err)
	}
	for _, prefix := range []string{cache.TrendingArtistsPrefix, cache.FeaturedVenuesPrefix} {
		if err := r.cache.DeleteByPrefix(ctx, prefix); err != nil {
			r.logger.Warn("failed to invalidate listing cache", "prefix", prefix, "error", err)
		}
	}
}

// persist writes the batch sequentially: concerts in bulk, then artists and
// venues created only when their identity key is not already present.
func (r *Runner) persist(ctx context.Context, batch models.Batch) ([]*models.Concert, error) {
	created, err := r.store.BulkCreateConcerts(ctx, batch.Concerts)
	if err != nil {
		return nil, err
	}

	for _, a := range batch.Artists {
		if _, err := r.store.GetArtistByName(ctx, a.Name); err == nil {
			continue
		} else if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		if _, err := r.store.CreateArtist(ctx, a); err != nil && !errors.Is(err, store.ErrDuplicateKey) {
			return nil, err
		}
	}

	for _, v := range batch.Venues {
		if _, err := r.store.GetVenueByNameCity(ctx, v.Name, v.City); err == nil {
			continue
		} else if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		if _, err := r.store.CreateVenue(ctx, v); err != nil && !errors.Is(err, store.ErrDuplicateKey) {
			return nil, err
		}
	}

	return created, nil
}
