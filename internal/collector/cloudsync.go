package collector

import (
	"context"
	"fmt"

	"github.com/levinOo/truenas-exporter/internal/enum"
	"github.com/levinOo/truenas-exporter/internal/models"
)

type cloudSyncTask struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
	Enabled     bool   `json:"enabled"`
	Job         *struct {
		State    string `json:"state"`
		Progress *struct {
			Percent *float64 `json:"percent"`
		} `json:"progress"`
		TimeStarted  *apiTime `json:"time_started"`
		TimeFinished *apiTime `json:"time_finished"`
	} `json:"job"`
}

type cloudSyncCollector struct {
	deps Deps
}

func (c *cloudSyncCollector) Name() string { return "cloudsync" }

func (c *cloudSyncCollector) Collect(ctx context.Context, api API) ([]models.MetricFamily, error) {
	var tasks []cloudSyncTask
	if err := api.Get(ctx, "/cloudsync", &tasks); err != nil {
		return nil, fmt.Errorf("cloud sync tasks: %w", err)
	}

	labels := []string{"id", "description"}
	enabled := models.NewFamily("truenas_cloudsync_enabled", "Whether the cloud sync task is enabled.", models.Gauge, labels...)
	state := models.NewFamily("truenas_cloudsync_state",
		enum.Help("State of the last cloud sync job", enum.CloudSyncState), models.Gauge, labels...)
	result := models.NewFamily("truenas_cloudsync_result",
		enum.Help("Result of the last finished cloud sync job", enum.CloudSyncResult), models.Gauge, labels...)
	progress := models.NewFamily("truenas_cloudsync_progress_percent", "Progress of the last cloud sync job.", models.Gauge, labels...)
	elapsedF := models.NewFamily("truenas_cloudsync_elapsed_seconds", "Duration of the last cloud sync job, up to now if still running.", models.Gauge, labels...)
	started := models.NewFamily("truenas_cloudsync_started_timestamp_seconds", "Start time of the last cloud sync job.", models.Gauge, labels...)

	now := c.deps.now()
	for _, t := range tasks {
		lv := []string{itoa(t.ID), t.Description}
		enabled.Add(boolf(t.Enabled), lv...)

		job := t.Job
		if job == nil {
			continue
		}

		state.Add(float64(c.deps.Normalizer.Normalize(enum.CloudSyncState, job.State)), lv...)
		// Итог берётся из того же состояния: промах уже учтён выше.
		if job.TimeFinished != nil && !job.TimeFinished.IsZero() {
			if code, ok := c.deps.Normalizer.Code(enum.CloudSyncResult, job.State); ok {
				result.Add(float64(code), lv...)
			}
		}
		if job.Progress != nil {
			progress.AddOpt(job.Progress.Percent, lv...)
		}
		if v, ok := elapsed(job.TimeStarted, job.TimeFinished, now); ok {
			elapsedF.Add(v, lv...)
		}
		if v, ok := job.TimeStarted.unix(); ok {
			started.Add(v, lv...)
		}
	}

	return models.Families(enabled, state, result, progress, elapsedF, started), nil
}
