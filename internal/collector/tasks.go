package collector

import (
	"context"
	"fmt"

	"github.com/levinOo/truenas-exporter/internal/enum"
	"github.com/levinOo/truenas-exporter/internal/models"
)

type taskState struct {
	State    *string  `json:"state"`
	Datetime *apiTime `json:"datetime"`
}

type replicationTask struct {
	ID      int        `json:"id"`
	Name    string     `json:"name"`
	Enabled bool       `json:"enabled"`
	State   *taskState `json:"state"`
}

type replicationCollector struct {
	deps Deps
}

func (c *replicationCollector) Name() string { return "replication" }

func (c *replicationCollector) Collect(ctx context.Context, api API) ([]models.MetricFamily, error) {
	var tasks []replicationTask
	if err := api.Get(ctx, "/replication", &tasks); err != nil {
		return nil, fmt.Errorf("replication tasks: %w", err)
	}

	labels := []string{"id", "name"}
	state := models.NewFamily("truenas_replication_state",
		enum.Help("State of the replication task", enum.ReplicationState), models.Gauge, labels...)
	lastRun := models.NewFamily("truenas_replication_last_run_timestamp_seconds",
		"Time the replication task state last changed.", models.Gauge, labels...)
	enabled := models.NewFamily("truenas_replication_enabled", "Whether the replication task is enabled.", models.Gauge, labels...)

	for _, t := range tasks {
		lv := []string{itoa(t.ID), t.Name}
		enabled.Add(boolf(t.Enabled), lv...)
		if t.State == nil {
			continue
		}
		if t.State.State != nil {
			state.Add(float64(c.deps.Normalizer.Normalize(enum.ReplicationState, *t.State.State)), lv...)
		}
		if v, ok := t.State.Datetime.unix(); ok {
			lastRun.Add(v, lv...)
		}
	}

	return models.Families(state, lastRun, enabled), nil
}

type snapshotTask struct {
	ID      int        `json:"id"`
	Dataset string     `json:"dataset"`
	Enabled bool       `json:"enabled"`
	State   *taskState `json:"state"`
}

type snapshotsCollector struct {
	deps Deps
}

func (c *snapshotsCollector) Name() string { return "snapshots" }

func (c *snapshotsCollector) Collect(ctx context.Context, api API) ([]models.MetricFamily, error) {
	var tasks []snapshotTask
	if err := api.Get(ctx, "/pool/snapshottask", &tasks); err != nil {
		return nil, fmt.Errorf("snapshot tasks: %w", err)
	}

	labels := []string{"id", "dataset"}
	state := models.NewFamily("truenas_snapshot_task_state",
		enum.Help("State of the periodic snapshot task", enum.SnapshotTaskState), models.Gauge, labels...)
	lastRun := models.NewFamily("truenas_snapshot_task_last_run_timestamp_seconds",
		"Time the snapshot task state last changed.", models.Gauge, labels...)
	enabled := models.NewFamily("truenas_snapshot_task_enabled", "Whether the snapshot task is enabled.", models.Gauge, labels...)

	for _, t := range tasks {
		lv := []string{itoa(t.ID), t.Dataset}
		enabled.Add(boolf(t.Enabled), lv...)
		if t.State == nil {
			continue
		}
		if t.State.State != nil {
			state.Add(float64(c.deps.Normalizer.Normalize(enum.SnapshotTaskState, *t.State.State)), lv...)
		}
		if v, ok := t.State.Datetime.unix(); ok {
			lastRun.Add(v, lv...)
		}
	}

	return models.Families(state, lastRun, enabled), nil
}
