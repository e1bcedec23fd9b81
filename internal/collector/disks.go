package collector

import (
	"context"
	"fmt"

	"github.com/levinOo/truenas-exporter/internal/models"
)

type disk struct {
	Name         string   `json:"name"`
	Serial       string   `json:"serial"`
	Model        *string  `json:"model"`
	Type         string   `json:"type"`
	Size         *float64 `json:"size"`
	RotationRate *float64 `json:"rotationrate"`
	ToggleSmart  *bool    `json:"togglesmart"`
}

type disksCollector struct{}

func (c *disksCollector) Name() string { return "disks" }

func (c *disksCollector) Collect(ctx context.Context, api API) ([]models.MetricFamily, error) {
	var disks []disk
	if err := api.Get(ctx, "/disk", &disks); err != nil {
		return nil, fmt.Errorf("disks: %w", err)
	}

	labels := []string{"name", "serial", "type"}
	info := models.NewFamily("truenas_disk_info", "Disk inventory.", models.Info, "name", "serial", "model", "type")
	size := models.NewFamily("truenas_disk_size_bytes", "Disk capacity.", models.Gauge, labels...)
	rpm := models.NewFamily("truenas_disk_rotation_rpm", "Disk rotation rate, 0 for solid state.", models.Gauge, labels...)
	smart := models.NewFamily("truenas_disk_smart_enabled", "Whether SMART is enabled on the disk.", models.Gauge, labels...)

	for _, d := range disks {
		lv := []string{d.Name, d.Serial, d.Type}

		model := ""
		if d.Model != nil {
			model = *d.Model
		}
		info.AddInfo(d.Name, d.Serial, model, d.Type)
		size.AddOpt(d.Size, lv...)
		rpm.AddOpt(d.RotationRate, lv...)
		if d.ToggleSmart != nil {
			smart.Add(boolf(*d.ToggleSmart), lv...)
		}
	}

	return models.Families(info, size, rpm, smart), nil
}
