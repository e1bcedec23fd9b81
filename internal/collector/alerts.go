package collector

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/levinOo/truenas-exporter/internal/models"
)

type alert struct {
	UUID      string `json:"uuid"`
	Klass     string `json:"klass"`
	Level     string `json:"level"`
	Formatted string `json:"formatted"`
	Dismissed bool   `json:"dismissed"`
}

type alertsCollector struct{}

func (c *alertsCollector) Name() string { return "alerts" }

func (c *alertsCollector) Collect(ctx context.Context, api API) ([]models.MetricFamily, error) {
	var alerts []alert
	if err := api.Get(ctx, "/alert/list", &alerts); err != nil {
		return nil, fmt.Errorf("alerts: %w", err)
	}

	type key struct {
		level, klass string
		dismissed    bool
	}
	counts := make(map[key]int)

	info := models.NewFamily("truenas_alert_info", "Active (not dismissed) alert.", models.Info,
		"uuid", "klass", "level", "formatted")

	for _, a := range alerts {
		counts[key{a.Level, a.Klass, a.Dismissed}]++
		if !a.Dismissed {
			info.AddInfo(a.UUID, a.Klass, a.Level, a.Formatted)
		}
	}

	keys := make([]key, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].level != keys[j].level {
			return keys[i].level < keys[j].level
		}
		if keys[i].klass != keys[j].klass {
			return keys[i].klass < keys[j].klass
		}
		return !keys[i].dismissed && keys[j].dismissed
	})

	total := models.NewFamily("truenas_alerts", "Number of alerts by level, class and dismissal.", models.Gauge,
		"level", "klass", "dismissed")
	for _, k := range keys {
		total.Add(float64(counts[k]), k.level, k.klass, strconv.FormatBool(k.dismissed))
	}

	return models.Families(total, info), nil
}
