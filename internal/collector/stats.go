package collector

import (
	"context"
	"fmt"

	"github.com/levinOo/truenas-exporter/internal/models"
	"github.com/levinOo/truenas-exporter/internal/stats"
)

// statsCollector отдаёт последние значения временных рядов хранилища.
type statsCollector struct {
	deps Deps
}

func (c *statsCollector) Name() string { return "stats" }

func (c *statsCollector) Collect(ctx context.Context, _ API) ([]models.MetricFamily, error) {
	table, err := c.deps.Stats.Collect(ctx)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}

	fams := stats.Families(table)

	skipped := models.NewFamily("truenas_exporter_stats_chunks_skipped",
		"Stats chunks dropped during the last scrape because the appliance response was unusable.", models.Gauge)
	skipped.Add(float64(table.Skipped))
	series := models.NewFamily("truenas_exporter_stats_series",
		"Stats series returned during the last scrape.", models.Gauge)
	series.Add(float64(len(table.Columns)))

	return append(fams, models.Families(series, skipped)...), nil
}
