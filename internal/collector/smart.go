package collector

import (
	"context"
	"fmt"

	"github.com/levinOo/truenas-exporter/internal/enum"
	"github.com/levinOo/truenas-exporter/internal/models"
)

// smartCollector отдаёт результаты SMART-тестов из кэша. Запрос к хранилищу
// выполняется, только когда истёк срок жизни кэша.
type smartCollector struct {
	deps Deps
}

func (c *smartCollector) Name() string { return "smart" }

func (c *smartCollector) Collect(ctx context.Context, _ API) ([]models.MetricFamily, error) {
	now := c.deps.now()

	results, err := c.deps.Smart.Get(ctx, now)
	if err != nil && len(results) == 0 {
		return nil, fmt.Errorf("smart results: %w", err)
	}
	if err != nil && c.deps.Logger != nil {
		c.deps.Logger.Warnw("smart refresh failed, serving cached results", "error", err)
	}

	labels := []string{"disk", "num", "description"}
	result := models.NewFamily("truenas_smart_test_result",
		enum.Help("Result of the SMART test", enum.SmartTestResult), models.Gauge, labels...)
	lifetime := models.NewFamily("truenas_smart_test_lifetime_hours",
		"Disk power-on hours when the SMART test ran.", models.Gauge, labels...)
	remaining := models.NewFamily("truenas_smart_test_remaining_percent",
		"Remaining percentage of a running SMART test.", models.Gauge, labels...)
	lba := models.NewFamily("truenas_smart_test_lba_of_first_error",
		"LBA of the first error found by the SMART test.", models.Gauge, labels...)
	age := models.NewFamily("truenas_smart_cache_age_seconds",
		"Seconds since SMART results were last fetched from the appliance.", models.Gauge)

	for _, d := range results {
		for _, t := range d.Tests {
			lv := []string{d.Disk, itoa(t.Num), t.Description}
			result.Add(float64(c.deps.Normalizer.Normalize(enum.SmartTestResult, t.Status)), lv...)
			lifetime.AddOpt(t.Lifetime, lv...)
			remaining.AddOpt(t.Remaining, lv...)
			lba.AddOpt(t.LBAOfFirstError, lv...)
		}
	}

	if v, ok := c.deps.Smart.Age(now); ok {
		age.Add(v)
	}

	return models.Families(result, lifetime, remaining, lba, age), nil
}
