package exporter

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/levinOo/truenas-exporter/internal/collector"
	"github.com/levinOo/truenas-exporter/internal/models"
)

type fakeScraper struct {
	results []collector.Result
	ctx     context.Context
}

func (s *fakeScraper) Scrape(ctx context.Context) []collector.Result {
	s.ctx = ctx
	return s.results
}

func results() []collector.Result {
	health := models.NewFamily("truenas_pool_health", "Pool status.", models.Gauge, "pool")
	health.Add(1, "tank")
	health.Add(2, "backup")

	errs := models.NewFamily("truenas_pool_disk_read_errors", "Read errors.", models.Counter, "disk")
	errs.Add(3, "ada0")

	info := models.NewFamily("truenas_system_info", "Identity.", models.Info, "hostname")
	info.Add(0, "nas")

	return []collector.Result{
		{Name: "pools", Families: []models.MetricFamily{*health, *errs}, Duration: 120 * time.Millisecond},
		{Name: "system", Families: []models.MetricFamily{*info}, Duration: time.Millisecond},
		{Name: "alerts", Err: errors.New("appliance down"), Duration: 15 * time.Second},
	}
}

func TestExporterCollect(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(New(&fakeScraper{results: results()}, zap.NewNop().Sugar())))

	expected := `
# HELP truenas_pool_health Pool status.
# TYPE truenas_pool_health gauge
truenas_pool_health{pool="backup"} 2
truenas_pool_health{pool="tank"} 1
# HELP truenas_pool_disk_read_errors Read errors.
# TYPE truenas_pool_disk_read_errors counter
truenas_pool_disk_read_errors{disk="ada0"} 3
# HELP truenas_system_info Identity.
# TYPE truenas_system_info gauge
truenas_system_info{hostname="nas"} 1
# HELP truenas_exporter_collector_success Whether a collector succeeded.
# TYPE truenas_exporter_collector_success gauge
truenas_exporter_collector_success{collector="alerts"} 0
truenas_exporter_collector_success{collector="pools"} 1
truenas_exporter_collector_success{collector="system"} 1
`
	err := testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"truenas_pool_health",
		"truenas_pool_disk_read_errors",
		"truenas_system_info",
		"truenas_exporter_collector_success",
	)
	assert.NoError(t, err)

	count, err := testutil.GatherAndCount(reg, "truenas_exporter_collector_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestExporterDropsBadSamples(t *testing.T) {
	bad := models.NewFamily("truenas_bad", "Bad.", models.Gauge, "a")
	bad.Samples = append(bad.Samples, models.Sample{LabelValues: []string{"x", "y"}, Value: 1})
	bad.Add(2, "ok")

	s := &fakeScraper{results: []collector.Result{{Name: "x", Families: []models.MetricFamily{*bad}}}}
	e := New(s, zap.NewNop().Sugar())

	// 2 служебные метрики и одно корректное значение.
	assert.Equal(t, 3, testutil.CollectAndCount(e))
}

func TestWithContextPassesContext(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "request")

	s := &fakeScraper{}
	e := New(s, zap.NewNop().Sugar())
	testutil.CollectAndCount(e.WithContext(ctx))

	require.NotNil(t, s.ctx)
	assert.Equal(t, "request", s.ctx.Value(key{}))
}
