package collector

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/levinOo/truenas-exporter/internal/models"
	"github.com/levinOo/truenas-exporter/internal/smart"
)

type stubCollector struct {
	name    string
	fams    []models.MetricFamily
	err     error
	panics  bool
	delay   time.Duration
	running *atomic.Int32
	peak    *atomic.Int32
}

func (s *stubCollector) Name() string { return s.name }

func (s *stubCollector) Collect(ctx context.Context, _ API) ([]models.MetricFamily, error) {
	if s.running != nil {
		n := s.running.Add(1)
		defer s.running.Add(-1)
		for {
			p := s.peak.Load()
			if n <= p || s.peak.CompareAndSwap(p, n) {
				break
			}
		}
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.panics {
		panic("boom")
	}
	return s.fams, s.err
}

func gauge(name string, v float64) models.MetricFamily {
	f := models.NewFamily(name, name, models.Gauge)
	f.Add(v)
	return *f
}

func newOrchestrator(cs []Collector, opts ...Option) *Orchestrator {
	return NewOrchestrator(nil, cs, zap.NewNop().Sugar(), opts...)
}

func TestScrapeIsolatesFailures(t *testing.T) {
	bad := models.NewFamily("bad", "bad", models.Gauge, "label")
	bad.Add(1)

	o := newOrchestrator([]Collector{
		&stubCollector{name: "a", fams: []models.MetricFamily{gauge("a", 1)}},
		&stubCollector{name: "err", err: errors.New("appliance down")},
		&stubCollector{name: "panic", panics: true},
		&stubCollector{name: "invalid", fams: []models.MetricFamily{*bad}},
		&stubCollector{name: "b", fams: []models.MetricFamily{gauge("b", 2)}},
	})

	results := o.Scrape(context.Background())
	require.Len(t, results, 5)

	names := make([]string, len(results))
	for i, r := range results {
		names[i] = r.Name
	}
	assert.Equal(t, []string{"a", "err", "panic", "invalid", "b"}, names)

	assert.NoError(t, results[0].Err)
	assert.Len(t, results[0].Families, 1)

	for _, r := range results[1:4] {
		assert.Error(t, r.Err, r.Name)
		assert.Empty(t, r.Families, r.Name)
	}

	assert.NoError(t, results[4].Err)
	assert.Equal(t, "b", results[4].Families[0].Name)
}

func TestScrapeRespectsWorkerLimit(t *testing.T) {
	var running, peak atomic.Int32
	var cs []Collector
	for i := 0; i < 8; i++ {
		cs = append(cs, &stubCollector{name: "c", delay: 20 * time.Millisecond, running: &running, peak: &peak})
	}

	newOrchestrator(cs, WithWorkers(2)).Scrape(context.Background())
	assert.LessOrEqual(t, peak.Load(), int32(2))

	peak.Store(0)
	newOrchestrator(cs, WithWorkers(1)).Scrape(context.Background())
	assert.Equal(t, int32(1), peak.Load())
}

func TestScrapeDeadline(t *testing.T) {
	o := newOrchestrator([]Collector{
		&stubCollector{name: "slow", delay: time.Minute},
		&stubCollector{name: "fast", fams: []models.MetricFamily{gauge("fast", 1)}},
	}, WithTimeout(50*time.Millisecond))

	start := time.Now()
	results := o.Scrape(context.Background())
	assert.Less(t, time.Since(start), 10*time.Second)

	assert.ErrorIs(t, results[0].Err, context.DeadlineExceeded)
	assert.NoError(t, results[1].Err)
}

func TestCollectSequence(t *testing.T) {
	o := newOrchestrator([]Collector{
		&stubCollector{name: "a", fams: []models.MetricFamily{gauge("a1", 1), gauge("a2", 2)}},
		&stubCollector{name: "err", err: errors.New("x")},
		&stubCollector{name: "b", fams: []models.MetricFamily{gauge("b1", 3)}},
	})

	var got []string
	for f := range o.Collect(context.Background()) {
		got = append(got, f.Name)
	}
	assert.Equal(t, []string{"a1", "a2", "b1"}, got)

	got = got[:0]
	for f := range o.Collect(context.Background()) {
		got = append(got, f.Name)
		break
	}
	assert.Equal(t, []string{"a1"}, got)
}

func TestNames(t *testing.T) {
	o := newOrchestrator([]Collector{&stubCollector{name: "x"}, &stubCollector{name: "y"}})
	assert.Equal(t, []string{"x", "y"}, o.Names())
}

func TestScrapeLogsEmptySmartAsWarning(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	o := NewOrchestrator(nil, []Collector{
		&stubCollector{name: "smart", err: fmt.Errorf("smart results: %w", smart.ErrEmpty)},
		&stubCollector{name: "pools", err: errors.New("appliance down")},
	}, zap.New(core).Sugar(), WithWorkers(1))

	results := o.Scrape(context.Background())
	require.Len(t, results, 2)
	assert.ErrorIs(t, results[0].Err, smart.ErrEmpty)

	failed := logs.FilterMessage("collector failed")
	require.Equal(t, 2, failed.Len())

	levels := map[string]zapcore.Level{}
	for _, e := range failed.All() {
		levels[e.ContextMap()["collector"].(string)] = e.Level
	}
	assert.Equal(t, zapcore.WarnLevel, levels["smart"])
	assert.Equal(t, zapcore.ErrorLevel, levels["pools"])
}
