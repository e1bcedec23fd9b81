package collector

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/levinOo/truenas-exporter/internal/models"
	"github.com/levinOo/truenas-exporter/internal/smart"
)

const (
	// DefaultWorkers задаёт число одновременно работающих сборщиков.
	DefaultWorkers = 4
	// DefaultTimeout ограничивает весь сбор.
	DefaultTimeout = 60 * time.Second
)

// Result описывает итог работы одного сборщика.
type Result struct {
	Name     string
	Families []models.MetricFamily
	Err      error
	Duration time.Duration
}

// Orchestrator запускает сборщики и собирает их результаты в порядке списка.
type Orchestrator struct {
	api        API
	collectors []Collector
	workers    int
	timeout    time.Duration
	logger     *zap.SugaredLogger
}

// Option настраивает Orchestrator.
type Option func(*Orchestrator)

// WithWorkers задаёт предел параллелизма. 1 означает последовательный сбор.
func WithWorkers(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithTimeout задаёт срок одного сбора. 0 отключает срок.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.timeout = d
	}
}

// NewOrchestrator создаёт оркестратор над списком сборщиков.
func NewOrchestrator(api API, collectors []Collector, logger *zap.SugaredLogger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		api:        api,
		collectors: collectors,
		workers:    DefaultWorkers,
		timeout:    DefaultTimeout,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Names возвращает имена сборщиков в порядке запуска.
func (o *Orchestrator) Names() []string {
	out := make([]string, len(o.collectors))
	for i, c := range o.collectors {
		out[i] = c.Name()
	}
	return out
}

// Scrape запускает все сборщики и возвращает результаты в порядке списка.
// Ошибка сборщика записывается в его Result и не влияет на остальных.
func (o *Orchestrator) Scrape(ctx context.Context) []Result {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	results := make([]Result, len(o.collectors))

	var g errgroup.Group
	g.SetLimit(o.workers)
	for i, c := range o.collectors {
		g.Go(func() error {
			results[i] = o.run(ctx, c)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Collect возвращает последовательность семейств всех сборщиков.
// Сбор выполняется при первой итерации.
func (o *Orchestrator) Collect(ctx context.Context) iter.Seq[models.MetricFamily] {
	return func(yield func(models.MetricFamily) bool) {
		for _, r := range o.Scrape(ctx) {
			for _, f := range r.Families {
				if !yield(f) {
					return
				}
			}
		}
	}
}

func (o *Orchestrator) run(ctx context.Context, c Collector) (res Result) {
	res.Name = c.Name()
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			res.Families = nil
			res.Err = fmt.Errorf("collector %s panicked: %v", res.Name, r)
		}
		res.Duration = time.Since(start)
		if res.Err != nil {
			logf := o.logger.Errorw
			// Хранилище без истории SMART-тестов отвечает пустым списком на каждый сбор.
			if errors.Is(res.Err, smart.ErrEmpty) {
				logf = o.logger.Warnw
			}
			logf("collector failed",
				"collector", res.Name,
				"duration", res.Duration,
				"error", res.Err,
			)
			return
		}
		o.logger.Debugw("collector succeeded",
			"collector", res.Name,
			"duration", res.Duration,
			"families", len(res.Families),
		)
	}()

	fams, err := c.Collect(ctx, o.api)
	if err != nil {
		res.Err = fmt.Errorf("collector %s: %w", res.Name, err)
		return res
	}

	for i := range fams {
		if err := fams[i].Validate(); err != nil {
			res.Err = fmt.Errorf("collector %s: %w", res.Name, err)
			return res
		}
	}

	res.Families = fams
	return res
}
