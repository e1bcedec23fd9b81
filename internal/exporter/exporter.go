// Package exporter переводит семейства метрик сборщиков в формат Prometheus.
package exporter

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/levinOo/truenas-exporter/internal/collector"
	"github.com/levinOo/truenas-exporter/internal/models"
)

const namespace = "truenas_exporter"

// Scraper выполняет один полный сбор.
type Scraper interface {
	Scrape(ctx context.Context) []collector.Result
}

// Exporter реализует prometheus.Collector поверх Scraper.
// Каждый вызов Collect выполняет новый сбор.
type Exporter struct {
	scraper Scraper
	logger  *zap.SugaredLogger

	duration *prometheus.Desc
	success  *prometheus.Desc
}

// New создаёт Exporter.
func New(scraper Scraper, logger *zap.SugaredLogger) *Exporter {
	return &Exporter{
		scraper: scraper,
		logger:  logger,
		duration: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "collector", "duration_seconds"),
			"Duration of a collector scrape.",
			[]string{"collector"}, nil,
		),
		success: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "collector", "success"),
			"Whether a collector succeeded.",
			[]string{"collector"}, nil,
		),
	}
}

// WithContext возвращает коллектор, выполняющий сбор в контексте ctx.
// Используется обработчиком /metrics, чтобы отключение клиента
// прерывало запросы к хранилищу.
func (e *Exporter) WithContext(ctx context.Context) prometheus.Collector {
	return &bound{e: e, ctx: ctx}
}

// Describe не отправляет описаний: набор семейств известен только после сбора.
func (e *Exporter) Describe(chan<- *prometheus.Desc) {}

// Collect выполняет сбор в фоновом контексте.
func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	e.collect(context.Background(), ch)
}

func (e *Exporter) collect(ctx context.Context, ch chan<- prometheus.Metric) {
	for _, r := range e.scraper.Scrape(ctx) {
		ok := 1.0
		if r.Err != nil {
			ok = 0
		}
		ch <- prometheus.MustNewConstMetric(e.duration, prometheus.GaugeValue, r.Duration.Seconds(), r.Name)
		ch <- prometheus.MustNewConstMetric(e.success, prometheus.GaugeValue, ok, r.Name)

		for _, f := range r.Families {
			e.emit(ch, r.Name, f)
		}
	}
}

func (e *Exporter) emit(ch chan<- prometheus.Metric, source string, f models.MetricFamily) {
	desc := prometheus.NewDesc(f.Name, f.Help, f.LabelNames, nil)
	vt := valueType(f.Kind)

	for _, s := range f.Samples {
		v := s.Value
		if f.Kind == models.Info {
			v = 1
		}
		m, err := prometheus.NewConstMetric(desc, vt, v, s.LabelValues...)
		if err != nil {
			e.logger.Warnw("dropping sample",
				"collector", source,
				"metric", f.Name,
				"error", err,
			)
			continue
		}
		ch <- m
	}
}

func valueType(k models.Kind) prometheus.ValueType {
	if k == models.Counter {
		return prometheus.CounterValue
	}
	return prometheus.GaugeValue
}

type bound struct {
	e   *Exporter
	ctx context.Context
}

func (b *bound) Describe(ch chan<- *prometheus.Desc) { b.e.Describe(ch) }

func (b *bound) Collect(ch chan<- prometheus.Metric) { b.e.collect(b.ctx, ch) }
