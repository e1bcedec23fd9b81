// Package models содержит структуры данных, описывающие метрики экспортера.
// Пакет не содержит бизнес-логику и используется для передачи данных между
// сборщиками, оркестратором и слоем экспозиции.
package models

import "fmt"

// Kind определяет тип семейства метрик.
type Kind string

// Константы типов метрик
const (
	// Gauge представляет метрику-измеритель, значение которой может изменяться произвольно.
	Gauge Kind = "gauge"

	// Counter представляет метрику-счётчик, значение которой только увеличивается.
	Counter Kind = "counter"

	// Info представляет информационную метрику: значение всегда 1, смысл несут метки.
	Info Kind = "info"
)

// Sample представляет одно значение семейства с конкретным набором меток.
type Sample struct {
	// LabelValues содержит значения меток в порядке MetricFamily.LabelNames.
	LabelValues []string

	// Value содержит числовое значение. Для Info всегда 1.
	Value float64
}

// MetricFamily представляет именованное семейство метрик одного типа.
// Отсутствие данных выражается отсутствием Sample, а не нулевым значением.
type MetricFamily struct {
	// Name содержит полное имя метрики, например "truenas_pool_health".
	Name string

	// Help содержит описание метрики для экспозиции.
	Help string

	// Kind определяет тип: gauge, counter или info.
	Kind Kind

	// LabelNames содержит упорядоченный список имён меток.
	LabelNames []string

	// Samples содержит значения семейства.
	Samples []Sample
}

// NewFamily создаёт пустое семейство метрик.
func NewFamily(name, help string, kind Kind, labels ...string) *MetricFamily {
	return &MetricFamily{
		Name:       name,
		Help:       help,
		Kind:       kind,
		LabelNames: labels,
	}
}

// Add добавляет значение с указанными метками.
func (f *MetricFamily) Add(value float64, labelValues ...string) {
	f.Samples = append(f.Samples, Sample{LabelValues: labelValues, Value: value})
}

// AddInfo добавляет информационное значение (всегда 1).
func (f *MetricFamily) AddInfo(labelValues ...string) {
	f.Add(1, labelValues...)
}

// AddOpt добавляет значение только если оно присутствует.
func (f *MetricFamily) AddOpt(value *float64, labelValues ...string) {
	if value == nil {
		return
	}
	f.Add(*value, labelValues...)
}

// Empty сообщает, что в семействе нет ни одного значения.
func (f *MetricFamily) Empty() bool {
	return len(f.Samples) == 0
}

// Validate проверяет, что каждое значение несёт ровно len(LabelNames) меток.
func (f *MetricFamily) Validate() error {
	if f.Name == "" {
		return fmt.Errorf("metric family without name")
	}
	switch f.Kind {
	case Gauge, Counter, Info:
	default:
		return fmt.Errorf("metric family %s: unknown kind %q", f.Name, f.Kind)
	}
	for i, s := range f.Samples {
		if len(s.LabelValues) != len(f.LabelNames) {
			return fmt.Errorf("metric family %s: sample %d has %d label values, want %d",
				f.Name, i, len(s.LabelValues), len(f.LabelNames))
		}
	}
	return nil
}

// Families собирает непустые семейства в срез, сохраняя порядок.
func Families(fams ...*MetricFamily) []MetricFamily {
	out := make([]MetricFamily, 0, len(fams))
	for _, f := range fams {
		if f == nil || f.Empty() {
			continue
		}
		out = append(out, *f)
	}
	return out
}
