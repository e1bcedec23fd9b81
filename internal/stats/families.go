package stats

import (
	"github.com/levinOo/truenas-exporter/internal/models"
)

// Families превращает таблицу в семейства метрик. Каждый столбец даёт
// значение Latest; столбцы без данных в окне пропускаются.
// Семейства идут в порядке каталога.
func Families(table Table) []models.MetricFamily {
	byTemplate := make(map[*Template]*models.MetricFamily)

	for col, meta := range table.Columns {
		v, ok := Latest(table.Rows, col)
		if !ok {
			continue
		}
		if meta.Template.Convert != nil {
			v = meta.Template.Convert(v)
		}

		f, ok := byTemplate[meta.Template]
		if !ok {
			f = models.NewFamily(meta.Template.Metric, meta.Template.Help, models.Gauge, meta.Template.Labels()...)
			byTemplate[meta.Template] = f
		}
		f.Add(v, meta.LabelValues()...)
	}

	ordered := make([]*models.MetricFamily, 0, len(byTemplate))
	for i := range Catalogue {
		if f, ok := byTemplate[&Catalogue[i]]; ok {
			ordered = append(ordered, f)
		}
	}
	return models.Families(ordered...)
}
