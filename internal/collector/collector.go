// Package collector собирает метрики хранилища набором независимых сборщиков.
//
// Каждый сборщик обращается к одному или нескольким методам API и возвращает
// семейства метрик. Оркестратор запускает их с ограниченным параллелизмом и
// общим сроком, изолируя ошибки: упавший сборщик не даёт метрик, но не
// прерывает остальные.
package collector

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/levinOo/truenas-exporter/internal/enum"
	"github.com/levinOo/truenas-exporter/internal/models"
	"github.com/levinOo/truenas-exporter/internal/smart"
	"github.com/levinOo/truenas-exporter/internal/stats"
)

// API описывает методы клиента хранилища, доступные сборщикам.
type API interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, body, out any) error
}

// Collector собирает одну группу метрик.
type Collector interface {
	// Name возвращает короткое имя, используемое в метках и логах.
	Name() string
	// Collect возвращает семейства метрик или ошибку.
	Collect(ctx context.Context, api API) ([]models.MetricFamily, error)
}

// Deps содержит общие зависимости сборщиков.
type Deps struct {
	Normalizer *enum.Normalizer
	Stats      *stats.Client
	Smart      *smart.Cache
	Logger     *zap.SugaredLogger
	// Now возвращает текущее время. По умолчанию time.Now.
	Now func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// Defaults возвращает полный список сборщиков в порядке экспозиции.
// Список статический: новый сборщик добавляется сюда явно.
func Defaults(d Deps) []Collector {
	list := []Collector{
		&cloudSyncCollector{deps: d},
		&alertsCollector{},
		&disksCollector{},
		&interfacesCollector{deps: d},
		&poolsCollector{deps: d},
		&replicationCollector{deps: d},
		&snapshotsCollector{deps: d},
		&systemCollector{},
		&enclosureCollector{deps: d},
	}
	if d.Smart != nil {
		list = append(list, &smartCollector{deps: d})
	}
	if d.Stats != nil {
		list = append(list, &statsCollector{deps: d})
	}
	return list
}
