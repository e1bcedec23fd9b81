// Package stats запрашивает временные ряды хранилища пакетами и склеивает ответы
// в одну таблицу, по столбцу на ключ ряда.
package stats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/levinOo/truenas-exporter/internal/pool"
)

const (
	// MaxChunk ограничивает число ключей в одном запросе: хранилище отклоняет большие запросы.
	MaxChunk = 1200

	// Window задаёт глубину истории, из которой выбирается последнее значение.
	Window = 15 * time.Minute

	sourcesPath = "/stats/get_sources"
	dataPath    = "/stats/get_data"
)

// ErrMalformedChunk означает, что ответ на пакет не содержит таблицы нужной формы.
var ErrMalformedChunk = errors.New("malformed stats chunk")

// API описывает методы клиента хранилища, нужные пакету.
type API interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, body, out any) error
}

// Table содержит склеенный результат: строки от старых к новым,
// по столбцу на каждый элемент Columns.
type Table struct {
	Rows    [][]*float64
	Columns []SeriesMeta
	// Skipped считает пакеты, отброшенные из-за ошибки или неверной формы.
	Skipped int
}

type filter struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// request это тело запроса /stats/get_data.
type request struct {
	StatsList []SeriesKey `json:"stats_list"`
	Filter    filter      `json:"stats-filter"`
}

func (r *request) Reset() {
	r.StatsList = r.StatsList[:0]
	r.Filter = filter{}
}

type response struct {
	Data *[][]*float64 `json:"data"`
}

// Client выполняет пакетные запросы статистики.
type Client struct {
	api       API
	logger    *zap.SugaredLogger
	opts      Options
	chunkSize int
	now       func() time.Time
	requests  *pool.Pool[*request]
}

// NewClient создаёт клиента статистики поверх api.
func NewClient(api API, logger *zap.SugaredLogger, opts Options) *Client {
	return &Client{
		api:       api,
		logger:    logger,
		opts:      opts,
		chunkSize: MaxChunk,
		now:       time.Now,
		requests: pool.New(func() *request {
			return &request{StatsList: make([]SeriesKey, 0, MaxChunk)}
		}, 4),
	}
}

// WithChunkSize меняет размер пакета. Значения вне 1..MaxChunk игнорируются.
func (c *Client) WithChunkSize(n int) *Client {
	if n > 0 && n <= MaxChunk {
		c.chunkSize = n
	}
	return c
}

// WithClock подменяет источник времени.
func (c *Client) WithClock(now func() time.Time) *Client {
	c.now = now
	return c
}

// Sources возвращает текущий перечень источников: имя источника -> список типов.
func (c *Client) Sources(ctx context.Context) (map[string][]string, error) {
	var sources map[string][]string
	if err := c.api.Get(ctx, sourcesPath, &sources); err != nil {
		return nil, fmt.Errorf("stats sources: %w", err)
	}
	return sources, nil
}

// Collect получает перечень источников, строит ключи и загружает значения.
func (c *Client) Collect(ctx context.Context) (Table, error) {
	sources, err := c.Sources(ctx)
	if err != nil {
		return Table{}, err
	}
	return c.Fetch(ctx, BuildKeys(sources, c.opts))
}

// Fetch загружает ряды metas пакетами не больше chunkSize ключей и склеивает ответы.
// Окно запроса вычисляется один раз и одинаково для всех пакетов.
// Неудачный пакет пропускается, его столбцы не попадают в результат.
func (c *Client) Fetch(ctx context.Context, metas []SeriesMeta) (Table, error) {
	var table Table
	if len(metas) == 0 {
		return table, nil
	}

	end := c.now()
	window := filter{
		Start: end.Add(-Window).Unix(),
		End:   end.Unix(),
	}

	first := true
	for offset := 0; offset < len(metas); offset += c.chunkSize {
		if err := ctx.Err(); err != nil {
			return table, fmt.Errorf("stats fetch: %w", err)
		}

		chunk := metas[offset:min(offset+c.chunkSize, len(metas))]

		rows, err := c.fetchChunk(ctx, chunk, window)
		if err == nil && !first && len(rows) != len(table.Rows) {
			err = fmt.Errorf("%w: %d rows, want %d", ErrMalformedChunk, len(rows), len(table.Rows))
		}
		if err != nil {
			table.Skipped++
			c.logger.Warnw("skipping stats chunk",
				"offset", offset,
				"keys", len(chunk),
				"error", err,
			)
			continue
		}

		if first {
			table.Rows = rows
			first = false
		} else {
			for i := range table.Rows {
				table.Rows[i] = append(table.Rows[i], rows[i]...)
			}
		}
		table.Columns = append(table.Columns, chunk...)
	}

	return table, nil
}

func (c *Client) fetchChunk(ctx context.Context, chunk []SeriesMeta, window filter) ([][]*float64, error) {
	req := c.requests.Get()
	defer c.requests.Put(req)

	for _, m := range chunk {
		req.StatsList = append(req.StatsList, m.Key)
	}
	req.Filter = window

	var resp response
	if err := c.api.Post(ctx, dataPath, req, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("%w: missing data", ErrMalformedChunk)
	}

	// Каждая строка приводится к ширине пакета, чтобы столбцы не сдвигались.
	rows := *resp.Data
	for i, row := range rows {
		switch {
		case len(row) < len(chunk):
			rows[i] = append(row, make([]*float64, len(chunk)-len(row))...)
		case len(row) > len(chunk):
			rows[i] = row[:len(chunk)]
		}
	}
	return rows, nil
}
