// Package smart хранит результаты SMART-тестов дисков с ограниченным временем жизни.
//
// Запрос результатов SMART на хранилище дорогой, а сами результаты меняются
// редко, поэтому они обновляются не чаще одного раза за ttl.
package smart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const resultsPath = "/smart/test/results"

// ErrEmpty означает, что хранилище вернуло пустой список результатов.
var ErrEmpty = errors.New("empty smart results")

// Test описывает один SMART-тест диска.
type Test struct {
	Num             int      `json:"num"`
	Description     string   `json:"description"`
	Status          string   `json:"status"`
	StatusVerbose   string   `json:"status_verbose"`
	Remaining       *float64 `json:"remaining"`
	Lifetime        *float64 `json:"lifetime"`
	LBAOfFirstError *float64 `json:"lba_of_first_error"`
}

// DiskResults содержит историю тестов одного диска.
type DiskResults struct {
	Disk  string `json:"disk"`
	Tests []Test `json:"tests"`
}

// Fetcher загружает результаты с хранилища.
type Fetcher func(ctx context.Context) ([]DiskResults, error)

// API описывает методы клиента хранилища, нужные пакету.
type API interface {
	Get(ctx context.Context, path string, out any) error
}

// FromAPI возвращает Fetcher поверх клиента хранилища.
func FromAPI(api API) Fetcher {
	return func(ctx context.Context) ([]DiskResults, error) {
		var out []DiskResults
		if err := api.Get(ctx, resultsPath, &out); err != nil {
			return nil, fmt.Errorf("smart results: %w", err)
		}
		return out, nil
	}
}

// Cache хранит последний успешный результат и время его получения.
// Пара (lastFetch, result) меняется атомарно под mu, а одновременные
// обновления объединяются через singleflight.
type Cache struct {
	mu        sync.Mutex
	lastFetch time.Time
	result    []DiskResults

	ttl   time.Duration
	fetch Fetcher
	sf    singleflight.Group
}

// NewCache создаёт кэш. Первый вызов Get всегда обращается к хранилищу.
func NewCache(ttl time.Duration, fetch Fetcher) *Cache {
	return &Cache{ttl: ttl, fetch: fetch}
}

// Get возвращает результаты на момент now. Если с последнего успешного
// обновления прошло не меньше ttl, выполняется запрос к хранилищу.
// При ошибке или пустом ответе кэш не меняется: возвращаются прежние
// данные вместе с ошибкой, и следующий вызов повторит попытку.
func (c *Cache) Get(ctx context.Context, now time.Time) ([]DiskResults, error) {
	if res, ok := c.fresh(now); ok {
		return res, nil
	}

	v, err, _ := c.sf.Do("smart", func() (any, error) {
		// Пока ждали, обновление мог выполнить другой вызов.
		if res, ok := c.fresh(now); ok {
			return res, nil
		}

		res, err := c.fetch(ctx)
		if err == nil && len(res) == 0 {
			err = ErrEmpty
		}
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.lastFetch = now
		c.result = res
		c.mu.Unlock()
		return res, nil
	})
	if err != nil {
		c.mu.Lock()
		stale := c.result
		c.mu.Unlock()
		return stale, err
	}
	return v.([]DiskResults), nil
}

// Age возвращает число секунд с последнего успешного обновления.
// ok == false, пока ни одно обновление не удалось.
func (c *Cache) Age(now time.Time) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastFetch.IsZero() {
		return 0, false
	}
	return now.Sub(c.lastFetch).Seconds(), true
}

// TTL возвращает время жизни кэша.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

func (c *Cache) fresh(now time.Time) ([]DiskResults, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastFetch.IsZero() || now.Sub(c.lastFetch) >= c.ttl {
		return nil, false
	}
	return c.result, true
}
