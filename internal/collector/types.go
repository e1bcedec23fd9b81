package collector

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// apiTime разбирает отметки времени API вида {"$date": <unix ms>}.
// Голое число также трактуется как миллисекунды.
type apiTime struct {
	time.Time
}

func (t *apiTime) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}

	var ms float64
	if len(b) > 0 && b[0] == '{' {
		var v struct {
			Date *float64 `json:"$date"`
		}
		if err := json.Unmarshal(b, &v); err != nil {
			return fmt.Errorf("decode timestamp: %w", err)
		}
		if v.Date == nil {
			return nil
		}
		ms = *v.Date
	} else if err := json.Unmarshal(b, &ms); err != nil {
		return fmt.Errorf("decode timestamp: %w", err)
	}

	t.Time = time.UnixMilli(int64(ms))
	return nil
}

// unix возвращает время в секундах; ok == false для отсутствующего значения.
func (t *apiTime) unix() (float64, bool) {
	if t == nil || t.IsZero() {
		return 0, false
	}
	return float64(t.UnixMilli()) / 1000, true
}

// elapsed считает длительность задачи в секундах: до finished, если задача
// завершена, иначе до now.
func elapsed(started, finished *apiTime, now time.Time) (float64, bool) {
	if started == nil || started.IsZero() {
		return 0, false
	}
	end := now
	if finished != nil && !finished.IsZero() {
		end = finished.Time
	}
	return end.Sub(started.Time).Seconds(), true
}

// zfsProp представляет свойство ZFS в ответе API.
type zfsProp struct {
	Value    *string `json:"value"`
	RawValue *string `json:"rawvalue"`
}

// float разбирает rawvalue, например "1.52" или "5368709120".
func (p *zfsProp) float() (float64, bool) {
	if p == nil || p.RawValue == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(*p.RawValue, "x"), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func boolf(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
