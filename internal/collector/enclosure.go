package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/levinOo/truenas-exporter/internal/enum"
	"github.com/levinOo/truenas-exporter/internal/models"
)

type enclosure struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Elements []struct {
		Name     string             `json:"name"`
		Elements []enclosureElement `json:"elements"`
	} `json:"elements"`
}

type enclosureElement struct {
	Slot       json.Number `json:"slot"`
	Descriptor string      `json:"descriptor"`
	Status     *string     `json:"status"`
	Value      string      `json:"value"`
}

type enclosureCollector struct {
	deps Deps
}

func (c *enclosureCollector) Name() string { return "enclosure" }

func (c *enclosureCollector) Collect(ctx context.Context, api API) ([]models.MetricFamily, error) {
	var enclosures []enclosure
	if err := api.Get(ctx, "/enclosure", &enclosures); err != nil {
		return nil, fmt.Errorf("enclosures: %w", err)
	}

	labels := []string{"id", "enclosure", "element_type", "slot", "descriptor"}
	status := models.NewFamily("truenas_enclosure_element_status",
		enum.Help("Status of the enclosure element", enum.EnclosureStatus), models.Gauge, labels...)
	temp := models.NewFamily("truenas_enclosure_temperature_celsius",
		"Temperature reported by an enclosure sensor.", models.Gauge, labels...)

	for _, enc := range enclosures {
		// Одинаковые полки носят одно имя, различает их только id.
		name := enc.Name
		if name == "" {
			name = enc.ID
		}
		for _, group := range enc.Elements {
			for _, el := range group.Elements {
				lv := []string{enc.ID, name, group.Name, el.Slot.String(), el.Descriptor}
				if el.Status != nil {
					status.Add(float64(c.deps.Normalizer.Normalize(enum.EnclosureStatus, *el.Status)), lv...)
				}
				if v, ok := parseCelsius(el.Value); ok {
					temp.Add(v, lv...)
				}
			}
		}
	}

	return models.Families(status, temp), nil
}

// parseCelsius разбирает значения датчиков вида "25C" или "31.5C".
func parseCelsius(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasSuffix(s, "C") {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(s, "C"), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
