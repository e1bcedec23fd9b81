package collector

import (
	"context"
	"fmt"

	"github.com/levinOo/truenas-exporter/internal/enum"
	"github.com/levinOo/truenas-exporter/internal/models"
)

type vdevStats struct {
	ReadErrors     *float64 `json:"read_errors"`
	WriteErrors    *float64 `json:"write_errors"`
	ChecksumErrors *float64 `json:"checksum_errors"`
}

type vdev struct {
	Type     string     `json:"type"`
	Name     string     `json:"name"`
	Status   *string    `json:"status"`
	Disk     *string    `json:"disk"`
	Stats    *vdevStats `json:"stats"`
	Children []vdev     `json:"children"`
}

func (v vdev) diskName() string {
	if v.Disk != nil && *v.Disk != "" {
		return *v.Disk
	}
	return v.Name
}

type pool struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	Status   *string `json:"status"`
	Healthy  *bool   `json:"healthy"`
	Topology *struct {
		Data    []vdev `json:"data"`
		Log     []vdev `json:"log"`
		Cache   []vdev `json:"cache"`
		Spare   []vdev `json:"spare"`
		Special []vdev `json:"special"`
		Dedup   []vdev `json:"dedup"`
	} `json:"topology"`
	Scan *struct {
		Function   string   `json:"function"`
		State      string   `json:"state"`
		Percentage *float64 `json:"percentage"`
		Errors     *float64 `json:"errors"`
		StartTime  *apiTime `json:"start_time"`
		EndTime    *apiTime `json:"end_time"`
	} `json:"scan"`
}

type dataset struct {
	ID            string   `json:"id"`
	Pool          string   `json:"pool"`
	Type          string   `json:"type"`
	Used          *zfsProp `json:"used"`
	Available     *zfsProp `json:"available"`
	CompressRatio *zfsProp `json:"compressratio"`
}

type poolsCollector struct {
	deps Deps
}

func (c *poolsCollector) Name() string { return "pools" }

func (c *poolsCollector) Collect(ctx context.Context, api API) ([]models.MetricFamily, error) {
	var pools []pool
	if err := api.Get(ctx, "/pool", &pools); err != nil {
		return nil, fmt.Errorf("pools: %w", err)
	}
	var datasets []dataset
	if err := api.Get(ctx, "/pool/dataset", &datasets); err != nil {
		return nil, fmt.Errorf("datasets: %w", err)
	}

	p := newPoolFamilies()
	now := c.deps.now()

	for _, pl := range pools {
		if pl.Status != nil {
			p.health.Add(c.health(*pl.Status), pl.Name)
		}
		if pl.Healthy != nil {
			p.healthy.Add(boolf(*pl.Healthy), pl.Name)
		}

		if pl.Topology != nil {
			groups := [][]vdev{
				pl.Topology.Data, pl.Topology.Log, pl.Topology.Cache,
				pl.Topology.Spare, pl.Topology.Special, pl.Topology.Dedup,
			}
			for _, group := range groups {
				for _, v := range group {
					c.vdev(p, pl.Name, v)
				}
			}
		}

		if s := pl.Scan; s != nil {
			lv := []string{pl.Name, s.Function}
			p.scanPercent.AddOpt(s.Percentage, lv...)
			p.scanErrors.AddOpt(s.Errors, lv...)
			if v, ok := elapsed(s.StartTime, s.EndTime, now); ok {
				p.scanElapsed.Add(v, lv...)
			}
		}
	}

	for _, d := range datasets {
		lv := []string{d.ID, d.Pool, d.Type}
		if v, ok := d.Used.float(); ok {
			p.dsUsed.Add(v, lv...)
		}
		if v, ok := d.Available.float(); ok {
			p.dsAvailable.Add(v, lv...)
		}
		if v, ok := d.CompressRatio.float(); ok {
			p.dsRatio.Add(v, lv...)
		}
	}

	return models.Families(
		p.health, p.healthy, p.vdevHealth, p.diskHealth,
		p.readErrors, p.writeErrors, p.checksumErrors,
		p.scanPercent, p.scanErrors, p.scanElapsed,
		p.dsUsed, p.dsAvailable, p.dsRatio,
	), nil
}

// vdev добавляет состояние виртуального устройства и его дисков.
// Диск без потомков в корне группы является одновременно и vdev, и диском.
func (c *poolsCollector) vdev(p *poolFamilies, poolName string, v vdev) {
	if v.Status != nil {
		p.vdevHealth.Add(c.health(*v.Status), poolName, v.Name, v.Type)
	}

	members := v.Children
	if len(members) == 0 && v.Type == "DISK" {
		members = []vdev{v}
	}
	for _, d := range members {
		lv := []string{poolName, v.Name, d.diskName()}
		if d.Status != nil {
			p.diskHealth.Add(c.health(*d.Status), lv...)
		}
		if d.Stats != nil {
			p.readErrors.AddOpt(d.Stats.ReadErrors, lv...)
			p.writeErrors.AddOpt(d.Stats.WriteErrors, lv...)
			p.checksumErrors.AddOpt(d.Stats.ChecksumErrors, lv...)
		}
	}
}

func (c *poolsCollector) health(status string) float64 {
	return float64(c.deps.Normalizer.Normalize(enum.PoolHealth, status))
}

type poolFamilies struct {
	health, healthy, vdevHealth, diskHealth *models.MetricFamily
	readErrors, writeErrors, checksumErrors *models.MetricFamily
	scanPercent, scanErrors, scanElapsed    *models.MetricFamily
	dsUsed, dsAvailable, dsRatio            *models.MetricFamily
}

func newPoolFamilies() *poolFamilies {
	member := []string{"pool", "vdev", "disk"}
	scan := []string{"pool", "function"}
	ds := []string{"dataset", "pool", "type"}
	healthHelp := func(base string) string { return enum.Help(base, enum.PoolHealth) }

	return &poolFamilies{
		health:         models.NewFamily("truenas_pool_health", healthHelp("Pool status"), models.Gauge, "pool"),
		healthy:        models.NewFamily("truenas_pool_healthy", "Whether the pool reports itself healthy.", models.Gauge, "pool"),
		vdevHealth:     models.NewFamily("truenas_pool_vdev_health", healthHelp("Virtual device status"), models.Gauge, "pool", "vdev", "type"),
		diskHealth:     models.NewFamily("truenas_pool_disk_health", healthHelp("Member disk status"), models.Gauge, member...),
		readErrors:     models.NewFamily("truenas_pool_disk_read_errors", "Read errors on a pool member disk.", models.Counter, member...),
		writeErrors:    models.NewFamily("truenas_pool_disk_write_errors", "Write errors on a pool member disk.", models.Counter, member...),
		checksumErrors: models.NewFamily("truenas_pool_disk_checksum_errors", "Checksum errors on a pool member disk.", models.Counter, member...),
		scanPercent:    models.NewFamily("truenas_pool_scan_percent", "Progress of the last scrub or resilver.", models.Gauge, scan...),
		scanErrors:     models.NewFamily("truenas_pool_scan_errors", "Errors found by the last scrub or resilver.", models.Gauge, scan...),
		scanElapsed:    models.NewFamily("truenas_pool_scan_elapsed_seconds", "Duration of the last scrub or resilver, up to now if still running.", models.Gauge, scan...),
		dsUsed:         models.NewFamily("truenas_dataset_used_bytes", "Space used by the dataset.", models.Gauge, ds...),
		dsAvailable:    models.NewFamily("truenas_dataset_available_bytes", "Space available to the dataset.", models.Gauge, ds...),
		dsRatio:        models.NewFamily("truenas_dataset_compression_ratio", "Compression ratio of the dataset.", models.Gauge, ds...),
	}
}
