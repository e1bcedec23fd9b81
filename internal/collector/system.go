package collector

import (
	"context"
	"fmt"

	"github.com/levinOo/truenas-exporter/internal/appliance"
	"github.com/levinOo/truenas-exporter/internal/models"
)

type systemInfo struct {
	Version       string    `json:"version"`
	Hostname      string    `json:"hostname"`
	Model         string    `json:"model"`
	SystemProduct string    `json:"system_product"`
	SystemSerial  string    `json:"system_serial"`
	PhysMem       *float64  `json:"physmem"`
	Cores         *float64  `json:"cores"`
	PhysicalCores *float64  `json:"physical_cores"`
	LoadAvg       []float64 `json:"loadavg"`
	UptimeSeconds *float64  `json:"uptime_seconds"`
	BootTime      *apiTime  `json:"boottime"`
}

type networkConfig struct {
	Hostname string `json:"hostname"`
	Domain   string `json:"domain"`
}

type systemCollector struct{}

func (c *systemCollector) Name() string { return "system" }

func (c *systemCollector) Collect(ctx context.Context, api API) ([]models.MetricFamily, error) {
	var info systemInfo
	if err := api.Get(ctx, "/system/info", &info); err != nil {
		return nil, fmt.Errorf("system info: %w", err)
	}
	var net networkConfig
	if err := api.Get(ctx, "/network/configuration", &net); err != nil {
		// Без сетевых настроек имя хоста берётся из system/info, домен пуст.
		if !appliance.IsEmpty(err) || ctx.Err() != nil {
			return nil, fmt.Errorf("network configuration: %w", err)
		}
		net = networkConfig{}
	}

	hostname := net.Hostname
	if hostname == "" {
		hostname = info.Hostname
	}
	model := info.SystemProduct
	if model == "" {
		model = info.Model
	}

	sysInfo := models.NewFamily("truenas_system_info", "Appliance identity.", models.Info,
		"hostname", "domain", "version", "model", "serial")
	sysInfo.AddInfo(hostname, net.Domain, info.Version, model, info.SystemSerial)

	uptime := models.NewFamily("truenas_system_uptime_seconds", "Appliance uptime.", models.Gauge)
	uptime.AddOpt(info.UptimeSeconds)

	boot := models.NewFamily("truenas_system_boot_timestamp_seconds", "Appliance boot time.", models.Gauge)
	if v, ok := info.BootTime.unix(); ok {
		boot.Add(v)
	}

	mem := models.NewFamily("truenas_system_physical_memory_bytes", "Installed physical memory.", models.Gauge)
	mem.AddOpt(info.PhysMem)

	cores := models.NewFamily("truenas_system_cores", "Number of CPU cores.", models.Gauge, "kind")
	cores.AddOpt(info.Cores, "logical")
	cores.AddOpt(info.PhysicalCores, "physical")

	load := models.NewFamily("truenas_system_load", "Load average as reported by the system info endpoint.", models.Gauge, "period")
	for i, period := range []string{"1", "5", "15"} {
		if i < len(info.LoadAvg) {
			load.Add(info.LoadAvg[i], period)
		}
	}

	return models.Families(sysInfo, uptime, boot, mem, cores, load), nil
}
