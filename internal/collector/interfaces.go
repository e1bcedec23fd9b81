package collector

import (
	"context"
	"fmt"

	"github.com/levinOo/truenas-exporter/internal/enum"
	"github.com/levinOo/truenas-exporter/internal/models"
)

type netInterface struct {
	Name  string `json:"name"`
	State struct {
		LinkState       *string  `json:"link_state"`
		LinkAddress     string   `json:"link_address"`
		MTU             *float64 `json:"mtu"`
		ActiveMediaType string   `json:"active_media_type"`
	} `json:"state"`
}

type interfacesCollector struct {
	deps Deps
}

func (c *interfacesCollector) Name() string { return "interfaces" }

func (c *interfacesCollector) Collect(ctx context.Context, api API) ([]models.MetricFamily, error) {
	var ifaces []netInterface
	if err := api.Get(ctx, "/interface", &ifaces); err != nil {
		return nil, fmt.Errorf("interfaces: %w", err)
	}

	link := models.NewFamily("truenas_interface_link_state",
		enum.Help("Link state of the network interface", enum.InterfaceLink), models.Gauge, "name")
	mtu := models.NewFamily("truenas_interface_mtu", "MTU of the network interface.", models.Gauge, "name")
	info := models.NewFamily("truenas_interface_info", "Network interface details.", models.Info,
		"name", "link_address", "media_type")

	for _, i := range ifaces {
		if i.State.LinkState != nil {
			link.Add(float64(c.deps.Normalizer.Normalize(enum.InterfaceLink, *i.State.LinkState)), i.Name)
		}
		mtu.AddOpt(i.State.MTU, i.Name)
		info.AddInfo(i.Name, i.State.LinkAddress, i.State.ActiveMediaType)
	}

	return models.Families(link, mtu, info), nil
}
