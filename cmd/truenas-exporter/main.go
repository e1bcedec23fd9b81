package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/levinOo/truenas-exporter/internal/config"
	"github.com/levinOo/truenas-exporter/internal/service"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "truenas-exporter",
		Short: "Prometheus exporter for TrueNAS storage appliances",
		Long: `truenas-exporter polls the TrueNAS REST API and exposes pool, disk,
task, alert, SMART and performance statistics on /metrics.

Credentials are read from TRUENAS_USER and TRUENAS_PASS.

Example:
  TRUENAS_USER=root TRUENAS_PASS=secret truenas-exporter --target nas.local`,
		SilenceUsage: true,
		RunE:         run,
	}

	config.RegisterFlags(cmd.Flags())
	return cmd
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}

	return service.Serve(cmd.Context(), cfg)
}
