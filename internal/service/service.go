// Package service управляет жизненным циклом экспортера: проверкой связи
// с хранилищем при старте, сборкой компонентов, HTTP-сервером и корректным
// завершением работы при получении системных сигналов.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/levinOo/truenas-exporter/internal/appliance"
	"github.com/levinOo/truenas-exporter/internal/collector"
	"github.com/levinOo/truenas-exporter/internal/config"
	"github.com/levinOo/truenas-exporter/internal/enum"
	"github.com/levinOo/truenas-exporter/internal/exporter"
	"github.com/levinOo/truenas-exporter/internal/handler"
	"github.com/levinOo/truenas-exporter/internal/logger"
	"github.com/levinOo/truenas-exporter/internal/smart"
	"github.com/levinOo/truenas-exporter/internal/stats"
)

const (
	probeTimeout    = appliance.DefaultTimeout
	shutdownTimeout = 30 * time.Second
)

// ErrProbeFailed возвращается, если хранилище недоступно при старте.
var ErrProbeFailed = errors.New("initial connectivity probe failed")

// ServerComponents содержит собранные компоненты экспортера.
type ServerComponents struct {
	server       *http.Server
	client       *appliance.Client
	orchestrator *collector.Orchestrator
	registry     *prometheus.Registry
	logger       *zap.SugaredLogger
}

// Serve проверяет связь с хранилищем, запускает HTTP-сервер и работает
// до отмены ctx или получения SIGINT/SIGTERM.
//
// Возвращает ошибку, если хранилище недоступно при старте или сервер
// не удалось запустить.
func Serve(ctx context.Context, cfg config.Config) error {
	sugar, err := logger.NewLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer sugar.Sync()

	components, err := setupServer(cfg, sugar)
	if err != nil {
		return err
	}

	if err := probe(ctx, components.client, sugar); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return runServerWithGracefulShutdown(ctx, components)
}

func probe(ctx context.Context, client *appliance.Client, sugar *zap.SugaredLogger) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	if err := client.Ping(ctx); err != nil {
		sugar.Errorw("Appliance is not reachable", "target", client.BaseURL(), "error", err)
		return fmt.Errorf("%w: %w", ErrProbeFailed, err)
	}
	sugar.Infow("Appliance is reachable", "target", client.BaseURL())
	return nil
}

func setupServer(cfg config.Config, sugar *zap.SugaredLogger) (*ServerComponents, error) {
	sugar.Infow("Starting exporter with config",
		"target", cfg.Target,
		"port", cfg.Port,
		"skipSNMP", cfg.SkipSNMP,
		"smartCacheHours", cfg.SmartCacheHours,
		"dfExclude", cfg.DFExclude,
		"scrapeTimeout", cfg.ScrapeTimeout,
		"workers", cfg.Workers,
	)

	dfExclude, err := cfg.DFExcludeRegexp()
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	summary := handler.NewRequestSummary()
	for _, c := range []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		summary,
	} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}

	normalizer, err := enum.New(sugar.Named("enum"), registry)
	if err != nil {
		return nil, err
	}

	client := appliance.New(cfg.Target, cfg.User, cfg.Pass)

	deps := collector.Deps{
		Normalizer: normalizer,
		Stats: stats.NewClient(client, sugar.Named("stats"), stats.Options{
			SkipSNMP:  cfg.SkipSNMP,
			DFExclude: dfExclude,
		}),
		Smart:  smart.NewCache(cfg.SmartCacheTTL(), smart.FromAPI(client)),
		Logger: sugar.Named("collector"),
	}

	orchestrator := collector.NewOrchestrator(client, collector.Defaults(deps), sugar.Named("orchestrator"),
		collector.WithWorkers(cfg.Workers),
		collector.WithTimeout(cfg.ScrapeTimeout),
	)
	sugar.Infow("Collectors enabled", "collectors", orchestrator.Names())

	exp := exporter.New(orchestrator, sugar.Named("exporter"))
	router := handler.NewRouter(registry, exp, client, summary, sugar.Named("http"))

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &ServerComponents{
		server:       srv,
		client:       client,
		orchestrator: orchestrator,
		registry:     registry,
		logger:       sugar,
	}, nil
}

func runServerWithGracefulShutdown(ctx context.Context, components *ServerComponents) error {
	server := components.server
	sugar := components.logger

	serverErr := make(chan error, 1)

	go func() {
		sugar.Infow("HTTP server started", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			sugar.Errorw("Server error", "error", err)
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		sugar.Infoln("Shutting down server...")
	}

	return gracefulShutdown(server, sugar)
}

func gracefulShutdown(srv *http.Server, sugar *zap.SugaredLogger) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		sugar.Errorw("Server shutdown error", "error", err)
		return fmt.Errorf("shutdown: %w", err)
	}

	sugar.Infoln("Server stopped gracefully")
	return nil
}
