package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"cpumon/internal/adapters/redis"
	"cpumon/internal/alert"
	cpucollector "cpumon/internal/collector/cpu"
	"cpumon/internal/config"
	"cpumon/internal/core/monitor"
	"cpumon/internal/event"
	"cpumon/internal/logger"
	"cpumon/internal/system"
	transporthttp "cpumon/internal/transport/http"
	"cpumon/internal/transport/websocket"
	"cpumon/internal/workers"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	appLog := logger.New(cfg)

	reader := system.NewReader(appLog, cfg.ProcRoot, cfg.SysRoot)
	topology := system.Topology{}

	numCPU, err := topology.OnlineCount()
	if err != nil {
		appLog.Error("failed to count online processors", "error", err)
		log.Fatal(err)
	}

	appLog.Info("cpumon: starting...",
		"monitor_id", cfg.MonitorID,
		"hostname", reader.Hostname(),
		"kernel", reader.KernelVersion(),
		"processors", numCPU,
	)

	ctx := context.Background()
	runtimeCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Alert fan-out
	bus := event.New(appLog)
	bus.OnUsage(alert.NewLogSink(appLog).Emit)

	hub := websocket.NewHub(appLog)
	bus.OnUsage(hub.Emit)

	var alertLog transporthttp.AlertLog
	var registry *redis.AlertRegistry
	if cfg.RedisEnabled() {
		redisClient, err := redis.Init(runtimeCtx, &redis.ClientOptions{
			Address:  cfg.RedisAddress,
			Username: cfg.RedisUsername,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			appLog.Error("failed to init redis, alert log disabled", "error", err)
		} else {
			defer redisClient.Close()
			appLog.Info("redis connected", "stream", cfg.AlertStream)

			registry = redis.NewAlertRegistry(redisClient, appLog, cfg.AlertStream, cfg.AlertStreamMaxLen)
			bus.OnUsage(registry.Emit)
			alertLog = registry
		}
	}

	// Sampling
	sampler := cpucollector.NewSampler(newCounterSource(cfg, reader), topology, newIdlePolicy(cfg, reader), appLog)

	mon, err := monitor.New(cfg.MonitorID, numCPU, sampler, bus, appLog)
	if err != nil {
		appLog.Error("failed to initialize monitor", "error", err)
		log.Fatal(err)
	}
	defer mon.Close()

	if err := mon.Prime(runtimeCtx); err != nil {
		appLog.Warn("priming sample failed, first tick reports since boot", "error", err)
	}

	scheduler := workers.NewScheduler(appLog)
	manager := workers.NewManager(appLog, scheduler, cfg.SampleInterval, mon)

	server := transporthttp.NewServer(
		cfg,
		mon.Thresholds(),
		mon,
		alertLog,
		http.HandlerFunc(websocket.NewHandler(hub, cfg.AllowedOrigins, appLog).Serve),
		appLog,
	)

	g, gCtx := errgroup.WithContext(runtimeCtx)

	g.Go(func() error {
		return hub.Run(gCtx)
	})

	if registry != nil {
		g.Go(func() error {
			return registry.Run(gCtx)
		})
	}

	g.Go(func() error {
		return manager.Start(gCtx)
	})

	g.Go(func() error {
		return server.Start(gCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		appLog.Error("cpumon failed unexpectedly", "error", err)
	}

	appLog.Info("cpumon stopped gracefully.")
}

func newCounterSource(cfg *config.Config, reader *system.SystemReader) cpucollector.CounterSource {
	if cfg.CounterSource == "gopsutil" {
		return cpucollector.NewGopsutilSource()
	}
	return cpucollector.NewProcStatSource(reader, system.ClockTicks())
}

func newIdlePolicy(cfg *config.Config, reader *system.SystemReader) cpucollector.IdlePolicy {
	if cfg.IdlePolicy == "cpuidle" {
		return cpucollector.NewCPUIdlePolicy(reader)
	}
	return cpucollector.TickPolicy{}
}
