package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	_ "github.com/nerrad567/gray-logic-irrigation/migrations"

	"github.com/nerrad567/gray-logic-irrigation/internal/api"
	"github.com/nerrad567/gray-logic-irrigation/internal/decision"
	"github.com/nerrad567/gray-logic-irrigation/internal/history"
	"github.com/nerrad567/gray-logic-irrigation/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-irrigation/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-irrigation/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-irrigation/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-irrigation/internal/infrastructure/mqtt"
)

// run is the long-running controller, separated from main for testability.
// It returns nil on a clean shutdown.
func run(ctx context.Context, configPath string) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting irrigation controller",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
		"mode", cfg.Irrigation.Mode,
	)

	db, err := openDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()

	store, err := loadStrategies(ctx, cfg, log)
	if err != nil {
		return err
	}

	provider, err := buildProvider(cfg, db, log)
	if err != nil {
		return err
	}

	mqttClient, err := connectMQTT(ctx, cfg, log)
	if err != nil {
		return err
	}
	if mqttClient != nil {
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
	}

	influxClient, err := connectInflux(ctx, cfg, log)
	if err != nil {
		return err
	}
	if influxClient != nil {
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
	}

	historyRepo := history.NewSQLiteRepository(db.DB)

	registry := newMetricsRegistry()
	metrics := decision.NewMetrics(registry)

	engine, err := buildEngine(cfg, engineDeps{
		provider: provider,
		store:    store,
		mqtt:     mqttClient,
		influx:   influxClient,
		history:  historyRepo,
		metrics:  metrics,
		log:      log,
	})
	if err != nil {
		return err
	}

	// Registered after the client and database closes, so it runs first:
	// MQTT-triggered cycles finish before their dependencies go away.
	tasks := &backgroundTasks{}
	defer tasks.Wait()

	if mqttClient != nil {
		qos := byte(cfg.MQTT.QoS) // #nosec G115 -- validated 0..2
		if subErr := subscribeCommands(ctx, mqttClient, engine, store, qos, tasks, log); subErr != nil {
			return fmt.Errorf("subscribing to command topics: %w", subErr)
		}
	}

	var apiServer *api.Server
	if cfg.API.Enabled {
		apiServer, err = api.New(api.Deps{
			Config:     cfg.API,
			Logger:     log.With("component", "api"),
			Strategies: store,
			Cycles:     engine,
			History:    historyRepo,
			Gatherer:   registry,
			Health:     healthCheckers(db, mqttClient, influxClient),
			Mode:       cfg.Irrigation.Mode,
			Version:    version,
		})
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		if err := apiServer.Start(ctx); err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
		defer func() {
			if closeErr := apiServer.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("admin API disabled")
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	scheduler := decision.NewScheduler(engine, cfg.Irrigation.Interval, log.With("component", "scheduler"))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return scheduler.Run(gctx) })
	g.Go(func() error { return reloadOnHangup(gctx, store, log) })

	log.Info("initialisation complete, waiting for shutdown signal")
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// API server, InfluxDB, MQTT, database.

	log.Info("irrigation controller stopped")
	return nil
}

// reloadOnHangup reloads the strategy document on every SIGHUP until ctx
// is done. A failed reload keeps the current strategies.
func reloadOnHangup(ctx context.Context, store strategyLoader, log *logging.Logger) error {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-hup:
			log.Info("SIGHUP received, reloading strategies")
			if err := store.Load(ctx); err != nil {
				log.Warn("strategy reload failed", "error", err)
			}
		}
	}
}

// strategyLoader is the part of strategy.Store used for reloads.
type strategyLoader interface {
	Load(ctx context.Context) error
}

// healthCheck verifies all infrastructure connections are healthy.
// mqttClient and influxClient may be nil when not in use.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	for name, checker := range healthCheckers(db, mqttClient, influxClient) {
		if err := checker.HealthCheck(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// healthCheckers lists the infrastructure clients that are in use.
func healthCheckers(db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) map[string]api.HealthChecker {
	checks := map[string]api.HealthChecker{"database": db}
	if mqttClient != nil {
		checks["mqtt"] = mqttClient
	}
	if influxClient != nil {
		checks["influxdb"] = influxClient
	}
	return checks
}

func newMetricsRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry
}
