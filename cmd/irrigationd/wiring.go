package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nerrad567/gray-logic-irrigation/internal/actuation"
	"github.com/nerrad567/gray-logic-irrigation/internal/decision"
	"github.com/nerrad567/gray-logic-irrigation/internal/history"
	"github.com/nerrad567/gray-logic-irrigation/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-irrigation/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-irrigation/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-irrigation/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-irrigation/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-irrigation/internal/plant"
	"github.com/nerrad567/gray-logic-irrigation/internal/strategy"
)

// openDatabase opens the SQLite database and applies migrations.
func openDatabase(ctx context.Context, cfg *config.Config, log *logging.Logger) (*database.DB, error) {
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	log.Info("database connected", "path", cfg.Database.Path)

	if err := db.Migrate(ctx); err != nil {
		db.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	log.Info("database migrations complete")
	return db, nil
}

// strategySource picks the configured strategy file, or the bundled
// document when none is configured.
func strategySource(cfg *config.Config) strategy.Source {
	if cfg.Irrigation.StrategyFile == "" {
		return strategy.NewBundledSource()
	}
	return strategy.NewFileSource(cfg.Irrigation.StrategyFile)
}

// loadStrategies creates the strategy store and loads it. A load failure
// is logged, not returned: the controller starts with the placeholder
// strategy, which waters nothing until a valid document is loaded.
func loadStrategies(ctx context.Context, cfg *config.Config, log *logging.Logger) (*strategy.Store, error) {
	store := strategy.NewStore(strategySource(cfg), log.With("component", "strategy"))
	if err := store.Load(ctx); err != nil {
		if !errors.Is(err, strategy.ErrConfig) {
			return nil, fmt.Errorf("loading strategies: %w", err)
		}
		log.Warn("starting without a valid strategy document, no pot will be watered", "error", err)
		return store, nil
	}
	log.Info("strategies ready", "active", store.ActiveName(), "count", len(store.List()))
	return store, nil
}

// buildProvider returns the configured plant snapshot provider.
func buildProvider(cfg *config.Config, db *database.DB, log *logging.Logger) (plant.Provider, error) {
	providerLog := log.With("component", "state_provider", "type", cfg.StateProvider.Type)

	switch cfg.StateProvider.Type {
	case config.ProviderSQLite:
		p := plant.NewSQLiteProvider(db.DB)
		p.SetLogger(providerLog)
		return p, nil
	case config.ProviderHTTP:
		return plant.NewHTTPProvider(cfg.StateProvider, providerLog), nil
	}
	return nil, fmt.Errorf("unknown state provider %q", cfg.StateProvider.Type)
}

// connectMQTT connects to the broker. In remote mode a connection is
// required; in local mode a failure is logged and nil is returned.
func connectMQTT(ctx context.Context, cfg *config.Config, log *logging.Logger) (*mqtt.Client, error) {
	client, err := mqtt.Connect(ctx, cfg.MQTT)
	if err != nil {
		if cfg.Irrigation.IsRemote() {
			return nil, fmt.Errorf("connecting to MQTT: %w", err)
		}
		log.Warn("MQTT unavailable, continuing in local mode", "error", err)
		return nil, nil
	}

	client.SetLogger(log.With("component", "mqtt"))
	client.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	client.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)
	return client, nil
}

// connectInflux connects to InfluxDB when enabled; otherwise it returns nil.
func connectInflux(ctx context.Context, cfg *config.Config, log *logging.Logger) (*influxdb.Client, error) {
	if !cfg.InfluxDB.Enabled {
		log.Info("InfluxDB disabled")
		return nil, nil
	}

	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
	if err != nil {
		return nil, fmt.Errorf("connecting to InfluxDB: %w", err)
	}
	client.SetOnError(func(err error) {
		log.Error("InfluxDB write error", "error", err)
	})
	log.Info("InfluxDB connected",
		"url", cfg.InfluxDB.URL,
		"org", cfg.InfluxDB.Org,
		"bucket", cfg.InfluxDB.Bucket,
	)
	return client, nil
}

type engineDeps struct {
	provider plant.Provider
	store    *strategy.Store
	mqtt     *mqtt.Client // nil: commands cannot be sent
	influx   *influxdb.Client
	history  history.Repository
	metrics  *decision.Metrics
	log      *logging.Logger
}

// buildEngine wires the dispatcher and decision engine.
func buildEngine(cfg *config.Config, deps engineDeps) (*decision.Engine, error) {
	mode, err := actuation.ParseMode(cfg.Irrigation.Mode)
	if err != nil {
		return nil, err
	}

	var channel actuation.Channel = unavailableChannel{}
	if deps.mqtt != nil {
		channel = actuation.NewMQTTChannel(deps.mqtt, byte(cfg.Irrigation.CommandQoS)) // #nosec G115 -- validated 0..2
	}

	var recorder *influxRecorder
	if deps.influx != nil {
		recorder = &influxRecorder{client: deps.influx}
	}

	dispatcher := actuation.NewDispatcher(channel, actuation.Options{
		Mode:        mode,
		SendTimeout: cfg.Irrigation.DispatchTimeout,
		Parallelism: cfg.Irrigation.MaxParallelDispatch,
		Logger:      deps.log.With("component", "dispatch"),
		Recorder:    recorder.dispatchRecorder(),
	})

	var cycleRecorders decision.CycleRecorders
	if deps.history != nil {
		cycleRecorders = append(cycleRecorders, history.NewRecorder(
			deps.history, cfg.Irrigation.HistoryRetention, deps.log.With("component", "history")))
	}
	if rec := recorder.cycleRecorder(); rec != nil {
		cycleRecorders = append(cycleRecorders, rec)
	}

	engine, err := decision.NewEngine(decision.Deps{
		Provider:   deps.provider,
		Strategies: deps.store,
		Dispatcher: dispatcher,
		Recorder:   cycleRecorders,
		Metrics:    deps.metrics,
		Logger:     deps.log.With("component", "decision"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating decision engine: %w", err)
	}
	return engine, nil
}

// subscriber is the part of mqtt.Client used for command topics.
type subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// cycleRunner is the part of decision.Engine used by command topics.
type cycleRunner interface {
	RunCycle(ctx context.Context) (decision.CycleReport, error)
}

// subscribeCommands lets other services trigger a cycle or a strategy
// reload over MQTT. The work runs on tasks so paho's delivery goroutine is
// never blocked by a cycle. Payloads are ignored.
func subscribeCommands(ctx context.Context, client subscriber, cycles cycleRunner, store strategyLoader, qos byte, tasks *backgroundTasks, log *logging.Logger) error {
	topics := mqtt.Topics{}

	err := client.Subscribe(topics.CycleCommand(), qos, func(topic string, _ []byte) error {
		tasks.Go(func() {
			if _, err := cycles.RunCycle(ctx); err != nil {
				log.Warn("cycle requested over MQTT not run", "topic", topic, "error", err)
			}
		})
		return nil
	})
	if err != nil {
		return err
	}

	return client.Subscribe(topics.ReloadCommand(), qos, func(topic string, _ []byte) error {
		tasks.Go(func() {
			if err := store.Load(ctx); err != nil {
				log.Warn("strategy reload requested over MQTT failed", "topic", topic, "error", err)
			}
		})
		return nil
	})
}

// backgroundTasks tracks work started from MQTT handlers. After Wait has
// been called no new work is started.
type backgroundTasks struct {
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// Go runs fn in a new goroutine. It reports false, without running fn,
// once Wait has been called.
func (b *backgroundTasks) Go(fn func()) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false
	}
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		fn()
	}()
	return true
}

// Wait stops accepting work and blocks until running work has finished.
func (b *backgroundTasks) Wait() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.wg.Wait()
}

// unavailableChannel is used in local mode without a broker. The
// dispatcher never calls it in local mode.
type unavailableChannel struct{}

func (unavailableChannel) Send(context.Context, string, string) error {
	return fmt.Errorf("%w: %w", actuation.ErrDeliveryFailed, mqtt.ErrNotConnected)
}

// influxRecorder writes dispatch results and cycle summaries to InfluxDB.
type influxRecorder struct {
	client *influxdb.Client
}

func (r *influxRecorder) RecordDispatch(res actuation.Result) {
	r.client.WriteDispatch(influxdb.DispatchRecord{
		PumpID:          res.Command.PumpID,
		Channel:         res.Command.Channel,
		DurationSeconds: res.Command.DurationSeconds,
		Outcome:         string(res.Outcome),
		Mode:            string(res.Mode),
		Time:            res.At,
	})
}

func (r *influxRecorder) RecordCycle(rep decision.CycleReport) {
	r.client.WriteCycle(influxdb.CycleRecord{
		CycleID:  rep.ID,
		Outcome:  string(rep.Outcome),
		Commands: len(rep.Commands),
		Failed:   rep.Failed,
		Skipped:  len(rep.Skipped),
		Duration: rep.Duration,
		Time:     rep.StartedAt,
	})
}

// dispatchRecorder and cycleRecorder return a nil interface for a nil
// recorder, so the consumers can test for nil.
func (r *influxRecorder) dispatchRecorder() actuation.Recorder {
	if r == nil {
		return nil
	}
	return r
}

func (r *influxRecorder) cycleRecorder() decision.CycleRecorder {
	if r == nil {
		return nil
	}
	return r
}
