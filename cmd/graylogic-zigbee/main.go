// Gray Logic Zigbee - device semantics service.
//
// This is the main entry point for the Zigbee service. It consumes device
// interviews and raw datapoint reports from the Zigbee transport over MQTT,
// resolves each device's identity, profile and topology, reconciles its
// capability set and publishes normalised capability values.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nerrad567/gray-logic-zigbee/internal/api"
	"github.com/nerrad567/gray-logic-zigbee/internal/bridges/zigbee"
	"github.com/nerrad567/gray-logic-zigbee/internal/capability"
	"github.com/nerrad567/gray-logic-zigbee/internal/device"
	"github.com/nerrad567/gray-logic-zigbee/internal/dispatch"
	"github.com/nerrad567/gray-logic-zigbee/internal/identity"
	"github.com/nerrad567/gray-logic-zigbee/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-zigbee/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-zigbee/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-zigbee/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-zigbee/internal/infrastructure/metrics"
	"github.com/nerrad567/gray-logic-zigbee/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-zigbee/internal/infrastructure/statecache"
	"github.com/nerrad567/gray-logic-zigbee/internal/profile"
	"github.com/nerrad567/gray-logic-zigbee/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	defaultConfigPath = "configs/config.yaml"

	// healthInterval is the period of the retained health report.
	healthInterval = 30 * time.Second
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting Gray Logic Zigbee",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", configPath,
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Database and device registry
	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}

	registry := device.NewRegistry(device.NewSQLiteRepository(db.DB))
	registry.SetLogger(log.Component("registry"))
	if refreshErr := registry.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading device registry: %w", refreshErr)
	}
	log.Info("device registry initialised", "devices", registry.GetDeviceCount())

	// Semantics engine
	resolver, err := buildResolver(cfg.Engine, log)
	if err != nil {
		return err
	}

	meters := metrics.New()

	// InfluxDB (optional)
	influxClient, err := influxdb.Connect(cfg.InfluxDB)
	switch {
	case errors.Is(err, influxdb.ErrDisabled):
		log.Info("InfluxDB disabled")
	case err != nil:
		return fmt.Errorf("connecting to InfluxDB: %w", err)
	default:
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	}

	dispatcher := dispatch.New(dispatch.Config{UndefinedLogWindow: cfg.GetUndefinedLogWindow()})
	dispatcher.SetLogger(log.Component("dispatch"))
	dispatcher.SetHooks(dispatch.Hooks{
		UnknownDatapoint: func(deviceID string, id int) {
			meters.UnknownDatapoint(deviceID, id)
			if influxClient != nil {
				influxClient.WriteEngineCounter(deviceID, "unknown_datapoint", 1)
			}
		},
		WriteResult: meters.WriteResult,
	})

	mutator := capability.NewMutator()
	mutator.SetLogger(log.Component("capability"))
	mutator.SetObserver(meters.MutationOutcome)

	// Redis state cache (optional)
	cache, err := statecache.Connect(cfg.Redis)
	switch {
	case errors.Is(err, statecache.ErrDisabled):
		log.Info("Redis state cache disabled")
	case err != nil:
		return fmt.Errorf("connecting to Redis: %w", err)
	default:
		defer func() {
			log.Info("closing Redis connection")
			if closeErr := cache.Close(); closeErr != nil {
				log.Error("error closing Redis", "error", closeErr)
			}
		}()
		removed, pruneErr := cache.RemoveAllExcept(ctx, deviceIDs(registry))
		if pruneErr != nil {
			log.Warn("pruning state cache failed", "error", pruneErr)
		}
		log.Info("Redis state cache connected", "addr", cfg.Redis.Addr, "pruned", len(removed))
	}

	// MQTT
	mqttClient, err := mqtt.Connect(cfg.MQTT, mqtt.NewTopics(cfg.Engine.TopicPrefix))
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log.Component("mqtt"))
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT connected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	// Interfaces are only set when the client exists so the sink never
	// holds a typed nil.
	var recorder zigbee.Recorder
	if influxClient != nil {
		recorder = influxClient
	}
	var stateCache zigbee.StateCache
	if cache != nil {
		stateCache = cache
	}
	sink := zigbee.NewSink(mqttClient, recorder, stateCache)
	sink.SetLogger(log.Component("sink"))
	sink.SetCacheErrorHook(meters.CacheError)
	defer sink.Close()

	bridge, err := zigbee.NewBridge(zigbee.Options{
		MQTT:                    mqttClient,
		Registry:                registry,
		Resolver:                resolver,
		Dispatcher:              dispatcher,
		Mutator:                 mutator,
		Writer:                  sink,
		Metrics:                 meters,
		Logger:                  log.Component("zigbee"),
		DefaultCalibrationRatio: cfg.Engine.DefaultCalibrationRatio,
		Version:                 version,
		HealthInterval:          healthInterval,
	})
	if err != nil {
		return fmt.Errorf("creating Zigbee bridge: %w", err)
	}
	if err := bridge.Start(ctx); err != nil {
		return fmt.Errorf("starting Zigbee bridge: %w", err)
	}
	defer func() {
		log.Info("stopping Zigbee bridge")
		bridge.Stop()
	}()
	log.Info("Zigbee bridge started", "sessions", bridge.SessionCount())

	// Inspection API (optional)
	if cfg.API.Enabled {
		checks := map[string]api.HealthChecker{
			"database": db,
			"mqtt":     mqttClient,
		}
		deps := api.Deps{
			Config:   cfg.API,
			Logger:   log.Component("api"),
			Registry: registry,
			Resolver: resolver,
			Denier:   mutator,
			Sessions: bridge,
			DB:       db.DB,
			Metrics:  meters.Handler(),
			Health:   checks,
			Version:  version,
		}
		if influxClient != nil {
			checks["influxdb"] = influxClient
		}
		if cache != nil {
			checks["redis"] = cache
			deps.State = cache
		}

		apiServer, err := api.New(deps)
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
		log.Info("API server disabled")
	}

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	return nil
}

func getConfigPath() string {
	if path := os.Getenv("GRAYLOGIC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// buildResolver merges the optional catalog file over the built-in catalog
// and builds the resolver.
func buildResolver(cfg config.EngineConfig, log *logging.Logger) (*zigbee.Resolver, error) {
	profiles := profile.Builtin()
	catalog := identity.DefaultCatalog()

	if cfg.CatalogFile != "" {
		overlay, err := identity.LoadCatalog(cfg.CatalogFile, profiles)
		if err != nil {
			return nil, fmt.Errorf("loading catalog: %w", err)
		}
		catalog = identity.Merge(catalog, overlay)
		log.Info("catalog loaded",
			"path", cfg.CatalogFile,
			"entries", len(overlay.Entries),
			"fingerprints", len(overlay.Fingerprints),
		)
	}

	matcher, err := identity.NewMatcher(catalog)
	if err != nil {
		return nil, fmt.Errorf("building identity matcher: %w", err)
	}
	return zigbee.NewResolver(matcher, profiles), nil
}

func deviceIDs(r *device.Registry) []string {
	devices := r.ListDevices()
	ids := make([]string, len(devices))
	for i, d := range devices {
		ids[i] = d.ID
	}
	return ids
}
