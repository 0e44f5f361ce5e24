// VoiceBridge - Voice Assistant Exposure Manager for Home Assistant
//
// VoiceBridge curates which Home Assistant entities each voice
// assistant may see:
//   - Layered filter rules resolved per assistant (Google, Alexa, HomeKit)
//   - One versioned configuration document in SQLite
//   - Generated YAML artifacts for the cloud assistants
//   - Direct accessory-filter reconciliation for HomeKit bridges
//
// This package wires those pieces together and runs the HTTP API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/nerrad567/voicebridge/migrations"

	"github.com/nerrad567/voicebridge/internal/api"
	"github.com/nerrad567/voicebridge/internal/audit"
	"github.com/nerrad567/voicebridge/internal/bridges/homekit"
	"github.com/nerrad567/voicebridge/internal/generator"
	"github.com/nerrad567/voicebridge/internal/homeassistant"
	"github.com/nerrad567/voicebridge/internal/infrastructure/config"
	"github.com/nerrad567/voicebridge/internal/infrastructure/database"
	"github.com/nerrad567/voicebridge/internal/infrastructure/influxdb"
	"github.com/nerrad567/voicebridge/internal/infrastructure/logging"
	"github.com/nerrad567/voicebridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/voicebridge/internal/store"
)

// Build metadata, stamped in through ldflags by the release pipeline.
// A plain "go build" leaves the dev placeholders.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	// Ctrl+C and SIGTERM cancel the context; everything downstream
	// shuts down off that cancellation.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run carries the whole service lifecycle so main stays a thin exit-code
// shim and tests can drive startup and shutdown through a context.
//
// Parameters:
//   - ctx: Context whose cancellation triggers shutdown
//
// Returns:
//   - error: nil on clean shutdown, or the failure that stopped startup
func run(ctx context.Context) error {
	// Bootstrap logger; replaced once the config says how to log.
	log := logging.Default()
	log.Info("starting VoiceBridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Swap in the configured logger now that level and format are known.
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Build hub clients: REST for states and commands, WebSocket for the
	// registry listings the REST API does not expose.
	hub, err := homeassistant.NewClient(homeassistant.ClientOptions{
		BaseURL: cfg.HomeAssistant.URL,
		Token:   cfg.HomeAssistant.Token,
		Timeout: cfg.HomeAssistant.GetRequestTimeout(),
		Logger:  log,
	})
	if err != nil {
		return fmt.Errorf("creating hub client: %w", err)
	}

	ws, err := homeassistant.NewWSClient(homeassistant.WSOptions{
		BaseURL: cfg.HomeAssistant.URL,
		Token:   cfg.HomeAssistant.Token,
		Timeout: cfg.HomeAssistant.GetWebSocketTimeout(),
		Logger:  log,
	})
	if err != nil {
		return fmt.Errorf("creating hub websocket client: %w", err)
	}
	defer func() {
		if closeErr := ws.Close(); closeErr != nil {
			log.Error("error closing hub websocket", "error", closeErr)
		}
	}()

	directory, err := homeassistant.NewDirectory(homeassistant.DirectoryOptions{
		States:   hub,
		Registry: ws,
		Logger:   log,
	})
	if err != nil {
		return fmt.Errorf("creating entity directory: %w", err)
	}

	// A hub that is still booting must not keep this service down; the
	// directory refreshes on demand once the hub answers.
	if refreshErr := directory.Refresh(ctx); refreshErr != nil {
		log.Warn("initial entity directory refresh failed", "error", refreshErr)
	} else {
		log.Info("entity directory loaded", "entities", directory.Count())
	}

	// Load the configuration document
	st, err := store.New(store.Deps{
		Repository: store.NewSQLiteRepository(db.DB),
		EntityInfo: directory,
		Logger:     log,
	})
	if err != nil {
		return fmt.Errorf("creating config store: %w", err)
	}
	if loadErr := st.Load(ctx); loadErr != nil {
		return fmt.Errorf("loading config document: %w", loadErr)
	}
	log.Info("configuration document loaded")

	// HomeKit bridge manager. The store validates bridge selections
	// through it, wired after construction to break the cycle.
	bridges, err := homekit.NewManager(homekit.ManagerOptions{
		Controller: hub,
		Store:      st,
		Directory:  directory,
		Logger:     log,
	})
	if err != nil {
		return fmt.Errorf("creating bridge manager: %w", err)
	}
	st.SetBridgeChecker(bridges)

	// Artifact generator
	gen, err := generator.New(generator.Options{
		OutputDir: cfg.Artifacts.OutputDir,
		Logger:    log,
	})
	if err != nil {
		return fmt.Errorf("creating artifact generator: %w", err)
	}
	log.Info("artifact generator ready", "output_dir", cfg.Artifacts.OutputDir)

	// Optional event sink. A nil client downstream means "not configured".
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
	} else {
		log.Info("MQTT disabled")
	}

	// Optional metrics sink, same nil convention as MQTT.
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		// Batched writes fail asynchronously; the callback is the only
		// place those errors surface.
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Start the API server
	server, err := api.New(api.Deps{
		Config:    cfg.API,
		Logger:    log,
		Store:     st,
		Directory: directory,
		Generator: gen,
		Bridges:   bridges,
		Hub:       hub,
		DB:        db,
		Audit:     audit.NewSQLiteRepository(db.DB),
		MQTT:      mqttClient,
		Influx:    influxClient,
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port))

	// Startup aborts if owned infrastructure is unhealthy. The hub only
	// warns; see healthCheck for why it gets softer treatment.
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if pingErr := hub.Ping(ctx); pingErr != nil {
		log.Warn("hub not reachable yet", "error", pingErr)
	}
	log.Info("health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls will run in reverse order:
	// 1. API server
	// 2. InfluxDB (if enabled)
	// 3. MQTT (if enabled)
	// 4. Hub WebSocket
	// 5. Database

	log.Info("VoiceBridge stopped")
	return nil
}

// getConfigPath resolves the config file location, preferring the
// VOICEBRIDGE_CONFIG environment variable over the built-in default.
func getConfigPath() string {
	if path := os.Getenv("VOICEBRIDGE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck probes the infrastructure this service owns. The hub is
// deliberately left out: it restarts on demand (this service triggers
// those restarts) and must not take VoiceBridge down with it.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database handle, always present
//   - mqttClient: nil when the broker is not configured
//   - influxClient: nil when the metrics sink is not configured
//
// Returns:
//   - error: the first failed probe, nil when everything answers
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
