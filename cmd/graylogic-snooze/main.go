// Gray Logic Snooze - temporary automation pausing for Gray Logic sites.
//
// This is the main entry point for the snooze service. It pauses
// automations for a duration or a scheduled window, re-enables them when
// the window ends, and survives restarts by persisting its state to SQLite
// and recovering it on startup.
//
// Usage:
//
//	graylogic-snooze                       run the service
//	graylogic-snooze token <subject> <role> print an access token
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nerrad567/gray-logic-snooze/internal/api"
	"github.com/nerrad567/gray-logic-snooze/internal/auth"
	"github.com/nerrad567/gray-logic-snooze/internal/automation"
	"github.com/nerrad567/gray-logic-snooze/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-snooze/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-snooze/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-snooze/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-snooze/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-snooze/internal/snooze"
	"github.com/nerrad567/gray-logic-snooze/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "token" {
		if err := issueToken(os.Args[2:], os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Cancel on Ctrl+C and SIGTERM for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // linear startup sequence
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Gray Logic Snooze",
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

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

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
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Automation registry
	automationLog := log.Component("automation")
	registry := automation.NewRegistry(automation.NewSQLiteRepository(db.DB))
	registry.SetLogger(automationLog)
	if refreshErr := registry.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading automation registry: %w", refreshErr)
	}
	log.Info("automation registry initialised", "automations", registry.Count())

	mqttClient, err := mqtt.Connect(cfg.MQTT)
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
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	qos := byte(cfg.MQTT.QoS) //nolint:gosec // validated to 0-2
	controller := automation.NewController(registry, mqttClient, qos, automationLog)
	if subErr := controller.Subscribe(mqttClient); subErr != nil {
		return fmt.Errorf("subscribing to automation states: %w", subErr)
	}

	// InfluxDB is optional; nil sinks are skipped by the snooze package.
	var influxClient *influxdb.Client
	var gauge snooze.GaugeWriter
	var transitions snooze.TransitionWriter
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
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		gauge = influxClient
		transitions = influxClient
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Snooze core
	snoozeLog := log.Component("snooze")
	clock := snooze.SystemClock()
	state := snooze.NewPauseState()
	coordinator := snooze.NewCoordinator(state, snooze.CoordinatorOptions{
		Controller:   controller,
		Registry:     registry,
		Gateway:      snooze.NewGateway(snooze.NewSQLiteStore(db.DB, cfg.Snooze.StoreKey), snoozeLog),
		Clock:        clock,
		Logger:       snoozeLog,
		Recorder:     snooze.NewEventRecorder(mqttClient, transitions, qos, snoozeLog),
		DisableRetry: cfg.DisableRetryDelay(),
	})
	defer func() {
		log.Info("unloading snooze state")
		coordinator.Unload()
	}()

	service := snooze.NewService(coordinator, snooze.ServiceOptions{
		Location:       cfg.Location(),
		GuardrailTerms: cfg.Snooze.GuardrailTerms,
		Logger:         snoozeLog,
	})

	hub := api.NewHub(cfg.WebSocket, log.Component("websocket"))
	go hub.Run(ctx)

	sensor := snooze.NewSensor(state, snooze.SensorOptions{
		MQTT:   mqttClient,
		Hub:    hub,
		Gauge:  gauge,
		Clock:  clock,
		Logger: snoozeLog,
	})
	detach := sensor.Attach()
	defer detach()

	coordinator.LoadAndRecover(ctx)
	log.Info("snooze state recovered",
		"paused", state.PausedCount(),
		"scheduled", len(state.ScheduledIDs()),
		"store_key", cfg.Snooze.StoreKey,
	)

	server, err := api.New(api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Security:    cfg.Security,
		Logger:      log.Component("api"),
		Snooze:      service,
		Registry:    registry,
		ExternalHub: hub,
		Version:     version,
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

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order: API server, sensor, snooze
	// timers, InfluxDB, MQTT, database.

	log.Info("Gray Logic Snooze stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses GRAYLOGIC_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GRAYLOGIC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}

// issueToken prints an access token for args[0] (subject) with role
// args[1], signed with the configured JWT secret. An optional args[2]
// is a Go duration for the token lifetime.
func issueToken(args []string, out io.Writer) error {
	if len(args) < 2 || len(args) > 3 {
		return fmt.Errorf("usage: graylogic-snooze token <subject> <viewer|user|admin> [ttl]")
	}
	role := auth.Role(args[1])
	if !auth.IsValidRole(role) {
		return fmt.Errorf("unknown role %q", args[1])
	}
	ttl := auth.DefaultTokenTTL
	if len(args) == 3 {
		var err error
		if ttl, err = time.ParseDuration(args[2]); err != nil {
			return fmt.Errorf("parsing ttl: %w", err)
		}
	}

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	token, err := auth.GenerateAccessToken(args[0], role, cfg.Security.JWT.Secret, ttl)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, token)
	return err
}
