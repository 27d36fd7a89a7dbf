// sensord - in-memory sensor registry service
//
// This is the main entry point for sensord. It serves the sensor registry
// over HTTP, pushes registry changes to WebSocket clients and (optionally)
// an MQTT broker, and keeps an optional SQLite audit trail.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nerrad567/sensor-registry/internal/api"
	"github.com/nerrad567/sensor-registry/internal/audit"
	"github.com/nerrad567/sensor-registry/internal/infrastructure/config"
	"github.com/nerrad567/sensor-registry/internal/infrastructure/database"
	"github.com/nerrad567/sensor-registry/internal/infrastructure/logging"
	"github.com/nerrad567/sensor-registry/internal/infrastructure/mqtt"
	"github.com/nerrad567/sensor-registry/internal/sensor"
	"github.com/nerrad567/sensor-registry/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

const (
	appName = "sensord"

	// configPathEnv names the config file when --config is not given.
	configPathEnv = "SENSORD_CONFIG"

	defaultEnvFile = ".env"
)

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// options holds the command-line flags shared by all subcommands.
type options struct {
	configPath string
	envFile    string
	host       string
	port       int
	debug      bool
}

func rootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "In-memory sensor registry service",
		Long: `sensord keeps a registry of sensors in memory and serves it over HTTP.

Endpoints:
- GET/POST /sensors, GET /sensors/online
- GET/DELETE /sensors/{id}
- /health, /status, /metrics, /audit and a WebSocket feed at /ws`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Config file path (YAML); falls back to $"+configPathEnv)
	flags.StringVar(&opts.envFile, "env-file", defaultEnvFile, "dotenv file loaded before the config")
	flags.StringVar(&opts.host, "host", "", "Listen host (overrides config)")
	flags.IntVar(&opts.port, "port", 0, "Listen port (overrides config)")
	flags.BoolVar(&opts.debug, "debug", false, "Enable debug logging")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (commit: %s, built: %s)\n", appName, version, commit, date)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "check-config",
		Short: "Load and validate the configuration, then exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "configuration ok, listening on %s\n", cfg.Address())
			return nil
		},
	})

	return cmd
}

// loadConfig applies the env file, the config file and flag overrides.
// Only flags the user actually set override the file.
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	flags := cmd.Flags()

	if err := config.LoadEnvFile(opts.envFile, flags.Changed("env-file")); err != nil {
		return nil, err
	}

	path := opts.configPath
	if path == "" {
		path = os.Getenv(configPathEnv)
	}

	var overrides []config.Override
	if flags.Changed("host") {
		overrides = append(overrides, func(c *config.Config) { c.API.Host = opts.host })
	}
	if flags.Changed("port") {
		overrides = append(overrides, func(c *config.Config) { c.API.Port = opts.port })
	}
	if flags.Changed("debug") {
		overrides = append(overrides, func(c *config.Config) { c.Debug = opts.debug })
	}

	cfg, err := config.Load(path, overrides...)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// run wires every component, serves until ctx is cancelled, then shuts
// down in reverse order.
func run(ctx context.Context, cfg *config.Config) error {
	log := logging.New(cfg.Logging, version)
	log.Info("starting sensord",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	registry := sensor.NewRegistry()
	registry.SetLogger(log.Component("registry"))

	// Seeded sensors take IDs 1..n before any request can arrive
	seeded, err := seedRegistry(registry, cfg.Seed.Path)
	if err != nil {
		return err
	}
	if len(seeded) > 0 {
		log.Info("registry seeded", "sensors", len(seeded), "path", cfg.Seed.Path)
	}

	deps := api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Metrics:  cfg.Metrics,
		Logger:   log.Component("api"),
		Registry: registry,
		Version:  version,
	}

	if cfg.Database.Enabled {
		db, err := openAuditDB(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
		log.Info("audit database ready", "path", cfg.Database.Path)
		deps.DB = db
		deps.AuditRepo = audit.NewSQLiteRepository(db.DB)
	}

	if cfg.MQTT.Enabled {
		mqttClient, err := mqtt.Connect(cfg.MQTT)
		if err != nil {
			// Events still reach WebSocket clients and the audit trail
			log.Warn("MQTT unavailable, continuing without event publishing", "error", err)
		} else {
			mqttClient.SetLogger(log.Component("mqtt"))
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
			deps.Publisher = mqttClient
		}
	}

	server, err := api.New(deps)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	for _, s := range seeded {
		if err := server.PublishEvent(ctx, sensor.NewEvent(sensor.EventRegistered, s, sensor.SourceSeed, "")); err != nil {
			log.Warn("seed event not published", "sensor_id", s.ID, "error", err)
		}
	}

	log.Info("sensord ready", "address", cfg.Address())

	<-ctx.Done()
	log.Info("shutdown signal received")
	return nil
}

// seedRegistry registers the sensors listed in path, if any.
func seedRegistry(registry *sensor.Registry, path string) ([]sensor.Sensor, error) {
	if path == "" {
		return nil, nil
	}
	reqs, err := sensor.LoadSeedFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading seed file: %w", err)
	}
	seeded, err := registry.Seed(reqs)
	if err != nil {
		return nil, fmt.Errorf("seeding registry: %w", err)
	}
	return seeded, nil
}

// openAuditDB opens the audit database and applies embedded migrations.
func openAuditDB(ctx context.Context, cfg config.DatabaseConfig) (*database.DB, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Migrate(ctx, migrations.FS); err != nil {
		db.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return db, nil
}
