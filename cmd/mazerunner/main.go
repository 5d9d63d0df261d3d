// Mazerunner plays the MQTT maze game as a single player.
//
// It joins a lobby, starts the game and then publishes one move per tick,
// exploring unvisited cells first, until the game server announces the end
// of the game.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	_ "github.com/nerrad567/mazerunner/migrations"

	"github.com/nerrad567/mazerunner/internal/api"
	"github.com/nerrad567/mazerunner/internal/history"
	"github.com/nerrad567/mazerunner/internal/infrastructure/config"
	"github.com/nerrad567/mazerunner/internal/infrastructure/database"
	"github.com/nerrad567/mazerunner/internal/infrastructure/influxdb"
	"github.com/nerrad567/mazerunner/internal/infrastructure/logging"
	"github.com/nerrad567/mazerunner/internal/infrastructure/metrics"
	"github.com/nerrad567/mazerunner/internal/infrastructure/mqtt"
	"github.com/nerrad567/mazerunner/internal/session"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	// defaultConfigPath is used when it exists and no other path is given.
	defaultConfigPath = "configs/config.yaml"

	// configEnvVar overrides the config path when --config is not set.
	configEnvVar = "MAZERUNNER_CONFIG"

	healthCheckTimeout = 5 * time.Second
)

// options holds the command-line flags.
type options struct {
	configPath string
	envFile    string
	lobby      string
	team       string
	player     string
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:           "mazerunner",
		Short:         "Play the MQTT maze game",
		Long:          "mazerunner joins a maze lobby over MQTT and explores the grid until the game ends.",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "config file (default "+defaultConfigPath+" when present)")
	flags.StringVar(&opts.envFile, "env-file", config.DefaultCredentialsFile, "dotenv file with broker credentials")
	flags.StringVar(&opts.lobby, "lobby", "", "lobby to join (overrides config)")
	flags.StringVar(&opts.team, "team", "", "team name (overrides config)")
	flags.StringVar(&opts.player, "player", "", "player name (overrides config)")

	return cmd
}

// run is the application logic, separated from main for testability.
// It returns nil on a finished game or a clean shutdown.
func run(ctx context.Context, opts options) error {
	log := logging.Default()

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	log = logging.New(cfg.Logging, version)
	log.Info("starting mazerunner",
		"version", version,
		"commit", commit,
		"build_date", date,
		"lobby", cfg.Game.Lobby,
		"team", cfg.Game.Team,
		"player", cfg.Game.Player,
	)

	var (
		db   *database.DB
		repo history.Repository
	)
	if cfg.Database.Enabled {
		db, err = database.Open(ctx, database.Config{
			Path:        cfg.Database.Path,
			WALMode:     cfg.Database.WALMode,
			BusyTimeout: cfg.Database.BusyTimeout,
		})
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer func() {
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
		if migrateErr := db.Migrate(ctx); migrateErr != nil {
			return fmt.Errorf("running migrations: %w", migrateErr)
		}
		repo = history.NewSQLiteRepository(db.DB)
		log.Info("session history enabled", "path", cfg.Database.Path)
	}

	mqttClient, err := mqtt.ConnectWithLogger(cfg.MQTT, log)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected, reconnecting", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", mqttClient.ClientID(),
	)

	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("startup health check: %w", err)
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	sessionOpts := session.Options{
		Game:      cfg.Game,
		QoS:       byte(cfg.MQTT.QoS), // #nosec G115 -- validated to 0-2
		Transport: mqttClient,
		History:   repo,
		Metrics:   m,
		Logger:    log.With("component", "session"),
	}
	if influxClient != nil {
		sessionOpts.Telemetry = influxClient
	}

	var hub *api.Hub
	if cfg.API.Enabled {
		hub = api.NewHub(cfg.API.WebSocket, log.With("component", "websocket"))
		sessionOpts.Events = hub
	}

	s, err := session.New(sessionOpts)
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}

	serveCtx, stopServing := context.WithCancel(ctx)
	defer stopServing()
	g, gctx := errgroup.WithContext(serveCtx)

	if cfg.API.Enabled {
		apiServer, err := startAPI(gctx, cfg, apiDeps{
			log:     log,
			status:  s,
			hub:     hub,
			history: repo,
			metrics: m,
			mqtt:    mqttClient,
			db:      db,
		})
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := apiServer.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
		g.Go(func() error {
			hub.Run(gctx)
			return nil
		})
	} else if m != nil {
		// With the API enabled, metrics are served on its /metrics route.
		g.Go(func() error {
			return m.Serve(gctx, cfg.Metrics.Addr, cfg.Metrics.Path, log)
		})
	}

	g.Go(func() error {
		defer stopServing()
		res, err := s.Run(gctx)
		if err != nil {
			return err
		}
		log.Info("game finished", "outcome", res.Outcome, "moves", res.Moves, "visited", res.Visited)
		return nil
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		log.Info("shutdown requested")
		return nil
	}
	return err
}

type apiDeps struct {
	log     *logging.Logger
	status  api.StatusSource
	hub     *api.Hub
	history history.Repository
	metrics *metrics.Metrics
	mqtt    *mqtt.Client
	db      *database.DB
}

// startAPI starts the status API. A nil database leaves the pool
// statistics out of /system.
func startAPI(ctx context.Context, cfg *config.Config, d apiDeps) (*api.Server, error) {
	deps := api.Deps{
		Config:  cfg.API,
		Logger:  d.log.With("component", "api"),
		Status:  d.status,
		History: d.history,
		Metrics: d.metrics,
		MQTT:    d.mqtt,
		Hub:     d.hub,
		Version: version,
	}
	if d.db != nil {
		deps.DB = d.db
	}

	srv, err := api.New(deps)
	if err != nil {
		return nil, fmt.Errorf("creating API server: %w", err)
	}
	if err := srv.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting API server: %w", err)
	}
	return srv, nil
}

// loadConfig resolves the config path, loads it and applies flag overrides.
func loadConfig(opts options) (*config.Config, error) {
	cfg, err := config.Load(configPath(opts.configPath), opts.envFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if opts.lobby != "" {
		cfg.Game.Lobby = opts.lobby
	}
	if opts.team != "" {
		cfg.Game.Team = opts.team
	}
	if opts.player != "" {
		cfg.Game.Player = opts.player
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating flags: %w", err)
	}
	return cfg, nil
}

// configPath picks the flag value, then MAZERUNNER_CONFIG, then the default
// file if it exists. An empty result means built-in defaults.
func configPath(flag string) string {
	if flag != "" {
		return flag
	}
	if path := os.Getenv(configEnvVar); path != "" {
		return path
	}
	if _, err := os.Stat(defaultConfigPath); err == nil {
		return defaultConfigPath
	}
	return ""
}

// healthCheck verifies every enabled connection before the game starts.
// db and influxClient may be nil.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	checkCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	if db != nil {
		if err := db.HealthCheck(checkCtx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	if err := mqttClient.HealthCheck(checkCtx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(checkCtx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
