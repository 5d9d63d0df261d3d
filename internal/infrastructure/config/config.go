package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Name length limits enforced by the game server.
const (
	minNameLength = 1
	maxNameLength = 20
)

// No-legal-move policies.
const (
	// NoMovePolicyWait keeps the session running and retries on the next tick.
	NoMovePolicyWait = "wait"

	// NoMovePolicyStop ends the session.
	NoMovePolicyStop = "stop"
)

// DefaultCredentialsFile is the dotenv file read for broker credentials.
const DefaultCredentialsFile = "./credentials.env"

// Config is the root configuration structure for mazerunner.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Game     GameConfig     `yaml:"game"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Database DatabaseConfig `yaml:"database"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	API      APIConfig      `yaml:"api"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// GameConfig identifies the player and paces the session.
type GameConfig struct {
	Lobby    string `yaml:"lobby"`
	Team     string `yaml:"team"`
	Player   string `yaml:"player"`
	GridSize int    `yaml:"grid_size"`

	// MoveInterval is the pause between move requests.
	MoveInterval time.Duration `yaml:"move_interval"`

	// JoinDelay is the wait between the join request and START.
	JoinDelay time.Duration `yaml:"join_delay"`

	// StartDelay is the wait between START and the first move.
	StartDelay time.Duration `yaml:"start_delay"`

	// NoMovePolicy is "wait" or "stop".
	NoMovePolicy string `yaml:"no_move_policy"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig bounds the back-off paho uses after a dropped
// connection. The first connect is never retried.
type MQTTReconnectConfig struct {
	// MaxDelay caps the reconnect interval, in seconds. Zero keeps paho's default.
	MaxDelay int `yaml:"max_delay"`
}

// MaxInterval returns MaxDelay as a Duration.
func (r MQTTReconnectConfig) MaxInterval() time.Duration {
	return time.Duration(r.MaxDelay) * time.Second
}

// DatabaseConfig contains SQLite settings for the session history.
type DatabaseConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Path    string `yaml:"path"`
}

// APIConfig controls the read-only status API.
type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`

	// CORSOrigins lists browser origins allowed to call the API.
	// Empty allows every origin.
	CORSOrigins []string `yaml:"cors_origins"`

	Timeouts  APITimeoutConfig `yaml:"timeouts"`
	WebSocket WebSocketConfig  `yaml:"websocket"`
}

// APITimeoutConfig contains HTTP server timeouts.
type APITimeoutConfig struct {
	Read  time.Duration `yaml:"read"`
	Write time.Duration `yaml:"write"`
	Idle  time.Duration `yaml:"idle"`
}

// WebSocketConfig contains live event stream settings.
type WebSocketConfig struct {
	PingInterval   time.Duration `yaml:"ping_interval"`
	PongTimeout    time.Duration `yaml:"pong_timeout"`
	MaxMessageSize int           `yaml:"max_message_size"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (skipped when path is empty)
//  3. The dotenv credentials file (skipped when missing)
//  4. Process environment variables (win over the credentials file)
//
// Recognised variables: BROKER_ADDRESS, BROKER_PORT, USER_NAME, PASSWORD and
// MAZERUNNER_SECTION_KEY, e.g. MAZERUNNER_GAME_LOBBY.
func Load(path, credentialsFile string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	fileEnv, err := readCredentials(credentialsFile)
	if err != nil {
		return nil, err
	}

	lookup := func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return fileEnv[key]
	}
	if err := applyEnvOverrides(cfg, lookup); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// readCredentials parses a dotenv file. A missing file yields no values.
func readCredentials(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading credentials file: %w", err)
	}
	return values, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Game: GameConfig{
			Lobby:        "TestLobby",
			Team:         "BTeam",
			Player:       "Player4",
			GridSize:     10,
			MoveInterval: time.Second,
			JoinDelay:    time.Second,
			StartDelay:   20 * time.Second,
			NoMovePolicy: NoMovePolicyWait,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host: "localhost",
				Port: 1883,
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				MaxDelay: 60,
			},
		},
		Database: DatabaseConfig{
			Path:        "./data/mazerunner.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Metrics: MetricsConfig{
			Addr: ":9090",
			Path: "/metrics",
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  10 * time.Second,
				Write: 10 * time.Second,
				Idle:  60 * time.Second,
			},
			WebSocket: WebSocketConfig{
				PingInterval:   30 * time.Second,
				PongTimeout:    10 * time.Second,
				MaxMessageSize: 8192,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config, env func(string) string) error {
	// Broker credentials, named as in credentials.env.
	if v := env("BROKER_ADDRESS"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := env("BROKER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BROKER_PORT: %w", err)
		}
		cfg.MQTT.Broker.Port = port
	}
	if v := env("USER_NAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := env("PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// Game
	if v := env("MAZERUNNER_GAME_LOBBY"); v != "" {
		cfg.Game.Lobby = v
	}
	if v := env("MAZERUNNER_GAME_TEAM"); v != "" {
		cfg.Game.Team = v
	}
	if v := env("MAZERUNNER_GAME_PLAYER"); v != "" {
		cfg.Game.Player = v
	}

	// MQTT
	if v := env("MAZERUNNER_MQTT_CLIENT_ID"); v != "" {
		cfg.MQTT.Broker.ClientID = v
	}

	// Database
	if v := env("MAZERUNNER_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// InfluxDB
	if v := env("MAZERUNNER_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := env("MAZERUNNER_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	return nil
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Game validation
	errs = appendNameErr(errs, "game.lobby", c.Game.Lobby)
	errs = appendNameErr(errs, "game.team", c.Game.Team)
	errs = appendNameErr(errs, "game.player", c.Game.Player)
	if c.Game.GridSize < 1 {
		errs = append(errs, "game.grid_size must be positive")
	}
	if c.Game.MoveInterval <= 0 {
		errs = append(errs, "game.move_interval must be positive")
	}
	if c.Game.JoinDelay < 0 || c.Game.StartDelay < 0 {
		errs = append(errs, "game.join_delay and game.start_delay must not be negative")
	}
	if c.Game.NoMovePolicy != NoMovePolicyWait && c.Game.NoMovePolicy != NoMovePolicyStop {
		errs = append(errs, "game.no_move_policy must be wait or stop")
	}

	// MQTT validation
	if c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required (set BROKER_ADDRESS)")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// Database validation
	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required when database is enabled")
	}

	// InfluxDB validation
	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Org == "" || c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.org and influxdb.bucket are required when influxdb is enabled")
		}
	}

	// Metrics validation
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		errs = append(errs, "metrics.addr is required when metrics are enabled")
	}

	// API validation
	if c.API.Enabled {
		if c.API.Port < 1 || c.API.Port > 65535 {
			errs = append(errs, "api.port must be between 1 and 65535")
		}
		if c.API.WebSocket.PingInterval <= 0 || c.API.WebSocket.PongTimeout <= 0 {
			errs = append(errs, "api.websocket ping_interval and pong_timeout must be positive")
		}
	}

	// Logging validation
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, "logging.level must be debug, info, warn or error")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

func appendNameErr(errs []string, field, value string) []string {
	n := utf8.RuneCountInString(value)
	if n < minNameLength || n > maxNameLength {
		return append(errs, fmt.Sprintf("%s must be %d-%d characters", field, minNameLength, maxNameLength))
	}
	return errs
}
