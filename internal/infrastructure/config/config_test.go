package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
game:
  lobby: "Arena"
  team: "ATeam"
  player: "Player1"
  grid_size: 12
  move_interval: 250ms
  join_delay: 2s
  start_delay: 5s
  no_move_policy: stop
mqtt:
  broker:
    host: "broker.local"
    port: 8883
    tls: true
  qos: 2
database:
  enabled: true
  path: "/tmp/test.db"
`
	cfg, err := Load(writeFile(t, "config.yaml", content), "")
	require.NoError(t, err)

	assert.Equal(t, "Arena", cfg.Game.Lobby)
	assert.Equal(t, 12, cfg.Game.GridSize)
	assert.Equal(t, 250*time.Millisecond, cfg.Game.MoveInterval)
	assert.Equal(t, 2*time.Second, cfg.Game.JoinDelay)
	assert.Equal(t, 5*time.Second, cfg.Game.StartDelay)
	assert.Equal(t, NoMovePolicyStop, cfg.Game.NoMovePolicy)
	assert.Equal(t, "broker.local", cfg.MQTT.Broker.Host)
	assert.Equal(t, 8883, cfg.MQTT.Broker.Port)
	assert.True(t, cfg.MQTT.Broker.TLS)
	assert.Equal(t, 2, cfg.MQTT.QoS)
	assert.True(t, cfg.Database.Enabled)
	assert.Equal(t, "/tmp/test.db", cfg.Database.Path)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", "")
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Game.GridSize)
	assert.Equal(t, time.Second, cfg.Game.MoveInterval)
	assert.Equal(t, time.Second, cfg.Game.JoinDelay)
	assert.Equal(t, 20*time.Second, cfg.Game.StartDelay)
	assert.Equal(t, NoMovePolicyWait, cfg.Game.NoMovePolicy)
	assert.Equal(t, 1883, cfg.MQTT.Broker.Port)
	assert.False(t, cfg.Database.Enabled, "database")
	assert.False(t, cfg.InfluxDB.Enabled, "influxdb")
	assert.False(t, cfg.Metrics.Enabled, "metrics")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml", "")
	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeFile(t, "config.yaml", "invalid: [yaml: content"), "")
	assert.Error(t, err)
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
game:
  player: "ThisPlayerNameIsFarTooLong"
`
	_, err := Load(writeFile(t, "config.yaml", content), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "game.player")
}

func TestLoad_CredentialsFile(t *testing.T) {
	creds := writeFile(t, "credentials.env", `BROKER_ADDRESS=mqtt.example.com
BROKER_PORT=8884
USER_NAME=player
PASSWORD=s3cret
`)

	cfg, err := Load("", creds)
	require.NoError(t, err)

	assert.Equal(t, "mqtt.example.com", cfg.MQTT.Broker.Host)
	assert.Equal(t, 8884, cfg.MQTT.Broker.Port)
	assert.Equal(t, "player", cfg.MQTT.Auth.Username)
	assert.Equal(t, "s3cret", cfg.MQTT.Auth.Password)
}

func TestLoad_EnvironmentWinsOverCredentialsFile(t *testing.T) {
	creds := writeFile(t, "credentials.env", "BROKER_ADDRESS=from-file\nUSER_NAME=file-user\n")
	t.Setenv("BROKER_ADDRESS", "from-env")
	t.Setenv("MAZERUNNER_GAME_LOBBY", "EnvLobby")

	cfg, err := Load("", creds)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.MQTT.Broker.Host)
	assert.Equal(t, "file-user", cfg.MQTT.Auth.Username)
	assert.Equal(t, "EnvLobby", cfg.Game.Lobby)
}

func TestLoad_MissingCredentialsFile(t *testing.T) {
	_, err := Load("", filepath.Join(t.TempDir(), "absent.env"))
	assert.NoError(t, err)
}

func TestLoad_BadBrokerPort(t *testing.T) {
	t.Setenv("BROKER_PORT", "not-a-port")

	_, err := Load("", "")
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{name: "empty lobby", mutate: func(c *Config) { c.Game.Lobby = "" }, wantErr: "game.lobby"},
		{name: "long team", mutate: func(c *Config) { c.Game.Team = strings.Repeat("t", 21) }, wantErr: "game.team"},
		{name: "twenty runes", mutate: func(c *Config) { c.Game.Player = strings.Repeat("é", 20) }},
		{name: "zero grid", mutate: func(c *Config) { c.Game.GridSize = 0 }, wantErr: "game.grid_size"},
		{name: "zero interval", mutate: func(c *Config) { c.Game.MoveInterval = 0 }, wantErr: "game.move_interval"},
		{name: "negative delay", mutate: func(c *Config) { c.Game.JoinDelay = -time.Second }, wantErr: "game.join_delay"},
		{name: "bad policy", mutate: func(c *Config) { c.Game.NoMovePolicy = "panic" }, wantErr: "game.no_move_policy"},
		{name: "no host", mutate: func(c *Config) { c.MQTT.Broker.Host = "" }, wantErr: "mqtt.broker.host"},
		{name: "bad port", mutate: func(c *Config) { c.MQTT.Broker.Port = 70000 }, wantErr: "mqtt.broker.port"},
		{name: "bad qos", mutate: func(c *Config) { c.MQTT.QoS = 3 }, wantErr: "mqtt.qos"},
		{
			name:    "database without path",
			mutate:  func(c *Config) { c.Database.Enabled = true; c.Database.Path = "" },
			wantErr: "database.path",
		},
		{
			name:    "influxdb without url",
			mutate:  func(c *Config) { c.InfluxDB.Enabled = true; c.InfluxDB.Org = "o"; c.InfluxDB.Bucket = "b" },
			wantErr: "influxdb.url",
		},
		{
			name:    "metrics without addr",
			mutate:  func(c *Config) { c.Metrics.Enabled = true; c.Metrics.Addr = "" },
			wantErr: "metrics.addr",
		},
		{
			name:    "api bad port",
			mutate:  func(c *Config) { c.API.Enabled = true; c.API.Port = 0 },
			wantErr: "api.port",
		},
		{
			name:    "api zero ping interval",
			mutate:  func(c *Config) { c.API.Enabled = true; c.API.WebSocket.PingInterval = 0 },
			wantErr: "api.websocket",
		},
		{name: "bad log level", mutate: func(c *Config) { c.Logging.Level = "loud" }, wantErr: "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMQTTReconnectConfig_MaxInterval(t *testing.T) {
	assert.Equal(t, time.Minute, defaultConfig().MQTT.Reconnect.MaxInterval())
}

func TestLoad_ReconnectMaxDelay(t *testing.T) {
	path := writeFile(t, "config.yaml", "mqtt:\n  reconnect:\n    max_delay: 7\n")

	cfg, err := Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, 7*time.Second, cfg.MQTT.Reconnect.MaxInterval())
}
