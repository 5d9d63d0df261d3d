package mqtt

import (
	"crypto/tls"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/nerrad567/mazerunner/internal/infrastructure/config"
)

const (
	defaultConnectTimeout    = 10 * time.Second
	defaultPublishTimeout    = 5 * time.Second
	defaultKeepAlive         = 60 * time.Second
	defaultDisconnectQuiesce = 250 // ms

	maxQoS = 2
)

// brokerURL returns tcp://host:port, or ssl://host:port with TLS enabled.
func brokerURL(cfg config.MQTTConfig) string {
	scheme := "tcp"
	if cfg.Broker.TLS {
		scheme = "ssl"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, cfg.Broker.Host, cfg.Broker.Port)
}

// clientID returns the configured ID or a random "mazerunner-xxxxxxxx".
// Two players sharing an ID would kick each other off the broker.
func clientID(cfg config.MQTTConfig) string {
	if id := cfg.Broker.ClientID; id != "" {
		return id
	}
	return "mazerunner-" + uuid.NewString()[:8]
}

// buildClientOptions maps the MQTT config onto paho options. The first
// connect is tried once; after that paho reconnects on its own with a
// clean session. Messages are delivered in arrival order.
func buildClientOptions(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions().
		AddBroker(brokerURL(cfg)).
		SetClientID(clientID(cfg)).
		SetCleanSession(true).
		SetOrderMatters(true).
		SetConnectRetry(false).
		SetAutoReconnect(true).
		SetConnectTimeout(defaultConnectTimeout).
		SetKeepAlive(defaultKeepAlive)

	if auth := cfg.Auth; auth.Username != "" {
		opts.SetUsername(auth.Username).SetPassword(auth.Password)
	}
	if cfg.Reconnect.MaxDelay > 0 {
		opts.SetMaxReconnectInterval(cfg.Reconnect.MaxInterval())
	}
	if cfg.Broker.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	return opts
}
