package mqtt

import (
	"context"
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/mazerunner/internal/infrastructure/config"
)

// Logger is the logging surface the client needs. *logging.Logger and
// *slog.Logger both satisfy it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// MessageHandler receives one message.
//
// Handlers run on paho's delivery goroutine, in arrival order, and must not
// block. A returned error is logged; the message is still acknowledged.
type MessageHandler func(topic string, payload []byte) error

type subscription struct {
	qos     byte
	handler MessageHandler
}

// Client is a paho connection to the game broker. It is safe for
// concurrent use. Subscriptions survive reconnects.
type Client struct {
	paho   pahomqtt.Client
	broker string
	id     string

	mu     sync.RWMutex
	online bool
	subs   map[string]subscription
	onLost func(error)
	log    Logger
}

// Connect dials the broker once. Refusal or timeout yields
// ErrConnectionFailed; later drops are reconnected automatically.
func Connect(cfg config.MQTTConfig) (*Client, error) {
	return ConnectWithLogger(cfg, nil)
}

// ConnectWithLogger is Connect with logger in place before the first
// connection event fires.
func ConnectWithLogger(cfg config.MQTTConfig, logger Logger) (*Client, error) {
	opts := buildClientOptions(cfg)
	c := &Client{
		broker: brokerURL(cfg),
		id:     opts.ClientID,
		subs:   make(map[string]subscription),
		log:    logger,
	}

	opts.
		SetOnConnectHandler(func(pahomqtt.Client) { c.connected() }).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.lost(err) }).
		SetReconnectingHandler(func(pahomqtt.Client, *pahomqtt.ClientOptions) {
			c.logger().Info("reconnecting to MQTT broker", "broker", c.broker)
		})
	c.paho = pahomqtt.NewClient(opts)

	if err := wait(c.paho.Connect(), defaultConnectTimeout); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// The OnConnect handler may not have run yet.
	c.mu.Lock()
	c.online = true
	c.mu.Unlock()
	return c, nil
}

// ClientID returns the MQTT client identifier in use.
func (c *Client) ClientID() string {
	return c.id
}

// wait blocks on token for at most timeout.
func wait(token pahomqtt.Token, timeout time.Duration) error {
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("timeout after %v", timeout)
	}
	return token.Error()
}

func (c *Client) connected() {
	c.mu.Lock()
	c.online = true
	subs := make(map[string]subscription, len(c.subs))
	for topic, sub := range c.subs {
		subs[topic] = sub
	}
	c.mu.Unlock()

	log := c.logger()
	log.Info("connected to MQTT broker", "broker", c.broker, "client_id", c.id)

	// Runs on paho's connect goroutine, so the acks are awaited elsewhere.
	for topic, sub := range subs {
		token := c.paho.Subscribe(topic, sub.qos, c.deliver(sub.handler))
		go func() {
			if err := wait(token, defaultPublishTimeout); err != nil {
				log.Warn("failed to restore subscription", "topic", topic, "error", err)
			}
		}()
	}
}

func (c *Client) lost(err error) {
	c.mu.Lock()
	c.online = false
	onLost := c.onLost
	c.mu.Unlock()

	c.logger().Warn("MQTT connection lost", "error", err)
	if onLost != nil {
		onLost(err)
	}
}

// Close disconnects, giving in-flight messages a short grace period.
// It is safe on a closed or zero Client.
func (c *Client) Close() error {
	if c.paho == nil {
		return nil
	}
	c.mu.Lock()
	c.online = false
	c.mu.Unlock()

	c.paho.Disconnect(defaultDisconnectQuiesce)
	return nil
}

// HealthCheck returns ErrNotConnected while the connection is down.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected reports whether the client is connected right now.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.online && c.paho != nil && c.paho.IsConnected()
}

// SetOnDisconnect installs a callback for connection loss.
func (c *Client) SetOnDisconnect(fn func(err error)) {
	c.mu.Lock()
	c.onLost = fn
	c.mu.Unlock()
}

// SetLogger replaces the logger. nil silences the client.
func (c *Client) SetLogger(logger Logger) {
	c.mu.Lock()
	c.log = logger
	c.mu.Unlock()
}

func (c *Client) logger() Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.log == nil {
		return nopLogger{}
	}
	return c.log
}

// deliver adapts handler to paho, logging its errors and panics so one bad
// message cannot stop delivery.
func (c *Client) deliver(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		topic := msg.Topic()
		defer func() {
			if r := recover(); r != nil {
				c.logger().Error("message handler panicked", "topic", topic, "panic", r)
			}
		}()
		if err := handler(topic, msg.Payload()); err != nil {
			c.logger().Warn("message handler failed", "topic", topic, "error", err)
		}
	}
}
