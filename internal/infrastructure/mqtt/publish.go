package mqtt

import (
	"fmt"
	"time"
)

// maxPayloadSize caps outbound payloads at 1 MiB.
const maxPayloadSize = 1 << 20

// Publish sends payload and waits until the broker acknowledges it, or
// for QoS 0 until it is written.
//
//	err := client.Publish(game.Topics{}.Move("TestLobby", "Player4"), []byte("RIGHT"), 1, false)
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if err := validate(topic, qos); err != nil {
		return err
	}
	if n := len(payload); n > maxPayloadSize {
		return fmt.Errorf("%w: %d byte payload over the %d byte limit", ErrPublishFailed, n, maxPayloadSize)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	start := time.Now()
	if err := wait(c.paho.Publish(topic, qos, retained, payload), defaultPublishTimeout); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPublishFailed, topic, err)
	}
	c.logger().Debug("published", "topic", topic, "qos", qos, "bytes", len(payload), "took", time.Since(start))
	return nil
}

// PublishString is Publish with a string payload.
func (c *Client) PublishString(topic, payload string, qos byte, retained bool) error {
	return c.Publish(topic, []byte(payload), qos, retained)
}
