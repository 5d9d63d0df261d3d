// Package broker runs an in-process MQTT broker for tests.
package broker

import (
	"io"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	mochi "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/mochi-mqtt/server/v2/packets"
	"github.com/stretchr/testify/require"
)

// Message is a publish observed by the broker.
type Message struct {
	Topic   string
	Payload []byte
}

// Broker is a running embedded broker bound to a free localhost port.
type Broker struct {
	Host string
	Port int

	server    *mochi.Server
	subIDs    atomic.Int32
	closeOnce sync.Once
}

// Start launches a broker that accepts any client and stops it when the
// test ends.
func Start(t testing.TB) *Broker {
	t.Helper()

	port := freePort(t)
	server := mochi.New(&mochi.Options{
		InlineClient: true,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, server.AddHook(new(auth.AllowHook), nil), "broker: adding auth hook")

	tcp := listeners.NewTCP(listeners.Config{
		ID:      "test",
		Address: net.JoinHostPort("127.0.0.1", strconv.Itoa(port)),
	})
	require.NoError(t, server.AddListener(tcp), "broker: adding listener")

	go func() {
		_ = server.Serve()
	}()

	b := &Broker{Host: "127.0.0.1", Port: port, server: server}
	b.waitReady(t)

	t.Cleanup(b.Close)
	return b
}

// Publish injects a message as if another client had sent it.
func (b *Broker) Publish(t testing.TB, topic string, payload []byte) {
	t.Helper()
	require.NoError(t, b.server.Publish(topic, payload, false, 1), "broker: publishing to %s", topic)
}

// Close stops the broker, dropping every client connection.
func (b *Broker) Close() {
	b.closeOnce.Do(func() {
		_ = b.server.Close()
	})
}

// Capture records every message matching filter.
func (b *Broker) Capture(t testing.TB, filter string) *Recorder {
	t.Helper()

	r := &Recorder{ch: make(chan Message, 256)}
	id := int(b.subIDs.Add(1))
	err := b.server.Subscribe(filter, id, func(_ *mochi.Client, _ packets.Subscription, pk packets.Packet) {
		payload := make([]byte, len(pk.Payload))
		copy(payload, pk.Payload)
		select {
		case r.ch <- Message{Topic: pk.TopicName, Payload: payload}:
		default:
		}
	})
	require.NoError(t, err, "broker: subscribing to %s", filter)
	return r
}

// Recorder collects captured messages in arrival order.
type Recorder struct {
	ch chan Message
}

// Next returns the next captured message or fails the test after timeout.
func (r *Recorder) Next(t testing.TB, timeout time.Duration) Message {
	t.Helper()
	select {
	case m := <-r.ch:
		return m
	case <-time.After(timeout):
		t.Fatalf("broker: no message within %v", timeout)
		return Message{}
	}
}

// Expect reports whether a message arrives within timeout.
func (r *Recorder) Expect(timeout time.Duration) (Message, bool) {
	select {
	case m := <-r.ch:
		return m, true
	case <-time.After(timeout):
		return Message{}, false
	}
}

func (b *Broker) waitReady(t testing.TB) {
	t.Helper()
	addr := net.JoinHostPort(b.Host, strconv.Itoa(b.Port))
	require.Eventually(t, func() bool {
		conn, err := net.DialTimeout("tcp", addr, 100*time.Millisecond)
		if err != nil {
			return false
		}
		_ = conn.Close()
		return true
	}, 2*time.Second, 10*time.Millisecond, "broker: not listening on %s", addr)
}

func freePort(t testing.TB) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err, "broker: finding free port")
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}
