package mqtt

import (
	"context"
	"fmt"
	"testing"
	"time"

	"wisefido-radmon/internal/config"

	mochi "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const brokerPort = 18831

// 进程内 MQTT broker
func startBroker(t *testing.T, port int) string {
	t.Helper()
	cfg := listeners.Config{
		Type:    "tcp",
		ID:      fmt.Sprintf("radmon-test-%d", port),
		Address: fmt.Sprintf("127.0.0.1:%d", port),
	}
	broker := mochi.New(nil)
	require.NoError(t, broker.AddHook(&auth.AllowHook{}, nil))
	require.NoError(t, broker.AddListener(listeners.NewTCP(cfg)))
	require.NoError(t, broker.Serve())
	t.Cleanup(func() { _ = broker.Close() })
	return "tcp://" + cfg.Address
}

func TestClient_PublishSubscribe(t *testing.T) {
	broker := startBroker(t, brokerPort)

	c, err := NewClient(&config.MQTTConfig{Broker: broker, ClientID: "radmon-test"}, zap.NewNop())
	require.NoError(t, err)
	defer c.Disconnect()
	assert.True(t, c.IsConnected())

	type message struct {
		topic   string
		payload string
	}
	received := make(chan message, 1)
	require.NoError(t, c.Subscribe("radmon/+/reading", 1, func(topic string, payload []byte) error {
		received <- message{topic: topic, payload: string(payload)}
		return nil
	}))
	assert.Equal(t, 1, c.Subscriptions())

	require.NoError(t, c.Publish(context.Background(), "radmon/dev-7/reading", 1, false, []byte(`{"value":0.12}`)))

	select {
	case msg := <-received:
		assert.Equal(t, "radmon/dev-7/reading", msg.topic)
		assert.JSONEq(t, `{"value":0.12}`, msg.payload)
	case <-time.After(3 * time.Second):
		t.Fatal("message not delivered")
	}

	require.NoError(t, c.Unsubscribe("radmon/+/reading"))
	assert.Equal(t, 0, c.Subscriptions())
}

func TestClient_ConnectFailure(t *testing.T) {
	_, err := NewClient(&config.MQTTConfig{Broker: "tcp://127.0.0.1:1", ClientID: "radmon-test"}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect")
}

func TestClient_PublishBoundedByContextWhenBrokerGone(t *testing.T) {
	cfg := listeners.Config{Type: "tcp", ID: "radmon-test-gone", Address: "127.0.0.1:18833"}
	broker := mochi.New(nil)
	require.NoError(t, broker.AddHook(&auth.AllowHook{}, nil))
	require.NoError(t, broker.AddListener(listeners.NewTCP(cfg)))
	require.NoError(t, broker.Serve())

	c, err := NewClient(&config.MQTTConfig{Broker: "tcp://" + cfg.Address, ClientID: "radmon-test-gone"}, zap.NewNop())
	require.NoError(t, err)
	defer c.Disconnect()

	require.NoError(t, broker.Close())

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	start := time.Now()
	err = c.Publish(ctx, "radmon/alerts", 1, false, []byte(`{"kind":"tone"}`))
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}
