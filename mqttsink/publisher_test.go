package mqttsink

import (
	"encoding/json"
	"fmt"
	"net"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	mqttserver "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balazsgrill/synapse"
)

func startBroker(t *testing.T) string {
	t.Helper()
	port := getFreePort(t)
	broker := mqttserver.New(nil)
	tcp := listeners.NewTCP(listeners.Config{
		ID:      "t1",
		Address: fmt.Sprintf("localhost:%d", port),
	})
	require.NoError(t, broker.AddListener(tcp))
	require.NoError(t, broker.AddHook(new(auth.AllowHook), nil))

	go func() {
		_ = broker.Serve()
	}()
	t.Cleanup(func() { broker.Close() })

	mqttURL := fmt.Sprintf("tcp://localhost:%d", port)
	require.Eventually(t, func() bool {
		conn, err := net.Dial("tcp", fmt.Sprintf("localhost:%d", port))
		if err != nil {
			return false
		}
		conn.Close()
		return true
	}, 5*time.Second, 50*time.Millisecond, "broker did not start")
	return mqttURL
}

func getFreePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "localhost:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func subscribe(t *testing.T, brokerURL, topic string) <-chan []byte {
	t.Helper()
	opts := mqtt.NewClientOptions().AddBroker(brokerURL).SetClientID("synapse-test-observer")
	client := mqtt.NewClient(opts)
	token := client.Connect()
	require.True(t, token.WaitTimeout(5*time.Second))
	require.NoError(t, token.Error())
	t.Cleanup(func() { client.Disconnect(100) })

	msgs := make(chan []byte, 10)
	sub := client.Subscribe(topic, 1, func(c mqtt.Client, m mqtt.Message) {
		msgs <- m.Payload()
	})
	require.True(t, sub.WaitTimeout(5*time.Second))
	require.NoError(t, sub.Error())
	return msgs
}

func TestPublishSettledExecution(t *testing.T) {
	brokerURL := startBroker(t)
	msgs := subscribe(t, brokerURL, synapse.MQTT_EXECUTION_TOPIC_PREFIX+"+")

	pub, err := Connect(Options{Broker: brokerURL})
	require.NoError(t, err)
	defer pub.Close()
	assert.True(t, pub.IsConnected())

	exec := synapse.AgentExecution{
		ID:             "exec_1741082400000",
		Scenario:       "Driver stuck in traffic, Order ORD-1",
		Reasoning:      "rerouting",
		PlannedActions: []synapse.PlannedAction{{Tool: "reroute_driver", Params: map[string]any{"driver_id": "D1"}}},
		ExecutionResults: []synapse.ExecutionResult{
			{Tool: "reroute_driver", Status: synapse.StatusSuccess, Result: map[string]any{"rerouted": true}},
		},
		Timestamp: time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC),
		Success:   true,
	}
	require.NoError(t, pub.Publish(exec))

	select {
	case payload := <-msgs:
		var got synapse.AgentExecution
		require.NoError(t, json.Unmarshal(payload, &got))
		assert.Equal(t, exec.ID, got.ID)
		assert.Equal(t, exec.Reasoning, got.Reasoning)
		assert.True(t, got.Success)
		assert.True(t, exec.Timestamp.Equal(got.Timestamp))
		require.Len(t, got.ExecutionResults, 1)
		assert.Equal(t, synapse.StatusSuccess, got.ExecutionResults[0].Status)
	case <-time.After(5 * time.Second):
		t.Fatal("execution was not published")
	}
}

func TestTopic(t *testing.T) {
	p := &Publisher{topicPrefix: "fleet/synapse/"}
	assert.Equal(t, "fleet/synapse/exec_1", p.Topic("exec_1"))
}

func TestConnectFailsWithoutBroker(t *testing.T) {
	port := getFreePort(t)

	_, err := Connect(Options{Broker: fmt.Sprintf("tcp://localhost:%d", port)})
	assert.Error(t, err)
}
