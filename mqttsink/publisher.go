// Package mqttsink streams settled executions to an MQTT broker so that
// dashboards and auditors can follow a session without polling the gateway.
package mqttsink

import (
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/balazsgrill/synapse"
	"github.com/balazsgrill/synapse/internal/logger"
)

const publishTimeout = 5 * time.Second

type Publisher struct {
	client      mqtt.Client
	topicPrefix string
	log         *zap.SugaredLogger
}

type Options struct {
	Broker string
	// TopicPrefix defaults to synapse.MQTT_EXECUTION_TOPIC_PREFIX.
	TopicPrefix string
	Logger      *zap.SugaredLogger
}

// Connect dials the broker and returns a ready publisher.
func Connect(opts Options) (*Publisher, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	prefix := opts.TopicPrefix
	if prefix == "" {
		prefix = synapse.MQTT_EXECUTION_TOPIC_PREFIX
	}

	clientOpts := mqtt.NewClientOptions().AddBroker(opts.Broker)
	clientOpts.SetClientID("synapse-console-" + uuid.New().String())
	clientOpts.SetAutoReconnect(true)
	clientOpts.SetConnectTimeout(publishTimeout)
	clientOpts.SetOnConnectHandler(func(c mqtt.Client) {
		log.Infow("Connected to MQTT broker", "broker", opts.Broker)
	})
	clientOpts.SetConnectionLostHandler(func(c mqtt.Client, err error) {
		log.Warnw("Lost MQTT connection", "broker", opts.Broker, "error", err)
	})

	client := mqtt.NewClient(clientOpts)
	token := client.Connect()
	if !token.WaitTimeout(publishTimeout) {
		return nil, errors.Newf("timed out connecting to MQTT broker %s", opts.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, errors.Wrapf(err, "failed to connect to MQTT broker %s", opts.Broker)
	}

	return &Publisher{
		client:      client,
		topicPrefix: prefix,
		log:         log,
	}, nil
}

// Topic is where the execution with the given id is published.
func (p *Publisher) Topic(executionID string) string {
	return p.topicPrefix + executionID
}

// Publish sends exec as JSON with QoS 1.
func (p *Publisher) Publish(exec synapse.AgentExecution) error {
	payload, err := json.Marshal(exec)
	if err != nil {
		return errors.Wrapf(err, "failed to encode execution %s", exec.ID)
	}

	token := p.client.Publish(p.Topic(exec.ID), 1, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return errors.Newf("timed out publishing execution %s", exec.ID)
	}
	if err := token.Error(); err != nil {
		return errors.Wrapf(err, "failed to publish execution %s", exec.ID)
	}
	p.log.Debugw("Execution published", "topic", p.Topic(exec.ID))
	return nil
}

func (p *Publisher) IsConnected() bool {
	return p.client.IsConnected()
}

func (p *Publisher) Close() {
	p.client.Disconnect(250)
}

var _ synapse.ExecutionSink = (*Publisher)(nil)
