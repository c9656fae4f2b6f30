package synapse

// ExecutionSink receives every settled AgentExecution.
type ExecutionSink interface {
	Publish(exec AgentExecution) error
}

const (
	MQTT_EXECUTION_TOPIC_PREFIX = "synapse/executions/"
)
