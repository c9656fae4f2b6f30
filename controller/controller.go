// Package controller turns scenario submissions into settled execution
// records. Every accepted submission produces exactly one AgentExecution,
// real or fallback, which is prepended to the session history.
package controller

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/balazsgrill/synapse"
	"github.com/balazsgrill/synapse/internal/logger"
)

// ErrSubmissionInFlight rejects a submission while another one is pending.
var ErrSubmissionInFlight = errors.New("a submission is already in flight")

type State int

const (
	Idle State = iota
	Submitting
	Settled
)

func (s State) String() string {
	switch s {
	case Submitting:
		return "submitting"
	case Settled:
		return "settled"
	default:
		return "idle"
	}
}

type Controller struct {
	gateway GatewayClient
	history *History
	sink    synapse.ExecutionSink
	log     *zap.SugaredLogger
	now     func() time.Time

	mu         sync.Mutex
	state      State
	lastMillis int64
}

type Option func(*Controller)

// WithSink publishes every settled execution. Sink failures are logged and
// never affect settlement.
func WithSink(sink synapse.ExecutionSink) Option {
	return func(c *Controller) { c.sink = sink }
}

func WithLogger(log *zap.SugaredLogger) Option {
	return func(c *Controller) { c.log = log }
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

func New(gateway GatewayClient, opts ...Option) *Controller {
	c := &Controller{
		gateway: gateway,
		history: NewHistory(),
		log:     logger.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// History is the session history. It is read-only outside this package.
func (c *Controller) History() *History {
	return c.history
}

// Reset starts a new session: the history is cleared.
func (c *Controller) Reset() {
	c.history.reset()
}

// Submit runs one scenario through the gateway and returns the settled
// record. Errors are returned only for rejected submissions (blank scenario,
// another submission in flight); upstream failures settle as fallback
// records. Cancelling ctx after the call has started has no effect.
func (c *Controller) Submit(ctx context.Context, scenario string) (synapse.AgentExecution, error) {
	if strings.TrimSpace(scenario) == "" {
		return synapse.AgentExecution{}, synapse.ErrEmptyScenario
	}

	submittedAt := c.now()

	c.mu.Lock()
	if c.state == Submitting {
		c.mu.Unlock()
		return synapse.AgentExecution{}, ErrSubmissionInFlight
	}
	id := c.nextID(submittedAt)
	c.state = Submitting
	c.mu.Unlock()

	exec := c.settle(context.WithoutCancel(ctx), scenario, id, submittedAt)

	c.history.prepend(exec)
	c.mu.Lock()
	c.state = Settled
	c.mu.Unlock()

	c.log.Infow("Execution settled",
		"execution_id", exec.ID,
		"success", exec.Success,
		"planned_actions", len(exec.PlannedActions))

	if c.sink != nil {
		if err := c.sink.Publish(exec.Clone()); err != nil {
			c.log.Warnw("Failed to publish execution", "execution_id", exec.ID, "error", err)
		}
	}
	return exec.Clone(), nil
}

// settle always yields a record.
func (c *Controller) settle(ctx context.Context, scenario, id string, submittedAt time.Time) (exec synapse.AgentExecution) {
	req, err := synapse.NewExecutionRequest(scenario, id, submittedAt)
	if err != nil {
		// unreachable: blank scenarios are rejected before Submitting
		return Fallback(FailureNetwork, id, strings.TrimSpace(scenario), c.now())
	}

	defer func() {
		if r := recover(); r != nil {
			c.log.Errorw("Gateway call panicked", "execution_id", id, "panic", r)
			exec = Fallback(FailureNetwork, id, req.Scenario, c.now())
		}
	}()

	resp, err := c.gateway.Execute(ctx, req)
	settledAt := c.now()
	if err != nil {
		class := Classify(err)
		c.log.Warnw("Gateway call failed, using fallback",
			"execution_id", id,
			"failure", class.String(),
			"error", err)
		return Fallback(class, id, req.Scenario, settledAt)
	}
	return MapUpstream(id, req.Scenario, resp, settledAt)
}

// nextID derives the id from the submission time, bumped so that ids stay
// unique within one millisecond. Caller holds c.mu.
func (c *Controller) nextID(at time.Time) string {
	ms := at.UnixMilli()
	if ms <= c.lastMillis {
		ms = c.lastMillis + 1
	}
	c.lastMillis = ms
	return fmt.Sprintf("exec_%d", ms)
}
