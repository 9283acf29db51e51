package agent

import (
	"github.com/hupe1980/civmesh/brain"
	"github.com/hupe1980/civmesh/logging"
	"github.com/hupe1980/civmesh/mailbox"
	"github.com/hupe1980/civmesh/tool"
	"github.com/hupe1980/civmesh/tracer"
)

// Options configures an Agent.
//
// Everything except Referee and Tools is inherited by the agents it invites.
type Options struct {
	// Referee is the delegator. A nil referee makes a root agent, which
	// answers through Wait instead of serving its mailbox.
	Referee *Agent
	// Tools granted at construction, keyed by tool name.
	Tools map[string]tool.Tool
	// Mailbox configures the listening port range.
	Mailbox mailbox.Config
	// Sinks receive every lifecycle event of the agent.
	Sinks []tracer.Sink
	// BrainFactory builds the agent's brain. Without one the agent can act
	// but not Respond.
	BrainFactory brain.Factory
	// ToolFactory builds tools for Build actions.
	ToolFactory tool.Factory
	// MaxReviews bounds the execute/review attempts per plan. When exhausted
	// the last opinion becomes a constraint of the next planning round.
	// Zero retries until a review accepts.
	MaxReviews int
	Logger     logging.Logger
}

func defaultOptions() Options {
	return Options{
		Mailbox: mailbox.DefaultConfig(),
		Logger:  logging.NoOpLogger{},
	}
}

// inherited returns the options passed to an invited agent.
func (o Options) inherited(referee *Agent, tools map[string]tool.Tool) func(*Options) {
	return func(c *Options) {
		*c = o
		c.Referee = referee
		c.Tools = tools
	}
}
