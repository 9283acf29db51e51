package brain

import (
	"context"
	"errors"

	"github.com/hupe1980/civmesh/core"
)

// ErrSchemaMismatch is returned when a reply cannot be parsed into the
// requested structure.
var ErrSchemaMismatch = errors.New("reply does not match the expected schema")

// Brain is the reasoning capability consumed by an agent.
type Brain interface {
	// Plan proposes the plans serving request, honouring the opinions on
	// earlier proposals and the constraints learned from failed rounds.
	Plan(ctx context.Context, request string, opinions, constraints []string) ([]core.Plan, error)
	// Optimize judges a proposal.
	Optimize(ctx context.Context, request string, plans []core.Plan) (opinion string, accepted bool, err error)
	// Execute picks exactly one action carrying out plan.
	Execute(ctx context.Context, plan core.Plan, opinions []string) (core.Action, error)
	// Review judges the result of an action.
	Review(ctx context.Context, plan core.Plan, action core.Action, result string) (opinion string, accepted bool, err error)
}

// Self is the live view a brain has of the agent that owns it.
type Self interface {
	Name() string
	Instruction() string
	// Referee returns the delegator's name, empty for the root agent.
	Referee() string
	// Relations lists the agents this one may talk to.
	Relations() []core.Profile
	// Tools lists the tools this one may use.
	Tools() []core.Profile
}

// ThoughtObserver is notified while a brain is thinking.
type ThoughtObserver interface {
	OnThoughtStart(ctx context.Context, stage string)
	OnThought(ctx context.Context, chunk string)
	OnThoughtEnd(ctx context.Context, text string)
	OnThoughtError(ctx context.Context, err error)
}

// Factory builds the brain of a new agent.
type Factory func(self Self, obs ThoughtObserver) Brain

// NoOpObserver ignores every notification.
type NoOpObserver struct{}

// OnThoughtStart implements ThoughtObserver.
func (NoOpObserver) OnThoughtStart(context.Context, string) {}

// OnThought implements ThoughtObserver.
func (NoOpObserver) OnThought(context.Context, string) {}

// OnThoughtEnd implements ThoughtObserver.
func (NoOpObserver) OnThoughtEnd(context.Context, string) {}

// OnThoughtError implements ThoughtObserver.
func (NoOpObserver) OnThoughtError(context.Context, error) {}
