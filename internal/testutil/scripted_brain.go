package testutil

import (
	"context"
	"sync"

	"github.com/hupe1980/civmesh/brain"
	"github.com/hupe1980/civmesh/core"
)

// Decision is a scripted optimize or review verdict.
type Decision struct {
	Opinion  string
	Accepted bool
	Err      error
}

// Accept returns an accepting decision.
func Accept(opinion string) Decision { return Decision{Opinion: opinion, Accepted: true} }

// Reject returns a rejecting decision.
func Reject(opinion string) Decision { return Decision{Opinion: opinion} }

// PlanReply is a scripted result of Brain.Plan.
type PlanReply struct {
	Plans []core.Plan
	Err   error
}

// ActionReply is a scripted result of Brain.Execute.
type ActionReply struct {
	Action core.Action
	Err    error
}

// ScriptedBrain is a deterministic brain.Brain. Each call first consumes the
// matching queue; when the queue is empty the matching hook is used, and
// without a hook a default answering the request verbatim is returned:
// one Answer plan, accept, an Answer action echoing the objective, accept.
type ScriptedBrain struct {
	OnPlan     func(ctx context.Context, request string, opinions, constraints []string) ([]core.Plan, error)
	OnOptimize func(ctx context.Context, request string, plans []core.Plan) (string, bool, error)
	OnExecute  func(ctx context.Context, plan core.Plan, opinions []string) (core.Action, error)
	OnReview   func(ctx context.Context, plan core.Plan, action core.Action, result string) (string, bool, error)

	mu        sync.Mutex
	self      brain.Self
	plans     []PlanReply
	optimizes []Decision
	actions   []ActionReply
	reviews   []Decision

	planCalls, optimizeCalls, executeCalls, reviewCalls int

	lastOpinions    []string
	lastConstraints []string
	results         []string
}

// NewScriptedBrain returns an empty script.
func NewScriptedBrain() *ScriptedBrain { return &ScriptedBrain{} }

// Factory returns a brain.Factory that hands out b for every agent.
func (b *ScriptedBrain) Factory() brain.Factory {
	return func(self brain.Self, _ brain.ThoughtObserver) brain.Brain {
		b.mu.Lock()
		b.self = self
		b.mu.Unlock()
		return b
	}
}

// ScriptedFactory hands out the brain registered under the agent's name and
// fallback for everyone else. A nil fallback gives unknown agents a default
// ScriptedBrain.
func ScriptedFactory(byName map[string]*ScriptedBrain, fallback *ScriptedBrain) brain.Factory {
	if fallback == nil {
		fallback = NewScriptedBrain()
	}
	return func(self brain.Self, obs brain.ThoughtObserver) brain.Brain {
		if b, ok := byName[self.Name()]; ok {
			return b.Factory()(self, obs)
		}
		return fallback.Factory()(self, obs)
	}
}

// QueuePlans appends plan replies (chainable).
func (b *ScriptedBrain) QueuePlans(plans ...[]core.Plan) *ScriptedBrain {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range plans {
		b.plans = append(b.plans, PlanReply{Plans: p})
	}
	return b
}

// QueuePlanError appends a failing plan reply (chainable).
func (b *ScriptedBrain) QueuePlanError(err error) *ScriptedBrain {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.plans = append(b.plans, PlanReply{Err: err})
	return b
}

// QueueOptimize appends optimize verdicts (chainable).
func (b *ScriptedBrain) QueueOptimize(ds ...Decision) *ScriptedBrain {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.optimizes = append(b.optimizes, ds...)
	return b
}

// QueueActions appends actions (chainable).
func (b *ScriptedBrain) QueueActions(actions ...core.Action) *ScriptedBrain {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, a := range actions {
		b.actions = append(b.actions, ActionReply{Action: a})
	}
	return b
}

// QueueActionError appends a failing execute reply (chainable).
func (b *ScriptedBrain) QueueActionError(err error) *ScriptedBrain {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.actions = append(b.actions, ActionReply{Err: err})
	return b
}

// QueueReview appends review verdicts (chainable).
func (b *ScriptedBrain) QueueReview(ds ...Decision) *ScriptedBrain {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reviews = append(b.reviews, ds...)
	return b
}

// Self returns the agent view passed to the factory.
func (b *ScriptedBrain) Self() brain.Self {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.self
}

// Calls returns how often each façade call was made.
func (b *ScriptedBrain) Calls() (plan, optimize, execute, review int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.planCalls, b.optimizeCalls, b.executeCalls, b.reviewCalls
}

// LastOpinions returns the opinions passed to the latest Plan call.
func (b *ScriptedBrain) LastOpinions() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.lastOpinions...)
}

// LastConstraints returns the constraints passed to the latest Plan call.
func (b *ScriptedBrain) LastConstraints() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.lastConstraints...)
}

// Results returns every action result passed to Review, in order.
func (b *ScriptedBrain) Results() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.results...)
}

// Plan implements brain.Brain.
func (b *ScriptedBrain) Plan(ctx context.Context, request string, opinions, constraints []string) ([]core.Plan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	b.planCalls++
	b.lastOpinions = append([]string(nil), opinions...)
	b.lastConstraints = append([]string(nil), constraints...)
	if len(b.plans) > 0 {
		r := b.plans[0]
		b.plans = b.plans[1:]
		b.mu.Unlock()
		return r.Plans, r.Err
	}
	hook := b.OnPlan
	b.mu.Unlock()

	if hook != nil {
		return hook(ctx, request, opinions, constraints)
	}
	return Answer(request), nil
}

// Optimize implements brain.Brain.
func (b *ScriptedBrain) Optimize(ctx context.Context, request string, plans []core.Plan) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	b.mu.Lock()
	b.optimizeCalls++
	if len(b.optimizes) > 0 {
		d := b.optimizes[0]
		b.optimizes = b.optimizes[1:]
		b.mu.Unlock()
		return d.Opinion, d.Accepted, d.Err
	}
	hook := b.OnOptimize
	b.mu.Unlock()

	if hook != nil {
		return hook(ctx, request, plans)
	}
	return "The plans are fine.", true, nil
}

// Execute implements brain.Brain.
func (b *ScriptedBrain) Execute(ctx context.Context, plan core.Plan, opinions []string) (core.Action, error) {
	if err := ctx.Err(); err != nil {
		return core.Action{}, err
	}
	b.mu.Lock()
	b.executeCalls++
	if len(b.actions) > 0 {
		r := b.actions[0]
		b.actions = b.actions[1:]
		b.mu.Unlock()
		return r.Action, r.Err
	}
	hook := b.OnExecute
	b.mu.Unlock()

	if hook != nil {
		return hook(ctx, plan, opinions)
	}
	return core.NewAction(core.ActionAnswer, "", plan.Objective, ""), nil
}

// Review implements brain.Brain.
func (b *ScriptedBrain) Review(ctx context.Context, plan core.Plan, action core.Action, result string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	b.mu.Lock()
	b.reviewCalls++
	b.results = append(b.results, result)
	if len(b.reviews) > 0 {
		d := b.reviews[0]
		b.reviews = b.reviews[1:]
		b.mu.Unlock()
		return d.Opinion, d.Accepted, d.Err
	}
	hook := b.OnReview
	b.mu.Unlock()

	if hook != nil {
		return hook(ctx, plan, action, result)
	}
	return "Done.", true, nil
}
