package testutil

import "github.com/hupe1980/civmesh/core"

// PlanBuilder provides a fluent helper for constructing planning rounds in tests.
// Example:
//
//	plans := NewPlanBuilder().Step(core.ActionInvite, "hire Bob").Step(core.ActionAnswer, "reply", 1).Build()
//
// Plans are numbered from 1 in the order they are added.
type PlanBuilder struct {
	plans []core.Plan
}

// NewPlanBuilder creates an empty builder.
func NewPlanBuilder() *PlanBuilder { return &PlanBuilder{} }

// Step appends a plan depending on the given plan numbers (chainable).
func (b *PlanBuilder) Step(t core.ActionType, objective string, after ...int) *PlanBuilder {
	b.plans = append(b.plans, core.Plan{
		Number:     len(b.plans) + 1,
		ActionType: t,
		Objective:  objective,
		Preceding:  after,
	})
	return b
}

// Plan appends a fully specified plan as is (chainable).
func (b *PlanBuilder) Plan(p core.Plan) *PlanBuilder {
	b.plans = append(b.plans, p)
	return b
}

// Build returns a copy of the accumulated plans.
func (b *PlanBuilder) Build() []core.Plan {
	out := make([]core.Plan, len(b.plans))
	copy(out, b.plans)
	return out
}

// Answer returns a one step round answering with the given objective.
func Answer(objective string) []core.Plan {
	return NewPlanBuilder().Step(core.ActionAnswer, objective).Build()
}
