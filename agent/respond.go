package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/civmesh/brain"
	"github.com/hupe1980/civmesh/core"
)

// Respond handles a request delegated by sender. It plans and executes until
// a round succeeds, then dispatches the result to the sender's mailbox when
// the sender is a relation.
//
// A failed round is discarded and the opinion that failed it becomes a
// constraint of the next round. Agents invited and tools built by the failed
// round are kept.
func (a *Agent) Respond(ctx context.Context, sender, request string) (string, error) {
	a.tracer.OnRequest(ctx, sender, request)

	if a.brain == nil {
		a.tracer.OnResponseError(ctx, sender, ErrNoBrain)
		return "", ErrNoBrain
	}

	var constraints []string
	for {
		plans, err := a.planRound(ctx, request, constraints)
		if err != nil {
			return "", a.fail(ctx, sender, err)
		}

		result, ok, err := a.executeRound(ctx, plans)
		if err != nil {
			return "", a.fail(ctx, sender, err)
		}
		if !ok {
			a.logger.Debug("Round failed", "agent", a.name, "constraint", result)
			constraints = append(constraints, result)
			continue
		}

		return result, a.reply(ctx, sender, result)
	}
}

func (a *Agent) fail(ctx context.Context, sender string, err error) error {
	a.tracer.OnResponseError(ctx, sender, err)
	a.logger.Warn("Respond failed", "agent", a.name, "sender", sender, "error", err)
	return err
}

// reply dispatches result to sender when it is a relation.
func (a *Agent) reply(ctx context.Context, sender, result string) error {
	rel, ok := a.Relation(sender)
	if !ok {
		a.tracer.OnResponse(ctx, sender, result)
		return nil
	}
	if err := a.mouth.Send(ctx, rel.Addr(), result, ""); err != nil {
		a.tracer.OnResponseError(ctx, sender, err)
		return fmt.Errorf("reply to %s: %w", sender, err)
	}
	a.tracer.OnResponse(ctx, sender, result)
	return nil
}

// planRound asks for plans until the brain accepts a valid proposal and
// returns it in execution order. Invalid graphs and unparseable replies count
// as rejections.
func (a *Agent) planRound(ctx context.Context, request string, constraints []string) ([]core.Plan, error) {
	var opinions []string
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		plans, err := a.brain.Plan(ctx, request, opinions, constraints)
		if err != nil {
			if errors.Is(err, brain.ErrSchemaMismatch) {
				opinions = append(opinions, err.Error())
				a.tracer.OnOptimize(ctx, err.Error(), false)
				continue
			}
			return nil, fmt.Errorf("plan: %w", err)
		}
		a.tracer.OnPlans(ctx, plans)

		ordered, err := core.OrderPlans(plans)
		if err != nil {
			opinions = append(opinions, err.Error())
			a.tracer.OnOptimize(ctx, err.Error(), false)
			continue
		}

		opinion, accepted, err := a.brain.Optimize(ctx, request, ordered)
		if err != nil {
			if errors.Is(err, brain.ErrSchemaMismatch) {
				opinions = append(opinions, err.Error())
				a.tracer.OnOptimize(ctx, err.Error(), false)
				continue
			}
			return nil, fmt.Errorf("optimize: %w", err)
		}
		a.tracer.OnOptimize(ctx, opinion, accepted)

		if accepted {
			return ordered, nil
		}
		opinions = append(opinions, opinion)
	}
}

// executeRound runs plans in order. It stops early after an accepted Answer.
// When a plan fails the returned text is the opinion that failed it.
func (a *Agent) executeRound(ctx context.Context, plans []core.Plan) (string, bool, error) {
	var result string
	for _, p := range plans {
		out, action, ok, err := a.executePlan(ctx, p)
		if err != nil {
			return "", false, err
		}
		if !ok {
			return out, false, nil
		}
		result = out
		if action.Type == core.ActionAnswer {
			break
		}
	}
	return result, true, nil
}

// executePlan lets the brain act on plan until a review accepts the result
// or MaxReviews attempts were rejected.
func (a *Agent) executePlan(ctx context.Context, plan core.Plan) (string, core.Action, bool, error) {
	var opinions []string
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", core.Action{}, false, err
		}

		opinion, action, result, accepted, err := a.attempt(ctx, plan, opinions)
		if err != nil {
			return "", core.Action{}, false, err
		}
		if accepted {
			return result, action, true, nil
		}

		opinions = append(opinions, opinion)
		if a.opts.MaxReviews > 0 && attempt >= a.opts.MaxReviews {
			return fmt.Sprintf("plan %d (%s) failed: %s", plan.Number, plan.Objective, opinion), action, false, nil
		}
	}
}

// attempt runs one execute, act, review step.
func (a *Agent) attempt(ctx context.Context, plan core.Plan, opinions []string) (opinion string, action core.Action, result string, accepted bool, err error) {
	action, err = a.brain.Execute(ctx, plan, opinions)
	if err != nil {
		if errors.Is(err, brain.ErrSchemaMismatch) {
			a.tracer.OnReview(ctx, err.Error(), false)
			return err.Error(), core.Action{}, "", false, nil
		}
		return "", core.Action{}, "", false, fmt.Errorf("execute: %w", err)
	}

	result = a.Act(ctx, action)

	opinion, accepted, err = a.brain.Review(ctx, plan, action, result)
	if err != nil {
		if errors.Is(err, brain.ErrSchemaMismatch) {
			a.tracer.OnReview(ctx, err.Error(), false)
			return err.Error(), action, result, false, nil
		}
		return "", action, result, false, fmt.Errorf("review: %w", err)
	}
	a.tracer.OnReview(ctx, opinion, accepted)
	return opinion, action, result, accepted, nil
}
