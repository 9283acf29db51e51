package core

import (
	"fmt"
	"sort"
	"strings"
)

// Plan is one node of the dependency graph produced by a planning round.
// Plan numbers are unique within their round only.
type Plan struct {
	Number       int        `json:"plan_number"`
	ActionType   ActionType `json:"action_type"`
	Objective    string     `json:"objective"`
	Preceding    []int      `json:"preceding_plan_numbers,omitempty"`
	Precondition string     `json:"precondition,omitempty"`
	Effect       string     `json:"effect,omitempty"`
	Constraint   string     `json:"constraint,omitempty"`
}

// String renders the plan on a single line.
func (p Plan) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d. %s: %s", p.Number, p.ActionType, p.Objective)
	if len(p.Preceding) > 0 {
		deps := make([]string, len(p.Preceding))
		for i, n := range p.Preceding {
			deps[i] = fmt.Sprint(n)
		}
		fmt.Fprintf(&sb, " (after %s)", strings.Join(deps, ", "))
	}
	return sb.String()
}

// Describe renders every field of the plan, used when a brain is asked to act on it.
func (p Plan) Describe() string {
	var sb strings.Builder
	sb.WriteString(p.String())
	if p.Precondition != "" {
		sb.WriteString("\nPrecondition: " + p.Precondition)
	}
	if p.Effect != "" {
		sb.WriteString("\nEffect: " + p.Effect)
	}
	if p.Constraint != "" {
		sb.WriteString("\nConstraint: " + p.Constraint)
	}
	return sb.String()
}

// ValidatePlans checks that plan numbers are unique, that every dependency
// refers to a plan of the same round and that the graph is acyclic.
func ValidatePlans(plans []Plan) error {
	_, err := OrderPlans(plans)
	return err
}

// OrderPlans returns plans in an order where each plan follows all the plans
// it depends on. Among plans whose dependencies are satisfied the lowest plan
// number goes first, so the order is deterministic.
func OrderPlans(plans []Plan) ([]Plan, error) {
	if len(plans) == 0 {
		return nil, fmt.Errorf("%w: no plans", ErrInvalidPlan)
	}

	byNumber := make(map[int]Plan, len(plans))
	for _, p := range plans {
		if _, dup := byNumber[p.Number]; dup {
			return nil, fmt.Errorf("%w: plan number %d is used twice", ErrInvalidPlan, p.Number)
		}
		byNumber[p.Number] = p
	}

	indegree := make(map[int]int, len(plans))
	dependents := make(map[int][]int, len(plans))
	for _, p := range plans {
		seen := make(map[int]struct{}, len(p.Preceding))
		for _, dep := range p.Preceding {
			if dep == p.Number {
				return nil, fmt.Errorf("%w: plan %d depends on itself", ErrInvalidPlan, p.Number)
			}
			if _, ok := byNumber[dep]; !ok {
				return nil, fmt.Errorf("%w: plan %d depends on unknown plan %d", ErrInvalidPlan, p.Number, dep)
			}
			if _, ok := seen[dep]; ok {
				continue
			}
			seen[dep] = struct{}{}
			indegree[p.Number]++
			dependents[dep] = append(dependents[dep], p.Number)
		}
	}

	ready := make([]int, 0, len(plans))
	for _, p := range plans {
		if indegree[p.Number] == 0 {
			ready = append(ready, p.Number)
		}
	}

	ordered := make([]Plan, 0, len(plans))
	for len(ready) > 0 {
		sort.Ints(ready)
		n := ready[0]
		ready = ready[1:]
		ordered = append(ordered, byNumber[n])
		for _, d := range dependents[n] {
			indegree[d]--
			if indegree[d] == 0 {
				ready = append(ready, d)
			}
		}
	}

	if len(ordered) != len(plans) {
		return nil, fmt.Errorf("%w: plans form a dependency cycle", ErrInvalidPlan)
	}
	return ordered, nil
}
