package brain

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/hupe1980/civmesh/core"
)

var (
	decisionPattern   = regexp.MustCompile(`(?s)\[(Accept|Reject)\]`)
	actionHeadPattern = regexp.MustCompile(`(?m)^[ \t]*Type:`)
	actionPattern     = regexp.MustCompile(`(?s)Type:[ \t]*([A-Za-z ]+?)[ \t]*\r?\n[ \t]*Name:[ \t]*([^\n]*?)[ \t]*\r?\n[ \t]*Instruction:[ \t]*(.*?)\r?\n[ \t]*Extra:[ \t]*(.*)$`)
)

// parsePlans extracts {"plans": [...]} from reply. Surrounding prose and code
// fences are ignored.
func parsePlans(reply string) ([]core.Plan, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: no JSON object in plan reply", ErrSchemaMismatch)
	}
	doc := reply[start : end+1]
	if !gjson.Valid(doc) {
		return nil, fmt.Errorf("%w: plan reply is not valid JSON", ErrSchemaMismatch)
	}

	list := gjson.Get(doc, "plans")
	if !list.IsArray() || len(list.Array()) == 0 {
		return nil, fmt.Errorf("%w: plan reply has no plans array", ErrSchemaMismatch)
	}

	var plans []core.Plan
	for i, item := range list.Array() {
		num := item.Get("plan_number")
		if num.Type != gjson.Number {
			return nil, fmt.Errorf("%w: plan %d has no plan_number", ErrSchemaMismatch, i+1)
		}
		at, err := core.ParseActionType(item.Get("action_type").String())
		if err != nil {
			return nil, fmt.Errorf("%w: plan %d: %v", ErrSchemaMismatch, num.Int(), err)
		}
		objective := strings.TrimSpace(item.Get("objective").String())
		if objective == "" {
			return nil, fmt.Errorf("%w: plan %d has no objective", ErrSchemaMismatch, num.Int())
		}

		p := core.Plan{
			Number:       int(num.Int()),
			ActionType:   at,
			Objective:    objective,
			Precondition: strings.TrimSpace(item.Get("precondition").String()),
			Effect:       strings.TrimSpace(item.Get("effect").String()),
			Constraint:   strings.TrimSpace(item.Get("constraint").String()),
		}
		for _, dep := range item.Get("preceding_plan_numbers").Array() {
			if dep.Type != gjson.Number {
				return nil, fmt.Errorf("%w: plan %d has a non numeric dependency %q", ErrSchemaMismatch, p.Number, dep.Raw)
			}
			p.Preceding = append(p.Preceding, int(dep.Int()))
		}
		plans = append(plans, p)
	}
	return plans, nil
}

// parseDecision reads "[Accept] opinion" or "[Reject] opinion". Exactly one
// verdict must be present.
func parseDecision(reply string) (string, bool, error) {
	locs := decisionPattern.FindAllStringSubmatchIndex(reply, -1)
	if len(locs) != 1 {
		return "", false, fmt.Errorf("%w: expected exactly one [Accept] or [Reject], found %d", ErrSchemaMismatch, len(locs))
	}
	loc := locs[0]
	verdict := reply[loc[2]:loc[3]]
	opinion := strings.TrimSpace(reply[loc[1]:])
	return opinion, verdict == "Accept", nil
}

// parseAction reads a single Type/Name/Instruction/Extra block.
func parseAction(reply string) (core.Action, error) {
	if n := len(actionHeadPattern.FindAllStringIndex(reply, -1)); n != 1 {
		return core.Action{}, fmt.Errorf("%w: expected exactly one action, found %d", ErrSchemaMismatch, n)
	}
	m := actionPattern.FindStringSubmatch(strings.TrimRight(reply, " \t\r\n"))
	if m == nil {
		return core.Action{}, fmt.Errorf("%w: action must have Type, Name, Instruction and Extra lines", ErrSchemaMismatch)
	}

	at, err := core.ParseActionType(m[1])
	if err != nil {
		return core.Action{}, fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}
	name := strings.TrimSpace(m[2])
	instruction := strings.TrimSpace(m[3])
	if instruction == "" {
		return core.Action{}, fmt.Errorf("%w: action has no instruction", ErrSchemaMismatch)
	}
	if name == "" && at != core.ActionAnswer {
		return core.Action{}, fmt.Errorf("%w: %s action has no name", ErrSchemaMismatch, at)
	}
	return core.NewAction(at, name, instruction, strings.TrimSpace(m[4])), nil
}
