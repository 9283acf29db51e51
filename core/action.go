package core

import (
	"fmt"
	"strings"
)

// ActionType enumerates what an agent can do in a single step.
type ActionType string

const (
	// ActionInvite creates a sub-agent and registers it as a relation.
	ActionInvite ActionType = "Invite"
	// ActionTalk sends a message to a relation's mailbox.
	ActionTalk ActionType = "Talk"
	// ActionBuild constructs a new tool.
	ActionBuild ActionType = "Build"
	// ActionUse invokes one of the agent's tools.
	ActionUse ActionType = "Use"
	// ActionAnswer is terminal: its instruction is the result of the current request.
	ActionAnswer ActionType = "Answer"
)

// ActionTypes lists every known action type in prompt order.
var ActionTypes = []ActionType{ActionInvite, ActionTalk, ActionBuild, ActionUse, ActionAnswer}

// ParseActionType resolves a case-insensitive action type name. "Respond" is
// accepted as an alias of Answer.
func ParseActionType(s string) (ActionType, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "Respond") {
		return ActionAnswer, nil
	}
	for _, t := range ActionTypes {
		if strings.EqualFold(s, string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownActionType, s)
}

// Description returns the one line explanation shown to a brain.
func (t ActionType) Description() string {
	switch t {
	case ActionInvite:
		return "Invite a person who can do your work for you and is not yet one of your relations."
	case ActionTalk:
		return "Talk to one of your relations."
	case ActionBuild:
		return "Build a reusable tool when you can't do it yourself."
	case ActionUse:
		return "Use one of your tools."
	case ActionAnswer:
		return "Answer the one who delegated the request to you. This ends your work on the request."
	default:
		return ""
	}
}

// TargetsRelation reports whether the action's target is resolved against the
// relation map (as opposed to the tool map).
func (t ActionType) TargetsRelation() bool {
	return t == ActionInvite || t == ActionTalk || t == ActionAnswer
}

// Action is one concrete step chosen by a brain. It is immutable once constructed.
type Action struct {
	Type        ActionType `json:"type"`
	Target      string     `json:"target"`
	Instruction string     `json:"instruction"`
	Extra       string     `json:"extra,omitempty"`
}

// NewAction constructs an Action value.
func NewAction(t ActionType, target, instruction, extra string) Action {
	return Action{Type: t, Target: target, Instruction: instruction, Extra: extra}
}

// String renders the action in the same block layout brains are asked to produce.
func (a Action) String() string {
	return fmt.Sprintf("Type: %s\nName: %s\nInstruction: %s\nExtra: %s\n", a.Type, a.Target, a.Instruction, a.Extra)
}
