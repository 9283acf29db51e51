package tracer

import (
	"time"

	"github.com/hupe1980/civmesh/core"
)

// Kind identifies a lifecycle transition.
type Kind string

// Event kinds, one per lifecycle transition.
const (
	KindRequest       Kind = "request"
	KindThoughtStart  Kind = "thought-start"
	KindThought       Kind = "thought"
	KindThoughtEnd    Kind = "thought-end"
	KindThoughtError  Kind = "thought-error"
	KindPlans         Kind = "plans"
	KindOptimize      Kind = "optimize"
	KindAct           Kind = "act"
	KindActError      Kind = "act-error"
	KindActResult     Kind = "act-result"
	KindReview        Kind = "review"
	KindResponse      Kind = "response"
	KindResponseError Kind = "response-error"
	KindReceiveError  Kind = "receive-error"
)

// Event is one immutable trace record.
type Event struct {
	ID        string       `json:"id"`
	Kind      Kind         `json:"kind"`
	Agent     string       `json:"agent"`
	Target    string       `json:"target,omitempty"`
	Payload   string       `json:"payload,omitempty"`
	Plans     []core.Plan  `json:"plans,omitempty"`
	Action    *core.Action `json:"action,omitempty"`
	Accepted  *bool        `json:"accepted,omitempty"`
	Error     string       `json:"error,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// Summary renders the event as a short human readable line.
func (e Event) Summary() string {
	switch e.Kind {
	case KindRequest:
		return e.Target + " asked: " + e.Payload
	case KindPlans:
		s := "plans:"
		for _, p := range e.Plans {
			s += "\n  " + p.String()
		}
		return s
	case KindOptimize, KindReview:
		verdict := "rejected"
		if e.Accepted != nil && *e.Accepted {
			verdict = "accepted"
		}
		return string(e.Kind) + " " + verdict + ": " + e.Payload
	case KindAct:
		if e.Action != nil {
			return "act " + string(e.Action.Type) + " -> " + e.Action.Target + ": " + e.Action.Instruction
		}
	case KindActResult:
		return "result: " + e.Payload
	case KindResponse:
		return "answered " + e.Target + ": " + e.Payload
	case KindThoughtStart:
		return "thinking (" + e.Payload + ")"
	case KindThought, KindThoughtEnd:
		return e.Payload
	}
	if e.Error != "" {
		return string(e.Kind) + ": " + e.Error
	}
	return string(e.Kind)
}
