package tracer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/civmesh/core"
	"github.com/hupe1980/civmesh/logging"
)

// Sink consumes trace events.
type Sink interface {
	Handle(ctx context.Context, ev Event) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, ev Event) error

// Handle calls f.
func (f SinkFunc) Handle(ctx context.Context, ev Event) error { return f(ctx, ev) }

// SinkTimeout bounds a single sink delivery. Deliveries do not inherit the
// caller's cancellation, so the abort of a cancelled request is still recorded.
const SinkTimeout = 5 * time.Second

// Tracer fans events of one agent out to its sinks.
type Tracer struct {
	agent   string
	sinks   []Sink
	logger  logging.Logger
	now     func() time.Time
	timeout time.Duration
}

// New creates a tracer for agent. A nil logger discards sink failures.
func New(agent string, sinks []Sink, logger logging.Logger) *Tracer {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Tracer{
		agent:   agent,
		sinks:   append([]Sink(nil), sinks...),
		logger:  logger,
		now:     time.Now,
		timeout: SinkTimeout,
	}
}

// Agent returns the name stamped on every event.
func (t *Tracer) Agent() string { return t.agent }

// Sinks returns the registered sinks in order.
func (t *Tracer) Sinks() []Sink { return append([]Sink(nil), t.sinks...) }

// Emit stamps ev and delivers it to every sink.
func (t *Tracer) Emit(ctx context.Context, ev Event) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	ev.Agent = t.agent
	if ev.Timestamp.IsZero() {
		ev.Timestamp = t.now()
	}
	ctx = context.WithoutCancel(ctx)
	for i, s := range t.sinks {
		t.deliver(ctx, i, s, ev)
	}
}

func (t *Tracer) deliver(ctx context.Context, i int, s Sink, ev Event) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("Trace sink panicked", "agent", t.agent, "sink", fmt.Sprintf("%d:%T", i, s), "kind", ev.Kind, "panic", r)
		}
	}()
	if err := s.Handle(ctx, ev); err != nil {
		t.logger.Warn("Trace sink failed", "agent", t.agent, "sink", fmt.Sprintf("%d:%T", i, s), "kind", ev.Kind, "error", err)
	}
}

// OnRequest records an inbound request.
func (t *Tracer) OnRequest(ctx context.Context, sender, request string) {
	t.Emit(ctx, Event{Kind: KindRequest, Target: sender, Payload: request})
}

// OnThoughtStart records the start of a brain call.
func (t *Tracer) OnThoughtStart(ctx context.Context, stage string) {
	t.Emit(ctx, Event{Kind: KindThoughtStart, Payload: stage})
}

// OnThought records a streamed chunk of a brain reply.
func (t *Tracer) OnThought(ctx context.Context, chunk string) {
	t.Emit(ctx, Event{Kind: KindThought, Payload: chunk})
}

// OnThoughtEnd records the complete brain reply.
func (t *Tracer) OnThoughtEnd(ctx context.Context, text string) {
	t.Emit(ctx, Event{Kind: KindThoughtEnd, Payload: text})
}

// OnThoughtError records a failed brain call.
func (t *Tracer) OnThoughtError(ctx context.Context, err error) {
	t.Emit(ctx, Event{Kind: KindThoughtError, Error: err.Error()})
}

// OnPlans records the plans of a round.
func (t *Tracer) OnPlans(ctx context.Context, plans []core.Plan) {
	t.Emit(ctx, Event{Kind: KindPlans, Plans: append([]core.Plan(nil), plans...)})
}

// OnOptimize records the verdict on a set of plans.
func (t *Tracer) OnOptimize(ctx context.Context, opinion string, accepted bool) {
	t.Emit(ctx, Event{Kind: KindOptimize, Payload: opinion, Accepted: &accepted})
}

// OnAct records an action about to be performed.
func (t *Tracer) OnAct(ctx context.Context, action core.Action) {
	t.Emit(ctx, Event{Kind: KindAct, Target: action.Target, Action: &action})
}

// OnActError records an action that failed.
func (t *Tracer) OnActError(ctx context.Context, action core.Action, err error) {
	t.Emit(ctx, Event{Kind: KindActError, Target: action.Target, Action: &action, Error: err.Error()})
}

// OnActResult records the result text of an action.
func (t *Tracer) OnActResult(ctx context.Context, action core.Action, result string) {
	t.Emit(ctx, Event{Kind: KindActResult, Target: action.Target, Action: &action, Payload: result})
}

// OnReview records the verdict on an action's result.
func (t *Tracer) OnReview(ctx context.Context, opinion string, accepted bool) {
	t.Emit(ctx, Event{Kind: KindReview, Payload: opinion, Accepted: &accepted})
}

// OnResponse records the final result sent back to target.
func (t *Tracer) OnResponse(ctx context.Context, target, result string) {
	t.Emit(ctx, Event{Kind: KindResponse, Target: target, Payload: result})
}

// OnResponseError records a request that could not be answered.
func (t *Tracer) OnResponseError(ctx context.Context, target string, err error) {
	t.Emit(ctx, Event{Kind: KindResponseError, Target: target, Error: err.Error()})
}

// OnReceiveError records an inbound frame the mailbox dropped.
func (t *Tracer) OnReceiveError(ctx context.Context, err error) {
	t.Emit(ctx, Event{Kind: KindReceiveError, Error: err.Error()})
}
