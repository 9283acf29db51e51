package agent

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/civmesh/brain"
	"github.com/hupe1980/civmesh/core"
	"github.com/hupe1980/civmesh/logging"
	"github.com/hupe1980/civmesh/mailbox"
	"github.com/hupe1980/civmesh/tool"
	"github.com/hupe1980/civmesh/tracer"
	"github.com/hupe1980/civmesh/wire"
)

// ErrNoBrain is returned by Respond on agents built without a brain factory.
var ErrNoBrain = errors.New("agent has no brain")

// Agent is one person of the civilization. It implements brain.Self and
// mailbox.Handler.
//
// Relations and tools are guarded by a lock, but a non-root agent only
// mutates them from its own accept loop, one message at a time.
type Agent struct {
	name        string
	instruction string
	referee     *Agent
	opts        Options

	mu        sync.RWMutex
	relations map[string]*Agent
	tools     map[string]tool.Tool
	spawned   []*Agent

	brain   brain.Brain
	tracer  *tracer.Tracer
	mailbox *mailbox.Mailbox
	mouth   *mailbox.Dispatcher
	logger  logging.Logger

	closeOnce sync.Once
	closeErr  error
	serving   chan struct{}
}

// New creates an agent and binds its mailbox. Non-root agents start serving
// their mailbox right away.
func New(name, instruction string, optFns ...func(o *Options)) (*Agent, error) {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	if err := core.ValidateName(name); err != nil {
		return nil, err
	}

	a := &Agent{
		name:        name,
		instruction: instruction,
		referee:     opts.Referee,
		opts:        opts,
		relations:   make(map[string]*Agent),
		tools:       make(map[string]tool.Tool, len(opts.Tools)),
		logger:      opts.Logger,
	}
	for n, t := range opts.Tools {
		a.tools[n] = t
	}
	if a.referee != nil {
		if a.referee.name == name {
			return nil, fmt.Errorf("%w: %q cannot be its own referee", core.ErrAlreadyExists, name)
		}
		if _, clash := a.tools[a.referee.name]; clash {
			return nil, fmt.Errorf("%w: referee %q collides with a tool", core.ErrAlreadyExists, a.referee.name)
		}
		a.relations[a.referee.name] = a.referee
	}

	a.tracer = tracer.New(name, opts.Sinks, opts.Logger)

	mouth, err := mailbox.NewDispatcher(name, opts.Mailbox, opts.Logger)
	if err != nil {
		return nil, err
	}
	a.mouth = mouth

	ear, err := mailbox.Bind(opts.Mailbox, func(o *mailbox.Options) {
		o.Logger = opts.Logger
		o.OnError = func(err error) {
			a.tracer.OnReceiveError(context.Background(), err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", name, err)
	}
	a.mailbox = ear

	if opts.BrainFactory != nil {
		a.brain = opts.BrainFactory(a, a.tracer)
	}

	if a.referee != nil {
		a.serving = make(chan struct{})
		go func() {
			defer close(a.serving)
			if err := a.mailbox.Serve(context.Background(), a); err != nil && !errors.Is(err, mailbox.ErrClosed) {
				a.logger.Error("Mailbox stopped", "agent", a.name, "error", err)
			}
		}()
	}

	a.logger.Debug("Agent created", "agent", name, "addr", a.mailbox.Addr(), "root", a.referee == nil)
	return a, nil
}

// Name implements brain.Self.
func (a *Agent) Name() string { return a.name }

// Instruction implements brain.Self.
func (a *Agent) Instruction() string { return a.instruction }

// Referee implements brain.Self.
func (a *Agent) Referee() string {
	if a.referee == nil {
		return ""
	}
	return a.referee.name
}

// IsRoot reports whether the agent has no delegator.
func (a *Agent) IsRoot() bool { return a.referee == nil }

// Addr returns the address of the agent's mailbox.
func (a *Agent) Addr() string { return a.mailbox.Addr() }

// Tracer returns the agent's tracer.
func (a *Agent) Tracer() *tracer.Tracer { return a.tracer }

// Relations implements brain.Self. Profiles are sorted by name.
func (a *Agent) Relations() []core.Profile {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]core.Profile, 0, len(a.relations))
	for _, n := range slices.Sorted(maps.Keys(a.relations)) {
		r := a.relations[n]
		out = append(out, core.Profile{Name: n, Description: r.instruction})
	}
	return out
}

// Tools implements brain.Self. Profiles are sorted by name.
func (a *Agent) Tools() []core.Profile {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]core.Profile, 0, len(a.tools))
	for _, n := range slices.Sorted(maps.Keys(a.tools)) {
		out = append(out, core.Profile{Name: n, Description: a.tools[n].Description()})
	}
	return out
}

// Relation returns the relation registered under name.
func (a *Agent) Relation(name string) (*Agent, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	r, ok := a.relations[name]
	return r, ok
}

// Tool returns the tool registered under name.
func (a *Agent) Tool(name string) (tool.Tool, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	t, ok := a.tools[name]
	return t, ok
}

// Introduce makes peer a relation without taking ownership of it.
func (a *Agent) Introduce(peer *Agent) error {
	if peer == nil || peer == a || peer.name == a.name {
		return fmt.Errorf("%w: an agent cannot be its own relation", core.ErrAlreadyExists)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.checkFreeLocked(peer.name); err != nil {
		return err
	}
	a.relations[peer.name] = peer
	return nil
}

// checkFreeLocked fails when name is already a relation, a tool or the
// agent itself.
func (a *Agent) checkFreeLocked(name string) error {
	if name == a.name {
		return fmt.Errorf("%w: %s is my own name", core.ErrAlreadyExists, name)
	}
	if _, ok := a.relations[name]; ok {
		return fmt.Errorf("%w: relation %s", core.ErrAlreadyExists, name)
	}
	if _, ok := a.tools[name]; ok {
		return fmt.Errorf("%w: tool %s", core.ErrAlreadyExists, name)
	}
	return nil
}

// Knows implements mailbox.Handler.
func (a *Agent) Knows(name string) bool {
	_, ok := a.Relation(name)
	return ok
}

// Receive implements mailbox.Handler.
func (a *Agent) Receive(ctx context.Context, msg wire.Message) error {
	_, err := a.Respond(ctx, msg.Sender, msg.Instruction)
	return err
}

// Wait blocks until one message reaches the mailbox and returns it. It is
// meant for root agents, which do not serve their mailbox.
func (a *Agent) Wait(ctx context.Context) (wire.Message, error) {
	if !a.IsRoot() {
		return wire.Message{}, errors.New("wait is only available on root agents")
	}
	return a.mailbox.Wait(ctx)
}

// Close stops the mailbox, waits for the message in flight and closes every
// agent this one invited. Introduced peers are left alone.
func (a *Agent) Close() error {
	a.closeOnce.Do(func() {
		err := a.mailbox.Close()
		if a.serving != nil {
			<-a.serving
		}

		a.mu.RLock()
		spawned := slices.Clone(a.spawned)
		a.mu.RUnlock()

		var g errgroup.Group
		for _, child := range spawned {
			g.Go(child.Close)
		}
		a.closeErr = errors.Join(err, g.Wait())
		a.logger.Debug("Agent closed", "agent", a.name)
	})
	return a.closeErr
}
