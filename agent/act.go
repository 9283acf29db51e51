package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/civmesh/core"
	"github.com/hupe1980/civmesh/tool"
)

// ErrNoToolFactory is returned by Build on agents without a tool factory.
var ErrNoToolFactory = errors.New("agent cannot build tools")

// Act performs action and returns its result. Failures never escape: they are
// traced and rendered with core.FormatError so the review step can see them.
func (a *Agent) Act(ctx context.Context, action core.Action) (result string) {
	a.tracer.OnAct(ctx, action)

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%s panicked: %v", action.Type, r)
			a.tracer.OnActError(ctx, action, err)
			result = core.FormatError(err)
		}
	}()

	result, err := a.dispatch(ctx, action)
	if err != nil {
		a.tracer.OnActError(ctx, action, err)
		return core.FormatError(err)
	}
	a.tracer.OnActResult(ctx, action, result)
	return result
}

func (a *Agent) dispatch(ctx context.Context, action core.Action) (string, error) {
	switch action.Type {
	case core.ActionInvite:
		return a.invite(ctx, action.Target, action.Instruction, action.Extra)
	case core.ActionTalk:
		return a.talk(ctx, action.Target, action.Instruction, action.Extra)
	case core.ActionBuild:
		return a.build(ctx, action.Target, action.Instruction, action.Extra)
	case core.ActionUse:
		return a.use(ctx, action.Target, action.Instruction, action.Extra)
	case core.ActionAnswer:
		return a.answer(action.Instruction), nil
	default:
		return "", fmt.Errorf("%w: %q", core.ErrUnknownActionType, action.Type)
	}
}

// invite creates a sub-agent. extra is a comma separated list of the tools
// to grant; names the inviter does not own are ignored.
func (a *Agent) invite(ctx context.Context, name, instruction, extra string) (string, error) {
	name = core.TruncateName(strings.TrimSpace(name))
	if err := core.ValidateName(name); err != nil {
		return "", err
	}

	a.mu.RLock()
	err := a.checkFreeLocked(name)
	granted := make(map[string]tool.Tool)
	for _, n := range strings.Split(extra, ",") {
		n = strings.TrimSpace(n)
		if t, ok := a.tools[n]; ok {
			granted[n] = t
		}
	}
	a.mu.RUnlock()
	if err != nil {
		return "", err
	}

	child, err := New(name, instruction, a.opts.inherited(a, granted))
	if err != nil {
		return "", err
	}

	a.mu.Lock()
	if err := a.checkFreeLocked(name); err != nil {
		a.mu.Unlock()
		_ = child.Close()
		return "", err
	}
	a.relations[name] = child
	a.spawned = append(a.spawned, child)
	a.mu.Unlock()

	a.logger.Info("Agent invited", "agent", a.name, "invitee", name, "tools", len(granted), "addr", child.Addr())
	return greeting(name), nil
}

// talk sends the instruction to a relation. The reply arrives later as a
// request of its own.
func (a *Agent) talk(ctx context.Context, name, instruction, extra string) (string, error) {
	rel, ok := a.Relation(name)
	if !ok {
		return "", fmt.Errorf("%w: relation %s not found", core.ErrUnknownTarget, name)
	}
	if err := a.mouth.Send(ctx, rel.Addr(), instruction, extra); err != nil {
		return "", fmt.Errorf("talk to %s: %w", name, err)
	}
	return core.FormatAnnouncement("%s talks to %s", a.name, name), nil
}

// build registers a tool made by the tool factory. The instruction describes
// the tool, extra is its source.
func (a *Agent) build(ctx context.Context, name, instruction, extra string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: tool name is empty", core.ErrInvalidName)
	}

	a.mu.RLock()
	err := a.checkFreeLocked(name)
	a.mu.RUnlock()
	if err != nil {
		return "", err
	}
	if a.opts.ToolFactory == nil {
		return "", ErrNoToolFactory
	}

	t, err := a.opts.ToolFactory(ctx, name, instruction, extra)
	if err != nil {
		return "", err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.checkFreeLocked(name); err != nil {
		return "", err
	}
	a.tools[name] = t

	a.logger.Info("Tool built", "agent", a.name, "tool", name)
	return tool.Greeting(name), nil
}

func (a *Agent) use(ctx context.Context, name, instruction, extra string) (string, error) {
	t, ok := a.Tool(name)
	if !ok {
		return "", fmt.Errorf("%w: tool %s not found", core.ErrUnknownTarget, name)
	}
	out, err := t.Use(ctx, instruction, extra)
	if err != nil {
		return "", err
	}
	return tool.Format(name, out), nil
}

func (a *Agent) answer(instruction string) string {
	return instruction
}

func greeting(name string) string {
	return core.FormatTalk(name, fmt.Sprintf("Hello, I am %s.\nYou invited me.", name))
}
