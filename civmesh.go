// Package civmesh builds a civilization of agents that delegate work to each
// other over their mailboxes. Most applications only need this package:
//  1. Create a Civilization via New, supplying a brain factory and sinks
//  2. Call Solve with a problem; the leader plans, invites helpers, builds
//     and uses tools, and finally answers
//  3. Close the civilization to release every port and tool
//
// The root agent "User" never thinks. It invites the leader, talks to it and
// waits on its mailbox for the single reply.
package civmesh

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/hupe1980/civmesh/agent"
	"github.com/hupe1980/civmesh/brain"
	"github.com/hupe1980/civmesh/core"
	"github.com/hupe1980/civmesh/logging"
	"github.com/hupe1980/civmesh/mailbox"
	"github.com/hupe1980/civmesh/tool"
	"github.com/hupe1980/civmesh/tracer"
)

// UserName is the name of the root agent.
const UserName = "User"

// DefaultLeaderInstruction is the persona of the leader.
const DefaultLeaderInstruction = "Follow the user's instructions carefully. Respond using markdown. You must fulfill the user's request."

// Options configures a Civilization.
type Options struct {
	Mailbox mailbox.Config
	// Sinks are threaded to every agent.
	Sinks        []tracer.Sink
	BrainFactory brain.Factory
	ToolFactory  tool.Factory
	// Tools are granted to the leader. They are closed with the civilization.
	Tools             []tool.Tool
	MaxReviews        int
	LeaderName        string
	LeaderInstruction string
	Logger            logging.Logger
}

// Civilization owns the root agent and, through it, the whole hierarchy.
type Civilization struct {
	opts Options
	user *agent.Agent
	mu   sync.Mutex
}

// New creates the root agent and binds its mailbox.
func New(optFns ...func(o *Options)) (*Civilization, error) {
	opts := Options{
		Mailbox:           mailbox.DefaultConfig(),
		LeaderName:        "Leader",
		LeaderInstruction: DefaultLeaderInstruction,
		Logger:            logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.BrainFactory == nil {
		return nil, errors.New("civmesh: a brain factory is required")
	}
	if err := core.ValidateName(opts.LeaderName); err != nil {
		return nil, fmt.Errorf("civmesh: leader: %w", err)
	}

	tools := make(map[string]tool.Tool, len(opts.Tools))
	for _, t := range opts.Tools {
		tools[t.Name()] = t
	}

	user, err := agent.New(UserName, "", func(o *agent.Options) {
		o.Tools = tools
		o.Mailbox = opts.Mailbox
		o.Sinks = opts.Sinks
		o.BrainFactory = opts.BrainFactory
		o.ToolFactory = opts.ToolFactory
		o.MaxReviews = opts.MaxReviews
		o.Logger = opts.Logger
	})
	if err != nil {
		return nil, err
	}

	return &Civilization{opts: opts, user: user}, nil
}

// User returns the root agent.
func (c *Civilization) User() *agent.Agent { return c.user }

// Leader returns the leader once the first Solve has invited it.
func (c *Civilization) Leader() (*agent.Agent, bool) {
	return c.user.Relation(c.opts.LeaderName)
}

// Solve hands problem to the leader and blocks until the leader answers.
// Calls are serialized. When ctx ends first the leader keeps working, and
// its late reply is what the next Solve returns.
func (c *Civilization) Solve(ctx context.Context, problem string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.Leader(); !ok {
		names := make([]string, 0, len(c.opts.Tools))
		for _, t := range c.opts.Tools {
			names = append(names, t.Name())
		}
		greeting := c.user.Act(ctx, core.NewAction(core.ActionInvite, c.opts.LeaderName, c.opts.LeaderInstruction, strings.Join(names, ",")))
		if core.IsError(greeting) {
			return "", fmt.Errorf("invite leader: %s", core.Body(greeting))
		}
	}

	ack := c.user.Act(ctx, core.NewAction(core.ActionTalk, c.opts.LeaderName, problem, ""))
	if core.IsError(ack) {
		return "", fmt.Errorf("talk to leader: %s", core.Body(ack))
	}

	for {
		msg, err := c.user.Wait(ctx)
		if err != nil {
			return "", err
		}
		if msg.Sender != c.opts.LeaderName {
			c.opts.Logger.Warn("Ignoring message to the user", "sender", msg.Sender)
			continue
		}
		return msg.Instruction, nil
	}
}

// Close shuts the hierarchy down and closes the tools.
func (c *Civilization) Close() error {
	return errors.Join(c.user.Close(), tool.CloseAll(c.opts.Tools))
}
