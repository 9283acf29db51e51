package brain

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/civmesh/core"
	"github.com/hupe1980/civmesh/model"
)

type staticSelf struct {
	name, instruction, referee string
	relations, tools           []core.Profile
}

func (s staticSelf) Name() string              { return s.name }
func (s staticSelf) Instruction() string       { return s.instruction }
func (s staticSelf) Referee() string           { return s.referee }
func (s staticSelf) Relations() []core.Profile { return s.relations }
func (s staticSelf) Tools() []core.Profile     { return s.tools }

type recordingObserver struct {
	mu     sync.Mutex
	events []string
}

func (o *recordingObserver) add(e string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, e)
}

func (o *recordingObserver) OnThoughtStart(_ context.Context, stage string) { o.add("start:" + stage) }
func (o *recordingObserver) OnThought(_ context.Context, chunk string)      { o.add("chunk") }
func (o *recordingObserver) OnThoughtEnd(_ context.Context, text string)    { o.add("end") }
func (o *recordingObserver) OnThoughtError(_ context.Context, err error)    { o.add("error") }

func bob() staticSelf {
	return staticSelf{
		name:        "Bob",
		instruction: "You are a careful engineer.",
		referee:     "Alice",
		relations:   []core.Profile{{Name: "Alice", Description: "The boss."}},
		tools:       []core.Profile{{Name: "Terminal", Description: "Runs commands."}},
	}
}

func TestLLM_FullCycle(t *testing.T) {
	m := model.NewMockModel("mock")
	m.Enqueue(
		`{"plans": [{"plan_number": 1, "action_type": "Answer", "objective": "say pong"}]}`,
		"[Accept] simple enough",
		"Type: Answer\nName: Alice\nInstruction: pong\nExtra:",
		"[Reject] too terse",
	)
	obs := &recordingObserver{}
	b := NewLLM(m, bob(), obs)
	ctx := context.Background()

	plans, err := b.Plan(ctx, "ping", nil, []string{"no tools"})
	require.NoError(t, err)
	require.Len(t, plans, 1)

	opinion, ok, err := b.Optimize(ctx, "ping", plans)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "simple enough", opinion)

	action, err := b.Execute(ctx, plans[0], nil)
	require.NoError(t, err)
	assert.Equal(t, core.ActionAnswer, action.Type)

	opinion, ok, err = b.Review(ctx, plans[0], action, "pong")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "too terse", opinion)
	assert.Equal(t, 4, b.Calls())

	reqs := m.Requests()
	require.Len(t, reqs, 4)
	first := reqs[0].Messages
	assert.Equal(t, model.RoleSystem, first[0].Role)
	assert.Equal(t, "Your name is Bob. You are a careful engineer.", first[0].Text)
	prompt := first[len(first)-1].Text
	assert.Contains(t, prompt, "ping")
	assert.Contains(t, prompt, "1. no tools")
	assert.Contains(t, prompt, "Terminal: Runs commands.")
	assert.Contains(t, prompt, "one of 'Alice'")

	// Memory replays earlier exchanges.
	assert.Len(t, reqs[3].Messages, 1+2*3+1)

	assert.Equal(t, "start:plan", obs.events[0])
	assert.Contains(t, obs.events, "chunk")
	assert.Contains(t, obs.events, "end")
}

func TestLLM_SchemaMismatch(t *testing.T) {
	m := model.NewMockModel("mock")
	m.Enqueue("I would rather not.")
	b := NewLLM(m, bob(), nil, func(o *LLMOptions) { o.Stream = false })

	_, err := b.Plan(context.Background(), "ping", nil, nil)
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestLLM_ModelError(t *testing.T) {
	m := model.NewMockModel("mock")
	obs := &recordingObserver{}
	b := NewLLM(m, bob(), obs)

	_, _, err := b.Optimize(context.Background(), "ping", nil)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrSchemaMismatch))
	assert.Equal(t, []string{"start:optimize", "error"}, obs.events)
}

func TestLLM_MaxCalls(t *testing.T) {
	m := model.NewMockModel("mock")
	m.Enqueue("[Accept] ok", "[Accept] ok")
	b := NewLLM(m, bob(), nil, func(o *LLMOptions) { o.MaxCalls = 1 })
	ctx := context.Background()

	_, _, err := b.Optimize(ctx, "x", nil)
	require.NoError(t, err)
	_, _, err = b.Optimize(ctx, "x", nil)
	assert.ErrorIs(t, err, ErrCallLimitExceeded)
	assert.Len(t, m.Requests(), 1)
	assert.Equal(t, 1, b.Calls())
	assert.Equal(t, 0, b.Remaining())
}

func TestLLMFactory(t *testing.T) {
	m := model.NewMockModel("mock")
	m.Enqueue("[Accept] ok")
	factory := NewLLMFactory(m, func(o *LLMOptions) { o.MemoryTurns = 1 })

	b := factory(bob(), nil)
	_, ok, err := b.Optimize(context.Background(), "x", []core.Plan{{Number: 1, ActionType: core.ActionUse, Objective: "ls"}})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, strings.Contains(m.Requests()[0].Messages[1].Text, "1. Use: ls"))
}

func TestBudget(t *testing.T) {
	b := NewBudget(2)
	left, err := b.Spend()
	require.NoError(t, err)
	assert.Equal(t, 1, left)
	left, err = b.Spend()
	require.NoError(t, err)
	assert.Equal(t, 0, left)

	_, err = b.Spend()
	assert.ErrorIs(t, err, ErrCallLimitExceeded)
	assert.Equal(t, 2, b.Used(), "refused calls are not counted")
	assert.Equal(t, 0, b.Remaining())

	unlimited := NewBudget(0)
	left, err = unlimited.Spend()
	require.NoError(t, err)
	assert.Equal(t, Unlimited, left)
	assert.Equal(t, Unlimited, unlimited.Remaining())
}
