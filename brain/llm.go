package brain

import (
	"context"
	"fmt"

	"github.com/hupe1980/civmesh/core"
	"github.com/hupe1980/civmesh/logging"
	"github.com/hupe1980/civmesh/memory"
	"github.com/hupe1980/civmesh/model"
)

// LLMOptions configures an LLM brain.
type LLMOptions struct {
	// MaxCalls limits the model calls of one brain. Zero means unlimited.
	MaxCalls int
	// MemoryTurns bounds the replayed conversation. Zero keeps everything.
	MemoryTurns int
	// Stream requests streamed replies so observers see thoughts as they form.
	Stream bool
	Logger logging.Logger
}

// LLM is a Brain backed by a language model.
type LLM struct {
	model   model.Model
	self    Self
	obs     ThoughtObserver
	memory  memory.Store
	budget  *Budget
	stream  bool
	logger  logging.Logger
}

// NewLLM creates a brain for self. A nil observer is replaced by NoOpObserver.
func NewLLM(m model.Model, self Self, obs ThoughtObserver, optFns ...func(o *LLMOptions)) *LLM {
	opts := LLMOptions{Stream: true, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if obs == nil {
		obs = NoOpObserver{}
	}

	system, err := systemTemplate.Render(newPromptData(self))
	if err != nil {
		system = "Your name is " + self.Name() + ". " + self.Instruction()
	}

	return &LLM{
		model:   m,
		self:    self,
		obs:     obs,
		memory:  memory.NewShortTerm(system, opts.MemoryTurns),
		budget:  NewBudget(opts.MaxCalls),
		stream:  opts.Stream,
		logger:  opts.Logger,
	}
}

// NewLLMFactory returns a Factory building LLM brains sharing one model.
func NewLLMFactory(m model.Model, optFns ...func(o *LLMOptions)) Factory {
	return func(self Self, obs ThoughtObserver) Brain {
		return NewLLM(m, self, obs, optFns...)
	}
}

// Calls returns the number of model calls made so far.
func (b *LLM) Calls() int { return b.budget.Used() }

// Remaining returns the model calls left, or Unlimited.
func (b *LLM) Remaining() int { return b.budget.Remaining() }

// Plan implements Brain.
func (b *LLM) Plan(ctx context.Context, request string, opinions, constraints []string) ([]core.Plan, error) {
	data := newPromptData(b.self)
	data.Request = request
	data.Opinions = opinions
	data.Constraints = constraints

	reply, err := b.think(ctx, "plan", planTemplate.Render, data)
	if err != nil {
		return nil, err
	}
	return parsePlans(reply)
}

// Optimize implements Brain.
func (b *LLM) Optimize(ctx context.Context, request string, plans []core.Plan) (string, bool, error) {
	data := newPromptData(b.self)
	data.Request = request
	data.Plans = renderPlans(plans)

	reply, err := b.think(ctx, "optimize", optimizeTemplate.Render, data)
	if err != nil {
		return "", false, err
	}
	return parseDecision(reply)
}

// Execute implements Brain.
func (b *LLM) Execute(ctx context.Context, plan core.Plan, opinions []string) (core.Action, error) {
	data := newPromptData(b.self)
	data.Plan = plan.Describe()
	data.Opinions = opinions

	reply, err := b.think(ctx, "execute", executeTemplate.Render, data)
	if err != nil {
		return core.Action{}, err
	}
	return parseAction(reply)
}

// Review implements Brain.
func (b *LLM) Review(ctx context.Context, plan core.Plan, action core.Action, result string) (string, bool, error) {
	data := newPromptData(b.self)
	data.Plan = plan.String()
	data.Action = action.String()
	data.Result = result

	reply, err := b.think(ctx, "review", reviewTemplate.Render, data)
	if err != nil {
		return "", false, err
	}
	return parseDecision(reply)
}

func (b *LLM) think(ctx context.Context, stage string, render func(any) (string, error), data promptData) (string, error) {
	prompt, err := render(data)
	if err != nil {
		return "", fmt.Errorf("render %s prompt: %w", stage, err)
	}
	remaining, err := b.budget.Spend()
	if err != nil {
		b.logger.Warn("Brain exhausted its model calls", "agent", b.self.Name(), "stage", stage, "calls", b.budget.Used())
		return "", err
	}
	if remaining == 0 {
		b.logger.Warn("Brain is using its last model call", "agent", b.self.Name(), "stage", stage)
	}

	b.obs.OnThoughtStart(ctx, stage)
	req := model.Request{Messages: b.memory.Load(prompt), Stream: b.stream}
	reply, err := model.Collect(ctx, b.model, req, func(chunk string) {
		b.obs.OnThought(ctx, chunk)
	})
	if err != nil {
		b.obs.OnThoughtError(ctx, err)
		return "", fmt.Errorf("%s: %w", stage, err)
	}
	b.obs.OnThoughtEnd(ctx, reply)
	b.memory.Save(prompt, reply)

	b.logger.Debug("Brain replied", "agent", b.self.Name(), "stage", stage, "model", b.model.Info().Name, "calls", b.budget.Used(), "remaining", remaining)
	return reply, nil
}
