package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/hupe1980/civmesh"
	"github.com/hupe1980/civmesh/brain"
	"github.com/hupe1980/civmesh/config"
	"github.com/hupe1980/civmesh/logging"
	"github.com/hupe1980/civmesh/model"
	"github.com/hupe1980/civmesh/model/anthropic"
	"github.com/hupe1980/civmesh/model/gemini"
	"github.com/hupe1980/civmesh/model/openai"
	"github.com/hupe1980/civmesh/tool"
	"github.com/hupe1980/civmesh/tracer"
)

// session bundles everything one invocation of the command owns.
type session struct {
	cfg     *config.Config
	logger  logging.Logger
	civ     *civmesh.Civilization
	closers []io.Closer
}

func (s *session) Close() error {
	errs := []error{s.civ.Close()}
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i].Close())
	}
	if z, ok := s.logger.(*logging.ZapAdapter); ok {
		_ = z.Sync()
	}
	return errors.Join(errs...)
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func newLogger(cfg *config.Config) logging.Logger {
	lc := cfg.LoggerConfig()
	if verbose {
		lc.Level = logging.LevelDebug
	}
	return logging.NewLogger(lc)
}

func newModel(ctx context.Context, cfg config.LLMConfig) (model.Model, error) {
	switch cfg.Provider {
	case "openai":
		return openai.NewModel(func(o *openai.Options) {
			o.APIKey = cfg.APIKey
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
			if cfg.Temperature != 0 {
				o.Temperature = cfg.Temperature
			}
			if cfg.MaxTokens != 0 {
				o.MaxCompletionTokens = cfg.MaxTokens
			}
		}), nil
	case "anthropic":
		return anthropic.NewModel(func(o *anthropic.Options) {
			o.APIKey = cfg.APIKey
			if cfg.Model != "" {
				o.Model = anthropicsdk.Model(cfg.Model)
			}
			if cfg.Temperature != 0 {
				o.Temperature = cfg.Temperature
			}
			if cfg.MaxTokens != 0 {
				o.MaxTokens = cfg.MaxTokens
			}
		}), nil
	case "gemini":
		return gemini.NewModel(ctx, func(o *gemini.Options) {
			o.APIKey = cfg.APIKey
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
			if cfg.Temperature != 0 {
				o.Temperature = float32(cfg.Temperature)
			}
			if cfg.MaxTokens != 0 {
				o.MaxOutputTokens = int32(cfg.MaxTokens)
			}
		})
	default:
		return nil, fmt.Errorf("invalid LLM provider: %s", cfg.Provider)
	}
}

// newSinks builds the configured trace sinks. The returned closers release
// the external connections.
func newSinks(ctx context.Context, cfg *config.Config, logger logging.Logger, console io.Writer) ([]tracer.Sink, []io.Closer, error) {
	var (
		sinks   []tracer.Sink
		closers []io.Closer
	)
	fail := func(err error) ([]tracer.Sink, []io.Closer, error) {
		closeAll(closers)
		return nil, nil, err
	}

	if cfg.Trace.Console {
		sinks = append(sinks, tracer.NewConsoleSink(console))
	}
	if cfg.Trace.Log {
		sinks = append(sinks, tracer.NewLogSink(logger))
	}
	if rc, ok := cfg.RedisSinkConfig(); ok {
		s, err := tracer.NewRedisSink(ctx, rc)
		if err != nil {
			return fail(err)
		}
		sinks, closers = append(sinks, s), append(closers, s)
	}
	if ac, ok := cfg.AMQPSinkConfig(); ok {
		s, err := tracer.NewAMQPSink(ac)
		if err != nil {
			return fail(err)
		}
		sinks, closers = append(sinks, s), append(closers, s)
	}
	if sc, ok := cfg.SQLSinkConfig(); ok {
		s, err := tracer.NewSQLSink(ctx, sc)
		if err != nil {
			return fail(err)
		}
		sinks, closers = append(sinks, s), append(closers, s)
	}
	return sinks, closers, nil
}

func newTools(cfg config.ToolsConfig) ([]tool.Tool, error) {
	if err := os.MkdirAll(cfg.Workdir, 0o755); err != nil {
		return nil, fmt.Errorf("create workdir: %w", err)
	}
	tools := []tool.Tool{
		tool.NewTerminal(cfg.Workdir, func(o *tool.TerminalOptions) {
			if cfg.TerminalTimeout > 0 {
				o.Timeout = cfg.TerminalTimeout
			}
		}),
		tool.NewCodeWriter(cfg.Workdir),
	}
	if cfg.Browser {
		tools = append(tools, tool.NewBrowser(func(o *tool.BrowserOptions) {
			o.Headless = cfg.BrowserHeadless
		}))
	}
	return tools, nil
}

// openSinks is replaced in tests.
var openSinks = newSinks

func closeAll(closers []io.Closer) {
	for i := len(closers) - 1; i >= 0; i-- {
		_ = closers[i].Close()
	}
}

func newSession(ctx context.Context, console io.Writer) (*session, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return buildSession(ctx, cfg, console)
}

// buildSession wires a validated config. Everything opened before a failure
// is closed again.
func buildSession(ctx context.Context, cfg *config.Config, console io.Writer) (_ *session, err error) {
	logger := newLogger(cfg)

	m, err := newModel(ctx, cfg.LLM)
	if err != nil {
		return nil, err
	}

	mb, err := cfg.MailboxConfig()
	if err != nil {
		return nil, err
	}

	sinks, closers, err := openSinks(ctx, cfg, logger, console)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			closeAll(closers)
		}
	}()

	tools, err := newTools(cfg.Tools)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tool.CloseAll(tools)
		}
	}()

	civ, err := civmesh.New(func(o *civmesh.Options) {
		o.Mailbox = mb
		o.Sinks = sinks
		o.BrainFactory = brain.NewLLMFactory(m, func(lo *brain.LLMOptions) {
			lo.MaxCalls = cfg.LLM.MaxCalls
			lo.MemoryTurns = cfg.LLM.MemoryTurns
			lo.Stream = cfg.LLM.Stream
			lo.Logger = logger
		})
		o.ToolFactory = tool.CodedFactory(func(co *tool.CodedOptions) {
			if cfg.Tools.CodedTimeout > 0 {
				co.Timeout = cfg.Tools.CodedTimeout
			}
		})
		o.Tools = tools
		o.MaxReviews = cfg.Agent.MaxReviews
		o.LeaderName = cfg.Leader.Name
		o.LeaderInstruction = cfg.Leader.Instruction
		o.Logger = logger
	})
	if err != nil {
		return nil, err
	}

	return &session{cfg: cfg, logger: logger, civ: civ, closers: closers}, nil
}
